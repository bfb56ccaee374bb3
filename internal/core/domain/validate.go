package domain

import "strings"

// ValidateDraft checks the draft against the local form rules and returns the
// first unmet one. today is the reporter's current calendar date.
func ValidateDraft(d ComplaintDraft, today Date) error {
	if strings.TrimSpace(string(d.Type)) == "" {
		return &ValidationError{Field: "complaintType", Rule: RuleRequired}
	}
	if d.IncidentDate.IsZero() {
		return &ValidationError{Field: "incidentDate", Rule: RuleRequired}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &ValidationError{Field: "description", Rule: RuleRequired}
	}
	if strings.TrimSpace(d.WorkerFullName) == "" {
		return &ValidationError{Field: "workerFullName", Rule: RuleRequired}
	}
	if d.IncidentDate.After(today) {
		return &ValidationError{Field: "incidentDate", Rule: RuleFutureDate}
	}
	if !d.Type.Known() {
		return &ValidationError{Field: "complaintType", Rule: RuleUnknownType}
	}
	if d.Department != "" && !d.Department.Known() {
		return &ValidationError{Field: "department", Rule: RuleUnknownDepartment}
	}
	return nil
}

// Normalize trims surrounding whitespace from every free-text field.
func (d ComplaintDraft) Normalize() ComplaintDraft {
	d.Type = ComplaintType(strings.TrimSpace(string(d.Type)))
	d.Description = strings.TrimSpace(d.Description)
	d.Location = strings.TrimSpace(d.Location)
	d.WorkerFullName = strings.TrimSpace(d.WorkerFullName)
	d.Department = Department(strings.TrimSpace(string(d.Department)))
	d.WorkerPosition = strings.TrimSpace(d.WorkerPosition)
	d.WorkerDescription = strings.TrimSpace(d.WorkerDescription)
	return d
}
