package domain

import (
	"errors"
	"testing"
	"time"
)

func validDraft() ComplaintDraft {
	return ComplaintDraft{
		Type:           "Acoso Laboral",
		IncidentDate:   NewDate(2024, time.January, 10),
		Description:    "x",
		WorkerFullName: "Jane Doe",
	}
}

func TestValidateDraftAcceptsMinimalDraft(t *testing.T) {
	if err := ValidateDraft(validDraft(), NewDate(2024, time.January, 10)); err != nil {
		t.Fatalf("ValidateDraft() error = %v", err)
	}
}

func TestValidateDraftReportsFirstMissingField(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*ComplaintDraft)
		field string
	}{
		{"type", func(d *ComplaintDraft) { d.Type = "" }, "complaintType"},
		{"date", func(d *ComplaintDraft) { d.IncidentDate = Date{} }, "incidentDate"},
		{"description", func(d *ComplaintDraft) { d.Description = "   " }, "description"},
		{"worker", func(d *ComplaintDraft) { d.WorkerFullName = "" }, "workerFullName"},
		{"type before worker", func(d *ComplaintDraft) { d.Type = ""; d.WorkerFullName = "" }, "complaintType"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			draft := validDraft()
			tc.edit(&draft)
			err := ValidateDraft(draft, NewDate(2025, time.June, 1))
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tc.field || vErr.Rule != RuleRequired {
				t.Fatalf("expected %s/required, got %s/%s", tc.field, vErr.Field, vErr.Rule)
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected errors.Is(err, ErrValidation)")
			}
		})
	}
}

func TestValidateDraftRejectsFutureIncidentDate(t *testing.T) {
	today := NewDate(2024, time.March, 5)
	draft := validDraft()
	draft.IncidentDate = NewDate(2024, time.March, 6)

	err := ValidateDraft(draft, today)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Rule != RuleFutureDate {
		t.Fatalf("expected future date rule, got %v", err)
	}

	draft.IncidentDate = today
	if err := ValidateDraft(draft, today); err != nil {
		t.Fatalf("incident today must be accepted, got %v", err)
	}
}

func TestValidateDraftRejectsUnknownEnums(t *testing.T) {
	today := NewDate(2025, time.January, 1)
	draft := validDraft()
	draft.Type = "Queja"
	err := ValidateDraft(draft, today)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Rule != RuleUnknownType {
		t.Fatalf("expected unknown type, got %v", err)
	}

	draft = validDraft()
	draft.Department = "Marketing"
	err = ValidateDraft(draft, today)
	if !errors.As(err, &vErr) || vErr.Rule != RuleUnknownDepartment {
		t.Fatalf("expected unknown department, got %v", err)
	}
}
