package domain

import "strings"

// SearchFilters are the structured facets of the directory. Empty fields are
// absent, not "match empty".
type SearchFilters struct {
	Department Department
	Type       ComplaintType
	Status     ComplaintStatus
	WorkerName string
}

func (f SearchFilters) IsEmpty() bool {
	return strings.TrimSpace(string(f.Department)) == "" &&
		strings.TrimSpace(string(f.Type)) == "" &&
		strings.TrimSpace(string(f.Status)) == "" &&
		strings.TrimSpace(f.WorkerName) == ""
}

type FilterField string

const (
	FilterDepartment FilterField = "department"
	FilterType       FilterField = "complaintType"
	FilterStatus     FilterField = "status"
	FilterWorkerName FilterField = "workerName"
)

// With returns a copy of f with one field replaced.
func (f SearchFilters) With(field FilterField, value string) (SearchFilters, error) {
	value = strings.TrimSpace(value)
	switch field {
	case FilterDepartment:
		f.Department = Department(value)
	case FilterType:
		f.Type = ComplaintType(value)
	case FilterStatus:
		if value == "" {
			f.Status = ""
			break
		}
		status, ok := ParseStatus(value)
		if !ok {
			return f, &ValidationError{Field: string(FilterStatus), Rule: RuleUnknownStatus}
		}
		f.Status = status
	case FilterWorkerName:
		f.WorkerName = value
	default:
		return f, &ValidationError{Field: string(field), Rule: RuleUnknownFilter}
	}
	return f, nil
}

// Page is one slice of a server-side paginated listing.
type Page[T any] struct {
	Items      []T   `json:"content"`
	PageIndex  int   `json:"number"`
	PageSize   int   `json:"size"`
	TotalPages int   `json:"totalPages"`
	TotalItems int64 `json:"totalElements"`
}

// SinglePage wraps an already materialized list as a one-page result.
func SinglePage[T any](items []T) Page[T] {
	return Page[T]{
		Items:      items,
		PageIndex:  0,
		PageSize:   len(items),
		TotalPages: 1,
		TotalItems: int64(len(items)),
	}
}

func (p Page[T]) HasNext() bool {
	return p.PageIndex < p.TotalPages-1
}

func (p Page[T]) HasPrevious() bool {
	return p.PageIndex > 0
}
