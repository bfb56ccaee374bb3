package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type ComplaintStatus string

const (
	StatusPending   ComplaintStatus = "PENDIENTE"
	StatusInReview  ComplaintStatus = "EN_REVISION"
	StatusResolved  ComplaintStatus = "RESUELTO"
	StatusDismissed ComplaintStatus = "DESESTIMADO"
)

// Statuses lists the values accepted by the status filter, in display order.
var Statuses = []ComplaintStatus{StatusPending, StatusInReview, StatusResolved, StatusDismissed}

func ParseStatus(raw string) (ComplaintStatus, bool) {
	value := ComplaintStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, s := range Statuses {
		if s == value {
			return s, true
		}
	}
	return "", false
}

type ComplaintType string

var ComplaintTypes = []ComplaintType{
	"Acoso Laboral",
	"Discriminación",
	"Incumplimiento de Normas",
	"Conducta Inapropiada",
	"Abuso de Autoridad",
	"Intento de Soborno",
	"Otro",
}

func (t ComplaintType) Known() bool {
	for _, known := range ComplaintTypes {
		if known == t {
			return true
		}
	}
	return false
}

type Department string

var Departments = []Department{
	"Recursos Humanos",
	"Tecnologias",
	"SIFDE",
	"Secretaria de camara",
	"Sereci",
	"Otro",
}

func (d Department) Known() bool {
	for _, known := range Departments {
		if known == d {
			return true
		}
	}
	return false
}

// ID is a server-assigned identifier. The service encodes it as a
// JSON number; it is kept opaque on this side.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day, encoded as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > len(dateLayout) {
		// Accept full timestamps the service may echo back.
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return NewDate(ts.Date()), nil
		}
		raw = raw[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Date())
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ComplaintDraft is what the reporter fills in before the service assigns an
// identifier and a tracking code.
type ComplaintDraft struct {
	Type              ComplaintType `json:"complaintType"`
	IncidentDate      Date          `json:"incidentDate"`
	Description       string        `json:"description"`
	Location          string        `json:"location"`
	WorkerFullName    string        `json:"workerFullName"`
	Department        Department    `json:"department"`
	WorkerPosition    string        `json:"workerPosition"`
	WorkerDescription string        `json:"workerDescription"`
}

type Complaint struct {
	ID                ID              `json:"id"`
	Code              string          `json:"complaintCode"`
	Type              ComplaintType   `json:"complaintType"`
	IncidentDate      Date            `json:"incidentDate"`
	Description       string          `json:"description"`
	Location          string          `json:"location,omitempty"`
	WorkerFullName    string          `json:"workerFullName"`
	Department        Department      `json:"department,omitempty"`
	WorkerPosition    string          `json:"workerPosition,omitempty"`
	WorkerDescription string          `json:"workerDescription,omitempty"`
	Status            ComplaintStatus `json:"status"`
	SubmittedAt       time.Time       `json:"submittedAt"`
}

// DisplayStatus falls back to PENDIENTE when the service omits the status.
func (c Complaint) DisplayStatus() ComplaintStatus {
	if c.Status == "" {
		return StatusPending
	}
	return c.Status
}

type Stats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Resolved int64 `json:"resolved"`
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListOptions are the ordering parameters of the unfiltered listing.
type ListOptions struct {
	SortBy    string
	Direction SortDirection
}

func DefaultListOptions() ListOptions {
	return ListOptions{SortBy: "submittedAt", Direction: SortDesc}
}
