package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestComplaintDecodesNumericIDAndDate(t *testing.T) {
	raw := `{"id":42,"complaintCode":"DEN-2024-0001","complaintType":"Otro","incidentDate":"2024-01-10","workerFullName":"Jane Doe","submittedAt":"2024-01-11T09:30:00Z"}`

	var c Complaint
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.ID != "42" {
		t.Fatalf("expected id 42, got %q", c.ID)
	}
	if c.IncidentDate.String() != "2024-01-10" {
		t.Fatalf("unexpected incident date %s", c.IncidentDate)
	}
	if c.DisplayStatus() != StatusPending {
		t.Fatalf("expected default status PENDIENTE, got %s", c.DisplayStatus())
	}
}

func TestDraftEncodesCalendarDate(t *testing.T) {
	draft := ComplaintDraft{Type: "Otro", IncidentDate: NewDate(2024, time.February, 29)}
	body, err := json.Marshal(draft)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)
	if payload["incidentDate"] != "2024-02-29" {
		t.Fatalf("unexpected incidentDate %v", payload["incidentDate"])
	}
}

func TestParseDateAcceptsTimestamp(t *testing.T) {
	d, err := ParseDate("2024-01-10T00:00:00Z")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.String() != "2024-01-10" {
		t.Fatalf("unexpected date %s", d)
	}
	if _, err := ParseDate("10/01/2024"); err == nil {
		t.Fatalf("expected error for unsupported layout")
	}
}

func TestSearchFiltersWith(t *testing.T) {
	f, err := SearchFilters{}.With(FilterStatus, "pendiente")
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}
	if f.Status != StatusPending || f.IsEmpty() {
		t.Fatalf("unexpected filters %+v", f)
	}
	if _, err := f.With(FilterStatus, "ARCHIVED"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for unknown status, got %v", err)
	}
	cleared, _ := f.With(FilterStatus, "")
	if !cleared.IsEmpty() {
		t.Fatalf("expected empty filters after clearing, got %+v", cleared)
	}
}

func TestGatewayErrorMatchesKinds(t *testing.T) {
	err := WrapError(ErrTemporary, "list", &GatewayError{Kind: GatewayNetworkOrServer, Operation: "list", StatusCode: 404})
	if !errors.Is(err, ErrGateway) || !errors.Is(err, ErrNotFound) || !errors.Is(err, ErrTemporary) {
		t.Fatalf("expected gateway, not found and temporary kinds on %v", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatalf("404 must not match ErrUnauthorized")
	}
}

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		0:           "0 Bytes",
		512:         "512 Bytes",
		2048:        "2.00 KB",
		5 * 1 << 20: "5.00 MB",
	}
	for in, want := range cases {
		if got := FormatSize(in); got != want {
			t.Fatalf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}
