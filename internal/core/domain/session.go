package domain

import (
	"encoding/json"
	"time"
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"nombreCompleto"`
	Role     string `json:"rol"`
}

// LoginResponse is the body returned by the credential service.
type LoginResponse struct {
	Token     string `json:"token"`
	UserID    ID     `json:"usuarioId"`
	Username  string `json:"username"`
	FullName  string `json:"nombreCompleto"`
	Role      string `json:"rol"`
	ExpiresIn int64  `json:"expiresIn"`
	TokenType string `json:"tipoToken"`

	// Raw keeps the body exactly as received so it can be persisted.
	Raw json.RawMessage `json:"-"`
}

func (r LoginResponse) User() User {
	return User{
		ID:       r.UserID.String(),
		Username: r.Username,
		FullName: r.FullName,
		Role:     r.Role,
	}
}

type Session struct {
	Token     string `json:"token"`
	User      User   `json:"user"`
	ExpiresIn int64  `json:"expiresIn"`
	TokenType string `json:"tipoToken"`
}

// EvidenceOutcome records what happened to the evidence of a submission.
type EvidenceOutcome string

const (
	EvidenceNone     EvidenceOutcome = "none"
	EvidenceUploaded EvidenceOutcome = "uploaded"
	EvidenceFailed   EvidenceOutcome = "failed"
)

// SubmissionReceipt is the local record that keeps a reporter's tracking code
// even when the evidence step fails.
type SubmissionReceipt struct {
	TrackingCode  string          `json:"tracking_code"`
	ComplaintID   ID              `json:"complaint_id"`
	ComplaintType ComplaintType   `json:"complaint_type"`
	EvidenceCount int             `json:"evidence_count"`
	Evidence      EvidenceOutcome `json:"evidence"`
	SubmittedAt   time.Time       `json:"submitted_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// SubmissionResult is reported once a complaint and all its evidence exist.
type SubmissionResult struct {
	TrackingCode     string          `json:"tracking_code"`
	Complaint        Complaint       `json:"complaint"`
	UploadedEvidence []EvidenceImage `json:"uploaded_evidence"`
}

func (r SubmissionResult) UploadedEvidenceCount() int {
	return len(r.UploadedEvidence)
}

// ComplaintSubmittedEvent is published after a successful creation.
type ComplaintSubmittedEvent struct {
	TrackingCode  string          `json:"tracking_code"`
	ComplaintID   ID              `json:"complaint_id"`
	ComplaintType ComplaintType   `json:"complaint_type"`
	Department    Department      `json:"department,omitempty"`
	EvidenceCount int             `json:"evidence_count"`
	Evidence      EvidenceOutcome `json:"evidence"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
