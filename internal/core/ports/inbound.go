package ports

import (
	"context"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

// ComplaintSubmitter is the inbound contract of the reporter workflow.
type ComplaintSubmitter interface {
	Submit(ctx context.Context, form SubmissionForm, progress ProgressFunc) (*domain.SubmissionResult, error)
}

// ProgressFunc receives submission progress checkpoints as percentages.
type ProgressFunc func(percent int)

// SubmissionForm is the draft plus the staged evidence that travel together
// through a submission.
type SubmissionForm interface {
	Draft() domain.ComplaintDraft
	Evidence() EvidenceBatch
	Reset()
}

// EvidenceBatch is the view of staged evidence the submission workflow needs.
type EvidenceBatch interface {
	Len() int
	// PendingFiles returns the files that still have to be uploaded, in order,
	// together with their staging ids.
	PendingFiles() ([]string, []FileHandle)
	MarkUploading(ids []string) error
	MarkUploaded(ids []string) error
	MarkFailed(ids []string) error
}

// SessionGate reports whether staff views may be opened.
type SessionGate interface {
	IsAuthenticated(ctx context.Context) bool
}
