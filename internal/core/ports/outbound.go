package ports

import (
	"context"
	"io"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

// ComplaintGateway is the typed client of the complaint API.
type ComplaintGateway interface {
	Create(ctx context.Context, draft domain.ComplaintDraft) (*domain.Complaint, error)
	List(ctx context.Context, page, size int, opts domain.ListOptions) (domain.Page[domain.Complaint], error)
	SearchRealTime(ctx context.Context, term string) ([]domain.Complaint, error)
	SearchAdvanced(ctx context.Context, filters domain.SearchFilters, page, size int) (domain.Page[domain.Complaint], error)
	SearchByWorker(ctx context.Context, name string, page, size int) (domain.Page[domain.Complaint], error)
	GetByCode(ctx context.Context, code string) (*domain.Complaint, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

// EvidenceGateway uploads and lists the images attached to a complaint.
type EvidenceGateway interface {
	UploadMany(ctx context.Context, files []FileHandle, complaintID domain.ID) ([]domain.EvidenceImage, error)
	ListByComplaint(ctx context.Context, complaintID domain.ID) ([]domain.EvidenceImage, error)
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string, remember bool) (*domain.LoginResponse, error)
}

// SessionStorage is the durable key/value storage behind the credential store.
type SessionStorage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// FileHandle is a selected evidence file that has not been uploaded yet.
type FileHandle interface {
	Name() string
	// MimeType is the declared type, not sniffed content.
	MimeType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// PreviewHandle is a revocable local preview of a staged file.
type PreviewHandle interface {
	Ref() string
	Release() error
}

// PreviewProvider acquires preview resources for staged files.
type PreviewProvider interface {
	Acquire(file FileHandle) (PreviewHandle, error)
}

// ReceiptStore keeps submission receipts on the reporter's side.
type ReceiptStore interface {
	SaveReceipt(ctx context.Context, receipt domain.SubmissionReceipt) error
	ListReceipts(ctx context.Context, limit int) ([]domain.SubmissionReceipt, error)
}

// EventPublisher announces finished submissions.
type EventPublisher interface {
	PublishComplaintSubmitted(ctx context.Context, event domain.ComplaintSubmittedEvent) error
}

// ComplaintExporter writes a listing to an external document format.
type ComplaintExporter interface {
	Export(ctx context.Context, w io.Writer, complaints []domain.Complaint) error
}

// SubmissionObserver records submission outcomes, typically as metrics.
type SubmissionObserver interface {
	ObserveSubmission(outcome string, evidenceCount int)
}
