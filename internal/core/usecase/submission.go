package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
	"github.com/kirillkom/complaint-desk/internal/core/ports"
)

// Progress checkpoints reported by the submission workflow.
const (
	ProgressValidated = 20
	ProgressCreated   = 50
	ProgressUploading = 60
	ProgressUploaded  = 90
	ProgressDone      = 100
)

// Submission outcomes reported to the observer.
const (
	OutcomeCompleted        = "completed"
	OutcomeValidationFailed = "validation_failed"
	OutcomeCreateFailed     = "create_failed"
	OutcomeEvidenceFailed   = "evidence_failed"
)

type SubmissionOptions struct {
	Receipts ports.ReceiptStore
	Events   ports.EventPublisher
	Observer ports.SubmissionObserver
	Now      func() time.Time
	// ResetDelay is how long the confirmation stays visible before the form
	// is cleared.
	ResetDelay time.Duration
	Schedule   func(delay time.Duration, fn func())
	Logger     *slog.Logger
}

type SubmissionUseCase struct {
	complaints ports.ComplaintGateway
	evidence   ports.EvidenceGateway
	receipts   ports.ReceiptStore
	events     ports.EventPublisher
	observer   ports.SubmissionObserver
	now        func() time.Time
	resetDelay time.Duration
	schedule   func(time.Duration, func())
	logger     *slog.Logger
}

func NewSubmissionUseCase(
	complaints ports.ComplaintGateway,
	evidence ports.EvidenceGateway,
	opts SubmissionOptions,
) *SubmissionUseCase {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = 3 * time.Second
	}
	if opts.Schedule == nil {
		opts.Schedule = func(delay time.Duration, fn func()) { time.AfterFunc(delay, fn) }
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &SubmissionUseCase{
		complaints: complaints,
		evidence:   evidence,
		receipts:   opts.Receipts,
		events:     opts.Events,
		observer:   opts.Observer,
		now:        opts.Now,
		resetDelay: opts.ResetDelay,
		schedule:   opts.Schedule,
		logger:     opts.Logger,
	}
}

// Submit validates the draft, creates the complaint and uploads its staged
// evidence. A created complaint is never rolled back: when the evidence step
// fails the returned SubmissionError still carries the tracking code.
func (uc *SubmissionUseCase) Submit(ctx context.Context, form ports.SubmissionForm, progress ports.ProgressFunc) (*domain.SubmissionResult, error) {
	tracker := &progressTracker{fn: progress}

	draft := form.Draft().Normalize()
	if err := domain.ValidateDraft(draft, domain.DateOf(uc.now())); err != nil {
		tracker.fail()
		uc.observe(OutcomeValidationFailed, 0)
		return nil, err
	}
	tracker.report(ProgressValidated)

	complaint, err := uc.create(ctx, draft)
	if err != nil {
		tracker.fail()
		uc.observe(OutcomeCreateFailed, 0)
		uc.logger.Warn("submission_failed", "stage", "create", "error", err)
		return nil, err
	}
	tracker.report(ProgressCreated)

	batch := form.Evidence()
	staged := 0
	if batch != nil {
		staged = batch.Len()
	}

	var uploaded []domain.EvidenceImage
	if staged > 0 {
		tracker.report(ProgressUploading)
		uploaded, err = uc.uploadEvidence(ctx, batch, complaint.ID)
		if err != nil {
			tracker.fail()
			uc.observe(OutcomeEvidenceFailed, staged)
			uc.logger.Warn("submission_failed",
				"stage", "evidence",
				"tracking_code", complaint.Code,
				"evidence_count", staged,
				"error", err,
			)
			uc.recordReceipt(ctx, complaint, staged, domain.EvidenceFailed)
			uc.publish(ctx, draft, complaint, staged, domain.EvidenceFailed)
			return nil, &domain.SubmissionError{
				Kind:         domain.SubmissionEvidenceFailed,
				TrackingCode: complaint.Code,
				Complaint:    complaint,
				Err:          err,
			}
		}
		tracker.report(ProgressUploaded)
	}

	outcome := domain.EvidenceNone
	if staged > 0 {
		outcome = domain.EvidenceUploaded
	}
	uc.recordReceipt(ctx, complaint, staged, outcome)
	uc.publish(ctx, draft, complaint, staged, outcome)
	uc.observe(OutcomeCompleted, len(uploaded))
	tracker.report(ProgressDone)

	uc.schedule(uc.resetDelay, form.Reset)

	return &domain.SubmissionResult{
		TrackingCode:     complaint.Code,
		Complaint:        *complaint,
		UploadedEvidence: uploaded,
	}, nil
}

// RetryEvidence uploads the items of a previous submission that are still
// staged or failed, against the complaint that was already created.
func (uc *SubmissionUseCase) RetryEvidence(ctx context.Context, form ports.SubmissionForm, complaint *domain.Complaint, progress ports.ProgressFunc) (*domain.SubmissionResult, error) {
	if complaint == nil || complaint.ID == "" {
		return nil, domain.WrapError(domain.ErrValidation, "retry evidence", errors.New("complaint is not created"))
	}
	tracker := &progressTracker{fn: progress, last: ProgressCreated}

	batch := form.Evidence()
	if batch == nil || batch.Len() == 0 {
		tracker.report(ProgressDone)
		return &domain.SubmissionResult{TrackingCode: complaint.Code, Complaint: *complaint}, nil
	}

	staged := batch.Len()
	tracker.report(ProgressUploading)
	uploaded, err := uc.uploadEvidence(ctx, batch, complaint.ID)
	if err != nil {
		tracker.fail()
		uc.observe(OutcomeEvidenceFailed, staged)
		uc.recordReceipt(ctx, complaint, staged, domain.EvidenceFailed)
		return nil, &domain.SubmissionError{
			Kind:         domain.SubmissionEvidenceFailed,
			TrackingCode: complaint.Code,
			Complaint:    complaint,
			Err:          err,
		}
	}
	tracker.report(ProgressUploaded)

	uc.recordReceipt(ctx, complaint, staged, domain.EvidenceUploaded)
	uc.observe(OutcomeCompleted, len(uploaded))
	tracker.report(ProgressDone)
	uc.schedule(uc.resetDelay, form.Reset)

	return &domain.SubmissionResult{
		TrackingCode:     complaint.Code,
		Complaint:        *complaint,
		UploadedEvidence: uploaded,
	}, nil
}

func (uc *SubmissionUseCase) create(ctx context.Context, draft domain.ComplaintDraft) (*domain.Complaint, error) {
	complaint, err := uc.complaints.Create(ctx, draft)
	if err != nil {
		return nil, &domain.SubmissionError{Kind: domain.SubmissionCreateFailed, Err: fmt.Errorf("create complaint: %w", err)}
	}
	if complaint == nil || complaint.ID == "" || complaint.Code == "" {
		return nil, &domain.SubmissionError{
			Kind: domain.SubmissionCreateFailed,
			Err:  errors.New("create complaint: response without identifier or tracking code"),
		}
	}
	return complaint, nil
}

func (uc *SubmissionUseCase) uploadEvidence(ctx context.Context, batch ports.EvidenceBatch, complaintID domain.ID) ([]domain.EvidenceImage, error) {
	ids, files := batch.PendingFiles()
	if len(files) == 0 {
		return nil, nil
	}
	if err := batch.MarkUploading(ids); err != nil {
		return nil, fmt.Errorf("mark evidence uploading: %w", err)
	}

	images, err := uc.evidence.UploadMany(ctx, files, complaintID)
	if err != nil {
		if markErr := batch.MarkFailed(ids); markErr != nil {
			return nil, fmt.Errorf("upload evidence: %w; mark failed: %v", err, markErr)
		}
		return nil, fmt.Errorf("upload evidence: %w", err)
	}
	if err := batch.MarkUploaded(ids); err != nil {
		return nil, fmt.Errorf("mark evidence uploaded: %w", err)
	}
	if len(images) != len(files) {
		uc.logger.Warn("evidence_count_mismatch", "complaint_id", complaintID.String(), "sent", len(files), "stored", len(images))
	}
	return images, nil
}

func (uc *SubmissionUseCase) recordReceipt(ctx context.Context, complaint *domain.Complaint, evidenceCount int, outcome domain.EvidenceOutcome) {
	if uc.receipts == nil {
		return
	}
	now := uc.now().UTC()
	submittedAt := complaint.SubmittedAt
	if submittedAt.IsZero() {
		submittedAt = now
	}
	receipt := domain.SubmissionReceipt{
		TrackingCode:  complaint.Code,
		ComplaintID:   complaint.ID,
		ComplaintType: complaint.Type,
		EvidenceCount: evidenceCount,
		Evidence:      outcome,
		SubmittedAt:   submittedAt,
		UpdatedAt:     now,
	}
	if err := uc.receipts.SaveReceipt(ctx, receipt); err != nil {
		uc.logger.Error("receipt_save_failed", "tracking_code", complaint.Code, "error", err)
	}
}

func (uc *SubmissionUseCase) publish(ctx context.Context, draft domain.ComplaintDraft, complaint *domain.Complaint, evidenceCount int, outcome domain.EvidenceOutcome) {
	if uc.events == nil {
		return
	}
	event := domain.ComplaintSubmittedEvent{
		TrackingCode:  complaint.Code,
		ComplaintID:   complaint.ID,
		ComplaintType: draft.Type,
		Department:    draft.Department,
		EvidenceCount: evidenceCount,
		Evidence:      outcome,
		OccurredAt:    uc.now().UTC(),
	}
	if err := uc.events.PublishComplaintSubmitted(ctx, event); err != nil {
		uc.logger.Error("event_publish_failed", "tracking_code", complaint.Code, "error", err)
	}
}

func (uc *SubmissionUseCase) observe(outcome string, evidenceCount int) {
	if uc.observer != nil {
		uc.observer.ObserveSubmission(outcome, evidenceCount)
	}
}

// progressTracker only moves forward; fail drops back to zero once.
type progressTracker struct {
	fn   ports.ProgressFunc
	last int
}

func (p *progressTracker) report(percent int) {
	if percent <= p.last {
		return
	}
	p.last = percent
	if p.fn != nil {
		p.fn(percent)
	}
}

func (p *progressTracker) fail() {
	if p.last == 0 {
		return
	}
	p.last = 0
	if p.fn != nil {
		p.fn(0)
	}
}
