package localfs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

const receiptsKey = "receipts.json"

// ReceiptJournal keeps submission receipts in one JSON document next to the
// session files. It is the default when no database is configured.
type ReceiptJournal struct {
	storage *Storage
	now     func() time.Time

	mu sync.Mutex
}

func NewReceiptJournal(storage *Storage) *ReceiptJournal {
	return &ReceiptJournal{storage: storage, now: time.Now}
}

func (j *ReceiptJournal) SaveReceipt(ctx context.Context, receipt domain.SubmissionReceipt) error {
	if receipt.TrackingCode == "" {
		return domain.WrapError(domain.ErrValidation, "save receipt", errors.New("tracking code is required"))
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	receipts, err := j.load(ctx)
	if err != nil {
		return err
	}
	now := j.now().UTC()
	if receipt.UpdatedAt.IsZero() {
		receipt.UpdatedAt = now
	}
	replaced := false
	for i := range receipts {
		if receipts[i].TrackingCode == receipt.TrackingCode {
			receipt.SubmittedAt = receipts[i].SubmittedAt
			receipts[i] = receipt
			replaced = true
			break
		}
	}
	if !replaced {
		if receipt.SubmittedAt.IsZero() {
			receipt.SubmittedAt = now
		}
		receipts = append(receipts, receipt)
	}

	data, err := json.MarshalIndent(receipts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipts: %w", err)
	}
	return j.storage.Set(ctx, receiptsKey, string(data))
}

func (j *ReceiptJournal) ListReceipts(ctx context.Context, limit int) ([]domain.SubmissionReceipt, error) {
	j.mu.Lock()
	receipts, err := j.load(ctx)
	j.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(receipts, func(a, b int) bool {
		return receipts[a].SubmittedAt.After(receipts[b].SubmittedAt)
	})
	if limit > 0 && len(receipts) > limit {
		receipts = receipts[:limit]
	}
	return receipts, nil
}

func (j *ReceiptJournal) load(ctx context.Context) ([]domain.SubmissionReceipt, error) {
	raw, ok, err := j.storage.Get(ctx, receiptsKey)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var receipts []domain.SubmissionReceipt
	if err := json.Unmarshal([]byte(raw), &receipts); err != nil {
		return nil, fmt.Errorf("decode receipts: %w", err)
	}
	return receipts, nil
}
