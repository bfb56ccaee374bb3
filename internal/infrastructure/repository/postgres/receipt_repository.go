package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/complaint-desk/internal/core/domain"
)

const receiptsTable = "submission_receipts"

var receiptColumns = []string{
	"tracking_code",
	"complaint_id",
	"complaint_type",
	"evidence_count",
	"evidence",
	"submitted_at",
	"updated_at",
}

// ReceiptRepository is the reporter-side journal of submitted complaints.
type ReceiptRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

func NewReceiptRepository(db *sql.DB) *ReceiptRepository {
	return &ReceiptRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ReceiptRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent CLI runs.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2024030101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS submission_receipts (
	tracking_code TEXT PRIMARY KEY,
	complaint_id TEXT NOT NULL,
	complaint_type TEXT NOT NULL,
	evidence_count INTEGER NOT NULL DEFAULT 0,
	evidence TEXT NOT NULL,
	submitted_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submission_receipts_submitted_at ON submission_receipts(submitted_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveReceipt inserts the receipt or, for a known tracking code, replaces
// its evidence outcome. The original submission time is kept.
func (r *ReceiptRepository) SaveReceipt(ctx context.Context, receipt domain.SubmissionReceipt) error {
	if receipt.TrackingCode == "" {
		return domain.WrapError(domain.ErrValidation, "save receipt", fmt.Errorf("tracking code is required"))
	}
	now := time.Now().UTC()
	if receipt.SubmittedAt.IsZero() {
		receipt.SubmittedAt = now
	}
	if receipt.UpdatedAt.IsZero() {
		receipt.UpdatedAt = now
	}

	query, args, err := r.sb.Insert(receiptsTable).
		Columns(receiptColumns...).
		Values(
			receipt.TrackingCode,
			receipt.ComplaintID.String(),
			string(receipt.ComplaintType),
			receipt.EvidenceCount,
			string(receipt.Evidence),
			receipt.SubmittedAt.UTC(),
			receipt.UpdatedAt.UTC(),
		).
		Suffix(`ON CONFLICT (tracking_code) DO UPDATE SET
	evidence_count = EXCLUDED.evidence_count,
	evidence = EXCLUDED.evidence,
	updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build save receipt query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save receipt: %w", err)
	}
	return nil
}

func (r *ReceiptRepository) ListReceipts(ctx context.Context, limit int) ([]domain.SubmissionReceipt, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := r.sb.Select(receiptColumns...).
		From(receiptsTable).
		OrderBy("submitted_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list receipts query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SubmissionReceipt, 0)
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return out, nil
}

// GetReceipt looks up a single receipt by tracking code.
func (r *ReceiptRepository) GetReceipt(ctx context.Context, trackingCode string) (*domain.SubmissionReceipt, error) {
	query, args, err := r.sb.Select(receiptColumns...).
		From(receiptsTable).
		Where(squirrel.Eq{"tracking_code": trackingCode}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get receipt query: %w", err)
	}

	receipt, err := scanReceipt(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get receipt", fmt.Errorf("tracking code %s", trackingCode))
		}
		return nil, fmt.Errorf("get receipt: %w", err)
	}
	return &receipt, nil
}

type receiptScanner interface {
	Scan(dest ...interface{}) error
}

func scanReceipt(row receiptScanner) (domain.SubmissionReceipt, error) {
	var receipt domain.SubmissionReceipt
	var complaintID, complaintType, evidence string
	err := row.Scan(
		&receipt.TrackingCode,
		&complaintID,
		&complaintType,
		&receipt.EvidenceCount,
		&evidence,
		&receipt.SubmittedAt,
		&receipt.UpdatedAt,
	)
	if err != nil {
		return domain.SubmissionReceipt{}, err
	}
	receipt.ComplaintID = domain.ID(complaintID)
	receipt.ComplaintType = domain.ComplaintType(complaintType)
	receipt.Evidence = domain.EvidenceOutcome(evidence)
	return receipt, nil
}
