package transaction

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// GenerateReference builds an externally visible reference id. The unix
// timestamp plus random hex keeps retried initiations distinguishable while
// staying readable in provider dashboards.
func GenerateReference(prefix string) string {
	buf := make([]byte, 4)
	rand.Read(buf)
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), hex.EncodeToString(buf))
}

// Create inserts a PENDING transaction
func (r *Repository) Create(ctx context.Context, draft Draft) (*Transaction, error) {
	return create(ctx, r.db, draft)
}

// CreateTx is Create inside a caller-owned transaction
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, draft Draft) (*Transaction, error) {
	return create(ctx, tx, draft)
}

func create(ctx context.Context, ext sqlx.ExtContext, draft Draft) (*Transaction, error) {
	row := Transaction{
		ID:          uuid.New(),
		UserID:      draft.UserID,
		Amount:      draft.Amount,
		Currency:    draft.Currency,
		Type:        draft.Type,
		Status:      StatusPending,
		ReferenceID: draft.ReferenceID,
		Reference:   draft.Reference,
		Metadata:    JSONRawMessage(draft.Metadata),
	}
	if draft.WalletID != uuid.Nil {
		row.WalletID = uuid.NullUUID{UUID: draft.WalletID, Valid: true}
	}
	if draft.PaymentGateway != "" {
		row.PaymentGateway = sql.NullString{String: draft.PaymentGateway, Valid: true}
	}
	if draft.ProviderRef != "" {
		row.ProviderRef = sql.NullString{String: draft.ProviderRef, Valid: true}
	}
	if draft.Description != "" {
		row.Description = sql.NullString{String: draft.Description, Valid: true}
	}
	if draft.PropertyID != uuid.Nil {
		row.PropertyID = uuid.NullUUID{UUID: draft.PropertyID, Valid: true}
	}
	if draft.BillID != uuid.Nil {
		row.BillID = uuid.NullUUID{UUID: draft.BillID, Valid: true}
	}

	var metadata interface{}
	if len(row.Metadata) > 0 {
		metadata = []byte(row.Metadata)
	}

	err := sqlx.GetContext(ctx, ext, &row, `
		INSERT INTO transactions (
			id, user_id, wallet_id, amount, currency, type, status,
			reference_id, reference, payment_gateway, provider_ref,
			description, property_id, bill_id, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING *
	`, row.ID, row.UserID, row.WalletID, row.Amount, row.Currency, row.Type,
		row.Status, row.ReferenceID, row.Reference, row.PaymentGateway,
		row.ProviderRef, row.Description, row.PropertyID, row.BillID, metadata)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicateReference
		}
		return nil, err
	}
	return &row, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `SELECT * FROM transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) GetByReference(ctx context.Context, referenceID string) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `SELECT * FROM transactions WHERE reference_id = $1`, referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByCorrelation returns every row correlated with a base reference:
// the row whose reference_id equals the base, plus suffixed rows of a
// two-sided pair (base_OUT, base_IN). Reconciliation uses the row count
// to pick the single-sided or two-sided path.
func (r *Repository) ListByCorrelation(ctx context.Context, base string) ([]Transaction, error) {
	return listByCorrelation(ctx, r.db, base)
}

// ListByCorrelationTx is ListByCorrelation with FOR UPDATE row locks inside
// a caller-owned transaction, serializing concurrent reconciliations of the
// same reference.
func (r *Repository) ListByCorrelationTx(ctx context.Context, tx *sqlx.Tx, base string) ([]Transaction, error) {
	rows := []Transaction{}
	err := tx.SelectContext(ctx, &rows, `
		SELECT * FROM transactions
		WHERE reference_id = $1 OR reference_id LIKE $1 || '\_%'
		ORDER BY created_at
		FOR UPDATE
	`, base)
	return rows, err
}

func listByCorrelation(ctx context.Context, ext sqlx.ExtContext, base string) ([]Transaction, error) {
	rows := []Transaction{}
	err := sqlx.SelectContext(ctx, ext, &rows, `
		SELECT * FROM transactions
		WHERE reference_id = $1 OR reference_id LIKE $1 || '\_%'
		ORDER BY created_at
	`, base)
	return rows, err
}

func (r *Repository) GetByProviderRef(ctx context.Context, providerRef string) (*Transaction, error) {
	var t Transaction
	err := r.db.GetContext(ctx, &t, `SELECT * FROM transactions WHERE provider_ref = $1`, providerRef)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByUser returns a page of the user's transactions, optionally filtered
// by reference category, newest first
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, reference string, limit, offset int) ([]Transaction, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	where := `WHERE user_id = $1`
	args := []interface{}{userID}
	if reference != "" {
		where += ` AND reference = $2`
		args = append(args, reference)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM transactions `+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT * FROM transactions %s
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d
	`, where, limit, offset)

	rows := []Transaction{}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// SetProviderRef records the provider's identifier once initiation
// returns. Stripe webhooks correlate by this value rather than by the
// platform reference.
func (r *Repository) SetProviderRef(ctx context.Context, id uuid.UUID, providerRef string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET provider_ref = $2, updated_at = now() WHERE id = $1
	`, id, providerRef)
	return err
}

// TransitionTo moves a PENDING transaction to a terminal status. The status
// guard lives in the WHERE clause, so a replayed webhook that arrives after
// the first transition affects no rows; the current row is then returned
// with ErrAlreadyTerminal for callers to treat as an idempotent no-op.
func (r *Repository) TransitionTo(ctx context.Context, id uuid.UUID, target Status, metadataPatch []byte) (*Transaction, error) {
	return transitionTo(ctx, r.db, id, target, metadataPatch)
}

// TransitionToTx is TransitionTo inside a caller-owned transaction, used
// when the status write must commit together with wallet deltas.
func (r *Repository) TransitionToTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, target Status, metadataPatch []byte) (*Transaction, error) {
	return transitionTo(ctx, tx, id, target, metadataPatch)
}

func transitionTo(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, target Status, metadataPatch []byte) (*Transaction, error) {
	if !target.IsTerminal() {
		return nil, ErrInvalidTransition
	}

	var patch interface{}
	if len(metadataPatch) > 0 {
		patch = metadataPatch
	} else {
		patch = []byte(`{}`)
	}

	var t Transaction
	err := sqlx.GetContext(ctx, ext, &t, `
		UPDATE transactions
		SET status = $2,
		    metadata = COALESCE(metadata, '{}'::jsonb) || $3::jsonb,
		    updated_at = now()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING *
	`, id, target, patch)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	// No row matched the guard: either the id is unknown or the row is
	// already terminal.
	err = sqlx.GetContext(ctx, ext, &t, `SELECT * FROM transactions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, ErrAlreadyTerminal
}

// SweepStalePending fails PENDING transactions older than the ttl. Safe
// to run from multiple instances; the status guard keeps it idempotent.
// A zero ttl disables sweeping.
func (r *Repository) SweepStalePending(ctx context.Context, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		return 0, nil
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET status = 'FAILED',
		    metadata = COALESCE(metadata, '{}'::jsonb) || '{"swept":"stale_pending"}'::jsonb,
		    updated_at = now()
		WHERE status = 'PENDING' AND created_at < now() - $1::interval
	`, fmt.Sprintf("%f seconds", ttl.Seconds()))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
