package payout

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts a PENDING payout inside the caller's transaction, so
// the record commits together with the up-front wallet debit
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, p *Payout) error {
	return tx.GetContext(ctx, p, `
		INSERT INTO payouts (id, user_id, wallet_id, reference, amount, currency, status, gateway, destination)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING *
	`, p.ID, p.UserID, p.WalletID, p.Reference, p.Amount, p.Currency, p.Status, p.Gateway, p.Destination)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Payout, error) {
	var p Payout
	err := r.db.GetContext(ctx, &p, `SELECT * FROM payouts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetByProviderPayoutID(ctx context.Context, providerID string) (*Payout, error) {
	var p Payout
	err := r.db.GetContext(ctx, &p, `SELECT * FROM payouts WHERE provider_payout_id = $1`, providerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (*Payout, error) {
	var p Payout
	err := r.db.GetContext(ctx, &p, `SELECT * FROM payouts WHERE reference = $1`, reference)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Payout, error) {
	payouts := []Payout{}
	err := r.db.SelectContext(ctx, &payouts, `
		SELECT * FROM payouts WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	return payouts, err
}

func (r *Repository) SetProviderPayoutID(ctx context.Context, id uuid.UUID, providerID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payouts SET provider_payout_id = $2, updated_at = now() WHERE id = $1
	`, id, providerID)
	return err
}

// Advance moves a payout to a new status. The guard only lets non-terminal
// payouts move, so replayed provider events are no-ops.
func (r *Repository) Advance(ctx context.Context, id uuid.UUID, target Status, reason string) (*Payout, error) {
	return advance(ctx, r.db, id, target, reason)
}

func (r *Repository) AdvanceTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, target Status, reason string) (*Payout, error) {
	return advance(ctx, tx, id, target, reason)
}

func advance(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, target Status, reason string) (*Payout, error) {
	var failure sql.NullString
	if reason != "" {
		failure = sql.NullString{String: reason, Valid: true}
	}

	var p Payout
	err := sqlx.GetContext(ctx, ext, &p, `
		UPDATE payouts
		SET status = $2, failure_reason = COALESCE($3, failure_reason), updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'IN_TRANSIT')
		RETURNING *
	`, id, target, failure)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	err = sqlx.GetContext(ctx, ext, &p, `SELECT * FROM payouts WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, ErrAlreadyTerminal
}
