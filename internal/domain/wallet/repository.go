package wallet

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle so callers that span multiple
// repositories can open one transaction over both.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// GetOrCreate returns the user's wallet for a currency, creating a
// zero-balance wallet if none exists. The user's first wallet is created
// active so funding works without a separate activation step; wallets in
// further currencies start inactive until chosen. Concurrent first calls
// are safe: the unique (user_id, currency) index makes the insert a no-op
// for the loser.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*Wallet, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallets (id, user_id, currency, balance, is_active)
		SELECT $1, $2, $3, 0,
		       NOT EXISTS (SELECT 1 FROM wallets WHERE user_id = $2 AND is_active = true)
		ON CONFLICT (user_id, currency) DO NOTHING
	`, uuid.New(), userID, currency)
	if err != nil {
		return nil, err
	}

	return r.GetByUserAndCurrency(ctx, userID, currency)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `SELECT * FROM wallets WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency string) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT * FROM wallets WHERE user_id = $1 AND currency = $2
	`, userID, currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := r.db.GetContext(ctx, &w, `
		SELECT * FROM wallets WHERE user_id = $1 AND is_active = true
		ORDER BY updated_at DESC LIMIT 1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Wallet, error) {
	wallets := []Wallet{}
	err := r.db.SelectContext(ctx, &wallets, `
		SELECT * FROM wallets WHERE user_id = $1 ORDER BY created_at
	`, userID)
	return wallets, err
}

// Activate marks one wallet active and deactivates the user's others.
// A user spends from exactly one active wallet at a time.
func (r *Repository) Activate(ctx context.Context, userID, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE wallets SET is_active = false, updated_at = now()
		WHERE user_id = $1 AND is_active = true AND id <> $2
	`, userID, id); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE wallets SET is_active = true, updated_at = now()
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrWalletNotFound
	}

	return tx.Commit()
}

// EnsureSufficientBalance is an advisory pre-check used before starting a
// multi-step flow. The balance can change before the debit lands, so
// callers still rely on the guard inside ApplyDelta.
func (r *Repository) EnsureSufficientBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	w, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if w.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDelta atomically adjusts a wallet balance by a signed amount. The
// balance guard is in the WHERE clause, so a debit past zero affects no
// rows and the balance is never observed negative.
func (r *Repository) ApplyDelta(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	return applyDelta(ctx, r.db, id, delta)
}

// ApplyDeltaTx is ApplyDelta inside a caller-owned transaction, used when
// a balance change must commit together with ledger writes.
func (r *Repository) ApplyDeltaTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, delta decimal.Decimal) error {
	return applyDelta(ctx, tx, id, delta)
}

// LockTx takes a row lock on the wallet for the rest of the transaction,
// serializing transfers that touch the same wallet pair.
func (r *Repository) LockTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*Wallet, error) {
	var w Wallet
	err := tx.GetContext(ctx, &w, `SELECT * FROM wallets WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func applyDelta(ctx context.Context, ext sqlx.ExtContext, id uuid.UUID, delta decimal.Decimal) error {
	res, err := ext.ExecContext(ctx, `
		UPDATE wallets
		SET balance = balance + $2, updated_at = now()
		WHERE id = $1 AND balance + $2 >= 0
	`, id, delta)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	// Distinguish a missing wallet from a guard rejection.
	var exists bool
	if err := sqlx.GetContext(ctx, ext, &exists, `SELECT EXISTS(SELECT 1 FROM wallets WHERE id = $1)`, id); err != nil {
		return err
	}
	if !exists {
		return ErrWalletNotFound
	}
	return ErrInsufficientFunds
}
