package payout

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusInTransit Status = "IN_TRANSIT"
	StatusPaid      Status = "PAID"
	StatusFailed    Status = "FAILED"
	StatusCanceled  Status = "CANCELED"
)

// IsTerminal reports whether the payout can still move
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusCanceled
}

// Payout tracks a withdrawal from a wallet to an external bank account.
// The wallet is debited up front; a failed provider transfer refunds it.
type Payout struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	UserID           uuid.UUID       `db:"user_id" json:"user_id"`
	WalletID         uuid.UUID       `db:"wallet_id" json:"wallet_id"`
	Reference        string          `db:"reference" json:"reference"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Currency         string          `db:"currency" json:"currency"`
	Status           Status          `db:"status" json:"status"`
	Gateway          string          `db:"gateway" json:"gateway"`
	ProviderPayoutID sql.NullString  `db:"provider_payout_id" json:"provider_payout_id,omitempty"`
	Destination      string          `db:"destination" json:"destination"`
	FailureReason    sql.NullString  `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
