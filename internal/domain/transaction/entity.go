package transaction

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeCredit Type = "CREDIT"
	TypeDebit  Type = "DEBIT"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// IsTerminal reports whether no further transitions are legal
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Reference categories describe what a ledger row paid for
const (
	RefFundWallet     = "FUND_WALLET"
	RefBillPayment    = "BILL_PAYMENT"
	RefRentPayment    = "RENT_PAYMENT"
	RefMaintenanceFee = "MAINTENANCE_FEE"
	RefLateFee        = "LATE_FEE"
	RefCharges        = "CHARGES"
	RefMakePayment    = "MAKE_PAYMENT"
	RefReceivePayment = "RECEIVE_PAYMENT"
	RefTransfer       = "TRANSFER"
	RefWithdrawal     = "WITHDRAWAL"
	RefPayout         = "PAYOUT"
)

// JSONRawMessage handles NULL json fields from DB
type JSONRawMessage []byte

func (j *JSONRawMessage) Scan(src any) error {
	if src == nil {
		*j = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = []byte(v)
	default:
		return fmt.Errorf("unsupported type: %T", src)
	}
	return nil
}

func (j JSONRawMessage) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// Transaction is one immutable ledger row. ReferenceID correlates the row
// with gateway callbacks and is unique across the table; paired rows of a
// two-sided payment share a base reference with _OUT/_IN suffixes.
type Transaction struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         uuid.UUID       `db:"user_id" json:"user_id"`
	WalletID       uuid.NullUUID   `db:"wallet_id" json:"wallet_id,omitempty"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Currency       string          `db:"currency" json:"currency"`
	Type           Type            `db:"type" json:"type"`
	Status         Status          `db:"status" json:"status"`
	ReferenceID    string          `db:"reference_id" json:"reference_id"`
	Reference      string          `db:"reference" json:"reference"`
	PaymentGateway sql.NullString  `db:"payment_gateway" json:"payment_gateway,omitempty"`
	ProviderRef    sql.NullString  `db:"provider_ref" json:"provider_ref,omitempty"`
	Description    sql.NullString  `db:"description" json:"description,omitempty"`
	PropertyID     uuid.NullUUID   `db:"property_id" json:"property_id,omitempty"`
	BillID         uuid.NullUUID   `db:"bill_id" json:"bill_id,omitempty"`
	Metadata       JSONRawMessage  `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// Draft is the caller-supplied part of a new PENDING transaction
type Draft struct {
	UserID         uuid.UUID
	WalletID       uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Type           Type
	ReferenceID    string
	Reference      string
	PaymentGateway string
	ProviderRef    string
	Description    string
	PropertyID     uuid.UUID
	BillID         uuid.UUID
	Metadata       []byte
}
