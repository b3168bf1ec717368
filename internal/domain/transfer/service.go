package transfer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/asherhq/asher-api/internal/domain/payment"
	"github.com/asherhq/asher-api/internal/domain/transaction"
	"github.com/asherhq/asher-api/internal/domain/wallet"
)

// Service moves funds between two wallets with no external gateway in the
// loop. Debit, credit and both ledger rows commit as one unit.
type Service struct {
	wallets   *wallet.Repository
	ledger    *transaction.Repository
	tenancies *TenancyRepository
	notifier  payment.Notifier
}

func NewService(wallets *wallet.Repository, ledger *transaction.Repository, tenancies *TenancyRepository, notifier payment.Notifier) *Service {
	return &Service{
		wallets:   wallets,
		ledger:    ledger,
		tenancies: tenancies,
		notifier:  notifier,
	}
}

// Result reports both sides of a completed internal movement
type Result struct {
	Reference string                   `json:"reference"`
	Debit     *transaction.Transaction `json:"debit"`
	Credit    *transaction.Transaction `json:"credit"`
}

// Transfer sends funds from one user's wallet to another's in the same
// currency, creating the receiver's wallet if needed
func (s *Service) Transfer(ctx context.Context, senderID, receiverID uuid.UUID, amount decimal.Decimal, currency string) (*Result, error) {
	if senderID == receiverID {
		return nil, ErrSameUser
	}
	if !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}

	sender, err := s.wallets.GetByUserAndCurrency(ctx, senderID, currency)
	if err != nil {
		return nil, err
	}
	receiver, err := s.wallets.GetOrCreate(ctx, receiverID, currency)
	if err != nil {
		return nil, err
	}

	// Advisory early check; the atomic guard in the debit is authoritative.
	if err := s.wallets.EnsureSufficientBalance(ctx, sender.ID, amount); err != nil {
		return nil, err
	}

	result, err := s.movePair(ctx, movement{
		base:           transaction.GenerateReference("TRF"),
		amount:         amount,
		currency:       currency,
		debitWallet:    sender,
		creditWallet:   receiver,
		debitCategory:  transaction.RefTransfer,
		creditCategory: transaction.RefTransfer,
		description:    "Wallet transfer",
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("reference", result.Reference).
		Str("sender", senderID.String()).
		Str("receiver", receiverID.String()).
		Str("amount", amount.String()).
		Str("currency", currency).
		Msg("Transfer completed")

	s.notify(ctx, result)
	return result, nil
}

// PayBill pays a tenant's bill into their landlord's wallet. The landlord
// must already hold a wallet in the bill's currency; a missing wallet is a
// CurrencyMismatch and nothing moves. That rule is deliberate: landlords
// opt in to each settlement currency. billType categorizes the debit side
// of the ledger pair; empty means a generic bill payment.
func (s *Service) PayBill(ctx context.Context, tenantID uuid.UUID, billRef string, amount decimal.Decimal, currency, billType string) (*Result, error) {
	if !amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}
	if billType == "" {
		billType = transaction.RefBillPayment
	}

	tenancy, err := s.tenancies.GetActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	tenantWallet, err := s.wallets.GetByUserAndCurrency(ctx, tenantID, currency)
	if err != nil {
		return nil, err
	}
	landlordWallet, err := s.wallets.GetByUserAndCurrency(ctx, tenancy.LandlordUserID, currency)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return nil, ErrCurrencyMismatch
		}
		return nil, err
	}

	if err := s.wallets.EnsureSufficientBalance(ctx, tenantWallet.ID, amount); err != nil {
		return nil, err
	}

	metadata, _ := json.Marshal(map[string]string{"bill_ref": billRef})
	result, err := s.movePair(ctx, movement{
		base:           transaction.GenerateReference("BILL"),
		amount:         amount,
		currency:       currency,
		debitWallet:    tenantWallet,
		creditWallet:   landlordWallet,
		debitCategory:  billType,
		creditCategory: transaction.RefReceivePayment,
		description:    "Bill payment " + billRef,
		metadata:       metadata,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("reference", result.Reference).
		Str("tenant", tenantID.String()).
		Str("landlord", tenancy.LandlordUserID.String()).
		Str("bill_ref", billRef).
		Str("amount", amount.String()).
		Msg("Bill paid")

	s.notify(ctx, result)
	return result, nil
}

type movement struct {
	base           string
	amount         decimal.Decimal
	currency       string
	debitWallet    *wallet.Wallet
	creditWallet   *wallet.Wallet
	debitCategory  string
	creditCategory string
	description    string
	metadata       []byte
}

// movePair writes both ledger rows and both balance deltas in one database
// transaction. Wallets are locked in a fixed order so two opposing
// transfers cannot deadlock.
func (s *Service) movePair(ctx context.Context, m movement) (*Result, error) {
	tx, err := s.wallets.DB().BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	first, second := m.debitWallet.ID, m.creditWallet.ID
	if strings.Compare(first.String(), second.String()) > 0 {
		first, second = second, first
	}
	if _, err := s.wallets.LockTx(ctx, tx, first); err != nil {
		return nil, err
	}
	if _, err := s.wallets.LockTx(ctx, tx, second); err != nil {
		return nil, err
	}

	debitDraft := transaction.Draft{
		UserID:      m.debitWallet.UserID,
		WalletID:    m.debitWallet.ID,
		Amount:      m.amount,
		Currency:    m.currency,
		Type:        transaction.TypeDebit,
		ReferenceID: m.base + "_OUT",
		Reference:   m.debitCategory,
		Description: m.description,
		Metadata:    m.metadata,
	}
	creditDraft := transaction.Draft{
		UserID:      m.creditWallet.UserID,
		WalletID:    m.creditWallet.ID,
		Amount:      m.amount,
		Currency:    m.currency,
		Type:        transaction.TypeCredit,
		ReferenceID: m.base + "_IN",
		Reference:   m.creditCategory,
		Description: m.description,
		Metadata:    m.metadata,
	}

	debitRow, err := s.ledger.CreateTx(ctx, tx, debitDraft)
	if err != nil {
		return nil, err
	}
	creditRow, err := s.ledger.CreateTx(ctx, tx, creditDraft)
	if err != nil {
		return nil, err
	}

	if err := s.wallets.ApplyDeltaTx(ctx, tx, m.debitWallet.ID, m.amount.Neg()); err != nil {
		return nil, err
	}
	if err := s.wallets.ApplyDeltaTx(ctx, tx, m.creditWallet.ID, m.amount); err != nil {
		return nil, err
	}

	completedDebit, err := s.ledger.TransitionToTx(ctx, tx, debitRow.ID, transaction.StatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	completedCredit, err := s.ledger.TransitionToTx(ctx, tx, creditRow.ID, transaction.StatusCompleted, nil)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &Result{
		Reference: m.base,
		Debit:     completedDebit,
		Credit:    completedCredit,
	}, nil
}

func (s *Service) notify(ctx context.Context, result *Result) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, result.Debit.UserID, payment.EventPaymentSucceeded, result.Debit)
	s.notifier.Notify(ctx, result.Credit.UserID, payment.EventPaymentSucceeded, result.Credit)
}
