package payout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/asherhq/asher-api/internal/domain/payment"
	"github.com/asherhq/asher-api/internal/domain/transaction"
	"github.com/asherhq/asher-api/internal/domain/wallet"
	"github.com/asherhq/asher-api/internal/pkg/gateway"
	"github.com/asherhq/asher-api/internal/pkg/money"
	"github.com/asherhq/asher-api/internal/pkg/paystack"
	"github.com/asherhq/asher-api/internal/pkg/stripe"
)

// Service debits a wallet up front and moves the funds out through a
// provider transfer. NGN withdrawals go through Paystack, GBP and USD
// through Stripe. A failed provider call refunds the wallet.
type Service struct {
	wallets  *wallet.Repository
	ledger   *transaction.Repository
	repo     *Repository
	stripe   *stripe.Client
	paystack *paystack.Client
	notifier payment.Notifier
}

func NewService(wallets *wallet.Repository, ledger *transaction.Repository, repo *Repository, stripeClient *stripe.Client, paystackClient *paystack.Client, notifier payment.Notifier) *Service {
	return &Service{
		wallets:  wallets,
		ledger:   ledger,
		repo:     repo,
		stripe:   stripeClient,
		paystack: paystackClient,
		notifier: notifier,
	}
}

// Request describes a withdrawal. Destination is the Stripe external
// account token or a Paystack recipient code; for Paystack the recipient
// can instead be created from the bank account fields.
type Request struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	Currency      string
	Destination   string
	AccountNumber string
	BankCode      string
	AccountName   string
}

// RequestPayout debits the wallet and initiates the provider transfer.
// The debit, the WITHDRAWAL ledger row and the payout record commit
// together before any network call, so a crash mid-flight leaves an
// auditable PENDING payout rather than missing money.
func (s *Service) RequestPayout(ctx context.Context, req Request) (*Payout, error) {
	gatewayName, ok := gateway.SelectForPayout(req.Currency)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, req.Currency)
	}
	if !req.Amount.IsPositive() {
		return nil, wallet.ErrInvalidAmount
	}

	// The balance guard inside the debit is the only gate: funds on a
	// wallet stay withdrawable whether or not it is the user's current
	// default wallet.
	w, err := s.wallets.GetByUserAndCurrency(ctx, req.UserID, req.Currency)
	if err != nil {
		return nil, err
	}

	reference := transaction.GenerateReference(transaction.RefPayout)
	p := &Payout{
		ID:          uuid.New(),
		UserID:      req.UserID,
		WalletID:    w.ID,
		Reference:   reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      StatusPending,
		Gateway:     gatewayName,
		Destination: req.Destination,
	}

	if err := s.debitAndRecord(ctx, w, p); err != nil {
		return nil, err
	}

	providerID, status, err := s.initiateProviderTransfer(ctx, p, req)
	if err != nil {
		log.Warn().Err(err).Str("reference", reference).Str("gateway", gatewayName).Msg("Provider transfer failed, refunding wallet")
		if rerr := s.failAndRefund(ctx, p.ID, err.Error()); rerr != nil {
			// The wallet keeps the debit until the refund is retried
			// manually; this must be loud.
			log.Error().Err(rerr).Str("payout_id", p.ID.String()).Msg("Refund after failed payout did not apply")
			return nil, rerr
		}
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}

	if providerID != "" {
		if err := s.repo.SetProviderPayoutID(ctx, p.ID, providerID); err != nil {
			log.Error().Err(err).Str("payout_id", p.ID.String()).Msg("Failed to record provider payout id")
		}
	}
	advanced, err := s.repo.Advance(ctx, p.ID, status, "")
	if err != nil && !errors.Is(err, ErrAlreadyTerminal) {
		return nil, err
	}

	log.Info().
		Str("reference", reference).
		Str("gateway", gatewayName).
		Str("amount", req.Amount.String()).
		Str("currency", req.Currency).
		Str("status", string(advanced.Status)).
		Msg("Payout initiated")

	return advanced, nil
}

func (s *Service) Get(ctx context.Context, userID, payoutID uuid.UUID) (*Payout, error) {
	p, err := s.repo.GetByID(ctx, payoutID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Payout, error) {
	return s.repo.ListByUser(ctx, userID)
}

// HandleProviderEvent advances a payout from a provider callback
// (Stripe payout.paid / payout.failed, Paystack transfer.success /
// transfer.failed). Unknown payouts and replays are acknowledged no-ops.
func (s *Service) HandleProviderEvent(ctx context.Context, event gateway.Event) error {
	p, err := s.lookup(ctx, event)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Info().Str("gateway", event.Gateway).Str("provider_ref", event.ProviderRef).Msg("Discarding payout event with unknown payout")
			return nil
		}
		return err
	}

	switch event.Status {
	case gateway.StatusSucceeded:
		advanced, err := s.repo.Advance(ctx, p.ID, StatusPaid, "")
		if err != nil {
			if errors.Is(err, ErrAlreadyTerminal) {
				return nil
			}
			return err
		}
		log.Info().Str("reference", advanced.Reference).Msg("Payout paid")
		s.notify(ctx, advanced, payment.EventPaymentSucceeded)
		return nil

	case gateway.StatusFailed:
		if err := s.failAndRefund(ctx, p.ID, "provider reported failure"); err != nil {
			return err
		}
		return nil

	default:
		return nil
	}
}

func (s *Service) lookup(ctx context.Context, event gateway.Event) (*Payout, error) {
	if event.ProviderRef != "" {
		p, err := s.repo.GetByProviderPayoutID(ctx, event.ProviderRef)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return p, err
		}
	}
	if event.Reference != "" {
		return s.repo.GetByReference(ctx, event.Reference)
	}
	return nil, ErrNotFound
}

// debitAndRecord performs the atomic up-front leg: wallet debit, completed
// WITHDRAWAL ledger row, PENDING payout record
func (s *Service) debitAndRecord(ctx context.Context, w *wallet.Wallet, p *Payout) error {
	tx, err := s.wallets.DB().BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.wallets.LockTx(ctx, tx, w.ID); err != nil {
		return err
	}
	if err := s.wallets.ApplyDeltaTx(ctx, tx, w.ID, p.Amount.Neg()); err != nil {
		return err
	}

	row, err := s.ledger.CreateTx(ctx, tx, transaction.Draft{
		UserID:         p.UserID,
		WalletID:       w.ID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Type:           transaction.TypeDebit,
		ReferenceID:    p.Reference,
		Reference:      transaction.RefWithdrawal,
		PaymentGateway: p.Gateway,
		Description:    "Wallet withdrawal",
	})
	if err != nil {
		return err
	}
	if _, err := s.ledger.TransitionToTx(ctx, tx, row.ID, transaction.StatusCompleted, nil); err != nil {
		return err
	}

	if err := s.repo.CreateTx(ctx, tx, p); err != nil {
		return err
	}

	return tx.Commit()
}

// failAndRefund marks the payout FAILED and returns the funds. Idempotent:
// a payout already terminal refunds nothing.
func (s *Service) failAndRefund(ctx context.Context, payoutID uuid.UUID, reason string) error {
	tx, err := s.wallets.DB().BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	p, err := s.repo.AdvanceTx(ctx, tx, payoutID, StatusFailed, reason)
	if err != nil {
		if errors.Is(err, ErrAlreadyTerminal) {
			return nil
		}
		return err
	}

	if err := s.wallets.ApplyDeltaTx(ctx, tx, p.WalletID, p.Amount); err != nil {
		return err
	}

	// The refund row uses a dash suffix so it never joins the payout's
	// correlation set.
	row, err := s.ledger.CreateTx(ctx, tx, transaction.Draft{
		UserID:         p.UserID,
		WalletID:       p.WalletID,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Type:           transaction.TypeCredit,
		ReferenceID:    p.Reference + "-REFUND",
		Reference:      transaction.RefPayout,
		PaymentGateway: p.Gateway,
		Description:    "Payout refund",
	})
	if err != nil {
		return err
	}
	if _, err := s.ledger.TransitionToTx(ctx, tx, row.ID, transaction.StatusCompleted, nil); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Info().Str("reference", p.Reference).Str("reason", reason).Msg("Payout failed and refunded")
	s.notify(ctx, p, payment.EventPaymentFailed)
	return nil
}

func (s *Service) initiateProviderTransfer(ctx context.Context, p *Payout, req Request) (string, Status, error) {
	subunits := money.ToSubunits(p.Amount, p.Currency)

	switch p.Gateway {
	case gateway.Stripe:
		out, err := s.stripe.CreatePayout(ctx, subunits, p.Currency, req.Destination, "Wallet withdrawal", map[string]string{
			"reference": p.Reference,
		})
		if err != nil {
			return "", StatusFailed, err
		}
		status := StatusInTransit
		if out.Status == "paid" {
			status = StatusPaid
		}
		return out.ID, status, nil

	case gateway.Paystack:
		recipient := req.Destination
		if recipient == "" {
			created, err := s.paystack.CreateTransferRecipient(ctx, req.AccountName, req.AccountNumber, req.BankCode, p.Currency)
			if err != nil {
				return "", StatusFailed, err
			}
			recipient = created.Data.RecipientCode
		}
		out, err := s.paystack.InitiateTransfer(ctx, recipient, p.Reference, subunits, "Wallet withdrawal")
		if err != nil {
			return "", StatusFailed, err
		}
		status := StatusInTransit
		if out.Data.Status == "success" {
			status = StatusPaid
		}
		return out.Data.TransferCode, status, nil

	default:
		return "", StatusFailed, fmt.Errorf("%w: %s", ErrUnsupportedCurrency, p.Currency)
	}
}

func (s *Service) notify(ctx context.Context, p *Payout, event string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, p.UserID, event, p)
}
