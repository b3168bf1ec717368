package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// GetOrCreate returns the user's wallet in the given currency, lazily
// creating it. A user's first wallet is created active; wallets in other
// currencies start inactive until the user switches to them.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID, currency string) (*Wallet, error) {
	w, err := s.repo.GetOrCreate(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Wallet, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Wallet, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Balance returns the user's wallet in the given currency, or the active
// wallet when no currency is specified.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID, currency string) (*Wallet, error) {
	if currency != "" {
		return s.repo.GetByUserAndCurrency(ctx, userID, currency)
	}
	return s.repo.GetActiveByUser(ctx, userID)
}

// Activate marks a wallet usable for payments and deactivates the user's
// other wallets. Only the owner can activate their wallet.
func (s *Service) Activate(ctx context.Context, userID, walletID uuid.UUID) (*Wallet, error) {
	w, err := s.repo.GetByID(ctx, walletID)
	if err != nil {
		return nil, err
	}
	if w.UserID != userID {
		return nil, ErrWalletNotFound
	}

	if err := s.repo.Activate(ctx, userID, walletID); err != nil {
		return nil, err
	}

	log.Info().
		Str("wallet_id", walletID.String()).
		Str("user_id", userID.String()).
		Str("currency", w.Currency).
		Msg("Wallet activated")

	w.IsActive = true
	return w, nil
}

// Credit applies a positive delta to a wallet balance
func (s *Service) Credit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.repo.ApplyDelta(ctx, walletID, amount)
}

// Debit applies a negative delta to a wallet balance. Fails with
// ErrInsufficientFunds when the balance would go below zero.
func (s *Service) Debit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return s.repo.ApplyDelta(ctx, walletID, amount.Neg())
}
