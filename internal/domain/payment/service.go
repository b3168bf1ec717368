package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/asherhq/asher-api/internal/domain/transaction"
	"github.com/asherhq/asher-api/internal/domain/wallet"
	"github.com/asherhq/asher-api/internal/pkg/gateway"
)

// Notifier pushes realtime payment events to the paying user. The
// implementation lives in the notification hub; a nil Notifier disables
// pushes.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{})
}

// Notification event names
const (
	EventPaymentSucceeded = "payment_success"
	EventPaymentFailed    = "payment_failed"
)

const idempotencyTTL = 24 * time.Hour

type Service struct {
	wallets     *wallet.Service
	ledger      *transaction.Repository
	registry    *gateway.Registry
	engine      *Engine
	redis       *redis.Client
	notifier    Notifier
	frontendURL string
}

func NewService(wallets *wallet.Service, ledger *transaction.Repository, registry *gateway.Registry, engine *Engine, rdb *redis.Client, notifier Notifier, frontendURL string) *Service {
	return &Service{
		wallets:     wallets,
		ledger:      ledger,
		registry:    registry,
		engine:      engine,
		redis:       rdb,
		notifier:    notifier,
		frontendURL: frontendURL,
	}
}

// FundRequest starts a wallet top-up through an external gateway
type FundRequest struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	Gateway        string // optional; selected by country when empty
	CountryCode    string
	Email          string
	Name           string
	IdempotencyKey string
}

// FundResult is returned to the client to complete the payment
type FundResult struct {
	Transaction  *transaction.Transaction `json:"transaction"`
	PaymentURL   string                   `json:"payment_url,omitempty"`
	ClientSecret string                   `json:"client_secret,omitempty"`
}

// FundWallet creates a PENDING CREDIT ledger row and initiates the payment
// with the selected gateway. The row is written before the provider call,
// so an initiation timeout leaves a PENDING transaction a later webhook or
// manual verify can still resolve.
func (s *Service) FundWallet(ctx context.Context, req FundRequest) (*FundResult, error) {
	if cached := s.cachedResult(ctx, req); cached != nil {
		return cached, nil
	}

	gatewayName := req.Gateway
	if gatewayName == "" {
		gatewayName = gateway.SelectByCountry(req.CountryCode)
	}
	adapter, err := s.registry.Get(gatewayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGateway, gatewayName)
	}

	w, err := s.wallets.GetOrCreate(ctx, req.UserID, req.Currency)
	if err != nil {
		return nil, err
	}

	reference := transaction.GenerateReference(transaction.RefFundWallet)
	row, err := s.ledger.Create(ctx, transaction.Draft{
		UserID:         req.UserID,
		WalletID:       w.ID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Type:           transaction.TypeCredit,
		ReferenceID:    reference,
		Reference:      transaction.RefFundWallet,
		PaymentGateway: gatewayName,
		Description:    "Wallet funding",
	})
	if err != nil {
		return nil, err
	}

	initiated, err := adapter.Initiate(ctx, gateway.InitiateRequest{
		Reference:   reference,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Email:       req.Email,
		Name:        req.Name,
		Description: "Wallet funding",
		RedirectURL: s.frontendURL + "/payments/callback",
		CancelURL:   s.frontendURL + "/payments/cancelled",
	})
	if err != nil {
		if isTimeout(err) {
			// Ambiguous outcome: the provider may have registered the
			// payment. Keep the row PENDING for webhook or manual verify.
			log.Warn().Err(err).Str("reference", reference).Str("gateway", gatewayName).Msg("Gateway initiation timed out, transaction left pending")
			return nil, fmt.Errorf("%w: %s timed out", ErrGatewayUnavailable, gatewayName)
		}
		if _, terr := s.ledger.TransitionTo(ctx, row.ID, transaction.StatusFailed, []byte(`{"failure":"initiation_rejected"}`)); terr != nil {
			log.Error().Err(terr).Str("reference", reference).Msg("Failed to mark rejected initiation")
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if initiated.ProviderRef != "" {
		if err := s.ledger.SetProviderRef(ctx, row.ID, initiated.ProviderRef); err != nil {
			log.Error().Err(err).Str("reference", reference).Msg("Failed to record provider ref")
		}
	}

	result := &FundResult{
		Transaction:  row,
		PaymentURL:   initiated.PaymentURL,
		ClientSecret: initiated.ClientSecret,
	}
	s.cacheResult(ctx, req, result)

	log.Info().
		Str("reference", reference).
		Str("gateway", gatewayName).
		Str("amount", req.Amount.String()).
		Str("currency", req.Currency).
		Msg("Wallet funding initiated")

	return result, nil
}

// VerifyPayment actively polls the gateway for a transaction's state and
// feeds the result through the reconciliation engine. Used when no webhook
// has arrived.
func (s *Service) VerifyPayment(ctx context.Context, reference string) (*Outcome, error) {
	row, err := s.ledger.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !row.PaymentGateway.Valid {
		return nil, fmt.Errorf("%w: transaction has no gateway", ErrUnsupportedGateway)
	}

	adapter, err := s.registry.Get(row.PaymentGateway.String)
	if err != nil {
		return nil, err
	}

	// Stripe looks up by its own object id; the others take the platform
	// reference.
	verifyRef := row.ReferenceID
	if row.PaymentGateway.String == gateway.Stripe {
		if !row.ProviderRef.Valid {
			return nil, fmt.Errorf("%w: stripe transaction has no provider ref", ErrUnknownReference)
		}
		verifyRef = row.ProviderRef.String
	}

	event, err := adapter.Verify(ctx, verifyRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if event.Reference == "" {
		event.Reference = row.ReferenceID
	}

	outcome, err := s.engine.Handle(ctx, *event)
	if err != nil {
		return nil, err
	}
	s.notifyOutcome(ctx, outcome)
	return outcome, nil
}

// HandleWebhookEvent runs a parsed webhook through the engine and pushes
// user notifications for applied outcomes
func (s *Service) HandleWebhookEvent(ctx context.Context, event gateway.Event) (*Outcome, error) {
	outcome, err := s.engine.Handle(ctx, event)
	if err != nil {
		return nil, err
	}
	s.notifyOutcome(ctx, outcome)
	return outcome, nil
}

// SweepStalePending fails PENDING rows older than the ttl
func (s *Service) SweepStalePending(ctx context.Context, ttl time.Duration) (int64, error) {
	swept, err := s.ledger.SweepStalePending(ctx, ttl)
	if err != nil {
		return 0, err
	}
	if swept > 0 {
		log.Info().Int64("count", swept).Dur("ttl", ttl).Msg("Swept stale pending transactions")
	}
	return swept, nil
}

func (s *Service) notifyOutcome(ctx context.Context, outcome *Outcome) {
	if s.notifier == nil || outcome == nil || !outcome.Applied {
		return
	}

	event := EventPaymentSucceeded
	if outcome.Status == transaction.StatusFailed {
		event = EventPaymentFailed
	}
	for _, t := range outcome.Transactions {
		s.notifier.Notify(ctx, t.UserID, event, t)
	}
}

func (s *Service) idempotencyKey(req FundRequest) string {
	return "payment:idem:" + req.UserID.String() + ":" + req.IdempotencyKey
}

func (s *Service) cachedResult(ctx context.Context, req FundRequest) *FundResult {
	if s.redis == nil || req.IdempotencyKey == "" {
		return nil
	}
	raw, err := s.redis.Get(ctx, s.idempotencyKey(req)).Bytes()
	if err != nil {
		return nil
	}
	var result FundResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return &result
}

func (s *Service) cacheResult(ctx context.Context, req FundRequest, result *FundResult) {
	if s.redis == nil || req.IdempotencyKey == "" {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, s.idempotencyKey(req), raw, idempotencyTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("Failed to cache idempotent funding result")
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
