package payment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/asherhq/asher-api/internal/domain/transaction"
	"github.com/asherhq/asher-api/internal/domain/wallet"
	"github.com/asherhq/asher-api/internal/pkg/gateway"
)

// Engine reconciles gateway events against the ledger. It makes no
// network calls; everything it touches is the wallet store and the
// transaction ledger inside one database transaction.
type Engine struct {
	db      *sqlx.DB
	wallets *wallet.Repository
	ledger  *transaction.Repository
	redis   *redis.Client
}

func NewEngine(db *sqlx.DB, wallets *wallet.Repository, ledger *transaction.Repository, rdb *redis.Client) *Engine {
	return &Engine{
		db:      db,
		wallets: wallets,
		ledger:  ledger,
		redis:   rdb,
	}
}

// Outcome reports what a reconciliation pass did
type Outcome struct {
	Reference    string                    `json:"reference"`
	Applied      bool                      `json:"applied"`
	Status       transaction.Status        `json:"status,omitempty"`
	Transactions []transaction.Transaction `json:"transactions,omitempty"`
}

// reconcileDoneTTL bounds the redis fast-path markers. The markers are a
// cache; the status guard in the ledger is the correctness mechanism.
const reconcileDoneTTL = 24 * time.Hour

// baseReference strips the pair suffixes so both sides of a two-sided
// payment reconcile under one correlation key
func baseReference(ref string) string {
	ref = strings.TrimSuffix(ref, "_OUT")
	ref = strings.TrimSuffix(ref, "_IN")
	return ref
}

// Handle applies one normalized gateway event to the ledger. Unknown
// references and replays resolve to no-op outcomes without error so
// webhook handlers can always acknowledge; anomalies return ErrAnomaly
// with nothing mutated.
func (e *Engine) Handle(ctx context.Context, event gateway.Event) (*Outcome, error) {
	ref := baseReference(event.Reference)

	// Stripe payment-intent events may carry no platform reference;
	// correlate through the stored provider ref instead.
	if ref == "" && event.ProviderRef != "" {
		t, err := e.ledger.GetByProviderRef(ctx, event.ProviderRef)
		if err != nil {
			if errors.Is(err, transaction.ErrNotFound) {
				log.Info().
					Str("gateway", event.Gateway).
					Str("provider_ref", event.ProviderRef).
					Msg("Discarding event with unknown provider ref")
				return &Outcome{Applied: false}, nil
			}
			return nil, err
		}
		ref = baseReference(t.ReferenceID)
	}
	if ref == "" {
		log.Info().Str("gateway", event.Gateway).Str("type", event.Type).Msg("Discarding event without reference")
		return &Outcome{Applied: false}, nil
	}

	if e.alreadyReconciled(ctx, ref) {
		return &Outcome{Reference: ref, Applied: false}, nil
	}

	if event.Status == gateway.StatusPending {
		// Nothing to transition yet; a later event or manual verify
		// resolves the row.
		return &Outcome{Reference: ref, Applied: false, Status: transaction.StatusPending}, nil
	}

	target := transaction.StatusCompleted
	if event.Status == gateway.StatusFailed {
		target = transaction.StatusFailed
	}

	outcome, err := e.reconcile(ctx, ref, target, event)
	if err != nil {
		return nil, err
	}
	if outcome.Applied && outcome.Status.IsTerminal() {
		e.markReconciled(ctx, ref)
	}
	return outcome, nil
}

func (e *Engine) reconcile(ctx context.Context, ref string, target transaction.Status, event gateway.Event) (*Outcome, error) {
	tx, err := e.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Row locks serialize concurrent deliveries for the same reference;
	// the loser re-reads terminal rows and no-ops.
	rows, err := e.ledger.ListByCorrelationTx(ctx, tx, ref)
	if err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		log.Info().
			Str("gateway", event.Gateway).
			Str("reference", ref).
			Msg("Discarding event with unknown reference")
		return &Outcome{Reference: ref, Applied: false}, nil

	case 1:
		return e.reconcileSingle(ctx, tx, rows[0], target, event)

	case 2:
		return e.reconcilePair(ctx, tx, rows, target, event)

	default:
		log.Error().
			Str("reference", ref).
			Int("count", len(rows)).
			Msg("Reconciliation anomaly: more than two transactions share a reference")
		return nil, fmt.Errorf("%w: %d rows share reference %s", ErrAnomaly, len(rows), ref)
	}
}

func (e *Engine) reconcileSingle(ctx context.Context, tx *sqlx.Tx, row transaction.Transaction, target transaction.Status, event gateway.Event) (*Outcome, error) {
	if row.Status.IsTerminal() {
		return &Outcome{
			Reference:    baseReference(row.ReferenceID),
			Applied:      false,
			Status:       row.Status,
			Transactions: []transaction.Transaction{row},
		}, nil
	}

	updated, err := e.ledger.TransitionToTx(ctx, tx, row.ID, target, reconcilePatch(event))
	if err != nil {
		if errors.Is(err, transaction.ErrAlreadyTerminal) {
			return &Outcome{Reference: baseReference(row.ReferenceID), Applied: false, Status: updated.Status}, nil
		}
		return nil, err
	}

	if target == transaction.StatusCompleted {
		if err := e.applyRowDelta(ctx, tx, *updated); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("reference", updated.ReferenceID).
		Str("gateway", event.Gateway).
		Str("status", string(updated.Status)).
		Str("amount", updated.Amount.String()).
		Msg("Transaction reconciled")

	return &Outcome{
		Reference:    baseReference(updated.ReferenceID),
		Applied:      true,
		Status:       updated.Status,
		Transactions: []transaction.Transaction{*updated},
	}, nil
}

func (e *Engine) reconcilePair(ctx context.Context, tx *sqlx.Tx, rows []transaction.Transaction, target transaction.Status, event gateway.Event) (*Outcome, error) {
	ref := baseReference(rows[0].ReferenceID)

	if rows[0].Status.IsTerminal() && rows[1].Status.IsTerminal() {
		return &Outcome{Reference: ref, Applied: false, Status: rows[0].Status, Transactions: rows}, nil
	}

	// Fail closed on anything but one pending DEBIT and one pending
	// CREDIT. A half-terminal pair means an earlier partial apply, which
	// this engine never produces; treat it as data corruption.
	var debit, credit *transaction.Transaction
	for i := range rows {
		if rows[i].Status.IsTerminal() {
			log.Error().Str("reference", ref).Msg("Reconciliation anomaly: half-terminal transaction pair")
			return nil, fmt.Errorf("%w: half-terminal pair for reference %s", ErrAnomaly, ref)
		}
		switch rows[i].Type {
		case transaction.TypeDebit:
			debit = &rows[i]
		case transaction.TypeCredit:
			credit = &rows[i]
		}
	}
	if debit == nil || credit == nil {
		log.Error().Str("reference", ref).Msg("Reconciliation anomaly: transaction pair is not one DEBIT plus one CREDIT")
		return nil, fmt.Errorf("%w: non-complementary pair for reference %s", ErrAnomaly, ref)
	}

	patch := reconcilePatch(event)
	updatedDebit, err := e.ledger.TransitionToTx(ctx, tx, debit.ID, target, patch)
	if err != nil {
		return nil, err
	}
	updatedCredit, err := e.ledger.TransitionToTx(ctx, tx, credit.ID, target, patch)
	if err != nil {
		return nil, err
	}

	if target == transaction.StatusCompleted {
		if err := e.applyRowDelta(ctx, tx, *updatedDebit); err != nil {
			return nil, err
		}
		if err := e.applyRowDelta(ctx, tx, *updatedCredit); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("reference", ref).
		Str("status", string(target)).
		Str("amount", updatedDebit.Amount.String()).
		Msg("Two-sided payment reconciled")

	return &Outcome{
		Reference:    ref,
		Applied:      true,
		Status:       target,
		Transactions: []transaction.Transaction{*updatedDebit, *updatedCredit},
	}, nil
}

// applyRowDelta writes the signed balance change for one completed row.
// CREDIT adds, DEBIT subtracts; the wallet guard rejects debits past zero
// and aborts the whole reconciliation transaction.
func (e *Engine) applyRowDelta(ctx context.Context, tx *sqlx.Tx, row transaction.Transaction) error {
	if !row.WalletID.Valid {
		return fmt.Errorf("transaction %s has no wallet to apply", row.ID)
	}

	delta := row.Amount
	if row.Type == transaction.TypeDebit {
		delta = delta.Neg()
	}
	if delta.Equal(decimal.Zero) {
		return nil
	}
	return e.wallets.ApplyDeltaTx(ctx, tx, row.WalletID.UUID, delta)
}

func reconcilePatch(event gateway.Event) []byte {
	patch := map[string]string{
		"provider_status": event.Status,
		"provider_event":  event.Type,
	}
	if event.ProviderRef != "" {
		patch["provider_ref"] = event.ProviderRef
	}
	buf, _ := json.Marshal(patch)
	return buf
}

func (e *Engine) alreadyReconciled(ctx context.Context, ref string) bool {
	if e.redis == nil {
		return false
	}
	n, err := e.redis.Exists(ctx, "recon:done:"+ref).Result()
	return err == nil && n > 0
}

func (e *Engine) markReconciled(ctx context.Context, ref string) {
	if e.redis == nil {
		return
	}
	if err := e.redis.Set(ctx, "recon:done:"+ref, "1", reconcileDoneTTL).Err(); err != nil {
		log.Warn().Err(err).Str("reference", ref).Msg("Failed to set reconciliation marker")
	}
}
