package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/asherhq/asher-api/internal/config"
	"github.com/asherhq/asher-api/internal/domain/notification"
	"github.com/asherhq/asher-api/internal/domain/payment"
	"github.com/asherhq/asher-api/internal/domain/payout"
	"github.com/asherhq/asher-api/internal/domain/transaction"
	"github.com/asherhq/asher-api/internal/domain/transfer"
	"github.com/asherhq/asher-api/internal/domain/wallet"
	"github.com/asherhq/asher-api/internal/middleware"
	"github.com/asherhq/asher-api/internal/pkg/database"
	"github.com/asherhq/asher-api/internal/pkg/flutterwave"
	"github.com/asherhq/asher-api/internal/pkg/gateway"
	"github.com/asherhq/asher-api/internal/pkg/jwt"
	"github.com/asherhq/asher-api/internal/pkg/logger"
	"github.com/asherhq/asher-api/internal/pkg/paystack"
	"github.com/asherhq/asher-api/internal/pkg/response"
	"github.com/asherhq/asher-api/internal/pkg/storage"
	"github.com/asherhq/asher-api/internal/pkg/stripe"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Asher API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	// ---------- Payment gateways ----------
	stripeClient := stripe.NewClient(stripe.Config{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Timeout:       cfg.GatewayTimeout,
	})
	flutterwaveClient := flutterwave.NewClient(flutterwave.Config{
		SecretKey:  cfg.FlutterwaveSecretKey,
		SecretHash: cfg.FlutterwaveSecretHash,
		Timeout:    cfg.GatewayTimeout,
	})
	paystackClient := paystack.NewClient(paystack.Config{
		SecretKey: cfg.PaystackSecretKey,
		Timeout:   cfg.GatewayTimeout,
	})

	registry := gateway.NewRegistry()
	registry.Register(gateway.NewStripeAdapter(stripeClient, cfg.StripeWebhookSecret))
	registry.Register(gateway.NewFlutterwaveAdapter(flutterwaveClient, cfg.FlutterwaveSecretHash))
	registry.Register(gateway.NewPaystackAdapter(paystackClient, cfg.PaystackSecretKey))

	// ---------- Webhook audit archive ----------
	var archiver *storage.WebhookArchiver
	if cfg.AuditAccountID != "" {
		store, err := storage.NewS3Store(storage.S3Config{
			AccountID:       cfg.AuditAccountID,
			AccessKeyID:     cfg.AuditAccessKeyID,
			AccessKeySecret: cfg.AuditAccessKeySecret,
			BucketName:      cfg.AuditBucketName,
			Region:          cfg.AuditRegion,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create audit object store")
		}
		archiver = storage.NewWebhookArchiver(store)
	} else {
		log.Warn().Msg("Webhook audit archive disabled: AUDIT_ACCOUNT_ID not set")
	}

	// ---------- WebSocket hub ----------
	hub := notification.NewHub(redis)
	go hub.Run()
	defer hub.Shutdown()

	notifier := notification.NewPublisher(hub)

	// ---------- Repositories ----------
	walletRepo := wallet.NewRepository(db)
	ledgerRepo := transaction.NewRepository(db)
	tenancyRepo := transfer.NewTenancyRepository(db)
	payoutRepo := payout.NewRepository(db)

	// ---------- Services ----------
	walletService := wallet.NewService(walletRepo)
	reconcileEngine := payment.NewEngine(db, walletRepo, ledgerRepo, redis)
	paymentService := payment.NewService(walletService, ledgerRepo, registry, reconcileEngine, redis, notifier, cfg.FrontendURL)
	transferService := transfer.NewService(walletRepo, ledgerRepo, tenancyRepo, notifier)
	payoutService := payout.NewService(walletRepo, ledgerRepo, payoutRepo, stripeClient, paystackClient, notifier)

	// ---------- Handlers ----------
	walletHandler := wallet.NewHandler(walletService)
	transactionHandler := transaction.NewHandler(ledgerRepo)
	paymentHandler := payment.NewHandler(paymentService, registry, archiver, payoutService)
	transferHandler := transfer.NewHandler(transferService)
	payoutHandler := payout.NewHandler(payoutService)
	wsHandler := notification.NewHandler(hub, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)

	if cfg.PendingTxTTL > 0 {
		go runPendingSweeper(paymentService, cfg.PendingTxTTL)
	}

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress, browsers cannot set headers on WS)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(wsHandler.WebSocket)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Mount("/wallets", walletHandler.Routes(authMiddleware))
		r.Mount("/transactions", transactionHandler.Routes(authMiddleware))
		r.Mount("/payments", paymentHandler.Routes(authMiddleware))
		r.Mount("/transfers", transferHandler.Routes(authMiddleware))
		r.Mount("/payouts", payoutHandler.Routes(authMiddleware))
	})

	r.Mount("/webhooks", paymentHandler.WebhookRoutes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// runPendingSweeper periodically fails PENDING transactions that never
// received a gateway webhook. The sweep itself is idempotent, so running
// one per instance is safe.
// sweepInterval checks at half the TTL so a stale row is caught within
// one extra interval, floored to a minute to keep the query rate sane.
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func runPendingSweeper(svc *payment.Service, ttl time.Duration) {
	ticker := time.NewTicker(sweepInterval(ttl))
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		swept, err := svc.SweepStalePending(ctx, ttl)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("Stale pending sweep failed")
			continue
		}
		if swept > 0 {
			log.Info().Int64("swept", swept).Msg("Failed stale pending transactions")
		}
	}
}
