package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/asc360/operator-portal/internal/auth"
	"github.com/asc360/operator-portal/internal/config"
	"github.com/asc360/operator-portal/internal/dashboard"
	"github.com/asc360/operator-portal/internal/identity"
	"github.com/asc360/operator-portal/internal/ledger"
	"github.com/asc360/operator-portal/internal/middleware"
	"github.com/asc360/operator-portal/internal/notification"
	"github.com/asc360/operator-portal/internal/payment"
	"github.com/asc360/operator-portal/internal/plan"
	"github.com/asc360/operator-portal/internal/policy"
	"github.com/asc360/operator-portal/internal/wallet"
	"github.com/asc360/operator-portal/pkg/metrics"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Logger    *slog.Logger
	Collector *metrics.Collector
}

// Services bundles the wired domain services so the caller can hand them to
// background workers.
type Services struct {
	Ledger *ledger.Service
	Wallet *wallet.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (Services, error) {
	// In-memory stores only substitute for Postgres and Redis in development.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Services{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return Services{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	// Stores; memory twins back everything in dev without Postgres.
	var (
		ledgerStore  ledger.Store
		identityRepo identity.Repository
		planRepo     plan.Repository
		policyRepo   policy.Repository
		paymentRepo  payment.Repository
	)
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		planRepo = plan.NewPostgresRepository(d.DB)
		policyRepo = policy.NewPostgresRepository(d.DB)
		paymentRepo = payment.NewPostgresRepository(d.DB)
	} else {
		ledgerStore = ledger.NewMemoryStore()
		identityRepo = identity.NewMemoryRepository()
		planRepo = plan.NewMemoryRepository()
		policyRepo = policy.NewMemoryRepository()
		paymentRepo = payment.NewMemoryRepository()
	}

	var notifier notification.Notifier
	if d.Cfg.SMTPHost != "" {
		notifier = notification.NewSMTPNotifier(d.Cfg, d.Logger)
	} else {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	identitySvc := identity.NewService(identityRepo)
	ledgerSvc := ledger.NewService(ledgerStore, ledger.Config{
		OverdraftLimit: d.Cfg.OverdraftLimit,
		NumberPrefix:   d.Cfg.NumberPrefix,
		Currency:       d.Cfg.Currency,
	}, d.Logger, d.Collector)
	walletSvc := wallet.NewService(ledgerSvc, identitySvc, notifier, d.Cfg.OpeningBalance, d.Cfg.Currency, d.Logger)
	policySvc := policy.NewService(policyRepo, planRepo, paymentRepo, ledgerSvc, identitySvc,
		d.Cfg.NumberPrefix, d.Cfg.Currency, d.Logger)
	dashboardSvc := dashboard.NewService(policySvc, paymentRepo, planRepo, ledgerSvc)

	tokens := auth.NewService(d.Cfg)
	authHandler := auth.NewHandler(identitySvc, tokens, walletSvc)
	walletHandler := wallet.NewHandler(walletSvc)
	planHandler := plan.NewHandler(planRepo)
	policyHandler := policy.NewHandler(policySvc)
	paymentHandler := payment.NewHandler(paymentRepo)
	dashboardHandler := dashboard.NewHandler(dashboardSvc)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit)
	RegisterAuthRoutes(api, authHandler, rateLimiter)

	protected := api.Group("", middleware.JWTAuth(tokens))
	RegisterProfileRoutes(protected, authHandler)
	RegisterWalletRoutes(protected, walletHandler)
	RegisterPlanRoutes(protected, planHandler)
	RegisterPolicyRoutes(protected, policyHandler)
	RegisterPaymentRoutes(protected, paymentHandler)
	RegisterDashboardRoutes(protected, dashboardHandler)

	return Services{Ledger: ledgerSvc, Wallet: walletSvc}, nil
}
