package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"o2d-backend/internal/audit"
	"o2d-backend/internal/auth"
	"o2d-backend/internal/backend"
	"o2d-backend/internal/complaint"
	"o2d-backend/internal/config"
	"o2d-backend/internal/dashboard"
	"o2d-backend/internal/database"
	"o2d-backend/internal/dispatch"
	"o2d-backend/internal/events"
	"o2d-backend/internal/feedback"
	"o2d-backend/internal/gate"
	"o2d-backend/internal/logging"
	"o2d-backend/internal/models"
	"o2d-backend/internal/orders"
	"o2d-backend/internal/report"
	"o2d-backend/internal/sheets"
	"o2d-backend/internal/snapshot"
	"o2d-backend/internal/stages"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := cfg.ValidateServer(log); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	layout, err := dispatch.LoadLayout(cfg.LayoutFile)
	if err != nil {
		log.Fatal("load sheet layout", zap.Error(err))
	}
	if cfg.LayoutFile == "" {
		layout.Sheet = cfg.FMSSheet
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres only backs the audit log and the report archive; the
	// dashboard keeps working without it.
	var db *gorm.DB
	if cfg.DatabaseDSN != "" {
		db, err = database.Open(cfg.DatabaseDSN, log)
		if err != nil {
			log.Warn("database unavailable, audit log and report archive disabled", zap.Error(err))
			db = nil
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	sheetClient := sheets.NewClient(cfg.ScriptURL, httpClient, log)

	var store snapshot.Store = snapshot.NewMemoryStore()
	if cfg.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, using in-process snapshot store", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			_ = rdb.Close()
		} else {
			defer rdb.Close()
			store = snapshot.NewRedisStore(rdb, "", 2*cfg.RefreshInterval)
		}
	}

	hub := events.NewHub(log)
	svc := snapshot.NewService(sheetClient, store, layout, log, snapshot.WithPublisher(hub))
	go svc.Run(ctx, cfg.RefreshInterval)

	var archive *report.Archive
	if db != nil {
		var objects report.ObjectStore
		if cfg.MinIOEnabled() {
			m, err := report.NewMinIOStore(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
			if err == nil {
				err = m.EnsureBucket(ctx)
			}
			if err != nil {
				log.Warn("minio unavailable, reports are archived without files", zap.Error(err))
			} else {
				objects = m
			}
		}
		archive = report.NewArchive(db, objects, log)
	}

	var gateRepo *gate.Repository
	if cfg.OracleEnabled() {
		var oracleDB *sql.DB
		oracleDB, err = gate.Open(cfg.OracleUser, cfg.OraclePassword, cfg.OracleConnStr)
		if err != nil {
			log.Warn("oracle connection not configured correctly, gate pass endpoint disabled", zap.Error(err))
		} else {
			defer oracleDB.Close()
			gateRepo = gate.NewRepository(oracleDB, log)
		}
	}

	var backendClient *backend.Client
	if cfg.BackendURL != "" {
		backendClient = backend.NewClient(cfg.BackendURL, httpClient, log)
	}

	directory := auth.NewDirectory(sheetClient, cfg.LoginSheet)
	completer := stages.NewCompleter(sheetClient, layout)
	complaints := complaint.NewRegister(sheetClient, cfg.ComplaintSheet, log)
	feedbackSrc := feedback.NewSource(sheetClient, cfg.FeedbackSheet)
	ordersSrc := orders.NewSource(sheetClient, cfg.OrdersSheet)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Error("unexpected error", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	app.Use(recover.New())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET,POST,OPTIONS",
		ExposeHeaders: "Content-Disposition, X-Report-ID",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/login", auth.LoginHandler(directory, cfg.JWTSecret, log))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler())
	protected.Get("/events", events.StreamHandler(hub))

	// Dashboard
	protected.Get("/dashboard", dashboard.SummaryHandler(svc))
	protected.Get("/dashboard/report", dashboard.ReportHandler(svc, archive, db, log))
	protected.Post("/dashboard/refresh", dashboard.RefreshHandler(svc))
	protected.Get("/reports", dashboard.ListReportsHandler(archive))
	protected.Get("/reports/:id", dashboard.GetReportHandler(archive))

	// Workflow stages
	protected.Get("/stages", stages.ListStagesHandler())
	protected.Get("/stages/supervisors", stages.SupervisorsHandler(sheetClient, cfg.LoginSheet))
	protected.Get("/stages/:stage", stages.StageRecordsHandler(svc))
	protected.Post("/stages/:stage/complete", stages.CompleteStageHandler(svc, completer, db, log))
	protected.Get("/gate-entries", stages.GateEntriesHandler(svc))
	protected.Get("/gate/pending", gate.PendingHandler(gateRepo, log))

	// ERP backend
	if backendClient != nil {
		protected.Get("/invoices/:tab", backend.InvoicesHandler(backendClient))
		protected.Get("/payments/customers", backend.PaymentCustomersHandler(backendClient))
		protected.Get("/payments/:tab", backend.PaymentsHandler(backendClient))
	} else {
		unavailable := func(c *fiber.Ctx) error {
			return fiber.NewError(fiber.StatusServiceUnavailable, "ERP backend is not configured")
		}
		protected.Get("/invoices/*", unavailable)
		protected.Get("/payments/*", unavailable)
	}

	// Sheet registers
	protected.Get("/orders", orders.ListHandler(ordersSrc))
	protected.Get("/complaints", complaint.ListHandler(complaints))
	protected.Post("/complaints", complaint.CreateHandler(complaints, db, log))
	protected.Post("/complaints/close", complaint.CloseHandler(complaints, db, log))
	protected.Get("/feedback", feedback.ListHandler(feedbackSrc))

	// Admin only
	protected.Get("/audit-logs", auth.RequireRole(models.RoleAdmin), audit.ListAuditLogsHandler(db))

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		hub.Close()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown", zap.Error(err))
		}
	}()

	log.Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal("listen", zap.Error(err))
	}
}
