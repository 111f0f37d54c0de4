package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/errandsexpress/backend/internal/auth"
	"github.com/errandsexpress/backend/internal/config"
	"github.com/errandsexpress/backend/internal/db"
	"github.com/errandsexpress/backend/internal/handlers"
	"github.com/errandsexpress/backend/internal/reminders"
	"github.com/errandsexpress/backend/internal/repository"
	"github.com/errandsexpress/backend/internal/router"
	"github.com/errandsexpress/backend/internal/services"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.Info("Connected to PostgreSQL database successfully!")

	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		slog.Error("Schema migrations failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Schema migrations applied")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	postRepo := repository.NewPostRepo(pool)
	txnRepo := repository.NewTransactionRepo(pool)
	balanceRepo := repository.NewBalanceRepo(pool)
	entryRepo := repository.NewEntryRepo(pool)

	// Auth
	authSvc := auth.NewService(userRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	// Workflow
	accrual := services.NewAccrualEngine(balanceRepo, entryRepo, cfg.OverdueThreshold, cfg.OverdueAfter)
	workflow := services.NewWorkflow(pool, postRepo, txnRepo, balanceRepo, accrual, services.WorkflowConfig{
		AutoApproveOnVerify: cfg.AutoApproveOnVerify,
		CommissionPercent:   cfg.CommissionPercent,
	}, logger)

	// Background balance sweep
	workers := river.NewWorkers()
	river.AddWorker(workers, reminders.NewBalanceSweepWorker(workflow, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.SweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return reminders.BalanceSweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// HTTP handlers
	postHandler := handlers.NewPostHandler(postRepo, logger)
	paymentHandler := handlers.NewPaymentHandler(workflow, txnRepo, logger)
	balanceHandler := handlers.NewBalanceHandler(workflow, balanceRepo, txnRepo, entryRepo, logger)
	adminHandler := handlers.NewAdminHandler(workflow, txnRepo, logger)

	apiRouter := router.New(router.Deps{
		Auth:     authHandler,
		Tokens:   authSvc,
		Posts:    postHandler,
		Payments: paymentHandler,
		Balances: balanceHandler,
		Admin:    adminHandler,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (runs the periodic balance sweep)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
