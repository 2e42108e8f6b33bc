package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"budgetbook/internal/config"
	"budgetbook/internal/database"
	"budgetbook/internal/events"
	"budgetbook/internal/logger"
	"budgetbook/internal/payroll"
	"budgetbook/internal/server"
	"budgetbook/internal/services"
	"budgetbook/internal/validator"
)

// @title           Budgetbook API
// @version         1.0
// @description     Budgetbook keeps shared budgets and moves money between them with itemized receipts, rebalances and monthly payroll.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description Personal API key (bbk_...). Also accepted as a Bearer token.

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Event publishing is optional
	var publisher events.Publisher = events.Discard
	if appConfig.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(appConfig.AMQPURL, appConfig.AMQPExchange)
		if err != nil {
			return fmt.Errorf("failed to connect to event broker: %w", err)
		}
		publisher = amqpPublisher
	}
	defer publisher.Close()
	dispatcher := events.NewDispatcher(publisher, appConfig.EventBuffer)

	validator.Register()
	svc, err := server.NewServices(dbManager.DB(), dispatcher, services.RelyingParty{
		ID:      appConfig.WebAuthnRPID,
		Name:    appConfig.WebAuthnRPName,
		Origins: appConfig.WebAuthnRPOrigins,
	})
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}
	router := server.NewRouter(svc, server.Options{
		CORSOrigins:    appConfig.CORSOrigins,
		PipelineAPIKey: appConfig.PipelineAPIKey,
		Swagger:        !appConfig.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}

	var workers []server.Runner
	if appConfig.PayrollSchedulerEnabled {
		scheduler := payroll.NewScheduler(svc.Payroll, logger.Named("payroll"))
		scheduler.Warmup = appConfig.PayrollWarmup
		scheduler.RetryInterval = appConfig.PayrollRetryInterval
		workers = append(workers, scheduler)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting Budgetbook server on port %s", appConfig.Port)
	if !appConfig.IsProduction() {
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	}
	return server.Serve(ctx, srv, ln, dispatcher, workers...)
}
