package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bibbank/fund/internal/application/dto"
	"github.com/bibbank/fund/internal/application/usecase"
	"github.com/bibbank/fund/internal/domain/port"
	"github.com/bibbank/fund/internal/infrastructure/adapter"
	"github.com/bibbank/fund/internal/infrastructure/config"
	"github.com/bibbank/fund/internal/infrastructure/kafka"
	"github.com/bibbank/fund/internal/infrastructure/lock"
	pgRepo "github.com/bibbank/fund/internal/infrastructure/postgres"
	"github.com/bibbank/fund/internal/infrastructure/scheduler"
	grpcPresentation "github.com/bibbank/fund/internal/presentation/grpc"
	"github.com/bibbank/fund/internal/presentation/messaging"
	"github.com/bibbank/fund/internal/presentation/rest"
	"github.com/bibbank/fund/pkg/auth"
	pkgkafka "github.com/bibbank/fund/pkg/kafka"
	"github.com/bibbank/fund/pkg/observability"
	pkgpostgres "github.com/bibbank/fund/pkg/postgres"
	"github.com/bibbank/fund/pkg/tlsutil"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fundd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.Telemetry.LogLevel,
		Format:      cfg.Telemetry.LogFormat,
		ServiceName: cfg.ServiceName,
	})
	logger.Info("starting fund ledger",
		"grpc_port", cfg.GRPCPort,
		"http_port", cfg.HTTPPort,
		"closing_month", cfg.Policy.ClosingMonth.String(),
	)

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return err
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush

	tracerProvider, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.OTLPInsecure,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() { _ = tracerProvider.Shutdown(context.Background()) }() //nolint:errcheck // best-effort flush
	}

	// Database.
	dbCtx, dbCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dbCancel()
	pool, err := pkgpostgres.NewPool(dbCtx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	logger.Info("connected to database", "host", cfg.DB.Host, "database", cfg.DB.Database)

	if err := pkgpostgres.RunMigrations(cfg.DB.DSN(), pgRepo.Migrations, pgRepo.MigrationsDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// Infrastructure.
	repos := pgRepo.NewRepositories(pool)

	locker, closeLocker, err := newLocker(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	kafkaCfg := pkgkafka.Config{
		Brokers:       cfg.Kafka.Brokers,
		ConsumerGroup: cfg.Kafka.GroupID,
	}
	producer, err := pkgkafka.NewProducer(kafkaCfg)
	if err != nil {
		return fmt.Errorf("create kafka producer: %w", err)
	}
	defer func() { _ = producer.Close() }() //nolint:errcheck // best-effort close

	deps := usecase.Deps{
		Members:     repos.Members,
		Loans:       repos.Loans,
		Payments:    repos.Payments,
		Cash:        repos.Cash,
		Profits:     repos.Profits,
		Withdrawals: repos.Withdrawals,
		Outbox:      repos.Outbox,
		Tx:          pgRepo.NewTransactor(pool),
		Locker:      locker,
		Policy:      cfg.Policy,
		Logger:      logger,
	}
	documents := adapter.NewContractGenerator(adapter.DefaultContractConfig(), nil)
	publisher := kafka.NewOutboxPublisher(producer, logger)
	uc := usecase.NewSet(deps, documents, publisher)

	// Presentation.
	jwtSvc, err := auth.NewJWTService(auth.JWTConfig{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return fmt.Errorf("initialize JWT service: %w", err)
	}

	grpcOpts := grpcPresentation.ServerOptions{Reflection: true}
	if cfg.TLS.Enabled() {
		creds, err := tlsutil.ServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.ClientCAFile)
		if err != nil {
			return fmt.Errorf("load TLS credentials: %w", err)
		}
		grpcOpts.Creds = creds
	}
	grpcServer := grpcPresentation.NewServer(grpcPresentation.NewFundHandler(uc, logger), jwtSvc, grpcOpts, logger)

	health := rest.NewHealthHandler(cfg.ServiceName, map[string]rest.ReadinessCheck{
		"postgres": func(ctx context.Context) error { return pkgpostgres.HealthCheck(ctx, pool) },
	}, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           rest.NewMux(health, metricsHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	router := messaging.NewRouter(uc, logger)
	consumer, err := pkgkafka.NewConsumer(kafkaCfg, cfg.Kafka.InboundTopic, router.Handle, logger)
	if err != nil {
		return fmt.Errorf("create kafka consumer: %w", err)
	}
	defer func() { _ = consumer.Close() }() //nolint:errcheck // best-effort close

	sweepRunner := scheduler.NewRunner("liquidity-sweep", cfg.Scheduler.SweepInterval, func(ctx context.Context) error {
		resp, err := uc.SweepLiquidityQueue.Execute(ctx, dto.SweepLiquidityQueueRequest{})
		if err == nil && len(resp.Promoted) > 0 {
			logger.InfoContext(ctx, "liquidity sweep promoted loans", "count", len(resp.Promoted))
		}
		return err
	}, logger)
	relayRunner := scheduler.NewRunner("outbox-relay", cfg.Scheduler.OutboxInterval, func(ctx context.Context) error {
		resp, err := uc.RelayOutbox.Execute(ctx, dto.RelayOutboxRequest{BatchSize: cfg.Scheduler.OutboxBatch})
		if err == nil && resp.Failed > 0 {
			return fmt.Errorf("%d outbox events failed to publish", resp.Failed)
		}
		return err
	}, logger)

	contractRunner := scheduler.NewRunner("contract-retry", cfg.Scheduler.ContractInterval, func(ctx context.Context) error {
		resp, err := uc.GenerateContracts.Execute(ctx, dto.GenerateContractsRequest{BatchSize: cfg.Scheduler.ContractBatch})
		if err == nil && len(resp.Failed) > 0 {
			return fmt.Errorf("%d loan contracts still failing", len(resp.Failed))
		}
		return err
	}, logger)

	// Start everything.
	errCh := make(chan error, 3)
	var wg sync.WaitGroup

	go func() {
		if err := grpcServer.ListenAndServe(cfg.GRPCAddr()); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	wg.Add(4)
	go func() {
		defer wg.Done()
		if err := consumer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("kafka consumer: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		sweepRunner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		relayRunner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		contractRunner.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("component failed, shutting down", "error", runErr)
	}
	cancel()

	grpcServer.GracefulStop()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	wg.Wait()

	logger.Info("fund ledger stopped")
	return runErr
}

// newLocker returns the Redis locker when an address is configured and the
// in-process locker otherwise.
func newLocker(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (port.Locker, func(), error) {
	if cfg.Addr == "" {
		logger.Info("using in-process locker")
		return lock.NewMutexLocker(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	locker := lock.NewRedisLocker(client, lock.RedisConfig{Prefix: "fund:lock:", TTL: cfg.LockTTL}, logger)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := locker.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("using redis locker", "addr", cfg.Addr)
	return locker, func() { _ = client.Close() }, nil
}
