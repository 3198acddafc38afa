package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Zaid-daoud/Farkoosh-Backend/internal/audit"
	auditrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/audit/repository"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/config"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/db/migrate"
	identityrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/identity/repository"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/identity/service"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/logging"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/security"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/server"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/server/interceptors"
	sessionrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/session/repository"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry"
	otelsetup "github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry/otel"
	"github.com/Zaid-daoud/Farkoosh-Backend/internal/telemetry/producer"
	userrepo "github.com/Zaid-daoud/Farkoosh-Backend/internal/user/repository"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)
	displayAppname("farkoosh auth")
	ctx := logger.WithContext(context.Background())

	providers, err := otelsetup.NewProviders(ctx, otelsetup.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	if cfg.MigrateOnStart {
		if err := migrate.Run(cfg.DatabaseURL, migrate.Up); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("migrations applied")
	}

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer conn.Close()

	tokens, err := security.NewTokenProvider(cfg.TokenConfig())
	if err != nil {
		return fmt.Errorf("tokens: %w", err)
	}

	emitter, closeEmitter, err := newEmitter(cfg, providers, logger)
	if err != nil {
		return err
	}

	audits := auditrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(audits, interceptors.ClientIP)
	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	authSvc := service.NewAuthService(
		users,
		sessions,
		identityrepo.NewPostgresTransactor(conn),
		security.NewHasher(cfg.BcryptCost),
		tokens,
		service.WithAuditLogger(auditLogger),
		service.WithEventEmitter(emitter),
	)

	srv := server.NewServer(logger, tokens, server.Deps{
		Auth:         authSvc,
		UserRepo:     users,
		SessionRepo:  sessions,
		AuditRepo:    audits,
		AuditLogger:  auditLogger,
		Emitter:      emitter,
		HealthPinger: conn,
	})

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		serveErr <- srv.Serve(lis)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down gRPC server")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}
	srv.GracefulStop()
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := closeEmitter(); err != nil {
		logger.Warn().Err(err).Msg("close event emitter")
	}
	logger.Info().Msg("gRPC server stopped")
	return nil
}

// newEmitter publishes auth events to Kafka when brokers are configured and to the OTLP log
// pipeline otherwise.
func newEmitter(cfg *config.Config, providers *otelsetup.Providers, logger zerolog.Logger) (telemetry.EventEmitter, func() error, error) {
	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Info().Msg("auth events: OTLP log emitter")
		return otelsetup.NewEventEmitter(providers.LoggerProvider), func() error { return nil }, nil
	}
	p, err := producer.NewKafkaProducer(brokers, cfg.AuthEventsTopic)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	logger.Info().Strs("brokers", brokers).Str("topic", cfg.AuthEventsTopic).Msg("auth events: kafka producer")
	return p, p.Close, nil
}

func displayAppname(appname string) {
	figure.NewFigure(appname, "cybermedium", true).Print()
	fmt.Println()
}
