package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"hl7bridge/internal/audit"
	"hl7bridge/internal/authz"
	"hl7bridge/internal/consent"
	"hl7bridge/internal/fhir"
	"hl7bridge/internal/hl7"
	"hl7bridge/internal/identity"
	"hl7bridge/internal/pipeline"
	"hl7bridge/internal/platform/config"
	"hl7bridge/internal/platform/httpserver"
	"hl7bridge/internal/platform/logger"
	"hl7bridge/internal/platform/metrics"
	platformredis "hl7bridge/internal/platform/redis"
	transporthttp "hl7bridge/internal/transport/http"
)

const tokenIssuer = "hl7bridge"

func main() {
	log := logger.New()
	if err := run(log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.PostgresURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		log.Info("postgres connected")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	}

	// Stores: durable when postgres is configured, in-memory otherwise.
	var consentStore consent.Store
	var auditStore audit.Store
	if db != nil {
		consentStore = consent.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		consentStore = consent.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
	}
	if redisClient != nil {
		consentStore = consent.NewCachedStore(consentStore, redisClient.Client, cfg.ConsentCacheTTL)
	}

	var publisher audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info("kafka audit fan-out enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	recorder := audit.NewRecorder(auditStore, publisher, log, m)
	authorizer := authz.NewService(authz.NewMatrix(), recorder, log, m)
	consentService := consent.NewService(consentStore, log, m)

	orchestrator := pipeline.NewOrchestrator(pipeline.Config{
		Validator:         hl7.NewValidator(),
		Parser:            hl7.NewParser(),
		Transformer:       fhir.NewTransformer(),
		SchemaValidator:   fhir.NewValidator(),
		Consents:          consentService,
		Authorizer:        authorizer,
		Recorder:          recorder,
		Logger:            log,
		Metrics:           m,
		DependencyTimeout: cfg.DependencyTimeout,
	})

	resolver := identity.NewJWTResolver(cfg.JWTSigningKey, tokenIssuer)

	router := transporthttp.NewRouter(transporthttp.RouterConfig{
		Messages: transporthttp.NewMessagesHandler(orchestrator, log),
		Consents: transporthttp.NewConsentHandler(consentService, authorizer, log),
		Audit:    transporthttp.NewAuditHandler(recorder, authorizer, log),
		Health:   transporthttp.NewHealthHandler(db, redisClient),
		Resolver: resolver,
		Logger:   log,
	})

	server := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
