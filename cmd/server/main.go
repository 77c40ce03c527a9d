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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"konto/internal/documents"
	"konto/internal/duplicate"
	"konto/internal/events"
	"konto/internal/notification"
	"konto/internal/onboarding/handler"
	onboarding "konto/internal/onboarding/service"
	"konto/internal/onboarding/store"
	"konto/internal/otp"
	"konto/internal/otp/rate"
	"konto/internal/platform/config"
	"konto/internal/platform/httpserver"
	"konto/internal/platform/kafka"
	"konto/internal/platform/logger"
	"konto/internal/platform/metrics"
	"konto/internal/platform/middleware"
	platformredis "konto/internal/platform/redis"
	"konto/pkg/platform/audit"
)

// main wires the dependency graph and owns the process lifecycle. Business
// logic lives in the internal services; everything here is construction,
// routing, and shutdown.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Storage: postgres when configured, in-memory otherwise. The in-memory
	// stores make local development and CI self-contained.
	var (
		appStore   store.Store
		otpStore   otp.Store
		auditStore audit.Store
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		appStore = store.NewPostgresStore(db)
		otpStore = otp.NewPostgresStore(db)
		auditStore = audit.NewPostgresStore(db)
		log.Info("using postgres storage")
	} else {
		appStore = store.NewInMemoryStore()
		otpStore = otp.NewInMemoryStore()
		auditStore = audit.NewInMemoryStore()
		log.Warn("no KONTO_POSTGRES_URL set, using in-memory storage")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	var limiter otp.RateLimiter
	if redisClient != nil {
		defer redisClient.Close()
		limiter = rate.NewLimiter(redisClient.Client, cfg.OtpSendWindow, cfg.OtpSendsPerWindow, log)
		log.Info("otp send limiter enabled", "per_window", cfg.OtpSendsPerWindow, "window", cfg.OtpSendWindow)
	}

	var publisher events.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher, err := kafka.NewPublisher(cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		log.Info("publishing domain events to kafka", "topic", cfg.Kafka.Topic)
	} else {
		publisher = events.NewLogPublisher(log)
		log.Warn("no KONTO_KAFKA_BROKERS set, domain events go to the log")
	}

	auditInbox := make(chan audit.Event, 256)
	auditor := audit.NewPublisher(auditInbox, log)
	auditWorker := audit.NewWorker(auditStore, auditInbox, log)

	otpService := otp.NewService(otpStore, notification.NewLogSender(log), limiter, log, m)
	onboardingService := onboarding.New(
		appStore,
		otpService,
		documents.NewInMemoryBlobStore(),
		duplicate.NewInMemoryChecker(),
		publisher,
		auditor,
		log,
		m,
	)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.ClientIP)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	handler.New(onboardingService, log).Register(router, middleware.RequireOfficer(cfg.JWTSigningKey))

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("starting onboarding server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
