package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthandler "conexus/internal/account/handler"
	accountservice "conexus/internal/account/service"
	accountstore "conexus/internal/account/store"
	acchandler "conexus/internal/accommodation/handler"
	accservice "conexus/internal/accommodation/service"
	accstore "conexus/internal/accommodation/store"
	atthandler "conexus/internal/attendance/handler"
	attservice "conexus/internal/attendance/service"
	attstore "conexus/internal/attendance/store"
	"conexus/internal/audit"
	dispatchhandler "conexus/internal/dispatch/handler"
	dispatchservice "conexus/internal/dispatch/service"
	"conexus/internal/dispatch/sender"
	eventhandler "conexus/internal/event/handler"
	eventservice "conexus/internal/event/service"
	eventstore "conexus/internal/event/store"
	"conexus/internal/identity"
	"conexus/internal/jwttoken"
	"conexus/internal/platform/config"
	"conexus/internal/platform/httpserver"
	"conexus/internal/platform/logger"
	"conexus/internal/platform/metrics"
	"conexus/internal/platform/middleware"
	"conexus/internal/platform/postgres"
	"conexus/internal/platform/redis"
	reghandler "conexus/internal/registration/handler"
	regservice "conexus/internal/registration/service"
	regstore "conexus/internal/registration/store"
)

// main wires storage, services, and transport. Business logic lives in the
// internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores. Postgres when configured, in-memory otherwise.
	var (
		registrations regstore.Store
		rooms         accstore.Store
		portals       attstore.PortalStore
		attendance    attstore.LogStore
		events        eventstore.Store
		accounts      accountstore.Store
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		registrations = regstore.NewPostgres(db)
		rooms = accstore.NewPostgres(db)
		pgAttendance := attstore.NewPostgres(db)
		portals = pgAttendance
		attendance = pgAttendance
		events = eventstore.NewPostgres(db)
		accounts = accountstore.NewPostgres(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		registrations = regstore.NewInMemory()
		rooms = accstore.NewInMemory()
		memAttendance := attstore.NewInMemory()
		portals = memAttendance
		attendance = memAttendance
		events = eventstore.NewInMemory()
		accounts = accountstore.NewInMemory()
	}

	if cfg.RedisURL != "" {
		rdb, err := redis.New(cfg.RedisURL)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		attendance = attstore.NewRedisDedup(attendance, rdb)
	}

	// Audit pipeline: Kafka when configured, otherwise a buffered channel
	// drained into the in-memory store by a background worker.
	var auditPublisher audit.Publisher
	if cfg.KafkaBrokers != "" {
		kafkaPublisher, err := audit.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
	} else {
		channelPublisher := audit.NewChannelPublisher(256)
		worker := audit.NewWorker(audit.NewInMemoryStore(), channelPublisher.Inbox())
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
		auditPublisher = channelPublisher
	}

	m := metrics.New()
	tokens := jwttoken.New(cfg.JWTSigningKey, "conexus")

	// Services.
	allocator := accservice.New(rooms, registrations,
		accservice.WithLogger(log),
		accservice.WithAuditPublisher(auditPublisher),
	)
	binder := identity.New(registrations,
		identity.WithLogger(log),
		identity.WithMetrics(m),
		identity.WithAuditPublisher(auditPublisher),
	)
	ledger := regservice.New(registrations, allocator, binder,
		regservice.WithLogger(log),
		regservice.WithMetrics(m),
		regservice.WithAuditPublisher(auditPublisher),
		regservice.WithReleaseRoomOnRevoke(cfg.ReleaseRoomOnRevoke),
	)
	recorder := attservice.New(portals, attendance, registrations,
		attservice.WithLogger(log),
		attservice.WithMetrics(m),
		attservice.WithAuditPublisher(auditPublisher),
		attservice.WithDedupWindow(cfg.DedupWindow),
		attservice.WithRoomDirectory(allocator),
	)
	dispatcher := dispatchservice.New(
		sender.NewHTTPSender(cfg.CertMailURL),
		ledger,
		dispatchservice.WithLogger(log),
		dispatchservice.WithMetrics(m),
		dispatchservice.WithAuditPublisher(auditPublisher),
		dispatchservice.WithWidth(cfg.DispatchWorkers),
		dispatchservice.WithSendTimeout(cfg.SendTimeout),
	)
	catalog := eventservice.New(events, ledger, eventservice.WithLogger(log))
	accountSvc := accountservice.New(accounts, tokens, accountservice.WithLogger(log))

	// Router.
	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestTime)
	router.Use(middleware.ClientMetadata)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(30 * time.Second))
	router.Use(middleware.ContentTypeJSON)

	if cfg.PublicRateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.PublicRateLimit, time.Minute)
		router.Use(func(next http.Handler) http.Handler {
			limited := limiter.Limit(next)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
					next.ServeHTTP(w, r)
					return
				}
				limited.ServeHTTP(w, r)
			})
		})
	}

	admin := middleware.RequireAdminAccess(cfg.AdminToken, tokens, log)
	authed := middleware.RequireAuth(tokens, log)
	reghandler.New(ledger, log).Register(router, admin)
	acchandler.New(allocator, log).Register(router, admin)
	atthandler.New(recorder, log).Register(router, admin)
	dispatchhandler.New(dispatcher, log).Register(router, admin)
	eventhandler.New(catalog, log).Register(router, admin)
	accounthandler.New(accountSvc, log).Register(router, admin, authed)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting conexus", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
