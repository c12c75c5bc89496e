// Command server runs the coordination service: pseudonym issuance,
// capability-proof-gated intake, provider matching, the progressive reveal
// ladder, emergency overrides, and anonymity cleanup behind one HTTP API.
package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"veil/internal/cleanup"
	"veil/internal/coordination"
	coordinationhandler "veil/internal/coordination/handler"
	"veil/internal/emergency"
	"veil/internal/events"
	"veil/internal/identity"
	identityhandler "veil/internal/identity/handler"
	jwttoken "veil/internal/jwt_token"
	"veil/internal/platform/config"
	"veil/internal/platform/httpserver"
	"veil/internal/platform/logger"
	"veil/internal/platform/metrics"
	"veil/internal/platform/middleware"
	"veil/internal/platform/ratelimit"
	redisplatform "veil/internal/platform/redis"
	"veil/internal/proof"
	"veil/internal/provider"
	"veil/internal/reveal"
	id "veil/pkg/domain"
)

const (
	tokenIssuer   = "veil"
	tokenAudience = "veil-api"
	proofIssuer   = "veil-proof-authority"

	requestTimeout  = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to optional YAML config file")
	flag.Parse()

	cfg, errs := config.Load(configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "server exited: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.New(cfg.LogLevel)
	m := metrics.New()

	// Stores: Postgres when configured, memory otherwise.
	var (
		identityStore identity.Store
		profileStore  identity.ProfileStore
		revealStore   reveal.Store
		providerStore provider.Store
		coordStore    coordination.Store
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}

		mapKey, err := hex.DecodeString(cfg.PseudonymMapKey)
		if err != nil {
			return fmt.Errorf("decode pseudonym map key: %w", err)
		}
		pgIdentity, err := identity.NewPostgresStore(db, mapKey)
		if err != nil {
			return fmt.Errorf("init pseudonym store: %w", err)
		}
		identityStore = pgIdentity
		profileStore = identity.NewPostgresProfileStore(pgIdentity)
		revealStore = reveal.NewPostgresStore(db)
		providerStore = provider.NewPostgresStore(db)
		coordStore = coordination.NewPostgresStore(db)
	} else {
		log.Warn("no database configured, using in-memory stores")
		identityStore = identity.NewInMemoryStore()
		profileStore = identity.NewInMemoryProfileStore()
		revealStore = reveal.NewInMemoryStore()
		memProviders := provider.NewInMemoryStore()
		seedProviders(ctx, provider.NewRegistry(memProviders), log)
		providerStore = memProviders
		coordStore = coordination.NewInMemoryStore()
	}

	// Proof replay cache: Redis when configured, memory otherwise.
	var replays proof.ReplayStore
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		replays = proof.NewRedisReplayStore(redisClient.Client)
	} else {
		log.Warn("no redis configured, using in-memory replay cache")
		replays = proof.NewMemoryReplayStore()
	}

	// Event stream: Kafka when brokers are configured, memory otherwise.
	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return fmt.Errorf("init kafka publisher: %w", err)
		}
		defer kafka.Close()
		publisher = kafka
	} else {
		log.Warn("no kafka brokers configured, using in-memory publisher")
		publisher = events.NewMemoryPublisher()
	}

	// Domain wiring. The reveal log records every identity resolution, so
	// the recorder is built straight on the store, before the services.
	recorder := reveal.NewLookupRecorder(revealStore)
	identitySvc := identity.NewService(identityStore, profileStore, recorder, log)
	consent := reveal.NewConsentValidator([]byte(cfg.JWTSigningKey))
	revealSvc := reveal.NewService(revealStore, identitySvc, consent, publisher, m, log)
	overrides := emergency.NewController(revealSvc, publisher, m, log)
	verifier := proof.NewJWTVerifier([]byte(cfg.ProofVerifyKey), replays, proofIssuer, cfg.ProofValidityWindow)
	registry := provider.NewRegistry(providerStore)
	providerClient := coordination.NewBreakerClient(coordination.NewLoggingProviderClient(log), log)

	engine := coordination.NewEngine(coordination.EngineParams{
		Store:     coordStore,
		Verifier:  verifier,
		Directory: identitySvc,
		Registry:  registry,
		Revealer:  revealSvc,
		Overrider: overrides,
		Client:    providerClient,
		Publisher: publisher,
		Metrics:   m,
		Logger:    log,

		EscalationLimit:          cfg.EscalationLimit,
		DispatchTimeout:          cfg.DispatchTimeout,
		EmergencyDispatchTimeout: cfg.EmergencyDispatchTimeout,
	})

	finalizer := cleanup.NewFinalizer(coordStore, identitySvc, log)
	engine.SetFinalizer(finalizer)
	sweeper := cleanup.NewSweeper(coordStore, finalizer, log, cfg.CleanupSweepInterval)

	// Transport.
	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience)
	validator := jwttoken.NewJWTServiceAdapter(jwtSvc)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Per-caller throttle: shared fixed windows in Redis when available,
	// single-node sliding windows otherwise.
	var limiter ratelimit.Limiter
	if cfg.RateLimitPerMinute > 0 {
		if redisClient != nil {
			limiter = ratelimit.NewRedisLimiter(redisClient.Client, cfg.RateLimitPerMinute, time.Minute)
		} else {
			limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
		}
	}

	r.Route("/"+id.LatestVersion().String(), func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(validator, log))
		if limiter != nil {
			r.Use(middleware.RateLimit(limiter, log))
		}
		coordinationhandler.New(engine, log).Register(r)
		identityhandler.New(identitySvc, log).Register(r)
	})

	srv := httpserver.New(cfg.Addr, r)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// seedProviders loads a small development provider set so matching works
// out of the box when no database is configured.
func seedProviders(ctx context.Context, registry *provider.Registry, log *slog.Logger) {
	for _, p := range provider.DevSeed() {
		if err := registry.Register(ctx, p); err != nil {
			log.Warn("skipping seed provider", "provider", p.Name, "error", err)
		}
	}
}
