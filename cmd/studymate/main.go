package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	smhttp "github.com/Strob0t/StudyMate/internal/adapter/http"
	smnats "github.com/Strob0t/StudyMate/internal/adapter/nats"
	"github.com/Strob0t/StudyMate/internal/adapter/natskv"
	"github.com/Strob0t/StudyMate/internal/adapter/otel"
	"github.com/Strob0t/StudyMate/internal/adapter/postgres"
	"github.com/Strob0t/StudyMate/internal/adapter/ristretto"
	"github.com/Strob0t/StudyMate/internal/adapter/tiered"
	"github.com/Strob0t/StudyMate/internal/config"
	"github.com/Strob0t/StudyMate/internal/logger"
	"github.com/Strob0t/StudyMate/internal/middleware"
	"github.com/Strob0t/StudyMate/internal/port/cache"
	"github.com/Strob0t/StudyMate/internal/port/messagequeue"
	"github.com/Strob0t/StudyMate/internal/service"
	"github.com/Strob0t/StudyMate/internal/temporal"
)

const idempotencyTTL = 24 * time.Hour

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, cfgPath)

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"llm_provider", cfg.LLM.Provider,
		"nats_enabled", cfg.NATS.Enabled,
		"timezone", cfg.Assistant.TimeZone,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	shutdownTelemetry, err := otel.Init(ctx, cfg.Telemetry, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()
	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	l1, err := ristretto.NewMB(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()

	var (
		queue     messagequeue.Queue
		appCache  cache.Cache = l1
		natsQueue *smnats.Queue
	)
	if cfg.NATS.Enabled {
		natsQueue, err = smnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsQueue.Drain() }()
		queue = natsQueue

		kv, err := natsQueue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		appCache = tiered.New(l1, natskv.New(kv), cfg.Cache.RoleTTL)
		slog.Info("nats connected", "url", cfg.NATS.URL, "kv_bucket", cfg.Cache.L2Bucket)
	} else {
		queue = smnats.NewLocalQueue()
		defer func() { _ = queue.Close() }()
		slog.Warn("nats disabled, events stay in process and the cache is L1 only")
	}

	gen, llmHealth := newGenerator(&cfg.LLM, &cfg.Breaker)

	resolver, err := temporal.NewResolver(cfg.Assistant.TimeZone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	// --- Services ---
	store := postgres.NewStore(pool)
	records := service.NewRecordService(store, l1, cfg.Cache.RoleTTL, cfg.Assistant.TaskFetchLimit, cfg.Assistant.QuizFetchLimit)
	pending := service.NewConfirmationStore(appCache, cfg.Cache.ConfirmationTTL)

	classifierModel := cfg.LLM.ClassifierModel
	if classifierModel == "" {
		classifierModel = cfg.LLM.Model
	}
	assistant := service.NewAssistantService(gen,
		service.NewIntentClassifier(gen, classifierModel, metrics),
		service.NewQueryExtractor(gen, classifierModel, resolver, metrics),
		records, resolver, &cfg.Assistant, cfg.LLM.Model)
	assistant.SetConfirmationStore(pending)
	assistant.SetMetrics(metrics)

	cancelRoles, err := service.NewRoleCacheInvalidator(queue, records).Start(ctx)
	if err != nil {
		return fmt.Errorf("role subscriber: %w", err)
	}
	defer cancelRoles()

	handlers := &smhttp.Handlers{
		Assistant:     assistant,
		Confirmations: service.NewConfirmationService(store, pending, records, queue, metrics),
		Tasks:         service.NewTaskService(store, records, queue),
		Records:       records,
		HealthChecks: map[string]smhttp.HealthCheck{
			"postgres": store.Ping,
			"nats": func(context.Context) error {
				if !queue.IsConnected() {
					return errors.New("not connected")
				}
				return nil
			},
			"llm": llmHealth,
		},
	}

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(smhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(smhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(smhttp.SecurityHeaders)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

	opts := smhttp.RouteOptions{IdempotencyCache: l1, IdempotencyTTL: idempotencyTTL}
	if cfg.Server.ChatRate > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.ChatRate, cfg.Server.ChatBurst, middleware.ByRemoteIP)
		limiter.StartCleanup(ctx, 5*time.Minute, 10*time.Minute)
		opts.ChatLimiter = limiter
	}
	smhttp.MountRoutes(r, handlers, opts)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		watchReload(gctx, holder)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// watchReload re-reads the configuration on SIGHUP. Only the log level is
// applied at runtime; other changes need a restart.
func watchReload(ctx context.Context, holder *config.Holder) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := holder.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			cfg := holder.Get()
			logger.SetLevel(cfg.Logging.Level)
			slog.Info("config reloaded", "log_level", cfg.Logging.Level)
		}
	}
}
