package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/repo"
	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-reports/platform/go/logging"
	"github.com/zenGate-Global/palmyra-reports/platform/go/notify"
	"github.com/zenGate-Global/palmyra-reports/platform/go/persistence"
)

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	StoreBackend    string        `env:"STORE_BACKEND" envDefault:"postgres"` // postgres | memory
	DatabaseURL     string        `env:"DATABASE_URL"`                        // required when STORE_BACKEND=postgres
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	TenantCacheTTL  time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`
	TenantCacheSize int           `env:"TENANT_CACHE_MAX_ENTRIES" envDefault:"10000"`

	DBMaxConns            int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32         `env:"DB_MIN_CONNS" envDefault:"0"`
	DBMaxConnLifetime     time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime     time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckInterval time.Duration `env:"DB_HEALTH_CHECK_INTERVAL" envDefault:"1m"`

	ConfigWebhookURL string        `env:"CONFIG_WEBHOOK_URL"`
	TestWebhookURL   string        `env:"TEST_WEBHOOK_URL"`
	WebhookTimeout   time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	TestSendTimeout  time.Duration `env:"TEST_SEND_TIMEOUT" envDefault:"15s"`

	DispatchInterval    time.Duration `env:"DISPATCH_INTERVAL" envDefault:"5s"`
	DispatchBatchSize   int           `env:"DISPATCH_BATCH_SIZE" envDefault:"20"`
	DispatchMaxAttempts int           `env:"DISPATCH_MAX_ATTEMPTS" envDefault:"8"`
	// Extra attempts per message inside one dispatch round; 0 disables them.
	DispatchInProcessRetries int `env:"DISPATCH_IN_PROCESS_RETRIES" envDefault:"2"`
}

func (c config) poolConfig() persistence.PoolConfig {
	return persistence.PoolConfig{
		ConnString:          c.DatabaseURL,
		MaxConns:            c.DBMaxConns,
		MinConns:            c.DBMinConns,
		MaxConnLifetime:     c.DBMaxConnLifetime,
		MaxConnIdleTime:     c.DBMaxConnIdleTime,
		HealthCheckInterval: c.DBHealthCheckInterval,
	}
}

func (c config) dispatcherConfig() notify.DispatcherConfig {
	retries := c.DispatchInProcessRetries
	if retries == 0 {
		retries = -1
	}
	return notify.DispatcherConfig{
		Interval:         c.DispatchInterval,
		BatchSize:        c.DispatchBatchSize,
		MaxAttempts:      c.DispatchMaxAttempts,
		InProcessRetries: retries,
	}
}

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}

// backend bundles the storage-dependent collaborators.
type backend struct {
	repo   repo.Repository
	outbox notify.Outbox
	pool   *pgxpool.Pool
}

func openBackend(ctx context.Context, cfg config, logger *zap.Logger) (backend, error) {
	switch cfg.StoreBackend {
	case backendMemory:
		outbox := notify.NewMemoryOutbox()
		logger.Warn("using in-memory store; schedules are lost on restart")
		return backend{repo: repo.NewMemoryRepository(outbox), outbox: outbox}, nil
	case backendPostgres:
		if cfg.DatabaseURL == "" {
			return backend{}, errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
		pool, err := persistence.NewPool(ctx, cfg.poolConfig())
		if err != nil {
			return backend{}, fmt.Errorf("init postgres pool: %w", err)
		}
		if cfg.AutoMigrate {
			results, err := persistence.Migrate(ctx, pool)
			if err != nil {
				persistence.ClosePool(pool)
				return backend{}, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("migrations applied", zap.Int("count", len(results)))
		}
		store, err := persistence.NewReportScheduleStore(pool)
		if err != nil {
			persistence.ClosePool(pool)
			return backend{}, fmt.Errorf("init report schedule store: %w", err)
		}
		outbox, err := persistence.NewOutboxStore(pool)
		if err != nil {
			persistence.ClosePool(pool)
			return backend{}, fmt.Errorf("init outbox store: %w", err)
		}
		return backend{repo: repo.NewPostgresRepository(store), outbox: outbox, pool: pool}, nil
	default:
		return backend{}, fmt.Errorf("invalid STORE_BACKEND %q (use postgres or memory)", cfg.StoreBackend)
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer persistence.ClosePool(store.pool)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := notify.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("register notification metrics: %w", err)
	}

	webhook := notify.NewWebhookClient(notify.WebhookConfig{
		URLs: map[notify.Topic]string{
			notify.TopicScheduleSaved: cfg.ConfigWebhookURL,
			notify.TopicScheduleTest:  cfg.TestWebhookURL,
		},
		Timeout: cfg.WebhookTimeout,
	})
	if cfg.ConfigWebhookURL == "" {
		logger.Warn("CONFIG_WEBHOOK_URL not set; saved-schedule notifications will be dead-lettered")
	}

	svc := service.New(store.repo, service.Options{
		Notifier:        notify.Instrument(webhook, metrics),
		TestSendTimeout: cfg.TestSendTimeout,
	})

	dispatcher := notify.NewDispatcher(store.outbox, webhook, logger.Named("dispatcher"), metrics, cfg.dispatcherConfig())

	router, err := newRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		service:  svc,
		registry: registry,
		ready:    readiness(store.pool),
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatcher.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("starting api server", zap.String("port", cfg.Port), zap.String("backend", cfg.StoreBackend))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func readiness(pool *pgxpool.Pool) func(context.Context) error {
	if pool == nil {
		return func(context.Context) error { return nil }
	}
	return pool.Ping
}
