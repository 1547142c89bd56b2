// Package daemon wires the sync daemon together: configuration, store,
// source and calendar clients, the sync engine, and the admin HTTP
// server on the Unix socket.
package daemon

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/eyalbz/wacal/internal/api"
	"github.com/eyalbz/wacal/internal/bus"
	"github.com/eyalbz/wacal/internal/calendar"
	"github.com/eyalbz/wacal/internal/config"
	"github.com/eyalbz/wacal/internal/home"
	"github.com/eyalbz/wacal/internal/lock"
	"github.com/eyalbz/wacal/internal/logging"
	"github.com/eyalbz/wacal/internal/registry"
	"github.com/eyalbz/wacal/internal/render"
	"github.com/eyalbz/wacal/internal/retry"
	"github.com/eyalbz/wacal/internal/source"
	"github.com/eyalbz/wacal/internal/status"
	"github.com/eyalbz/wacal/internal/store"
	syncengine "github.com/eyalbz/wacal/internal/sync"
)

// Params holds overrides for the daemon's default paths. Empty fields
// fall back to the ~/.wacal layout.
type Params struct {
	ConfigPath string
	SocketPath string
}

// Module returns the fx module for the daemon, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideLock,
			provideStore,
			provideRegistry,
			provideRuns,
			provideFetcher,
			provideUpserter,
			provideRenderer,
			provideEngine,
			provideServices,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	path := p.ConfigPath
	if path == "" {
		path = home.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func provideLogger() (*zap.Logger, error) {
	return logging.New(home.LogPath())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideLock(logger *zap.Logger) (*lock.Lock, error) {
	if err := home.EnsureDirs(); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(home.BaseDir())
	if err != nil {
		return nil, err
	}
	logger.Info("daemon lock acquired", zap.String("dir", home.BaseDir()))
	return l, nil
}

func provideStore(logger *zap.Logger) (*store.DB, error) {
	dbPath := home.DBPath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideRegistry(db *store.DB) *registry.Registry {
	return registry.New(db)
}

func provideRuns(b *bus.Bus) *status.Registry {
	return status.NewRegistry(b)
}

func provideFetcher(cfg *config.Config) source.HistoryFetcher {
	client := source.NewClient(
		cfg.Source.BaseURL,
		cfg.Source.InstanceID,
		cfg.Source.APIToken,
		cfg.PerFetchDelay(),
		cfg.FetchTimeout(),
	)
	return source.NewRetryingFetcher(client, retryPolicy(cfg))
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		Attempts: cfg.UpsertRetryAttempts,
		Base:     time.Duration(cfg.UpsertRetryBaseSeconds) * time.Second,
		Cap:      time.Duration(cfg.UpsertRetryCapSeconds) * time.Second,
	}
}

func provideUpserter(cfg *config.Config, db *store.DB, b *bus.Bus, logger *zap.Logger) *calendar.Upserter {
	httpClient := calendar.NewAuthorizedHTTPClient(
		context.Background(),
		cfg.Calendar.ClientID,
		cfg.Calendar.ClientSecret,
		cfg.Calendar.RefreshToken,
		cfg.Calendar.TokenURL,
	)
	client := calendar.NewRestClient(cfg.Calendar.BaseURL, httpClient, cfg.CalendarTimeout())
	return calendar.NewUpserter(client, db, b, logger, cfg.TargetCalendarID, cfg.Location(), retryPolicy(cfg))
}

func provideRenderer(cfg *config.Config) *render.Renderer {
	return render.New(cfg.MinEventDuration(), cfg.Location(), cfg.OperatorLabel)
}

func provideEngine(
	cfg *config.Config,
	db *store.DB,
	reg *registry.Registry,
	fetcher source.HistoryFetcher,
	renderer *render.Renderer,
	upserter *calendar.Upserter,
	b *bus.Bus,
	logger *zap.Logger,
	runs *status.Registry,
) *syncengine.Engine {
	return syncengine.New(syncengine.Params{
		DB:             db,
		Registry:       reg,
		Fetcher:        fetcher,
		Renderer:       renderer,
		Upserter:       upserter,
		Bus:            b,
		Logger:         logger,
		Runs:           runs,
		Gap:            cfg.SessionGap(),
		InterChatDelay: cfg.InterChatDelay(),
	})
}

func provideServices(db *store.DB, engine *syncengine.Engine, runs *status.Registry) api.Services {
	return api.Services{
		Status:   api.NewStatusService(db),
		Entities: api.NewEntityService(db),
		Sync:     api.NewSyncService(engine, runs, db),
		Events:   api.NewEventService(db),
	}
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, db *store.DB, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("admin server error", zap.Error(err))
				}
			}()
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
