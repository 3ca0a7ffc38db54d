package app

import (
	"context"
	"fmt"
	"net"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/clinic-concierge/internal/db"
	"github.com/yungbote/clinic-concierge/internal/http"
	"github.com/yungbote/clinic-concierge/internal/observability"
	"github.com/yungbote/clinic-concierge/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	PG       *db.Service
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services
	Router   *gin.Engine
	Server   *http.Server
}

func New(log *logger.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	metrics := observability.Init()

	pg, err := db.NewService(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	reposet := wireRepos(pg.DB(), log, cfg)

	serviceset, err := wireServices(log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		return nil, err
	}

	handlerset := wireHandlers(log, cfg, pg, reposet, serviceset, clients)
	middleware := wireMiddleware(log, cfg)
	router := wireRouter(log, cfg, handlerset, middleware, metrics)

	logCredentials(log, credentialReport(cfg))

	return &App{
		Log:      log,
		Cfg:      cfg,
		PG:       pg,
		Metrics:  metrics,
		Clients:  clients,
		Repos:    reposet,
		Services: serviceset,
		Router:   router,
		Server:   http.NewServer(log, http.ServerConfig{Addr: net.JoinHostPort("", cfg.Port)}, router),
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}

	a.Metrics.StartDBCollector(ctx, a.Log, a.PG.DB())
	if a.Clients.Deduper != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Deduper.Client())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(a.Server.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Cfg.ShutdownTimeout())
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.PG != nil {
		if err := a.PG.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	a.Log.Sync()
}
