package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/greensquare/lessonsync/internal/config"
	"github.com/greensquare/lessonsync/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration, database, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	db     *pgxpool.Pool
	deps   *Dependencies
	router *mux.Router
	srv    *http.Server
}

// NewApplication connects the database, runs migrations and builds all
// dependencies. The HTTP server is created but only started by Run.
func NewApplication(ctx context.Context, cfg config.Application) (*Application, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(cfg.Database); err != nil {
		db.Close()
		return nil, err
	}

	deps, err := BuildDependencies(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	r := mux.NewRouter()

	// Middleware chain
	SetupMiddleware(r, deps, cfg)

	// Routes
	RegisterRoutes(r, deps, cfg)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Listen,
		WriteTimeout: 5 * time.Minute, // the webhook answers after a full sync
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, db: db, deps: deps, router: r, srv: srv}, nil
}

func (a *Application) Deps() *Dependencies {
	return a.deps
}

func (a *Application) Config() config.Application {
	return a.cfg
}

// Run starts the scheduler and the HTTP server and blocks until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if state, err := a.deps.StateRepo.GetState(ctx); err == nil {
		a.deps.SyncMetrics.SetCacheVersion(state.CacheVersion)
	}

	scheduler, err := NewScheduler(a.deps, a.cfg)
	if err != nil {
		return err
	}
	scheduler.Start()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		serveErr <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		scheduler.Stop(context.Background())
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := a.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the database pool and the Redis client.
func (a *Application) Close() {
	if a.deps.Redis != nil {
		if err := a.deps.Redis.Close(); err != nil {
			log.Warnf("closing redis: %v", err)
		}
	}
	a.db.Close()
}
