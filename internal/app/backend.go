package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/config"
	"taskboard/internal/db"
	"taskboard/internal/migrate"
	"taskboard/internal/records"
	"taskboard/internal/scheduler"
	"taskboard/internal/server"
)

// Backend is the reference server: migrated database, API handler and
// maintenance scheduler.
type Backend struct {
	Config    config.ServerConfig
	DB        *sql.DB
	Records   *records.Repo
	Handler   http.Handler
	Scheduler *scheduler.Scheduler
	Logger    *zap.Logger
}

// OpenBackend opens and migrates the workspace database and builds the handler.
func OpenBackend(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := db.Open(db.Config{Workspace: cfg.Workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	version, err := migrate.Migrate(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database ready", zap.String("path", db.Path(db.Config{Workspace: cfg.Workspace})), zap.Int("schema_version", version))

	repo := records.New(conn, logger.Named("records"))
	handler, err := server.New(server.Config{
		Records:  repo,
		BasePath: cfg.BasePath,
		Auth:     server.AuthConfig{JWTSecret: cfg.JWTSecret},
		Logger:   logger.Named("http"),
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	sched := scheduler.New(logger.Named("scheduler"))
	if cfg.RecountEvery > 0 {
		if _, err := sched.Every(cfg.RecountEvery, "recount-categories", scheduler.RecountJob(repo, logger)); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return &Backend{Config: cfg, DB: conn, Records: repo, Handler: handler, Scheduler: sched, Logger: logger}, nil
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (b *Backend) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", b.Config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", b.Config.Addr, err)
	}
	return b.ServeListener(ctx, ln)
}

func (b *Backend) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: b.Handler, ReadHeaderTimeout: 10 * time.Second}
	b.Scheduler.Start()
	defer b.Scheduler.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Logger.Info("listening", zap.String("addr", ln.Addr().String()), zap.String("base_path", b.Config.BasePath))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (b *Backend) Close() error {
	return b.DB.Close()
}
