// Package server initializes and runs the videotube API server. It wires
// the Postgres-backed user repository, the Redis login throttle, the S3
// asset gateway, and the HTTP transport, and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/indexdothtml/yt-backend/internal/filex"
	"github.com/indexdothtml/yt-backend/internal/logging"
	"github.com/indexdothtml/yt-backend/internal/server/config"
	"github.com/indexdothtml/yt-backend/internal/server/httpapi"
	"github.com/indexdothtml/yt-backend/internal/server/ratelimit"
	"github.com/indexdothtml/yt-backend/internal/server/repositories/repomanager"
	"github.com/indexdothtml/yt-backend/internal/server/services"
	"github.com/indexdothtml/yt-backend/internal/server/storage"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	api    *httpapi.App
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	gateway, err := storage.NewS3Gateway(cfg)
	if err != nil {
		return nil, fmt.Errorf("asset store init error: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	limiter := ratelimit.NewRedisLimiter(rdb, cfg.LoginMaxAttempts, cfg.LoginAttemptWindow, logger)

	tempDir, err := filex.EnsureSubDir(cfg.TempUploadDir)
	if err != nil {
		return nil, fmt.Errorf("temp dir init error: %w", err)
	}

	svc := services.NewUserService(db, rm, gateway, limiter, logger, cfg)
	api := httpapi.NewApp(logger, svc, cfg, tempDir)

	return &App{config: cfg, logger: logger, db: db, api: api}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the HTTP server and blocks until the context is canceled or a
// termination signal arrives, then drains in-flight requests.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "addr", app.config.EndpointAddrHTTP)

	app.initSignalHandler(cancelFunc)

	e := app.api.NewEcho()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := e.Start(app.config.EndpointAddrHTTP); err != nil && err != http.ErrServerClosed {
			app.logger.Error(ctx, "http server error", "error", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown error", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(shutdownCtx, "db close error", "error", err)
	}

	wg.Wait()

	app.logger.Info(context.Background(), "Server stopped")
}
