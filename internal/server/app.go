// Package server assembles the API and worker processes: it opens the
// backing stores, builds services and runs them until a shutdown signal.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/access"
	"github.com/dmitrijs2005/filesmanager/internal/server/blobs"
	"github.com/dmitrijs2005/filesmanager/internal/server/config"
	"github.com/dmitrijs2005/filesmanager/internal/server/httpapi"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filesmanager/internal/server/services"
	"github.com/dmitrijs2005/filesmanager/internal/server/sessions"
	"github.com/dmitrijs2005/filesmanager/internal/server/thumbnails"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

var (
	logOutput io.Writer = os.Stdout

	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}

	newRepoManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
)

// backends holds the store handles shared by the API and the worker. They are
// opened here and closed by the owning app.
type backends struct {
	db    *sql.DB
	redis *redis.Client
	blobs blobs.Store
	repos repomanager.RepositoryManager
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &backends{db: db, redis: rdb, blobs: store, repos: newRepoManager()}, nil
}

func (b *backends) close() error {
	rerr := b.redis.Close()
	if err := b.db.Close(); err != nil {
		return err
	}
	return rerr
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobs.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal, "":
		return blobs.NewLocalStore(cfg.FolderPath), nil
	case config.StorageS3:
		return blobs.NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewJSONLogger(logOutput, cfg.LogLevel)
}

// App is the HTTP API process.
type App struct {
	config   *config.Config
	logger   logging.Logger
	backends *backends
	server   *httpapi.Server
}

// NewApp opens the backing stores, applies schema migrations and builds the
// HTTP server.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := newLogger(cfg)

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := b.repos.RunMigrations(ctx, b.db); err != nil {
		_ = b.close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	sess := sessions.NewRedisStore(b.redis, cfg.SessionTTL)
	queue := thumbnails.NewRedisQueue(b.redis, cfg.QueueName, cfg.WorkerID, cfg.WorkerPollTimeout)

	us := services.NewUserService(b.db, b.repos, sess, logger)
	fs := services.NewFileService(b.db, b.repos, b.blobs, queue, logger)
	as := services.NewAppService(b.db, b.redis, b.repos)

	srv := httpapi.NewServer(cfg.EndpointAddrHTTP, logger, us, fs, as, access.NewGate(sess))

	return &App{config: cfg, logger: logger, backends: b, server: srv}, nil
}

func initSignalHandler(cancelFunc context.CancelFunc) func() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		select {
		case <-sigs:
			cancelFunc()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

// Run serves HTTP until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	stop := initSignalHandler(cancelFunc)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.server.Run(ctx)
	})

	err := g.Wait()
	if cerr := app.backends.close(); cerr != nil {
		app.logger.Error(ctx, "error closing backends", "error", cerr)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}

// WorkerApp is the thumbnail worker process.
type WorkerApp struct {
	config   *config.Config
	logger   logging.Logger
	backends *backends
	queue    *thumbnails.RedisQueue
	worker   *thumbnails.Worker
}

func NewWorkerApp(ctx context.Context, cfg *config.Config) (*WorkerApp, error) {
	logger := newLogger(cfg)

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queue := thumbnails.NewRedisQueue(b.redis, cfg.QueueName, cfg.WorkerID, cfg.WorkerPollTimeout)
	worker := thumbnails.NewWorker(queue, b.repos.Files(b.db), b.blobs, thumbnails.NewImageResizer(), logger)

	return &WorkerApp{
		config:   cfg,
		logger:   logger.With("worker_id", cfg.WorkerID),
		backends: b,
		queue:    queue,
		worker:   worker,
	}, nil
}

// Run requeues jobs this worker left unfinished and then processes jobs until
// ctx is cancelled or a termination signal arrives.
func (app *WorkerApp) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	stop := initSignalHandler(cancelFunc)
	defer stop()

	n, err := app.queue.Recover(ctx)
	if err != nil {
		app.logger.Error(ctx, "cannot requeue unfinished jobs", "error", err)
	} else if n > 0 {
		app.logger.Warn(ctx, "requeued unfinished jobs", "count", n)
	}

	if backlog, err := app.queue.Len(ctx); err == nil {
		app.logger.Info(ctx, "thumbnail queue backlog", "queue", app.config.QueueName, "backlog", backlog)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.worker.Run(ctx)
	})

	err = g.Wait()
	if cerr := app.backends.close(); cerr != nil {
		app.logger.Error(ctx, "error closing backends", "error", cerr)
	}
	return err
}
