// Package server wires the record backend together: the Postgres store and
// its migrations, the application services, the gRPC API and the HTTP
// endpoints for metrics and health.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/dmitrijs2005/dropsync/internal/server/config"
	"github.com/dmitrijs2005/dropsync/internal/server/httpapi"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dropsync/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	gs "github.com/dmitrijs2005/dropsync/internal/server/grpc"
)

// Seams for tests.
var (
	openPostgres   = repomanager.OpenPostgres
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

const tokenPurgeInterval = time.Hour

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	registry    *prometheus.Registry
	userService *services.UserService
	grpcServer  *gs.GRPCServer
	httpServer  *httpapi.Server
	purgeEvery  time.Duration
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := openPostgres(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := newRepoManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db, "dropsync"))

	us := services.NewUserService(db, m, c)
	rs := services.NewRecordService(db, m)
	ps := services.NewPhotoService(c)

	grpcServer, err := gs.NewGRPCServer(c.EndpointAddrGRPC, logger, us, rs, ps, c.SecretKey, reg)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		registry:    reg,
		userService: us,
		grpcServer:  grpcServer,
		httpServer:  httpapi.NewServer(c.EndpointAddrHTTP, httpapi.NewRouter(reg, db), logger),
		purgeEvery:  tokenPurgeInterval,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// purgeTokens drops expired refresh tokens until ctx is done.
func (app *App) purgeTokens(ctx context.Context) {
	ticker := time.NewTicker(app.purgeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.userService.PurgeExpiredTokens(ctx)
			if err != nil {
				app.logger.Warn(ctx, "token purge failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired refresh tokens purged", "count", n)
			}
		}
	}
}

// Run serves until ctx is cancelled, a termination signal arrives or one of
// the servers fails. The first server error is returned.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				app.logger.Error(ctx, "server failed", "server", name, "error", err)
				once.Do(func() { firstErr = err })
				cancelFunc()
			}
		}()
	}

	run("grpc", app.grpcServer.Run)
	run("http", app.httpServer.Run)

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.purgeTokens(ctx)
	}()

	wg.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return firstErr
}
