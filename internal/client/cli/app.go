package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/client/config"
	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/dropsync/internal/client/services"
	"github.com/dmitrijs2005/dropsync/internal/client/storage"
	"github.com/dmitrijs2005/dropsync/internal/client/syncer"
	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/dmitrijs2005/dropsync/internal/netx"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// recordService is the part of services.RecordService the REPL uses.
type recordService interface {
	Create(ctx context.Context, draft models.Draft) services.Response[*models.Record]
	GetList(ctx context.Context) services.Response[[]*models.Record]
	GetByID(ctx context.Context, id string) services.Response[*models.Record]
	Update(ctx context.Context, id string, patch models.Patch) services.Response[*models.Record]
	Delete(ctx context.Context, id string) services.Response[struct{}]
}

type syncEngine interface {
	Drain(ctx context.Context) (syncer.DrainResult, error)
	PullFromServer(ctx context.Context, kind models.Kind) (int, error)
	ForceSync(ctx context.Context) (syncer.DrainResult, error)
	Status(ctx context.Context) (models.SyncStatus, error)
	Watch(ctx context.Context, interval time.Duration, onChange func(netx.Status))
}

type photoAttacher interface {
	Attach(ctx context.Context, path string) (string, error)
}

type App struct {
	config      *config.Config
	db          *sql.DB
	authService services.AuthService
	sessions    services.SessionProvider
	records     map[models.Kind]recordService
	local       records.Repository
	engine      syncEngine
	photos      photoAttacher
	log         logging.Logger

	mu      sync.Mutex
	session *models.Session
	mode    Mode

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local database and wires every client component.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := storage.Open(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	var as services.AuthService
	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr,
		client.WithTimeout(c.RequestTimeout),
		client.WithRetryPolicy(c.RetryPolicy()),
		client.WithTokenSink(func(_, refresh string) {
			if err := as.SaveRefreshToken(context.Background(), refresh); err != nil {
				log.Warn(context.Background(), "refresh token not saved", "error", err)
			}
		}),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	as = services.NewAuthService(apiClient, db)

	oracle := netx.NewProbeOracle(c.ServerEndpointAddr, 0)
	engine := syncer.New(db, apiClient, oracle, as,
		syncer.WithLogger(log),
		syncer.WithAutoDrain(c.AutoDrainOnReconnect),
	)

	app := &App{
		config:      c,
		db:          db,
		authService: as,
		sessions:    as,
		records:     map[models.Kind]recordService{},
		local:       records.NewSQLiteRepository(db),
		engine:      engine,
		photos:      services.NewPhotoService(apiClient, oracle, log),
		log:         log,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}

	deps := services.Deps{DB: db, Remote: apiClient, Oracle: oracle, Sessions: as, Engine: engine, Logger: log}
	for _, k := range models.Kinds {
		svc, err := services.NewRecordService(k, deps)
		if err != nil {
			_ = app.Close(ctx)
			return nil, err
		}
		app.records[k] = svc
	}
	return app, nil
}

// Run resumes a cached session, starts the connectivity watcher and blocks
// in the REPL until the user exits or ctx is done.
func (a *App) Run(ctx context.Context) {
	defer a.Close(ctx)

	fmt.Fprintln(a.out, "Selamat datang di dropsync (ketik 'help' untuk daftar perintah)")

	if sess, err := a.authService.Resume(ctx); err == nil {
		a.setSession(sess)
		fmt.Fprintf(a.out, "Sesi dipulihkan untuk %s\n", sess.Username)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.engine.Watch(watchCtx, a.config.OnlineCheckInterval, a.onConnectivity)

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

// Close releases the remote client and the database.
func (a *App) Close(ctx context.Context) error {
	if a.authService != nil {
		_ = a.authService.Close(ctx)
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *App) onConnectivity(st netx.Status) {
	if st.Connected {
		a.setMode(ModeOnline)
	} else {
		a.setMode(ModeOffline)
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed && mode != "" {
		a.log.Info(context.Background(), "switched mode", "mode", string(mode))
	}
}

func (a *App) setSession(s *models.Session) {
	a.mu.Lock()
	a.session = s
	a.mu.Unlock()
}

func (a *App) isLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session != nil
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := ""
	if a.session != nil {
		s = a.session.Username + " "
	}
	s = strings.TrimSpace(s + string(a.mode))
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) service(kind models.Kind) (recordService, error) {
	svc, ok := a.records[kind]
	if !ok {
		return nil, fmt.Errorf("tidak ada layanan untuk %s", kind)
	}
	return svc, nil
}
