package syncer

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/client/client/clienttest"
	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/dropsync/internal/client/services"
	"github.com/dmitrijs2005/dropsync/internal/client/storage"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/netx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type session struct{ user *atomic.Pointer[string] }

func (s session) CurrentUser(context.Context) (*models.Session, error) {
	return &models.Session{UserID: *s.user.Load()}, nil
}

type env struct {
	db       *sql.DB
	remote   *clienttest.Remote
	online   atomic.Bool
	user     atomic.Pointer[string]
	reg      *prometheus.Registry
	engine   *Engine
	baru     *services.RecordService
	lama     *services.RecordService
	lastTick time.Time
}

func newEnv(t *testing.T, remote client.Client, opts ...Option) *env {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{db: db, reg: prometheus.NewRegistry()}
	e.signIn("officer-1")
	if fake, ok := remote.(*clienttest.Remote); ok {
		e.remote = fake
	}

	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Millisecond)
		e.lastTick = now
		return now
	}
	oracle := netx.OracleFunc(func(context.Context) netx.Status {
		if e.online.Load() {
			return netx.Status{Connected: true, Transport: netx.TransportLAN}
		}
		return netx.Status{Transport: netx.TransportNone}
	})

	opts = append([]Option{WithClock(clock), WithRegisterer(e.reg)}, opts...)
	e.engine = New(db, remote, oracle, session{&e.user}, opts...)

	deps := services.Deps{DB: db, Remote: remote, Oracle: oracle, Sessions: session{&e.user}, Engine: e.engine, Now: clock}
	e.baru, err = services.NewRecordService(models.KindNewLoan, deps)
	require.NoError(t, err)
	e.lama, err = services.NewRecordService(models.KindExistingLoan, deps)
	require.NoError(t, err)
	return e
}

func (e *env) signIn(userID string) { e.user.Store(&userID) }

func (e *env) createBaru(t *testing.T, name string) *models.Record {
	t.Helper()
	resp := e.baru.Create(context.Background(), models.NewLoanInput{Name: name, Address: "Jl. Melati 3", Principal: 1000000})
	require.True(t, resp.Success(), resp.Message())
	return resp.Data
}

func (e *env) pending(t *testing.T) []models.PendingOperation {
	t.Helper()
	ops, err := queue.NewSQLiteRepository(e.db).GetPending(context.Background(), "officer-1")
	require.NoError(t, err)
	return ops
}

func (e *env) local(t *testing.T, kind models.Kind, id string) (*models.Record, error) {
	t.Helper()
	return records.NewSQLiteRepository(e.db).GetByID(context.Background(), kind, id)
}

func TestDrain_OfflineFailsWithoutTouchingQueue(t *testing.T) {
	e := newEnv(t, clienttest.New())
	e.createBaru(t, "Siti Aminah")

	_, err := e.engine.Drain(context.Background())
	require.ErrorIs(t, err, common.ErrOffline)
	assert.Len(t, e.pending(t), 1)
	assert.Empty(t, e.remote.Calls())
}

func TestDrain_ReplaysInQueueOrder(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()

	a := e.createBaru(t, "Anak Agung")
	b := e.createBaru(t, "Bambang")
	require.True(t, e.baru.Update(ctx, a.ID, models.Patch{Principal: models.Float64(2000000)}).Success())
	require.True(t, e.baru.Delete(ctx, b.ID).Success())
	c := e.lama.Create(ctx, models.ExistingLoanInput{Name: "Cahya", Address: "Desa Ubud", Balance: 500000}).Data
	require.Len(t, e.pending(t), 5)

	e.online.Store(true)
	res, err := e.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Replayed: 5}, res)

	assert.Equal(t, []string{
		"create:" + a.ID, "create:" + b.ID, "update:" + a.ID, "delete:" + b.ID, "create:" + c.ID,
	}, e.remote.Ops())
	assert.Empty(t, e.pending(t))

	gotA, err := e.local(t, models.KindNewLoan, a.ID)
	require.NoError(t, err)
	assert.True(t, gotA.Synced)
	assert.Equal(t, 2400000.0, *gotA.Balance)

	_, err = e.local(t, models.KindNewLoan, b.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
	_, onServer := e.remote.Stored(models.KindNewLoan, b.ID)
	assert.False(t, onServer)

	gotC, err := e.local(t, models.KindExistingLoan, c.ID)
	require.NoError(t, err)
	assert.True(t, gotC.Synced)

	st, err := e.engine.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.LastSync)
	assert.True(t, e.lastTick.Equal(*st.LastSync))

	assert.Equal(t, 2.0, testutil.ToFloat64(e.engine.metrics.replayed.WithLabelValues("new_loan", "INSERT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.engine.metrics.drains.WithLabelValues("ok")))
}

func TestDrain_InsertCarriesSnapshotWithoutDerivedFigures(t *testing.T) {
	e := newEnv(t, clienttest.New())
	a := e.createBaru(t, "Siti Aminah")

	e.online.Store(true)
	_, err := e.engine.Drain(context.Background())
	require.NoError(t, err)

	calls := e.remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, a.ID, calls[0].Payload.String(models.ColID))
	assert.Equal(t, "officer-1", calls[0].Payload.String(models.ColOwnerID))
	_, hasSavings := calls[0].Payload[models.ColSavings]
	assert.False(t, hasSavings)

	stored, ok := e.remote.Stored(models.KindNewLoan, a.ID)
	require.True(t, ok)
	assert.Equal(t, 50000.0, stored[models.ColSavings])
}

func TestDrain_AbortsOnFirstFailure(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()

	a := e.createBaru(t, "Anak Agung")
	b := e.createBaru(t, "Bambang")
	c := e.createBaru(t, "Cahya Dewi")

	e.online.Store(true)
	e.remote.FailFor(b.ID, client.ErrUnavailable)

	res, err := e.engine.Drain(ctx)
	require.ErrorIs(t, err, client.ErrUnavailable)
	assert.Equal(t, DrainResult{Replayed: 1, Remaining: 2}, res)

	left := e.pending(t)
	require.Len(t, left, 2)
	assert.Equal(t, b.ID, left[0].RecordID())
	assert.Equal(t, c.ID, left[1].RecordID())

	gotA, _ := e.local(t, models.KindNewLoan, a.ID)
	gotB, _ := e.local(t, models.KindNewLoan, b.ID)
	gotC, _ := e.local(t, models.KindNewLoan, c.ID)
	assert.True(t, gotA.Synced)
	assert.False(t, gotB.Synced)
	assert.False(t, gotC.Synced)
	assert.Equal(t, []string{"create:" + a.ID, "create:" + b.ID}, e.remote.Ops(), "nothing after the failure is tried")

	st, err := e.engine.Status(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.LastSync)
	assert.Equal(t, 1.0, testutil.ToFloat64(e.engine.metrics.failed.WithLabelValues("new_loan", "INSERT")))

	e.remote.FailFor(b.ID, nil)
	res, err = e.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Replayed)
	assert.Empty(t, e.pending(t))
}

func TestDrain_RowStaysUnsyncedWhileLaterEntriesRemain(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()

	a := e.createBaru(t, "Anak Agung")
	require.True(t, e.baru.Update(ctx, a.ID, models.Patch{Name: models.String("Anak Agung Gede")}).Success())

	e.online.Store(true)
	e.remote.FailOn("update", a.ID, client.ErrUnavailable)

	res, err := e.engine.Drain(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, res.Replayed)

	got, err := e.local(t, models.KindNewLoan, a.ID)
	require.NoError(t, err)
	assert.False(t, got.Synced)
	assert.Equal(t, "Anak Agung Gede", got.Name, "local edit is not overwritten by the insert result")
}

func TestDrain_UpdateThenDeleteOfSyncedRecord(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()

	e.online.Store(true)
	a := e.createBaru(t, "Anak Agung")
	e.online.Store(false)

	require.True(t, e.baru.Update(ctx, a.ID, models.Patch{Address: models.String("Jl. Kenanga 9")}).Success())
	require.True(t, e.baru.Delete(ctx, a.ID).Success())

	e.online.Store(true)
	_, err := e.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"create:" + a.ID, "update:" + a.ID, "delete:" + a.ID}, e.remote.Ops())

	_, onServer := e.remote.Stored(models.KindNewLoan, a.ID)
	assert.False(t, onServer)
	_, err = e.local(t, models.KindNewLoan, a.ID)
	require.ErrorIs(t, err, common.ErrNotFound, "replayed update does not resurrect the row")
}

func TestDrain_DeleteOfMissingRemoteRecordSucceeds(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()
	_, err := queue.NewSQLiteRepository(e.db).Add(ctx, models.KindExistingLoan, models.OpDelete, "officer-1", models.Fields{models.ColID: "gone"})
	require.NoError(t, err)

	e.online.Store(true)
	e.remote.FailOn("delete", "gone", common.ErrNotFound)
	res, err := e.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
}

// blockingRemote parks the first create until released.
type blockingRemote struct {
	*clienttest.Remote
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRemote) CreateRecord(ctx context.Context, kind models.Kind, payload models.Fields) (*models.Record, error) {
	b.once.Do(func() {
		b.entered <- struct{}{}
		<-b.release
	})
	return b.Remote.CreateRecord(ctx, kind, payload)
}

func TestDrain_HoldsEntriesOfOtherUsers(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()
	a := e.createBaru(t, "Siti Aminah")

	e.signIn("officer-2")
	e.online.Store(true)
	res, err := e.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Replayed)
	assert.Empty(t, e.remote.Ops())

	st, err := e.engine.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.PendingOperations)
	assert.Equal(t, 1, st.HeldOperations)

	e.signIn("officer-1")
	res, err = e.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Equal(t, []string{"create:" + a.ID}, e.remote.Ops())

	stored, ok := e.remote.Stored(models.KindNewLoan, a.ID)
	require.True(t, ok)
	assert.Equal(t, "officer-1", stored[models.ColOwnerID])
}

func TestDrain_ConcurrentCallIsSkipped(t *testing.T) {
	br := &blockingRemote{Remote: clienttest.New(), entered: make(chan struct{}), release: make(chan struct{})}
	e := newEnv(t, br)
	e.remote = br.Remote
	e.createBaru(t, "Siti Aminah")
	e.online.Store(true)

	done := make(chan DrainResult)
	go func() {
		res, _ := e.engine.Drain(context.Background())
		done <- res
	}()
	<-br.entered

	res, err := e.engine.Drain(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	st, err := e.engine.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Draining)

	close(br.release)
	first := <-done
	assert.Equal(t, 1, first.Replayed)
	assert.Len(t, br.Remote.Calls(), 1)
}

func TestPullFromServer_KeepsQueuedRows(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()
	queuedRec := e.createBaru(t, "Siti Aminah")

	e.remote.Put(models.KindNewLoan, models.Fields{
		models.ColID: "srv-1", models.ColOwnerID: "officer-1", models.ColName: "Remote",
		models.ColAddress: "Jl. Mawar", models.ColPrincipal: 500000.0, models.ColCreatedAt: "2024-01-01T00:00:00Z",
	})
	e.remote.Put(models.KindNewLoan, models.Fields{
		models.ColID: queuedRec.ID, models.ColOwnerID: "officer-1", models.ColName: "Stale",
		models.ColAddress: "Jl. Lama", models.ColPrincipal: 500000.0, models.ColCreatedAt: "2023-01-01T00:00:00Z",
	})

	_, err := e.engine.PullFromServer(ctx, models.KindNewLoan)
	require.ErrorIs(t, err, common.ErrOffline)

	e.online.Store(true)
	n, err := e.engine.PullFromServer(ctx, models.KindNewLoan)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := e.local(t, models.KindNewLoan, "srv-1")
	require.NoError(t, err)
	assert.True(t, got.Synced)
	assert.Equal(t, 25000.0, *got.Installment)

	kept, err := e.local(t, models.KindNewLoan, queuedRec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", kept.Name)
}

func TestForceSync_PullsThenDrains(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()
	a := e.createBaru(t, "Siti Aminah")
	e.remote.Put(models.KindExistingLoan, models.Fields{
		models.ColID: "lama-1", models.ColOwnerID: "officer-1", models.ColName: "Wayan",
		models.ColAddress: "Desa Ubud", models.ColBalance: 100.0, models.ColCreatedAt: "2024-01-01T00:00:00Z",
	})

	e.online.Store(true)
	res, err := e.engine.ForceSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Replayed)
	assert.Equal(t, []string{"list:", "list:", "create:" + a.ID}, e.remote.Ops())

	_, err = e.local(t, models.KindExistingLoan, "lama-1")
	require.NoError(t, err)
}

func TestStatus(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()

	st, err := e.engine.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Online)
	assert.Equal(t, "none", st.Transport)
	assert.Zero(t, st.PendingOperations)
	assert.Nil(t, st.LastSync)

	e.createBaru(t, "Siti Aminah")
	e.createBaru(t, "Bambang")
	e.lama.Create(ctx, models.ExistingLoanInput{Name: "Cahya", Address: "Desa Ubud"})

	e.online.Store(true)
	st, err = e.engine.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Online)
	assert.Equal(t, "lan", st.Transport)
	assert.Equal(t, 3, st.PendingOperations)
	assert.Equal(t, map[models.Kind]int{models.KindNewLoan: 2, models.KindExistingLoan: 1}, st.PendingByKind)
	assert.False(t, st.Draining)
}

func TestRecordServiceDelegatesToEngine(t *testing.T) {
	e := newEnv(t, clienttest.New())
	ctx := context.Background()
	e.createBaru(t, "Siti Aminah")

	resp := e.baru.SyncPendingOperations(ctx)
	require.ErrorIs(t, resp.Err, common.ErrOffline)

	e.online.Store(true)
	require.True(t, e.baru.SyncPendingOperations(ctx).Success())

	st := e.lama.SyncStatus(ctx)
	require.True(t, st.Success())
	assert.Zero(t, st.Data.PendingOperations)
	assert.NotNil(t, st.Data.LastSync)
}
