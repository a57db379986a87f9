package services

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/client/client/clienttest"
	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/netx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
}

type sessionFunc func(ctx context.Context) (*models.Session, error)

func (f sessionFunc) CurrentUser(ctx context.Context) (*models.Session, error) { return f(ctx) }

type fakeEngine struct {
	err    error
	calls  int
	status models.SyncStatus
}

func (e *fakeEngine) SyncPendingOperations(ctx context.Context) error {
	e.calls++
	return e.err
}

func (e *fakeEngine) Status(ctx context.Context) (models.SyncStatus, error) {
	return e.status, e.err
}

type harness struct {
	db     *sql.DB
	remote *clienttest.Remote
	online atomic.Bool
	engine *fakeEngine
	svc    *RecordService
	user   string
}

func newHarness(t *testing.T, kind models.Kind) *harness {
	t.Helper()
	h := &harness{db: setupDB(t), remote: clienttest.New(), engine: &fakeEngine{}, user: "officer-1"}

	now := fixedNow()
	clock := func() time.Time {
		now = now.Add(time.Millisecond)
		return now
	}

	svc, err := NewRecordService(kind, Deps{
		DB:     h.db,
		Remote: h.remote,
		Oracle: netx.OracleFunc(func(context.Context) netx.Status {
			return netx.Status{Connected: h.online.Load()}
		}),
		Sessions: sessionFunc(func(context.Context) (*models.Session, error) {
			return &models.Session{UserID: h.user}, nil
		}),
		Engine: h.engine,
		Now:    clock,
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) pending(t *testing.T) []models.PendingOperation {
	t.Helper()
	ops, err := queue.NewSQLiteRepository(h.db).GetPending(context.Background(), "officer-1")
	require.NoError(t, err)
	return ops
}

func (h *harness) local(t *testing.T, id string) *models.Record {
	t.Helper()
	rec, err := records.NewSQLiteRepository(h.db).GetByID(context.Background(), h.svc.Kind(), id)
	require.NoError(t, err)
	return rec
}

func siti() models.NewLoanInput {
	return models.NewLoanInput{Name: "Siti Aminah", Address: "Jl. Melati 3", Principal: 1000000}
}

func TestNewRecordService_Validation(t *testing.T) {
	_, err := NewRecordService(models.Kind("x"), Deps{})
	require.ErrorIs(t, err, common.ErrInvalidKind)

	_, err = NewRecordService(models.KindNewLoan, Deps{})
	require.Error(t, err)
}

func TestCreate_OfflineIsDurable(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()

	resp := h.svc.Create(ctx, siti())
	require.True(t, resp.Success(), resp.Message())
	assert.True(t, resp.Queued)

	rec := resp.Data
	assert.Regexp(t, `^drop_baru_\d+_[0-9a-f]{9}$`, rec.ID)
	assert.Equal(t, "officer-1", rec.OwnerID)
	assert.Equal(t, 50000.0, *rec.Installment)
	assert.Equal(t, 50000.0, *rec.Savings)
	assert.Equal(t, 1200000.0, *rec.Balance)

	got := h.svc.GetByID(ctx, rec.ID)
	require.True(t, got.Success())
	assert.False(t, got.Data.Synced)
	assert.Equal(t, 1200000.0, *got.Data.Balance)

	list := h.svc.GetList(ctx)
	require.True(t, list.Success())
	require.Len(t, list.Data, 1)

	ops := h.pending(t)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OpInsert, ops[0].Op)
	assert.Equal(t, rec.ID, ops[0].RecordID())
	assert.Empty(t, h.remote.Calls())
}

func TestCreate_OnlineMirrorsServerRecord(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	h.online.Store(true)
	ctx := context.Background()

	resp := h.svc.Create(ctx, siti())
	require.True(t, resp.Success(), resp.Message())
	assert.False(t, resp.Queued)
	assert.True(t, resp.Data.Synced)

	calls := h.remote.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "create", calls[0].Op)
	_, hasBalance := calls[0].Payload[models.ColBalance]
	assert.False(t, hasBalance, "derived figures are computed by the backend")

	rec := h.local(t, resp.Data.ID)
	assert.True(t, rec.Synced)
	assert.Equal(t, 50000.0, *rec.Installment)
	assert.Empty(t, h.pending(t))
}

func TestCreate_RemoteFailureFallsBackOffline(t *testing.T) {
	h := newHarness(t, models.KindExistingLoan)
	h.online.Store(true)
	h.remote.Err = client.ErrUnavailable

	resp := h.svc.Create(context.Background(), models.ExistingLoanInput{
		Name: "Wayan", Address: "Desa Ubud", Balance: 750000, Installment: 25000, Savings: 10000,
	})
	require.True(t, resp.Success(), resp.Message())
	assert.True(t, resp.Queued)
	assert.Regexp(t, `^drop_lama_`, resp.Data.ID)
	assert.False(t, h.local(t, resp.Data.ID).Synced)
	assert.Len(t, h.pending(t), 1)
}

func TestCreate_Rejections(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()

	resp := h.svc.Create(ctx, models.NewLoanInput{Name: "Siti", Address: "Jl. A", Principal: 5000})
	require.ErrorIs(t, resp.Err, common.ErrValidation)

	h.svc.sessions = sessionFunc(func(context.Context) (*models.Session, error) { return nil, common.ErrUnauthorized })
	resp = h.svc.Create(ctx, siti())
	require.ErrorIs(t, resp.Err, common.ErrUnauthorized)

	assert.Empty(t, h.pending(t))
}

func TestGetList_OnlineMirrorsButKeepsPendingRows(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()

	offline := h.svc.Create(ctx, siti()).Data

	h.remote.Put(models.KindNewLoan, models.Fields{
		models.ColID: "srv-1", models.ColOwnerID: "officer-1", models.ColName: "Remote Satu",
		models.ColAddress: "Jl. Mawar", models.ColPrincipal: 200000.0, models.ColCreatedAt: "2024-01-01T00:00:00Z",
	})
	h.remote.Put(models.KindNewLoan, models.Fields{
		models.ColID: offline.ID, models.ColOwnerID: "officer-1", models.ColName: "Stale",
		models.ColAddress: "Jl. Lama", models.ColPrincipal: 300000.0, models.ColCreatedAt: "2023-01-01T00:00:00Z",
	})
	h.remote.Put(models.KindNewLoan, models.Fields{
		models.ColID: "other", models.ColOwnerID: "officer-2", models.ColName: "Orang Lain",
		models.ColAddress: "Jl. X", models.ColPrincipal: 200000.0, models.ColCreatedAt: "2024-01-02T00:00:00Z",
	})

	h.online.Store(true)
	list := h.svc.GetList(ctx)
	require.True(t, list.Success(), list.Message())
	require.Len(t, list.Data, 2)
	assert.Equal(t, "srv-1", list.Data[0].ID)

	assert.True(t, h.local(t, "srv-1").Synced)
	assert.Equal(t, 240000.0, *h.local(t, "srv-1").Balance)

	kept := h.local(t, offline.ID)
	assert.Equal(t, "Siti Aminah", kept.Name, "queued row is not overwritten")
	assert.False(t, kept.Synced)

	for _, rec := range list.Data {
		if rec.ID == offline.ID {
			assert.Equal(t, "Siti Aminah", rec.Name)
			assert.False(t, rec.Synced, "queued row is listed as pending")
			continue
		}
		assert.True(t, rec.Synced)
	}
}

func TestGetList_RemoteErrorFallsBackToLocal(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()
	h.svc.Create(ctx, siti())

	h.online.Store(true)
	h.remote.Err = client.ErrUnavailable
	list := h.svc.GetList(ctx)
	require.True(t, list.Success())
	assert.Len(t, list.Data, 1)
}

func TestGetByID_OfflineMiss(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	resp := h.svc.GetByID(context.Background(), "drop_baru_1_abc")
	require.ErrorIs(t, resp.Err, common.ErrNotFound)
	assert.Equal(t, "Data tidak ditemukan", resp.Message())
}

func TestGetByID_OnlineMirrorsThenFallsBack(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()
	h.remote.Put(models.KindNewLoan, models.Fields{
		models.ColID: "srv-1", models.ColOwnerID: "officer-1", models.ColName: "Remote",
		models.ColAddress: "Jl. Mawar", models.ColPrincipal: 200000.0, models.ColCreatedAt: "2024-01-01T00:00:00Z",
	})

	h.online.Store(true)
	got := h.svc.GetByID(ctx, "srv-1")
	require.True(t, got.Success())
	assert.True(t, h.local(t, "srv-1").Synced)

	h.remote.Err = client.ErrUnavailable
	got = h.svc.GetByID(ctx, "srv-1")
	require.True(t, got.Success())
	assert.Equal(t, "Remote", got.Data.Name)
}

func TestUpdate_OfflineQueuesChangedFieldsOnly(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	resp := h.svc.Update(ctx, rec.ID, models.Patch{Name: models.String("Siti Rahma")})
	require.True(t, resp.Success(), resp.Message())
	assert.True(t, resp.Queued)
	assert.Equal(t, "Siti Rahma", resp.Data.Name)
	assert.False(t, resp.Data.Synced)

	ops := h.pending(t)
	require.Len(t, ops, 2)
	assert.Equal(t, models.OpUpdate, ops[1].Op)
	assert.ElementsMatch(t, []string{models.ColID, models.ColName, models.ColUpdatedAt}, ops[1].Payload.Keys())
}

func TestUpdate_PrincipalRecomputesLocalFigures(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	resp := h.svc.Update(ctx, rec.ID, models.Patch{Principal: models.Float64(2000000)})
	require.True(t, resp.Success(), resp.Message())
	assert.Equal(t, 2400000.0, *resp.Data.Balance)
	assert.Equal(t, 100000.0, *resp.Data.Installment)
}

func TestUpdate_MissingRecordIsNotQueued(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	resp := h.svc.Update(context.Background(), "nope", models.Patch{Name: models.String("Siti Rahma")})
	require.ErrorIs(t, resp.Err, common.ErrNotFound)
	assert.Empty(t, h.pending(t))
}

func TestUpdate_ExistingLoanRejectsPrincipal(t *testing.T) {
	h := newHarness(t, models.KindExistingLoan)
	ctx := context.Background()
	rec := h.svc.Create(ctx, models.ExistingLoanInput{Name: "Cahya", Address: "Desa Ubud", Balance: 500000}).Data
	require.NotNil(t, rec)
	assert.Nil(t, rec.Principal)

	resp := h.svc.Update(ctx, rec.ID, models.Patch{Principal: models.Float64(700000)})
	require.ErrorIs(t, resp.Err, common.ErrValidation)
	assert.Nil(t, h.local(t, rec.ID).Principal)
	assert.Len(t, h.pending(t), 1)
}

func TestUpdate_OnlineWithQueuedEntriesStaysOnQueue(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	h.online.Store(true)
	resp := h.svc.Update(ctx, rec.ID, models.Patch{Address: models.String("Jl. Kenanga 9")})
	require.True(t, resp.Success(), resp.Message())
	assert.True(t, resp.Queued)
	assert.Empty(t, h.remote.Calls(), "insert must reach the backend first")
	assert.Len(t, h.pending(t), 2)
}

func TestUpdate_OnlineSendsAcceptedColumns(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	h.online.Store(true)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	resp := h.svc.Update(ctx, rec.ID, models.Patch{Principal: models.Float64(400000)})
	require.True(t, resp.Success(), resp.Message())
	assert.True(t, resp.Data.Synced)
	assert.Equal(t, 20000.0, *h.local(t, rec.ID).Installment)

	calls := h.remote.Calls()
	require.Len(t, calls, 2)
	assert.ElementsMatch(t, []string{models.ColPrincipal, models.ColUpdatedAt}, calls[1].Payload.Keys())
}

func TestDelete_LocalRowGoesFirst(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	h.online.Store(true)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	h.online.Store(false)
	resp := h.svc.Delete(ctx, rec.ID)
	require.True(t, resp.Success(), resp.Message())
	assert.True(t, resp.Queued)

	_, err := records.NewSQLiteRepository(h.db).GetByID(ctx, models.KindNewLoan, rec.ID)
	require.ErrorIs(t, err, common.ErrNotFound)

	_, stillRemote := h.remote.Stored(models.KindNewLoan, rec.ID)
	assert.True(t, stillRemote)

	ops := h.pending(t)
	require.Len(t, ops, 1)
	assert.Equal(t, models.OpDelete, ops[0].Op)
	assert.Equal(t, models.Fields{models.ColID: rec.ID}, ops[0].Payload)
}

func TestDelete_QueueFailureKeepsLocalRow(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	_, err := h.db.ExecContext(ctx, `DROP TABLE sync_queue`)
	require.NoError(t, err)

	resp := h.svc.Delete(ctx, rec.ID)
	require.Error(t, resp.Err)
	assert.False(t, resp.Success())

	kept, err := records.NewSQLiteRepository(h.db).GetByID(ctx, models.KindNewLoan, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", kept.Name)
}

func TestOfflineReads_HideOtherUsersRows(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	h.user = "officer-2"
	list := h.svc.GetList(ctx)
	require.True(t, list.Success())
	assert.Empty(t, list.Data)

	require.ErrorIs(t, h.svc.GetByID(ctx, rec.ID).Err, common.ErrNotFound)
	require.ErrorIs(t, h.svc.Update(ctx, rec.ID, models.Patch{Name: models.String("Bukan Saya")}).Err, common.ErrNotFound)
	require.ErrorIs(t, h.svc.Delete(ctx, rec.ID).Err, common.ErrNotFound)

	h.user = "officer-1"
	got := h.svc.GetByID(ctx, rec.ID)
	require.True(t, got.Success())
	assert.Equal(t, "Siti Aminah", got.Data.Name)
	assert.Len(t, h.pending(t), 1)
}

func TestDelete_Online(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	h.online.Store(true)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	resp := h.svc.Delete(ctx, rec.ID)
	require.True(t, resp.Success())
	assert.False(t, resp.Queued)

	_, stillRemote := h.remote.Stored(models.KindNewLoan, rec.ID)
	assert.False(t, stillRemote)
	assert.Empty(t, h.pending(t))
}

func TestDelete_RemoteFailureQueues(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	h.online.Store(true)
	ctx := context.Background()
	rec := h.svc.Create(ctx, siti()).Data

	h.remote.FailFor(rec.ID, client.ErrUnavailable)
	resp := h.svc.Delete(ctx, rec.ID)
	require.True(t, resp.Success())
	assert.True(t, resp.Queued)
	assert.Len(t, h.pending(t), 1)
}

func TestSyncDelegation(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	ctx := context.Background()

	require.True(t, h.svc.SyncPendingOperations(ctx).Success())
	assert.Equal(t, 1, h.engine.calls)

	h.engine.status = models.SyncStatus{Online: true, PendingOperations: 3}
	st := h.svc.SyncStatus(ctx)
	require.True(t, st.Success())
	assert.Equal(t, 3, st.Data.PendingOperations)

	h.engine.err = common.ErrOffline
	resp := h.svc.SyncPendingOperations(ctx)
	require.ErrorIs(t, resp.Err, common.ErrOffline)
	assert.Equal(t, "Tidak ada koneksi internet", resp.Message())

	h.svc.engine = nil
	require.ErrorIs(t, h.svc.SyncPendingOperations(ctx).Err, common.ErrInternal)
}

func TestOperationsRecoverFromPanics(t *testing.T) {
	h := newHarness(t, models.KindNewLoan)
	h.svc.sessions = sessionFunc(func(context.Context) (*models.Session, error) { panic("boom") })

	resp := h.svc.Create(context.Background(), siti())
	require.ErrorIs(t, resp.Err, common.ErrInternal)
	assert.Contains(t, resp.Err.Error(), "boom")
}

func TestResponse_Message(t *testing.T) {
	assert.Equal(t, "Berhasil", ok(1).Message())
	assert.Equal(t, "Data disimpan offline dan akan disinkronkan", queued(1).Message())
	assert.Equal(t, "Sesi berakhir, silakan login kembali", fail[int](client.ErrUnauthorized).Message())
	assert.Equal(t, "Gagal: x", fail[int](errors.New("x")).Message())
}
