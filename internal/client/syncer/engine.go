// Package syncer drains the pending-operation queue against the backend and
// pulls remote records into the local store.
package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/dmitrijs2005/dropsync/internal/netx"
	"github.com/prometheus/client_golang/prometheus"
)

// SessionProvider resolves the user whose records are pulled and whose
// queued operations are replayed.
type SessionProvider interface {
	CurrentUser(ctx context.Context) (*models.Session, error)
}

// DrainResult summarizes one drain.
type DrainResult struct {
	Replayed  int
	Remaining int
	// Skipped is set when another drain was already running.
	Skipped bool
}

// Engine replays queued operations strictly in queue order. Only one drain
// runs at a time; a concurrent call returns at once with Skipped set.
type Engine struct {
	db       *sql.DB
	remote   client.Client
	oracle   netx.Oracle
	sessions SessionProvider
	log      logging.Logger
	now      func() time.Time
	metrics  *metrics

	autoDrain bool
	draining  atomic.Bool
}

type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithRegisterer registers the engine counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics = newMetrics(reg) }
}

// WithAutoDrain makes Watch drain the queue when connectivity returns.
func WithAutoDrain(enabled bool) Option {
	return func(e *Engine) { e.autoDrain = enabled }
}

func New(db *sql.DB, remote client.Client, oracle netx.Oracle, sessions SessionProvider, opts ...Option) *Engine {
	e := &Engine{
		db:       db,
		remote:   remote,
		oracle:   oracle,
		sessions: sessions,
		log:      logging.Discard(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.metrics == nil {
		e.metrics = newMetrics(prometheus.NewRegistry())
	}
	e.log = e.log.With("module", "syncer")
	return e
}

// SyncPendingOperations drains the queue, discarding the summary.
func (e *Engine) SyncPendingOperations(ctx context.Context) error {
	_, err := e.Drain(ctx)
	return err
}

// Drain replays the signed-in user's queued operations oldest first. The
// first failing replay stops the drain; it and everything after it stay
// queued. Entries made by other users on this device are left for them.
func (e *Engine) Drain(ctx context.Context) (DrainResult, error) {
	if !e.draining.CompareAndSwap(false, true) {
		e.log.Debug(ctx, "drain already running")
		return DrainResult{Skipped: true}, nil
	}
	defer e.draining.Store(false)

	if !e.oracle.IsConnected(ctx) {
		e.metrics.drains.WithLabelValues("offline").Inc()
		return DrainResult{}, common.ErrOffline
	}

	sess, err := e.sessions.CurrentUser(ctx)
	if err != nil {
		return DrainResult{}, err
	}
	ops, err := queue.NewSQLiteRepository(e.db).GetPending(ctx, sess.UserID)
	if err != nil {
		return DrainResult{}, err
	}

	var res DrainResult
	for i, op := range ops {
		if err := e.replay(ctx, op); err != nil {
			res.Remaining = len(ops) - i
			e.metrics.failed.WithLabelValues(string(op.Kind), string(op.Op)).Inc()
			e.metrics.drains.WithLabelValues("aborted").Inc()
			e.metrics.pending.Set(float64(res.Remaining))
			e.log.Warn(ctx, "drain aborted", "seq", op.Seq, "op", op.Op, "id", op.RecordID(), "remaining", res.Remaining, "error", err)
			return res, fmt.Errorf("replay %s %s #%d: %w", op.Op, op.Kind, op.Seq, err)
		}
		res.Replayed++
		e.metrics.replayed.WithLabelValues(string(op.Kind), string(op.Op)).Inc()
	}

	if err := metadata.SetTime(ctx, metadata.NewSQLiteRepository(e.db), metadata.KeyLastSync, e.now()); err != nil {
		return res, err
	}
	e.metrics.drains.WithLabelValues("ok").Inc()
	e.metrics.pending.Set(0)
	if res.Replayed > 0 {
		e.log.Info(ctx, "drain finished", "replayed", res.Replayed)
	}
	return res, nil
}

func (e *Engine) replay(ctx context.Context, op models.PendingOperation) error {
	desc, err := models.DescriptorFor(op.Kind)
	if err != nil {
		return err
	}
	id := op.RecordID()

	var rec *models.Record
	switch op.Op {
	case models.OpInsert:
		rec, err = e.remote.CreateRecord(ctx, op.Kind, desc.ShapeCreate(op.Payload))
	case models.OpUpdate:
		rec, err = e.remote.UpdateRecord(ctx, op.Kind, id, desc.ShapeUpdate(op.Payload))
	case models.OpDelete:
		err = e.remote.DeleteRecord(ctx, op.Kind, id)
		if errors.Is(err, common.ErrNotFound) {
			err = nil
		}
	default:
		err = fmt.Errorf("unknown operation %q", op.Op)
	}
	if err != nil {
		return err
	}

	return dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		q := queue.NewSQLiteRepository(tx)
		if err := q.Remove(ctx, op.Seq); err != nil {
			return err
		}
		if rec == nil {
			return nil
		}
		left, err := q.CountForRecord(ctx, op.Kind, id)
		if err != nil || left > 0 {
			return err
		}
		return settle(ctx, records.NewSQLiteRepository(tx), op.Kind, id, rec)
	})
}

// settle replaces the local row with the backend's copy, marked synced.
// Rows deleted locally in the meantime are not brought back.
func settle(ctx context.Context, repo records.Repository, kind models.Kind, localID string, rec *models.Record) error {
	if _, err := repo.GetByID(ctx, kind, localID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		return err
	}
	if rec.ID != localID {
		if err := repo.Delete(ctx, kind, localID); err != nil {
			return err
		}
	}
	f := rec.Fields()
	f[models.ColSynced] = true
	return repo.Insert(ctx, kind, f)
}

// PullFromServer upserts the owner's remote records of kind as synced.
// Rows that still have queued operations keep their local state.
func (e *Engine) PullFromServer(ctx context.Context, kind models.Kind) (int, error) {
	if !e.oracle.IsConnected(ctx) {
		return 0, common.ErrOffline
	}
	sess, err := e.sessions.CurrentUser(ctx)
	if err != nil {
		return 0, err
	}
	recs, err := e.remote.ListRecords(ctx, kind, sess.UserID)
	if err != nil {
		return 0, err
	}

	n := 0
	err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		q := queue.NewSQLiteRepository(tx)
		repo := records.NewSQLiteRepository(tx)
		for _, rec := range recs {
			left, err := q.CountForRecord(ctx, kind, rec.ID)
			if err != nil {
				return err
			}
			if left > 0 {
				continue
			}
			f := rec.Fields()
			f[models.ColSynced] = true
			if err := repo.Insert(ctx, kind, f); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.log.Info(ctx, "pulled records", "kind", string(kind), "count", n)
	return n, nil
}

// ForceSync pulls every kind and then drains the queue.
func (e *Engine) ForceSync(ctx context.Context) (DrainResult, error) {
	for _, k := range models.Kinds {
		if _, err := e.PullFromServer(ctx, k); err != nil {
			return DrainResult{}, fmt.Errorf("pull %s: %w", k, err)
		}
	}
	return e.Drain(ctx)
}

// Status reports connectivity, the signed-in user's queued work and the
// last successful drain.
func (e *Engine) Status(ctx context.Context) (models.SyncStatus, error) {
	conn := e.oracle.Check(ctx)
	st := models.SyncStatus{
		Online:    conn.Connected,
		Transport: string(conn.Transport),
		Draining:  e.draining.Load(),
	}

	sess, err := e.sessions.CurrentUser(ctx)
	if err != nil {
		return st, err
	}
	q := queue.NewSQLiteRepository(e.db)
	byKind, err := q.CountByKind(ctx, sess.UserID)
	if err != nil {
		return st, err
	}
	st.PendingByKind = byKind
	for _, n := range byKind {
		st.PendingOperations += n
	}
	total, err := q.Count(ctx)
	if err != nil {
		return st, err
	}
	st.HeldOperations = total - st.PendingOperations

	last, err := metadata.GetTime(ctx, metadata.NewSQLiteRepository(e.db), metadata.KeyLastSync)
	if err != nil {
		return st, err
	}
	st.LastSync = last
	return st, nil
}
