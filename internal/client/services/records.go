package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/queue"
	"github.com/dmitrijs2005/dropsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/dmitrijs2005/dropsync/internal/netx"
)

// SyncEngine is the part of the sync engine the record service delegates to.
type SyncEngine interface {
	SyncPendingOperations(ctx context.Context) error
	Status(ctx context.Context) (models.SyncStatus, error)
}

// Deps are the collaborators shared by all record services.
type Deps struct {
	DB       *sql.DB
	Remote   client.Client
	Oracle   netx.Oracle
	Sessions SessionProvider
	Engine   SyncEngine
	Logger   logging.Logger
	Now      func() time.Time
}

// RecordService is the entry point for reads and writes of one record kind.
// Writes go to the backend when it is reachable and fall back to a local
// write plus a queued operation otherwise.
type RecordService struct {
	desc     models.Descriptor
	db       *sql.DB
	remote   client.Client
	oracle   netx.Oracle
	sessions SessionProvider
	engine   SyncEngine
	log      logging.Logger
	now      func() time.Time
}

// NewRecordService returns the service for kind.
func NewRecordService(kind models.Kind, deps Deps) (*RecordService, error) {
	desc, err := models.DescriptorFor(kind)
	if err != nil {
		return nil, err
	}
	if deps.DB == nil || deps.Remote == nil || deps.Oracle == nil || deps.Sessions == nil {
		return nil, errors.New("record service: missing dependency")
	}
	s := &RecordService{
		desc:     desc,
		db:       deps.DB,
		remote:   deps.Remote,
		oracle:   deps.Oracle,
		sessions: deps.Sessions,
		engine:   deps.Engine,
		log:      deps.Logger,
		now:      deps.Now,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = s.log.With("kind", string(kind))
	return s, nil
}

// Kind is the record kind this service handles.
func (s *RecordService) Kind() models.Kind { return s.desc.Kind }

func (s *RecordService) recordsRepo(db dbx.DBTX) records.Repository {
	return records.NewSQLiteRepository(db)
}

func (s *RecordService) queueRepo(db dbx.DBTX) queue.Repository {
	return queue.NewSQLiteRepository(db).WithClock(s.now)
}

// online reports whether a remote attempt should be made for id. Records
// with queued operations stay on the queue so replay order is kept.
func (s *RecordService) online(ctx context.Context, id string) (bool, error) {
	if !s.oracle.IsConnected(ctx) {
		return false, nil
	}
	if id == "" {
		return true, nil
	}
	n, err := s.queueRepo(s.db).CountForRecord(ctx, s.desc.Kind, id)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// Create stores a new record built from draft.
func (s *RecordService) Create(ctx context.Context, draft models.Draft) (resp Response[*models.Record]) {
	defer recoverResponse(&resp)

	if err := draft.Validate(); err != nil {
		return fail[*models.Record](err)
	}
	sess, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return fail[*models.Record](err)
	}

	now := s.now()
	ts := common.FormatTimestamp(now)
	f := draft.Fields()
	f[models.ColID] = s.desc.NewID(now)
	f[models.ColOwnerID] = sess.UserID
	f[models.ColCreatedAt] = ts
	f[models.ColUpdatedAt] = ts

	local, err := s.desc.ShapeLocal(f)
	if err != nil {
		return fail[*models.Record](err)
	}

	if s.oracle.IsConnected(ctx) {
		rec, err := s.remote.CreateRecord(ctx, s.desc.Kind, s.desc.ShapeCreate(local))
		if err == nil {
			if err := s.mirror(ctx, s.recordsRepo(s.db), rec); err != nil {
				return fail[*models.Record](err)
			}
			rec.Synced = true
			return ok(rec)
		}
		s.log.Warn(ctx, "remote create failed, storing offline", "id", local.String(models.ColID), "error", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		row := local.Clone()
		row[models.ColSynced] = false
		if err := s.recordsRepo(tx).Insert(ctx, s.desc.Kind, row); err != nil {
			return err
		}
		_, err := s.queueRepo(tx).Add(ctx, s.desc.Kind, models.OpInsert, sess.UserID, local)
		return err
	})
	if err != nil {
		return fail[*models.Record](err)
	}

	rec, err := models.RecordFromFields(local)
	if err != nil {
		return fail[*models.Record](err)
	}
	return queued(rec)
}

// GetList returns the signed-in user's records, from the backend when
// reachable and from the local store otherwise.
func (s *RecordService) GetList(ctx context.Context) (resp Response[[]*models.Record]) {
	defer recoverResponse(&resp)

	sess, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return fail[[]*models.Record](err)
	}
	if recs, err := s.listRemote(ctx, sess.UserID); err == nil {
		return ok(recs)
	} else if !errors.Is(err, common.ErrOffline) {
		s.log.Warn(ctx, "remote list failed, reading local store", "error", err)
	}

	recs, err := s.recordsRepo(s.db).GetAll(ctx, s.desc.Kind, sess.UserID)
	if err != nil {
		return fail[[]*models.Record](err)
	}
	return ok(recs)
}

// listRemote mirrors the backend's list locally. Records with queued
// operations are reported in their local state, or left out when they were
// deleted locally.
func (s *RecordService) listRemote(ctx context.Context, owner string) ([]*models.Record, error) {
	if !s.oracle.IsConnected(ctx) {
		return nil, common.ErrOffline
	}
	recs, err := s.remote.ListRecords(ctx, s.desc.Kind, owner)
	if err != nil {
		return nil, err
	}
	result := make([]*models.Record, 0, len(recs))
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.recordsRepo(tx)
		q := s.queueRepo(tx)
		for _, rec := range recs {
			pending, err := q.CountForRecord(ctx, s.desc.Kind, rec.ID)
			if err != nil {
				return err
			}
			if pending == 0 {
				if err := s.mirror(ctx, repo, rec); err != nil {
					return err
				}
				rec.Synced = true
				result = append(result, rec)
				continue
			}
			local, err := s.ownedRow(ctx, repo, rec.ID, owner)
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			result = append(result, local)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ownedRow reads the local row with id, hiding rows of other users.
func (s *RecordService) ownedRow(ctx context.Context, repo records.Repository, id, owner string) (*models.Record, error) {
	rec, err := repo.GetByID(ctx, s.desc.Kind, id)
	if err != nil {
		return nil, err
	}
	if rec.OwnerID != owner {
		return nil, common.ErrNotFound
	}
	return rec, nil
}

// GetByID returns one record. An offline miss is reported as
// common.ErrNotFound.
func (s *RecordService) GetByID(ctx context.Context, id string) (resp Response[*models.Record]) {
	defer recoverResponse(&resp)

	sess, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return fail[*models.Record](err)
	}
	on, err := s.online(ctx, id)
	if err != nil {
		return fail[*models.Record](err)
	}
	if on {
		rec, err := s.remote.GetRecord(ctx, s.desc.Kind, id)
		if err == nil {
			if err := s.mirror(ctx, s.recordsRepo(s.db), rec); err != nil {
				return fail[*models.Record](err)
			}
			rec.Synced = true
			return ok(rec)
		}
		s.log.Warn(ctx, "remote get failed, reading local store", "id", id, "error", err)
	}

	rec, err := s.ownedRow(ctx, s.recordsRepo(s.db), id, sess.UserID)
	if err != nil {
		return fail[*models.Record](err)
	}
	return ok(rec)
}

// Update applies patch to the record with id.
func (s *RecordService) Update(ctx context.Context, id string, patch models.Patch) (resp Response[*models.Record]) {
	defer recoverResponse(&resp)

	if err := patch.Validate(); err != nil {
		return fail[*models.Record](err)
	}
	changes := patch.Fields()
	if err := s.desc.CheckUpdate(changes); err != nil {
		return fail[*models.Record](err)
	}
	changes[models.ColUpdatedAt] = common.FormatTimestamp(s.now())
	sess, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return fail[*models.Record](err)
	}

	local, err := s.desc.ShapeLocal(changes)
	if err != nil {
		return fail[*models.Record](err)
	}

	on, err := s.online(ctx, id)
	if err != nil {
		return fail[*models.Record](err)
	}
	if on {
		rec, err := s.remote.UpdateRecord(ctx, s.desc.Kind, id, s.desc.ShapeUpdate(local))
		if err == nil {
			if err := s.mirror(ctx, s.recordsRepo(s.db), rec); err != nil {
				return fail[*models.Record](err)
			}
			rec.Synced = true
			return ok(rec)
		}
		if errors.Is(err, common.ErrNotFound) {
			return fail[*models.Record](err)
		}
		s.log.Warn(ctx, "remote update failed, storing offline", "id", id, "error", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.recordsRepo(tx)
		if _, err := s.ownedRow(ctx, repo, id, sess.UserID); err != nil {
			return err
		}
		row := local.Clone()
		row[models.ColSynced] = false
		if err := repo.Update(ctx, s.desc.Kind, id, row); err != nil {
			return err
		}
		payload := local.Clone()
		payload[models.ColID] = id
		_, err := s.queueRepo(tx).Add(ctx, s.desc.Kind, models.OpUpdate, sess.UserID, payload)
		return err
	})
	if err != nil {
		return fail[*models.Record](err)
	}

	rec, err := s.recordsRepo(s.db).GetByID(ctx, s.desc.Kind, id)
	if err != nil {
		return fail[*models.Record](err)
	}
	return queued(rec)
}

// Delete removes the record with id. When the backend cannot confirm, the
// local row goes away at once together with queueing the delete.
func (s *RecordService) Delete(ctx context.Context, id string) (resp Response[struct{}]) {
	defer recoverResponse(&resp)

	sess, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return fail[struct{}](err)
	}
	on, err := s.online(ctx, id)
	if err != nil {
		return fail[struct{}](err)
	}

	if on {
		err := s.remote.DeleteRecord(ctx, s.desc.Kind, id)
		if err == nil || errors.Is(err, common.ErrNotFound) {
			if err := s.recordsRepo(s.db).Delete(ctx, s.desc.Kind, id); err != nil {
				return fail[struct{}](err)
			}
			return ok(struct{}{})
		}
		s.log.Warn(ctx, "remote delete failed, queueing", "id", id, "error", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.recordsRepo(tx)
		rec, err := repo.GetByID(ctx, s.desc.Kind, id)
		switch {
		case err == nil && rec.OwnerID != sess.UserID:
			return common.ErrNotFound
		case err == nil:
			if err := repo.Delete(ctx, s.desc.Kind, id); err != nil {
				return err
			}
		case !errors.Is(err, common.ErrNotFound):
			return err
		}
		// A row missing locally may still exist on the backend.
		_, err = s.queueRepo(tx).Add(ctx, s.desc.Kind, models.OpDelete, sess.UserID, models.Fields{models.ColID: id})
		return err
	})
	if err != nil {
		return fail[struct{}](err)
	}
	return queued(struct{}{})
}

// SyncPendingOperations drains the pending queue.
func (s *RecordService) SyncPendingOperations(ctx context.Context) (resp Response[struct{}]) {
	defer recoverResponse(&resp)

	if s.engine == nil {
		return fail[struct{}](fmt.Errorf("%w: sync engine not configured", common.ErrInternal))
	}
	if err := s.engine.SyncPendingOperations(ctx); err != nil {
		return fail[struct{}](err)
	}
	return ok(struct{}{})
}

// SyncStatus reports connectivity, pending work and the last sync time.
func (s *RecordService) SyncStatus(ctx context.Context) (resp Response[models.SyncStatus]) {
	defer recoverResponse(&resp)

	if s.engine == nil {
		return fail[models.SyncStatus](fmt.Errorf("%w: sync engine not configured", common.ErrInternal))
	}
	st, err := s.engine.Status(ctx)
	if err != nil {
		return fail[models.SyncStatus](err)
	}
	return ok(st)
}

// mirror upserts a record confirmed by the backend as synced.
func (s *RecordService) mirror(ctx context.Context, repo records.Repository, rec *models.Record) error {
	f := rec.Fields()
	f[models.ColSynced] = true
	if err := repo.Insert(ctx, s.desc.Kind, f); err != nil {
		return fmt.Errorf("mirror %s: %w", rec.ID, err)
	}
	return nil
}
