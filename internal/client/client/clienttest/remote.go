// Package clienttest provides an in-memory client.Client for tests. It
// behaves like the reference backend: new-loan figures are computed on the
// server side and records are scoped by owner.
package clienttest

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/dropsync/internal/client/client"
	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/google/uuid"
)

// Call records one record operation received by Remote.
type Call struct {
	Op      string
	Kind    models.Kind
	ID      string
	Payload models.Fields
}

// Remote is a fake backend. The zero value is not usable; use New.
type Remote struct {
	mu      sync.Mutex
	records map[models.Kind]map[string]models.Fields
	failFor map[string]error
	calls   []Call

	// Err is returned by every record operation while set.
	Err error

	Session     models.Session
	LoginErr    error
	RegisterErr error
	PingErr     error

	PresignKey string
	PresignURL string
	PresignErr error

	Closed bool
}

func New() *Remote {
	return &Remote{
		records: map[models.Kind]map[string]models.Fields{},
		failFor: map[string]error{},
		Session: models.Session{UserID: "officer-1", Username: "budi"},
	}
}

var _ client.Client = (*Remote)(nil)

// FailFor makes every operation on record id fail with err; nil clears it.
func (r *Remote) FailFor(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failFor, id)
		return
	}
	r.failFor[id] = err
}

// FailOn makes operation op ("create", "update", "delete", "get") on record
// id fail with err; nil clears it.
func (r *Remote) FailOn(op, id string, err error) {
	r.FailFor(op+":"+id, err)
}

// Put stores a record directly, bypassing the call log.
func (r *Remote) Put(kind models.Kind, f models.Fields) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table(kind)[f.String(models.ColID)] = serverShape(kind, f)
}

// Stored returns the backend copy of a record.
func (r *Remote) Stored(kind models.Kind, id string) (models.Fields, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.table(kind)[id]
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// Calls returns the record operations received so far.
func (r *Remote) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the received operations as "op:id" strings.
func (r *Remote) Ops() []string {
	calls := r.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Op + ":" + c.ID
	}
	return out
}

func (r *Remote) table(kind models.Kind) map[string]models.Fields {
	t, ok := r.records[kind]
	if !ok {
		t = map[string]models.Fields{}
		r.records[kind] = t
	}
	return t
}

func (r *Remote) begin(op string, kind models.Kind, id string, payload models.Fields) error {
	r.calls = append(r.calls, Call{Op: op, Kind: kind, ID: id, Payload: payload.Clone()})
	if r.Err != nil {
		return r.Err
	}
	if err := r.failFor[op+":"+id]; err != nil {
		return err
	}
	return r.failFor[id]
}

func serverShape(kind models.Kind, f models.Fields) models.Fields {
	out := f.Without(models.ColSynced)
	if kind == models.KindNewLoan {
		if p, err := out.Float(models.ColPrincipal); err == nil && p != nil {
			d := models.DeriveFromPrincipal(*p)
			out[models.ColBalance] = d.Balance
			out[models.ColInstallment] = d.Installment
			out[models.ColSavings] = d.Savings
		}
	}
	return out
}

func (r *Remote) Close() error {
	r.Closed = true
	return nil
}

func (r *Remote) Ping(ctx context.Context) error { return r.PingErr }

func (r *Remote) Register(ctx context.Context, username, password string) error {
	return r.RegisterErr
}

func (r *Remote) Login(ctx context.Context, username, password string) (*models.Session, error) {
	if r.LoginErr != nil {
		return nil, r.LoginErr
	}
	s := r.Session
	s.Username = username
	return &s, nil
}

func (r *Remote) CreateRecord(ctx context.Context, kind models.Kind, payload models.Fields) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := payload.String(models.ColID)
	if err := r.begin("create", kind, id, payload); err != nil {
		return nil, err
	}
	f := serverShape(kind, payload)
	if id == "" {
		id = uuid.NewString()
		f[models.ColID] = id
	}
	r.table(kind)[id] = f
	return models.RecordFromFields(f)
}

func (r *Remote) ListRecords(ctx context.Context, kind models.Kind, ownerID string) ([]*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.begin("list", kind, "", nil); err != nil {
		return nil, err
	}
	var out []*models.Record
	for _, f := range r.table(kind) {
		if f.String(models.ColOwnerID) != ownerID {
			continue
		}
		rec, err := models.RecordFromFields(f)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (r *Remote) GetRecord(ctx context.Context, kind models.Kind, id string) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.begin("get", kind, id, nil); err != nil {
		return nil, err
	}
	f, ok := r.table(kind)[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return models.RecordFromFields(f)
}

func (r *Remote) UpdateRecord(ctx context.Context, kind models.Kind, id string, patch models.Fields) (*models.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.begin("update", kind, id, patch); err != nil {
		return nil, err
	}
	f, ok := r.table(kind)[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	for k, v := range patch.Without(models.ColID) {
		f[k] = v
	}
	f = serverShape(kind, f)
	r.table(kind)[id] = f
	return models.RecordFromFields(f)
}

func (r *Remote) DeleteRecord(ctx context.Context, kind models.Kind, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.begin("delete", kind, id, nil); err != nil {
		return err
	}
	delete(r.table(kind), id)
	return nil
}

func (r *Remote) PresignPhotoUpload(ctx context.Context, contentType string) (string, string, error) {
	return r.PresignKey, r.PresignURL, r.PresignErr
}
