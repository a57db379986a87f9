package services

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/dbx"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/records"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/dropsync/internal/server/repositories/users"
)

type fakeUsers struct {
	mu        sync.Mutex
	byName    map[string]*models.User
	createErr error
	getErr    error
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrUsernameAlreadyExists
	}
	cp := *u
	cp.ID = "user-" + u.UserName
	cp.CreatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	f.byName[u.UserName] = &cp
	return &cp, nil
}

func (f *fakeUsers) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[login]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

type fakeTokens struct {
	mu        sync.Mutex
	tokens    map[string]*models.RefreshToken
	createErr error
	deleteErr error
	purged    time.Time
}

func (f *fakeTokens) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeTokens) Find(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokens) Delete(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.tokens[token]; !ok {
		return common.ErrNotFound
	}
	delete(f.tokens, token)
	return nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = now
	var n int64
	for k, t := range f.tokens {
		if t.ExpiresAt.Before(now) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

type upsertCall struct {
	table models.Table
	rec   models.Record
}

type updateCall struct {
	table   models.Table
	ownerID string
	id      string
	patch   models.RecordPatch
}

type fakeRecords struct {
	upserts []upsertCall
	updates []updateCall
	deleted []string
	err     error
}

func (f *fakeRecords) Upsert(_ context.Context, table models.Table, rec *models.Record) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.upserts = append(f.upserts, upsertCall{table: table, rec: *rec})
	return rec, nil
}

func (f *fakeRecords) List(_ context.Context, table models.Table, ownerID string) ([]*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*models.Record{{ID: "r1", OwnerID: ownerID}}, nil
}

func (f *fakeRecords) Get(_ context.Context, table models.Table, ownerID, id string) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Record{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeRecords) Update(_ context.Context, table models.Table, ownerID, id string, patch models.RecordPatch) (*models.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, updateCall{table: table, ownerID: ownerID, id: id, patch: patch})
	return &models.Record{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeRecords) Delete(_ context.Context, table models.Table, ownerID, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, string(table)+"/"+id)
	return nil
}

// fakeManager hands out the same fakes regardless of the DB handle.
type fakeManager struct {
	users   *fakeUsers
	tokens  *fakeTokens
	records *fakeRecords
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		users:   &fakeUsers{byName: map[string]*models.User{}},
		tokens:  &fakeTokens{tokens: map[string]*models.RefreshToken{}},
		records: &fakeRecords{},
	}
}

func (m *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeManager) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.tokens
}
func (m *fakeManager) Records(dbx.DBTX) records.Repository { return m.records }
