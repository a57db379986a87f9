package grpc

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/dmitrijs2005/dropsync/internal/server/auth"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/dmitrijs2005/dropsync/internal/server/services"
)

const testSecret = "secret"

func validToken(userID string) string {
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Hour, time.Now())
	if err != nil {
		panic(err)
	}
	return tok
}

func expiredToken(userID string) string {
	tok, err := auth.GenerateToken(userID, []byte(testSecret), time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		panic(err)
	}
	return tok
}

type fakeUsers struct {
	regErr      error
	loginRes    *services.LoginResult
	loginErr    error
	refreshRes  *services.TokenPair
	refreshErr  error
	refreshSeen []string
}

func (f *fakeUsers) Register(_ context.Context, username string, _ []byte) (*models.User, error) {
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &models.User{ID: "u-" + username, UserName: username}, nil
}

func (f *fakeUsers) Login(_ context.Context, _ string, _ []byte) (*services.LoginResult, error) {
	return f.loginRes, f.loginErr
}

func (f *fakeUsers) RefreshToken(_ context.Context, token string) (*services.TokenPair, error) {
	f.refreshSeen = append(f.refreshSeen, token)
	return f.refreshRes, f.refreshErr
}

// memRecords keeps rows per table and owner, the way the Postgres
// repository scopes them.
type memRecords struct {
	mu   sync.Mutex
	rows map[models.Table]map[string]*models.Record
	err  error
}

func newMemRecords() *memRecords {
	return &memRecords{rows: map[models.Table]map[string]*models.Record{
		models.TableNewLoan:      {},
		models.TableExistingLoan: {},
	}}
}

func (m *memRecords) Create(_ context.Context, ownerID string, table models.Table, rec *models.Record) (*models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	cp := *rec
	cp.OwnerID = ownerID
	if table.Derived() && cp.Principal != nil {
		b, i := *cp.Principal*1.2, *cp.Principal*0.05
		cp.Balance, cp.Installment, cp.Savings = &b, &i, &i
	}
	m.rows[table][cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memRecords) List(_ context.Context, ownerID string, table models.Table) ([]*models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Record
	for _, r := range m.rows[table] {
		if r.OwnerID == ownerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRecords) Get(_ context.Context, ownerID string, table models.Table, id string) (*models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rows[table][id]
	if !ok || r.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memRecords) Update(_ context.Context, ownerID string, table models.Table, id string, p models.RecordPatch) (*models.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rows[table][id]
	if !ok || r.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Address != nil {
		r.Address = *p.Address
	}
	if p.Photo != nil {
		r.Photo = p.Photo
	}
	if p.Principal != nil {
		r.Principal = p.Principal
	}
	if p.Balance != nil {
		r.Balance = p.Balance
	}
	if p.UpdatedAt != nil {
		r.UpdatedAt = *p.UpdatedAt
	}
	cp := *r
	return &cp, nil
}

func (m *memRecords) Delete(_ context.Context, ownerID string, table models.Table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	r, ok := m.rows[table][id]
	if !ok || r.OwnerID != ownerID {
		return common.ErrNotFound
	}
	delete(m.rows[table], id)
	return nil
}

type fakePhotos struct {
	key, url string
	err      error
	seen     string
}

func (f *fakePhotos) PresignUpload(_ context.Context, contentType string) (string, string, error) {
	f.seen = contentType
	return f.key, f.url, f.err
}

type testDeps struct {
	users   *fakeUsers
	records *memRecords
	photos  *fakePhotos
}

func newTestServer() (*GRPCServer, *testDeps) {
	d := &testDeps{
		users:   &fakeUsers{},
		records: newMemRecords(),
		photos:  &fakePhotos{key: "photos/2026/03/10/k.jpg", url: "http://s3/put"},
	}
	s, err := NewGRPCServer("127.0.0.1:0", logging.Discard(), d.users, d.records, d.photos, testSecret, nil)
	if err != nil {
		panic(err)
	}
	return s, d
}

func authed(userID string) context.Context {
	return context.WithValue(context.Background(), userIDKey, userID)
}
