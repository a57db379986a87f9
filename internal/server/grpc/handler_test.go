package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/dmitrijs2005/dropsync/internal/server/services"
	"github.com/dmitrijs2005/dropsync/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func msg(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	m, err := wire.NewMessage(fields)
	require.NoError(t, err)
	return m
}

func TestToStatus(t *testing.T) {
	s, _ := newTestServer()
	ctx := context.Background()

	tests := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrNotFound, codes.NotFound},
		{common.ErrValidation, codes.InvalidArgument},
		{common.ErrInvalidKind, codes.InvalidArgument},
		{common.ErrUnknownColumn, codes.InvalidArgument},
		{common.ErrUsernameAlreadyExists, codes.AlreadyExists},
		{common.ErrInvalidCredentials, codes.Unauthenticated},
		{common.ErrTokenExpired, codes.Unauthenticated},
		{common.ErrInvalidToken, codes.Unauthenticated},
		{errors.New("db exploded"), codes.Internal},
	}
	for _, tt := range tests {
		got := s.toStatus(ctx, "Test", tt.err)
		assert.Equal(t, tt.code, status.Code(got), tt.err.Error())
	}

	assert.Equal(t, common.ErrInternal.Error(), status.Convert(s.toStatus(ctx, "Test", errors.New("secret detail"))).Message())
}

func TestPing(t *testing.T) {
	s, _ := newTestServer()
	out, err := s.Ping(context.Background(), msg(t, nil))
	require.NoError(t, err)
	assert.Equal(t, wire.StatusOK, wire.String(out, wire.KeyStatus))
}

func TestRegisterAndLogin(t *testing.T) {
	s, d := newTestServer()
	ctx := context.Background()

	out, err := s.Register(ctx, msg(t, map[string]any{wire.KeyUsername: "budi", wire.KeyPassword: "rahasia1"}))
	require.NoError(t, err)
	assert.Equal(t, "u-budi", wire.String(out, wire.KeyUserID))

	d.users.regErr = common.ErrUsernameAlreadyExists
	_, err = s.Register(ctx, msg(t, map[string]any{wire.KeyUsername: "budi"}))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	d.users.loginRes = &services.LoginResult{UserID: "u1", Tokens: services.TokenPair{AccessToken: "a", RefreshToken: "r"}}
	out, err = s.Login(ctx, msg(t, map[string]any{wire.KeyUsername: "budi", wire.KeyPassword: "rahasia1"}))
	require.NoError(t, err)
	assert.Equal(t, "u1", wire.String(out, wire.KeyUserID))
	assert.Equal(t, "a", wire.String(out, wire.KeyAccessToken))
	assert.Equal(t, "r", wire.String(out, wire.KeyRefreshToken))

	d.users.loginErr = common.ErrInvalidCredentials
	_, err = s.Login(ctx, msg(t, nil))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRefreshToken(t *testing.T) {
	s, d := newTestServer()
	ctx := context.Background()

	d.users.refreshRes = &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}
	out, err := s.RefreshToken(ctx, msg(t, map[string]any{wire.KeyRefreshToken: "r1"}))
	require.NoError(t, err)
	assert.Equal(t, "a2", wire.String(out, wire.KeyAccessToken))
	assert.Equal(t, []string{"r1"}, d.users.refreshSeen)

	d.users.refreshErr = common.ErrTokenExpired
	_, err = s.RefreshToken(ctx, msg(t, map[string]any{wire.KeyRefreshToken: "r1"}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRecordLifecycle(t *testing.T) {
	s, d := newTestServer()
	ctx := authed("u1")

	out, err := s.CreateRecord(ctx, msg(t, map[string]any{
		wire.KeyTable: "drop_baru_harian",
		wire.KeyRecord: map[string]any{
			"id": "dbh_1_a", "profile_id": "u1", "nama": "Siti", "alamat": "Jl. Melati", "pinjaman": 1000000.0,
		},
	}))
	require.NoError(t, err)
	rec := wire.Object(out, wire.KeyRecord)
	assert.Equal(t, "dbh_1_a", rec["id"])
	assert.Equal(t, 1200000.0, rec["saldo"])

	out, err = s.ListRecords(ctx, msg(t, map[string]any{wire.KeyTable: "drop_baru_harian", wire.KeyOwnerID: "u1"}))
	require.NoError(t, err)
	items, err := wire.Objects(out, wire.KeyRecords)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	out, err = s.UpdateRecord(ctx, msg(t, map[string]any{
		wire.KeyTable: "drop_baru_harian",
		wire.KeyID:    "dbh_1_a",
		wire.KeyPatch: map[string]any{"nama": "Siti Aminah"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", wire.Object(out, wire.KeyRecord)["nama"])

	out, err = s.GetRecord(ctx, msg(t, map[string]any{wire.KeyTable: "drop_baru_harian", wire.KeyID: "dbh_1_a"}))
	require.NoError(t, err)
	assert.Equal(t, "Siti Aminah", wire.Object(out, wire.KeyRecord)["nama"])

	_, err = s.DeleteRecord(ctx, msg(t, map[string]any{wire.KeyTable: "drop_baru_harian", wire.KeyID: "dbh_1_a"}))
	require.NoError(t, err)
	assert.Empty(t, d.records.rows[models.TableNewLoan])

	_, err = s.DeleteRecord(ctx, msg(t, map[string]any{wire.KeyTable: "drop_baru_harian", wire.KeyID: "dbh_1_a"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRecordHandlers_BadInput(t *testing.T) {
	s, _ := newTestServer()
	ctx := authed("u1")

	_, err := s.CreateRecord(ctx, msg(t, map[string]any{wire.KeyTable: "nasabah"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.CreateRecord(ctx, msg(t, map[string]any{wire.KeyTable: "drop_lama_harian"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.CreateRecord(ctx, msg(t, map[string]any{
		wire.KeyTable:  "drop_lama_harian",
		wire.KeyRecord: map[string]any{"synced": true},
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.GetRecord(ctx, msg(t, map[string]any{wire.KeyTable: "drop_lama_harian"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.ListRecords(ctx, msg(t, map[string]any{wire.KeyTable: "drop_lama_harian", wire.KeyOwnerID: "u2"}))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = s.ListRecords(context.Background(), msg(t, map[string]any{wire.KeyTable: "drop_lama_harian"}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestRecordHandlers_OtherOwnerIsNotFound(t *testing.T) {
	s, _ := newTestServer()

	_, err := s.CreateRecord(authed("u1"), msg(t, map[string]any{
		wire.KeyTable:  "drop_lama_harian",
		wire.KeyRecord: map[string]any{"id": "dbl_1_a", "nama": "Budi", "alamat": "Jl. Mawar"},
	}))
	require.NoError(t, err)

	_, err = s.GetRecord(authed("u2"), msg(t, map[string]any{wire.KeyTable: "drop_lama_harian", wire.KeyID: "dbl_1_a"}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRecordHandlers_InternalError(t *testing.T) {
	s, d := newTestServer()
	d.records.err = errors.New("connection reset")

	_, err := s.ListRecords(authed("u1"), msg(t, map[string]any{wire.KeyTable: "drop_lama_harian"}))
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestPresignPhoto(t *testing.T) {
	s, d := newTestServer()

	out, err := s.PresignPhoto(authed("u1"), msg(t, map[string]any{wire.KeyContentType: "image/jpeg"}))
	require.NoError(t, err)
	assert.Equal(t, "photos/2026/03/10/k.jpg", wire.String(out, wire.KeyKey))
	assert.Equal(t, "http://s3/put", wire.String(out, wire.KeyURL))
	assert.Equal(t, "image/jpeg", d.photos.seen)

	d.photos.err = common.ErrValidation
	_, err = s.PresignPhoto(authed("u1"), msg(t, map[string]any{wire.KeyContentType: "text/plain"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = s.PresignPhoto(context.Background(), msg(t, nil))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
