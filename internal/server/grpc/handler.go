package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/dmitrijs2005/dropsync/internal/wire"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStatus maps service errors onto gRPC codes the client knows how to read.
// Anything unexpected is logged and reported as Internal without detail.
func (s *GRPCServer) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrInvalidKind),
		errors.Is(err, common.ErrUnknownColumn):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrUsernameAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	}
	s.logger.Error(ctx, "request failed", "method", method, "error", err)
	return status.Error(codes.Internal, common.ErrInternal.Error())
}

func (s *GRPCServer) reply(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	out, err := wire.NewMessage(fields)
	if err != nil {
		return nil, s.toStatus(ctx, method, err)
	}
	return out, nil
}

// scope resolves the caller and the table named in the request.
func scope(ctx context.Context, in *structpb.Struct) (string, models.Table, error) {
	userID, err := userIDFromContext(ctx)
	if err != nil {
		return "", "", err
	}
	table, err := models.ParseTable(wire.String(in, wire.KeyTable))
	if err != nil {
		return "", "", status.Error(codes.InvalidArgument, err.Error())
	}
	return userID, table, nil
}

func requireID(in *structpb.Struct) (string, error) {
	id := wire.String(in, wire.KeyID)
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "id is required")
	}
	return id, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	return s.reply(ctx, "Ping", map[string]any{wire.KeyStatus: wire.StatusOK})
}

func (s *GRPCServer) Register(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	username := wire.String(in, wire.KeyUsername)

	user, err := s.users.Register(ctx, username, []byte(wire.String(in, wire.KeyPassword)))
	if err != nil {
		return nil, s.toStatus(ctx, "Register", err)
	}

	s.logger.Info(ctx, "Registered", "username", user.UserName)
	return s.reply(ctx, "Register", map[string]any{
		wire.KeyUserID:   user.ID,
		wire.KeyUsername: user.UserName,
	})
}

func (s *GRPCServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	res, err := s.users.Login(ctx, wire.String(in, wire.KeyUsername), []byte(wire.String(in, wire.KeyPassword)))
	if err != nil {
		return nil, s.toStatus(ctx, "Login", err)
	}

	return s.reply(ctx, "Login", map[string]any{
		wire.KeyUserID:       res.UserID,
		wire.KeyAccessToken:  res.Tokens.AccessToken,
		wire.KeyRefreshToken: res.Tokens.RefreshToken,
	})
}

func (s *GRPCServer) RefreshToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	pair, err := s.users.RefreshToken(ctx, wire.String(in, wire.KeyRefreshToken))
	if err != nil {
		return nil, s.toStatus(ctx, "RefreshToken", err)
	}

	return s.reply(ctx, "RefreshToken", map[string]any{
		wire.KeyAccessToken:  pair.AccessToken,
		wire.KeyRefreshToken: pair.RefreshToken,
	})
}

func (s *GRPCServer) CreateRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, table, err := scope(ctx, in)
	if err != nil {
		return nil, err
	}

	payload := wire.Object(in, wire.KeyRecord)
	if payload == nil {
		return nil, status.Error(codes.InvalidArgument, "record is required")
	}
	rec, err := decodeRecord(payload)
	if err != nil {
		return nil, s.toStatus(ctx, "CreateRecord", err)
	}

	saved, err := s.records.Create(ctx, userID, table, rec)
	if err != nil {
		return nil, s.toStatus(ctx, "CreateRecord", err)
	}
	return s.reply(ctx, "CreateRecord", map[string]any{wire.KeyRecord: encodeRecord(saved)})
}

// ListRecords returns the caller's rows. Asking for another officer's
// profile is refused.
func (s *GRPCServer) ListRecords(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, table, err := scope(ctx, in)
	if err != nil {
		return nil, err
	}
	if owner := wire.String(in, wire.KeyOwnerID); owner != "" && owner != userID {
		return nil, status.Error(codes.PermissionDenied, "profile mismatch")
	}

	recs, err := s.records.List(ctx, userID, table)
	if err != nil {
		return nil, s.toStatus(ctx, "ListRecords", err)
	}
	return s.reply(ctx, "ListRecords", map[string]any{wire.KeyRecords: encodeRecords(recs)})
}

func (s *GRPCServer) GetRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, table, err := scope(ctx, in)
	if err != nil {
		return nil, err
	}
	id, err := requireID(in)
	if err != nil {
		return nil, err
	}

	rec, err := s.records.Get(ctx, userID, table, id)
	if err != nil {
		return nil, s.toStatus(ctx, "GetRecord", err)
	}
	return s.reply(ctx, "GetRecord", map[string]any{wire.KeyRecord: encodeRecord(rec)})
}

func (s *GRPCServer) UpdateRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, table, err := scope(ctx, in)
	if err != nil {
		return nil, err
	}
	id, err := requireID(in)
	if err != nil {
		return nil, err
	}

	patch, err := decodePatch(wire.Object(in, wire.KeyPatch))
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateRecord", err)
	}

	rec, err := s.records.Update(ctx, userID, table, id, patch)
	if err != nil {
		return nil, s.toStatus(ctx, "UpdateRecord", err)
	}
	return s.reply(ctx, "UpdateRecord", map[string]any{wire.KeyRecord: encodeRecord(rec)})
}

func (s *GRPCServer) DeleteRecord(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	userID, table, err := scope(ctx, in)
	if err != nil {
		return nil, err
	}
	id, err := requireID(in)
	if err != nil {
		return nil, err
	}

	if err := s.records.Delete(ctx, userID, table, id); err != nil {
		return nil, s.toStatus(ctx, "DeleteRecord", err)
	}
	return s.reply(ctx, "DeleteRecord", map[string]any{wire.KeyStatus: wire.StatusOK})
}

func (s *GRPCServer) PresignPhoto(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if _, err := userIDFromContext(ctx); err != nil {
		return nil, err
	}

	key, url, err := s.photos.PresignUpload(ctx, wire.String(in, wire.KeyContentType))
	if err != nil {
		return nil, s.toStatus(ctx, "PresignPhoto", err)
	}
	return s.reply(ctx, "PresignPhoto", map[string]any{wire.KeyKey: key, wire.KeyURL: url})
}
