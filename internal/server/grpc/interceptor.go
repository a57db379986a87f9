package grpc

import (
	"context"

	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/server/auth"
	"github.com/dmitrijs2005/dropsync/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const userIDKey ctxKey = "userID"

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if _, public := wire.PublicMethods[info.FullMethod]; public {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.AccessTokenHeaderName); len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return handler(context.WithValue(ctx, userIDKey, userID), req)
}

// userIDFromContext returns the officer authenticated by the interceptor.
func userIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(userIDKey).(string)
	if !ok || id == "" {
		return "", status.Error(codes.Unauthenticated, common.ErrUnauthorized.Error())
	}
	return id, nil
}
