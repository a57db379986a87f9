// Package grpc exposes the record backend over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/dropsync/internal/logging"
	"github.com/dmitrijs2005/dropsync/internal/server/models"
	"github.com/dmitrijs2005/dropsync/internal/server/services"
	"github.com/dmitrijs2005/dropsync/internal/wire"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
)

type UserService interface {
	Register(ctx context.Context, username string, password []byte) (*models.User, error)
	Login(ctx context.Context, username string, password []byte) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

type RecordService interface {
	Create(ctx context.Context, ownerID string, table models.Table, rec *models.Record) (*models.Record, error)
	List(ctx context.Context, ownerID string, table models.Table) ([]*models.Record, error)
	Get(ctx context.Context, ownerID string, table models.Table, id string) (*models.Record, error)
	Update(ctx context.Context, ownerID string, table models.Table, id string, patch models.RecordPatch) (*models.Record, error)
	Delete(ctx context.Context, ownerID string, table models.Table, id string) error
}

type PhotoService interface {
	PresignUpload(ctx context.Context, contentType string) (string, string, error)
}

type GRPCServer struct {
	address   string
	users     UserService
	records   RecordService
	photos    PhotoService
	logger    logging.Logger
	jwtSecret []byte
	metrics   *rpcMetrics
}

// NewGRPCServer builds the server. RPC metrics are registered on reg.
func NewGRPCServer(a string, l logging.Logger, us UserService, rs RecordService, ps PhotoService, secretKey string, reg prometheus.Registerer) (*GRPCServer, error) {
	m, err := newRPCMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		users:     us,
		records:   rs,
		photos:    ps,
		jwtSecret: []byte(secretKey),
		metrics:   m,
	}, nil
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.accessTokenInterceptor))
	wire.RegisterRecordServiceServer(srv, s)
	return srv
}

// Run listens on the configured address until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}

var _ wire.RecordServiceServer = (*GRPCServer)(nil)
