package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/dropsync/internal/client/models"
	"github.com/dmitrijs2005/dropsync/internal/common"
	"github.com/dmitrijs2005/dropsync/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// TokenSink is told about every new token pair, e.g. to persist the refresh
// token between runs.
type TokenSink func(accessToken, refreshToken string)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      wire.RecordServiceClient
	timeout     time.Duration
	retry       RetryPolicy
	dialOpts    []grpc.DialOption

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	onTokens     TokenSink
}

// Option configures a GRPCClient.
type Option func(*GRPCClient)

// WithTimeout bounds every single attempt. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *GRPCClient) { c.timeout = d }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *GRPCClient) { c.retry = p }
}

// WithTokenSink registers a callback for token changes.
func WithTokenSink(f TokenSink) Option {
	return func(c *GRPCClient) { c.onTokens = f }
}

// WithDialOptions appends extra grpc dial options.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(c *GRPCClient) { c.dialOpts = append(c.dialOpts, opts...) }
}

func NewGRPCClient(endpointURL string, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{
		endpointURL: endpointURL,
		timeout:     10 * time.Second,
		retry:       DefaultRetryPolicy,
	}
	for _, o := range opts {
		o(c)
	}

	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, c.dialOpts...)

	conn, err := grpc.NewClient(c.endpointURL, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = wire.NewRecordServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

// SetTokens installs a token pair, e.g. a refresh token restored from disk.
func (s *GRPCClient) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	s.accessToken, s.refreshToken = accessToken, refreshToken
	s.mu.Unlock()
}

// ClearTokens forgets the current session.
func (s *GRPCClient) ClearTokens() {
	s.SetTokens("", "")
}

func (s *GRPCClient) tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) storeTokens(access, refresh string) {
	s.SetTokens(access, refresh)
	if s.onTokens != nil {
		s.onTokens(access, refresh)
	}
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

// accessTokenInterceptor attaches the access token and, when the server
// rejects it, trades the refresh token for a new pair and retries once.
func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if _, public := wire.PublicMethods[method]; public {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	access, refresh := s.tokens()
	err := invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
	if err == nil || refresh == "" || status.Code(err) != codes.Unauthenticated {
		return err
	}

	in, encErr := wire.NewMessage(map[string]any{wire.KeyRefreshToken: refresh})
	if encErr != nil {
		return encErr
	}
	resp, refreshErr := s.client.RefreshToken(ctx, in)
	if refreshErr != nil {
		return err
	}
	s.storeTokens(wire.String(resp, wire.KeyAccessToken), wire.String(resp, wire.KeyRefreshToken))

	access, _ = s.tokens()
	return invoker(withAccessToken(ctx, access), method, req, reply, cc, opts...)
}

type rpc func(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)

// call runs one RPC with the per-attempt timeout and the retry policy.
func (s *GRPCClient) call(ctx context.Context, fn rpc, in map[string]any) (*structpb.Struct, error) {
	msg, err := wire.NewMessage(in)
	if err != nil {
		return nil, err
	}

	var out *structpb.Struct
	err = withRetry(ctx, s.retry, func(ctx context.Context) error {
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		resp, err := fn(ctx, msg)
		if err != nil {
			return s.mapError(err)
		}
		out = resp
		return nil
	})
	return out, err
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.call(ctx, s.client.Ping, map[string]any{})
	if err != nil {
		return err
	}
	if wire.String(resp, wire.KeyStatus) != wire.StatusOK {
		return ErrUnavailable
	}
	return nil
}

func (s *GRPCClient) Register(ctx context.Context, username, password string) error {
	_, err := s.call(ctx, s.client.Register, map[string]any{
		wire.KeyUsername: username,
		wire.KeyPassword: password,
	})
	return err
}

func (s *GRPCClient) Login(ctx context.Context, username, password string) (*models.Session, error) {
	resp, err := s.call(ctx, s.client.Login, map[string]any{
		wire.KeyUsername: username,
		wire.KeyPassword: password,
	})
	if err != nil {
		return nil, err
	}

	s.storeTokens(wire.String(resp, wire.KeyAccessToken), wire.String(resp, wire.KeyRefreshToken))
	return &models.Session{UserID: wire.String(resp, wire.KeyUserID), Username: username}, nil
}

func (s *GRPCClient) CreateRecord(ctx context.Context, kind models.Kind, payload models.Fields) (*models.Record, error) {
	resp, err := s.call(ctx, s.client.CreateRecord, map[string]any{
		wire.KeyTable:  kind.Table(),
		wire.KeyRecord: map[string]any(payload),
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(wire.Object(resp, wire.KeyRecord))
}

func (s *GRPCClient) ListRecords(ctx context.Context, kind models.Kind, ownerID string) ([]*models.Record, error) {
	resp, err := s.call(ctx, s.client.ListRecords, map[string]any{
		wire.KeyTable:   kind.Table(),
		wire.KeyOwnerID: ownerID,
	})
	if err != nil {
		return nil, err
	}

	items, err := wire.Objects(resp, wire.KeyRecords)
	if err != nil {
		return nil, err
	}
	result := make([]*models.Record, 0, len(items))
	for _, item := range items {
		rec, err := decodeRecord(item)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (s *GRPCClient) GetRecord(ctx context.Context, kind models.Kind, id string) (*models.Record, error) {
	resp, err := s.call(ctx, s.client.GetRecord, map[string]any{
		wire.KeyTable: kind.Table(),
		wire.KeyID:    id,
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(wire.Object(resp, wire.KeyRecord))
}

func (s *GRPCClient) UpdateRecord(ctx context.Context, kind models.Kind, id string, patch models.Fields) (*models.Record, error) {
	resp, err := s.call(ctx, s.client.UpdateRecord, map[string]any{
		wire.KeyTable: kind.Table(),
		wire.KeyID:    id,
		wire.KeyPatch: map[string]any(patch.Without(models.ColID)),
	})
	if err != nil {
		return nil, err
	}
	return decodeRecord(wire.Object(resp, wire.KeyRecord))
}

func (s *GRPCClient) DeleteRecord(ctx context.Context, kind models.Kind, id string) error {
	_, err := s.call(ctx, s.client.DeleteRecord, map[string]any{
		wire.KeyTable: kind.Table(),
		wire.KeyID:    id,
	})
	return err
}

func (s *GRPCClient) PresignPhotoUpload(ctx context.Context, contentType string) (string, string, error) {
	resp, err := s.call(ctx, s.client.PresignPhoto, map[string]any{wire.KeyContentType: contentType})
	if err != nil {
		return "", "", err
	}
	return wire.String(resp, wire.KeyKey), wire.String(resp, wire.KeyURL), nil
}

func decodeRecord(m map[string]any) (*models.Record, error) {
	if m == nil {
		return nil, fmt.Errorf("rpc error: response without record")
	}
	return models.RecordFromFields(models.Fields(m))
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	case codes.NotFound:
		return common.ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrValidation, st.Message())
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", common.ErrUsernameAlreadyExists, st.Message())
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}

var _ Client = (*GRPCClient)(nil)
