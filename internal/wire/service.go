// Package wire is the gRPC contract between the field client and the record
// backend. Messages are google.protobuf.Struct values carried by the default
// proto codec; the service descriptor and client stub are written by hand in
// the shape protoc-gen-go-grpc would produce.
package wire

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "dropsync.v1.RecordService"

const (
	MethodPing         = "/" + ServiceName + "/Ping"
	MethodRegister     = "/" + ServiceName + "/Register"
	MethodLogin        = "/" + ServiceName + "/Login"
	MethodRefreshToken = "/" + ServiceName + "/RefreshToken"
	MethodCreateRecord = "/" + ServiceName + "/CreateRecord"
	MethodListRecords  = "/" + ServiceName + "/ListRecords"
	MethodGetRecord    = "/" + ServiceName + "/GetRecord"
	MethodUpdateRecord = "/" + ServiceName + "/UpdateRecord"
	MethodDeleteRecord = "/" + ServiceName + "/DeleteRecord"
	MethodPresignPhoto = "/" + ServiceName + "/PresignPhoto"
)

// PublicMethods do not require an access token.
var PublicMethods = map[string]struct{}{
	MethodPing:         {},
	MethodRegister:     {},
	MethodLogin:        {},
	MethodRefreshToken: {},
}

// RecordServiceClient is the client API for the record service.
type RecordServiceClient interface {
	Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	RefreshToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	CreateRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	UpdateRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	DeleteRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	PresignPhoto(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type recordServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewRecordServiceClient(cc grpc.ClientConnInterface) RecordServiceClient {
	return &recordServiceClient{cc: cc}
}

func (c *recordServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *recordServiceClient) Ping(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPing, in, opts...)
}

func (c *recordServiceClient) Register(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRegister, in, opts...)
}

func (c *recordServiceClient) Login(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodLogin, in, opts...)
}

func (c *recordServiceClient) RefreshToken(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodRefreshToken, in, opts...)
}

func (c *recordServiceClient) CreateRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCreateRecord, in, opts...)
}

func (c *recordServiceClient) ListRecords(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListRecords, in, opts...)
}

func (c *recordServiceClient) GetRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetRecord, in, opts...)
}

func (c *recordServiceClient) UpdateRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodUpdateRecord, in, opts...)
}

func (c *recordServiceClient) DeleteRecord(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodDeleteRecord, in, opts...)
}

func (c *recordServiceClient) PresignPhoto(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPresignPhoto, in, opts...)
}

// RecordServiceServer is the server API for the record service.
type RecordServiceServer interface {
	Ping(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Register(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Login(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RefreshToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PresignPhoto(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func RegisterRecordServiceServer(s grpc.ServiceRegistrar, srv RecordServiceServer) {
	s.RegisterService(&RecordServiceDesc, srv)
}

type serverCall func(RecordServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call serverCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RecordServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RecordServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var RecordServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecordServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ping", Handler: unaryHandler(MethodPing, RecordServiceServer.Ping)},
		{MethodName: "Register", Handler: unaryHandler(MethodRegister, RecordServiceServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(MethodLogin, RecordServiceServer.Login)},
		{MethodName: "RefreshToken", Handler: unaryHandler(MethodRefreshToken, RecordServiceServer.RefreshToken)},
		{MethodName: "CreateRecord", Handler: unaryHandler(MethodCreateRecord, RecordServiceServer.CreateRecord)},
		{MethodName: "ListRecords", Handler: unaryHandler(MethodListRecords, RecordServiceServer.ListRecords)},
		{MethodName: "GetRecord", Handler: unaryHandler(MethodGetRecord, RecordServiceServer.GetRecord)},
		{MethodName: "UpdateRecord", Handler: unaryHandler(MethodUpdateRecord, RecordServiceServer.UpdateRecord)},
		{MethodName: "DeleteRecord", Handler: unaryHandler(MethodDeleteRecord, RecordServiceServer.DeleteRecord)},
		{MethodName: "PresignPhoto", Handler: unaryHandler(MethodPresignPhoto, RecordServiceServer.PresignPhoto)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "dropsync/v1/record_service.proto",
}
