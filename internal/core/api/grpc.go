package api

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// EntityService is served without generated stubs: the request is the
// resource path as a StringValue and the response the Siren JSON document
// as a BytesValue.
const (
	EntityServiceName = "siren.v1.EntityService"
	GetEntityMethod   = "/" + EntityServiceName + "/GetEntity"

	// HeaderETag is the response header metadata carrying the document ETag.
	HeaderETag = "etag"
)

// EntityServiceServer is the server API for EntityService.
type EntityServiceServer interface {
	GetEntity(ctx context.Context, path *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

// EntityServiceDesc describes EntityService for grpc.Server.RegisterService.
var EntityServiceDesc = grpc.ServiceDesc{
	ServiceName: EntityServiceName,
	HandlerType: (*EntityServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetEntity", Handler: getEntityHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "siren/v1/entity.proto",
}

// RegisterEntityService registers srv on s.
func RegisterEntityService(s grpc.ServiceRegistrar, srv EntityServiceServer) {
	s.RegisterService(&EntityServiceDesc, srv)
}

func getEntityHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EntityServiceServer).GetEntity(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetEntityMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(EntityServiceServer).GetEntity(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// GetEntity renders the entity at the requested path, which may carry a
// query string. The document ETag is sent as response header metadata.
func (s *Service) GetEntity(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	path := req.GetValue()
	body, etag, err := s.Render(ctx, path)
	if err != nil {
		code := GRPCCode(err)
		if code == codes.Internal {
			s.logger.Error("get entity failed", zap.String("path", path), zap.Error(err))
			return nil, status.Error(code, "internal error")
		}
		return nil, status.Error(code, err.Error())
	}
	// SetHeader only fails outside a server stream, e.g. in direct calls.
	_ = grpc.SetHeader(ctx, metadata.Pairs(HeaderETag, etag))
	return wrapperspb.Bytes(body), nil
}

// GetEntity calls EntityService/GetEntity on conn.
func GetEntity(ctx context.Context, conn grpc.ClientConnInterface, path string, opts ...grpc.CallOption) ([]byte, error) {
	out := new(wrapperspb.BytesValue)
	if err := conn.Invoke(ctx, GetEntityMethod, wrapperspb.String(path), out, opts...); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}
