package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName = "carvault.assets.AssetStore"

	StoreMethod  = "/" + ServiceName + "/Store"
	StatusMethod = "/" + ServiceName + "/Status"
	PingMethod   = "/" + ServiceName + "/Ping"
)

// StoreRequest uploads one asset. SHA256 is optional; when present the
// store rejects content that does not hash to it.
type StoreRequest struct {
	CanisterID      string `json:"canister_id"`
	Key             string `json:"key"`
	ContentType     string `json:"content_type"`
	ContentEncoding string `json:"content_encoding"`
	Content         []byte `json:"content"`
	SHA256          []byte `json:"sha256,omitempty"`
}

// StoreResponse carries the stored key and the store's certificate over it.
type StoreResponse struct {
	Key         string `json:"key"`
	SHA256      []byte `json:"sha256"`
	Certificate []byte `json:"certificate"`
}

type StatusRequest struct{}

// StatusResponse exposes the store's root verification key.
type StatusResponse struct {
	RootKey []byte `json:"root_key"`
	Version string `json:"version"`
}

// AssetStoreServer is implemented by the reference server.
type AssetStoreServer interface {
	Store(context.Context, *StoreRequest) (*StoreResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// AssetStoreClient is the calling side of the service.
type AssetStoreClient interface {
	Store(ctx context.Context, in *StoreRequest, opts ...grpc.CallOption) (*StoreResponse, error)
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
}

type assetStoreClient struct {
	cc grpc.ClientConnInterface
}

// NewAssetStoreClient wraps a connection. Every call is forced onto the
// json codec.
func NewAssetStoreClient(cc grpc.ClientConnInterface) AssetStoreClient {
	return &assetStoreClient{cc: cc}
}

func (c *assetStoreClient) Store(ctx context.Context, in *StoreRequest, opts ...grpc.CallOption) (*StoreResponse, error) {
	out := new(StoreResponse)
	if err := c.cc.Invoke(ctx, StoreMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *assetStoreClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	out := new(StatusResponse)
	if err := c.cc.Invoke(ctx, StatusMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *assetStoreClient) Ping(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, PingMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

// RegisterAssetStoreServer attaches srv to s.
func RegisterAssetStoreServer(s grpc.ServiceRegistrar, srv AssetStoreServer) {
	s.RegisterService(&AssetStoreServiceDesc, srv)
}

func storeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StoreRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssetStoreServer).Store(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StoreMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AssetStoreServer).Store(ctx, req.(*StoreRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(StatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssetStoreServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: StatusMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AssetStoreServer).Status(ctx, req.(*StatusRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func pingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AssetStoreServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: PingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(AssetStoreServer).Ping(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// AssetStoreServiceDesc describes the service to grpc.Server.
var AssetStoreServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AssetStoreServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Store", Handler: storeHandler},
		{MethodName: "Status", Handler: statusHandler},
		{MethodName: "Ping", Handler: pingHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "assets.json",
}
