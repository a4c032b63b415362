// Package grpc serves the asset store over gRPC with the json codec.
package grpc

import (
	"context"
	"crypto/ed25519"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/carvault/internal/delegation"
	"github.com/dmitrijs2005/carvault/internal/logging"
	pb "github.com/dmitrijs2005/carvault/internal/proto"
	"github.com/dmitrijs2005/carvault/internal/server/metrics"
)

// Version is reported by Status.
const Version = "1"

type assetService interface {
	Store(ctx context.Context, owner delegation.Principal, req *pb.StoreRequest) (*pb.StoreResponse, error)
	RootKey() ed25519.PublicKey
}

type requestVerifier interface {
	VerifyRequest(token, expiry, signature, method string, body []byte) (delegation.Principal, error)
}

type GRPCServer struct {
	address  string
	assets   assetService
	verifier requestVerifier
	metrics  *metrics.Metrics
	logger   logging.Logger

	maxPayload int64
}

// Option customizes a GRPCServer.
type Option func(*GRPCServer)

// WithMaxPayload raises the receive limit so a Store request carrying up to
// n bytes of content is accepted by the transport.
func WithMaxPayload(n int64) Option { return func(s *GRPCServer) { s.maxPayload = n } }

func NewGRPCServer(address string, l logging.Logger, assets assetService, v requestVerifier, m *metrics.Metrics, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:  address,
		logger:   l.With("module", "grpc_server"),
		assets:   assets,
		verifier: v,
		metrics:  m,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServer builds a grpc.Server with the asset store and its interceptors
// registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(s.metricsInterceptor, s.signatureInterceptor),
	}
	if s.maxPayload > 0 {
		base = append(base, grpc.MaxRecvMsgSize(pb.MaxMessageSize(s.maxPayload)))
	}
	opts = append(base, opts...)
	srv := grpc.NewServer(opts...)
	pb.RegisterAssetStoreServer(srv, s)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis and stops gracefully when ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	<-stopped
	return nil
}
