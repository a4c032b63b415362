package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	pb "github.com/dmitrijs2005/carvault/internal/proto"
)

type ctxKey string

const principalKey ctxKey = "principal"

// PrincipalFromContext returns the caller set by the signature interceptor.
func PrincipalFromContext(ctx context.Context) (delegation.Principal, bool) {
	p, ok := ctx.Value(principalKey).(delegation.Principal)
	return p, ok && p != ""
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}

// signatureInterceptor guards Store: the caller must present a delegation
// and sign the request body with the delegated session key.
func (s *GRPCServer) signatureInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if info.FullMethod != pb.StoreMethod {
		return handler(ctx, req)
	}

	md, _ := metadata.FromIncomingContext(ctx)
	token := firstValue(md, common.DelegationHeaderName)
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing delegation")
	}

	body, err := pb.Codec{}.Marshal(req)
	if err != nil {
		return nil, status.Error(codes.Internal, "cannot encode request")
	}

	principal, err := s.verifier.VerifyRequest(
		token,
		firstValue(md, common.IngressExpiryHeaderName),
		firstValue(md, common.SignatureHeaderName),
		info.FullMethod,
		body,
	)
	if err != nil {
		s.logger.Warn(ctx, "rejected request", "method", info.FullMethod, "error", err)
		switch {
		case errors.Is(err, common.ErrDelegationExpired),
			errors.Is(err, common.ErrInvalidDelegation),
			errors.Is(err, common.ErrInvalidSignature),
			errors.Is(err, common.ErrIngressExpired):
			return nil, status.Error(codes.Unauthenticated, err.Error())
		default:
			return nil, status.Error(codes.Internal, "internal error")
		}
	}

	return handler(context.WithValue(ctx, principalKey, principal), req)
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveRPC(info.FullMethod, status.Code(err).String(), time.Since(start))
	}
	return resp, err
}
