package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/carvault/internal/common"
	pb "github.com/dmitrijs2005/carvault/internal/proto"
)

func (s *GRPCServer) Store(ctx context.Context, req *pb.StoreRequest) (*pb.StoreResponse, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}

	resp, err := s.assets.Store(ctx, principal, req)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorValidation),
			errors.Is(err, common.ErrUnsupportedEncoding),
			errors.Is(err, common.ErrHashMismatch):
			return nil, status.Error(codes.InvalidArgument, err.Error())
		default:
			s.logger.Error(ctx, "store failed", "key", req.Key, "error", err)
			return nil, status.Error(codes.Internal, "internal error")
		}
	}

	if s.metrics != nil {
		s.metrics.AddUploaded(len(req.Content))
	}
	s.logger.Info(ctx, "Stored asset", "canister", req.CanisterID, "key", resp.Key, "owner", principal.String())
	return resp, nil
}

func (s *GRPCServer) Status(context.Context, *pb.StatusRequest) (*pb.StatusResponse, error) {
	return &pb.StatusResponse{RootKey: s.assets.RootKey(), Version: Version}, nil
}

func (s *GRPCServer) Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String("OK"), nil
}
