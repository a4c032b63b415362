package grpc

import (
	"context"
	"crypto/ed25519"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	"github.com/dmitrijs2005/carvault/internal/logging"
	pb "github.com/dmitrijs2005/carvault/internal/proto"
	"github.com/dmitrijs2005/carvault/internal/server/auth"
)

var errBoom = errors.New("boom")

type storedCall struct {
	owner delegation.Principal
	req   *pb.StoreRequest
}

type fakeAssets struct {
	certifier *auth.Certifier

	mu    sync.Mutex
	calls []storedCall
	err   error
}

func newFakeAssets(t *testing.T) *fakeAssets {
	t.Helper()
	c, err := auth.NewCertifier("")
	require.NoError(t, err)
	return &fakeAssets{certifier: c}
}

func (f *fakeAssets) Store(_ context.Context, owner delegation.Principal, req *pb.StoreRequest) (*pb.StoreResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storedCall{owner: owner, req: req})
	if f.err != nil {
		return nil, f.err
	}
	hash := cryptox.ContentHash(req.Content)
	return &pb.StoreResponse{Key: req.Key, SHA256: hash, Certificate: f.certifier.Certify(req.Key, hash)}, nil
}

func (f *fakeAssets) RootKey() ed25519.PublicKey { return f.certifier.RootKey() }

type fakeVerifier struct {
	principal delegation.Principal
	err       error

	token, expiry, signature, method string
	body                             []byte
}

func (f *fakeVerifier) VerifyRequest(token, expiry, signature, method string, body []byte) (delegation.Principal, error) {
	f.token, f.expiry, f.signature, f.method, f.body = token, expiry, signature, method, body
	return f.principal, f.err
}

func newServer(a assetService, v requestVerifier) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, a, v, nil)
}
