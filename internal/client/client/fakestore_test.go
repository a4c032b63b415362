package client

import (
	"context"
	"crypto/ed25519"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	pb "github.com/dmitrijs2005/carvault/internal/proto"
)

type fakeStore struct {
	root ed25519.PrivateKey

	mu       sync.Mutex
	md       []metadata.MD
	reqs     []*pb.StoreRequest
	storeErr error
	pingResp string
	badCert  bool
	rootKey  []byte
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return &fakeStore{root: priv, rootKey: pub, pingResp: "OK"}
}

func (f *fakeStore) rootPublic() ed25519.PublicKey { return f.root.Public().(ed25519.PublicKey) }

func (f *fakeStore) Store(ctx context.Context, in *pb.StoreRequest) (*pb.StoreResponse, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	f.mu.Lock()
	f.md = append(f.md, md)
	f.reqs = append(f.reqs, in)
	err := f.storeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	hash := cryptox.ContentHash(in.Content)
	cert := ed25519.Sign(f.root, cryptox.CertificateDigest(in.Key, hash))
	if f.badCert {
		cert[0] ^= 0xff
	}
	return &pb.StoreResponse{Key: in.Key, SHA256: hash, Certificate: cert}, nil
}

func (f *fakeStore) Status(context.Context, *pb.StatusRequest) (*pb.StatusResponse, error) {
	return &pb.StatusResponse{RootKey: f.rootKey, Version: "test"}, nil
}

func (f *fakeStore) Ping(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error) {
	return wrapperspb.String(f.pingResp), nil
}

// serve starts f on an in-memory listener and returns a dial option that
// routes any target to it.
func serve(t *testing.T, f *fakeStore) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterAssetStoreServer(srv, f)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

var testSecret = []byte("provider-secret")

func newIdentity(t *testing.T, principal string) *delegation.Identity {
	t.Helper()
	pub, priv, err := cryptox.NewSessionKey()
	require.NoError(t, err)
	tok, _, err := delegation.Issue(delegation.IssueOptions{
		Issuer:     "test",
		Secret:     testSecret,
		Principal:  delegation.Principal(principal),
		SessionKey: pub,
		TTL:        time.Hour,
	})
	require.NoError(t, err)
	id, err := delegation.NewIdentity(tok, priv)
	require.NoError(t, err)
	return id
}
