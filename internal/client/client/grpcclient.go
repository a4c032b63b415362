package client

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dmitrijs2005/carvault/internal/client/models"
	"github.com/dmitrijs2005/carvault/internal/common"
	"github.com/dmitrijs2005/carvault/internal/cryptox"
	"github.com/dmitrijs2005/carvault/internal/delegation"
	pb "github.com/dmitrijs2005/carvault/internal/proto"
)

// IngressExpiry bounds every call made through a GRPCClient.
const IngressExpiry = 5 * time.Minute

type GRPCClient struct {
	endpoint      string
	conn          *grpc.ClientConn
	client        pb.AssetStoreClient
	identity      *delegation.Identity
	ingressExpiry time.Duration
	rootKey       ed25519.PublicKey
	now           func() time.Time
}

// Option customizes a GRPCClient.
type Option func(*clientOptions)

type clientOptions struct {
	secure      bool
	dialOptions []grpc.DialOption
	maxPayload  int64
	now         func() time.Time
}

// WithTLS dials with system TLS credentials.
func WithTLS() Option { return func(o *clientOptions) { o.secure = true } }

// WithDialOptions appends raw gRPC dial options.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *clientOptions) { o.dialOptions = append(o.dialOptions, opts...) }
}

// WithMaxPayload raises the send limit so content of up to n bytes fits in
// one encoded request.
func WithMaxPayload(n int64) Option { return func(o *clientOptions) { o.maxPayload = n } }

// WithClock overrides the clock used for ingress expiry.
func WithClock(now func() time.Time) Option { return func(o *clientOptions) { o.now = now } }

// NewGRPCClient prepares a client for endpoint. The connection is lazy, so
// an unreachable endpoint only fails on the first call.
func NewGRPCClient(endpoint string, id *delegation.Identity, opts ...Option) (*GRPCClient, error) {
	o := clientOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &GRPCClient{
		endpoint:      endpoint,
		identity:      id,
		ingressExpiry: IngressExpiry,
		now:           o.now,
	}

	creds := insecure.NewCredentials()
	if o.secure {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithUnaryInterceptor(c.signingInterceptor),
	}, o.dialOptions...)
	if o.maxPayload > 0 {
		dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(
			grpc.MaxCallSendMsgSize(pb.MaxMessageSize(o.maxPayload)),
		))
	}

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = pb.NewAssetStoreClient(conn)
	return c, nil
}

// signingInterceptor attaches the delegation and a signature over the
// request body. Anonymous clients send nothing.
func (c *GRPCClient) signingInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if c.identity == nil {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	body, err := pb.Codec{}.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	expiry := c.now().Add(c.ingressExpiry).UnixNano()
	sig := c.identity.Sign(cryptox.RequestDigest(method, expiry, body))

	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.DelegationHeaderName, c.identity.Delegation())
	md.Set(common.IngressExpiryHeaderName, strconv.FormatInt(expiry, 10))
	md.Set(common.SignatureHeaderName, base64.StdEncoding.EncodeToString(sig))

	return invoker(metadata.NewOutgoingContext(ctx, md), method, req, reply, cc, opts...)
}

func (c *GRPCClient) Store(ctx context.Context, canisterID string, arg models.StoreArg) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.ingressExpiry)
	defer cancel()

	resp, err := c.client.Store(ctx, &pb.StoreRequest{
		CanisterID:      canisterID,
		Key:             arg.Key,
		ContentType:     arg.ContentType,
		ContentEncoding: arg.ContentEncoding,
		Content:         arg.Content,
		SHA256:          arg.SHA256,
	})
	if err != nil {
		return "", c.mapError(err)
	}

	if len(arg.SHA256) > 0 && !bytes.Equal(arg.SHA256, resp.SHA256) {
		return "", common.ErrHashMismatch
	}
	if !cryptox.Verify(c.rootKey, cryptox.CertificateDigest(resp.Key, resp.SHA256), resp.Certificate) {
		return "", common.ErrInvalidCertificate
	}
	return resp.Key, nil
}

func (c *GRPCClient) Status(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.ingressExpiry)
	defer cancel()

	resp, err := c.client.Status(ctx, &pb.StatusRequest{})
	if err != nil {
		return nil, c.mapError(err)
	}
	return resp.RootKey, nil
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	resp, err := c.client.Ping(ctx, &emptypb.Empty{})
	if err != nil {
		return c.mapError(err)
	}
	if resp.GetValue() != "OK" {
		return ErrUnavailable
	}
	return nil
}

// FetchRootKey asks the endpoint for its root key and trusts it from then
// on. Only local networks do this.
func (c *GRPCClient) FetchRootKey(ctx context.Context) error {
	key, err := c.Status(ctx)
	if err != nil {
		return err
	}
	if len(key) != ed25519.PublicKeySize {
		return fmt.Errorf("root key has %d bytes, want %d", len(key), ed25519.PublicKeySize)
	}
	c.rootKey = ed25519.PublicKey(key)
	return nil
}

// SetRootKey installs a root key known out of band.
func (c *GRPCClient) SetRootKey(key ed25519.PublicKey) { c.rootKey = key }

func (c *GRPCClient) RootKey() ed25519.PublicKey { return c.rootKey }

func (c *GRPCClient) Endpoint() string { return c.endpoint }

func (c *GRPCClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *GRPCClient) mapError(err error) error {
	if err == nil {
		return nil
	}
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrUnauthorized, st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	case codes.InvalidArgument, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", common.ErrorValidation, st.Message())
	default:
		return err
	}
}
