package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/sendit/internal/client/live"
	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/rpc"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// refreshLeeway is how close to expiry an access token may be before a
// long-lived stream is opened with it.
const refreshLeeway = 30 * time.Second

type GRPCClient struct {
	endpointURL string
	dialOptions []grpc.DialOption
	conn        *grpc.ClientConn
	client      rpc.SendItClient

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
	onRefresh    func(accessToken, refreshToken string)

	// serializes refreshes so concurrent expired calls rotate the pair once
	refreshMu sync.Mutex

	now func() time.Time
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Delete(common.AccessTokenHeaderName)
	if token != "" {
		md.Set(common.AccessTokenHeaderName, token)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	token, refreshToken := s.Tokens()

	err := invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}
	if refreshToken == "" || method == rpc.FullMethod(rpc.MethodRefreshToken) {
		return err
	}

	if err := s.refresh(ctx, token); err != nil {
		return err
	}

	// tokens refreshed, retry with the new access token
	return invoker(withAccessToken(ctx, s.AccessToken()), method, req, reply, cc, opts...)
}

// streamAccessTokenInterceptor refreshes a token that is about to expire
// before the stream is opened: the server checks the token only once, and a
// rejected stream surfaces its error on the first Recv where it cannot be
// retried transparently.
func (s *GRPCClient) streamAccessTokenInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	token, refreshToken := s.Tokens()

	if refreshToken != "" && expiresWithin(token, s.now(), refreshLeeway) {
		if err := s.refresh(ctx, token); err != nil {
			return nil, err
		}
		token = s.AccessToken()
	}

	return streamer(withAccessToken(ctx, token), desc, cc, method, opts...)
}

// expiresWithin reads the exp claim without verifying the signature; the
// client never holds the signing key. Tokens without a readable exp are
// treated as fresh.
func expiresWithin(token string, now time.Time, d time.Duration) bool {
	if token == "" {
		return false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !now.Add(d).Before(claims.ExpiresAt.Time)
}

// refresh rotates the token pair unless another caller already replaced
// the stale access token.
func (s *GRPCClient) refresh(ctx context.Context, stale string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	access, refreshToken := s.Tokens()
	if access != stale {
		return nil
	}
	if refreshToken == "" {
		return ErrUnauthorized
	}

	resp, err := s.client.RefreshToken(ctx, &rpc.RefreshTokenRequest{RefreshToken: refreshToken})
	if err != nil {
		return s.mapError(err)
	}

	s.mu.Lock()
	s.accessToken = resp.AccessToken
	s.refreshToken = resp.RefreshToken
	fn := s.onRefresh
	s.mu.Unlock()

	if fn != nil {
		fn(resp.AccessToken, resp.RefreshToken)
	}
	return nil
}

// NewSendItClient creates the client and its connection. Extra dial options
// are appended to the defaults (insecure transport, token interceptors).
func NewSendItClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL, dialOptions: opts, now: time.Now}
	err := c.InitGRPCClient()
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *GRPCClient) InitGRPCClient() error {
	opts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(s.accessTokenInterceptor),
		grpc.WithStreamInterceptor(s.streamAccessTokenInterceptor),
	}, s.dialOptions...)

	conn, err := grpc.NewClient(s.endpointURL, opts...)
	if err != nil {
		return err
	}
	s.conn = conn
	s.client = rpc.NewSendItClient(conn)
	return nil
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Tokens() (string, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.refreshToken
}

func (s *GRPCClient) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *GRPCClient) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
}

// OnTokensRefreshed registers fn to be called after every transparent
// rotation so the new pair can be persisted.
func (s *GRPCClient) OnTokensRefreshed(fn func(accessToken, refreshToken string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &rpc.PingRequest{})
	if err != nil {
		return s.mapError(err)
	}

	if resp.Status != "OK" {
		return ErrUnavailable
	}

	return nil
}

func (s *GRPCClient) SignInURL(ctx context.Context) (string, string, error) {
	resp, err := s.client.SignInURL(ctx, &rpc.SignInURLRequest{})
	if err != nil {
		return "", "", s.mapError(err)
	}
	return resp.URL, resp.State, nil
}

// CompleteSignIn blocks until the browser half of the sign-in finishes,
// then keeps the issued token pair.
func (s *GRPCClient) CompleteSignIn(ctx context.Context, state string) (*rpc.Identity, error) {
	resp, err := s.client.CompleteSignIn(ctx, &rpc.CompleteSignInRequest{State: state})
	if err != nil {
		return nil, s.mapError(err)
	}

	s.SetTokens(resp.AccessToken, resp.RefreshToken)

	identity := resp.Identity
	return &identity, nil
}

// SignOut revokes the refresh token and forgets both tokens. The local
// tokens are dropped even when the server call fails.
func (s *GRPCClient) SignOut(ctx context.Context) error {
	_, refreshToken := s.Tokens()
	s.SetTokens("", "")

	if refreshToken == "" {
		return nil
	}

	if _, err := s.client.SignOut(ctx, &rpc.SignOutRequest{RefreshToken: refreshToken}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) GetDocument(ctx context.Context, collection, id string) (*rpc.DocumentSnapshot, error) {
	resp, err := s.client.GetDocument(ctx, &rpc.GetDocumentRequest{Collection: collection, ID: id})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp, nil
}

func (s *GRPCClient) SetDocument(ctx context.Context, collection, id string, data map[string]any, merge bool) error {
	req := &rpc.SetDocumentRequest{Collection: collection, ID: id, Data: data, Merge: merge}
	if _, err := s.client.SetDocument(ctx, req); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) AddDocument(ctx context.Context, collection string, data map[string]any) (string, error) {
	resp, err := s.client.AddDocument(ctx, &rpc.AddDocumentRequest{Collection: collection, Data: data})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.ID, nil
}

func (s *GRPCClient) DeleteDocument(ctx context.Context, collection, id string) error {
	if _, err := s.client.DeleteDocument(ctx, &rpc.DeleteDocumentRequest{Collection: collection, ID: id}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) QueryDocuments(ctx context.Context, collection string, filters ...documents.Filter) ([]documents.Document, error) {
	resp, err := s.client.QueryDocuments(ctx, &rpc.QueryDocumentsRequest{Collection: collection, Filters: filters})
	if err != nil {
		return nil, s.mapError(err)
	}
	return resp.Documents, nil
}

// WatchDocument opens a live subscription to one document. The first
// snapshot is the current state.
func (s *GRPCClient) WatchDocument(ctx context.Context, collection, id string) (*live.Subscription[rpc.DocumentSnapshot], error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := s.client.WatchDocument(ctx, &rpc.WatchDocumentRequest{Collection: collection, ID: id})
	if err != nil {
		cancel()
		return nil, s.mapError(err)
	}

	return live.New(cancel, func() (rpc.DocumentSnapshot, error) {
		m, err := stream.Recv()
		if err != nil {
			return rpc.DocumentSnapshot{}, s.mapError(err)
		}
		return *m, nil
	}), nil
}

// WatchQuery opens a live subscription to a filtered collection. Every
// snapshot carries the full result set.
func (s *GRPCClient) WatchQuery(ctx context.Context, collection string, filters ...documents.Filter) (*live.Subscription[rpc.QuerySnapshot], error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := s.client.WatchQuery(ctx, &rpc.WatchQueryRequest{Collection: collection, Filters: filters})
	if err != nil {
		cancel()
		return nil, s.mapError(err)
	}

	return live.New(cancel, func() (rpc.QuerySnapshot, error) {
		m, err := stream.Recv()
		if err != nil {
			return rpc.QuerySnapshot{}, s.mapError(err)
		}
		return *m, nil
	}), nil
}

func (s *GRPCClient) CreateUploadURL(ctx context.Context, path string) (string, error) {
	resp, err := s.client.CreateUploadURL(ctx, &rpc.CreateUploadURLRequest{Path: path})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.URL, nil
}

func (s *GRPCClient) GetDownloadURL(ctx context.Context, path string) (string, error) {
	resp, err := s.client.GetDownloadURL(ctx, &rpc.GetDownloadURLRequest{Path: path})
	if err != nil {
		return "", s.mapError(err)
	}
	return resp.URL, nil
}

func (s *GRPCClient) DeleteObject(ctx context.Context, path string) error {
	if _, err := s.client.DeleteObject(ctx, &rpc.DeleteObjectRequest{Path: path}); err != nil {
		return s.mapError(err)
	}
	return nil
}

func (s *GRPCClient) mapError(err error) error {
	if err == nil || errors.Is(err, io.EOF) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return ErrUnauthorized
	case codes.PermissionDenied:
		return ErrForbidden
	case codes.NotFound:
		return ErrNotFound
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, st.Message())
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		if st.Message() == common.ErrSignInExpired.Error() {
			return common.ErrSignInExpired
		}
		return ErrUnavailable
	case codes.Unavailable:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
