package rpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
)

// SendItClient is the client API for the SendIt service.
type SendItClient interface {
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	SignInURL(ctx context.Context, in *SignInURLRequest, opts ...grpc.CallOption) (*SignInURLResponse, error)
	CompleteSignIn(ctx context.Context, in *CompleteSignInRequest, opts ...grpc.CallOption) (*SignInResponse, error)
	RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error)
	SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*SignOutResponse, error)
	GetDocument(ctx context.Context, in *GetDocumentRequest, opts ...grpc.CallOption) (*DocumentSnapshot, error)
	SetDocument(ctx context.Context, in *SetDocumentRequest, opts ...grpc.CallOption) (*SetDocumentResponse, error)
	AddDocument(ctx context.Context, in *AddDocumentRequest, opts ...grpc.CallOption) (*AddDocumentResponse, error)
	DeleteDocument(ctx context.Context, in *DeleteDocumentRequest, opts ...grpc.CallOption) (*DeleteDocumentResponse, error)
	QueryDocuments(ctx context.Context, in *QueryDocumentsRequest, opts ...grpc.CallOption) (*QuerySnapshot, error)
	WatchDocument(ctx context.Context, in *WatchDocumentRequest, opts ...grpc.CallOption) (DocumentSnapshotClientStream, error)
	WatchQuery(ctx context.Context, in *WatchQueryRequest, opts ...grpc.CallOption) (QuerySnapshotClientStream, error)
	CreateUploadURL(ctx context.Context, in *CreateUploadURLRequest, opts ...grpc.CallOption) (*CreateUploadURLResponse, error)
	GetDownloadURL(ctx context.Context, in *GetDownloadURLRequest, opts ...grpc.CallOption) (*GetDownloadURLResponse, error)
	DeleteObject(ctx context.Context, in *DeleteObjectRequest, opts ...grpc.CallOption) (*DeleteObjectResponse, error)
}

// DocumentSnapshotClientStream is the client side of WatchDocument.
type DocumentSnapshotClientStream interface {
	Recv() (*DocumentSnapshot, error)
	grpc.ClientStream
}

// QuerySnapshotClientStream is the client side of WatchQuery.
type QuerySnapshotClientStream interface {
	Recv() (*QuerySnapshot, error)
	grpc.ClientStream
}

type sendItClient struct {
	cc grpc.ClientConnInterface
}

// NewSendItClient wraps a connection. Calls use the JSON codec unless the
// caller overrides the content subtype.
func NewSendItClient(cc grpc.ClientConnInterface) SendItClient {
	return &sendItClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sendItClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c.cc, MethodPing, in, opts)
}

func (c *sendItClient) SignInURL(ctx context.Context, in *SignInURLRequest, opts ...grpc.CallOption) (*SignInURLResponse, error) {
	return invoke[SignInURLResponse](ctx, c.cc, MethodSignInURL, in, opts)
}

func (c *sendItClient) CompleteSignIn(ctx context.Context, in *CompleteSignInRequest, opts ...grpc.CallOption) (*SignInResponse, error) {
	return invoke[SignInResponse](ctx, c.cc, MethodCompleteSignIn, in, opts)
}

func (c *sendItClient) RefreshToken(ctx context.Context, in *RefreshTokenRequest, opts ...grpc.CallOption) (*RefreshTokenResponse, error) {
	return invoke[RefreshTokenResponse](ctx, c.cc, MethodRefreshToken, in, opts)
}

func (c *sendItClient) SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*SignOutResponse, error) {
	return invoke[SignOutResponse](ctx, c.cc, MethodSignOut, in, opts)
}

func (c *sendItClient) GetDocument(ctx context.Context, in *GetDocumentRequest, opts ...grpc.CallOption) (*DocumentSnapshot, error) {
	return invoke[DocumentSnapshot](ctx, c.cc, MethodGetDocument, in, opts)
}

func (c *sendItClient) SetDocument(ctx context.Context, in *SetDocumentRequest, opts ...grpc.CallOption) (*SetDocumentResponse, error) {
	return invoke[SetDocumentResponse](ctx, c.cc, MethodSetDocument, in, opts)
}

func (c *sendItClient) AddDocument(ctx context.Context, in *AddDocumentRequest, opts ...grpc.CallOption) (*AddDocumentResponse, error) {
	return invoke[AddDocumentResponse](ctx, c.cc, MethodAddDocument, in, opts)
}

func (c *sendItClient) DeleteDocument(ctx context.Context, in *DeleteDocumentRequest, opts ...grpc.CallOption) (*DeleteDocumentResponse, error) {
	return invoke[DeleteDocumentResponse](ctx, c.cc, MethodDeleteDocument, in, opts)
}

func (c *sendItClient) QueryDocuments(ctx context.Context, in *QueryDocumentsRequest, opts ...grpc.CallOption) (*QuerySnapshot, error) {
	return invoke[QuerySnapshot](ctx, c.cc, MethodQueryDocuments, in, opts)
}

func (c *sendItClient) CreateUploadURL(ctx context.Context, in *CreateUploadURLRequest, opts ...grpc.CallOption) (*CreateUploadURLResponse, error) {
	return invoke[CreateUploadURLResponse](ctx, c.cc, MethodCreateUploadURL, in, opts)
}

func (c *sendItClient) GetDownloadURL(ctx context.Context, in *GetDownloadURLRequest, opts ...grpc.CallOption) (*GetDownloadURLResponse, error) {
	return invoke[GetDownloadURLResponse](ctx, c.cc, MethodGetDownloadURL, in, opts)
}

func (c *sendItClient) DeleteObject(ctx context.Context, in *DeleteObjectRequest, opts ...grpc.CallOption) (*DeleteObjectResponse, error) {
	return invoke[DeleteObjectResponse](ctx, c.cc, MethodDeleteObject, in, opts)
}

func openServerStream(ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.StreamDesc, in any, opts []grpc.CallOption) (grpc.ClientStream, error) {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := cc.NewStream(ctx, desc, FullMethod(desc.StreamName), opts...)
	if err != nil {
		return nil, err
	}
	// io.EOF means the server already ended the stream; its status is
	// reported by the first RecvMsg.
	if err := stream.SendMsg(in); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}

func (c *sendItClient) WatchDocument(ctx context.Context, in *WatchDocumentRequest, opts ...grpc.CallOption) (DocumentSnapshotClientStream, error) {
	stream, err := openServerStream(ctx, c.cc, &ServiceDesc.Streams[0], in, opts)
	if err != nil {
		return nil, err
	}
	return &documentSnapshotClientStream{stream}, nil
}

func (c *sendItClient) WatchQuery(ctx context.Context, in *WatchQueryRequest, opts ...grpc.CallOption) (QuerySnapshotClientStream, error) {
	stream, err := openServerStream(ctx, c.cc, &ServiceDesc.Streams[1], in, opts)
	if err != nil {
		return nil, err
	}
	return &querySnapshotClientStream{stream}, nil
}

type documentSnapshotClientStream struct{ grpc.ClientStream }

func (x *documentSnapshotClientStream) Recv() (*DocumentSnapshot, error) {
	m := new(DocumentSnapshot)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

type querySnapshotClientStream struct{ grpc.ClientStream }

func (x *querySnapshotClientStream) Recv() (*QuerySnapshot, error) {
	m := new(QuerySnapshot)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}
