package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "sendit.v1.SendIt"

// FullMethod returns the "/service/method" path for a method name.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Method names.
const (
	MethodPing            = "Ping"
	MethodSignInURL       = "SignInURL"
	MethodCompleteSignIn  = "CompleteSignIn"
	MethodRefreshToken    = "RefreshToken"
	MethodSignOut         = "SignOut"
	MethodGetDocument     = "GetDocument"
	MethodSetDocument     = "SetDocument"
	MethodAddDocument     = "AddDocument"
	MethodDeleteDocument  = "DeleteDocument"
	MethodQueryDocuments  = "QueryDocuments"
	MethodWatchDocument   = "WatchDocument"
	MethodWatchQuery      = "WatchQuery"
	MethodCreateUploadURL = "CreateUploadURL"
	MethodGetDownloadURL  = "GetDownloadURL"
	MethodDeleteObject    = "DeleteObject"
)

// SendItServer is implemented by the server transport.
type SendItServer interface {
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	SignInURL(context.Context, *SignInURLRequest) (*SignInURLResponse, error)
	CompleteSignIn(context.Context, *CompleteSignInRequest) (*SignInResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error)
	SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error)
	GetDocument(context.Context, *GetDocumentRequest) (*DocumentSnapshot, error)
	SetDocument(context.Context, *SetDocumentRequest) (*SetDocumentResponse, error)
	AddDocument(context.Context, *AddDocumentRequest) (*AddDocumentResponse, error)
	DeleteDocument(context.Context, *DeleteDocumentRequest) (*DeleteDocumentResponse, error)
	QueryDocuments(context.Context, *QueryDocumentsRequest) (*QuerySnapshot, error)
	WatchDocument(*WatchDocumentRequest, DocumentSnapshotServerStream) error
	WatchQuery(*WatchQueryRequest, QuerySnapshotServerStream) error
	CreateUploadURL(context.Context, *CreateUploadURLRequest) (*CreateUploadURLResponse, error)
	GetDownloadURL(context.Context, *GetDownloadURLRequest) (*GetDownloadURLResponse, error)
	DeleteObject(context.Context, *DeleteObjectRequest) (*DeleteObjectResponse, error)
}

// UnimplementedSendItServer can be embedded to get Unimplemented errors for
// methods a server does not provide.
type UnimplementedSendItServer struct{}

func (UnimplementedSendItServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ping not implemented")
}
func (UnimplementedSendItServer) SignInURL(context.Context, *SignInURLRequest) (*SignInURLResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignInURL not implemented")
}
func (UnimplementedSendItServer) CompleteSignIn(context.Context, *CompleteSignInRequest) (*SignInResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CompleteSignIn not implemented")
}
func (UnimplementedSendItServer) RefreshToken(context.Context, *RefreshTokenRequest) (*RefreshTokenResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RefreshToken not implemented")
}
func (UnimplementedSendItServer) SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SignOut not implemented")
}
func (UnimplementedSendItServer) GetDocument(context.Context, *GetDocumentRequest) (*DocumentSnapshot, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDocument not implemented")
}
func (UnimplementedSendItServer) SetDocument(context.Context, *SetDocumentRequest) (*SetDocumentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetDocument not implemented")
}
func (UnimplementedSendItServer) AddDocument(context.Context, *AddDocumentRequest) (*AddDocumentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method AddDocument not implemented")
}
func (UnimplementedSendItServer) DeleteDocument(context.Context, *DeleteDocumentRequest) (*DeleteDocumentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteDocument not implemented")
}
func (UnimplementedSendItServer) QueryDocuments(context.Context, *QueryDocumentsRequest) (*QuerySnapshot, error) {
	return nil, status.Error(codes.Unimplemented, "method QueryDocuments not implemented")
}
func (UnimplementedSendItServer) WatchDocument(*WatchDocumentRequest, DocumentSnapshotServerStream) error {
	return status.Error(codes.Unimplemented, "method WatchDocument not implemented")
}
func (UnimplementedSendItServer) WatchQuery(*WatchQueryRequest, QuerySnapshotServerStream) error {
	return status.Error(codes.Unimplemented, "method WatchQuery not implemented")
}
func (UnimplementedSendItServer) CreateUploadURL(context.Context, *CreateUploadURLRequest) (*CreateUploadURLResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateUploadURL not implemented")
}
func (UnimplementedSendItServer) GetDownloadURL(context.Context, *GetDownloadURLRequest) (*GetDownloadURLResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetDownloadURL not implemented")
}
func (UnimplementedSendItServer) DeleteObject(context.Context, *DeleteObjectRequest) (*DeleteObjectResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteObject not implemented")
}

// DocumentSnapshotServerStream is the server side of WatchDocument.
type DocumentSnapshotServerStream interface {
	Send(*DocumentSnapshot) error
	grpc.ServerStream
}

// QuerySnapshotServerStream is the server side of WatchQuery.
type QuerySnapshotServerStream interface {
	Send(*QuerySnapshot) error
	grpc.ServerStream
}

type documentSnapshotServerStream struct{ grpc.ServerStream }

func (x *documentSnapshotServerStream) Send(m *DocumentSnapshot) error {
	return x.ServerStream.SendMsg(m)
}

type querySnapshotServerStream struct{ grpc.ServerStream }

func (x *querySnapshotServerStream) Send(m *QuerySnapshot) error {
	return x.ServerStream.SendMsg(m)
}

// unary builds the method descriptor for a unary call.
func unary[Req, Resp any](name string, call func(SendItServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(SendItServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(SendItServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchDocumentHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchDocumentRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SendItServer).WatchDocument(in, &documentSnapshotServerStream{stream})
}

func watchQueryHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchQueryRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(SendItServer).WatchQuery(in, &querySnapshotServerStream{stream})
}

// ServiceDesc describes the SendIt service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SendItServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodPing, SendItServer.Ping),
		unary(MethodSignInURL, SendItServer.SignInURL),
		unary(MethodCompleteSignIn, SendItServer.CompleteSignIn),
		unary(MethodRefreshToken, SendItServer.RefreshToken),
		unary(MethodSignOut, SendItServer.SignOut),
		unary(MethodGetDocument, SendItServer.GetDocument),
		unary(MethodSetDocument, SendItServer.SetDocument),
		unary(MethodAddDocument, SendItServer.AddDocument),
		unary(MethodDeleteDocument, SendItServer.DeleteDocument),
		unary(MethodQueryDocuments, SendItServer.QueryDocuments),
		unary(MethodCreateUploadURL, SendItServer.CreateUploadURL),
		unary(MethodGetDownloadURL, SendItServer.GetDownloadURL),
		unary(MethodDeleteObject, SendItServer.DeleteObject),
	},
	Streams: []grpc.StreamDesc{
		{StreamName: MethodWatchDocument, Handler: watchDocumentHandler, ServerStreams: true},
		{StreamName: MethodWatchQuery, Handler: watchQueryHandler, ServerStreams: true},
	},
	Metadata: "sendit/v1/sendit.json",
}

// RegisterSendItServer registers srv on s.
func RegisterSendItServer(s grpc.ServiceRegistrar, srv SendItServer) {
	s.RegisterService(&ServiceDesc, srv)
}
