package grpc

import (
	"context"

	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/rpc"
	"github.com/dmitrijs2005/sendit/internal/server/auth"
	"github.com/dmitrijs2005/sendit/internal/server/models"
)

func (s *GRPCServer) Ping(ctx context.Context, req *rpc.PingRequest) (*rpc.PingResponse, error) {
	return &rpc.PingResponse{Status: "OK"}, nil
}

func (s *GRPCServer) SignInURL(ctx context.Context, req *rpc.SignInURLRequest) (*rpc.SignInURLResponse, error) {
	url, state, err := s.sessions.StartSignIn(ctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SignInURLResponse{URL: url, State: state}, nil
}

func (s *GRPCServer) CompleteSignIn(ctx context.Context, req *rpc.CompleteSignInRequest) (*rpc.SignInResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, s.toStatus(ctx, err)
	}

	pair, id, err := s.sessions.CompleteSignIn(ctx, req.State)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	s.logger.Info(ctx, "Signed in", "uid", id.UID)
	return &rpc.SignInResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Identity: rpc.Identity{
			UID:         id.UID,
			Email:       id.Email,
			DisplayName: id.DisplayName,
			PhotoURL:    id.PhotoURL,
		},
	}, nil
}

func (s *GRPCServer) RefreshToken(ctx context.Context, req *rpc.RefreshTokenRequest) (*rpc.RefreshTokenResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	pair, err := s.sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.RefreshTokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (s *GRPCServer) SignOut(ctx context.Context, req *rpc.SignOutRequest) (*rpc.SignOutResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := s.sessions.SignOut(ctx, req.RefreshToken); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SignOutResponse{}, nil
}

func (s *GRPCServer) GetDocument(ctx context.Context, req *rpc.GetDocumentRequest) (*rpc.DocumentSnapshot, error) {
	p, err := s.principal(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.Snapshot(ctx, p, req.Collection, req.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return documentSnapshot(doc), nil
}

func (s *GRPCServer) SetDocument(ctx context.Context, req *rpc.SetDocumentRequest) (*rpc.SetDocumentResponse, error) {
	p, err := s.principal(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Set(ctx, p, req.Collection, req.ID, req.Data, req.Merge); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.SetDocumentResponse{}, nil
}

func (s *GRPCServer) AddDocument(ctx context.Context, req *rpc.AddDocumentRequest) (*rpc.AddDocumentResponse, error) {
	p, err := s.principal(ctx, req)
	if err != nil {
		return nil, err
	}
	id, err := s.docs.Add(ctx, p, req.Collection, req.Data)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.AddDocumentResponse{ID: id}, nil
}

func (s *GRPCServer) DeleteDocument(ctx context.Context, req *rpc.DeleteDocumentRequest) (*rpc.DeleteDocumentResponse, error) {
	p, err := s.principal(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.docs.Delete(ctx, p, req.Collection, req.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.DeleteDocumentResponse{}, nil
}

func (s *GRPCServer) QueryDocuments(ctx context.Context, req *rpc.QueryDocumentsRequest) (*rpc.QuerySnapshot, error) {
	p, err := s.principal(ctx, req)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.Query(ctx, p, req.Collection, req.Filters)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return querySnapshot(docs), nil
}

func (s *GRPCServer) CreateUploadURL(ctx context.Context, req *rpc.CreateUploadURLRequest) (*rpc.CreateUploadURLResponse, error) {
	p, err := s.principal(ctx, req)
	if err != nil {
		return nil, err
	}
	url, err := s.blobs.CreateUploadURL(ctx, p, req.Path)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.CreateUploadURLResponse{URL: url}, nil
}

func (s *GRPCServer) GetDownloadURL(ctx context.Context, req *rpc.GetDownloadURLRequest) (*rpc.GetDownloadURLResponse, error) {
	p, err := s.principal(ctx, req)
	if err != nil {
		return nil, err
	}
	url, err := s.blobs.GetDownloadURL(ctx, p, req.Path)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.GetDownloadURLResponse{URL: url}, nil
}

func (s *GRPCServer) DeleteObject(ctx context.Context, req *rpc.DeleteObjectRequest) (*rpc.DeleteObjectResponse, error) {
	p, err := s.principal(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.DeleteObject(ctx, p, req.Path); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &rpc.DeleteObjectResponse{}, nil
}

// principal validates req and returns the caller set by the interceptor.
func (s *GRPCServer) principal(ctx context.Context, req any) (auth.Principal, error) {
	if err := s.validate.Struct(req); err != nil {
		return auth.Principal{}, s.toStatus(ctx, err)
	}
	p, ok := auth.PrincipalFrom(ctx)
	if !ok {
		return auth.Principal{}, s.toStatus(ctx, common.ErrorUnauthorized)
	}
	return p, nil
}

func documentSnapshot(doc *models.Document) *rpc.DocumentSnapshot {
	if doc == nil {
		return &rpc.DocumentSnapshot{}
	}
	return &rpc.DocumentSnapshot{Exists: true, Document: &documents.Document{ID: doc.ID, Data: doc.Data}}
}

func querySnapshot(docs []*models.Document) *rpc.QuerySnapshot {
	out := &rpc.QuerySnapshot{Documents: make([]documents.Document, 0, len(docs))}
	for _, d := range docs {
		out.Documents = append(out.Documents, documents.Document{ID: d.ID, Data: d.Data})
	}
	return out
}
