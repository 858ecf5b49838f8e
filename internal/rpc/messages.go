package rpc

import "github.com/dmitrijs2005/sendit/internal/documents"

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

type SignInURLRequest struct{}

type SignInURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type CompleteSignInRequest struct {
	State string `json:"state" validate:"required,hexadecimal"`
}

type SignInResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	Identity     Identity `json:"identity"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type RefreshTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type SignOutRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type SignOutResponse struct{}

type GetDocumentRequest struct {
	Collection string `json:"collection" validate:"required,max=64,alphanum"`
	ID         string `json:"id" validate:"required,max=128,excludesall=/"`
}

// DocumentSnapshot is the state of one document at a point in time.
type DocumentSnapshot struct {
	Exists   bool                `json:"exists"`
	Document *documents.Document `json:"document,omitempty"`
}

type SetDocumentRequest struct {
	Collection string         `json:"collection" validate:"required,max=64,alphanum"`
	ID         string         `json:"id" validate:"required,max=128,excludesall=/"`
	Data       map[string]any `json:"data"`
	Merge      bool           `json:"merge"`
}

type SetDocumentResponse struct{}

type AddDocumentRequest struct {
	Collection string         `json:"collection" validate:"required,max=64,alphanum"`
	Data       map[string]any `json:"data"`
}

type AddDocumentResponse struct {
	ID string `json:"id"`
}

type DeleteDocumentRequest struct {
	Collection string `json:"collection" validate:"required,max=64,alphanum"`
	ID         string `json:"id" validate:"required,max=128,excludesall=/"`
}

type DeleteDocumentResponse struct{}

type QueryDocumentsRequest struct {
	Collection string             `json:"collection" validate:"required,max=64,alphanum"`
	Filters    []documents.Filter `json:"filters" validate:"dive"`
}

// QuerySnapshot is the full result set of a query at a point in time.
type QuerySnapshot struct {
	Documents []documents.Document `json:"documents"`
}

type WatchDocumentRequest struct {
	Collection string `json:"collection" validate:"required,max=64,alphanum"`
	ID         string `json:"id" validate:"required,max=128,excludesall=/"`
}

type WatchQueryRequest struct {
	Collection string             `json:"collection" validate:"required,max=64,alphanum"`
	Filters    []documents.Filter `json:"filters" validate:"dive"`
}

type CreateUploadURLRequest struct {
	Path string `json:"path" validate:"required,max=1024"`
}

type CreateUploadURLResponse struct {
	URL string `json:"url"`
}

type GetDownloadURLRequest struct {
	Path string `json:"path" validate:"required,max=1024"`
}

type GetDownloadURLResponse struct {
	URL string `json:"url"`
}

type DeleteObjectRequest struct {
	Path string `json:"path" validate:"required,max=1024"`
}

type DeleteObjectResponse struct{}
