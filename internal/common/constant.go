package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Collection names shared by the client controllers and the server rules.
const (
	UsersCollection = "users"
	FilesCollection = "files"
)
