package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/dbx"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/server/auth"
	"github.com/dmitrijs2005/sendit/internal/server/config"
	"github.com/dmitrijs2005/sendit/internal/server/identity"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// SessionService runs the redirect sign-in and the token lifecycle:
// - StartSignIn / HandleCallback / CompleteSignIn: the provider round trip
// - SignIn: record the user and mint tokens
// - Refresh: rotate refresh tokens
// - SignOut: revoke a refresh token
type SessionService struct {
	repomanager                  repomanager.RepositoryManager
	docs                         *DocumentService
	provider                     identity.Provider
	registry                     *identity.Registry
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

func NewSessionService(m repomanager.RepositoryManager, docs *DocumentService, provider identity.Provider,
	registry *identity.Registry, cfg *config.Config) *SessionService {
	return &SessionService{
		repomanager:                  m,
		docs:                         docs,
		provider:                     provider,
		registry:                     registry,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// StartSignIn opens a pending sign-in and returns the URL the user must
// visit together with its state.
func (s *SessionService) StartSignIn(context.Context) (string, string, error) {
	state, err := s.registry.Begin()
	if err != nil {
		return "", "", err
	}
	return s.provider.AuthCodeURL(state), state, nil
}

// HandleCallback exchanges the provider's code and resolves the pending
// sign-in. Exchange failures are handed to the waiting caller.
func (s *SessionService) HandleCallback(ctx context.Context, state, code string) error {
	id, err := s.provider.Exchange(ctx, code)
	if rerr := s.registry.Resolve(state, id, err); rerr != nil {
		return rerr
	}
	return err
}

// FailSignIn resolves a pending sign-in with err, e.g. when the user
// declined consent at the provider.
func (s *SessionService) FailSignIn(state string, err error) error {
	return s.registry.Resolve(state, nil, err)
}

// CompleteSignIn waits for the callback of state and signs the user in.
func (s *SessionService) CompleteSignIn(ctx context.Context, state string) (*TokenPair, *identity.Identity, error) {
	id, err := s.registry.Wait(ctx, state)
	if err != nil {
		return nil, nil, err
	}
	pair, err := s.SignIn(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return pair, id, nil
}

// SignIn merge-writes the user record and issues a token pair.
func (s *SessionService) SignIn(ctx context.Context, id *identity.Identity) (*TokenPair, error) {
	if err := s.writeUserRecord(ctx, id); err != nil {
		return nil, fmt.Errorf("error writing user record: %w", err)
	}
	return s.generateTokenPair(ctx, id.UID, id.Email, s.repomanager.DB())
}

// Refresh validates a refresh token, rotates it transactionally and returns
// a fresh pair. Expired tokens yield ErrRefreshTokenExpired.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	token, err := s.repomanager.RefreshTokens(s.repomanager.DB()).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, token.Email, tx)
		return genErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// SignOut revokes the refresh token. Unknown tokens are ignored.
func (s *SessionService) SignOut(ctx context.Context, refreshToken string) error {
	if err := s.repomanager.RefreshTokens(s.repomanager.DB()).Delete(ctx, refreshToken); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

func (s *SessionService) writeUserRecord(ctx context.Context, id *identity.Identity) error {
	p := auth.Principal{UserID: id.UID, Email: id.Email}
	data := map[string]any{
		"uid":         id.UID,
		"displayName": id.DisplayName,
		"email":       id.Email,
		"photoURL":    id.PhotoURL,
	}

	_, err := s.docs.Get(ctx, p, common.UsersCollection, id.UID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		data["createdAt"] = documents.ServerTimestamp()
	case err != nil:
		return err
	default:
		data["updatedAt"] = documents.ServerTimestamp()
	}
	return s.docs.Set(ctx, p, common.UsersCollection, id.UID, data, true)
}

func (s *SessionService) generateTokenPair(ctx context.Context, userID, email string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, email, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	tokens := s.repomanager.RefreshTokens(tx)
	if _, err := tokens.DeleteExpired(ctx, userID, time.Now()); err != nil {
		return nil, common.ErrorInternal
	}
	if err := tokens.Create(ctx, userID, email, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
