// Package session owns the signed-in user on the client: it runs the
// browser sign-in, keeps the credentials in the local metadata store and
// tears everything down on sign-out.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sendit/internal/client/client"
	"github.com/dmitrijs2005/sendit/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/dmitrijs2005/sendit/internal/rpc"
)

// Keys in the metadata store.
const (
	keyAccessToken  = "access_token"
	keyRefreshToken = "refresh_token"
	keyIdentity     = "identity"
)

// ErrNoSession is returned by Restore when nothing usable is persisted.
var ErrNoSession = errors.New("no saved session")

// Session is the signed-in identity handed to every controller.
type Session struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

// Valid reports whether the session can be used for writes.
func (s *Session) Valid() bool {
	return s != nil && s.UID != "" && s.Email != ""
}

func fromIdentity(id rpc.Identity) *Session {
	return &Session{UID: id.UID, Email: id.Email, DisplayName: id.DisplayName, PhotoURL: id.PhotoURL}
}

// Closer is a controller bound to the session lifetime.
type Closer interface {
	Close()
}

// Client is the part of the backend API the manager needs.
type Client interface {
	SignInURL(ctx context.Context) (string, string, error)
	CompleteSignIn(ctx context.Context, state string) (*rpc.Identity, error)
	SignOut(ctx context.Context) error
	SetTokens(accessToken, refreshToken string)
	Tokens() (string, string)
	OnTokensRefreshed(fn func(accessToken, refreshToken string))
	GetDocument(ctx context.Context, collection, id string) (*rpc.DocumentSnapshot, error)
}

type Manager struct {
	client        Client
	repo          metadata.Repository
	logger        logging.Logger
	signInTimeout time.Duration

	mu      sync.Mutex
	current *Session
	bound   []Closer
}

func NewManager(c Client, repo metadata.Repository, logger logging.Logger, signInTimeout time.Duration) *Manager {
	m := &Manager{
		client:        c,
		repo:          repo,
		logger:        logger.With("module", "session"),
		signInTimeout: signInTimeout,
	}
	c.OnTokensRefreshed(m.persistTokens)
	return m
}

// Current returns the signed-in session or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// SignIn asks the server for a sign-in URL, hands it to present and waits
// until the user has finished in the browser or the sign-in timeout runs
// out.
func (m *Manager) SignIn(ctx context.Context, present func(url string)) (*Session, error) {
	url, state, err := m.client.SignInURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign-in url: %w", err)
	}
	present(url)

	waitCtx := ctx
	if m.signInTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.signInTimeout)
		defer cancel()
	}

	identity, err := m.client.CompleteSignIn(waitCtx, state)
	if err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return nil, common.ErrSignInExpired
		}
		return nil, err
	}

	sess := fromIdentity(*identity)
	if err := m.persist(ctx, *identity); err != nil {
		m.logger.Warn(ctx, "session not saved", "error", err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	m.logger.Info(ctx, "signed in", "uid", sess.UID)
	return sess, nil
}

// Restore reloads the persisted session and checks it against the server,
// which rotates the tokens when the access token has expired. A session the
// server rejects is wiped.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	values, err := m.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	access, refresh := string(values[keyAccessToken]), string(values[keyRefreshToken])
	raw := values[keyIdentity]
	if refresh == "" || len(raw) == 0 {
		return nil, ErrNoSession
	}

	var identity rpc.Identity
	if err := json.Unmarshal(raw, &identity); err != nil || identity.UID == "" {
		_ = m.repo.Clear(ctx)
		return nil, ErrNoSession
	}

	m.client.SetTokens(access, refresh)

	if _, err := m.client.GetDocument(ctx, common.UsersCollection, identity.UID); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			m.client.SetTokens("", "")
			if err := m.repo.Clear(ctx); err != nil {
				m.logger.Warn(ctx, "failed to wipe rejected session", "error", err)
			}
			return nil, ErrNoSession
		}
		return nil, err
	}

	sess := fromIdentity(identity)
	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()

	return sess, nil
}

// Bind ties a controller to the current session; SignOut closes it.
func (m *Manager) Bind(c Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bound = append(m.bound, c)
}

// SignOut closes every bound controller, revokes the refresh token and
// wipes the persisted credentials. Local state is cleared even when the
// server cannot be reached.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	bound := m.bound
	m.bound = nil
	m.current = nil
	m.mu.Unlock()

	for i := len(bound) - 1; i >= 0; i-- {
		bound[i].Close()
	}

	var errs []error
	if err := m.client.SignOut(ctx); err != nil {
		m.logger.Warn(ctx, "refresh token not revoked", "error", err)
		errs = append(errs, err)
	}
	if err := m.repo.Clear(ctx); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (m *Manager) persist(ctx context.Context, identity rpc.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	access, refresh := m.client.Tokens()
	return m.repo.SetAll(ctx, map[string][]byte{
		keyAccessToken:  []byte(access),
		keyRefreshToken: []byte(refresh),
		keyIdentity:     raw,
	})
}

// persistTokens runs after a transparent token rotation.
func (m *Manager) persistTokens(access, refresh string) {
	ctx := context.Background()
	err := m.repo.SetAll(ctx, map[string][]byte{
		keyAccessToken:  []byte(access),
		keyRefreshToken: []byte(refresh),
	})
	if err != nil {
		m.logger.Warn(ctx, "rotated tokens not saved", "error", err)
	}
}
