package services

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/dbx"
	"github.com/dmitrijs2005/sendit/internal/server/auth"
	"github.com/dmitrijs2005/sendit/internal/server/config"
	"github.com/dmitrijs2005/sendit/internal/server/identity"
	"github.com/dmitrijs2005/sendit/internal/server/models"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/documents"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sendit/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sendit/internal/server/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
	}
}

func newSessionService(t *testing.T) (*SessionService, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	rm := repomanager.NewMemoryRepositoryManager()
	docs := NewDocumentService(rm, watch.NewHub())
	return NewSessionService(rm, docs, identity.NewDevProvider("http://127.0.0.1:8080"),
		identity.NewRegistry(time.Minute), testConfig()), rm
}

func TestSessionService_SignInWritesUserRecord(t *testing.T) {
	ctx := context.Background()
	s, _ := newSessionService(t)
	id := &identity.Identity{UID: "u1", Email: "a@example.com", DisplayName: "a", PhotoURL: "http://p"}

	pair, err := s.SignIn(ctx, id)
	require.NoError(t, err)

	claims, err := auth.ParseToken(pair.AccessToken, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)

	p := auth.Principal{UserID: "u1", Email: "a@example.com"}
	doc, err := s.docs.Get(ctx, p, common.UsersCollection, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", doc.Data["email"])
	assert.Equal(t, "http://p", doc.Data["photoURL"])
	assert.Contains(t, doc.Data, "createdAt")
	assert.NotContains(t, doc.Data, "updatedAt")

	require.NoError(t, s.docs.Set(ctx, p, common.UsersCollection, "u1", map[string]any{"text": "keep me"}, true))

	_, err = s.SignIn(ctx, id)
	require.NoError(t, err)
	doc, err = s.docs.Get(ctx, p, common.UsersCollection, "u1")
	require.NoError(t, err)
	assert.Contains(t, doc.Data, "updatedAt")
	assert.Equal(t, "keep me", doc.Data["text"])
}

func TestSessionService_RedirectFlow(t *testing.T) {
	ctx := context.Background()
	s, _ := newSessionService(t)

	link, state, err := s.StartSignIn(ctx)
	require.NoError(t, err)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, state, u.Query().Get("state"))

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = s.HandleCallback(ctx, state, "carol@example.com")
	}()

	pair, id, err := s.CompleteSignIn(ctx, state)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", id.Email)
	assert.NotEmpty(t, pair.RefreshToken)

	assert.ErrorIs(t, s.HandleCallback(ctx, state, "carol@example.com"), common.ErrorNotFound)
}

func TestSessionService_CallbackExchangeError(t *testing.T) {
	ctx := context.Background()
	s, _ := newSessionService(t)

	_, state, err := s.StartSignIn(ctx)
	require.NoError(t, err)

	require.Error(t, s.HandleCallback(ctx, state, "not-an-email"))
	_, _, err = s.CompleteSignIn(ctx, state)
	require.Error(t, err)
}

func TestSessionService_RefreshRotates(t *testing.T) {
	ctx := context.Background()
	s, rm := newSessionService(t)

	pair, err := s.SignIn(ctx, &identity.Identity{UID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	next, err := s.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = rm.RefreshTokens(nil).Find(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	stored, err := rm.RefreshTokens(nil).Find(ctx, next.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", stored.Email)

	_, err = s.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestSessionService_RefreshExpired(t *testing.T) {
	ctx := context.Background()
	s, rm := newSessionService(t)

	require.NoError(t, rm.RefreshTokens(nil).Create(ctx, "u1", "a@example.com", "old", -time.Minute))

	_, err := s.Refresh(ctx, "old")
	assert.ErrorIs(t, err, common.ErrRefreshTokenExpired)
}

func TestSessionService_SignInPurgesExpiredTokens(t *testing.T) {
	ctx := context.Background()
	s, rm := newSessionService(t)

	require.NoError(t, rm.RefreshTokens(nil).Create(ctx, "u1", "a@example.com", "stale", -time.Minute))

	_, err := s.SignIn(ctx, &identity.Identity{UID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	_, err = rm.RefreshTokens(nil).Find(ctx, "stale")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSessionService_SignOut(t *testing.T) {
	ctx := context.Background()
	s, rm := newSessionService(t)

	pair, err := s.SignIn(ctx, &identity.Identity{UID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx, pair.RefreshToken))
	_, err = rm.RefreshTokens(nil).Find(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, s.SignOut(ctx, "unknown"))
}

// --- transactional failure paths over sqlmock ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

type fakeRefreshRepo struct {
	findOut   *models.RefreshToken
	findErr   error
	delErr    error
	createErr error
	purgeErr  error
}

func (f *fakeRefreshRepo) Create(context.Context, string, string, string, time.Duration) error {
	return f.createErr
}
func (f *fakeRefreshRepo) Find(context.Context, string) (*models.RefreshToken, error) {
	return f.findOut, f.findErr
}
func (f *fakeRefreshRepo) Delete(context.Context, string) error { return f.delErr }
func (f *fakeRefreshRepo) DeleteExpired(context.Context, string, time.Time) (int64, error) {
	return 0, f.purgeErr
}

type fakeRepoManager struct {
	db *sql.DB
	r  *fakeRefreshRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context) error { return nil }
func (m *fakeRepoManager) DB() dbx.DBTX                        { return m.db }
func (m *fakeRepoManager) WithTx(ctx context.Context, fn func(context.Context, dbx.DBTX) error) error {
	return dbx.WithTx(ctx, m.db, nil, fn)
}
func (m *fakeRepoManager) Documents(dbx.DBTX) documents.Repository         { return nil }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.r }
func (m *fakeRepoManager) Close() error                                    { return nil }

func newTxSessionService(t *testing.T, r *fakeRefreshRepo) (*SessionService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSessionService(&fakeRepoManager{db: db, r: r}, nil, nil, nil, testConfig()), mock
}

func TestRefresh_CommitsOnSuccess(t *testing.T) {
	s, mock := newTxSessionService(t, &fakeRefreshRepo{
		findOut: &models.RefreshToken{UserID: "u1", Email: "a@b.c", Expires: time.Now().Add(10 * time.Minute)},
	})
	mock.ExpectBegin()
	mock.ExpectCommit()

	pair, err := s.Refresh(context.Background(), "refresh-xyz")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_RollsBackOnDeleteError(t *testing.T) {
	s, mock := newTxSessionService(t, &fakeRefreshRepo{
		findOut: &models.RefreshToken{UserID: "u1", Expires: time.Now().Add(10 * time.Minute)},
		delErr:  errBoom{},
	})
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.Refresh(context.Background(), "r")
	if err == nil || !regexp.MustCompile(`error deleting refresh token: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped delete error, got %v", err)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_RollsBackOnCreateError(t *testing.T) {
	s, mock := newTxSessionService(t, &fakeRefreshRepo{
		findOut:   &models.RefreshToken{UserID: "u1", Expires: time.Now().Add(10 * time.Minute)},
		createErr: errBoom{},
	})
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.Refresh(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrorInternal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_RollsBackOnPurgeError(t *testing.T) {
	s, mock := newTxSessionService(t, &fakeRefreshRepo{
		findOut:  &models.RefreshToken{UserID: "u1", Expires: time.Now().Add(10 * time.Minute)},
		purgeErr: errBoom{},
	})
	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := s.Refresh(context.Background(), "r")
	assert.ErrorIs(t, err, common.ErrorInternal)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_FindError(t *testing.T) {
	s, _ := newTxSessionService(t, &fakeRefreshRepo{findErr: errBoom{}})

	_, err := s.Refresh(context.Background(), "r")
	require.Error(t, err)
	assert.True(t, errors.As(err, new(errBoom)))
}
