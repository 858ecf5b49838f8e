package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/client/session"
	"github.com/dmitrijs2005/sendit/internal/client/syncfield"
	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ann = &session.Session{UID: "u1", Email: "ann@example.com", DisplayName: "Ann"}

type fakeSessions struct {
	current    *session.Session
	signInSess *session.Session
	signInErr  error
	restore    *session.Session
	restoreErr error
	signOutErr error
	signedOut  bool
}

func (f *fakeSessions) Current() *session.Session { return f.current }
func (f *fakeSessions) Bind(session.Closer)       {}

func (f *fakeSessions) SignIn(_ context.Context, present func(string)) (*session.Session, error) {
	present("https://auth.example.com/start")
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.current = f.signInSess
	return f.current, nil
}

func (f *fakeSessions) Restore(context.Context) (*session.Session, error) {
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	f.current = f.restore
	return f.current, nil
}

func (f *fakeSessions) SignOut(context.Context) error {
	f.signedOut = true
	f.current = nil
	return f.signOutErr
}

type fakeText struct {
	text    string
	loaded  bool
	pending bool
	edits   []string
	flushed bool
	closed  bool
}

func (f *fakeText) Text() string  { return f.text }
func (f *fakeText) Loaded() bool  { return f.loaded }
func (f *fakeText) Pending() bool { return f.pending }
func (f *fakeText) Flush()        { f.flushed = true }
func (f *fakeText) Close()        { f.closed = true }
func (f *fakeText) Edit(s string) error {
	f.edits = append(f.edits, s)
	f.text = s
	return nil
}

type batch struct {
	mode  syncfield.Mode
	names []string
}

type fakeFiles struct {
	mu        sync.Mutex
	views     []syncfield.FileView
	loaded    bool
	batches   []batch
	uploadErr error
	clearErr  error
	cleared   bool
	closed    bool
}

func (f *fakeFiles) Files() []syncfield.FileView { return f.views }
func (f *fakeFiles) Loaded() bool                { return f.loaded }
func (f *fakeFiles) Close()                      { f.closed = true }

func (f *fakeFiles) Upload(_ context.Context, files []models.LocalFile, mode syncfield.Mode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := batch{mode: mode}
	for _, lf := range files {
		b.names = append(b.names, lf.Name)
	}
	f.batches = append(f.batches, b)
	return f.uploadErr
}

func (f *fakeFiles) Clear(context.Context) error {
	f.cleared = true
	return f.clearErr
}

type testApp struct {
	*App
	buf     *bytes.Buffer
	sess    *fakeSessions
	txt     *fakeText
	fls     *fakeFiles
	cleaned int
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()

	ta := &testApp{
		buf:  &bytes.Buffer{},
		sess: &fakeSessions{signInSess: ann, restoreErr: session.ErrNoSession},
		txt:  &fakeText{loaded: true},
		fls:  &fakeFiles{loaded: true},
	}
	ta.App = &App{
		logger:   logging.NewTextLogger(io.Discard, "error"),
		out:      newSyncWriter(ta.buf, false),
		in:       strings.NewReader(input),
		sessions: ta.sess,
		openFile: func(path string) (models.LocalFile, error) {
			if strings.HasPrefix(path, "missing") {
				return models.LocalFile{}, errors.New("no such file: " + path)
			}
			return models.LocalFileFromBytes(path, []byte("data")), nil
		},
	}
	ta.App.startControllers = func(context.Context, *session.Session) (textField, fileField, error) {
		return ta.txt, ta.fls, nil
	}
	ta.App.cleanup = []func() error{func() error { ta.cleaned++; return nil }}
	return ta
}

func (ta *testApp) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, ta.SignIn(context.Background()))
}

func TestRun_RestoresSavedSession(t *testing.T) {
	ta := newTestApp(t, "whoami\ntext\nexit\n")
	ta.sess.restoreErr = nil
	ta.sess.restore = ann
	ta.txt.text = "hello"

	ta.Run(context.Background())

	out := ta.buf.String()
	assert.Contains(t, out, "Signed in as Ann <ann@example.com>")
	assert.Contains(t, out, "uid: u1")
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, "Bye!")
	assert.True(t, ta.txt.flushed, "pending edit is written on exit")
	assert.True(t, ta.txt.closed)
	assert.True(t, ta.fls.closed)
	assert.Equal(t, 1, ta.cleaned)
}

func TestRun_WithoutSession(t *testing.T) {
	ta := newTestApp(t, "help\n")

	ta.Run(context.Background())

	out := ta.buf.String()
	assert.Contains(t, out, "Type 'signin' to start.")
	assert.Contains(t, out, helpSignedOut)
	assert.Equal(t, 1, ta.cleaned)
}

func TestRun_RestoreFailureKeepsGoing(t *testing.T) {
	ta := newTestApp(t, "")
	ta.sess.restoreErr = errors.New("disk on fire")

	ta.Run(context.Background())

	assert.Contains(t, ta.buf.String(), "Could not restore the session: disk on fire")
}

func TestSignIn_StartsControllers(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)

	assert.Contains(t, ta.buf.String(), "https://auth.example.com/start")
	assert.Contains(t, ta.buf.String(), "Signed in as Ann")
	assert.True(t, ta.isSignedIn())
	assert.Equal(t, " (ann@example.com)", ta.status())

	text, files := ta.controllers()
	assert.NotNil(t, text)
	assert.NotNil(t, files)

	assert.ErrorIs(t, ta.SignIn(context.Background()), errAlreadySignedIn)
}

func TestSignIn_Expired(t *testing.T) {
	ta := newTestApp(t, "")
	ta.sess.signInErr = common.ErrSignInExpired

	err := ta.SignIn(context.Background())

	require.ErrorIs(t, err, common.ErrSignInExpired)
	assert.Contains(t, err.Error(), "try again")
	assert.False(t, ta.isSignedIn())
	text, _ := ta.controllers()
	assert.Nil(t, text)
}

func TestSignIn_ControllerFailure(t *testing.T) {
	ta := newTestApp(t, "")
	ta.startControllers = func(context.Context, *session.Session) (textField, fileField, error) {
		return nil, nil, errors.New("stream refused")
	}

	assert.EqualError(t, ta.SignIn(context.Background()), "stream refused")
}

func TestSignOut(t *testing.T) {
	ta := newTestApp(t, "")
	assert.ErrorIs(t, ta.SignOut(context.Background()), syncfield.ErrNoIdentity)

	ta.signIn(t)
	require.NoError(t, ta.SignOut(context.Background()))

	assert.True(t, ta.sess.signedOut)
	assert.False(t, ta.isSignedIn())
	text, files := ta.controllers()
	assert.Nil(t, text)
	assert.Nil(t, files)
	assert.Contains(t, ta.buf.String(), "Signed out")
}

func TestSignOut_ReportsError(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)
	ta.sess.signOutErr = errors.New("revoke failed")

	assert.EqualError(t, ta.SignOut(context.Background()), "revoke failed")
	text, _ := ta.controllers()
	assert.Nil(t, text, "local state is dropped even when the server call fails")
}

func TestCommands_RequireSignIn(t *testing.T) {
	ta := newTestApp(t, "")
	ctx := context.Background()

	assert.ErrorIs(t, ta.ShowText(ctx), syncfield.ErrNoIdentity)
	assert.ErrorIs(t, ta.Edit(ctx, "x"), syncfield.ErrNoIdentity)
	assert.ErrorIs(t, ta.ListFiles(ctx), syncfield.ErrNoIdentity)
	assert.ErrorIs(t, ta.Drop(ctx, []string{"a"}), syncfield.ErrNoIdentity)
	assert.ErrorIs(t, ta.Add(ctx, []string{"a"}), syncfield.ErrNoIdentity)
	assert.ErrorIs(t, ta.Clear(ctx), syncfield.ErrNoIdentity)

	require.NoError(t, ta.WhoAmI(ctx))
	assert.Contains(t, ta.buf.String(), "Not signed in")
}

func TestShowText(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)
	ctx := context.Background()

	ta.txt.loaded = false
	ta.buf.Reset()
	require.NoError(t, ta.ShowText(ctx))
	assert.Equal(t, "(loading...)\n", ta.buf.String())

	ta.txt.loaded = true
	ta.buf.Reset()
	require.NoError(t, ta.ShowText(ctx))
	assert.Equal(t, "(empty)\n", ta.buf.String())

	require.NoError(t, ta.Edit(ctx, "draft"))
	ta.txt.pending = true
	ta.buf.Reset()
	require.NoError(t, ta.ShowText(ctx))
	assert.Equal(t, "draft\n(not saved yet)\n", ta.buf.String())
	assert.Equal(t, []string{"draft"}, ta.txt.edits)
}

func TestListFiles(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)
	ctx := context.Background()

	ta.buf.Reset()
	require.NoError(t, ta.ListFiles(ctx))
	assert.Contains(t, ta.buf.String(), "No files yet")

	ta.fls.views = []syncfield.FileView{
		{Record: models.FileRecord{Name: "a.txt", Size: 1536, DownloadURL: "https://dl/a"}, State: models.FileComplete},
		{Record: models.FileRecord{Name: "b.bin", Size: 10}, State: models.FileUploading, Progress: 40},
	}
	ta.buf.Reset()
	require.NoError(t, ta.ListFiles(ctx))

	lines := strings.Split(strings.TrimSpace(ta.buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "1.5 KB")
	assert.Contains(t, lines[0], "https://dl/a")
	assert.Contains(t, lines[1], "uploading 40%")
}

func TestDropAndAdd_UploadInBackground(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)
	ctx := context.Background()

	require.NoError(t, ta.Add(ctx, []string{"a.txt", "b.txt"}))
	ta.uploads.Wait()
	require.NoError(t, ta.Drop(ctx, []string{"c.txt"}))
	ta.uploads.Wait()

	assert.Equal(t, []batch{
		{mode: syncfield.Add, names: []string{"a.txt", "b.txt"}},
		{mode: syncfield.Overwrite, names: []string{"c.txt"}},
	}, ta.fls.batches)

	out := ta.buf.String()
	assert.Contains(t, out, "Uploading 2 file(s) (add)...")
	assert.Contains(t, out, "uploaded 2 file(s)")
	assert.Contains(t, out, "Uploading 1 file(s) (overwrite)...")
	assert.Equal(t, int32(0), ta.inFlight.Load())
}

func TestAddThenDrop_EachBatchKeepsItsMode(t *testing.T) {
	for range 20 {
		ta := newTestApp(t, "")
		ta.signIn(t)
		ctx := context.Background()

		require.NoError(t, ta.Add(ctx, []string{"a.txt"}))
		require.NoError(t, ta.Drop(ctx, []string{"b.txt"}))
		ta.uploads.Wait()

		assert.ElementsMatch(t, []batch{
			{mode: syncfield.Add, names: []string{"a.txt"}},
			{mode: syncfield.Overwrite, names: []string{"b.txt"}},
		}, ta.fls.batches)
	}
}

func TestDrop_StoppedBySignOut(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)
	ta.fls.uploadErr = errors.Join(syncfield.ErrNoIdentity)

	require.NoError(t, ta.Drop(context.Background(), []string{"a.txt"}))
	ta.uploads.Wait()

	assert.Contains(t, ta.buf.String(), "upload stopped: signed out")
	assert.NotContains(t, ta.buf.String(), "upload finished with errors")
}

func TestDrop_UnreadablePathUploadsNothing(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)

	err := ta.Drop(context.Background(), []string{"a.txt", "missing.txt"})
	ta.uploads.Wait()

	assert.EqualError(t, err, "no such file: missing.txt")
	assert.Empty(t, ta.fls.batches)
}

func TestDrop_ReportsFailures(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)
	ta.fls.uploadErr = errors.New("upload a.txt: 403")

	require.NoError(t, ta.Drop(context.Background(), []string{"a.txt"}))
	ta.uploads.Wait()

	assert.Contains(t, ta.buf.String(), "upload finished with errors: upload a.txt: 403")
}

func TestClear(t *testing.T) {
	ta := newTestApp(t, "")
	ta.signIn(t)

	require.NoError(t, ta.Clear(context.Background()))
	assert.True(t, ta.fls.cleared)
	assert.Contains(t, ta.buf.String(), "All files deleted")

	ta.fls.clearErr = errors.New("partial")
	assert.EqualError(t, ta.Clear(context.Background()), "partial")
}

func TestNotices(t *testing.T) {
	ta := newTestApp(t, "")

	ta.onFilesChanged()
	assert.Empty(t, ta.buf.String(), "nothing to report before sign-in")

	ta.signIn(t)
	ta.buf.Reset()

	ta.fls.views = []syncfield.FileView{
		{Record: models.FileRecord{Name: "a"}, State: models.FileUploading, Progress: 5},
	}
	ta.onFilesChanged()
	ta.fls.views[0].Progress = 50
	ta.onFilesChanged()
	assert.Equal(t, "files: 1, 1 uploading\n", ta.buf.String(), "progress alone does not repeat the summary")

	ta.buf.Reset()
	ta.onRemoteText("line one\nline two")
	assert.Equal(t, "text changed remotely: line one ...\n", ta.buf.String())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "(empty)", preview("", 10))
	assert.Equal(t, "short", preview("short", 10))
	assert.Equal(t, "abcde...", preview("abcdefghij", 5))
	assert.Equal(t, "a ...", preview("a\nb", 10))
}

func TestSyncWriter(t *testing.T) {
	var buf bytes.Buffer
	w := newSyncWriter(&buf, true)

	w.Progress("uploading: a 10%")
	w.Progress("uploading: a 20%")
	_, _ = w.Write([]byte("prompt> "))
	w.Progress("")

	assert.Equal(t, "uploading: a 10%"+clearLine+"uploading: a 20%"+clearLine+"prompt> ", buf.String())

	buf.Reset()
	w.Progress("x")
	w.Notice("done")
	assert.Equal(t, "x"+clearLine+"\ndone\n", buf.String())

	buf.Reset()
	plain := newSyncWriter(&buf, false)
	plain.Progress("hidden")
	plain.Notice("shown")
	assert.Equal(t, "shown\n", buf.String())
}
