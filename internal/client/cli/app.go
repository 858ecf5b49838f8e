package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/sendit/internal/client/client"
	"github.com/dmitrijs2005/sendit/internal/client/config"
	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sendit/internal/client/session"
	"github.com/dmitrijs2005/sendit/internal/client/syncfield"
	"github.com/dmitrijs2005/sendit/internal/client/upload"
	"github.com/dmitrijs2005/sendit/internal/logging"
)

// sessions is the part of session.Manager the CLI uses.
type sessions interface {
	Current() *session.Session
	SignIn(ctx context.Context, present func(url string)) (*session.Session, error)
	Restore(ctx context.Context) (*session.Session, error)
	Bind(c session.Closer)
	SignOut(ctx context.Context) error
}

// textField is the part of syncfield.TextSync the CLI uses.
type textField interface {
	Text() string
	Loaded() bool
	Pending() bool
	Edit(text string) error
	Flush()
	Close()
}

// fileField is the part of syncfield.FileSync the CLI uses.
type fileField interface {
	Files() []syncfield.FileView
	Loaded() bool
	Upload(ctx context.Context, files []models.LocalFile, mode syncfield.Mode) error
	Clear(ctx context.Context) error
	Close()
}

type App struct {
	config *config.Config
	logger logging.Logger
	out    *syncWriter
	in     io.Reader

	sessions         sessions
	startControllers func(ctx context.Context, sess *session.Session) (textField, fileField, error)
	openFile         func(path string) (models.LocalFile, error)
	cleanup          []func() error

	uploads  sync.WaitGroup
	inFlight atomic.Int32

	mu          sync.Mutex
	text        textField
	files       fileField
	lastSummary string
}

// NewApp wires the local store, the backend client and the session manager.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewTextLogger(os.Stderr, c.LogLevel)

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	api, err := client.NewSendItClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init client: %w", err)
	}

	manager := session.NewManager(api, metadata.NewSQLiteRepository(db), logger, c.SignInTimeout)
	uploader := upload.New(nil)

	a := &App{
		config:   c,
		logger:   logger.With("module", "cli"),
		out:      newSyncWriter(os.Stdout, stdoutIsTerminal()),
		in:       os.Stdin,
		sessions: manager,
		openFile: models.LocalFileFromPath,
		cleanup:  []func() error{api.Close, db.Close},
	}

	a.startControllers = func(ctx context.Context, sess *session.Session) (textField, fileField, error) {
		text := syncfield.NewTextSync(api, sess, c.DebounceDelay, logger)
		text.OnRemoteChange(a.onRemoteText)
		if err := text.Start(ctx); err != nil {
			return nil, nil, fmt.Errorf("watch text: %w", err)
		}

		files := syncfield.NewFileSync(api, api, uploader, sess, c.MaxParallelUploads, logger)
		files.OnChange(a.onFilesChanged)
		if err := files.Start(ctx); err != nil {
			text.Close()
			return nil, nil, fmt.Errorf("watch files: %w", err)
		}

		manager.Bind(text)
		manager.Bind(files)
		return text, files, nil
	}

	return a, nil
}

// Run restores the saved session, if any, and serves the REPL until the
// user exits.
func (a *App) Run(ctx context.Context) {
	defer a.shutdown(ctx)

	fmt.Fprintln(a.out, "Send It CLI (type 'help' for commands)")
	a.restore(ctx)

	runREPL(ctx, a, a.status, bufio.NewScanner(a.in), a.out)
}

func (a *App) restore(ctx context.Context) {
	sess, err := a.sessions.Restore(ctx)
	switch {
	case err == nil:
		if err := a.begin(ctx, sess); err != nil {
			fmt.Fprintln(a.out, "error:", err)
		}
	case errors.Is(err, session.ErrNoSession):
		fmt.Fprintln(a.out, "Not signed in. Type 'signin' to start.")
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Server unavailable; type 'signin' once it is reachable.")
	default:
		a.logger.Warn(ctx, "session restore failed", "error", err)
		fmt.Fprintln(a.out, "Could not restore the session:", err)
	}
}

func (a *App) begin(ctx context.Context, sess *session.Session) error {
	text, files, err := a.startControllers(ctx, sess)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.text, a.files = text, files
	a.lastSummary = ""
	a.mu.Unlock()

	fmt.Fprintf(a.out, "Signed in as %s\n", displayName(sess))
	return nil
}

// shutdown writes a pending edit, waits for running uploads and releases
// everything NewApp opened.
func (a *App) shutdown(ctx context.Context) {
	text, files := a.controllers()
	if text != nil {
		text.Flush()
	}

	if n := a.inFlight.Load(); n > 0 {
		fmt.Fprintf(a.out, "Waiting for %d upload batch(es) to finish...\n", n)
	}
	a.uploads.Wait()

	if text != nil {
		text.Close()
	}
	if files != nil {
		files.Close()
	}

	for _, fn := range a.cleanup {
		if err := fn(); err != nil {
			a.logger.Warn(ctx, "cleanup failed", "error", err)
		}
	}
}

func (a *App) controllers() (textField, fileField) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text, a.files
}

func (a *App) isSignedIn() bool {
	return a.sessions.Current().Valid()
}

func (a *App) status() string {
	sess := a.sessions.Current()
	if !sess.Valid() {
		return ""
	}
	return fmt.Sprintf(" (%s)", sess.Email)
}

func displayName(sess *session.Session) string {
	if sess.DisplayName == "" {
		return sess.Email
	}
	return fmt.Sprintf("%s <%s>", sess.DisplayName, sess.Email)
}

// onRemoteText is called by the text controller after another client
// changed the text.
func (a *App) onRemoteText(text string) {
	a.out.Notice("text changed remotely: " + preview(text, 60))
}

// onFilesChanged redraws the progress line and prints a summary whenever
// the file list itself changed.
func (a *App) onFilesChanged() {
	_, files := a.controllers()
	if files == nil {
		return
	}
	views := files.Files()

	a.out.Progress(progressLine(views))

	summary := filesSummary(views)
	a.mu.Lock()
	changed := summary != a.lastSummary
	a.lastSummary = summary
	a.mu.Unlock()

	if changed {
		a.out.Notice(summary)
	}
}

func preview(s string, max int) string {
	r := []rune(s)
	for i, c := range r {
		if c == '\n' {
			r = append(r[:i:i], []rune(" ...")...)
			break
		}
	}
	if len(r) > max {
		r = append(r[:max:max], []rune("...")...)
	}
	if len(r) == 0 {
		return "(empty)"
	}
	return string(r)
}
