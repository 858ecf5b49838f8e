package syncfield

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sendit/internal/client/debounce"
	"github.com/dmitrijs2005/sendit/internal/client/live"
	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/client/session"
	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/dmitrijs2005/sendit/internal/rpc"
	"github.com/sethvargo/go-retry"
)

// TextSync mirrors the text field of the signed-in user's record. Local
// edits are written after a quiet period; remote changes replace the local
// text unless an edit is waiting to be written.
type TextSync struct {
	store   DocumentStore
	session *session.Session
	logger  logging.Logger
	backoff func() retry.Backoff

	done chan struct{}

	debouncer *debounce.Debouncer[string]

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	sub      *live.Subscription[rpc.DocumentSnapshot]
	text     string
	loaded   bool
	onRemote func(text string)
}

func NewTextSync(store DocumentStore, sess *session.Session, delay time.Duration, logger logging.Logger) *TextSync {
	t := &TextSync{
		store:   store,
		session: sess,
		logger:  logger.With("module", "textsync"),
		backoff: defaultBackoff,
		done:    make(chan struct{}),
	}
	t.debouncer = debounce.New("", delay, t.write)
	return t
}

// OnRemoteChange registers fn to be called after a remote text replaced the
// local one.
func (t *TextSync) OnRemoteChange(fn func(text string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRemote = fn
}

// Start subscribes to the user record. Deliveries are applied on a
// goroutine until Close; a channel that ends is reopened with backoff.
func (t *TextSync) Start(ctx context.Context) error {
	if !t.session.Valid() {
		close(t.done)
		return ErrNoIdentity
	}

	ctx, cancel := context.WithCancel(ctx)
	sub, err := t.open(ctx)
	if err != nil {
		cancel()
		close(t.done)
		return err
	}

	t.mu.Lock()
	t.ctx, t.cancel, t.sub = ctx, cancel, sub
	t.mu.Unlock()

	go t.run(ctx, sub)
	return nil
}

func (t *TextSync) open(ctx context.Context) (*live.Subscription[rpc.DocumentSnapshot], error) {
	return t.store.WatchDocument(ctx, common.UsersCollection, t.session.UID)
}

func (t *TextSync) run(ctx context.Context, sub *live.Subscription[rpc.DocumentSnapshot]) {
	defer close(t.done)

	err := follow(ctx, sub, t.open, t.apply, t.use, t.backoff, t.logger)
	if err != nil && ctx.Err() == nil {
		t.logger.Error(ctx, "user record subscription stopped", "error", err)
	}
}

func (t *TextSync) use(sub *live.Subscription[rpc.DocumentSnapshot]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sub = sub
}

func (t *TextSync) apply(snap rpc.DocumentSnapshot) {
	remote := ""
	if snap.Exists && snap.Document != nil {
		remote = models.UserRecordFromDocument(*snap.Document).Text
	}

	t.mu.Lock()
	first := !t.loaded
	t.loaded = true

	if remote == t.text {
		t.mu.Unlock()
		return
	}
	// a local edit that is not yet stored wins over the remote value
	if t.debouncer.Pending() {
		t.mu.Unlock()
		t.logger.Debug(context.Background(), "remote text ignored while an edit is pending")
		return
	}

	t.text = remote
	t.debouncer.Reset(remote)
	fn := t.onRemote
	t.mu.Unlock()

	if fn != nil && !first {
		fn(remote)
	}
}

// Edit replaces the local text and schedules the write.
func (t *TextSync) Edit(text string) error {
	if !t.session.Valid() {
		return ErrNoIdentity
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = text
	t.debouncer.Set(text)
	return nil
}

// Text is the current local text.
func (t *TextSync) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.text
}

// Loaded reports whether the first snapshot has arrived.
func (t *TextSync) Loaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded
}

// Pending reports whether an edit is waiting for its quiet period or being
// written.
func (t *TextSync) Pending() bool {
	return t.debouncer.Pending()
}

// Flush writes a pending edit now.
func (t *TextSync) Flush() {
	t.debouncer.Flush()
}

func (t *TextSync) write(text string) {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()

	if !t.session.Valid() || ctx == nil || ctx.Err() != nil {
		return
	}

	err := t.store.SetDocument(ctx, common.UsersCollection, t.session.UID, models.TextPatch(text), true)
	if err != nil {
		t.logger.Error(ctx, "text write failed", "error", err)
		return
	}
	t.logger.Debug(ctx, "text written", "length", len(text))
}

// Close cancels a pending write and releases the subscription.
func (t *TextSync) Close() {
	t.debouncer.Stop()

	t.mu.Lock()
	sub, cancel := t.sub, t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Done is closed once the subscription goroutine has exited.
func (t *TextSync) Done() <-chan struct{} {
	return t.done
}
