package syncfield

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/sendit/internal/client/client"
	"github.com/dmitrijs2005/sendit/internal/client/session"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quiet = 30 * time.Millisecond

func fastBackoff() retry.Backoff {
	return retry.NewConstant(5 * time.Millisecond)
}

func startText(t *testing.T, store *fakeStore, delay time.Duration) *TextSync {
	t.Helper()
	ts := NewTextSync(store, testSession, delay, nopLogger())
	ts.backoff = fastBackoff
	require.NoError(t, ts.Start(context.Background()))
	t.Cleanup(ts.Close)
	require.Eventually(t, ts.Loaded, time.Second, 5*time.Millisecond)
	return ts
}

func TestTextSync_FirstSnapshotInitialisesText(t *testing.T) {
	store := newFakeStore()
	store.External("users", "u1", map[string]any{"text": "hello"})

	ts := startText(t, store, quiet)
	assert.Equal(t, "hello", ts.Text())
	assert.Empty(t, store.setCalls(), "loading must not write")
}

func TestTextSync_MissingRecordStartsEmpty(t *testing.T) {
	ts := startText(t, newFakeStore(), quiet)
	assert.Equal(t, "", ts.Text())
}

func TestTextSync_BurstOfEditsIsOneMergeWrite(t *testing.T) {
	store := newFakeStore()
	ts := startText(t, store, quiet)

	require.NoError(t, ts.Edit("h"))
	require.NoError(t, ts.Edit("he"))
	require.NoError(t, ts.Edit("hello"))
	assert.True(t, ts.Pending())

	require.Eventually(t, func() bool { return len(store.setCalls()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * quiet)

	calls := store.setCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "users", calls[0].collection)
	assert.Equal(t, "u1", calls[0].id)
	assert.True(t, calls[0].merge)
	assert.Equal(t, "hello", calls[0].data["text"])
	assert.True(t, documents.IsServerTimestamp(calls[0].data["updatedAt"]))

	stored, ok := store.doc("users", "u1")
	require.True(t, ok)
	assert.Equal(t, "hello", stored["text"])

	// the echo of our own write changes nothing
	assert.Equal(t, "hello", ts.Text())
}

func TestTextSync_RemoteChangeIsApplied(t *testing.T) {
	store := newFakeStore()
	ts := startText(t, store, quiet)

	var mu sync.Mutex
	var notified []string
	ts.OnRemoteChange(func(s string) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, s)
	})

	store.External("users", "u1", map[string]any{"text": "from phone"})

	require.Eventually(t, func() bool { return ts.Text() == "from phone" }, time.Second, 5*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"from phone"}, notified)
	mu.Unlock()

	// applying a remote value does not schedule a write
	assert.False(t, ts.Pending())
	time.Sleep(3 * quiet)
	assert.Empty(t, store.setCalls())
}

func TestTextSync_RemoteChangeIgnoredWhileEditPending(t *testing.T) {
	store := newFakeStore()
	ts := startText(t, store, time.Hour)

	require.NoError(t, ts.Edit("local"))
	store.External("users", "u1", map[string]any{"text": "remote"})

	time.Sleep(3 * quiet)
	assert.Equal(t, "local", ts.Text())

	ts.Flush()
	stored, _ := store.doc("users", "u1")
	assert.Equal(t, "local", stored["text"])
}

func TestTextSync_CloseCancelsPendingWrite(t *testing.T) {
	store := newFakeStore()
	ts := NewTextSync(store, testSession, quiet, nopLogger())
	require.NoError(t, ts.Start(context.Background()))
	require.Eventually(t, ts.Loaded, time.Second, 5*time.Millisecond)

	require.NoError(t, ts.Edit("never stored"))
	ts.Close()
	ts.Close()

	select {
	case <-ts.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription goroutine did not exit")
	}

	time.Sleep(3 * quiet)
	assert.Empty(t, store.setCalls())
}

func TestTextSync_WithoutIdentity(t *testing.T) {
	for _, sess := range []*session.Session{nil, {UID: "u1"}} {
		ts := NewTextSync(newFakeStore(), sess, quiet, nopLogger())

		require.ErrorIs(t, ts.Start(context.Background()), ErrNoIdentity)
		require.ErrorIs(t, ts.Edit("x"), ErrNoIdentity)
		<-ts.Done()
		ts.Close()
	}
}

func TestTextSync_EditBeforeFirstSnapshotWins(t *testing.T) {
	store := newFakeStore()
	store.External("users", "u1", map[string]any{"text": "stored"})

	ts := NewTextSync(store, testSession, quiet, nopLogger())
	t.Cleanup(ts.Close)
	require.NoError(t, ts.Edit("typed early"))
	require.NoError(t, ts.Start(context.Background()))
	require.Eventually(t, ts.Loaded, time.Second, 5*time.Millisecond)

	assert.Equal(t, "typed early", ts.Text())
	require.Eventually(t, func() bool {
		d, _ := store.doc("users", "u1")
		return d["text"] == "typed early"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "typed early", ts.Text())
}

func TestTextSync_ReopensEndedChannel(t *testing.T) {
	store := newFakeStore()
	ts := startText(t, store, quiet)

	store.mu.Lock()
	store.watchErrs = []error{client.ErrUnavailable}
	store.mu.Unlock()
	store.breakWatches(client.ErrUnavailable)

	store.External("users", "u1", map[string]any{"text": "after restart"})
	require.Eventually(t, func() bool { return ts.Text() == "after restart" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, store.watchCount())

	// the reopened channel keeps delivering
	store.External("users", "u1", map[string]any{"text": "later"})
	require.Eventually(t, func() bool { return ts.Text() == "later" }, time.Second, 5*time.Millisecond)
}

func TestTextSync_StopsReopeningWhenUnauthorized(t *testing.T) {
	store := newFakeStore()
	ts := startText(t, store, quiet)

	store.mu.Lock()
	store.watchErrs = []error{client.ErrUnauthorized}
	store.mu.Unlock()
	store.breakWatches(client.ErrUnavailable)

	select {
	case <-ts.Done():
	case <-time.After(time.Second):
		t.Fatal("controller kept reopening")
	}
	assert.Equal(t, 2, store.watchCount())
}
