package syncfield

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/sendit/internal/client/client"
	"github.com/dmitrijs2005/sendit/internal/client/live"
	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/client/session"
	"github.com/dmitrijs2005/sendit/internal/client/upload"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/dmitrijs2005/sendit/internal/rpc"
)

var testSession = &session.Session{UID: "u1", Email: "a@example.com"}

func nopLogger() logging.Logger {
	return logging.NewTextLogger(io.Discard, "error")
}

type docWatch struct {
	collection, id string
	ch             chan rpc.DocumentSnapshot
	fail           chan error
}

type queryWatch struct {
	collection string
	filters    []documents.Filter
	ch         chan rpc.QuerySnapshot
	fail       chan error
}

type setCall struct {
	collection, id string
	data           map[string]any
	merge          bool
}

// fakeStore is an in-memory document store that pushes a fresh snapshot
// to every matching watcher after each write.
type fakeStore struct {
	mu      sync.Mutex
	docs    map[string]map[string]map[string]any
	dw      []*docWatch
	qw      []*queryWatch
	nextID  int
	sets    []setCall
	setErr  error
	addErrs map[string]error
	watches int
	// watchErrs are returned, in order, by the next Watch calls
	watchErrs []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]map[string]map[string]any{}}
}

func recvFrom[T any](ctx context.Context, ch <-chan T, fail <-chan error) func() (T, error) {
	return func() (T, error) {
		var zero T
		select {
		case v := <-ch:
			return v, nil
		case err := <-fail:
			return zero, err
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// breakWatches ends every open channel with err, as a dropped connection
// would.
func (f *fakeStore) breakWatches(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, w := range f.dw {
		w.fail <- err
	}
	for _, w := range f.qw {
		w.fail <- err
	}
	f.dw, f.qw = nil, nil
}

func (f *fakeStore) watchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watches
}

func (f *fakeStore) added() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextID
}

func (f *fakeStore) nextWatchErrLocked() error {
	f.watches++
	if len(f.watchErrs) == 0 {
		return nil
	}
	err := f.watchErrs[0]
	f.watchErrs = f.watchErrs[1:]
	return err
}

func (f *fakeStore) docSnapshotLocked(collection, id string) rpc.DocumentSnapshot {
	data, ok := f.docs[collection][id]
	if !ok {
		return rpc.DocumentSnapshot{}
	}
	return rpc.DocumentSnapshot{Exists: true, Document: &documents.Document{ID: id, Data: documents.Merge(nil, data)}}
}

func (f *fakeStore) querySnapshotLocked(collection string, filters []documents.Filter) rpc.QuerySnapshot {
	out := []documents.Document{}
	for id, data := range f.docs[collection] {
		if documents.Matches(data, filters) {
			out = append(out, documents.Document{ID: id, Data: documents.Merge(nil, data)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return rpc.QuerySnapshot{Documents: out}
}

func (f *fakeStore) notifyLocked(collection, id string) {
	for _, w := range f.dw {
		if w.collection == collection && w.id == id {
			select {
			case w.ch <- f.docSnapshotLocked(collection, id):
			default:
			}
		}
	}
	for _, w := range f.qw {
		if w.collection == collection {
			select {
			case w.ch <- f.querySnapshotLocked(collection, w.filters):
			default:
			}
		}
	}
}

func (f *fakeStore) WatchDocument(ctx context.Context, collection, id string) (*live.Subscription[rpc.DocumentSnapshot], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.nextWatchErrLocked(); err != nil {
		return nil, err
	}
	w := &docWatch{collection: collection, id: id, ch: make(chan rpc.DocumentSnapshot, 64), fail: make(chan error, 1)}
	w.ch <- f.docSnapshotLocked(collection, id)
	f.dw = append(f.dw, w)

	ctx, cancel := context.WithCancel(ctx)
	return live.New(cancel, recvFrom(ctx, w.ch, w.fail)), nil
}

func (f *fakeStore) WatchQuery(ctx context.Context, collection string, filters ...documents.Filter) (*live.Subscription[rpc.QuerySnapshot], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.nextWatchErrLocked(); err != nil {
		return nil, err
	}
	w := &queryWatch{collection: collection, filters: filters, ch: make(chan rpc.QuerySnapshot, 256), fail: make(chan error, 1)}
	w.ch <- f.querySnapshotLocked(collection, filters)
	f.qw = append(f.qw, w)

	ctx, cancel := context.WithCancel(ctx)
	return live.New(cancel, recvFrom(ctx, w.ch, w.fail)), nil
}

func (f *fakeStore) put(collection, id string, data map[string]any, merge bool) {
	data, _ = documents.Normalize(documents.ResolveServerValues(data, time.Now()))
	if f.docs[collection] == nil {
		f.docs[collection] = map[string]map[string]any{}
	}
	if merge {
		data = documents.Merge(f.docs[collection][id], data)
	}
	f.docs[collection][id] = data
	f.notifyLocked(collection, id)
}

func (f *fakeStore) SetDocument(_ context.Context, collection, id string, data map[string]any, merge bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sets = append(f.sets, setCall{collection: collection, id: id, data: data, merge: merge})
	if f.setErr != nil {
		return f.setErr
	}
	f.put(collection, id, data, merge)
	return nil
}

// External simulates a write from another device.
func (f *fakeStore) External(collection, id string, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(collection, id, data, true)
}

func (f *fakeStore) AddDocument(_ context.Context, collection string, data map[string]any) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.addErrs[documents.String(data, models.FieldName)]; err != nil {
		return "", err
	}
	f.nextID++
	id := fmt.Sprintf("f%03d", f.nextID)
	f.put(collection, id, data, false)
	return id, nil
}

func (f *fakeStore) DeleteDocument(_ context.Context, collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.docs[collection], id)
	f.notifyLocked(collection, id)
	return nil
}

func (f *fakeStore) QueryDocuments(_ context.Context, collection string, filters ...documents.Filter) ([]documents.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.querySnapshotLocked(collection, filters).Documents, nil
}

func (f *fakeStore) setCalls() []setCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]setCall(nil), f.sets...)
}

func (f *fakeStore) doc(collection, id string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[collection][id]
	return d, ok
}

type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string]bool
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string]bool{}}
}

func (b *fakeBlobs) CreateUploadURL(_ context.Context, path string) (string, error) {
	return "https://upload/" + path, nil
}

func (b *fakeBlobs) GetDownloadURL(_ context.Context, path string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.objects[path] {
		return "", client.ErrNotFound
	}
	return "https://download/" + path, nil
}

func (b *fakeBlobs) DeleteObject(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, path)
	if !b.objects[path] {
		return client.ErrNotFound
	}
	delete(b.objects, path)
	return nil
}

func (b *fakeBlobs) has(path string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[path]
}

// fakeUploader "stores" the object in blobs; fail lists file names that
// must fail.
type fakeUploader struct {
	blobs *fakeBlobs
	fail  map[string]error
	steps []int
	gate  chan struct{}

	mu          sync.Mutex
	running     int
	maxParallel int
}

func (u *fakeUploader) active() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}

func (u *fakeUploader) Put(_ context.Context, url string, f models.LocalFile, progress upload.ProgressFunc) error {
	u.mu.Lock()
	u.running++
	if u.running > u.maxParallel {
		u.maxParallel = u.running
	}
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		u.running--
		u.mu.Unlock()
	}()

	if u.gate != nil {
		<-u.gate
	}

	progress(0)
	for _, p := range u.steps {
		progress(p)
	}
	if err := u.fail[f.Name]; err != nil {
		return err
	}

	u.blobs.mu.Lock()
	u.blobs.objects[url[len("https://upload/"):]] = true
	u.blobs.mu.Unlock()

	progress(100)
	return nil
}
