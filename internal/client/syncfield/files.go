package syncfield

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/sendit/internal/client/client"
	"github.com/dmitrijs2005/sendit/internal/client/live"
	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/client/session"
	"github.com/dmitrijs2005/sendit/internal/common"
	"github.com/dmitrijs2005/sendit/internal/documents"
	"github.com/dmitrijs2005/sendit/internal/logging"
	"github.com/dmitrijs2005/sendit/internal/rpc"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// Mode decides what happens to the existing files when a batch is uploaded.
type Mode int

const (
	// Overwrite clears the current files first.
	Overwrite Mode = iota
	// Add keeps them.
	Add
)

func (m Mode) String() string {
	if m == Add {
		return "add"
	}
	return "overwrite"
}

// FileView is one row of the file list.
type FileView struct {
	Record   models.FileRecord
	State    models.FileState
	Progress int
}

// FileSync mirrors the caller's file records and drives their uploads.
// Progress is kept only in memory, keyed by record id.
type FileSync struct {
	store    DocumentStore
	blobs    BlobStore
	uploader Uploader
	session  *session.Session
	logger   logging.Logger
	parallel int
	backoff  func() retry.Backoff

	// life ends on Close; uploads and clears stop writing once it has
	life context.Context
	kill context.CancelFunc
	done chan struct{}

	mu       sync.Mutex
	cancel   context.CancelFunc
	sub      *live.Subscription[rpc.QuerySnapshot]
	order    []string
	records  map[string]models.FileRecord
	raw      map[string]map[string]any
	progress map[string]int
	mode     Mode
	loaded   bool
	onChange func()
}

func NewFileSync(store DocumentStore, blobs BlobStore, uploader Uploader, sess *session.Session, parallel int, logger logging.Logger) *FileSync {
	if parallel <= 0 {
		parallel = 1
	}
	life, kill := context.WithCancel(context.Background())
	return &FileSync{
		store:    store,
		blobs:    blobs,
		uploader: uploader,
		session:  sess,
		logger:   logger.With("module", "filesync"),
		parallel: parallel,
		backoff:  defaultBackoff,
		life:     life,
		kill:     kill,
		done:     make(chan struct{}),
		records:  map[string]models.FileRecord{},
		raw:      map[string]map[string]any{},
		progress: map[string]int{},
		mode:     Overwrite,
	}
}

// OnChange registers fn to be called whenever the list or a progress value
// changes.
func (s *FileSync) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

func (s *FileSync) filter() documents.Filter {
	return documents.Where(models.FieldUploadedBy, s.session.Email)
}

// Start subscribes to the caller's files. A channel that ends is reopened
// with backoff until Close.
func (s *FileSync) Start(ctx context.Context) error {
	if !s.session.Valid() {
		close(s.done)
		return ErrNoIdentity
	}

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.life, cancel)
	sub, err := s.open(ctx)
	if err != nil {
		stop()
		cancel()
		close(s.done)
		return err
	}

	s.mu.Lock()
	s.cancel, s.sub = cancel, sub
	s.mu.Unlock()

	go s.run(ctx, sub)
	return nil
}

func (s *FileSync) open(ctx context.Context) (*live.Subscription[rpc.QuerySnapshot], error) {
	return s.store.WatchQuery(ctx, common.FilesCollection, s.filter())
}

func (s *FileSync) run(ctx context.Context, sub *live.Subscription[rpc.QuerySnapshot]) {
	defer close(s.done)

	err := follow(ctx, sub, s.open, s.apply, s.use, s.backoff, s.logger)
	if err != nil && ctx.Err() == nil {
		s.logger.Error(ctx, "files subscription stopped", "error", err)
	}
}

func (s *FileSync) use(sub *live.Subscription[rpc.QuerySnapshot]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sub = sub
}

// alive fails with ErrNoIdentity once the controller is closed.
func (s *FileSync) alive(ctx context.Context) error {
	if s.life.Err() != nil {
		return ErrNoIdentity
	}
	return ctx.Err()
}

func (s *FileSync) apply(snap rpc.QuerySnapshot) {
	s.mu.Lock()
	if s.loaded && s.sameLocked(snap.Documents) {
		s.mu.Unlock()
		return
	}
	s.loaded = true

	s.order = make([]string, 0, len(snap.Documents))
	s.records = make(map[string]models.FileRecord, len(snap.Documents))
	s.raw = make(map[string]map[string]any, len(snap.Documents))
	for _, doc := range snap.Documents {
		s.order = append(s.order, doc.ID)
		s.records[doc.ID] = models.FileRecordFromDocument(doc)
		s.raw[doc.ID] = doc.Data
	}
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (s *FileSync) sameLocked(docs []documents.Document) bool {
	if len(docs) != len(s.order) {
		return false
	}
	for i, doc := range docs {
		if s.order[i] != doc.ID || !documents.Equal(s.raw[doc.ID], doc.Data) {
			return false
		}
	}
	return true
}

// Files returns the current list in subscription order.
func (s *FileSync) Files() []FileView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]FileView, 0, len(s.order))
	for _, id := range s.order {
		rec := s.records[id]
		p, ok := s.progress[id]
		out = append(out, FileView{Record: rec, State: rec.State(ok), Progress: p})
	}
	return out
}

// Progress returns the upload progress of a record and whether it has one.
func (s *FileSync) Progress(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[id]
	return p, ok
}

// Loaded reports whether the first snapshot has arrived.
func (s *FileSync) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Mode is the mode UploadSelected will use.
func (s *FileSync) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode changes the mode of the next UploadSelected batch.
func (s *FileSync) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

// UploadSelected uploads a batch with the current mode. After an Add batch
// the mode goes back to Overwrite.
func (s *FileSync) UploadSelected(ctx context.Context, files []models.LocalFile) error {
	s.mu.Lock()
	mode := s.mode
	s.mode = Overwrite
	s.mu.Unlock()

	return s.Upload(ctx, files, mode)
}

// Upload creates a record per file and uploads the files concurrently. In
// Overwrite mode the existing files are cleared first. A failed file is
// logged and left uploading; the others are not affected. The returned
// error joins every failure. Close stops the batch: files not yet stored
// fail with ErrNoIdentity.
func (s *FileSync) Upload(ctx context.Context, files []models.LocalFile, mode Mode) error {
	if !s.session.Valid() {
		return ErrNoIdentity
	}
	if err := s.alive(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(s.life, cancel)()

	if mode == Overwrite {
		if err := s.Clear(ctx); err != nil {
			s.logger.Warn(ctx, "clear before upload incomplete", "error", err)
		}
	}

	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(s.parallel)
	for _, f := range files {
		g.Go(func() error {
			if err := s.uploadOne(ctx, f); err != nil {
				s.logger.Error(ctx, "upload failed", "file", f.Name, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

func (s *FileSync) uploadOne(ctx context.Context, f models.LocalFile) error {
	email := s.session.Email
	path := models.BlobPath(email, f.Name)

	if err := s.alive(ctx); err != nil {
		return err
	}
	id, err := s.store.AddDocument(ctx, common.FilesCollection, models.NewFileData(f.Name, f.Size, email))
	if err != nil {
		return fmt.Errorf("create record for %s: %w", f.Name, err)
	}
	s.setProgress(id, 0)

	if err := s.alive(ctx); err != nil {
		return err
	}
	url, err := s.blobs.CreateUploadURL(ctx, path)
	if err != nil {
		return fmt.Errorf("upload url for %s: %w", f.Name, err)
	}

	if err := s.uploader.Put(ctx, url, f, func(p int) { s.setProgress(id, p) }); err != nil {
		return err
	}

	if err := s.alive(ctx); err != nil {
		return err
	}
	downloadURL, err := s.blobs.GetDownloadURL(ctx, path)
	if err != nil {
		return fmt.Errorf("download url for %s: %w", f.Name, err)
	}

	patch := map[string]any{models.FieldDownloadURL: downloadURL}
	if err := s.alive(ctx); err != nil {
		return err
	}
	if err := s.store.SetDocument(ctx, common.FilesCollection, id, patch, true); err != nil {
		return fmt.Errorf("store download url for %s: %w", f.Name, err)
	}

	s.dropProgress(id)
	s.logger.Info(ctx, "file uploaded", "file", f.Name, "id", id)
	return nil
}

// setProgress never lowers a value.
func (s *FileSync) setProgress(id string, p int) {
	s.mu.Lock()
	if cur, ok := s.progress[id]; ok && p <= cur {
		s.mu.Unlock()
		return
	}
	s.progress[id] = p
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (s *FileSync) dropProgress(id string) {
	s.mu.Lock()
	delete(s.progress, id)
	s.mu.Unlock()
}

// Clear deletes every record of the caller together with its blob. A blob
// that was never uploaded is not an error.
func (s *FileSync) Clear(ctx context.Context) error {
	if !s.session.Valid() {
		return ErrNoIdentity
	}
	if err := s.alive(ctx); err != nil {
		return err
	}

	docs, err := s.store.QueryDocuments(ctx, common.FilesCollection, s.filter())
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	var errs []error
	for _, doc := range docs {
		if err := s.alive(ctx); err != nil {
			errs = append(errs, err)
			break
		}
		rec := models.FileRecordFromDocument(doc)

		if err := s.store.DeleteDocument(ctx, common.FilesCollection, doc.ID); err != nil {
			errs = append(errs, fmt.Errorf("delete record %s: %w", rec.Name, err))
			continue
		}
		s.dropProgress(doc.ID)

		if err := s.blobs.DeleteObject(ctx, models.BlobPath(s.session.Email, rec.Name)); err != nil && !errors.Is(err, client.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete blob %s: %w", rec.Name, err))
		}
	}

	return errors.Join(errs...)
}

// Close releases the subscription and stops running uploads and clears
// before their next write.
func (s *FileSync) Close() {
	s.kill()

	s.mu.Lock()
	sub, cancel := s.sub, s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Done is closed once the subscription goroutine has exited.
func (s *FileSync) Done() <-chan struct{} {
	return s.done
}
