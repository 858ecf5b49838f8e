// Package upload sends local files to presigned blob store URLs and reports
// their progress as whole percentages.
package upload

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/sendit/internal/client/models"
	"github.com/dmitrijs2005/sendit/internal/netx"
)

// ProgressFunc receives percentages in 0..100, never decreasing.
type ProgressFunc func(percent int)

type Uploader struct {
	http *http.Client
}

// New returns an uploader. A nil client means http.DefaultClient. No
// timeout is applied; uploads run until they finish or ctx ends.
func New(client *http.Client) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Uploader{http: client}
}

// Put uploads f to url. progress is called with 0 before the first byte is
// sent and with 100 once the store accepted the object.
func (u *Uploader) Put(ctx context.Context, url string, f models.LocalFile, progress ProgressFunc) error {
	if progress == nil {
		progress = func(int) {}
	}
	tracker := &percentTracker{fn: progress, last: -1}
	tracker.report(0)

	body, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer body.Close()

	err = netx.PutPresigned(ctx, u.http, url, body, f.Size, func(sent, total int64) {
		tracker.report(Percent(sent, total))
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.Name, err)
	}

	tracker.report(100)
	return nil
}

// Percent converts a byte count into a whole percentage. 100 is reserved
// for the confirmed end of the upload, so in-flight values stop at 99.
func Percent(sent, total int64) int {
	if total <= 0 || sent <= 0 {
		return 0
	}
	p := int(sent * 100 / total)
	if p > 99 {
		p = 99
	}
	return p
}

// percentTracker drops repeated and decreasing values.
type percentTracker struct {
	mu   sync.Mutex
	last int
	fn   ProgressFunc
}

func (t *percentTracker) report(p int) {
	t.mu.Lock()
	if p <= t.last {
		t.mu.Unlock()
		return
	}
	t.last = p
	t.mu.Unlock()

	t.fn(p)
}
