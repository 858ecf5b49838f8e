// Package netx holds small HTTP helpers shared by client components.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// ProgressFunc receives the number of bytes sent so far and the total size.
type ProgressFunc func(sent, total int64)

// PutPresigned uploads size bytes from body to a presigned PUT URL. progress,
// when set, is called as the transport reads the body.
func PutPresigned(ctx context.Context, client *http.Client, url string, body io.Reader, size int64, progress ProgressFunc) error {
	if client == nil {
		client = http.DefaultClient
	}

	var r io.Reader = body
	if progress != nil {
		r = &progressReader{r: body, total: size, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, r)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = size
	if size == 0 {
		// a zero length with a body would be sent chunked
		req.Body = http.NoBody
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

type progressReader struct {
	r     io.Reader
	total int64

	mu   sync.Mutex
	sent int64
	fn   ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.sent += int64(n)
		sent := p.sent
		p.mu.Unlock()
		p.fn(sent, p.total)
	}
	return n, err
}
