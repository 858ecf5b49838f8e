package netx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutPresigned(t *testing.T) {
	file := []byte("hello, s3")

	t.Run("success 200 OK", func(t *testing.T) {
		var gotBody []byte
		var gotCT, gotMethod string
		var gotLen int64

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotCT = r.Header.Get("Content-Type")
			gotLen = r.ContentLength
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		defer ts.Close()

		var mu sync.Mutex
		var last int64
		err := PutPresigned(context.Background(), nil, ts.URL+"/some/presigned?X-Amz-Signature=abc",
			bytes.NewReader(file), int64(len(file)), func(sent, total int64) {
				mu.Lock()
				defer mu.Unlock()
				assert.Equal(t, int64(len(file)), total)
				assert.GreaterOrEqual(t, sent, last)
				last = sent
			})
		require.NoError(t, err)

		assert.Equal(t, http.MethodPut, gotMethod)
		assert.Equal(t, "application/octet-stream", gotCT)
		assert.Equal(t, int64(len(file)), gotLen)
		assert.Equal(t, file, gotBody)
		assert.Equal(t, int64(len(file)), last)
	})

	t.Run("empty body", func(t *testing.T) {
		var gotLen int64 = -2
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotLen = r.ContentLength
		}))
		defer ts.Close()

		require.NoError(t, PutPresigned(context.Background(), ts.Client(), ts.URL, bytes.NewReader(nil), 0, nil))
		assert.Equal(t, int64(0), gotLen)
	})

	t.Run("non-2xx -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("SignatureDoesNotMatch"))
		}))
		defer ts.Close()

		err := PutPresigned(context.Background(), ts.Client(), ts.URL, bytes.NewReader(file), int64(len(file)), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "upload failed: 403")
		assert.Contains(t, err.Error(), "SignatureDoesNotMatch")
	})

	t.Run("network error", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		ts.Close()

		err := PutPresigned(context.Background(), nil, ts.URL, bytes.NewReader(file), int64(len(file)), nil)
		require.Error(t, err)
		assert.False(t, strings.Contains(err.Error(), "upload failed"), "got wrong kind of error: %v", err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := PutPresigned(ctx, nil, ts.URL, bytes.NewReader(file), int64(len(file)), nil)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}
