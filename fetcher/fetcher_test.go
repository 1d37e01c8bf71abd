package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuf-go/coretuf/metadata"
)

func fastFetcher() *HTTPFetcher {
	f := New()
	f.RetryInterval = time.Millisecond
	f.MaxRetries = 2
	return f
}

func TestDownloadFileSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	data, err := fastFetcher().DownloadFile(context.Background(), srv.URL, 1024)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestDownloadFileNotFoundIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := fastFetcher().DownloadFile(context.Background(), srv.URL, 1024)
	var httpErr metadata.ErrDownloadHTTP
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "404 must not be retried")
}

func TestDownloadFileForbiddenIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := fastFetcher().DownloadFile(context.Background(), srv.URL, 1024)
	var httpErr metadata.ErrDownloadHTTP
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDownloadFileServerErrorIsRetriedThenFails(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := fastFetcher()
	_, err := f.DownloadFile(context.Background(), srv.URL, 1024)
	assert.ErrorIs(t, err, metadata.ErrDownload{})
	assert.Equal(t, int32(f.MaxRetries+1), atomic.LoadInt32(&hits), "transient failures retry up to MaxRetries")
}

func TestDownloadFileServerErrorRecoversOnRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok now"))
	}))
	defer srv.Close()

	data, err := fastFetcher().DownloadFile(context.Background(), srv.URL, 1024)
	require.NoError(t, err)
	assert.Equal(t, "ok now", string(data))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestDownloadFileContentLengthOverLimitIsNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Length", "2048")
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	_, err := fastFetcher().DownloadFile(context.Background(), srv.URL, 1024)
	assert.ErrorIs(t, err, metadata.ErrDownloadLengthMismatch{})
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "a declared oversized length must not be retried")
}

func TestDownloadFileBodyExceedsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	_, err := fastFetcher().DownloadFile(context.Background(), srv.URL, 1024)
	assert.ErrorIs(t, err, metadata.ErrDownloadLengthMismatch{})
}

func TestDownloadFileHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.Write([]byte("too late"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := fastFetcher().DownloadFile(ctx, srv.URL, 1024)
	assert.Error(t, err)
}
