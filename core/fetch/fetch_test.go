package fetch

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/guidepipe/core"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "agent/1", r.Header.Get("User-Agent"))
		w.Write([]byte("<html><title>ok</title></html>"))
	}))
	defer srv.Close()

	res, err := New(time.Second, "agent/1").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode)
	assert.Contains(t, res.HTML, "<title>ok</title>")
}

func TestHTTPFetcherStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := New(0, "").Fetch(context.Background(), srv.URL)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 404, se.Code)
	assert.False(t, se.Temporary())
}

func TestRetryingRecovers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("fine"))
	}))
	defer srv.Close()

	f := NewRetrying(New(time.Second, ""), RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond, Multiplier: 2}, discard)
	res, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "fine", res.HTML)
	assert.EqualValues(t, 2, hits.Load())
}

func TestRetryingGivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewRetrying(New(time.Second, ""), RetryPolicy{MaxRetries: 2, InitialDelay: time.Millisecond, Multiplier: 1}, discard)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.EqualValues(t, 3, hits.Load())
}

func TestRetryingPermanent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewRetrying(New(time.Second, ""), RetryPolicy{MaxRetries: 5, InitialDelay: time.Millisecond}, discard)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.EqualValues(t, 1, hits.Load())
}
