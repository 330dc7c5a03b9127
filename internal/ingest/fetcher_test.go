package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pulseai/internal/entity"
	"pulseai/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFetcherConnectTimeout(t *testing.T) {
	f := NewFetcher(logger.NewNop(), 3*time.Second)
	tr := f.(*httpFetcher).client.Transport.(*http.Transport)
	assert.Equal(t, 3*time.Second, tr.TLSHandshakeTimeout)

	f = NewFetcher(logger.NewNop(), 0)
	tr = f.(*httpFetcher).client.Transport.(*http.Transport)
	assert.Equal(t, ConnectTimeout, tr.TLSHandshakeTimeout)
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte("<rss></rss>"))
	}))
	defer server.Close()

	f := NewFetcher(logger.NewNop(), 0)
	result, err := f.Fetch(context.Background(), server.URL, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "application/rss+xml", result.ContentType)
	assert.Equal(t, []byte("<rss></rss>"), result.Body)
	assert.Equal(t, server.URL, result.URL)
}

func TestFetchRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewFetcher(logger.NewNop(), 0)
	result, err := f.Fetch(context.Background(), server.URL, FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), result.Body)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(logger.NewNop(), 0)
	_, err := f.Fetch(context.Background(), server.URL, FetchOptions{})
	require.Error(t, err)
	assert.Equal(t, entity.KindNetwork, entity.KindOf(err))
	assert.Equal(t, int32(fetchMaxAttempts), calls.Load())
}

func TestFetchCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(5 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	f := NewFetcher(logger.NewNop(), 0)
	start := time.Now()
	_, err := f.Fetch(ctx, server.URL, FetchOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchCanceled))
	assert.Less(t, time.Since(start), 2*time.Second)
}
