package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusErrorRetryable(t *testing.T) {
	tests := []struct {
		status   int
		expected bool
	}{
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		err := &HTTPStatusError{StatusCode: tt.status}
		assert.Equal(t, tt.expected, err.Retryable(), err.Error())
	}
}

func TestGetGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:        server.URL,
		RequestsPerSec: 100,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	})

	_, err := client.Get(context.Background(), "/ping", nil)
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetStopsOnCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "/ping", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPostSendsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	client := NewClient(ClientOptions{BaseURL: server.URL})
	body, err := client.Post(context.Background(), "/echo", map[string]int{"n": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
}

func TestGetRetriesWaitForTheLimiter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(ClientOptions{
		BaseURL:        server.URL,
		RequestsPerSec: 10,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	})

	_, err := client.Get(context.Background(), "/ping", nil)
	require.Error(t, err)
	require.Equal(t, int32(3), calls.Load())

	// one token per attempt out of a burst of ten
	assert.InDelta(t, 7, client.limiter.Tokens(), 0.5)
}
