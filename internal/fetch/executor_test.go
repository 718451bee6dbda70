package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhumphrey11/comoda-backfill/internal/domain"
)

func TestExecute_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-CoinAPI-Key"))
		assert.Equal(t, "1DAY", r.URL.Query().Get("period_id"))
		w.Write([]byte(`[{"price_open":1.0}]`))
	}))
	defer server.Close()

	executor := NewExecutor(domain.ProviderCoinAPI)

	resp, err := executor.Execute(context.Background(), &Request{
		URL:     server.URL,
		Query:   map[string]string{"period_id": "1DAY"},
		Headers: map[string]string{"X-CoinAPI-Key": "secret"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, `[{"price_open":1.0}]`, string(resp.Body))
}

func TestExecute_RateLimitedThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	executor := NewExecutor(domain.ProviderCoinAPI, WithCooldown(time.Millisecond))

	resp, err := executor.Execute(context.Background(), &Request{URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
}

func TestExecute_RateLimitedTwice(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`slow down`))
	}))
	defer server.Close()

	executor := NewExecutor(domain.ProviderSantiment, WithCooldown(time.Millisecond))

	_, err := executor.Execute(context.Background(), &Request{URL: server.URL})
	require.Error(t, err)

	// Exactly one retry, then the failure surfaces.
	assert.Equal(t, int32(2), calls.Load())

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, domain.ProviderSantiment, failure.Provider)
	assert.Equal(t, http.StatusTooManyRequests, failure.Status)
	assert.Equal(t, "slow down", failure.Body)
}

func TestExecute_ErrorBodyTruncated(t *testing.T) {
	longBody := strings.Repeat("x", 5000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(longBody))
	}))
	defer server.Close()

	executor := NewExecutor(domain.ProviderLunarCrush)

	_, err := executor.Execute(context.Background(), &Request{URL: server.URL})
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, http.StatusInternalServerError, failure.Status)
	assert.Len(t, failure.Body, bodySnippetLen)
}

func TestExecute_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	executor := NewExecutor(domain.ProviderYahoo)

	_, err := executor.Execute(context.Background(), &Request{URL: server.URL})
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, 0, failure.Status)
	assert.Error(t, failure.Err)
}

func TestExecute_ContextCanceledDuringCooldown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	executor := NewExecutor(domain.ProviderCryptoPanic, WithCooldown(time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := executor.Execute(ctx, &Request{URL: server.URL})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestExecute_PostBodyEncodedAsJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	executor := NewExecutor(domain.ProviderSantiment)

	_, err := executor.Execute(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    server.URL,
		Body:   map[string]any{"query": "{}"},
	})
	require.NoError(t, err)
}
