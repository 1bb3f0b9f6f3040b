package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		client := New(nil)

		require.NotNil(t, client)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
	})

	t.Run("custom config", func(t *testing.T) {
		client := New(&Config{DefaultTimeout: 5 * time.Second, UserAgent: "mynat-test/1.0"})

		assert.Equal(t, 5*time.Second, client.defaultTimeout)
		assert.Equal(t, "mynat-test/1.0", client.userAgent)
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		cfg := Config{}
		client := New(&cfg)

		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
		assert.Equal(t, defaultUserAgent, client.userAgent)
		assert.Equal(t, Config{}, cfg, "caller config must not be mutated")
	})
}

func TestDo_BasicRequest(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("success"))
	})

	client := newTestClient(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(t.Context(), req)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "success", string(body))
}

func TestDo_BodyReadableUnderDefaultTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(strings.Repeat("x", 64*1024)))
	})

	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 5 * time.Second})

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Len(t, body, 64*1024)
}

func TestDo_ContextCancellation(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClient(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(ctx, req)
	defer closeResponseBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_DefaultTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	})

	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	resp, err := client.Get(t.Context(), server.URL)
	defer closeResponseBody(t, resp)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDo_ResponseHook(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	client := newTestClient(t)

	var capturedStatus int
	var capturedAccept string
	var capturedElapsed time.Duration
	client.SetAfterResponseHook(func(r *http.Request, resp *http.Response, err error, elapsed time.Duration) {
		assert.NoError(t, err)
		capturedAccept = r.Header.Get("Accept")
		capturedStatus = resp.StatusCode
		capturedElapsed = elapsed
	})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	assert.Equal(t, http.StatusTeapot, capturedStatus)
	assert.Equal(t, "application/json", capturedAccept)
	assert.Positive(t, capturedElapsed)
}

func TestDo_ResponseHookSeesTransportErrors(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://example.test/down",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	client := newTestClientWithConfig(t, &Config{Transport: transport})

	var hookErr error
	var hookResp *http.Response
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error, _ time.Duration) {
		hookResp, hookErr = resp, err
	})

	resp, err := client.Get(t.Context(), "https://example.test/down")
	defer closeResponseBody(t, resp)

	require.Error(t, err)
	require.Error(t, hookErr)
	assert.Nil(t, hookResp)
}

func TestDo_CustomTransport(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder(http.MethodGet, "https://example.test/ping",
		httpmock.NewStringResponder(http.StatusOK, "pong"))

	client := newTestClientWithConfig(t, &Config{Transport: transport})

	resp, err := client.Get(t.Context(), "https://example.test/ping")
	require.NoError(t, err)
	defer closeResponseBody(t, resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestClose(t *testing.T) {
	client := New(nil)
	client.Close()
	client.Close()
}
