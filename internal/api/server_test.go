// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SafeChain Contributors

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	h, err := NewHandler(&fakeAccountService{}, &fakeResetService{}, &fakeDispatcher{}, nil, quietLogger(), "https://app.example.com")
	require.NoError(t, err)

	s, err := NewServer("127.0.0.1:0", h, ServerOptions{Logger: quietLogger()})
	require.NoError(t, err)
	return s
}

func TestNewServer_RequiresHandler(t *testing.T) {
	_, err := NewServer("127.0.0.1:0", nil, ServerOptions{})
	require.Error(t, err)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/mobile/login", nil)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
	assert.Contains(t, w.Body.String(), "invalid request method")
}

func TestServer_NoRoute(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/mobile/unknown", strings.NewReader("{}"))
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "resource not found")
}

func TestServer_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := newTestServer(t)

	errCh, err := s.Start()
	require.NoError(t, err)
	require.NotEmpty(t, s.Addr())

	// Double start fails
	_, err = s.Start()
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			t.Errorf("unexpected error on shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for error channel to close")
	}

	// Stop is idempotent
	require.NoError(t, s.Stop(ctx))
}
