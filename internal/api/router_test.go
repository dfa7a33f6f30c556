package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascadehq/cascade/internal/config"
	"github.com/cascadehq/cascade/internal/session"
	"github.com/cascadehq/cascade/internal/storage"
)

func newTestServer(t *testing.T) (*Server, *session.Store) {
	t.Helper()
	backend := storage.NewBoltStore(filepath.Join(t.TempDir(), "cascade.bolt"))
	require.NoError(t, backend.Connect(context.Background()))
	t.Cleanup(func() { backend.Disconnect(context.Background()) })

	store := session.NewStore(backend)
	cfg := &config.APIConfig{Enabled: true, Host: "127.0.0.1", Port: 8787}
	s := NewServer(cfg, store, func() string { return "ready" })
	return s, store
}

func TestHandleHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body HealthzResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestHandleGetSession_NotFound(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/session/missing", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetSession_Found(t *testing.T) {
	s, store := newTestServer(t)
	sess, err := store.New(context.Background(), "demo")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/session/"+sess.ID, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, sess.ID, body.ID)
	assert.Equal(t, "demo", body.ProjectName)
	assert.Equal(t, "ready", body.Status)
}

func TestHandleGetSessionStats(t *testing.T) {
	s, store := newTestServer(t)
	sess, err := store.New(context.Background(), "demo")
	require.NoError(t, err)
	sess.Stats.ToolCalls = 3
	require.NoError(t, store.Save(context.Background(), sess))

	req := httptest.NewRequest(http.MethodGet, "/session/"+sess.ID+"/stats", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats struct {
		ToolCalls int `json:"tool_calls"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.ToolCalls)
}
