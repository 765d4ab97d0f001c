package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/session"
)

const payload = `{"frontendDefinition":{"type":"button","id":"b1","text":"Go"},"styles":".button{color:red}","selectedComponentType":"button","selectedComponentId":"b1"}`

func newRouter(t *testing.T) (*mux.Router, *session.Manager) {
	t.Helper()
	nop := zerolog.Nop()
	m := session.NewManager(session.Options{Logger: &nop})
	t.Cleanup(m.Close)

	r := mux.NewRouter()
	NewSessionHandler(m, nil).RegisterRoutes(r)
	return r, m
}

func do(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionList(t *testing.T) {
	r, m := newRouter(t)
	ctx := context.Background()
	require.NoError(t, m.Post(ctx, "b", []byte(payload)))
	require.NoError(t, m.Post(ctx, "a", []byte(payload)))

	w := do(r, http.MethodGet, "/api/sessions")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 2)
	assert.Equal(t, "a", resp.Sessions[0].ID)
	assert.Equal(t, "b", resp.Sessions[1].ID)
	assert.Equal(t, uint64(1), resp.Sessions[0].Applied)
	assert.NotNil(t, resp.Sessions[0].UpdatedAt)
}

func TestSessionGet(t *testing.T) {
	r, m := newRouter(t)
	require.NoError(t, m.Post(context.Background(), "s1", []byte(payload)))

	w := do(r, http.MethodGet, "/api/sessions/s1")
	require.Equal(t, http.StatusOK, w.Code)

	var detail SessionDetail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, "s1", detail.ID)
	assert.Equal(t, ".button{color:red}", detail.Styles)
	assert.Equal(t, "button:b1", detail.Selection)
	assert.JSONEq(t, `{"type":"button","id":"b1","text":"Go"}`, string(detail.Definition))
}

func TestSessionNotFound(t *testing.T) {
	r, _ := newRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/sessions/missing"},
		{http.MethodDelete, "/api/sessions/missing"},
		{http.MethodGet, "/preview/missing"},
	} {
		w := do(r, tc.method, tc.path)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.path)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	}
}

func TestSessionDelete(t *testing.T) {
	r, m := newRouter(t)
	require.NoError(t, m.Post(context.Background(), "s1", []byte(payload)))

	w := do(r, http.MethodDelete, "/api/sessions/s1")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := m.Get("s1")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestSessionPreview(t *testing.T) {
	r, m := newRouter(t)
	require.NoError(t, m.Post(context.Background(), "s1", []byte(payload)))

	w := do(r, http.MethodGet, "/preview/s1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))

	body := w.Body.String()
	assert.Contains(t, body, ".button{color:red}")
	assert.Contains(t, body, ".button-b1{border:2px solid #0055ff;}")
	assert.Contains(t, body, `data-component-id="b1"`)
}

func TestSessionClosedManager(t *testing.T) {
	r, m := newRouter(t)
	m.Close()

	w := httptest.NewRecorder()
	sendSessionError(w, "x", session.ErrClosed)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(r, http.MethodGet, "/api/sessions")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sessions":[]}`, w.Body.String())
}
