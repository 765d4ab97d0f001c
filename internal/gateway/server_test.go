package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vellum/internal/bridge"
	"vellum/internal/config"
	"vellum/internal/gateway/handlers"
	"vellum/internal/jsvm"
	"vellum/internal/protocol"
	"vellum/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Gateway: config.GatewayConfig{Host: "127.0.0.1", Port: 0},
	}

	hub := bridge.NewHub()
	nop := zerolog.Nop()
	sessions := session.NewManager(session.Options{Notifier: hub, Logger: &nop})
	t.Cleanup(sessions.Close)

	return NewServer(cfg, "v1.0.0-test", hub, sessions)
}

// startHub runs the hub for tests that drive Handler directly.
func startHub(t *testing.T, s *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Hub().Run(ctx)
	t.Cleanup(cancel)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)

	if s.router == nil {
		t.Error("router is nil")
	}
	if s.Hub() == nil {
		t.Error("hub is nil")
	}
	if s.Handler() == nil {
		t.Error("handler is nil")
	}
}

func TestServerHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "v1.0.0-test", resp.Version)
	assert.Equal(t, 0, resp.Sessions)
}

func TestServerFrameShell(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frame/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bridge.js")

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frame/bridge.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "role=frame")

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frame/renderer.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, jsvm.DefaultScript, w.Body.String())

	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frame", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "/frame/", w.Header().Get("Location"))
}

func TestServerFrameRendererOverride(t *testing.T) {
	script := filepath.Join(t.TempDir(), "renderer.js")
	require.NoError(t, os.WriteFile(script, []byte("function renderPreview(ctx) { /* custom */ }"), 0o644))

	s := newTestServer(t)
	s.config.Runtime.Script = script

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frame/renderer.js", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/* custom */")

	require.NoError(t, os.Remove(script))
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/frame/renderer.js", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestServerRelayAndSnapshot(t *testing.T) {
	s := newTestServer(t)
	startHub(t, s)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	author, err := bridge.Dial(ctx, ts.URL, "", bridge.RoleAuthor)
	require.NoError(t, err)
	defer author.Close()
	id := author.Session()
	require.NotEmpty(t, id)

	// the server-side preview announces readiness on connect
	require.NoError(t, author.WaitReady(ctx))

	frame, err := bridge.Dial(ctx, ts.URL, id, bridge.RoleFrame)
	require.NoError(t, err)
	defer frame.Close()

	// wait until the hub has registered the frame
	require.Eventually(t, func() bool {
		info, ok := s.Hub().Session(id)
		return ok && info.Frames == 1
	}, 5*time.Second, 10*time.Millisecond)

	msg := protocol.PreviewMessage{
		FrontendDefinition: json.RawMessage(`[{"type":"text","id":"t1","text":"Hello"}]`),
		Styles:             ".text{font-weight:bold}",
	}.WithSelection(protocol.Selection{Type: "text", ID: "t1"})
	require.NoError(t, author.Send(ctx, msg))

	select {
	case data := <-frame.Messages():
		got, ok := protocol.Decode(data)
		require.True(t, ok)
		assert.Equal(t, ".text{font-weight:bold}", got.Styles)
	case <-ctx.Done():
		t.Fatal("frame did not receive the message")
	}

	// the server preview applies before relaying
	resp, err := http.Get(ts.URL + "/api/sessions/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail handlers.SessionDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	assert.Equal(t, uint64(1), detail.Applied)
	assert.Equal(t, "text:t1", detail.Selection)
	assert.Equal(t, 1, detail.Authors)
	assert.Equal(t, 1, detail.Frames)

	page, err := http.Get(ts.URL + "/preview/" + id)
	require.NoError(t, err)
	defer page.Body.Close()
	var sb strings.Builder
	_, err = io.Copy(&sb, page.Body)
	require.NoError(t, err)
	assert.Contains(t, sb.String(), ".text-t1{border:2px solid #0055ff;}")
	assert.Contains(t, sb.String(), "Hello")
}

func TestServerServeAndShutdown(t *testing.T) {
	s := newTestServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(l) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + l.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Shutdown(context.Background()))
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
