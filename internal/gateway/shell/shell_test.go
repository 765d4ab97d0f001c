package shell

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestEmbeddedFiles(t *testing.T) {
	if err := fstest.TestFS(Files(), "index.html", "bridge.js"); err != nil {
		t.Fatal(err)
	}
}

func TestServer_Embedded(t *testing.T) {
	server := NewServer("", nil)

	tests := []struct {
		path           string
		expectedStatus int
		expectedType   string
		expectedBody   string
	}{
		{"/", http.StatusOK, "text/html", "bridge.js"},
		{"/index.html", http.StatusOK, "text/html", "VellumBridge.start"},
		{"/bridge.js", http.StatusOK, "javascript", "vellum:ready"},
		{"/vellum-frame.wasm", http.StatusNotFound, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()

			server.ServeHTTP(rec, req)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.expectedStatus)
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, tt.expectedType) {
				t.Errorf("Content-Type = %q, want %q", ct, tt.expectedType)
			}
			if !strings.Contains(rec.Body.String(), tt.expectedBody) {
				t.Errorf("body does not contain %q", tt.expectedBody)
			}
		})
	}
}

func TestServer_DirTakesPriority(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>custom</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "vellum-frame.wasm"), []byte("\x00asm"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := NewServer(dir, fstest.MapFS{
		"index.html": {Data: []byte("<html>embedded</html>")},
		"bridge.js":  {Data: []byte("// embedded")},
	})

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if !strings.Contains(rec.Body.String(), "custom") {
		t.Errorf("body = %q, want custom page", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/vellum-frame.wasm", nil)
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("wasm status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/wasm" {
		t.Errorf("Content-Type = %q, want application/wasm", ct)
	}

	// embedded fallback
	req = httptest.NewRequest(http.MethodGet, "/bridge.js", nil)
	rec = httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "embedded") {
		t.Errorf("bridge.js = %d %q", rec.Code, rec.Body.String())
	}
}

func TestServer_PathTraversal(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(filepath.Dir(dir), "secret.txt")
	if err := os.WriteFile(secret, []byte("SECRET"), 0o644); err != nil {
		t.Fatal(err)
	}
	defer os.Remove(secret)

	server := NewServer(dir, fstest.MapFS{})

	for _, p := range []string{"/../secret.txt", "/a/../../secret.txt"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.URL.Path = p
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("%s = %d, want 403", p, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "SECRET") {
			t.Errorf("%s exposed secret file", p)
		}
	}
}

func TestServer_Methods(t *testing.T) {
	server := NewServer("", fstest.MapFS{
		"index.html": {Data: []byte("<html></html>")},
	})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/index.html", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s = %d, want 405", method, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodHead, "/index.html", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("HEAD = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("HEAD wrote %d bytes", rec.Body.Len())
	}
}

func TestIndexBaseHead(t *testing.T) {
	server := NewServer("", nil)
	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	body := rec.Body.String()

	for _, want := range []string{
		"https://rsms.me/inter/inter.css",
		"family=Roboto+Mono",
		"font-family: Inter !important;",
		"box-sizing: border-box;",
		".container-screenslot-placeholder {",
		".container-screenslot-placeholder span {",
		`id="vellum-root"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index.html missing %q", want)
		}
	}

	// the renderer defines renderPreview before the frame boots
	bridge := strings.Index(body, `<script src="bridge.js">`)
	renderer := strings.Index(body, `<script src="renderer.js">`)
	boot := strings.Index(body, "VellumBridge.boot(")
	if bridge < 0 || renderer < bridge || boot < renderer {
		t.Errorf("script order: bridge=%d renderer=%d boot=%d", bridge, renderer, boot)
	}
}

func TestBridgeControlClassification(t *testing.T) {
	data, err := fs.ReadFile(Files(), "bridge.js")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"controlTypes", "frontendDefinition", "selectedComponentId"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("bridge.js missing %q", want)
		}
	}
}

func TestServer_Sources(t *testing.T) {
	dir := t.TempDir()
	server := NewServer(dir, fstest.MapFS{
		"renderer.js": {Data: []byte("// embedded renderer")},
	})
	calls := 0
	server.Handle("renderer.js", func() ([]byte, error) {
		calls++
		return []byte(fmt.Sprintf("function renderPreview(ctx) {} // %d", calls)), nil
	})
	server.Handle("broken.js", func() ([]byte, error) {
		return nil, errors.New("disk gone")
	})

	get := func(p string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, p, nil))
		return rec
	}

	rec := get("/renderer.js")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "// 1") {
		t.Fatalf("renderer.js = %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec = get("/renderer.js"); !strings.Contains(rec.Body.String(), "// 2") {
		t.Errorf("source not read per request: %q", rec.Body.String())
	}
	if rec = get("/broken.js"); rec.Code != http.StatusInternalServerError {
		t.Errorf("broken.js = %d, want 500", rec.Code)
	}

	// a file on disk still wins
	if err := os.WriteFile(filepath.Join(dir, "renderer.js"), []byte("// from disk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if rec = get("/renderer.js"); !strings.Contains(rec.Body.String(), "from disk") {
		t.Errorf("renderer.js = %q, want the file from dir", rec.Body.String())
	}
}

var _ http.Handler = (*Server)(nil)
