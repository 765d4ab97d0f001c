// Package shell serves the browser frame shell: the page a real iframe loads,
// the relay script that feeds it preview messages, and optionally the
// compiled WASM frame from a directory on disk.
package shell

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"strings"

	"vellum/pkg/logger"
)

// Source produces a generated shell file on every request.
type Source func() ([]byte, error)

// Server serves shell files. Files in dir take priority over generated and
// embedded ones, so a build can drop vellum-frame.wasm and wasm_exec.js next
// to them.
type Server struct {
	dir     string
	files   fs.FS
	sources map[string]Source
}

// NewServer creates a shell server. A nil files uses the embedded shell.
func NewServer(dir string, files fs.FS) *Server {
	if files == nil {
		files = Files()
	}
	return &Server{dir: dir, files: files, sources: make(map[string]Source)}
}

// Handle serves name from src. Register sources before serving.
func (s *Server) Handle(name string, src Source) {
	s.sources[name] = src
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	for _, seg := range strings.Split(r.URL.Path, "/") {
		if seg == ".." {
			logger.Warn().Str("path", r.URL.Path).Msg("Path traversal attempt blocked")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	data, err := s.read(name)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Err(err).Str("file", name).Msg("Failed to read shell file")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	// the shell changes with every build of the frame
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

func (s *Server) read(name string) ([]byte, error) {
	if s.dir != "" {
		if data, err := fs.ReadFile(os.DirFS(s.dir), name); err == nil {
			return data, nil
		}
	}
	if src, ok := s.sources[name]; ok {
		return src()
	}
	return fs.ReadFile(s.files, name)
}
