package preview

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	blog "github.com/ddnio/ddnio.github.io"
)

func buildOutput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "posts", "hello"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"index.html":             "<html><body>home</body></html>",
		"posts/hello/index.html": "<html><body>hello post</body></html>",
		"css/main.css":           "body { margin: 0 }",
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestServeIndex(t *testing.T) {
	s, err := New(blog.PreviewConfig{Addr: ":0", Dir: buildOutput(t)}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := get(t, s, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "home") {
		t.Fatalf("body = %q", rec.Body.String())
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Fatalf("Cache-Control = %q", cc)
	}
}

func TestServePostDirectory(t *testing.T) {
	s, err := New(blog.PreviewConfig{Addr: ":0", Dir: buildOutput(t)}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := get(t, s, "/posts/hello/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hello post") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestServeAsset(t *testing.T) {
	s, err := New(blog.PreviewConfig{Addr: ":0", Dir: buildOutput(t)}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := get(t, s, "/css/main.css")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestServeNotFound(t *testing.T) {
	s, err := New(blog.PreviewConfig{Addr: ":0", Dir: buildOutput(t)}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if rec := get(t, s, "/missing/"); rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNewMissingDir(t *testing.T) {
	if _, err := New(blog.PreviewConfig{Addr: ":0", Dir: filepath.Join(t.TempDir(), "public")}, nil); err == nil {
		t.Fatalf("expected error for missing output dir")
	}
}
