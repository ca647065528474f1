package blog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writePostFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCheckPostsClean(t *testing.T) {
	dir := t.TempDir()
	writePostFile(t, dir, "2025-10-24-hello.md", samplePost)

	problems, err := CheckPosts(dir, nil)
	if err != nil {
		t.Fatalf("CheckPosts: %v", err)
	}
	if len(problems) != 0 {
		t.Fatalf("problems = %v", problems)
	}
}

func TestCheckPostsMissingTitle(t *testing.T) {
	dir := t.TempDir()
	writePostFile(t, dir, "2025-10-24-no-title.md", "+++\ndate = 2025-10-24T18:55:21+08:00\n+++\n\nbody\n")

	problems, err := CheckPosts(dir, nil)
	if err != nil {
		t.Fatalf("CheckPosts: %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("problems = %v", problems)
	}
	if !strings.Contains(problems[0].Message, "missing title") {
		t.Fatalf("message = %q", problems[0].Message)
	}
	if problems[0].File != "2025-10-24-no-title.md" {
		t.Fatalf("file = %q", problems[0].File)
	}
}

func TestCheckPostsMissingDate(t *testing.T) {
	dir := t.TempDir()
	writePostFile(t, dir, "2025-10-24-no-date.md", "+++\ntitle = \"hello\"\n+++\n\nbody\n")

	problems, err := CheckPosts(dir, nil)
	if err != nil {
		t.Fatalf("CheckPosts: %v", err)
	}
	if len(problems) != 1 || !strings.Contains(problems[0].Message, "missing date") {
		t.Fatalf("problems = %v", problems)
	}
}

func TestCheckPostsBrokenFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writePostFile(t, dir, "2025-10-24-broken.md", "+++\ntitle = \"unterminated\nbody without closing fence\n")

	problems, err := CheckPosts(dir, nil)
	if err != nil {
		t.Fatalf("CheckPosts: %v", err)
	}
	if len(problems) != 1 || !strings.Contains(problems[0].Message, "front matter") {
		t.Fatalf("problems = %v", problems)
	}
}

func TestCheckPostsWalksSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writePostFile(t, filepath.Join(dir, "drafts"), "2025-10-24-draft.md", "+++\ndate = 2025-10-24T18:55:21+08:00\n+++\n\nbody\n")
	writePostFile(t, dir, "notes.txt", "not markdown, ignored")

	problems, err := CheckPosts(dir, nil)
	if err != nil {
		t.Fatalf("CheckPosts: %v", err)
	}
	if len(problems) != 1 {
		t.Fatalf("problems = %v", problems)
	}
	if problems[0].File != filepath.Join("drafts", "2025-10-24-draft.md") {
		t.Fatalf("file = %q", problems[0].File)
	}
}

func TestCheckPostsMissingDir(t *testing.T) {
	if _, err := CheckPosts(filepath.Join(t.TempDir(), "nope"), nil); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
