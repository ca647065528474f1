package blog

import (
	"bytes"
	"encoding/base64"
	"testing"
)

// 1x1 transparent PNG.
const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

func TestProcessImageReencodesAsJPEG(t *testing.T) {
	data, err := base64.StdEncoding.DecodeString(tinyPNG)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	out, ext := processImage(data)
	if ext != ".jpg" {
		t.Fatalf("ext = %q", ext)
	}
	if !bytes.HasPrefix(out, []byte{0xff, 0xd8}) {
		t.Fatalf("output is not JPEG, starts with % x", out[:2])
	}
}

func TestProcessImagePassesThroughUndecodable(t *testing.T) {
	data := []byte("GIF-ish garbage that is not an image")
	out, ext := processImage(data)
	if ext != "" {
		t.Fatalf("ext = %q", ext)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("bytes were modified")
	}
}

func TestExtFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://static.flomoapp.com/2025/photo.jpeg", ".jpeg"},
		{"https://static.flomoapp.com/2025/photo.png?sign=abc", ".png"},
		{"https://static.flomoapp.com/2025/noext", ".png"},
		{"://bad url", ".png"},
	}
	for _, c := range cases {
		if got := extFromURL(c.url); got != c.want {
			t.Fatalf("extFromURL(%q) = %q, want %q", c.url, got, c.want)
		}
	}
}

func TestShortID(t *testing.T) {
	a, b := shortID(), shortID()
	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("lengths = %d, %d", len(a), len(b))
	}
	if a == b {
		t.Fatalf("ids not unique: %q", a)
	}
	for _, r := range a {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("non-hex rune %q in %q", r, a)
		}
	}
}
