package diagnose

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	start := time.Date(2025, 10, 24, 19, 0, 0, 0, time.UTC)
	return &Report{
		URL:        "http://localhost:1313/posts/hello/",
		StartedAt:  start,
		FinishedAt: start.Add(15 * time.Second),
		Requests: []NetworkRequest{
			{Method: "GET", URL: "http://localhost:1313/posts/hello/", ResourceType: "Document"},
			{Method: "GET", URL: "https://giscus.app/client.js", ResourceType: "Script"},
		},
		Responses: []NetworkResponse{
			{URL: "http://localhost:1313/posts/hello/", Status: 200},
			{URL: "https://giscus.app/client.js", Status: 200, MimeType: "application/javascript"},
		},
		DOM: DOMFindings{
			ContainerFound: true,
			ScriptFound:    true,
			ScriptSrc:      "https://giscus.app/client.js",
			IframeFound:    true,
			IframeSrc:      "https://giscus.app/zh-CN/widget",
		},
	}
}

func TestGiscusRequests(t *testing.T) {
	r := sampleReport()
	got := r.GiscusRequests()
	require.Len(t, got, 1)
	assert.Equal(t, "https://giscus.app/client.js", got[0].URL)
}

func TestVerdict(t *testing.T) {
	t.Run("loaded", func(t *testing.T) {
		assert.Contains(t, sampleReport().Verdict(), "widget loaded")
	})
	t.Run("missing script tag", func(t *testing.T) {
		r := sampleReport()
		r.DOM.ScriptFound = false
		assert.Contains(t, r.Verdict(), "script tag is missing")
	})
	t.Run("never requested", func(t *testing.T) {
		r := sampleReport()
		r.Requests = r.Requests[:1]
		assert.Contains(t, r.Verdict(), "never requested")
	})
	t.Run("failed request", func(t *testing.T) {
		r := sampleReport()
		r.Responses[1].Status = 403
		v := r.Verdict()
		assert.Contains(t, v, "failed")
		assert.Contains(t, v, "403")
	})
	t.Run("no iframe", func(t *testing.T) {
		r := sampleReport()
		r.DOM.IframeFound = false
		assert.Contains(t, r.Verdict(), "no comment iframe")
	})
}

func TestSummary(t *testing.T) {
	r := sampleReport()
	r.Errors = []PageError{{Text: "ReferenceError: giscus is not defined"}}
	s := r.Summary()
	assert.Contains(t, s, "url: http://localhost:1313/posts/hello/")
	assert.Contains(t, s, "requests: 2 total, 1 to giscus.app")
	assert.Contains(t, s, "iframe.giscus-frame: true (https://giscus.app/zh-CN/widget)")
	assert.Contains(t, s, "page error: ReferenceError")
	assert.Contains(t, s, "verdict:")
}

func TestWriteFile(t *testing.T) {
	r := sampleReport()
	path := filepath.Join(t.TempDir(), "tmp", "giscus-report.json")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.URL, back.URL)
	assert.Len(t, back.Requests, 2)
	assert.True(t, back.DOM.IframeFound)
}
