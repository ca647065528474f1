package diagnose

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// NetworkRequest is one outgoing request observed during the run.
type NetworkRequest struct {
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	ResourceType string    `json:"resource_type,omitempty"`
	At           time.Time `json:"at"`
}

// NetworkResponse is one response observed during the run.
type NetworkResponse struct {
	URL      string    `json:"url"`
	Status   int       `json:"status"`
	MimeType string    `json:"mime_type,omitempty"`
	At       time.Time `json:"at"`
}

// ConsoleMessage is one console API call observed during the run.
type ConsoleMessage struct {
	Level string    `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// PageError is one uncaught exception observed during the run.
type PageError struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// DOMFindings records the one-shot element queries made after the
// observation window closes.
type DOMFindings struct {
	ContainerFound bool   `json:"container_found"`
	ScriptFound    bool   `json:"script_found"`
	ScriptSrc      string `json:"script_src,omitempty"`
	IframeFound    bool   `json:"iframe_found"`
	IframeSrc      string `json:"iframe_src,omitempty"`
}

// Report is everything one diagnostic run observed.
type Report struct {
	URL        string            `json:"url"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Requests   []NetworkRequest  `json:"requests"`
	Responses  []NetworkResponse `json:"responses"`
	Console    []ConsoleMessage  `json:"console"`
	Errors     []PageError       `json:"errors"`
	DOM        DOMFindings       `json:"dom"`
	Screenshot string            `json:"screenshot,omitempty"`
}

// GiscusRequests returns the observed requests that went to the Giscus
// service.
func (r *Report) GiscusRequests() []NetworkRequest {
	var out []NetworkRequest
	for _, req := range r.Requests {
		if strings.Contains(req.URL, "giscus.app") {
			out = append(out, req)
		}
	}
	return out
}

// GiscusFailures returns the observed Giscus responses with error statuses.
func (r *Report) GiscusFailures() []NetworkResponse {
	var out []NetworkResponse
	for _, resp := range r.Responses {
		if strings.Contains(resp.URL, "giscus.app") && resp.Status >= 400 {
			out = append(out, resp)
		}
	}
	return out
}

// Verdict reduces the findings to a one-line diagnosis of the comment
// widget's loading state.
func (r *Report) Verdict() string {
	if !r.DOM.ScriptFound {
		return "giscus client script tag is missing from the page"
	}
	if len(r.GiscusRequests()) == 0 {
		return "script tag present but the browser never requested giscus.app"
	}
	if failed := r.GiscusFailures(); len(failed) > 0 {
		return fmt.Sprintf("giscus request failed: %s returned %d", failed[0].URL, failed[0].Status)
	}
	if !r.DOM.IframeFound {
		return "giscus client loaded but no comment iframe was injected"
	}
	return "giscus iframe is present; the widget loaded"
}

// Summary renders the findings as human-readable lines.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "url: %s\n", r.URL)
	fmt.Fprintf(&b, "observed: %s\n", r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	fmt.Fprintf(&b, "requests: %d total, %d to giscus.app\n", len(r.Requests), len(r.GiscusRequests()))
	fmt.Fprintf(&b, "responses: %d, console messages: %d, page errors: %d\n", len(r.Responses), len(r.Console), len(r.Errors))
	fmt.Fprintf(&b, "container .giscus: %v\n", r.DOM.ContainerFound)
	fmt.Fprintf(&b, "script tag: %v", r.DOM.ScriptFound)
	if r.DOM.ScriptSrc != "" {
		fmt.Fprintf(&b, " (%s)", r.DOM.ScriptSrc)
	}
	b.WriteByte('\n')
	fmt.Fprintf(&b, "iframe.giscus-frame: %v", r.DOM.IframeFound)
	if r.DOM.IframeSrc != "" {
		fmt.Fprintf(&b, " (%s)", r.DOM.IframeSrc)
	}
	b.WriteByte('\n')
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "page error: %s\n", e.Text)
	}
	fmt.Fprintf(&b, "verdict: %s\n", r.Verdict())
	return b.String()
}

// WriteFile serializes the report as indented JSON, creating parent
// directories as needed.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("diagnose: marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("diagnose: create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("diagnose: write report: %w", err)
	}
	return nil
}
