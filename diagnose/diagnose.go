// Package diagnose drives a headless browser session against a blog page
// to find out why the Giscus comment widget fails to load. One run opens
// the page, passively records network, console, and error events for a
// fixed window, queries the widget's DOM elements once, and writes a JSON
// report plus a screenshot.
package diagnose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	blog "github.com/ddnio/ddnio.github.io"
)

// Run executes one diagnostic session. The browser is closed regardless
// of how the run ends.
func Run(ctx context.Context, cfg blog.DiagnoseConfig, log *zap.Logger) (*Report, error) {
	if log == nil {
		log = zap.NewNop()
	}

	l := launcher.New().Headless(!cfg.Headful)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("diagnose: launch browser: %w", err)
	}
	defer l.Cleanup()

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("diagnose: connect browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Warn("close browser", zap.Error(err))
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("diagnose: open page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             1280,
		Height:            1600,
		DeviceScaleFactor: 1,
	}).Call(page); err != nil {
		log.Warn("set viewport", zap.Error(err))
	}

	report := &Report{URL: cfg.URL, StartedAt: time.Now()}
	col := &collector{report: report, log: log}

	window := time.Duration(cfg.WaitSeconds) * time.Second
	winCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	wait := page.Context(winCtx).EachEvent(
		col.onRequest,
		col.onResponse,
		col.onConsole,
		col.onException,
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()

	log.Info("navigating", zap.String("url", cfg.URL))
	if err := page.Context(ctx).Navigate(cfg.URL); err != nil {
		return nil, fmt.Errorf("diagnose: navigate %s: %w", cfg.URL, err)
	}
	if err := page.Context(winCtx).WaitLoad(); err != nil {
		log.Warn("wait for load", zap.Error(err))
	}

	log.Info("observing", zap.Duration("window", window))
	select {
	case <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("diagnose: %w", ctx.Err())
	}

	report.DOM = inspectDOM(page.Context(ctx), log)
	report.FinishedAt = time.Now()

	if cfg.ScreenshotPath != "" {
		if err := screenshot(page.Context(ctx), cfg.ScreenshotPath); err != nil {
			log.Warn("screenshot", zap.Error(err))
		} else {
			report.Screenshot = cfg.ScreenshotPath
		}
	}
	if cfg.ReportPath != "" {
		if err := report.WriteFile(cfg.ReportPath); err != nil {
			return report, err
		}
		log.Info("report written", zap.String("path", cfg.ReportPath))
	}
	return report, nil
}

// collector appends browser events to the report. Handlers run on rod's
// event loop; the mutex keeps the slices consistent with the final read.
type collector struct {
	mu     sync.Mutex
	report *Report
	log    *zap.Logger
}

func (c *collector) onRequest(ev *proto.NetworkRequestWillBeSent) {
	if ev.Request == nil {
		return
	}
	req := NetworkRequest{
		Method:       ev.Request.Method,
		URL:          ev.Request.URL,
		ResourceType: string(ev.Type),
		At:           time.Now(),
	}
	if strings.Contains(req.URL, "giscus") {
		c.log.Info("giscus request", zap.String("method", req.Method), zap.String("url", req.URL))
	}
	c.mu.Lock()
	c.report.Requests = append(c.report.Requests, req)
	c.mu.Unlock()
}

func (c *collector) onResponse(ev *proto.NetworkResponseReceived) {
	if ev.Response == nil {
		return
	}
	resp := NetworkResponse{
		URL:      ev.Response.URL,
		Status:   ev.Response.Status,
		MimeType: ev.Response.MIMEType,
		At:       time.Now(),
	}
	if strings.Contains(resp.URL, "giscus") || resp.Status >= 400 {
		c.log.Info("response", zap.Int("status", resp.Status), zap.String("url", resp.URL))
	}
	c.mu.Lock()
	c.report.Responses = append(c.report.Responses, resp)
	c.mu.Unlock()
}

func (c *collector) onConsole(ev *proto.RuntimeConsoleAPICalled) {
	msg := ConsoleMessage{
		Level: string(ev.Type),
		Text:  stringifyConsoleArgs(ev.Args),
		At:    time.Now(),
	}
	if ev.Type == proto.RuntimeConsoleAPICalledTypeError || ev.Type == proto.RuntimeConsoleAPICalledTypeWarning {
		c.log.Info("console", zap.String("level", msg.Level), zap.String("text", msg.Text))
	}
	c.mu.Lock()
	c.report.Console = append(c.report.Console, msg)
	c.mu.Unlock()
}

func (c *collector) onException(ev *proto.RuntimeExceptionThrown) {
	text := ""
	if ev.ExceptionDetails != nil {
		text = ev.ExceptionDetails.Text
		if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
			text = ev.ExceptionDetails.Exception.Description
		}
	}
	c.log.Warn("page error", zap.String("text", text))
	c.mu.Lock()
	c.report.Errors = append(c.report.Errors, PageError{Text: text, At: time.Now()})
	c.mu.Unlock()
}

func stringifyConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, " ")
}

// inspectDOM runs the one-shot element queries for the widget's container,
// script tag, and injected iframe. Absence is a finding, not an error.
func inspectDOM(page *rod.Page, log *zap.Logger) DOMFindings {
	var d DOMFindings

	has, _, err := page.Has(".giscus")
	if err != nil {
		log.Warn("query .giscus", zap.Error(err))
	}
	d.ContainerFound = has

	has, el, err := page.Has(`script[src*="giscus.app"]`)
	if err != nil {
		log.Warn("query giscus script", zap.Error(err))
	}
	d.ScriptFound = has
	if has && el != nil {
		if src, err := el.Attribute("src"); err == nil && src != nil {
			d.ScriptSrc = *src
		}
	}

	has, el, err = page.Has("iframe.giscus-frame")
	if err != nil {
		log.Warn("query giscus iframe", zap.Error(err))
	}
	d.IframeFound = has
	if has && el != nil {
		if src, err := el.Attribute("src"); err == nil && src != nil {
			d.IframeSrc = *src
		}
	}
	return d
}

func screenshot(page *rod.Page, path string) error {
	data, err := page.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
