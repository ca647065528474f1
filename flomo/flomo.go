// Package flomo is a client for the Flomo web API. It authenticates with a
// bearer token, signs request parameters the way the official web client
// does, and fetches memo pages through the updated-at cursor endpoint.
package flomo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://flomoapp.com"
	memoListPath   = "/api/v1/memo/updated/"

	defaultTimeout = 10 * time.Second

	// MaxPageSize is the largest page the API accepts.
	MaxPageSize = 200
)

// Memo is a single normalized note. Timestamps are the API's wall-clock
// strings ("2006-01-02 15:04:05"); they sort lexicographically.
type Memo struct {
	Content     string   `json:"content"`
	CreatorID   int64    `json:"creator_id"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags"`
	Pin         int      `json:"pin"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	DeletedAt   string   `json:"deleted_at"`
	Slug        string   `json:"slug"`
	LinkedCount int      `json:"linked_count"`
	Files       []File   `json:"files"`
}

// Deleted reports whether the memo carries a deletion timestamp.
func (m Memo) Deleted() bool {
	return m.DeletedAt != ""
}

// File is a memo attachment. URL is a signed download link with an
// expiration baked in, so it must be fetched promptly.
type File struct {
	ID           int64  `json:"id"`
	CreatorID    int64  `json:"creator_id"`
	Type         string `json:"type"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	Seconds      *int   `json:"seconds"`
	Content      string `json:"content"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// Client talks to the Flomo web API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	log     *zap.Logger
	now     func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL (used by tests).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithLogger sets the logger (default is a no-op logger).
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a Flomo API client from a bearer token.
func NewClient(token string, opts ...ClientOption) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("flomo: bearer token must not be empty")
	}
	c := &Client{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MemoList fetches up to limit memos updated after latestUpdatedAt, a unix
// timestamp string used as the pagination cursor ("0" fetches from the
// beginning). Memos that fail to decode are skipped rather than failing
// the whole page.
func (c *Client) MemoList(ctx context.Context, latestUpdatedAt string, limit int) ([]Memo, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if latestUpdatedAt == "" {
		latestUpdatedAt = "0"
	}

	params := map[string]any{
		"api_key":           "flomo_web",
		"app_version":       "4.0",
		"platform":          "web",
		"webp":              "1",
		"tz":                "8:0",
		"timestamp":         c.now().Unix(),
		"limit":             strconv.Itoa(limit),
		"latest_updated_at": latestUpdatedAt,
	}
	params["sign"] = Sign(params)

	query := url.Values{}
	for k, v := range params {
		query.Set(k, fmt.Sprint(v))
	}

	reqURL := c.baseURL + memoListPath + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("flomo: build request: %w", err)
	}
	c.setHeaders(req)

	c.log.Debug("fetching memo list",
		zap.String("latest_updated_at", latestUpdatedAt),
		zap.Int("limit", limit))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("flomo: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("flomo: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: resp.StatusCode, Message: truncate(string(body), 200)}
	}

	memos, err := c.parseResponse(body)
	if err != nil {
		return nil, err
	}
	c.log.Info("fetched memos", zap.Int("count", len(memos)))
	return memos, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Origin", "https://v.flomoapp.com")
	req.Header.Set("Referer", "https://v.flomoapp.com/")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Authorization", "Bearer "+c.token)
}

// envelope is the business-level wrapper every API response carries.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) parseResponse(body []byte) ([]Memo, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("flomo: invalid json response: %w", err)
	}
	if env.Code != 0 {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		if env.Code == 401 || env.Code == 403 || strings.Contains(strings.ToLower(msg), "auth") {
			return nil, fmt.Errorf("%w: %s", ErrAuthentication, msg)
		}
		return nil, &APIError{Code: env.Code, Message: msg}
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(env.Data, &raws); err != nil {
		return nil, fmt.Errorf("flomo: unexpected data shape: %w", err)
	}

	memos := make([]Memo, 0, len(raws))
	for _, raw := range raws {
		var m Memo
		if err := json.Unmarshal(raw, &m); err != nil {
			c.log.Warn("skipping undecodable memo", zap.Error(err))
			continue
		}
		m.Tags = normalizeTags(m.Tags)
		memos = append(memos, m)
	}
	return memos, nil
}

// normalizeTags strips the leading # the API keeps on tag names.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, strings.TrimPrefix(t, "#"))
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
