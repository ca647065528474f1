package blog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ddnio/ddnio.github.io/flomo"
	"github.com/ddnio/ddnio.github.io/markdown"
)

// MemoLister is the part of the Flomo client the syncer needs.
type MemoLister interface {
	MemoList(ctx context.Context, latestUpdatedAt string, limit int) ([]flomo.Memo, error)
}

// ImageUploader mirrors a remote image into object storage and returns its
// public URL.
type ImageUploader interface {
	UploadFromURL(ctx context.Context, imageURL string) (string, error)
}

// SyncStats summarizes one sync run.
type SyncStats struct {
	Total   int
	New     int
	Updated int
	Failed  int
}

// Syncer pulls tagged memos from Flomo and writes them into the posts
// directory as Hugo content. The posts directory itself is the sync state:
// a memo is already synced when a file with its slug exists and records an
// equal-or-newer flomo_updated_at.
type Syncer struct {
	cfg      Config
	api      MemoLister
	uploader ImageUploader
	conv     *markdown.Converter
	log      *zap.Logger
	now      func() time.Time
}

// NewSyncer creates a Syncer. uploader may be nil, in which case image
// attachments are skipped with a warning.
func NewSyncer(cfg Config, api MemoLister, uploader ImageUploader, log *zap.Logger) *Syncer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Syncer{
		cfg:      cfg,
		api:      api,
		uploader: uploader,
		conv:     markdown.NewConverter(),
		log:      log,
		now:      time.Now,
	}
}

// Sync runs one full pass: scan, fetch, filter, generate, write. Per-memo
// failures are counted, logged, and do not abort the run.
func (s *Syncer) Sync(ctx context.Context) (SyncStats, error) {
	var stats SyncStats

	synced, err := ScanSyncedPosts(s.cfg.Sync.PostsDir, s.log)
	if err != nil {
		return stats, err
	}

	memos, err := s.memosToSync(ctx, synced)
	if err != nil {
		return stats, err
	}
	stats.Total = len(memos)
	if len(memos) == 0 {
		s.log.Info("nothing to sync")
		return stats, nil
	}

	for _, memo := range memos {
		_, isUpdate := synced[memo.Slug]

		filename, content, err := s.buildPost(ctx, memo)
		if err == nil {
			err = WritePost(s.cfg.Sync.PostsDir, filename, content)
		}
		if err != nil {
			stats.Failed++
			s.log.Error("sync failed", zap.String("slug", memo.Slug), zap.Error(err))
			continue
		}

		if isUpdate {
			stats.Updated++
		} else {
			stats.New++
		}
		s.log.Info("synced memo",
			zap.String("file", filename),
			zap.Bool("update", isUpdate))
	}

	s.log.Info("sync complete",
		zap.Int("total", stats.Total),
		zap.Int("new", stats.New),
		zap.Int("updated", stats.Updated),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// memosToSync fetches recent memos and keeps the ones that are live, carry
// a configured tag, and are either unknown or newer than the synced copy.
func (s *Syncer) memosToSync(ctx context.Context, synced map[string]string) ([]flomo.Memo, error) {
	cutoff := s.now().Add(-time.Duration(s.cfg.Sync.DaysToSync) * 24 * time.Hour).Unix()
	s.log.Info("fetching memos", zap.Int("days", s.cfg.Sync.DaysToSync))

	memos, err := s.api.MemoList(ctx, strconv.FormatInt(cutoff, 10), flomo.MaxPageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch memos: %w", err)
	}

	var out []flomo.Memo
	for _, m := range memos {
		if m.Deleted() {
			s.log.Debug("memo deleted, skipping", zap.String("slug", m.Slug))
			continue
		}
		if !s.tagsMatch(m.Tags) {
			s.log.Debug("tags do not match, skipping", zap.String("slug", m.Slug))
			continue
		}
		recorded, known := synced[m.Slug]
		switch {
		case !known:
			s.log.Info("new memo", zap.String("slug", m.Slug))
			out = append(out, m)
		case m.UpdatedAt > recorded:
			s.log.Info("memo updated",
				zap.String("slug", m.Slug),
				zap.String("from", recorded),
				zap.String("to", m.UpdatedAt))
			out = append(out, m)
		default:
			s.log.Debug("memo unchanged, skipping", zap.String("slug", m.Slug))
		}
	}

	s.log.Info("memos to sync", zap.Int("count", len(out)))
	return out, nil
}

// tagsMatch reports whether any memo tag is in the configured tag set.
func (s *Syncer) tagsMatch(tags []string) bool {
	for _, t := range tags {
		for _, want := range s.cfg.Tags {
			if t == want {
				return true
			}
		}
	}
	return false
}

// buildPost turns one memo into a filename and complete file content.
func (s *Syncer) buildPost(ctx context.Context, memo flomo.Memo) (string, string, error) {
	title := s.conv.ExtractTitle(memo.Content)

	body, err := s.conv.Convert(memo.Content)
	if err != nil {
		return "", "", err
	}
	body = dropLeadingTitle(body, title)

	if urls := s.uploadImages(ctx, memo); len(urls) > 0 {
		shortcode := fmt.Sprintf(`{{< flomo images="%s" >}}`, strings.Join(urls, "|"))
		if body != "" {
			body += "\n\n"
		}
		body += shortcode
	}

	created, err := parseMemoTime(memo.CreatedAt)
	if err != nil {
		return "", "", err
	}

	fm := renderFrontMatter(title, created, memo.Tags, memo.Slug, memo.Source, memo.UpdatedAt)
	return PostFilename(memo), fm + "\n\n" + body, nil
}

// uploadImages mirrors the memo's image attachments into object storage.
// Upload failures are logged and skipped; the memo still syncs.
func (s *Syncer) uploadImages(ctx context.Context, memo flomo.Memo) []string {
	var urls []string
	for _, f := range memo.Files {
		if f.Type != "image" {
			continue
		}
		if s.uploader == nil {
			s.log.Warn("no uploader configured, skipping image", zap.String("name", f.Name))
			continue
		}
		url, err := s.uploader.UploadFromURL(ctx, f.URL)
		if err != nil {
			s.log.Warn("image upload failed",
				zap.String("name", f.Name),
				zap.Error(err))
			continue
		}
		s.log.Debug("uploaded image", zap.String("name", f.Name), zap.String("url", url))
		urls = append(urls, url)
	}
	return urls
}

// dropLeadingTitle removes the first body line when it duplicates the
// front matter title.
func dropLeadingTitle(body, title string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.TrimSpace(line) == title {
			lines = append(lines[:i], lines[i+1:]...)
			return strings.TrimSpace(strings.Join(lines, "\n"))
		}
		break
	}
	return body
}
