package blog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"go.uber.org/zap"

	"github.com/ddnio/ddnio.github.io/flomo"
)

// memoTimeLayout is the wall-clock format the Flomo API uses. The strings
// sort lexicographically, which the sync decision relies on.
const memoTimeLayout = "2006-01-02 15:04:05"

// epochUpdatedAt marks files written before flomo_updated_at existed, so
// they always lose the freshness comparison and get rewritten.
const epochUpdatedAt = "1970-01-01 00:00:00"

// Synced post filenames look like 2025-10-24-MjAxODc3MTg0.md.
var rePostFilename = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(.+)\.md$`)

// memoZone is the timezone the blog's dates are written in.
var memoZone = time.FixedZone("CST", 8*60*60)

// PostFrontMatter is the metadata block of a synced post. Files on disk
// use TOML fences; the parser autodetects YAML for hand-written posts.
type PostFrontMatter struct {
	Title          string    `toml:"title" yaml:"title"`
	Date           time.Time `toml:"date" yaml:"date"`
	Draft          bool      `toml:"draft" yaml:"draft"`
	Tags           []string  `toml:"tags" yaml:"tags"`
	FlomoSlug      string    `toml:"flomo_slug" yaml:"flomo_slug"`
	FlomoSource    string    `toml:"flomo_source" yaml:"flomo_source"`
	FlomoUpdatedAt string    `toml:"flomo_updated_at" yaml:"flomo_updated_at"`
}

// ScanSyncedPosts walks the posts directory and returns, for every file
// matching the synced-post filename pattern, its slug mapped to the
// flomo_updated_at recorded in front matter. A missing directory yields an
// empty map; unparseable files are logged and skipped.
func ScanSyncedPosts(dir string, log *zap.Logger) (map[string]string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	synced := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("posts directory does not exist", zap.String("dir", dir))
			return synced, nil
		}
		return nil, fmt.Errorf("scan posts: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := rePostFilename.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		slug := match[4]

		f, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn("cannot open post", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}
		var fm PostFrontMatter
		_, err = frontmatter.Parse(f, &fm)
		f.Close()
		if err != nil {
			log.Warn("cannot parse front matter", zap.String("file", entry.Name()), zap.Error(err))
			continue
		}

		if fm.FlomoUpdatedAt != "" {
			synced[slug] = fm.FlomoUpdatedAt
		} else {
			synced[slug] = epochUpdatedAt
		}
	}

	log.Info("scanned synced posts", zap.Int("count", len(synced)))
	return synced, nil
}

// PostFilename builds the on-disk name for a memo: the creation date
// followed by the slug.
func PostFilename(m flomo.Memo) string {
	date, _, _ := strings.Cut(m.CreatedAt, " ")
	return fmt.Sprintf("%s-%s.md", date, m.Slug)
}

// renderFrontMatter emits the TOML front matter block for a synced memo.
func renderFrontMatter(title string, created time.Time, tags []string, slug, source, updatedAt string) string {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = strconv.Quote(t)
	}

	var b strings.Builder
	b.WriteString("+++\n")
	fmt.Fprintf(&b, "title = %s\n", strconv.Quote(title))
	fmt.Fprintf(&b, "date = %s\n", created.Format("2006-01-02T15:04:05-07:00"))
	b.WriteString("draft = false\n")
	fmt.Fprintf(&b, "tags = [%s]\n", strings.Join(quoted, ", "))
	fmt.Fprintf(&b, "flomo_slug = %s\n", strconv.Quote(slug))
	fmt.Fprintf(&b, "flomo_source = %s\n", strconv.Quote(source))
	fmt.Fprintf(&b, "flomo_updated_at = %s\n", strconv.Quote(updatedAt))
	b.WriteString("+++")
	return b.String()
}

// parseMemoTime interprets an API timestamp in the blog's timezone.
func parseMemoTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(memoTimeLayout, s, memoZone)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse memo time %q: %w", s, err)
	}
	return t, nil
}

// WritePost creates or overwrites a post file, creating the posts
// directory on demand.
func WritePost(dir, filename, content string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create posts dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write post %s: %w", filename, err)
	}
	return nil
}
