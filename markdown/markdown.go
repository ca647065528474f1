// Package markdown converts Flomo's HTML note bodies into the Markdown the
// static-site generator consumes, and extracts display titles from them.
package markdown

import (
	"fmt"
	"regexp"
	"strings"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown"
)

// UntitledFallback is used when a note has no line usable as a title.
const UntitledFallback = "无标题笔记"

// TitleMaxLen caps extracted titles, counted in runes.
const TitleMaxLen = 50

var reLeadingMarkers = regexp.MustCompile(`^[\*\-_\s]+`)

// Converter turns HTML into cleaned Markdown.
type Converter struct {
	conv *htmltomd.Converter
}

// NewConverter creates a Converter with link, image, and emphasis handling
// enabled.
func NewConverter() *Converter {
	return &Converter{conv: htmltomd.NewConverter("", true, nil)}
}

// Convert renders html as Markdown, drops tag lines (lines starting with
// "#"), and collapses runs of blank lines down to one.
func (c *Converter) Convert(html string) (string, error) {
	md, err := c.conv.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return CleanLines(md), nil
}

// ExtractTitle returns the first line of the converted content that is
// neither empty nor a tag line, truncated to TitleMaxLen runes with leading
// list and emphasis markers stripped. Returns UntitledFallback when no such
// line exists.
func (c *Converter) ExtractTitle(html string) string {
	md, err := c.conv.ConvertString(html)
	if err != nil {
		return UntitledFallback
	}
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || isTagLine(line) {
			continue
		}
		title := truncateRunes(line, TitleMaxLen)
		title = reLeadingMarkers.ReplaceAllString(title, "")
		if title != "" {
			return title
		}
	}
	return UntitledFallback
}

// CleanLines removes tag lines and collapses consecutive blank lines,
// trimming surrounding whitespace from the result.
func CleanLines(md string) string {
	lines := strings.Split(md, "\n")
	cleaned := make([]string, 0, len(lines))
	prevEmpty := false
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if isTagLine(stripped) {
			prevEmpty = true
			continue
		}
		if stripped != "" {
			cleaned = append(cleaned, line)
			prevEmpty = false
		} else if !prevEmpty {
			cleaned = append(cleaned, "")
			prevEmpty = true
		}
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// isTagLine reports whether a line is a Flomo tag line. The converter may
// escape a leading # as \#, so both forms are recognized.
func isTagLine(line string) bool {
	return strings.HasPrefix(line, "#") || strings.HasPrefix(line, `\#`)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
