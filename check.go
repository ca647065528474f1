package blog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

// Problem is one issue found in a content file.
type Problem struct {
	File    string
	Message string
}

func (p Problem) String() string {
	return p.File + ": " + p.Message
}

// CheckPosts validates every Markdown file in the posts directory: front
// matter must parse and carry a title and date, and the body must render.
// It returns the problems found; an empty slice means the content is clean.
func CheckPosts(dir string, log *zap.Logger) ([]Problem, error) {
	if log == nil {
		log = zap.NewNop()
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var problems []Problem
	checked := 0

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		checked++
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}

		data, err := os.ReadFile(path)
		if err != nil {
			problems = append(problems, Problem{File: rel, Message: err.Error()})
			return nil
		}

		var fm PostFrontMatter
		body, err := frontmatter.Parse(bytes.NewReader(data), &fm)
		if err != nil {
			problems = append(problems, Problem{File: rel, Message: "front matter: " + err.Error()})
			return nil
		}
		if fm.Title == "" {
			problems = append(problems, Problem{File: rel, Message: "front matter: missing title"})
		}
		if fm.Date.IsZero() {
			problems = append(problems, Problem{File: rel, Message: "front matter: missing date"})
		}

		var buf bytes.Buffer
		if err := md.Convert(body, &buf); err != nil {
			problems = append(problems, Problem{File: rel, Message: "markdown: " + err.Error()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("check posts: %w", err)
	}

	log.Info("checked posts",
		zap.Int("files", checked),
		zap.Int("problems", len(problems)))
	return problems, nil
}
