// Package output handles file naming and writing for guidepipe outputs.
// Each guide is written as <dir>/<name><ext> with its downloaded and
// generated assets under <dir>/<name>/.
package output

import (
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const maxTitleSlug = 60

var (
	slugSeparators = regexp.MustCompile(`[_\s]+`)
	slugInvalid    = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes     = regexp.MustCompile(`-{2,}`)
)

// Writer writes rendered output to disk.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Writer{OutputDir: outputDir}, nil
}

// Write stores data as <name><ext> and returns the full path.
func (w *Writer) Write(name string, data []byte, ext string) (string, error) {
	p := filepath.Join(w.OutputDir, name+ext)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("writing file %s: %w", p, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return "", fmt.Errorf("writing file %s: %w", p, err)
	}
	return p, nil
}

// AssetDir returns <OutputDir>/<name>/<kind>. Stages writing assets
// create it on first use.
func (w *Writer) AssetDir(name, kind string) string {
	return filepath.Join(w.OutputDir, name, kind)
}

// AssetRef is the document-relative prefix of the assets of one kind.
func AssetRef(name, kind string) string {
	return path.Join(name, kind)
}

// Name derives the output base name of a guide. The last URL path segment
// is used when it names a case; otherwise the slugged title, capped in length.
func Name(rawURL, title string) string {
	if u, err := url.Parse(rawURL); err == nil {
		last := path.Base(strings.TrimSuffix(u.Path, "/"))
		if strings.Contains(strings.ToLower(last), "case") {
			if s := Slugify(last); s != "" {
				return s
			}
		}
	}
	s := Slugify(title)
	if len(s) > maxTitleSlug {
		s = strings.TrimRight(s[:maxTitleSlug], "-")
	}
	if s == "" {
		return "guide"
	}
	return s
}

// Slugify lowercases s, turns underscores and whitespace into dashes and
// drops everything outside [a-z0-9-].
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugSeparators.ReplaceAllString(s, "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
