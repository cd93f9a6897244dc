// Package catalog builds a single overview document from a directory of
// generated guides: a numbered table of contents followed by one entry per
// guide with its title, introduction and main image.
package catalog

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/gaurav-prasanna/guidepipe/core/output"
)

// DefaultFile is the catalog's own file name; it is never listed.
const DefaultFile = "catalog.md"

// DefaultTitle heads the catalog document.
const DefaultTitle = "Project Catalogus"

const maxIntro = 500

var (
	titleLine   = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	introHead   = regexp.MustCompile(`(?im)^##\s+(?:introductie|introduction|invoering)\s*$`)
	anyHeading  = regexp.MustCompile(`(?m)^#{1,6}\s`)
	imageMarkup = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)[^)]*\)`)
	linkMarkup  = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
)

// Summary is what the catalog shows for one guide.
type Summary struct {
	Title        string
	Introduction string
	MainImage    string
	// Name is the guide's file name without extension.
	Name string
	Slug string
}

// Parse extracts a Summary from guide text. It fails when the guide has no
// H1 title.
func Parse(name, content string) (*Summary, error) {
	m := titleLine.FindStringSubmatch(content)
	if m == nil {
		return nil, fmt.Errorf("%s: no title", name)
	}
	s := &Summary{Title: strings.TrimSpace(m[1]), Name: name}
	s.Slug = output.Slugify(s.Title)

	intro := introSection(content)
	if intro == "" {
		intro = quote(content)
	}
	if img := imageMarkup.FindStringSubmatch(intro); img != nil {
		s.MainImage = img[2]
	}
	s.Introduction = plain(intro)
	return s, nil
}

// introSection returns the body of the introduction heading, if any.
func introSection(content string) string {
	loc := introHead.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	body := content[loc[1]:]
	if next := anyHeading.FindStringIndex(body); next != nil {
		body = body[:next[0]]
	}
	return body
}

// quote returns the blockquote lines used as a guide description.
func quote(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "> ") {
			lines = append(lines, strings.TrimPrefix(line, "> "))
		} else if len(lines) > 0 {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// plain joins the text lines of a Markdown fragment, dropping images and
// markup, and caps the result.
func plain(md string) string {
	var parts []string
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "![") || strings.HasPrefix(line, "<img") {
			continue
		}
		line = imageMarkup.ReplaceAllString(line, "")
		line = linkMarkup.ReplaceAllString(line, "$1")
		line = strings.TrimSpace(htmlTag.ReplaceAllString(line, ""))
		if line != "" {
			parts = append(parts, line)
		}
	}
	text := strings.Join(parts, " ")
	if len(text) > maxIntro {
		text = strings.TrimSpace(truncate(text, maxIntro-3)) + "..."
	}
	return text
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Load parses every guide in dir. Files that fail to parse are reported in
// skipped rather than aborting the catalog.
func Load(dir string) (summaries []Summary, skipped []string, err error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, nil, err
	}
	for _, f := range files {
		base := filepath.Base(f)
		if base == DefaultFile || strings.HasPrefix(base, ".") {
			continue
		}
		data, err := os.ReadFile(f)
		if err != nil {
			skipped = append(skipped, base)
			continue
		}
		s, err := Parse(strings.TrimSuffix(base, ".md"), string(data))
		if err != nil {
			skipped = append(skipped, base)
			continue
		}
		summaries = append(summaries, *s)
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return strings.ToLower(summaries[i].Title) < strings.ToLower(summaries[j].Title)
	})
	return summaries, skipped, nil
}

// Build renders the catalog document. Image paths are made relative to the
// catalog, which lives next to the guides.
func Build(title string, summaries []Summary) string {
	if title == "" {
		title = DefaultTitle
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n## Inhoudsopgave\n\n", title)
	for i, s := range summaries {
		fmt.Fprintf(&b, "%d. [%s](#%s)\n", i+1, s.Title, s.Slug)
	}
	for _, s := range summaries {
		b.WriteString("\n---\n\n")
		fmt.Fprintf(&b, "## %s {#%s}\n", s.Title, s.Slug)
		if s.MainImage != "" {
			img := s.MainImage
			if !strings.HasPrefix(img, s.Name+"/") && !strings.Contains(img, "://") {
				img = path.Join(s.Name, img)
			}
			fmt.Fprintf(&b, "\n![%s](%s)\n", s.Title, img)
		}
		if s.Introduction != "" {
			fmt.Fprintf(&b, "\n%s\n", s.Introduction)
		}
	}
	return b.String()
}

// Generate writes the catalog for the guides in dir to out (default
// dir/catalog.md) and returns the path and the number of guides listed.
func Generate(dir, out, title string) (string, int, error) {
	summaries, _, err := Load(dir)
	if err != nil {
		return "", 0, err
	}
	if len(summaries) == 0 {
		return "", 0, fmt.Errorf("no guides found in %s", dir)
	}
	if out == "" {
		out = filepath.Join(dir, DefaultFile)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", 0, err
	}
	if err := os.WriteFile(out, []byte(Build(title, summaries)), 0644); err != nil {
		return "", 0, fmt.Errorf("writing catalog: %w", err)
	}
	return out, len(summaries), nil
}
