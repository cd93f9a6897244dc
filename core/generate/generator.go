// Package generate assembles the printable guide from a content record.
package generate

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// Normalizer turns content nodes into Markdown.
type Normalizer interface {
	Nodes(nodes []*html.Node) (string, error)
}

var (
	extraNewlines  = regexp.MustCompile(`\n{3,}`)
	invisibleChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F-\x{9F}\x{200B}-\x{200D}\x{FEFF}\x{2060}\x{180E}\x{AD}]`)
	oddSpaces      = regexp.MustCompile(`[\x{2000}-\x{200A}\x{202F}\x{205F}\x{3000}]`)
	lineSeparators = regexp.MustCompile(`[\x{2028}\x{2029}]`)
	wordBeforeLink = regexp.MustCompile(`(\w)\[([^\]]+)\]\(`)
	wordAfterLink  = regexp.MustCompile(`\]\(([^)]+)\)(\w)`)
	h2Line         = regexp.MustCompile(`(?m)^## (.+)$`)
	h1Line         = regexp.MustCompile(`(?m)^# .+$`)
)

// Generator renders a ContentRecord as a Markdown guide.
type Generator struct {
	Normalizer Normalizer
	// Language selects the table of contents heading.
	Language string
}

// New creates a Generator.
func New(n Normalizer, language string) *Generator {
	return &Generator{Normalizer: n, Language: language}
}

// Generate builds the guide. Images with a local copy are referenced by
// their relative path, preferring the enhanced variant.
func (g *Generator) Generate(rec *core.ContentRecord) (string, error) {
	if rec == nil || strings.TrimSpace(rec.Title) == "" {
		return "", fmt.Errorf("%w: record has no title", core.ErrGeneration)
	}
	images := ImageMap(rec)

	var parts []string
	parts = append(parts, "# "+rec.Title+"\n")
	if desc := rec.Metadata[core.MetaDescription]; desc != "" {
		parts = append(parts, "> "+desc+"\n")
	}

	for _, s := range rec.Sections {
		if s.Heading != "" && s.Heading == rec.Title {
			continue
		}
		if s.Heading != "" && s.Level > 0 {
			parts = append(parts, "\n"+strings.Repeat("#", s.Level)+" "+s.Heading+"\n")
		}
		if len(s.Elements) == 0 {
			continue
		}
		nodes := make([]*html.Node, len(s.Elements))
		for i, n := range s.Elements {
			nodes[i] = core.CloneNode(n)
			rewriteImages(nodes[i], images)
		}
		md, err := g.Normalizer.Nodes(nodes)
		if err != nil {
			return "", fmt.Errorf("%w: section %q: %v", core.ErrGeneration, s.Heading, err)
		}
		if md = strings.TrimSpace(md); md != "" {
			parts = append(parts, md+"\n")
		}
	}

	guide := strings.Join(parts, "\n")
	guide = Clean(guide)
	guide = g.tableOfContents(guide)
	return strings.TrimSpace(guide) + "\n", nil
}

// ImageMap maps source URLs to the relative path that should replace them.
func ImageMap(rec *core.ContentRecord) map[string]string {
	m := make(map[string]string)
	for _, img := range rec.Images {
		p := img.EnhancedPath
		if p == "" {
			p = img.LocalPath
		}
		if p != "" {
			m[img.SourceURL] = strings.ReplaceAll(p, "\\", "/")
		}
	}
	return m
}

func rewriteImages(n *html.Node, images map[string]string) {
	if n.Type == html.ElementNode && n.Data == "img" {
		for i, a := range n.Attr {
			if a.Key == "src" {
				if local, ok := images[a.Val]; ok {
					n.Attr[i].Val = local
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteImages(c, images)
	}
}

// Clean strips invisible characters, normalises exotic whitespace,
// separates links from adjacent words and collapses blank lines.
func Clean(md string) string {
	md = invisibleChars.ReplaceAllString(md, "")
	md = oddSpaces.ReplaceAllString(md, " ")
	md = lineSeparators.ReplaceAllString(md, "\n")
	md = wordBeforeLink.ReplaceAllString(md, "$1 [$2](")
	md = wordAfterLink.ReplaceAllString(md, "]($1) $2")
	return extraNewlines.ReplaceAllString(md, "\n\n")
}

func (g *Generator) tableOfContents(md string) string {
	headers := h2Line.FindAllStringSubmatch(md, -1)
	if len(headers) == 0 {
		return md
	}
	loc := h1Line.FindStringIndex(md)
	if loc == nil {
		return md
	}

	title := "Contents"
	if g.Language == "nl" {
		title = "Inhoudsopgave"
	}
	var b strings.Builder
	b.WriteString("\n\n## " + title + "\n\n")
	for _, h := range headers {
		text := strings.TrimSpace(h[1])
		fmt.Fprintf(&b, "- [%s](#%s)\n", text, Anchor(text))
	}
	return md[:loc[1]] + b.String() + md[loc[1]:]
}

// Anchor returns the heading anchor used in generated links.
func Anchor(heading string) string {
	a := strings.ToLower(strings.TrimSpace(heading))
	a = strings.ReplaceAll(a, " ", "-")
	return strings.NewReplacer("/", "", "(", "", ")", "", ":", "", ".", "", ",", "").Replace(a)
}
