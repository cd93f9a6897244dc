// Package match pairs embedded code screenshots with the interactive code
// resources they depict.
//
// Two heuristics exist. Adjacency looks for an image in the blocks right
// before each resource link. Keyword scanning classifies images by their
// alt text, title, file name or section heading and pairs them with links
// by order. Adjacency wins whenever it finds anything; the two result sets
// are never merged.
package match

import (
	"log/slog"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// DefaultLinkPattern recognizes MakeCode share links.
const DefaultLinkPattern = `https?://makecode\.microbit\.org/_[A-Za-z0-9]+`

// DefaultLookback is how many preceding blocks adjacency inspects.
const DefaultLookback = 3

// Heuristic names which strategy produced a Result.
type Heuristic string

const (
	None      Heuristic = "none"
	Adjacency Heuristic = "adjacency"
	Keyword   Heuristic = "keyword"
)

// DefaultImageKeywords mark an image as a code screenshot.
var DefaultImageKeywords = []string{
	"code", "program", "makecode", "blocks",
	"programma", "blokken", "programmeren", "codeblok",
}

// DefaultHeadingKeywords mark every image in a section as a code screenshot.
var DefaultHeadingKeywords = []string{
	"code", "program", "programming", "programmering",
	"programmeren", "software", "reference",
}

// Result maps image source URLs to resource links.
type Result struct {
	Pairs     map[string]string
	Heuristic Heuristic
	// Unmatched lists links no image was paired with.
	Unmatched []string
}

// Matcher holds the pattern and keyword sets.
type Matcher struct {
	Pattern         *regexp.Regexp
	Lookback        int
	ImageKeywords   []string
	HeadingKeywords []string
	Logger          *slog.Logger
}

// New creates a Matcher. An empty pattern or a non-positive lookback selects
// the defaults.
func New(pattern string, lookback int, logger *slog.Logger) (*Matcher, error) {
	if pattern == "" {
		pattern = DefaultLinkPattern
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		Pattern:         re,
		Lookback:        lookback,
		ImageKeywords:   DefaultImageKeywords,
		HeadingKeywords: DefaultHeadingKeywords,
		Logger:          logger,
	}, nil
}

// RecognizedLinks returns the unique resource links in the record, in
// document order.
func (m *Matcher) RecognizedLinks(rec *core.ContentRecord) []string {
	seen := map[string]bool{}
	var links []string
	for _, s := range rec.Sections {
		for _, el := range s.Elements {
			for _, l := range m.blockLinks(el) {
				if !seen[l] {
					seen[l] = true
					links = append(links, l)
				}
			}
		}
	}
	return links
}

// Match runs adjacency first and falls back to keywords when adjacency
// finds no pair.
func (m *Matcher) Match(rec *core.ContentRecord) Result {
	links := m.RecognizedLinks(rec)
	if len(links) == 0 {
		return Result{Pairs: map[string]string{}, Heuristic: None}
	}

	if pairs := m.adjacency(rec); len(pairs) > 0 {
		return Result{Pairs: pairs, Heuristic: Adjacency, Unmatched: unmatched(links, pairs)}
	}

	pairs := m.keyword(rec, links)
	res := Result{Pairs: pairs, Heuristic: Keyword, Unmatched: unmatched(links, pairs)}
	if len(pairs) == 0 {
		res.Heuristic = None
	}
	if len(res.Unmatched) > 0 {
		m.Logger.Warn("code links without a matching image",
			"links", len(links), "images", len(pairs), "unmatched", len(res.Unmatched))
	}
	return res
}

// adjacency pairs each link with the nearest image within Lookback blocks
// before the block holding the link. Blocks never cross section boundaries.
func (m *Matcher) adjacency(rec *core.ContentRecord) map[string]string {
	pairs := map[string]string{}
	for _, s := range rec.Sections {
		for i, el := range s.Elements {
			links := m.blockLinks(el)
			if len(links) == 0 {
				continue
			}
			src := m.previousImage(s.Elements, i)
			if src == "" {
				continue
			}
			if _, taken := pairs[src]; !taken {
				pairs[src] = links[0]
			}
		}
	}
	return pairs
}

func (m *Matcher) previousImage(blocks []*html.Node, i int) string {
	seen := 0
	for j := i - 1; j >= 0 && seen < m.Lookback; j-- {
		if blocks[j].Type != html.ElementNode {
			continue
		}
		seen++
		if src, ok := goquery.NewDocumentFromNode(blocks[j]).Find("img[src]").First().Attr("src"); ok && src != "" {
			return src
		}
		if isImage(blocks[j]) {
			if src := attr(blocks[j], "src"); src != "" {
				return src
			}
		}
	}
	return ""
}

// keyword pairs the Nth code image with the Nth link.
func (m *Matcher) keyword(rec *core.ContentRecord, links []string) map[string]string {
	var codeImages []string
	seen := map[string]bool{}
	add := func(src string) {
		if src != "" && !seen[src] {
			seen[src] = true
			codeImages = append(codeImages, src)
		}
	}

	for _, s := range rec.Sections {
		codeSection := containsAny(s.Heading, m.HeadingKeywords)
		for _, el := range s.Elements {
			forEachImage(el, func(n *html.Node) {
				if codeSection || m.isCodeImage(n) {
					add(attr(n, "src"))
				}
			})
		}
	}

	pairs := map[string]string{}
	for i, src := range codeImages {
		if i >= len(links) {
			break
		}
		pairs[src] = links[i]
	}
	return pairs
}

func (m *Matcher) isCodeImage(n *html.Node) bool {
	if containsAny(attr(n, "alt"), m.ImageKeywords) || containsAny(attr(n, "title"), m.ImageKeywords) {
		return true
	}
	return containsAny(path.Base(attr(n, "src")), m.ImageKeywords)
}

// blockLinks returns recognized links inside the block, in order. Both
// anchors and bare text URLs count.
func (m *Matcher) blockLinks(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if n.Data == "a" {
				if href := m.Pattern.FindString(attr(n, "href")); href != "" {
					out = append(out, href)
					return
				}
			}
		case html.TextNode:
			out = append(out, m.Pattern.FindAllString(n.Data, -1)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func unmatched(links []string, pairs map[string]string) []string {
	used := map[string]bool{}
	for _, l := range pairs {
		used[l] = true
	}
	var out []string
	for _, l := range links {
		if !used[l] {
			out = append(out, l)
		}
	}
	return out
}

func forEachImage(n *html.Node, fn func(*html.Node)) {
	if isImage(n) {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		forEachImage(c, fn)
	}
}

func isImage(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "img"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	if s == "" {
		return false
	}
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
