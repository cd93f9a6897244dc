// Package extract isolates the main content of a page:
//  1. Removing navigation and other noise elements
//  2. Finding the best content container from a priority list of selectors
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// DefaultNoise lists elements that never belong to tutorial content.
var DefaultNoise = []string{
	"script", "style", "noscript",
	"nav", "footer",
	"iframe", "video", "audio",
	"form", "button", "input", "select", "textarea",
	".sidebar", ".menu", ".navigation", ".ads", ".advertisement",
}

// DefaultContainers are tried in order when a site gives no better hint.
var DefaultContainers = []string{"main", "article", "body"}

// Extractor removes noise and locates the content container.
type Extractor struct {
	noise      []cascadia.Selector
	containers []cascadia.Selector
}

// New compiles the selector lists. It fails on an invalid selector.
func New(noise, containers []string) (*Extractor, error) {
	e := &Extractor{}
	for _, s := range noise {
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("noise selector %q: %w", s, err)
		}
		e.noise = append(e.noise, sel)
	}
	for _, s := range containers {
		sel, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("container selector %q: %w", s, err)
		}
		e.containers = append(e.containers, sel)
	}
	return e, nil
}

// MustNew is New for package-level selector tables.
func MustNew(noise, containers []string) *Extractor {
	e, err := New(noise, containers)
	if err != nil {
		panic(err)
	}
	return e
}

// Parse reads raw HTML into a document.
func Parse(raw string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return doc, nil
}

// Clean removes every noise element from doc.
func (e *Extractor) Clean(doc *goquery.Document) {
	for _, sel := range e.noise {
		doc.FindMatcher(sel).Remove()
	}
}

// Container returns the first non-empty match of the container selectors,
// or nil when none matches.
func (e *Extractor) Container(doc *goquery.Document) *goquery.Selection {
	for _, sel := range e.containers {
		s := doc.FindMatcher(sel)
		if s.Length() > 0 && strings.TrimSpace(s.First().Text()) != "" {
			return s.First()
		}
	}
	return nil
}
