package source

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/extract"
	"github.com/gaurav-prasanna/guidepipe/crawl"
)

// elecfreaksNoise strips the Docusaurus chrome around the article.
var elecfreaksNoise = []string{
	".navbar", ".sidebar", ".footer", ".breadcrumbs", ".toc", ".pagination-nav",
	".theme-doc-sidebar-container", ".theme-doc-footer", ".theme-doc-toc-mobile",
	"nav", "footer", "script", "style", "noscript",
	"[class*='breadcrumb']", "[class*='sidebar']", "[class*='pagination']",
}

var elecfreaksContainers = []string{
	".theme-doc-markdown.markdown",
	".theme-doc-markdown",
	"article .markdown",
	".markdown",
	"article",
	"main",
	".docMainContainer",
}

var titleSuffix = regexp.MustCompile(`\s+[|\-–]\s+.*$`)

// Elecfreaks handles the ELECFREAKS wiki.
type Elecfreaks struct {
	ext *extract.Extractor
}

// NewElecfreaks creates the ELECFREAKS adapter.
func NewElecfreaks() *Elecfreaks {
	return &Elecfreaks{ext: extract.MustNew(elecfreaksNoise, elecfreaksContainers)}
}

// Name identifies the adapter.
func (e *Elecfreaks) Name() string {
	return "elecfreaks"
}

// CanHandle accepts wiki.elecfreaks.com and elecfreaks.com/wiki pages.
func (e *Elecfreaks) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	switch {
	case host == "wiki.elecfreaks.com":
		return true
	case host == "elecfreaks.com" || host == "www.elecfreaks.com":
		return strings.HasPrefix(u.Path, "/wiki")
	}
	return false
}

// Extract parses a tutorial page.
func (e *Elecfreaks) Extract(raw, pageURL string) (*core.ContentRecord, error) {
	doc, err := extract.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}

	title := pageTitle(doc)
	description := metaDescription(doc)

	e.ext.Clean(doc)
	container := e.ext.Container(doc)
	if container == nil {
		return nil, fmt.Errorf("%w: no content container in %s", core.ErrExtraction, pageURL)
	}

	rec := core.NewContentRecord(title)
	rec.Images = collectImages(container, pageURL)
	rec.Sections = splitSections(container)
	if len(rec.Sections) == 0 {
		return nil, fmt.Errorf("%w: empty content in %s", core.ErrExtraction, pageURL)
	}
	rec.Metadata[core.MetaURL] = pageURL
	rec.Metadata[core.MetaSource] = e.Name()
	if description != "" {
		rec.Metadata[core.MetaDescription] = description
	}
	return rec, nil
}

// ExtractWorkItems lists the case pages linked from an index page.
func (e *Elecfreaks) ExtractWorkItems(raw, indexURL string) ([]core.WorkItem, error) {
	doc, err := extract.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, fmt.Errorf("%w: index url: %v", core.ErrExtraction, err)
	}

	scope := doc.Selection
	if c := e.ext.Container(doc); c != nil {
		scope = c
	}

	q := crawl.NewQueue()
	q.Add(indexURL)
	var items []core.WorkItem
	for _, l := range crawl.Links(scope, indexURL) {
		if !strings.Contains(strings.ToLower(l.Href), "case") || l.Text == "" {
			continue
		}
		if !crawl.IsSameDomain(l.Href, base.Host) || crawl.IsStaticAsset(l.Href) {
			continue
		}
		if !q.Add(l.Href) {
			continue
		}
		items = append(items, core.WorkItem{URL: l.Href, Title: l.Text})
	}
	return items, nil
}

// pageTitle prefers the first h1, then <title> without the site suffix.
func pageTitle(doc *goquery.Document) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return strings.Join(strings.Fields(h1), " ")
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return strings.TrimSpace(titleSuffix.ReplaceAllString(t, ""))
	}
	return "Untitled"
}
