package source

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/extract"
)

const maxDescription = 200

// Readability is the catch-all adapter for arbitrary article pages. It
// must be registered last.
type Readability struct {
	Base
	ext *extract.Extractor
}

// NewReadability creates the generic adapter.
func NewReadability() *Readability {
	return &Readability{ext: extract.MustNew(extract.DefaultNoise, extract.DefaultContainers)}
}

// Name identifies the adapter.
func (r *Readability) Name() string {
	return "generic"
}

// CanHandle accepts any http or https URL.
func (r *Readability) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Extract uses readability for the title and summary and the generic
// container rules for the body.
func (r *Readability) Extract(raw, pageURL string) (*core.ContentRecord, error) {
	var title, text string
	if article, err := readability.FromReader(strings.NewReader(raw), nil); err == nil {
		title = strings.TrimSpace(article.Title)
		text = strings.TrimSpace(article.TextContent)
	}

	doc, err := extract.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}
	if title == "" {
		title = pageTitle(doc)
	}
	description := metaDescription(doc)

	r.ext.Clean(doc)
	container := r.ext.Container(doc)
	if container == nil {
		return nil, fmt.Errorf("%w: no content container in %s", core.ErrExtraction, pageURL)
	}
	if description == "" {
		if text == "" {
			text = container.Text()
		}
		description = truncateWords(text, maxDescription)
	}

	rec := core.NewContentRecord(title)
	rec.Images = collectImages(container, pageURL)
	rec.Sections = splitSections(container)
	if len(rec.Sections) == 0 {
		return nil, fmt.Errorf("%w: empty content in %s", core.ErrExtraction, pageURL)
	}
	rec.Metadata[core.MetaURL] = pageURL
	rec.Metadata[core.MetaSource] = r.Name()
	if description != "" {
		rec.Metadata[core.MetaDescription] = description
	}
	return rec, nil
}

func truncateWords(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	cut := strings.LastIndex(s[:max], " ")
	if cut <= 0 {
		cut = max
	}
	return s[:cut] + "…"
}
