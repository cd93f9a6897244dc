package core

import (
	"maps"

	"golang.org/x/net/html"
)

// Metadata keys written by adapters and stages.
const (
	MetaURL              = "url"
	MetaSource           = "source"
	MetaDescription      = "description"
	MetaLanguage         = "language"
	MetaOriginalLanguage = "original_language"
	MetaCodeReplacements = "code_replacements"
	MetaCodeLinksFound   = "code_links_found"
)

// WorkItem is one tutorial to process.
type WorkItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Section is a heading-delimited slice of the content. The preamble before
// the first heading has an empty Heading and Level 0.
type Section struct {
	Heading  string
	Level    int
	Elements []*html.Node
}

// ImageRecord tracks one image through the pipeline. SourceURL is its identity.
// LocalPath and EnhancedPath are relative to the output directory and use
// forward slashes.
type ImageRecord struct {
	SourceURL                    string
	AltText                      string
	TitleText                    string
	LocalPath                    string
	EnhancedPath                 string
	LinkedResourceURL            string
	ReplacedWithLocalizedVariant bool
}

// ContentRecord is the unit of work flowing through the pipeline.
type ContentRecord struct {
	Title    string
	Sections []Section
	Images   []ImageRecord
	Metadata map[string]string
}

// NewContentRecord returns an empty record with initialised metadata.
func NewContentRecord(title string) *ContentRecord {
	return &ContentRecord{Title: title, Metadata: map[string]string{}}
}

// Clone returns a deep copy. Content nodes are copied so that a stage may
// mutate its record without touching the one it was given.
func (r *ContentRecord) Clone() *ContentRecord {
	if r == nil {
		return nil
	}
	out := &ContentRecord{
		Title:    r.Title,
		Images:   append([]ImageRecord(nil), r.Images...),
		Metadata: maps.Clone(r.Metadata),
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	out.Sections = make([]Section, len(r.Sections))
	for i, s := range r.Sections {
		elems := make([]*html.Node, len(s.Elements))
		for j, n := range s.Elements {
			elems[j] = CloneNode(n)
		}
		out.Sections[i] = Section{Heading: s.Heading, Level: s.Level, Elements: elems}
	}
	return out
}

// Image returns a pointer to the image with the given source URL, or nil.
func (r *ContentRecord) Image(sourceURL string) *ImageRecord {
	for i := range r.Images {
		if r.Images[i].SourceURL == sourceURL {
			return &r.Images[i]
		}
	}
	return nil
}

// HasLocalImages reports whether any image has been stored locally.
func (r *ContentRecord) HasLocalImages() bool {
	for _, img := range r.Images {
		if img.LocalPath != "" {
			return true
		}
	}
	return false
}

// CloneNode deep-copies n and its descendants. The copy is detached.
func CloneNode(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(CloneNode(ch))
	}
	return c
}
