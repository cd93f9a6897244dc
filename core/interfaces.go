// Package core defines the data model and the collaborator interfaces for guidepipe.
// Every pipeline stage and adapter speaks in terms of these types.
package core

import "context"

// FetchResult holds the raw HTML and response metadata from a fetch.
type FetchResult struct {
	URL        string
	StatusCode int
	HTML       string
}

// PageMetadata is the document-level metadata handed to renderers.
type PageMetadata struct {
	URL         string `json:"url"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language"`
	GeneratedAt string `json:"generated_at"` // ISO8601
}

// Fetcher retrieves raw HTML from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// SourceAdapter turns one site's raw HTML into a ContentRecord.
// Adapters are consulted in registration order; the first whose CanHandle
// returns true wins.
type SourceAdapter interface {
	Name() string
	CanHandle(url string) bool
	Extract(raw string, url string) (*ContentRecord, error)
	// ExtractWorkItems lists the tutorials linked from an index page.
	ExtractWorkItems(raw string, url string) ([]WorkItem, error)
}

// Capturer renders an interactive code resource in a given UI language
// and stores a screenshot at outPath.
type Capturer interface {
	Capture(ctx context.Context, resourceURL string, lang string, outPath string) error
}

// Downloader stores the asset behind url at dest.
type Downloader interface {
	Download(ctx context.Context, url string, dest string) error
}

// Enhancer upscales a single image file.
type Enhancer interface {
	// Available reports whether the enhancer can run at all. An unavailable
	// enhancer turns the enhance stage into a no-op.
	Available() bool
	Enhance(ctx context.Context, in string, out string) error
}

// Translator translates a piece of plain text.
type Translator interface {
	Translate(ctx context.Context, text string, source string, target string) (string, error)
}

// Renderer converts Markdown (and metadata) into a final output format.
type Renderer interface {
	Render(markdown string, meta PageMetadata) ([]byte, error)
	// Extension returns the file extension for this renderer (e.g. ".md", ".pdf").
	Extension() string
}
