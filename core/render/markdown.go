// Package render turns a generated Markdown guide into its output format:
// Markdown, PDF or a structured JSON document.
package render

import (
	"fmt"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// MarkdownRenderer writes Markdown as-is.
type MarkdownRenderer struct{}

// NewMarkdownRenderer creates a MarkdownRenderer.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// Render returns the Markdown as bytes (passthrough).
func (r *MarkdownRenderer) Render(markdown string, meta core.PageMetadata) ([]byte, error) {
	return []byte(markdown), nil
}

// Extension returns the file extension for Markdown output.
func (r *MarkdownRenderer) Extension() string {
	return ".md"
}

// ForFormat returns the renderer for an output format name. baseDir resolves
// relative image paths for formats that embed images.
func ForFormat(format, baseDir, pageSize, orientation string) (core.Renderer, error) {
	switch format {
	case "", "markdown", "md":
		return NewMarkdownRenderer(), nil
	case "pdf":
		return NewPDFRenderer(baseDir, pageSize, orientation), nil
	case "json":
		return NewJSONRenderer(), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", core.ErrInvalidConfig, format)
	}
}
