// Package normalize converts content HTML into Markdown, the canonical
// intermediate format for all downstream renderers. Input is sanitized
// before conversion so scraped markup cannot smuggle scripts or event
// handlers into the guide.
package normalize

import (
	"bytes"
	"fmt"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct {
	conv   *converter.Converter
	policy *bluemonday.Policy
}

// New creates a MarkdownNormalizer.
func New() *MarkdownNormalizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("title").OnElements("img", "a")
	return &MarkdownNormalizer{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: policy,
	}
}

// Normalize converts an HTML fragment into Markdown.
func (n *MarkdownNormalizer) Normalize(fragment string) (string, error) {
	clean := n.policy.Sanitize(fragment)
	markdown, err := n.conv.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return markdown, nil
}

// Nodes renders the given nodes back to HTML and normalizes the result.
func (n *MarkdownNormalizer) Nodes(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, node := range nodes {
		if err := html.Render(&buf, node); err != nil {
			return "", fmt.Errorf("rendering node: %w", err)
		}
		buf.WriteByte('\n')
	}
	return n.Normalize(buf.String())
}
