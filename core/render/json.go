package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// Guide is the JSON form of a generated guide.
type Guide struct {
	Metadata core.PageMetadata `json:"metadata"`
	Markdown string            `json:"markdown"`
	Sections []GuideSection    `json:"sections"`
	Links    []GuideLink       `json:"links"`
	Images   []GuideImage      `json:"images"`
	QRCodes  []string          `json:"qr_codes"`
}

// GuideSection is a heading with the text up to the next heading.
type GuideSection struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Text    string `json:"text"`
}

// GuideLink is a hyperlink in the guide.
type GuideLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// GuideImage is an image reference in the guide.
type GuideImage struct {
	Alt string `json:"alt"`
	Src string `json:"src"`
}

// JSONRenderer produces a structured JSON document from a guide.
type JSONRenderer struct{}

// NewJSONRenderer creates a JSONRenderer.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

var (
	headingRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	linkRegex    = regexp.MustCompile(`(!?)\[([^\]]*)\]\(([^)\s]+)\)`)
)

// Render converts Markdown and metadata into a Guide document.
func (r *JSONRenderer) Render(markdown string, meta core.PageMetadata) ([]byte, error) {
	g := Guide{
		Metadata: meta,
		Markdown: markdown,
		Sections: sections(markdown),
		Links:    []GuideLink{},
		Images:   []GuideImage{},
		QRCodes:  []string{},
	}
	for _, m := range linkRegex.FindAllStringSubmatch(markdown, -1) {
		switch {
		case m[1] == "":
			g.Links = append(g.Links, GuideLink{Text: m[2], Href: m[3]})
		case m[2] == "QR":
			g.QRCodes = append(g.QRCodes, m[3])
		default:
			g.Images = append(g.Images, GuideImage{Alt: m[2], Src: m[3]})
		}
	}

	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return data, nil
}

// Extension returns the file extension for JSON output.
func (r *JSONRenderer) Extension() string {
	return ".json"
}

func sections(md string) []GuideSection {
	out := []GuideSection{}
	var cur *GuideSection
	var body []string
	flush := func() {
		if cur != nil {
			cur.Text = strings.TrimSpace(strings.Join(body, "\n"))
			out = append(out, *cur)
		}
	}
	inCode := false
	for _, line := range strings.Split(md, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inCode = !inCode
		}
		if m := headingRegex.FindStringSubmatch(line); m != nil && !inCode {
			flush()
			cur = &GuideSection{Heading: strings.TrimSpace(m[2]), Level: len(m[1])}
			body = nil
			continue
		}
		if cur != nil {
			body = append(body, line)
		}
	}
	flush()
	return out
}
