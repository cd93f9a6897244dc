package qr

import (
	"regexp"
	"sort"
	"strings"
)

// linkRe matches [text](url). The text may itself be image markup, so a
// linked image counts as one link to its outer target.
var linkRe = regexp.MustCompile(`\[((?:!\[[^\]]*\]\([^)]*\))|[^\]]+)\]\(([^)]+)\)`)

// Generator produces artifacts for URLs. *Cache implements it.
type Generator interface {
	Generate(rawURL string) (*Artifact, error)
}

type linkMatch struct {
	end int
	url string
}

// Reference is the markup inserted after a link for artifact a.
func Reference(a *Artifact) string {
	return " ![QR](" + a.RelativePath + ")"
}

// Inject inserts a QR image reference immediately after every hyperlink in
// text whose target is a valid URL. Image markup is not treated as a link.
// It returns the new text and the artifacts injected, one per reference.
func Inject(text string, gen Generator) (string, []*Artifact, error) {
	var matches []linkMatch
	for _, loc := range linkRe.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > 0 && text[loc[0]-1] == '!' {
			continue
		}
		matches = append(matches, linkMatch{end: loc[1], url: strings.TrimSpace(text[loc[4]:loc[5]])})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].end < matches[j].end })

	out := text
	offset := 0
	var injected []*Artifact
	for _, m := range matches {
		a, err := gen.Generate(m.url)
		if err != nil {
			return text, nil, err
		}
		if a == nil {
			continue
		}
		// m.end indexes the original text; offset is how far out has grown.
		ref := Reference(a)
		pos := m.end + offset
		out = out[:pos] + ref + out[pos:]
		offset += len(ref)
		injected = append(injected, a)
	}
	return out, injected, nil
}
