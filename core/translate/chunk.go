package translate

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultMaxChunk is the largest text a provider receives in one call.
const DefaultMaxChunk = 4500

var (
	sentenceEnd = regexp.MustCompile(`[.!?]\s+`)
	codeSpans   = regexp.MustCompile("```[\\s\\S]*?```|`[^`]+`")
	placeholder = regexp.MustCompile(`___CODE_BLOCK_\d+___`)
)

// Chunk splits text into pieces of at most max bytes, preferring sentence
// boundaries and falling back to word boundaries for long sentences.
// A single word longer than max is kept whole.
func Chunk(text string, max int) []string {
	if max <= 0 {
		max = DefaultMaxChunk
	}
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	add := func(piece string) {
		if cur.Len() > 0 && cur.Len()+1+len(piece) > max {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(piece)
	}

	for _, sentence := range sentences(text) {
		if len(sentence) <= max {
			add(sentence)
			continue
		}
		for _, word := range strings.Fields(sentence) {
			add(word)
		}
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		out = append(out, text[last:loc[0]+1])
		last = loc[1]
	}
	if rest := text[last:]; strings.TrimSpace(rest) != "" {
		out = append(out, rest)
	}
	return out
}

// protect replaces fenced blocks and inline code spans with placeholders.
func protect(text string) (string, []string) {
	var blocks []string
	out := codeSpans.ReplaceAllStringFunc(text, func(code string) string {
		p := fmt.Sprintf("___CODE_BLOCK_%d___", len(blocks))
		blocks = append(blocks, code)
		return p
	})
	return out, blocks
}

// restore puts protected code back.
func restore(text string, blocks []string) string {
	for i, code := range blocks {
		text = strings.ReplaceAll(text, fmt.Sprintf("___CODE_BLOCK_%d___", i), code)
	}
	return text
}

// onlyCode reports whether nothing but placeholders and whitespace remain.
func onlyCode(text string) bool {
	return strings.TrimSpace(placeholder.ReplaceAllString(text, "")) == ""
}
