// Package translate localizes a content record. Providers translate plain
// text; ContentTranslator walks the record and decides what is sent.
package translate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/config"
)

// minTextLen skips fragments such as "(", "1." or "OK".
const minTextLen = 3

var skipParents = map[string]bool{"code": true, "pre": true, "script": true, "style": true}

var dutchTitleWords = regexp.MustCompile(`\b(Case|Geval|geval|Casus|casus|Kast|kast|behuizing)\b`)

// ContentTranslator translates the human-readable parts of a ContentRecord.
type ContentTranslator struct {
	Provider core.Translator
	Source   string
	Target   string
	MaxChunk int
	Logger   *slog.Logger

	limiter *rate.Limiter
}

// NewContentTranslator creates a ContentTranslator. delay is the minimum
// pause between provider calls.
func NewContentTranslator(p core.Translator, source, target string, maxChunk int, delay time.Duration, logger *slog.Logger) *ContentTranslator {
	if logger == nil {
		logger = slog.Default()
	}
	t := &ContentTranslator{Provider: p, Source: source, Target: target, MaxChunk: maxChunk, Logger: logger}
	if delay > 0 {
		t.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
	return t
}

// Text translates one string. Code spans are never sent to the provider and
// text longer than MaxChunk is translated in pieces.
func (t *ContentTranslator) Text(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	masked, blocks := protect(text)
	if onlyCode(masked) {
		return text, nil
	}

	chunks := Chunk(masked, t.MaxChunk)
	out := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		tr, err := t.Provider.Translate(ctx, c, t.Source, t.Target)
		if err != nil {
			return "", fmt.Errorf("%w: %v", core.ErrTranslation, err)
		}
		if tr == "" {
			tr = c
		}
		out = append(out, tr)
	}
	return restore(strings.Join(out, " "), blocks), nil
}

// TranslateRecord translates rec in place: title, description, headings,
// image alt text and the text of every content node outside code. It
// returns the number of strings translated. On error rec may be partially
// translated; callers pass a copy.
func (t *ContentTranslator) TranslateRecord(ctx context.Context, rec *core.ContentRecord) (int, error) {
	n := 0
	tr := func(s string) (string, error) {
		out, err := t.Text(ctx, s)
		if err == nil {
			n++
		}
		return out, err
	}

	title, err := tr(rec.Title)
	if err != nil {
		return n, fmt.Errorf("title: %w", err)
	}
	rec.Title = t.fixTitle(title)

	if desc := rec.Metadata[core.MetaDescription]; desc != "" {
		if rec.Metadata[core.MetaDescription], err = tr(desc); err != nil {
			return n, fmt.Errorf("description: %w", err)
		}
	}

	alts := map[string]string{}
	for i := range rec.Sections {
		s := &rec.Sections[i]
		if s.Heading != "" {
			if s.Heading, err = tr(s.Heading); err != nil {
				return n, fmt.Errorf("heading: %w", err)
			}
		}
		for _, el := range s.Elements {
			if err := t.walk(el, tr, alts); err != nil {
				return n, err
			}
		}
		t.Logger.DebugContext(ctx, "translated section", "index", i+1, "total", len(rec.Sections))
	}

	for i := range rec.Images {
		if alt, ok := alts[rec.Images[i].SourceURL]; ok {
			rec.Images[i].AltText = alt
		}
	}
	rec.Metadata[core.MetaLanguage] = t.Target
	rec.Metadata[core.MetaOriginalLanguage] = t.Source
	return n, nil
}

func (t *ContentTranslator) walk(n *html.Node, tr func(string) (string, error), alts map[string]string) error {
	switch n.Type {
	case html.ElementNode:
		if skipParents[n.Data] {
			return nil
		}
		if n.Data == "img" {
			return translateAlt(n, tr, alts)
		}
	case html.TextNode:
		text := strings.TrimSpace(n.Data)
		if len(text) < minTextLen {
			return nil
		}
		out, err := tr(text)
		if err != nil {
			return err
		}
		lead := n.Data[:len(n.Data)-len(strings.TrimLeftFunc(n.Data, unicode.IsSpace))]
		trail := n.Data[len(strings.TrimRightFunc(n.Data, unicode.IsSpace)):]
		n.Data = lead + out + trail
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := t.walk(c, tr, alts); err != nil {
			return err
		}
	}
	return nil
}

func translateAlt(img *html.Node, tr func(string) (string, error), alts map[string]string) error {
	var src string
	idx := -1
	for i, a := range img.Attr {
		switch a.Key {
		case "src":
			src = a.Val
		case "alt":
			idx = i
		}
	}
	if idx < 0 || len(strings.TrimSpace(img.Attr[idx].Val)) < minTextLen {
		return nil
	}
	out, err := tr(img.Attr[idx].Val)
	if err != nil {
		return err
	}
	img.Attr[idx].Val = out
	if src != "" {
		alts[src] = out
	}
	return nil
}

// fixTitle corrects words machine translation gets wrong in Dutch tutorial
// titles ("Case 01" is a project number, not a legal case or a cabinet).
func (t *ContentTranslator) fixTitle(title string) string {
	if t.Target != "nl" {
		return title
	}
	return dutchTitleWords.ReplaceAllStringFunc(title, func(w string) string {
		if unicode.IsUpper(rune(w[0])) {
			return "Project"
		}
		return "project"
	})
}

// NewProvider returns the translation provider named in cfg.
func NewProvider(cfg config.Translate) (core.Translator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "deepl":
		return NewDeepL(cfg.DeepLAPIKey, cfg.DeepLEndpoint, 0), nil
	case "gemini":
		return NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	default:
		return nil, fmt.Errorf("%w: unknown translation provider %q", core.ErrInvalidConfig, cfg.Provider)
	}
}
