package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/config"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// upper "translates" by upper-casing and records what it was sent.
type upper struct {
	sent []string
	fail string
}

func (u *upper) Translate(_ context.Context, text, _, _ string) (string, error) {
	u.sent = append(u.sent, text)
	if u.fail != "" && strings.Contains(text, u.fail) {
		return "", errors.New("quota exceeded")
	}
	return strings.ToUpper(text), nil
}

func TestChunk(t *testing.T) {
	assert.Equal(t, []string{"short"}, Chunk("short", 100))

	text := "One two three. Four five six! Seven eight nine?"
	chunks := Chunk(text, 20)
	assert.Equal(t, []string{"One two three.", "Four five six!", "Seven eight nine?"}, chunks)

	long := strings.Repeat("word ", 50)
	for _, c := range Chunk(long, 32) {
		assert.LessOrEqual(t, len(c), 32)
	}
	assert.Equal(t, strings.Fields(long), strings.Fields(strings.Join(Chunk(long, 32), " ")))
}

func TestProtectRestore(t *testing.T) {
	in := "Call `basic.pause(100)` then\n```\nlet x = 1\n```\nand `y`."
	masked, blocks := protect(in)
	assert.NotContains(t, masked, "basic.pause")
	assert.Len(t, blocks, 3)
	assert.Equal(t, in, restore(masked, blocks))
	assert.True(t, onlyCode("___CODE_BLOCK_0___ ___CODE_BLOCK_1___"))
	assert.False(t, onlyCode("___CODE_BLOCK_0___ text"))
}

func TestText(t *testing.T) {
	p := &upper{}
	tr := NewContentTranslator(p, "en", "nl", 0, 0, discard)

	out, err := tr.Text(context.Background(), "press `A` to start")
	require.NoError(t, err)
	assert.Equal(t, "PRESS `A` TO START", out)
	assert.Equal(t, []string{"press ___CODE_BLOCK_0___ to start"}, p.sent)

	out, err = tr.Text(context.Background(), "`only code`")
	require.NoError(t, err)
	assert.Equal(t, "`only code`", out)
	assert.Len(t, p.sent, 1)
}

func TestTextFailure(t *testing.T) {
	tr := NewContentTranslator(&upper{fail: "x"}, "en", "nl", 0, 0, discard)
	_, err := tr.Text(context.Background(), "xyz")
	assert.ErrorIs(t, err, core.ErrTranslation)
}

func fragment(t *testing.T, s string) []*html.Node {
	t.Helper()
	ns, err := html.ParseFragment(strings.NewReader(s), &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body})
	require.NoError(t, err)
	return ns
}

func TestTranslateRecord(t *testing.T) {
	rec := core.NewContentRecord("Case 01: Traffic Light")
	rec.Metadata[core.MetaDescription] = "a small build"
	rec.Sections = []core.Section{{
		Heading: "Materials",
		Level:   2,
		Elements: fragment(t, `<p>Connect the <b>red</b> led. <code>pin0</code></p>`+
			`<pre>basic.forever()</pre><p><img src="https://cdn/k.png" alt="kit parts"> ok</p>`),
	}}
	rec.Images = []core.ImageRecord{{SourceURL: "https://cdn/k.png", AltText: "kit parts"}}

	p := &upper{}
	tr := NewContentTranslator(p, "en", "nl", 0, 0, discard)
	tr.Provider = translatorFunc(func(ctx context.Context, text, s, tg string) (string, error) {
		if text == "Case 01: Traffic Light" {
			return "Geval 01: Verkeerslicht", nil
		}
		return p.Translate(ctx, text, s, tg)
	})

	n, err := tr.TranslateRecord(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "Project 01: Verkeerslicht", rec.Title)
	assert.Equal(t, "A SMALL BUILD", rec.Metadata[core.MetaDescription])
	assert.Equal(t, "MATERIALS", rec.Sections[0].Heading)
	assert.Equal(t, "nl", rec.Metadata[core.MetaLanguage])
	assert.Equal(t, "en", rec.Metadata[core.MetaOriginalLanguage])
	assert.Equal(t, "KIT PARTS", rec.Images[0].AltText)
	assert.Positive(t, n)

	var buf strings.Builder
	for _, el := range rec.Sections[0].Elements {
		require.NoError(t, html.Render(&buf, el))
	}
	got := buf.String()
	assert.Contains(t, got, "CONNECT THE <b>RED</b> LED. <code>pin0</code>")
	assert.Contains(t, got, "<pre>basic.forever()</pre>")
	assert.Contains(t, got, `alt="KIT PARTS"`)
	assert.Contains(t, got, "> ok</p>")

	for _, s := range p.sent {
		assert.NotContains(t, s, "pin0")
		assert.NotContains(t, s, "basic.forever")
	}
}

func TestTranslateRecordFailure(t *testing.T) {
	rec := core.NewContentRecord("Title")
	rec.Sections = []core.Section{{Heading: "broken heading", Level: 2}}
	_, err := NewContentTranslator(&upper{fail: "broken"}, "en", "nl", 0, 0, discard).TranslateRecord(context.Background(), rec)
	assert.ErrorIs(t, err, core.ErrTranslation)
}

func TestFixTitle(t *testing.T) {
	nl := &ContentTranslator{Target: "nl"}
	assert.Equal(t, "Project 3: Slimme project", nl.fixTitle("Casus 3: Slimme kast"))
	assert.Equal(t, "Kastanje", nl.fixTitle("Kastanje"))
	de := &ContentTranslator{Target: "de"}
	assert.Equal(t, "Case 3", de.fixTitle("Case 3"))
}

type translatorFunc func(ctx context.Context, text, source, target string) (string, error)

func (f translatorFunc) Translate(ctx context.Context, text, source, target string) (string, error) {
	return f(ctx, text, source, target)
}

func TestDeepL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DeepL-Auth-Key secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "NL", r.PostForm.Get("target_lang"))
		assert.Equal(t, "EN", r.PostForm.Get("source_lang"))
		if r.PostForm.Get("text") == "fail" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message":"Wrong endpoint"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"translations":[{"detected_source_language":"EN","text":"Hallo wereld"}]}`))
	}))
	defer srv.Close()

	d := NewDeepL("secret", srv.URL, 0)
	out, err := d.Translate(context.Background(), "Hello world", "en", "nl")
	require.NoError(t, err)
	assert.Equal(t, "Hallo wereld", out)

	_, err = d.Translate(context.Background(), "fail", "en", "nl")
	assert.ErrorContains(t, err, "403")

	_, err = NewDeepL("", srv.URL, 0).Translate(context.Background(), "x", "en", "nl")
	assert.Error(t, err)
}

func TestDeepLLang(t *testing.T) {
	assert.Equal(t, "EN-US", deeplLang("en", true))
	assert.Equal(t, "EN", deeplLang("en", false))
	assert.Equal(t, "NL", deeplLang("nl", true))
}

func TestGeminiResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: &genai.Content{Parts: []genai.Part{genai.Text(" Hallo "), genai.Text("wereld\n")}}},
		{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
	}}
	assert.Equal(t, "Hallo wereld", responseText(resp))
	assert.Empty(t, responseText(nil))
	assert.Contains(t, prompt("hi", "en", "nl"), "from en to nl")
}

func TestGeminiWithoutKey(t *testing.T) {
	_, err := NewGemini("", "").Translate(context.Background(), "hi", "en", "nl")
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.Translate{Provider: "deepl"})
	require.NoError(t, err)
	assert.IsType(t, &DeepL{}, p)

	p, err = NewProvider(config.Translate{Provider: "Gemini"})
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, p)

	_, err = NewProvider(config.Translate{Provider: "babelfish"})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}
