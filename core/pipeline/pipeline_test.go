package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/config"
	"github.com/gaurav-prasanna/guidepipe/core/generate"
	"github.com/gaurav-prasanna/guidepipe/core/match"
	"github.com/gaurav-prasanna/guidepipe/core/normalize"
	"github.com/gaurav-prasanna/guidepipe/core/render"
	"github.com/gaurav-prasanna/guidepipe/core/source"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Output.Root = t.TempDir()
	cfg.Enhance.MinSizeBytes = 0
	return cfg
}

func setTitle(title string) RunFunc {
	return func(_ context.Context, rec *core.ContentRecord, _ *RunContext) (*core.ContentRecord, error) {
		rec.Title = title
		return rec, nil
	}
}

func TestRecoverableFailureCarriesRecordForward(t *testing.T) {
	p := New(testConfig(t), discard,
		Stage{Name: "one", Class: Critical, Run: setTitle("A")},
		Stage{Name: "two", Class: Recoverable, Run: func(_ context.Context, rec *core.ContentRecord, _ *RunContext) (*core.ContentRecord, error) {
			rec.Title = "half-done"
			rec.Metadata["touched"] = "yes"
			return nil, errors.New("provider down")
		}},
		Stage{Name: "three", Class: Recoverable, Run: func(context.Context, *core.ContentRecord, *RunContext) (*core.ContentRecord, error) {
			panic("nil map")
		}},
		Stage{Name: "four", Class: Critical, Run: func(_ context.Context, rec *core.ContentRecord, _ *RunContext) (*core.ContentRecord, error) {
			rec.Title += "+"
			return rec, nil
		}},
	)

	res, err := p.Run(context.Background(), core.WorkItem{URL: "https://x/case-1"})
	require.NoError(t, err)
	assert.Equal(t, "A+", res.Record.Title)
	assert.NotContains(t, res.Record.Metadata, "touched")
	assert.Equal(t, []string{"two", "three"}, res.Recovered())

	outcomes := []Outcome{}
	for _, r := range res.Reports {
		outcomes = append(outcomes, r.Outcome)
	}
	assert.Equal(t, []Outcome{OutcomeOK, OutcomeRecovered, OutcomeRecovered, OutcomeOK}, outcomes)
	assert.ErrorContains(t, res.Reports[2].Err, "panicked")
}

func TestCriticalFailureAborts(t *testing.T) {
	ran := false
	p := New(testConfig(t), discard,
		Stage{Name: "fetch", Class: Critical, Run: func(context.Context, *core.ContentRecord, *RunContext) (*core.ContentRecord, error) {
			return nil, core.ErrFetch
		}},
		Stage{Name: "later", Class: Critical, Run: func(_ context.Context, rec *core.ContentRecord, _ *RunContext) (*core.ContentRecord, error) {
			ran = true
			return rec, nil
		}},
	)

	res, err := p.Run(context.Background(), core.WorkItem{URL: "https://x"})
	var se *core.StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "fetch", se.Stage)
	assert.True(t, se.Critical)
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.False(t, ran)
	assert.Len(t, res.Reports, 1)
	assert.Equal(t, OutcomeFailed, res.Reports[0].Outcome)
}

func TestNilRecordIsAFailure(t *testing.T) {
	p := New(testConfig(t), discard, Stage{Name: "bad", Class: Critical, Run: func(context.Context, *core.ContentRecord, *RunContext) (*core.ContentRecord, error) {
		return nil, nil
	}})
	_, err := p.Run(context.Background(), core.WorkItem{})
	assert.ErrorContains(t, err, "returned no record")
}

func TestSkippedStage(t *testing.T) {
	p := New(testConfig(t), discard,
		Stage{Name: "off", Class: Recoverable, Skip: func(*core.ContentRecord, *RunContext) string { return "disabled" }, Run: setTitle("never")},
	)
	res, err := p.Run(context.Background(), core.WorkItem{Title: "kept"})
	require.NoError(t, err)
	assert.Equal(t, "kept", res.Record.Title)
	assert.Equal(t, StageReport{Stage: "off", Outcome: OutcomeSkipped, Reason: "disabled"}, res.Reports[0])
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(t), discard, Stage{Name: "x", Run: setTitle("y")}).Run(ctx, core.WorkItem{})
	assert.ErrorIs(t, err, context.Canceled)
}

// --- standard stages ---

const page = `<html><head><title>Case 01: Traffic Light | ELECFREAKS WIKI</title>
<meta name="description" content="Build a traffic light."></head><body>
<main><div class="theme-doc-markdown markdown">
<h1>Case 01: Traffic Light</h1>
<h2>Materials</h2>
<p><img src="https://cdn.example.com/kit.png" alt="Kit parts"></p>
<h2>Programming</h2>
<p><img src="https://cdn.example.com/code_1.png" alt="code"></p>
<p>Open the <a href="https://makecode.microbit.org/_abc123">online project</a> in your browser.</p>
</div></main></body></html>`

const itemURL = "https://wiki.elecfreaks.com/en/microbit/case-01"

type fakeFetcher struct{ err error }

func (f fakeFetcher) Fetch(_ context.Context, url string) (*core.FetchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &core.FetchResult{URL: url, StatusCode: 200, HTML: page}, nil
}

type fileWriter struct{ urls []string }

func (w *fileWriter) Download(_ context.Context, url, dest string) error {
	w.urls = append(w.urls, url)
	return os.WriteFile(dest, []byte("image"), 0644)
}

func (w *fileWriter) Capture(_ context.Context, link, lang, out string) error {
	w.urls = append(w.urls, link+"#"+lang)
	return os.WriteFile(out, []byte("screenshot"), 0644)
}

type copyEnhancer struct{}

func (copyEnhancer) Available() bool { return true }
func (copyEnhancer) Enhance(_ context.Context, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, data, 0644)
}

type fakeTranslator struct{ err error }

func (f fakeTranslator) TranslateRecord(_ context.Context, rec *core.ContentRecord) (int, error) {
	rec.Title = "Project 01: Verkeerslicht"
	rec.Metadata[core.MetaLanguage] = "nl"
	return 1, f.err
}

func deps(t *testing.T) (Deps, *fileWriter, *fileWriter) {
	m, err := match.New("", 0, discard)
	require.NoError(t, err)
	dl, capt := &fileWriter{}, &fileWriter{}
	return Deps{
		Fetcher:    fakeFetcher{},
		Extractor:  source.Default(),
		Matcher:    m,
		Capturer:   capt,
		Downloader: dl,
		Enhancer:   copyEnhancer{},
		Translator: fakeTranslator{},
		Generator:  generate.New(normalize.New(), "nl"),
		Renderer:   render.NewMarkdownRenderer(),
		Now:        func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}, dl, capt
}

func TestStagesFullRun(t *testing.T) {
	cfg := testConfig(t)
	d, dl, capt := deps(t)

	res, err := New(cfg, discard, Stages(d)...).Run(context.Background(), core.WorkItem{URL: itemURL})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.OutputPath(), "case-01.md"), res.OutputPath)
	assert.Empty(t, res.Recovered())
	assert.Len(t, res.Reports, 9)
	assert.Equal(t, Stats{CodeLinks: 1, CodeReplaced: 1, Downloaded: 1, Enhanced: 1, Translated: 1, QRInjected: 1}, res.Stats)
	assert.Equal(t, "1", res.Record.Metadata[core.MetaCodeReplacements])
	assert.Equal(t, "1", res.Record.Metadata[core.MetaCodeLinksFound])
	assert.Equal(t, []string{"https://makecode.microbit.org/_abc123#nl"}, capt.urls)
	assert.Equal(t, []string{"https://cdn.example.com/kit.png"}, dl.urls)

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	doc := string(data)
	assert.True(t, strings.HasPrefix(doc, "# Project 01: Verkeerslicht\n"))
	assert.Contains(t, doc, "## Inhoudsopgave")
	assert.Contains(t, doc, "(case-01/images/makecode_001.png)")
	assert.Contains(t, doc, "_enhanced.png)")
	assert.NotContains(t, doc, "cdn.example.com")
	assert.Regexp(t, `\[online project\]\(https://makecode\.microbit\.org/_abc123\) !\[QR\]\(case-01/qrcodes/qr_[0-9a-f]{12}\.png\)`, doc)

	matches, err := filepath.Glob(filepath.Join(cfg.OutputPath(), "case-01", "qrcodes", "qr_*.png"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestStagesTranslationFailureKeepsSourceText(t *testing.T) {
	cfg := testConfig(t)
	d, _, _ := deps(t)
	d.Translator = fakeTranslator{err: core.ErrTranslation}

	res, err := New(cfg, discard, Stages(d)...).Run(context.Background(), core.WorkItem{URL: itemURL})
	require.NoError(t, err)
	assert.Equal(t, []string{StageTranslate}, res.Recovered())
	assert.Equal(t, "Case 01: Traffic Light", res.Record.Title)

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Case 01: Traffic Light\n"))
}

func TestStagesDisabledByConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.MakeCode.Enabled = false
	cfg.Images.Enabled = false
	cfg.Translate.Enabled = false
	cfg.QRCode.Enabled = false
	d, dl, capt := deps(t)

	res, err := New(cfg, discard, Stages(d)...).Run(context.Background(), core.WorkItem{URL: itemURL})
	require.NoError(t, err)

	skipped := map[string]string{}
	for _, r := range res.Reports {
		if r.Outcome == OutcomeSkipped {
			skipped[r.Stage] = r.Reason
		}
	}
	assert.Equal(t, map[string]string{
		StageReplaceCode: skipDisabled,
		StageDownload:    skipDisabled,
		StageEnhance:     skipNoLocalAssets,
		StageTranslate:   skipDisabled,
		StageInjectQR:    skipDisabled,
	}, skipped)
	assert.Empty(t, dl.urls)
	assert.Empty(t, capt.urls)

	data, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "![QR]")
	assert.Contains(t, string(data), "https://cdn.example.com/kit.png")
}

func TestStagesFetchFailure(t *testing.T) {
	d, _, _ := deps(t)
	d.Fetcher = fakeFetcher{err: errors.New("connection refused")}

	_, err := New(testConfig(t), discard, Stages(d)...).Run(context.Background(), core.WorkItem{URL: itemURL})
	assert.ErrorIs(t, err, core.ErrFetch)
	assert.Equal(t, "FetchError", core.ErrorType(errors.Unwrap(err)))
}

func TestStagesPDFOutput(t *testing.T) {
	cfg := testConfig(t)
	d, _, _ := deps(t)
	d.Renderer = render.NewPDFRenderer(cfg.OutputPath(), "A4", "P")

	res, err := New(cfg, discard, Stages(d)...).Run(context.Background(), core.WorkItem{URL: itemURL})
	require.NoError(t, err)
	assert.Equal(t, ".pdf", filepath.Ext(res.OutputPath))
}
