package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/capture"
	"github.com/gaurav-prasanna/guidepipe/core/download"
	"github.com/gaurav-prasanna/guidepipe/core/enhance"
	"github.com/gaurav-prasanna/guidepipe/core/match"
	"github.com/gaurav-prasanna/guidepipe/core/output"
	"github.com/gaurav-prasanna/guidepipe/core/qr"
)

// Stage names in execution order.
const (
	StageFetch        = "fetch"
	StageExtract      = "extract"
	StageReplaceCode  = "replace_code_images"
	StageDownload     = "download_assets"
	StageEnhance      = "enhance_assets"
	StageTranslate    = "translate"
	StageGenerate     = "generate"
	StageInjectQR     = "inject_qr"
	StagePersist      = "persist"
	skipDisabled      = "disabled"
	skipNoLocalAssets = "no local assets"
)

// Extractor turns fetched HTML into a record. *source.Registry implements it.
type Extractor interface {
	Extract(raw, url string) (*core.ContentRecord, error)
}

// RecordTranslator localizes a record in place. *translate.ContentTranslator
// implements it.
type RecordTranslator interface {
	TranslateRecord(ctx context.Context, rec *core.ContentRecord) (int, error)
}

// GuideGenerator renders a record as Markdown. *generate.Generator
// implements it.
type GuideGenerator interface {
	Generate(rec *core.ContentRecord) (string, error)
}

// Deps are the collaborators the standard stages use. Optional ones may be
// nil, which skips their stage.
type Deps struct {
	Fetcher    core.Fetcher
	Extractor  Extractor
	Matcher    *match.Matcher
	Capturer   core.Capturer
	Downloader core.Downloader
	Enhancer   core.Enhancer
	Translator RecordTranslator
	Generator  GuideGenerator
	Renderer   core.Renderer
	// Now stamps generated documents. Defaults to time.Now.
	Now func() time.Time
}

// Stages returns the nine standard stages wired to d.
func Stages(d Deps) []Stage {
	if d.Now == nil {
		d.Now = time.Now
	}
	return []Stage{
		{Name: StageFetch, Class: Critical, Run: d.fetch},
		{Name: StageExtract, Class: Critical, Run: d.extract},
		{Name: StageReplaceCode, Class: Recoverable, Skip: d.skipReplaceCode, Run: d.replaceCode},
		{Name: StageDownload, Class: Recoverable, Skip: d.skipDownload, Run: d.download},
		{Name: StageEnhance, Class: Recoverable, Skip: d.skipEnhance, Run: d.enhance},
		{Name: StageTranslate, Class: Recoverable, Skip: d.skipTranslate, Run: d.translate},
		{Name: StageGenerate, Class: Critical, Run: d.generate},
		{Name: StageInjectQR, Class: Recoverable, Skip: d.skipInjectQR, Run: d.injectQR},
		{Name: StagePersist, Class: Critical, Run: d.persist},
	}
}

func wrap(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func (d Deps) fetch(ctx context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	raw, err := d.Fetcher.Fetch(ctx, rc.Item.URL)
	if err != nil {
		return nil, wrap(core.ErrFetch, err)
	}
	rc.Raw = raw
	return rec, nil
}

func (d Deps) extract(_ context.Context, _ *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	if rc.Raw == nil {
		return nil, fmt.Errorf("%w: nothing fetched", core.ErrExtraction)
	}
	out, err := d.Extractor.Extract(rc.Raw.HTML, rc.Item.URL)
	if err != nil {
		return nil, wrap(core.ErrExtraction, err)
	}
	if out.Title == "" {
		out.Title = rc.Item.Title
	}
	if out.Title == "" {
		return nil, fmt.Errorf("%w: no title for %s", core.ErrExtraction, rc.Item.URL)
	}
	out.Metadata[core.MetaURL] = rc.Item.URL
	rc.Name = output.Name(rc.Item.URL, out.Title)
	return out, nil
}

// assetDir returns the absolute directory for assets of kind and its
// document prefix.
func assetDir(rc *RunContext, kind string) (string, string) {
	w := output.Writer{OutputDir: rc.OutputDir}
	return w.AssetDir(rc.Name, kind), output.AssetRef(rc.Name, kind)
}

func (d Deps) skipReplaceCode(_ *core.ContentRecord, rc *RunContext) string {
	switch {
	case !rc.Config.MakeCode.Enabled:
		return skipDisabled
	case d.Matcher == nil || d.Capturer == nil:
		return "no capturer"
	}
	return ""
}

func (d Deps) replaceCode(ctx context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	links := d.Matcher.RecognizedLinks(rec)
	rec.Metadata[core.MetaCodeLinksFound] = strconv.Itoa(len(links))
	rc.Stats.CodeLinks = len(links)
	if len(links) == 0 {
		return rec, nil
	}

	res := d.Matcher.Match(rec)
	rc.Logger.DebugContext(ctx, "code images matched", "heuristic", res.Heuristic, "pairs", len(res.Pairs), "unmatched", len(res.Unmatched))
	dir, ref := assetDir(rc, rc.Config.Images.Dir)
	n, err := capture.Replace(ctx, rec, res.Pairs, d.Capturer, rc.Config.MakeCode.Language, dir, ref, rc.Logger)
	if err != nil {
		return nil, err
	}
	rec.Metadata[core.MetaCodeReplacements] = strconv.Itoa(n)
	rc.Stats.CodeReplaced = n
	return rec, nil
}

func (d Deps) skipDownload(rec *core.ContentRecord, rc *RunContext) string {
	switch {
	case !rc.Config.Images.Enabled:
		return skipDisabled
	case d.Downloader == nil:
		return "no downloader"
	case len(rec.Images) == 0:
		return "no images"
	}
	return ""
}

func (d Deps) download(ctx context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	dir, ref := assetDir(rc, rc.Config.Images.Dir)
	n, err := download.Assets(ctx, rec, d.Downloader, dir, ref, rc.Logger)
	if err != nil {
		return nil, wrap(core.ErrDownload, err)
	}
	rc.Stats.Downloaded = n
	return rec, nil
}

func (d Deps) skipEnhance(rec *core.ContentRecord, rc *RunContext) string {
	switch {
	case !rc.Config.Enhance.Enabled:
		return skipDisabled
	case !rec.HasLocalImages():
		return skipNoLocalAssets
	case d.Enhancer == nil || !d.Enhancer.Available():
		return "enhancer unavailable"
	}
	return ""
}

func (d Deps) enhance(ctx context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	opts := enhance.Options{
		BaseDir: rc.OutputDir,
		Workers: rc.Config.Enhance.Workers,
		MinSize: rc.Config.Enhance.MinSizeBytes,
	}
	rc.Stats.Enhanced = enhance.Assets(ctx, rec, d.Enhancer, opts, rc.Logger)
	return rec, nil
}

func (d Deps) skipTranslate(_ *core.ContentRecord, rc *RunContext) string {
	switch {
	case !rc.Config.Translate.Enabled:
		return skipDisabled
	case d.Translator == nil:
		return "no translator"
	case rc.Config.Translate.Source == rc.Config.Translate.Target:
		return "already in target language"
	}
	return ""
}

func (d Deps) translate(ctx context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	n, err := d.Translator.TranslateRecord(ctx, rec)
	if err != nil {
		return nil, wrap(core.ErrTranslation, err)
	}
	rc.Stats.Translated = n
	return rec, nil
}

func (d Deps) generate(_ context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	doc, err := d.Generator.Generate(rec)
	if err != nil {
		return nil, wrap(core.ErrGeneration, err)
	}
	rc.Document = doc
	return rec, nil
}

func (d Deps) skipInjectQR(_ *core.ContentRecord, rc *RunContext) string {
	if !rc.Config.QRCode.Enabled {
		return skipDisabled
	}
	return ""
}

// injectQR only touches rc.Document, which is replaced on success alone.
func (d Deps) injectQR(_ context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	dir, ref := assetDir(rc, rc.Config.QRCode.Dir)
	cache := qr.NewCache(dir, ref, rc.Config.QRCode.Size)
	doc, artifacts, err := qr.Inject(rc.Document, cache)
	if err != nil {
		return nil, err
	}
	rc.Document = doc
	rc.Stats.QRInjected = len(artifacts)
	return rec, nil
}

func (d Deps) persist(ctx context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error) {
	meta := core.PageMetadata{
		URL:         rc.Item.URL,
		Source:      rec.Metadata[core.MetaSource],
		Title:       rec.Title,
		Description: rec.Metadata[core.MetaDescription],
		Language:    rec.Metadata[core.MetaLanguage],
		GeneratedAt: d.Now().UTC().Format(time.RFC3339),
	}
	if meta.Language == "" {
		meta.Language = rc.Config.Translate.Source
	}
	data, err := d.Renderer.Render(rc.Document, meta)
	if err != nil {
		return nil, wrap(core.ErrPersist, err)
	}
	w, err := output.New(rc.OutputDir)
	if err != nil {
		return nil, wrap(core.ErrPersist, err)
	}
	p, err := w.Write(rc.Name, data, d.Renderer.Extension())
	if err != nil {
		return nil, wrap(core.ErrPersist, err)
	}
	rc.OutputPath = p
	rc.Logger.InfoContext(ctx, "guide written", "path", p, "bytes", len(data))
	return rec, nil
}
