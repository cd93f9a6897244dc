package cmd

import (
	"io"
	"log/slog"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/batch"
	"github.com/gaurav-prasanna/guidepipe/core/browser"
	"github.com/gaurav-prasanna/guidepipe/core/capture"
	"github.com/gaurav-prasanna/guidepipe/core/config"
	"github.com/gaurav-prasanna/guidepipe/core/download"
	"github.com/gaurav-prasanna/guidepipe/core/enhance"
	"github.com/gaurav-prasanna/guidepipe/core/fetch"
	"github.com/gaurav-prasanna/guidepipe/core/generate"
	"github.com/gaurav-prasanna/guidepipe/core/match"
	"github.com/gaurav-prasanna/guidepipe/core/normalize"
	"github.com/gaurav-prasanna/guidepipe/core/pipeline"
	"github.com/gaurav-prasanna/guidepipe/core/render"
	"github.com/gaurav-prasanna/guidepipe/core/source"
	"github.com/gaurav-prasanna/guidepipe/core/translate"
)

// app holds the collaborators shared by one command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	sources *source.Registry
	browser *browser.Manager
	closers []io.Closer
}

func newApp(cfg *config.Config, logger *slog.Logger) *app {
	return &app{
		cfg:     cfg,
		logger:  logger,
		sources: source.Default(),
		browser: browser.NewManager(browser.Config{
			Headless:   cfg.Browser.Headless,
			RemoteURL:  cfg.Browser.RemoteURL,
			NavTimeout: config.Seconds(cfg.Browser.TimeoutSeconds),
			Logger:     logger,
		}),
	}
}

// close releases the translation client and shuts Chrome down if any
// stage started it.
func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("closing translator", "error", err)
		}
	}
	if err := a.browser.Close(); err != nil {
		a.logger.Warn("closing browser", "error", err)
	}
}

func (a *app) fetcher() core.Fetcher {
	f := a.cfg.Fetch
	var base core.Fetcher = fetch.New(config.Seconds(f.TimeoutSeconds), f.UserAgent)
	if f.UseBrowser {
		base = fetch.NewBrowser(a.browser)
	}
	return fetch.NewRetrying(base, fetch.RetryPolicy{
		MaxRetries:   f.MaxRetries,
		InitialDelay: config.Seconds(f.RetryDelay),
		Multiplier:   f.RetryBackoff,
	}, a.logger)
}

func (a *app) capturer() *capture.RodCapturer {
	mc := a.cfg.MakeCode
	return capture.NewRodCapturer(a.browser, config.Seconds(mc.SettleSeconds), config.Seconds(mc.TimeoutSeconds))
}

func (a *app) downloader() *download.HTTPDownloader {
	img := a.cfg.Images
	return download.NewHTTPDownloader(config.Seconds(img.TimeoutSeconds), config.Seconds(img.DelaySeconds), a.cfg.Fetch.UserAgent)
}

func (a *app) renderer() (core.Renderer, error) {
	return render.ForFormat(a.cfg.Output.Format, a.cfg.OutputPath(), a.cfg.PDF.PageSize, a.cfg.PDF.Orientation)
}

// pipeline wires the standard stages.
func (a *app) pipeline() (*pipeline.Pipeline, error) {
	cfg := a.cfg
	m, err := match.New(cfg.MakeCode.LinkPattern, cfg.MakeCode.Lookback, a.logger)
	if err != nil {
		return nil, err
	}
	if len(cfg.MakeCode.Keywords) > 0 {
		m.ImageKeywords = cfg.MakeCode.Keywords
	}

	rnd, err := a.renderer()
	if err != nil {
		return nil, err
	}

	language := cfg.Translate.Source
	d := pipeline.Deps{
		Fetcher:    a.fetcher(),
		Extractor:  a.sources,
		Matcher:    m,
		Capturer:   a.capturer(),
		Downloader: a.downloader(),
		Enhancer: &enhance.Upscayl{
			Binary:    cfg.Enhance.Binary,
			ModelsDir: cfg.Enhance.ModelsDir,
			Model:     cfg.Enhance.Model,
			Scale:     cfg.Enhance.Scale,
			GPU:       cfg.Enhance.GPU,
			Threads:   cfg.Enhance.Threads,
		},
		Renderer: rnd,
	}
	if cfg.Translate.Enabled {
		provider, err := translate.NewProvider(cfg.Translate)
		if err != nil {
			return nil, err
		}
		if c, ok := provider.(io.Closer); ok {
			a.closers = append(a.closers, c)
		}
		d.Translator = translate.NewContentTranslator(provider, cfg.Translate.Source, cfg.Translate.Target,
			cfg.Translate.MaxChunkChars, config.Seconds(cfg.Translate.DelaySeconds), a.logger)
		language = cfg.Translate.Target
	}
	d.Generator = generate.New(normalize.New(), language)

	return pipeline.New(cfg, a.logger, pipeline.Stages(d)...), nil
}

func (a *app) orchestrator(runner batch.Runner) *batch.Orchestrator {
	return &batch.Orchestrator{
		Fetcher:   a.fetcher(),
		Index:     a.sources,
		Runner:    runner,
		StatePath: a.cfg.StatePath(),
		Delay:     config.Seconds(a.cfg.Fetch.RateLimitSecond),
		Logger:    a.logger,
	}
}
