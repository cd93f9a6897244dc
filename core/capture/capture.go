// Package capture replaces English code screenshots with screenshots of the
// same program rendered in the reader's language.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/browser"
)

// editorSelectors locate the code area of the editor, best first.
var editorSelectors = []string{"#maineditor", ".monaco-editor", ".blocklyDiv", "#blocksEditor"}

// RodCapturer screenshots resources in headless Chrome.
type RodCapturer struct {
	Browser *browser.Manager
	// Settle is how long the editor gets to render after load.
	Settle time.Duration
	// ElementWait bounds the lookup of each editor selector.
	ElementWait time.Duration
	// Timeout bounds one whole capture. Zero means no limit.
	Timeout time.Duration
}

// NewRodCapturer creates a capturer on top of a browser manager.
func NewRodCapturer(b *browser.Manager, settle, timeout time.Duration) *RodCapturer {
	return &RodCapturer{Browser: b, Settle: settle, ElementWait: 2 * time.Second, Timeout: timeout}
}

// LocalizedURL adds the UI language parameter to a resource URL.
func LocalizedURL(resourceURL, lang string) string {
	u, err := url.Parse(resourceURL)
	if err != nil || lang == "" {
		return resourceURL
	}
	q := u.Query()
	q.Set("lang", lang)
	u.RawQuery = q.Encode()
	return u.String()
}

// Capture stores a PNG of the editor area at outPath, falling back to a
// full page screenshot when no editor element is found.
func (c *RodCapturer) Capture(ctx context.Context, resourceURL, lang, outPath string) error {
	if c.Timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, c.Timeout)
		defer stop()
	}
	page, cancel, err := c.Browser.OpenPage(ctx, LocalizedURL(resourceURL, lang))
	if err != nil {
		return err
	}
	defer cancel()
	defer page.Close()

	select {
	case <-time.After(c.Settle):
	case <-ctx.Done():
		return ctx.Err()
	}

	var data []byte
	for _, sel := range editorSelectors {
		el := c.editor(ctx, page, sel)
		if el == nil {
			continue
		}
		if data, err = el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0); err == nil {
			break
		}
	}
	if data == nil {
		data, err = page.Screenshot(true, &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng})
		if err != nil {
			return fmt.Errorf("screenshot %s: %w", resourceURL, err)
		}
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing screenshot: %w", err)
	}
	return nil
}

// editor looks sel up for at most ElementWait. The element is returned
// bound to ctx so the lookup timer can be released right away.
func (c *RodCapturer) editor(ctx context.Context, page *rod.Page, sel string) *rod.Element {
	wait := page.Timeout(c.ElementWait)
	defer wait.CancelTimeout()
	el, err := wait.Element(sel)
	if err != nil {
		return nil
	}
	return el.Context(ctx)
}

// FileName is the local name of the index-th localized screenshot.
func FileName(index int) string {
	return fmt.Sprintf("makecode_%03d.png", index+1)
}

// Replace captures a localized screenshot for every image in pairs and
// points the image at it. Images are handled in record order. It returns
// the number of images replaced; it fails only when every capture failed.
func Replace(ctx context.Context, rec *core.ContentRecord, pairs map[string]string, c core.Capturer, lang, dir, refPrefix string, logger *slog.Logger) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, err
	}

	var (
		replaced int
		attempts int
		lastErr  error
	)
	for i := range rec.Images {
		img := &rec.Images[i]
		link, ok := pairs[img.SourceURL]
		if !ok {
			continue
		}
		name := FileName(attempts)
		attempts++
		if err := c.Capture(ctx, link, lang, filepath.Join(dir, name)); err != nil {
			if ctx.Err() != nil {
				return replaced, ctx.Err()
			}
			logger.WarnContext(ctx, "code screenshot failed", "link", link, "error", err)
			lastErr = err
			continue
		}
		img.LocalPath = path.Join(refPrefix, name)
		img.LinkedResourceURL = link
		img.ReplacedWithLocalizedVariant = true
		replaced++
	}
	if replaced == 0 && lastErr != nil {
		return 0, fmt.Errorf("no code screenshot captured: %w", lastErr)
	}
	return replaced, nil
}
