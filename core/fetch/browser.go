package fetch

import (
	"context"
	"fmt"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/browser"
)

// BrowserFetcher returns the DOM of a page after it rendered in Chrome.
type BrowserFetcher struct {
	Browser *browser.Manager
}

// NewBrowser creates a BrowserFetcher on top of a browser manager.
func NewBrowser(b *browser.Manager) *BrowserFetcher {
	return &BrowserFetcher{Browser: b}
}

// Fetch navigates to url and serialises the rendered document.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*core.FetchResult, error) {
	page, cancel, err := f.Browser.OpenPage(ctx, url)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer page.Close()

	res, err := page.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("reading DOM of %s: %w", url, err)
	}
	return &core.FetchResult{URL: url, StatusCode: 200, HTML: res.Value.Str()}, nil
}
