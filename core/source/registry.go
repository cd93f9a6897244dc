// Package source turns site-specific HTML into ContentRecords.
//
// Each supported site has an adapter. The Registry keeps them in
// registration order and routes every URL to the first adapter that claims
// it, so a catch-all adapter must be registered last.
package source

import (
	"errors"
	"fmt"

	"github.com/gaurav-prasanna/guidepipe/core"
)

// Base provides defaults for optional adapter behaviour.
type Base struct{}

// ExtractWorkItems returns no items: the page is not an index.
func (Base) ExtractWorkItems(string, string) ([]core.WorkItem, error) {
	return nil, nil
}

// Registry is an ordered list of adapters.
type Registry struct {
	adapters []core.SourceAdapter
}

// NewRegistry creates a Registry consulting adapters in the given order.
func NewRegistry(adapters ...core.SourceAdapter) *Registry {
	return &Registry{adapters: adapters}
}

// Default returns the built-in adapters, site-specific first.
func Default() *Registry {
	return NewRegistry(NewElecfreaks(), NewReadability())
}

// Adapters returns the adapters in lookup order.
func (r *Registry) Adapters() []core.SourceAdapter {
	return r.adapters
}

// Find returns the first adapter that handles url.
func (r *Registry) Find(url string) (core.SourceAdapter, error) {
	for _, a := range r.adapters {
		if a.CanHandle(url) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", core.ErrNoAdapter, url)
}

// Extract routes raw to the matching adapter. Failures unwrap to
// core.ErrExtraction.
func (r *Registry) Extract(raw, url string) (*core.ContentRecord, error) {
	a, err := r.Find(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	rec, err := a.Extract(raw, url)
	if err != nil {
		return nil, classify(a, err)
	}
	return rec, nil
}

// ExtractWorkItems lists the work items on an index page.
func (r *Registry) ExtractWorkItems(raw, url string) ([]core.WorkItem, error) {
	a, err := r.Find(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrExtraction, err)
	}
	items, err := a.ExtractWorkItems(raw, url)
	if err != nil {
		return nil, classify(a, err)
	}
	return items, nil
}

func classify(a core.SourceAdapter, err error) error {
	if errors.Is(err, core.ErrExtraction) {
		return fmt.Errorf("%s: %w", a.Name(), err)
	}
	return fmt.Errorf("%w: %s: %v", core.ErrExtraction, a.Name(), err)
}
