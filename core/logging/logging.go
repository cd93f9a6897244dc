// Package logging builds the structured logger used across guidepipe.
// Run and item identifiers stored in a context are added to every record
// logged with that context.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

type ctxKey int

const (
	runIDKey ctxKey = iota
	itemKey
)

// WithRunID returns a context carrying the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithItem returns a context carrying the URL of the item being processed.
func WithItem(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, itemKey, url)
}

// Item returns the item URL stored in ctx, if any.
func Item(ctx context.Context) string {
	item, _ := ctx.Value(itemKey).(string)
	return item
}

// ContextHandler decorates records with run_id and item attributes.
type ContextHandler struct {
	slog.Handler
}

// Handle adds context attributes before delegating.
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(runIDKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("run_id", id))
	}
	if item := Item(ctx); item != "" {
		r.AddAttrs(slog.String("item", item))
	}
	return h.Handler.Handle(ctx, r)
}

// WithAttrs keeps the decorator when attributes are bound.
func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{h.Handler.WithAttrs(attrs)}
}

// WithGroup keeps the decorator when a group is opened.
func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{h.Handler.WithGroup(name)}
}

// ParseLevel maps a config string to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a text logger writing to w.
func New(w io.Writer, level string, verbose bool) *slog.Logger {
	lvl := ParseLevel(level)
	if verbose {
		lvl = slog.LevelDebug
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(ContextHandler{h})
}
