package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/logging"
	"github.com/gaurav-prasanna/guidepipe/core/pipeline"
)

// Runner processes a single work item. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, item core.WorkItem) (*pipeline.Result, error)
}

// IndexSource lists the work items on an index page.
// *source.Registry implements it.
type IndexSource interface {
	ExtractWorkItems(raw string, url string) ([]core.WorkItem, error)
}

// Options control a batch run.
type Options struct {
	// Resume continues from the state file when it matches the index URL.
	Resume bool
	// ListOnly stops after discovering the work items.
	ListOnly bool
}

// Event is reported after each processed item.
type Event struct {
	Position int
	Total    int
	Item     core.WorkItem
	Result   *pipeline.Result
	Err      error
}

// Summary is the outcome of a batch run.
type Summary struct {
	RunID      string
	IndexURL   string
	Items      []core.WorkItem
	Total      int
	Skipped    int
	Succeeded  int
	Failed     int
	FailedURLs []string
}

// Orchestrator drives the pipeline over an index page, one item at a time.
type Orchestrator struct {
	Fetcher   core.Fetcher
	Index     IndexSource
	Runner    Runner
	StatePath string
	// Delay is the pause between consecutive items.
	Delay    time.Duration
	Logger   *slog.Logger
	Progress func(Event)
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// RunSingle processes one URL. A critical stage failure is returned as is.
func (o *Orchestrator) RunSingle(ctx context.Context, url string) (*pipeline.Result, error) {
	ctx = logging.WithItem(logging.WithRunID(ctx, uuid.NewString()), url)
	return o.Runner.Run(ctx, core.WorkItem{URL: url})
}

// Run discovers the work items on indexURL and processes every item not yet
// completed. State is persisted after each item and removed once a run ends
// without failures.
func (o *Orchestrator) Run(ctx context.Context, indexURL string, opts Options) (*Summary, error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := o.logger()

	page, err := o.Fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("%w: index %s: %v", core.ErrFetch, indexURL, err)
	}
	items, err := o.Index.ExtractWorkItems(page.HTML, indexURL)
	if err != nil {
		return nil, err
	}

	sum := &Summary{RunID: runID, IndexURL: indexURL, Items: items, Total: len(items)}
	log.InfoContext(ctx, "work items discovered", "index", indexURL, "count", len(items))
	if opts.ListOnly {
		return sum, nil
	}

	state := o.loadState(ctx, indexURL, opts.Resume)
	if err := state.Save(); err != nil {
		return sum, fmt.Errorf("%w: %v", core.ErrPersist, err)
	}

	pending := state.Pending(items)
	sum.Skipped = len(items) - len(pending)
	if sum.Skipped > 0 {
		log.InfoContext(ctx, "skipping completed items", "count", sum.Skipped)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if o.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(o.Delay), 1)
	}

	for i, item := range pending {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		res, err := o.Runner.Run(logging.WithItem(ctx, item.URL), item)
		if err != nil && ctx.Err() != nil {
			// Interrupted items are neither completed nor failed.
			break
		}
		if err != nil {
			state.MarkFailed(item.URL)
			sum.Failed++
			log.ErrorContext(ctx, "item failed", "item", item.URL, "error_type", core.ErrorType(err), "error", err)
		} else {
			state.MarkCompleted(item.URL)
			sum.Succeeded++
		}
		if o.Progress != nil {
			o.Progress(Event{Position: sum.Skipped + i + 1, Total: sum.Total, Item: item, Result: res, Err: err})
		}
		if err := state.Save(); err != nil {
			return sum, fmt.Errorf("%w: %v", core.ErrPersist, err)
		}
	}

	sum.FailedURLs = state.Failed()
	if err := ctx.Err(); err != nil {
		log.WarnContext(ctx, "batch interrupted, state kept for resume", "state", o.StatePath)
		return sum, err
	}
	if len(sum.FailedURLs) == 0 {
		if err := state.Clear(); err != nil {
			return sum, fmt.Errorf("%w: %v", core.ErrPersist, err)
		}
	}
	log.InfoContext(ctx, "batch finished",
		"total", sum.Total, "skipped", sum.Skipped, "succeeded", sum.Succeeded, "failed", sum.Failed)
	return sum, nil
}

func (o *Orchestrator) loadState(ctx context.Context, indexURL string, resume bool) *State {
	log := o.logger()
	if resume {
		st, err := LoadState(o.StatePath)
		switch {
		case err != nil:
			log.WarnContext(ctx, "ignoring unreadable batch state", "path", o.StatePath, "error", err)
		case st == nil:
			log.InfoContext(ctx, "no batch state to resume", "path", o.StatePath)
		case st.IndexURL() != indexURL:
			log.WarnContext(ctx, "batch state belongs to another index, starting fresh",
				"state_index", st.IndexURL(), "index", indexURL)
		default:
			log.InfoContext(ctx, "resuming batch",
				"completed", len(st.Completed()), "failed", len(st.Failed()))
			return st
		}
	}
	return NewState(o.StatePath, indexURL)
}

// Interrupted reports whether err came from cancellation.
func Interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
