// Package pipeline runs one work item through the fixed stage sequence
// fetch → extract → replace code images → download → enhance → translate →
// generate → inject QR codes → persist.
//
// Critical stages abort the item. Recoverable stages are attempted, and on
// failure the record from before the stage is carried forward. Every stage
// receives its own copy of the record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gaurav-prasanna/guidepipe/core"
	"github.com/gaurav-prasanna/guidepipe/core/config"
	"github.com/gaurav-prasanna/guidepipe/core/logging"
)

// Class tells the runner what a stage failure means for the item.
type Class int

const (
	Critical Class = iota
	Recoverable
)

func (c Class) String() string {
	if c == Critical {
		return "critical"
	}
	return "recoverable"
}

// Outcome is what happened to a stage in one run.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRecovered Outcome = "recovered"
	OutcomeFailed    Outcome = "failed"
)

// RunFunc transforms a record. rec is a private copy the stage may mutate.
type RunFunc func(ctx context.Context, rec *core.ContentRecord, rc *RunContext) (*core.ContentRecord, error)

// Stage is one step of the pipeline.
type Stage struct {
	Name  string
	Class Class
	// Skip returns a non-empty reason when the stage should not run.
	Skip func(rec *core.ContentRecord, rc *RunContext) string
	Run  RunFunc
}

// Stats counts what the recoverable stages achieved.
type Stats struct {
	CodeLinks    int
	CodeReplaced int
	Downloaded   int
	Enhanced     int
	Translated   int
	QRInjected   int
}

// RunContext carries per-item state between stages. Stages read settings
// only from Config.
type RunContext struct {
	Item      core.WorkItem
	Config    *config.Config
	Logger    *slog.Logger
	OutputDir string

	// Raw is the fetched page.
	Raw *core.FetchResult
	// Name is the output base name, fixed once extraction succeeds.
	Name string
	// Document is the generated guide text.
	Document   string
	OutputPath string
	Stats      Stats
}

// StageReport records the outcome of one stage.
type StageReport struct {
	Stage    string
	Outcome  Outcome
	Reason   string
	Err      error
	Duration time.Duration
}

// Result is the outcome of running one item.
type Result struct {
	Item       core.WorkItem
	Record     *core.ContentRecord
	OutputPath string
	Reports    []StageReport
	Stats      Stats
}

// Recovered lists stages that failed without aborting the item.
func (r *Result) Recovered() []string {
	var out []string
	for _, rep := range r.Reports {
		if rep.Outcome == OutcomeRecovered {
			out = append(out, rep.Stage)
		}
	}
	return out
}

// Pipeline executes stages in order.
type Pipeline struct {
	Stages []Stage
	Config *config.Config
	Logger *slog.Logger
}

// New creates a Pipeline.
func New(cfg *config.Config, logger *slog.Logger, stages ...Stage) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Stages: stages, Config: cfg, Logger: logger}
}

// Run processes one item. The returned error is non-nil only when a
// critical stage failed or the context was cancelled; it is a
// *core.StageError in the former case.
func (p *Pipeline) Run(ctx context.Context, item core.WorkItem) (*Result, error) {
	logger := p.Logger
	if logging.Item(ctx) == "" {
		logger = logger.With("item", item.URL)
	}
	rc := &RunContext{
		Item:      item,
		Config:    p.Config,
		Logger:    logger,
		OutputDir: p.Config.OutputPath(),
	}
	rec := core.NewContentRecord(item.Title)
	res := &Result{Item: item}

	for _, st := range p.Stages {
		if err := ctx.Err(); err != nil {
			res.Record = rec
			return res, err
		}

		if st.Skip != nil {
			if reason := st.Skip(rec, rc); reason != "" {
				rc.Logger.DebugContext(ctx, "stage skipped", "stage", st.Name, "reason", reason)
				res.Reports = append(res.Reports, StageReport{Stage: st.Name, Outcome: OutcomeSkipped, Reason: reason})
				continue
			}
		}

		start := time.Now()
		next, err := runStage(ctx, st, rec, rc)
		elapsed := time.Since(start)

		if err != nil {
			if st.Class == Critical {
				res.Reports = append(res.Reports, StageReport{Stage: st.Name, Outcome: OutcomeFailed, Err: err, Duration: elapsed})
				res.Record = rec
				res.Stats = rc.Stats
				rc.Logger.ErrorContext(ctx, "critical stage failed",
					"stage", st.Name, "error_type", core.ErrorType(err), "error", err)
				return res, &core.StageError{Stage: st.Name, Critical: true, Err: err}
			}
			rc.Logger.WarnContext(ctx, "recoverable stage failed, continuing",
				"stage", st.Name, "error_type", core.ErrorType(err), "error", err)
			res.Reports = append(res.Reports, StageReport{Stage: st.Name, Outcome: OutcomeRecovered, Err: err, Duration: elapsed})
			continue
		}

		rec = next
		res.Reports = append(res.Reports, StageReport{Stage: st.Name, Outcome: OutcomeOK, Duration: elapsed})
		rc.Logger.DebugContext(ctx, "stage done", "stage", st.Name, "duration", elapsed)
	}

	res.Record = rec
	res.OutputPath = rc.OutputPath
	res.Stats = rc.Stats
	return res, nil
}

// runStage hands the stage a copy of rec and converts panics into errors.
func runStage(ctx context.Context, st Stage, rec *core.ContentRecord, rc *RunContext) (out *core.ContentRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("stage %s panicked: %v", st.Name, r)
		}
	}()
	out, err = st.Run(ctx, rec.Clone(), rc)
	if err == nil && out == nil {
		err = fmt.Errorf("stage %s returned no record", st.Name)
	}
	return out, err
}
