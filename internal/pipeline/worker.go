package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docnarrative/internal/analyzer"
	"github.com/dgallion1/docnarrative/internal/parser"
)

// Worker runs analyses. It holds no per-job state and may be shared.
type Worker struct {
	analyzer  *analyzer.Analyzer
	parseOpts parser.Options
	store     *JobStore
	stats     *LatencyStats
	log       *slog.Logger
}

func NewWorker(an *analyzer.Analyzer, parseOpts parser.Options, store *JobStore, stats *LatencyStats, log *slog.Logger) *Worker {
	return &Worker{
		analyzer:  an,
		parseOpts: parseOpts,
		store:     store,
		stats:     stats,
		log:       log,
	}
}

// Analyze runs req to completion. A result already computed for an
// identical request is returned with reused set. onStatus, when non-nil,
// is told about each phase as it starts.
func (w *Worker) Analyze(ctx context.Context, req Request, onStatus func(JobStatus, string)) (res *analyzer.Result, reused bool, err error) {
	status := func(s JobStatus, phase string) {
		if onStatus != nil {
			onStatus(s, phase)
		}
	}

	key := req.Key()
	if res, ok := w.store.Lookup(key); ok {
		return res, true, nil
	}
	mode, err := req.mathMode()
	if err != nil {
		return nil, false, err
	}
	start := time.Now()

	// Phase 1: Parse
	status(StatusParsing, "parsing")
	p, err := parser.ForFile(req.Filename, w.parseOpts)
	if err != nil {
		return nil, false, err
	}
	tree, err := p.Parse(bytes.NewReader(req.Data), req.Filename)
	if err != nil {
		return nil, false, fmt.Errorf("parse: %w", err)
	}
	if req.Title != "" {
		tree.Title = req.Title
	}
	root := tree.Root()
	if req.RootXPath != "" {
		root, err = parser.SelectOne(tree, req.RootXPath)
		if err != nil {
			return nil, false, fmt.Errorf("select root: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	// Phase 2: Normalize and tokenize
	res, err = w.analyzer.Analyze(analyzer.Request{
		Tree:          tree,
		Root:          root,
		Language:      req.Language,
		MathMode:      mode,
		IncludeTokens: req.IncludeTokens,
		OnPhase: func(phase string) {
			if phase == analyzer.PhaseNormalizing {
				status(StatusNormalizing, phase)
			} else {
				status(StatusTokenizing, phase)
			}
		},
	})
	if err != nil {
		return nil, false, err
	}

	w.stats.Record(time.Since(start).Milliseconds())
	w.store.Remember(key, res)
	return res, false, nil
}

// Process runs the analysis for a queued job and records the outcome on it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	res, reused, err := w.Analyze(ctx, job.Request(), job.SetStatus)
	job.releaseData()
	if err != nil {
		log.Error("analysis failed", "phase", job.Snapshot().Phase, "error", err)
		job.Fail(err)
		return
	}

	job.Complete(res, reused)
	log.Info("analysis complete",
		"sentences", res.Stats.Sentences,
		"words", res.Stats.Words,
		"chunks", len(res.Chunks),
		"reused", reused)
}
