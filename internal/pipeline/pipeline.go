// Package pipeline runs the requested stages in dependency order.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/observability"
	"github.com/docmill-ai/docmill/internal/timer"
)

// Stage is one independently invocable pipeline phase.
type Stage interface {
	// Name identifies the stage in logs and timer reports.
	Name() string

	// Run executes the stage and reports per-document outcomes.
	Run(ctx context.Context) (domain.StageReport, error)
}

// Stages selects which phases a run executes.
type Stages struct {
	Convert   bool
	Index     bool
	Summarize bool
}

// Any reports whether at least one stage is selected.
func (s Stages) Any() bool {
	return s.Convert || s.Index || s.Summarize
}

// Pipeline executes its stages sequentially, each wrapped in a progress
// timer. A hard failure aborts the remaining stages; a soft stage failure is
// recorded and the run continues, so one broken stage never blocks the
// others from making forward progress.
type Pipeline struct {
	stages   []Stage
	interval time.Duration
	log      *observability.Logger
	closers  []func() error
}

// Run executes the stages in order and returns every stage report produced.
// The returned error is non-nil when any stage failed; callers map it to a
// non-zero exit. Per-document failures inside an otherwise successful stage
// do not surface here.
func (p *Pipeline) Run(ctx context.Context) ([]domain.StageReport, error) {
	reports := make([]domain.StageReport, 0, len(p.stages))
	var errs []error

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return reports, err
		}

		var report domain.StageReport
		err := timer.Section(stage.Name(), p.interval, p.log, func() error {
			var err error
			report, err = stage.Run(ctx)
			return err
		})

		reports = append(reports, report)

		if err == nil {
			continue
		}
		if domain.IsHardFailure(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.log.Error().Err(err).Str("stage", stage.Name()).Msg("stage aborted the run")
			return reports, err
		}

		p.log.Error().Err(err).Str("stage", stage.Name()).Msg("stage failed, continuing with remaining stages")
		errs = append(errs, err)
	}

	return reports, errors.Join(errs...)
}

// Close releases the resources owned by the pipeline's stages.
func (p *Pipeline) Close() error {
	var errs []error
	for _, close := range p.closers {
		if err := close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// namedStage adapts a stage run function to the Stage interface.
type namedStage struct {
	name string
	run  func(ctx context.Context) (domain.StageReport, error)
}

func (s namedStage) Name() string { return s.name }

func (s namedStage) Run(ctx context.Context) (domain.StageReport, error) {
	return s.run(ctx)
}
