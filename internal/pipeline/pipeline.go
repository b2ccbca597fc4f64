package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/seoscan/internal/model"
)

// Step defines the interface that all pipeline stages must implement.
// Steps are executed in sequence, with each step receiving the
// accumulated report from previous steps.
//
// Design decision: We use an interface rather than function types because:
// 1. It allows steps to carry configuration state
// 2. It provides a Name() method for logging and debugging
// 3. It's more extensible for future features (e.g., priority, dependencies)
type Step interface {
	// Do executes the pipeline step.
	// It receives the context for cancellation, and the report to modify.
	// Returns an error only for critical failures; per-URL errors must be
	// recorded in the report and return nil.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps for one crawl job.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, the default logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence and always leaves the
// report in a usable state: step failures and panics are converted into
// recorded errors, never propagated. Callers read the outcome from the
// report's Phase, Success, and Errors fields.
//
// Design decision: We check context.Done() before each step rather than
// during, because steps handle their own timeouts. Cancellation between
// steps still yields a partial report with everything gathered so far.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) {
	defer func() {
		if r := recover(); r != nil {
			report.AddError(model.DiscoveryError{
				URL:       report.SeedURL,
				Message:   fmt.Sprintf("unexpected pipeline failure: %v", r),
				Phase:     report.Phase,
				Timestamp: time.Now(),
			})
		}
		p.finalize(report)
	}()

	for _, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"seed", report.SeedURL,
				"reason", ctx.Err(),
			)
			report.AddError(model.DiscoveryError{
				URL:       report.SeedURL,
				Message:   ctx.Err().Error(),
				Phase:     report.Phase,
				Timestamp: time.Now(),
			})
			return
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"seed", report.SeedURL,
		)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", report.SeedURL,
				"error", err,
			)
			report.AddError(model.DiscoveryError{
				URL:       report.SeedURL,
				Message:   err.Error(),
				Phase:     report.Phase,
				Timestamp: time.Now(),
			})
			// Later steps still run: summarization must happen even
			// when discovery or the crawl loop failed.
			continue
		}

		p.logger.Debug("step completed",
			"step", step.Name(),
			"seed", report.SeedURL,
		)
	}
}

// finalize stamps the end of the job and derives the Success flag.
func (p *Pipeline) finalize(report *model.CrawlReport) {
	if report.FinishedAt.IsZero() {
		report.FinishedAt = time.Now()
	}
	report.Success = report.Phase == "COMPLETED"
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
