package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/seoscan/internal/model"
)

// recordingStep marks itself as executed and optionally fails or panics.
type recordingStep struct {
	name     string
	executed bool
	err      error
	panics   bool
	mutate   func(*model.CrawlReport)
}

func (s *recordingStep) Name() string { return s.name }

func (s *recordingStep) Do(_ context.Context, report *model.CrawlReport) error {
	s.executed = true
	if s.panics {
		panic("step blew up")
	}
	if s.mutate != nil {
		s.mutate(report)
	}
	return s.err
}

// TestPipelineExecuteOrder verifies steps run in insertion order.
func TestPipelineExecuteOrder(t *testing.T) {
	t.Parallel()

	var order []string
	p := New()
	for _, name := range []string{"first", "second", "third"} {
		name := name
		p.AddStep(&recordingStep{
			name: name,
			mutate: func(*model.CrawlReport) {
				order = append(order, name)
			},
		})
	}

	report := model.NewCrawlReport("https://example.com/", "example.com")
	p.Execute(context.Background(), report)

	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Errorf("unexpected execution order %v", order)
	}
	if got := p.StepNames(); len(got) != 3 {
		t.Errorf("unexpected step names %v", got)
	}
}

// TestPipelineStepFailureContinues verifies a failing step records its
// error and later steps still run.
func TestPipelineStepFailureContinues(t *testing.T) {
	t.Parallel()

	failing := &recordingStep{name: "broken", err: errors.New("stage failed")}
	last := &recordingStep{name: "last"}

	p := New()
	p.AddSteps(failing, last)

	report := model.NewCrawlReport("https://example.com/", "example.com")
	p.Execute(context.Background(), report)

	if !last.executed {
		t.Error("step after a failure must still execute")
	}
	if len(report.Errors) != 1 || report.Errors[0].Message != "stage failed" {
		t.Errorf("expected recorded step error, got %v", report.Errors)
	}
}

// TestPipelinePanicRecovery verifies a panicking step becomes a
// recorded error, never a propagated panic.
func TestPipelinePanicRecovery(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&recordingStep{name: "explosive", panics: true})

	report := model.NewCrawlReport("https://example.com/", "example.com")
	p.Execute(context.Background(), report)

	if len(report.Errors) != 1 {
		t.Fatalf("expected one recorded error, got %v", report.Errors)
	}
	if report.Success {
		t.Error("a panicked job must not report success")
	}
	if report.FinishedAt.IsZero() {
		t.Error("finalize must stamp FinishedAt even after a panic")
	}
}

// TestPipelineCancellation verifies cancellation between steps yields a
// partial report.
func TestPipelineCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	first := &recordingStep{
		name:   "canceller",
		mutate: func(*model.CrawlReport) { cancel() },
	}
	second := &recordingStep{name: "never-runs"}

	p := New()
	p.AddSteps(first, second)

	report := model.NewCrawlReport("https://example.com/", "example.com")
	p.Execute(ctx, report)

	if second.executed {
		t.Error("step after cancellation must not execute")
	}
	if len(report.Errors) == 0 {
		t.Error("cancellation must be recorded in the report")
	}
}

// TestPipelineSuccessFlag verifies Success derives from the final phase.
func TestPipelineSuccessFlag(t *testing.T) {
	t.Parallel()

	t.Run("completed phase", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&recordingStep{
			name:   "phase-setter",
			mutate: func(r *model.CrawlReport) { r.Phase = "COMPLETED" },
		})

		report := model.NewCrawlReport("https://example.com/", "example.com")
		p.Execute(context.Background(), report)

		if !report.Success {
			t.Error("COMPLETED phase must report success")
		}
	})

	t.Run("failed phase", func(t *testing.T) {
		t.Parallel()

		p := New()
		p.AddStep(&recordingStep{
			name:   "phase-setter",
			mutate: func(r *model.CrawlReport) { r.Phase = "FAILED" },
		})

		report := model.NewCrawlReport("https://example.com/", "example.com")
		p.Execute(context.Background(), report)

		if report.Success {
			t.Error("FAILED phase must not report success")
		}
	})
}
