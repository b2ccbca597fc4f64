package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/nao1215/seoscan/internal/model"
)

// SimpleWriter outputs a human-readable text summary.
// This is the default terminal format: a short header, the aggregate
// counts, the per-state breakdown, and any recorded errors.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report as human-readable text.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "SEO crawl report for %s\n", report.Domain)
	fmt.Fprintf(&buf, "Job ID:    %s\n", report.JobID)
	fmt.Fprintf(&buf, "Seed URL:  %s\n", report.SeedURL)
	fmt.Fprintf(&buf, "Status:    %s\n", statusText(report))
	fmt.Fprintf(&buf, "Duration:  %s\n", report.FinishedAt.Sub(report.StartedAt).Round(1e7))
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "URLs discovered: %d (max depth %d)\n",
		report.Discovery.TotalDiscovered, report.Discovery.MaxDepthReached)
	fmt.Fprintf(&buf, "Pages audited:   %d (%d ok, %d failed)\n",
		report.Summary.TotalCrawled, report.Summary.Succeeded, report.Summary.Failed)
	fmt.Fprintf(&buf, "Coverage:        %.1f%%\n", report.Summary.CoveragePercent)
	buf.WriteString("\n")

	if len(report.Discovery.ByState) > 0 {
		buf.WriteString("By state:\n")
		for _, state := range sortedStates(report.Discovery.ByState) {
			fmt.Fprintf(&buf, "  %-20s %d\n", string(state), report.Discovery.ByState[state])
		}
		buf.WriteString("\n")
	}

	if len(report.Errors) > 0 {
		fmt.Fprintf(&buf, "Errors (%d):\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Fprintf(&buf, "  [%s] %s: %s\n", e.Phase, e.URL, e.Message)
		}
		buf.WriteString("\n")
	}

	return w.output.Write(buf.Bytes())
}

// statusText maps the final phase onto a short status line.
func statusText(report *model.CrawlReport) string {
	switch report.Phase {
	case "COMPLETED":
		return "complete"
	case "PAUSED":
		return "paused (partial results)"
	case "FAILED":
		return "failed"
	default:
		return report.Phase
	}
}

// sortedStates returns map keys in deterministic order.
func sortedStates(byState map[model.URLState]int) []model.URLState {
	states := make([]model.URLState, 0, len(byState))
	for state := range byState {
		states = append(states, state)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}
