package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/seoscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeStateBreakdown(md, report)
	w.writeBlockedPages(md, report)
	w.writeErrors(md, report)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with job information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("SEO Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Domain", "`" + report.Domain + "`"},
			{"Seed URL", "`" + report.SeedURL + "`"},
			{"Job ID", "`" + report.JobID + "`"},
			{"Crawl Date", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", statusBadge(report)},
		},
	})
	md.PlainText("")
}

// statusBadge returns the status cell based on the final phase.
func statusBadge(report *model.CrawlReport) string {
	switch report.Phase {
	case "COMPLETED":
		return "✅ Complete"
	case "PAUSED":
		return "⚠️ Paused (partial results)"
	case "FAILED":
		return "❌ Failed"
	default:
		return report.Phase
	}
}

// writeSummary writes the aggregate crawl counts with a pie chart of
// the inventory states.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Crawl Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"URLs Discovered", strconv.Itoa(report.Discovery.TotalDiscovered)},
			{"Max Depth Reached", strconv.Itoa(report.Discovery.MaxDepthReached)},
			{"Pages Audited", strconv.Itoa(report.Summary.TotalCrawled)},
			{"Succeeded", strconv.Itoa(report.Summary.Succeeded)},
			{"Failed", strconv.Itoa(report.Summary.Failed)},
			{"Coverage", fmt.Sprintf("%.1f%%", report.Summary.CoveragePercent)},
			{"Avg Page Time", report.Summary.AverageRenderTime.String()},
		},
	})
	md.PlainText("")

	if report.Discovery.TotalDiscovered > 0 {
		w.writePieChart(md, report)
	}
}

// writePieChart writes a mermaid pie chart of the state distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("URL State Distribution"),
		piechart.WithShowData(true),
	)

	for _, state := range sortedStates(report.Discovery.ByState) {
		if count := report.Discovery.ByState[state]; count > 0 {
			chart.LabelAndIntValue(string(state), uint64(count))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeStateBreakdown writes the per-source discovery table.
func (w *MarkdownWriter) writeStateBreakdown(md *markdown.Markdown, report *model.CrawlReport) {
	if len(report.Discovery.BySource) == 0 {
		return
	}

	md.H2("Discovery Sources")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Discovery.BySource))
	for _, source := range sortedSources(report.Discovery.BySource) {
		rows = append(rows, []string{string(source), strconv.Itoa(report.Discovery.BySource[source])})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Source", "URLs"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeBlockedPages lists policy-blocked URLs with their reasons.
func (w *MarkdownWriter) writeBlockedPages(md *markdown.Markdown, report *model.CrawlReport) {
	var rows [][]string
	for _, entry := range report.Entries {
		if entry.State == model.StateBlocked {
			rows = append(rows, []string{"`" + entry.NormalizedURL + "`", entry.BlockReason})
		}
	}
	if len(rows) == 0 {
		return
	}

	md.H2("Blocked Pages")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeErrors lists every recorded failure.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.CrawlReport) {
	if len(report.Errors) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")

	rows := make([][]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		rows = append(rows, []string{e.Phase, "`" + e.URL + "`", e.Message})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Phase", "URL", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

// sortedSources returns map keys in deterministic order.
func sortedSources(bySource map[model.URLSource]int) []model.URLSource {
	sources := make([]model.URLSource, 0, len(bySource))
	for source := range bySource {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}
