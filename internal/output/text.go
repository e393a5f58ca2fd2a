package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jacobarthurs/pgreview/internal/analyzer"
	"github.com/jacobarthurs/pgreview/internal/models"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

const timeLayout = "2006-01-02 15:04:05"

type textWriter struct {
	w   io.Writer
	err error
}

func (tw *textWriter) printf(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, format, args...)
}

func (tw *textWriter) heading(title string) {
	tw.printf("%s%s%s%s\n\n", colorBold, colorCyan, title, colorReset)
}

func RenderAnalysisText(w io.Writer, result analyzer.Result) error {
	tw := &textWriter{w: w}
	tw.renderAnalysis(result)
	return tw.err
}

func (tw *textWriter) renderAnalysis(result analyzer.Result) {
	if !result.OK() {
		tw.printf("%sPlan analysis failed: %s%s\n", colorRed, result.Error, colorReset)
		return
	}
	m, a := result.Metrics, result.Assessment

	tw.heading("Plan Summary")
	tw.printf("  Root Node:      %s\n", m.NodeType)
	tw.printf("  Total Cost:     %.2f\n", m.TotalCost)
	tw.printf("  Startup Cost:   %.2f\n", m.StartupCost)
	tw.printf("  Estimated Rows: %d\n", m.PlanRows)
	tw.printf("  Max Depth:      %d\n", m.MaxDepth)
	if len(m.ScanTypes) > 0 {
		tw.printf("  Scans:          %s\n", strings.Join(m.ScanTypes, ", "))
	}
	if len(m.JoinTypes) > 0 {
		tw.printf("  Joins:          %s\n", strings.Join(m.JoinTypes, ", "))
	}
	if len(m.Relations) > 0 {
		tw.printf("  Relations:      %s\n", strings.Join(m.Relations, ", "))
	}
	tw.printf("\n")

	label, color := severityFormat(a.Severity)
	tw.printf("  Score: %s%s%d/100%s  Severity: %s%s%s\n\n", colorBold, scoreColor(a.Score), a.Score, colorReset, color, label, colorReset)

	if len(a.Issues) == 0 {
		tw.printf("%s%sNo issues found.%s\n", colorBold, colorGreen, colorReset)
		return
	}

	tw.heading(fmt.Sprintf("Issues (%d)", len(a.Issues)))
	for i, issue := range a.Issues {
		tw.printf("  %s•%s %s\n", color, colorReset, issue)
		if i < len(a.Suggestions) {
			tw.printf("  %s→ %s%s\n", colorDim, a.Suggestions[i], colorReset)
		}
	}
}

func severityFormat(s analyzer.Severity) (string, string) {
	switch s {
	case analyzer.High:
		return "HIGH", colorRed
	case analyzer.Medium:
		return "MEDIUM", colorYellow
	default:
		return "LOW", colorCyan
	}
}

func scoreColor(score int) string {
	switch {
	case score >= 80:
		return colorGreen
	case score >= 50:
		return colorYellow
	default:
		return colorRed
	}
}

func statusFormat(s models.CheckStatus) string {
	switch s {
	case models.StatusSuccess:
		return colorGreen + "SUCCESS" + colorReset
	case models.StatusFailed:
		return colorRed + "FAILED" + colorReset
	default:
		return colorYellow + "PENDING" + colorReset
	}
}

// RenderRecordText prints one check: status line, plan assessment when
// present, then the review or the error.
func RenderRecordText(w io.Writer, rec *models.CheckRecord) error {
	tw := &textWriter{w: w}
	tw.renderRecord(rec)
	return tw.err
}

func (tw *textWriter) renderRecord(rec *models.CheckRecord) {
	tw.printf("%sRecord %d%s  %s  %s%s%s", colorBold, rec.ID, colorReset, statusFormat(rec.Status), colorDim, rec.BatchID, colorReset)
	if rec.DurationMs != nil {
		tw.printf("  %s", formatMs(*rec.DurationMs))
	}
	tw.printf("\n\n")

	tw.printf("%s%s%s\n\n", colorDim, strings.TrimSpace(rec.SQL), colorReset)

	if rec.Performance != nil {
		tw.renderAnalysis(*rec.Performance)
		tw.printf("\n")
	}

	switch {
	case rec.AIResult != nil:
		tw.heading("Review")
		tw.printf("%s\n", strings.TrimSpace(*rec.AIResult))
	case rec.ErrorMessage != nil:
		tw.printf("%sError: %s%s\n", colorRed, *rec.ErrorMessage, colorReset)
	}
}

// RenderSummaryText prints a batch summary followed by a one-line entry per
// record.
func RenderSummaryText(w io.Writer, s *models.BatchSummary, records []*models.CheckRecord) error {
	tw := &textWriter{w: w}

	tw.heading("Batch " + s.BatchID)
	tw.printf("  Total:    %d\n", s.TotalCount)
	tw.printf("  Success:  %s%d%s\n", colorGreen, s.SuccessCount, colorReset)
	tw.printf("  Failed:   %s%d%s\n", colorRed, s.FailedCount, colorReset)
	tw.printf("  Started:  %s\n", s.StartTime.Local().Format(timeLayout))
	if s.EndTime != nil {
		tw.printf("  Finished: %s\n", s.EndTime.Local().Format(timeLayout))
	}
	if s.TotalDurationMs != nil {
		tw.printf("  Duration: %s\n", formatMs(*s.TotalDurationMs))
	}

	if len(records) > 0 {
		tw.printf("\n")
		tw.renderRecordLines(records)
	}
	return tw.err
}

// RenderRecordsText prints a page of history. total is the match count
// before paging.
func RenderRecordsText(w io.Writer, records []*models.CheckRecord, total int) error {
	tw := &textWriter{w: w}
	if len(records) == 0 {
		tw.printf("No check records found.\n")
		return tw.err
	}
	tw.heading(fmt.Sprintf("Records (%d of %d)", len(records), total))
	tw.renderRecordLines(records)
	return tw.err
}

func (tw *textWriter) renderRecordLines(records []*models.CheckRecord) {
	for _, rec := range records {
		tw.printf("  %5d  %s  %-7s %s", rec.ID, statusFormat(rec.Status), rec.CheckType, truncate(oneLine(rec.SQL), 60))
		if rec.ErrorMessage != nil {
			tw.printf("\n         %s%s%s", colorDim, truncate(*rec.ErrorMessage, 80), colorReset)
		}
		tw.printf("\n")
	}
}

func RenderSummariesText(w io.Writer, summaries []*models.BatchSummary, total int) error {
	tw := &textWriter{w: w}
	if len(summaries) == 0 {
		tw.printf("No batches found.\n")
		return tw.err
	}
	tw.heading(fmt.Sprintf("Batches (%d of %d)", len(summaries), total))
	for _, s := range summaries {
		tw.printf("  %s  %s  %d total, %s%d ok%s, %s%d failed%s\n",
			s.BatchID, s.StartTime.Local().Format(timeLayout), s.TotalCount,
			colorGreen, s.SuccessCount, colorReset, colorRed, s.FailedCount, colorReset)
	}
	return tw.err
}

func RenderProgressText(w io.Writer, p *models.Progress) error {
	tw := &textWriter{w: w}

	const width = 30
	filled := p.Progress * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	color := colorYellow
	if p.Status == models.ProgressCompleted {
		color = colorGreen
	}

	tw.printf("%s  %s%s%s %3d%%  %d/%d", p.BatchID, color, bar, colorReset, p.Progress, p.CompletedCount, p.TotalCount)
	if p.FailedCount > 0 {
		tw.printf("  %s%d failed%s", colorRed, p.FailedCount, colorReset)
	}
	if p.RemainingMs != nil && p.Status != models.ProgressCompleted {
		tw.printf("  ~%s left", formatMs(*p.RemainingMs))
	}
	tw.printf("\n")
	return tw.err
}

func formatMs(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
