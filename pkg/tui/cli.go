// Package tui renders terminal output: run summaries, month progress and
// workbook inspection reports.
package tui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"

	"github.com/tzl-ops/flightarchive/pkg/index"
	"github.com/tzl-ops/flightarchive/pkg/ingest"
	"github.com/tzl-ops/flightarchive/pkg/inspect"
)

// Colors (Swiss minimal)
var (
	accent  = lipgloss.Color("#FF0000")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	warning = lipgloss.Color("#FFAA00")
	white   = lipgloss.Color("#FFFFFF")
)

// Styles
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(white)
	accentStyle  = lipgloss.NewStyle().Foreground(accent).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	successStyle = lipgloss.NewStyle().Foreground(success).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warning)
	codeStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#1a1a1a")).Foreground(white).Padding(0, 1)
)

const rule = "  ─────────────────────────────────────"

// PrintHeader prints the tool banner.
func PrintHeader(w io.Writer, version string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("  FLIGHTARCHIVE")+mutedStyle.Render(" "+version))
	fmt.Fprintln(w, mutedStyle.Render("  Airport traffic workbook extractor"))
	fmt.Fprintln(w)
}

// PrintSummary prints the result of a run and the files it wrote.
func PrintSummary(w io.Writer, res *ingest.Result, outputs []string) {
	st := res.Stats

	fmt.Fprintln(w)
	if st.Errored == 0 && st.FailedMonths == 0 {
		fmt.Fprintln(w, successStyle.Render("  ✓ EXTRACTION COMPLETE"))
	} else {
		fmt.Fprintln(w, warningStyle.Render("  ✓ EXTRACTION COMPLETE WITH REJECTED ROWS"))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Flights:  "), titleStyle.Render(formatNumber(int64(len(res.Records)))))
	fmt.Fprintf(w, "  %s %d processed, %d skipped, %d errored\n", mutedStyle.Render("Rows:     "), st.Processed, st.Skipped, st.Errored)
	fmt.Fprintf(w, "  %s %d extracted, %d skipped, %d failed\n", mutedStyle.Render("Months:   "),
		len(st.Months)-st.SkippedMonths-st.FailedMonths, st.SkippedMonths, st.FailedMonths)
	if res.Duration > 0 {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Time:     "), titleStyle.Render(formatDuration(res.Duration)))
	}

	if len(st.Months) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, accentStyle.Render("▸ MONTHS"))
		for _, m := range st.Months {
			fmt.Fprintf(w, "  %s\n", monthLine(m))
		}
	}

	if len(st.ErrorCounts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, accentStyle.Render("▸ REJECTED ROWS"))
		kinds := make([]string, 0, len(st.ErrorCounts))
		for k := range st.ErrorCounts {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  %-28s %s\n", mutedStyle.Render(k), formatNumber(int64(st.ErrorCounts[k])))
		}
	}

	if len(st.FallbackSheets) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s %s\n", warningStyle.Render("Fallback sheets:"), strings.Join(st.FallbackSheets, ", "))
	}

	if airlines := index.Build(res.Records).Counts(index.ColumnAirline); len(airlines) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, accentStyle.Render("▸ TOP AIRLINES"))
		for i, vc := range airlines {
			if i == 5 {
				break
			}
			fmt.Fprintf(w, "  %-20s %s\n", vc.Value, mutedStyle.Render(formatNumber(int64(vc.Count))))
		}
	}

	if len(outputs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, mutedStyle.Render(rule))
		for _, o := range outputs {
			fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("Output:"), codeStyle.Render(o))
		}
		fmt.Fprintln(w, mutedStyle.Render(rule))
	}
	fmt.Fprintln(w)
}

func monthLine(m ingest.MonthStats) string {
	name := fmt.Sprintf("%d %-14s", m.Year, m.Folder)
	switch m.State {
	case ingest.StateSkipped:
		return mutedStyle.Render(name + " skipped: " + m.Reason)
	case ingest.StateFailed:
		return accentStyle.Render(name + " failed: " + m.Reason)
	}

	line := fmt.Sprintf("%s %6d flights", name, m.Records)
	if m.Errored > 0 {
		line += warningStyle.Render(fmt.Sprintf("  %d rejected", m.Errored))
	}
	if len(m.DaysMissing) > 0 {
		line += mutedStyle.Render(fmt.Sprintf("  %d days without flights", len(m.DaysMissing)))
	}
	if m.Cached {
		line += mutedStyle.Render("  (cached)")
	}
	return line
}

// PrintInspect prints the per-sheet classification of a workbook.
func PrintInspect(w io.Writer, report *inspect.WorkbookReport, showHeader bool) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, accentStyle.Render("▸ "+report.Path))
	fmt.Fprintln(w)

	for _, s := range report.Sheets {
		outcome := s.Outcome
		switch s.Outcome {
		case "known":
			outcome = successStyle.Render(outcome)
		case "fallback":
			outcome = warningStyle.Render(outcome)
		default:
			outcome = accentStyle.Render(outcome)
		}
		fmt.Fprintf(w, "  %-12s %-10s %s %s\n",
			titleStyle.Render(s.Name), s.Layout, outcome,
			mutedStyle.Render(fmt.Sprintf("%d rows, %s", s.Rows, s.Reason)))
		if s.Error != "" {
			fmt.Fprintf(w, "    %s\n", accentStyle.Render(s.Error))
		}
		if showHeader && len(s.Header) > 0 {
			for i, h := range s.Header {
				fmt.Fprintf(w, "    %s %s\n", mutedStyle.Render(fmt.Sprintf("%2d", i)), h)
			}
		}
	}

	counts := report.Counts()
	fmt.Fprintln(w)
	fmt.Fprintln(w, mutedStyle.Render(rule))
	fmt.Fprintf(w, "  %d sheets: %d known, %d fallback, %d unknown\n",
		len(report.Sheets), counts["known"], counts["fallback"], counts["unknown"]+counts["empty"]+counts["unreadable"])
	fmt.Fprintln(w, mutedStyle.Render(rule))
	fmt.Fprintln(w)
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}

func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// MonthProgress creates a progress bar counting finished months.
func MonthProgress(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("  months"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "",
			BarEnd:        "",
		}),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
