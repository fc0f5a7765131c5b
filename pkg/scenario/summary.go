package scenario

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	mintGreen   = lipgloss.Color("#A8E6CF")
	amber       = lipgloss.Color("#FFD59E")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
)

var (
	headerStyle  = lipgloss.NewStyle().Foreground(brightWhite).Bold(true)
	passedStyle  = lipgloss.NewStyle().Foreground(mintGreen).Bold(true)
	failedStyle  = lipgloss.NewStyle().Foreground(salmonPink).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(amber)
	detailStyle  = lipgloss.NewStyle().Foreground(mutedGray)
)

func statusMark(s Status) string {
	switch s {
	case StatusPassed:
		return passedStyle.Render("✓ passed")
	case StatusFailed:
		return failedStyle.Render("✗ failed")
	case StatusErrored:
		return failedStyle.Render("✗ errored")
	default:
		return detailStyle.Render("- skipped")
	}
}

// PrintSummary writes a report of outcomes to w.
func PrintSummary(w io.Writer, outcomes []Outcome, runID string) {
	rule := headerStyle.Render(strings.Repeat("=", 70))

	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, headerStyle.Render("  SCENARIO SUMMARY"))
	fmt.Fprintln(w, rule)

	for _, o := range outcomes {
		fmt.Fprintf(w, "  %s  %s %s\n", statusMark(o.Status), o.Name,
			detailStyle.Render("("+o.Duration.Round(time.Millisecond).String()+")"))
		if o.Step != "" && o.Status != StatusPassed {
			fmt.Fprintf(w, "      %s\n", detailStyle.Render("at: "+o.Step))
		}
		if o.Message != "" {
			fmt.Fprintf(w, "      %s\n", o.Message)
		}
		for _, n := range o.Notes {
			fmt.Fprintf(w, "      %s\n", n)
		}
		for _, warning := range o.Warnings {
			fmt.Fprintf(w, "      %s\n", warningStyle.Render("⚠ "+warning))
		}
	}

	counts := Counts(outcomes)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %d passed, %d failed, %d errored, %d skipped\n",
		counts[StatusPassed], counts[StatusFailed], counts[StatusErrored], counts[StatusSkipped])
	if runID != "" {
		fmt.Fprintf(w, "  %s\n", detailStyle.Render("run "+runID))
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}
