package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/shinji-kodama/serverless-workshop/internal/model"
)

// Colors use the ANSI 256-color palette. lipgloss drops them when the
// output is not a terminal, so piped output stays plain.
const (
	colorPrimary = lipgloss.Color("39")
	colorSuccess = lipgloss.Color("42")
	colorWarning = lipgloss.Color("214")
	colorDanger  = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("245")
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorDanger)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)

	// bannerStyle frames the setup header and the closing summary.
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 1)
)

// statusIcon returns the marker printed in front of a step result.
func statusIcon(s model.StepStatus) string {
	switch s {
	case model.StepPass:
		return successStyle.Render("✓")
	case model.StepWarn:
		return warningStyle.Render("!")
	case model.StepFail:
		return errorStyle.Render("✗")
	default:
		return mutedStyle.Render("-")
	}
}

// formatStepResult renders one step outcome, followed by its detail and
// remediation lines when present.
func formatStepResult(r model.StepResult) string {
	s := fmt.Sprintf("   %s %s\n", statusIcon(r.Status), r.Message)
	if r.Detail != "" && r.Status != model.StepFail {
		s += fmt.Sprintf("     %s\n", mutedStyle.Render(r.Detail))
	}
	if r.Remediation != "" {
		s += fmt.Sprintf("     %s %s\n", warningStyle.Render("→"), r.Remediation)
	}
	return s
}

// textReporter prints setup progress for humans.
type textReporter struct {
	w io.Writer
}

func (r *textReporter) StepStarted(index, total int, title string) {
	fmt.Fprintf(r.w, "\n%s\n", titleStyle.Render(fmt.Sprintf("Step %d/%d: %s", index, total, title)))
}

func (r *textReporter) Note(message string) {
	fmt.Fprintf(r.w, "   %s\n", mutedStyle.Render(message))
}

func (r *textReporter) StepFinished(res model.StepResult) {
	// Skipped steps were never started, so they get no heading.
	if res.Status == model.StepSkipped {
		VerboseLog("skipped %s: %s", res.Name, res.Message)
		return
	}
	fmt.Fprint(r.w, formatStepResult(res))
}
