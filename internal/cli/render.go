package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/gmsas95/healthrisk/internal/ai"
	apperrors "github.com/gmsas95/healthrisk/internal/errors"
	"github.com/gmsas95/healthrisk/internal/health"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

var levelColors = map[health.RiskLevel]lipgloss.Color{
	health.RiskLow:      lipgloss.Color("10"),
	health.RiskModerate: lipgloss.Color("11"),
	health.RiskHigh:     lipgloss.Color("208"),
	health.RiskCritical: lipgloss.Color("9"),
}

// levelBadge colors a risk level for terminal output
func levelBadge(level health.RiskLevel) string {
	color, ok := levelColors[level]
	if !ok {
		return string(level)
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(strings.ToUpper(string(level)))
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// sourceLine describes how a bundle was produced
func sourceLine(res ai.Result) string {
	switch {
	case res.FallbackReason != nil:
		return fmt.Sprintf("Source: %s (fallback %s)", res.Source, apperrors.GetCode(res.FallbackReason))
	case res.Source == ai.SourceAIDegraded:
		return fmt.Sprintf("Source: %s (model output could not be parsed)", res.Source)
	default:
		return fmt.Sprintf("Source: %s", res.Source)
	}
}

// reportMarkdown formats a prediction result as a markdown report
func reportMarkdown(res ai.Result) string {
	b := res.Bundle
	var sb strings.Builder

	sb.WriteString("# Health Risk Report\n\n")
	fmt.Fprintf(&sb, "_%s_\n\n", sourceLine(res))
	fmt.Fprintf(&sb, "%s\n\n", b.Summary)

	sb.WriteString("## Predictions\n\n")
	if len(b.Predictions) == 0 {
		sb.WriteString("No condition crossed its risk threshold.\n\n")
	} else {
		sb.WriteString("| Condition | Level | Score |\n|---|---|---|\n")
		for _, p := range b.Predictions {
			fmt.Fprintf(&sb, "| %s | %s | %s |\n", p.ConditionName, p.RiskLevel, health.FormatNumber(p.RiskScore))
		}
		sb.WriteString("\n")
		for _, p := range b.Predictions {
			fmt.Fprintf(&sb, "**%s**: %s\n\n", p.ConditionName, p.Description)
			for _, r := range p.Recommendations {
				fmt.Fprintf(&sb, "- %s\n", r)
			}
			if len(p.Recommendations) > 0 {
				sb.WriteString("\n")
			}
		}
	}

	if len(b.RiskAssessments) > 0 {
		sb.WriteString("## Risk Assessments\n\n")
		sb.WriteString("| Category | Level | Score | Trend |\n|---|---|---|---|\n")
		for _, a := range b.RiskAssessments {
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", a.Type, a.Level, health.FormatNumber(a.Score), a.Trend)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Recommended Tests\n\n")
	if len(b.TestRecommendations) == 0 {
		sb.WriteString("None.\n")
	}
	for _, t := range b.TestRecommendations {
		fmt.Fprintf(&sb, "- **%s** (%s, %s): %s", t.TestName, t.Priority, strings.ReplaceAll(string(t.Category), "_", " "), t.Reason)
		if t.RecommendedFrequency != "" {
			fmt.Fprintf(&sb, " Repeat: %s.", strings.ReplaceAll(t.RecommendedFrequency, "_", " "))
		}
		sb.WriteString("\n")
	}

	if b.IsDegraded() {
		sb.WriteString("\n## Model Output\n\n```\n")
		sb.WriteString(b.RawResponse)
		sb.WriteString("\n```\n")
	}

	return sb.String()
}

// renderMarkdown renders md with glamour, styled when out is a terminal
func renderMarkdown(out io.Writer, md string) error {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(100)}
	if isTerminal(out) {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return err
	}
	rendered, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, rendered)
	return err
}
