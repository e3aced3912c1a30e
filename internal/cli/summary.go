package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pulsemon/provision/internal/installer"
	"github.com/pulsemon/provision/internal/journal"
	"github.com/pulsemon/provision/internal/verify"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headStyle = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// pipelineTitle names a pipeline in operator-facing output.
func pipelineTitle(variant string) string {
	switch variant {
	case installer.VariantWebapp:
		return "webapp install"
	case installer.VariantDaemon:
		return "daemon install"
	case installer.VariantUninstall:
		return "uninstall"
	default:
		return variant
	}
}

// renderSummary formats a finished pipeline run: one line per executed
// step, any warnings, the overall outcome, and what to do next.
func renderSummary(report *installer.Report, st *installer.State) string {
	var b strings.Builder
	title := pipelineTitle(report.Variant)

	b.WriteString("\n")
	b.WriteString(headStyle.Render("pulsemon " + title))
	b.WriteString("\n\n")

	for _, res := range report.Results {
		if res.Err != nil {
			b.WriteString(fmt.Sprintf("  %s %s", failStyle.Render("[FAIL]"), res.Name))
			b.WriteString(dimStyle.Render(fmt.Sprintf(" - %v", res.Err)))
		} else {
			b.WriteString(fmt.Sprintf("  %s %s", okStyle.Render("[OK]"), res.Name))
			b.WriteString(dimStyle.Render(fmt.Sprintf(" (%s)", res.Duration.Round(time.Millisecond))))
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range report.Warnings {
			b.WriteString(fmt.Sprintf("  %s %s\n", warnStyle.Render("[!!]"), w))
		}
	}

	b.WriteString("\n")
	switch report.Outcome {
	case journal.OutcomeSuccess:
		b.WriteString(okStyle.Render(fmt.Sprintf("  %s complete", title)))
	case journal.OutcomeWarning:
		b.WriteString(warnStyle.Render(fmt.Sprintf("  %s finished with %d warning(s)", title, len(report.Warnings))))
	default:
		b.WriteString(failStyle.Render(fmt.Sprintf("  %s failed: %v", title, report.Err)))
	}
	b.WriteString("\n")

	if st.AdminPassword != "" {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("  Initial admin password: "))
		b.WriteString(headStyle.Render(st.AdminPassword))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("  It is shown only this once; only its hash is stored."))
		b.WriteString("\n")
	}

	if report.Err == nil {
		switch report.Variant {
		case installer.VariantWebapp:
			b.WriteString(dimStyle.Render(fmt.Sprintf("  Launch the web application with: %s", st.Config.Target.Executable)))
			b.WriteString("\n")
		case installer.VariantDaemon:
			b.WriteString(dimStyle.Render(fmt.Sprintf("  Inspect the service with: systemctl status %s", st.Config.Service.UnitFile())))
			b.WriteString("\n")
		case installer.VariantUninstall:
			b.WriteString(dimStyle.Render(fmt.Sprintf("  Application data under %s was left in place.", st.Config.Target.InstallDir)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderVerify formats the standalone verification result.
func renderVerify(res *verify.Result, serviceChecked, serviceActive bool, unit string) string {
	var b strings.Builder
	b.WriteString("\n")

	if res.OK() {
		b.WriteString(fmt.Sprintf("  %s %s", okStyle.Render("[OK]"), res.Path))
		if res.ResolvedTo != res.Path {
			b.WriteString(dimStyle.Render(fmt.Sprintf(" (PATH resolves to %s)", res.ResolvedTo)))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(fmt.Sprintf("  %s %s installed but not on PATH\n", warnStyle.Render("[!!]"), res.Path))
		b.WriteString(dimStyle.Render(fmt.Sprintf("      -> %s", res.Remediation)))
		b.WriteString("\n")
	}

	if serviceChecked {
		if serviceActive {
			b.WriteString(fmt.Sprintf("  %s service %s is active\n", okStyle.Render("[OK]"), unit))
		} else {
			b.WriteString(fmt.Sprintf("  %s service %s is not active\n", warnStyle.Render("[!!]"), unit))
			b.WriteString(dimStyle.Render(fmt.Sprintf("      -> inspect it with: journalctl -u %s", unit)))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// outcomeStyle picks the display style for a recorded outcome.
func outcomeStyle(outcome journal.Outcome) lipgloss.Style {
	switch outcome {
	case journal.OutcomeSuccess:
		return okStyle
	case journal.OutcomeWarning:
		return warnStyle
	case journal.OutcomeFailed:
		return failStyle
	default:
		return dimStyle
	}
}

// renderHistory formats recorded runs, newest first. Step details are
// included per run when steps is non-nil.
func renderHistory(runs []journal.Run, steps map[string][]journal.StepRecord) string {
	var b strings.Builder
	b.WriteString("\n")

	if len(runs) == 0 {
		b.WriteString(dimStyle.Render("  no recorded runs"))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(headStyle.Render(fmt.Sprintf("  %-10s %-11s %-9s %-18s %s", "RUN", "VARIANT", "OUTCOME", "STARTED", "DURATION")))
	b.WriteString("\n")

	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		dur := "-"
		if !run.FinishedAt.IsZero() {
			dur = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		b.WriteString(fmt.Sprintf("  %-10s %-11s %s %-18s %s\n",
			id,
			run.Variant,
			outcomeStyle(run.Outcome).Render(fmt.Sprintf("%-9s", run.Outcome)),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			dur,
		))
		if run.Outcome == journal.OutcomeFailed && run.FailedStep != "" {
			b.WriteString(dimStyle.Render(fmt.Sprintf("      -> failed at %s: %s", run.FailedStep, run.Error)))
			b.WriteString("\n")
		}
		for _, rec := range steps[run.ID] {
			icon := okStyle.Render("[OK]")
			if rec.Status != "ok" {
				icon = failStyle.Render("[FAIL]")
			}
			b.WriteString(fmt.Sprintf("      %s %s", icon, rec.Name))
			b.WriteString(dimStyle.Render(fmt.Sprintf(" (%s)", rec.Duration.Round(time.Millisecond))))
			b.WriteString("\n")
		}
	}

	return b.String()
}
