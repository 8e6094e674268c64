// Package output renders finished diagnostic sessions for the CLI.
package output

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazz-dev/netdiag/internal/model"
	"github.com/hazz-dev/netdiag/internal/session"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	healthyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func verdictStyle(v session.Verdict) lipgloss.Style {
	switch v {
	case session.VerdictHealthy:
		return healthyStyle
	case session.VerdictDegraded, session.VerdictIndeterminate:
		return warnStyle
	default:
		return failStyle
	}
}

// RenderPretty formats a finalized session as a styled report: local
// check summary, probe table, and verdict banner.
func RenderPretty(st session.State, verdict session.Verdict) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("netdiag") + " " + st.Domain + "\n\n")

	// Local check.
	tcpLine := fmt.Sprintf("tcp/%d: %s", st.TCP.Port, st.TCP.Status)
	if st.TCP.LatencyMs != nil {
		tcpLine += fmt.Sprintf(" (%.1f ms)", *st.TCP.LatencyMs)
	}
	switch st.TCP.Status {
	case model.TCPOnline:
		b.WriteString(healthyStyle.Render(tcpLine) + "\n")
	default:
		b.WriteString(failStyle.Render(tcpLine) + "\n")
	}

	for _, rec := range st.DNS {
		line := fmt.Sprintf("dns: %-5s %s", rec.Type, rec.Value)
		if rec.TTL != nil {
			line += fmt.Sprintf(" ttl=%d", *rec.TTL)
		}
		b.WriteString(dimStyle.Render(line) + "\n")
	}

	// Probe table.
	if len(st.Probes) > 0 {
		b.WriteString("\n")
		w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CONTINENT\tCOUNTRY\tCITY\tISP\tSTATUS\tRTT")
		for _, p := range st.Probes {
			rtt := "-"
			if p.RTTMs != nil {
				rtt = fmt.Sprintf("%.1f ms", *p.RTTMs)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.Continent, p.Country, p.City, p.ISP, p.Status, rtt)
		}
		w.Flush()
	} else if !st.ProbesComplete {
		b.WriteString(dimStyle.Render("\nno global probe data collected") + "\n")
	}

	// Verdict banner.
	total := len(st.Probes)
	failed := session.FailedProbes(st.Probes)
	summary := strings.ToUpper(string(verdict))
	if total > 0 {
		summary += fmt.Sprintf(": %d/%d probes failed", failed, total)
	}
	if !st.ProbesComplete && total > 0 {
		summary += " (measurement incomplete)"
	}
	b.WriteString("\n" + verdictStyle(verdict).Render(summary) + "\n")

	return b.String()
}

// RenderProgress formats a one-line progress update for an in-flight
// session.
func RenderProgress(st session.State, verdict session.Verdict) string {
	total := len(st.Probes)
	failed := session.FailedProbes(st.Probes)
	return dimStyle.Render(fmt.Sprintf("probes=%d failed=%d verdict=%s", total, failed, verdict))
}
