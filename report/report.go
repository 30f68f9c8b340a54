// Package report renders measurement results for the console.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/netsys-lab/speedtest/api"
	"github.com/netsys-lab/speedtest/dataplane"
	"github.com/netsys-lab/speedtest/utils"
)

const (
	Accent = "#5fafff"
	Good   = "#5fffaf"
	Muted  = "#767676"
	Err    = "#ff5f87"
)

var (
	tcpStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(Accent))
	udpStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(Good))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(Muted))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(Err)).Bold(true)
	headerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color(Accent)).
			PaddingLeft(1)
)

// Transfer renders one result as a single line.
func Transfer(r *dataplane.Result) string {
	style := tcpStyle
	if r.Kind == dataplane.Unreliable {
		style = udpStyle
	}
	name := style.Render(fmt.Sprintf("%s transfer #%d", r.Kind, r.Index))

	if r.Err != nil {
		return fmt.Sprintf("%s %s %s", name, errorStyle.Render("failed:"), r.Err)
	}

	line := fmt.Sprintf("%s finished, total time: %.3f seconds, total speed: %.0f bits/second",
		name, r.Elapsed().Seconds(), r.BitsPerSecond())
	if r.Kind == dataplane.Unreliable {
		line += fmt.Sprintf(", percentage of packets received successfully: %.2f%%", r.SuccessRate())
		if r.SegmentsDuplicate > 0 || r.SegmentsInvalid > 0 || r.SegmentsMismatched > 0 {
			line += mutedStyle.Render(fmt.Sprintf(" (%d duplicate, %d invalid, %d mismatched)",
				r.SegmentsDuplicate, r.SegmentsInvalid, r.SegmentsMismatched))
		}
	}
	return line
}

// Session renders a header for the session followed by one line per transfer.
func Session(sr *api.SessionReport) string {
	var b strings.Builder
	header := fmt.Sprintf("Session %s with %s: %s in %.3f seconds",
		sr.ID, sr.Server.Addr.IP, utils.ByteCountSI(sr.TotalBytes()), sr.Elapsed().Seconds())
	if failed := sr.Failed(); failed > 0 {
		header += " " + errorStyle.Render(fmt.Sprintf("%d failed", failed))
	}
	b.WriteString(headerStyle.Render(header))
	for _, r := range sr.Results {
		b.WriteString("\n")
		b.WriteString(Transfer(r))
	}
	return b.String()
}
