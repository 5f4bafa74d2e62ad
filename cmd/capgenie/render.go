package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/capgenie/capgenie/internal/journal"
	"github.com/capgenie/capgenie/internal/timeline"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	trackStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

type trackGroup struct {
	kind  timeline.Kind
	index int
	clips []timeline.Sequence
}

// renderTimeline prints clips grouped by track, in the order tracks first
// appear in the exported sequences.
func renderTimeline(dir string, result *timeline.ExportResult) string {
	var groups []*trackGroup
	byKey := map[string]*trackGroup{}
	var end float64
	for _, seq := range result.Sequences {
		key := timeline.TrackID(seq.Type, seq.ResolvedTrackIndex())
		g, ok := byKey[key]
		if !ok {
			g = &trackGroup{kind: seq.Type, index: seq.ResolvedTrackIndex()}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.clips = append(g.clips, seq)
		end = max(end, seq.EndTime)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(filepath.Base(dir)))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d clips, %d tracks, %.3fs", len(result.Sequences), len(groups), end)))
	b.WriteString("\n")

	for _, g := range groups {
		b.WriteString("\n")
		b.WriteString(trackStyle.Render(timeline.TrackName(g.kind, g.index)))
		b.WriteString(dimStyle.Render("  " + timeline.TrackID(g.kind, g.index)))
		b.WriteString("\n")
		for _, c := range g.clips {
			b.WriteString(fmt.Sprintf("  %9.3f - %-9.3f %s", c.StartTime, c.EndTime, filepath.Base(c.Path)))
			details := fmt.Sprintf("  src %.3f-%.3f  vol %.2f", c.ResolvedSourceIn(), c.ResolvedSourceOut(), c.ResolvedVolume())
			if c.HasFade() {
				details += fmt.Sprintf("  fade %.2f/%.2f", c.FadeInDuration, c.FadeOutDuration)
			}
			b.WriteString(dimStyle.Render(details))
			b.WriteString("\n")
		}
	}

	if len(result.Skipped) > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d segments skipped (material not found):", len(result.Skipped))))
		b.WriteString("\n")
		for _, s := range result.Skipped {
			b.WriteString(fmt.Sprintf("  %s on %s -> %s\n", s.SegmentID, s.TrackID, s.MaterialID))
		}
	}
	return b.String()
}

func renderRuns(runs []*journal.Run) string {
	var b strings.Builder
	b.WriteString(trackStyle.Render(fmt.Sprintf("%-19s  %-7s  %-9s  %-24s  %s", "WHEN", "KIND", "STATUS", "PROJECT", "DETAIL")))
	b.WriteString("\n")
	for _, r := range runs {
		status := fmt.Sprintf("%-9s", r.Status)
		switch r.Status {
		case journal.RunStatusCompleted:
			status = okStyle.Render(status)
		case journal.RunStatusFailed:
			status = failStyle.Render(status)
		default:
			status = runningStyle.Render(status)
		}

		detail := fmt.Sprintf("%d tracks, %d segments", r.Tracks, r.Segments)
		if r.Skipped > 0 {
			detail += fmt.Sprintf(", %d skipped", r.Skipped)
		}
		if r.Error != "" {
			detail = r.Error
		}

		b.WriteString(fmt.Sprintf("%-19s  %-7s  %s  %-24s  %s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Kind,
			status,
			truncate(filepath.Base(r.ProjectDir), 24),
			detail,
		))
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "~"
}
