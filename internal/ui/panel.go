package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/tada/internal/model"
)

// ProgressBar renders a Unicode progress bar with percentage.
func ProgressBar(done, total, width int) string {
	if total <= 0 {
		total = 1
	}
	if width < 5 {
		width = 5
	}
	filled := int(float64(done) / float64(total) * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	pct := int(float64(done) / float64(total) * 100)
	return fmt.Sprintf("%s %3d%%", bar, pct)
}

// Panel frames lines with the current theme's border.
func Panel(lines []string) string {
	t := current
	border := lipgloss.NewStyle().
		Border(t.Border).
		BorderForeground(t.BorderColor).
		Padding(0, 1)
	return border.Render(strings.Join(lines, "\n"))
}

// StatsLine is the one-line summary used by list headers.
func StatsLine(label string, st model.Stats) string {
	t := current
	return fmt.Sprintf("%s   %s %d  %s %d  %s %d  %s %d",
		t.Title.Render(label),
		t.Success.Render(t.SymDone), st.Completed,
		t.Pending.Render(t.SymPending), st.Incomplete,
		t.Overdue.Render(t.SymOverdue), st.Overdue,
		t.Accent.Render("Total"), st.Total,
	)
}

// TodoLine renders one todo as "box title  [due]".
func TodoLine(td model.Todo, maxTitle int) string {
	t := current
	box := t.Muted.Render(t.BoxUnchecked)
	title := truncate(td.Title, maxTitle)
	switch {
	case td.IsCompleted:
		box = t.Success.Render(t.BoxChecked)
		title = t.Done.Render(title)
	case td.IsOverdue:
		box = t.Overdue.Render(t.BoxUnchecked)
	}
	line := box + " " + title
	if td.DueDate != nil {
		due := "due " + td.DueDate.Format("2006-01-02")
		if td.IsOverdue && !td.IsCompleted {
			due = t.Overdue.Render(due + " " + t.SymOverdue)
		} else {
			due = t.Muted.Render(due)
		}
		line += "  " + due
	}
	return line
}

func truncate(s string, n int) string {
	if n <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
