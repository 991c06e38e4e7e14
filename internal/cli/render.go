package cli

import (
	"fmt"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/ui"
)

const titleWidth = 60

func todoLine(t model.Todo, showOwner bool) string {
	th := ui.Current()
	line := fmt.Sprintf("%s %s", th.Muted.Render(fmt.Sprintf("#%-4d", t.ID)), ui.TodoLine(t, titleWidth))
	if showOwner && t.User.Name != "" {
		line += "  " + th.Muted.Render("@"+t.User.Name)
	}
	return line
}

func flatLines(items []model.Todo, showOwner bool) []string {
	if len(items) == 0 {
		return []string{ui.Current().Muted.Render("no todos")}
	}
	out := make([]string, 0, len(items))
	for _, t := range items {
		out = append(out, todoLine(t, showOwner))
	}
	return out
}

func groupLines(items []model.Todo, showOwner bool) []string {
	var overdue, pending, done []model.Todo
	for _, t := range items {
		switch {
		case t.IsCompleted:
			done = append(done, t)
		case t.IsOverdue:
			overdue = append(overdue, t)
		default:
			pending = append(pending, t)
		}
	}
	th := ui.Current()
	var lines []string
	section := func(name string, group []model.Todo) {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, th.Accent.Render(name))
		if len(group) == 0 {
			lines = append(lines, th.Muted.Render("(none)"))
			return
		}
		lines = append(lines, flatLines(group, showOwner)...)
	}
	section("Overdue", overdue)
	section("Pending", pending)
	section("Done", done)
	return lines
}

func listPanel(items []model.Todo, st model.Stats, group, showOwner bool) string {
	lines := []string{
		ui.StatsLine("Todos", st),
		ui.Current().Muted.Render(ui.ProgressBar(st.Completed, st.Total, 28)),
		"",
	}
	if group {
		lines = append(lines, groupLines(items, showOwner)...)
	} else {
		lines = append(lines, flatLines(items, showOwner)...)
	}
	lines = append(lines, "", ui.Current().Muted.Render("Tip: add with `tada add \"Buy milk\" --desc \"2 litres\"`"))
	return ui.Panel(lines)
}

func detailPanel(t model.Todo) string {
	th := ui.Current()
	status := th.Pending.Render("pending")
	switch {
	case t.IsCompleted:
		status = th.Success.Render("completed")
	case t.IsOverdue:
		status = th.Overdue.Render("overdue")
	}
	lines := []string{
		th.Title.Render(fmt.Sprintf("#%d %s", t.ID, t.Title)),
		"",
		t.Description,
		"",
		"status:  " + status,
	}
	if t.DueDate != nil {
		lines = append(lines, "due:     "+t.DueDate.Format("2006-01-02 15:04"))
	}
	if t.CompletedAt != nil {
		lines = append(lines, "done at: "+t.CompletedAt.Format("2006-01-02 15:04"))
	}
	if t.User.Name != "" {
		lines = append(lines, fmt.Sprintf("owner:   %s <%s>", t.User.Name, t.User.Email))
	}
	if !t.CreatedAt.IsZero() {
		lines = append(lines, th.Muted.Render("created "+t.CreatedAt.Format("2006-01-02 15:04")))
	}
	return ui.Panel(lines)
}

func statsPanel(title string, p model.StatsPercentages) string {
	th := ui.Current()
	row := func(label string, n, pct int, style func(...string) string) string {
		return fmt.Sprintf("%-11s %s %4d", label, style(ui.ProgressBar(pct, 100, 20)), n)
	}
	lines := []string{
		th.Title.Render(title),
		"",
		row("completed", p.Completed, p.CompletedPct, th.Success.Render),
		row("incomplete", p.Incomplete, p.IncompletePct, th.Pending.Render),
		row("overdue", p.Overdue, p.OverduePct, th.Overdue.Render),
		"",
		fmt.Sprintf("%-11s %d", "total", p.Total),
	}
	return ui.Panel(lines)
}

func breakdownLines(rows []model.OwnerStats) []string {
	th := ui.Current()
	if len(rows) == 0 {
		return []string{th.Muted.Render("no users")}
	}
	out := []string{th.Accent.Render(fmt.Sprintf("%-20s %7s %9s", "user", "todos", "completed"))}
	for _, r := range rows {
		out = append(out, fmt.Sprintf("%-20s %7d %9d", truncateName(r.Name, 20), r.TodosCount, r.CompletedTodosCount))
	}
	return out
}

func truncateName(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
