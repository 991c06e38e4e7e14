// Package tui is the interactive todo list. It drives the store, keeps the
// stats header live and runs the push channel while open.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/push"
	"github.com/idilsaglam/tada/internal/stats"
	"github.com/idilsaglam/tada/internal/store"
	"github.com/idilsaglam/tada/internal/ui"
)

const refreshEvery = time.Second

// Deps are the long-lived components the TUI drives.
type Deps struct {
	Store        *store.Store
	Stats        *stats.Reconciler
	Push         *push.Channel // optional
	UserName     string
	Admin        bool
	SyncInterval time.Duration
	Logger       *slog.Logger
}

type mode int

const (
	browsing mode = iota
	addingTitle
	addingDesc
	editing
)

type (
	loadedMsg  struct{ err error }
	mutatedMsg struct {
		verb string
		err  error
	}
	refreshMsg struct{}
	copiedMsg  struct {
		title string
		err   error
	}
)

var keys = struct {
	toggle, add, edit, del, reload, yank, quit key.Binding
}{
	toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	del:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	yank:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),
	quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type modelTUI struct {
	ctx  context.Context
	deps Deps
	log  *slog.Logger

	list    list.Model
	spinner spinner.Model
	ti      textinput.Model // shared text input (add & edit)
	mode    mode
	draft   model.Draft
	editID  int64
	status  string
	err     string

	width, height int
}

func newModel(ctx context.Context, d Deps) modelTUI {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := list.New(toItems(d.Store.Items()), itemDelegate{showOwner: d.Admin}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Muted
	l.Styles.PaginationStyle = ui.Current().Muted
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	extra := func() []key.Binding {
		return []key.Binding{keys.toggle, keys.add, keys.edit, keys.del, keys.reload, keys.yank}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 255

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := modelTUI{ctx: ctx, deps: d, log: logger, list: l, ti: ti, spinner: sp}
	m.list.Title = m.header()
	return m
}

func (m modelTUI) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spinner.Tick, refreshTick())
}

func refreshTick() tea.Cmd {
	return tea.Tick(refreshEvery, func(time.Time) tea.Msg { return refreshMsg{} })
}

func (m modelTUI) loadCmd() tea.Cmd {
	st, rec, ctx := m.deps.Store, m.deps.Stats, m.ctx
	return func() tea.Msg {
		_, err := st.Load(ctx, model.Filter{})
		if rec != nil {
			rec.Resync(ctx)
		}
		return loadedMsg{err: err}
	}
}

func (m modelTUI) mutate(verb string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return mutatedMsg{verb: verb, err: fn(ctx)} }
}

func (m modelTUI) selected() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it.todo, ok
}

// sync pulls the store's list, which push events may have changed.
func (m *modelTUI) sync() tea.Cmd {
	m.list.Title = m.header()
	return m.list.SetItems(toItems(m.deps.Store.Items()))
}

func (m modelTUI) header() string {
	var st model.Stats
	if m.deps.Stats != nil {
		st = m.deps.Stats.CurrentStats()
	} else {
		st = m.deps.Store.CurrentStats()
	}
	h := ui.StatsLine("Todos", st)
	if m.deps.UserName != "" {
		h += "  " + ui.Current().Muted.Render(m.deps.UserName)
	}
	if m.deps.Push != nil {
		h += "  " + ui.Current().Muted.Render("live: "+string(m.deps.Push.State()))
	}
	return h
}

func (m modelTUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshMsg:
		if m.list.FilterState() == list.Filtering {
			return m, refreshTick()
		}
		return m, tea.Batch(m.sync(), refreshTick())

	case loadedMsg:
		m.err = ""
		if msg.err != nil {
			m.err = msg.err.Error()
		} else {
			m.status = fmt.Sprintf("loaded %d todos", m.deps.Store.Len())
		}
		return m, m.sync()

	case mutatedMsg:
		m.err = ""
		if msg.err != nil {
			m.err = msg.verb + ": " + msg.err.Error()
		} else {
			m.status = msg.verb
		}
		return m, m.sync()

	case copiedMsg:
		if msg.err != nil {
			m.err = "copy: " + msg.err.Error()
		} else {
			m.status = "copied " + msg.title
		}
		return m, nil
	}

	if m.mode != browsing {
		return m.updateInput(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(km, keys.quit):
			return m, tea.Quit
		case key.Matches(km, keys.toggle):
			if td, ok := m.selected(); ok {
				id := td.ID
				return m, m.mutate("toggled", func(ctx context.Context) error {
					_, err := m.deps.Store.Toggle(ctx, id)
					return err
				})
			}
			return m, nil
		case key.Matches(km, keys.del):
			if td, ok := m.selected(); ok {
				id := td.ID
				return m, m.mutate("deleted", func(ctx context.Context) error {
					return m.deps.Store.Delete(ctx, id)
				})
			}
			return m, nil
		case key.Matches(km, keys.add):
			m.draft = model.Draft{}
			m.startInput(addingTitle, "", "New todo title...")
			return m, textinput.Blink
		case key.Matches(km, keys.edit):
			if td, ok := m.selected(); ok {
				m.editID = td.ID
				m.startInput(editing, td.Title, "Edit title...")
				return m, textinput.Blink
			}
			return m, nil
		case key.Matches(km, keys.reload):
			m.status = "reloading"
			return m, m.loadCmd()
		case key.Matches(km, keys.yank):
			if td, ok := m.selected(); ok {
				title := td.Title
				return m, func() tea.Msg {
					return copiedMsg{title: title, err: clipboard.WriteAll(title)}
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *modelTUI) startInput(md mode, value, placeholder string) {
	m.mode = md
	m.err = ""
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.ti.Focus()
	m.resize()
}

func (m *modelTUI) stopInput() {
	m.mode = browsing
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

func (m modelTUI) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			m.stopInput()
			return m, nil
		case "enter":
			value := strings.TrimSpace(m.ti.Value())
			switch m.mode {
			case addingTitle:
				if value == "" {
					m.err = model.ErrTitleRequired.Error()
					return m, nil
				}
				m.draft.Title = value
				m.startInput(addingDesc, "", "Description...")
				return m, nil
			case addingDesc:
				if value == "" {
					m.err = model.ErrDescriptionRequired.Error()
					return m, nil
				}
				m.draft.Description = value
				d := m.draft
				m.stopInput()
				return m, m.mutate("added", func(ctx context.Context) error {
					_, err := m.deps.Store.Create(ctx, d)
					return err
				})
			case editing:
				if value == "" {
					m.err = model.ErrTitleRequired.Error()
					return m, nil
				}
				id := m.editID
				m.stopInput()
				return m, m.mutate("updated", func(ctx context.Context) error {
					_, err := m.deps.Store.Update(ctx, id, model.Patch{Title: &value})
					return err
				})
			}
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *modelTUI) resize() {
	if m.width == 0 {
		return
	}
	h := m.height - 5
	if m.mode != browsing {
		h -= 4
	}
	m.list.SetSize(m.width-4, h)
}

func (m modelTUI) View() string {
	content := m.list.View()
	th := ui.Current()

	if m.mode != browsing {
		bar := lipgloss.NewStyle().Border(th.Border).BorderForeground(th.BorderColor).Padding(0, 1)
		title := map[mode]string{
			addingTitle: "New todo: title",
			addingDesc:  "New todo: description",
			editing:     "Edit title",
		}[m.mode]
		if m.err != "" {
			title += " " + th.Error.Render(m.err)
		}
		content += "\n" + bar.Render(title+"\n"+m.ti.View())
	}

	var footer string
	switch {
	case m.deps.Store.Loading():
		footer = m.spinner.View() + " working..."
	case m.err != "" && m.mode == browsing:
		footer = th.Error.Render("✖ " + m.err)
	case m.status != "":
		footer = th.Muted.Render(m.status)
	}
	if footer != "" {
		content += "\n" + footer
	}
	return ui.Panel([]string{content})
}
