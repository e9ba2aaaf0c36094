// Package tui is the interactive terminal board.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"taskboard/internal/controller"
	"taskboard/internal/domain"
	"taskboard/internal/notify"
)

// NoticeTTL is how long a notification stays on screen.
const NoticeTTL = 5 * time.Second

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeSearch
	modeConfirmDelete
)

type loadedMsg struct{ err error }

type mutatedMsg struct{ err error }

type expireMsg struct{}

// Model renders a TaskBoard and turns key presses into board calls. The board
// owns all state; the model only keeps the cursor and input modes.
type Model struct {
	ctx     context.Context
	board   *controller.TaskBoard
	notices *notify.Center
	keys    keyMap
	styles  styles
	spinner spinner.Model
	input   textinput.Model

	mode     mode
	cursor   int
	deleteID int64
	width    int
	height   int
}

func New(ctx context.Context, board *controller.TaskBoard, notices *notify.Center) *Model {
	in := textinput.New()
	in.CharLimit = 200
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(palette.Warning)
	if notices == nil {
		notices = notify.NewCenter()
	}
	return &Model{
		ctx:     ctx,
		board:   board,
		notices: notices,
		keys:    defaultKeyMap(),
		styles:  newStyles(),
		spinner: sp,
		input:   in,
	}
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, board *controller.TaskBoard, notices *notify.Center) error {
	_, err := tea.NewProgram(New(ctx, board, notices), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.spinner.Tick)
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.board.Load(m.ctx)}
	}
}

// mutate runs fn off the UI goroutine; the board records the pending op.
func (m *Model) mutate(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return mutatedMsg{err: fn(m.ctx)}
	}
}

func expireLater() tea.Cmd {
	return tea.Tick(NoticeTTL, func(time.Time) tea.Msg { return expireMsg{} })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case loadedMsg:
		m.clampCursor()
		return m, nil
	case mutatedMsg:
		m.clampCursor()
		return m, expireLater()
	case expireMsg:
		m.expireNotices()
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch m.mode {
		case modeAdd:
			return m.updateAdd(msg)
		case modeSearch:
			return m.updateSearch(msg)
		case modeConfirmDelete:
			return m.updateConfirmDelete(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m *Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Reload) {
		return m, m.load()
	}
	if key.Matches(msg, m.keys.Dismiss) {
		m.notices.Clear()
		return m, nil
	}
	snap := m.board.Snapshot()
	if snap.State != controller.Loaded {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(snap.Visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.New):
		m.mode = modeAdd
		m.input.Reset()
		m.input.Placeholder = "Task title"
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.input.Placeholder = "Search title or description"
		m.input.SetValue(snap.Filter.Search)
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Toggle):
		if t, ok := m.selected(snap); ok {
			id := t.ID
			return m, m.mutate(func(ctx context.Context) error {
				_, err := m.board.ToggleComplete(ctx, id)
				return err
			})
		}
	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(snap); ok {
			m.mode = modeConfirmDelete
			m.deleteID = t.ID
		}
	case key.Matches(msg, m.keys.Status):
		_ = m.board.SetStatusFilter(nextStatus(snap.Filter.Status))
		m.cursor = 0
	case key.Matches(msg, m.keys.Priority):
		_ = m.board.SetPriorityFilter(string(nextPriority(snap.Filter.Priority)))
		m.cursor = 0
	case key.Matches(msg, m.keys.Category):
		m.board.SetCategory(nextCategory(snap.Categories, snap.Filter.CategoryID))
		m.cursor = 0
	case key.Matches(msg, m.keys.Reset):
		m.board.ResetFilters()
		m.cursor = 0
	}
	return m, nil
}

func (m *Model) updateAdd(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		in := parseTaskLine(m.input.Value())
		if strings.TrimSpace(in.Title) == "" {
			return m, nil
		}
		m.mode = modeBrowse
		m.input.Blur()
		return m, m.mutate(func(ctx context.Context) error {
			_, err := m.board.CreateTask(ctx, in)
			return err
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.board.SetSearch("")
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.board.SetSearch(m.input.Value())
	m.cursor = 0
	return m, cmd
}

func (m *Model) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		id := m.deleteID
		m.mode = modeBrowse
		return m, m.mutate(func(ctx context.Context) error {
			return m.board.DeleteTask(ctx, id)
		})
	case "n", "N", "esc":
		m.mode = modeBrowse
	}
	return m, nil
}

func (m *Model) selected(snap controller.TaskSnapshot) (domain.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(snap.Visible) {
		return domain.Task{}, false
	}
	return snap.Visible[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.board.Snapshot().Visible)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) expireNotices() {
	cutoff := time.Now().Add(-NoticeTTL)
	for _, n := range m.notices.List() {
		if !n.At.After(cutoff) {
			m.notices.Dismiss(n.ID)
		}
	}
}

// parseTaskLine reads "title !priority". An unknown priority stays in the title.
func parseTaskLine(line string) domain.TaskInput {
	var in domain.TaskInput
	words := strings.Fields(line)
	if n := len(words); n > 1 && strings.HasPrefix(words[n-1], "!") {
		if p, err := domain.ParsePriority(strings.TrimPrefix(words[n-1], "!")); err == nil {
			in.Priority = p
			words = words[:n-1]
		}
	}
	in.Title = strings.Join(words, " ")
	return in
}

func nextStatus(cur controller.StatusFilter) controller.StatusFilter {
	switch cur {
	case controller.StatusActive:
		return controller.StatusCompleted
	case controller.StatusCompleted:
		return controller.StatusAll
	}
	return controller.StatusActive
}

func nextPriority(cur domain.Priority) domain.Priority {
	if cur == "" {
		return domain.Priorities[0]
	}
	for i, p := range domain.Priorities {
		if p == cur && i+1 < len(domain.Priorities) {
			return domain.Priorities[i+1]
		}
	}
	return ""
}

func nextCategory(cats []domain.Category, cur *int64) *int64 {
	if len(cats) == 0 {
		return nil
	}
	if cur == nil {
		id := cats[0].ID
		return &id
	}
	for i, c := range cats {
		if c.ID == *cur && i+1 < len(cats) {
			id := cats[i+1].ID
			return &id
		}
	}
	return nil
}

func (m *Model) View() string {
	snap := m.board.Snapshot()
	s := m.styles
	var b strings.Builder

	b.WriteString(s.Title.Render("Tasks"))
	if snap.State == controller.Loaded {
		b.WriteString(s.Muted.Render(fmt.Sprintf("  %d active · %d done", len(snap.Active), len(snap.Completed))))
	}
	b.WriteString("\n")
	if snap.FilterActive {
		b.WriteString(s.Filter.Render(describeFilter(snap)) + "\n")
	}
	b.WriteString("\n")

	switch snap.State {
	case controller.Idle, controller.Loading:
		b.WriteString(m.spinner.View() + " Loading…\n")
	case controller.Error:
		card := lipgloss.JoinVertical(lipgloss.Left,
			s.Error.Bold(true).Render("Could not load the board"),
			"",
			snap.ErrorMessage(),
			"",
			s.Muted.Render("Press r to retry, q to quit"),
		)
		b.WriteString(s.ErrorCard.Render(card) + "\n")
	case controller.Loaded:
		b.WriteString(m.renderTasks(snap))
	}

	switch m.mode {
	case modeAdd:
		b.WriteString("\n" + s.Title.Render("New: ") + m.input.View() + "\n")
		b.WriteString(s.Muted.Render("enter save · esc cancel · end with !high to set priority") + "\n")
	case modeSearch:
		b.WriteString("\n" + s.Title.Render("/ ") + m.input.View() + "\n")
	case modeConfirmDelete:
		b.WriteString("\n" + s.Error.Render("Delete this task? (y/n)") + "\n")
	}

	for _, n := range tail(m.notices.List(), 3) {
		style := s.Muted
		switch n.Level {
		case notify.LevelSuccess:
			style = s.Success
		case notify.LevelError:
			style = s.Error
		}
		b.WriteString(style.Render("• "+n.Text) + "\n")
	}
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) renderTasks(snap controller.TaskSnapshot) string {
	s := m.styles
	if len(snap.Visible) == 0 {
		if snap.FilterActive {
			return s.Muted.Render("No tasks match the current filters. Press 0 to clear them.") + "\n"
		}
		return s.Muted.Render("No tasks yet. Press n to add one.") + "\n"
	}
	names := make(map[int64]string, len(snap.Categories))
	for _, c := range snap.Categories {
		names[c.ID] = c.Name
	}
	var b strings.Builder
	for i, t := range snap.Visible {
		box := "[ ]"
		title := s.Item.Render(t.Title)
		if t.Completed {
			box = "[x]"
			title = s.Done.Render(t.Title)
		}
		line := fmt.Sprintf("%s %s %s", box, title, s.Priority[string(t.Priority)].Render(string(t.Priority)))
		if t.CategoryID != nil {
			line += s.Muted.Render(" #" + names[*t.CategoryID])
		}
		if t.DueDate != nil {
			line += s.Muted.Render(" due " + t.DueDate.Format("2006-01-02"))
		}
		if snap.Busy(t.ID) {
			line += " " + m.spinner.View()
		}
		if i == m.cursor {
			line = s.Selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func describeFilter(snap controller.TaskSnapshot) string {
	var parts []string
	f := snap.Filter
	if f.Status != "" && f.Status != controller.StatusAll {
		parts = append(parts, "status="+string(f.Status))
	}
	if f.Priority != "" {
		parts = append(parts, "priority="+string(f.Priority))
	}
	if f.CategoryID != nil {
		name := fmt.Sprintf("%d", *f.CategoryID)
		for _, c := range snap.Categories {
			if c.ID == *f.CategoryID {
				name = c.Name
			}
		}
		parts = append(parts, "category="+name)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		parts = append(parts, fmt.Sprintf("search=%q", q))
	}
	return "filter: " + strings.Join(parts, " ")
}

func (m *Model) renderHelp() string {
	k := m.keys
	bindings := []key.Binding{k.New, k.Toggle, k.Delete, k.Search, k.Status, k.Priority, k.Category, k.Reset, k.Reload, k.Quit}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, m.styles.HelpKey.Render(h.Key)+" "+h.Desc)
	}
	return m.styles.Help.Render(strings.Join(parts, " • "))
}

func tail[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
