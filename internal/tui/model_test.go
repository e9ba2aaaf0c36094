package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/controller"
	"taskboard/internal/domain"
	"taskboard/internal/fault"
	"taskboard/internal/notify"
	"taskboard/internal/repository"
)

type memTasks struct {
	mu      sync.Mutex
	next    int64
	items   map[int64]domain.Task
	listErr error
}

func newMemTasks(titles ...string) *memTasks {
	m := &memTasks{items: map[int64]domain.Task{}}
	for _, title := range titles {
		m.next++
		m.items[m.next] = domain.Task{ID: m.next, Title: title, Priority: domain.PriorityMedium, CreatedAt: time.Unix(m.next, 0)}
	}
	return m
}

func (m *memTasks) List(context.Context, repository.TaskQuery) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.Task, 0, len(m.items))
	for id := int64(1); id <= m.next; id++ {
		if t, ok := m.items[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTasks) Get(_ context.Context, id int64) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return domain.Task{}, fault.NotFoundf("task %d not found", id)
	}
	return t, nil
}

func (m *memTasks) Create(_ context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	t := domain.Task{ID: m.next, Title: in.Title, Priority: in.Priority, CreatedAt: time.Unix(m.next, 0)}
	m.items[t.ID] = t
	return t, nil
}

func (m *memTasks) Update(_ context.Context, id int64, u domain.TaskUpdate) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[id]
	if !ok {
		return domain.Task{}, fault.NotFoundf("task %d not found", id)
	}
	if v, ok := u.Completed.Value(); ok {
		t.Completed = v
	}
	if u.CompletedAt.IsSet() {
		t.CompletedAt = u.CompletedAt.Ptr()
	}
	m.items[id] = t
	return t, nil
}

func (m *memTasks) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fault.NotFoundf("task %d not found", id)
	}
	delete(m.items, id)
	return nil
}

func (m *memTasks) MarkComplete(ctx context.Context, id int64) (domain.Task, error) {
	return m.Update(ctx, id, domain.TaskUpdate{Completed: domain.Set(true), CompletedAt: domain.Set(time.Now())})
}

func (m *memTasks) MarkIncomplete(ctx context.Context, id int64) (domain.Task, error) {
	return m.Update(ctx, id, domain.TaskUpdate{Completed: domain.Set(false), CompletedAt: domain.Clear[time.Time]()})
}

type memCategories struct{ items []domain.Category }

func (m *memCategories) List(context.Context) ([]domain.Category, error) {
	return append([]domain.Category(nil), m.items...), nil
}

func (m *memCategories) Create(_ context.Context, in domain.CategoryInput) (domain.Category, error) {
	c := domain.Category{ID: int64(len(m.items) + 1), Name: in.Name}
	m.items = append(m.items, c)
	return c, nil
}

func (m *memCategories) Update(_ context.Context, id int64, _ domain.CategoryUpdate) (domain.Category, error) {
	return domain.Category{ID: id}, nil
}

func (m *memCategories) Delete(context.Context, int64) error { return nil }

func (m *memCategories) UpdateTaskCount(_ context.Context, id int64, count int) (domain.Category, error) {
	return domain.Category{ID: id, TaskCount: count}, nil
}

func newModel(t *testing.T, tasks *memTasks, cats *memCategories) (*Model, *controller.TaskBoard, *notify.Center) {
	t.Helper()
	center := notify.NewCenter()
	board := controller.NewTaskBoard(tasks, cats, controller.Options{
		Notifier: center,
		Messages: notify.MustCatalog(notify.LanguageEn),
	})
	return New(context.Background(), board, center), board, center
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m *Model, s string) {
	t.Helper()
	m.Update(keyPress(s))
}

// pressRun sends a key, runs the board command it returns and feeds the result back.
func pressRun(t *testing.T, m *Model, s string) {
	t.Helper()
	_, cmd := m.Update(keyPress(s))
	require.NotNil(t, cmd)
	msg := cmd()
	switch msg.(type) {
	case loadedMsg, mutatedMsg:
	default:
		t.Fatalf("unexpected message %T", msg)
	}
	m.Update(msg)
}

func loaded(t *testing.T, m *Model) {
	t.Helper()
	m.Update(m.load()())
}

func TestLoadRendersTasks(t *testing.T) {
	m, _, _ := newModel(t, newMemTasks("Buy milk", "Call mom"), &memCategories{})
	assert.Contains(t, m.View(), "Loading")
	loaded(t, m)
	view := m.View()
	assert.Contains(t, view, "Buy milk")
	assert.Contains(t, view, "Call mom")
	assert.Contains(t, view, "2 active · 0 done")
}

func TestEmptyBoardHint(t *testing.T) {
	m, _, _ := newModel(t, newMemTasks(), &memCategories{})
	loaded(t, m)
	assert.Contains(t, m.View(), "No tasks yet")
}

func TestToggleCompletesSelectedTask(t *testing.T) {
	m, board, center := newModel(t, newMemTasks("Buy milk", "Call mom"), &memCategories{})
	loaded(t, m)
	press(t, m, "j")
	pressRun(t, m, "x")

	snap := board.Snapshot()
	require.Len(t, snap.Completed, 1)
	assert.Equal(t, "Call mom", snap.Completed[0].Title)
	assert.Contains(t, m.View(), "[x]")
	require.Len(t, center.List(), 1)
	assert.Equal(t, "Task completed!", center.List()[0].Text)
}

func TestAddTaskWithPriority(t *testing.T) {
	m, board, _ := newModel(t, newMemTasks(), &memCategories{})
	loaded(t, m)
	press(t, m, "n")
	assert.Equal(t, modeAdd, m.mode)
	press(t, m, "Walk the dog !high")
	pressRun(t, m, "enter")

	assert.Equal(t, modeBrowse, m.mode)
	snap := board.Snapshot()
	require.Len(t, snap.Tasks, 1)
	assert.Equal(t, "Walk the dog", snap.Tasks[0].Title)
	assert.Equal(t, domain.PriorityHigh, snap.Tasks[0].Priority)
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, board, _ := newModel(t, newMemTasks("Buy milk"), &memCategories{})
	loaded(t, m)
	press(t, m, "d")
	assert.Contains(t, m.View(), "Delete this task?")
	press(t, m, "n")
	assert.Len(t, board.Snapshot().Tasks, 1)

	press(t, m, "d")
	pressRun(t, m, "y")
	assert.Empty(t, board.Snapshot().Tasks)
}

func TestFilterKeys(t *testing.T) {
	m, board, _ := newModel(t, newMemTasks("Buy milk", "Call mom"), &memCategories{items: []domain.Category{{ID: 7, Name: "Home"}}})
	loaded(t, m)

	press(t, m, "s")
	assert.Equal(t, controller.StatusActive, board.Snapshot().Filter.Status)
	press(t, m, "p")
	assert.Equal(t, domain.PriorityLow, board.Snapshot().Filter.Priority)
	assert.Contains(t, m.View(), "No tasks match the current filters")
	press(t, m, "c")
	require.NotNil(t, board.Snapshot().Filter.CategoryID)
	assert.Equal(t, int64(7), *board.Snapshot().Filter.CategoryID)
	assert.Contains(t, m.View(), "category=Home")

	press(t, m, "0")
	assert.False(t, board.Snapshot().FilterActive)
}

func TestSearchNarrowsLive(t *testing.T) {
	m, board, _ := newModel(t, newMemTasks("Buy milk", "Call mom"), &memCategories{})
	loaded(t, m)
	press(t, m, "/")
	press(t, m, "milk")
	require.Len(t, board.Snapshot().Visible, 1)
	press(t, m, "enter")
	assert.Equal(t, "milk", board.Snapshot().Filter.Search)

	press(t, m, "/")
	press(t, m, "esc")
	assert.Len(t, board.Snapshot().Visible, 2)
}

func TestErrorViewAndRetry(t *testing.T) {
	tasks := newMemTasks("Buy milk")
	tasks.listErr = fault.Transportf(errors.New("refused"), "backend unreachable: refused")
	m, board, _ := newModel(t, tasks, &memCategories{})
	loaded(t, m)

	view := m.View()
	assert.Contains(t, view, "Could not load the board")
	assert.Contains(t, view, "backend unreachable")
	assert.Contains(t, view, "Press r to retry")

	tasks.mu.Lock()
	tasks.listErr = nil
	tasks.mu.Unlock()
	pressRun(t, m, "r")
	assert.Equal(t, controller.Loaded, board.Snapshot().State)
	assert.Contains(t, m.View(), "Buy milk")
}

func TestParseTaskLine(t *testing.T) {
	assert.Equal(t, domain.TaskInput{Title: "Ship it", Priority: domain.PriorityLow}, parseTaskLine("  Ship it !low "))
	assert.Equal(t, domain.TaskInput{Title: "Ship it !soon"}, parseTaskLine("Ship it !soon"))
	assert.Equal(t, domain.TaskInput{Title: "!high"}, parseTaskLine("!high"))
}
