package app_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/app"
	"taskboard/internal/config"
	"taskboard/internal/controller"
	"taskboard/internal/domain"
	"taskboard/internal/notify"
)

func startBackend(t *testing.T, cfg *config.Config) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cfg.Server.Workspace = t.TempDir()
	b, err := app.OpenBackend(ctx, cfg.Server, nil)
	require.NoError(t, err)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- b.ServeListener(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		b.Close()
	})
	return "http://" + ln.Addr().String() + cfg.Server.BasePath
}

func TestBoardAgainstBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RecountEvery = 0
	cfg.Client.BaseURL = startBackend(t, cfg)
	cfg.Client.Timeout = 5 * time.Second

	c, err := app.NewClient(cfg, nil)
	require.NoError(t, err)
	board := c.TaskBoard()
	ctx := context.Background()

	require.NoError(t, board.Load(ctx))
	snap := board.Snapshot()
	assert.Equal(t, controller.Loaded, snap.State)
	assert.Empty(t, snap.Tasks)

	cat, err := board.CreateCategory(ctx, domain.CategoryInput{Name: "Home"})
	require.NoError(t, err)
	task, err := board.CreateTask(ctx, domain.TaskInput{Title: "Water plants", CategoryID: &cat.ID})
	require.NoError(t, err)
	toggled, err := board.ToggleComplete(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	snap = board.Snapshot()
	require.Len(t, snap.Completed, 1)
	require.Len(t, snap.Categories, 1)
	assert.Equal(t, 1, snap.Categories[0].TaskCount)

	notes := c.Notices.List()
	require.Len(t, notes, 3)
	assert.Equal(t, "Category created successfully!", notes[0].Text)
	assert.Equal(t, "Task created successfully!", notes[1].Text)
	assert.Equal(t, "Task completed!", notes[2].Text)
	for _, n := range notes {
		assert.Equal(t, notify.LevelSuccess, n.Level)
	}

	// A fresh board sees what the first one wrote.
	other := c.TaskBoard()
	require.NoError(t, other.Load(ctx))
	require.Len(t, other.Snapshot().Tasks, 1)
	assert.True(t, other.Snapshot().Tasks[0].Completed)
}

func TestProjectBoardAgainstBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Server.RecountEvery = 0
	cfg.Client.BaseURL = startBackend(t, cfg)

	c, err := app.NewClient(cfg, nil)
	require.NoError(t, err)
	board := c.ProjectBoard()
	ctx := context.Background()
	require.NoError(t, board.Load(ctx))

	_, err = board.Create(ctx, domain.ProjectInput{Name: "Alpha", Tags: []string{"infra"}})
	require.NoError(t, err)
	_, err = board.Create(ctx, domain.ProjectInput{Name: "Beta"})
	require.NoError(t, err)

	snap := board.Snapshot()
	require.Len(t, snap.Projects, 2)
	assert.Equal(t, "Beta", snap.Projects[0].Name)

	board.SetSearch("INFRA")
	snap = board.Snapshot()
	require.Len(t, snap.Visible, 1)
	assert.Equal(t, "Alpha", snap.Visible[0].Name)
}

func TestUnreachableBackendIsError(t *testing.T) {
	cfg := config.Default()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.Client.BaseURL = "http://" + ln.Addr().String() + "/v0"
	require.NoError(t, ln.Close())

	c, err := app.NewClient(cfg, nil)
	require.NoError(t, err)
	board := c.TaskBoard()
	require.Error(t, board.Load(context.Background()))
	snap := board.Snapshot()
	assert.Equal(t, controller.Error, snap.State)
	assert.Nil(t, snap.Tasks)
	assert.Contains(t, snap.ErrorMessage(), "unreachable")
}

func TestNewClientValidatesConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Board.TogglePolicy = "sometimes"
	_, err := app.NewClient(cfg, nil)
	assert.Error(t, err)
}
