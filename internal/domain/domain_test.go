package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
	"taskboard/internal/fault"
)

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"ops", "q3", "infra"}, domain.ParseTags(" ops, q3,, infra ,"))
	assert.Nil(t, domain.ParseTags(" , "))
	assert.Equal(t, "a,b", domain.JoinTags([]string{" a", "", "b "}))
}

func TestOptStates(t *testing.T) {
	var unset domain.Opt[string]
	assert.False(t, unset.IsSet())

	cleared := domain.Clear[string]()
	assert.True(t, cleared.IsSet())
	assert.True(t, cleared.IsNull())
	assert.Nil(t, cleared.Ptr())

	set := domain.Set("x")
	v, ok := set.Value()
	assert.True(t, ok)
	assert.Equal(t, "x", v)
	assert.False(t, set.IsNull())

	assert.True(t, domain.SetPtr[int64](nil).IsNull())
}

func TestTaskInputValidate(t *testing.T) {
	err := domain.TaskInput{Title: "  "}.Validate()
	require.Error(t, err)
	assert.Equal(t, fault.Validation, fault.KindOf(err))

	assert.Error(t, domain.TaskInput{Title: "a", Priority: "urgent"}.Validate())
	assert.NoError(t, domain.TaskInput{Title: "a", Priority: domain.PriorityHigh}.Validate())
}

func TestTaskUpdateCompletionPairing(t *testing.T) {
	now := time.Now()
	ok := domain.TaskUpdate{Completed: domain.Set(true), CompletedAt: domain.Set(now)}
	assert.NoError(t, ok.Validate())

	undo := domain.TaskUpdate{Completed: domain.Set(false), CompletedAt: domain.Clear[time.Time]()}
	assert.NoError(t, undo.Validate())

	bad := domain.TaskUpdate{Completed: domain.Set(true), CompletedAt: domain.Clear[time.Time]()}
	assert.Error(t, bad.Validate())

	half := domain.TaskUpdate{Completed: domain.Set(true)}
	assert.Error(t, half.Validate())

	assert.Error(t, domain.TaskUpdate{}.Validate())
}

func TestProjectDates(t *testing.T) {
	start := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)
	err := domain.ProjectInput{Name: "Launch", StartDate: &start, EndDate: &end}.Validate()
	require.Error(t, err)
	assert.Equal(t, fault.Validation, fault.KindOf(err))

	later := start.Add(48 * time.Hour)
	assert.NoError(t, domain.ProjectInput{Name: "Launch", StartDate: &start, EndDate: &later}.Validate())
}

func TestProjectUpdateApplyDates(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	p := domain.Project{StartDate: &start, EndDate: &end}

	newStart := end.AddDate(0, 0, 1)
	s, e := domain.ProjectUpdate{StartDate: domain.Set(newStart)}.ApplyDates(p)
	assert.Error(t, domain.CheckDates(s, e))

	s, e = domain.ProjectUpdate{EndDate: domain.Clear[time.Time]()}.ApplyDates(p)
	assert.Nil(t, e)
	assert.NoError(t, domain.CheckDates(s, e))
}

func TestParseProjectStatus(t *testing.T) {
	for in, want := range map[string]domain.ProjectStatus{
		"In Progress": domain.StatusInProgress,
		"in-progress": domain.StatusInProgress,
		"NotStarted":  domain.StatusNotStarted,
		"cancelled":   domain.StatusCancelled,
	} {
		got, err := domain.ParseProjectStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := domain.ParseProjectStatus("archived")
	assert.Error(t, err)
}

func TestTaskInvariant(t *testing.T) {
	now := time.Now()
	assert.NoError(t, domain.Task{ID: 1}.CheckInvariant())
	assert.NoError(t, domain.Task{ID: 1, Completed: true, CompletedAt: &now}.CheckInvariant())
	assert.Error(t, domain.Task{ID: 1, Completed: true}.CheckInvariant())
}
