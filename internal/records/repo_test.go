package records_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/db"
	"taskboard/internal/events"
	"taskboard/internal/migrate"
	"taskboard/internal/records"
	"taskboard/internal/store"
)

func newRepo(t *testing.T) (*records.Repo, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = migrate.Migrate(context.Background(), conn)
	require.NoError(t, err)
	r := records.New(conn, nil)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r.Now = func() time.Time { return now }
	r.Events.Now = r.Now
	return r, conn
}

func insertOne(t *testing.T, r *records.Repo, table string, f store.Fields) store.Record {
	t.Helper()
	res, err := r.Insert(context.Background(), table, "test", []store.Fields{f})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.True(t, res[0].Success, "%s: %v", res[0].Message, res[0].Errors)
	return res[0].Data
}

func TestInsertAppliesDefaults(t *testing.T) {
	r, _ := newRepo(t)
	cat := insertOne(t, r, "categories", store.Fields{"name": "Work"})
	assert.Equal(t, int64(0), cat["task_count"])

	task := insertOne(t, r, "tasks", store.Fields{"title": "Write report", "category_id": cat["Id"]})
	assert.Equal(t, "medium", task["priority"])
	assert.Equal(t, false, task["completed"])
	assert.Nil(t, task["completed_at"])
	assert.Equal(t, "2024-03-01T12:00:00Z", task["created_at"])
	assert.Equal(t, cat["Id"], task["category_id"])
}

func TestInsertReportsFieldErrorsPerRecord(t *testing.T) {
	r, _ := newRepo(t)
	res, err := r.Insert(context.Background(), "tasks", "test", []store.Fields{
		{"title": ""},
		{"title": "ok"},
		{"title": "bad", "priority": "urgent", "category_id": 42, "bogus": 1},
		{"title": "half done", "completed": true},
	})
	require.NoError(t, err)
	require.Len(t, res, 4)

	assert.False(t, res[0].Success)
	assert.Equal(t, "title", res[0].Errors[0].FieldLabel)
	assert.True(t, res[1].Success)

	assert.False(t, res[2].Success)
	labels := []string{}
	for _, fe := range res[2].Errors {
		labels = append(labels, fe.FieldLabel)
	}
	assert.ElementsMatch(t, []string{"priority", "bogus"}, labels)

	assert.False(t, res[3].Success)
	assert.Equal(t, "completed_at", res[3].Errors[0].FieldLabel)

	all, err := r.Query(context.Background(), "tasks", store.Query{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInsertRejectsUnknownReference(t *testing.T) {
	r, _ := newRepo(t)
	res, err := r.Insert(context.Background(), "tasks", "test", []store.Fields{{"title": "x", "category_id": 42}})
	require.NoError(t, err)
	require.False(t, res[0].Success)
	assert.Equal(t, "category_id", res[0].Errors[0].FieldLabel)
}

func TestUpdateIsPartialAndClearsNulls(t *testing.T) {
	r, _ := newRepo(t)
	task := insertOne(t, r, "tasks", store.Fields{"title": "Write", "description": "draft", "due_date": "2024-04-01"})

	res, err := r.Update(context.Background(), "tasks", "test", []store.Fields{{
		"Id":           task["Id"],
		"completed":    true,
		"completed_at": "2024-03-02T10:00:00Z",
		"due_date":     nil,
	}})
	require.NoError(t, err)
	require.True(t, res[0].Success, res[0].Message)
	got := res[0].Data
	assert.Equal(t, "Write", got["title"])
	assert.Equal(t, "draft", got["description"])
	assert.Equal(t, true, got["completed"])
	assert.Equal(t, "2024-03-02T10:00:00Z", got["completed_at"])
	assert.Nil(t, got["due_date"])

	res, err = r.Update(context.Background(), "tasks", "test", []store.Fields{{"Id": task["Id"], "completed": false}})
	require.NoError(t, err)
	assert.False(t, res[0].Success, "completed without completed_at breaks the pairing")
}

func TestUpdateAndDeleteUnknownID(t *testing.T) {
	r, _ := newRepo(t)
	res, err := r.Update(context.Background(), "tasks", "test", []store.Fields{{"Id": 99, "title": "x"}})
	require.NoError(t, err)
	assert.Equal(t, store.ResultCodeNotFound, res[0].Code)

	res, err = r.Delete(context.Background(), "tasks", "test", []int64{99})
	require.NoError(t, err)
	assert.Equal(t, store.ResultCodeNotFound, res[0].Code)

	_, err = r.Get(context.Background(), "tasks", 99)
	assert.ErrorIs(t, err, records.ErrNotFound)
}

func TestProjectStampsAndDateCheck(t *testing.T) {
	r, _ := newRepo(t)
	p := insertOne(t, r, "projects", store.Fields{"name": "Launch", "start_date": "2024-01-01", "created_on": "1999-01-01T00:00:00Z"})
	assert.Equal(t, "Not Started", p["status"])
	assert.Equal(t, "2024-03-01T12:00:00Z", p["created_on"])
	assert.Equal(t, "2024-03-01T12:00:00Z", p["modified_on"])

	later := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	r.Now = func() time.Time { return later }
	res, err := r.Update(context.Background(), "projects", "test", []store.Fields{{"Id": p["Id"], "end_date": "2023-12-01"}})
	require.NoError(t, err)
	require.False(t, res[0].Success)
	assert.Equal(t, "end_date", res[0].Errors[0].FieldLabel)

	res, err = r.Update(context.Background(), "projects", "test", []store.Fields{{"Id": p["Id"], "status": "In Progress"}})
	require.NoError(t, err)
	require.True(t, res[0].Success)
	assert.Equal(t, "2024-03-01T12:00:00Z", res[0].Data["created_on"])
	assert.Equal(t, "2024-03-05T00:00:00Z", res[0].Data["modified_on"])
}

func TestQueryWhereOrderPaging(t *testing.T) {
	r, _ := newRepo(t)
	work := insertOne(t, r, "categories", store.Fields{"name": "Work"})
	for _, title := range []string{"alpha", "Beta 100%", "gamma"} {
		insertOne(t, r, "tasks", store.Fields{"title": title, "category_id": work["Id"]})
	}
	insertOne(t, r, "tasks", store.Fields{"title": "delta"})
	ctx := context.Background()

	got, err := r.Query(ctx, "tasks", store.Query{
		Fields: []string{"Id", "title"},
		Where:  []store.Condition{{FieldName: "category_id", Operator: store.OpEqualTo, Values: []any{work["Id"]}}},
		OrderBy: []store.Order{{FieldName: "title", SortType: store.SortDesc}},
		PagingInfo: &store.Paging{Limit: 2},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "gamma", got[0]["title"])
	assert.Equal(t, "alpha", got[1]["title"])
	assert.NotContains(t, got[0], "priority")

	got, err = r.Query(ctx, "tasks", store.Query{Where: []store.Condition{{FieldName: "title", Operator: store.OpContains, Values: []any{"100%"}}}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Beta 100%", got[0]["title"])

	got, err = r.Query(ctx, "tasks", store.Query{Where: []store.Condition{{FieldName: "category_id", Operator: store.OpEqualTo, Values: []any{nil}}}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "delta", got[0]["title"])

	_, err = r.Query(ctx, "tasks", store.Query{Where: []store.Condition{{FieldName: "nope", Operator: store.OpEqualTo, Values: []any{1}}}})
	assert.ErrorIs(t, err, records.ErrInvalidQuery)
	_, err = r.Query(ctx, "widgets", store.Query{})
	assert.ErrorIs(t, err, records.ErrUnknownTable)
}

func TestDeleteCategoryDetachesTasksAndRecount(t *testing.T) {
	r, conn := newRepo(t)
	ctx := context.Background()
	work := insertOne(t, r, "categories", store.Fields{"name": "Work"})
	home := insertOne(t, r, "categories", store.Fields{"name": "Home"})
	task := insertOne(t, r, "tasks", store.Fields{"title": "a", "category_id": work["Id"]})
	insertOne(t, r, "tasks", store.Fields{"title": "b", "category_id": work["Id"]})
	insertOne(t, r, "tasks", store.Fields{"title": "c", "category_id": home["Id"]})

	n, err := r.RecountCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	got, err := r.Get(ctx, "categories", work["Id"].(int64))
	require.NoError(t, err)
	assert.Equal(t, int64(2), got["task_count"])

	n, err = r.RecountCategories(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	res, err := r.Delete(ctx, "categories", "test", []int64{work["Id"].(int64)})
	require.NoError(t, err)
	require.True(t, res[0].Success)
	got, err = r.Get(ctx, "tasks", task["Id"].(int64))
	require.NoError(t, err)
	assert.Nil(t, got["category_id"])

	evts, err := events.List(ctx, conn, events.Filter{Table: "categories"})
	require.NoError(t, err)
	require.Len(t, evts, 3)
	assert.Equal(t, events.RecordDeleted, evts[2].Type)
	assert.Equal(t, "test", evts[2].Actor)
}
