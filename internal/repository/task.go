package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/fault"
	"taskboard/internal/store"
)

var taskFields = []string{
	store.IDField, "title", "description", "priority", "due_date",
	"category_id", "completed", "created_at", "completed_at",
}

// TaskQuery narrows a task listing. Zero values mean "not applied".
type TaskQuery struct {
	CategoryID *int64
	Completed  *bool
	Limit      int
}

type TaskRepository struct {
	base
	Now func() time.Time
}

func NewTaskRepository(s store.Store, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{base: newBase(s, logger, TasksTable), Now: time.Now}
}

func (r *TaskRepository) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *TaskRepository) List(ctx context.Context, q TaskQuery) ([]domain.Task, error) {
	query := store.Query{
		Fields:  taskFields,
		OrderBy: []store.Order{{FieldName: "created_at", SortType: store.SortAsc}},
	}
	if q.CategoryID != nil {
		query.Where = append(query.Where, store.Condition{FieldName: "category_id", Operator: store.OpEqualTo, Values: []any{*q.CategoryID}})
	}
	if q.Completed != nil {
		query.Where = append(query.Where, store.Condition{FieldName: "completed", Operator: store.OpEqualTo, Values: []any{*q.Completed}})
	}
	if q.Limit > 0 {
		query.PagingInfo = &store.Paging{Limit: q.Limit}
	}
	recs, err := r.store.List(ctx, r.table, query)
	if err != nil {
		return nil, wrap(err)
	}
	return decodeAll(r.base, recs, decodeTask), nil
}

func (r *TaskRepository) Get(ctx context.Context, id int64) (domain.Task, error) {
	rec, err := r.store.Get(ctx, r.table, id)
	if err != nil {
		return domain.Task{}, wrap(err)
	}
	return r.normalize(rec)
}

func (r *TaskRepository) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	fields := store.Fields{
		"title":        in.Title,
		"description":  in.Description,
		"priority":     string(in.Priority),
		"due_date":     timeOrNil(in.DueDate),
		"category_id":  refOrNil(in.CategoryID),
		"completed":    false,
		"created_at":   formatTime(r.now()),
		"completed_at": nil,
	}
	rec, err := r.store.Create(ctx, r.table, fields)
	if err != nil {
		return domain.Task{}, wrap(err)
	}
	return r.normalize(rec)
}

func (r *TaskRepository) Update(ctx context.Context, id int64, u domain.TaskUpdate) (domain.Task, error) {
	if err := u.Validate(); err != nil {
		return domain.Task{}, err
	}
	rec, err := r.store.Update(ctx, r.table, id, taskUpdateFields(u))
	if err != nil {
		return domain.Task{}, wrap(err)
	}
	return r.normalize(rec)
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	return wrap(r.store.Delete(ctx, r.table, id))
}

// MarkComplete sets completed and stamps completedAt with the current time.
func (r *TaskRepository) MarkComplete(ctx context.Context, id int64) (domain.Task, error) {
	return r.Update(ctx, id, domain.TaskUpdate{
		Completed:   domain.Set(true),
		CompletedAt: domain.Set(r.now()),
	})
}

// MarkIncomplete clears completed and completedAt together.
func (r *TaskRepository) MarkIncomplete(ctx context.Context, id int64) (domain.Task, error) {
	return r.Update(ctx, id, domain.TaskUpdate{
		Completed:   domain.Set(false),
		CompletedAt: domain.Clear[time.Time](),
	})
}

func (r *TaskRepository) normalize(rec store.Record) (domain.Task, error) {
	t, err := decodeTask(rec)
	if err != nil {
		return domain.Task{}, r.rejectShape(rec, err)
	}
	return t, nil
}

func decodeTask(rec store.Record) (domain.Task, error) {
	d := decoder{rec: rec}
	t := domain.Task{
		ID:          d.id(),
		Title:       d.str("title"),
		Description: d.str("description"),
		Priority:    domain.Priority(d.str("priority")),
		DueDate:     d.timePtr("due_date"),
		CategoryID:  d.ref("category_id"),
		Completed:   d.boolean("completed"),
		CreatedAt:   d.timestamp("created_at"),
		CompletedAt: d.timePtr("completed_at"),
	}
	if d.err != nil {
		return domain.Task{}, d.err
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if !t.Priority.Valid() {
		return domain.Task{}, fault.Rejectedf("unknown priority %q", t.Priority)
	}
	if err := t.CheckInvariant(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func taskUpdateFields(u domain.TaskUpdate) store.Fields {
	f := store.Fields{}
	if u.Title.IsSet() {
		f["title"], _ = u.Title.Value()
	}
	if u.Description.IsSet() {
		if v, ok := u.Description.Value(); ok {
			f["description"] = v
		} else {
			f["description"] = nil
		}
	}
	if u.Priority.IsSet() {
		v, _ := u.Priority.Value()
		f["priority"] = string(v)
	}
	if u.DueDate.IsSet() {
		f["due_date"] = timeOrNil(u.DueDate.Ptr())
	}
	if u.CategoryID.IsSet() {
		f["category_id"] = refOrNil(u.CategoryID.Ptr())
	}
	if u.Completed.IsSet() {
		f["completed"], _ = u.Completed.Value()
	}
	if u.CompletedAt.IsSet() {
		f["completed_at"] = timeOrNil(u.CompletedAt.Ptr())
	}
	return f
}
