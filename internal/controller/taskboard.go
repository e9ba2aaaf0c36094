package controller

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/domain"
	"taskboard/internal/fault"
	"taskboard/internal/notify"
	"taskboard/internal/repository"
)

// Options configures a board. Zero values fall back to a no-op logger, no
// notifications and ToggleRefresh.
type Options struct {
	Logger       *zap.Logger
	Notifier     notify.Notifier
	Messages     Messages
	TogglePolicy TogglePolicy
}

// TaskSnapshot is a copy of the board. Collections are nil unless State is Loaded.
type TaskSnapshot struct {
	State         State             `json:"state"`
	Err           error             `json:"-"`
	Tasks         []domain.Task     `json:"tasks"`
	Visible       []domain.Task     `json:"visible"`
	Active        []domain.Task     `json:"active"`
	Completed     []domain.Task     `json:"completed"`
	Categories    []domain.Category `json:"categories"`
	Uncategorized int               `json:"uncategorized"`
	Filter        TaskFilter        `json:"filter"`
	FilterActive  bool              `json:"filterActive"`
	Pending       []PendingOp       `json:"pending"`
}

// Busy reports whether a mutation on the task is in flight.
func (s TaskSnapshot) Busy(taskID int64) bool {
	for _, op := range s.Pending {
		if op.Entity == repository.TasksTable && op.TargetID == taskID {
			return true
		}
	}
	return false
}

// ErrorMessage is the message of the load fault, or "" outside the Error state.
func (s TaskSnapshot) ErrorMessage() string {
	if s.State != Error || s.Err == nil {
		return ""
	}
	return notify.Message(s.Err)
}

// TaskBoard holds tasks and categories. The mutex guards all fields below it and
// is never held across a repository call.
type TaskBoard struct {
	tasks      TaskRepository
	categories CategoryRepository
	msg        messenger
	logger     *zap.Logger
	policy     TogglePolicy

	mu         sync.Mutex
	state      State
	err        error
	generation uint64
	items      []domain.Task
	cats       []domain.Category
	filter     TaskFilter
	visible    []domain.Task
	pending    pendingSet
	settled    settleLog
}

// NewTaskBoard creates an Idle board; call Load before reading collections.
func NewTaskBoard(tasks TaskRepository, categories CategoryRepository, opts Options) *TaskBoard {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.TogglePolicy
	if !policy.Valid() {
		policy = ToggleRefresh
	}
	return &TaskBoard{
		tasks:      tasks,
		categories: categories,
		msg:        messenger{notifier: opts.Notifier, messages: opts.Messages},
		logger:     logger.Named("taskboard"),
		policy:     policy,
		filter:     TaskFilter{Status: StatusAll},
	}
}

func (b *TaskBoard) setState(s State, err error) {
	if b.state != s {
		b.logger.Debug("state change", zap.Stringer("from", b.state), zap.Stringer("to", s))
	}
	b.state = s
	b.err = err
}

// Load fetches tasks and categories concurrently. Both must succeed before the
// board is Loaded; the first failure moves it to Error and cancels the other
// fetch. Results of a load overtaken by a newer one are discarded. Mutations
// that settle while the fetch is in flight are replayed over its result.
func (b *TaskBoard) Load(ctx context.Context) error {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	mark := b.settled.startLoad()
	b.setState(Loading, nil)
	b.mu.Unlock()

	var (
		tasks []domain.Task
		cats  []domain.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = b.tasks.List(gctx, repository.TaskQuery{})
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = b.categories.List(gctx)
		return err
	})
	err := g.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	replay := b.settled.finishLoad(mark)
	if gen != b.generation {
		b.logger.Debug("discarding superseded load", zap.Uint64("generation", gen))
		return ErrSuperseded
	}
	if err != nil {
		f := fault.From(err)
		b.logger.Warn("load failed", zap.Error(f))
		b.setState(Error, f)
		return f
	}
	b.items = tasks
	b.cats = cats
	for _, step := range replay {
		step()
	}
	b.recompute()
	b.setState(Loaded, nil)
	return nil
}

// Retry reloads after a failed load.
func (b *TaskBoard) Retry(ctx context.Context) error {
	return b.Load(ctx)
}

// recompute rebuilds the visible view from the full collection. Callers hold mu.
func (b *TaskBoard) recompute() {
	b.visible = Apply(b.items, b.filter)
}

// Snapshot copies the board under the lock.
func (b *TaskBoard) Snapshot() TaskSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := TaskSnapshot{
		State:        b.state,
		Err:          b.err,
		Filter:       b.filter,
		FilterActive: b.filter.Active(),
		Pending:      b.pending.list(),
	}
	if b.state != Loaded {
		return s
	}
	s.Tasks = append([]domain.Task(nil), b.items...)
	s.Visible = append([]domain.Task(nil), b.visible...)
	s.Active, s.Completed = Split(s.Visible)
	counts, uncategorized := CategoryCounts(b.items)
	s.Categories = WithCounts(b.cats, counts)
	s.Uncategorized = uncategorized
	return s
}

// State returns the load state and the load fault, if any.
func (b *TaskBoard) State() (State, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.err
}

func (b *TaskBoard) begin(kind OpKind, entity string, target int64) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.begin(kind, entity, target)
}

// settle ends a pending operation and, when apply is non-nil, reconciles its
// result in the same critical section before recomputing the view.
func (b *TaskBoard) settle(op uuid.UUID, apply func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.end(op)
	if apply != nil {
		apply()
		b.settled.record(apply)
		b.recompute()
	}
}

func (b *TaskBoard) fail(op OpKind, id int64, err error) error {
	f := fault.From(err)
	b.logger.Warn("mutation failed", zap.String("op", string(op)), zap.Int64("id", id), zap.Error(f))
	b.msg.failure(f)
	return f
}

// upsertTask replaces the task with the same ID or appends it. Callers hold mu.
func (b *TaskBoard) upsertTask(t domain.Task) {
	for i := range b.items {
		if b.items[i].ID == t.ID {
			b.items[i] = t
			return
		}
	}
	b.items = append(b.items, t)
}

// replaceTask replaces the task with the same ID and reports whether it was found.
// Callers hold mu.
func (b *TaskBoard) replaceTask(t domain.Task) bool {
	for i := range b.items {
		if b.items[i].ID == t.ID {
			b.items[i] = t
			return true
		}
	}
	return false
}

// removeTask removes the task with the given ID. Callers hold mu.
func (b *TaskBoard) removeTask(id int64) bool {
	for i := range b.items {
		if b.items[i].ID == id {
			b.items = append(b.items[:i:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// CreateTask creates a task and adds it to the board once the backend confirms.
func (b *TaskBoard) CreateTask(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	op := b.begin(OpCreate, repository.TasksTable, 0)
	t, err := b.tasks.Create(ctx, in)
	if err != nil {
		b.settle(op, nil)
		return domain.Task{}, b.fail(OpCreate, 0, err)
	}
	b.settle(op, func() { b.upsertTask(t) })
	b.msg.success(notify.TaskCreated)
	return t, nil
}

// UpdateTask sends a partial update and replaces the board copy with the result.
func (b *TaskBoard) UpdateTask(ctx context.Context, id int64, u domain.TaskUpdate) (domain.Task, error) {
	op := b.begin(OpUpdate, repository.TasksTable, id)
	t, err := b.tasks.Update(ctx, id, u)
	if err != nil {
		b.settle(op, nil)
		return domain.Task{}, b.fail(OpUpdate, id, err)
	}
	b.settle(op, func() { b.applyUpdated(t) })
	b.msg.success(notify.TaskUpdated)
	return t, nil
}

// applyUpdated replaces the task by ID. A task deleted meanwhile stays deleted.
// Callers hold mu.
func (b *TaskBoard) applyUpdated(t domain.Task) {
	if !b.replaceTask(t) {
		b.logger.Debug("updated task no longer on board", zap.Int64("id", t.ID))
	}
}

// DeleteTask removes a task once the backend confirms.
func (b *TaskBoard) DeleteTask(ctx context.Context, id int64) error {
	op := b.begin(OpDelete, repository.TasksTable, id)
	if err := b.tasks.Delete(ctx, id); err != nil {
		b.settle(op, nil)
		return b.fail(OpDelete, id, err)
	}
	b.settle(op, func() { b.removeTask(id) })
	b.msg.success(notify.TaskDeleted)
	return nil
}

// ToggleComplete flips the completion of a task. Under ToggleRefresh the
// current flag is read from the backend first; under ToggleLocal the board's
// copy decides.
func (b *TaskBoard) ToggleComplete(ctx context.Context, id int64) (domain.Task, error) {
	op := b.begin(OpToggle, repository.TasksTable, id)
	t, err := b.toggle(ctx, id)
	if err != nil {
		b.settle(op, nil)
		return domain.Task{}, b.fail(OpToggle, id, err)
	}
	b.settle(op, func() { b.applyUpdated(t) })
	if t.Completed {
		b.msg.success(notify.TaskCompleted)
	} else {
		b.msg.success(notify.TaskRestored)
	}
	return t, nil
}

func (b *TaskBoard) toggle(ctx context.Context, id int64) (domain.Task, error) {
	completed, err := b.currentCompleted(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if completed {
		return b.tasks.MarkIncomplete(ctx, id)
	}
	return b.tasks.MarkComplete(ctx, id)
}

func (b *TaskBoard) currentCompleted(ctx context.Context, id int64) (bool, error) {
	if b.policy == ToggleRefresh {
		t, err := b.tasks.Get(ctx, id)
		if err != nil {
			return false, err
		}
		return t.Completed, nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.items {
		if t.ID == id {
			return t.Completed, nil
		}
	}
	return false, fault.NotFoundf("task %d is not on the board", id)
}

func (b *TaskBoard) SetSearch(q string) {
	b.updateFilter(func(f *TaskFilter) { f.Search = q })
}

func (b *TaskBoard) SetStatusFilter(s StatusFilter) error {
	s, err := ParseStatusFilter(string(s))
	if err != nil {
		return err
	}
	b.updateFilter(func(f *TaskFilter) { f.Status = s })
	return nil
}

// SetPriorityFilter accepts a priority or "all".
func (b *TaskBoard) SetPriorityFilter(p string) error {
	prio, err := ParsePriorityFilter(p)
	if err != nil {
		return err
	}
	b.updateFilter(func(f *TaskFilter) { f.Priority = prio })
	return nil
}

// SetCategory narrows the view to one category; nil shows every category.
func (b *TaskBoard) SetCategory(id *int64) {
	b.updateFilter(func(f *TaskFilter) {
		if id == nil {
			f.CategoryID = nil
			return
		}
		v := *id
		f.CategoryID = &v
	})
}

// SetFilter replaces every predicate at once.
func (b *TaskBoard) SetFilter(f TaskFilter) error {
	status, err := ParseStatusFilter(string(f.Status))
	if err != nil {
		return err
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return fault.Validationf("invalid priority %q", f.Priority)
	}
	f.Status = status
	b.updateFilter(func(cur *TaskFilter) { *cur = f })
	return nil
}

func (b *TaskBoard) ResetFilters() {
	b.updateFilter(func(f *TaskFilter) { *f = TaskFilter{Status: StatusAll} })
}

func (b *TaskBoard) updateFilter(fn func(*TaskFilter)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.filter)
	b.recompute()
}

func (b *TaskBoard) CreateCategory(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	op := b.begin(OpCreate, repository.CategoriesTable, 0)
	c, err := b.categories.Create(ctx, in)
	if err != nil {
		b.settle(op, nil)
		return domain.Category{}, b.fail(OpCreate, 0, err)
	}
	b.settle(op, func() { b.upsertCategory(c) })
	b.msg.success(notify.CategoryCreated)
	return c, nil
}

func (b *TaskBoard) UpdateCategory(ctx context.Context, id int64, u domain.CategoryUpdate) (domain.Category, error) {
	op := b.begin(OpUpdate, repository.CategoriesTable, id)
	c, err := b.categories.Update(ctx, id, u)
	if err != nil {
		b.settle(op, nil)
		return domain.Category{}, b.fail(OpUpdate, id, err)
	}
	b.settle(op, func() { b.replaceCategory(c) })
	b.msg.success(notify.CategoryUpdated)
	return c, nil
}

// DeleteCategory removes a category. The backend detaches its tasks, so the
// board clears their category reference and drops a filter on it.
func (b *TaskBoard) DeleteCategory(ctx context.Context, id int64) error {
	op := b.begin(OpDelete, repository.CategoriesTable, id)
	if err := b.categories.Delete(ctx, id); err != nil {
		b.settle(op, nil)
		return b.fail(OpDelete, id, err)
	}
	b.settle(op, func() { b.detachCategory(id) })
	b.msg.success(notify.CategoryDeleted)
	return nil
}

// SyncCategoryCounts writes the counts derived from the task collection back to
// categories whose stored count differs. It returns how many were updated and
// emits one notification for the whole sync.
func (b *TaskBoard) SyncCategoryCounts(ctx context.Context) (int, error) {
	b.mu.Lock()
	counts, _ := CategoryCounts(b.items)
	stale := make([]domain.Category, 0)
	for _, c := range b.cats {
		if c.TaskCount != counts[c.ID] {
			stale = append(stale, c)
		}
	}
	b.mu.Unlock()

	updated := 0
	for _, c := range stale {
		got, err := b.categories.UpdateTaskCount(ctx, c.ID, counts[c.ID])
		if err != nil {
			return updated, b.fail(OpUpdate, c.ID, err)
		}
		b.mu.Lock()
		step := func() { b.replaceCategory(got) }
		step()
		b.settled.record(step)
		b.mu.Unlock()
		updated++
	}
	if updated > 0 {
		b.msg.success(notify.CategoryCountsSynced, map[string]any{"Count": updated})
	}
	return updated, nil
}

// detachCategory drops a deleted category and every reference to it. Callers hold mu.
func (b *TaskBoard) detachCategory(id int64) {
	for i, c := range b.cats {
		if c.ID == id {
			b.cats = append(b.cats[:i:i], b.cats[i+1:]...)
			break
		}
	}
	for i := range b.items {
		if b.items[i].InCategory(id) {
			b.items[i].CategoryID = nil
		}
	}
	if b.filter.CategoryID != nil && *b.filter.CategoryID == id {
		b.filter.CategoryID = nil
	}
}

func (b *TaskBoard) upsertCategory(c domain.Category) {
	if !b.replaceCategory(c) {
		b.cats = append(b.cats, c)
	}
}

func (b *TaskBoard) replaceCategory(c domain.Category) bool {
	for i := range b.cats {
		if b.cats[i].ID == c.ID {
			b.cats[i] = c
			return true
		}
	}
	return false
}
