package controller_test

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/fault"
	"taskboard/internal/repository"
)

// gates lets a test hold a fake call until it releases it. Calls announce
// themselves on started once they are waiting.
type gates struct {
	mu      sync.Mutex
	held    map[string]chan struct{}
	started chan string
}

func newGates() *gates {
	return &gates{held: make(map[string]chan struct{}), started: make(chan string, 16)}
}

func (g *gates) hold(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held[key] = make(chan struct{})
}

func (g *gates) release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	close(g.held[key])
}

// detach forgets a held gate so later calls pass, returning it for release.
func (g *gates) detach(key string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := g.held[key]
	delete(g.held, key)
	return ch
}

func (g *gates) wait(ctx context.Context, key string) error {
	g.mu.Lock()
	ch := g.held[key]
	g.mu.Unlock()
	if ch == nil {
		return nil
	}
	g.started <- key
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return fault.Transportf(ctx.Err(), "%s: %v", key, ctx.Err())
	}
}

type fakeTasks struct {
	gates *gates
	now   time.Time

	mu        sync.Mutex
	items     map[int64]domain.Task
	nextID    int64
	calls     []string
	lists     int
	listErr   error
	createErr error
	updateErr error
	deleteErr error
}

func newFakeTasks(g *gates, tasks ...domain.Task) *fakeTasks {
	f := &fakeTasks{gates: g, now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), items: make(map[int64]domain.Task), nextID: 100}
	for _, t := range tasks {
		f.items[t.ID] = t
	}
	return f
}

func (f *fakeTasks) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeTasks) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTasks) List(ctx context.Context, _ repository.TaskQuery) ([]domain.Task, error) {
	f.record("list")
	if err := f.gates.wait(ctx, "tasks.list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Task, 0, len(f.items))
	for _, t := range f.items {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	f.lists++
	return out, nil
}

// listed reports how many task lists have returned.
func (f *fakeTasks) listed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeTasks) Get(ctx context.Context, id int64) (domain.Task, error) {
	f.record("get")
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.items[id]
	if !ok {
		return domain.Task{}, fault.NotFoundf("tasks record %d not found", id)
	}
	return t, nil
}

func (f *fakeTasks) Create(ctx context.Context, in domain.TaskInput) (domain.Task, error) {
	f.record("create")
	if err := in.Validate(); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return domain.Task{}, f.createErr
	}
	f.nextID++
	t := domain.Task{ID: f.nextID, Title: in.Title, Description: in.Description, Priority: in.Priority, CategoryID: in.CategoryID, CreatedAt: f.now}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	f.items[t.ID] = t
	return t, nil
}

func (f *fakeTasks) Update(ctx context.Context, id int64, u domain.TaskUpdate) (domain.Task, error) {
	f.record("update")
	if err := f.gates.wait(ctx, "tasks.update"); err != nil {
		return domain.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return domain.Task{}, f.updateErr
	}
	t, ok := f.items[id]
	if !ok {
		return domain.Task{}, fault.NotFoundf("tasks record %d not found", id)
	}
	if v, ok := u.Title.Value(); ok {
		t.Title = v
	}
	if u.Priority.IsSet() {
		t.Priority, _ = u.Priority.Value()
	}
	if u.Completed.IsSet() {
		t.Completed, _ = u.Completed.Value()
		t.CompletedAt = u.CompletedAt.Ptr()
	}
	f.items[id] = t
	return t, nil
}

func (f *fakeTasks) Delete(ctx context.Context, id int64) error {
	f.record("delete")
	if err := f.gates.wait(ctx, deleteKey(id)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if _, ok := f.items[id]; !ok {
		return fault.NotFoundf("tasks record %d not found", id)
	}
	delete(f.items, id)
	return nil
}

func (f *fakeTasks) MarkComplete(ctx context.Context, id int64) (domain.Task, error) {
	f.record("markComplete")
	return f.Update(ctx, id, domain.TaskUpdate{Completed: domain.Set(true), CompletedAt: domain.Set(f.now)})
}

func (f *fakeTasks) MarkIncomplete(ctx context.Context, id int64) (domain.Task, error) {
	f.record("markIncomplete")
	return f.Update(ctx, id, domain.TaskUpdate{Completed: domain.Set(false), CompletedAt: domain.Clear[time.Time]()})
}

// setRemote changes the backend copy without the board knowing.
func (f *fakeTasks) setRemote(t domain.Task) {
	f.mu.Lock()
	f.items[t.ID] = t
	f.mu.Unlock()
}

func deleteKey(id int64) string {
	return "tasks.delete." + strconv.FormatInt(id, 10)
}

type fakeCategories struct {
	gates *gates

	mu      sync.Mutex
	items   []domain.Category
	listErr error
	counts  map[int64]int
}

func (f *fakeCategories) List(ctx context.Context) ([]domain.Category, error) {
	if err := f.gates.wait(ctx, "categories.list"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Category(nil), f.items...), nil
}

func (f *fakeCategories) Create(ctx context.Context, in domain.CategoryInput) (domain.Category, error) {
	if err := in.Validate(); err != nil {
		return domain.Category{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := domain.Category{ID: int64(len(f.items) + 50), Name: in.Name, Color: in.Color, Icon: in.Icon}
	f.items = append(f.items, c)
	return c, nil
}

func (f *fakeCategories) Update(ctx context.Context, id int64, u domain.CategoryUpdate) (domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.ID == id {
			if v, ok := u.Name.Value(); ok {
				c.Name = v
			}
			f.items[i] = c
			return c, nil
		}
	}
	return domain.Category{}, fault.NotFoundf("categories record %d not found", id)
}

func (f *fakeCategories) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return fault.NotFoundf("categories record %d not found", id)
}

func (f *fakeCategories) UpdateTaskCount(ctx context.Context, id int64, count int) (domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[int64]int)
	}
	f.counts[id] = count
	for i, c := range f.items {
		if c.ID == id {
			c.TaskCount = count
			f.items[i] = c
			return c, nil
		}
	}
	return domain.Category{}, fault.NotFoundf("categories record %d not found", id)
}

type fakeProjects struct {
	mu        sync.Mutex
	items     []domain.Project
	nextID    int64
	calls     int
	createErr error
	// afterList runs once the page is read, before List returns.
	afterList func()
}

func (f *fakeProjects) List(ctx context.Context, q repository.ProjectQuery) ([]domain.Project, error) {
	f.mu.Lock()
	f.calls++
	out := append([]domain.Project(nil), f.items...)
	hook := f.afterList
	f.afterList = nil
	f.mu.Unlock()
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeProjects) Create(ctx context.Context, in domain.ProjectInput) (domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := in.Validate(); err != nil {
		return domain.Project{}, err
	}
	if f.createErr != nil {
		return domain.Project{}, f.createErr
	}
	f.nextID++
	status := in.Status
	if status == "" {
		status = domain.StatusNotStarted
	}
	p := domain.Project{ID: f.nextID, Name: in.Name, Description: in.Description, Status: status, Tags: in.Tags, StartDate: in.StartDate, EndDate: in.EndDate}
	f.items = append([]domain.Project{p}, f.items...)
	return p, nil
}

func (f *fakeProjects) Update(ctx context.Context, id int64, u domain.ProjectUpdate) (domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i, p := range f.items {
		if p.ID == id {
			if v, ok := u.Name.Value(); ok {
				p.Name = v
			}
			if v, ok := u.Status.Value(); ok {
				p.Status = v
			}
			p.StartDate, p.EndDate = u.ApplyDates(p)
			f.items[i] = p
			return p, nil
		}
	}
	return domain.Project{}, fault.NotFoundf("projects record %d not found", id)
}

func (f *fakeProjects) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	for i, p := range f.items {
		if p.ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return fault.NotFoundf("projects record %d not found", id)
}
