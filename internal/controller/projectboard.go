package controller

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/fault"
	"taskboard/internal/notify"
	"taskboard/internal/repository"
)

// ProjectSnapshot is a copy of the project board. Collections are nil unless
// State is Loaded.
type ProjectSnapshot struct {
	State        State            `json:"state"`
	Err          error            `json:"-"`
	Projects     []domain.Project `json:"projects"`
	Visible      []domain.Project `json:"visible"`
	Filter       ProjectFilter    `json:"filter"`
	FilterActive bool             `json:"filterActive"`
	Pending      []PendingOp      `json:"pending"`
}

func (s ProjectSnapshot) ErrorMessage() string {
	if s.State != Error || s.Err == nil {
		return ""
	}
	return notify.Message(s.Err)
}

// ProjectBoard holds the project list, most recently modified first.
type ProjectBoard struct {
	projects ProjectRepository
	msg      messenger
	logger   *zap.Logger
	pageSize int

	mu         sync.Mutex
	state      State
	err        error
	generation uint64
	items      []domain.Project
	filter     ProjectFilter
	visible    []domain.Project
	pending    pendingSet
	settled    settleLog
}

// NewProjectBoard creates a board that loads up to pageSize projects; zero
// means repository.DefaultProjectPageSize.
func NewProjectBoard(projects ProjectRepository, pageSize int, opts Options) *ProjectBoard {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = repository.DefaultProjectPageSize
	}
	return &ProjectBoard{
		projects: projects,
		msg:      messenger{notifier: opts.Notifier, messages: opts.Messages},
		logger:   logger.Named("projectboard"),
		pageSize: pageSize,
	}
}

// Load fetches one page of projects. Mutations that settle while the fetch is
// in flight are replayed over its result.
func (b *ProjectBoard) Load(ctx context.Context) error {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	mark := b.settled.startLoad()
	b.state, b.err = Loading, nil
	b.mu.Unlock()

	items, err := b.projects.List(ctx, repository.ProjectQuery{Limit: b.pageSize})

	b.mu.Lock()
	defer b.mu.Unlock()
	replay := b.settled.finishLoad(mark)
	if gen != b.generation {
		return ErrSuperseded
	}
	if err != nil {
		f := fault.From(err)
		b.logger.Warn("load failed", zap.Error(f))
		b.state, b.err = Error, f
		return f
	}
	b.items = items
	for _, step := range replay {
		step()
	}
	b.recompute()
	b.state = Loaded
	b.logger.Debug("loaded", zap.Int("projects", len(items)))
	return nil
}

func (b *ProjectBoard) Retry(ctx context.Context) error { return b.Load(ctx) }

func (b *ProjectBoard) recompute() {
	b.visible = ApplyProjects(b.items, b.filter)
}

func (b *ProjectBoard) Snapshot() ProjectSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := ProjectSnapshot{
		State:        b.state,
		Err:          b.err,
		Filter:       b.filter,
		FilterActive: b.filter.Active(),
		Pending:      b.pending.list(),
	}
	if b.state == Loaded {
		s.Projects = append([]domain.Project(nil), b.items...)
		s.Visible = append([]domain.Project(nil), b.visible...)
	}
	return s
}

func (b *ProjectBoard) SetSearch(q string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter.Search = q
	b.recompute()
}

// SetStatusFilter accepts a project status or "all".
func (b *ProjectBoard) SetStatusFilter(s string) error {
	status, err := ParseProjectStatusFilter(s)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter.Status = status
	b.recompute()
	return nil
}

func (b *ProjectBoard) begin(kind OpKind, target int64) uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.begin(kind, repository.ProjectsTable, target)
}

func (b *ProjectBoard) settle(op uuid.UUID, apply func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.end(op)
	if apply != nil {
		apply()
		b.settled.record(apply)
		b.recompute()
	}
}

func (b *ProjectBoard) fail(op OpKind, id int64, err error) error {
	f := fault.From(err)
	b.logger.Warn("mutation failed", zap.String("op", string(op)), zap.Int64("id", id), zap.Error(f))
	b.msg.failure(f)
	return f
}

// Create prepends the new project, matching the newest-first order.
func (b *ProjectBoard) Create(ctx context.Context, in domain.ProjectInput) (domain.Project, error) {
	op := b.begin(OpCreate, 0)
	p, err := b.projects.Create(ctx, in)
	if err != nil {
		b.settle(op, nil)
		return domain.Project{}, b.fail(OpCreate, 0, err)
	}
	b.settle(op, func() {
		b.remove(p.ID)
		b.items = append([]domain.Project{p}, b.items...)
	})
	b.msg.success(notify.ProjectCreated)
	return p, nil
}

// Update checks the merged start/end dates against the board's copy before
// calling the backend.
func (b *ProjectBoard) Update(ctx context.Context, id int64, u domain.ProjectUpdate) (domain.Project, error) {
	if err := b.checkMergedDates(id, u); err != nil {
		return domain.Project{}, b.fail(OpUpdate, id, err)
	}
	op := b.begin(OpUpdate, id)
	p, err := b.projects.Update(ctx, id, u)
	if err != nil {
		b.settle(op, nil)
		return domain.Project{}, b.fail(OpUpdate, id, err)
	}
	b.settle(op, func() {
		for i := range b.items {
			if b.items[i].ID == p.ID {
				b.items[i] = p
				return
			}
		}
	})
	b.msg.success(notify.ProjectUpdated)
	return p, nil
}

func (b *ProjectBoard) checkMergedDates(id int64, u domain.ProjectUpdate) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.items {
		if p.ID == id {
			return domain.CheckDates(u.ApplyDates(p))
		}
	}
	return nil
}

func (b *ProjectBoard) Delete(ctx context.Context, id int64) error {
	op := b.begin(OpDelete, id)
	if err := b.projects.Delete(ctx, id); err != nil {
		b.settle(op, nil)
		return b.fail(OpDelete, id, err)
	}
	b.settle(op, func() { b.remove(id) })
	b.msg.success(notify.ProjectDeleted)
	return nil
}

func (b *ProjectBoard) remove(id int64) bool {
	for i := range b.items {
		if b.items[i].ID == id {
			b.items = append(b.items[:i:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}
