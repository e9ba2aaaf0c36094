// Package controller owns the in-memory collections behind a board view and
// keeps them consistent with the backend. Mutations are pessimistic: local
// state changes only after the backend confirms.
package controller

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/domain"
	"taskboard/internal/notify"
	"taskboard/internal/repository"
)

// State is the load state of a board.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	}
	return "unknown"
}

// ErrSuperseded is returned by a load whose results were discarded because a
// newer load started before it finished.
var ErrSuperseded = errors.New("load superseded by a newer load")

// TogglePolicy decides how ToggleComplete learns the current completion flag.
type TogglePolicy string

const (
	// ToggleRefresh reads the task from the backend before deciding.
	ToggleRefresh TogglePolicy = "refresh"
	// ToggleLocal trusts the local copy; the last write wins.
	ToggleLocal TogglePolicy = "local"
)

// Valid reports whether p is a known policy.
func (p TogglePolicy) Valid() bool { return p == ToggleRefresh || p == ToggleLocal }

// TaskRepository is the task persistence a TaskBoard drives. It is satisfied
// by *repository.TaskRepository and by test doubles.
type TaskRepository interface {
	List(ctx context.Context, q repository.TaskQuery) ([]domain.Task, error)
	Get(ctx context.Context, id int64) (domain.Task, error)
	Create(ctx context.Context, in domain.TaskInput) (domain.Task, error)
	Update(ctx context.Context, id int64, u domain.TaskUpdate) (domain.Task, error)
	Delete(ctx context.Context, id int64) error
	MarkComplete(ctx context.Context, id int64) (domain.Task, error)
	MarkIncomplete(ctx context.Context, id int64) (domain.Task, error)
}

// CategoryRepository is the category persistence a TaskBoard drives.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, in domain.CategoryInput) (domain.Category, error)
	Update(ctx context.Context, id int64, u domain.CategoryUpdate) (domain.Category, error)
	Delete(ctx context.Context, id int64) error
	UpdateTaskCount(ctx context.Context, id int64, count int) (domain.Category, error)
}

// ProjectRepository is the project persistence a ProjectBoard drives.
type ProjectRepository interface {
	List(ctx context.Context, q repository.ProjectQuery) ([]domain.Project, error)
	Create(ctx context.Context, in domain.ProjectInput) (domain.Project, error)
	Update(ctx context.Context, id int64, u domain.ProjectUpdate) (domain.Project, error)
	Delete(ctx context.Context, id int64) error
}

var (
	_ TaskRepository     = (*repository.TaskRepository)(nil)
	_ CategoryRepository = (*repository.CategoryRepository)(nil)
	_ ProjectRepository  = (*repository.ProjectRepository)(nil)
)

// Messages renders success templates.
type Messages interface {
	Text(id string, data ...map[string]any) string
}

// OpKind names the mutation a pending operation performs.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
	OpToggle OpKind = "toggle"
)

// PendingOp is a mutation awaiting its backend response. It is keyed by a
// client-generated id; TargetID is zero for creates.
type PendingOp struct {
	ID       uuid.UUID `json:"id"`
	Kind     OpKind    `json:"kind"`
	Entity   string    `json:"entity"`
	TargetID int64     `json:"targetId,omitempty"`
	Started  time.Time `json:"started"`
}

// pendingSet tracks in-flight mutations. Callers hold the board mutex.
type pendingSet struct {
	ops map[uuid.UUID]PendingOp
}

func (p *pendingSet) begin(kind OpKind, entity string, target int64) uuid.UUID {
	if p.ops == nil {
		p.ops = make(map[uuid.UUID]PendingOp)
	}
	op := PendingOp{ID: uuid.New(), Kind: kind, Entity: entity, TargetID: target, Started: time.Now().UTC()}
	p.ops[op.ID] = op
	return op.ID
}

func (p *pendingSet) end(id uuid.UUID) { delete(p.ops, id) }

func (p *pendingSet) list() []PendingOp {
	out := make([]PendingOp, 0, len(p.ops))
	for _, op := range p.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Started.Equal(out[j].Started) {
			return out[i].Started.Before(out[j].Started)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// settleLog keeps the reconcile steps of mutations that settle while a load
// is in flight. A finishing load replays the steps recorded since it started
// over the list it fetched. Callers hold the board mutex.
type settleLog struct {
	loads int
	steps []func()
}

// startLoad registers a load and returns its mark.
func (l *settleLog) startLoad() int {
	l.loads++
	return len(l.steps)
}

// record keeps step when at least one load is in flight.
func (l *settleLog) record(step func()) {
	if l.loads > 0 {
		l.steps = append(l.steps, step)
	}
}

// finishLoad returns the steps recorded since mark. The log is emptied once
// no load is in flight.
func (l *settleLog) finishLoad(mark int) []func() {
	since := append([]func(){}, l.steps[mark:]...)
	l.loads--
	if l.loads == 0 {
		l.steps = nil
	}
	return since
}

// messenger emits exactly one notification per mutation outcome.
type messenger struct {
	notifier notify.Notifier
	messages Messages
}

func (m messenger) success(id string, data ...map[string]any) {
	if m.notifier == nil {
		return
	}
	text := id
	if m.messages != nil {
		text = m.messages.Text(id, data...)
	}
	m.notifier.Notify(notify.LevelSuccess, text)
}

func (m messenger) failure(err error) {
	if m.notifier == nil {
		return
	}
	m.notifier.Notify(notify.LevelError, notify.Message(err))
}
