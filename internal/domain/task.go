package domain

import (
	"fmt"
	"strings"
	"time"

	"taskboard/internal/fault"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority, lowest first.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityNormal, PriorityHigh}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fault.Validationf("invalid priority %q", s)
	}
	return p, nil
}

// Task is a unit of work. CompletedAt is non-nil exactly when Completed is true.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CategoryID  *int64     `json:"categoryId,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// CheckInvariant reports a violation of the completed/completedAt pairing.
func (t Task) CheckInvariant() error {
	if t.Completed != (t.CompletedAt != nil) {
		return fmt.Errorf("task %d: completed=%t but completedAt set=%t", t.ID, t.Completed, t.CompletedAt != nil)
	}
	return nil
}

// InCategory reports whether the task references category id.
func (t Task) InCategory(id int64) bool {
	return t.CategoryID != nil && *t.CategoryID == id
}

type TaskInput struct {
	Title       string
	Description string
	Priority    Priority
	DueDate     *time.Time
	CategoryID  *int64
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fault.Validationf("title is required").WithFields(fault.FieldError{FieldLabel: "title", Message: "is required"})
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return fault.Validationf("invalid priority %q", in.Priority).WithFields(fault.FieldError{FieldLabel: "priority", Message: "unknown value"})
	}
	return nil
}

// TaskUpdate is a partial update; unset fields are left unchanged by the backend.
type TaskUpdate struct {
	Title       Opt[string]
	Description Opt[string]
	Priority    Opt[Priority]
	DueDate     Opt[time.Time]
	CategoryID  Opt[int64]
	Completed   Opt[bool]
	CompletedAt Opt[time.Time]
}

func (u TaskUpdate) IsEmpty() bool {
	return !u.Title.IsSet() && !u.Description.IsSet() && !u.Priority.IsSet() && !u.DueDate.IsSet() &&
		!u.CategoryID.IsSet() && !u.Completed.IsSet() && !u.CompletedAt.IsSet()
}

func (u TaskUpdate) Validate() error {
	if u.IsEmpty() {
		return fault.Validationf("nothing to update")
	}
	if u.Title.IsSet() {
		if v, ok := u.Title.Value(); !ok || strings.TrimSpace(v) == "" {
			return fault.Validationf("title is required").WithFields(fault.FieldError{FieldLabel: "title", Message: "is required"})
		}
	}
	if u.Priority.IsSet() {
		if v, ok := u.Priority.Value(); !ok || !v.Valid() {
			return fault.Validationf("invalid priority %q", v).WithFields(fault.FieldError{FieldLabel: "priority", Message: "unknown value"})
		}
	}
	if u.Completed.IsSet() != u.CompletedAt.IsSet() {
		return fault.Validationf("completed and completedAt must be updated together")
	}
	if u.Completed.IsSet() {
		done, ok := u.Completed.Value()
		if !ok {
			return fault.Validationf("completed cannot be null")
		}
		if done == u.CompletedAt.IsNull() {
			return fault.Validationf("completedAt must be set exactly when completed is true")
		}
	}
	return nil
}
