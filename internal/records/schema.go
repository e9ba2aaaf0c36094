package records

import (
	"time"

	"taskboard/internal/domain"
	"taskboard/internal/fault"
)

type Kind int

const (
	KindText Kind = iota
	KindInt
	KindBool
	KindTime
	KindRef
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	case KindTime:
		return "timestamp"
	case KindRef:
		return "reference"
	}
	return "unknown"
}

// Column describes one wire field. Wire names equal sqlite column names.
type Column struct {
	Name     string
	Kind     Kind
	Required bool
	Enum     []string
	// ReadOnly columns are assigned by the backend and ignored on input.
	ReadOnly bool
	// Ref is the referenced table for KindRef columns.
	Ref     string
	Default any
}

// Row holds sql-ready values keyed by column name.
type Row map[string]any

type Table struct {
	Name    string
	Columns []Column
	// Stamp sets backend-assigned columns before insert (created is true) or update.
	Stamp func(row Row, now time.Time, created bool)
	// Check validates a complete row after input has been merged.
	Check func(row Row) FieldErrors
}

func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t *Table) columnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

func priorities() []string {
	out := make([]string, 0, len(domain.Priorities))
	for _, p := range domain.Priorities {
		out = append(out, string(p))
	}
	return out
}

func projectStatuses() []string {
	out := make([]string, 0, len(domain.ProjectStatuses))
	for _, s := range domain.ProjectStatuses {
		out = append(out, string(s))
	}
	return out
}

// Schema lists the tables served by the backend.
var Schema = map[string]*Table{
	"tasks": {
		Name: "tasks",
		Columns: []Column{
			{Name: "title", Kind: KindText, Required: true},
			{Name: "description", Kind: KindText},
			{Name: "priority", Kind: KindText, Enum: priorities(), Default: string(domain.PriorityMedium)},
			{Name: "due_date", Kind: KindTime},
			{Name: "category_id", Kind: KindRef, Ref: "categories"},
			{Name: "completed", Kind: KindBool, Default: false},
			{Name: "created_at", Kind: KindTime},
			{Name: "completed_at", Kind: KindTime},
		},
		Stamp: func(row Row, now time.Time, created bool) {
			if created && row["created_at"] == nil {
				row["created_at"] = formatTime(now)
			}
		},
		Check: func(row Row) FieldErrors {
			done, _ := row["completed"].(bool)
			if done != (row["completed_at"] != nil) {
				return FieldErrors{{FieldLabel: "completed_at", Message: "must be set exactly when completed is true"}}
			}
			return nil
		},
	},
	"projects": {
		Name: "projects",
		Columns: []Column{
			{Name: "name", Kind: KindText, Required: true},
			{Name: "description", Kind: KindText},
			{Name: "start_date", Kind: KindTime},
			{Name: "end_date", Kind: KindTime},
			{Name: "status", Kind: KindText, Enum: projectStatuses(), Default: string(domain.StatusNotStarted)},
			{Name: "tags", Kind: KindText},
			{Name: "created_on", Kind: KindTime, ReadOnly: true},
			{Name: "modified_on", Kind: KindTime, ReadOnly: true},
		},
		Stamp: func(row Row, now time.Time, created bool) {
			if created {
				row["created_on"] = formatTime(now)
			}
			row["modified_on"] = formatTime(now)
		},
		Check: func(row Row) FieldErrors {
			start, _ := row["start_date"].(string)
			end, _ := row["end_date"].(string)
			if start == "" || end == "" {
				return nil
			}
			s, err1 := parseTime(start)
			e, err2 := parseTime(end)
			if err1 == nil && err2 == nil && !s.Before(e) {
				return FieldErrors{{FieldLabel: "end_date", Message: "must be after start date"}}
			}
			return nil
		},
	},
	"categories": {
		Name: "categories",
		Columns: []Column{
			{Name: "name", Kind: KindText, Required: true},
			{Name: "color", Kind: KindText},
			{Name: "icon", Kind: KindText},
			{Name: "task_count", Kind: KindInt, Default: int64(0)},
		},
	},
}

// FieldErrors is a set of per-field validation failures for one record.
type FieldErrors []fault.FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "invalid record"
	}
	msg := "invalid record: " + fe[0].String()
	for _, e := range fe[1:] {
		msg += "; " + e.String()
	}
	return msg
}
