// Package repository maps backend records to domain entities. Repositories are
// stateless: every call is one round trip and every failure is a *fault.Fault.
package repository

import (
	"go.uber.org/zap"

	"taskboard/internal/fault"
	"taskboard/internal/store"
)

// Table names on the backend.
const (
	TasksTable      = "tasks"
	ProjectsTable   = "projects"
	CategoriesTable = "categories"
)

type base struct {
	store  store.Store
	logger *zap.Logger
	table  string
}

func newBase(s store.Store, logger *zap.Logger, table string) base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return base{store: s, logger: logger.With(zap.String("table", table)), table: table}
}

// rejectShape logs an unusable record and turns it into a rejection.
func (b base) rejectShape(rec store.Record, err error) error {
	b.logger.Warn("rejecting malformed record", zap.Any("id", rec[store.IDField]), zap.Error(err))
	return fault.Rejectedf("%s: malformed record from backend: %v", b.table, err)
}

// decodeAll normalizes a list response, dropping malformed records.
func decodeAll[T any](b base, recs []store.Record, decode func(store.Record) (T, error)) []T {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := decode(rec)
		if err != nil {
			_ = b.rejectShape(rec, err)
			continue
		}
		out = append(out, v)
	}
	return out
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fault.From(err)
}
