// Package records is the generic table store behind the reference backend.
// Every table in Schema supports query, get, batch insert, batch update and
// batch delete; each record of a batch succeeds or fails on its own.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"taskboard/internal/events"
	"taskboard/internal/store"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnknownTable = errors.New("unknown table")
	ErrInvalidQuery = errors.New("invalid query")
)

type Repo struct {
	DB     *sql.DB
	Events events.Writer
	Now    func() time.Time
	Logger *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{DB: db, Now: time.Now, Logger: logger}
}

func (r *Repo) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Repo) table(name string) (*Table, error) {
	t, ok := Schema[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, name)
	}
	return t, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns one record, or ErrNotFound.
func (r *Repo) Get(ctx context.Context, table string, id int64) (store.Record, error) {
	t, err := r.table(table)
	if err != nil {
		return nil, err
	}
	return getRecord(ctx, r.DB, t, id)
}

func getRecord(ctx context.Context, q queryer, t *Table, id int64) (store.Record, error) {
	cols := t.columnNames()
	row := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT id,%s FROM %s WHERE id=?`, strings.Join(cols, ","), t.Name), id)
	rec, err := scanRecord(t, cols, row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s record %d: %w", t.Name, id, ErrNotFound)
	}
	return rec, err
}

// getRow reads a stored row in its sql representation, for merging updates.
func getRow(ctx context.Context, tx *sql.Tx, t *Table, id int64) (Row, error) {
	rec, err := getRecord(ctx, tx, t, id)
	if err != nil {
		return nil, err
	}
	row := Row{}
	for _, c := range t.Columns {
		row[c.Name] = rec[c.Name]
	}
	return row, nil
}

// scanRecord scans id plus cols into a wire record.
func scanRecord(t *Table, cols []string, scan func(dest ...any) error) (store.Record, error) {
	var id int64
	dest := []any{&id}
	holders := make([]any, len(cols))
	for i, name := range cols {
		c, _ := t.Column(name)
		switch c.Kind {
		case KindInt, KindBool, KindRef:
			holders[i] = new(sql.NullInt64)
		default:
			holders[i] = new(sql.NullString)
		}
		dest = append(dest, holders[i])
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}
	rec := store.Record{store.IDField: id}
	for i, name := range cols {
		c, _ := t.Column(name)
		switch h := holders[i].(type) {
		case *sql.NullInt64:
			switch {
			case c.Kind == KindBool:
				rec[name] = h.Valid && h.Int64 != 0
			case !h.Valid:
				rec[name] = nil
			default:
				rec[name] = h.Int64
			}
		case *sql.NullString:
			if h.Valid {
				rec[name] = h.String
			} else {
				rec[name] = nil
			}
		}
	}
	return rec, nil
}

// Insert creates each record in its own transaction. The returned error is
// reserved for failures that are not about a particular record.
func (r *Repo) Insert(ctx context.Context, table, actor string, batch []store.Fields) ([]store.Result, error) {
	t, err := r.table(table)
	if err != nil {
		return nil, err
	}
	results := make([]store.Result, 0, len(batch))
	for _, fields := range batch {
		res, err := r.insertOne(ctx, t, actor, fields)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Repo) insertOne(ctx context.Context, t *Table, actor string, fields store.Fields) (store.Result, error) {
	if _, ok := fields[store.IDField]; ok {
		return rejected("Id is assigned by the backend", FieldErrors{{FieldLabel: store.IDField, Message: "must not be set"}}), nil
	}
	row := Row{}
	var errs FieldErrors
	for _, c := range t.Columns {
		if c.ReadOnly {
			continue
		}
		v, present := fields[c.Name]
		if !present {
			v = c.Default
		}
		val, fe := coerce(c, v)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		row[c.Name] = val
	}
	errs = append(errs, unknownFields(t, fields)...)
	if len(errs) > 0 {
		return rejected("validation failed", errs), nil
	}
	if t.Stamp != nil {
		t.Stamp(row, r.now(), true)
	}
	if t.Check != nil {
		if errs := t.Check(row); len(errs) > 0 {
			return rejected("validation failed", errs), nil
		}
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return store.Result{}, err
	}
	defer tx.Rollback()
	if errs := checkRefs(ctx, tx, t, row); len(errs) > 0 {
		return rejected("validation failed", errs), nil
	}
	cols := t.columnNames()
	args := make([]any, len(cols))
	for i, name := range cols {
		args[i] = row[name]
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s(%s) VALUES (%s)`,
		t.Name, strings.Join(cols, ","), placeholders(len(cols))), args...)
	if err != nil {
		return store.Result{}, fmt.Errorf("insert %s: %w", t.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return store.Result{}, err
	}
	if err := r.Events.Append(ctx, tx, events.RecordCreated, t.Name, id, actor, events.Payload(fields)); err != nil {
		return store.Result{}, err
	}
	rec, err := getRecord(ctx, tx, t, id)
	if err != nil {
		return store.Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Result{}, err
	}
	r.Logger.Debug("record created", zap.String("table", t.Name), zap.Int64("id", id), zap.String("actor", actor))
	return store.Result{Success: true, Data: rec}, nil
}

// Update applies each partial record in its own transaction. Only keys present
// in a record change; a key mapped to null clears the column.
func (r *Repo) Update(ctx context.Context, table, actor string, batch []store.Fields) ([]store.Result, error) {
	t, err := r.table(table)
	if err != nil {
		return nil, err
	}
	results := make([]store.Result, 0, len(batch))
	for _, fields := range batch {
		res, err := r.updateOne(ctx, t, actor, fields)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Repo) updateOne(ctx context.Context, t *Table, actor string, fields store.Fields) (store.Result, error) {
	id, ok := toInt64(fields[store.IDField])
	if !ok || id <= 0 {
		return rejected("Id is required", FieldErrors{{FieldLabel: store.IDField, Message: "is required"}}), nil
	}
	changes := Row{}
	var errs FieldErrors
	for _, c := range t.Columns {
		v, present := fields[c.Name]
		if !present || c.ReadOnly {
			continue
		}
		val, fe := coerce(c, v)
		if fe != nil {
			errs = append(errs, *fe)
			continue
		}
		changes[c.Name] = val
	}
	errs = append(errs, unknownFields(t, fields)...)
	if len(errs) > 0 {
		return rejected("validation failed", errs), nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return store.Result{}, err
	}
	defer tx.Rollback()
	row, err := getRow(ctx, tx, t, id)
	if errors.Is(err, ErrNotFound) {
		return notFound(t.Name, id), nil
	}
	if err != nil {
		return store.Result{}, err
	}
	for k, v := range changes {
		row[k] = v
	}
	if t.Stamp != nil {
		t.Stamp(row, r.now(), false)
		for _, c := range t.Columns {
			if c.ReadOnly {
				changes[c.Name] = row[c.Name]
			}
		}
	}
	if t.Check != nil {
		if errs := t.Check(row); len(errs) > 0 {
			return rejected("validation failed", errs), nil
		}
	}
	if errs := checkRefs(ctx, tx, t, changes); len(errs) > 0 {
		return rejected("validation failed", errs), nil
	}
	if len(changes) > 0 {
		sets := make([]string, 0, len(changes))
		args := make([]any, 0, len(changes)+1)
		for _, c := range t.Columns {
			if v, ok := changes[c.Name]; ok {
				sets = append(sets, c.Name+"=?")
				args = append(args, v)
			}
		}
		args = append(args, id)
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET %s WHERE id=?`, t.Name, strings.Join(sets, ",")), args...); err != nil {
			return store.Result{}, fmt.Errorf("update %s: %w", t.Name, err)
		}
	}
	if err := r.Events.Append(ctx, tx, events.RecordUpdated, t.Name, id, actor, events.Payload(fields)); err != nil {
		return store.Result{}, err
	}
	rec, err := getRecord(ctx, tx, t, id)
	if err != nil {
		return store.Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Result{}, err
	}
	r.Logger.Debug("record updated", zap.String("table", t.Name), zap.Int64("id", id), zap.String("actor", actor))
	return store.Result{Success: true, Data: rec}, nil
}

// Delete removes each id in its own transaction.
func (r *Repo) Delete(ctx context.Context, table, actor string, ids []int64) ([]store.Result, error) {
	t, err := r.table(table)
	if err != nil {
		return nil, err
	}
	results := make([]store.Result, 0, len(ids))
	for _, id := range ids {
		res, err := r.deleteOne(ctx, t, actor, id)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Repo) deleteOne(ctx context.Context, t *Table, actor string, id int64) (store.Result, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return store.Result{}, err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=?`, t.Name), id)
	if err != nil {
		return store.Result{}, fmt.Errorf("delete %s: %w", t.Name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(t.Name, id), nil
	}
	if err := r.Events.Append(ctx, tx, events.RecordDeleted, t.Name, id, actor, nil); err != nil {
		return store.Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Result{}, err
	}
	r.Logger.Debug("record deleted", zap.String("table", t.Name), zap.Int64("id", id), zap.String("actor", actor))
	return store.Result{Success: true, Data: store.Record{store.IDField: id}}, nil
}

// RecountCategories recomputes categories.task_count from the task table and
// returns how many categories changed.
func (r *Repo) RecountCategories(ctx context.Context) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE categories
SET task_count = (SELECT count(*) FROM tasks WHERE tasks.category_id = categories.id)
WHERE task_count <> (SELECT count(*) FROM tasks WHERE tasks.category_id = categories.id)`)
	if err != nil {
		return 0, fmt.Errorf("recount categories: %w", err)
	}
	return res.RowsAffected()
}

func checkRefs(ctx context.Context, tx *sql.Tx, t *Table, row Row) FieldErrors {
	var errs FieldErrors
	for _, c := range t.Columns {
		if c.Kind != KindRef || row[c.Name] == nil {
			continue
		}
		var one int
		err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT 1 FROM %s WHERE id=?`, c.Ref), row[c.Name]).Scan(&one)
		if err != nil {
			errs = append(errs, *fieldErr(c.Name, fmt.Sprintf("unknown %s record", c.Ref)))
		}
	}
	return errs
}

func unknownFields(t *Table, fields store.Fields) FieldErrors {
	var errs FieldErrors
	for k := range fields {
		if k == store.IDField {
			continue
		}
		if _, ok := t.Column(k); !ok {
			errs = append(errs, *fieldErr(k, "unknown field"))
		}
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].FieldLabel < errs[j].FieldLabel })
	return errs
}

func rejected(msg string, errs FieldErrors) store.Result {
	return store.Result{Success: false, Message: msg, Errors: errs}
}

func notFound(table string, id int64) store.Result {
	return store.Result{Success: false, Code: store.ResultCodeNotFound, Message: fmt.Sprintf("%s record %d not found", table, id)}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
