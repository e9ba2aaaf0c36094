package records

import (
	"context"
	"fmt"
	"strings"

	"taskboard/internal/store"
)

const maxPageSize = 1000

// Query lists records matching q. Field names in q are wire names; "Id" maps to
// the primary key.
func (r *Repo) Query(ctx context.Context, table string, q store.Query) ([]store.Record, error) {
	t, err := r.table(table)
	if err != nil {
		return nil, err
	}
	cols, err := selectColumns(t, q.Fields)
	if err != nil {
		return nil, err
	}
	where, args, err := buildWhere(t, q.Where)
	if err != nil {
		return nil, err
	}
	order, err := buildOrder(t, q.OrderBy)
	if err != nil {
		return nil, err
	}
	sqlText := fmt.Sprintf(`SELECT id,%s FROM %s%s%s`, strings.Join(cols, ","), t.Name, where, order)
	if p := q.PagingInfo; p != nil {
		limit := p.Limit
		if limit <= 0 || limit > maxPageSize {
			limit = maxPageSize
		}
		if p.Offset < 0 {
			return nil, fmt.Errorf("%w: negative offset", ErrInvalidQuery)
		}
		sqlText += ` LIMIT ? OFFSET ?`
		args = append(args, limit, p.Offset)
	}
	rows, err := r.DB.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.Name, err)
	}
	defer rows.Close()
	out := make([]store.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(t, cols, rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func selectColumns(t *Table, fields []string) ([]string, error) {
	if len(fields) == 0 {
		return t.columnNames(), nil
	}
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == store.IDField {
			continue
		}
		if _, ok := t.Column(f); !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, f)
		}
		cols = append(cols, f)
	}
	if len(cols) == 0 {
		// id alone still needs a column list for the SELECT.
		return []string{t.Columns[0].Name}, nil
	}
	return cols, nil
}

func sqlColumn(t *Table, name string) (string, Column, error) {
	if name == store.IDField {
		return "id", Column{Name: "id", Kind: KindInt}, nil
	}
	c, ok := t.Column(name)
	if !ok {
		return "", Column{}, fmt.Errorf("%w: unknown field %q", ErrInvalidQuery, name)
	}
	return c.Name, c, nil
}

func buildWhere(t *Table, conds []store.Condition) (string, []any, error) {
	if len(conds) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(conds))
	var args []any
	for _, cond := range conds {
		name, col, err := sqlColumn(t, cond.FieldName)
		if err != nil {
			return "", nil, err
		}
		var v any
		if len(cond.Values) > 0 {
			v = cond.Values[0]
		}
		switch cond.Operator {
		case store.OpEqualTo:
			if v == nil {
				parts = append(parts, name+" IS NULL")
				continue
			}
			val, fe := coerce(Column{Name: col.Name, Kind: col.Kind}, v)
			if fe != nil {
				return "", nil, fmt.Errorf("%w: %s", ErrInvalidQuery, fe.String())
			}
			parts = append(parts, name+"=?")
			args = append(args, val)
		case store.OpContains:
			s, ok := v.(string)
			if !ok || col.Kind != KindText {
				return "", nil, fmt.Errorf("%w: Contains needs a text field and a string value", ErrInvalidQuery)
			}
			parts = append(parts, "lower("+name+") LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
		default:
			return "", nil, fmt.Errorf("%w: unsupported operator %q", ErrInvalidQuery, cond.Operator)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), args, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func buildOrder(t *Table, orders []store.Order) (string, error) {
	if len(orders) == 0 {
		return " ORDER BY id", nil
	}
	parts := make([]string, 0, len(orders)+1)
	for _, o := range orders {
		name, _, err := sqlColumn(t, o.FieldName)
		if err != nil {
			return "", err
		}
		dir := strings.ToUpper(o.SortType)
		switch dir {
		case "", store.SortAsc:
			dir = store.SortAsc
		case store.SortDesc:
		default:
			return "", fmt.Errorf("%w: sort type %q", ErrInvalidQuery, o.SortType)
		}
		parts = append(parts, name+" "+dir)
	}
	parts = append(parts, "id")
	return " ORDER BY " + strings.Join(parts, ","), nil
}
