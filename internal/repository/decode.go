package repository

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"taskboard/internal/store"
)

// decoder reads typed values out of a wire record, keeping the first error.
type decoder struct {
	rec store.Record
	err error
}

func (d *decoder) fail(key string, v any, want string) {
	if d.err == nil {
		d.err = fmt.Errorf("field %s: expected %s, got %T", key, want, v)
	}
}

func (d *decoder) id() int64 {
	v, ok := d.rec[store.IDField]
	if !ok || v == nil {
		if d.err == nil {
			d.err = fmt.Errorf("record has no %s", store.IDField)
		}
		return 0
	}
	n, ok := toInt64(v)
	if !ok || n <= 0 {
		d.fail(store.IDField, v, "positive integer")
		return 0
	}
	return n
}

func (d *decoder) str(key string) string {
	switch v := d.rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		d.fail(key, v, "string")
		return ""
	}
}

func (d *decoder) boolean(key string) bool {
	switch v := d.rec[key].(type) {
	case nil:
		return false
	case bool:
		return v
	default:
		d.fail(key, v, "bool")
		return false
	}
}

func (d *decoder) integer(key string) int {
	v := d.rec[key]
	if v == nil {
		return 0
	}
	n, ok := toInt64(v)
	if !ok {
		d.fail(key, v, "integer")
		return 0
	}
	return int(n)
}

// ref reads a reference id. Lookup fields may arrive either as a bare id or as
// an object {"Id": n, "Name": "..."}.
func (d *decoder) ref(key string) *int64 {
	v := d.rec[key]
	if v == nil {
		return nil
	}
	if obj, ok := v.(map[string]any); ok {
		v = obj[store.IDField]
		if v == nil {
			return nil
		}
	}
	n, ok := toInt64(v)
	if !ok {
		d.fail(key, v, "reference id")
		return nil
	}
	return &n
}

func (d *decoder) timePtr(key string) *time.Time {
	switch v := d.rec[key].(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		t, err := parseTime(v)
		if err != nil {
			if d.err == nil {
				d.err = fmt.Errorf("field %s: %w", key, err)
			}
			return nil
		}
		return &t
	default:
		d.fail(key, v, "timestamp string")
		return nil
	}
}

func (d *decoder) timestamp(key string) time.Time {
	if t := d.timePtr(key); t != nil {
		return *t
	}
	return time.Time{}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != float64(int64(n)) {
			return 0, false
		}
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

var timeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func refOrNil(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
