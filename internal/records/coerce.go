package records

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"taskboard/internal/fault"
)

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

func fieldErr(col, msg string) *fault.FieldError {
	return &fault.FieldError{FieldLabel: col, Message: msg}
}

// coerce converts a decoded JSON value into the sql value stored for col.
func coerce(col Column, v any) (any, *fault.FieldError) {
	if v == nil {
		switch {
		case col.Required:
			return nil, fieldErr(col.Name, "is required")
		case col.Kind == KindBool:
			return false, nil
		case col.Kind == KindInt:
			return int64(0), nil
		}
		return nil, nil
	}
	switch col.Kind {
	case KindText:
		s, ok := v.(string)
		if !ok {
			return nil, fieldErr(col.Name, "must be a string")
		}
		if col.Required && strings.TrimSpace(s) == "" {
			return nil, fieldErr(col.Name, "is required")
		}
		if len(col.Enum) > 0 && !slices.Contains(col.Enum, s) {
			return nil, fieldErr(col.Name, "must be one of "+strings.Join(col.Enum, ", "))
		}
		if s == "" && !col.Required {
			return nil, nil
		}
		return s, nil
	case KindInt:
		n, ok := toInt64(v)
		if !ok {
			return nil, fieldErr(col.Name, "must be an integer")
		}
		return n, nil
	case KindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fieldErr(col.Name, "must be a boolean")
		}
		return b, nil
	case KindTime:
		s, ok := v.(string)
		if !ok {
			return nil, fieldErr(col.Name, "must be a timestamp string")
		}
		if s == "" {
			return nil, nil
		}
		t, err := parseTime(s)
		if err != nil {
			return nil, fieldErr(col.Name, "must be an ISO-8601 timestamp")
		}
		return formatTime(t), nil
	case KindRef:
		if obj, ok := v.(map[string]any); ok {
			v = obj["Id"]
			if v == nil {
				return nil, nil
			}
		}
		n, ok := toInt64(v)
		if !ok || n <= 0 {
			return nil, fieldErr(col.Name, "must be a record id")
		}
		return n, nil
	}
	return nil, fieldErr(col.Name, "unsupported column kind "+col.Kind.String())
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
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
