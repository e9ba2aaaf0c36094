// Package events is the append-only audit log of record changes.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	RecordCreated = "record.created"
	RecordUpdated = "record.updated"
	RecordDeleted = "record.deleted"
)

type Writer struct {
	Now func() time.Time
}

type Payload map[string]any

type Event struct {
	ID       int64     `json:"id"`
	TS       time.Time `json:"ts"`
	Type     string    `json:"type"`
	Table    string    `json:"table"`
	RecordID int64     `json:"recordId"`
	Actor    string    `json:"actor"`
	Payload  Payload   `json:"payload"`
}

// Append writes an event inside tx so it commits or rolls back with the change.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, table string, recordID int64, actor string, payload Payload) error {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if payload == nil {
		payload = Payload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,table_name,record_id,actor,payload_json) VALUES (?,?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339Nano), evtType, table, recordID, actor, string(data))
	return err
}

type Filter struct {
	Table    string
	RecordID int64
	AfterID  int64
	Limit    int
}

// List returns events in insertion order.
func List(ctx context.Context, db *sql.DB, f Filter) ([]Event, error) {
	q := `SELECT id,ts,type,table_name,COALESCE(record_id,0),actor,payload_json FROM events WHERE id > ?`
	args := []any{f.AfterID}
	if f.Table != "" {
		q += ` AND table_name=?`
		args = append(args, f.Table)
	}
	if f.RecordID != 0 {
		q += ` AND record_id=?`
		args = append(args, f.RecordID)
	}
	q += ` ORDER BY id`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var (
			e        Event
			ts, data string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Type, &e.Table, &e.RecordID, &e.Actor, &data); err != nil {
			return nil, err
		}
		e.TS, _ = time.Parse(time.RFC3339Nano, ts)
		if err := json.Unmarshal([]byte(data), &e.Payload); err != nil {
			return nil, fmt.Errorf("event %d payload: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
