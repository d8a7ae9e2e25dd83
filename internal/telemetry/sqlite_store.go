package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/graflow/graflow/pkg/api"
)

// SQLiteEventStore persists execution events in SQLite for later
// display. It is an EventSink; wrap it in a Recorder to keep writes off
// the run's critical path.
type SQLiteEventStore struct {
	db *sql.DB
}

var _ api.EventSink = (*SQLiteEventStore)(nil)

func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS execution_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at INTEGER NOT NULL,
			level TEXT NOT NULL,
			run_id TEXT NOT NULL DEFAULT '',
			node_id TEXT NOT NULL DEFAULT '',
			node_type TEXT NOT NULL DEFAULT '',
			message TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_execution_events_run_id ON execution_events(run_id, id);
	`)
	return err
}

func (s *SQLiteEventStore) Record(ev api.ExecutionEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	var payload string
	if ev.Payload != nil {
		encoded, err := json.Marshal(ev.Payload)
		if err == nil {
			payload = string(encoded)
		}
	}
	_, err := s.db.Exec(`
		INSERT INTO execution_events (at, level, run_id, node_id, node_type, message, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		at.UnixNano(),
		string(ev.Level),
		ev.RunID,
		ev.NodeID,
		string(ev.NodeType),
		ev.Message,
		payload,
	)
	return err
}

// ListEvents returns all events recorded for a run, oldest first.
func (s *SQLiteEventStore) ListEvents(ctx context.Context, runID string) ([]api.ExecutionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT at, level, run_id, node_id, node_type, message, payload
		FROM execution_events
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.ExecutionEvent
	for rows.Next() {
		var (
			atN      int64
			level    string
			rid      string
			nodeID   string
			nodeType string
			message  string
			payload  string
		)
		if err := rows.Scan(&atN, &level, &rid, &nodeID, &nodeType, &message, &payload); err != nil {
			return nil, err
		}
		ev := api.ExecutionEvent{
			At:       time.Unix(0, atN),
			Level:    api.EventLevel(level),
			RunID:    rid,
			NodeID:   nodeID,
			NodeType: api.NodeType(nodeType),
			Message:  message,
		}
		if payload != "" {
			var decoded map[string]any
			if err := json.Unmarshal([]byte(payload), &decoded); err == nil {
				ev.Payload = decoded
			}
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
