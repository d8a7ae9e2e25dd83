package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/graflow/graflow/pkg/api"
)

// SQLiteStore is a FlowStore and ConfigStore backed by SQLite. Graphs
// and configs are stored as JSON documents.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ FlowStore   = (*SQLiteStore)(nil)
	_ ConfigStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore initializes the required schema in the given database
// and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flows (
			id TEXT PRIMARY KEY,
			graph TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS backend_configs (
			id TEXT PRIMARY KEY,
			config TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 0
		);`,
	)
	return err
}

func (s *SQLiteStore) SaveFlow(ctx context.Context, id string, graph api.Graph) error {
	encoded, err := json.Marshal(graph)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (id, graph) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET graph = excluded.graph`,
		id, string(encoded),
	)
	return err
}

func (s *SQLiteStore) GetFlow(ctx context.Context, id string) (api.Graph, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `SELECT graph FROM flows WHERE id = ?`, id).Scan(&encoded)
	if err == sql.ErrNoRows {
		return api.Graph{}, ErrFlowNotFound
	}
	if err != nil {
		return api.Graph{}, err
	}
	var graph api.Graph
	if err := json.Unmarshal([]byte(encoded), &graph); err != nil {
		return api.Graph{}, err
	}
	return graph, nil
}

func (s *SQLiteStore) ListFlows(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM flows ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) DeleteFlow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrFlowNotFound
	}
	return nil
}

func (s *SQLiteStore) SaveConfig(ctx context.Context, cfg api.BackendConfig) error {
	encoded, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO backend_configs (id, config) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET config = excluded.config`,
		cfg.ID, string(encoded),
	)
	return err
}

func (s *SQLiteStore) GetConfig(ctx context.Context, id string) (api.BackendConfig, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `SELECT config FROM backend_configs WHERE id = ?`, id).Scan(&encoded)
	if err == sql.ErrNoRows {
		return api.BackendConfig{}, ErrConfigNotFound
	}
	if err != nil {
		return api.BackendConfig{}, err
	}
	return decodeConfig(encoded)
}

func (s *SQLiteStore) ActiveConfig(ctx context.Context) (api.BackendConfig, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `SELECT config FROM backend_configs WHERE active = 1`).Scan(&encoded)
	if err == sql.ErrNoRows {
		return api.BackendConfig{}, ErrNoActiveConfig
	}
	if err != nil {
		return api.BackendConfig{}, err
	}
	return decodeConfig(encoded)
}

func (s *SQLiteStore) SetActive(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE backend_configs SET active = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConfigNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE backend_configs SET active = 0 WHERE id != ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListConfigs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM backend_configs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func decodeConfig(encoded string) (api.BackendConfig, error) {
	var cfg api.BackendConfig
	if err := json.Unmarshal([]byte(encoded), &cfg); err != nil {
		return api.BackendConfig{}, err
	}
	return cfg, nil
}
