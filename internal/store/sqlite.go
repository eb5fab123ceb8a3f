package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	api "github.com/macrat/scout/lib-scout"
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a SQLite database file.
type SQLite struct {
	db    *sql.DB
	limit int
}

// OpenSQLite opens a SQLite database and migrates the schema.
func OpenSQLite(ctx context.Context, path string, limit int) (*SQLite, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, persistenceError(err, "unable to open sqlite database")
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, persistenceError(err, "unable to ping database")
	}

	s := &SQLite{db: db, limit: limit}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, persistenceError(err, "failed to run migrations")
	}
	return s, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// migrate ensures the database schema is created.
func (s *SQLite) migrate(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS targets (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	config      TEXT NOT NULL,
	next_patrol INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_targets_name_id ON targets (name, id);

CREATE TABLE IF NOT EXISTS snapshots (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	target_id     TEXT NOT NULL,
	timestamp     TEXT NOT NULL,
	status        TEXT NOT NULL,
	status_code   INTEGER NOT NULL DEFAULT 0,
	response_time INTEGER NOT NULL DEFAULT 0,
	err_message   TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_snapshots_target_id_seq ON snapshots (target_id, seq);
`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLite) querySnapshots(ctx context.Context, where string, args ...any) ([]snapshotRow, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT target_id, timestamp, status, status_code, response_time, err_message, body
FROM snapshots `+where+`
ORDER BY target_id, seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rs []snapshotRow
	for rows.Next() {
		var r snapshotRow
		var ts string
		if err := rows.Scan(&r.TargetID, &ts, &r.Status, &r.StatusCode, &r.ResponseTime, &r.ErrMessage, &r.Body); err != nil {
			return nil, err
		}
		if r.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("invalid timestamp of snapshot: %w", err)
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

func (s *SQLite) queryTargets(ctx context.Context, where string, args ...any) ([]api.Target, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT config, next_patrol FROM targets `+where+` ORDER BY name, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ts []api.Target
	for rows.Next() {
		var config string
		var next int
		if err := rows.Scan(&config, &next); err != nil {
			return nil, err
		}
		t, err := decodeConfig(config, next)
		if err != nil {
			return nil, err
		}
		ts = append(ts, t)
	}
	return ts, rows.Err()
}

func (s *SQLite) Targets(ctx context.Context) ([]api.Target, error) {
	ts, err := s.queryTargets(ctx, "")
	if err != nil {
		return nil, persistenceError(err, "failed to list targets")
	}

	rows, err := s.querySnapshots(ctx, "")
	if err != nil {
		return nil, persistenceError(err, "failed to list snapshots")
	}
	attachSnapshots(ts, rows)

	return ts, nil
}

func (s *SQLite) Target(ctx context.Context, id string) (api.Target, error) {
	ts, err := s.queryTargets(ctx, "WHERE id = ?", id)
	if err != nil {
		return api.Target{}, persistenceError(err, "failed to get target")
	}
	if len(ts) == 0 {
		return api.Target{}, notFound(id)
	}

	rows, err := s.querySnapshots(ctx, "WHERE target_id = ?", id)
	if err != nil {
		return api.Target{}, persistenceError(err, "failed to get snapshots")
	}
	attachSnapshots(ts, rows)

	return ts[0], nil
}

func insertSQLiteSnapshot(ctx context.Context, tx *sql.Tx, r snapshotRow) error {
	_, err := tx.ExecContext(ctx, `
INSERT INTO snapshots (target_id, timestamp, status, status_code, response_time, err_message, body)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.TargetID, r.Timestamp.Format(time.RFC3339Nano), r.Status, r.StatusCode, r.ResponseTime, r.ErrMessage, r.Body)
	return err
}

func (s *SQLite) trim(ctx context.Context, tx *sql.Tx, id string) error {
	if s.limit <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
DELETE FROM snapshots
WHERE target_id = ? AND seq NOT IN (
	SELECT seq FROM snapshots WHERE target_id = ? ORDER BY seq DESC LIMIT ?
)`, id, id, s.limit)
	return err
}

func (s *SQLite) Put(ctx context.Context, t api.Target) error {
	config, err := encodeConfig(t)
	if err != nil {
		return persistenceError(err, "failed to encode target")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceError(err, "could not begin transaction")
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM targets WHERE id = ?`, t.ID).Scan(&exists)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return persistenceError(err, "failed to check target")
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO targets (id, name, config, next_patrol)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, config = excluded.config, next_patrol = excluded.next_patrol`,
		t.ID, t.Name, config, t.NextPatrol)
	if err != nil {
		return persistenceError(err, "failed to save target")
	}

	if exists == 0 {
		for _, snap := range t.Snapshots {
			if err := insertSQLiteSnapshot(ctx, tx, rowOf(t.ID, snap)); err != nil {
				return persistenceError(err, "failed to save snapshot")
			}
		}
		if err := s.trim(ctx, tx, t.ID); err != nil {
			return persistenceError(err, "failed to trim snapshots")
		}
	}

	return persistenceError(tx.Commit(), "failed to commit transaction")
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceError(err, "could not begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return persistenceError(err, "failed to delete target")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound(id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE target_id = ?`, id); err != nil {
		return persistenceError(err, "failed to delete snapshots")
	}

	return persistenceError(tx.Commit(), "failed to commit transaction")
}

func (s *SQLite) Commit(ctx context.Context, id string, tr Transition, snap *api.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return persistenceError(err, "could not begin transaction")
	}
	defer tx.Rollback()

	var config string
	var next int
	err = tx.QueryRowContext(ctx, `SELECT config, next_patrol FROM targets WHERE id = ?`, id).Scan(&config, &next)
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(id)
	} else if err != nil {
		return persistenceError(err, "failed to get target")
	}
	current, err := decodeConfig(config, next)
	if err != nil {
		return persistenceError(err, "failed to decode target")
	}

	if _, err := tx.ExecContext(ctx, `UPDATE targets SET next_patrol = ? WHERE id = ?`, tr.Apply(current), id); err != nil {
		return persistenceError(err, "failed to update countdown")
	}

	if snap != nil {
		if err := insertSQLiteSnapshot(ctx, tx, rowOf(id, *snap)); err != nil {
			return persistenceError(err, "failed to save snapshot")
		}
		if err := s.trim(ctx, tx, id); err != nil {
			return persistenceError(err, "failed to trim snapshots")
		}
	}

	return persistenceError(tx.Commit(), "failed to commit transaction")
}
