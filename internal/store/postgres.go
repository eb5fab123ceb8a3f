package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	api "github.com/macrat/scout/lib-scout"
)

// Postgres is a Store backed by PostgreSQL.
type Postgres struct {
	db    *pgxpool.Pool
	limit int
}

// OpenPostgres connects to the database and migrates the schema.
func OpenPostgres(ctx context.Context, connString string, limit int) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, persistenceError(err, "unable to create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, persistenceError(err, "unable to ping database")
	}

	s := &Postgres{db: pool, limit: limit}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, persistenceError(err, "failed to run migrations")
	}
	return s, nil
}

func (s *Postgres) Close() error {
	s.db.Close()
	return nil
}

// migrate ensures the database schema is created.
func (s *Postgres) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS targets (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		config      TEXT NOT NULL,
		next_patrol INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_targets_name_id ON targets (name, id);

	CREATE TABLE IF NOT EXISTS snapshots (
		seq           BIGSERIAL PRIMARY KEY,
		target_id     TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
		timestamp     TIMESTAMPTZ NOT NULL,
		status        TEXT NOT NULL,
		status_code   INTEGER NOT NULL DEFAULT 0,
		response_time BIGINT NOT NULL DEFAULT 0,
		err_message   TEXT NOT NULL DEFAULT '',
		body          TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_snapshots_target_id_seq ON snapshots (target_id, seq);
	`
	_, err := s.db.Exec(ctx, schema)
	return err
}

func (s *Postgres) queryTargets(ctx context.Context, where string, args ...any) ([]api.Target, error) {
	rows, err := s.db.Query(ctx, `SELECT config, next_patrol FROM targets `+where+` ORDER BY name, id`, args...)
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

func (s *Postgres) querySnapshots(ctx context.Context, where string, args ...any) ([]snapshotRow, error) {
	rows, err := s.db.Query(ctx, `
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
		if err := rows.Scan(&r.TargetID, &r.Timestamp, &r.Status, &r.StatusCode, &r.ResponseTime, &r.ErrMessage, &r.Body); err != nil {
			return nil, err
		}
		rs = append(rs, r)
	}
	return rs, rows.Err()
}

func (s *Postgres) Targets(ctx context.Context) ([]api.Target, error) {
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

func (s *Postgres) Target(ctx context.Context, id string) (api.Target, error) {
	ts, err := s.queryTargets(ctx, "WHERE id = $1", id)
	if err != nil {
		return api.Target{}, persistenceError(err, "failed to get target")
	}
	if len(ts) == 0 {
		return api.Target{}, notFound(id)
	}

	rows, err := s.querySnapshots(ctx, "WHERE target_id = $1", id)
	if err != nil {
		return api.Target{}, persistenceError(err, "failed to get snapshots")
	}
	attachSnapshots(ts, rows)

	return ts[0], nil
}

func insertPostgresSnapshot(ctx context.Context, tx pgx.Tx, r snapshotRow) error {
	_, err := tx.Exec(ctx, `
	INSERT INTO snapshots (target_id, timestamp, status, status_code, response_time, err_message, body)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.TargetID, r.Timestamp, r.Status, r.StatusCode, r.ResponseTime, r.ErrMessage, r.Body)
	return err
}

func (s *Postgres) trim(ctx context.Context, tx pgx.Tx, id string) error {
	if s.limit <= 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
	DELETE FROM snapshots
	WHERE target_id = $1 AND seq NOT IN (
		SELECT seq FROM snapshots WHERE target_id = $1 ORDER BY seq DESC LIMIT $2
	)`, id, s.limit)
	return err
}

func (s *Postgres) Put(ctx context.Context, t api.Target) error {
	config, err := encodeConfig(t)
	if err != nil {
		return persistenceError(err, "failed to encode target")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return persistenceError(err, "could not begin transaction")
	}
	defer tx.Rollback(ctx)

	var exists int
	err = tx.QueryRow(ctx, `SELECT 1 FROM targets WHERE id = $1`, t.ID).Scan(&exists)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return persistenceError(err, "failed to check target")
	}

	_, err = tx.Exec(ctx, `
	INSERT INTO targets (id, name, config, next_patrol)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET name = excluded.name, config = excluded.config, next_patrol = excluded.next_patrol`,
		t.ID, t.Name, config, t.NextPatrol)
	if err != nil {
		return persistenceError(err, "failed to save target")
	}

	if exists == 0 {
		for _, snap := range t.Snapshots {
			if err := insertPostgresSnapshot(ctx, tx, rowOf(t.ID, snap)); err != nil {
				return persistenceError(err, "failed to save snapshot")
			}
		}
		if err := s.trim(ctx, tx, t.ID); err != nil {
			return persistenceError(err, "failed to trim snapshots")
		}
	}

	return persistenceError(tx.Commit(ctx), "failed to commit transaction")
}

func (s *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM targets WHERE id = $1`, id)
	if err != nil {
		return persistenceError(err, "failed to delete target")
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

func (s *Postgres) Commit(ctx context.Context, id string, tr Transition, snap *api.Snapshot) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return persistenceError(err, "could not begin transaction")
	}
	defer tx.Rollback(ctx)

	var config string
	var next int
	err = tx.QueryRow(ctx, `SELECT config, next_patrol FROM targets WHERE id = $1 FOR UPDATE`, id).Scan(&config, &next)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(id)
	} else if err != nil {
		return persistenceError(err, "failed to get target")
	}
	current, err := decodeConfig(config, next)
	if err != nil {
		return persistenceError(err, "failed to decode target")
	}

	if _, err := tx.Exec(ctx, `UPDATE targets SET next_patrol = $1 WHERE id = $2`, tr.Apply(current), id); err != nil {
		return persistenceError(err, "failed to update countdown")
	}

	if snap != nil {
		if err := insertPostgresSnapshot(ctx, tx, rowOf(id, *snap)); err != nil {
			return persistenceError(err, "failed to save snapshot")
		}
		if err := s.trim(ctx, tx, id); err != nil {
			return persistenceError(err, "failed to trim snapshots")
		}
	}

	return persistenceError(tx.Commit(ctx), "failed to commit transaction")
}
