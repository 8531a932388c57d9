// Package storage persists dungeon sessions and finished battles in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/samdwyer/idlecrawl/internal/battle"
	"github.com/samdwyer/idlecrawl/internal/telemetry"
	"github.com/samdwyer/idlecrawl/internal/world"
)

// ErrNotFound is returned when a stored record does not exist.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	dungeon_id TEXT NOT NULL,
	mode       TEXT NOT NULL,
	floor      INTEGER NOT NULL,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS battles (
	id         TEXT PRIMARY KEY,
	outcome    TEXT NOT NULL,
	ticks      INTEGER NOT NULL,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SessionSummary describes a stored session without decoding it.
type SessionSummary struct {
	ID        string
	DungeonID string
	Mode      world.Mode
	Floor     int
	UpdatedAt time.Time
}

// Store is a SQLite-backed snapshot store.
type Store struct {
	sqlDB  *sql.DB
	now    func() time.Time
	tracer trace.Tracer
}

// Open opens the database at path, creating the schema if needed. The path
// ":memory:" opens a private in-memory database.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := ":memory:"
	if path != dsn {
		dsn = filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now, tracer: telemetry.Tracer("storage")}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveSession inserts or replaces a session snapshot.
func (s *Store) SaveSession(ctx context.Context, snap world.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("session id is required")
	}
	ctx, span := s.tracer.Start(ctx, "store.save_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", snap.ID),
		attribute.String("session.mode", string(snap.Mode)),
	)

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	floor := 0
	if snap.Floor != nil {
		floor = snap.Floor.Number
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO sessions (id, dungeon_id, mode, floor, data, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	mode = excluded.mode,
	floor = excluded.floor,
	data = excluded.data,
	updated_at = excluded.updated_at
`,
		snap.ID, snap.DungeonID, string(snap.Mode), floor, string(data), s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

// LoadSession returns the stored snapshot for id.
func (s *Store) LoadSession(ctx context.Context, id string) (world.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "store.load_session")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	var data string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return world.Snapshot{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return world.Snapshot{}, fmt.Errorf("load session %s: %w", id, err)
	}

	var snap world.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return world.Snapshot{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	return snap, nil
}

// DeleteSession removes a session. Deleting a missing session is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// ListSessions returns stored sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, dungeon_id, mode, floor, updated_at
FROM sessions
ORDER BY updated_at DESC, id
`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum     SessionSummary
			mode    string
			updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.DungeonID, &mode, &sum.Floor, &updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sum.Mode = world.Mode(mode)
		sum.UpdatedAt = time.UnixMilli(updated).UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// SaveBattle records a battle snapshot, replacing an earlier one.
func (s *Store) SaveBattle(ctx context.Context, snap battle.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("battle id is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode battle: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO battles (id, outcome, ticks, data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	outcome = excluded.outcome,
	ticks = excluded.ticks,
	data = excluded.data,
	updated_at = excluded.updated_at
`,
		snap.ID, snap.Outcome.String(), snap.Clock, string(data), s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save battle %s: %w", snap.ID, err)
	}
	return nil
}

// LoadBattle returns the stored snapshot for id.
func (s *Store) LoadBattle(ctx context.Context, id string) (battle.Snapshot, error) {
	var data string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM battles WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return battle.Snapshot{}, fmt.Errorf("battle %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return battle.Snapshot{}, fmt.Errorf("load battle %s: %w", id, err)
	}

	var snap battle.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return battle.Snapshot{}, fmt.Errorf("decode battle %s: %w", id, err)
	}
	return snap, nil
}
