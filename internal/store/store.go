// Package store persists session and lap metadata in SQLite so past
// imports can be listed and re-compared without re-reading the source
// files. Channel sample data stays in the source .ld files; the store keeps
// the catalog.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migsqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/apexline-data/delta.report/internal/telemetry"
	"github.com/apexline-data/delta.report/internal/timeutil"
)

//go:embed migrations
var migrations embed.FS

// ErrNotFound reports a session id with no catalog row.
var ErrNotFound = errors.New("store: session not found")

// SessionRecord is one catalog row.
type SessionRecord struct {
	ID         uuid.UUID
	Vehicle    string
	Venue      string
	Driver     string
	Comment    string
	Start      time.Time // zero when the capture carried no clock
	Channels   int
	SourcePath string
	LapCount   int
	CreatedAt  time.Time
}

// Store wraps the SQLite catalog.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Open opens (creating if needed) the catalog at path and applies pending
// migrations. A nil clock defaults to the real one.
func Open(path string, clock timeutil.Clock) (*Store, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, clock: clock}, nil
}

// migrateUp applies the embedded migrations.
func migrateUp(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("store: migration source: %w", err)
	}
	driver, err := migsqlite.WithInstance(db, &migsqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("store: migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (st *Store) Close() error { return st.db.Close() }

// SaveSession upserts the session's catalog row and replaces its laps.
func (st *Store) SaveSession(ctx context.Context, s *telemetry.Session, sourcePath string) error {
	tx, err := st.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	var start any
	if !s.Start.IsZero() {
		start = s.Start.UTC().Format(time.RFC3339Nano)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, vehicle, venue, driver, comment, start_time, channels, source_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			vehicle = excluded.vehicle,
			venue = excluded.venue,
			driver = excluded.driver,
			comment = excluded.comment,
			start_time = excluded.start_time,
			channels = excluded.channels,
			source_path = excluded.source_path`,
		s.ID.String(), s.Vehicle, s.Venue, s.Driver, s.Comment, start,
		s.Len(), sourcePath, st.clock.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store: save session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM laps WHERE session_id = ?`, s.ID.String()); err != nil {
		return fmt.Errorf("store: clear laps: %w", err)
	}
	for _, lap := range s.Laps() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO laps (session_id, idx, start_time, end_time, complete)
			VALUES (?, ?, ?, ?, ?)`,
			s.ID.String(), lap.Index, lap.Start, lap.End, lap.Complete)
		if err != nil {
			return fmt.Errorf("store: save lap %d: %w", lap.Index, err)
		}
		for _, sec := range lap.Sectors {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO sectors (session_id, lap_idx, idx, start_time, end_time, approximate)
				VALUES (?, ?, ?, ?, ?, ?)`,
				s.ID.String(), lap.Index, sec.Index, sec.Start, sec.End, sec.Approximate)
			if err != nil {
				return fmt.Errorf("store: save lap %d sector %d: %w", lap.Index, sec.Index, err)
			}
		}
	}

	return tx.Commit()
}

// GetSession returns one catalog row.
func (st *Store) GetSession(ctx context.Context, id uuid.UUID) (SessionRecord, error) {
	row := st.db.QueryRowContext(ctx, `
		SELECT s.id, s.vehicle, s.venue, s.driver, s.comment, s.start_time,
		       s.channels, s.source_path, s.created_at,
		       (SELECT COUNT(*) FROM laps l WHERE l.session_id = s.id)
		FROM sessions s WHERE s.id = ?`, id.String())
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrNotFound
	}
	return rec, err
}

// ListSessions returns the catalog ordered newest first.
func (st *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT s.id, s.vehicle, s.venue, s.driver, s.comment, s.start_time,
		       s.channels, s.source_path, s.created_at,
		       (SELECT COUNT(*) FROM laps l WHERE l.session_id = s.id)
		FROM sessions s ORDER BY s.created_at DESC, s.id`)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListLaps returns a session's stored laps with their sectors, ordered by
// lap index.
func (st *Store) ListLaps(ctx context.Context, id uuid.UUID) ([]telemetry.Lap, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT idx, start_time, end_time, complete
		FROM laps WHERE session_id = ? ORDER BY idx`, id.String())
	if err != nil {
		return nil, fmt.Errorf("store: list laps: %w", err)
	}
	defer rows.Close()

	var laps []telemetry.Lap
	for rows.Next() {
		lap := telemetry.Lap{SessionID: id}
		if err := rows.Scan(&lap.Index, &lap.Start, &lap.End, &lap.Complete); err != nil {
			return nil, fmt.Errorf("store: scan lap: %w", err)
		}
		laps = append(laps, lap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range laps {
		secs, err := st.listSectors(ctx, id, laps[i].Index)
		if err != nil {
			return nil, err
		}
		laps[i].Sectors = secs
	}
	return laps, nil
}

func (st *Store) listSectors(ctx context.Context, id uuid.UUID, lapIdx int) ([]telemetry.Sector, error) {
	rows, err := st.db.QueryContext(ctx, `
		SELECT idx, start_time, end_time, approximate
		FROM sectors WHERE session_id = ? AND lap_idx = ? ORDER BY idx`, id.String(), lapIdx)
	if err != nil {
		return nil, fmt.Errorf("store: list sectors: %w", err)
	}
	defer rows.Close()

	var secs []telemetry.Sector
	for rows.Next() {
		var sec telemetry.Sector
		if err := rows.Scan(&sec.Index, &sec.Start, &sec.End, &sec.Approximate); err != nil {
			return nil, fmt.Errorf("store: scan sector: %w", err)
		}
		secs = append(secs, sec)
	}
	return secs, rows.Err()
}

// DeleteSession removes a session and, via cascade, its laps and sectors.
func (st *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	res, err := st.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("store: delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (SessionRecord, error) {
	var (
		rec     SessionRecord
		rawID   string
		start   sql.NullString
		created string
	)
	err := row.Scan(&rawID, &rec.Vehicle, &rec.Venue, &rec.Driver, &rec.Comment,
		&start, &rec.Channels, &rec.SourcePath, &created, &rec.LapCount)
	if err != nil {
		return SessionRecord{}, err
	}
	if rec.ID, err = uuid.Parse(rawID); err != nil {
		return SessionRecord{}, fmt.Errorf("store: session id %q: %w", rawID, err)
	}
	if start.Valid {
		if rec.Start, err = time.Parse(time.RFC3339Nano, start.String); err != nil {
			return SessionRecord{}, fmt.Errorf("store: start time %q: %w", start.String, err)
		}
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return SessionRecord{}, fmt.Errorf("store: created at %q: %w", created, err)
	}
	return rec, nil
}
