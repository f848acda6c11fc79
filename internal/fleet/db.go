package fleet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a fleet id does not exist.
var ErrNotFound = errors.New("fleet not found")

const schema = `
CREATE TABLE IF NOT EXISTS fleets (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS fleet_satellites (
	fleet_id TEXT NOT NULL REFERENCES fleets(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	start    REAL NOT NULL,
	"end"    REAL NOT NULL,
	cost     REAL NOT NULL,
	region   TEXT NOT NULL,
	PRIMARY KEY (fleet_id, position)
);
`

// Store persists fleets in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open initializes the SQLite database at path, creating parent directories
// and the schema as needed. WAL mode and a busy timeout are set through the
// DSN so they apply to every connection.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating fleet db directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening fleet db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing fleet schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores a new fleet and returns it with its assigned ID.
func (s *Store) Save(ctx context.Context, name string, sats []Descriptor) (Fleet, error) {
	f := Fleet{
		ID:             ulid.Make().String(),
		Name:           name,
		CreatedAt:      time.Now().UTC(),
		SatelliteCount: len(sats),
		Satellites:     sats,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Fleet{}, fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO fleets (id, name, created_at) VALUES (?, ?, ?)`,
		f.ID, f.Name, f.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Fleet{}, fmt.Errorf("inserting fleet: %w", err)
	}

	for i, d := range sats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fleet_satellites (fleet_id, position, name, start, "end", cost, region)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, i, d.Name, d.Start, d.End, d.Cost, d.Region,
		); err != nil {
			return Fleet{}, fmt.Errorf("inserting satellite %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Fleet{}, fmt.Errorf("committing save: %w", err)
	}
	return f, nil
}

// Get loads a fleet by id, including its satellites in stored order.
func (s *Store) Get(ctx context.Context, id string) (Fleet, error) {
	var f Fleet
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM fleets WHERE id = ?`, id,
	).Scan(&f.ID, &f.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Fleet{}, fmt.Errorf("fleet %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Fleet{}, fmt.Errorf("loading fleet: %w", err)
	}
	if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return Fleet{}, fmt.Errorf("parsing fleet timestamp: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, start, "end", cost, region FROM fleet_satellites
		 WHERE fleet_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return Fleet{}, fmt.Errorf("loading fleet satellites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Descriptor
		if err := rows.Scan(&d.Name, &d.Start, &d.End, &d.Cost, &d.Region); err != nil {
			return Fleet{}, fmt.Errorf("scanning satellite: %w", err)
		}
		f.Satellites = append(f.Satellites, d)
	}
	if err := rows.Err(); err != nil {
		return Fleet{}, fmt.Errorf("iterating satellites: %w", err)
	}
	f.SatelliteCount = len(f.Satellites)
	return f, nil
}

// List returns all stored fleets, newest first, as summaries carrying the
// satellite count but not the satellites themselves.
func (s *Store) List(ctx context.Context) ([]Fleet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.created_at, COUNT(fs.fleet_id)
		 FROM fleets f
		 LEFT JOIN fleet_satellites fs ON fs.fleet_id = f.id
		 GROUP BY f.id ORDER BY f.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing fleets: %w", err)
	}
	defer rows.Close()

	fleets := []Fleet{}
	for rows.Next() {
		var f Fleet
		var createdAt string
		if err := rows.Scan(&f.ID, &f.Name, &createdAt, &f.SatelliteCount); err != nil {
			return nil, fmt.Errorf("scanning fleet: %w", err)
		}
		if f.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parsing fleet timestamp: %w", err)
		}
		fleets = append(fleets, f)
	}
	return fleets, rows.Err()
}
