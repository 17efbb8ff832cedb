package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/yieldpoint/internal/tensile"
)

// Store appends curve runs to a SQLite file. The simulator only writes to
// it; the file is meant for notebooks and spreadsheets.
type Store struct {
	conn *sqlx.DB
}

// Run describes one stored curve.
type Run struct {
	ID         string    `db:"id"`
	Material   string    `db:"material"`
	Resolution int       `db:"resolution"`
	Overshoot  float64   `db:"overshoot"`
	Points     int       `db:"points"`
	CreatedAt  time.Time `db:"created_at"`
}

// OpenStore opens or creates the SQLite file at path.
func OpenStore(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		material TEXT NOT NULL,
		resolution INTEGER NOT NULL,
		overshoot REAL NOT NULL,
		points INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS points (
		run_id TEXT NOT NULL REFERENCES runs(id),
		idx INTEGER NOT NULL,
		strain REAL NOT NULL,
		stress REAL NOT NULL,
		phase TEXT NOT NULL,
		PRIMARY KEY (run_id, idx)
	);

	CREATE INDEX IF NOT EXISTS idx_points_phase ON points(run_id, phase);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// SaveRun writes curve and its run record in one transaction and returns
// the run with its generated id.
func (s *Store) SaveRun(ctx context.Context, m *tensile.Model, resolution int, overshoot float64, curve tensile.Curve) (Run, error) {
	run := Run{
		ID:         uuid.New().String(),
		Material:   m.Material().Name,
		Resolution: resolution,
		Overshoot:  overshoot,
		Points:     len(curve),
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return Run{}, err
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `INSERT INTO runs
		(id, material, resolution, overshoot, points, created_at)
		VALUES (:id, :material, :resolution, :overshoot, :points, :created_at)`, run); err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO points
		(run_id, idx, strain, stress, phase) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return Run{}, err
	}
	defer stmt.Close()

	for i, p := range curve {
		if _, err := stmt.ExecContext(ctx, run.ID, i, p.Strain, p.Stress, p.Phase.Key()); err != nil {
			return Run{}, fmt.Errorf("insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, err
	}
	slog.Info("curve run saved", "run_id", run.ID, "points", run.Points, "resolution", resolution)
	return run, nil
}
