// Package store persists analysis runs to SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/Faultbox/insolation/internal/irradiance"
	"github.com/Faultbox/insolation/internal/logger"
	"github.com/Faultbox/insolation/internal/radiation"
	"github.com/Faultbox/insolation/internal/sampler"
	"github.com/Faultbox/insolation/internal/skydome"
	"github.com/Faultbox/insolation/pkg/geom"
)

// ErrRunNotFound is returned by LoadRun for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    label TEXT,
    resolution INTEGER NOT NULL,
    north REAL NOT NULL,
    grid_size REAL NOT NULL,
    offset_distance REAL NOT NULL,
    units TEXT NOT NULL,
    total REAL NOT NULL,
    point_count INTEGER NOT NULL,
    elapsed_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS points (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    idx INTEGER NOT NULL,
    x REAL, y REAL, z REAL,
    nx REAL, ny REAL, nz REAL,
    area REAL NOT NULL,
    source INTEGER NOT NULL,
    result REAL NOT NULL,
    PRIMARY KEY (run_id, idx)
);
CREATE TABLE IF NOT EXISTS contributions (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    point_idx INTEGER NOT NULL,
    patch_idx INTEGER NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY (run_id, point_idx, patch_idx)
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Meta is caller supplied information stored with a run.
type Meta struct {
	Label string
}

// Run is the summary row of a stored analysis.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Label      string
	Resolution skydome.Resolution
	North      float64
	GridSize   float64
	Offset     float64
	Units      string
	Total      float64
	PointCount int
	Elapsed    time.Duration
}

// Store is a SQLite backed run archive.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens (or creates) the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: ensure dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db, log: logger.Named("store")}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a result set in one transaction and returns its new ID.
// Only non-zero matrix entries are written.
func (s *Store) SaveRun(ctx context.Context, rs *radiation.ResultSet, meta Meta) (string, error) {
	if rs == nil {
		return "", errors.New("store: nil result set")
	}
	if len(rs.Results) != len(rs.Points) {
		return "", fmt.Errorf("store: %d results for %d points", len(rs.Results), len(rs.Points))
	}

	id := uuid.New().String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, label, resolution, north, grid_size, offset_distance, units, total, point_count, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, time.Now().UnixNano(), meta.Label, int(rs.Resolution), rs.North,
		rs.GridSize, rs.Offset, rs.Units, rs.Total, len(rs.Points), rs.Elapsed.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("store: insert run: %w", err)
	}

	pointStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO points (run_id, idx, x, y, z, nx, ny, nz, area, source, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("store: prepare points: %w", err)
	}
	defer pointStmt.Close()

	for i, p := range rs.Points {
		if _, err := pointStmt.ExecContext(ctx, id, i,
			p.Position.X, p.Position.Y, p.Position.Z,
			p.Normal.X, p.Normal.Y, p.Normal.Z,
			p.Area, p.Source, rs.Results[i]); err != nil {
			return "", fmt.Errorf("store: insert point %d: %w", i, err)
		}
	}

	written := 0
	if rs.Matrix != nil {
		cStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO contributions (run_id, point_idx, patch_idx, value) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return "", fmt.Errorf("store: prepare contributions: %w", err)
		}
		defer cStmt.Close()

		for i, row := range rs.Matrix.Values {
			for j, v := range row {
				if v == 0 {
					continue
				}
				if _, err := cStmt.ExecContext(ctx, id, i, j, v); err != nil {
					return "", fmt.Errorf("store: insert contribution %d/%d: %w", i, j, err)
				}
				written++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit: %w", err)
	}
	s.log.Debug("run saved",
		zap.String("id", id),
		zap.Int("points", len(rs.Points)),
		zap.Int("contributions", written))
	return id, nil
}

// LoadRun reads a stored run back into a result set. The study mesh is not
// stored, so Mesh is nil.
func (s *Store) LoadRun(ctx context.Context, id string) (*radiation.ResultSet, *Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, label, resolution, north, grid_size, offset_distance, units, total, point_count, elapsed_ms
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	points := make([]sampler.SamplePoint, run.PointCount)
	results := make([]float64, run.PointCount)
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, x, y, z, nx, ny, nz, area, source, result
		FROM points WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("store: query points: %w", err)
	}
	var loaded int
	for rows.Next() {
		var (
			idx  int
			p    sampler.SamplePoint
			r    float64
			n, q geom.Vec3
		)
		if err := rows.Scan(&idx, &q.X, &q.Y, &q.Z, &n.X, &n.Y, &n.Z, &p.Area, &p.Source, &r); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("store: scan point: %w", err)
		}
		if idx < 0 || idx >= run.PointCount {
			rows.Close()
			return nil, nil, fmt.Errorf("store: point index %d out of range", idx)
		}
		p.Position, p.Normal, p.Offset = q, n, run.Offset
		p.Centroid = q.Sub(n.Scale(run.Offset))
		points[idx], results[idx] = p, r
		loaded++
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("store: read points: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, nil, err
	}
	if loaded != run.PointCount {
		return nil, nil, fmt.Errorf("store: run %s has %d of %d points", id, loaded, run.PointCount)
	}

	patches := run.Resolution.PatchCount()
	matrix := &irradiance.IntersectionMatrix{
		Resolution: run.Resolution,
		Values:     make([][]float64, run.PointCount),
	}
	for i := range matrix.Values {
		matrix.Values[i] = make([]float64, patches)
	}
	crows, err := s.db.QueryContext(ctx, `
		SELECT point_idx, patch_idx, value FROM contributions WHERE run_id = ?`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("store: query contributions: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var i, j int
		var v float64
		if err := crows.Scan(&i, &j, &v); err != nil {
			return nil, nil, fmt.Errorf("store: scan contribution: %w", err)
		}
		if i < 0 || i >= run.PointCount || j < 0 || j >= patches {
			return nil, nil, fmt.Errorf("store: contribution %d/%d out of range", i, j)
		}
		matrix.Values[i][j] = v
	}
	if err := crows.Err(); err != nil {
		return nil, nil, err
	}

	rs := radiation.Assemble(points, results, run.Total, matrix)
	rs.GridSize = run.GridSize
	rs.Offset = run.Offset
	rs.Units = run.Units
	rs.North = run.North
	rs.Elapsed = run.Elapsed
	return rs, run, nil
}

// ListRuns returns all stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, label, resolution, north, grid_size, offset_distance, units, total, point_count, elapsed_ms
		FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its points and contributions.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r         Run
		created   int64
		label     sql.NullString
		res       int
		elapsedMS int64
	)
	err := row.Scan(&r.ID, &created, &label, &res, &r.North, &r.GridSize,
		&r.Offset, &r.Units, &r.Total, &r.PointCount, &elapsedMS)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.Unix(0, created)
	r.Label = label.String
	r.Resolution = skydome.Resolution(res)
	r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return &r, nil
}
