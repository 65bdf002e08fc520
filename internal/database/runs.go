package database

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/m7alleus/mazer/internal/cave"
	"github.com/m7alleus/mazer/internal/logger"
)

// ErrRunNotFound is returned when a run lookup fails.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit is used by ListRuns when no positive limit is given.
const DefaultListLimit = 20

const runColumns = `id, fingerprint, seed, width, height, fill_percent, smooth_passes,
	wall_threshold, room_threshold, border_size, passage_radius, scale_factor,
	wall_regions, room_regions, rooms, passages, fully_connected, tiles, created_at`

// Run is one archived generation: the resolved parameters plus the output.
type Run struct {
	ID            int64
	Fingerprint   string
	Seed          string
	Width         int
	Height        int
	FillPercent   int
	SmoothPasses  int
	WallThreshold int
	RoomThreshold int
	BorderSize    int
	PassageRadius int
	ScaleFactor   int

	WallRegions    int
	RoomRegions    int
	Rooms          int
	Passages       int
	FullyConnected bool
	Tiles          []string // '#' wall, '.' floor, one string per row
	CreatedAt      time.Time
}

// Config returns the generator config that reproduces this run.
func (r *Run) Config() cave.Config {
	return cave.Config{
		Width:         r.Width,
		Height:        r.Height,
		Seed:          r.Seed,
		FillPercent:   r.FillPercent,
		SmoothPasses:  r.SmoothPasses,
		WallThreshold: r.WallThreshold,
		RoomThreshold: r.RoomThreshold,
		BorderSize:    r.BorderSize,
		PassageRadius: r.PassageRadius,
		ScaleFactor:   r.ScaleFactor,
	}
}

// Grid parses the stored tiles.
func (r *Run) Grid() (*cave.Grid, error) {
	return cave.GridFromRows(r.Tiles)
}

// Fingerprint identifies a config with a resolved seed. Generation is
// deterministic, so equal fingerprints mean equal maps.
func Fingerprint(cfg cave.Config) string {
	canonical := fmt.Sprintf("%s|%d|%d|%d|%d|%d|%d|%d|%d|%d",
		cfg.Seed, cfg.Width, cfg.Height, cfg.FillPercent, cfg.SmoothPasses,
		cfg.WallThreshold, cfg.RoomThreshold, cfg.BorderSize, cfg.PassageRadius, cfg.ScaleFactor)
	sum := blake2b.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:16])
}

// SaveRun archives a generated map. cfg is the config the map was generated
// from; its seed is replaced by the map's resolved seed. Saving the same
// run twice returns the existing ID.
func (d *Database) SaveRun(m *cave.Map, cfg cave.Config) (int64, error) {
	if m == nil {
		return 0, errors.New("map cannot be nil")
	}

	cfg.Seed = m.Seed
	cfg.UseRandomSeed = false
	fingerprint := Fingerprint(cfg)

	grid, err := m.Grid()
	if err != nil {
		return 0, fmt.Errorf("failed to read map tiles: %w", err)
	}

	query := d.qb.BuildWithReturning(
		`INSERT INTO generation_runs (fingerprint, seed, width, height, fill_percent, smooth_passes,
			wall_threshold, room_threshold, border_size, passage_radius, scale_factor,
			wall_regions, room_regions, rooms, passages, fully_connected, tiles)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"id",
	)
	args := []any{
		fingerprint, cfg.Seed, cfg.Width, cfg.Height, cfg.FillPercent, cfg.SmoothPasses,
		cfg.WallThreshold, cfg.RoomThreshold, cfg.BorderSize, cfg.PassageRadius, cfg.ScaleFactor,
		m.WallRegionCount, m.RoomRegionCount, m.RoomCount, len(m.Passages), m.FullyConnected,
		strings.Join(grid.Rows(), "\n"),
	}

	var id int64
	if d.dialect.SupportsLastInsertID() {
		var result sql.Result
		result, err = d.db.Exec(query, args...)
		if err == nil {
			id, err = result.LastInsertId()
		}
	} else {
		err = d.db.QueryRow(query, args...).Scan(&id)
	}

	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			existing, lookupErr := d.runIDByFingerprint(fingerprint)
			if lookupErr != nil {
				return 0, lookupErr
			}
			logger.Debug("Run already archived", "run_id", existing, "seed", cfg.Seed)
			return existing, nil
		}
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	logger.Info("Run archived", "run_id", id, "seed", cfg.Seed, "fully_connected", m.FullyConnected)
	return id, nil
}

func (d *Database) runIDByFingerprint(fingerprint string) (int64, error) {
	var id int64
	err := d.db.QueryRow(
		d.qb.Build("SELECT id FROM generation_runs WHERE fingerprint = ?"),
		fingerprint,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrRunNotFound
		}
		return 0, fmt.Errorf("failed to look up run: %w", err)
	}
	return id, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run   Run
		tiles string
	)
	err := row.Scan(
		&run.ID, &run.Fingerprint, &run.Seed, &run.Width, &run.Height, &run.FillPercent, &run.SmoothPasses,
		&run.WallThreshold, &run.RoomThreshold, &run.BorderSize, &run.PassageRadius, &run.ScaleFactor,
		&run.WallRegions, &run.RoomRegions, &run.Rooms, &run.Passages, &run.FullyConnected, &tiles, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if tiles != "" {
		run.Tiles = strings.Split(tiles, "\n")
	}
	return &run, nil
}

// GetRun loads a run by ID.
func (d *Database) GetRun(id int64) (*Run, error) {
	row := d.db.QueryRow(d.qb.Build("SELECT "+runColumns+" FROM generation_runs WHERE id = ?"), id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (d *Database) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := d.db.Query(
		d.qb.Build("SELECT "+runColumns+" FROM generation_runs ORDER BY id DESC LIMIT ?"),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run.
func (d *Database) DeleteRun(id int64) error {
	result, err := d.db.Exec(d.qb.Build("DELETE FROM generation_runs WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

// CountRuns returns the number of archived runs.
func (d *Database) CountRuns() (int, error) {
	var count int
	if err := d.db.QueryRow("SELECT COUNT(*) FROM generation_runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// RunsAfter returns up to limit runs with IDs greater than afterID, oldest
// first. It is used to page through the whole archive.
func (d *Database) RunsAfter(afterID int64, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := d.db.Query(
		d.qb.Build("SELECT "+runColumns+" FROM generation_runs WHERE id > ? ORDER BY id ASC LIMIT ?"),
		afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to page runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// ImportRun copies a run from another archive, keeping its fingerprint and
// creation time. The run ID is assigned by this archive. A run that is
// already present is skipped and its existing ID returned with inserted false.
func (d *Database) ImportRun(run *Run) (id int64, inserted bool, err error) {
	if run == nil {
		return 0, false, errors.New("run cannot be nil")
	}

	fingerprint := run.Fingerprint
	if fingerprint == "" {
		fingerprint = Fingerprint(run.Config())
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := d.qb.BuildWithReturning(
		`INSERT INTO generation_runs (fingerprint, seed, width, height, fill_percent, smooth_passes,
			wall_threshold, room_threshold, border_size, passage_radius, scale_factor,
			wall_regions, room_regions, rooms, passages, fully_connected, tiles, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"id",
	)
	args := []any{
		fingerprint, run.Seed, run.Width, run.Height, run.FillPercent, run.SmoothPasses,
		run.WallThreshold, run.RoomThreshold, run.BorderSize, run.PassageRadius, run.ScaleFactor,
		run.WallRegions, run.RoomRegions, run.Rooms, run.Passages, run.FullyConnected,
		strings.Join(run.Tiles, "\n"), createdAt.UTC(),
	}

	if d.dialect.SupportsLastInsertID() {
		var result sql.Result
		result, err = d.db.Exec(query, args...)
		if err == nil {
			id, err = result.LastInsertId()
		}
	} else {
		err = d.db.QueryRow(query, args...).Scan(&id)
	}

	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			existing, lookupErr := d.runIDByFingerprint(fingerprint)
			if lookupErr != nil {
				return 0, false, lookupErr
			}
			return existing, false, nil
		}
		return 0, false, fmt.Errorf("failed to import run: %w", err)
	}
	return id, true, nil
}
