package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/quackquavk/gridminer/internal/model"
)

// ErrJobNotFound is returned when a job id has no row.
var ErrJobNotFound = errors.New("job not found")

// ErrIllegalTransition is returned for lifecycle moves the state machine
// forbids, including any attempt to leave a terminal status.
var ErrIllegalTransition = errors.New("illegal status transition")

// logTail caps how many log lines a job keeps.
const logTail = 100

// Store is the sqlite-backed job store. It doubles as the orchestrator's
// ResultSink: checkpoints overwrite a job's record list wholesale.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		search_query TEXT NOT NULL,
		location TEXT,
		total INTEGER NOT NULL,
		grid_radius_km REAL,
		zoom_level INTEGER,
		status TEXT NOT NULL,
		results_count INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS job_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id TEXT NOT NULL,
		message TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_job_logs_job ON job_logs(job_id);
	CREATE TABLE IF NOT EXISTS job_records (
		job_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		category TEXT,
		address TEXT,
		website TEXT,
		email TEXT,
		phone TEXT,
		location_link TEXT,
		raw_snippet TEXT,
		PRIMARY KEY (job_id, position)
	);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// CreateJob inserts a pending job for the given config and returns it.
func (s *Store) CreateJob(ctx context.Context, cfg model.HarvestConfig) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := model.Job{
		ID:        uuid.NewString(),
		Config:    cfg,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	job.UpdatedAt = job.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, search_query, location, total, grid_radius_km, zoom_level,
		                  status, results_count, error, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,0,'',?,?)`,
		job.ID, cfg.SearchQuery, cfg.Location, cfg.Total, cfg.GridRadiusKm, cfg.ZoomLevel,
		string(job.Status), job.CreatedAt.Unix(), job.UpdatedAt.Unix(),
	)
	if err != nil {
		return model.Job{}, fmt.Errorf("inserting job: %w", err)
	}
	return job, nil
}

// GetJob loads one job with its log tail.
func (s *Store) GetJob(ctx context.Context, id string) (model.Job, error) {
	job, err := s.scanJob(s.db.QueryRowContext(ctx, `
		SELECT id, search_query, location, total, grid_radius_km, zoom_level,
		       status, results_count, error, created_at, updated_at
		FROM jobs WHERE id = ?`, id))
	if err != nil {
		return model.Job{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT message FROM job_logs WHERE job_id = ? ORDER BY id`, id)
	if err != nil {
		return model.Job{}, fmt.Errorf("loading logs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return model.Job{}, err
		}
		job.Logs = append(job.Logs, msg)
	}
	return job, rows.Err()
}

// ListJobs returns jobs newest first, without their log tails.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, search_query, location, total, grid_radius_km, zoom_level,
		       status, results_count, error, created_at, updated_at
		FROM jobs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// DeleteJob removes a job, its logs and its records.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrJobNotFound
	}
	s.db.ExecContext(ctx, `DELETE FROM job_logs WHERE job_id = ?`, id)
	s.db.ExecContext(ctx, `DELETE FROM job_records WHERE job_id = ?`, id)
	return nil
}

// SetStatus advances a job's lifecycle. Illegal moves, including any attempt
// to leave a terminal state, fail with ErrIllegalTransition. count < 0
// leaves results_count untouched.
func (s *Store) SetStatus(ctx context.Context, id string, status model.Status, count int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("reading status: %w", err)
	}

	if !model.Status(current).CanTransition(status) {
		return fmt.Errorf("%s -> %s: %w", current, status, ErrIllegalTransition)
	}

	if count >= 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE jobs SET status = ?, results_count = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status), count, errMsg, time.Now().UTC().Unix(), id)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
			string(status), errMsg, time.Now().UTC().Unix(), id)
	}
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	return tx.Commit()
}

// AppendLog adds one line to a job's log, trimming the tail to the last 100.
func (s *Store) AppendLog(ctx context.Context, jobID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `INSERT INTO job_logs (job_id, message) VALUES (?,?)`, jobID, message); err != nil {
		return fmt.Errorf("appending log: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM job_logs WHERE job_id = ? AND id NOT IN (
			SELECT id FROM job_logs WHERE job_id = ? ORDER BY id DESC LIMIT ?
		)`, jobID, jobID, logTail)
	if err != nil {
		return fmt.Errorf("trimming log: %w", err)
	}
	return nil
}

// Checkpoint replaces a job's accumulated record list wholesale and bumps
// its results count. Callers only ever checkpoint a superset of the previous
// snapshot, so the stored count is monotonic.
func (s *Store) Checkpoint(ctx context.Context, jobID string, records []model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_records WHERE job_id = ?`, jobID); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO job_records
		(job_id, position, name, category, address, website, email, phone, location_link, raw_snippet)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, jobID, i,
			r.Name, r.Category, r.Address, r.Website, r.Email, r.Phone, r.LocationLink, r.RawSnippet); err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET results_count = ?, updated_at = ? WHERE id = ?`,
		len(records), time.Now().UTC().Unix(), jobID); err != nil {
		return fmt.Errorf("updating count: %w", err)
	}

	return tx.Commit()
}

// Records returns a job's checkpointed records in accumulation order.
func (s *Store) Records(ctx context.Context, jobID string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, category, address, website, email, phone, location_link, raw_snippet
		FROM job_records WHERE job_id = ? ORDER BY position`, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var r model.Record
		if err := rows.Scan(&r.Name, &r.Category, &r.Address, &r.Website, &r.Email, &r.Phone, &r.LocationLink, &r.RawSnippet); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanJob(row rowScanner) (model.Job, error) {
	var job model.Job
	var status string
	var created, updated int64
	err := row.Scan(
		&job.ID, &job.Config.SearchQuery, &job.Config.Location, &job.Config.Total,
		&job.Config.GridRadiusKm, &job.Config.ZoomLevel,
		&status, &job.ResultsCount, &job.Error, &created, &updated,
	)
	if err == sql.ErrNoRows {
		return model.Job{}, ErrJobNotFound
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("scanning job: %w", err)
	}
	job.Status = model.Status(status)
	job.CreatedAt = time.Unix(created, 0).UTC()
	job.UpdatedAt = time.Unix(updated, 0).UTC()
	return job, nil
}
