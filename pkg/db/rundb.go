package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yumyai/genomeqc/pkg/busco"
)

// JobStatus tracks one genome job through the batch.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobSkipped   JobStatus = "skipped" // input missing; the job never ran
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	manifest    TEXT NOT NULL,
	status      TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP
);
CREATE TABLE IF NOT EXISTS genome_jobs (
	run_id      TEXT NOT NULL,
	genome_id   TEXT NOT NULL,
	status      TEXT NOT NULL,
	complete    REAL NOT NULL DEFAULT 0,
	single      REAL NOT NULL DEFAULT 0,
	duplicated  REAL NOT NULL DEFAULT 0,
	fragmented  REAL NOT NULL DEFAULT 0,
	missing     REAL NOT NULL DEFAULT 0,
	total_busco INTEGER NOT NULL DEFAULT 0,
	updated_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, genome_id)
);`

// RunStore keeps a record of batch runs and per-genome job outcomes in a
// local sqlite database. It is optional: a nil *RunStore disables recording.
type RunStore struct {
	runSQL *sql.DB
}

func Open(path string) (*RunStore, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	if _, err := d.Exec(schema); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to init run store schema: %w", err)
	}
	return &RunStore{runSQL: d}, nil
}

func (s *RunStore) Close() error {
	if s == nil {
		return nil
	}
	return s.runSQL.Close()
}

// BeginRun registers a new batch run and returns its id.
func (s *RunStore) BeginRun(kind, manifest string) (string, error) {
	if s == nil {
		return "", nil
	}
	id := uuid.New().String()
	_, err := s.runSQL.Exec(
		`INSERT INTO runs (id, kind, manifest, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, manifest, "running", time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return id, nil
}

// FinishRun closes out a batch run with its final status.
func (s *RunStore) FinishRun(runID, status string) error {
	if s == nil {
		return nil
	}
	_, err := s.runSQL.Exec(
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now(), runID)
	return err
}

// SetJobStatus records (or moves) one genome job's lifecycle state.
func (s *RunStore) SetJobStatus(runID, genomeID string, status JobStatus) error {
	if s == nil {
		return nil
	}
	_, err := s.runSQL.Exec(
		`INSERT INTO genome_jobs (run_id, genome_id, status, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (run_id, genome_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		runID, genomeID, string(status), time.Now())
	return err
}

// CompleteJob stores the parsed completeness stats and marks the job done.
func (s *RunStore) CompleteJob(runID, genomeID string, st busco.Stats) error {
	if s == nil {
		return nil
	}
	_, err := s.runSQL.Exec(
		`UPDATE genome_jobs SET status = ?, complete = ?, single = ?, duplicated = ?,
		        fragmented = ?, missing = ?, total_busco = ?, updated_at = ?
		 WHERE run_id = ? AND genome_id = ?`,
		string(JobCompleted), st.Complete, st.Single, st.Duplicated,
		st.Fragmented, st.Missing, st.Total, time.Now(), runID, genomeID)
	return err
}
