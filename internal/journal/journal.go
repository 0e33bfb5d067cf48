// Package journal keeps a local record of submitted panel jobs: what was
// submitted, how it ended, and whether the user was told. Sessions are
// ephemeral; the journal is what survives a restart.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Job statuses. Pending means the poller has not yet observed a terminal
// status; timeout means the poller gave up before seeing one.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusTimeout = "timeout"
)

// Notification delivery states.
const (
	NotifyPending = "pending"
	NotifySent    = "sent"
	NotifyFailed  = "failed"
)

// Job is one journal row.
type Job struct {
	ID           int64      `json:"id"`
	JobID        string     `json:"job_id"`
	Kind         string     `json:"kind"`
	Account      string     `json:"account"`
	Name         string     `json:"name"`
	Channel      string     `json:"channel,omitempty"`
	ChatID       string     `json:"chat_id,omitempty"`
	TraceID      string     `json:"trace_id,omitempty"`
	Status       string     `json:"status"`
	Result       string     `json:"result,omitempty"`
	NotifyStatus string     `json:"notify_status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// Service is the sqlite-backed job journal.
type Service struct {
	db *sql.DB
}

// NewService opens (or creates) the journal database at dbPath.
func NewService(dbPath string) (*Service, error) {
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply journal schema: %w", err)
	}
	return &Service{db: db}, nil
}

// Close releases the database handle.
func (s *Service) Close() error {
	return s.db.Close()
}

// RecordSubmission inserts a submitted job. Re-recording the same job id is
// a no-op.
func (s *Service) RecordSubmission(job Job) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO jobs (job_id, kind, account, name, channel, chat_id, trace_id, status, notify_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.JobID, job.Kind, job.Account, job.Name, job.Channel, job.ChatID, job.TraceID,
		StatusPending, NotifyPending,
	)
	if err != nil {
		return fmt.Errorf("record submission %s: %w", job.JobID, err)
	}
	return nil
}

// MarkTerminal records a job's final status. Only the first terminal update
// takes effect; repeats are no-ops.
func (s *Service) MarkTerminal(jobID, status, result string) error {
	_, err := s.db.Exec(`
		UPDATE jobs
		SET status = ?, result = ?, updated_at = CURRENT_TIMESTAMP, completed_at = CURRENT_TIMESTAMP
		WHERE job_id = ? AND status = ?`,
		status, result, jobID, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark terminal %s: %w", jobID, err)
	}
	return nil
}

// MarkNotified records whether the terminal notification reached the user.
func (s *Service) MarkNotified(jobID, notifyStatus string) error {
	_, err := s.db.Exec(`
		UPDATE jobs SET notify_status = ?, updated_at = CURRENT_TIMESTAMP WHERE job_id = ?`,
		notifyStatus, jobID,
	)
	if err != nil {
		return fmt.Errorf("mark notified %s: %w", jobID, err)
	}
	return nil
}

// Get returns one job by panel job id.
func (s *Service) Get(jobID string) (*Job, error) {
	row := s.db.QueryRow(`
		SELECT id, job_id, kind, account, name, channel, chat_id, trace_id,
		       status, result, notify_status, created_at, updated_at, completed_at
		FROM jobs WHERE job_id = ?`, jobID)
	return scanJob(row)
}

// Recent returns the newest jobs, most recent first.
func (s *Service) Recent(limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT id, job_id, kind, account, name, channel, chat_id, trace_id,
		       status, result, notify_status, created_at, updated_at, completed_at
		FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*Job, error) {
	var job Job
	var completed sql.NullTime
	err := r.Scan(
		&job.ID, &job.JobID, &job.Kind, &job.Account, &job.Name,
		&job.Channel, &job.ChatID, &job.TraceID,
		&job.Status, &job.Result, &job.NotifyStatus,
		&job.CreatedAt, &job.UpdatedAt, &completed,
	)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if completed.Valid {
		job.CompletedAt = &completed.Time
	}
	return &job, nil
}
