package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
)

// JobRepository handles database operations for background jobs
type JobRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewJobRepository creates a new JobRepository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job
func (r *JobRepository) Create(job *models.Job) error {
	query := `
		INSERT INTO jobs (id, job_type, status, payload, error_message, worker_id, started_at, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.JobType,
		job.Status,
		job.Payload,
		job.ErrorMessage,
		job.WorkerID,
		job.StartedAt,
		job.CompletedAt,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// Update updates an existing job
func (r *JobRepository) Update(job *models.Job) error {
	job.UpdatedAt = time.Now()

	query := `
		UPDATE jobs SET
			status = ?, payload = ?, error_message = ?, worker_id = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		job.Status,
		job.Payload,
		job.ErrorMessage,
		job.WorkerID,
		job.StartedAt,
		job.CompletedAt,
		job.UpdatedAt,
		job.ID,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(id string) (*models.Job, error) {
	query := `
		SELECT id, job_type, status, payload, error_message, worker_id, started_at, completed_at, created_at, updated_at
		FROM jobs WHERE id = ?
	`

	job := &models.Job{}
	err := r.db.QueryRow(query, id).Scan(
		&job.ID,
		&job.JobType,
		&job.Status,
		&job.Payload,
		&job.ErrorMessage,
		&job.WorkerID,
		&job.StartedAt,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return job, nil
}

// GetNextPendingJob retrieves the oldest pending job of a specific type and
// atomically marks it in-progress for the given worker. Returns nil when no
// job is available.
func (r *JobRepository) GetNextPendingJob(jobType models.JobType, workerID string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		SELECT id, job_type, status, payload, error_message, worker_id, started_at, completed_at, created_at, updated_at
		FROM jobs
		WHERE status = ? AND job_type = ?
		ORDER BY created_at ASC
		LIMIT 1
	`

	job := &models.Job{}
	err = tx.QueryRow(query, models.JobStatusPending, jobType).Scan(
		&job.ID,
		&job.JobType,
		&job.Status,
		&job.Payload,
		&job.ErrorMessage,
		&job.WorkerID,
		&job.StartedAt,
		&job.CompletedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	job.MarkStarted()
	job.WorkerID = &workerID
	job.UpdatedAt = time.Now()

	updateQuery := `UPDATE jobs SET status = ?, worker_id = ?, started_at = ?, updated_at = ? WHERE id = ?`
	if _, err := tx.Exec(updateQuery, job.Status, job.WorkerID, job.StartedAt, job.UpdatedAt, job.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return job, nil
}

// CountPending returns the number of pending jobs of the given type.
func (r *JobRepository) CountPending(jobType models.JobType) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM jobs WHERE status = ? AND job_type = ?`, models.JobStatusPending, jobType).Scan(&count)
	return count, err
}

// HasPendingForUsername reports whether a pending or running calculate job
// already targets the given username, to avoid enqueueing duplicates. The
// payload is compared via json_extract so usernames never act as match
// patterns.
func (r *JobRepository) HasPendingForUsername(username string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM jobs
		 WHERE job_type = ? AND status IN (?, ?)
		   AND json_extract(payload, '$.username') = ?`,
		models.JobTypeCalculate, models.JobStatusPending, models.JobStatusInProgress, username,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
