package repositories

import (
	"database/sql"
	"sync"
	"time"

	"github.com/qingbolan/github-yearbook/internal/models"
)

// JobRepository handles database operations for refresh jobs
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
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO jobs (id, username, year, job_type, status, error_message, started_at, completed_at, worker_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		job.ID,
		job.Username,
		job.Year,
		job.JobType,
		job.Status,
		job.ErrorMessage,
		job.StartedAt,
		job.CompletedAt,
		job.WorkerID,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(id string) (*models.Job, error) {
	query := `
		SELECT id, username, year, job_type, status, error_message, started_at, completed_at, worker_id, created_at, updated_at
		FROM jobs WHERE id = ?
	`

	job := &models.Job{}
	err := r.db.QueryRow(query, id).Scan(
		&job.ID,
		&job.Username,
		&job.Year,
		&job.JobType,
		&job.Status,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.CompletedAt,
		&job.WorkerID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return job, nil
}

// HasPendingJob checks whether a pending or running refresh already exists
// for the given username and year.
func (r *JobRepository) HasPendingJob(username string, year int) (bool, error) {
	query := `
		SELECT COUNT(*) FROM jobs
		WHERE username = ? AND year = ? AND status IN (?, ?)
	`

	var count int
	err := r.db.QueryRow(query, username, year, models.JobStatusPending, models.JobStatusInProgress).Scan(&count)
	return count > 0, err
}

// GetNextPendingJob retrieves the next pending job of a specific type (FIFO),
// atomically marking it in-progress for the given worker.
func (r *JobRepository) GetNextPendingJob(jobType models.JobType, workerID string) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		SELECT id, username, year, job_type, status, error_message, started_at, completed_at, worker_id, created_at, updated_at
		FROM jobs
		WHERE job_type = ? AND status = ?
		ORDER BY created_at ASC
		LIMIT 1
	`

	job := &models.Job{}
	err = tx.QueryRow(query, jobType, models.JobStatusPending).Scan(
		&job.ID,
		&job.Username,
		&job.Year,
		&job.JobType,
		&job.Status,
		&job.ErrorMessage,
		&job.StartedAt,
		&job.CompletedAt,
		&job.WorkerID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	update := `
		UPDATE jobs SET status = ?, worker_id = ?, started_at = ?, updated_at = ?
		WHERE id = ?
	`
	if _, err := tx.Exec(update, models.JobStatusInProgress, workerID, now, now, job.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	job.Status = models.JobStatusInProgress
	job.WorkerID = &workerID
	job.StartedAt = &now
	job.UpdatedAt = now

	return job, nil
}

// Update updates an existing job
func (r *JobRepository) Update(job *models.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job.UpdatedAt = time.Now()

	query := `
		UPDATE jobs SET
			status = ?, error_message = ?, started_at = ?, completed_at = ?, worker_id = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		job.Status,
		job.ErrorMessage,
		job.StartedAt,
		job.CompletedAt,
		job.WorkerID,
		job.UpdatedAt,
		job.ID,
	)
	return err
}

// DeleteCompleted removes completed jobs older than the given cutoff.
func (r *JobRepository) DeleteCompleted(before time.Time) error {
	query := `DELETE FROM jobs WHERE status = ? AND completed_at < ?`
	_, err := r.db.Exec(query, models.JobStatusCompleted, before)
	return err
}
