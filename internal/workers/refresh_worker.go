package workers

import (
	"context"
	"strconv"
	"time"

	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/qingbolan/github-yearbook/internal/repositories"
	"github.com/qingbolan/github-yearbook/internal/services"
	"github.com/qingbolan/github-yearbook/pkg/logger"
)

// RefreshWorker re-aggregates stale cached yearbooks. Tokens are never
// persisted, so refreshes run through the public events path only.
type RefreshWorker struct {
	*BaseWorker
	jobRepo  *repositories.JobRepository
	yearbook *services.YearbookService
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(workerID string, jobRepo *repositories.JobRepository, yearbook *services.YearbookService) *RefreshWorker {
	return &RefreshWorker{
		BaseWorker: NewBaseWorker(workerID, models.JobTypeRefresh),
		jobRepo:    jobRepo,
		yearbook:   yearbook,
	}
}

// Start begins the refresh worker process
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.Running = true
	logger.Infof("Refresh worker %s started", w.WorkerID)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("Refresh worker %s stopping due to context cancellation", w.WorkerID)
			return ctx.Err()
		case <-w.StopChan:
			logger.Infof("Refresh worker %s stopping", w.WorkerID)
			return nil
		default:
			job, err := w.jobRepo.GetNextPendingJob(models.JobTypeRefresh, w.WorkerID)
			if err != nil {
				logger.WithError(err).Errorf("Refresh worker %s error getting job", w.WorkerID)
				time.Sleep(5 * time.Second)
				continue
			}

			if job == nil {
				// No jobs available, sleep and try again
				time.Sleep(10 * time.Second)
				continue
			}

			w.processRefreshJob(ctx, job)
		}
	}
}

// processRefreshJob re-aggregates one yearbook and updates the job record.
func (w *RefreshWorker) processRefreshJob(ctx context.Context, job *models.Job) {
	logger.Infof("Refresh worker %s processing job %s (%s/%d)", w.WorkerID, job.ID, job.Username, job.Year)

	job.MarkStarted()
	if err := w.jobRepo.Update(job); err != nil {
		logger.WithError(err).Errorf("Refresh worker %s error updating job %s", w.WorkerID, job.ID)
		return
	}

	req := services.StatsRequest{
		Username:     job.Username,
		Period:       strconv.Itoa(job.Year),
		ForceRefresh: true,
	}

	if _, err := w.yearbook.GetStats(ctx, req, nil); err != nil {
		logger.WithError(err).Errorf("Refresh worker %s failed job %s", w.WorkerID, job.ID)
		job.SetError(err.Error())
		job.MarkFailed()
	} else {
		job.MarkCompleted()
	}

	if err := w.jobRepo.Update(job); err != nil {
		logger.WithError(err).Errorf("Refresh worker %s error completing job %s", w.WorkerID, job.ID)
		return
	}

	logger.Infof("Refresh worker %s finished job %s with status %s", w.WorkerID, job.ID, job.Status)
}
