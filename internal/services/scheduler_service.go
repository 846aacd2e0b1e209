package services

import (
	"time"

	"github.com/qingbolan/github-yearbook/internal/models"
	"github.com/qingbolan/github-yearbook/internal/repositories"
	"github.com/qingbolan/github-yearbook/pkg/logger"
)

// staleScanLimit bounds how many refresh jobs one scheduler pass can enqueue.
const staleScanLimit = 50

type SchedulerService struct {
	statsRepo *repositories.StatsRepository
	jobRepo   *repositories.JobRepository
	ttl       time.Duration
}

func NewSchedulerService(
	statsRepo *repositories.StatsRepository,
	jobRepo *repositories.JobRepository,
	ttl time.Duration,
) *SchedulerService {
	return &SchedulerService{
		statsRepo: statsRepo,
		jobRepo:   jobRepo,
		ttl:       ttl,
	}
}

// StartScheduler starts the hourly refresh scheduler
func (s *SchedulerService) StartScheduler() {
	go func() {
		for {
			now := time.Now()

			if err := s.scheduleStaleRefreshes(now); err != nil {
				logger.WithError(err).Errorf("Error scanning for stale yearbooks")
			}

			if err := s.jobRepo.DeleteCompleted(now.AddDate(0, 0, -7)); err != nil {
				logger.WithError(err).Errorf("Error pruning completed jobs")
			}

			// Sleep until the next hour
			nextHour := now.Add(1 * time.Hour)
			nextHour = time.Date(nextHour.Year(), nextHour.Month(), nextHour.Day(), nextHour.Hour(), 0, 0, 0, nextHour.Location())
			time.Sleep(nextHour.Sub(now))
		}
	}()
}

// scheduleStaleRefreshes enqueues a refresh job for every cached yearbook
// older than the TTL, skipping entries that already have one pending.
func (s *SchedulerService) scheduleStaleRefreshes(now time.Time) error {
	stale, err := s.statsRepo.GetStale(now.Add(-s.ttl), staleScanLimit)
	if err != nil {
		return err
	}

	for _, entry := range stale {
		pending, err := s.jobRepo.HasPendingJob(entry.Username, entry.Year)
		if err != nil {
			logger.WithError(err).Errorf("Error checking pending jobs for %s/%d", entry.Username, entry.Year)
			continue
		}
		if pending {
			continue
		}

		job := models.NewRefreshJob(entry.Username, entry.Year)
		if err := s.jobRepo.Create(job); err != nil {
			logger.WithError(err).Errorf("Failed to create refresh job for %s/%d", entry.Username, entry.Year)
			continue
		}
		logger.Infof("Scheduled refresh job %s for %s/%d", job.ID, entry.Username, entry.Year)
	}

	return nil
}
