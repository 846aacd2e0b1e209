package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/qingbolan/github-yearbook/internal/repositories"
	"github.com/qingbolan/github-yearbook/internal/services"
	"github.com/qingbolan/github-yearbook/pkg/logger"
)

// WorkerManager manages the refresh worker pool
type WorkerManager struct {
	workers  []Worker
	jobRepo  *repositories.JobRepository
	yearbook *services.YearbookService
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(jobRepo *repositories.JobRepository, yearbook *services.YearbookService) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerManager{
		workers:  make([]Worker, 0),
		jobRepo:  jobRepo,
		yearbook: yearbook,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// StartAll starts the configured number of refresh workers
func (wm *WorkerManager) StartAll(refreshWorkers int) error {
	if refreshWorkers <= 0 {
		refreshWorkers = 1
	}

	logger.Infof("Starting workers - Refresh: %d", refreshWorkers)

	for i := 0; i < refreshWorkers; i++ {
		worker := NewRefreshWorker(fmt.Sprintf("refresh-%d", i+1), wm.jobRepo, wm.yearbook)
		wm.workers = append(wm.workers, worker)
		wm.startWorker(worker)
	}

	logger.Infof("Started %d total workers", len(wm.workers))
	return nil
}

// StopAll gracefully stops all workers
func (wm *WorkerManager) StopAll() error {
	logger.Info("Stopping all workers...")

	// Cancel the context to signal all workers to stop
	wm.cancel()

	for _, worker := range wm.workers {
		if err := worker.Stop(); err != nil {
			logger.WithError(err).Errorf("Error stopping worker %s", worker.GetWorkerID())
		}
	}

	// Wait for all workers to finish
	wm.wg.Wait()

	logger.Info("All workers stopped")
	return nil
}

// startWorker starts a single worker in a goroutine
func (wm *WorkerManager) startWorker(worker Worker) {
	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		if err := worker.Start(wm.ctx); err != nil && err != context.Canceled {
			logger.WithError(err).Errorf("Worker %s stopped with error", worker.GetWorkerID())
		}
	}()
}

// GetWorkerStatus returns the status of all workers
func (wm *WorkerManager) GetWorkerStatus() map[string]bool {
	status := make(map[string]bool)
	for _, worker := range wm.workers {
		if refreshWorker, ok := worker.(*RefreshWorker); ok {
			status[worker.GetWorkerID()] = refreshWorker.IsRunning()
		} else {
			status[worker.GetWorkerID()] = false
		}
	}
	return status
}
