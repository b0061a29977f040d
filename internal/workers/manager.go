package workers

import (
	"context"
	"os"
	"strconv"
	"sync"

	"github.com/Jeelislive/openRank-Backend/internal/repositories"
	"github.com/Jeelislive/openRank-Backend/internal/services"
	"github.com/Jeelislive/openRank-Backend/pkg/logger"
)

const (
	defaultCalculateWorkers = 2
	defaultDiscoveryWorkers = 1
)

// WorkerManager manages all workers in the system
type WorkerManager struct {
	workers []Worker
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerManager creates a manager with worker counts taken from the
// environment (CALCULATE_WORKERS, DISCOVERY_WORKERS).
func NewWorkerManager(
	jobRepo *repositories.JobRepository,
	developerService *services.DeveloperService,
	discoveryService *services.DiscoveryService,
) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &WorkerManager{ctx: ctx, cancel: cancel}

	calcCount := workerCount("CALCULATE_WORKERS", defaultCalculateWorkers)
	for i := 0; i < calcCount; i++ {
		workerID := "calculate-worker-" + strconv.Itoa(i+1)
		m.workers = append(m.workers, NewCalculateWorker(workerID, jobRepo, developerService))
	}

	discoveryCount := workerCount("DISCOVERY_WORKERS", defaultDiscoveryWorkers)
	for i := 0; i < discoveryCount; i++ {
		workerID := "discovery-worker-" + strconv.Itoa(i+1)
		m.workers = append(m.workers, NewDiscoveryWorker(workerID, jobRepo, discoveryService))
	}

	return m
}

// StartAll starts all managed workers
func (m *WorkerManager) StartAll() {
	logger.Infof("starting %d workers", len(m.workers))

	for _, worker := range m.workers {
		m.wg.Add(1)
		go func(w Worker) {
			defer m.wg.Done()
			if err := w.Start(m.ctx); err != nil && err != context.Canceled {
				logger.WithError(err).Errorf("worker %s exited with error", w.GetWorkerID())
			}
		}(worker)
	}
}

// StopAll gracefully stops all managed workers
func (m *WorkerManager) StopAll() {
	logger.Info("stopping all workers")

	m.cancel()
	for _, worker := range m.workers {
		if err := worker.Stop(); err != nil {
			logger.WithError(err).Errorf("error stopping worker %s", worker.GetWorkerID())
		}
	}
	m.wg.Wait()

	logger.Info("all workers stopped")
}

func workerCount(envVar string, fallback int) int {
	if value := os.Getenv(envVar); value != "" {
		if count, err := strconv.Atoi(value); err == nil && count > 0 {
			return count
		}
	}
	return fallback
}
