package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/models"
	"github.com/Jeelislive/openRank-Backend/internal/repositories"
	"github.com/Jeelislive/openRank-Backend/internal/services"
	"github.com/Jeelislive/openRank-Backend/pkg/logger"
)

// DiscoveryWorker processes discovery jobs (company or location candidate
// sourcing) and sweep jobs (full bucket refresh).
type DiscoveryWorker struct {
	*BaseWorker
	jobRepo          *repositories.JobRepository
	discoveryService *services.DiscoveryService
}

func NewDiscoveryWorker(workerID string, jobRepo *repositories.JobRepository, discoveryService *services.DiscoveryService) *DiscoveryWorker {
	return &DiscoveryWorker{
		BaseWorker:       NewBaseWorker(workerID, models.JobTypeDiscovery),
		jobRepo:          jobRepo,
		discoveryService: discoveryService,
	}
}

// Start begins the discovery worker process
func (w *DiscoveryWorker) Start(ctx context.Context) error {
	w.Running = true
	logger.Infof("discovery worker %s started", w.WorkerID)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("discovery worker %s stopping due to context cancellation", w.WorkerID)
			return ctx.Err()
		case <-w.StopChan:
			logger.Infof("discovery worker %s stopping", w.WorkerID)
			return nil
		default:
			job, err := w.nextJob()
			if err != nil {
				logger.WithError(err).Errorf("discovery worker %s error getting job", w.WorkerID)
				time.Sleep(10 * time.Second)
				continue
			}

			if job == nil {
				time.Sleep(10 * time.Second)
				continue
			}

			w.processJob(ctx, job)
		}
	}
}

// nextJob claims a discovery job, or a sweep job when no discovery job is
// pending. Sweeps share this worker so at most one candidate-sourcing run is
// claimed at a time per worker.
func (w *DiscoveryWorker) nextJob() (*models.Job, error) {
	job, err := w.jobRepo.GetNextPendingJob(models.JobTypeDiscovery, w.WorkerID)
	if err != nil || job != nil {
		return job, err
	}
	return w.jobRepo.GetNextPendingJob(models.JobTypeSweep, w.WorkerID)
}

func (w *DiscoveryWorker) processJob(ctx context.Context, job *models.Job) {
	logger.Infof("discovery worker %s processing %s job %s", w.WorkerID, job.JobType, job.ID)

	if err := w.runJob(ctx, job); err != nil {
		logger.WithError(err).Errorf("discovery worker %s failed job %s", w.WorkerID, job.ID)
		job.SetError(err.Error())
		job.MarkFailed()
	} else {
		job.MarkCompleted()
	}

	if err := w.jobRepo.Update(job); err != nil {
		logger.WithError(err).Errorf("discovery worker %s error updating job %s", w.WorkerID, job.ID)
	}
}

func (w *DiscoveryWorker) runJob(ctx context.Context, job *models.Job) error {
	if job.JobType == models.JobTypeSweep {
		w.discoveryService.RunSweep(ctx)
		return nil
	}

	var payload models.DiscoveryPayload
	if err := job.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("invalid discovery payload: %w", err)
	}

	processed, err := w.discoveryService.Discover(ctx, payload)
	if err != nil {
		return err
	}

	logger.Infof("discovery worker %s job %s processed %d developers", w.WorkerID, job.ID, processed)
	return nil
}
