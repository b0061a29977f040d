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

// CalculateWorker processes calculate jobs: eligibility-gate, fetch, score
// and upsert a single username.
type CalculateWorker struct {
	*BaseWorker
	jobRepo          *repositories.JobRepository
	developerService *services.DeveloperService
}

func NewCalculateWorker(workerID string, jobRepo *repositories.JobRepository, developerService *services.DeveloperService) *CalculateWorker {
	return &CalculateWorker{
		BaseWorker:       NewBaseWorker(workerID, models.JobTypeCalculate),
		jobRepo:          jobRepo,
		developerService: developerService,
	}
}

// Start begins the calculate worker process
func (w *CalculateWorker) Start(ctx context.Context) error {
	w.Running = true
	logger.Infof("calculate worker %s started", w.WorkerID)

	for {
		select {
		case <-ctx.Done():
			logger.Infof("calculate worker %s stopping due to context cancellation", w.WorkerID)
			return ctx.Err()
		case <-w.StopChan:
			logger.Infof("calculate worker %s stopping", w.WorkerID)
			return nil
		default:
			job, err := w.jobRepo.GetNextPendingJob(models.JobTypeCalculate, w.WorkerID)
			if err != nil {
				logger.WithError(err).Errorf("calculate worker %s error getting job", w.WorkerID)
				time.Sleep(5 * time.Second)
				continue
			}

			if job == nil {
				time.Sleep(5 * time.Second)
				continue
			}

			w.processJob(ctx, job)
		}
	}
}

func (w *CalculateWorker) processJob(ctx context.Context, job *models.Job) {
	logger.Infof("calculate worker %s processing job %s", w.WorkerID, job.ID)

	if err := w.runJob(ctx, job); err != nil {
		logger.WithError(err).Errorf("calculate worker %s failed job %s", w.WorkerID, job.ID)
		job.SetError(err.Error())
		job.MarkFailed()
	} else {
		job.MarkCompleted()
	}

	if err := w.jobRepo.Update(job); err != nil {
		logger.WithError(err).Errorf("calculate worker %s error updating job %s", w.WorkerID, job.ID)
	}
}

func (w *CalculateWorker) runJob(ctx context.Context, job *models.Job) error {
	var payload models.CalculatePayload
	if err := job.UnmarshalPayload(&payload); err != nil {
		return fmt.Errorf("invalid calculate payload: %w", err)
	}
	if payload.Username == "" {
		return fmt.Errorf("calculate job %s has no username", job.ID)
	}

	dev, eligible, reason, err := w.developerService.Calculate(ctx, payload.Username, payload.BypassGate)
	if err != nil {
		return err
	}
	if !eligible {
		// A negative gate outcome is a normal completion, not a failure.
		logger.Infof("calculate worker %s: %s not eligible: %s", w.WorkerID, payload.Username, reason)
		return nil
	}

	logger.Infof("calculate worker %s scored %s: %.2f", w.WorkerID, dev.Username, dev.FinalImpactScore)
	return nil
}
