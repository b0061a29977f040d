package workers

import (
	"context"

	"github.com/Jeelislive/openRank-Backend/internal/models"
)

// Worker is a polling loop bound to one job type. The manager starts each
// worker in its own goroutine and stops it during shutdown.
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	GetJobType() models.JobType
	GetWorkerID() string
}

// BaseWorker carries the identity and stop signalling shared by the
// calculate and discovery workers. Start loops select on StopChan.
type BaseWorker struct {
	WorkerID string
	JobType  models.JobType
	Running  bool
	StopChan chan struct{}
}

func NewBaseWorker(workerID string, jobType models.JobType) *BaseWorker {
	return &BaseWorker{
		WorkerID: workerID,
		JobType:  jobType,
		StopChan: make(chan struct{}),
	}
}

func (w *BaseWorker) GetJobType() models.JobType {
	return w.JobType
}

func (w *BaseWorker) GetWorkerID() string {
	return w.WorkerID
}

// Stop signals the poll loop to exit. Safe to call on a worker that never
// started; a second call is a no-op.
func (w *BaseWorker) Stop() error {
	if w.Running {
		w.Running = false
		close(w.StopChan)
	}
	return nil
}
