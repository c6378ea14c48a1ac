// Package worker runs video analysis jobs in the background, keeping the
// upload request fast while the model call can take minutes.
package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/analysis"
	"github.com/shelfeng/skiaicoach/internal/jobs"
	"github.com/shelfeng/skiaicoach/internal/storage"
)

// jobTimeout bounds a single analysis end to end, uploads and model polling
// included.
const jobTimeout = 15 * time.Minute

// Processor turns a fetched video into an analysis result.
type Processor interface {
	Process(ctx context.Context, jobID, videoPath, modelName string) (*analysis.Result, error)
}

// Worker picks up saved uploads and turns them into completed or failed jobs.
type Worker struct {
	jobs      *jobs.Store
	files     storage.Store
	processor Processor
}

// New returns a worker wired to the job store, file store, and processor.
func New(jobStore *jobs.Store, files storage.Store, processor Processor) *Worker {
	return &Worker{jobs: jobStore, files: files, processor: processor}
}

// Launch starts processing the referenced upload in a new goroutine. The job
// must already be registered as processing.
func (w *Worker) Launch(jobID, ref, model string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("job %s panicked: %v", jobID, r)
				w.jobs.Fail(jobID, errors.Errorf("internal error: %v", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if err := w.process(ctx, jobID, ref, model); err != nil {
			log.WithError(err).Errorf("job %s failed", jobID)
			w.jobs.Fail(jobID, err)
		}
	}()
}

func (w *Worker) process(ctx context.Context, jobID, ref, model string) error {
	log.Infof("starting processing for job %s", jobID)

	videoPath, cleanup, err := w.files.Fetch(ctx, ref)
	if err != nil {
		return errors.Wrap(err, "fetching uploaded video")
	}
	defer cleanup()

	result, err := w.processor.Process(ctx, jobID, videoPath, model)
	if err != nil {
		return err
	}

	w.jobs.Complete(jobID, result)
	log.Infof("job %s completed", jobID)
	return nil
}
