// Package thumbnails produces resized variants of uploaded images outside of
// the request path.
//
// The API enqueues a job per image upload. A worker takes one job at a time,
// loads the catalog record, reads the original blob and writes one variant
// per width in blobs.VariantSizes. Job state moves from queued to processing
// and ends in done or failed. Failed jobs are not retried and variants
// already written by a failed job are left in place.
package thumbnails

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/server/blobs"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrNotImage     = errors.New("file is not an image")
)

// Resizer scales an encoded image to width.
type Resizer interface {
	Resize(data []byte, width int) ([]byte, error)
}

// FileFinder loads catalog records scoped to their owner.
type FileFinder interface {
	GetByIDAndUser(ctx context.Context, id, userID int64) (*models.File, error)
}

// JobSource delivers jobs to a worker and records their outcome.
type JobSource interface {
	Dequeue(ctx context.Context) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	SetState(ctx context.Context, jobID string, state models.JobState, reason string) error
	State(ctx context.Context, jobID string) (*models.JobStatus, error)
}

var retryDelay = time.Second

type Worker struct {
	jobs    JobSource
	files   FileFinder
	blobs   blobs.Store
	resizer Resizer
	logger  logging.Logger
}

func NewWorker(jobs JobSource, files FileFinder, store blobs.Store, resizer Resizer, l logging.Logger) *Worker {
	return &Worker{
		jobs:    jobs,
		files:   files,
		blobs:   store,
		resizer: resizer,
		logger:  l.With("module", "thumbnail_worker"),
	}
}

// Run handles jobs one at a time until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info(ctx, "Starting thumbnail worker")

	for {
		if ctx.Err() != nil {
			w.logger.Info(ctx, "Stopping thumbnail worker")
			return nil
		}

		d, err := w.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.logger.Error(ctx, "dequeue failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}
		if d == nil {
			continue
		}

		w.handle(ctx, d)
	}
}

// handle runs one delivery to completion. Stopping the worker does not
// interrupt a job that has started. A redelivered job whose recorded state is
// already terminal is acknowledged without running it again.
func (w *Worker) handle(ctx context.Context, d *Delivery) {
	ctx = context.WithoutCancel(ctx)
	job := d.Job
	log := w.logger.With("job_id", job.ID, "file_id", job.FileID)

	st, err := w.jobs.State(ctx, job.ID)
	switch {
	case err == nil && st.State.Terminal():
		log.Info(ctx, "job already finished, dropping redelivery", "state", st.State)
		w.ack(ctx, log, d)
		return
	case err != nil && !errors.Is(err, common.ErrorNotFound):
		log.Warn(ctx, "cannot read job state", "error", err)
	}

	w.setState(ctx, log, job.ID, models.JobProcessing, "")
	log.Debug(ctx, "processing job")

	if err := w.Process(ctx, job); err != nil {
		log.Warn(ctx, "thumbnail job failed", "error", err)
		w.setState(ctx, log, job.ID, models.JobFailed, err.Error())
	} else {
		log.Info(ctx, "thumbnail job done")
		w.setState(ctx, log, job.ID, models.JobDone, "")
	}

	w.ack(ctx, log, d)
}

func (w *Worker) ack(ctx context.Context, log logging.Logger, d *Delivery) {
	if err := w.jobs.Ack(ctx, d); err != nil {
		log.Error(ctx, "ack failed", "error", err)
	}
}

func (w *Worker) setState(ctx context.Context, log logging.Logger, id string, st models.JobState, reason string) {
	if err := w.jobs.SetState(ctx, id, st, reason); err != nil {
		log.Error(ctx, "cannot record job state", "state", st, "error", err)
	}
}

// Process writes every variant of the job's image. It is safe to run twice
// for the same job.
func (w *Worker) Process(ctx context.Context, job models.ThumbnailJob) error {
	f, err := w.files.GetByIDAndUser(ctx, job.FileID, job.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return ErrFileNotFound
		}
		return fmt.Errorf("load file: %w", err)
	}
	if f.Type != models.FileTypeImage {
		return ErrNotImage
	}

	data, err := w.blobs.Read(ctx, f.LocalPath)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}

	for _, size := range blobs.VariantSizes {
		thumb, err := w.resizer.Resize(data, size)
		if err != nil {
			return fmt.Errorf("resize to %d: %w", size, err)
		}
		if err := w.blobs.WriteAt(ctx, blobs.VariantPath(f.LocalPath, size), thumb); err != nil {
			return fmt.Errorf("write variant %d: %w", size, err)
		}
	}
	return nil
}
