package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"recipe-ingest/internal/models"
	"recipe-ingest/internal/telemetry"
)

// ErrCancelled marks a cooperative cancellation observed at a stage boundary.
var ErrCancelled = fmt.Errorf("job cancelled")

// Step is one stage of an ingestion pipeline. Do runs after the job has
// entered the stage; its error fails the job.
type Step struct {
	Stage   models.Stage
	Message string
	Do      func(ctx context.Context) error
}

// Runner drives a single job through its stage state machine. Stages advance
// strictly forward; the cancellation flag is checked at every stage boundary
// and in-flight I/O is never interrupted mid-call.
type Runner struct {
	store Store
	log   *slog.Logger
}

func NewRunner(store Store, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{store: store, log: log}
}

// Run executes the steps in order and terminates the job in complete or
// error. result is called only after every step succeeded. Failures inside a
// step, including panics, are caught at the stage boundary and mapped to the
// error stage; nothing escapes the runner.
func (r *Runner) Run(ctx context.Context, jobID string, steps []Step, result func() *models.JobResult) {
	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()

	for _, step := range steps {
		if err := r.Enter(ctx, jobID, step.Stage, step.Message); err != nil {
			r.Fail(ctx, jobID, err)
			return
		}
		if step.Do == nil {
			continue
		}
		if err := runStep(ctx, step.Do); err != nil {
			r.Fail(ctx, jobID, err)
			return
		}
	}
	if cancelled, _ := r.cancelled(ctx, jobID); cancelled {
		r.Fail(ctx, jobID, ErrCancelled)
		return
	}
	r.Complete(ctx, jobID, result())
}

// Enter transitions the job into a stage after the cancellation check.
func (r *Runner) Enter(ctx context.Context, jobID string, stage models.Stage, message string) error {
	if cancelled, err := r.cancelled(ctx, jobID); err != nil {
		return err
	} else if cancelled {
		return ErrCancelled
	}
	progress := models.StageProgress[stage]
	return r.store.Update(ctx, jobID, models.JobUpdate{
		Stage:    &stage,
		Progress: &progress,
		Message:  &message,
	})
}

// Fail sinks the job into the error stage. Progress stays frozen at its
// last value.
func (r *Runner) Fail(ctx context.Context, jobID string, cause error) {
	message := "ingestion failed"
	errText := cause.Error()
	if cause == ErrCancelled {
		message = "cancelled by user"
		errText = "job cancelled before completion"
	}
	stage := models.StageErrored
	now := time.Now().UTC()
	if err := r.store.Update(ctx, jobID, models.JobUpdate{
		Stage:   &stage,
		Message: &message,
		Error:   &errText,
		EndTime: &now,
	}); err != nil {
		r.log.Warn("failed to record job error", "job_id", jobID, "error", err)
	}
	telemetry.IngestFailures.Inc()
	r.log.Info("job failed", "job_id", jobID, "error", errText)
}

// Complete sinks the job into the complete stage with its result.
func (r *Runner) Complete(ctx context.Context, jobID string, result *models.JobResult) {
	stage := models.StageComplete
	progress := models.StageProgress[stage]
	message := "done"
	now := time.Now().UTC()
	if err := r.store.Update(ctx, jobID, models.JobUpdate{
		Stage:    &stage,
		Progress: &progress,
		Message:  &message,
		Result:   result,
		EndTime:  &now,
	}); err != nil {
		r.log.Warn("failed to record job completion", "job_id", jobID, "error", err)
	}
	r.log.Info("job complete", "job_id", jobID)
}

func (r *Runner) cancelled(ctx context.Context, jobID string) (bool, error) {
	job, err := r.store.Get(ctx, jobID)
	if err != nil {
		return false, err
	}
	return job.Cancelled, nil
}

func runStep(ctx context.Context, do func(ctx context.Context) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage panic: %v", rec)
		}
	}()
	return do(ctx)
}
