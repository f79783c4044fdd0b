// Package jobs implements the ingestion job subsystem: the job store, the
// per-job stage state machine, and the batch coordinator.
package jobs

import (
	"context"
	"time"

	"recipe-ingest/internal/models"
)

// Store is the process-wide registry of ingestion jobs. A job's state is
// written only by the runner that owns it; the store guarantees atomic
// visibility of each update to concurrent readers.
type Store interface {
	// Create registers a new job in its initial stage and returns it.
	// Progress starts at zero; only the owning runner or coordinator
	// advances it, so a poller never sees progress before work happened.
	Create(ctx context.Context, kind models.JobKind, initial models.Stage, message string) (models.IngestionJob, error)

	// Get returns the job or an apperr not_found error.
	Get(ctx context.Context, id string) (models.IngestionJob, error)

	// Update atomically merges the partial state into the job. Progress is
	// never allowed to decrease while the job is non-terminal.
	Update(ctx context.Context, id string, upd models.JobUpdate) error

	// Cancel sets the cancellation flag. It returns false when the job is
	// absent or already terminal; the flag is observed cooperatively by the
	// owning runner at its next stage boundary.
	Cancel(ctx context.Context, id string) (bool, error)

	// Delete removes the job outright.
	Delete(ctx context.Context, id string) error

	// Sweep evicts jobs whose start time is older than maxAge, terminal or
	// not, and returns how many were removed.
	Sweep(ctx context.Context, maxAge time.Duration) (int, error)
}

// applyUpdate merges upd into job, enforcing the non-decreasing progress
// invariant. Shared by the store implementations; callers hold whatever
// lock their backend requires.
func applyUpdate(job *models.IngestionJob, upd models.JobUpdate) {
	if upd.Stage != nil {
		job.Stage = *upd.Stage
	}
	if upd.Progress != nil && *upd.Progress > job.Progress {
		job.Progress = *upd.Progress
	}
	if upd.Message != nil {
		job.Message = *upd.Message
	}
	if upd.Result != nil {
		job.Result = upd.Result
	}
	if upd.Error != nil {
		job.Error = *upd.Error
	}
	if upd.EndTime != nil {
		job.EndTime = upd.EndTime
	}
}
