package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
	"recipe-ingest/internal/telemetry"
)

const (
	// MaxBatchSources caps one batch request.
	MaxBatchSources = 50

	defaultConcurrency = 3
	defaultMaxRetries  = 2
)

// BatchOptions tune one batch run.
type BatchOptions struct {
	MaxConcurrent  int
	Timeout        time.Duration
	MaxRetries     int
	SkipValidation bool
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = defaultConcurrency
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = defaultMaxRetries
	}
	if o.BackoffInitial <= 0 {
		o.BackoffInitial = 2 * time.Second
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
	return o
}

// SourceFunc processes a single source to a terminal outcome. A returned
// error is this source's failure, not the batch's; transient errors are
// retried by the coordinator.
type SourceFunc func(ctx context.Context, source string) (models.SourceOutcome, error)

// Coordinator fans a batch of sources out to bounded-concurrency workers
// under one parent job. Per-source failure is isolated: it lands in that
// source's own outcome and never cancels siblings or fails the parent.
type Coordinator struct {
	store  Store
	runner *Runner
	log    *slog.Logger
}

func NewCoordinator(store Store, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{store: store, runner: NewRunner(store, log), log: log}
}

// Start validates the batch, creates the parent job and launches the run in
// the background. The returned job is immediately pollable.
func (c *Coordinator) Start(ctx context.Context, kind models.JobKind, sources []string, opts BatchOptions, fn SourceFunc) (models.IngestionJob, error) {
	if len(sources) == 0 {
		return models.IngestionJob{}, apperr.New(apperr.KindValidation, "no sources provided")
	}
	if len(sources) > MaxBatchSources {
		return models.IngestionJob{}, apperr.Newf(apperr.KindValidation, "too many sources: %d (max %d)", len(sources), MaxBatchSources)
	}
	parent, err := c.store.Create(ctx, kind, models.StageExtracting, fmt.Sprintf("processing %d sources", len(sources)))
	if err != nil {
		return models.IngestionJob{}, err
	}

	opts = opts.withDefaults()
	go c.run(context.WithoutCancel(ctx), parent.ID, sources, opts, fn)
	return parent, nil
}

func (c *Coordinator) run(ctx context.Context, parentID string, sources []string, opts BatchOptions, fn SourceFunc) {
	telemetry.JobsInFlight.Inc()
	defer telemetry.JobsInFlight.Dec()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	outcomes := make([]models.SourceOutcome, len(sources))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.MaxConcurrent)
	for i, source := range sources {
		i, source := i, source
		g.Go(func() error {
			outcome := c.processSource(gctx, parentID, source, opts, fn)
			mu.Lock()
			outcomes[i] = outcome
			done++
			progress := done * 100 / len(sources)
			message := fmt.Sprintf("processed %d/%d sources", done, len(sources))
			mu.Unlock()
			_ = c.store.Update(ctx, parentID, models.JobUpdate{Progress: &progress, Message: &message})
			telemetry.BatchSources.Inc()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; isolation is the contract

	if cancelled, _ := c.parentCancelled(ctx, parentID); cancelled {
		c.runner.Fail(ctx, parentID, ErrCancelled)
		return
	}

	summary := models.BatchSummary{Total: len(sources)}
	for _, o := range outcomes {
		switch {
		case o.Success:
			summary.Succeeded++
		case o.Conflict != nil:
			summary.Conflicts++
		default:
			summary.Failed++
		}
	}
	c.runner.Complete(ctx, parentID, &models.JobResult{Sources: outcomes, Summary: &summary})
}

// processSource runs fn with the retry policy: transient failures back off
// and retry up to MaxRetries; parse and validation failures do not.
func (c *Coordinator) processSource(ctx context.Context, parentID, source string, opts BatchOptions, fn SourceFunc) models.SourceOutcome {
	if cancelled, _ := c.parentCancelled(ctx, parentID); cancelled {
		return models.SourceOutcome{Source: source, Error: "batch cancelled", Attempts: 0}
	}

	var lastErr error
	for attempt := 1; attempt <= opts.MaxRetries+1; attempt++ {
		outcome, err := safeProcess(ctx, source, fn)
		if err == nil {
			outcome.Source = source
			outcome.Attempts = attempt
			return outcome
		}
		lastErr = err
		if !apperr.Transient(err) || attempt > opts.MaxRetries {
			return models.SourceOutcome{Source: source, Error: err.Error(), Attempts: attempt}
		}
		telemetry.SourceRetries.Inc()
		c.log.Info("retrying source", "parent_id", parentID, "source", source, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return models.SourceOutcome{Source: source, Error: ctx.Err().Error(), Attempts: attempt}
		case <-time.After(backoffWithJitter(opts.BackoffInitial, opts.BackoffMax, attempt)):
		}
	}
	return models.SourceOutcome{Source: source, Error: lastErr.Error(), Attempts: opts.MaxRetries + 1}
}

func (c *Coordinator) parentCancelled(ctx context.Context, parentID string) (bool, error) {
	parent, err := c.store.Get(ctx, parentID)
	if err != nil {
		return false, err
	}
	return parent.Cancelled, nil
}

func safeProcess(ctx context.Context, source string, fn SourceFunc) (outcome models.SourceOutcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("source panic: %v", rec)
		}
	}()
	return fn(ctx, source)
}

func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return base
	}
	exp := float64(base) * math.Pow(2, float64(attempt-1))
	wait := time.Duration(exp)
	if wait > max {
		wait = max
	}
	jitter := time.Duration(rand.Int63n(int64(wait / 2)))
	return wait/2 + jitter
}
