package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
)

func waitForTerminal(t *testing.T, store Store, id string) models.IngestionJob {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("job %s never reached a terminal stage", id)
		case <-time.After(5 * time.Millisecond):
		}
		job, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get parent: %v", err)
		}
		if job.Stage.Terminal() {
			return job
		}
	}
}

func fastOpts() BatchOptions {
	return BatchOptions{BackoffInitial: time.Millisecond, BackoffMax: 2 * time.Millisecond}
}

func TestBatchRespectsConcurrencyCap(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, nil)

	var inFlight, peak int32
	sources := make([]string, 10)
	for i := range sources {
		sources[i] = fmt.Sprintf("https://example.com/r/%d", i)
	}
	opts := fastOpts()
	opts.MaxConcurrent = 2

	parent, err := c.Start(context.Background(), models.JobKindURL, sources, opts, func(ctx context.Context, source string) (models.SourceOutcome, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return models.SourceOutcome{Success: true, RecipeID: source}, nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := waitForTerminal(t, store, parent.ID)
	if job.Stage != models.StageComplete {
		t.Fatalf("stage = %s, want complete", job.Stage)
	}
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Fatalf("concurrency peak %d exceeded cap 2", got)
	}
}

func TestBatchPreservesInputOrderAndIsolatesFailures(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, nil)

	sources := []string{"https://a", "https://b", "https://c"}
	parent, err := c.Start(context.Background(), models.JobKindURL, sources, fastOpts(), func(ctx context.Context, source string) (models.SourceOutcome, error) {
		if source == "https://b" {
			return models.SourceOutcome{}, apperr.New(apperr.KindParse, "no recipe found on page")
		}
		return models.SourceOutcome{Success: true, RecipeTitle: source}, nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	job := waitForTerminal(t, store, parent.ID)
	if job.Stage != models.StageComplete {
		t.Fatalf("one bad source must not fail the batch, stage = %s", job.Stage)
	}
	if len(job.Result.Sources) != 3 {
		t.Fatalf("got %d outcomes", len(job.Result.Sources))
	}
	for i, src := range sources {
		if job.Result.Sources[i].Source != src {
			t.Fatalf("outcome %d is %s, want %s (input order must be preserved)", i, job.Result.Sources[i].Source, src)
		}
	}
	if job.Result.Sources[1].Success || job.Result.Sources[1].Error == "" {
		t.Fatalf("failed source not recorded: %+v", job.Result.Sources[1])
	}
	if s := job.Result.Summary; s.Succeeded != 2 || s.Failed != 1 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestBatchCompletesWhenEverySourceFails(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, nil)

	parent, _ := c.Start(context.Background(), models.JobKindURL, []string{"https://a", "https://b"}, fastOpts(), func(ctx context.Context, source string) (models.SourceOutcome, error) {
		return models.SourceOutcome{}, apperr.New(apperr.KindParse, "unusable page")
	})

	job := waitForTerminal(t, store, parent.ID)
	if job.Stage != models.StageComplete {
		t.Fatalf("aggregate per-item failure is not a batch error, stage = %s", job.Stage)
	}
	if job.Result.Summary.Failed != 2 {
		t.Fatalf("summary = %+v", job.Result.Summary)
	}
	if job.Progress != 100 {
		t.Fatalf("progress = %d, want 100", job.Progress)
	}
}

func waitForProgress(t *testing.T, store Store, id string, want int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			job, _ := store.Get(context.Background(), id)
			t.Fatalf("progress stuck at %d, want %d", job.Progress, want)
		case <-time.After(5 * time.Millisecond):
		}
		job, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("get parent: %v", err)
		}
		if job.Progress >= want {
			if job.Progress != want {
				t.Fatalf("progress = %d, want %d", job.Progress, want)
			}
			return
		}
	}
}

func TestBatchParentProgressTracksTerminalSources(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, nil)

	sources := []string{"https://a", "https://b", "https://c", "https://d"}
	gates := make(map[string]chan struct{}, len(sources))
	for _, s := range sources {
		gates[s] = make(chan struct{})
	}
	opts := fastOpts()
	opts.MaxConcurrent = len(sources)

	parent, err := c.Start(context.Background(), models.JobKindURL, sources, opts, func(ctx context.Context, source string) (models.SourceOutcome, error) {
		<-gates[source]
		return models.SourceOutcome{Success: true}, nil
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	// Nothing is terminal yet, so a poller must see zero progress.
	if job, _ := store.Get(context.Background(), parent.ID); job.Progress != 0 {
		t.Fatalf("progress = %d before any source finished, want 0", job.Progress)
	}

	close(gates["https://a"])
	waitForProgress(t, store, parent.ID, 25)
	close(gates["https://b"])
	waitForProgress(t, store, parent.ID, 50)
	close(gates["https://c"])
	close(gates["https://d"])

	job := waitForTerminal(t, store, parent.ID)
	if job.Progress != 100 {
		t.Fatalf("progress = %d after completion, want 100", job.Progress)
	}
}

func TestBatchRetriesOnlyTransientFailures(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, nil)

	var netCalls, parseCalls int32
	opts := fastOpts()
	opts.MaxRetries = 2

	parent, _ := c.Start(context.Background(), models.JobKindURL, []string{"https://flaky", "https://broken"}, opts, func(ctx context.Context, source string) (models.SourceOutcome, error) {
		if source == "https://flaky" {
			if atomic.AddInt32(&netCalls, 1) < 3 {
				return models.SourceOutcome{}, apperr.New(apperr.KindNetwork, "timeout fetching page")
			}
			return models.SourceOutcome{Success: true}, nil
		}
		atomic.AddInt32(&parseCalls, 1)
		return models.SourceOutcome{}, apperr.New(apperr.KindParse, "not a recipe")
	})

	job := waitForTerminal(t, store, parent.ID)
	flaky, broken := job.Result.Sources[0], job.Result.Sources[1]
	if !flaky.Success || flaky.Attempts != 3 {
		t.Fatalf("transient source should succeed on third attempt: %+v", flaky)
	}
	if got := atomic.LoadInt32(&parseCalls); got != 1 {
		t.Fatalf("parse failure was retried %d times", got)
	}
	if broken.Success || broken.Attempts != 1 {
		t.Fatalf("deterministic failure outcome: %+v", broken)
	}
}

func TestBatchRejectsOversizedInput(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, nil)

	sources := make([]string, MaxBatchSources+1)
	for i := range sources {
		sources[i] = fmt.Sprintf("https://example.com/%d", i)
	}
	_, err := c.Start(context.Background(), models.JobKindURL, sources, BatchOptions{}, func(ctx context.Context, source string) (models.SourceOutcome, error) {
		return models.SourceOutcome{Success: true}, nil
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = c.Start(context.Background(), models.JobKindURL, nil, BatchOptions{}, nil)
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for empty batch, got %v", err)
	}
}

func TestBatchCooperativeCancellation(t *testing.T) {
	store := NewMemoryStore()
	c := NewCoordinator(store, nil)

	release := make(chan struct{})
	opts := fastOpts()
	opts.MaxConcurrent = 1

	parent, _ := c.Start(context.Background(), models.JobKindURL, []string{"https://a", "https://b", "https://c"}, opts, func(ctx context.Context, source string) (models.SourceOutcome, error) {
		<-release
		return models.SourceOutcome{Success: true}, nil
	})

	if ok, _ := store.Cancel(context.Background(), parent.ID); !ok {
		t.Fatal("cancel should succeed on a running batch")
	}
	close(release)

	job := waitForTerminal(t, store, parent.ID)
	if job.Stage != models.StageErrored {
		t.Fatalf("cancelled batch should end in error, got %s", job.Stage)
	}
	if ok, _ := store.Cancel(context.Background(), parent.ID); ok {
		t.Fatal("cancelling a terminal job must be a no-op")
	}
}
