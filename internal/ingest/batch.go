package ingest

import (
	"context"
	"strings"
	"time"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/conflict"
	"recipe-ingest/internal/extract"
	"recipe-ingest/internal/jobs"
	"recipe-ingest/internal/models"
	"recipe-ingest/internal/telemetry"
)

// BatchRequest is one batch ingest call.
type BatchRequest struct {
	URLs    []string            `json:"urls"`
	Options BatchRequestOptions `json:"options"`
}

// BatchRequestOptions are the per-request tuning knobs; anything omitted
// falls back to the server defaults. MaxRetries is a pointer so an explicit
// zero (no retries) is distinguishable from an omitted field.
type BatchRequestOptions struct {
	MaxConcurrent  int  `json:"maxConcurrent,omitempty"`
	TimeoutSeconds int  `json:"timeoutSeconds,omitempty"`
	MaxRetries     *int `json:"maxRetries,omitempty"`
	SkipValidation bool `json:"skipValidation,omitempty"`
}

// IngestBatch fans the URLs out under the batch coordinator. Each source runs
// the single-URL pipeline; a collision is recorded in that source's outcome
// instead of being saved, and never fails siblings.
func (s *Service) IngestBatch(ctx context.Context, userID string, req BatchRequest, opts jobs.BatchOptions) (models.IngestionJob, error) {
	if req.Options.MaxConcurrent > 0 {
		opts.MaxConcurrent = req.Options.MaxConcurrent
	}
	if req.Options.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(req.Options.TimeoutSeconds) * time.Second
	}
	if req.Options.MaxRetries != nil {
		opts.MaxRetries = *req.Options.MaxRetries
	}
	opts.SkipValidation = req.Options.SkipValidation

	return s.coord.Start(ctx, models.JobKindURL, req.URLs, opts, func(ctx context.Context, source string) (models.SourceOutcome, error) {
		return s.processBatchSource(ctx, userID, source, opts.SkipValidation)
	})
}

func (s *Service) processBatchSource(ctx context.Context, userID, source string, skipValidation bool) (models.SourceOutcome, error) {
	data, err := s.urls.Extract(ctx, source)
	if err != nil {
		return models.SourceOutcome{}, err
	}
	if !skipValidation {
		if validation := extract.Validate(data); !validation.Valid {
			return models.SourceOutcome{}, apperr.Newf(apperr.KindParse, "extracted data failed validation: %s", strings.Join(validation.Errors, "; "))
		}
	}

	candidate := data.ToRecipe(userID)
	collection, err := s.recipes.ListByUser(ctx, userID)
	if err != nil {
		return models.SourceOutcome{}, err
	}
	if c := conflict.Detect(candidate, collection); c != nil {
		return models.SourceOutcome{Conflict: c, RecipeTitle: candidate.Title}, nil
	}

	saved, err := s.recipes.Create(ctx, candidate)
	if err != nil {
		return models.SourceOutcome{}, err
	}
	s.attachThumbnail(ctx, &saved)
	telemetry.IngestSuccess.Inc()
	return models.SourceOutcome{Success: true, RecipeID: saved.ID, RecipeTitle: saved.Title}, nil
}
