// Package ingest composes the extraction adapters, conflict detection, the
// job subsystem and persistence into the operations the HTTP layer exposes.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/blob"
	"recipe-ingest/internal/conflict"
	"recipe-ingest/internal/extract"
	"recipe-ingest/internal/jobs"
	"recipe-ingest/internal/models"
	"recipe-ingest/internal/store"
	"recipe-ingest/internal/telemetry"
)

// Service wires one ingestion pipeline. All entry points share the same
// extract -> validate -> detect -> save spine; they differ in source kind
// and in whether the work runs inline or behind a job.
type Service struct {
	recipes  store.RecipeStore
	jobStore jobs.Store
	runner   *jobs.Runner
	coord    *jobs.Coordinator
	urls     *extract.URLAdapter
	blobs    *blob.Store
	thumbs   *blob.Thumbnailer
	log      *slog.Logger
}

func NewService(recipes store.RecipeStore, jobStore jobs.Store, urls *extract.URLAdapter, blobs *blob.Store, thumbs *blob.Thumbnailer, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		recipes:  recipes,
		jobStore: jobStore,
		runner:   jobs.NewRunner(jobStore, log),
		coord:    jobs.NewCoordinator(jobStore, log),
		urls:     urls,
		blobs:    blobs,
		thumbs:   thumbs,
		log:      log,
	}
}

// URLResult is the body of a successful single-URL ingest.
type URLResult struct {
	Recipe           models.Recipe              `json:"recipe"`
	ExtractedData    models.ExtractedRecipeData `json:"extractedData"`
	ValidationResult models.ValidationResult    `json:"validationResult"`
}

// PreviewResult is extraction without persistence.
type PreviewResult struct {
	ExtractedData    models.ExtractedRecipeData `json:"extractedData"`
	ValidationResult models.ValidationResult    `json:"validationResult"`
	CanSave          bool                       `json:"canSave"`
}

// ErrConflict wraps a detected collision so the transport layer can answer
// with the conflict payload instead of a saved recipe.
type ErrConflict struct {
	Conflict models.Conflict
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("recipe conflicts with existing %q (%s)", e.Conflict.ExistingRecipe.Title, e.Conflict.Reason)
}

// IngestURL extracts one URL, validates, checks the user's collection for a
// collision, and persists. A collision returns *ErrConflict with nothing
// saved; the caller decides how to resolve.
func (s *Service) IngestURL(ctx context.Context, userID, rawURL string) (URLResult, error) {
	data, err := s.urls.Extract(ctx, rawURL)
	if err != nil {
		return URLResult{}, err
	}
	validation := extract.Validate(data)
	if !validation.Valid {
		return URLResult{}, apperr.Newf(apperr.KindParse, "extracted data failed validation: %s", strings.Join(validation.Errors, "; "))
	}

	candidate := data.ToRecipe(userID)
	collection, err := s.recipes.ListByUser(ctx, userID)
	if err != nil {
		return URLResult{}, err
	}
	if c := conflict.Detect(candidate, collection); c != nil {
		return URLResult{ExtractedData: data, ValidationResult: validation}, &ErrConflict{Conflict: *c}
	}

	saved, err := s.recipes.Create(ctx, candidate)
	if err != nil {
		return URLResult{}, err
	}
	s.attachThumbnail(ctx, &saved)

	telemetry.IngestSuccess.Inc()
	s.log.Info("ingested recipe", "user_id", userID, "recipe_id", saved.ID, "source", rawURL)
	return URLResult{Recipe: saved, ExtractedData: data, ValidationResult: validation}, nil
}

// Preview extracts and validates without saving.
func (s *Service) Preview(ctx context.Context, rawURL string) (PreviewResult, error) {
	data, err := s.urls.Extract(ctx, rawURL)
	if err != nil {
		return PreviewResult{}, err
	}
	validation := extract.Validate(data)
	return PreviewResult{
		ExtractedData:    data,
		ValidationResult: validation,
		CanSave:          validation.Valid,
	}, nil
}

// attachThumbnail stores a resized copy of the recipe image and points the
// saved recipe at it. Best effort: a failed thumbnail never fails the ingest.
func (s *Service) attachThumbnail(ctx context.Context, recipe *models.Recipe) {
	if s.thumbs == nil || recipe.ImageURL == "" {
		return
	}
	url, err := s.thumbs.FromURL(ctx, recipe.ImageURL, recipe.ID)
	if err != nil {
		s.log.Warn("thumbnail failed", "recipe_id", recipe.ID, "error", err)
		return
	}
	recipe.ImageURL = url
	if updated, err := s.recipes.Update(ctx, recipe.ID, *recipe); err != nil {
		s.log.Warn("thumbnail url not recorded", "recipe_id", recipe.ID, "error", err)
	} else {
		*recipe = updated
	}
}

func uploadKey(filename string) string {
	return fmt.Sprintf("uploads/%s_%s", uuid.New().String()[:8], strings.ToLower(strings.ReplaceAll(filename, " ", "_")))
}
