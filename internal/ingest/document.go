package ingest

import (
	"context"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/conflict"
	"recipe-ingest/internal/extract"
	"recipe-ingest/internal/jobs"
	"recipe-ingest/internal/models"
	"recipe-ingest/internal/telemetry"
)

// DocumentSummary aggregates one processed upload.
type DocumentSummary struct {
	Total     int `json:"total"`
	Saved     int `json:"saved"`
	Invalid   int `json:"invalid"`
	Conflicts int `json:"conflicts"`
}

// DocumentResult is the body of a synchronous document ingest.
type DocumentResult struct {
	Recipes   []models.Recipe          `json:"recipes"`
	Conflicts []models.Conflict        `json:"conflicts,omitempty"`
	Metadata  extract.DocumentMetadata `json:"metadata"`
	BlobURL   string                   `json:"blobUrl"`
	Summary   DocumentSummary          `json:"summary"`
}

// IngestDocument processes an uploaded file inline: retain the blob, extract
// candidate recipes, validate each, and save the ones that neither fail
// validation nor collide with the user's collection. Colliding candidates are
// returned as conflicts for the resolve endpoint.
func (s *Service) IngestDocument(ctx context.Context, userID, filename string, data []byte) (DocumentResult, error) {
	if !extract.AllowedDocumentExt(filename) {
		return DocumentResult{}, apperr.Newf(apperr.KindValidation, "unsupported file type %q (want pdf, doc or docx)", filename)
	}

	blobURL, err := s.retainBlob(ctx, filename, data)
	if err != nil {
		return DocumentResult{}, err
	}

	extracted, sourceType, err := extract.Document(filename, data)
	if err != nil {
		return DocumentResult{}, err
	}

	result := DocumentResult{
		BlobURL: blobURL,
		Summary: DocumentSummary{Total: len(extracted)},
	}
	collection, err := s.recipes.ListByUser(ctx, userID)
	if err != nil {
		return DocumentResult{}, err
	}
	for _, candidate := range extracted {
		validation := extract.Validate(candidate)
		if !validation.Valid {
			result.Summary.Invalid++
			continue
		}
		recipe := candidate.ToRecipe(userID)
		if c := conflict.Detect(recipe, collection); c != nil {
			result.Conflicts = append(result.Conflicts, *c)
			result.Summary.Conflicts++
			continue
		}
		saved, err := s.recipes.Create(ctx, recipe)
		if err != nil {
			return DocumentResult{}, err
		}
		collection = append(collection, saved)
		result.Recipes = append(result.Recipes, saved)
		result.Summary.Saved++
		telemetry.IngestSuccess.Inc()
	}
	result.Metadata = extract.NewDocumentMetadata(filename, len(data), sourceType, len(extracted))

	s.log.Info("document ingested", "user_id", userID, "filename", filename,
		"total", result.Summary.Total, "saved", result.Summary.Saved)
	return result, nil
}

// IngestDocumentAsync runs the same pipeline behind a job. The returned job
// is immediately pollable; the upload is copied so the request body can be
// released.
func (s *Service) IngestDocumentAsync(ctx context.Context, userID, filename string, data []byte) (models.IngestionJob, error) {
	if !extract.AllowedDocumentExt(filename) {
		return models.IngestionJob{}, apperr.Newf(apperr.KindValidation, "unsupported file type %q (want pdf, doc or docx)", filename)
	}

	job, err := s.jobStore.Create(ctx, models.JobKindDocument, models.StageUploading, "upload received")
	if err != nil {
		return models.IngestionJob{}, err
	}

	body := make([]byte, len(data))
	copy(body, data)

	go s.runDocumentJob(context.WithoutCancel(ctx), job.ID, userID, filename, body)
	return job, nil
}

func (s *Service) runDocumentJob(ctx context.Context, jobID, userID, filename string, data []byte) {
	var (
		blobURL   string
		extracted []models.ExtractedRecipeData
		source    string
		valid     []models.Recipe
		result    DocumentResult
	)

	steps := []jobs.Step{
		{
			Stage:   models.StageUploading,
			Message: "storing upload",
			Do: func(ctx context.Context) error {
				var err error
				blobURL, err = s.retainBlob(ctx, filename, data)
				return err
			},
		},
		{
			Stage:   models.StageParsing,
			Message: "reading document",
			Do: func(ctx context.Context) error {
				var err error
				extracted, source, err = extract.Document(filename, data)
				return err
			},
		},
		{
			Stage:   models.StageValidating,
			Message: "validating recipes",
			Do: func(ctx context.Context) error {
				result = DocumentResult{BlobURL: blobURL, Summary: DocumentSummary{Total: len(extracted)}}
				for _, candidate := range extracted {
					if !extract.Validate(candidate).Valid {
						result.Summary.Invalid++
						continue
					}
					valid = append(valid, candidate.ToRecipe(userID))
				}
				return nil
			},
		},
		{
			Stage:   models.StageSaving,
			Message: "saving recipes",
			Do: func(ctx context.Context) error {
				collection, err := s.recipes.ListByUser(ctx, userID)
				if err != nil {
					return err
				}
				for _, recipe := range valid {
					if c := conflict.Detect(recipe, collection); c != nil {
						result.Conflicts = append(result.Conflicts, *c)
						result.Summary.Conflicts++
						continue
					}
					saved, err := s.recipes.Create(ctx, recipe)
					if err != nil {
						return err
					}
					collection = append(collection, saved)
					result.Recipes = append(result.Recipes, saved)
					result.Summary.Saved++
					telemetry.IngestSuccess.Inc()
				}
				result.Metadata = extract.NewDocumentMetadata(filename, len(data), source, len(extracted))
				return nil
			},
		},
	}

	s.runner.Run(ctx, jobID, steps, func() *models.JobResult {
		return &models.JobResult{
			Recipes: result.Recipes,
			BlobURL: result.BlobURL,
			Summary: &models.BatchSummary{
				Total:     result.Summary.Total,
				Succeeded: result.Summary.Saved,
				Failed:    result.Summary.Invalid,
				Conflicts: result.Summary.Conflicts,
			},
		}
	})
}

func (s *Service) retainBlob(ctx context.Context, filename string, data []byte) (string, error) {
	if s.blobs == nil {
		return "", nil
	}
	url, err := s.blobs.Save(ctx, uploadKey(filename), data, "application/octet-stream")
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "retain upload", err)
	}
	return url, nil
}
