package conflict

import (
	"context"
	"fmt"
	"log/slog"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
	"recipe-ingest/internal/store"
	"recipe-ingest/internal/telemetry"
)

// Summary reports one resolve call as a whole. Success means zero per-item
// errors; mixed outcomes still travel in a 200 response.
type Summary struct {
	Success        bool                       `json:"success"`
	TotalConflicts int                        `json:"totalConflicts"`
	ResolvedCount  int                        `json:"resolvedCount"`
	ErrorCount     int                        `json:"errorCount"`
	Results        []models.ResolutionOutcome `json:"results"`
}

// Resolver applies resolutions to conflicts against the recipe store.
type Resolver struct {
	recipes store.RecipeStore
	log     *slog.Logger
}

func NewResolver(recipes store.RecipeStore, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{recipes: recipes, log: log}
}

// Resolve processes conflicts and resolutions pairwise in index order. The
// arrays must be the same length; that is checked before any item runs.
// Per-conflict failures are recorded in their own outcome and never abort
// the remaining resolutions.
func (r *Resolver) Resolve(ctx context.Context, userID string, conflicts []models.Conflict, resolutions []models.Resolution) (Summary, error) {
	if len(conflicts) != len(resolutions) {
		return Summary{}, apperr.Newf(apperr.KindValidation,
			"conflicts and resolutions must align: %d conflicts, %d resolutions", len(conflicts), len(resolutions))
	}

	summary := Summary{TotalConflicts: len(conflicts), Results: make([]models.ResolutionOutcome, len(conflicts))}
	for i := range conflicts {
		outcome := r.resolveOne(ctx, userID, conflicts[i], resolutions[i])
		summary.Results[i] = outcome
		if outcome.Success {
			summary.ResolvedCount++
			telemetry.ConflictsResolved.Inc()
		} else {
			summary.ErrorCount++
			r.log.Info("conflict resolution failed", "index", i, "action", resolutions[i].Action, "error", outcome.Error)
		}
	}
	summary.Success = summary.ErrorCount == 0
	return summary, nil
}

func (r *Resolver) resolveOne(ctx context.Context, userID string, conflict models.Conflict, resolution models.Resolution) models.ResolutionOutcome {
	outcome, err := r.apply(ctx, userID, conflict, resolution)
	if err != nil {
		return models.ResolutionOutcome{
			Action:      resolution.Action,
			RecipeTitle: conflict.ImportedRecipe.Title,
			Error:       err.Error(),
		}
	}
	return outcome
}

func (r *Resolver) apply(ctx context.Context, userID string, conflict models.Conflict, resolution models.Resolution) (models.ResolutionOutcome, error) {
	switch resolution.Action {
	case models.ActionSkip:
		return models.ResolutionOutcome{
			Success:     true,
			Action:      models.ActionSkip,
			RecipeTitle: conflict.ImportedRecipe.Title,
		}, nil

	case models.ActionOverwrite:
		if conflict.ExistingRecipe.ID == "" {
			return models.ResolutionOutcome{}, apperr.New(apperr.KindValidation, "overwrite requires an existing recipe id")
		}
		replacement := conflict.ImportedRecipe
		replacement.UserID = conflict.ExistingRecipe.UserID
		updated, err := r.recipes.Update(ctx, conflict.ExistingRecipe.ID, replacement)
		if err != nil {
			return models.ResolutionOutcome{}, fmt.Errorf("overwrite recipe: %w", err)
		}
		return models.ResolutionOutcome{
			Success:     true,
			Action:      models.ActionOverwrite,
			RecipeID:    updated.ID,
			RecipeTitle: updated.Title,
		}, nil

	case models.ActionCreateNew:
		title := resolution.NewTitle
		if title == "" {
			title = conflict.ImportedRecipe.Title + " (Imported)"
		}
		recipe := conflict.ImportedRecipe
		recipe.Title = title
		recipe.UserID = userID
		created, err := r.recipes.Create(ctx, recipe)
		if err != nil {
			return models.ResolutionOutcome{}, fmt.Errorf("create recipe: %w", err)
		}
		return models.ResolutionOutcome{
			Success:     true,
			Action:      models.ActionCreateNew,
			RecipeID:    created.ID,
			RecipeTitle: created.Title,
		}, nil

	case models.ActionMerge:
		if conflict.ExistingRecipe.ID == "" {
			return models.ResolutionOutcome{}, apperr.New(apperr.KindValidation, "merge requires an existing recipe id")
		}
		merged := Merge(conflict.ExistingRecipe, conflict.ImportedRecipe)
		updated, err := r.recipes.Update(ctx, conflict.ExistingRecipe.ID, merged)
		if err != nil {
			return models.ResolutionOutcome{}, fmt.Errorf("persist merged recipe: %w", err)
		}
		return models.ResolutionOutcome{
			Success:     true,
			Action:      models.ActionMerge,
			RecipeID:    updated.ID,
			RecipeTitle: updated.Title,
		}, nil

	default:
		return models.ResolutionOutcome{}, apperr.Newf(apperr.KindUnknownAction, "unknown action %q", resolution.Action)
	}
}
