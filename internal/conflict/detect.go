// Package conflict detects collisions between imported recipes and a user's
// existing collection, and resolves them through the four-action protocol.
package conflict

import (
	"recipe-ingest/internal/models"
	"recipe-ingest/internal/telemetry"
)

// Detect decides whether candidate collides with an entry in collection. A
// collision exists when normalized titles match or when both carry the same
// non-empty source URL. The tie-break is deterministic: an exact title match
// beats a source-URL match, and within a criterion the earliest recipe in
// collection order wins. At most one conflict is ever reported.
func Detect(candidate models.Recipe, collection []models.Recipe) *models.Conflict {
	title := models.NormalizeTitle(candidate.Title)

	for _, existing := range collection {
		if title != "" && models.NormalizeTitle(existing.Title) == title {
			telemetry.ConflictsDetected.Inc()
			return &models.Conflict{
				ExistingRecipe: existing,
				ImportedRecipe: candidate,
				Reason:         models.ConflictReasonTitle,
			}
		}
	}
	for _, existing := range collection {
		if candidate.SourceURL != "" && existing.SourceURL == candidate.SourceURL {
			telemetry.ConflictsDetected.Inc()
			return &models.Conflict{
				ExistingRecipe: existing,
				ImportedRecipe: candidate,
				Reason:         models.ConflictReasonSourceURL,
			}
		}
	}
	return nil
}
