// Package store provides recipe persistence. The ingestion core talks to
// the RecipeStore interface; Postgres backs it in production and Memory
// backs it in tests.
package store

import (
	"context"

	"recipe-ingest/internal/models"
)

// RecipeStore is the persistence capability the ingestion core consumes.
type RecipeStore interface {
	// Create persists a new recipe and returns it with its assigned id.
	Create(ctx context.Context, recipe models.Recipe) (models.Recipe, error)

	// Update replaces the stored fields of an existing recipe. The owning
	// user id of the stored row is preserved.
	Update(ctx context.Context, id string, recipe models.Recipe) (models.Recipe, error)

	// GetByID returns the recipe or an apperr not_found error.
	GetByID(ctx context.Context, id string) (models.Recipe, error)

	// ListByUser returns the user's collection in stable creation order.
	ListByUser(ctx context.Context, userID string) ([]models.Recipe, error)
}
