package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
)

// Memory is an in-process RecipeStore used by tests to assert exact
// persistence effects without a database.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]models.Recipe
	ordered []string // creation order, keeps ListByUser stable
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]models.Recipe)}
}

func (m *Memory) Create(_ context.Context, recipe models.Recipe) (models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe.ID = uuid.New().String()
	now := time.Now().UTC()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	m.byID[recipe.ID] = recipe
	m.ordered = append(m.ordered, recipe.ID)
	return recipe, nil
}

func (m *Memory) Update(_ context.Context, id string, recipe models.Recipe) (models.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[id]
	if !ok {
		return models.Recipe{}, apperr.Newf(apperr.KindNotFound, "recipe %s not found", id)
	}
	recipe.ID = existing.ID
	recipe.UserID = existing.UserID
	recipe.CreatedAt = existing.CreatedAt
	recipe.UpdatedAt = time.Now().UTC()
	m.byID[id] = recipe
	return recipe, nil
}

func (m *Memory) GetByID(_ context.Context, id string) (models.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recipe, ok := m.byID[id]
	if !ok {
		return models.Recipe{}, apperr.Newf(apperr.KindNotFound, "recipe %s not found", id)
	}
	return recipe, nil
}

func (m *Memory) ListByUser(_ context.Context, userID string) ([]models.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Recipe
	for _, id := range m.ordered {
		if recipe, ok := m.byID[id]; ok && recipe.UserID == userID {
			out = append(out, recipe)
		}
	}
	return out, nil
}
