package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
)

// Postgres wraps pgxpool for recipe persistence.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a pooled connection to Postgres.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const recipeColumns = `id, user_id, title, description, ingredients, instructions, categories, tags,
	cooking_time, prep_time, servings, difficulty, source_url, source_type, image_url, personal_notes,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, recipe models.Recipe) (models.Recipe, error) {
	recipe.ID = uuid.New().String()
	now := time.Now().UTC()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now

	ingredients, instructions, categories, tags, err := marshalLists(recipe)
	if err != nil {
		return models.Recipe{}, err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO recipes (`+recipeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $17)
	`, recipe.ID, recipe.UserID, recipe.Title, recipe.Description, ingredients, instructions,
		categories, tags, recipe.CookingTime, recipe.PrepTime, recipe.Servings, recipe.Difficulty,
		recipe.SourceURL, recipe.SourceType, recipe.ImageURL, recipe.PersonalNotes, now)
	if err != nil {
		return models.Recipe{}, apperr.Wrap(apperr.KindDatabase, "insert recipe", err)
	}
	return recipe, nil
}

func (s *Postgres) Update(ctx context.Context, id string, recipe models.Recipe) (models.Recipe, error) {
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Recipe{}, err
	}

	// Ownership is never transferred by an update.
	recipe.ID = existing.ID
	recipe.UserID = existing.UserID
	recipe.CreatedAt = existing.CreatedAt
	recipe.UpdatedAt = time.Now().UTC()

	ingredients, instructions, categories, tags, err := marshalLists(recipe)
	if err != nil {
		return models.Recipe{}, err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE recipes
		SET title = $2, description = $3, ingredients = $4, instructions = $5, categories = $6,
			tags = $7, cooking_time = $8, prep_time = $9, servings = $10, difficulty = $11,
			source_url = $12, source_type = $13, image_url = $14, personal_notes = $15, updated_at = $16
		WHERE id = $1
	`, id, recipe.Title, recipe.Description, ingredients, instructions, categories, tags,
		recipe.CookingTime, recipe.PrepTime, recipe.Servings, recipe.Difficulty,
		recipe.SourceURL, recipe.SourceType, recipe.ImageURL, recipe.PersonalNotes, recipe.UpdatedAt)
	if err != nil {
		return models.Recipe{}, apperr.Wrap(apperr.KindDatabase, "update recipe", err)
	}
	if tag.RowsAffected() == 0 {
		return models.Recipe{}, apperr.Newf(apperr.KindNotFound, "recipe %s not found", id)
	}
	return recipe, nil
}

func (s *Postgres) GetByID(ctx context.Context, id string) (models.Recipe, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id)
	recipe, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Recipe{}, apperr.Newf(apperr.KindNotFound, "recipe %s not found", id)
	}
	if err != nil {
		return models.Recipe{}, apperr.Wrap(apperr.KindDatabase, "get recipe", err)
	}
	return recipe, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID string) ([]models.Recipe, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recipeColumns+` FROM recipes WHERE user_id = $1 ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "list recipes", err)
	}
	defer rows.Close()

	var recipes []models.Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindDatabase, "scan recipe", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindDatabase, "iterate recipes", err)
	}
	return recipes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (models.Recipe, error) {
	var r models.Recipe
	var ingredients, instructions, categories, tags []byte
	if err := row.Scan(&r.ID, &r.UserID, &r.Title, &r.Description, &ingredients, &instructions,
		&categories, &tags, &r.CookingTime, &r.PrepTime, &r.Servings, &r.Difficulty,
		&r.SourceURL, &r.SourceType, &r.ImageURL, &r.PersonalNotes, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return models.Recipe{}, err
	}
	if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
		return models.Recipe{}, fmt.Errorf("unmarshal ingredients: %w", err)
	}
	if err := json.Unmarshal(instructions, &r.Instructions); err != nil {
		return models.Recipe{}, fmt.Errorf("unmarshal instructions: %w", err)
	}
	if err := json.Unmarshal(categories, &r.Categories); err != nil {
		return models.Recipe{}, fmt.Errorf("unmarshal categories: %w", err)
	}
	if err := json.Unmarshal(tags, &r.Tags); err != nil {
		return models.Recipe{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	return r, nil
}

func marshalLists(r models.Recipe) (ingredients, instructions, categories, tags []byte, err error) {
	if ingredients, err = json.Marshal(orEmpty(r.Ingredients)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal ingredients: %w", err)
	}
	if instructions, err = json.Marshal(orEmpty(r.Instructions)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal instructions: %w", err)
	}
	if categories, err = json.Marshal(orEmpty(r.Categories)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal categories: %w", err)
	}
	if tags, err = json.Marshal(orEmpty(r.Tags)); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("marshal tags: %w", err)
	}
	return ingredients, instructions, categories, tags, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
