package models

import (
	"strings"
	"time"
)

// Recipe is the persisted entity the ingestion core reads and writes through
// the RecipeStore collaborator. Storage layout is the store's business.
type Recipe struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Ingredients   []Ingredient  `json:"ingredients"`
	Instructions  []Instruction `json:"instructions"`
	Categories    []string      `json:"categories,omitempty"`
	Tags          []string      `json:"tags,omitempty"`
	CookingTime   int           `json:"cookingTime,omitempty"` // minutes
	PrepTime      int           `json:"prepTime,omitempty"`    // minutes
	Servings      int           `json:"servings,omitempty"`
	Difficulty    string        `json:"difficulty,omitempty"`
	SourceURL     string        `json:"sourceUrl,omitempty"`
	SourceType    string        `json:"sourceType,omitempty"` // "url", "pdf", "docx", "manual"
	ImageURL      string        `json:"imageUrl,omitempty"`
	PersonalNotes string        `json:"personalNotes,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Notes    string  `json:"notes,omitempty"`
}

// Instruction is one ordered step.
type Instruction struct {
	StepNumber  int    `json:"stepNumber"`
	Description string `json:"description"`
	Duration    int    `json:"duration,omitempty"` // minutes, 0 if untimed
}

// NormalizeTitle lowers and trims a title for collision comparison.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
