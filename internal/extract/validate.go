package extract

import (
	"fmt"

	"recipe-ingest/internal/models"
)

// Validate checks extracted data against the canonical schema before any
// merge or persistence logic touches it. Errors block saving; warnings are
// informational.
func Validate(data models.ExtractedRecipeData) models.ValidationResult {
	result := models.ValidationResult{}

	if data.Title == "" {
		result.Errors = append(result.Errors, "recipe has no title")
	}
	if len(data.Ingredients) == 0 {
		result.Errors = append(result.Errors, "recipe has no ingredients")
	}
	if len(data.Instructions) == 0 {
		result.Errors = append(result.Errors, "recipe has no instructions")
	}
	for i, line := range data.Ingredients {
		if line == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("ingredient %d is empty", i+1))
		}
	}

	if data.CookingTime == 0 && data.PrepTime == 0 {
		result.Warnings = append(result.Warnings, "no cooking or prep time found")
	}
	if data.Servings == 0 {
		result.Warnings = append(result.Warnings, "no servings found")
	}

	result.Valid = len(result.Errors) == 0
	return result
}
