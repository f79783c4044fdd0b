package conflict

import (
	"strings"

	"recipe-ingest/internal/models"
)

const notesSeparator = "\n\n--- Imported notes ---\n"

// Merge combines an existing recipe with an imported one deterministically.
// The existing recipe's title and source type always win; imported scalar
// metadata wins when present. Repeated merges are not idempotent on
// personalNotes: each application appends again.
func Merge(existing, imported models.Recipe) models.Recipe {
	merged := existing

	merged.Ingredients = mergeIngredients(existing.Ingredients, imported.Ingredients)
	merged.Instructions = mergeInstructions(existing.Instructions, imported.Instructions)
	merged.Categories = unionStrings(existing.Categories, imported.Categories)
	merged.Tags = unionStrings(existing.Tags, imported.Tags)

	if imported.CookingTime > 0 {
		merged.CookingTime = imported.CookingTime
	}
	if imported.PrepTime > 0 {
		merged.PrepTime = imported.PrepTime
	}
	if imported.Servings > 0 {
		merged.Servings = imported.Servings
	}
	if imported.Difficulty != "" {
		merged.Difficulty = imported.Difficulty
	}
	if imported.Description != "" {
		merged.Description = imported.Description
	}
	if imported.SourceURL != "" {
		merged.SourceURL = imported.SourceURL
	}
	if imported.ImageURL != "" {
		merged.ImageURL = imported.ImageURL
	}

	merged.PersonalNotes = mergeNotes(existing.PersonalNotes, imported.PersonalNotes)
	return merged
}

// mergeIngredients keeps the existing list and appends imported entries
// whose names are not already present. Dedup is by name only, never by
// quantity or unit.
func mergeIngredients(existing, imported []models.Ingredient) []models.Ingredient {
	seen := make(map[string]struct{}, len(existing))
	for _, ing := range existing {
		seen[strings.ToLower(strings.TrimSpace(ing.Name))] = struct{}{}
	}
	merged := append([]models.Ingredient(nil), existing...)
	for _, ing := range imported {
		key := strings.ToLower(strings.TrimSpace(ing.Name))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, ing)
	}
	return merged
}

// mergeInstructions keeps existing steps in place and appends imported
// steps renumbered to continue the sequence contiguously.
func mergeInstructions(existing, imported []models.Instruction) []models.Instruction {
	merged := append([]models.Instruction(nil), existing...)
	offset := len(existing)
	for _, step := range imported {
		step.StepNumber += offset
		merged = append(merged, step)
	}
	return merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range a {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	for _, s := range b {
		if _, dup := seen[s]; !dup {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func mergeNotes(existing, imported string) string {
	if existing == "" {
		return imported
	}
	if imported == "" {
		imported = "(no notes on imported recipe)"
	}
	return existing + notesSeparator + imported
}
