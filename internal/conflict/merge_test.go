package conflict

import (
	"strings"
	"testing"

	"recipe-ingest/internal/models"
)

func TestMergeIngredientDedupByNameOnly(t *testing.T) {
	existing := models.Recipe{Ingredients: []models.Ingredient{{Name: "Flour", Quantity: 2, Unit: "cups"}}}
	imported := models.Recipe{Ingredients: []models.Ingredient{
		{Name: "flour", Quantity: 500, Unit: "g"},
		{Name: "Sugar", Quantity: 1, Unit: "cup"},
	}}

	merged := Merge(existing, imported)
	if len(merged.Ingredients) != 2 {
		t.Fatalf("got %d ingredients, want 2: %+v", len(merged.Ingredients), merged.Ingredients)
	}
	if merged.Ingredients[0].Name != "Flour" || merged.Ingredients[1].Name != "Sugar" {
		t.Fatalf("unexpected ingredient order: %+v", merged.Ingredients)
	}
	// The duplicate is dropped even though its quantity and unit differ.
	if merged.Ingredients[0].Quantity != 2 || merged.Ingredients[0].Unit != "cups" {
		t.Fatalf("existing ingredient should be untouched: %+v", merged.Ingredients[0])
	}
}

func TestMergeInstructionRenumbering(t *testing.T) {
	existing := models.Recipe{Instructions: []models.Instruction{
		{StepNumber: 1, Description: "Preheat oven"},
		{StepNumber: 2, Description: "Mix dry ingredients"},
	}}
	imported := models.Recipe{Instructions: []models.Instruction{
		{StepNumber: 1, Description: "Whisk eggs"},
		{StepNumber: 2, Description: "Fold together"},
	}}

	merged := Merge(existing, imported)
	if len(merged.Instructions) != 4 {
		t.Fatalf("got %d steps, want 4", len(merged.Instructions))
	}
	for i, step := range merged.Instructions {
		if step.StepNumber != i+1 {
			t.Fatalf("step %d numbered %d, want contiguous 1..4: %+v", i, step.StepNumber, merged.Instructions)
		}
	}
	if merged.Instructions[2].Description != "Whisk eggs" {
		t.Fatalf("imported steps must follow existing ones: %+v", merged.Instructions)
	}
}

func TestMergeCategoriesAndTagsUnion(t *testing.T) {
	existing := models.Recipe{Categories: []string{"Dinner"}, Tags: []string{"quick", "vegan"}}
	imported := models.Recipe{Categories: []string{"Dinner", "Italian"}, Tags: []string{"vegan", "pasta"}}

	merged := Merge(existing, imported)
	if len(merged.Categories) != 2 {
		t.Fatalf("categories union wrong: %v", merged.Categories)
	}
	if len(merged.Tags) != 3 {
		t.Fatalf("tags union wrong: %v", merged.Tags)
	}
}

func TestMergeScalarMetadataImportedWins(t *testing.T) {
	existing := models.Recipe{
		Title:       "Family Lasagna",
		SourceType:  "manual",
		CookingTime: 60,
		Servings:    4,
		Difficulty:  "easy",
		Description: "old description",
	}
	imported := models.Recipe{
		Title:       "Web Lasagna",
		SourceType:  "url",
		CookingTime: 45,
		Difficulty:  "",
		Description: "new description",
		SourceURL:   "https://example.com/lasagna",
	}

	merged := Merge(existing, imported)
	if merged.Title != "Family Lasagna" {
		t.Fatalf("title must always stay from existing, got %q", merged.Title)
	}
	if merged.SourceType != "manual" {
		t.Fatalf("sourceType must always stay from existing, got %q", merged.SourceType)
	}
	if merged.CookingTime != 45 {
		t.Fatalf("imported cooking time should win, got %d", merged.CookingTime)
	}
	if merged.Servings != 4 {
		t.Fatalf("absent imported servings must keep existing, got %d", merged.Servings)
	}
	if merged.Difficulty != "easy" {
		t.Fatalf("empty imported difficulty must keep existing, got %q", merged.Difficulty)
	}
	if merged.Description != "new description" || merged.SourceURL != "https://example.com/lasagna" {
		t.Fatalf("imported metadata should win: %+v", merged)
	}
}

func TestMergeNotes(t *testing.T) {
	merged := Merge(
		models.Recipe{PersonalNotes: "less salt next time"},
		models.Recipe{PersonalNotes: "use fresh basil"},
	)
	if !strings.HasPrefix(merged.PersonalNotes, "less salt next time") || !strings.HasSuffix(merged.PersonalNotes, "use fresh basil") {
		t.Fatalf("notes not concatenated: %q", merged.PersonalNotes)
	}

	merged = Merge(models.Recipe{PersonalNotes: "existing"}, models.Recipe{})
	if !strings.Contains(merged.PersonalNotes, "(no notes on imported recipe)") {
		t.Fatalf("placeholder missing: %q", merged.PersonalNotes)
	}

	merged = Merge(models.Recipe{}, models.Recipe{PersonalNotes: "imported only"})
	if merged.PersonalNotes != "imported only" {
		t.Fatalf("imported notes should be used as-is: %q", merged.PersonalNotes)
	}
}
