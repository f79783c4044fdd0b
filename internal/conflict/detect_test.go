package conflict

import (
	"testing"

	"recipe-ingest/internal/models"
)

func TestDetectNormalizedTitleMatch(t *testing.T) {
	collection := []models.Recipe{
		{ID: "1", Title: "Beef Stew"},
		{ID: "2", Title: "Chicken Curry"},
	}
	candidate := models.Recipe{Title: "  chicken curry "}

	c := Detect(candidate, collection)
	if c == nil {
		t.Fatal("expected a conflict")
	}
	if c.ExistingRecipe.ID != "2" || c.Reason != models.ConflictReasonTitle {
		t.Fatalf("unexpected conflict: %+v", c)
	}
}

func TestDetectSourceURLMatch(t *testing.T) {
	collection := []models.Recipe{
		{ID: "1", Title: "Beef Stew", SourceURL: "https://example.com/stew"},
	}
	candidate := models.Recipe{Title: "Grandma's Stew", SourceURL: "https://example.com/stew"}

	c := Detect(candidate, collection)
	if c == nil || c.Reason != models.ConflictReasonSourceURL {
		t.Fatalf("expected source-url conflict, got %+v", c)
	}
}

func TestDetectTitleBeatsSourceURL(t *testing.T) {
	// Candidate matches one recipe by URL and a different one by title; the
	// title criterion must win deterministically.
	collection := []models.Recipe{
		{ID: "by-url", Title: "Other", SourceURL: "https://example.com/r"},
		{ID: "by-title", Title: "Pancakes"},
	}
	candidate := models.Recipe{Title: "pancakes", SourceURL: "https://example.com/r"}

	c := Detect(candidate, collection)
	if c == nil || c.ExistingRecipe.ID != "by-title" {
		t.Fatalf("title match must take priority, got %+v", c)
	}
}

func TestDetectFirstMatchWinsWithinCriterion(t *testing.T) {
	collection := []models.Recipe{
		{ID: "first", Title: "Pasta"},
		{ID: "second", Title: "pasta"},
	}
	c := Detect(models.Recipe{Title: "Pasta"}, collection)
	if c == nil || c.ExistingRecipe.ID != "first" {
		t.Fatalf("tie-break must be stable, got %+v", c)
	}
}

func TestDetectNoCollision(t *testing.T) {
	collection := []models.Recipe{{ID: "1", Title: "Beef Stew", SourceURL: "https://a"}}
	if c := Detect(models.Recipe{Title: "Pancakes", SourceURL: "https://b"}, collection); c != nil {
		t.Fatalf("unexpected conflict: %+v", c)
	}
	// Empty source URLs never collide with each other.
	if c := Detect(models.Recipe{Title: "Pancakes"}, []models.Recipe{{ID: "1", Title: "Stew"}}); c != nil {
		t.Fatalf("empty source urls must not collide: %+v", c)
	}
}
