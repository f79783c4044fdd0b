package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"recipe-ingest/internal/apperr"
)

const jsonLDPage = `<!DOCTYPE html>
<html><head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@graph": [
    {"@type": "WebSite", "name": "Cooking Site"},
    {
      "@type": "Recipe",
      "name": "Classic Pancakes",
      "description": "Fluffy weekend pancakes.",
      "image": ["https://example.com/pancakes.jpg"],
      "recipeIngredient": ["2 cups flour", "1 cup milk", "2 eggs"],
      "recipeInstructions": [
        {"@type": "HowToStep", "text": "Whisk the dry ingredients."},
        {"@type": "HowToStep", "text": "Add milk and eggs."},
        {"@type": "HowToStep", "text": "Fry until golden."}
      ],
      "prepTime": "PT10M",
      "cookTime": "PT1H15M",
      "recipeYield": "4 servings"
    }
  ]
}
</script>
</head><body><h1>Classic Pancakes</h1></body></html>`

const microdataPage = `<!DOCTYPE html>
<html><body itemscope itemtype="https://schema.org/Recipe">
<h1 itemprop="name">Tomato Soup</h1>
<ul>
  <li itemprop="recipeIngredient">4 tomatoes</li>
  <li itemprop="recipeIngredient">1 onion</li>
</ul>
<div itemprop="recipeInstructions">
  <ol>
    <li>Chop everything.</li>
    <li>Simmer for 30 minutes.</li>
  </ol>
</div>
<span itemprop="recipeYield">Serves 2</span>
</body></html>`

func TestURLAdapterJSONLD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(jsonLDPage))
	}))
	defer srv.Close()

	data, err := NewURLAdapter(srv.Client(), 0).Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if data.Title != "Classic Pancakes" {
		t.Fatalf("title = %q", data.Title)
	}
	if len(data.Ingredients) != 3 || len(data.Instructions) != 3 {
		t.Fatalf("got %d ingredients, %d instructions", len(data.Ingredients), len(data.Instructions))
	}
	if data.PrepTime != 10 || data.CookingTime != 75 {
		t.Fatalf("times = prep %d cook %d", data.PrepTime, data.CookingTime)
	}
	if data.Servings != 4 {
		t.Fatalf("servings = %d", data.Servings)
	}
	if data.ImageURL != "https://example.com/pancakes.jpg" {
		t.Fatalf("image = %q", data.ImageURL)
	}
	if data.SourceURL != srv.URL || data.SourceType != "url" {
		t.Fatalf("source fields: %q %q", data.SourceURL, data.SourceType)
	}
}

func TestURLAdapterMicrodataFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(microdataPage))
	}))
	defer srv.Close()

	data, err := NewURLAdapter(srv.Client(), 0).Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if data.Title != "Tomato Soup" || len(data.Ingredients) != 2 || len(data.Instructions) != 2 {
		t.Fatalf("unexpected extraction: %+v", data)
	}
	if data.Servings != 2 {
		t.Fatalf("servings = %d", data.Servings)
	}
}

func TestURLAdapterNoRecipeIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body><p>Just a blog post.</p></body></html>"))
	}))
	defer srv.Close()

	_, err := NewURLAdapter(srv.Client(), 0).Extract(context.Background(), srv.URL)
	if apperr.KindOf(err) != apperr.KindParse {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestURLAdapterHTTPFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewURLAdapter(srv.Client(), 0).Extract(context.Background(), srv.URL)
	if apperr.KindOf(err) != apperr.KindNetwork {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestURLAdapterRejectsBadURL(t *testing.T) {
	for _, bad := range []string{"", "not a url", "ftp://example.com/recipe", "file:///etc/passwd"} {
		_, err := NewURLAdapter(nil, 0).Extract(context.Background(), bad)
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("url %q: expected validation error, got %v", bad, err)
		}
	}
}

func TestParseDurationMinutes(t *testing.T) {
	cases := map[string]int{
		"PT45M":           45,
		"PT1H30M":         90,
		"PT2H":            120,
		"45 min":          45,
		"1 hour 15 mins":  75,
		"30":              30,
		"":                0,
		"as long as it takes": 0,
	}
	for in, want := range cases {
		if got := parseDurationMinutes(in); got != want {
			t.Fatalf("parseDurationMinutes(%q) = %d, want %d", in, got, want)
		}
	}
}
