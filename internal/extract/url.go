package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
)

// URLAdapter extracts recipe data from web pages. It tries schema.org
// JSON-LD first and falls back to microdata and DOM heuristics.
type URLAdapter struct {
	client   *http.Client
	maxBytes int64
}

// NewURLAdapter wires an HTTP client; maxBytes caps the fetched page size.
func NewURLAdapter(client *http.Client, maxBytes int64) *URLAdapter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = 5 * 1024 * 1024
	}
	return &URLAdapter{client: client, maxBytes: maxBytes}
}

// Extract fetches the page and produces candidate recipe data.
func (a *URLAdapter) Extract(ctx context.Context, rawURL string) (models.ExtractedRecipeData, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return models.ExtractedRecipeData{}, apperr.Newf(apperr.KindValidation, "invalid url %q", rawURL)
	}

	doc, err := a.fetchDocument(ctx, rawURL)
	if err != nil {
		return models.ExtractedRecipeData{}, err
	}

	if data, ok := extractJSONLD(doc); ok {
		data.SourceURL = rawURL
		data.SourceType = "url"
		return data, nil
	}
	if data, ok := extractMicrodata(doc); ok {
		data.SourceURL = rawURL
		data.SourceType = "url"
		return data, nil
	}
	return models.ExtractedRecipeData{}, apperr.Newf(apperr.KindParse, "no recipe found at %s", rawURL)
}

func (a *URLAdapter) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "fetch recipe page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, apperr.Newf(apperr.KindNetwork, "fetch recipe page: status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, a.maxBytes)
	doc, err := goquery.NewDocumentFromReader(limited)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParse, "parse html", err)
	}
	return doc, nil
}

// ldRecipe is the schema.org/Recipe subset this adapter understands. Fields
// that sites encode inconsistently go through json.RawMessage.
type ldRecipe struct {
	Type         json.RawMessage   `json:"@type"`
	Graph        []json.RawMessage `json:"@graph"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Image        json.RawMessage   `json:"image"`
	Ingredients  []string          `json:"recipeIngredient"`
	Instructions json.RawMessage   `json:"recipeInstructions"`
	CookTime     string            `json:"cookTime"`
	PrepTime     string            `json:"prepTime"`
	Yield        json.RawMessage   `json:"recipeYield"`
}

func extractJSONLD(doc *goquery.Document) (models.ExtractedRecipeData, bool) {
	var found models.ExtractedRecipeData
	ok := false
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, node := range decodeLDNodes([]byte(sel.Text())) {
			if data, isRecipe := ldToRecipe(node); isRecipe {
				found = data
				ok = true
				return false
			}
		}
		return true
	})
	return found, ok
}

// decodeLDNodes flattens a JSON-LD payload (single object, array, or
// @graph container) into candidate nodes.
func decodeLDNodes(raw []byte) []ldRecipe {
	var nodes []ldRecipe
	var single ldRecipe
	if err := json.Unmarshal(raw, &single); err == nil {
		nodes = append(nodes, single)
		for _, g := range single.Graph {
			var member ldRecipe
			if err := json.Unmarshal(g, &member); err == nil {
				nodes = append(nodes, member)
			}
		}
		return nodes
	}
	var many []json.RawMessage
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, m := range many {
			nodes = append(nodes, decodeLDNodes(m)...)
		}
	}
	return nodes
}

func ldToRecipe(node ldRecipe) (models.ExtractedRecipeData, bool) {
	if !typeIsRecipe(node.Type) || node.Name == "" {
		return models.ExtractedRecipeData{}, false
	}
	data := models.ExtractedRecipeData{
		Title:       cleanLine(node.Name),
		Description: cleanLine(node.Description),
		CookingTime: parseDurationMinutes(node.CookTime),
		PrepTime:    parseDurationMinutes(node.PrepTime),
		Servings:    parseServings(string(node.Yield)),
		ImageURL:    firstImageURL(node.Image),
	}
	for _, ing := range node.Ingredients {
		if line := cleanLine(ing); line != "" {
			data.Ingredients = append(data.Ingredients, line)
		}
	}
	data.Instructions = decodeInstructions(node.Instructions)
	return data, true
}

func typeIsRecipe(raw json.RawMessage) bool {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single == "Recipe"
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, t := range many {
			if t == "Recipe" {
				return true
			}
		}
	}
	return false
}

// decodeInstructions handles the three encodings in the wild: a plain
// string, a list of strings, or a list of HowToStep objects.
func decodeInstructions(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return splitInstructionText(single)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err == nil {
			if line := cleanLine(text); line != "" {
				out = append(out, line)
			}
			continue
		}
		var step struct {
			Text string `json:"text"`
			Name string `json:"name"`
		}
		if err := json.Unmarshal(item, &step); err == nil {
			line := cleanLine(step.Text)
			if line == "" {
				line = cleanLine(step.Name)
			}
			if line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

func splitInstructionText(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n") {
		if line := cleanLine(part); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func firstImageURL(raw json.RawMessage) string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 {
		return many[0]
	}
	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.URL
	}
	return ""
}

// extractMicrodata covers pages that annotate markup with itemprop
// attributes instead of JSON-LD.
func extractMicrodata(doc *goquery.Document) (models.ExtractedRecipeData, bool) {
	var data models.ExtractedRecipeData

	data.Title = cleanLine(doc.Find(`[itemprop="name"]`).First().Text())
	if data.Title == "" {
		data.Title = cleanLine(doc.Find("h1").First().Text())
	}
	doc.Find(`[itemprop="recipeIngredient"], [itemprop="ingredients"]`).Each(func(_ int, sel *goquery.Selection) {
		if line := cleanLine(sel.Text()); line != "" {
			data.Ingredients = append(data.Ingredients, line)
		}
	})
	doc.Find(`[itemprop="recipeInstructions"]`).Each(func(_ int, sel *goquery.Selection) {
		items := sel.Find("li")
		if items.Length() == 0 {
			if line := cleanLine(sel.Text()); line != "" {
				data.Instructions = append(data.Instructions, line)
			}
			return
		}
		items.Each(func(_ int, li *goquery.Selection) {
			if line := cleanLine(li.Text()); line != "" {
				data.Instructions = append(data.Instructions, line)
			}
		})
	})
	if img, exists := doc.Find(`[itemprop="image"]`).First().Attr("src"); exists {
		data.ImageURL = img
	}
	data.CookingTime = parseDurationMinutes(attrOrText(doc, `[itemprop="cookTime"]`))
	data.PrepTime = parseDurationMinutes(attrOrText(doc, `[itemprop="prepTime"]`))
	data.Servings = parseServings(cleanLine(doc.Find(`[itemprop="recipeYield"]`).First().Text()))

	if data.Title == "" || len(data.Ingredients) == 0 || len(data.Instructions) == 0 {
		return models.ExtractedRecipeData{}, false
	}
	return data, true
}

func attrOrText(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if v, exists := sel.Attr("datetime"); exists {
		return v
	}
	if v, exists := sel.Attr("content"); exists {
		return v
	}
	return cleanLine(sel.Text())
}
