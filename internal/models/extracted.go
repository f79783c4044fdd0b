package models

// ExtractedRecipeData is the canonical not-yet-validated shape every
// extraction adapter produces, regardless of source. Downstream code never
// branches on source-specific shape.
type ExtractedRecipeData struct {
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	CookingTime  int      `json:"cookingTime,omitempty"` // minutes
	PrepTime     int      `json:"prepTime,omitempty"`    // minutes
	Servings     int      `json:"servings,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
	SourceURL    string   `json:"sourceUrl,omitempty"`
	SourceType   string   `json:"sourceType,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
}

// ValidationResult reports whether extracted data can become a recipe.
// Warnings never block saving.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ToRecipe converts validated extracted data into a persistable recipe owned
// by the given user. Ingredient lines keep their raw text as the name;
// instruction steps are numbered contiguously from 1.
func (d ExtractedRecipeData) ToRecipe(userID string) Recipe {
	ingredients := make([]Ingredient, 0, len(d.Ingredients))
	for _, line := range d.Ingredients {
		ingredients = append(ingredients, Ingredient{Name: line})
	}
	instructions := make([]Instruction, 0, len(d.Instructions))
	for i, step := range d.Instructions {
		instructions = append(instructions, Instruction{StepNumber: i + 1, Description: step})
	}
	return Recipe{
		UserID:       userID,
		Title:        d.Title,
		Description:  d.Description,
		Ingredients:  ingredients,
		Instructions: instructions,
		CookingTime:  d.CookingTime,
		PrepTime:     d.PrepTime,
		Servings:     d.Servings,
		Difficulty:   d.Difficulty,
		SourceURL:    d.SourceURL,
		SourceType:   d.SourceType,
		ImageURL:     d.ImageURL,
	}
}
