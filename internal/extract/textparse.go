package extract

import (
	"regexp"
	"strings"

	"recipe-ingest/internal/models"
)

type section int

const (
	sectionNone section = iota
	sectionIngredients
	sectionInstructions
)

var (
	stepNumberPrefix = regexp.MustCompile(`(?i)^(?:step\s+)?[0-9]+[.):]\s*`)
	bulletPrefix     = regexp.MustCompile(`^[-*•]\s*`)

	servesLine     = regexp.MustCompile(`(?i)^(?:serves|servings?|yield)[:\s]+(.+)$`)
	prepTimeLine   = regexp.MustCompile(`(?i)^prep(?:aration)?\s*time[:\s]+(.+)$`)
	cookTimeLine   = regexp.MustCompile(`(?i)^cook(?:ing)?\s*time[:\s]+(.+)$`)
	totalTimeLine  = regexp.MustCompile(`(?i)^total\s*time[:\s]+(.+)$`)
	difficultyLine = regexp.MustCompile(`(?i)^difficulty[:\s]+(.+)$`)
)

// ParseRecipes turns document text into recipe candidates. It recognizes
// "Ingredients" and "Instructions"-style headers, numbered or bulleted
// lists, and common metadata lines. A document can hold several recipes
// back to back; a new "Ingredients" header after instructions have begun
// starts the next one.
func ParseRecipes(text string) []models.ExtractedRecipeData {
	var recipes []models.ExtractedRecipeData
	current := models.ExtractedRecipeData{}
	state := sectionNone
	var lastPlain string

	flush := func() {
		if current.Title == "" {
			current.Title = lastPlain
		}
		if len(current.Ingredients) > 0 || len(current.Instructions) > 0 {
			recipes = append(recipes, current)
		}
		current = models.ExtractedRecipeData{}
		state = sectionNone
	}

	for _, rawLine := range strings.Split(text, "\n") {
		line := cleanLine(rawLine)
		if line == "" {
			continue
		}

		switch {
		case isIngredientsHeader(line):
			if state == sectionInstructions {
				flush()
			}
			if current.Title == "" {
				current.Title = lastPlain
			}
			state = sectionIngredients
			continue
		case isInstructionsHeader(line):
			state = sectionInstructions
			continue
		}

		if applyMetadata(&current, line) {
			continue
		}

		switch state {
		case sectionIngredients:
			current.Ingredients = append(current.Ingredients, bulletPrefix.ReplaceAllString(line, ""))
		case sectionInstructions:
			if looksLikeTitle(line) && len(current.Instructions) > 0 {
				// An unnumbered short line after a run of steps usually
				// starts the next recipe in the document.
				flush()
				current.Title = line
				lastPlain = line
				continue
			}
			step := bulletPrefix.ReplaceAllString(line, "")
			current.Instructions = append(current.Instructions, stepNumberPrefix.ReplaceAllString(step, ""))
		default:
			lastPlain = line
			if current.Title == "" {
				current.Title = line
			}
		}
	}
	flush()
	return recipes
}

func looksLikeTitle(line string) bool {
	if stepNumberPrefix.MatchString(line) || bulletPrefix.MatchString(line) {
		return false
	}
	return len(line) < 60 && !strings.HasSuffix(line, ".")
}

func isIngredientsHeader(line string) bool {
	l := strings.ToLower(strings.TrimRight(line, ":"))
	return l == "ingredients" || l == "ingredient list"
}

func isInstructionsHeader(line string) bool {
	l := strings.ToLower(strings.TrimRight(line, ":"))
	switch l {
	case "instructions", "directions", "method", "steps", "preparation":
		return true
	}
	return false
}

func applyMetadata(data *models.ExtractedRecipeData, line string) bool {
	if m := servesLine.FindStringSubmatch(line); m != nil {
		data.Servings = parseServings(m[1])
		return true
	}
	if m := prepTimeLine.FindStringSubmatch(line); m != nil {
		data.PrepTime = parseDurationMinutes(m[1])
		return true
	}
	if m := cookTimeLine.FindStringSubmatch(line); m != nil {
		data.CookingTime = parseDurationMinutes(m[1])
		return true
	}
	if m := totalTimeLine.FindStringSubmatch(line); m != nil {
		if data.CookingTime == 0 {
			data.CookingTime = parseDurationMinutes(m[1])
		}
		return true
	}
	if m := difficultyLine.FindStringSubmatch(line); m != nil {
		data.Difficulty = strings.ToLower(cleanLine(m[1]))
		return true
	}
	return false
}
