// Package extract turns heterogeneous sources (web pages, PDF/DOCX uploads,
// plain text) into the canonical ExtractedRecipeData shape. Everything
// downstream of this package is source-agnostic.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// isoDuration matches the subset of ISO-8601 durations schema.org recipes
// actually use (PT1H30M, PT45M, PT2H).
var isoDuration = regexp.MustCompile(`^P(?:([0-9]+)D)?T?(?:([0-9]+)H)?(?:([0-9]+)M)?(?:[0-9]+S)?$`)

// parseDurationMinutes converts an ISO-8601 duration or a loose human string
// ("45 min", "1 hour 30 minutes") into whole minutes. Zero means unknown.
func parseDurationMinutes(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if m := isoDuration.FindStringSubmatch(strings.ToUpper(raw)); m != nil {
		days, _ := strconv.Atoi(m[1])
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		return days*24*60 + hours*60 + minutes
	}
	return parseLooseDuration(raw)
}

var (
	hoursExpr   = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*(?:hours?|hrs?|h)\b`)
	minutesExpr = regexp.MustCompile(`([0-9]+)\s*(?:minutes?|mins?|m)\b`)
	bareNumber  = regexp.MustCompile(`^([0-9]+)$`)
)

func parseLooseDuration(raw string) int {
	lower := strings.ToLower(raw)
	total := 0
	if m := hoursExpr.FindStringSubmatch(lower); m != nil {
		if h, err := strconv.ParseFloat(m[1], 64); err == nil {
			total += int(h * 60)
		}
	}
	if m := minutesExpr.FindStringSubmatch(lower); m != nil {
		if mins, err := strconv.Atoi(m[1]); err == nil {
			total += mins
		}
	}
	if total == 0 {
		if m := bareNumber.FindStringSubmatch(strings.TrimSpace(lower)); m != nil {
			total, _ = strconv.Atoi(m[1])
		}
	}
	return total
}

var servingsExpr = regexp.MustCompile(`([0-9]+)`)

// parseServings pulls the first integer out of a yield string ("4", "Serves
// 6", "4-6 servings").
func parseServings(raw string) int {
	if m := servingsExpr.FindStringSubmatch(raw); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return 0
}

// cleanLine collapses whitespace runs in extracted text.
var spaceRun = regexp.MustCompile(`\s+`)

func cleanLine(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
