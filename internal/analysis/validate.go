// Package analysis checks parsed model output against the result schemas.
// Everything here is pure: no I/O, no mutation, no panics on any input.
package analysis

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/kiranshivaraju/lookscore/pkg/models"
)

const (
	maxScore = 12

	minSectionLen         = 10
	minOverallAnalysisLen = 20
	minEntryAnalysisLen   = 10

	allCategoriesCount = 7
)

var reWhitespace = regexp.MustCompile(`\s+`)

// Validator reports whether a decoded JSON value satisfies a result schema.
type Validator func(v any) bool

// ValidatorFor returns the predicate for the given variant. Unknown variants
// fall back to the single-category schema.
func ValidatorFor(variant models.Variant) Validator {
	if variant == models.VariantAll {
		return ValidAll
	}
	return ValidSingle
}

// singleSections are the prose fields every single-category result carries.
var singleSections = []string{"style", "colorCoordination", "accessories", "harmony"}

// ValidSingle checks the single-category schema: a score in (0, 12] and four
// descriptive sections of at least 10 characters after whitespace collapsing.
// An optional suggestions array is not inspected.
func ValidSingle(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if !validScore(obj["score"]) {
		return false
	}
	for _, key := range singleSections {
		s, ok := obj[key].(string)
		if !ok || collapsedLen(s) < minSectionLen {
			return false
		}
	}
	return true
}

// ValidAll checks the all-categories schema. The results array must hold
// exactly seven valid entries drawn from the fixed category set; a single bad
// entry invalidates the whole value.
func ValidAll(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if !validScore(obj["overallScore"]) {
		return false
	}
	overall, ok := obj["overallAnalysis"].(string)
	if !ok || trimmedLen(overall) < minOverallAnalysisLen {
		return false
	}
	results, ok := obj["results"].([]any)
	if !ok || len(results) != allCategoriesCount {
		return false
	}
	for _, r := range results {
		if !validEntry(r) {
			return false
		}
	}
	return true
}

func validEntry(v any) bool {
	entry, ok := v.(map[string]any)
	if !ok {
		return false
	}
	category, ok := entry["category"].(string)
	if !ok || !models.IsCategory(category) {
		return false
	}
	if !validScore(entry["score"]) {
		return false
	}
	analysis, ok := entry["analysis"].(string)
	return ok && trimmedLen(analysis) >= minEntryAnalysisLen
}

// validScore accepts a finite number in (0, 12].
func validScore(v any) bool {
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return false
	}
	return f > 0 && f <= maxScore
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func collapsedLen(s string) int {
	return trimmedLen(reWhitespace.ReplaceAllString(s, " "))
}
