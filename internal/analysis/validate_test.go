package analysis

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/kiranshivaraju/lookscore/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSingle() map[string]any {
	return map[string]any{
		"score":             9.0,
		"style":             "Clean monochrome layering with sharp tailoring.",
		"colorCoordination": "Neutral palette anchored by a camel coat.",
		"accessories":       "Minimal gold jewellery keeps focus on the silhouette.",
		"harmony":           "Proportions are balanced from shoulders to hem.",
		"suggestions":       []any{"Try a contrasting belt."},
	}
}

func validEntries() []any {
	entries := make([]any, 0, len(models.Categories))
	for _, c := range models.Categories {
		entries = append(entries, map[string]any{
			"category": c,
			"score":    7.5,
			"analysis": "Reads well for the " + c + " brief overall.",
		})
	}
	return entries
}

func validAllResult() map[string]any {
	return map[string]any{
		"overallScore":    8.0,
		"overallAnalysis": "A versatile outfit that adapts across most style briefs.",
		"results":         validEntries(),
	}
}

// --- single-category schema ---

func TestValidSingle_Valid(t *testing.T) {
	assert.True(t, ValidSingle(validSingle()))
}

func TestValidSingle_SuggestionsOptional(t *testing.T) {
	obj := validSingle()
	delete(obj, "suggestions")
	assert.True(t, ValidSingle(obj))
}

func TestValidSingle_SingleFieldMutations(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"score zero", "score", 0.0},
		{"score negative", "score", -1.0},
		{"score above max", "score", 13.0},
		{"score NaN", "score", math.NaN()},
		{"score infinite", "score", math.Inf(1)},
		{"score as string", "score", "9"},
		{"score missing", "score", nil},
		{"style too short", "style", "short"},
		{"style padded with whitespace", "style", "  a    b   c  "},
		{"colorCoordination not a string", "colorCoordination", 42.0},
		{"accessories empty", "accessories", ""},
		{"harmony missing", "harmony", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := validSingle()
			if tt.value == nil {
				delete(obj, tt.key)
			} else {
				obj[tt.key] = tt.value
			}
			assert.False(t, ValidSingle(obj))
		})
	}
}

func TestValidSingle_ScoreBoundaryIncluded(t *testing.T) {
	obj := validSingle()
	obj["score"] = 12.0
	assert.True(t, ValidSingle(obj))
}

func TestValidSingle_WhitespaceCollapsedBeforeCounting(t *testing.T) {
	obj := validSingle()
	// collapses to "ab cd ef ghi"
	obj["style"] = "ab    cd\n\n\tef  ghi"
	assert.True(t, ValidSingle(obj))

	obj["style"] = "ab       cd        ef"
	assert.False(t, ValidSingle(obj))
}

func TestValidSingle_CountsRunesNotBytes(t *testing.T) {
	obj := validSingle()
	obj["harmony"] = "çğıöşüÇĞİÖ" // 10 runes, 20 bytes
	assert.True(t, ValidSingle(obj))
	obj["harmony"] = "çğıöşüÇĞİ"
	assert.False(t, ValidSingle(obj))
}

func TestValidSingle_NonObjectInputs(t *testing.T) {
	for _, v := range []any{nil, "text", 9.0, []any{validSingle()}, true} {
		assert.False(t, ValidSingle(v))
	}
}

func TestValidSingle_AcceptsDecodedJSON(t *testing.T) {
	raw := `{"score":9,"style":"Sharp tailored look","colorCoordination":"Muted earth tones",
		"accessories":"Leather watch and belt","harmony":"Balanced proportions"}`
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	assert.True(t, ValidSingle(v))
}

// --- all-categories schema ---

func TestValidAll_Valid(t *testing.T) {
	assert.True(t, ValidAll(validAllResult()))
}

func TestValidAll_Arity(t *testing.T) {
	six := validAllResult()
	six["results"] = validEntries()[:6]
	assert.False(t, ValidAll(six), "6 entries")

	eight := validAllResult()
	eight["results"] = append(validEntries(), validEntries()[0])
	assert.False(t, ValidAll(eight), "8 entries")

	empty := validAllResult()
	empty["results"] = []any{}
	assert.False(t, ValidAll(empty), "no entries")
}

func TestValidAll_ForeignCategoryInvalidatesWhole(t *testing.T) {
	obj := validAllResult()
	entries := validEntries()
	entries[3].(map[string]any)["category"] = "gothic"
	obj["results"] = entries
	assert.False(t, ValidAll(obj))
}

func TestValidAll_EntryMutations(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"score zero", "score", 0.0},
		{"score above max", "score", 12.5},
		{"analysis too short", "analysis", "too short"},
		{"analysis whitespace", "analysis", "          "},
		{"category not string", "category", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := validAllResult()
			entries := validEntries()
			entries[6].(map[string]any)[tt.key] = tt.value
			obj["results"] = entries
			assert.False(t, ValidAll(obj))
		})
	}
}

func TestValidAll_TopLevelMutations(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"overallScore zero", "overallScore", 0.0},
		{"overallScore too high", "overallScore", 100.0},
		{"overallAnalysis short", "overallAnalysis", "Nice outfit overall"},
		{"results not array", "results", map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := validAllResult()
			obj[tt.key] = tt.value
			assert.False(t, ValidAll(obj))
		})
	}
}

func TestValidAll_EntryNotObject(t *testing.T) {
	obj := validAllResult()
	entries := validEntries()
	entries[0] = "sexy"
	obj["results"] = entries
	assert.False(t, ValidAll(obj))
}

func TestValidatorFor(t *testing.T) {
	single := ValidatorFor(models.VariantSingle)
	all := ValidatorFor(models.VariantAll)

	assert.True(t, single(validSingle()))
	assert.False(t, single(validAllResult()))
	assert.True(t, all(validAllResult()))
	assert.False(t, all(validSingle()))
}
