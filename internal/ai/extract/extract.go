// Package extract pulls a JSON value out of noisy model output.
//
// Each strategy is a pure function from text to a decoded value; Parse runs
// them in order and returns the first success.
package extract

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when no strategy could decode the input.
var ErrNoJSON = errors.New("no JSON value found")

// Strategy decodes text into a JSON value or reports failure.
type Strategy func(text string) (any, bool)

// Chain is the default ordering: direct parse, fence strip, brace scan.
var Chain = []Strategy{Direct, FenceStripped, BraceScan}

// Parse runs the default chain over text.
func Parse(text string) (any, error) {
	return ParseWith(text, Chain...)
}

// ParseWith runs the given strategies in order.
func ParseWith(text string, strategies ...Strategy) (any, error) {
	for _, s := range strategies {
		if v, ok := s(text); ok {
			return v, nil
		}
	}
	return nil, ErrNoJSON
}

// Direct decodes the whole input.
func Direct(text string) (any, bool) {
	return decode(strings.TrimSpace(text))
}

var (
	reFenceOpen  = regexp.MustCompile("^```[A-Za-z0-9_-]*[ \t]*\r?\n?")
	reFenceClose = regexp.MustCompile("\r?\n?```\\s*$")
)

// StripFences removes a leading ``` (with optional language tag) and a
// trailing ``` from text. Text without fences is returned trimmed.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	s = reFenceOpen.ReplaceAllString(s, "")
	s = reFenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// FenceStripped decodes the input after removing Markdown code fences.
func FenceStripped(text string) (any, bool) {
	return decode(StripFences(text))
}

// BraceScan decodes the substring from the first '{' to the last '}'.
func BraceScan(text string) (any, bool) {
	sub, ok := BraceSpan(text)
	if !ok {
		return nil, false
	}
	return decode(sub)
}

// BraceSpan returns text[first '{' : last '}'+1].
func BraceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func decode(s string) (any, bool) {
	if s == "" {
		return nil, false
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}
