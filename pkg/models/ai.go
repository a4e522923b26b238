// Package models contains shared data models used across the lookscore codebase.
package models

import (
	"context"
)

// ModelGateway is the single round trip to the external multimodal model.
// Services depend on this interface, never on a concrete gateway.
type ModelGateway interface {
	// Call sends the request once and returns the best-effort parsed JSON
	// value of the model's completion. When forceStrictSchema is set the
	// prompt carries an explicit description of the expected JSON shape.
	Call(ctx context.Context, req AnalysisRequest, forceStrictSchema bool) (any, error)
	// Name returns the gateway identifier (e.g., "multimodal", "mock").
	Name() string
}

// AnalysisRequest is the input to an analysis job.
type AnalysisRequest struct {
	Images   []string `json:"images"` // base64 payloads, no data URI prefix
	Category string   `json:"category"`
	Language string   `json:"language"`
	Plan     string   `json:"plan"`
}

// CategoryAll is the sentinel category requesting the all-categories analysis.
const CategoryAll = "all"

// Categories is the fixed per-category vocabulary, in presentation order.
var Categories = []string{"sexy", "elegant", "casual", "naive", "trendy", "anime", "sixties"}

// IsCategory reports whether c is one of the seven fixed categories.
func IsCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

const (
	LanguageEnglish = "en"
	LanguageTurkish = "tr"
)

// IsSupportedLanguage reports whether lang is an accepted two-letter code.
func IsSupportedLanguage(lang string) bool {
	return lang == LanguageEnglish || lang == LanguageTurkish
}

const (
	PlanFree     = "free"
	PlanBasic    = "basic"
	PlanPremium  = "premium"
	PlanUltimate = "ultimate"
)

// Variant selects which result schema a job is validated against.
type Variant string

const (
	VariantSingle Variant = "single"
	VariantAll    Variant = "all"
)

// VariantFor maps a request category to its result schema.
func VariantFor(category string) Variant {
	if category == CategoryAll {
		return VariantAll
	}
	return VariantSingle
}
