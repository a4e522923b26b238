package multimodal

import (
	"fmt"
	"strings"

	"github.com/kiranshivaraju/lookscore/pkg/models"
)

// Message is one chat message. Content is a string for the system message and
// a list of parts for the user message.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type TextPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ImagePart struct {
	Type  string `json:"type"`
	Image string `json:"image"`
}

type chatRequest struct {
	Messages []Message `json:"messages"`
}

// ImageDataURI wraps a base64 payload as an inline JPEG data URI.
func ImageDataURI(payload string) string {
	return "data:image/jpeg;base64," + payload
}

// VerbosityFor maps a service plan to the requested answer length.
func VerbosityFor(plan string) string {
	switch plan {
	case models.PlanUltimate:
		return "7+ sentences"
	case models.PlanPremium:
		return "5-6 sentences"
	case models.PlanBasic:
		return "1-2 sentences"
	default:
		return "1-2 sentences, brief"
	}
}

// LanguageName returns the English name of a supported language code.
func LanguageName(code string) string {
	switch code {
	case models.LanguageEnglish:
		return "English"
	case models.LanguageTurkish:
		return "Turkish"
	default:
		return code
	}
}

const (
	singleSchemaInstruction = `The JSON object MUST have exactly this shape: {"score": number greater than 0 and at most 12, "style": string, "colorCoordination": string, "accessories": string, "harmony": string, "suggestions": array of strings}. Every text field must contain at least 10 characters.`

	allSchemaInstructionFmt = `The JSON object MUST have exactly this shape: {"overallScore": number greater than 0 and at most 12, "overallAnalysis": string of at least 20 characters, "results": array of exactly 7 objects {"category": one of %s, "score": number greater than 0 and at most 12, "analysis": string of at least 10 characters}}, one entry per category.`
)

// SchemaInstruction is the extra line appended to the system prompt on a
// strict-schema attempt.
func SchemaInstruction(variant models.Variant) string {
	if variant == models.VariantAll {
		return fmt.Sprintf(allSchemaInstructionFmt, strings.Join(models.Categories, "|"))
	}
	return singleSchemaInstruction
}

// BuildMessages assembles the system and user messages for one model call.
func BuildMessages(req models.AnalysisRequest, forceStrictSchema bool) []Message {
	variant := models.VariantFor(req.Category)

	var sys strings.Builder
	sys.WriteString("You are a professional fashion stylist who scores outfits from photos.\n")
	if variant == models.VariantAll {
		fmt.Fprintf(&sys, "Category: all. Evaluate the outfit separately for each of these styles: %s.\n",
			strings.Join(models.Categories, ", "))
	} else {
		fmt.Fprintf(&sys, "Category: %s. Evaluate how well the outfit fits this style.\n", req.Category)
	}
	fmt.Fprintf(&sys, "Write every text value in %s.\n", LanguageName(req.Language))
	fmt.Fprintf(&sys, "Length of each text section: %s.\n", VerbosityFor(req.Plan))
	sys.WriteString("Scores range from 1 to 12. Reply with a single JSON object and nothing else.")
	if forceStrictSchema {
		sys.WriteString("\n")
		sys.WriteString(SchemaInstruction(variant))
	}

	instruction := fmt.Sprintf("Analyze the outfit in the attached photo for the %q style.", req.Category)
	if variant == models.VariantAll {
		instruction = "Analyze the outfit in the attached photo for every style category."
	}
	if len(req.Images) > 1 {
		instruction = strings.Replace(instruction, "the attached photo", fmt.Sprintf("the %d attached photos", len(req.Images)), 1)
	}

	parts := make([]any, 0, len(req.Images)+1)
	parts = append(parts, TextPart{Type: "text", Text: instruction})
	for _, img := range req.Images {
		parts = append(parts, ImagePart{Type: "image", Image: ImageDataURI(img)})
	}

	return []Message{
		{Role: "system", Content: sys.String()},
		{Role: "user", Content: parts},
	}
}
