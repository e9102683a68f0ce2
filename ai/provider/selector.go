package provider

// DocumentCategory classifies a document template for provider selection.
type DocumentCategory string

const (
	// CategoryPolicy and CategoryNarrative cover policy-style long-form
	// prose (information security policies, executive narratives).
	CategoryPolicy    DocumentCategory = "policy"
	CategoryNarrative DocumentCategory = "narrative"
	// CategoryProcedure and CategoryTechnical cover step-by-step and
	// technically precise content (runbooks, control implementations).
	CategoryProcedure DocumentCategory = "procedure"
	CategoryTechnical DocumentCategory = "technical"
	// CategoryAssessment covers documents assembled from large bodies of
	// evidence and therefore needs the biggest context window.
	CategoryAssessment DocumentCategory = "assessment"
)

// categoryRouting is the fixed dispatch table for "auto" selection.
// Category and provider are both closed enums; no runtime string
// inspection is involved.
var categoryRouting = map[DocumentCategory]ID{
	CategoryPolicy:     Anthropic,
	CategoryNarrative:  Anthropic,
	CategoryProcedure:  OpenAI,
	CategoryTechnical:  OpenAI,
	CategoryAssessment: Gemini,
}

// SelectModel picks the provider for one document unit. An explicitly
// requested provider is used verbatim (still subject to breaker and
// fallback at call time). Auto selection is a pure table lookup; unknown
// categories route to the long-form default.
func SelectModel(category DocumentCategory, framework string, requested ID) ID {
	if requested != Auto && requested != "" {
		return requested
	}
	if id, ok := categoryRouting[category]; ok {
		return id
	}
	return Anthropic
}
