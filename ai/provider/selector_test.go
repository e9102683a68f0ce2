package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectModelRoutesByCategory(t *testing.T) {
	tests := []struct {
		category DocumentCategory
		want     ID
	}{
		{CategoryPolicy, Anthropic},
		{CategoryNarrative, Anthropic},
		{CategoryProcedure, OpenAI},
		{CategoryTechnical, OpenAI},
		{CategoryAssessment, Gemini},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, SelectModel(tt.category, "SOC2", Auto))
		})
	}
}

func TestSelectModelExplicitProviderWins(t *testing.T) {
	// An explicit request overrides category routing verbatim.
	assert.Equal(t, Gemini, SelectModel(CategoryPolicy, "SOC2", Gemini))
	assert.Equal(t, OpenAI, SelectModel(CategoryNarrative, "HIPAA", OpenAI))
	assert.Equal(t, Anthropic, SelectModel(CategoryAssessment, "GDPR", Anthropic))
}

func TestSelectModelUnknownCategoryDefaultsToLongForm(t *testing.T) {
	assert.Equal(t, Anthropic, SelectModel(DocumentCategory("memo"), "SOC2", Auto))
	assert.Equal(t, Anthropic, SelectModel("", "SOC2", ""))
}

func TestSelectModelIgnoresFramework(t *testing.T) {
	// Routing depends on category alone; the framework never changes it.
	for _, fw := range []string{"SOC2", "ISO27001", "HIPAA", "GDPR", ""} {
		assert.Equal(t, Gemini, SelectModel(CategoryAssessment, fw, Auto))
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    ID
		wantErr bool
	}{
		{"anthropic", Anthropic, false},
		{"claude", Anthropic, false},
		{"openai", OpenAI, false},
		{"gpt", OpenAI, false},
		{"gemini", Gemini, false},
		{"google", Gemini, false},
		{"auto", Auto, false},
		{"", Auto, false},
		{"llama", "", true},
	}

	for _, tt := range tests {
		got, err := ParseID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		assert.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
