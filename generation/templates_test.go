package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyforge/complyforge/ai/provider"
)

func TestTemplatesForFramework(t *testing.T) {
	tests := []struct {
		framework string
		count     int
	}{
		{"SOC2", 3},
		{"ISO27001", 4},
		{"HIPAA", 3},
		{"GDPR", 3},
	}

	for _, tt := range tests {
		templates, err := TemplatesForFramework(tt.framework)
		require.NoError(t, err, tt.framework)
		assert.Len(t, templates, tt.count, tt.framework)
		for _, tmpl := range templates {
			assert.NotEmpty(t, tmpl.ID)
			assert.NotEmpty(t, tmpl.Title)
			assert.NotEmpty(t, tmpl.Category)
			assert.NotEmpty(t, tmpl.RequiredSections)
		}
	}
}

func TestTemplatesForFrameworkCaseInsensitive(t *testing.T) {
	upper, err := TemplatesForFramework("SOC2")
	require.NoError(t, err)
	lower, err := TemplatesForFramework("soc2")
	require.NoError(t, err)

	assert.Equal(t, upper, lower)
}

func TestTemplatesForFrameworkUnknown(t *testing.T) {
	_, err := TemplatesForFramework("PCI-DSS")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown framework")
}

func TestSOC2TemplateCategories(t *testing.T) {
	templates, err := TemplatesForFramework("SOC2")
	require.NoError(t, err)

	byID := map[string]Template{}
	for _, tmpl := range templates {
		byID[tmpl.ID] = tmpl
	}

	assert.Equal(t, provider.CategoryPolicy, byID["soc2-infosec-policy"].Category)
	assert.Equal(t, provider.CategoryProcedure, byID["soc2-change-management"].Category)
	assert.Equal(t, provider.CategoryNarrative, byID["soc2-system-description"].Category)
}

func TestEstimateTotalDocuments(t *testing.T) {
	total, err := EstimateTotalDocuments([]string{"SOC2"})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	total, err = EstimateTotalDocuments([]string{"SOC2", "ISO27001", "GDPR"})
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	_, err = EstimateTotalDocuments([]string{"SOC2", "PCI-DSS"})
	assert.Error(t, err)
}

func TestSupportedFrameworks(t *testing.T) {
	frameworks := SupportedFrameworks()

	assert.Len(t, frameworks, 4)
	assert.ElementsMatch(t, []string{"SOC2", "ISO27001", "HIPAA", "GDPR"}, frameworks)
}
