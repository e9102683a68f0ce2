package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func policyFixture() string {
	var b strings.Builder
	b.WriteString("# Information Security Policy\n\n")
	b.WriteString("## Purpose\n\nThis policy defines the security program.\n\n")
	b.WriteString("## Scope\n\nAll systems in the trust services boundary.\n\n")
	b.WriteString("## Monitoring\n\nContinuous monitoring covers availability and confidentiality.\n\n")
	b.WriteString("## Roles\n\nThe security team owns this policy.\n\n")
	b.WriteString("## Review\n\nReviewed annually.\n\n")
	filler := strings.Repeat("The control environment is documented and assessed on a recurring basis. ", 80)
	b.WriteString(filler)
	return b.String()
}

func TestScoreEmptyContentFails(t *testing.T) {
	scorer := NewScorer(nil)

	_, err := scorer.Score("", "Information Security Policy", "SOC2", "policy")
	assert.Error(t, err)

	_, err = scorer.Score("   \n\t", "Information Security Policy", "SOC2", "policy")
	assert.Error(t, err)
}

func TestScoreWellStructuredDocument(t *testing.T) {
	scorer := NewScorer(nil)

	score, err := scorer.Score(policyFixture(), "Information Security Policy", "SOC2", "policy")

	require.NoError(t, err)
	// Long, well-sectioned, on-topic, on-framework content scores high.
	assert.GreaterOrEqual(t, score, 80.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestScoreStubScoresLow(t *testing.T) {
	scorer := NewScorer(nil)

	score, err := scorer.Score("This is a policy.", "Information Security Policy", "SOC2", "policy")

	require.NoError(t, err)
	assert.Less(t, score, 40.0)
}

func TestScoreIsDeterministic(t *testing.T) {
	scorer := NewScorer(nil)
	content := policyFixture()

	first, err := scorer.Score(content, "Information Security Policy", "SOC2", "policy")
	require.NoError(t, err)
	second, err := scorer.Score(content, "Information Security Policy", "SOC2", "policy")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScoreUnknownFrameworkUsesGenericTerms(t *testing.T) {
	scorer := NewScorer(nil)
	content := "# Policy\n\nOur compliance control posture for the NIST program.\n" +
		strings.Repeat("Controls are reviewed. ", 100)

	score, err := scorer.Score(content, "Policy", "NIST", "policy")

	require.NoError(t, err)
	assert.Greater(t, score, 0.0)
}

func TestCrossValidateComplete(t *testing.T) {
	scorer := NewScorer(nil)
	content := "# ISMS Scope\n\n## Boundaries\n...\n\n## Exclusions\n...\n\n## Interfaces\n..."

	result := scorer.CrossValidate(content, []string{"Boundaries", "Exclusions", "Interfaces"})

	assert.True(t, result.Complete)
	assert.Equal(t, []string{"Boundaries", "Exclusions", "Interfaces"}, result.Covered)
	assert.Empty(t, result.Missing)
}

func TestCrossValidateReportsMissingSections(t *testing.T) {
	scorer := NewScorer(nil)
	content := "# ISMS Scope\n\n## Boundaries\n..."

	result := scorer.CrossValidate(content, []string{"Boundaries", "Exclusions"})

	assert.False(t, result.Complete)
	assert.Equal(t, []string{"Boundaries"}, result.Covered)
	assert.Equal(t, []string{"Exclusions"}, result.Missing)
}

func TestCrossValidateCaseInsensitive(t *testing.T) {
	scorer := NewScorer(nil)

	result := scorer.CrossValidate("## breach notification timeline", []string{"Breach Notification"})

	assert.True(t, result.Complete)
}

func TestCrossValidateNoRequiredSections(t *testing.T) {
	scorer := NewScorer(nil)

	result := scorer.CrossValidate("anything", nil)

	assert.True(t, result.Complete)
	assert.Empty(t, result.Missing)
}
