// Package quality scores generated documents after they are persisted.
// Scoring is advisory: a scoring failure is logged and the document keeps
// a null quality score, it never fails the generation job.
package quality

import (
	"strings"

	"go.uber.org/zap"

	"github.com/complyforge/complyforge/errors"
)

// Scorer computes heuristic quality scores for generated documents.
type Scorer struct {
	logger *zap.SugaredLogger
}

// NewScorer creates a scorer.
func NewScorer(logger *zap.SugaredLogger) *Scorer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scorer{logger: logger}
}

// Score rates content from 0 to 100 using deterministic structural
// heuristics: length adequacy, section structure, title relevance and
// framework terminology coverage. It makes no network calls.
func (s *Scorer) Score(content, title, framework, documentType string) (float64, error) {
	if strings.TrimSpace(content) == "" {
		return 0, errors.New("cannot score empty content")
	}

	score := 0.0

	// Length adequacy, up to 30 points. Compliance documents under a few
	// hundred words are almost always stubs.
	words := len(strings.Fields(content))
	switch {
	case words >= 800:
		score += 30
	case words >= 400:
		score += 22
	case words >= 150:
		score += 12
	default:
		score += 4
	}

	// Section structure, up to 30 points.
	headings := strings.Count(content, "\n#") + strings.Count(content, "\n##")
	if strings.HasPrefix(content, "#") {
		headings++
	}
	switch {
	case headings >= 5:
		score += 30
	case headings >= 3:
		score += 20
	case headings >= 1:
		score += 10
	}

	lower := strings.ToLower(content)

	// Title relevance, up to 20 points: the document should actually talk
	// about what its title claims.
	titleWords := significantWords(title)
	if len(titleWords) > 0 {
		matched := 0
		for _, w := range titleWords {
			if strings.Contains(lower, w) {
				matched++
			}
		}
		score += 20 * float64(matched) / float64(len(titleWords))
	}

	// Framework terminology, up to 20 points.
	terms := frameworkTerms[strings.ToUpper(framework)]
	if len(terms) == 0 {
		terms = []string{strings.ToLower(framework), "compliance", "control"}
	}
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	score += 20 * float64(matched) / float64(len(terms))

	if score > 100 {
		score = 100
	}

	s.logger.Debugw("Scored document",
		"framework", framework,
		"document_type", documentType,
		"words", words,
		"score", score,
	)
	return score, nil
}

// CoverageResult reports which required sections a document covers.
type CoverageResult struct {
	Covered  []string `json:"covered"`
	Missing  []string `json:"missing"`
	Complete bool     `json:"complete"`
}

// CrossValidate checks that every required section name appears in the
// content. It is a deterministic consistency check run after persistence
// when the caller opted in; the result is advisory.
func (s *Scorer) CrossValidate(content string, requiredSections []string) CoverageResult {
	lower := strings.ToLower(content)
	result := CoverageResult{Complete: true}
	for _, section := range requiredSections {
		if strings.Contains(lower, strings.ToLower(section)) {
			result.Covered = append(result.Covered, section)
		} else {
			result.Missing = append(result.Missing, section)
			result.Complete = false
		}
	}
	return result
}

// frameworkTerms are terminology markers per supported framework.
var frameworkTerms = map[string][]string{
	"SOC2": {"trust services", "security", "availability", "confidentiality", "monitoring"},
	"ISO27001": {"isms", "risk assessment", "annex", "information security", "management"},
	"HIPAA": {"phi", "privacy", "safeguard", "covered entity", "breach"},
	"GDPR": {"data subject", "processing", "controller", "consent", "erasure"},
}

func significantWords(title string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(title)) {
		w = strings.Trim(w, ".,:;()")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}
