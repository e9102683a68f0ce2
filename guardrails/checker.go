// Package guardrails screens generation input before any provider is
// contacted. Checks are synchronous and deterministic per input: the same
// content always yields the same action, so results are safe to assert on
// in tests and to replay from the audit log.
package guardrails

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/complyforge/complyforge/audit"
)

// Action is the outcome of a guardrail check.
type Action string

const (
	ActionAllowed   Action = "allowed"
	ActionSanitized Action = "sanitized"
	ActionBlocked   Action = "blocked"
)

// Result is produced once per check. It is immutable and not persisted
// beyond the audit record written for non-allowed outcomes.
type Result struct {
	Allowed          bool     `json:"allowed"`
	Action           Action   `json:"action"`
	Severity         int      `json:"severity"`
	SanitizedContent string   `json:"sanitizedContent,omitempty"`
	Reasons          []string `json:"reasons,omitempty"`
}

// Metadata identifies the caller for audit purposes.
type Metadata struct {
	CallerID  string
	RequestID string
	Provider  string
	OriginIP  string
}

// Config tunes the checker thresholds. Zero values fall back to defaults.
type Config struct {
	MaxContentBytes int // payloads above this are blocked
	BlockSeverity   int // severity at or above this blocks the call
}

const (
	defaultMaxContentBytes = 65536
	defaultBlockSeverity   = 7
)

// pattern is one detection rule. Severity accumulates across matches so
// several minor findings can add up to a block.
type pattern struct {
	marker   string
	severity int
	reason   string
}

// injectionPatterns are prompt-injection markers. Matching is
// case-insensitive against the full content including the prior turn.
var injectionPatterns = []pattern{
	{"ignore previous instructions", 8, "instruction override attempt"},
	{"ignore all previous instructions", 8, "instruction override attempt"},
	{"disregard your instructions", 8, "instruction override attempt"},
	{"you are now", 4, "role reassignment attempt"},
	{"system prompt", 4, "system prompt probing"},
	{"reveal your instructions", 7, "system prompt probing"},
	{"jailbreak", 6, "jailbreak marker"},
	{"do anything now", 7, "jailbreak marker"},
	{"[[system]]", 7, "fake system delimiter"},
	{"<|im_start|>", 8, "chat template injection"},
}

// disallowedPatterns are content categories the engine refuses to build
// compliance documents around.
var disallowedPatterns = []pattern{
	{"how to exploit", 8, "exploitation content"},
	{"bypass security controls", 7, "control evasion content"},
	{"falsify audit", 9, "audit falsification"},
	{"fake compliance evidence", 9, "evidence fabrication"},
	{"forge certificate", 9, "certificate forgery"},
}

// Checker runs the deterministic pre-call screening. Thresholds are
// hot-reloadable via UpdateConfig; detection rules are compiled in.
type Checker struct {
	mu     sync.RWMutex
	config Config
	sink   audit.Sink
	logger *zap.SugaredLogger
}

// NewChecker creates a checker. sink must not be nil: every non-allowed
// result is recorded there.
func NewChecker(config Config, sink audit.Sink, logger *zap.SugaredLogger) *Checker {
	if config.MaxContentBytes <= 0 {
		config.MaxContentBytes = defaultMaxContentBytes
	}
	if config.BlockSeverity <= 0 {
		config.BlockSeverity = defaultBlockSeverity
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Checker{config: config, sink: sink, logger: logger}
}

// UpdateConfig swaps the thresholds, used on config hot-reload. Zero
// values keep the defaults.
func (c *Checker) UpdateConfig(config Config) {
	if config.MaxContentBytes <= 0 {
		config.MaxContentBytes = defaultMaxContentBytes
	}
	if config.BlockSeverity <= 0 {
		config.BlockSeverity = defaultBlockSeverity
	}
	c.mu.Lock()
	c.config = config
	c.mu.Unlock()
}

// Check screens content plus the optional prior conversational turn.
// Blocked results must never reach a provider; the caller owns that
// enforcement. Every non-allowed result is recorded to the audit sink
// before returning.
func (c *Checker) Check(ctx context.Context, content, priorTurn string, meta Metadata) Result {
	c.mu.RLock()
	cfg := c.config
	c.mu.RUnlock()

	result := c.evaluate(content, priorTurn, cfg)

	if result.Action != ActionAllowed {
		c.record(ctx, result, meta)
	}
	return result
}

func (c *Checker) evaluate(content, priorTurn string, cfg Config) Result {
	if len(content) > cfg.MaxContentBytes {
		return Result{
			Allowed:  false,
			Action:   ActionBlocked,
			Severity: 10,
			Reasons:  []string{"payload exceeds size limit"},
		}
	}

	haystack := strings.ToLower(content)
	if priorTurn != "" {
		haystack += "\n" + strings.ToLower(priorTurn)
	}

	severity := 0
	var reasons []string
	for _, p := range injectionPatterns {
		if strings.Contains(haystack, p.marker) {
			severity += p.severity
			reasons = append(reasons, p.reason)
		}
	}
	for _, p := range disallowedPatterns {
		if strings.Contains(haystack, p.marker) {
			severity += p.severity
			reasons = append(reasons, p.reason)
		}
	}

	if severity >= cfg.BlockSeverity {
		return Result{
			Allowed:  false,
			Action:   ActionBlocked,
			Severity: severity,
			Reasons:  dedupe(reasons),
		}
	}

	sanitized, changed := sanitize(content)
	if changed {
		reasons = append(reasons, "invisible characters removed")
		return Result{
			Allowed:          true,
			Action:           ActionSanitized,
			Severity:         max(severity, 1),
			SanitizedContent: sanitized,
			Reasons:          dedupe(reasons),
		}
	}

	// Findings below the block threshold with nothing to clean pass
	// through unchanged.
	return Result{Allowed: true, Action: ActionAllowed, Severity: severity, Reasons: dedupe(reasons)}
}

// sanitize strips zero-width and non-printing control characters that are
// commonly used to smuggle hidden instructions. Tabs and newlines stay.
func sanitize(content string) (string, bool) {
	var b strings.Builder
	changed := false
	for _, r := range content {
		switch {
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			changed = true
		case unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t':
			changed = true
		default:
			b.WriteRune(r)
		}
	}
	if !changed {
		return content, false
	}
	return b.String(), true
}

func (c *Checker) record(ctx context.Context, result Result, meta Metadata) {
	event := audit.Event{
		Action:     audit.ActionGuardrailCheck,
		EntityType: "generation_request",
		EntityID:   meta.RequestID,
		UserID:     meta.CallerID,
		Metadata: map[string]interface{}{
			"blocked":  result.Action == ActionBlocked,
			"action":   string(result.Action),
			"severity": result.Severity,
			"provider": meta.Provider,
			"reasons":  result.Reasons,
		},
	}
	if meta.OriginIP != "" {
		event.Metadata["origin_ip"] = meta.OriginIP
	}

	if err := c.sink.Record(ctx, event); err != nil {
		// Auditing must not turn a screening decision into a request
		// failure, but a silent gap in the log is worth shouting about.
		c.logger.Errorw("Failed to record guardrail audit event",
			"request_id", meta.RequestID, "action", result.Action, "error", err)
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
