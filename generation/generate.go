package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/complyforge/complyforge/ai/provider"
	"github.com/complyforge/complyforge/audit"
	"github.com/complyforge/complyforge/docstore"
	"github.com/complyforge/complyforge/errors"
	"github.com/complyforge/complyforge/guardrails"
	"github.com/complyforge/complyforge/quality"
)

// HandlerGenerateDocuments is the handler name for document generation jobs.
const HandlerGenerateDocuments = "generation.generate-documents"

// Options are the caller-supplied knobs for one generation run.
type Options struct {
	Model                  string `json:"model,omitempty"` // provider id or "auto"
	IncludeQualityAnalysis bool   `json:"includeQualityAnalysis,omitempty"`
	EnableCrossValidation  bool   `json:"enableCrossValidation,omitempty"`
	Context                string `json:"context,omitempty"` // user-supplied context screened by guardrails
	UserID                 string `json:"userId,omitempty"`
}

// GeneratePayload is the job payload persisted with each generation job.
type GeneratePayload struct {
	Options Options `json:"options"`
}

// JobHandle is the immediate acknowledgment returned to the caller before
// any provider is contacted.
type JobHandle struct {
	JobID              string `json:"jobId"`
	EstimatedDocuments int    `json:"estimatedDocuments"`
}

// DocumentStore persists generated documents. Satisfied by
// docstore.SQLStore.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *docstore.Document) error
	UpdateQualityScore(ctx context.Context, documentID string, score float64) error
	ListByJob(ctx context.Context, jobID string) ([]*docstore.Document, error)
}

// GuardrailChecker screens user-supplied context before provider calls.
// Satisfied by guardrails.Checker.
type GuardrailChecker interface {
	Check(ctx context.Context, content, priorTurn string, meta guardrails.Metadata) guardrails.Result
}

// QualityScorer rates persisted documents. Satisfied by quality.Scorer.
type QualityScorer interface {
	Score(content, title, framework, documentType string) (float64, error)
	CrossValidate(content string, requiredSections []string) quality.CoverageResult
}

// Engine is the public face of the generation job manager. StartGeneration
// enqueues and acks; the worker pool drives the rest.
type Engine struct {
	queue  *Queue
	docs   DocumentStore
	logger *zap.SugaredLogger
}

// NewEngine creates the job manager API surface.
func NewEngine(queue *Queue, docs DocumentStore, logger *zap.SugaredLogger) *Engine {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{queue: queue, docs: docs, logger: logger}
}

// StartGeneration validates the request, enqueues a job and returns the
// handle immediately. No provider is contacted before this returns.
func (e *Engine) StartGeneration(ctx context.Context, companyProfileID string, frameworks []string, opts Options) (*JobHandle, error) {
	total, err := EstimateTotalDocuments(frameworks)
	if err != nil {
		return nil, err
	}
	if _, err := provider.ParseID(opts.Model); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(GeneratePayload{Options: opts})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal job payload")
	}

	job, err := NewJob(HandlerGenerateDocuments, companyProfileID, frameworks, total, payload)
	if err != nil {
		return nil, err
	}

	if err := e.queue.Enqueue(job); err != nil {
		return nil, err
	}

	e.logger.Infow("Generation job enqueued",
		"job_id", job.ID,
		"company_profile_id", companyProfileID,
		"frameworks", frameworks,
		"total_documents", total,
	)
	return &JobHandle{JobID: job.ID, EstimatedDocuments: total}, nil
}

// JobStatus returns the current job state for pollers.
func (e *Engine) JobStatus(jobID string) (*Job, error) {
	return e.queue.GetJob(jobID)
}

// ListJobs returns recent jobs, optionally filtered by status.
func (e *Engine) ListJobs(status *JobStatus, limit int) ([]*Job, error) {
	return e.queue.ListJobs(status, limit)
}

// Documents returns the persisted documents for a job in generation order.
func (e *Engine) Documents(ctx context.Context, jobID string) ([]*docstore.Document, error) {
	if _, err := e.queue.GetJob(jobID); err != nil {
		return nil, err
	}
	return e.docs.ListByJob(ctx, jobID)
}

// Queue exposes the underlying queue for subscription wiring.
func (e *Engine) Queue() *Queue {
	return e.queue
}

// GenerateHandler drives one generation job: for every (framework,
// template) pair it screens input, selects a provider, executes the call
// behind the breakers and persists the outcome. Units run strictly in
// template order; a unit failure never crashes the job loop.
type GenerateHandler struct {
	queue      *Queue
	executor   *provider.Executor
	guardrails GuardrailChecker
	docs       DocumentStore
	scorer     QualityScorer
	sink       audit.Sink
	logger     *zap.SugaredLogger
}

// NewGenerateHandler wires the handler. scorer may be nil when quality
// analysis is disabled process-wide.
func NewGenerateHandler(queue *Queue, executor *provider.Executor, checker GuardrailChecker, docs DocumentStore, scorer QualityScorer, sink audit.Sink, logger *zap.SugaredLogger) *GenerateHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GenerateHandler{
		queue:      queue,
		executor:   executor,
		guardrails: checker,
		docs:       docs,
		scorer:     scorer,
		sink:       sink,
		logger:     logger.Named("generate"),
	}
}

// Name implements JobHandler.
func (h *GenerateHandler) Name() string {
	return HandlerGenerateDocuments
}

// Execute implements JobHandler. Returning an error fails the whole job;
// per-unit failures are persisted as failed documents and absorbed unless
// every unit failed.
func (h *GenerateHandler) Execute(ctx context.Context, job *Job) error {
	var payload GeneratePayload
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			return errors.Wrap(err, "failed to unmarshal job payload")
		}
	}

	requested, err := provider.ParseID(payload.Options.Model)
	if err != nil {
		return err
	}

	totalUnits := 0
	failedUnits := 0
	var lastUnitErr error

	for _, framework := range job.Frameworks {
		templates, err := TemplatesForFramework(framework)
		if err != nil {
			return err
		}

		for _, tmpl := range templates {
			if err := ctx.Err(); err != nil {
				return err
			}
			totalUnits++

			unitFailed, unitErr := h.runUnit(ctx, job, framework, tmpl, requested, payload.Options)
			if unitErr != nil {
				// Persistence failure is fatal to the job. Documents
				// already written stay put; there is no rollback.
				return unitErr
			}
			if unitFailed {
				failedUnits++
				lastUnitErr = errors.Wrapf(provider.ErrNoProviderAvailable,
					"unit %s/%s", framework, tmpl.ID)
			}
		}
	}

	if totalUnits > 0 && failedUnits == totalUnits {
		return errors.Wrapf(lastUnitErr, "all %d document units failed", totalUnits)
	}
	if failedUnits > 0 {
		h.logger.Warnw("Job completed with failed units",
			"job_id", job.ID, "failed", failedUnits, "total", totalUnits)
	}
	return nil
}

// runUnit handles one (framework, template) pair. Returns unitFailed=true
// when every provider was exhausted for this unit; a non-nil error means
// the job itself must fail.
func (h *GenerateHandler) runUnit(ctx context.Context, job *Job, framework string, tmpl Template, requested provider.ID, opts Options) (unitFailed bool, err error) {
	selected := provider.SelectModel(tmpl.Category, framework, requested)

	userContext := opts.Context
	check := h.guardrails.Check(ctx, userContext, "", guardrails.Metadata{
		CallerID:  opts.UserID,
		RequestID: job.ID,
		Provider:  string(selected),
	})

	if check.Action == guardrails.ActionBlocked {
		// Blocked before any network call. The unit is persisted with the
		// sentinel provider and counts as a completed-but-failed unit.
		doc := &docstore.Document{
			JobID:            job.ID,
			CompanyProfileID: job.CompanyProfileID,
			Framework:        framework,
			TemplateID:       tmpl.ID,
			Title:            tmpl.Title,
			Category:         string(tmpl.Category),
			ProviderUsed:     docstore.ProviderBlocked,
			Status:           docstore.StatusBlocked,
			Error:            fmt.Sprintf("guardrails blocked input: %s", strings.Join(check.Reasons, "; ")),
		}
		if err := h.docs.CreateDocument(ctx, doc); err != nil {
			return false, errors.Wrap(err, "failed to persist blocked document")
		}
		h.logger.Infow("Unit blocked by guardrails",
			"job_id", job.ID, "template", tmpl.ID, "severity", check.Severity)
		return false, h.advanceProgress(job)
	}
	if check.Action == guardrails.ActionSanitized {
		userContext = check.SanitizedContent
	}

	req := buildRequest(framework, tmpl, job.CompanyProfileID, userContext)
	result, used, execErr := h.executor.Execute(ctx, selected, req)
	if execErr != nil {
		// Every provider failed or was open. Record the explicit failure;
		// the job continues with the next unit.
		doc := &docstore.Document{
			JobID:            job.ID,
			CompanyProfileID: job.CompanyProfileID,
			Framework:        framework,
			TemplateID:       tmpl.ID,
			Title:            tmpl.Title,
			Category:         string(tmpl.Category),
			ProviderUsed:     "",
			Status:           docstore.StatusFailed,
			Error:            execErr.Error(),
		}
		if err := h.docs.CreateDocument(ctx, doc); err != nil {
			return false, errors.Wrap(err, "failed to persist failed document")
		}
		h.logger.Warnw("Unit failed, no provider available",
			"job_id", job.ID, "template", tmpl.ID, "error", execErr)
		return true, nil
	}

	doc := &docstore.Document{
		JobID:            job.ID,
		CompanyProfileID: job.CompanyProfileID,
		Framework:        framework,
		TemplateID:       tmpl.ID,
		Title:            tmpl.Title,
		Category:         string(tmpl.Category),
		Content:          result.Content,
		ProviderUsed:     string(used),
		FinishReason:     result.FinishReason,
		Status:           docstore.StatusGenerated,
	}
	if err := h.docs.CreateDocument(ctx, doc); err != nil {
		return false, errors.Wrap(err, "failed to persist generated document")
	}

	h.recordGenerated(ctx, job, doc, result.Usage.TotalTokens)

	if opts.IncludeQualityAnalysis && h.scorer != nil {
		h.scoreDocument(ctx, doc, framework, tmpl)
	}
	if opts.EnableCrossValidation && h.scorer != nil {
		h.crossValidate(ctx, job, doc, tmpl)
	}

	return false, h.advanceProgress(job)
}

// advanceProgress bumps the unit counter and persists the job row. A
// persistence failure here is fatal: pollers would otherwise see stale
// progress forever.
func (h *GenerateHandler) advanceProgress(job *Job) error {
	job.RecordUnitDone()
	if err := h.queue.UpdateJob(job); err != nil {
		return errors.Wrap(err, "failed to persist job progress")
	}
	return nil
}

func (h *GenerateHandler) recordGenerated(ctx context.Context, job *Job, doc *docstore.Document, totalTokens int) {
	event := audit.Event{
		Action:     audit.ActionGenerateDoc,
		EntityType: "document",
		EntityID:   doc.ID,
		UserID:     "system",
		Metadata: map[string]interface{}{
			"job_id":       job.ID,
			"framework":    doc.Framework,
			"template_id":  doc.TemplateID,
			"provider":     doc.ProviderUsed,
			"total_tokens": totalTokens,
		},
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Warnw("Failed to record generation audit event",
			"job_id", job.ID, "document_id", doc.ID, "error", err)
	}
}

// scoreDocument rates a persisted document. Failures are logged and the
// score stays null.
func (h *GenerateHandler) scoreDocument(ctx context.Context, doc *docstore.Document, framework string, tmpl Template) {
	score, err := h.scorer.Score(doc.Content, doc.Title, framework, string(tmpl.Category))
	if err != nil {
		h.logger.Warnw("Quality scoring failed",
			"document_id", doc.ID, "error", err)
		return
	}
	if err := h.docs.UpdateQualityScore(ctx, doc.ID, score); err != nil {
		h.logger.Warnw("Failed to store quality score",
			"document_id", doc.ID, "score", score, "error", err)
		return
	}
	doc.QualityScore = &score
}

// crossValidate checks required-section coverage after persistence. The
// outcome is recorded to the audit sink and never fails the unit.
func (h *GenerateHandler) crossValidate(ctx context.Context, job *Job, doc *docstore.Document, tmpl Template) {
	report := h.scorer.CrossValidate(doc.Content, tmpl.RequiredSections)

	event := audit.Event{
		Action:     audit.ActionCrossValidation,
		EntityType: "document",
		EntityID:   doc.ID,
		UserID:     "system",
		Metadata: map[string]interface{}{
			"job_id":           job.ID,
			"template_id":      doc.TemplateID,
			"complete":         report.Complete,
			"missing_sections": report.Missing,
		},
	}
	if err := h.sink.Record(ctx, event); err != nil {
		h.logger.Warnw("Failed to record cross-validation audit event",
			"document_id", doc.ID, "error", err)
	}
	if !report.Complete {
		h.logger.Warnw("Document missing required sections",
			"document_id", doc.ID, "missing", report.Missing)
	}
}

// buildRequest assembles the provider-agnostic prompt for one unit.
func buildRequest(framework string, tmpl Template, companyProfileID, userContext string) provider.Request {
	var b strings.Builder
	fmt.Fprintf(&b, "Write the %q compliance document for the %s framework.\n\n", tmpl.Title, framework)
	fmt.Fprintf(&b, "Company profile reference: %s\n\n", companyProfileID)
	b.WriteString("The document must contain the following sections, each as a markdown heading:\n")
	for _, section := range tmpl.RequiredSections {
		fmt.Fprintf(&b, "- %s\n", section)
	}
	if userContext != "" {
		fmt.Fprintf(&b, "\nAdditional context from the requester:\n%s\n", userContext)
	}

	return provider.Request{
		SystemPrompt: "You are a compliance documentation specialist. Produce complete, " +
			"audit-ready documents in markdown. Be specific and avoid placeholder text.",
		UserPrompt: b.String(),
	}
}

var _ JobHandler = (*GenerateHandler)(nil)
