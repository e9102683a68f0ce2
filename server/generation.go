package server

import (
	"encoding/json"
	"net/http"

	"github.com/complyforge/complyforge/errors"
	"github.com/complyforge/complyforge/generation"
)

const (
	// Default and max limits for job listing queries
	defaultJobLimit = 50
	maxJobLimit     = 200
)

// StartGenerationRequest is the POST /api/generation body.
type StartGenerationRequest struct {
	CompanyProfileID string             `json:"companyProfileId"`
	Frameworks       []string           `json:"frameworks"`
	Options          generation.Options `json:"options"`
}

// HandleGeneration handles requests to /api/generation
// POST: Start a generation job, acknowledged before any provider call
func (s *Server) HandleGeneration(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req StartGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.CompanyProfileID == "" {
		writeError(w, http.StatusBadRequest, "Missing companyProfileId")
		return
	}
	if len(req.Frameworks) == 0 {
		writeError(w, http.StatusBadRequest, "At least one framework is required")
		return
	}

	handle, err := s.engine.StartGeneration(r.Context(), req.CompanyProfileID, req.Frameworks, req.Options)
	if err != nil {
		s.logger.Warnw("Failed to start generation job",
			"company_profile_id", req.CompanyProfileID,
			"frameworks", req.Frameworks,
			"error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.logger.Infow("Generation job accepted",
		"job_id", handle.JobID,
		"estimated_documents", handle.EstimatedDocuments,
		"remote", r.RemoteAddr)

	writeJSON(w, http.StatusAccepted, handle)
}

// HandleJobs handles requests to /api/generation/jobs
// GET: List generation jobs, optionally filtered by ?status=
func (s *Server) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	limit := parseIntQueryParam(r, "limit", defaultJobLimit, 1, maxJobLimit)

	var status *generation.JobStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		if !generation.IsValidStatus(raw) {
			writeError(w, http.StatusBadRequest, "Invalid status filter")
			return
		}
		st := generation.JobStatus(raw)
		status = &st
	}

	jobs, err := s.engine.ListJobs(status, limit)
	if err != nil {
		s.logger.Errorw("Failed to list jobs", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleJob handles requests to /api/generation/jobs/{id}
// GET: Job status poll
// Sub-resources: /api/generation/jobs/{id}/documents
func (s *Server) HandleJob(w http.ResponseWriter, r *http.Request) {
	pathParts := extractPathParts(r.URL.Path, "/api/generation/jobs/")
	if len(pathParts) == 0 || pathParts[0] == "" {
		writeError(w, http.StatusBadRequest, "Missing job ID")
		return
	}
	jobID := pathParts[0]

	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	if len(pathParts) > 1 && pathParts[1] == "documents" {
		s.handleJobDocuments(w, r, jobID)
		return
	}

	s.handleJobStatus(w, r, jobID)
}

// handleJobStatus returns the poll view of one job
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := s.engine.JobStatus(jobID)
	if err != nil {
		if errors.Is(err, generation.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		s.logger.Errorw("Failed to get job", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             job.Status,
		"progress":           job.Progress,
		"documentsGenerated": job.DocumentsGenerated,
		"totalDocuments":     job.TotalDocuments,
		"errorMessage":       job.Error,
	})
}

// handleJobDocuments returns the documents persisted for one job,
// including blocked and failed units with their sentinel markers
func (s *Server) handleJobDocuments(w http.ResponseWriter, r *http.Request, jobID string) {
	docs, err := s.engine.Documents(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, generation.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		s.logger.Errorw("Failed to list job documents", "job_id", jobID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}
