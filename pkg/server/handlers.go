package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/themis/pkg/audit"
	"mercator-hq/themis/pkg/feedback"
	"mercator-hq/themis/pkg/governance"
	"mercator-hq/themis/pkg/guardrails"
	"mercator-hq/themis/pkg/pipeline"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// policyStatus maps guardrails engine errors to HTTP status codes.
func policyStatus(err error) int {
	switch {
	case errors.Is(err, guardrails.ErrPolicyNotFound):
		return http.StatusNotFound
	case errors.Is(err, guardrails.ErrDuplicatePolicy):
		return http.StatusConflict
	case errors.Is(err, guardrails.ErrInvalidThreshold), errors.Is(err, guardrails.ErrInvalidAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleCompletion(w http.ResponseWriter, r *http.Request) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result, err := s.pipeline.Process(r.Context(), &req)
	if err != nil {
		s.logger.Error("completion failed", "error", err, "request_id", requestIDFrom(r.Context()))
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"policies": s.pipeline.Guardrails().Policies(),
	})
}

func (s *Server) handleAddPolicy(w http.ResponseWriter, r *http.Request) {
	var policy governance.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.pipeline.Guardrails().AddPolicy(&policy); err != nil {
		writeError(w, policyStatus(err), err.Error())
		return
	}
	s.persistPolicies(r)

	writeJSON(w, http.StatusCreated, &policy)
}

func (s *Server) handleRemovePolicy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.pipeline.Guardrails().RemovePolicy(id); err != nil {
		writeError(w, policyStatus(err), err.Error())
		return
	}
	s.persistPolicies(r)

	writeJSON(w, http.StatusOK, map[string]string{"removed": id})
}

func (s *Server) handleTogglePolicy(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	enabled, err := s.pipeline.Guardrails().TogglePolicy(id)
	if err != nil {
		writeError(w, policyStatus(err), err.Error())
		return
	}
	s.persistPolicies(r)

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "enabled": enabled})
}

func (s *Server) handleGetThresholds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Guardrails().Thresholds())
}

func (s *Server) handleSetThresholds(w http.ResponseWriter, r *http.Request) {
	var ts governance.ThresholdSet
	if err := json.NewDecoder(r.Body).Decode(&ts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.pipeline.Guardrails().SetThresholds(ts); err != nil {
		writeError(w, policyStatus(err), err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.SaveThresholds(r.Context(), ts); err != nil {
			s.logger.Error("failed to persist thresholds", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, ts)
}

type feedbackRequest struct {
	TraceID string `json:"trace_id"`
	Rating  int    `json:"rating"`
	Type    string `json:"type"`
	Comment string `json:"comment,omitempty"`
}

func (s *Server) handleRecordFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.pipeline.RecordFeedback(req.TraceID, req.Rating, governance.FeedbackType(req.Type), req.Comment)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleDriftCheck(w http.ResponseWriter, r *http.Request) {
	report := s.pipeline.CheckDrift()

	if report.Status == feedback.DriftDetected {
		s.logger.Warn("drift detected via operator request",
			"drifted_metrics", driftedCount(report),
		)
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRetune(w http.ResponseWriter, r *http.Request) {
	next, err := s.pipeline.Retune()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.store != nil {
		if err := s.store.SaveThresholds(r.Context(), next); err != nil {
			s.logger.Error("failed to persist retuned thresholds", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"thresholds":  next,
		"adjustments": s.pipeline.Feedback().Adjustments(),
	})
}

func (s *Server) handleFeedbackSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Feedback().Summarize())
}

func (s *Server) handleRiskTrends(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Risk().Trends())
}

func (s *Server) handleGuardrailsStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Guardrails().Stats())
}

func (s *Server) handleCostSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Costs().Summarize())
}

func (s *Server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	query, err := auditQueryFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.pipeline.Audit().Query(r.Context(), query)
	if err != nil {
		s.logger.Error("audit query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "audit query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

func auditQueryFrom(r *http.Request) (*audit.Query, error) {
	q := r.URL.Query()
	query := &audit.Query{
		TraceID: q.Get("trace_id"),
		UserID:  q.Get("user_id"),
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return nil, errors.New("invalid limit")
		}
		query.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return nil, errors.New("invalid offset")
		}
		query.Offset = offset
	}
	if v := q.Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New("invalid start_time, expected RFC3339")
		}
		query.StartTime = &t
	}
	if v := q.Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, errors.New("invalid end_time, expected RFC3339")
		}
		query.EndTime = &t
	}

	return query, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health, err := s.pipeline.Health(r.Context())
	if err != nil {
		s.logger.Error("health aggregation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "health aggregation failed")
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func driftedCount(report *feedback.DriftReport) int {
	n := 0
	for _, m := range report.Metrics {
		if m.Drift {
			n++
		}
	}
	return n
}

// persistPolicies snapshots the current policy set into the store, if one
// is configured. Persistence failures are logged and never affect the
// in-memory mutation that already happened.
func (s *Server) persistPolicies(r *http.Request) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveAll(r.Context(), s.pipeline.Guardrails().Policies()); err != nil {
		s.logger.Error("failed to persist policy set", "error", err)
	}
}
