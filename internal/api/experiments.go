package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/averline/splitkit/internal/domain"
	"github.com/averline/splitkit/internal/identity"
	"github.com/go-chi/chi/v5"
)

// assignRequest is the payload for POST /api/experiments/{id}/assign.
type assignRequest struct {
	Variants []string  `json:"variants"`
	Weights  []float64 `json:"weights,omitempty"`
}

// assignResponse reports the resolved variant for the calling subject.
type assignResponse struct {
	ExperimentID string `json:"experiment_id"`
	Variant      string `json:"variant"`
}

// AssignVariant handles POST /api/experiments/{experimentID}/assign.
func (h *Handler) AssignVariant(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "experimentID")
	subjectID := identity.SubjectIDFromContext(r.Context())

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	variant, err := h.exp.Assign(r.Context(), subjectID, experimentID, req.Variants, req.Weights)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		Error(w, http.StatusInternalServerError, "failed to assign variant")
		return
	}

	JSON(w, http.StatusOK, assignResponse{ExperimentID: experimentID, Variant: variant})
}

// TrackExposure handles POST /api/experiments/{experimentID}/expose.
// Exposure without a prior assignment is accepted and dropped server-side,
// so clients never see the caller error.
func (h *Handler) TrackExposure(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "experimentID")
	subjectID := identity.SubjectIDFromContext(r.Context())

	if err := h.exp.TrackExposed(r.Context(), subjectID, experimentID); err != nil {
		Error(w, http.StatusInternalServerError, "failed to track exposure")
		return
	}
	JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// GetAssignment handles GET /api/experiments/{experimentID}/assignment.
func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "experimentID")
	subjectID := identity.SubjectIDFromContext(r.Context())

	a, err := h.exp.Assignment(r.Context(), subjectID, experimentID)
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to load assignment")
		return
	}
	if a == nil {
		Error(w, http.StatusNotFound, "no assignment for experiment: "+experimentID)
		return
	}
	JSON(w, http.StatusOK, a)
}

// guardrailRequest is the payload for POST /api/experiments/{id}/guardrails.
// Threshold overrides are optional per field; absent fields keep defaults.
type guardrailRequest struct {
	Metrics    domain.GuardrailMetrics `json:"metrics"`
	Thresholds *guardrailOverrides     `json:"thresholds,omitempty"`
}

type guardrailOverrides struct {
	ErrorRate      *float64 `json:"error_rate,omitempty"`
	P95LatencyMS   *float64 `json:"p95_latency_ms,omitempty"`
	ConversionHarm *float64 `json:"conversion_harm,omitempty"`
}

// CheckGuardrails handles POST /api/experiments/{experimentID}/guardrails.
func (h *Handler) CheckGuardrails(w http.ResponseWriter, r *http.Request) {
	experimentID := chi.URLParam(r, "experimentID")

	var req guardrailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	thresholds := domain.DefaultGuardrailThresholds()
	if o := req.Thresholds; o != nil {
		if o.ErrorRate != nil {
			thresholds.ErrorRate = *o.ErrorRate
		}
		if o.P95LatencyMS != nil {
			thresholds.P95LatencyMS = *o.P95LatencyMS
		}
		if o.ConversionHarm != nil {
			thresholds.ConversionHarm = *o.ConversionHarm
		}
	}

	result := h.exp.CheckGuardrails(experimentID, req.Metrics, &thresholds)
	JSON(w, http.StatusOK, result)
}
