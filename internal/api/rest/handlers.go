package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/sentinel-analytics/dqsi-engine/internal/infrastructure/cache"
	"github.com/sentinel-analytics/dqsi-engine/internal/metrics"
	dqsisvc "github.com/sentinel-analytics/dqsi-engine/internal/service/dqsi"
)

// maxBodySize caps request bodies at 1MB.
const maxBodySize = 1 << 20

// Handler serves the assessment endpoints.
type Handler struct {
	service   *dqsisvc.Service
	cache     *cache.AssessmentCache
	validator *validator.Validate
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewHandler creates the REST handler. The cache is optional; a nil
// cache disables assessment caching.
func NewHandler(service *dqsisvc.Service, assessments *cache.AssessmentCache, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		cache:     assessments,
		validator: validator.New(),
		logger:    logger,
		tracer:    otel.Tracer("api.rest"),
	}
}

// AlertAssessmentRequest carries one alert's field map and metadata.
type AlertAssessmentRequest struct {
	AlertID  string                 `json:"alert_id"`
	KDEData  map[string]interface{} `json:"kde_data" validate:"required"`
	Metadata map[string]interface{} `json:"dq_metadata"`
}

// CaseAssessmentRequest carries a case with its sub-alerts.
type CaseAssessmentRequest struct {
	CaseID string                   `json:"case_id"`
	Alerts []map[string]interface{} `json:"alerts" validate:"required,min=1"`
}

// CoverageRequest asks for the coverage diagnostic over a field map.
type CoverageRequest struct {
	KDEData map[string]interface{} `json:"kde_data" validate:"required"`
}

// SimulateRequest asks for a what-if impact run.
type SimulateRequest struct {
	KDEData       map[string]interface{} `json:"kde_data" validate:"required"`
	Modifications map[string]interface{} `json:"modifications" validate:"required,min=1"`
	Metadata      map[string]interface{} `json:"dq_metadata"`
}

// RecommendationsRequest asks for ranked remediation suggestions.
type RecommendationsRequest struct {
	KDEData  map[string]interface{} `json:"kde_data" validate:"required"`
	Metadata map[string]interface{} `json:"dq_metadata"`
}

// AssessAlert scores one alert and returns the flattened assessment.
func (h *Handler) AssessAlert(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AssessAlert")
	defer span.End()

	var req AlertAssessmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.AlertID != "" && h.cache != nil {
		if cached, err := h.cache.GetAlert(ctx, req.AlertID); err == nil {
			metrics.CacheHits.WithLabelValues("alert").Inc()
			h.writeJSON(w, http.StatusOK, cached)
			return
		} else if errors.As(err, &cache.ErrAssessmentNotCached{}) {
			metrics.CacheMisses.WithLabelValues("alert").Inc()
		}
	}

	started := time.Now()
	flattened := h.service.CalculateForAlert(map[string]interface{}{
		"kde_data":    req.KDEData,
		"dq_metadata": req.Metadata,
	})
	h.observe("alert", flattened, started)

	if req.AlertID != "" && h.cache != nil {
		if err := h.cache.SetAlert(ctx, req.AlertID, flattened); err != nil {
			h.logger.WarnContext(ctx, "failed to cache alert assessment",
				"alert_id", req.AlertID, "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, flattened)
}

// AssessCase scores a case by pooling its sub-alerts.
func (h *Handler) AssessCase(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AssessCase")
	defer span.End()

	var req CaseAssessmentRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.CaseID != "" && h.cache != nil {
		if cached, err := h.cache.GetCase(ctx, req.CaseID); err == nil {
			metrics.CacheHits.WithLabelValues("case").Inc()
			h.writeJSON(w, http.StatusOK, cached)
			return
		} else if errors.As(err, &cache.ErrAssessmentNotCached{}) {
			metrics.CacheMisses.WithLabelValues("case").Inc()
		}
	}

	alerts := make([]interface{}, len(req.Alerts))
	for i, alert := range req.Alerts {
		alerts[i] = alert
	}

	started := time.Now()
	flattened := h.service.CalculateForCase(map[string]interface{}{
		"alerts": alerts,
	})
	h.observe("case", flattened, started)

	if req.CaseID != "" && h.cache != nil {
		if err := h.cache.SetCase(ctx, req.CaseID, flattened); err != nil {
			h.logger.WarnContext(ctx, "failed to cache case assessment",
				"case_id", req.CaseID, "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, flattened)
}

// ValidateCoverage returns the read-only coverage diagnostic.
func (h *Handler) ValidateCoverage(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "ValidateCoverage")
	defer span.End()

	var req CoverageRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.ValidateCoverage(req.KDEData))
}

// SimulateImpact runs a what-if calculation.
func (h *Handler) SimulateImpact(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "SimulateImpact")
	defer span.End()

	var req SimulateRequest
	if !h.decode(w, r, &req) {
		return
	}
	meta := dqsisvc.ParseMetadata(req.Metadata)
	h.writeJSON(w, http.StatusOK, h.service.SimulateImpact(req.KDEData, req.Modifications, meta))
}

// RecommendImprovements scores the input and returns ranked
// remediation suggestions.
func (h *Handler) RecommendImprovements(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "RecommendImprovements")
	defer span.End()

	var req RecommendationsRequest
	if !h.decode(w, r, &req) {
		return
	}
	assessment := h.service.Calculate(req.KDEData, dqsisvc.ParseMetadata(req.Metadata))
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"assessment_id":   assessment.ID,
		"dqsi_score":      assessment.Score,
		"recommendations": h.service.RecommendImprovements(assessment),
	})
}

func (h *Handler) observe(kind string, flattened map[string]interface{}, started time.Time) {
	score, _ := flattened["dqsi_score"].(float64)
	missing, _ := flattened["dqsi_critical_kdes_missing"].([]string)
	metrics.ObserveCalculation(h.service.Strategy(), kind, score, started, len(missing) > 0)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "request body is not valid JSON: "+err.Error())
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
