package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/climate-api/internal/health"
	"github.com/kjstillabower/climate-api/internal/observability"
	"github.com/kjstillabower/climate-api/internal/service"
)

const internalErrorMessage = "Internal server error"

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	climateService   *service.ClimateService
	healthConfig     *health.Config
	logger           *zap.Logger
	strictStatus     bool
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. When strictStatus is false, range query
// rejections are returned with HTTP 200 and an error body.
func NewHandler(
	climateService *service.ClimateService,
	healthConfig *health.Config,
	logger *zap.Logger,
	strictStatus bool,
) *Handler {
	return &Handler{
		climateService: climateService,
		healthConfig:   healthConfig,
		logger:         logger,
		strictStatus:   strictStatus,
	}
}

// Home handles GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	writeHTML(w, r, func(buf *bytes.Buffer) error { return renderHome(buf) })
}

// RangeUsage handles GET /api/v1.0/.
func (h *Handler) RangeUsage(w http.ResponseWriter, r *http.Request) {
	bounds := h.climateService.Bounds()
	writeHTML(w, r, func(buf *bytes.Buffer) error { return renderUsage(buf, bounds) })
}

// GetPrecipitation handles GET /api/v1.0/precipitation.
func (h *Handler) GetPrecipitation(w http.ResponseWriter, r *http.Request) {
	days, err := h.climateService.Precipitation(r.Context())
	if err != nil {
		health.RecordError()
		writeServiceError(w, r, err)
		return
	}
	health.RecordSuccess()
	writeJSON(w, http.StatusOK, precipitationObject(days))
}

// GetStations handles GET /api/v1.0/stations.
func (h *Handler) GetStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.climateService.Stations(r.Context())
	if err != nil {
		health.RecordError()
		writeServiceError(w, r, err)
		return
	}
	health.RecordSuccess()
	writeJSON(w, http.StatusOK, stations)
}

// GetTobs handles GET /api/v1.0/tobs.
func (h *Handler) GetTobs(w http.ResponseWriter, r *http.Request) {
	obs, err := h.climateService.MostActiveStation(r.Context())
	if err != nil {
		health.RecordError()
		writeServiceError(w, r, err)
		return
	}
	health.RecordSuccess()
	writeJSON(w, http.StatusOK, newTobsResponse(obs))
}

// GetRangeFrom handles GET /api/v1.0/{start}.
func (h *Handler) GetRangeFrom(w http.ResponseWriter, r *http.Request) {
	start := mux.Vars(r)["start"]
	result, err := h.climateService.QueryFrom(r.Context(), start)
	h.writeRangeResult(w, r, result, err)
}

// GetRange handles GET /api/v1.0/{start}/{end}.
func (h *Handler) GetRange(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := h.climateService.QueryRange(r.Context(), vars["start"], vars["end"])
	h.writeRangeResult(w, r, result, err)
}

func (h *Handler) writeRangeResult(w http.ResponseWriter, r *http.Request, result interface{}, err error) {
	if err == nil {
		health.RecordSuccess()
		writeJSON(w, http.StatusOK, result)
		return
	}
	if re, ok := service.AsRangeError(err); ok {
		// Caller-side rejections do not count against the error rate.
		health.RecordSuccess()
		writeError(w, h.rangeErrorStatus(re.Kind), re.Message)
		return
	}
	health.RecordError()
	writeServiceError(w, r, err)
}

// rangeErrorStatus maps a rejection kind to its HTTP status.
func (h *Handler) rangeErrorStatus(kind service.RangeErrorKind) int {
	if !h.strictStatus {
		return http.StatusOK
	}
	switch kind {
	case service.InvalidDateFormat, service.InvalidInterval:
		return http.StatusBadRequest
	case service.OutOfRange, service.NoDataInRange:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	var cfg health.Config
	if h.healthConfig != nil {
		cfg = *h.healthConfig
	}
	result := health.Evaluate(r.Context(), cfg)

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.Status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.Status),
			zap.String("reason", result.Reason))
	}
	h.healthStatusPrev = result.Status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"store": "healthy"}
	if !result.StoreOK {
		checks["store"] = "unhealthy"
	}
	resp := map[string]interface{}{
		"status":    result.Status,
		"service":   "climate-api",
		"version":   "dev",
		"checks":    checks,
		"dataset":   h.climateService.Bounds(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSON(w, result.StatusCode, resp)
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the {"error": message} body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError writes a 500 for data store failures and logs the cause.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("data store failure", zap.Error(err))
	writeError(w, http.StatusInternalServerError, internalErrorMessage)
}

// writeHTML renders into a buffer first so a template failure still yields a clean 500.
func writeHTML(w http.ResponseWriter, r *http.Request, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		observability.LoggerFromContext(r.Context()).Error("render page", zap.Error(err))
		http.Error(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
