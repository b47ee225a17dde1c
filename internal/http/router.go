package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/climate-api/internal/observability"
)

// RouterOptions configures the middleware applied to /api/v1.0 routes.
type RouterOptions struct {
	// RequestTimeout of 0 leaves requests without a deadline.
	RequestTimeout time.Duration
	// RateLimiter is nil when rate limiting is disabled.
	RateLimiter *rate.Limiter
}

// NewRouter registers all routes. Fixed /api/v1.0 paths are registered before the
// {start} and {start}/{end} patterns so they take precedence.
// Every response, matched or not, carries X-Correlation-ID and is counted in
// the request metrics; 404 and 405 responses are recorded under route "unmatched".
func NewRouter(h *Handler, logger *zap.Logger, opts RouterOptions) http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.Use(MetricsMiddleware)
	r.NotFoundHandler = MetricsMiddleware(http.NotFoundHandler())
	r.MethodNotAllowedHandler = MetricsMiddleware(http.HandlerFunc(methodNotAllowed))

	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1.0").Subrouter()
	api.Use(RateLimitMiddleware(opts.RateLimiter))
	api.Use(TimeoutMiddleware(opts.RequestTimeout))
	api.HandleFunc("/", h.RangeUsage).Methods(http.MethodGet)
	api.HandleFunc("/precipitation", h.GetPrecipitation).Methods(http.MethodGet)
	api.HandleFunc("/stations", h.GetStations).Methods(http.MethodGet)
	api.HandleFunc("/tobs", h.GetTobs).Methods(http.MethodGet)
	api.HandleFunc("/{start}", h.GetRangeFrom).Methods(http.MethodGet)
	api.HandleFunc("/{start}/{end}", h.GetRange).Methods(http.MethodGet)

	return CorrelationIDMiddleware(logger)(r)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
