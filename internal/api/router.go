package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/gapscan/internal/api/handlers"
	"github.com/wonny/gapscan/pkg/logger"
)

// NewRouter creates and configures the HTTP router. hub and gatherer may be nil.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(scanner *handlers.ScannerHandler, hub *Hub, gatherer prometheus.Gatherer, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Metrics
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}

	// Live watchlist / pick push
	if hub != nil {
		r.HandleFunc("/ws", hub.ServeWS).Methods("GET")
	}

	// API v1
	api := r.PathPrefix("/api").Subrouter()

	// Scanner endpoints
	api.HandleFunc("/state", scanner.GetState).Methods("GET")
	api.HandleFunc("/watchlist", scanner.GetWatchlist).Methods("GET")
	api.HandleFunc("/pick", scanner.GetPick).Methods("GET")
	api.HandleFunc("/picks/recent", scanner.GetRecentPicks).Methods("GET")
	api.HandleFunc("/analysis", scanner.GetAnalysis).Methods("GET")
	api.HandleFunc("/scheduler/jobs", scanner.GetJobs).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "gapscan",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
