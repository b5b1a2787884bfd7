// Package httpapi exposes the prediction and mapping endpoints over HTTP,
// alongside health, readiness, and metrics routes.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cityflow/traffic-insight-service/internal/domain"
	"github.com/cityflow/traffic-insight-service/internal/service"
)

// defaultRecentLimit bounds list endpoints when the caller supplies no limit.
const defaultRecentLimit = 50

// maxRecentLimit caps caller-supplied limits on list endpoints.
const maxRecentLimit = 200

// PredictionService is the application surface the HTTP layer depends on.
type PredictionService interface {
	Submit(ctx context.Context, report domain.IncidentReport) (domain.PredictionScore, domain.PredictionRecord, error)
	Recent(ctx context.Context, location, streetName string, limit int) ([]domain.PredictionRecord, error)
	MapData(ctx context.Context, limit int) ([]domain.EnrichedPrediction, error)
	SearchLocations(ctx context.Context, query string, limit int) []domain.GeocodeResult
	ResolveAddress(ctx context.Context, lat, lon float64) string
	PlanRoutes(ctx context.Context, startLat, startLon, endLat, endLon string) domain.RouteSet
	CheckReadiness(ctx context.Context) error
}

// Server exposes the JSON API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	svc        PredictionService
	logger     *slog.Logger
}

// NewServer wires all routes onto a fresh mux.
func NewServer(addr string, svc PredictionService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("POST /api/predictions", s.handleSubmit)
	mux.HandleFunc("GET /api/predictions", s.handleRecent)
	mux.HandleFunc("GET /api/predictions/map", s.handleMapData)
	mux.HandleFunc("GET /api/geocode", s.handleGeocode)
	mux.HandleFunc("GET /api/reverse-geocode", s.handleReverseGeocode)
	mux.HandleFunc("GET /api/routes", s.handleRoutes)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type submitResponse struct {
	Prediction domain.PredictionScore  `json:"prediction"`
	Record     domain.PredictionRecord `json:"record"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var report domain.IncidentReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	score, record, err := s.svc.Submit(r.Context(), report)
	if err != nil {
		if errors.Is(err, service.ErrInvalidReport) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{Prediction: score, Record: record})
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	records, err := s.svc.Recent(r.Context(), q.Get("location"), q.Get("street_name"), parseLimit(q.Get("limit")))
	if err != nil {
		s.logger.Error("recent predictions query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load predictions"})
		return
	}
	if records == nil {
		records = []domain.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": records})
}

func (s *Server) handleMapData(w http.ResponseWriter, r *http.Request) {
	enriched, err := s.svc.MapData(r.Context(), parseLimit(r.URL.Query().Get("limit")))
	if err != nil {
		s.logger.Error("map data query failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load map data"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": enriched})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	results := s.svc.SearchLocations(r.Context(), q.Get("query"), limit)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
	if errLat != nil || errLon != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lon must be numeric"})
		return
	}
	address := s.svc.ResolveAddress(r.Context(), lat, lon)
	writeJSON(w, http.StatusOK, map[string]string{"address": address})
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	routes := s.svc.PlanRoutes(r.Context(),
		q.Get("start_lat"), q.Get("start_lon"),
		q.Get("end_lat"), q.Get("end_lon"),
	)
	writeJSON(w, http.StatusOK, map[string]any{"routes": routes})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.svc.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultRecentLimit
	}
	if limit > maxRecentLimit {
		return maxRecentLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
