// Package service coordinates prediction resolution, persistence, and map
// enrichment on behalf of the HTTP API.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cityflow/traffic-insight-service/internal/domain"
	"github.com/cityflow/traffic-insight-service/internal/observability"
)

// ErrInvalidReport signals a submission missing its location or description.
var ErrInvalidReport = errors.New("location and description are required")

// ErrPredictionFailed is the generic failure returned to callers when a
// prediction could not be completed. Internal detail stays in the logs.
var ErrPredictionFailed = errors.New("prediction could not be completed")

// RecordStore persists and retrieves canonical prediction records.
type RecordStore interface {
	Append(ctx context.Context, record domain.PredictionRecord) error
	Recent(ctx context.Context, limit int) ([]domain.PredictionRecord, error)
	ByLocation(ctx context.Context, location, streetName string, limit int) ([]domain.PredictionRecord, error)
	Ping(ctx context.Context) error
}

// RecordPublisher fans out persisted records to downstream consumers.
type RecordPublisher interface {
	Publish(ctx context.Context, record domain.PredictionRecord) error
}

// Insight is the application service behind the HTTP API. All capabilities
// except the store are optional; absent ones degrade per the domain policy.
type Insight struct {
	classifier domain.Classifier
	history    domain.HistoricalIndex
	provider   domain.MapProvider
	store      RecordStore
	publisher  RecordPublisher
	logger     *slog.Logger
	metrics    *observability.Metrics

	country      string
	geocodeLimit int
	routeMaxAlts int
}

// Options carries the optional capabilities and tuning knobs for New.
type Options struct {
	Classifier   domain.Classifier
	History      domain.HistoricalIndex
	Provider     domain.MapProvider
	Publisher    RecordPublisher
	Country      string
	GeocodeLimit int
	RouteMaxAlts int
}

// New creates the Insight service.
func New(store RecordStore, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Insight {
	return &Insight{
		classifier:   opts.Classifier,
		history:      opts.History,
		provider:     opts.Provider,
		store:        store,
		publisher:    opts.Publisher,
		logger:       logger,
		metrics:      metrics,
		country:      opts.Country,
		geocodeLimit: opts.GeocodeLimit,
		routeMaxAlts: opts.RouteMaxAlts,
	}
}

// CheckReadiness reports whether the record store is reachable.
func (s *Insight) CheckReadiness(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Submit resolves a prediction for the report and persists the resulting
// record. On store failure nothing is persisted and the caller receives a
// generic error. Fan-out failures are logged but never fail the submission.
func (s *Insight) Submit(ctx context.Context, report domain.IncidentReport) (domain.PredictionScore, domain.PredictionRecord, error) {
	if strings.TrimSpace(report.Location) == "" || strings.TrimSpace(report.Description) == "" {
		return domain.PredictionScore{}, domain.PredictionRecord{}, ErrInvalidReport
	}

	score := domain.ResolvePrediction(ctx, report.Description, s.classifier, s.history, s.logger)
	s.metrics.PredictionsTotal.Inc()
	if score.Degraded {
		s.metrics.PredictionsDegraded.Inc()
	}
	if score.HistoricalScore != nil {
		s.metrics.PredictionsBlended.Inc()
	}

	record := domain.NewPredictionRecord(report, score.Status)
	if err := s.store.Append(ctx, record); err != nil {
		s.metrics.StoreErrors.Inc()
		s.logger.Error("append prediction record failed",
			"location", record.Location,
			"error", err,
		)
		return domain.PredictionScore{}, domain.PredictionRecord{}, ErrPredictionFailed
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, record); err != nil {
			s.logger.Warn("record fan-out failed", "location", record.Location, "error", err)
		} else {
			s.metrics.RecordsPublished.Inc()
		}
	}

	return score, record, nil
}

// Recent returns stored records, newest first. A non-empty location narrows
// the query (optionally by street name as well); location fields are folded
// to match stored casing.
func (s *Insight) Recent(ctx context.Context, location, streetName string, limit int) ([]domain.PredictionRecord, error) {
	location = strings.ToLower(strings.TrimSpace(location))
	streetName = strings.ToLower(strings.TrimSpace(streetName))
	if location == "" {
		return s.store.Recent(ctx, limit)
	}
	return s.store.ByLocation(ctx, location, streetName, limit)
}

// MapData returns the most recent records enriched with geocoded positions
// for map display.
func (s *Insight) MapData(ctx context.Context, limit int) ([]domain.EnrichedPrediction, error) {
	records, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return domain.EnrichPredictionsWithPosition(ctx, s.provider, records, s.country, s.logger), nil
}

// SearchLocations geocodes a free-text query, degrading to empty results on
// provider failure.
func (s *Insight) SearchLocations(ctx context.Context, query string, limit int) []domain.GeocodeResult {
	if limit <= 0 || limit > s.geocodeLimit {
		limit = s.geocodeLimit
	}
	return domain.SearchLocations(ctx, s.provider, query, limit, s.logger)
}

// ResolveAddress reverse-geocodes coordinates, always returning a
// displayable string.
func (s *Insight) ResolveAddress(ctx context.Context, lat, lon float64) string {
	return domain.ResolveAddress(ctx, s.provider, lat, lon, s.logger)
}

// PlanRoutes computes route alternatives between raw coordinate strings,
// degrading to an empty set on invalid input or provider failure.
func (s *Insight) PlanRoutes(ctx context.Context, startLat, startLon, endLat, endLon string) domain.RouteSet {
	return domain.PlanRoutes(ctx, s.provider, startLat, startLon, endLat, endLon, s.routeMaxAlts, s.logger)
}
