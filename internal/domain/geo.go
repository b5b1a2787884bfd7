package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// labelCaser title-cases composite location labels for map display.
var labelCaser = cases.Title(language.English)

// GeoPoint is a WGS-84 latitude/longitude coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RouteAlternative is one provider-computed route between two points.
type RouteAlternative struct {
	LengthMeters      int        `json:"length_meters"`
	TravelTimeSeconds int        `json:"travel_time_seconds"`
	Points            []GeoPoint `json:"points"`
}

// RouteSet holds route alternatives in provider-returned order (assumed
// fastest-first). The core never re-sorts it.
type RouteSet []RouteAlternative

// GeocodeResult is one candidate match for a free-text location query.
type GeocodeResult struct {
	FreeformAddress string   `json:"freeform_address"`
	Position        GeoPoint `json:"position"`
}

// EnrichedPrediction pairs a persisted prediction with a geocoded position
// for map display. Every instance carries a valid position; records that
// could not be geocoded are never emitted.
type EnrichedPrediction struct {
	Label     string    `json:"label"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Position  GeoPoint  `json:"position"`
}

// MapProvider is the outbound mapping capability. Implementations talk to the
// external provider and may return errors; the functions in this file absorb
// those errors into empty or fallback results so callers never see
// provider-specific failures.
type MapProvider interface {
	// Geocode resolves a free-text query to candidate locations. countrySet
	// optionally restricts matches to a country code; empty means unrestricted.
	Geocode(ctx context.Context, query string, limit int, countrySet string) ([]GeocodeResult, error)

	// ReverseGeocode resolves coordinates to a freeform address.
	// An empty string with nil error means no address was found.
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)

	// CalculateRoutes computes up to maxAlternatives routes between two points.
	CalculateRoutes(ctx context.Context, origin, destination GeoPoint, maxAlternatives int) (RouteSet, error)
}

// SearchLocations geocodes a free-text query. An empty query, a nil provider,
// or any provider failure yields an empty result; callers treat "no results"
// as a normal outcome.
func SearchLocations(ctx context.Context, provider MapProvider, query string, limit int, logger *slog.Logger) []GeocodeResult {
	if provider == nil || strings.TrimSpace(query) == "" {
		return []GeocodeResult{}
	}
	results, err := provider.Geocode(ctx, query, limit, "")
	if err != nil {
		logger.Warn("geocode search failed", "query", query, "error", err)
		return []GeocodeResult{}
	}
	return results
}

// ResolveAddress reverse-geocodes coordinates to a displayable address.
// Provider failure or a missing address falls back to a formatted
// "lat, lon" string; the result is never empty.
func ResolveAddress(ctx context.Context, provider MapProvider, lat, lon float64, logger *slog.Logger) string {
	fallback := fmt.Sprintf("%g, %g", lat, lon)
	if provider == nil {
		return fallback
	}
	address, err := provider.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Warn("reverse geocode failed", "lat", lat, "lon", lon, "error", err)
		return fallback
	}
	if address == "" {
		return fallback
	}
	return address
}

// PlanRoutes validates raw coordinate strings and delegates route computation
// to the provider. Any missing or non-numeric coordinate fails fast with an
// empty set before any outbound call; provider failure degrades to an empty
// set as well.
func PlanRoutes(ctx context.Context, provider MapProvider, startLat, startLon, endLat, endLon string, maxAlternatives int, logger *slog.Logger) RouteSet {
	origin, originOK := parseGeoPoint(startLat, startLon)
	destination, destOK := parseGeoPoint(endLat, endLon)
	if !originOK || !destOK || provider == nil {
		return RouteSet{}
	}

	routes, err := provider.CalculateRoutes(ctx, origin, destination, maxAlternatives)
	if err != nil {
		logger.Warn("route calculation failed",
			"origin", origin,
			"destination", destination,
			"error", err,
		)
		return RouteSet{}
	}
	return routes
}

func parseGeoPoint(rawLat, rawLon string) (GeoPoint, bool) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
	if errLat != nil || errLon != nil {
		return GeoPoint{}, false
	}
	return GeoPoint{Lat: lat, Lon: lon}, true
}

// EnrichPredictionsWithPosition geocodes recent prediction records for map
// display. The composite label (location plus street name) is deduplicated
// case-insensitively within the batch, first occurrence winning, so outbound
// geocode calls are bounded by the number of distinct labels rather than
// records. One country-qualified, limit-1 geocode is issued per distinct
// label; records whose label yields no hit are dropped, so every emitted item
// has a valid position. Output order follows record order (newest first as
// provided by the store).
func EnrichPredictionsWithPosition(ctx context.Context, provider MapProvider, records []PredictionRecord, country string, logger *slog.Logger) []EnrichedPrediction {
	enriched := make([]EnrichedPrediction, 0, len(records))
	if provider == nil {
		return enriched
	}

	seen := make(map[string]struct{}, len(records))
	for _, record := range records {
		label := compositeLabel(record)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		results, err := provider.Geocode(ctx, label, 1, country)
		if err != nil {
			logger.Warn("geocode failed for prediction label", "label", label, "error", err)
			continue
		}
		if len(results) == 0 {
			logger.Debug("no coordinates found for prediction label", "label", label)
			continue
		}

		enriched = append(enriched, EnrichedPrediction{
			Label:     labelCaser.String(label),
			Status:    record.Status,
			Timestamp: record.Timestamp,
			Position:  results[0].Position,
		})
	}
	return enriched
}

func compositeLabel(record PredictionRecord) string {
	return strings.TrimSpace(strings.TrimSpace(record.Location) + " " + strings.TrimSpace(record.StreetName))
}
