// Package tomtom implements domain.MapProvider against the TomTom Search and
// Routing APIs.
package tomtom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cityflow/traffic-insight-service/internal/domain"
	"github.com/cityflow/traffic-insight-service/internal/observability"
)

// Client implements domain.MapProvider using the TomTom HTTP APIs.
type Client struct {
	key        string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a TomTom client with a bounded per-request timeout.
func NewClient(key string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		key: key,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.tomtom.com",
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode resolves a free-text query via the fuzzy search endpoint.
func (c *Client) Geocode(ctx context.Context, query string, limit int, countrySet string) ([]domain.GeocodeResult, error) {
	u := fmt.Sprintf("%s/search/2/search/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"key":       {c.key},
		"typeahead": {"true"},
		"limit":     {strconv.Itoa(limit)},
	}
	if countrySet != "" {
		params.Set("countrySet", countrySet)
	}

	var payload searchResponse
	if err := c.doRequest(ctx, u+"?"+params.Encode(), "search", &payload); err != nil {
		return nil, err
	}

	results := make([]domain.GeocodeResult, 0, len(payload.Results))
	for _, item := range payload.Results {
		results = append(results, domain.GeocodeResult{
			FreeformAddress: item.Address.FreeformAddress,
			Position:        domain.GeoPoint{Lat: item.Position.Lat, Lon: item.Position.Lon},
		})
	}
	if len(results) == 0 {
		c.metrics.ProviderRequests.WithLabelValues("search", "empty").Inc()
	}
	return results, nil
}

// ReverseGeocode resolves coordinates to a freeform address. An empty string
// with nil error means the provider returned no address.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	u := fmt.Sprintf("%s/search/2/reverseGeocode/%.6f,%.6f.json", c.baseURL, lat, lon)
	params := url.Values{"key": {c.key}}

	var payload reverseResponse
	if err := c.doRequest(ctx, u+"?"+params.Encode(), "reverse", &payload); err != nil {
		return "", err
	}

	if len(payload.Addresses) == 0 {
		c.metrics.ProviderRequests.WithLabelValues("reverse", "empty").Inc()
		return "", nil
	}
	return payload.Addresses[0].Address.FreeformAddress, nil
}

// CalculateRoutes computes up to maxAlternatives routes between two points.
// Alternatives are returned in provider order.
func (c *Client) CalculateRoutes(ctx context.Context, origin, destination domain.GeoPoint, maxAlternatives int) (domain.RouteSet, error) {
	u := fmt.Sprintf("%s/routing/1/calculateRoute/%.6f,%.6f:%.6f,%.6f/json",
		c.baseURL, origin.Lat, origin.Lon, destination.Lat, destination.Lon)
	params := url.Values{
		"key":             {c.key},
		"routeType":       {"fastest"},
		"traffic":         {"true"},
		"avoid":           {"unpavedRoads"},
		"travelMode":      {"car"},
		"maxAlternatives": {strconv.Itoa(maxAlternatives)},
		"alternativeType": {"anyRoute"},
	}

	var payload routeResponse
	if err := c.doRequest(ctx, u+"?"+params.Encode(), "route", &payload); err != nil {
		return nil, err
	}

	routes := make(domain.RouteSet, 0, len(payload.Routes))
	for _, r := range payload.Routes {
		alt := domain.RouteAlternative{
			LengthMeters:      r.Summary.LengthInMeters,
			TravelTimeSeconds: r.Summary.TravelTimeInSeconds,
		}
		if len(r.Legs) > 0 {
			alt.Points = decodeLegPoints(r.Legs[0])
		}
		routes = append(routes, alt)
	}
	return routes, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL, operation string, out any) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	c.metrics.ProviderDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.metrics.ProviderRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("tomtom API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.ProviderRequests.WithLabelValues(operation, "error").Inc()
		return fmt.Errorf("decode %s response: %w", operation, err)
	}

	c.metrics.ProviderRequests.WithLabelValues(operation, "success").Inc()
	return nil
}

// decodeLegPoints resolves the two point encodings the provider emits for a
// leg: explicit latitude/longitude objects, or compact "lat,lon" strings.
// The provider picks the shape based on response detail level, so both must
// be accepted. Unparseable shape entries are skipped.
func decodeLegPoints(leg routeLeg) []domain.GeoPoint {
	if len(leg.Points) > 0 {
		points := make([]domain.GeoPoint, len(leg.Points))
		for i, p := range leg.Points {
			points[i] = domain.GeoPoint{Lat: p.Latitude, Lon: p.Longitude}
		}
		return points
	}

	points := make([]domain.GeoPoint, 0, len(leg.Shape))
	for _, s := range leg.Shape {
		lat, lon, ok := splitLatLon(s)
		if !ok {
			continue
		}
		points = append(points, domain.GeoPoint{Lat: lat, Lon: lon})
	}
	return points
}

func splitLatLon(s string) (float64, float64, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// TomTom API response types.

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Address  searchAddress `json:"address"`
	Position positionLL    `json:"position"`
}

type searchAddress struct {
	FreeformAddress string `json:"freeformAddress"`
}

type positionLL struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type reverseResponse struct {
	Addresses []reverseAddress `json:"addresses"`
}

type reverseAddress struct {
	Address searchAddress `json:"address"`
}

type routeResponse struct {
	Routes []route `json:"routes"`
}

type route struct {
	Summary routeSummary `json:"summary"`
	Legs    []routeLeg   `json:"legs"`
}

type routeSummary struct {
	LengthInMeters      int `json:"lengthInMeters"`
	TravelTimeInSeconds int `json:"travelTimeInSeconds"`
}

type routeLeg struct {
	Points []legPoint `json:"points"`
	Shape  []string   `json:"shape"`
}

type legPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
