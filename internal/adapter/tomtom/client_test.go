package tomtom

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityflow/traffic-insight-service/internal/domain"
	"github.com/cityflow/traffic-insight-service/internal/observability"
)

const (
	testKey           = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string) *Client {
	return &Client{
		key:        testKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    testMetrics(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func jsonHandler(t *testing.T, body string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, err := w.Write([]byte(body))
		require.NoError(t, err)
	}
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "MG Road.json")
		assert.Equal(t, testKey, r.URL.Query().Get("key"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "true", r.URL.Query().Get("typeahead"))
		assert.Equal(t, "IN", r.URL.Query().Get("countrySet"))

		jsonHandler(t, `{"results":[
			{"address":{"freeformAddress":"MG Road, Bengaluru 560001"},"position":{"lat":12.9758,"lon":77.6045}},
			{"address":{"freeformAddress":"MG Road, Pune"},"position":{"lat":18.5196,"lon":73.8554}}
		]}`)(w, r)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	results, err := c.Geocode(context.Background(), "MG Road", 5, "IN")
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "MG Road, Bengaluru 560001", results[0].FreeformAddress)
	assert.Equal(t, domain.GeoPoint{Lat: 12.9758, Lon: 77.6045}, results[0].Position)
	assert.Equal(t, "MG Road, Pune", results[1].FreeformAddress)
}

func TestClient_Geocode_NoCountrySet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["countrySet"]
		assert.False(t, present)
		jsonHandler(t, `{"results":[]}`)(w, r)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	results, err := c.Geocode(context.Background(), "MG Road", 5, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestClient_Geocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"boom"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Geocode(context.Background(), "MG Road", 5, "IN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestClient_Geocode_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, `{not json`))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Geocode(context.Background(), "MG Road", 5, "IN")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode search response")
}

func TestClient_Geocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		jsonHandler(t, `{"results":[]}`)(w, r)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.Geocode(context.Background(), "MG Road", 5, "IN")
	require.Error(t, err)
}

func TestClient_ReverseGeocode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Contains(t, r.URL.Path, "12.975800,77.604500")
			jsonHandler(t, `{"addresses":[{"address":{"freeformAddress":"MG Road, Bengaluru 560001"}}]}`)(w, r)
		}))
		defer srv.Close()

		c := testClient(srv.URL)
		address, err := c.ReverseGeocode(context.Background(), 12.9758, 77.6045)
		require.NoError(t, err)
		assert.Equal(t, "MG Road, Bengaluru 560001", address)
	})

	t.Run("no addresses", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, `{"addresses":[]}`))
		defer srv.Close()

		c := testClient(srv.URL)
		address, err := c.ReverseGeocode(context.Background(), 12.9758, 77.6045)
		require.NoError(t, err)
		assert.Empty(t, address)
	})

	t.Run("missing address field", func(t *testing.T) {
		srv := httptest.NewServer(jsonHandler(t, `{"addresses":[{"address":{}}]}`))
		defer srv.Close()

		c := testClient(srv.URL)
		address, err := c.ReverseGeocode(context.Background(), 12.9758, 77.6045)
		require.NoError(t, err)
		assert.Empty(t, address)
	})
}

func TestClient_CalculateRoutes_ObjectPoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "12.900000,77.600000:13.000000,77.700000")
		assert.Equal(t, "3", r.URL.Query().Get("maxAlternatives"))
		assert.Equal(t, "fastest", r.URL.Query().Get("routeType"))

		jsonHandler(t, `{"routes":[{
			"summary":{"lengthInMeters":1200,"travelTimeInSeconds":300},
			"legs":[{"points":[{"latitude":12.9,"longitude":77.6},{"latitude":13.0,"longitude":77.7}]}]
		}]}`)(w, r)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	routes, err := c.CalculateRoutes(context.Background(), domain.GeoPoint{Lat: 12.9, Lon: 77.6}, domain.GeoPoint{Lat: 13.0, Lon: 77.7}, 3)
	require.NoError(t, err)

	require.Len(t, routes, 1)
	assert.Equal(t, 1200, routes[0].LengthMeters)
	assert.Equal(t, 300, routes[0].TravelTimeSeconds)
	assert.Equal(t, []domain.GeoPoint{{Lat: 12.9, Lon: 77.6}, {Lat: 13.0, Lon: 77.7}}, routes[0].Points)
}

func TestClient_CalculateRoutes_StringShape(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, `{"routes":[{
		"summary":{"lengthInMeters":1200,"travelTimeInSeconds":300},
		"legs":[{"shape":["12.9,77.6","13.0,77.7"]}]
	}]}`))
	defer srv.Close()

	c := testClient(srv.URL)
	routes, err := c.CalculateRoutes(context.Background(), domain.GeoPoint{Lat: 12.9, Lon: 77.6}, domain.GeoPoint{Lat: 13.0, Lon: 77.7}, 3)
	require.NoError(t, err)

	// The compact string shape decodes to the same points as the object shape.
	require.Len(t, routes, 1)
	assert.Equal(t, []domain.GeoPoint{{Lat: 12.9, Lon: 77.6}, {Lat: 13.0, Lon: 77.7}}, routes[0].Points)
}

func TestClient_CalculateRoutes_SkipsUnparseableShapeEntries(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, `{"routes":[{
		"summary":{"lengthInMeters":1200,"travelTimeInSeconds":300},
		"legs":[{"shape":["12.9,77.6","garbage","13.0"]}]
	}]}`))
	defer srv.Close()

	c := testClient(srv.URL)
	routes, err := c.CalculateRoutes(context.Background(), domain.GeoPoint{Lat: 12.9, Lon: 77.6}, domain.GeoPoint{Lat: 13.0, Lon: 77.7}, 3)
	require.NoError(t, err)

	require.Len(t, routes, 1)
	assert.Equal(t, []domain.GeoPoint{{Lat: 12.9, Lon: 77.6}}, routes[0].Points)
}

func TestClient_CalculateRoutes_PreservesProviderOrder(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(t, `{"routes":[
		{"summary":{"lengthInMeters":2000,"travelTimeInSeconds":500},"legs":[]},
		{"summary":{"lengthInMeters":1000,"travelTimeInSeconds":900},"legs":[]}
	]}`))
	defer srv.Close()

	c := testClient(srv.URL)
	routes, err := c.CalculateRoutes(context.Background(), domain.GeoPoint{Lat: 12.9, Lon: 77.6}, domain.GeoPoint{Lat: 13.0, Lon: 77.7}, 3)
	require.NoError(t, err)

	// Shorter-but-slower second alternative stays second; no re-sorting.
	require.Len(t, routes, 2)
	assert.Equal(t, 2000, routes[0].LengthMeters)
	assert.Equal(t, 1000, routes[1].LengthMeters)
}

func TestDecodeLegPoints_PrefersObjectShape(t *testing.T) {
	leg := routeLeg{
		Points: []legPoint{{Latitude: 12.9, Longitude: 77.6}},
		Shape:  []string{"99.9,99.9"},
	}

	points := decodeLegPoints(leg)

	assert.Equal(t, []domain.GeoPoint{{Lat: 12.9, Lon: 77.6}}, points)
}
