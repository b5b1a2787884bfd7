package classifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Classify_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "heavy jam near market", req.Text)

		require.NoError(t, json.NewEncoder(w).Encode(classifyResponse{Score: 0.8}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, discardLogger())
	score, err := c.Classify(context.Background(), "heavy jam near market")
	require.NoError(t, err)
	assert.Equal(t, 0.8, score)
}

func TestClient_Classify_EmptyTextIsLegal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "", req.Text)
		require.NoError(t, json.NewEncoder(w).Encode(classifyResponse{Score: 0.1}))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, discardLogger())
	score, err := c.Classify(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0.1, score)
}

func TestClient_Classify_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, discardLogger())
	_, err := c.Classify(context.Background(), "heavy jam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestClient_Classify_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second, discardLogger())
	_, err := c.Classify(context.Background(), "heavy jam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode classify response")
}
