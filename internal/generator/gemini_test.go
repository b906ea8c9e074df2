package generator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/graduation-api/internal/config"
)

func testGenAIConfig() config.GenAI {
	return config.GenAI{
		APIKey:      "test-key",
		Model:       "gemini-3-flash-preview",
		Temperature: 0.8,
		TopP:        0.9,
	}
}

func TestGemini_GenerateText(t *testing.T) {
	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "models/gemini-3-flash-preview:generateContent") {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Selamat lulus!"}]}}]}`))
	}))
	defer ts.Close()

	g, err := NewGemini(context.Background(), testGenAIConfig(), WithBaseURL(ts.URL))
	require.NoError(t, err)

	got, err := g.GenerateText(context.Background(), "halo")
	require.NoError(t, err)
	assert.Equal(t, "Selamat lulus!", got)

	gen, ok := body["generationConfig"].(map[string]any)
	require.True(t, ok, "request carries generationConfig")
	assert.InDelta(t, 0.8, gen["temperature"], 1e-6)
	assert.InDelta(t, 0.9, gen["topP"], 1e-6)
}

func TestGemini_ServiceError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
	}))
	defer ts.Close()

	g, err := NewGemini(context.Background(), testGenAIConfig(), WithBaseURL(ts.URL))
	require.NoError(t, err)

	_, err = g.GenerateText(context.Background(), "halo")
	assert.Error(t, err)

	// the generator masks the failure
	msg := New(g, 0, discardLogger()).Generate(context.Background(), passed)
	assert.Equal(t, FallbackPassed, msg)
}

func TestNewGemini_RequiresAPIKey(t *testing.T) {
	_, err := NewGemini(context.Background(), config.GenAI{Model: "m"})
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}
