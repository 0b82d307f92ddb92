package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegHeader = []byte{0xFF, 0xD8, 0xFF, 0xE0}

func TestOllamaAnalyze(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(generateResponse{Response: "Obeng | 2 |\nLakban | 1 | hitam"})
	}))
	defer server.Close()

	result, err := NewOllamaAnalyzer(server.URL, "moondream").
		Analyze(context.Background(), bytes.NewReader(jpegHeader), "image/jpeg")

	require.NoError(t, err)
	assert.Equal(t, "moondream", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Images, 1)
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Obeng", result.Items[0].Name)
	assert.Equal(t, 2, result.Items[0].Count())
	assert.Equal(t, "hitam", result.Items[1].Notes)
}

func TestOllamaAnalyzeNetworkError(t *testing.T) {
	_, err := NewOllamaAnalyzer("http://127.0.0.1:1", "moondream").
		Analyze(context.Background(), bytes.NewReader(jpegHeader), "image/jpeg")
	assert.Error(t, err)
}

func TestOllamaAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewOllamaAnalyzer(server.URL, "moondream").
		Analyze(context.Background(), bytes.NewReader(jpegHeader), "image/jpeg")
	assert.Error(t, err)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("broken") }

func TestOllamaAnalyzeReadError(t *testing.T) {
	_, err := NewOllamaAnalyzer("http://localhost:11434", "moondream").
		Analyze(context.Background(), errReader{}, "image/jpeg")
	assert.Error(t, err)
}
