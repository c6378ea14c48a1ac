package analysis

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotest.tools/assert"

	"github.com/shelfeng/skiaicoach/internal/options"
)

func writeFrames(t *testing.T, dir string, names ...string) {
	t.Helper()
	assert.NilError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		assert.NilError(t, os.WriteFile(filepath.Join(dir, name), []byte("jpegdata"), 0o644))
	}
}

func TestOpenAIAnalyze(t *testing.T) {
	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, r.URL.Path, "/chat/completions")
		assert.Equal(t, r.Header.Get("Authorization"), "Bearer test-key")

		body, err := io.ReadAll(r.Body)
		assert.NilError(t, err)
		assert.NilError(t, json.Unmarshal(body, &captured))

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{{
				"message": map[string]interface{}{
					"content": `{"overall_technique_score": 8, "technical_advice": "不错"}`,
				},
			}},
		}
		assert.NilError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	framesDir := t.TempDir()
	writeFrames(t, framesDir, "frame_001.jpg", "frame_002.jpg")

	coach := newOpenAICoach("gpt-4o",
		options.AIOptions{OpenAIAPIKey: "test-key"}, server.Client())
	coach.baseURL = server.URL

	result, err := coach.Analyze(
		context.Background(), "video.mp4", framesDir, []string{"frame_001.jpg", "frame_002.jpg"})
	assert.NilError(t, err)
	assert.Equal(t, result.OverallTechniqueScore, 8.0)

	assert.Equal(t, captured.Model, "gpt-4o")
	assert.Equal(t, captured.ResponseFormat.Type, "json_object")
	assert.Equal(t, len(captured.Messages), 1)
	// One text part plus one image part per frame.
	content := captured.Messages[0].Content
	assert.Equal(t, len(content), 3)
	assert.Equal(t, content[0].Type, "text")
	assert.Assert(t, strings.Contains(content[0].Text, "滑雪教练"))
	assert.Assert(t, strings.HasPrefix(content[1].ImageURL.URL, "data:image/jpeg;base64,"))
}

func TestOpenAIAnalyzeRequiresFrames(t *testing.T) {
	coach := newOpenAICoach("gpt-4o",
		options.AIOptions{OpenAIAPIKey: "test-key"}, http.DefaultClient)

	_, err := coach.Analyze(context.Background(), "video.mp4", t.TempDir(), nil)
	assert.ErrorContains(t, err, "no frames extracted")
}

func TestOpenAIAnalyzeRequiresCredentials(t *testing.T) {
	framesDir := t.TempDir()
	writeFrames(t, framesDir, "frame_001.jpg")

	coach := newOpenAICoach("gpt-4o", options.AIOptions{}, http.DefaultClient)
	_, err := coach.Analyze(context.Background(), "video.mp4", framesDir, []string{"frame_001.jpg"})
	assert.ErrorContains(t, err, "missing OpenAI or Azure OpenAI API credentials")
}

func TestAzureOpenAIEndpoint(t *testing.T) {
	coach := newOpenAICoach("gpt-4o", options.AIOptions{
		AzureOpenAIEndpoint:   "https://example.openai.azure.com/",
		AzureOpenAIAPIKey:     "azure-key",
		AzureOpenAIAPIVersion: "2024-12-01-preview",
	}, http.DefaultClient)

	endpoint, headers, err := coach.endpoint()
	assert.NilError(t, err)
	assert.Equal(t, endpoint,
		"https://example.openai.azure.com/openai/deployments/gpt-4o/chat/completions?api-version=2024-12-01-preview")
	assert.Equal(t, headers["api-key"], "azure-key")
}
