package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/options"
)

const openAIBaseURL = "https://api.openai.com/v1"

// openAICoach sends extracted frames to an OpenAI (or Azure OpenAI)
// chat-completions model as base64 images.
type openAICoach struct {
	model  string
	ai     options.AIOptions
	client *http.Client

	// baseURL overrides the standard endpoint in tests.
	baseURL string
}

func newOpenAICoach(model string, ai options.AIOptions, client *http.Client) *openAICoach {
	return &openAICoach{model: model, ai: ai, client: client}
}

func (c *openAICoach) Name() string { return "openai" }

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze implements Coach. The frame files are required: without them there
// is nothing to send to the model.
func (c *openAICoach) Analyze(
	ctx context.Context, videoPath, framesDir string, frames []string,
) (*Result, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames extracted; check that ffmpeg is installed")
	}
	if c.ai.OpenAIAPIKey == "" && (c.ai.AzureOpenAIEndpoint == "" || c.ai.AzureOpenAIAPIKey == "") {
		return nil, errors.New("missing OpenAI or Azure OpenAI API credentials")
	}

	content := []chatContentPart{{
		Type: "text",
		Text: fmt.Sprintf(coachPrompt, "视频帧序列"),
	}}
	for _, frame := range frames {
		encoded, err := encodeImage(filepath.Join(framesDir, frame))
		if err != nil {
			return nil, err
		}
		content = append(content, chatContentPart{
			Type:     "image_url",
			ImageURL: &chatImageURL{URL: "data:image/jpeg;base64," + encoded},
		})
	}

	req := chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: content}},
	}
	req.ResponseFormat.Type = "json_object"

	log.Infof("sending %d frames to model %s", len(frames), c.model)
	body, err := c.post(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decoding chat completion response")
	}
	if resp.Error != nil {
		return nil, errors.Errorf("chat completion error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}
	return decodeResult(resp.Choices[0].Message.Content)
}

func (c *openAICoach) post(ctx context.Context, payload chatRequest) ([]byte, error) {
	endpoint, headers, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding chat completion request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "building chat completion request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling chat completion endpoint")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading chat completion response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("chat completion returned %s: %s", resp.Status, snippet(string(body)))
	}
	return body, nil
}

// endpoint returns the URL and auth headers for either Azure OpenAI (when an
// endpoint and key are configured) or the standard OpenAI API.
func (c *openAICoach) endpoint() (string, map[string]string, error) {
	if c.ai.AzureOpenAIEndpoint != "" && c.ai.AzureOpenAIAPIKey != "" {
		base := strings.TrimSuffix(c.ai.AzureOpenAIEndpoint, "/")
		endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			base, url.PathEscape(c.model), url.QueryEscape(c.ai.AzureOpenAIAPIVersion))
		log.Infof("using Azure OpenAI service at %s", base)
		return endpoint, map[string]string{"api-key": c.ai.AzureOpenAIAPIKey}, nil
	}
	if c.ai.OpenAIAPIKey == "" {
		return "", nil, errors.New("OPENAI_API_KEY is not set")
	}
	base := c.baseURL
	if base == "" {
		base = openAIBaseURL
	}
	return base + "/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.ai.OpenAIAPIKey}, nil
}

func encodeImage(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading frame %s", path)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
