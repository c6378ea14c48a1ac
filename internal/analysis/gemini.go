package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/options"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiCoach uploads the whole video to the Gemini file API, waits for
// server-side processing, then asks the model for an analysis.
type geminiCoach struct {
	model  string
	ai     options.AIOptions
	client *http.Client

	// baseURL overrides the API host in tests.
	baseURL string
	// pollInterval is how long to wait between file state checks.
	pollInterval time.Duration
}

func newGeminiCoach(model string, ai options.AIOptions, client *http.Client) *geminiCoach {
	return &geminiCoach{
		model:        model,
		ai:           ai,
		client:       client,
		pollInterval: 2 * time.Second,
	}
}

func (c *geminiCoach) Name() string { return "gemini" }

type geminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	State    string `json:"state"`
	MimeType string `json:"mimeType"`
}

type geminiGenerateRequest struct {
	Contents []struct {
		Parts []geminiPart `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"response_mime_type"`
	} `json:"generationConfig"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"file_data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze implements Coach. Gemini consumes the video directly, so extracted
// frames are only used for the result page, not for the model call.
func (c *geminiCoach) Analyze(
	ctx context.Context, videoPath, framesDir string, frames []string,
) (*Result, error) {
	if c.ai.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not set")
	}

	file, err := c.upload(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	file, err = c.waitUntilActive(ctx, file)
	if err != nil {
		return nil, err
	}
	log.Infof("video ready for analysis: %s", file.URI)

	return c.generate(ctx, file)
}

// upload pushes the raw video bytes to the Gemini file API.
func (c *geminiCoach) upload(ctx context.Context, videoPath string) (*geminiFile, error) {
	f, err := os.Open(videoPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening video %s", videoPath)
	}
	defer func() { _ = f.Close() }()

	endpoint := fmt.Sprintf("%s/upload/v1beta/files?key=%s", c.base(), c.ai.GeminiAPIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, f)
	if err != nil {
		return nil, errors.Wrap(err, "building file upload request")
	}
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("Content-Type", "video/mp4")

	log.Infof("uploading %s to Gemini", videoPath)
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		File geminiFile `json:"file"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, errors.Wrap(err, "decoding file upload response")
	}
	if wrapper.File.Name == "" {
		return nil, errors.Errorf("file upload returned no file: %s", snippet(string(body)))
	}
	return &wrapper.File, nil
}

// waitUntilActive polls the uploaded file until Gemini finishes server-side
// processing.
func (c *geminiCoach) waitUntilActive(ctx context.Context, file *geminiFile) (*geminiFile, error) {
	for file.State == "PROCESSING" {
		log.Info("waiting for Gemini video processing...")
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "waiting for video processing")
		case <-time.After(c.pollInterval):
		}

		endpoint := fmt.Sprintf("%s/v1beta/%s?key=%s", c.base(), file.Name, c.ai.GeminiAPIKey)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, errors.Wrap(err, "building file state request")
		}
		body, err := c.do(req)
		if err != nil {
			return nil, err
		}
		var refreshed geminiFile
		if err := json.Unmarshal(body, &refreshed); err != nil {
			return nil, errors.Wrap(err, "decoding file state response")
		}
		file = &refreshed
	}
	if file.State == "FAILED" {
		return nil, errors.New("video processing failed")
	}
	return file, nil
}

func (c *geminiCoach) generate(ctx context.Context, file *geminiFile) (*Result, error) {
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	var payload geminiGenerateRequest
	payload.Contents = append(payload.Contents, struct {
		Parts []geminiPart `json:"parts"`
	}{Parts: []geminiPart{
		{Text: fmt.Sprintf(coachPrompt, "视频")},
		{FileData: &geminiFileData{MimeType: mimeType, FileURI: file.URI}},
	}})
	payload.GenerationConfig.ResponseMimeType = "application/json"

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding generate request")
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.base(), c.model, c.ai.GeminiAPIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "building generate request")
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp geminiGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decoding generate response")
	}
	if resp.Error != nil {
		return nil, errors.Errorf("generate content error: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.New("generate content returned no candidates")
	}
	return decodeResult(resp.Candidates[0].Content.Parts[0].Text)
}

func (c *geminiCoach) base() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return geminiBaseURL
}

func (c *geminiCoach) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling Gemini API")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading Gemini response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Gemini API returned %s: %s", resp.Status, snippet(string(body)))
	}
	return body, nil
}
