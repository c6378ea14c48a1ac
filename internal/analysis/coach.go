package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/shelfeng/skiaicoach/internal/options"
)

// Coach produces coaching feedback for a ski video. Implementations wrap a
// specific multimodal model API.
type Coach interface {
	// Name identifies the coach implementation for logging.
	Name() string
	// Analyze scores the skier's technique. Frames are file names inside
	// framesDir; some coaches consume the frames, others the video itself.
	Analyze(ctx context.Context, videoPath, framesDir string, frames []string) (*Result, error)
}

// coachPrompt is the coaching instruction sent to every model. The produced
// analysis is in Simplified Chinese; %s names what the model is looking at
// (the video or a frame sequence).
const coachPrompt = `你是一位专业的滑雪教练。请分析提供的%s。
重点关注：
1. 转弯的形状和对称性 (Turn shape and symmetry)
2. 立刃角度和压力 (Edge angle and pressure)
3. 上身姿势和平衡 (Upper body posture and balance)

请用 **简体中文 (Simplified Chinese)** 提供分析结果。

请提供以下 JSON 格式的输出：
{
    "overall_technique_score": (1-10 之间的数字),
    "key_observations": ["观察点 1", "观察点 2"],
    "technical_advice": "详细的改进建议...",
    "frame_by_frame_analysis": [
        {"frame_index": 0, "comment": "转弯入弯阶段..."},
        ...
    ]
}`

// ForModel picks the coach implementation for a model name: anything that
// looks like a GPT model goes to OpenAI, everything else to Gemini.
func ForModel(model string, ai options.AIOptions, client *http.Client) Coach {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if strings.Contains(strings.ToLower(model), "gpt") {
		return newOpenAICoach(model, ai, client)
	}
	return newGeminiCoach(model, ai, client)
}

// decodeResult parses a model's JSON reply into a Result. Models sometimes
// wrap the JSON in a markdown fence; strip it before decoding.
func decodeResult(text string) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	var result Result
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, errors.Wrapf(err, "failed to parse analysis result: %s", snippet(trimmed))
	}
	return &result, nil
}

func snippet(s string) string {
	const max = 200
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
