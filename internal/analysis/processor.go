package analysis

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/shelfeng/skiaicoach/internal/options"
)

// Processor runs the full analysis pipeline for a single video: extract
// frames, pick a coach for the configured model, analyze, and attach the
// frames to the result for display.
type Processor struct {
	extractor *FrameExtractor
	framesDir string
	numFrames int
	model     string
	ai        options.AIOptions

	// coachForModel is swapped out in tests.
	coachForModel func(model string) Coach
}

// NewProcessor builds a processor from the server options.
func NewProcessor(opts *options.Options) *Processor {
	client := &http.Client{Timeout: 10 * time.Minute}
	ai := opts.AI
	return &Processor{
		extractor: NewFrameExtractor(opts.FFmpegBinary),
		framesDir: opts.FramesDir,
		numFrames: opts.FramesToExtract,
		model:     opts.ModelName,
		ai:        ai,
		coachForModel: func(model string) Coach {
			return ForModel(model, ai, client)
		},
	}
}

// Process analyzes the video for the given job and returns the coaching
// result. modelName overrides the configured default when non-empty.
func (p *Processor) Process(
	ctx context.Context, jobID, videoPath, modelName string,
) (*Result, error) {
	model := modelName
	if model == "" {
		model = p.model
	}

	framesDir := filepath.Join(p.framesDir, jobID)
	log.Infof("extracting frames to %s", framesDir)
	frames, err := p.extractor.Extract(ctx, videoPath, framesDir, p.numFrames)
	if err != nil {
		// Frame extraction is best effort: Gemini analyzes the raw video, so
		// a missing ffmpeg should not kill the job outright.
		log.WithError(err).Warn("frame extraction failed")
	}

	coach := p.coachForModel(model)
	log.Infof("using coach %s with model %s", coach.Name(), model)

	result, err := coach.Analyze(ctx, videoPath, framesDir, frames)
	if err != nil {
		return nil, err
	}
	result.DisplayFrames = frames
	return result, nil
}
