package analysis

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// FrameExtractor pulls still frames out of a video by shelling out to ffmpeg.
type FrameExtractor struct {
	// Binary is the ffmpeg executable; a bare name is resolved on PATH.
	Binary string

	// commandFactory is swapped out in tests.
	commandFactory func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewFrameExtractor returns an extractor using the given ffmpeg binary.
func NewFrameExtractor(binary string) *FrameExtractor {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FrameExtractor{Binary: binary}
}

// Check verifies the ffmpeg binary can be found.
func (f *FrameExtractor) Check() (string, error) {
	path, err := exec.LookPath(f.Binary)
	if err != nil {
		return "", errors.Wrapf(err, "ffmpeg binary %q not found", f.Binary)
	}
	return path, nil
}

// Extract samples the video at one frame per second into outputDir and
// returns up to numFrames evenly spaced frame file names, sorted.
func (f *FrameExtractor) Extract(
	ctx context.Context, videoPath, outputDir string, numFrames int,
) ([]string, error) {
	if numFrames <= 0 {
		return nil, errors.Errorf("invalid frame count %d", numFrames)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating frame output dir")
	}

	pattern := filepath.Join(outputDir, "frame_%03d.jpg")
	args := []string{"-i", videoPath, "-vf", "fps=1", "-y", pattern}

	factory := f.commandFactory
	if factory == nil {
		factory = exec.CommandContext
	}
	cmd := factory(ctx, f.Binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(err, "ffmpeg frame extraction failed: %s", tail(string(out)))
	}

	frames, err := listFrames(outputDir)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		log.Warnf("ffmpeg produced no frames for %s", videoPath)
		return nil, nil
	}
	return sampleFrames(frames, numFrames), nil
}

func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "listing extracted frames")
	}
	var frames []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "frame_") && strings.HasSuffix(name, ".jpg") {
			frames = append(frames, name)
		}
	}
	sort.Strings(frames)
	return frames, nil
}

// sampleFrames picks n frames evenly across the full set. With n or fewer
// frames available the set is returned unchanged.
func sampleFrames(frames []string, n int) []string {
	if len(frames) <= n {
		return frames
	}
	step := float64(len(frames)) / float64(n)
	sampled := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sampled = append(sampled, frames[int(float64(i)*step)])
	}
	return sampled
}

// tail trims command output down to something loggable.
func tail(s string) string {
	s = strings.TrimSpace(s)
	const max = 512
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max:]
}
