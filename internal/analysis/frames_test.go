package analysis

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"gotest.tools/assert"
)

func TestSampleFrames(t *testing.T) {
	tests := []struct {
		name     string
		frames   int
		n        int
		expected []int
	}{
		{name: "fewer than requested", frames: 3, n: 10, expected: []int{0, 1, 2}},
		{name: "exact", frames: 4, n: 4, expected: []int{0, 1, 2, 3}},
		{name: "downsample evenly", frames: 10, n: 5, expected: []int{0, 2, 4, 6, 8}},
		{name: "downsample uneven", frames: 7, n: 3, expected: []int{0, 2, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames := make([]string, tt.frames)
			for i := range frames {
				frames[i] = fmt.Sprintf("frame_%03d.jpg", i)
			}

			sampled := sampleFrames(frames, tt.n)
			expected := make([]string, 0, len(tt.expected))
			for _, idx := range tt.expected {
				expected = append(expected, fmt.Sprintf("frame_%03d.jpg", idx))
			}
			assert.DeepEqual(t, sampled, expected)
		})
	}
}

func TestListFramesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame_002.jpg", "frame_001.jpg", "notes.txt", "frame_bad.png"} {
		assert.NilError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	frames, err := listFrames(dir)
	assert.NilError(t, err)
	assert.DeepEqual(t, frames, []string{"frame_001.jpg", "frame_002.jpg"})
}

func TestExtractWithFakeFFmpeg(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "frames")

	extractor := NewFrameExtractor("ffmpeg")
	extractor.commandFactory = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		// Stand in for ffmpeg: produce frames matching the output pattern.
		script := fmt.Sprintf(
			"mkdir -p %[1]s && for i in 001 002 003 004; do : > %[1]s/frame_$i.jpg; done",
			outputDir)
		return exec.CommandContext(ctx, "sh", "-c", script)
	}

	frames, err := extractor.Extract(context.Background(), "video.mp4", outputDir, 2)
	assert.NilError(t, err)
	assert.DeepEqual(t, frames, []string{"frame_001.jpg", "frame_003.jpg"})
}

func TestExtractFailureSurfacesOutput(t *testing.T) {
	extractor := NewFrameExtractor("ffmpeg")
	extractor.commandFactory = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "echo 'no such codec' >&2; exit 1")
	}

	_, err := extractor.Extract(context.Background(), "video.mp4", t.TempDir(), 2)
	assert.ErrorContains(t, err, "no such codec")
}
