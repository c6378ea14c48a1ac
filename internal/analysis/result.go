// Package analysis turns an uploaded ski video into coaching feedback: frames
// are pulled out of the video with ffmpeg and a multimodal model scores the
// skier's technique.
package analysis

// FrameComment is a model observation tied to a single extracted frame.
type FrameComment struct {
	FrameIndex int    `json:"frame_index"`
	Comment    string `json:"comment"`
}

// Result is the coaching feedback produced by a model for one video.
type Result struct {
	OverallTechniqueScore float64        `json:"overall_technique_score"`
	KeyObservations       []string       `json:"key_observations"`
	TechnicalAdvice       string         `json:"technical_advice"`
	FrameByFrameAnalysis  []FrameComment `json:"frame_by_frame_analysis"`

	// DisplayFrames lists the extracted frame file names so the result page
	// can render them; it is attached after analysis, not model output.
	DisplayFrames []string `json:"display_frames,omitempty"`
}
