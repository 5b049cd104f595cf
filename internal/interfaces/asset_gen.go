package interfaces

import "context"

// IllustrationJob represents a request to illustrate one story page
type IllustrationJob struct {
	StoryID      string `json:"story_id"`
	SegmentID    string `json:"segment_id"`
	PageNumber   int    `json:"page_number"`
	Prompt       string `json:"prompt"`
	Character    string `json:"character,omitempty"`
	Style        string `json:"style,omitempty"`
	ColoringPage bool   `json:"coloring_page,omitempty"`
}

// IllustrationResult represents a finished illustration
type IllustrationResult struct {
	JobID          string `json:"job_id"`
	ImagePath      string `json:"image_path"`
	ImageURL       string `json:"image_url"`
	Cached         bool   `json:"cached"`
	GenerationTime int64  `json:"generation_time_ms"`
	Error          string `json:"error,omitempty"`
}

// GeneratorStatus represents the health of an asset generator
type GeneratorStatus struct {
	Available bool  `json:"available"`
	QueueSize int   `json:"queue_size"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// AssetIndex records where generated assets landed on disk, keyed per asset
// kind, so cached results can be resolved after a process restart.
type AssetIndex interface {
	// SetAssetPath records the path for a generator cache key
	SetAssetPath(ctx context.Context, kind, key, path string) error

	// GetAssetPath returns the recorded path, or "" when unknown
	GetAssetPath(ctx context.Context, kind, key string) (string, error)
}

// IllustrationService defines the interface for the page illustration queue
type IllustrationService interface {
	// Enqueue schedules an illustration job and returns its job id
	Enqueue(ctx context.Context, job *IllustrationJob) (string, error)

	// Result returns the finished result for a job id, if done
	Result(jobID string) (*IllustrationResult, bool)

	// Status returns the current queue status
	Status() *GeneratorStatus
}

// NarrationRequest represents a request to narrate one story page
type NarrationRequest struct {
	StoryID    string  `json:"story_id"`
	SegmentID  string  `json:"segment_id"`
	PageNumber int     `json:"page_number"`
	Text       string  `json:"text"`
	Voice      string  `json:"voice,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
}

// NarrationResult represents rendered narration audio
type NarrationResult struct {
	AudioPath string `json:"audio_path"`
	AudioURL  string `json:"audio_url"`
	Cached    bool   `json:"cached"`
}

// NarrationService defines the interface for read-aloud audio
type NarrationService interface {
	// Narrate renders (or returns cached) audio for a page of text
	Narrate(ctx context.Context, req *NarrationRequest) (*NarrationResult, error)
}
