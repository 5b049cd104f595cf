package interfaces

import (
	"context"

	"renkioo/server/internal/story"
)

// StoryRequest represents a request to create a new interactive story
type StoryRequest struct {
	ChildAge           int                       `json:"child_age" validate:"required,gte=1,lte=14"`
	ChildID            string                    `json:"child_id,omitempty"`
	ChildName          string                    `json:"child_name,omitempty"`
	Theme              string                    `json:"theme,omitempty"`
	Language           string                    `json:"language,omitempty"`
	IllustrationStyle  string                    `json:"illustration_style,omitempty"`
	TherapeuticContext *story.TherapeuticContext `json:"therapeutic_context,omitempty"`
}

// SegmentRequest represents a request to write one story segment
type SegmentRequest struct {
	Character       *story.Character     `json:"character"`
	StyleContext    string               `json:"style_context"`
	PreviousChoices []story.ChoiceRecord `json:"previous_choices"`
	Description     string               `json:"description"`
	IsEnding        bool                 `json:"is_ending"`
	Language        string               `json:"language"`
	ChildAge        int                  `json:"child_age"`
}

// OutlinePlanner defines the outline planning boundary. Implementations turn
// a story request into a validated Outline or fail with a parse error when
// the model output cannot be shaped into one.
type OutlinePlanner interface {
	PlanOutline(ctx context.Context, req *StoryRequest) (*story.Outline, error)
}

// SegmentGenerator defines the segment writing boundary. Deterministic in
// shape (pages with text, scene description, image prompt, emotion), never
// in content; callers mock this in tests.
type SegmentGenerator interface {
	GenerateSegment(ctx context.Context, req *SegmentRequest) (*story.Segment, error)
}
