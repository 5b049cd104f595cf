package analysis

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/llm"
	"renkioo/server/internal/prompts"
	"renkioo/server/internal/story"
)

// NoConcern is the concern value meaning the drawing flagged nothing.
const NoConcern = "none"

// EmotionReading is one emotion the analyst read from the drawing.
type EmotionReading struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// DrawingAnalysis is the typed result of one vision pass over a drawing.
type DrawingAnalysis struct {
	Summary                   string           `json:"summary"`
	Emotions                  []EmotionReading `json:"emotions"`
	Themes                    []string         `json:"themes"`
	DevelopmentalObservations []string         `json:"developmental_observations"`
	Recommendations           []string         `json:"recommendations"`
	Concern                   string           `json:"concern"`
	ConcernExplanation        string           `json:"concern_explanation"`
}

// HasConcern reports whether the analysis flagged a concern.
func (a *DrawingAnalysis) HasConcern() bool {
	return a.Concern != "" && a.Concern != NoConcern
}

// Validate checks the model output against the closed concern set and the
// confidence range.
func (a *DrawingAnalysis) Validate() error {
	if strings.TrimSpace(a.Summary) == "" {
		return fmt.Errorf("missing summary")
	}
	for _, e := range a.Emotions {
		if e.Confidence < 0 || e.Confidence > 1 {
			return fmt.Errorf("emotion %q confidence %v out of range", e.Name, e.Confidence)
		}
	}
	if a.Concern != "" && a.Concern != NoConcern && !story.IsValidConcern(story.Concern(a.Concern)) {
		return fmt.Errorf("unknown concern %q", a.Concern)
	}
	return nil
}

// AnalysisRequest carries one drawing to analyze.
type AnalysisRequest struct {
	ChildName string `json:"child_name" validate:"omitempty,max=64"`
	ChildAge  int    `json:"child_age" validate:"required,gte=1,lte=14"`
	ImageURL  string `json:"image_url" validate:"required,url"`
	Language  string `json:"language" validate:"omitempty,oneof=en tr"`
}

// Analyzer runs a child's drawing through the vision model and turns any
// flagged concern into planning context for a therapeutic story.
type Analyzer struct {
	model   llm.ChatModel
	prompts *prompts.Engine
}

// NewAnalyzer creates a drawing analyzer.
func NewAnalyzer(model llm.ChatModel, engine *prompts.Engine) *Analyzer {
	return &Analyzer{model: model, prompts: engine}
}

// AnalyzeDrawing runs one vision pass and returns the typed analysis.
func (an *Analyzer) AnalyzeDrawing(ctx context.Context, req *AnalysisRequest) (*DrawingAnalysis, error) {
	prompt, err := an.prompts.Render(prompts.TmplDrawingAnalysis, map[string]string{
		"child_age":     fmt.Sprintf("%d", req.ChildAge),
		"language_line": languageLine(req.Language),
	})
	if err != nil {
		return nil, err
	}

	raw, err := an.model.Vision(ctx, llm.VisionRequest{
		System:      prompts.SystemDrawingAnalyst,
		Instruction: prompt,
		ImageURL:    req.ImageURL,
		Temperature: 0.4,
		MaxTokens:   1500,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("drawing analysis call: %w", err)
	}

	analysis, err := llm.ExtractJSON[DrawingAnalysis](raw, (*DrawingAnalysis).Validate)
	if err != nil {
		return nil, err
	}
	if analysis.Concern == "" {
		analysis.Concern = NoConcern
	}

	log.Infof("[Analysis] drawing analyzed (age %d, concern %s)", req.ChildAge, analysis.Concern)
	return analysis, nil
}

// TherapeuticContext derives story-planning context from a flagged concern,
// or nil when the analysis flagged nothing. The looked-up explanation is
// enriched with the analyst's own sentence when one was given.
func TherapeuticContext(analysis *DrawingAnalysis) *story.TherapeuticContext {
	if !analysis.HasConcern() {
		return nil
	}
	tc, ok := story.ContextForConcern(story.Concern(analysis.Concern))
	if !ok {
		return nil
	}
	if detail := strings.TrimSpace(analysis.ConcernExplanation); detail != "" {
		suffix := "The drawing suggests: " + detail
		if tc.Explanation == "" {
			tc.Explanation = suffix
		} else {
			tc.Explanation += " " + suffix
		}
	}
	return &tc
}

// MemorySummary condenses an analysis into one line for the assistant's
// memory store.
func MemorySummary(req *AnalysisRequest, analysis *DrawingAnalysis) string {
	name := req.ChildName
	if name == "" {
		name = "the child"
	}
	line := fmt.Sprintf("%s drew a picture: %s", name, analysis.Summary)
	if len(analysis.Themes) > 0 {
		line += " Themes: " + strings.Join(analysis.Themes, ", ") + "."
	}
	if analysis.HasConcern() {
		line += " It hinted at " + analysis.Concern + "."
	}
	return line
}

func languageLine(language string) string {
	switch language {
	case "tr":
		return "Write every text field in Turkish."
	case "", "en":
		return "Write every text field in English."
	default:
		return fmt.Sprintf("Write every text field in the language tagged %q.", language)
	}
}
