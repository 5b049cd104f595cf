package generator

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
	"renkioo/server/internal/prompts"
	"renkioo/server/internal/story"
)

const (
	// DefaultTheme is used when a story request names no theme.
	DefaultTheme = "Adventure"
	// DefaultLanguage is used when a story request names no language.
	DefaultLanguage = "en"
)

// Planner turns a story request into a validated outline via one planning
// call. It implements interfaces.OutlinePlanner.
type Planner struct {
	model   llm.ChatModel
	prompts *prompts.Engine
}

// NewPlanner creates an outline planner on top of a chat model.
func NewPlanner(model llm.ChatModel, engine *prompts.Engine) *Planner {
	return &Planner{model: model, prompts: engine}
}

// PlanOutline renders the planning prompt, runs the model, and parses the
// response into an Outline. Responses that cannot be shaped into a valid
// outline fail with a generation parse error; nothing is retried here.
func (p *Planner) PlanOutline(ctx context.Context, req *interfaces.StoryRequest) (*story.Outline, error) {
	theme := req.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	lang := req.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	band := story.BandForAge(req.ChildAge)

	user, err := p.prompts.Render(prompts.TmplOutlinePlan, map[string]string{
		"child_age":         fmt.Sprintf("%d", req.ChildAge),
		"child_line":        childLine(req.ChildName),
		"theme":             theme,
		"language_line":     languageLine(lang),
		"therapeutic_block": therapeuticBlock(req.TherapeuticContext),
		"vocabulary":        band.Vocabulary,
		"age_themes":        strings.Join(band.Themes, ", "),
		"min_choice_points": fmt.Sprintf("%d", story.MinChoicePoints),
		"trait_list":        traitList(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := p.model.Chat(ctx, llm.ChatRequest{
		System:      prompts.SystemPlanner,
		User:        user,
		Temperature: 0.9,
		MaxTokens:   3000,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("plan outline: %w", err)
	}

	outline, err := llm.ExtractJSON[story.Outline](raw, func(o *story.Outline) error {
		return o.Validate()
	})
	if err != nil {
		return nil, fmt.Errorf("plan outline: %w", err)
	}

	// Positions are presentation metadata; renumber whatever the model sent
	// so they always match outline order.
	for i := range outline.ChoicePoints {
		outline.ChoicePoints[i].Position = i + 1
	}

	log.Infof("[Planner] planned %q: %d choice points, mood %s",
		outline.Title, len(outline.ChoicePoints), outline.Mood)
	return outline, nil
}

func childLine(name string) string {
	if name == "" {
		return ""
	}
	return fmt.Sprintf("The child's name is %s; the story may speak to them by name.\n", name)
}

func languageLine(lang string) string {
	switch lang {
	case "tr":
		return "Write every child-facing text in Turkish. Keep JSON keys in English."
	case "en", "":
		return "Write every child-facing text in English."
	default:
		return fmt.Sprintf("Write every child-facing text in the language tagged %q. Keep JSON keys in English.", lang)
	}
}

func therapeuticBlock(tc *story.TherapeuticContext) string {
	if tc == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "This story carries a gentle therapeutic goal around %q.\n", tc.Concern)
	if len(tc.RecommendedTraits) > 0 {
		traits := make([]string, len(tc.RecommendedTraits))
		for i, tr := range tc.RecommendedTraits {
			traits[i] = string(tr)
		}
		fmt.Fprintf(&b, "Favor options that exercise: %s.\n", strings.Join(traits, ", "))
	}
	if tc.CopingMechanism != "" {
		fmt.Fprintf(&b, "Let the character model this coping idea somewhere: %s.\n", tc.CopingMechanism)
	}
	if len(tc.TopicsToAvoid) > 0 {
		fmt.Fprintf(&b, "Avoid entirely: %s.\n", strings.Join(tc.TopicsToAvoid, ", "))
	}
	if tc.Explanation != "" {
		fmt.Fprintf(&b, "Background from the drawing analysis: %s\n", tc.Explanation)
	}
	return b.String()
}

func traitList() string {
	traits := story.Traits()
	names := make([]string, len(traits))
	for i, tr := range traits {
		names[i] = string(tr)
	}
	return strings.Join(names, ", ")
}
