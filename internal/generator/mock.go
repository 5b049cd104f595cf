package generator

import (
	"context"
	"fmt"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/story"
)

// MockPlanner fabricates deterministic outlines without a model call. It
// backs demo mode when no API key is configured, and the engine tests.
type MockPlanner struct{}

// PlanOutline builds a four-point outline from the request alone.
func (MockPlanner) PlanOutline(_ context.Context, req *interfaces.StoryRequest) (*story.Outline, error) {
	theme := req.Theme
	if theme == "" {
		theme = DefaultTheme
	}
	mood := story.MoodAdventure
	if req.TherapeuticContext != nil {
		mood = story.MoodTherapeutic
	}

	traits := story.Traits()
	o := &story.Outline{
		Title: fmt.Sprintf("Pip and the %s Quest", theme),
		MainCharacter: story.Character{
			Name:          "Pip",
			Species:       "fox",
			AgeDescriptor: "little",
			Appearance:    "a small orange fox with a bright yellow scarf",
			Traits:        []story.Trait{story.TraitCuriosity, story.TraitCourage},
			SpeechStyle:   "in short, excited bursts",
			Arc: story.CharacterArc{
				Start:  "unsure of the big world",
				Middle: "finds help in unexpected friends",
				End:    "walks home taller than before",
			},
		},
		ArcSummary:  fmt.Sprintf("Pip sets out on a %s adventure and learns something on every path", theme),
		EndingTheme: "every path home is brighter with a friend",
		Mood:        mood,
	}

	for i := 0; i < story.MinChoicePoints; i++ {
		cp := story.ChoicePoint{
			Position: i + 1,
			Question: fmt.Sprintf("What should Pip do at the %s crossing?", ordinal(i + 1)),
		}
		for j := 0; j < 2; j++ {
			tr := traits[(i*2+j)%len(traits)]
			cp.Options = append(cp.Options, story.Option{
				Text:      fmt.Sprintf("Try the %s way", []string{"sunny", "shady"}[j]),
				Emoji:     []string{"☀️", "🌲"}[j],
				Trait:     tr,
				Direction: fmt.Sprintf("Pip follows the %s path and leans on %s", []string{"sunny", "shady"}[j], tr),
			})
		}
		o.ChoicePoints = append(o.ChoicePoints, cp)
	}
	return o, nil
}

// MockWriter fabricates deterministic segments without a model call.
type MockWriter struct{}

// GenerateSegment builds band-sized pages straight from the description.
func (MockWriter) GenerateSegment(_ context.Context, req *interfaces.SegmentRequest) (*story.Segment, error) {
	band := story.BandForAge(req.ChildAge)
	name := "the hero"
	if req.Character != nil && req.Character.Name != "" {
		name = req.Character.Name
	}

	emotion := "curious"
	if req.IsEnding {
		emotion = "proud"
	}

	seg := &story.Segment{HasChoice: !req.IsEnding}
	for i := 0; i < band.PagesPerSegment; i++ {
		seg.Pages = append(seg.Pages, story.Page{
			PageNumber:       i + 1,
			Text:             fmt.Sprintf("%s presses on: %s (page %d)", name, req.Description, i+1),
			SceneDescription: fmt.Sprintf("%s in the middle of: %s", name, req.Description),
			ImagePrompt:      fmt.Sprintf("%s, %s, storybook scene", name, req.Description),
			Emotion:          emotion,
		})
	}
	return seg, nil
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "first"
	case 2:
		return "second"
	case 3:
		return "third"
	default:
		return fmt.Sprintf("%dth", n)
	}
}
