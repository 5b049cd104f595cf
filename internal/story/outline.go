package story

import (
	"fmt"
)

// Mood tags an outline with the overall feel the planner chose for it.
type Mood string

const (
	MoodHappy       Mood = "happy"
	MoodAdventure   Mood = "adventure"
	MoodCalm        Mood = "calm"
	MoodMagical     Mood = "magical"
	MoodTherapeutic Mood = "therapeutic"
)

// validMoods is the closed set of moods the planner may return.
var validMoods = map[Mood]bool{
	MoodHappy:       true,
	MoodAdventure:   true,
	MoodCalm:        true,
	MoodMagical:     true,
	MoodTherapeutic: true,
}

// IsValidMood reports whether m is a known mood tag.
func IsValidMood(m Mood) bool {
	return validMoods[m]
}

// CharacterArc describes the three-phase emotional journey of the main character.
type CharacterArc struct {
	Start  string `json:"start"`
	Middle string `json:"middle"`
	End    string `json:"end"`
}

// Character is the story's main character as authored by the planner.
type Character struct {
	Name          string       `json:"name"`
	Species       string       `json:"species"`
	AgeDescriptor string       `json:"age_descriptor"`
	Appearance    string       `json:"appearance"`
	Traits        []Trait      `json:"personality_traits"`
	SpeechStyle   string       `json:"speech_style"`
	Arc           CharacterArc `json:"arc"`
}

// Option is one selectable choice at a decision point. Traits are descriptive
// metadata for later reporting, never branching conditions.
type Option struct {
	Text      string `json:"text"`
	Emoji     string `json:"emoji"`
	Trait     Trait  `json:"trait"`
	Direction string `json:"story_direction"`
}

// ChoicePoint is a decision moment in the outline, positioned 1-based in
// outline order, with 2-3 options.
type ChoicePoint struct {
	Position int      `json:"position"`
	Question string   `json:"question"`
	Options  []Option `json:"options"`
}

// Outline is the planner-authored blueprint for one story, produced before
// any page text exists. It is the JSON contract of the outline planning call.
type Outline struct {
	Title             string        `json:"title"`
	MainCharacter     Character     `json:"main_character"`
	ArcSummary        string        `json:"story_arc"`
	ChoicePoints      []ChoicePoint `json:"choice_points"`
	ConvergencePoints []string      `json:"convergence_points"`
	EndingTheme       string        `json:"ending_theme"`
	Mood              Mood          `json:"mood"`
}

// MinChoicePoints is the count the planner is asked for. Outlines with fewer
// are accepted with a warning; see BuildGraph.
const MinChoicePoints = 4

// Validate checks an outline immediately after it crosses the generation
// boundary, before any core logic runs on it. It enforces the structural
// contract: a titled story, a named character, at least one choice point,
// 2-3 options per point, and every option trait drawn from the closed set.
func (o *Outline) Validate() error {
	if o.Title == "" {
		return fmt.Errorf("outline missing title")
	}
	if o.MainCharacter.Name == "" {
		return fmt.Errorf("outline missing main character name")
	}
	if len(o.ChoicePoints) == 0 {
		return fmt.Errorf("outline has no choice points")
	}
	if !IsValidMood(o.Mood) {
		return fmt.Errorf("unknown mood %q", o.Mood)
	}
	for i, cp := range o.ChoicePoints {
		if cp.Question == "" {
			return fmt.Errorf("choice point %d missing question", i+1)
		}
		if len(cp.Options) < 2 || len(cp.Options) > 3 {
			return fmt.Errorf("choice point %d has %d options, want 2-3", i+1, len(cp.Options))
		}
		for j, opt := range cp.Options {
			if opt.Text == "" {
				return fmt.Errorf("choice point %d option %d missing text", i+1, j)
			}
			if !IsValidTrait(opt.Trait) {
				return fmt.Errorf("choice point %d option %d has unknown trait %q", i+1, j, opt.Trait)
			}
			if opt.Direction == "" {
				return fmt.Errorf("choice point %d option %d missing story direction", i+1, j)
			}
		}
	}
	for _, tr := range o.MainCharacter.Traits {
		if !IsValidTrait(tr) {
			return fmt.Errorf("main character has unknown trait %q", tr)
		}
	}
	return nil
}

// AllTraits returns every trait tag appearing across the outline's options,
// in outline order, duplicates preserved. Used for post-story reporting.
func (o *Outline) AllTraits() []Trait {
	var traits []Trait
	for _, cp := range o.ChoicePoints {
		for _, opt := range cp.Options {
			traits = append(traits, opt.Trait)
		}
	}
	return traits
}
