package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutlineValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Outline)
		wantErr string
	}{
		{
			name:   "valid outline passes",
			mutate: func(o *Outline) {},
		},
		{
			name:    "missing title",
			mutate:  func(o *Outline) { o.Title = "" },
			wantErr: "missing title",
		},
		{
			name:    "missing character name",
			mutate:  func(o *Outline) { o.MainCharacter.Name = "" },
			wantErr: "main character",
		},
		{
			name:    "no choice points",
			mutate:  func(o *Outline) { o.ChoicePoints = nil },
			wantErr: "no choice points",
		},
		{
			name:    "unknown mood",
			mutate:  func(o *Outline) { o.Mood = "gloomy" },
			wantErr: "unknown mood",
		},
		{
			name:    "too few options",
			mutate:  func(o *Outline) { o.ChoicePoints[1].Options = o.ChoicePoints[1].Options[:1] },
			wantErr: "want 2-3",
		},
		{
			name: "too many options",
			mutate: func(o *Outline) {
				opts := o.ChoicePoints[0].Options
				o.ChoicePoints[0].Options = append(opts, opts[0], opts[1])
			},
			wantErr: "want 2-3",
		},
		{
			name:    "option trait outside the closed set",
			mutate:  func(o *Outline) { o.ChoicePoints[2].Options[0].Trait = "ambition" },
			wantErr: "unknown trait",
		},
		{
			name:    "option missing story direction",
			mutate:  func(o *Outline) { o.ChoicePoints[0].Options[1].Direction = "" },
			wantErr: "missing story direction",
		},
		{
			name:    "character trait outside the closed set",
			mutate:  func(o *Outline) { o.MainCharacter.Traits = []Trait{"stubbornness"} },
			wantErr: "unknown trait",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOutline(4, 2)
			tt.mutate(o)
			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOutlineAllTraits(t *testing.T) {
	o := testOutline(4, 2)

	traits := o.AllTraits()
	require.Len(t, traits, 8) // 4 points x 2 options, duplicates preserved

	for _, tr := range traits {
		assert.True(t, IsValidTrait(tr), "trait %q escaped the closed set", tr)
	}
}

func TestMoodValidation(t *testing.T) {
	for _, m := range []Mood{MoodHappy, MoodAdventure, MoodCalm, MoodMagical, MoodTherapeutic} {
		assert.True(t, IsValidMood(m))
	}
	assert.False(t, IsValidMood("spooky"))
	assert.False(t, IsValidMood(""))
}
