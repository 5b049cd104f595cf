package story

// AgeBand carries the prose-complexity parameters for one age range. The
// planner and segment prompts are built from these, never from the raw age.
type AgeBand struct {
	Label            string   `json:"label"`
	MaxAge           int      `json:"max_age"`
	PagesPerSegment  int      `json:"pages_per_segment"`
	SentencesPerPage string   `json:"sentences_per_page"`
	WordTarget       int      `json:"word_target"`
	Vocabulary       string   `json:"vocabulary"`
	Themes           []string `json:"themes"`
	ChoiceComplexity string   `json:"choice_complexity"`
}

var ageBands = []AgeBand{
	{
		Label:            "toddler",
		MaxAge:           3,
		PagesPerSegment:  2,
		SentencesPerPage: "1-2",
		WordTarget:       30,
		Vocabulary:       "very simple words, lots of repetition and sounds",
		Themes:           []string{"animals", "colors", "family", "bedtime"},
		ChoiceComplexity: "two big, obvious picks with no wrong answer",
	},
	{
		Label:            "preschool",
		MaxAge:           6,
		PagesPerSegment:  3,
		SentencesPerPage: "2-3",
		WordTarget:       60,
		Vocabulary:       "simple, playful words with a few new ones explained in context",
		Themes:           []string{"friendship", "feelings", "nature", "helping"},
		ChoiceComplexity: "simple choices with clearly different outcomes",
	},
	{
		Label:            "early_reader",
		MaxAge:           9,
		PagesPerSegment:  4,
		SentencesPerPage: "3-4",
		WordTarget:       100,
		Vocabulary:       "familiar words mixed with vivid describing words",
		Themes:           []string{"adventure", "teamwork", "small mysteries", "courage"},
		ChoiceComplexity: "choices with gentle trade-offs to think about",
	},
	{
		Label:            "older_child",
		MaxAge:           0, // open-ended upper band
		PagesPerSegment:  5,
		SentencesPerPage: "4-5",
		WordTarget:       150,
		Vocabulary:       "varied vocabulary with figurative language",
		Themes:           []string{"quests", "responsibility", "friendship under pressure", "discovery"},
		ChoiceComplexity: "choices with meaningful consequences that echo later",
	},
}

// BandForAge maps a child's age to its prose-complexity band. Ages at or
// below each threshold fall into that band; anything above 9 gets the open
// upper band.
func BandForAge(age int) AgeBand {
	for _, b := range ageBands[:len(ageBands)-1] {
		if age <= b.MaxAge {
			return b
		}
	}
	return ageBands[len(ageBands)-1]
}
