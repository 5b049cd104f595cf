package story

// Page is one screen of a materialized segment. ImagePrompt feeds the
// illustration pipeline; Emotion feeds narration voice hints.
type Page struct {
	PageNumber       int    `json:"page_number"`
	Text             string `json:"text"`
	SceneDescription string `json:"scene_description"`
	ImagePrompt      string `json:"image_prompt"`
	Emotion          string `json:"emotion"`
}

// Segment is the written realization of a segment descriptor. HasChoice is
// false exactly when the segment is an ending.
type Segment struct {
	ID        string `json:"id"`
	Pages     []Page `json:"pages"`
	HasChoice bool   `json:"has_choice"`
}

// Text returns the full segment prose as a single string, pages joined by
// blank lines. Used for narration and memory summaries.
func (s *Segment) Text() string {
	out := ""
	for i, p := range s.Pages {
		if i > 0 {
			out += "\n\n"
		}
		out += p.Text
	}
	return out
}

// ChoiceRecord is one entry of a session's decision history: what was asked,
// what the child picked, and the trait that pick exercised.
type ChoiceRecord struct {
	Question   string `json:"question"`
	ChosenText string `json:"chosen_text"`
	Trait      Trait  `json:"trait"`
}
