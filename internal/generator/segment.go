package generator

import (
	"context"
	"fmt"
	"strings"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
	"renkioo/server/internal/prompts"
	"renkioo/server/internal/story"
)

// SegmentWriter materializes one planned segment into pages via one writing
// call. It implements interfaces.SegmentGenerator.
type SegmentWriter struct {
	model   llm.ChatModel
	prompts *prompts.Engine
}

// NewSegmentWriter creates a segment writer on top of a chat model.
func NewSegmentWriter(model llm.ChatModel, engine *prompts.Engine) *SegmentWriter {
	return &SegmentWriter{model: model, prompts: engine}
}

// segmentPayload is the JSON contract of the writing call. The segment id
// and choice flag are caller-side knowledge, not model output.
type segmentPayload struct {
	Pages []story.Page `json:"pages"`
}

// GenerateSegment renders the writing prompt, runs the model, and parses the
// pages. Shape failures surface as generation parse errors.
func (w *SegmentWriter) GenerateSegment(ctx context.Context, req *interfaces.SegmentRequest) (*story.Segment, error) {
	lang := req.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	band := story.BandForAge(req.ChildAge)

	user, err := w.prompts.Render(prompts.TmplSegmentWrite, map[string]string{
		"character_block":    characterBlock(req.Character),
		"style_context":      req.StyleContext,
		"previous_choices":   choiceHistory(req.PreviousChoices),
		"description":        req.Description,
		"ending_line":        endingLine(req.IsEnding),
		"language_line":      languageLine(lang),
		"pages_per_segment":  fmt.Sprintf("%d", band.PagesPerSegment),
		"sentences_per_page": band.SentencesPerPage,
		"word_target":        fmt.Sprintf("%d", band.WordTarget),
		"vocabulary":         band.Vocabulary,
	})
	if err != nil {
		return nil, err
	}

	raw, err := w.model.Chat(ctx, llm.ChatRequest{
		System:      prompts.SystemSegmentWriter,
		User:        user,
		Temperature: 0.8,
		MaxTokens:   2500,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate segment: %w", err)
	}

	payload, err := llm.ExtractJSON[segmentPayload](raw, func(p *segmentPayload) error {
		if len(p.Pages) == 0 {
			return fmt.Errorf("segment has no pages")
		}
		for i, page := range p.Pages {
			if strings.TrimSpace(page.Text) == "" {
				return fmt.Errorf("page %d has no text", i+1)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate segment: %w", err)
	}

	seg := &story.Segment{
		Pages:     payload.Pages,
		HasChoice: !req.IsEnding,
	}
	for i := range seg.Pages {
		seg.Pages[i].PageNumber = i + 1
	}
	return seg, nil
}

func characterBlock(c *story.Character) string {
	if c == nil {
		return "an unnamed friendly hero"
	}
	parts := []string{c.Name}
	if c.Species != "" {
		desc := c.Species
		if c.AgeDescriptor != "" {
			desc = c.AgeDescriptor + " " + desc
		}
		parts = append(parts, "a "+desc)
	}
	if c.Appearance != "" {
		parts = append(parts, c.Appearance)
	}
	if c.SpeechStyle != "" {
		parts = append(parts, "speaks "+c.SpeechStyle)
	}
	return strings.Join(parts, ", ")
}

func choiceHistory(records []story.ChoiceRecord) string {
	if len(records) == 0 {
		return "none yet, this is the start of the story"
	}
	var b strings.Builder
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %q -> chose %q (%s)\n", i+1, r.Question, r.ChosenText, r.Trait)
	}
	return strings.TrimRight(b.String(), "\n")
}

func endingLine(isEnding bool) string {
	if isEnding {
		return "This is the story's ENDING. Close every open thread warmly; the last page lands the ending feeling."
	}
	return "This part leads up to the child's next choice. End on the moment just before the question, not on a cliffhanger that scares."
}
