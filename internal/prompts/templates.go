package prompts

// Template names used across the services.
const (
	TmplOutlinePlan     = "outline_plan"
	TmplSegmentWrite    = "segment_write"
	TmplDrawingAnalysis = "drawing_analysis"
	TmplChatReply       = "chat_reply"
	TmplIllustration    = "illustration"
	TmplColoringPage    = "coloring_page"
)

// System prompts paired with the templates below.
const (
	SystemPlanner = `You are a children's story planner for an interactive storybook app. ` +
		`You design warm, age-appropriate branching stories that gently exercise character ` +
		`strengths. You respond with a single JSON object and nothing else.`

	SystemSegmentWriter = `You are a children's storybook author. You write vivid, kind, ` +
		`age-appropriate story pages that follow the planned direction exactly. ` +
		`You respond with a single JSON object and nothing else.`

	SystemDrawingAnalyst = `You are a warm, careful child-development assistant looking at ` +
		`a child's drawing. You describe what you see in encouraging terms, never diagnose, ` +
		`and flag a concern only when the drawing clearly suggests one. ` +
		`You respond with a single JSON object and nothing else.`

	SystemMascot = `You are Riko, a cheerful little chameleon who loves colors and stories. ` +
		`You talk with young children: short sentences, playful, encouraging, never scary. ` +
		`You never discuss topics unsuitable for children and you gently redirect when asked.`
)

func (e *Engine) registerDefaults() {
	for _, tmpl := range defaultTemplates {
		e.Register(tmpl)
	}
}

var defaultTemplates = []*Template{
	{
		Name:        TmplOutlinePlan,
		Description: "Plans a branching story outline as strict JSON",
		Content: `Plan an interactive branching story for a {{child_age}}-year-old child.
{{child_line}}Theme: {{theme}}.
{{language_line}}
{{therapeutic_block}}
Reading level: {{vocabulary}}. Good themes for this age: {{age_themes}}.

The story needs exactly {{min_choice_points}} choice points. Each choice point asks the child
a question and offers 2-3 options. Every option must name the character trait it exercises,
drawn ONLY from this list: {{trait_list}}.

Respond with one JSON object in exactly this shape:
{
  "title": "story title",
  "main_character": {
    "name": "character name",
    "species": "what kind of creature",
    "age_descriptor": "young / little / small...",
    "appearance": "one sentence",
    "personality_traits": ["two traits from the list"],
    "speech_style": "how the character talks",
    "arc": {"start": "how they begin", "middle": "what they learn", "end": "how they grow"}
  },
  "story_arc": "one-paragraph summary of the whole journey",
  "choice_points": [
    {
      "position": 1,
      "question": "question shown to the child",
      "options": [
        {"text": "option label", "emoji": "one emoji", "trait": "trait from the list", "story_direction": "one sentence: where this choice takes the story"}
      ]
    }
  ],
  "convergence_points": ["short descriptions of beats where paths can meet again"],
  "ending_theme": "the feeling every ending should land on",
  "mood": "happy | adventure | calm | magical | therapeutic"
}`,
	},
	{
		Name:        TmplSegmentWrite,
		Description: "Writes one story segment as pages of strict JSON",
		Content: `Write the next part of an interactive children's story.

Main character: {{character_block}}
Story feel: {{style_context}}
Choices made so far: {{previous_choices}}

This part of the story: {{description}}
{{ending_line}}
{{language_line}}
Write exactly {{pages_per_segment}} pages. Each page has {{sentences_per_page}} sentences;
the whole part stays around {{word_target}} words. Vocabulary: {{vocabulary}}.

Respond with one JSON object in exactly this shape:
{
  "pages": [
    {
      "page_number": 1,
      "text": "the page's story text",
      "scene_description": "what the page's picture shows, one sentence",
      "image_prompt": "illustration prompt for this page's picture",
      "emotion": "the feeling of this page (happy, curious, tense, cozy...)"
    }
  ]
}`,
	},
	{
		Name:        TmplDrawingAnalysis,
		Description: "Interprets a child's drawing as strict JSON",
		Content: `Look carefully at this drawing made by a {{child_age}}-year-old child.
{{language_line}}
Describe what you see with warmth. Note the feelings the drawing carries, its themes, and
anything developmentally interesting (colors, shapes, people, proportions). Offer gentle
suggestions a parent could act on. Only set "concern" when the drawing clearly points at
one; otherwise use "none".

Respond with one JSON object in exactly this shape:
{
  "summary": "two or three warm sentences about the drawing",
  "emotions": [{"name": "emotion word", "confidence": 0.8}],
  "themes": ["theme words"],
  "developmental_observations": ["short observations"],
  "recommendations": ["short suggestions for a parent"],
  "concern": "none | anxiety | fear | sadness | anger | loneliness | low_confidence | family_change | sleep_worries",
  "concern_explanation": "one sentence, empty when concern is none"
}`,
	},
	{
		Name:        TmplChatReply,
		Description: "Mascot reply grounded in classifier output and memories",
		Content: `{{child_line}}The child seems to be feeling {{emotion}}, and the message looks like {{intent}}.

Things you remember about this child:
{{memories}}

The child says: "{{message}}"
{{language_line}}
Reply as Riko in 1-3 short sentences. Match the child's feeling, use at most one emoji,
and never promise things the app cannot do.`,
	},
	{
		Name:        TmplIllustration,
		Description: "Image prompt wrapper for story page illustrations",
		Content: `Children's storybook illustration, {{style_fragment}}. Scene: {{scene}}. ` +
			`Featuring {{character}}. Soft friendly shapes, warm storybook lighting, ` +
			`consistent character design. No text anywhere in the image.`,
	},
	{
		Name:        TmplColoringPage,
		Description: "Image prompt wrapper for printable coloring pages",
		Content: `Black and white line-art coloring page for children. Scene: {{scene}}. ` +
			`Featuring {{character}}. Clean bold outlines, no shading, no gray fill, ` +
			`pure white background, simple shapes a child can color inside. ` +
			`No text anywhere in the image.`,
	},
}
