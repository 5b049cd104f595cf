package illustration

// Style is one named art style with the prompt fragment that produces it.
type Style struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PromptFragment string `json:"prompt_fragment"`
	Description    string `json:"description"`
}

// DefaultStyleID is used when a story names no style or an unknown one.
const DefaultStyleID = "watercolor"

var styleTable = []*Style{
	{
		ID:             "watercolor",
		Name:           "Watercolor",
		PromptFragment: "soft watercolor painting, gentle washes of color, light paper texture",
		Description:    "Soft and dreamy, like a classic picture book",
	},
	{
		ID:             "crayon",
		Name:           "Crayon",
		PromptFragment: "bright crayon drawing, bold waxy strokes, childlike energy",
		Description:    "Bold and playful, like the child's own drawings",
	},
	{
		ID:             "papercut",
		Name:           "Paper Cutout",
		PromptFragment: "layered paper cutout collage, crisp edges, soft drop shadows",
		Description:    "Layered paper shapes with a handmade feel",
	},
	{
		ID:             "pastel",
		Name:           "Pastel",
		PromptFragment: "chalk pastel illustration, velvety blended colors, cozy glow",
		Description:    "Calm and cozy, good for bedtime stories",
	},
}

// Registry resolves style ids to prompt fragments. The table is fixed at
// startup; unknown ids resolve to the default style rather than failing a
// whole illustration job.
type Registry struct {
	styles map[string]*Style
}

// NewRegistry builds the style registry from the built-in table.
func NewRegistry() *Registry {
	r := &Registry{styles: make(map[string]*Style, len(styleTable))}
	for _, s := range styleTable {
		r.styles[s.ID] = s
	}
	return r
}

// Get resolves a style id, falling back to the default style.
func (r *Registry) Get(id string) *Style {
	if s, ok := r.styles[id]; ok {
		return s
	}
	return r.styles[DefaultStyleID]
}

// Has reports whether the id names a known style.
func (r *Registry) Has(id string) bool {
	_, ok := r.styles[id]
	return ok
}

// List returns every style in table order.
func (r *Registry) List() []*Style {
	out := make([]*Style, len(styleTable))
	copy(out, styleTable)
	return out
}
