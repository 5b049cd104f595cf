package story

import (
	"fmt"

	log "github.com/sirupsen/logrus"
)

// StartSegmentID is the fixed identifier of the first segment of every story.
const StartSegmentID = "seg_start"

// SegmentDescriptor is a node of the story graph: a planned segment that has
// not necessarily been written yet. Description is the generation input for
// the segment writer. ChoicePointIndex is the 1-based position of the choice
// point that follows this segment; it is 0 for ending segments.
type SegmentDescriptor struct {
	ID               string `json:"id"`
	Description      string `json:"description"`
	IsEnding         bool   `json:"is_ending"`
	ChoicePointIndex int    `json:"choice_point_index,omitempty"`
}

// ResolvedOption is an outline option bound to its target segment.
type ResolvedOption struct {
	Option
	ID            string `json:"id"`
	NextSegmentID string `json:"next_segment_id"`
}

// ChoiceNode is a choice point resolved into the graph, with every option
// carrying a concrete next segment id.
type ChoiceNode struct {
	ID       string           `json:"id"`
	Question string           `json:"question"`
	Position int              `json:"position"`
	Options  []ResolvedOption `json:"options"`
}

// Graph is the derived, immutable branching structure of one story. It is
// built exactly once per outline and never mutated afterwards.
type Graph struct {
	Segments         map[string]*SegmentDescriptor `json:"segments"`
	ChoicePoints     map[string]*ChoiceNode        `json:"choice_points"`
	StartSegmentID   string                        `json:"start_segment_id"`
	EndingSegmentIDs map[string]bool               `json:"ending_segment_ids"`

	// byPosition indexes choice nodes by their 1-based position so that
	// progression never has to parse an id string to find the next node.
	byPosition map[int]*ChoiceNode
}

// SegmentID returns the identifier of the segment reached by option j of the
// decision point at 0-based index i, following the fixed naming scheme:
// seg_{i+1}_{j} for interior points, seg_ending_{j} for the final point.
func SegmentID(i, j, totalChoicePoints int) string {
	if i == totalChoicePoints-1 {
		return fmt.Sprintf("seg_ending_%d", j)
	}
	return fmt.Sprintf("seg_%d_%d", i+1, j)
}

// ChoiceID returns the identifier of the decision point at 0-based index i.
func ChoiceID(i int) string {
	return fmt.Sprintf("choice_%d", i+1)
}

// BuildGraph derives the story graph from an outline. It is pure and
// deterministic: the same outline always yields a graph with identical ids,
// nodes, and edges. Outlines with structural defects (for example a choice
// point with no options) produce a degenerate but consistent graph rather
// than an error; boundary validation is expected to have run already.
func BuildGraph(o *Outline) *Graph {
	n := len(o.ChoicePoints)
	if n < MinChoicePoints {
		log.Warnf("[StoryGraph] outline %q has %d choice points, expected at least %d", o.Title, n, MinChoicePoints)
	}

	g := &Graph{
		Segments:         make(map[string]*SegmentDescriptor),
		ChoicePoints:     make(map[string]*ChoiceNode),
		StartSegmentID:   StartSegmentID,
		EndingSegmentIDs: make(map[string]bool),
		byPosition:       make(map[int]*ChoiceNode),
	}

	g.Segments[StartSegmentID] = &SegmentDescriptor{
		ID:               StartSegmentID,
		Description:      fmt.Sprintf("%s begins the adventure: %s", o.MainCharacter.Name, o.ArcSummary),
		IsEnding:         false,
		ChoicePointIndex: 1,
	}

	for i, cp := range o.ChoicePoints {
		node := &ChoiceNode{
			ID:       ChoiceID(i),
			Question: cp.Question,
			Position: cp.Position,
			Options:  make([]ResolvedOption, 0, len(cp.Options)),
		}

		for j, opt := range cp.Options {
			segID := SegmentID(i, j, n)
			isEnding := i == n-1

			seg := &SegmentDescriptor{
				ID:          segID,
				Description: opt.Direction,
				IsEnding:    isEnding,
			}
			if !isEnding {
				seg.ChoicePointIndex = i + 2
			}
			g.Segments[segID] = seg

			node.Options = append(node.Options, ResolvedOption{
				Option:        opt,
				ID:            fmt.Sprintf("opt_%d_%d", i+1, j),
				NextSegmentID: segID,
			})
		}

		g.ChoicePoints[node.ID] = node
		g.byPosition[i+1] = node
	}

	for id, seg := range g.Segments {
		if seg.IsEnding {
			g.EndingSegmentIDs[id] = true
		}
	}

	return g
}

// ChoiceAt returns the choice node at the given 1-based position, or nil when
// no such node exists (past the final decision point).
func (g *Graph) ChoiceAt(position int) *ChoiceNode {
	return g.byPosition[position]
}

// NextChoice returns the choice node that follows the given segment, or nil
// for ending segments and unknown ids.
func (g *Graph) NextChoice(segmentID string) *ChoiceNode {
	seg, ok := g.Segments[segmentID]
	if !ok || seg.IsEnding {
		return nil
	}
	return g.ChoiceAt(seg.ChoicePointIndex)
}

// IsEnding reports whether the given segment id belongs to the ending set.
func (g *Graph) IsEnding(segmentID string) bool {
	return g.EndingSegmentIDs[segmentID]
}

// ChoicePointCount returns the number of decision points in the graph.
func (g *Graph) ChoicePointCount() int {
	return len(g.ChoicePoints)
}
