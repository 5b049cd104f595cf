package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"renkioo/server/internal/story"
)

// Session is the long-lived aggregate for one playthrough. The Graph is
// immutable once built; Segments grows monotonically as the child advances
// and never shrinks. The embedded mutex serializes Advance calls on one
// session so a double tap cannot interleave two generations.
type Session struct {
	ID                 string                    `json:"id"`
	Title              string                    `json:"title"`
	Character          story.Character           `json:"character"`
	Segments           map[string]*story.Segment `json:"segments"`
	Graph              *story.Graph              `json:"graph"`
	EstimatedDuration  string                    `json:"estimated_duration"`
	AllTraits          []story.Trait             `json:"all_traits"`
	Mood               story.Mood                `json:"mood"`
	StyleContext       string                    `json:"style_context"`
	TherapeuticContext *story.TherapeuticContext `json:"therapeutic_context,omitempty"`
	History            []story.ChoiceRecord      `json:"history"`
	ChildAge           int                       `json:"child_age"`
	ChildID            string                    `json:"child_id,omitempty"`
	ChildName          string                    `json:"child_name,omitempty"`
	Language           string                    `json:"language"`
	IllustrationStyle  string                    `json:"illustration_style,omitempty"`
	CreatedAt          time.Time                 `json:"created_at"`

	mu sync.Mutex
}

// StoryCreation is what CreateStory hands back: the new session, its
// materialized start segment, and the first choice point.
type StoryCreation struct {
	Session          *Session          `json:"story"`
	FirstSegment     *story.Segment    `json:"first_segment"`
	FirstChoicePoint *story.ChoiceNode `json:"first_choice_point"`
}

// AdvanceResult is what one Advance call hands back. NextChoicePoint is nil
// exactly when IsEnding is true.
type AdvanceResult struct {
	Segment         *story.Segment    `json:"segment"`
	NextChoicePoint *story.ChoiceNode `json:"next_choice_point,omitempty"`
	IsEnding        bool              `json:"is_ending"`
}

// Ended reports whether any ending segment has been materialized.
func (s *Session) Ended() bool {
	for id := range s.Segments {
		if s.Graph.IsEnding(id) {
			return true
		}
	}
	return false
}

// estimatedDuration derives the play-time range shown to parents.
func estimatedDuration(choicePoints int) string {
	return fmt.Sprintf("%d-%d minutes", choicePoints*3, choicePoints*5)
}

// SessionSnapshot is a read-only copy of a session, safe to serialize and
// hand to the web layer while the live session keeps advancing.
type SessionSnapshot struct {
	ID                 string                       `json:"id"`
	Title              string                       `json:"title"`
	Character          story.Character              `json:"character"`
	Segments           map[string]*story.Segment    `json:"segments"`
	ChoicePoints       map[string]*story.ChoiceNode `json:"choice_points"`
	StartSegmentID     string                       `json:"start_segment_id"`
	EndingSegmentIDs   []string                     `json:"ending_segment_ids"`
	ChoicePointCount   int                          `json:"choice_point_count"`
	EstimatedDuration  string                       `json:"estimated_duration"`
	AllTraits          []story.Trait                `json:"all_traits"`
	Mood               story.Mood                   `json:"mood"`
	TherapeuticContext *story.TherapeuticContext    `json:"therapeutic_context,omitempty"`
	History            []story.ChoiceRecord         `json:"history"`
	ChildAge           int                          `json:"child_age"`
	ChildID            string                       `json:"child_id,omitempty"`
	ChildName          string                       `json:"child_name,omitempty"`
	Language           string                       `json:"language"`
	IllustrationStyle  string                       `json:"illustration_style,omitempty"`
	CreatedAt          time.Time                    `json:"created_at"`
	Ended              bool                         `json:"ended"`
}

// snapshot copies the mutable parts. Callers hold s.mu.
func (s *Session) snapshot() *SessionSnapshot {
	segments := make(map[string]*story.Segment, len(s.Segments))
	for id, seg := range s.Segments {
		segments[id] = seg
	}
	history := make([]story.ChoiceRecord, len(s.History))
	copy(history, s.History)

	endings := make([]string, 0, len(s.Graph.EndingSegmentIDs))
	for id := range s.Graph.EndingSegmentIDs {
		endings = append(endings, id)
	}
	sort.Strings(endings)

	return &SessionSnapshot{
		ID:                 s.ID,
		Title:              s.Title,
		Character:          s.Character,
		Segments:           segments,
		ChoicePoints:       s.Graph.ChoicePoints,
		StartSegmentID:     s.Graph.StartSegmentID,
		EndingSegmentIDs:   endings,
		ChoicePointCount:   s.Graph.ChoicePointCount(),
		EstimatedDuration:  s.EstimatedDuration,
		AllTraits:          s.AllTraits,
		Mood:               s.Mood,
		TherapeuticContext: s.TherapeuticContext,
		History:            history,
		ChildAge:           s.ChildAge,
		ChildID:            s.ChildID,
		ChildName:          s.ChildName,
		Language:           s.Language,
		IllustrationStyle:  s.IllustrationStyle,
		CreatedAt:          s.CreatedAt,
		Ended:              s.Ended(),
	}
}
