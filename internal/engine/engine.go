package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/story"
)

// Engine owns every live session and advances them in response to the
// child's choices. Generation goes through the injected planner and writer
// boundaries; the engine itself performs no I/O beyond those calls and never
// generates a segment the child has not chosen to reach.
type Engine struct {
	planner interfaces.OutlinePlanner
	writer  interfaces.SegmentGenerator

	sessions map[string]*Session
	mu       sync.RWMutex

	storiesCreated    atomic.Int64
	segmentsGenerated atomic.Int64
	storiesEnded      atomic.Int64
}

// Stats is a point-in-time view of the engine counters.
type Stats struct {
	ActiveSessions    int   `json:"active_sessions"`
	StoriesCreated    int64 `json:"stories_created"`
	SegmentsGenerated int64 `json:"segments_generated"`
	StoriesEnded      int64 `json:"stories_ended"`
}

// NewEngine creates a progression engine on top of the two generation
// boundaries.
func NewEngine(planner interfaces.OutlinePlanner, writer interfaces.SegmentGenerator) *Engine {
	return &Engine{
		planner:  planner,
		writer:   writer,
		sessions: make(map[string]*Session),
	}
}

// CreateStory plans an outline, derives the story graph, materializes ONLY
// the start segment, and registers the assembled session. On any failure
// nothing is registered; there is no partially constructed session. The
// returned session's segment map holds exactly one entry.
func (e *Engine) CreateStory(ctx context.Context, req *interfaces.StoryRequest) (*StoryCreation, error) {
	outline, err := e.planner.PlanOutline(ctx, req)
	if err != nil {
		return nil, err
	}

	graph := story.BuildGraph(outline)
	styleContext := buildStyleContext(outline)

	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	startDesc := graph.Segments[graph.StartSegmentID]
	firstSegment, err := e.writer.GenerateSegment(ctx, &interfaces.SegmentRequest{
		Character:    &outline.MainCharacter,
		StyleContext: styleContext,
		Description:  startDesc.Description,
		IsEnding:     false,
		Language:     lang,
		ChildAge:     req.ChildAge,
	})
	if err != nil {
		return nil, err
	}
	firstSegment.ID = graph.StartSegmentID

	session := &Session{
		ID:                 uuid.NewString(),
		Title:              outline.Title,
		Character:          outline.MainCharacter,
		Segments:           map[string]*story.Segment{firstSegment.ID: firstSegment},
		Graph:              graph,
		EstimatedDuration:  estimatedDuration(graph.ChoicePointCount()),
		AllTraits:          outline.AllTraits(),
		Mood:               outline.Mood,
		StyleContext:       styleContext,
		TherapeuticContext: req.TherapeuticContext,
		ChildAge:           req.ChildAge,
		ChildID:            req.ChildID,
		ChildName:          req.ChildName,
		Language:           lang,
		IllustrationStyle:  req.IllustrationStyle,
		CreatedAt:          time.Now(),
	}

	e.mu.Lock()
	e.sessions[session.ID] = session
	e.mu.Unlock()

	e.storiesCreated.Inc()
	e.segmentsGenerated.Inc()
	log.Infof("[Engine] created story %s (%q, %d choice points)",
		session.ID, session.Title, graph.ChoicePointCount())

	return &StoryCreation{
		Session:          session,
		FirstSegment:     firstSegment,
		FirstChoicePoint: graph.NextChoice(graph.StartSegmentID),
	}, nil
}

// Advance applies one choice: it resolves the choice point and option,
// generates the target segment with the accumulated choice history, inserts
// it into the session's segment map, and returns the next choice point (nil
// when an ending was reached). Failed lookups and failed generation leave
// the session untouched. A repeat advance to an already materialized segment
// regenerates it and overwrites; the per-session lock keeps concurrent calls
// from interleaving.
func (e *Engine) Advance(ctx context.Context, storyID, choicePointID, optionID string) (*AdvanceResult, error) {
	e.mu.RLock()
	session, ok := e.sessions[storyID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, storyID)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	node, ok := session.Graph.ChoicePoints[choicePointID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChoicePoint, choicePointID)
	}

	var chosen *story.ResolvedOption
	for i := range node.Options {
		if node.Options[i].ID == optionID {
			chosen = &node.Options[i]
			break
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrUnknownOption, optionID, choicePointID)
	}

	targetID := chosen.NextSegmentID
	targetDesc := session.Graph.Segments[targetID]
	isEnding := session.Graph.IsEnding(targetID)

	record := story.ChoiceRecord{
		Question:   node.Question,
		ChosenText: chosen.Text,
		Trait:      chosen.Trait,
	}
	history := make([]story.ChoiceRecord, len(session.History), len(session.History)+1)
	copy(history, session.History)
	history = append(history, record)

	segment, err := e.writer.GenerateSegment(ctx, &interfaces.SegmentRequest{
		Character:       &session.Character,
		StyleContext:    session.StyleContext,
		PreviousChoices: history,
		Description:     targetDesc.Description,
		IsEnding:        isEnding,
		Language:        session.Language,
		ChildAge:        session.ChildAge,
	})
	if err != nil {
		return nil, err
	}
	segment.ID = targetID

	session.Segments[targetID] = segment
	session.History = history
	e.segmentsGenerated.Inc()

	var next *story.ChoiceNode
	if isEnding {
		e.storiesEnded.Inc()
		log.Infof("[Engine] story %s reached ending %s after %d choices",
			storyID, targetID, len(history))
	} else {
		next = session.Graph.ChoiceAt(targetDesc.ChoicePointIndex)
	}

	return &AdvanceResult{
		Segment:         segment,
		NextChoicePoint: next,
		IsEnding:        isEnding,
	}, nil
}

// GetSession returns a serializable snapshot of one session.
func (e *Engine) GetSession(storyID string) (*SessionSnapshot, error) {
	e.mu.RLock()
	session, ok := e.sessions[storyID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, storyID)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.snapshot(), nil
}

// GetSegment returns one materialized segment of a session.
func (e *Engine) GetSegment(storyID, segmentID string) (*story.Segment, error) {
	e.mu.RLock()
	session, ok := e.sessions[storyID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStoryNotFound, storyID)
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	segment, ok := session.Segments[segmentID]
	if !ok {
		return nil, fmt.Errorf("segment not generated yet: %s", segmentID)
	}
	return segment, nil
}

// ActiveStories lists the ids of every live session.
func (e *Engine) ActiveStories() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	return ids
}

// EndStory removes a session from the registry. Persistence of the finished
// story is the caller's concern, before calling this.
func (e *Engine) EndStory(storyID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.sessions[storyID]; !ok {
		return fmt.Errorf("%w: %s", ErrStoryNotFound, storyID)
	}
	delete(e.sessions, storyID)
	return nil
}

// Stats returns the engine counters.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	active := len(e.sessions)
	e.mu.RUnlock()

	return Stats{
		ActiveSessions:    active,
		StoriesCreated:    e.storiesCreated.Load(),
		SegmentsGenerated: e.segmentsGenerated.Load(),
		StoriesEnded:      e.storiesEnded.Load(),
	}
}

func buildStyleContext(o *story.Outline) string {
	return fmt.Sprintf("a %s story; the journey: %s; every ending lands on: %s",
		o.Mood, o.ArcSummary, o.EndingTheme)
}
