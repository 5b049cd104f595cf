package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/engine"
	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/models"
	"renkioo/server/internal/storage"
	"renkioo/server/internal/story"
)

// StoryHandlers handles story lifecycle requests
type StoryHandlers struct {
	engine   *engine.Engine
	store    *storage.MySQLStore
	cache    *storage.RedisStore
	memories interfaces.VectorStore
	hub      *StoryHub
}

// NewStoryHandlers creates a new story handlers instance
func NewStoryHandlers(svc Services) *StoryHandlers {
	return &StoryHandlers{
		engine:   svc.Engine,
		store:    svc.MySQL,
		cache:    svc.Redis,
		memories: svc.Memories,
		hub:      svc.Hub,
	}
}

// CreateStoryRequest represents a story creation request. Concern optionally
// names a drawing-analysis finding the story should gently work with.
type CreateStoryRequest struct {
	ChildAge          int    `json:"child_age" validate:"required,gte=1,lte=14"`
	ChildID           string `json:"child_id" validate:"omitempty,max=64"`
	ChildName         string `json:"child_name" validate:"omitempty,max=64"`
	Theme             string `json:"theme" validate:"omitempty,max=200"`
	Language          string `json:"language" validate:"omitempty,oneof=en tr"`
	IllustrationStyle string `json:"illustration_style" validate:"omitempty,max=32"`
	Concern           string `json:"concern" validate:"omitempty,max=32"`
}

// CreateStoryResponse represents a story creation response
type CreateStoryResponse struct {
	Success           bool              `json:"success"`
	StoryID           string            `json:"story_id,omitempty"`
	Title             string            `json:"title,omitempty"`
	EstimatedDuration string            `json:"estimated_duration,omitempty"`
	Traits            []story.Trait     `json:"traits,omitempty"`
	Segment           *story.Segment    `json:"segment,omitempty"`
	ChoicePoint       *story.ChoiceNode `json:"choice_point,omitempty"`
	Error             string            `json:"error,omitempty"`
}

// AdvanceStoryRequest represents one applied choice
type AdvanceStoryRequest struct {
	StoryID       string `json:"story_id" validate:"required"`
	ChoicePointID string `json:"choice_point_id" validate:"required"`
	OptionID      string `json:"option_id" validate:"required"`
}

// AdvanceStoryResponse represents the segment reached by a choice
type AdvanceStoryResponse struct {
	Success     bool              `json:"success"`
	Segment     *story.Segment    `json:"segment,omitempty"`
	ChoicePoint *story.ChoiceNode `json:"choice_point,omitempty"`
	IsEnding    bool              `json:"is_ending"`
	Error       string            `json:"error,omitempty"`
}

// GetStoryResponse carries a session snapshot, live or archived
type GetStoryResponse struct {
	Success bool        `json:"success"`
	Story   interface{} `json:"story,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// SegmentResponse carries one materialized segment
type SegmentResponse struct {
	Success bool           `json:"success"`
	Segment *story.Segment `json:"segment,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// CreateStory plans a new story and materializes its opening segment.
func (h *StoryHandlers) CreateStory(w http.ResponseWriter, r *http.Request) {
	var req CreateStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "Story engine not initialized")
		return
	}

	var therapeutic *story.TherapeuticContext
	if req.Concern != "" {
		tc, ok := story.ContextForConcern(story.Concern(req.Concern))
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown concern: "+req.Concern)
			return
		}
		therapeutic = &tc
	}

	creation, err := h.engine.CreateStory(r.Context(), &interfaces.StoryRequest{
		ChildAge:           req.ChildAge,
		ChildID:            req.ChildID,
		ChildName:          req.ChildName,
		Theme:              req.Theme,
		Language:           req.Language,
		IllustrationStyle:  req.IllustrationStyle,
		TherapeuticContext: therapeutic,
	})
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	session := creation.Session
	if snap, serr := h.engine.GetSession(session.ID); serr == nil {
		h.persistSnapshot(r.Context(), snap)
	}
	if h.hub != nil {
		h.hub.Publish(interfaces.NewStoryEvent(interfaces.EventStoryCreated, session.ID, map[string]interface{}{
			"title":      session.Title,
			"segment_id": creation.FirstSegment.ID,
		}))
	}

	writeJSON(w, http.StatusOK, CreateStoryResponse{
		Success:           true,
		StoryID:           session.ID,
		Title:             session.Title,
		EstimatedDuration: session.EstimatedDuration,
		Traits:            session.AllTraits,
		Segment:           creation.FirstSegment,
		ChoicePoint:       creation.FirstChoicePoint,
	})
}

// AdvanceStory applies one choice and returns the segment it leads to.
func (h *StoryHandlers) AdvanceStory(w http.ResponseWriter, r *http.Request) {
	var req AdvanceStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "Story engine not initialized")
		return
	}

	result, err := h.engine.Advance(r.Context(), req.StoryID, req.ChoicePointID, req.OptionID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	if snap, serr := h.engine.GetSession(req.StoryID); serr == nil {
		h.persistSnapshot(r.Context(), snap)
		h.auditChoice(r.Context(), &req, result, snap)
		if result.IsEnding {
			h.rememberCompletion(r.Context(), snap)
		}
	}
	if h.hub != nil {
		h.hub.Publish(interfaces.NewStoryEvent(interfaces.EventSegmentReady, req.StoryID, map[string]interface{}{
			"segment_id": result.Segment.ID,
			"is_ending":  result.IsEnding,
		}))
		if result.IsEnding {
			h.hub.Publish(interfaces.NewStoryEvent(interfaces.EventStoryEnded, req.StoryID, map[string]interface{}{
				"ending_segment_id": result.Segment.ID,
			}))
		}
	}

	writeJSON(w, http.StatusOK, AdvanceStoryResponse{
		Success:     true,
		Segment:     result.Segment,
		ChoicePoint: result.NextChoicePoint,
		IsEnding:    result.IsEnding,
	})
}

// GetStory returns the session snapshot: live from the engine, else the
// cached copy from Redis, else the archived copy from MySQL.
func (h *StoryHandlers) GetStory(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "story_id")

	if h.engine != nil {
		if snap, err := h.engine.GetSession(storyID); err == nil {
			writeJSON(w, http.StatusOK, GetStoryResponse{Success: true, Story: snap})
			return
		}
	}

	if h.cache != nil {
		if data, err := h.cache.GetSessionSnapshot(r.Context(), storyID); err == nil && data != nil {
			writeJSON(w, http.StatusOK, GetStoryResponse{Success: true, Story: json.RawMessage(data)})
			return
		}
	}

	if h.store != nil {
		if rec, err := h.store.GetStory(r.Context(), storyID); err == nil && rec.SessionJSON != "" {
			writeJSON(w, http.StatusOK, GetStoryResponse{Success: true, Story: json.RawMessage(rec.SessionJSON)})
			return
		}
	}

	writeError(w, http.StatusNotFound, "Story not found: "+storyID)
}

// GetSegment returns one materialized segment of a live session.
func (h *StoryHandlers) GetSegment(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "story_id")
	segmentID := chi.URLParam(r, "segment_id")

	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "Story engine not initialized")
		return
	}

	segment, err := h.engine.GetSegment(storyID, segmentID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, SegmentResponse{Success: true, Segment: segment})
}

// EndStory closes a live session: the final snapshot is archived to MySQL,
// the Redis copy is dropped, and the in-memory session is released.
func (h *StoryHandlers) EndStory(w http.ResponseWriter, r *http.Request) {
	storyID := chi.URLParam(r, "story_id")

	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable, "Story engine not initialized")
		return
	}

	snap, err := h.engine.GetSession(storyID)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	snap.Ended = true

	if err := h.engine.EndStory(storyID); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	h.persistSnapshot(r.Context(), snap)
	h.rememberCompletion(r.Context(), snap)
	if h.cache != nil {
		if err := h.cache.DeleteSessionSnapshot(r.Context(), storyID); err != nil {
			log.Warnf("[Web] %v", err)
		}
	}
	if h.hub != nil {
		h.hub.Publish(interfaces.NewStoryEvent(interfaces.EventStoryEnded, storyID, map[string]interface{}{
			"reason": "closed",
		}))
	}

	writeJSON(w, http.StatusOK, GetStoryResponse{Success: true, Story: snap})
}

// ListStoriesResponse carries archived story records
type ListStoriesResponse struct {
	Success bool                 `json:"success"`
	Stories []models.StoryRecord `json:"stories,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// ListStories returns the newest archived stories, optionally filtered by
// child name.
func (h *StoryHandlers) ListStories(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Story archive not available")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.store.ListStories(r.Context(), r.URL.Query().Get("child_name"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListStoriesResponse{Success: true, Stories: records})
}

// StoryChoicesResponse carries a story's applied choices in play order
type StoryChoicesResponse struct {
	Success bool                 `json:"success"`
	Choices []models.ChoiceAudit `json:"choices,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// GetStoryChoices returns the choice trail for the parent recap view.
func (h *StoryHandlers) GetStoryChoices(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Story archive not available")
		return
	}

	storyID := chi.URLParam(r, "story_id")
	choices, err := h.store.StoryChoices(r.Context(), storyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StoryChoicesResponse{Success: true, Choices: choices})
}

// persistSnapshot writes the snapshot to MySQL and Redis. Both stores are
// optional and failures only warn; the in-memory session stays authoritative.
func (h *StoryHandlers) persistSnapshot(ctx context.Context, snap *engine.SessionSnapshot) {
	if h.store != nil {
		status := "active"
		if snap.Ended {
			status = "ended"
		}
		data, err := json.Marshal(snap)
		if err != nil {
			log.Warnf("[Web] failed to serialize session %s: %v", snap.ID, err)
			return
		}
		rec := &models.StoryRecord{
			ID:          snap.ID,
			Title:       snap.Title,
			ChildName:   snap.ChildName,
			ChildAge:    snap.ChildAge,
			Language:    snap.Language,
			Mood:        string(snap.Mood),
			Status:      status,
			ChoiceCount: len(snap.History),
			SessionJSON: string(data),
		}
		if err := h.store.SaveStory(ctx, rec); err != nil {
			log.Warnf("[Web] %v", err)
		}
	}

	if h.cache != nil {
		if err := h.cache.StoreSessionSnapshot(ctx, snap.ID, snap); err != nil {
			log.Warnf("[Web] %v", err)
		}
	}
}

// rememberCompletion stores a story_completed memory so the mascot can bring
// the story up later. The memory id is the story id, so the ending advance
// and an explicit end call upsert the same point instead of duplicating it.
func (h *StoryHandlers) rememberCompletion(ctx context.Context, snap *engine.SessionSnapshot) {
	if h.memories == nil || snap.ChildID == "" {
		return
	}

	err := h.memories.StoreMemory(ctx, &interfaces.Memory{
		ID:      snap.ID,
		ChildID: snap.ChildID,
		Type:    interfaces.MemoryStoryCompleted,
		Content: completionSummary(snap),
		Metadata: map[string]interface{}{
			"story_id": snap.ID,
			"title":    snap.Title,
			"mood":     string(snap.Mood),
		},
	})
	if err != nil {
		log.Warnf("[Web] failed to store story memory for %s: %v", snap.ID, err)
	}
}

// completionSummary condenses a finished session into one line, naming the
// traits the child's choices actually exercised.
func completionSummary(snap *engine.SessionSnapshot) string {
	name := snap.ChildName
	if name == "" {
		name = "The child"
	}
	line := fmt.Sprintf("%s finished the story %q", name, snap.Title)

	seen := make(map[story.Trait]bool)
	var traits []string
	for _, rec := range snap.History {
		if rec.Trait != "" && !seen[rec.Trait] {
			seen[rec.Trait] = true
			traits = append(traits, string(rec.Trait))
		}
	}
	if len(traits) > 0 {
		line += ", practicing " + strings.Join(traits, ", ")
	}
	return line + "."
}

// auditChoice appends the applied choice to the audit trail.
func (h *StoryHandlers) auditChoice(ctx context.Context, req *AdvanceStoryRequest, result *engine.AdvanceResult, snap *engine.SessionSnapshot) {
	if h.store == nil || len(snap.History) == 0 {
		return
	}

	last := snap.History[len(snap.History)-1]
	audit := &models.ChoiceAudit{
		ID:            uuid.NewString(),
		StoryID:       req.StoryID,
		ChoicePointID: req.ChoicePointID,
		OptionID:      req.OptionID,
		SegmentID:     result.Segment.ID,
		Question:      last.Question,
		ChosenText:    last.ChosenText,
		Trait:         string(last.Trait),
	}
	if err := h.store.SaveChoice(ctx, audit); err != nil {
		log.Warnf("[Web] %v", err)
	}
}
