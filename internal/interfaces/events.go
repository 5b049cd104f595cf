package interfaces

import "time"

// EventType represents a kind of realtime story event
type EventType string

const (
	EventStoryCreated      EventType = "story.created"
	EventSegmentReady      EventType = "segment.ready"
	EventStoryEnded        EventType = "story.ended"
	EventIllustrationReady EventType = "illustration.ready"
	EventNarrationReady    EventType = "narration.ready"
)

// StoryEvent represents one realtime event scoped to a story
type StoryEvent struct {
	Type      EventType   `json:"type"`
	StoryID   string      `json:"story_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// NewStoryEvent builds an event stamped with the current time.
func NewStoryEvent(t EventType, storyID string, payload interface{}) *StoryEvent {
	return &StoryEvent{
		Type:      t,
		StoryID:   storyID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// EventPublisher defines the interface for pushing story events to
// connected clients. The websocket hub implements it; services that finish
// work asynchronously publish through it.
type EventPublisher interface {
	// Publish broadcasts an event to every subscriber of its story
	Publish(event *StoryEvent)
}
