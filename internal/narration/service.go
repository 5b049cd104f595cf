package narration

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
)

const defaultSpeed = 1.0

// Service renders read-aloud audio for story pages with a disk cache in
// front of the speech model. It implements interfaces.NarrationService.
type Service struct {
	model        llm.SpeechModel
	cache        *Cache
	events       interfaces.EventPublisher
	urlBase      string
	defaultVoice string
}

// NewService creates the narration service. events may be nil.
func NewService(model llm.SpeechModel, cache *Cache, events interfaces.EventPublisher, urlBase, defaultVoice string) *Service {
	return &Service{
		model:        model,
		cache:        cache,
		events:       events,
		urlBase:      urlBase,
		defaultVoice: defaultVoice,
	}
}

// Narrate renders (or returns cached) audio for a page of text.
func (s *Service) Narrate(ctx context.Context, req *interfaces.NarrationRequest) (*interfaces.NarrationResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("narration request has no text")
	}

	voice := req.Voice
	if voice == "" {
		voice = s.defaultVoice
	}
	speed := req.Speed
	if speed == 0 {
		speed = defaultSpeed
	}

	key := CacheKey(text, voice, speed)
	if path, ok := s.cache.Get(key); ok {
		return &interfaces.NarrationResult{
			AudioPath: path,
			AudioURL:  s.publicURL(path),
			Cached:    true,
		}, nil
	}

	start := time.Now()
	data, err := s.model.Speech(ctx, llm.SpeechRequest{
		Text:  text,
		Voice: voice,
		Speed: speed,
	})
	if err != nil {
		return nil, fmt.Errorf("narration synthesis: %w", err)
	}

	path, err := s.cache.Put(key, data, text, voice, speed)
	if err != nil {
		return nil, err
	}

	log.Infof("[Narration] rendered %d chars in %s (%s, page %d)",
		len(text), time.Since(start).Round(time.Millisecond), req.SegmentID, req.PageNumber)

	result := &interfaces.NarrationResult{
		AudioPath: path,
		AudioURL:  s.publicURL(path),
	}
	s.publishReady(req, result)
	return result, nil
}

func (s *Service) publicURL(path string) string {
	if s.urlBase == "" {
		return ""
	}
	return s.urlBase + "/" + filepath.Base(path)
}

func (s *Service) publishReady(req *interfaces.NarrationRequest, result *interfaces.NarrationResult) {
	if s.events == nil || req.StoryID == "" {
		return
	}
	s.events.Publish(interfaces.NewStoryEvent(interfaces.EventNarrationReady, req.StoryID, map[string]interface{}{
		"segment_id":  req.SegmentID,
		"page_number": req.PageNumber,
		"audio_url":   result.AudioURL,
	}))
}
