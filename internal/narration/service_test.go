package narration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
)

type stubSpeech struct {
	mu      sync.Mutex
	calls   int
	lastReq llm.SpeechRequest
	err     error
}

func (s *stubSpeech) Speech(_ context.Context, req llm.SpeechRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return []byte("mp3-bytes"), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*interfaces.StoryEvent
}

func (p *recordingPublisher) Publish(e *interfaces.StoryEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func newTestService(t *testing.T, model llm.SpeechModel, events interfaces.EventPublisher) *Service {
	t.Helper()
	cache := NewCache(t.TempDir())
	require.NoError(t, cache.Initialize())
	return NewService(model, cache, events, "/assets/narration", "nova")
}

func TestNarrateRendersAndCaches(t *testing.T) {
	model := &stubSpeech{}
	events := &recordingPublisher{}
	svc := newTestService(t, model, events)

	req := &interfaces.NarrationRequest{
		StoryID:    "story-1",
		SegmentID:  "seg_start",
		PageNumber: 1,
		Text:       "Pip pressed on through the fog.",
	}
	first, err := svc.Narrate(context.Background(), req)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.NotEmpty(t, first.AudioPath)
	assert.Contains(t, first.AudioURL, "/assets/narration/")
	assert.Equal(t, "nova", model.lastReq.Voice, "default voice is applied")
	assert.Equal(t, 1.0, model.lastReq.Speed)

	require.Len(t, events.events, 1)
	assert.Equal(t, interfaces.EventNarrationReady, events.events[0].Type)

	second, err := svc.Narrate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.AudioPath, second.AudioPath)
	assert.Equal(t, 1, model.calls, "cache hit skips the model")
	assert.Len(t, events.events, 1, "cache hits do not re-announce")
}

func TestNarrateDistinguishesVoiceAndSpeed(t *testing.T) {
	model := &stubSpeech{}
	svc := newTestService(t, model, nil)
	ctx := context.Background()

	_, err := svc.Narrate(ctx, &interfaces.NarrationRequest{Text: "Hello.", Voice: "nova"})
	require.NoError(t, err)
	_, err = svc.Narrate(ctx, &interfaces.NarrationRequest{Text: "Hello.", Voice: "shimmer"})
	require.NoError(t, err)
	_, err = svc.Narrate(ctx, &interfaces.NarrationRequest{Text: "Hello.", Voice: "shimmer", Speed: 0.8})
	require.NoError(t, err)

	assert.Equal(t, 3, model.calls, "each voice/speed variant renders once")
	assert.Equal(t, 3, svc.cache.Size())
}

func TestNarrateRejectsEmptyText(t *testing.T) {
	svc := newTestService(t, &stubSpeech{}, nil)
	_, err := svc.Narrate(context.Background(), &interfaces.NarrationRequest{Text: "   "})
	assert.ErrorContains(t, err, "no text")
}

func TestNarratePropagatesModelFailure(t *testing.T) {
	model := &stubSpeech{err: errors.New("speech model down")}
	svc := newTestService(t, model, nil)

	_, err := svc.Narrate(context.Background(), &interfaces.NarrationRequest{Text: "Hello."})
	assert.ErrorContains(t, err, "speech model down")
	assert.Equal(t, 0, svc.cache.Size(), "failures are not cached")
}
