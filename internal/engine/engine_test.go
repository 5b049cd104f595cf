package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renkioo/server/internal/generator"
	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/story"
)

// flakyWriter wraps the mock writer and starts failing from the nth call
// (1-based). failFrom 0 never fails.
type flakyWriter struct {
	inner    generator.MockWriter
	mu       sync.Mutex
	calls    int
	failFrom int
}

func (w *flakyWriter) GenerateSegment(ctx context.Context, req *interfaces.SegmentRequest) (*story.Segment, error) {
	w.mu.Lock()
	w.calls++
	n := w.calls
	failFrom := w.failFrom
	w.mu.Unlock()

	if failFrom > 0 && n >= failFrom {
		return nil, errors.New("writer unavailable")
	}
	return w.inner.GenerateSegment(ctx, req)
}

func (w *flakyWriter) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func newTestStory(t *testing.T, writer interfaces.SegmentGenerator) (*Engine, *StoryCreation) {
	t.Helper()
	e := NewEngine(generator.MockPlanner{}, writer)
	created, err := e.CreateStory(context.Background(), &interfaces.StoryRequest{
		ChildAge:  6,
		ChildName: "Mina",
		Theme:     "Forest",
	})
	require.NoError(t, err)
	return e, created
}

func TestCreateStoryMaterializesOnlyTheStart(t *testing.T) {
	writer := &flakyWriter{}
	_, created := newTestStory(t, writer)

	session := created.Session
	require.Len(t, session.Segments, 1)
	require.Contains(t, session.Segments, story.StartSegmentID)
	assert.Equal(t, story.StartSegmentID, created.FirstSegment.ID)
	assert.True(t, created.FirstSegment.HasChoice)
	assert.Equal(t, 1, writer.callCount())

	require.NotNil(t, created.FirstChoicePoint)
	assert.Equal(t, "choice_1", created.FirstChoicePoint.ID)
	assert.Equal(t, 1, created.FirstChoicePoint.Position)

	assert.Equal(t, "12-20 minutes", session.EstimatedDuration)
	assert.Len(t, session.AllTraits, 8)
	assert.NotEmpty(t, session.ID)
	assert.Empty(t, session.History)
}

func TestAdvanceWalksToAnEnding(t *testing.T) {
	e, created := newTestStory(t, generator.MockWriter{})
	ctx := context.Background()
	id := created.Session.ID

	steps := []struct {
		choiceID   string
		optionID   string
		wantSeg    string
		wantNextID string
	}{
		{"choice_1", "opt_1_0", "seg_1_0", "choice_2"},
		{"choice_2", "opt_2_1", "seg_2_1", "choice_3"},
		{"choice_3", "opt_3_0", "seg_3_0", "choice_4"},
		{"choice_4", "opt_4_1", "seg_ending_1", ""},
	}

	for i, step := range steps {
		res, err := e.Advance(ctx, id, step.choiceID, step.optionID)
		require.NoError(t, err, "step %d", i)
		assert.Equal(t, step.wantSeg, res.Segment.ID)
		assert.Len(t, created.Session.Segments, i+2, "one new segment per advance")
		assert.Len(t, created.Session.History, i+1)

		if step.wantNextID == "" {
			assert.True(t, res.IsEnding)
			assert.Nil(t, res.NextChoicePoint)
			assert.False(t, res.Segment.HasChoice)
		} else {
			assert.False(t, res.IsEnding)
			require.NotNil(t, res.NextChoicePoint)
			assert.Equal(t, step.wantNextID, res.NextChoicePoint.ID)
		}
	}

	first := created.Session.History[0]
	assert.Equal(t, "Try the sunny way", first.ChosenText)
	assert.Equal(t, "What should Pip do at the first crossing?", first.Question)

	snap, err := e.GetSession(id)
	require.NoError(t, err)
	assert.True(t, snap.Ended)
	assert.Equal(t, []string{"seg_ending_0", "seg_ending_1"}, snap.EndingSegmentIDs)

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.StoriesCreated)
	assert.Equal(t, int64(5), stats.SegmentsGenerated)
	assert.Equal(t, int64(1), stats.StoriesEnded)
}

func TestAdvanceRejectsUnknownIDs(t *testing.T) {
	e, created := newTestStory(t, generator.MockWriter{})
	ctx := context.Background()
	id := created.Session.ID

	_, err := e.Advance(ctx, "no-such-story", "choice_1", "opt_1_0")
	assert.ErrorIs(t, err, ErrStoryNotFound)

	_, err = e.Advance(ctx, id, "choice_99", "opt_99_0")
	assert.ErrorIs(t, err, ErrUnknownChoicePoint)

	_, err = e.Advance(ctx, id, "choice_1", "opt_1_9")
	assert.ErrorIs(t, err, ErrUnknownOption)

	assert.Len(t, created.Session.Segments, 1, "failed lookups never materialize segments")
	assert.Empty(t, created.Session.History)
}

func TestAdvanceGenerationFailureLeavesSessionUntouched(t *testing.T) {
	writer := &flakyWriter{failFrom: 2}
	e, created := newTestStory(t, writer)
	ctx := context.Background()
	id := created.Session.ID

	_, err := e.Advance(ctx, id, "choice_1", "opt_1_0")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownChoicePoint)
	assert.Len(t, created.Session.Segments, 1)
	assert.Empty(t, created.Session.History)

	writer.mu.Lock()
	writer.failFrom = 0
	writer.mu.Unlock()

	res, err := e.Advance(ctx, id, "choice_1", "opt_1_0")
	require.NoError(t, err, "same choice succeeds once the writer recovers")
	assert.Equal(t, "seg_1_0", res.Segment.ID)
	assert.Len(t, created.Session.Segments, 2)
	assert.Len(t, created.Session.History, 1)
}

func TestAdvanceRepeatOverwritesSegment(t *testing.T) {
	e, created := newTestStory(t, generator.MockWriter{})
	ctx := context.Background()
	id := created.Session.ID

	first, err := e.Advance(ctx, id, "choice_1", "opt_1_0")
	require.NoError(t, err)
	second, err := e.Advance(ctx, id, "choice_1", "opt_1_0")
	require.NoError(t, err)

	assert.NotSame(t, first.Segment, second.Segment)
	assert.Len(t, created.Session.Segments, 2, "repeat choice replaces, never duplicates")
	assert.Len(t, created.Session.History, 2, "every applied choice is recorded")
	assert.Same(t, second.Segment, created.Session.Segments["seg_1_0"])
}

func TestConcurrentAdvancesStayConsistent(t *testing.T) {
	e, created := newTestStory(t, generator.MockWriter{})
	ctx := context.Background()
	id := created.Session.ID

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		optionID := []string{"opt_1_0", "opt_1_1"}[i%2]
		wg.Add(1)
		go func(optionID string) {
			defer wg.Done()
			_, err := e.Advance(ctx, id, "choice_1", optionID)
			assert.NoError(t, err)
		}(optionID)
	}
	wg.Wait()

	assert.Len(t, created.Session.Segments, 3, "start plus both first-hop segments")
	assert.Len(t, created.Session.History, 8)
}

func TestGetSegment(t *testing.T) {
	e, created := newTestStory(t, generator.MockWriter{})
	id := created.Session.ID

	seg, err := e.GetSegment(id, story.StartSegmentID)
	require.NoError(t, err)
	assert.Equal(t, story.StartSegmentID, seg.ID)

	_, err = e.GetSegment(id, "seg_1_0")
	assert.ErrorContains(t, err, "not generated")

	_, err = e.GetSegment("no-such-story", story.StartSegmentID)
	assert.ErrorIs(t, err, ErrStoryNotFound)
}

func TestEndStoryRemovesSession(t *testing.T) {
	e, created := newTestStory(t, generator.MockWriter{})
	id := created.Session.ID

	require.Contains(t, e.ActiveStories(), id)
	require.NoError(t, e.EndStory(id))
	assert.Empty(t, e.ActiveStories())

	_, err := e.GetSession(id)
	assert.ErrorIs(t, err, ErrStoryNotFound)
	assert.ErrorIs(t, e.EndStory(id), ErrStoryNotFound)
}

func TestCreateStoryPlannerFailure(t *testing.T) {
	e := NewEngine(failingPlanner{}, generator.MockWriter{})
	_, err := e.CreateStory(context.Background(), &interfaces.StoryRequest{ChildAge: 6})
	require.Error(t, err)
	assert.Empty(t, e.ActiveStories(), "nothing is registered on failure")
	assert.Equal(t, int64(0), e.Stats().StoriesCreated)
}

type failingPlanner struct{}

func (failingPlanner) PlanOutline(context.Context, *interfaces.StoryRequest) (*story.Outline, error) {
	return nil, errors.New("planner unavailable")
}
