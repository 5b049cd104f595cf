package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renkioo/server/internal/analysis"
	"renkioo/server/internal/assistant"
	"renkioo/server/internal/engine"
	"renkioo/server/internal/generator"
	"renkioo/server/internal/illustration"
	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
	"renkioo/server/internal/narration"
	"renkioo/server/internal/prompts"
	"renkioo/server/internal/story"
)

// stubModel answers every model surface with canned output.
type stubModel struct {
	chatReply   string
	visionReply string
	imageDelay  time.Duration
	err         error
}

func (s stubModel) Chat(context.Context, llm.ChatRequest) (string, error) {
	return s.chatReply, s.err
}

func (s stubModel) Vision(context.Context, llm.VisionRequest) (string, error) {
	return s.visionReply, s.err
}

func (s stubModel) Image(context.Context, llm.ImageRequest) ([]byte, error) {
	if s.imageDelay > 0 {
		time.Sleep(s.imageDelay)
	}
	return []byte("png-bytes"), s.err
}

func (s stubModel) Speech(context.Context, llm.SpeechRequest) ([]byte, error) {
	return []byte("mp3-bytes"), s.err
}

func newEngine() *engine.Engine {
	return engine.NewEngine(generator.MockPlanner{}, generator.MockWriter{})
}

func TestHealthEndpoint(t *testing.T) {
	router := NewRouter(testConfig(), Services{Engine: newEngine()})
	createStory(t, router)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[healthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "renkioo", resp.Service)
	assert.Equal(t, 1, resp.Stats.ActiveSessions)
	assert.Equal(t, int64(1), resp.Stats.StoriesCreated)
	assert.False(t, resp.MySQL)
	assert.False(t, resp.Memories)
	assert.Nil(t, resp.Illustrations)
}

func TestTraitsEndpoints(t *testing.T) {
	router := newStoryRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/traits", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[traitsResponse](t, w)
	require.Len(t, list.Traits, 8)
	assert.Equal(t, "Empathy", list.Traits[0].Name)

	w = doJSON(t, router, http.MethodGet, "/api/v1/traits?language=tr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Empati", decode[traitsResponse](t, w).Traits[0].Name)

	w = doJSON(t, router, http.MethodGet, "/api/v1/traits/courage?language=tr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	single := decode[traitsResponse](t, w)
	require.NotNil(t, single.Trait)
	assert.Equal(t, "Cesaret", single.Trait.Name)

	w = doJSON(t, router, http.MethodGet, "/api/v1/traits/wizardry", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIllustrationStylesEndpoint(t *testing.T) {
	router := newStoryRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/illustration/styles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[StylesResponse](t, w)
	require.Len(t, resp.Styles, 4)
	assert.Equal(t, "watercolor", resp.Styles[0].ID)
}

func TestUnconfiguredServicesReturn503(t *testing.T) {
	router := newStoryRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{"chat", http.MethodPost, "/api/v1/chat", map[string]interface{}{"message": "hi"}},
		{"analysis", http.MethodPost, "/api/v1/analysis/drawing", map[string]interface{}{
			"child_age": 6, "image_url": "https://example.com/drawing.png",
		}},
		{"illustration", http.MethodPost, "/api/v1/illustration/generate", map[string]interface{}{"prompt": "a fox"}},
		{"coloring", http.MethodPost, "/api/v1/coloring/generate", map[string]interface{}{"prompt": "a fox"}},
		{"narration", http.MethodPost, "/api/v1/narration/generate", map[string]interface{}{"text": "hello"}},
		{"recent analyses", http.MethodGet, "/api/v1/analysis/recent", nil},
		{"websocket", http.MethodGet, "/ws", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, router, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusServiceUnavailable, w.Code, "body: %s", w.Body.String())
		})
	}
}

func TestChatEndpoint(t *testing.T) {
	asst := assistant.NewAssistant(
		stubModel{chatReply: "Hello Mina! Shall we pick an adventure together?"},
		prompts.NewEngine(), nil)
	router := NewRouter(testConfig(), Services{Engine: newEngine(), Assistant: asst})

	w := doJSON(t, router, http.MethodPost, "/api/v1/chat", map[string]interface{}{
		"message":    "can you tell me a story please",
		"child_name": "Mina",
		"child_age":  6,
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	resp := decode[ChatResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "Hello Mina! Shall we pick an adventure together?", resp.Reply)
	assert.Equal(t, assistant.IntentAskStory, resp.Intent)
	assert.True(t, resp.FromModel)

	missing := doJSON(t, router, http.MethodPost, "/api/v1/chat", map[string]interface{}{"child_name": "Mina"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestAnalyzeDrawingEndpoint(t *testing.T) {
	visionJSON := `{
		"summary": "A small house under a big sun, every window colored black.",
		"emotions": [{"name": "joy", "confidence": 0.7}, {"name": "worry", "confidence": 0.4}],
		"themes": ["home", "night"],
		"developmental_observations": ["detail level typical for age six"],
		"recommendations": ["ask which room belongs to whom"],
		"concern": "fear",
		"concern_explanation": "all the windows are colored black"
	}`
	analyzer := analysis.NewAnalyzer(stubModel{visionReply: visionJSON}, prompts.NewEngine())
	router := NewRouter(testConfig(), Services{Engine: newEngine(), Analyzer: analyzer})

	w := doJSON(t, router, http.MethodPost, "/api/v1/analysis/drawing", map[string]interface{}{
		"child_age":  6,
		"child_name": "Mina",
		"image_url":  "https://example.com/drawing.png",
	})
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())

	resp := decode[AnalyzeDrawingResponse](t, w)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.AnalysisID)
	require.NotNil(t, resp.Analysis)
	assert.Equal(t, "A small house under a big sun, every window colored black.", resp.Analysis.Summary)
	assert.Equal(t, "fear", resp.Analysis.Concern)
	require.NotNil(t, resp.TherapeuticContext)
	assert.Equal(t, "fear", string(resp.TherapeuticContext.Concern))
	assert.Contains(t, resp.TherapeuticContext.Explanation, "all the windows are colored black")
	assert.Contains(t, resp.TherapeuticContext.RecommendedTraits, story.TraitCourage)

	invalid := doJSON(t, router, http.MethodPost, "/api/v1/analysis/drawing", map[string]interface{}{
		"child_age": 6,
	})
	assert.Equal(t, http.StatusBadRequest, invalid.Code)
}

func TestAnalysisRecordCarriesChildIdentity(t *testing.T) {
	req := &AnalyzeDrawingRequest{
		ChildID:   "child-1",
		ChildName: "Mina",
		ChildAge:  6,
		ImageURL:  "https://example.com/drawing.png",
	}
	result := &analysis.DrawingAnalysis{
		Summary:            "A small house under a big sun.",
		Concern:            "fear",
		ConcernExplanation: "all the windows are colored black",
	}

	rec, err := newAnalysisRecord("an-1", req, result)
	require.NoError(t, err)
	assert.Equal(t, "an-1", rec.ID)
	assert.Equal(t, "child-1", rec.ChildID)
	assert.Equal(t, "Mina", rec.ChildName)
	assert.Equal(t, "fear", rec.Concern)
	assert.NotEmpty(t, rec.AnalysisJSON)

	calm := &analysis.DrawingAnalysis{Summary: "A cat.", Concern: analysis.NoConcern}
	rec, err = newAnalysisRecord("an-2", req, calm)
	require.NoError(t, err)
	assert.Empty(t, rec.Concern)
}

func TestNarrationEndpoint(t *testing.T) {
	cache := narration.NewCache(t.TempDir())
	require.NoError(t, cache.Initialize())
	svc := narration.NewService(stubModel{}, cache, nil, "/assets/narration", "nova")
	router := NewRouter(testConfig(), Services{Engine: newEngine(), Narration: svc})

	body := map[string]interface{}{"text": "Once upon a time, deep in the Whispering Woods."}

	w := doJSON(t, router, http.MethodPost, "/api/v1/narration/generate", body)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	first := decode[NarrationResponse](t, w)
	assert.True(t, first.Success)
	require.NotNil(t, first.Result)
	assert.True(t, strings.HasPrefix(first.Result.AudioURL, "/assets/narration/"))
	assert.True(t, strings.HasSuffix(first.Result.AudioURL, ".mp3"))
	assert.False(t, first.Result.Cached)

	w = doJSON(t, router, http.MethodPost, "/api/v1/narration/generate", body)
	require.Equal(t, http.StatusOK, w.Code)
	second := decode[NarrationResponse](t, w)
	require.NotNil(t, second.Result)
	assert.True(t, second.Result.Cached)
	assert.Equal(t, first.Result.AudioURL, second.Result.AudioURL)
}

func TestIllustrationEndpointLifecycle(t *testing.T) {
	cache := illustration.NewCache(t.TempDir())
	require.NoError(t, cache.Initialize())
	svc := illustration.NewService(
		stubModel{imageDelay: 100 * time.Millisecond},
		illustration.NewRegistry(), cache, prompts.NewEngine(), nil, "/assets/illustrations")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx, 1)
	defer svc.Stop()

	router := NewRouter(testConfig(), Services{Engine: newEngine(), Illustrations: svc})
	body := map[string]interface{}{
		"prompt":      "a fox resting by the river at dusk",
		"story_id":    "story-1",
		"segment_id":  "seg_start",
		"page_number": 1,
	}

	w := doJSON(t, router, http.MethodPost, "/api/v1/illustration/generate", body)
	require.Equal(t, http.StatusAccepted, w.Code, "body: %s", w.Body.String())
	queued := decode[IllustrationResponse](t, w)
	assert.True(t, queued.Success)
	require.NotEmpty(t, queued.JobID)

	deadline := time.Now().Add(3 * time.Second)
	var done IllustrationResponse
	for {
		pw := doJSON(t, router, http.MethodGet, "/api/v1/illustration/"+queued.JobID, nil)
		if pw.Code == http.StatusOK {
			done = decode[IllustrationResponse](t, pw)
			break
		}
		require.Equal(t, http.StatusNotFound, pw.Code, "body: %s", pw.Body.String())
		require.True(t, time.Now().Before(deadline), "illustration job never finished")
		time.Sleep(20 * time.Millisecond)
	}
	require.NotNil(t, done.Result)
	assert.Empty(t, done.Result.Error)
	assert.True(t, strings.HasPrefix(done.Result.ImageURL, "/assets/illustrations/"))

	// same prompt and style land on the disk cache, no queueing round-trip
	w = doJSON(t, router, http.MethodPost, "/api/v1/illustration/generate", body)
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	cached := decode[IllustrationResponse](t, w)
	require.NotNil(t, cached.Result)
	assert.True(t, cached.Result.Cached)
}

func TestStoryStreamWebSocket(t *testing.T) {
	hub := NewStoryHub()
	go hub.Run()

	router := NewRouter(testConfig(), Services{Engine: newEngine(), Hub: hub})
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?story_id=story-1"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, welcome, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(welcome), `"connected"`)
	assert.Contains(t, string(welcome), "story-1")

	// the client is scoped to story-1 and must not hear other stories
	hub.Publish(interfaces.NewStoryEvent(interfaces.EventSegmentReady, "story-2",
		map[string]interface{}{"segment_id": "seg_other"}))
	hub.Publish(interfaces.NewStoryEvent(interfaces.EventSegmentReady, "story-1",
		map[string]interface{}{"segment_id": "seg_mine"}))

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "seg_mine")
	assert.NotContains(t, string(msg), "seg_other")
}
