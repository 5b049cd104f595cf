package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renkioo/server/internal/llm"
	"renkioo/server/internal/prompts"
	"renkioo/server/internal/story"
)

type stubVision struct {
	reply   string
	err     error
	lastReq llm.VisionRequest
}

func (s *stubVision) Chat(context.Context, llm.ChatRequest) (string, error) {
	return "", nil
}

func (s *stubVision) Vision(_ context.Context, req llm.VisionRequest) (string, error) {
	s.lastReq = req
	return s.reply, s.err
}

func analysisJSON(concern, explanation string) string {
	return `{
		"summary": "A bright house under a big yellow sun, drawn with confident strokes.",
		"emotions": [{"name": "joy", "confidence": 0.9}, {"name": "calm", "confidence": 0.6}],
		"themes": ["home", "sunshine"],
		"developmental_observations": ["people drawn with full bodies"],
		"recommendations": ["ask who lives in the house"],
		"concern": "` + concern + `",
		"concern_explanation": "` + explanation + `"
	}`
}

func TestAnalyzeDrawing(t *testing.T) {
	stub := &stubVision{reply: analysisJSON("none", "")}
	analyzer := NewAnalyzer(stub, prompts.NewEngine())

	got, err := analyzer.AnalyzeDrawing(context.Background(), &AnalysisRequest{
		ChildAge: 6,
		ImageURL: "https://uploads.example/drawing.png",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://uploads.example/drawing.png", stub.lastReq.ImageURL)
	assert.True(t, stub.lastReq.JSONMode)
	assert.Contains(t, stub.lastReq.Instruction, "6-year-old")
	assert.Contains(t, stub.lastReq.Instruction, "English")

	assert.Equal(t, NoConcern, got.Concern)
	assert.False(t, got.HasConcern())
	assert.Len(t, got.Emotions, 2)
	assert.Nil(t, TherapeuticContext(got))
}

func TestAnalyzeDrawingNormalizesEmptyConcern(t *testing.T) {
	raw := strings.Replace(analysisJSON("none", ""), `"none"`, `""`, 1)
	stub := &stubVision{reply: raw}
	analyzer := NewAnalyzer(stub, prompts.NewEngine())

	got, err := analyzer.AnalyzeDrawing(context.Background(), &AnalysisRequest{
		ChildAge: 4,
		ImageURL: "https://uploads.example/drawing.png",
	})
	require.NoError(t, err)
	assert.Equal(t, NoConcern, got.Concern)
}

func TestAnalyzeDrawingRejectsBadOutput(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"unknown concern", analysisJSON("jealousy", "green crayon everywhere")},
		{"confidence out of range", strings.Replace(analysisJSON("none", ""), "0.9", "1.4", 1)},
		{"no json at all", "such a lovely drawing!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubVision{reply: tc.reply}
			analyzer := NewAnalyzer(stub, prompts.NewEngine())
			_, err := analyzer.AnalyzeDrawing(context.Background(), &AnalysisRequest{
				ChildAge: 6,
				ImageURL: "https://uploads.example/drawing.png",
			})
			assert.ErrorIs(t, err, llm.ErrGenerationParse)
		})
	}
}

func TestTherapeuticContextFromConcern(t *testing.T) {
	stub := &stubVision{reply: analysisJSON("fear", "the storm fills most of the page")}
	analyzer := NewAnalyzer(stub, prompts.NewEngine())

	got, err := analyzer.AnalyzeDrawing(context.Background(), &AnalysisRequest{
		ChildAge: 7,
		ImageURL: "https://uploads.example/drawing.png",
	})
	require.NoError(t, err)
	require.True(t, got.HasConcern())

	tc := TherapeuticContext(got)
	require.NotNil(t, tc)
	assert.Equal(t, story.ConcernFear, tc.Concern)
	assert.NotEmpty(t, tc.RecommendedTraits)
	assert.Equal(t, "The drawing suggests: the storm fills most of the page", tc.Explanation)
}

func TestMemorySummary(t *testing.T) {
	analysis := &DrawingAnalysis{
		Summary: "A rocket over a tiny blue planet.",
		Themes:  []string{"space", "exploring"},
		Concern: "loneliness",
	}
	line := MemorySummary(&AnalysisRequest{ChildName: "Mina"}, analysis)
	assert.Contains(t, line, "Mina drew a picture")
	assert.Contains(t, line, "space, exploring")
	assert.Contains(t, line, "loneliness")

	noName := MemorySummary(&AnalysisRequest{}, &DrawingAnalysis{Summary: "A cat."})
	assert.Contains(t, noName, "the child drew")
}
