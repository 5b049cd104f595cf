package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outlineProbe struct {
	Title string   `json:"title"`
	Moods []string `json:"moods"`
	Score float64  `json:"score"`
}

func TestExtractJSON_Clean(t *testing.T) {
	got, err := ExtractJSON[outlineProbe](`{"title":"The Fog","moods":["calm"],"score":0.9}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "The Fog", got.Title)
	assert.Equal(t, []string{"calm"}, got.Moods)
}

func TestExtractJSON_FencedWithProse(t *testing.T) {
	raw := "Here is the outline you asked for:\n```json\n{\"title\":\"The Fog\",\"moods\":[\"calm\",\"magical\"],\"score\":1}\n```\nLet me know if you want changes."

	got, err := ExtractJSON[outlineProbe](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "The Fog", got.Title)
	assert.Len(t, got.Moods, 2)
}

func TestExtractJSON_NestedBracesInStrings(t *testing.T) {
	raw := `{"title":"A {very} twisty \"tale\"","moods":[],"score":1} trailing {junk}`

	got, err := ExtractJSON[outlineProbe](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, `A {very} twisty "tale"`, got.Title)
}

func TestExtractJSON_StripsComments(t *testing.T) {
	raw := `{
		"title": "The Fog", // working title
		/* score is provisional */
		"score": 0.5,
		"moods": ["calm"]
	}`

	got, err := ExtractJSON[outlineProbe](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "The Fog", got.Title)
	assert.Equal(t, 0.5, got.Score)
}

func TestExtractJSON_RepairsBareDecimals(t *testing.T) {
	got, err := ExtractJSON[outlineProbe](`{"title":"x","moods":[],"score":.8}`, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.8, got.Score)

	got, err = ExtractJSON[outlineProbe](`{"title":"x","moods":[],"score":-.3}`, nil)
	require.NoError(t, err)
	assert.Equal(t, -0.3, got.Score)

	// "1.5" must stay untouched.
	got, err = ExtractJSON[outlineProbe](`{"title":"x","moods":[],"score":1.5}`, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.5, got.Score)
}

func TestExtractJSON_NoObject(t *testing.T) {
	_, err := ExtractJSON[outlineProbe]("I am sorry, I cannot produce that.", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationParse)
}

func TestExtractJSON_Malformed(t *testing.T) {
	_, err := ExtractJSON[outlineProbe](`{"title": "unterminated`, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationParse)
}

func TestExtractJSON_ValidatorRejects(t *testing.T) {
	_, err := ExtractJSON[outlineProbe](`{"title":"","moods":[],"score":1}`, func(p *outlineProbe) error {
		if p.Title == "" {
			return fmt.Errorf("title required")
		}
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationParse)
	assert.Contains(t, err.Error(), "title required")
}
