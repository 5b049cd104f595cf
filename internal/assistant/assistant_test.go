package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
	"renkioo/server/internal/prompts"
)

type stubChat struct {
	reply   string
	err     error
	lastReq llm.ChatRequest
}

func (s *stubChat) Chat(_ context.Context, req llm.ChatRequest) (string, error) {
	s.lastReq = req
	return s.reply, s.err
}

func (s *stubChat) Vision(context.Context, llm.VisionRequest) (string, error) {
	return "", nil
}

type stubMemories struct {
	stored    []*interfaces.Memory
	found     []*interfaces.Memory
	searchErr error
}

func (s *stubMemories) StoreMemory(_ context.Context, m *interfaces.Memory) error {
	s.stored = append(s.stored, m)
	return nil
}

func (s *stubMemories) SearchMemories(context.Context, string, string, int) ([]*interfaces.Memory, error) {
	return s.found, s.searchErr
}

func (s *stubMemories) DeleteChildMemories(context.Context, string) error {
	return nil
}

func TestChatUsesMemoriesAndClassification(t *testing.T) {
	chat := &stubChat{reply: "  Yay! Let's make a fox story! 🦊  "}
	memories := &stubMemories{found: []*interfaces.Memory{
		{Content: "Mina finished the story of Pip the fox"},
		{Content: "Mina drew a picture: a bright house under a big sun"},
	}}
	a := NewAssistant(chat, prompts.NewEngine(), memories)

	reply, err := a.Chat(context.Background(), &ChatRequest{
		ChildID:   "child-1",
		ChildName: "Mina",
		ChildAge:  6,
		Message:   "tell me a story!",
	})
	require.NoError(t, err)

	assert.Equal(t, "Yay! Let's make a fox story! 🦊", reply.Reply)
	assert.Equal(t, IntentAskStory, reply.Intent)
	assert.Equal(t, EmotionNeutral, reply.Emotion)
	assert.True(t, reply.FromModel)

	assert.Equal(t, prompts.SystemMascot, chat.lastReq.System)
	assert.Contains(t, chat.lastReq.User, "Pip the fox")
	assert.Contains(t, chat.lastReq.User, "a story request")
	assert.Contains(t, chat.lastReq.User, "Mina, who is 6")
	assert.Contains(t, chat.lastReq.User, `"tell me a story!"`)
}

func TestChatFallsBackWhenModelFails(t *testing.T) {
	chat := &stubChat{err: errors.New("model down")}
	a := NewAssistant(chat, prompts.NewEngine(), nil)

	reply, err := a.Chat(context.Background(), &ChatRequest{Message: "hello!"})
	require.NoError(t, err, "the child always gets an answer")

	assert.False(t, reply.FromModel)
	assert.Equal(t, IntentGreeting, reply.Intent)
	assert.Equal(t, fallbackReplies["en"][IntentGreeting], reply.Reply)
}

func TestChatFallbackSpeaksTurkish(t *testing.T) {
	chat := &stubChat{err: errors.New("model down")}
	a := NewAssistant(chat, prompts.NewEngine(), nil)

	reply, err := a.Chat(context.Background(), &ChatRequest{Message: "merhaba", Language: "tr"})
	require.NoError(t, err)
	assert.Equal(t, fallbackReplies["tr"][IntentGreeting], reply.Reply)
}

func TestChatStoresFeelingNote(t *testing.T) {
	chat := &stubChat{reply: "Riko is here with you."}
	memories := &stubMemories{}
	a := NewAssistant(chat, prompts.NewEngine(), memories)

	_, err := a.Chat(context.Background(), &ChatRequest{
		ChildID:   "child-1",
		ChildName: "Mina",
		Message:   "I feel sad today",
	})
	require.NoError(t, err)

	require.Len(t, memories.stored, 1)
	note := memories.stored[0]
	assert.Equal(t, interfaces.MemoryChatNote, note.Type)
	assert.Equal(t, "child-1", note.ChildID)
	assert.Contains(t, note.Content, "feeling sad")
}

func TestChatSkipsNoteForNeutralMessages(t *testing.T) {
	chat := &stubChat{reply: "Hi hi!"}
	memories := &stubMemories{}
	a := NewAssistant(chat, prompts.NewEngine(), memories)

	_, err := a.Chat(context.Background(), &ChatRequest{ChildID: "child-1", Message: "hello"})
	require.NoError(t, err)
	assert.Empty(t, memories.stored)
}

func TestChatSurvivesMemorySearchFailure(t *testing.T) {
	chat := &stubChat{reply: "Let's play!"}
	memories := &stubMemories{searchErr: errors.New("qdrant down")}
	a := NewAssistant(chat, prompts.NewEngine(), memories)

	reply, err := a.Chat(context.Background(), &ChatRequest{ChildID: "child-1", Message: "hi"})
	require.NoError(t, err)
	assert.True(t, reply.FromModel)
	assert.Contains(t, chat.lastReq.User, "fresh start")
}
