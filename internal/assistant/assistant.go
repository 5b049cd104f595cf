package assistant

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"renkioo/server/internal/interfaces"
	"renkioo/server/internal/llm"
	"renkioo/server/internal/prompts"
)

const memoryLimit = 3

// ChatRequest is one child message to the mascot.
type ChatRequest struct {
	ChildID   string `json:"child_id" validate:"omitempty,max=64"`
	ChildName string `json:"child_name" validate:"omitempty,max=64"`
	ChildAge  int    `json:"child_age" validate:"omitempty,gte=1,lte=14"`
	Message   string `json:"message" validate:"required,max=500"`
	Language  string `json:"language" validate:"omitempty,oneof=en tr"`
}

// ChatReply is the mascot's answer plus the classifier's read of the
// message. FromModel is false when the canned fallback was used.
type ChatReply struct {
	Reply     string  `json:"reply"`
	Intent    Intent  `json:"intent"`
	Emotion   Emotion `json:"emotion"`
	FromModel bool    `json:"from_model"`
}

// Assistant is the mascot chat service: deterministic classification, memory
// retrieval, one model call, canned fallback when the model is down.
type Assistant struct {
	model    llm.ChatModel
	prompts  *prompts.Engine
	memories interfaces.VectorStore
}

// NewAssistant creates the mascot service. memories may be nil; the
// assistant then answers without recall.
func NewAssistant(model llm.ChatModel, engine *prompts.Engine, memories interfaces.VectorStore) *Assistant {
	return &Assistant{model: model, prompts: engine, memories: memories}
}

// Chat answers one message. Model failures degrade to a per-intent canned
// reply instead of surfacing an error; the child always gets an answer.
func (a *Assistant) Chat(ctx context.Context, req *ChatRequest) (*ChatReply, error) {
	cls := Classify(req.Message, req.Language)

	prompt, err := a.prompts.Render(prompts.TmplChatReply, map[string]string{
		"child_line":    childLine(req.ChildName, req.ChildAge),
		"emotion":       string(cls.Emotion),
		"intent":        intentDescription(cls.Intent),
		"memories":      a.recall(ctx, req),
		"message":       req.Message,
		"language_line": languageLine(req.Language),
	})
	if err != nil {
		return nil, err
	}

	reply := &ChatReply{Intent: cls.Intent, Emotion: cls.Emotion}
	out, err := a.model.Chat(ctx, llm.ChatRequest{
		System:      prompts.SystemMascot,
		User:        prompt,
		Temperature: 0.8,
		MaxTokens:   300,
	})
	if err != nil {
		log.Warnf("[Assistant] model call failed, using fallback: %v", err)
		reply.Reply = fallbackReply(cls.Intent, req.Language)
		return reply, nil
	}

	reply.Reply = strings.TrimSpace(out)
	reply.FromModel = true
	a.noteFeeling(ctx, req, cls)
	return reply, nil
}

// recall fetches the child's closest memories for the prompt. Failures and
// missing stores degrade to "nothing yet".
func (a *Assistant) recall(ctx context.Context, req *ChatRequest) string {
	if a.memories == nil || req.ChildID == "" {
		return "nothing yet, this is a fresh start"
	}
	found, err := a.memories.SearchMemories(ctx, req.ChildID, req.Message, memoryLimit)
	if err != nil {
		log.Warnf("[Assistant] memory search failed: %v", err)
		return "nothing yet, this is a fresh start"
	}
	if len(found) == 0 {
		return "nothing yet, this is a fresh start"
	}

	lines := make([]string, 0, len(found))
	for _, m := range found {
		lines = append(lines, "- "+m.Content)
	}
	return strings.Join(lines, "\n")
}

// noteFeeling records a strong feeling check-in as a chat note so later
// conversations can pick it up. Best effort.
func (a *Assistant) noteFeeling(ctx context.Context, req *ChatRequest, cls Classification) {
	if a.memories == nil || req.ChildID == "" {
		return
	}
	if cls.Intent != IntentFeelingCheck || cls.Emotion == EmotionNeutral {
		return
	}

	name := req.ChildName
	if name == "" {
		name = "the child"
	}
	err := a.memories.StoreMemory(ctx, &interfaces.Memory{
		ChildID: req.ChildID,
		Type:    interfaces.MemoryChatNote,
		Content: fmt.Sprintf("%s told Riko they were feeling %s", name, cls.Emotion),
		Metadata: map[string]interface{}{
			"emotion": string(cls.Emotion),
		},
	})
	if err != nil {
		log.Warnf("[Assistant] failed to store chat note: %v", err)
	}
}

func childLine(name string, age int) string {
	switch {
	case name != "" && age > 0:
		return fmt.Sprintf("You are talking with %s, who is %d years old. ", name, age)
	case name != "":
		return fmt.Sprintf("You are talking with %s. ", name)
	case age > 0:
		return fmt.Sprintf("You are talking with a %d-year-old child. ", age)
	default:
		return ""
	}
}

func intentDescription(intent Intent) string {
	switch intent {
	case IntentGreeting:
		return "a greeting"
	case IntentAskStory:
		return "a story request"
	case IntentAskDrawing:
		return "a question about drawing"
	case IntentFeelingCheck:
		return "a feelings check-in"
	case IntentHelp:
		return "a request for help"
	case IntentGoodbye:
		return "a goodbye"
	default:
		return "hard to classify"
	}
}

func languageLine(language string) string {
	switch language {
	case "tr":
		return "Reply in Turkish."
	case "", "en":
		return "Reply in English."
	default:
		return fmt.Sprintf("Reply in the language tagged %q.", language)
	}
}

var fallbackReplies = map[string]map[Intent]string{
	"en": {
		IntentGreeting:     "Hi hi! Riko is so happy to see you! 🦎",
		IntentAskStory:     "Ooh, a story! Tap the story button and we will make one together!",
		IntentAskDrawing:   "I love your drawings! Show me one and we can look at it together!",
		IntentFeelingCheck: "Thank you for telling me how you feel. Riko is right here with you.",
		IntentHelp:         "I can look at drawings, tell stories, and chat with you! What sounds fun?",
		IntentGoodbye:      "Bye bye! Come back soon, I will miss you!",
		IntentUnknown:      "Hmm, Riko is thinking... can you tell me that another way?",
	},
	"tr": {
		IntentGreeting:     "Merhaba! Riko seni gördüğüne çok sevindi! 🦎",
		IntentAskStory:     "Ooo, masal! Masal düğmesine bas, birlikte bir tane yapalım!",
		IntentAskDrawing:   "Resimlerini çok seviyorum! Bana bir tane göster, birlikte bakalım!",
		IntentFeelingCheck: "Nasıl hissettiğini söylediğin için teşekkürler. Riko yanında.",
		IntentHelp:         "Resimlere bakabilirim, masal anlatabilirim ve seninle konuşabilirim!",
		IntentGoodbye:      "Güle güle! Yakında yine gel, seni özlerim!",
		IntentUnknown:      "Hmm, Riko düşünüyor... başka türlü anlatır mısın?",
	},
}

func fallbackReply(intent Intent, language string) string {
	table, ok := fallbackReplies[language]
	if !ok {
		table = fallbackReplies["en"]
	}
	if reply, ok := table[intent]; ok {
		return reply
	}
	return table[IntentUnknown]
}
