package assistant

import "strings"

// Intent is what the child's message is asking for.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentAskStory     Intent = "ask_story"
	IntentAskDrawing   Intent = "ask_drawing"
	IntentFeelingCheck Intent = "feeling_check"
	IntentHelp         Intent = "help"
	IntentGoodbye      Intent = "goodbye"
	IntentUnknown      Intent = "unknown"
)

// Emotion is the feeling read from the child's message.
type Emotion string

const (
	EmotionHappy   Emotion = "happy"
	EmotionSad     Emotion = "sad"
	EmotionAngry   Emotion = "angry"
	EmotionScared  Emotion = "scared"
	EmotionExcited Emotion = "excited"
	EmotionNeutral Emotion = "neutral"
)

// Classification is the deterministic read of one message.
type Classification struct {
	Intent  Intent  `json:"intent"`
	Emotion Emotion `json:"emotion"`
}

// intentPriority orders matching so specific asks beat generic openers:
// "hi, tell me a story" is a story request, not a greeting.
var intentPriority = []Intent{
	IntentAskStory,
	IntentAskDrawing,
	IntentFeelingCheck,
	IntentHelp,
	IntentGoodbye,
	IntentGreeting,
}

var intentKeywords = map[string]map[Intent][]string{
	"en": {
		IntentGreeting:     {"hello", "hi", "hey", "good morning", "good evening"},
		IntentAskStory:     {"story", "tale", "adventure", "once upon"},
		IntentAskDrawing:   {"draw", "drawing", "picture", "paint", "coloring"},
		IntentFeelingCheck: {"i feel", "i'm sad", "i am sad", "feeling", "how are you"},
		IntentHelp:         {"help", "what can you do", "how do i", "how does"},
		IntentGoodbye:      {"bye", "goodbye", "good night", "see you"},
	},
	"tr": {
		IntentGreeting:     {"merhaba", "selam", "günaydın", "iyi akşamlar"},
		IntentAskStory:     {"masal", "hikaye", "hikâye", "macera", "bir varmış"},
		IntentAskDrawing:   {"resim", "resmi", "çizim", "çiz", "boyama"},
		IntentFeelingCheck: {"hissediyorum", "üzgünüm", "nasılsın", "kendimi"},
		IntentHelp:         {"yardım", "ne yapabilirsin", "nasıl"},
		IntentGoodbye:      {"hoşça kal", "güle güle", "iyi geceler", "görüşürüz"},
	},
}

var emotionPriority = []Emotion{
	EmotionScared,
	EmotionSad,
	EmotionAngry,
	EmotionExcited,
	EmotionHappy,
}

var emotionKeywords = map[string]map[Emotion][]string{
	"en": {
		EmotionHappy:   {"happy", "glad", "yay", "love", "fun"},
		EmotionSad:     {"sad", "cry", "crying", "miss", "lonely"},
		EmotionAngry:   {"angry", "mad", "hate", "unfair"},
		EmotionScared:  {"scared", "afraid", "scary", "frightened", "nightmare"},
		EmotionExcited: {"excited", "can't wait", "cant wait", "awesome", "wow"},
	},
	"tr": {
		EmotionHappy:   {"mutlu", "sevinçli", "harika", "seviyorum"},
		EmotionSad:     {"üzgün", "ağlıyorum", "özledim", "yalnız"},
		EmotionAngry:   {"kızgın", "sinirli", "öfkeli", "haksızlık"},
		EmotionScared:  {"korku", "korkuyorum", "korkunç", "kabus"},
		EmotionExcited: {"heyecan", "sabırsız", "vay"},
	},
}

// Classify reads intent and emotion from one message with the keyword
// tables for the given language ("en" fallback). It is pure: same message,
// same result.
func Classify(message, language string) Classification {
	normalized := strings.ToLower(strings.TrimSpace(message))

	intents, ok := intentKeywords[language]
	if !ok {
		intents = intentKeywords["en"]
	}
	emotions, ok := emotionKeywords[language]
	if !ok {
		emotions = emotionKeywords["en"]
	}

	out := Classification{Intent: IntentUnknown, Emotion: EmotionNeutral}
	for _, intent := range intentPriority {
		if containsAny(normalized, intents[intent]) {
			out.Intent = intent
			break
		}
	}
	for _, emotion := range emotionPriority {
		if containsAny(normalized, emotions[emotion]) {
			out.Emotion = emotion
			break
		}
	}
	return out
}

func containsAny(message string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}
