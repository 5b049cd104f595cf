package story

// Trait is one of the eight character values a story can exercise. Every
// option an outline offers maps to exactly one trait; nothing outside this
// set is ever accepted from the model.
type Trait string

const (
	TraitEmpathy        Trait = "empathy"
	TraitCourage        Trait = "courage"
	TraitCuriosity      Trait = "curiosity"
	TraitCreativity     Trait = "creativity"
	TraitProblemSolving Trait = "problem_solving"
	TraitSharing        Trait = "sharing"
	TraitPatience       Trait = "patience"
	TraitIndependence   Trait = "independence"
)

var validTraits = map[Trait]bool{
	TraitEmpathy:        true,
	TraitCourage:        true,
	TraitCuriosity:      true,
	TraitCreativity:     true,
	TraitProblemSolving: true,
	TraitSharing:        true,
	TraitPatience:       true,
	TraitIndependence:   true,
}

// IsValidTrait reports whether t belongs to the closed trait set.
func IsValidTrait(t Trait) bool {
	return validTraits[t]
}

// Traits returns the full trait set in canonical order.
func Traits() []Trait {
	return []Trait{
		TraitEmpathy,
		TraitCourage,
		TraitCuriosity,
		TraitCreativity,
		TraitProblemSolving,
		TraitSharing,
		TraitPatience,
		TraitIndependence,
	}
}

// TraitInfo is the presentation record for a trait: what the app shows next
// to a choice and in the post-story recap.
type TraitInfo struct {
	Trait       Trait  `json:"trait"`
	Name        string `json:"name"`
	Emoji       string `json:"emoji"`
	Color       string `json:"color"`
	Description string `json:"description"`
	Activity    string `json:"activity"`
}

var traitTable = map[string]map[Trait]TraitInfo{
	"en": {
		TraitEmpathy: {
			Trait: TraitEmpathy, Name: "Empathy", Emoji: "💜", Color: "#9B59B6",
			Description: "Noticing how others feel and caring about it",
			Activity:    "Draw a picture of a time you helped a friend feel better",
		},
		TraitCourage: {
			Trait: TraitCourage, Name: "Courage", Emoji: "🦁", Color: "#E67E22",
			Description: "Being brave even when something feels scary",
			Activity:    "Tell someone about a time you tried something new",
		},
		TraitCuriosity: {
			Trait: TraitCuriosity, Name: "Curiosity", Emoji: "🔍", Color: "#3498DB",
			Description: "Wanting to explore and find out how things work",
			Activity:    "Pick one thing in your room and learn something new about it",
		},
		TraitCreativity: {
			Trait: TraitCreativity, Name: "Creativity", Emoji: "🎨", Color: "#E91E63",
			Description: "Imagining new things and making them real",
			Activity:    "Invent a brand new animal and draw it",
		},
		TraitProblemSolving: {
			Trait: TraitProblemSolving, Name: "Problem Solving", Emoji: "🧩", Color: "#27AE60",
			Description: "Finding clever ways around an obstacle",
			Activity:    "Build something that can hold a book using only paper",
		},
		TraitSharing: {
			Trait: TraitSharing, Name: "Sharing", Emoji: "🤝", Color: "#F1C40F",
			Description: "Letting others join in and have a part too",
			Activity:    "Share your favorite toy with someone for an afternoon",
		},
		TraitPatience: {
			Trait: TraitPatience, Name: "Patience", Emoji: "🐢", Color: "#16A085",
			Description: "Waiting calmly for the right moment",
			Activity:    "Plant a seed and watch it grow a little every day",
		},
		TraitIndependence: {
			Trait: TraitIndependence, Name: "Independence", Emoji: "🌟", Color: "#8E44AD",
			Description: "Trying things on your own first",
			Activity:    "Get ready for tomorrow all by yourself tonight",
		},
	},
	"tr": {
		TraitEmpathy: {
			Trait: TraitEmpathy, Name: "Empati", Emoji: "💜", Color: "#9B59B6",
			Description: "Başkalarının duygularını fark etmek ve önemsemek",
			Activity:    "Bir arkadaşını mutlu ettiğin bir anın resmini çiz",
		},
		TraitCourage: {
			Trait: TraitCourage, Name: "Cesaret", Emoji: "🦁", Color: "#E67E22",
			Description: "Korkutucu görünse bile cesur olmak",
			Activity:    "Yeni bir şey denediğin bir anı birine anlat",
		},
		TraitCuriosity: {
			Trait: TraitCuriosity, Name: "Merak", Emoji: "🔍", Color: "#3498DB",
			Description: "Keşfetmek ve nasıl çalıştığını öğrenmek istemek",
			Activity:    "Odandan bir eşya seç ve hakkında yeni bir şey öğren",
		},
		TraitCreativity: {
			Trait: TraitCreativity, Name: "Yaratıcılık", Emoji: "🎨", Color: "#E91E63",
			Description: "Yeni şeyler hayal etmek ve gerçeğe dönüştürmek",
			Activity:    "Yepyeni bir hayvan uydur ve resmini çiz",
		},
		TraitProblemSolving: {
			Trait: TraitProblemSolving, Name: "Problem Çözme", Emoji: "🧩", Color: "#27AE60",
			Description: "Bir engeli aşmanın akıllıca yollarını bulmak",
			Activity:    "Sadece kağıt kullanarak bir kitabı taşıyabilen bir şey yap",
		},
		TraitSharing: {
			Trait: TraitSharing, Name: "Paylaşma", Emoji: "🤝", Color: "#F1C40F",
			Description: "Başkalarının da katılmasına ve pay almasına izin vermek",
			Activity:    "En sevdiğin oyuncağını bir öğleden sonra biriyle paylaş",
		},
		TraitPatience: {
			Trait: TraitPatience, Name: "Sabır", Emoji: "🐢", Color: "#16A085",
			Description: "Doğru an için sakince beklemek",
			Activity:    "Bir tohum ek ve her gün biraz büyümesini izle",
		},
		TraitIndependence: {
			Trait: TraitIndependence, Name: "Bağımsızlık", Emoji: "🌟", Color: "#8E44AD",
			Description: "Önce kendi başına denemek",
			Activity:    "Bu akşam yarının hazırlığını tek başına yap",
		},
	},
}

// LookupTrait returns the presentation record for a trait in the given
// language. Unknown languages fall back to English; unknown traits return
// false.
func LookupTrait(t Trait, language string) (TraitInfo, bool) {
	table, ok := traitTable[language]
	if !ok {
		table = traitTable["en"]
	}
	info, ok := table[t]
	return info, ok
}

// AllTraitInfo returns the presentation records for every trait in canonical
// order, in the given language.
func AllTraitInfo(language string) []TraitInfo {
	out := make([]TraitInfo, 0, len(validTraits))
	for _, t := range Traits() {
		info, _ := LookupTrait(t, language)
		out = append(out, info)
	}
	return out
}
