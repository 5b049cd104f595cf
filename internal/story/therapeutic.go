package story

// Concern is a drawing-analysis finding that story planning can respond to.
type Concern string

const (
	ConcernAnxiety       Concern = "anxiety"
	ConcernFear          Concern = "fear"
	ConcernSadness       Concern = "sadness"
	ConcernAnger         Concern = "anger"
	ConcernLoneliness    Concern = "loneliness"
	ConcernLowConfidence Concern = "low_confidence"
	ConcernFamilyChange  Concern = "family_change"
	ConcernSleepWorries  Concern = "sleep_worries"
)

var validConcerns = map[Concern]bool{
	ConcernAnxiety:       true,
	ConcernFear:          true,
	ConcernSadness:       true,
	ConcernAnger:         true,
	ConcernLoneliness:    true,
	ConcernLowConfidence: true,
	ConcernFamilyChange:  true,
	ConcernSleepWorries:  true,
}

// IsValidConcern reports whether c is a known concern type.
func IsValidConcern(c Concern) bool {
	return validConcerns[c]
}

// TherapeuticContext steers story planning toward traits and themes that
// help with a detected concern. Explanation is free text from the analysis
// pass, included verbatim in the planner prompt.
type TherapeuticContext struct {
	Concern           Concern  `json:"concern"`
	RecommendedTraits []Trait  `json:"recommended_traits"`
	CopingMechanism   string   `json:"coping_mechanism"`
	TopicsToAvoid     []string `json:"topics_to_avoid"`
	Explanation       string   `json:"explanation,omitempty"`
}

var concernContexts = map[Concern]TherapeuticContext{
	ConcernAnxiety: {
		Concern:           ConcernAnxiety,
		RecommendedTraits: []Trait{TraitCourage, TraitPatience, TraitProblemSolving},
		CopingMechanism:   "slow breathing and naming the worry out loud",
		TopicsToAvoid:     []string{"time pressure", "being lost", "sudden surprises"},
	},
	ConcernFear: {
		Concern:           ConcernFear,
		RecommendedTraits: []Trait{TraitCourage, TraitCuriosity},
		CopingMechanism:   "approaching the scary thing one small step at a time",
		TopicsToAvoid:     []string{"monsters that win", "darkness without light", "abandonment"},
	},
	ConcernSadness: {
		Concern:           ConcernSadness,
		RecommendedTraits: []Trait{TraitEmpathy, TraitSharing, TraitCreativity},
		CopingMechanism:   "telling a trusted friend how you feel",
		TopicsToAvoid:     []string{"permanent loss", "goodbyes without reunions"},
	},
	ConcernAnger: {
		Concern:           ConcernAnger,
		RecommendedTraits: []Trait{TraitPatience, TraitEmpathy, TraitProblemSolving},
		CopingMechanism:   "counting to ten and finding words for the feeling",
		TopicsToAvoid:     []string{"revenge", "shouting matches", "breaking things"},
	},
	ConcernLoneliness: {
		Concern:           ConcernLoneliness,
		RecommendedTraits: []Trait{TraitSharing, TraitEmpathy, TraitCourage},
		CopingMechanism:   "taking the first small step toward a new friend",
		TopicsToAvoid:     []string{"exclusion", "empty places", "being forgotten"},
	},
	ConcernLowConfidence: {
		Concern:           ConcernLowConfidence,
		RecommendedTraits: []Trait{TraitIndependence, TraitCourage, TraitCreativity},
		CopingMechanism:   "remembering a time something hard worked out",
		TopicsToAvoid:     []string{"contests with losers", "comparison to others", "perfection"},
	},
	ConcernFamilyChange: {
		Concern:           ConcernFamilyChange,
		RecommendedTraits: []Trait{TraitPatience, TraitEmpathy, TraitIndependence},
		CopingMechanism:   "keeping a small routine that stays the same",
		TopicsToAvoid:     []string{"blame", "choosing sides", "homes disappearing"},
	},
	ConcernSleepWorries: {
		Concern:           ConcernSleepWorries,
		RecommendedTraits: []Trait{TraitCourage, TraitPatience},
		CopingMechanism:   "a cozy wind-down ritual before closing your eyes",
		TopicsToAvoid:     []string{"nightmares", "creatures under beds", "staying up forever"},
	},
}

// ContextForConcern returns the planning context derived from a concern.
// Unknown concerns return false; the caller decides whether to proceed
// without a therapeutic steer.
func ContextForConcern(c Concern) (TherapeuticContext, bool) {
	ctx, ok := concernContexts[c]
	return ctx, ok
}
