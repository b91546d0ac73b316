// Package policy holds the pure decision rules of the review workflow:
// scoring, the approval predicate and the attempt/cooldown policy.
// Nothing here touches storage or reads the wall clock.
package policy

// Question is one staff-judged questionnaire item
type Question struct {
	Key    string
	Label  string
	Weight int
}

// Questions is the fixed set of questions a reviewer must judge
var Questions = []Question{
	{Key: "what_is_rp", Label: "What is roleplay (RP)?", Weight: 1},
	{Key: "me_do_usage", Label: "Correct use of /me and /do", Weight: 1},
	{Key: "fair_play", Label: "What is fair play?", Weight: 1},
	{Key: "pg_and_mg", Label: "What are PG and MG?", Weight: 1},
	{Key: "military_base_robbery_plan", Label: "How would you rob weapons from the military base?", Weight: 1},
	{Key: "slashed_tires_case", Label: "Slashed tires and a shootout after /report: what went wrong?", Weight: 1},
	{Key: "police_robbery_reaction", Label: "Police arrive before the robbery starts: what do you do?", Weight: 1},
	{Key: "vdm_response", Label: "You are run over (VDM): what do you do?", Weight: 1},
	{Key: "kidnap_disconnect_response", Label: "A kidnapped player disconnects: what do you do?", Weight: 1},
	{Key: "min_police_bank_robbery", Label: "Minimum police on duty for a Fleeca robbery", Weight: 1},
	{Key: "planned_role", Label: "Planned role (legal, illegal, other)", Weight: 1},
	{Key: "roleplay_experience", Label: "Time spent roleplaying", Weight: 1},
	{Key: "character_backstory", Label: "Character backstory", Weight: 1},
}

var questionIndex = func() map[string]Question {
	idx := make(map[string]Question, len(Questions))
	for _, q := range Questions {
		idx[q.Key] = q
	}
	return idx
}()

// IsQuestion reports whether key belongs to the judged question set
func IsQuestion(key string) bool {
	_, ok := questionIndex[key]
	return ok
}

// DefaultWeights returns the configured weight of every judged question
func DefaultWeights() map[string]int {
	weights := make(map[string]int, len(Questions))
	for _, q := range Questions {
		weights[q.Key] = q.Weight
	}
	return weights
}
