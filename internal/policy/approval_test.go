package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTrue() map[string]bool {
	j := make(map[string]bool, len(Questions))
	for _, q := range Questions {
		j[q.Key] = true
	}
	return j
}

func TestDecide(t *testing.T) {
	oneFalse := allTrue()
	oneFalse["fair_play"] = false

	incomplete := allTrue()
	delete(incomplete, "character_backstory")

	tests := []struct {
		name       string
		judgments  map[string]bool
		aux        AuxCheck
		approved   bool
		reason     string
		unanswered []string
		incorrect  []string
	}{
		{name: "all true and passed", judgments: allTrue(), aux: AuxPassed, approved: true},
		{name: "one false", judgments: oneFalse, aux: AuxPassed, reason: ReasonIncorrectAnswers, incorrect: []string{"fair_play"}},
		{name: "incomplete fails closed", judgments: incomplete, aux: AuxPassed, reason: ReasonIncorrectAnswers, unanswered: []string{"character_backstory"}},
		{name: "hours beat answers", judgments: oneFalse, aux: AuxInsufficientHours, reason: ReasonInsufficientHours, incorrect: []string{"fair_play"}},
		{name: "private profile", judgments: allTrue(), aux: AuxProfilePrivate, reason: ReasonProfilePrivate},
		{name: "aux unset with all true", judgments: allTrue(), aux: AuxUnset, reason: ReasonVerificationNotDone},
		{name: "aux unset with wrong answers", judgments: oneFalse, aux: AuxUnset, reason: ReasonIncorrectAnswers, incorrect: []string{"fair_play"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.judgments, tt.aux)
			assert.Equal(t, tt.approved, d.Approved)
			assert.Equal(t, tt.reason, d.RejectReason)
			assert.Equal(t, tt.unanswered, d.Unanswered)
			assert.Equal(t, tt.incorrect, d.Incorrect)
		})
	}
}

// Exhaustively flips each single question and every aux value.
func TestDecide_ApprovalOnlyWhenEverythingPasses(t *testing.T) {
	auxValues := []AuxCheck{AuxUnset, AuxPassed, AuxInsufficientHours, AuxProfilePrivate}

	for _, aux := range auxValues {
		d := Decide(allTrue(), aux)
		assert.Equal(t, aux == AuxPassed, d.Approved, "aux %q", aux)

		for _, q := range Questions {
			j := allTrue()
			j[q.Key] = false
			d := Decide(j, aux)
			assert.False(t, d.Approved, "question %s aux %q", q.Key, aux)
			assert.NotEmpty(t, d.RejectReason)
		}
	}
}

func TestDecide_EmptyJudgments(t *testing.T) {
	d := Decide(nil, AuxPassed)
	assert.False(t, d.Approved)
	assert.False(t, d.Complete())
	assert.Len(t, d.Unanswered, len(Questions))
}

func TestParseAuxCheck(t *testing.T) {
	tests := map[string]AuxCheck{
		"":                   AuxUnset,
		"passed":             AuxPassed,
		"ok":                 AuxPassed,
		" OK ":               AuxPassed,
		"no_hours":           AuxInsufficientHours,
		"insufficient_hours": AuxInsufficientHours,
		"private":            AuxProfilePrivate,
		"profile_private":    AuxProfilePrivate,
	}
	for in, want := range tests {
		got, err := ParseAuxCheck(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAuxCheck("maybe")
	assert.Error(t, err)
}

func TestIsQuestion(t *testing.T) {
	assert.True(t, IsQuestion("fair_play"))
	assert.False(t, IsQuestion("steam_link"))
	assert.Len(t, DefaultWeights(), len(Questions))
}
