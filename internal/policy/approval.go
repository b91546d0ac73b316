package policy

import (
	"fmt"
	"strings"
)

// AuxCheck is the staff-asserted platform verification outcome
type AuxCheck string

const (
	AuxUnset             AuxCheck = ""
	AuxPassed            AuxCheck = "passed"
	AuxInsufficientHours AuxCheck = "insufficient_hours"
	AuxProfilePrivate    AuxCheck = "profile_private"
)

// Rejection reasons shown to applicants
const (
	ReasonInsufficientHours   = "Insufficient FiveM playtime"
	ReasonProfilePrivate      = "Steam profile is not public"
	ReasonIncorrectAnswers    = "Incorrect answers"
	ReasonVerificationNotDone = "Platform verification not performed"
)

// ParseAuxCheck normalises an aux check value. The short forms ok, no_hours
// and private are accepted as aliases.
func ParseAuxCheck(s string) (AuxCheck, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return AuxUnset, nil
	case "passed", "ok":
		return AuxPassed, nil
	case "insufficient_hours", "no_hours":
		return AuxInsufficientHours, nil
	case "profile_private", "private":
		return AuxProfilePrivate, nil
	}
	return AuxUnset, fmt.Errorf("unknown aux check %q", s)
}

func (a AuxCheck) reason() string {
	switch a {
	case AuxInsufficientHours:
		return ReasonInsufficientHours
	case AuxProfilePrivate:
		return ReasonProfilePrivate
	}
	return ""
}

// Decision is the outcome of the approval predicate
type Decision struct {
	Approved     bool
	RejectReason string
	Unanswered   []string // judged questions without a judgment, in questionnaire order
	Incorrect    []string // judged questions marked false, in questionnaire order
}

// Complete reports whether every question received a judgment
func (d Decision) Complete() bool {
	return len(d.Unanswered) == 0
}

// Decide approves iff every question is judged true and the aux check passed.
// A missing judgment counts as not true.
func Decide(judgments map[string]bool, aux AuxCheck) Decision {
	var d Decision
	for _, q := range Questions {
		ok, judged := judgments[q.Key]
		switch {
		case !judged:
			d.Unanswered = append(d.Unanswered, q.Key)
		case !ok:
			d.Incorrect = append(d.Incorrect, q.Key)
		}
	}

	allTrue := len(d.Unanswered) == 0 && len(d.Incorrect) == 0
	d.Approved = allTrue && aux == AuxPassed
	if d.Approved {
		return d
	}

	switch {
	case aux != AuxUnset && aux != AuxPassed:
		d.RejectReason = aux.reason()
	case !allTrue:
		d.RejectReason = ReasonIncorrectAnswers
	default:
		d.RejectReason = ReasonVerificationNotDone
	}
	return d
}
