package policy

import "time"

// Default attempt policy values
const (
	DefaultMaxAttempts = 3
	DefaultCooldown    = 7 * 24 * time.Hour
)

// Policy holds the lockout ceiling and cooldown length
type Policy struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// DefaultPolicy returns the standard three attempts / seven days policy
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: DefaultMaxAttempts, Cooldown: DefaultCooldown}
}

// NextFailCount is the cumulative fail count stored on a reviewed application
func (p Policy) NextFailCount(priorRejected int, approved bool) int {
	if priorRejected < 0 {
		priorRejected = 0
	}
	if approved {
		return priorRejected
	}
	return priorRejected + 1
}

// CooldownFor returns the cooldown expiry for a review, or nil when none applies.
// A cooldown is imposed only by a rejection that reaches the lockout ceiling.
func (p Policy) CooldownFor(approved bool, failCount int, reviewedAt time.Time) *time.Time {
	if approved || failCount < p.MaxAttempts {
		return nil
	}
	until := reviewedAt.Add(p.Cooldown)
	return &until
}

// RemainingAttempts returns how many rejections are left before lockout
func (p Policy) RemainingAttempts(failCount int) int {
	if left := p.MaxAttempts - failCount; left > 0 {
		return left
	}
	return 0
}

// LimitReached reports whether the rejected count blocks new submissions
func (p Policy) LimitReached(rejectedCount int) bool {
	return rejectedCount >= p.MaxAttempts
}

// StateKind is the derived submission state of an applicant
type StateKind string

const (
	StateEligible  StateKind = "eligible"
	StatePending   StateKind = "pending"
	StateCooldown  StateKind = "cooldown"
	StateLockedOut StateKind = "locked_out"
	StateApproved  StateKind = "approved"
)

// History is what the policy needs to know about an applicant's past applications
type History struct {
	RejectedCount       int
	LatestCooldownUntil *time.Time
	HasPending          bool
	Approved            bool
}

// State is the derived applicant state
type State struct {
	Kind              StateKind  `json:"state"`
	CooldownUntil     *time.Time `json:"cooldown_until,omitempty"`
	RemainingAttempts int        `json:"remaining_attempts"`
}

// DeriveState computes the applicant state at now. Approval is final.
// Otherwise lockout wins over an active cooldown, which wins over a pending
// application.
func (p Policy) DeriveState(h History, now time.Time) State {
	s := State{Kind: StateEligible, RemainingAttempts: p.RemainingAttempts(h.RejectedCount)}
	switch {
	case h.Approved:
		s.Kind = StateApproved
	case p.LimitReached(h.RejectedCount) && !h.HasPending:
		s.Kind = StateLockedOut
	case h.LatestCooldownUntil != nil && h.LatestCooldownUntil.After(now):
		s.Kind = StateCooldown
		until := *h.LatestCooldownUntil
		s.CooldownUntil = &until
	case h.HasPending:
		s.Kind = StatePending
	}
	return s
}
