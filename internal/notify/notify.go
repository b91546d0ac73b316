// Package notify announces review results and keeps community roles in sync.
// Delivery is best-effort: the workflow never waits for it or fails because of it.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// Result describes a completed review
type Result struct {
	Approved          bool       `json:"approved"`
	ApplicationID     int64      `json:"application_id"`
	ApplicantID       string     `json:"applicant_id"`
	DisplayName       string     `json:"display_name"`
	ReviewerID        string     `json:"reviewer_id"`
	AttemptsUsed      int        `json:"attempts_used"`
	RemainingAttempts int        `json:"remaining_attempts"`
	RejectReason      string     `json:"reject_reason,omitempty"`
	CooldownUntil     *time.Time `json:"cooldown_until,omitempty"`
}

// RoleAssignment describes the community role an applicant should hold after a review.
// AttemptLevel is the cumulative fail count and selects the suspension role.
type RoleAssignment struct {
	ApplicantID  string `json:"applicant_id"`
	Approved     bool   `json:"approved"`
	AttemptLevel int    `json:"attempt_level"`
}

// Submission describes a newly submitted application
type Submission struct {
	ApplicationID   int64     `json:"application_id"`
	ApplicantID     string    `json:"applicant_id"`
	DisplayIdentity string    `json:"display_identity"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// Dispatcher delivers notifications to the chat platform
//
//go:generate mockgen -destination=../mocks/mock_dispatcher.go -package=mocks wl-portal/internal/notify Dispatcher
type Dispatcher interface {
	NotifyResult(ctx context.Context, r Result) error
	AssignRole(ctx context.Context, ra RoleAssignment) error
	NotifySubmitted(ctx context.Context, s Submission) error
}

// LogDispatcher only logs. It is used when no bot token is configured.
type LogDispatcher struct {
	logger *slog.Logger
}

// NewLogDispatcher creates a dispatcher that writes to logger (slog.Default when nil)
func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) NotifyResult(ctx context.Context, r Result) error {
	d.logger.InfoContext(ctx, "Review result",
		"application_id", r.ApplicationID,
		"applicant_id", r.ApplicantID,
		"approved", r.Approved,
		"attempts_used", r.AttemptsUsed,
		"reject_reason", r.RejectReason,
	)
	return nil
}

func (d *LogDispatcher) AssignRole(ctx context.Context, ra RoleAssignment) error {
	d.logger.InfoContext(ctx, "Role assignment",
		"applicant_id", ra.ApplicantID,
		"approved", ra.Approved,
		"attempt_level", ra.AttemptLevel,
	)
	return nil
}

func (d *LogDispatcher) NotifySubmitted(ctx context.Context, s Submission) error {
	d.logger.InfoContext(ctx, "New application submitted",
		"application_id", s.ApplicationID,
		"applicant_id", s.ApplicantID,
	)
	return nil
}
