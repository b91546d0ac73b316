package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"wl-portal/internal/database"
	"wl-portal/internal/metrics"
	"wl-portal/internal/models"
	"wl-portal/internal/notify"
	"wl-portal/internal/policy"
	"wl-portal/internal/repository"
)

// ReviewService closes pending applications
type ReviewService struct {
	apps     ApplicationStore
	audit    AuditStore
	tx       TxRunner
	opts     Options
	clock    Clock
	notifier Notifier
	cache    DetailCache
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewReviewService creates a new review service
func NewReviewService(apps ApplicationStore, audit AuditStore, tx TxRunner, opts Options, options ...Option) *ReviewService {
	d := newDeps(options)
	return &ReviewService{
		apps:     apps,
		audit:    audit,
		tx:       tx,
		opts:     opts,
		clock:    d.clock,
		notifier: d.notifier,
		cache:    d.cache,
		metrics:  d.metrics,
		logger:   d.logger,
	}
}

// ReviewInput is one staff decision. A nil judgment means the question was
// left unanswered.
type ReviewInput struct {
	ApplicationID int64
	ReviewerID    string
	Judgments     map[string]*bool
	AuxCheck      string
	Notes         string
}

// ReviewOutcome is the committed result of a review
type ReviewOutcome struct {
	Application       *models.Application `json:"application"`
	Approved          bool                `json:"approved"`
	RejectReason      string              `json:"reject_reason,omitempty"`
	Score             int                 `json:"score"`
	Total             int                 `json:"total"`
	Pct               int                 `json:"pct"`
	FailCount         int                 `json:"fail_count"`
	RemainingAttempts int                 `json:"remaining_attempts"`
	CooldownUntil     *time.Time          `json:"cooldown_until,omitempty"`
	Unanswered        []string            `json:"unanswered"`
	Incorrect         []string            `json:"incorrect"`
}

// Review locks the application row, applies the scoring, approval and attempt
// policies and persists the decision with its audit entry atomically. The
// notification is sent after commit and never affects the result.
func (s *ReviewService) Review(ctx context.Context, in ReviewInput) (*ReviewOutcome, error) {
	start := time.Now()
	out, err := s.review(ctx, in)
	s.metrics.ObserveReview(reviewResult(out, err), start)
	if err != nil {
		if IsRetryable(err) {
			s.logger.Warn("Review transaction aborted",
				"application_id", in.ApplicationID,
				"reviewer_id", in.ReviewerID,
				"error", err,
			)
		}
		return nil, err
	}

	s.logger.Info("Application reviewed",
		"application_id", out.Application.ID,
		"applicant_id", out.Application.ApplicantID,
		"reviewer_id", in.ReviewerID,
		"approved", out.Approved,
		"fail_count", out.FailCount,
	)

	s.cache.Set(out.Application)
	s.notifier.Reviewed(
		notify.Result{
			Approved:          out.Approved,
			ApplicationID:     out.Application.ID,
			ApplicantID:       out.Application.ApplicantID,
			DisplayName:       out.Application.ApplicantName,
			ReviewerID:        in.ReviewerID,
			AttemptsUsed:      out.FailCount,
			RemainingAttempts: out.RemainingAttempts,
			RejectReason:      out.RejectReason,
			CooldownUntil:     out.CooldownUntil,
		},
		notify.RoleAssignment{
			ApplicantID:  out.Application.ApplicantID,
			Approved:     out.Approved,
			AttemptLevel: out.FailCount,
		},
	)
	return out, nil
}

func (s *ReviewService) review(ctx context.Context, in ReviewInput) (*ReviewOutcome, error) {
	if in.ReviewerID == "" {
		return nil, ErrUnauthorized
	}
	judgments, err := normalizeJudgments(in.Judgments)
	if err != nil {
		return nil, err
	}
	aux, err := policy.ParseAuxCheck(in.AuxCheck)
	if err != nil {
		return nil, &ValidationError{Field: "aux_check", Message: "must be passed, insufficient_hours or profile_private"}
	}
	if limit := s.opts.NotesMaxLength; limit > 0 && utf8.RuneCountInString(in.Notes) > limit {
		return nil, &ValidationError{Field: "notes", Message: fmt.Sprintf("must be at most %d characters", limit)}
	}

	var out *ReviewOutcome
	opts := database.TxOptions{Isolation: sql.LevelReadCommitted, LockTimeout: s.opts.LockTimeout}
	err = s.tx.RunInTx(ctx, opts, func(ctx context.Context) error {
		app, err := s.apps.GetForUpdate(ctx, in.ApplicationID)
		if err != nil {
			return err
		}
		if app == nil {
			return ErrNotFound
		}
		if app.Status != models.StatusPending {
			return ErrAlreadyReviewed
		}

		if err := s.apps.LockApplicant(ctx, app.ApplicantID); err != nil {
			return err
		}
		prior, err := s.apps.CountRejected(ctx, app.ApplicantID)
		if err != nil {
			return err
		}

		now := s.clock()
		result := policy.Score(judgments, s.opts.Weights)
		decision := policy.Decide(judgments, aux)
		failCount := s.opts.Policy.NextFailCount(prior, decision.Approved)
		cooldown := s.opts.Policy.CooldownFor(decision.Approved, failCount, now)

		status := models.StatusRejected
		if decision.Approved {
			status = models.StatusApproved
		}
		notes := models.ReviewNotes{
			Judgments:    judgments,
			Unanswered:   decision.Unanswered,
			Incorrect:    decision.Incorrect,
			Notes:        in.Notes,
			Score:        result.Score,
			Total:        result.Total,
			Pct:          result.Pct(),
			AuxCheck:     string(aux),
			Approved:     decision.Approved,
			RejectReason: decision.RejectReason,
			DecidedAt:    now,
		}
		var reason *string
		if !decision.Approved {
			reason = &decision.RejectReason
		}

		err = s.apps.ApplyReview(ctx, &repository.ReviewUpdate{
			ID:            app.ID,
			Status:        status,
			Score:         result.Score,
			FailCount:     failCount,
			CooldownUntil: cooldown,
			ReviewerID:    in.ReviewerID,
			ReviewedAt:    now,
			Notes:         notes,
			RejectReason:  reason,
		})
		if errors.Is(err, repository.ErrStaleWrite) {
			return ErrAlreadyReviewed
		}
		if err != nil {
			return err
		}

		remaining := s.opts.Policy.RemainingAttempts(failCount)
		meta := models.AuditMeta{
			"score":              result.Score,
			"total":              result.Total,
			"pct":                result.Pct(),
			"fail_count":         failCount,
			"remaining_attempts": remaining,
		}
		if cooldown != nil {
			meta["cooldown_until"] = cooldown.UTC().Format(time.RFC3339)
		}
		action := models.AuditActionRejected
		if decision.Approved {
			action = models.AuditActionApproved
		}
		if err := s.audit.Create(ctx, &models.AuditLog{
			ApplicationID: app.ID,
			ActorID:       in.ReviewerID,
			Action:        action,
			Reason:        reason,
			Meta:          meta,
			CreatedAt:     now,
		}); err != nil {
			return err
		}

		reviewer := in.ReviewerID
		reviewedAt := now
		app.Status = status
		app.Score = result.Score
		app.FailCount = failCount
		app.CooldownUntil = cooldown
		app.ReviewerID = &reviewer
		app.ReviewedAt = &reviewedAt
		app.ReviewNotes = &notes
		app.RejectReason = reason
		app.UpdatedAt = now

		out = &ReviewOutcome{
			Application:       app,
			Approved:          decision.Approved,
			RejectReason:      decision.RejectReason,
			Score:             result.Score,
			Total:             result.Total,
			Pct:               result.Pct(),
			FailCount:         failCount,
			RemainingAttempts: remaining,
			CooldownUntil:     cooldown,
			Unanswered:        decision.Unanswered,
			Incorrect:         decision.Incorrect,
		}
		return nil
	})
	if err != nil {
		return nil, persistence("review application", err)
	}
	return out, nil
}

// normalizeJudgments drops unanswered entries and rejects unknown question keys
func normalizeJudgments(in map[string]*bool) (map[string]bool, error) {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]bool, len(in))
	for _, k := range keys {
		if !policy.IsQuestion(k) {
			return nil, &ValidationError{Field: "judgments." + k, Message: "is not a judged question"}
		}
		if v := in[k]; v != nil {
			out[k] = *v
		}
	}
	return out, nil
}

func reviewResult(out *ReviewOutcome, err error) string {
	var ve *ValidationError
	switch {
	case err == nil && out.Approved:
		return "approved"
	case err == nil:
		return "rejected"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyReviewed):
		return "already_reviewed"
	case IsRetryable(err):
		return "retryable"
	}
	return "error"
}
