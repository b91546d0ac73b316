package service

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"

	"golang.org/x/crypto/blake2b"

	"wl-portal/internal/database"
	"wl-portal/internal/metrics"
	"wl-portal/internal/models"
	"wl-portal/internal/notify"
	"wl-portal/internal/policy"
	"wl-portal/internal/repository"
	"wl-portal/pkg/validator"
)

// List limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	PendingListLimit = 100
)

// ApplicationService handles submissions and the read side of the workflow
type ApplicationService struct {
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

// NewApplicationService creates a new application service
func NewApplicationService(apps ApplicationStore, audit AuditStore, tx TxRunner, opts Options, options ...Option) *ApplicationService {
	d := newDeps(options)
	return &ApplicationService{
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

// SubmitInput is a new questionnaire submission. Applicant comes from the
// verified session, never from the request body.
type SubmitInput struct {
	Applicant models.Applicant
	Answers   models.Answers
	ClientIP  string
}

// Submit admits a new application. The gate checks, the insert and the
// "submitted" audit entry run in one transaction under the applicant lock.
func (s *ApplicationService) Submit(ctx context.Context, in SubmitInput) (*models.Application, error) {
	app, err := s.submit(ctx, in)
	s.metrics.IncSubmission(submissionResult(err))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Application submitted",
		"application_id", app.ID,
		"applicant_id", app.ApplicantID,
	)
	s.notifier.Submitted(notify.Submission{
		ApplicationID:   app.ID,
		ApplicantID:     app.ApplicantID,
		DisplayIdentity: app.DisplayIdentity,
		SubmittedAt:     app.CreatedAt,
	})
	return app, nil
}

func (s *ApplicationService) submit(ctx context.Context, in SubmitInput) (*models.Application, error) {
	if in.Applicant.ID == "" {
		return nil, ErrUnauthorized
	}

	answers := in.Answers
	answers.TrimSpace()
	if err := validator.ValidateStruct(&answers); err != nil {
		var fe *validator.FieldError
		if errors.As(err, &fe) {
			return nil, &ValidationError{Field: fe.Field, Message: fe.Message}
		}
		return nil, &ValidationError{Field: "answers", Message: err.Error()}
	}

	if s.opts.RequireGuildMember && !in.Applicant.InGuild {
		return nil, ErrNotGuildMember
	}

	now := s.clock()
	app := &models.Application{
		ApplicantID:     in.Applicant.ID,
		ApplicantName:   in.Applicant.DisplayName,
		DisplayIdentity: in.Applicant.DisplayIdentity(),
		Answers:         answers,
		Status:          models.StatusPending,
		CreatedAt:       now,
	}

	err := s.tx.RunInTx(ctx, database.TxOptions{Isolation: sql.LevelReadCommitted, LockTimeout: s.opts.LockTimeout}, func(ctx context.Context) error {
		if err := s.apps.LockApplicant(ctx, app.ApplicantID); err != nil {
			return err
		}

		latest, err := s.apps.Latest(ctx, app.ApplicantID)
		if err != nil {
			return err
		}
		// Approval is final, so no row ever follows an approved one
		if latest != nil && latest.Status == models.StatusApproved {
			return ErrAlreadyApproved
		}

		rejected, err := s.apps.CountRejected(ctx, app.ApplicantID)
		if err != nil {
			return err
		}
		if s.opts.Policy.LimitReached(rejected) {
			return &LimitError{Rejected: rejected, Max: s.opts.Policy.MaxAttempts}
		}

		if latest != nil && latest.CooldownUntil != nil && latest.CooldownUntil.After(now) {
			return &CooldownError{Until: *latest.CooldownUntil}
		}

		pending, err := s.apps.HasPending(ctx, app.ApplicantID)
		if err != nil {
			return err
		}
		if pending {
			return ErrAlreadyPending
		}

		app.FailCount = rejected
		if err := s.apps.Create(ctx, app); err != nil {
			return err
		}

		meta := models.AuditMeta{}
		if in.ClientIP != "" {
			meta["ip_hash"] = s.hashIP(in.ClientIP)
		}
		return s.audit.Create(ctx, &models.AuditLog{
			ApplicationID: app.ID,
			ActorID:       app.ApplicantID,
			Action:        models.AuditActionSubmitted,
			Meta:          meta,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, persistence("submit application", err)
	}
	return app, nil
}

// hashIP pseudonymises a client address for the audit trail
func (s *ApplicationService) hashIP(ip string) string {
	key := []byte(s.opts.AuditIPSalt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	h, _ := blake2b.New256(key)
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil))
}

func submissionResult(err error) string {
	var ve *ValidationError
	switch {
	case err == nil:
		return "accepted"
	case errors.As(err, &ve):
		return "validation"
	case errors.Is(err, ErrLimitReached):
		return "limit_reached"
	case errors.Is(err, ErrCooldownActive):
		return "cooldown"
	case errors.Is(err, ErrAlreadyPending):
		return "already_pending"
	case errors.Is(err, ErrAlreadyApproved):
		return "already_approved"
	case errors.Is(err, ErrNotGuildMember):
		return "not_guild_member"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return "error"
}

// ApplicantStatus is the applicant's own view of their standing
type ApplicantStatus struct {
	policy.State
	MaxAttempts int                        `json:"max_attempts"`
	Rejected    int                        `json:"rejected_count"`
	Latest      *models.ApplicationSummary `json:"latest,omitempty"`
}

// Status derives the applicant's current submission state
func (s *ApplicationService) Status(ctx context.Context, applicantID string) (*ApplicantStatus, error) {
	if applicantID == "" {
		return nil, ErrUnauthorized
	}

	rejected, err := s.apps.CountRejected(ctx, applicantID)
	if err != nil {
		return nil, persistence("count rejected applications", err)
	}
	latest, err := s.apps.Latest(ctx, applicantID)
	if err != nil {
		return nil, persistence("get latest application", err)
	}
	pending, err := s.apps.HasPending(ctx, applicantID)
	if err != nil {
		return nil, persistence("check pending application", err)
	}

	h := policy.History{RejectedCount: rejected, HasPending: pending}
	if latest != nil {
		h.LatestCooldownUntil = latest.CooldownUntil
		h.Approved = latest.Status == models.StatusApproved
	}

	return &ApplicantStatus{
		State:       s.opts.Policy.DeriveState(h, s.clock()),
		MaxAttempts: s.opts.Policy.MaxAttempts,
		Rejected:    rejected,
		Latest:      latest,
	}, nil
}

// GetDetail returns one application with its answers and review notes
func (s *ApplicationService) GetDetail(ctx context.Context, id int64) (*models.Application, error) {
	if app, ok := s.cache.Get(id); ok {
		return app, nil
	}

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, persistence("get application", err)
	}
	if app == nil {
		return nil, ErrNotFound
	}
	// Only reviewed rows are immutable
	if app.Status.IsTerminal() {
		s.cache.Set(app)
	}
	return app, nil
}

// ListPending returns the review queue, oldest first
func (s *ApplicationService) ListPending(ctx context.Context) ([]models.ApplicationSummary, error) {
	apps, err := s.apps.ListPending(ctx, PendingListLimit)
	if err != nil {
		return nil, persistence("list pending applications", err)
	}
	return apps, nil
}

// ListAll returns applications newest first, optionally filtered by status
func (s *ApplicationService) ListAll(ctx context.Context, status string, limit, offset int) ([]models.ApplicationSummary, error) {
	if status != "" && !models.Status(status).Valid() {
		return nil, &ValidationError{Field: "status", Message: "must be pending, approved or rejected"}
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	apps, err := s.apps.List(ctx, repository.ListFilter{Status: models.Status(status), Limit: limit, Offset: offset})
	if err != nil {
		return nil, persistence("list applications", err)
	}
	return apps, nil
}

// History returns every application of one applicant, newest first
func (s *ApplicationService) History(ctx context.Context, applicantID string) ([]models.ApplicationSummary, error) {
	if applicantID == "" {
		return nil, &ValidationError{Field: "applicant_id", Message: "is required"}
	}
	apps, err := s.apps.ListByApplicant(ctx, applicantID)
	if err != nil {
		return nil, persistence("list applicant history", err)
	}
	return apps, nil
}

// AuditTrail returns the audit entries of one application in order
func (s *ApplicationService) AuditTrail(ctx context.Context, id int64) ([]models.AuditLog, error) {
	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, persistence("get application", err)
	}
	if app == nil {
		return nil, ErrNotFound
	}

	entries, err := s.audit.ListByApplication(ctx, id)
	if err != nil {
		return nil, persistence("list audit entries", err)
	}
	return entries, nil
}
