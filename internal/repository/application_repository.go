package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"wl-portal/internal/database"
	"wl-portal/internal/models"
)

// ErrStaleWrite is returned when a conditional update matched no row
var ErrStaleWrite = errors.New("row was modified concurrently")

const applicationColumns = `
	id, applicant_id, applicant_name, display_identity, answers, status, score,
	fail_count, cooldown_until, reviewer_id, reviewed_at, review_notes, reject_reason,
	created_at, updated_at`

const summaryColumns = `
	id, applicant_id, applicant_name, display_identity, status, score, fail_count,
	cooldown_until, reviewer_id, reviewed_at, reject_reason, created_at`

// ApplicationRepository handles application database operations
type ApplicationRepository struct {
	db *sqlx.DB
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create inserts a new pending application and fills in its generated fields
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (applicant_id, applicant_name, display_identity, answers, status, fail_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, created_at, updated_at
	`

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		app.ApplicantID,
		app.ApplicantName,
		app.DisplayIdentity,
		app.Answers,
		app.Status,
		app.FailCount,
		app.CreatedAt,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// GetByID retrieves an application by ID, nil when it does not exist
func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app := &models.Application{}
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), app, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return app, nil
}

// GetForUpdate retrieves an application and locks its row until the
// surrounding transaction ends. Must be called inside database.RunInTx.
func (r *ApplicationRepository) GetForUpdate(ctx context.Context, id int64) (*models.Application, error) {
	if !database.InTx(ctx) {
		return nil, fmt.Errorf("row lock requested outside a transaction")
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`

	app := &models.Application{}
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), app, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock application: %w", err)
	}

	return app, nil
}

// LockApplicant serializes work on one applicant for the rest of the transaction
func (r *ApplicationRepository) LockApplicant(ctx context.Context, applicantID string) error {
	if !database.InTx(ctx) {
		return fmt.Errorf("applicant lock requested outside a transaction")
	}

	if _, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1))`, applicantID); err != nil {
		return fmt.Errorf("failed to lock applicant: %w", err)
	}
	return nil
}

// CountRejected counts the applicant's applications with status rejected
func (r *ApplicationRepository) CountRejected(ctx context.Context, applicantID string) (int, error) {
	query := `SELECT COUNT(*) FROM applications WHERE applicant_id = $1 AND status = $2`

	var count int
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &count, query, applicantID, models.StatusRejected); err != nil {
		return 0, fmt.Errorf("failed to count rejected applications: %w", err)
	}
	return count, nil
}

// Latest returns the applicant's most recent application, nil when there is none
func (r *ApplicationRepository) Latest(ctx context.Context, applicantID string) (*models.ApplicationSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM applications
		WHERE applicant_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	app := &models.ApplicationSummary{}
	err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), app, query, applicantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest application: %w", err)
	}
	return app, nil
}

// HasPending reports whether the applicant has an open application
func (r *ApplicationRepository) HasPending(ctx context.Context, applicantID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM applications WHERE applicant_id = $1 AND status = $2)`

	var exists bool
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), &exists, query, applicantID, models.StatusPending); err != nil {
		return false, fmt.Errorf("failed to check pending application: %w", err)
	}
	return exists, nil
}

// ReviewUpdate is the single write that closes a pending application
type ReviewUpdate struct {
	ID            int64
	Status        models.Status
	Score         int
	FailCount     int
	CooldownUntil *time.Time
	ReviewerID    string
	ReviewedAt    time.Time
	Notes         models.ReviewNotes
	RejectReason  *string
}

// ApplyReview moves a pending application to its terminal status.
// It returns ErrStaleWrite when the row is no longer pending.
func (r *ApplicationRepository) ApplyReview(ctx context.Context, u *ReviewUpdate) error {
	query := `
		UPDATE applications
		SET status = $2, score = $3, fail_count = $4, cooldown_until = $5,
		    reviewer_id = $6, reviewed_at = $7, review_notes = $8, reject_reason = $9,
		    updated_at = $7
		WHERE id = $1 AND status = 'pending'
	`

	result, err := database.Conn(ctx, r.db).ExecContext(ctx, query,
		u.ID,
		u.Status,
		u.Score,
		u.FailCount,
		u.CooldownUntil,
		u.ReviewerID,
		u.ReviewedAt,
		u.Notes,
		u.RejectReason,
	)
	if err != nil {
		return fmt.Errorf("failed to apply review: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows != 1 {
		return ErrStaleWrite
	}
	return nil
}

// ListFilter narrows List results
type ListFilter struct {
	Status models.Status
	Limit  int
	Offset int
}

// List returns applications newest first
func (r *ApplicationRepository) List(ctx context.Context, f ListFilter) ([]models.ApplicationSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM applications
		WHERE ($1::text = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	var apps []models.ApplicationSummary
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &apps, query, string(f.Status), f.Limit, f.Offset); err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}

// ListPending returns open applications oldest first
func (r *ApplicationRepository) ListPending(ctx context.Context, limit int) ([]models.ApplicationSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM applications
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT $1`

	var apps []models.ApplicationSummary
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &apps, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending applications: %w", err)
	}
	return apps, nil
}

// ListByApplicant returns every application of one applicant, newest first
func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID string) ([]models.ApplicationSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM applications
		WHERE applicant_id = $1
		ORDER BY created_at DESC, id DESC`

	var apps []models.ApplicationSummary
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &apps, query, applicantID); err != nil {
		return nil, fmt.Errorf("failed to list applicant history: %w", err)
	}
	return apps, nil
}

// QueueStats summarises the review backlog
type QueueStats struct {
	Pending       int        `db:"pending"`
	OldestPending *time.Time `db:"oldest_pending"`
}

// PendingStats returns the number of pending applications and the oldest submission time
func (r *ApplicationRepository) PendingStats(ctx context.Context) (*QueueStats, error) {
	query := `SELECT COUNT(*) AS pending, MIN(created_at) AS oldest_pending
		FROM applications WHERE status = 'pending'`

	stats := &QueueStats{}
	if err := sqlx.GetContext(ctx, database.Conn(ctx, r.db), stats, query); err != nil {
		return nil, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return stats, nil
}
