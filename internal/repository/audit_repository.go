package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"wl-portal/internal/database"
	"wl-portal/internal/models"
)

// AuditRepository handles audit log database operations.
// Entries are append-only; there is no update or delete.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an audit log entry
func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (application_id, actor_id, action, reason, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := database.Conn(ctx, r.db).QueryRowxContext(ctx, query,
		entry.ApplicationID,
		entry.ActorID,
		entry.Action,
		entry.Reason,
		entry.Meta,
		entry.CreatedAt,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

// ListByApplication returns the audit trail of one application, oldest first
func (r *AuditRepository) ListByApplication(ctx context.Context, applicationID int64) ([]models.AuditLog, error) {
	query := `
		SELECT id, application_id, actor_id, action, reason, meta, created_at
		FROM audit_logs
		WHERE application_id = $1
		ORDER BY created_at ASC, id ASC
	`

	var entries []models.AuditLog
	if err := sqlx.SelectContext(ctx, database.Conn(ctx, r.db), &entries, query, applicationID); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, nil
}
