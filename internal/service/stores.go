package service

import (
	"context"
	"time"

	"wl-portal/internal/database"
	"wl-portal/internal/models"
	"wl-portal/internal/notify"
	"wl-portal/internal/repository"
)

// ApplicationStore is the persistence capability the workflow needs.
// *repository.ApplicationRepository implements it.
type ApplicationStore interface {
	Create(ctx context.Context, app *models.Application) error
	GetByID(ctx context.Context, id int64) (*models.Application, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Application, error)
	LockApplicant(ctx context.Context, applicantID string) error
	CountRejected(ctx context.Context, applicantID string) (int, error)
	Latest(ctx context.Context, applicantID string) (*models.ApplicationSummary, error)
	HasPending(ctx context.Context, applicantID string) (bool, error)
	ApplyReview(ctx context.Context, u *repository.ReviewUpdate) error
	List(ctx context.Context, f repository.ListFilter) ([]models.ApplicationSummary, error)
	ListPending(ctx context.Context, limit int) ([]models.ApplicationSummary, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]models.ApplicationSummary, error)
}

// AuditStore appends and reads audit entries
type AuditStore interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListByApplication(ctx context.Context, applicationID int64) ([]models.AuditLog, error)
}

// TxRunner runs fn inside one database transaction
type TxRunner interface {
	RunInTx(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context) error) error
}

// Notifier receives post-commit events. It must not block.
type Notifier interface {
	Reviewed(r notify.Result, ra notify.RoleAssignment)
	Submitted(s notify.Submission)
}

// DetailCache holds reviewed applications
type DetailCache interface {
	Get(id int64) (*models.Application, bool)
	Set(app *models.Application)
}

// Clock returns the current time
type Clock func() time.Time

type nopNotifier struct{}

func (nopNotifier) Reviewed(notify.Result, notify.RoleAssignment) {}
func (nopNotifier) Submitted(notify.Submission)                   {}

type nopCache struct{}

func (nopCache) Get(int64) (*models.Application, bool) { return nil, false }
func (nopCache) Set(*models.Application)               {}
