package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"wl-portal/internal/database"
	"wl-portal/internal/models"
	"wl-portal/internal/notify"
	"wl-portal/internal/repository"
)

// memStore is an in-memory ApplicationStore, AuditStore and TxRunner.
// Transactions are serialized and rolled back on error.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	apps   map[int64]*models.Application
	audits []models.AuditLog
	nextID int64

	// fail makes the named operation return the given error once
	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{apps: map[int64]*models.Application{}, fail: map[string]error{}}
}

func (m *memStore) failOnce(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *memStore) check(op string) error {
	if err, ok := m.fail[op]; ok {
		delete(m.fail, op)
		return err
	}
	return nil
}

func (m *memStore) RunInTx(ctx context.Context, _ database.TxOptions, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapApps := make(map[int64]models.Application, len(m.apps))
	for id, a := range m.apps {
		snapApps[id] = *a
	}
	snapAudits := append([]models.AuditLog(nil), m.audits...)
	snapNext := m.nextID
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.apps = make(map[int64]*models.Application, len(snapApps))
		for id, a := range snapApps {
			a := a
			m.apps[id] = &a
		}
		m.audits = snapAudits
		m.nextID = snapNext
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) Create(_ context.Context, app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("create"); err != nil {
		return err
	}
	m.nextID++
	app.ID = m.nextID
	app.UpdatedAt = app.CreatedAt
	cp := *app
	m.apps[app.ID] = &cp
	return nil
}

func (m *memStore) GetByID(_ context.Context, id int64) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("get"); err != nil {
		return nil, err
	}
	a, ok := m.apps[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, id int64) (*models.Application, error) {
	m.mu.Lock()
	err := m.check("get_for_update")
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.GetByID(ctx, id)
}

func (m *memStore) LockApplicant(context.Context, string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check("lock_applicant")
}

func (m *memStore) CountRejected(_ context.Context, applicantID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("count_rejected"); err != nil {
		return 0, err
	}
	n := 0
	for _, a := range m.apps {
		if a.ApplicantID == applicantID && a.Status == models.StatusRejected {
			n++
		}
	}
	return n, nil
}

func (m *memStore) byApplicant(applicantID string) []*models.Application {
	var out []*models.Application
	for _, a := range m.apps {
		if a.ApplicantID == applicantID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *memStore) Latest(_ context.Context, applicantID string) (*models.ApplicationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apps := m.byApplicant(applicantID)
	if len(apps) == 0 {
		return nil, nil
	}
	s := summarize(apps[0])
	return &s, nil
}

func (m *memStore) HasPending(_ context.Context, applicantID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.apps {
		if a.ApplicantID == applicantID && a.Status == models.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ApplyReview(_ context.Context, u *repository.ReviewUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check("apply_review"); err != nil {
		return err
	}
	a, ok := m.apps[u.ID]
	if !ok || a.Status != models.StatusPending {
		return repository.ErrStaleWrite
	}
	notes := u.Notes
	reviewer := u.ReviewerID
	reviewedAt := u.ReviewedAt
	a.Status = u.Status
	a.Score = u.Score
	a.FailCount = u.FailCount
	a.CooldownUntil = u.CooldownUntil
	a.ReviewerID = &reviewer
	a.ReviewedAt = &reviewedAt
	a.ReviewNotes = &notes
	a.RejectReason = u.RejectReason
	a.UpdatedAt = u.ReviewedAt
	return nil
}

func (m *memStore) List(_ context.Context, f repository.ListFilter) ([]models.ApplicationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.ApplicationSummary
	for _, a := range m.apps {
		if f.Status == "" || a.Status == f.Status {
			all = append(all, summarize(a))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if f.Offset >= len(all) {
		return []models.ApplicationSummary{}, nil
	}
	all = all[f.Offset:]
	if len(all) > f.Limit {
		all = all[:f.Limit]
	}
	return all, nil
}

func (m *memStore) ListPending(_ context.Context, limit int) ([]models.ApplicationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ApplicationSummary
	for _, a := range m.apps {
		if a.Status == models.StatusPending {
			out = append(out, summarize(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListByApplicant(_ context.Context, applicantID string) ([]models.ApplicationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ApplicationSummary{}
	for _, a := range m.byApplicant(applicantID) {
		out = append(out, summarize(a))
	}
	return out, nil
}

// auditStore adapts memStore to AuditStore
type auditStore struct{ *memStore }

func (s auditStore) Create(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("audit"); err != nil {
		return err
	}
	entry.ID = int64(len(s.audits) + 1)
	s.audits = append(s.audits, *entry)
	return nil
}

func (s auditStore) ListByApplication(_ context.Context, applicationID int64) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.AuditLog{}
	for _, e := range s.audits {
		if e.ApplicationID == applicationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func summarize(a *models.Application) models.ApplicationSummary {
	return models.ApplicationSummary{
		ID:              a.ID,
		ApplicantID:     a.ApplicantID,
		ApplicantName:   a.ApplicantName,
		DisplayIdentity: a.DisplayIdentity,
		Status:          a.Status,
		Score:           a.Score,
		FailCount:       a.FailCount,
		CooldownUntil:   a.CooldownUntil,
		ReviewerID:      a.ReviewerID,
		ReviewedAt:      a.ReviewedAt,
		RejectReason:    a.RejectReason,
		CreatedAt:       a.CreatedAt,
	}
}

// recordingNotifier collects post-commit events
type recordingNotifier struct {
	mu        sync.Mutex
	results   []notify.Result
	roles     []notify.RoleAssignment
	submitted []notify.Submission
}

func (n *recordingNotifier) Reviewed(r notify.Result, ra notify.RoleAssignment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, r)
	n.roles = append(n.roles, ra)
}

func (n *recordingNotifier) Submitted(s notify.Submission) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, s)
}

// fakeClock is a settable Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
