package main

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wl-portal/internal/config"
	"wl-portal/internal/handlers"
	"wl-portal/internal/middleware"
	"wl-portal/internal/models"
	"wl-portal/internal/policy"
	"wl-portal/internal/service"
	"wl-portal/internal/testutil"
)

type stubWorkflow struct{}

func (stubWorkflow) Submit(_ context.Context, in service.SubmitInput) (*models.Application, error) {
	return &models.Application{ID: 1, ApplicantID: in.Applicant.ID, Status: models.StatusPending}, nil
}

func (stubWorkflow) Status(context.Context, string) (*service.ApplicantStatus, error) {
	return &service.ApplicantStatus{State: policy.State{Kind: policy.StateEligible, RemainingAttempts: 3}, MaxAttempts: 3}, nil
}

func (stubWorkflow) GetDetail(_ context.Context, id int64) (*models.Application, error) {
	return &models.Application{ID: id, Status: models.StatusPending, CreatedAt: time.Now()}, nil
}

func (stubWorkflow) ListPending(context.Context) ([]models.ApplicationSummary, error) {
	return nil, nil
}

func (stubWorkflow) ListAll(context.Context, string, int, int) ([]models.ApplicationSummary, error) {
	return nil, nil
}

func (stubWorkflow) History(context.Context, string) ([]models.ApplicationSummary, error) {
	return nil, nil
}

func (stubWorkflow) AuditTrail(context.Context, int64) ([]models.AuditLog, error) {
	return nil, nil
}

func (stubWorkflow) Review(_ context.Context, in service.ReviewInput) (*service.ReviewOutcome, error) {
	return &service.ReviewOutcome{Application: &models.Application{ID: in.ApplicationID}, Approved: true}, nil
}

func newTestRouter(t *testing.T) (*http.ServeMux, *testutil.AuthHelper) {
	t.Helper()
	helper := testutil.NewAuthHelper()
	authCfg := &config.AuthConfig{StaffIDs: []string{"900"}, CookieName: "wl_session"}

	mux := http.NewServeMux()
	registerRoutes(mux,
		middleware.NewAuthMiddleware(helper.Verifier(), authCfg),
		middleware.NewStaffMiddleware(authCfg),
		handlers.NewApplicationHandler(stubWorkflow{}),
		handlers.NewReviewHandler(stubWorkflow{}, stubWorkflow{}),
		handlers.NewHealthHandler("test", nil),
	)
	return mux, helper
}

func TestRoutes_Access(t *testing.T) {
	mux, helper := newTestRouter(t)
	applicant := testutil.Applicant("1001")
	staff := testutil.Staff("900")

	tests := []struct {
		name   string
		method string
		path   string
		as     *models.Applicant
		want   int
	}{
		{"status requires auth", http.MethodGet, "/api/v1/applications/me", nil, http.StatusUnauthorized},
		{"applicant status", http.MethodGet, "/api/v1/applications/me", &applicant, http.StatusOK},
		{"applicant cannot list", http.MethodGet, "/api/v1/review/applications", &applicant, http.StatusForbidden},
		{"staff lists", http.MethodGet, "/api/v1/review/applications", &staff, http.StatusOK},
		{"staff pending", http.MethodGet, "/api/v1/review/applications/pending", &staff, http.StatusOK},
		{"staff detail", http.MethodGet, "/api/v1/review/applications/7", &staff, http.StatusOK},
		{"staff audit", http.MethodGet, "/api/v1/review/applications/7/audit", &staff, http.StatusOK},
		{"staff history", http.MethodGet, "/api/v1/review/applicants/1001/applications", &staff, http.StatusOK},
		{"wrong method", http.MethodDelete, "/api/v1/review/applications/7", &staff, http.StatusMethodNotAllowed},
		{"health is public", http.MethodGet, "/health", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.as != nil {
				req = helper.CreateAuthenticatedRequest(t, tt.method, tt.path, nil, *tt.as)
			} else {
				req, _ = http.NewRequest(tt.method, tt.path, nil)
			}

			rec := testutil.NewTestResponse()
			mux.ServeHTTP(rec, req)
			rec.AssertStatus(t, tt.want)
		})
	}
}

func TestRoutes_StaffReview(t *testing.T) {
	mux, helper := newTestRouter(t)

	body := `{"judgments": {"what_is_rp": true}, "aux_check": "passed", "notes": ""}`
	req := helper.CreateAuthenticatedRequest(t, http.MethodPost, "/api/v1/review/applications/7/review",
		strings.NewReader(body), testutil.Staff("900"))

	rec := testutil.NewTestResponse()
	mux.ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusOK)
	assert.Contains(t, rec.Body.String(), `"approved":true`)
}

func TestRoutes_SubmitUsesSessionIdentity(t *testing.T) {
	mux, helper := newTestRouter(t)

	body := `{"answers": {"ooc_age": "20"}}`
	req := helper.CreateAuthenticatedRequest(t, http.MethodPost, "/api/v1/applications",
		strings.NewReader(body), testutil.Applicant("1001"))

	rec := testutil.NewTestResponse()
	mux.ServeHTTP(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}
