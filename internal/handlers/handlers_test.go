package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wl-portal/internal/middleware"
	"wl-portal/internal/models"
	"wl-portal/internal/policy"
	"wl-portal/internal/service"
)

type stubApplications struct {
	submitted service.SubmitInput
	app       *models.Application
	status    *service.ApplicantStatus
	err       error
}

func (s *stubApplications) Submit(_ context.Context, in service.SubmitInput) (*models.Application, error) {
	s.submitted = in
	return s.app, s.err
}

func (s *stubApplications) Status(context.Context, string) (*service.ApplicantStatus, error) {
	return s.status, s.err
}

type stubReview struct {
	input      service.ReviewInput
	listStatus string
	listLimit  int
	outcome    *service.ReviewOutcome
	err        error
}

func (s *stubReview) Review(_ context.Context, in service.ReviewInput) (*service.ReviewOutcome, error) {
	s.input = in
	return s.outcome, s.err
}

func (s *stubReview) GetDetail(_ context.Context, id int64) (*models.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.Application{ID: id, Status: models.StatusPending}, nil
}

func (s *stubReview) ListPending(context.Context) ([]models.ApplicationSummary, error) {
	return nil, s.err
}

func (s *stubReview) ListAll(_ context.Context, status string, limit, _ int) ([]models.ApplicationSummary, error) {
	s.listStatus, s.listLimit = status, limit
	return []models.ApplicationSummary{{ID: 1}}, s.err
}

func (s *stubReview) History(context.Context, string) ([]models.ApplicationSummary, error) {
	return nil, s.err
}

func (s *stubReview) AuditTrail(context.Context, int64) ([]models.AuditLog, error) {
	return nil, s.err
}

func asApplicant(r *http.Request, id string) *http.Request {
	return r.WithContext(middleware.WithApplicant(r.Context(), models.Applicant{ID: id, DisplayName: "Jane", InGuild: true}))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const submitBody = `{"answers":{"ooc_age":"21","planned_role":"Mechanic"}}`

func TestApplicationHandler_Submit(t *testing.T) {
	stub := &stubApplications{app: &models.Application{ID: 42, Status: models.StatusPending}}
	h := NewApplicationHandler(stub)

	req := asApplicant(httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(submitBody)), "1001")
	req.RemoteAddr = "203.0.113.5:4000"
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":42,"status":"pending"}`, rec.Body.String())
	assert.Equal(t, "1001", stub.submitted.Applicant.ID)
	assert.Equal(t, "203.0.113.5", stub.submitted.ClientIP)
	assert.Equal(t, "Mechanic", stub.submitted.Answers.PlannedRole)
}

func TestApplicationHandler_SubmitAcceptsIntegerAnswers(t *testing.T) {
	stub := &stubApplications{app: &models.Application{ID: 43, Status: models.StatusPending}}
	h := NewApplicationHandler(stub)

	body := `{"answers":{"ooc_age":21,"min_police_bank_robbery":4.0,"planned_role":"Mechanic"}}`
	req := asApplicant(httptest.NewRequest(http.MethodPost, "/api/v1/applications", strings.NewReader(body)), "1001")
	rec := httptest.NewRecorder()
	h.Submit(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "21", stub.submitted.Answers.OOCAge)
	assert.Equal(t, "4", stub.submitted.Answers.MinPoliceBankRobbery)
	assert.Equal(t, "Mechanic", stub.submitted.Answers.PlannedRole)
}

func TestReadBody_Failures(t *testing.T) {
	t.Run("oversized body", func(t *testing.T) {
		h := NewApplicationHandler(&stubApplications{})
		oversized := `{"answers":{"character_backstory":"` + strings.Repeat("a", maxBodyBytes) + `"}}`
		req := asApplicant(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(oversized)), "1001")
		rec := httptest.NewRecorder()
		h.Submit(rec, req)

		require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, CodeBodyTooLarge, decodeError(t, rec).Code)
	})

	t.Run("broken body stream", func(t *testing.T) {
		stub := &stubReview{}
		h := NewReviewHandler(stub, stub)
		req := asApplicant(httptest.NewRequest(http.MethodPost, "/", iotest.ErrReader(errors.New("connection reset"))), "staff-1")
		req.SetPathValue("id", "5")
		rec := httptest.NewRecorder()
		h.Review(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, CodeValidation, decodeError(t, rec).Code)
	})
}

func TestApplicationHandler_SubmitRejectsBadBodies(t *testing.T) {
	h := NewApplicationHandler(&stubApplications{})

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"not json", `{`, "body"},
		{"missing answers", `{}`, "answers"},
		{"unknown answer key", `{"answers":{"favourite_colour":"blue"}}`, "answers.favourite_colour"},
		{"client supplied identity", `{"answers":{},"display_identity":"Admin (1)"}`, "display_identity"},
		{"fractional numeric answer", `{"answers":{"ooc_age":21.5}}`, "answers.ooc_age"},
		{"negative numeric answer", `{"answers":{"min_police_bank_robbery":-2}}`, "answers.min_police_bank_robbery"},
		{"number for a text answer", `{"answers":{"planned_role":7}}`, "answers.planned_role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := asApplicant(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)), "1001")
			rec := httptest.NewRecorder()
			h.Submit(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, CodeValidation, body.Code)
			assert.Equal(t, tt.wantField, body.Field)
		})
	}
}

func TestWriteServiceError(t *testing.T) {
	until := time.Now().Add(2 * time.Hour)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantRetry  bool
	}{
		{"validation", &service.ValidationError{Field: "fair_play", Message: "is required"}, http.StatusBadRequest, CodeValidation, false},
		{"limit", &service.LimitError{Rejected: 3, Max: 3}, http.StatusForbidden, CodeLimitReached, false},
		{"cooldown", &service.CooldownError{Until: until}, http.StatusTooManyRequests, CodeCooldownActive, true},
		{"pending", service.ErrAlreadyPending, http.StatusConflict, CodeAlreadyPending, false},
		{"approved", service.ErrAlreadyApproved, http.StatusConflict, CodeAlreadyApproved, false},
		{"guild", service.ErrNotGuildMember, http.StatusForbidden, CodeNotGuildMember, false},
		{"not found", service.ErrNotFound, http.StatusNotFound, CodeNotFound, false},
		{"reviewed", service.ErrAlreadyReviewed, http.StatusConflict, CodeAlreadyReviewed, false},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized, CodeUnauthorized, false},
		{"forbidden", service.ErrForbidden, http.StatusForbidden, CodeForbidden, false},
		{"lock timeout", &service.PersistenceError{Op: "review", Retryable: true, Err: &pq.Error{Code: "55P03"}}, http.StatusServiceUnavailable, CodeUnavailable, true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
			assert.Equal(t, tt.wantRetry, rec.Header().Get("Retry-After") != "")
		})
	}

	rec := httptest.NewRecorder()
	writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), &service.CooldownError{Until: until})
	body := decodeError(t, rec)
	require.NotNil(t, body.Until)
	assert.WithinDuration(t, until, *body.Until, time.Second)
}

func TestApplicationHandler_Status(t *testing.T) {
	h := NewApplicationHandler(&stubApplications{status: &service.ApplicantStatus{
		State:       policy.State{Kind: policy.StateEligible, RemainingAttempts: 3},
		MaxAttempts: 3,
	}})

	rec := httptest.NewRecorder()
	h.Status(rec, asApplicant(httptest.NewRequest(http.MethodGet, "/", nil), "1001"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state":"eligible","remaining_attempts":3,"max_attempts":3,"rejected_count":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestReviewHandler_Review(t *testing.T) {
	stub := &stubReview{outcome: &service.ReviewOutcome{
		Application: &models.Application{ID: 7, Status: models.StatusRejected},
		FailCount:   1,
	}}
	h := NewReviewHandler(stub, stub)

	body := `{"judgments":{"what_is_rp":true,"fair_play":false,"vdm_response":null},"aux_check":"passed","notes":"ok"}`
	req := asApplicant(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), "staff-1")
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	h.Review(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), stub.input.ApplicationID)
	assert.Equal(t, "staff-1", stub.input.ReviewerID)
	assert.Equal(t, "passed", stub.input.AuxCheck)
	require.Contains(t, stub.input.Judgments, "vdm_response")
	assert.Nil(t, stub.input.Judgments["vdm_response"])
	assert.False(t, *stub.input.Judgments["fair_play"])

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, []any{}, out["unanswered"])
}

func TestReviewHandler_ReviewErrors(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		body       string
		err        error
		wantStatus int
	}{
		{"bad id", "abc", `{"judgments":{}}`, nil, http.StatusBadRequest},
		{"judgment not boolean", "7", `{"judgments":{"fair_play":"yes"}}`, nil, http.StatusBadRequest},
		{"missing judgments", "7", `{"aux_check":"passed"}`, nil, http.StatusBadRequest},
		{"already reviewed", "7", `{"judgments":{}}`, service.ErrAlreadyReviewed, http.StatusConflict},
		{"not found", "7", `{"judgments":{}}`, service.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubReview{err: tt.err}
			h := NewReviewHandler(stub, stub)

			req := asApplicant(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body)), "staff-1")
			req.SetPathValue("id", tt.id)
			rec := httptest.NewRecorder()
			h.Review(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestReviewHandler_Lists(t *testing.T) {
	stub := &stubReview{}
	h := NewReviewHandler(stub, stub)

	rec := httptest.NewRecorder()
	h.ListAll(rec, httptest.NewRequest(http.MethodGet, "/?status=rejected&limit=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", stub.listStatus)
	assert.Equal(t, 10, stub.listLimit)

	rec = httptest.NewRecorder()
	h.ListPending(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[],"count":0}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetPathValue("id", "3")
	rec = httptest.NewRecorder()
	h.AuditTrail(rec, req)
	assert.JSONEq(t, `{"items":[],"count":0}`, rec.Body.String())
}

type failingCheck struct{ err error }

func (c failingCheck) HealthCheck(context.Context) error { return c.err }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler("1.0.0", map[string]HealthChecker{"database": failingCheck{}}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"1.0.0","database":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHealthHandler("1.0.0", map[string]HealthChecker{"redis": failingCheck{err: errors.New("down")}}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRespondWithJSON_NilSlicesAsEmpty(t *testing.T) {
	reviewed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	app := &models.Application{
		ID:          9,
		Status:      models.StatusRejected,
		ReviewedAt:  &reviewed,
		ReviewNotes: &models.ReviewNotes{Judgments: map[string]bool{"fair_play": false}},
	}

	rec := httptest.NewRecorder()
	respondWithJSON(rec, http.StatusOK, app)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	notes := body["review_notes"].(map[string]any)
	assert.Equal(t, []any{}, notes["unanswered"])
	assert.Equal(t, []any{}, notes["incorrect"])
	assert.Equal(t, "2026-03-01T12:00:00Z", body["reviewed_at"])
	assert.Nil(t, app.ReviewNotes.Unanswered)
}
