package handlers

import (
	"context"
	"net/http"
	"strconv"

	"wl-portal/internal/middleware"
	"wl-portal/internal/models"
	"wl-portal/internal/service"
)

// ReviewQueries is the staff read side of the workflow
type ReviewQueries interface {
	GetDetail(ctx context.Context, id int64) (*models.Application, error)
	ListPending(ctx context.Context) ([]models.ApplicationSummary, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]models.ApplicationSummary, error)
	History(ctx context.Context, applicantID string) ([]models.ApplicationSummary, error)
	AuditTrail(ctx context.Context, id int64) ([]models.AuditLog, error)
}

// Reviewer closes pending applications
type Reviewer interface {
	Review(ctx context.Context, in service.ReviewInput) (*service.ReviewOutcome, error)
}

// ReviewHandler handles staff requests
type ReviewHandler struct {
	queries  ReviewQueries
	reviewer Reviewer
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(queries ReviewQueries, reviewer Reviewer) *ReviewHandler {
	return &ReviewHandler{queries: queries, reviewer: reviewer}
}

// ReviewRequest is a staff decision. A null judgment leaves the question unanswered.
type ReviewRequest struct {
	Judgments map[string]*bool `json:"judgments"`
	AuxCheck  string           `json:"aux_check"`
	Notes     string           `json:"notes"`
}

// ListResponse wraps list results
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func list[T any](items []T) ListResponse[T] {
	return ListResponse[T]{Items: items, Count: len(items)}
}

// ListAll lists applications newest first
// @Summary List applications
// @Description List applications newest first, optionally filtered by status (staff only)
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending, approved, rejected)"
// @Param limit query int false "Items per page" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} map[string]interface{} "Application summaries"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 403 {object} ErrorResponse "Forbidden - staff only"
// @Router /review/applications [get]
func (h *ReviewHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	apps, err := h.queries.ListAll(r.Context(), q.Get("status"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list(apps))
}

// ListPending lists the review queue oldest first
// @Summary List pending applications
// @Description Review queue, oldest first (staff only)
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Pending application summaries"
// @Failure 403 {object} ErrorResponse "Forbidden - staff only"
// @Router /review/applications/pending [get]
func (h *ReviewHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	apps, err := h.queries.ListPending(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list(apps))
}

// GetDetail returns one application
// @Summary Get application
// @Description Full application with answers and review notes (staff only)
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} models.Application
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /review/applications/{id} [get]
func (h *ReviewHandler) GetDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationID(w, r)
	if !ok {
		return
	}

	app, err := h.queries.GetDetail(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, app)
}

// Review approves or rejects a pending application
// @Summary Review application
// @Description Record per-question judgments and the platform verification outcome. Exactly one review succeeds per application.
// @Tags Review
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Param request body ReviewRequest true "Review decision"
// @Success 200 {object} service.ReviewOutcome
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 404 {object} ErrorResponse "Not found"
// @Failure 409 {object} ErrorResponse "Already reviewed"
// @Failure 413 {object} ErrorResponse "Request body too large"
// @Failure 503 {object} ErrorResponse "Lock wait timed out, retry"
// @Router /review/applications/{id}/review [post]
func (h *ReviewHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationID(w, r)
	if !ok {
		return
	}
	reviewer, ok := middleware.GetApplicant(r.Context())
	if !ok {
		writeServiceError(w, r, service.ErrUnauthorized)
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var req ReviewRequest
	if err := decodeBody(reviewSchema, body, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	out, err := h.reviewer.Review(r.Context(), service.ReviewInput{
		ApplicationID: id,
		ReviewerID:    reviewer.ID,
		Judgments:     req.Judgments,
		AuxCheck:      req.AuxCheck,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}

// AuditTrail lists the audit entries of one application
// @Summary Get audit trail
// @Description Submission and review audit entries of one application (staff only)
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param id path int true "Application ID"
// @Success 200 {object} map[string]interface{} "Audit entries"
// @Failure 404 {object} ErrorResponse "Not found"
// @Router /review/applications/{id}/audit [get]
func (h *ReviewHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	id, ok := applicationID(w, r)
	if !ok {
		return
	}

	entries, err := h.queries.AuditTrail(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list(entries))
}

// History lists every application of one applicant
// @Summary Get applicant history
// @Description All applications of one applicant, newest first (staff only)
// @Tags Review
// @Produce json
// @Security BearerAuth
// @Param applicantId path string true "Applicant ID"
// @Success 200 {object} map[string]interface{} "Application summaries"
// @Router /review/applicants/{applicantId}/applications [get]
func (h *ReviewHandler) History(w http.ResponseWriter, r *http.Request) {
	apps, err := h.queries.History(r.Context(), r.PathValue("applicantId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list(apps))
}

func applicationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMsgInvalidApplicationID, Code: CodeValidation, Field: "id"})
		return 0, false
	}
	return id, true
}
