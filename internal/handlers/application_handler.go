package handlers

import (
	"context"
	"net/http"

	"wl-portal/internal/middleware"
	"wl-portal/internal/models"
	"wl-portal/internal/service"
)

// ApplicationService is the applicant-facing part of the workflow
type ApplicationService interface {
	Submit(ctx context.Context, in service.SubmitInput) (*models.Application, error)
	Status(ctx context.Context, applicantID string) (*service.ApplicantStatus, error)
}

// ApplicationHandler handles applicant requests
type ApplicationHandler struct {
	applications ApplicationService
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(applications ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{applications: applications}
}

// SubmitRequest is the questionnaire submission body
type SubmitRequest struct {
	Answers models.Answers `json:"answers"`
}

// SubmitResponse is returned for an accepted application
type SubmitResponse struct {
	ID     int64         `json:"id"`
	Status models.Status `json:"status"`
}

// Submit submits a whitelist application
// @Summary Submit application
// @Description Submit the whitelist questionnaire. The applicant identity comes from the session.
// @Tags Applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SubmitRequest true "Questionnaire answers"
// @Success 201 {object} SubmitResponse
// @Failure 400 {object} ErrorResponse "Validation error"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Attempt limit reached or not a guild member"
// @Failure 409 {object} ErrorResponse "Application already pending or applicant already approved"
// @Failure 413 {object} ErrorResponse "Request body too large"
// @Failure 429 {object} ErrorResponse "Cooldown active"
// @Router /applications [post]
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	applicant, ok := middleware.GetApplicant(r.Context())
	if !ok {
		writeServiceError(w, r, service.ErrUnauthorized)
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := decodeSubmit(body, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	app, err := h.applications.Submit(r.Context(), service.SubmitInput{
		Applicant: applicant,
		Answers:   req.Answers,
		ClientIP:  middleware.ClientIP(r),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, SubmitResponse{ID: app.ID, Status: app.Status})
}

// Status returns the caller's application state
// @Summary Get my application state
// @Description Derived state (eligible, pending, cooldown, locked_out, approved), remaining attempts and latest application
// @Tags Applications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.ApplicantStatus
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Router /applications/me [get]
func (h *ApplicationHandler) Status(w http.ResponseWriter, r *http.Request) {
	applicant, ok := middleware.GetApplicant(r.Context())
	if !ok {
		writeServiceError(w, r, service.ErrUnauthorized)
		return
	}

	status, err := h.applications.Status(r.Context(), applicant.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}
