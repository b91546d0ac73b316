package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"wl-portal/internal/service"
)

// writeServiceError maps the service error taxonomy to HTTP responses
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *service.ValidationError
		ce *service.CooldownError
		le *service.LimitError
		pe *service.PersistenceError
	)

	switch {
	case errors.As(err, &ve):
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Error(), Code: CodeValidation, Field: ve.Field})
	case errors.As(err, &ce):
		until := ce.Until.UTC()
		retry := int(math.Ceil(time.Until(until).Seconds()))
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		respondWithJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: ce.Error(), Code: CodeCooldownActive, Until: &until})
	case errors.As(err, &le), errors.Is(err, service.ErrLimitReached):
		respondWithError(w, http.StatusForbidden, CodeLimitReached, service.ErrLimitReached.Error())
	case errors.Is(err, service.ErrAlreadyPending):
		respondWithError(w, http.StatusConflict, CodeAlreadyPending, err.Error())
	case errors.Is(err, service.ErrAlreadyApproved):
		respondWithError(w, http.StatusConflict, CodeAlreadyApproved, err.Error())
	case errors.Is(err, service.ErrNotGuildMember):
		respondWithError(w, http.StatusForbidden, CodeNotGuildMember, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, CodeNotFound, ErrMsgNotFound)
	case errors.Is(err, service.ErrAlreadyReviewed):
		respondWithError(w, http.StatusConflict, CodeAlreadyReviewed, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, CodeUnauthorized, ErrMsgUnauthorized)
	case errors.Is(err, service.ErrForbidden):
		respondWithError(w, http.StatusForbidden, CodeForbidden, ErrMsgForbidden)
	case errors.As(err, &pe) && pe.Retryable:
		slog.Warn("Retryable persistence failure", "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
		respondWithError(w, http.StatusServiceUnavailable, CodeUnavailable, ErrMsgUnavailable)
	default:
		slog.Error("Request failed", "path", r.URL.Path, "error", err)
		respondWithError(w, http.StatusInternalServerError, CodeInternal, ErrMsgInternal)
	}
}
