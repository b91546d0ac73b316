package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

var (
	ErrNotFound        = errors.New("application not found")
	ErrAlreadyReviewed = errors.New("application has already been reviewed")
	ErrAlreadyPending  = errors.New("applicant already has a pending application")
	ErrAlreadyApproved = errors.New("applicant has already been approved")
	ErrNotGuildMember  = errors.New("applicant is not a member of the community guild")
	ErrLimitReached    = errors.New("maximum number of attempts reached")
	ErrCooldownActive  = errors.New("cooldown is active")
	ErrUnauthorized    = errors.New("authentication required")
	ErrForbidden       = errors.New("staff access required")
)

// ValidationError names the first invalid input field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("invalid field %s", e.Field)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// CooldownError carries the moment the applicant may submit again.
// It matches ErrCooldownActive with errors.Is.
type CooldownError struct {
	Until time.Time
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown is active until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *CooldownError) Is(target error) bool {
	return target == ErrCooldownActive
}

// LimitError carries the rejected count that triggered the lockout.
// It matches ErrLimitReached with errors.Is.
type LimitError struct {
	Rejected int
	Max      int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("maximum number of attempts reached (%d of %d)", e.Rejected, e.Max)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitReached
}

// PersistenceError wraps a storage failure. The transaction it occurred in
// has been rolled back.
type PersistenceError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Postgres error codes that are safe to retry
const (
	pqLockNotAvailable     = "55P03"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqUniqueViolation      = "23505"
)

const pendingIndexName = "uq_applications_one_pending"

// persistence classifies a storage error. Domain errors pass through unchanged.
func persistence(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqLockNotAvailable, pqSerializationFailure, pqDeadlockDetected:
			return &PersistenceError{Op: op, Retryable: true, Err: err}
		case pqUniqueViolation:
			if pqErr.Constraint == pendingIndexName {
				return ErrAlreadyPending
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &PersistenceError{Op: op, Retryable: true, Err: err}
	}
	return &PersistenceError{Op: op, Err: err}
}

func isDomainError(err error) bool {
	var ve *ValidationError
	var pe *PersistenceError
	return errors.As(err, &ve) ||
		errors.As(err, &pe) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyReviewed) ||
		errors.Is(err, ErrAlreadyPending) ||
		errors.Is(err, ErrAlreadyApproved) ||
		errors.Is(err, ErrNotGuildMember) ||
		errors.Is(err, ErrLimitReached) ||
		errors.Is(err, ErrCooldownActive)
}

// IsRetryable reports whether the caller may safely retry the operation
func IsRetryable(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Retryable
}
