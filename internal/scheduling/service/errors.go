package service

import (
	"context"
	"errors"

	schedulingerrors "clinicslots/internal/scheduling/errors"
	"clinicslots/internal/scheduling/validator"
	apperrors "clinicslots/pkg/errors"
)

var invalidInputCauses = []error{
	schedulingerrors.ErrSlotRequired,
	schedulingerrors.ErrSlotEndBeforeStart,
	schedulingerrors.ErrSlotNotAligned,
	schedulingerrors.ErrSlotTooSoon,
	schedulingerrors.ErrDoctorMismatch,
}

var conflictCauses = []error{
	schedulingerrors.ErrSlotNotAvailable,
	schedulingerrors.ErrDailyCapacityReached,
	schedulingerrors.ErrHoldConfirmedElsewhere,
	schedulingerrors.ErrHoldNotHeld,
	schedulingerrors.ErrCapacityReachedAtConfirm,
}

// toAppError classifies a failure from the unit of work. The sentinel stays
// attached as the cause so callers can still match it with errors.Is.
func toAppError(err error, fallback string) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Request validation failed", verrs.Details()).WithCause(err)
	}

	if errors.Is(err, schedulingerrors.ErrHoldNotFound) {
		return apperrors.NotFound("hold").WithCause(schedulingerrors.ErrHoldNotFound)
	}
	for _, cause := range invalidInputCauses {
		if errors.Is(err, cause) {
			return apperrors.InvalidInput(cause.Error()).WithCause(cause)
		}
	}
	for _, cause := range conflictCauses {
		if errors.Is(err, cause) {
			return apperrors.Conflict(cause.Error()).WithCause(cause)
		}
	}

	switch {
	case errors.Is(err, schedulingerrors.ErrStaleRevision):
		return apperrors.Conflict(schedulingerrors.ErrStaleRevision.Error()).
			WithCause(schedulingerrors.ErrStaleRevision).
			AsRetryable()
	case errors.Is(err, schedulingerrors.ErrLockTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperrors.Timeout(schedulingerrors.ErrLockTimeout.Error()).
			WithCause(schedulingerrors.ErrLockTimeout)
	}

	return apperrors.Internal(fallback, err)
}

func isBusinessRejection(err error) bool {
	if errors.Is(err, schedulingerrors.ErrHoldNotFound) || errors.Is(err, schedulingerrors.ErrStaleRevision) {
		return true
	}
	for _, cause := range append(invalidInputCauses, conflictCauses...) {
		if errors.Is(err, cause) {
			return true
		}
	}
	return false
}
