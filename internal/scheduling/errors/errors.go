package errors

import "errors"

var (
	ErrSlotRequired       = errors.New("slot start and slot end are required")
	ErrSlotEndBeforeStart = errors.New("slot end must be after slot start")
	ErrSlotNotAligned     = errors.New("slot not aligned to grid")
	ErrSlotTooSoon        = errors.New("slot too soon")
	ErrSlotNotAvailable   = errors.New("slot not available")

	ErrDailyCapacityReached     = errors.New("daily capacity reached")
	ErrCapacityReachedAtConfirm = errors.New("daily capacity reached at confirm")

	ErrHoldNotFound           = errors.New("hold not found")
	ErrDoctorMismatch         = errors.New("doctor mismatch")
	ErrHoldConfirmedElsewhere = errors.New("hold already confirmed for another booking")
	ErrHoldNotHeld            = errors.New("hold not in held state")

	// ErrStaleRevision is returned by compare-and-set writes that lost a race.
	ErrStaleRevision = errors.New("concurrent update detected")

	ErrLockTimeout = errors.New("exclusive section wait timed out")
)
