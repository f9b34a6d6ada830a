package repository

import (
	"context"
	"time"

	"clinicslots/pkg/model"
)

// Store groups the hold ledger and the capacity counter behind one unit of
// work. Repository calls made with the context handed to fn join the same
// transaction; any error returned by fn rolls everything back.
//
// Exclusive sections are acquired with HoldRepository.LockDoctor and
// CapacityRepository.LockDay and are held until WithTx returns. Callers must
// lock the doctor before any of its days.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Holds() HoldRepository
	Capacities() CapacityRepository
	Ping(ctx context.Context) error
}

type HoldRepository interface {
	// LockDoctor enters the exclusive section of one doctor's holds.
	LockDoctor(ctx context.Context, doctorID int64) error

	// FindOverlapping returns HELD and CONFIRMED holds of the doctor that
	// intersect [start, end).
	FindOverlapping(ctx context.Context, doctorID int64, start, end time.Time) ([]*model.SlotHold, error)
	FindByID(ctx context.Context, id string) (*model.SlotHold, error)

	// Create assigns hold.ID and stores the hold with revision 1.
	Create(ctx context.Context, hold *model.SlotHold) error

	// Update writes hold if its stored revision still equals hold.Revision,
	// then bumps hold.Revision. A lost race yields ErrStaleRevision.
	Update(ctx context.Context, hold *model.SlotHold) error

	FindExpired(ctx context.Context, doctorID int64, status model.HoldStatus, cutoff time.Time, limit int) ([]*model.SlotHold, error)
	DoctorsWithExpiredHolds(ctx context.Context, status model.HoldStatus, cutoff time.Time, limit int) ([]int64, error)
}

type CapacityRepository interface {
	// LockDay enters the exclusive section of (doctorID, day), creating the
	// row with defaultCapacity and zero bookings when absent.
	LockDay(ctx context.Context, doctorID int64, day string, defaultCapacity int) (*model.DailyCapacity, error)

	// Update writes BookedCount with the same revision rule as holds.
	Update(ctx context.Context, dc *model.DailyCapacity) error
}
