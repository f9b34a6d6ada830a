package reclaim

import (
	"context"
	"fmt"
	"time"

	"clinicslots/internal/scheduling/events"
	"clinicslots/internal/scheduling/repository"
	"clinicslots/pkg/clock"
	"clinicslots/pkg/logger"
	"clinicslots/pkg/model"

	"github.com/google/uuid"
)

// Result summarises one sweep
type Result struct {
	Doctors  int
	Released int
	Failed   int
}

// Sweeper moves HELD holds past their expiry to RELEASED. It takes the same
// per-doctor section as Reserve and Confirm, so a confirm racing a sweep
// either wins before the hold is reclaimed or sees it released.
// Capacity is untouched: HELD holds never consumed any.
type Sweeper struct {
	store     repository.Store
	publisher events.Publisher
	clock     clock.Clock
	batchSize int
	log       *logger.Logger
}

func NewSweeper(store repository.Store, publisher events.Publisher, clk clock.Clock, batchSize int, log *logger.Logger) *Sweeper {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Sweeper{
		store:     store,
		publisher: publisher,
		clock:     clk,
		batchSize: batchSize,
		log:       log.With("component", "reclaim_sweeper"),
	}
}

// Sweep reclaims at most batchSize holds per doctor for at most batchSize
// doctors. A failing doctor is logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var result Result
	cutoff := s.now()

	doctors, err := s.store.Holds().DoctorsWithExpiredHolds(ctx, model.HoldStatusHeld, cutoff, s.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to list doctors with expired holds: %w", err)
	}
	result.Doctors = len(doctors)

	for _, doctorID := range doctors {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		released, err := s.sweepDoctor(ctx, doctorID, cutoff)
		if err != nil {
			result.Failed++
			s.log.Warn("Failed to reclaim expired holds",
				"doctor_id", doctorID,
				"error", err,
			)
			continue
		}
		result.Released += len(released)

		for _, hold := range released {
			event := model.NewHoldEvent(uuid.NewString(), model.HoldEventExpired, hold, cutoff)
			if err := s.publisher.Publish(ctx, event); err != nil {
				s.log.Warn("Failed to publish hold event",
					"event_type", model.HoldEventExpired,
					"hold_id", hold.ID,
					"doctor_id", doctorID,
					"error", err,
				)
			}
		}
	}

	if result.Released > 0 || result.Failed > 0 {
		s.log.Info("Expired holds reclaimed",
			"doctors", result.Doctors,
			"released", result.Released,
			"failed", result.Failed,
		)
	}
	return result, nil
}

func (s *Sweeper) sweepDoctor(ctx context.Context, doctorID int64, cutoff time.Time) ([]*model.SlotHold, error) {
	var released []*model.SlotHold

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		released = released[:0]

		if err := s.store.Holds().LockDoctor(ctx, doctorID); err != nil {
			return err
		}

		expired, err := s.store.Holds().FindExpired(ctx, doctorID, model.HoldStatusHeld, cutoff, s.batchSize)
		if err != nil {
			return err
		}

		for _, hold := range expired {
			// Re-checked under the section: a confirm may have landed since the listing.
			if !hold.IsExpired(cutoff) {
				continue
			}
			hold.Status = model.HoldStatusReleased
			if err := s.store.Holds().Update(ctx, hold); err != nil {
				return err
			}
			released = append(released, hold)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

func (s *Sweeper) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}
