package service

import (
	"context"
	"time"

	schedulingerrors "clinicslots/internal/scheduling/errors"
	"clinicslots/internal/scheduling/events"
	"clinicslots/internal/scheduling/repository"
	"clinicslots/internal/scheduling/validator"
	"clinicslots/pkg/clock"
	"clinicslots/pkg/config"
	"clinicslots/pkg/logger"
	"clinicslots/pkg/model"

	"github.com/google/uuid"
)

// Params are the scheduling rules the engine enforces.
type Params struct {
	SlotGranularity time.Duration
	MinLeadTime     time.Duration
	DefaultCapacity int
	DefaultHoldTTL  time.Duration
	Location        *time.Location
}

func DefaultParams() Params {
	return Params{
		SlotGranularity: config.DefaultSlotGranularity,
		MinLeadTime:     config.DefaultMinLeadTime,
		DefaultCapacity: config.DefaultDailyCapacity,
		DefaultHoldTTL:  config.DefaultHoldTTL,
		Location:        time.UTC,
	}
}

func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		SlotGranularity: cfg.SlotGranularity,
		MinLeadTime:     cfg.MinLeadTime,
		DefaultCapacity: cfg.DefaultDailyCapacity,
		DefaultHoldTTL:  cfg.DefaultHoldTTL,
		Location:        cfg.Location,
	}
}

type SchedulingService interface {
	CheckAlignment(start, end time.Time) bool
	IsWithinLeadTime(start time.Time) bool

	IsAvailable(ctx context.Context, doctorID int64, req *model.AvailabilityRequest) (bool, error)
	Reserve(ctx context.Context, doctorID int64, req *model.ReserveRequest) (*model.ReserveResponse, error)
	Confirm(ctx context.Context, doctorID int64, holdID string, bookingID int64) (*model.SlotHold, error)
	Release(ctx context.Context, doctorID int64, holdID string) (*model.SlotHold, error)
	GetHold(ctx context.Context, doctorID int64, holdID string) (*model.SlotHold, error)
}

type schedulingService struct {
	store     repository.Store
	validator *validator.SchedulingValidator
	publisher events.Publisher
	clock     clock.Clock
	params    Params
	log       *logger.Logger
}

func NewSchedulingService(
	store repository.Store,
	validator *validator.SchedulingValidator,
	publisher events.Publisher,
	clk clock.Clock,
	params Params,
	log *logger.Logger,
) SchedulingService {
	if params.Location == nil {
		params.Location = time.UTC
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &schedulingService{
		store:     store,
		validator: validator,
		publisher: publisher,
		clock:     clk,
		params:    params,
		log:       log,
	}
}

// CheckAlignment reports whether [start, end) sits on the slot grid. The
// grid starts at local midnight in the business time zone.
func (s *schedulingService) CheckAlignment(start, end time.Time) bool {
	g := s.params.SlotGranularity
	length := end.Sub(start)
	if g <= 0 || length <= 0 || length%g != 0 {
		return false
	}

	local := start.In(s.params.Location)
	offset := time.Duration(local.Hour())*time.Hour +
		time.Duration(local.Minute())*time.Minute +
		time.Duration(local.Second())*time.Second +
		time.Duration(local.Nanosecond())
	return offset%g == 0
}

func (s *schedulingService) IsWithinLeadTime(start time.Time) bool {
	return start.After(s.clock.Now().Add(s.params.MinLeadTime))
}

// IsAvailable is a snapshot: the doctor's section is released as soon as the
// lookup returns. Only Reserve guarantees the slot.
func (s *schedulingService) IsAvailable(ctx context.Context, doctorID int64, req *model.AvailabilityRequest) (bool, error) {
	if req == nil || req.SlotStart == nil || req.SlotEnd == nil {
		return false, toAppError(schedulingerrors.ErrSlotRequired, "")
	}
	if err := s.validator.Validate(req); err != nil {
		return false, toAppError(err, "Failed to validate availability request")
	}

	start, end := *req.SlotStart, *req.SlotEnd
	if !end.After(start) {
		return false, toAppError(schedulingerrors.ErrSlotEndBeforeStart, "")
	}

	s.log.Debug("Checking slot availability",
		"doctor_id", doctorID,
		"slot_start", start,
		"slot_end", end,
		"patient_id", req.PatientID,
		"booking_id", req.BookingID,
	)

	if !s.CheckAlignment(start, end) || !s.IsWithinLeadTime(start) {
		return false, nil
	}

	available := false
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.Holds().LockDoctor(ctx, doctorID); err != nil {
			return err
		}
		overlapping, err := s.store.Holds().FindOverlapping(ctx, doctorID, start, end)
		if err != nil {
			return err
		}
		available = len(overlapping) == 0
		return nil
	})
	if err != nil {
		s.log.Error("Failed to check slot availability",
			"doctor_id", doctorID,
			"slot_start", start,
			"error", err,
		)
		return false, toAppError(err, "Failed to check slot availability")
	}

	return available, nil
}

func (s *schedulingService) Reserve(ctx context.Context, doctorID int64, req *model.ReserveRequest) (*model.ReserveResponse, error) {
	if req == nil || req.SlotStart == nil || req.SlotEnd == nil {
		return nil, toAppError(schedulingerrors.ErrSlotRequired, "")
	}
	if err := s.validator.Validate(req); err != nil {
		s.log.Warn("Reserve request validation failed", "doctor_id", doctorID, "error", err)
		return nil, toAppError(err, "Failed to validate reserve request")
	}

	start, end := *req.SlotStart, *req.SlotEnd
	if !end.After(start) {
		return nil, toAppError(schedulingerrors.ErrSlotEndBeforeStart, "")
	}
	if !s.CheckAlignment(start, end) {
		return nil, toAppError(schedulingerrors.ErrSlotNotAligned, "")
	}
	if !s.IsWithinLeadTime(start) {
		return nil, toAppError(schedulingerrors.ErrSlotTooSoon, "")
	}

	ttl := s.params.DefaultHoldTTL
	if req.TTLMinutes != nil {
		ttl = time.Duration(*req.TTLMinutes) * time.Minute
	}

	now := s.now()
	hold := &model.SlotHold{
		DoctorID:  doctorID,
		SlotStart: start.UTC(),
		SlotEnd:   end.UTC(),
		Status:    model.HoldStatusHeld,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	day := model.DayOf(start, s.params.Location)

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.Holds().LockDoctor(ctx, doctorID); err != nil {
			return err
		}

		overlapping, err := s.store.Holds().FindOverlapping(ctx, doctorID, start, end)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return schedulingerrors.ErrSlotNotAvailable
		}

		dc, err := s.store.Capacities().LockDay(ctx, doctorID, day, s.params.DefaultCapacity)
		if err != nil {
			return err
		}
		if dc.IsFull() {
			return schedulingerrors.ErrDailyCapacityReached
		}

		return s.store.Holds().Create(ctx, hold)
	})
	if err != nil {
		s.logFailure("Failed to reserve slot", err,
			"doctor_id", doctorID,
			"slot_start", start,
			"slot_end", end,
		)
		return nil, toAppError(err, "Failed to reserve slot")
	}

	s.log.Info("Slot reserved",
		"hold_id", hold.ID,
		"doctor_id", doctorID,
		"slot_start", hold.SlotStart,
		"slot_end", hold.SlotEnd,
		"expires_at", hold.ExpiresAt,
	)
	s.publish(ctx, model.HoldEventReserved, hold)

	return &model.ReserveResponse{HoldID: hold.ID, ExpiresAt: hold.ExpiresAt}, nil
}

func (s *schedulingService) Confirm(ctx context.Context, doctorID int64, holdID string, bookingID int64) (*model.SlotHold, error) {
	if holdID == "" {
		return nil, toAppError(schedulingerrors.ErrHoldNotFound, "")
	}
	if err := s.validator.Validate(&model.ConfirmRequest{BookingID: bookingID}); err != nil {
		return nil, toAppError(err, "Failed to validate confirm request")
	}

	var (
		hold       *model.SlotHold
		idempotent bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		hold, err = s.lockedHold(ctx, doctorID, holdID)
		if err != nil {
			return err
		}

		switch hold.Status {
		case model.HoldStatusConfirmed:
			if hold.BookingID != nil && *hold.BookingID == bookingID {
				idempotent = true
				return nil
			}
			return schedulingerrors.ErrHoldConfirmedElsewhere
		case model.HoldStatusHeld:
		default:
			return schedulingerrors.ErrHoldNotHeld
		}

		dc, err := s.store.Capacities().LockDay(ctx, doctorID, model.DayOf(hold.SlotStart, s.params.Location), s.params.DefaultCapacity)
		if err != nil {
			return err
		}
		if dc.IsFull() {
			return schedulingerrors.ErrCapacityReachedAtConfirm
		}
		dc.BookedCount++
		if err := s.store.Capacities().Update(ctx, dc); err != nil {
			return err
		}

		hold.Status = model.HoldStatusConfirmed
		hold.BookingID = &bookingID
		return s.store.Holds().Update(ctx, hold)
	})
	if err != nil {
		s.logFailure("Failed to confirm hold", err,
			"hold_id", holdID,
			"doctor_id", doctorID,
			"booking_id", bookingID,
		)
		return nil, toAppError(err, "Failed to confirm hold")
	}

	if idempotent {
		s.log.Info("Hold already confirmed with the same booking",
			"hold_id", holdID,
			"doctor_id", doctorID,
			"booking_id", bookingID,
		)
		return hold, nil
	}

	s.log.Info("Hold confirmed",
		"hold_id", holdID,
		"doctor_id", doctorID,
		"booking_id", bookingID,
	)
	s.publish(ctx, model.HoldEventConfirmed, hold)

	return hold, nil
}

// Release frees the hold's time range. Releasing a CONFIRMED hold also gives
// its booking back to the day, never taking the count below zero. A hold
// that is already RELEASED is returned unchanged.
func (s *schedulingService) Release(ctx context.Context, doctorID int64, holdID string) (*model.SlotHold, error) {
	if holdID == "" {
		return nil, toAppError(schedulingerrors.ErrHoldNotFound, "")
	}

	var (
		hold *model.SlotHold
		noop bool
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		var err error
		hold, err = s.lockedHold(ctx, doctorID, holdID)
		if err != nil {
			return err
		}

		switch hold.Status {
		case model.HoldStatusReleased:
			noop = true
			return nil
		case model.HoldStatusConfirmed:
			dc, err := s.store.Capacities().LockDay(ctx, doctorID, model.DayOf(hold.SlotStart, s.params.Location), s.params.DefaultCapacity)
			if err != nil {
				return err
			}
			if dc.BookedCount > 0 {
				dc.BookedCount--
				if err := s.store.Capacities().Update(ctx, dc); err != nil {
					return err
				}
			}
		}

		hold.Status = model.HoldStatusReleased
		return s.store.Holds().Update(ctx, hold)
	})
	if err != nil {
		s.logFailure("Failed to release hold", err,
			"hold_id", holdID,
			"doctor_id", doctorID,
		)
		return nil, toAppError(err, "Failed to release hold")
	}

	if noop {
		s.log.Info("Hold already released", "hold_id", holdID, "doctor_id", doctorID)
		return hold, nil
	}

	s.log.Info("Hold released", "hold_id", holdID, "doctor_id", doctorID)
	s.publish(ctx, model.HoldEventReleased, hold)

	return hold, nil
}

func (s *schedulingService) GetHold(ctx context.Context, doctorID int64, holdID string) (*model.SlotHold, error) {
	if holdID == "" {
		return nil, toAppError(schedulingerrors.ErrHoldNotFound, "")
	}

	hold, err := s.store.Holds().FindByID(ctx, holdID)
	if err != nil {
		s.logFailure("Failed to get hold", err, "hold_id", holdID, "doctor_id", doctorID)
		return nil, toAppError(err, "Failed to retrieve hold")
	}
	if hold.DoctorID != doctorID {
		return nil, toAppError(schedulingerrors.ErrDoctorMismatch, "")
	}
	return hold, nil
}

// lockedHold enters the caller's doctor section, then loads the hold and
// checks that it belongs to that doctor.
func (s *schedulingService) lockedHold(ctx context.Context, doctorID int64, holdID string) (*model.SlotHold, error) {
	if err := s.store.Holds().LockDoctor(ctx, doctorID); err != nil {
		return nil, err
	}
	hold, err := s.store.Holds().FindByID(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if hold.DoctorID != doctorID {
		return nil, schedulingerrors.ErrDoctorMismatch
	}
	return hold, nil
}

func (s *schedulingService) publish(ctx context.Context, eventType model.HoldEventType, hold *model.SlotHold) {
	event := model.NewHoldEvent(uuid.NewString(), eventType, hold, s.now())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("Failed to publish hold event",
			"event_type", eventType,
			"hold_id", hold.ID,
			"doctor_id", hold.DoctorID,
			"error", err,
		)
	}
}

// logFailure logs business rejections at warn and everything else at error.
func (s *schedulingService) logFailure(msg string, err error, args ...any) {
	args = append(args, "error", err)
	if isBusinessRejection(err) {
		s.log.Warn(msg, args...)
		return
	}
	s.log.Error(msg, args...)
}

func (s *schedulingService) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Millisecond)
}
