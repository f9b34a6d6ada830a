package model

import "time"

type HoldStatus string

const (
	HoldStatusHeld      HoldStatus = "HELD"
	HoldStatusConfirmed HoldStatus = "CONFIRMED"
	HoldStatusReleased  HoldStatus = "RELEASED"
)

// Blocking reports whether a hold in this status occupies its time range.
func (s HoldStatus) Blocking() bool {
	return s == HoldStatusHeld || s == HoldStatusConfirmed
}

func (s HoldStatus) CanTransitionTo(next HoldStatus) bool {
	switch s {
	case HoldStatusHeld:
		return next == HoldStatusConfirmed || next == HoldStatusReleased
	case HoldStatusConfirmed:
		return next == HoldStatusReleased
	default:
		return false
	}
}

// SlotHold is a claim on [SlotStart, SlotEnd) for one doctor.
// ExpiresAt is only meaningful while the hold is HELD.
type SlotHold struct {
	ID        string     `json:"id" bson:"_id,omitempty"`
	DoctorID  int64      `json:"doctor_id" bson:"doctor_id"`
	SlotStart time.Time  `json:"slot_start" bson:"slot_start"`
	SlotEnd   time.Time  `json:"slot_end" bson:"slot_end"`
	BookingID *int64     `json:"booking_id" bson:"booking_id"`
	Status    HoldStatus `json:"status" bson:"status"`
	ExpiresAt time.Time  `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	Revision  int64      `json:"revision" bson:"revision"`
}

func (h *SlotHold) Overlaps(start, end time.Time) bool {
	return h.SlotStart.Before(end) && start.Before(h.SlotEnd)
}

func (h *SlotHold) IsExpired(now time.Time) bool {
	return h.Status == HoldStatusHeld && h.ExpiresAt.Before(now)
}

func (h *SlotHold) Clone() *SlotHold {
	c := *h
	if h.BookingID != nil {
		id := *h.BookingID
		c.BookingID = &id
	}
	return &c
}
