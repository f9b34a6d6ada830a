package model

import "time"

type HoldEventType string

const (
	HoldEventReserved  HoldEventType = "slot_hold.reserved"
	HoldEventConfirmed HoldEventType = "slot_hold.confirmed"
	HoldEventReleased  HoldEventType = "slot_hold.released"
	HoldEventExpired   HoldEventType = "slot_hold.expired"
)

// HoldEvent is emitted after a hold transition has been committed.
type HoldEvent struct {
	EventID    string        `json:"event_id"`
	Type       HoldEventType `json:"type"`
	HoldID     string        `json:"hold_id"`
	DoctorID   int64         `json:"doctor_id"`
	SlotStart  time.Time     `json:"slot_start"`
	SlotEnd    time.Time     `json:"slot_end"`
	Status     HoldStatus    `json:"status"`
	BookingID  *int64        `json:"booking_id,omitempty"`
	ExpiresAt  time.Time     `json:"expires_at"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func NewHoldEvent(eventID string, eventType HoldEventType, hold *SlotHold, at time.Time) *HoldEvent {
	return &HoldEvent{
		EventID:    eventID,
		Type:       eventType,
		HoldID:     hold.ID,
		DoctorID:   hold.DoctorID,
		SlotStart:  hold.SlotStart,
		SlotEnd:    hold.SlotEnd,
		Status:     hold.Status,
		BookingID:  hold.BookingID,
		ExpiresAt:  hold.ExpiresAt,
		OccurredAt: at,
	}
}
