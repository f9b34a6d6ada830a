package model

import "time"

type AvailabilityRequest struct {
	SlotStart *time.Time `json:"slot_start"`
	SlotEnd   *time.Time `json:"slot_end"`
	PatientID *int64     `json:"patient_id,omitempty" validate:"omitempty,gt=0"`
	BookingID *int64     `json:"booking_id,omitempty" validate:"omitempty,gt=0"`
}

type AvailabilityResponse struct {
	Available bool `json:"available"`
}

type ReserveRequest struct {
	SlotStart  *time.Time `json:"slot_start"`
	SlotEnd    *time.Time `json:"slot_end"`
	TTLMinutes *int       `json:"ttl_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
}

type ReserveResponse struct {
	HoldID    string    `json:"hold_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ConfirmRequest struct {
	BookingID int64 `json:"booking_id" validate:"required,gt=0"`
}
