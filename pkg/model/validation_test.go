package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHoldStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     HoldStatus
		to       HoldStatus
		expected bool
	}{
		{HoldStatusHeld, HoldStatusConfirmed, true},
		{HoldStatusHeld, HoldStatusReleased, true},
		{HoldStatusHeld, HoldStatusHeld, false},
		{HoldStatusConfirmed, HoldStatusReleased, true},
		{HoldStatusConfirmed, HoldStatusHeld, false},
		{HoldStatusConfirmed, HoldStatusConfirmed, false},
		{HoldStatusReleased, HoldStatusHeld, false},
		{HoldStatusReleased, HoldStatusConfirmed, false},
		{HoldStatusReleased, HoldStatusReleased, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestHoldStatus_Blocking(t *testing.T) {
	assert.True(t, HoldStatusHeld.Blocking())
	assert.True(t, HoldStatusConfirmed.Blocking())
	assert.False(t, HoldStatusReleased.Blocking())
}

func TestSlotHold_Overlaps(t *testing.T) {
	base := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	hold := &SlotHold{SlotStart: base, SlotEnd: base.Add(30 * time.Minute)}

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		expected bool
	}{
		{"identical", base, base.Add(30 * time.Minute), true},
		{"partial overlap", base.Add(15 * time.Minute), base.Add(45 * time.Minute), true},
		{"contains", base.Add(-30 * time.Minute), base.Add(time.Hour), true},
		{"adjacent after", base.Add(30 * time.Minute), base.Add(time.Hour), false},
		{"adjacent before", base.Add(-30 * time.Minute), base, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hold.Overlaps(tt.start, tt.end))
		})
	}
}

func TestSlotHold_CloneCopiesBookingID(t *testing.T) {
	id := int64(55)
	hold := &SlotHold{ID: "h1", BookingID: &id}

	clone := hold.Clone()
	*clone.BookingID = 56

	assert.Equal(t, int64(55), *hold.BookingID)
}

func TestDayOf_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	instant := time.Date(2030, 1, 8, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, "2030-01-08", DayOf(instant, time.UTC))
	assert.Equal(t, "2030-01-07", DayOf(instant, loc))
}

func TestDailyCapacity_IsFull(t *testing.T) {
	assert.False(t, (&DailyCapacity{Capacity: 20, BookedCount: 19}).IsFull())
	assert.True(t, (&DailyCapacity{Capacity: 20, BookedCount: 20}).IsFull())
}
