package validator

import (
	"errors"
	"testing"
	"time"

	"clinicslots/pkg/logger"
	"clinicslots/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestValidate_ReserveRequest(t *testing.T) {
	v := NewSchedulingValidator(logger.Discard())
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	tests := []struct {
		name      string
		req       *model.ReserveRequest
		wantField string
	}{
		{"default ttl", &model.ReserveRequest{SlotStart: &start, SlotEnd: &end}, ""},
		{"ttl lower bound", &model.ReserveRequest{SlotStart: &start, SlotEnd: &end, TTLMinutes: intPtr(1)}, ""},
		{"ttl upper bound", &model.ReserveRequest{SlotStart: &start, SlotEnd: &end, TTLMinutes: intPtr(1440)}, ""},
		{"ttl above a day", &model.ReserveRequest{SlotStart: &start, SlotEnd: &end, TTLMinutes: intPtr(1441)}, "ttl_minutes"},
		{"negative ttl", &model.ReserveRequest{SlotStart: &start, SlotEnd: &end, TTLMinutes: intPtr(-5)}, "ttl_minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.wantField, verrs[0].Field)
			assert.Contains(t, verrs.Details(), tt.wantField)
		})
	}
}

func TestValidate_ConfirmRequest(t *testing.T) {
	v := NewSchedulingValidator(logger.Discard())

	assert.NoError(t, v.Validate(&model.ConfirmRequest{BookingID: 55}))

	err := v.Validate(&model.ConfirmRequest{})
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "booking_id is required", verrs[0].Message)

	err = v.Validate(&model.ConfirmRequest{BookingID: -1})
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "booking_id", verrs[0].Field)
}

func TestValidate_AvailabilityRequestOptionalIDs(t *testing.T) {
	v := NewSchedulingValidator(logger.Discard())

	assert.NoError(t, v.Validate(&model.AvailabilityRequest{}))
	assert.NoError(t, v.Validate(&model.AvailabilityRequest{PatientID: int64Ptr(3), BookingID: int64Ptr(4)}))
	assert.Error(t, v.Validate(&model.AvailabilityRequest{PatientID: int64Ptr(0)}))
}
