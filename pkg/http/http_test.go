package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "clinicslots/pkg/errors"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		message   string
		retryable bool
	}{
		{"invalid input", apperrors.InvalidInput("slot too soon"), http.StatusBadRequest, apperrors.CodeInvalidInput, "slot too soon", false},
		{"validation", apperrors.Validation("Request validation failed", nil), http.StatusUnprocessableEntity, apperrors.CodeValidation, "Request validation failed", false},
		{"not found", apperrors.NotFound("hold"), http.StatusNotFound, apperrors.CodeNotFound, "hold not found", false},
		{"conflict", apperrors.Conflict("slot not available"), http.StatusConflict, apperrors.CodeConflict, "slot not available", false},
		{"retryable conflict", apperrors.Conflict("concurrent update detected").AsRetryable(), http.StatusConflict, apperrors.CodeConflict, "concurrent update detected", true},
		{"timeout", apperrors.Timeout("exclusive section wait timed out"), http.StatusGatewayTimeout, apperrors.CodeTimeout, "exclusive section wait timed out", true},
		{"plain error", errors.New("db exploded"), http.StatusInternalServerError, apperrors.CodeInternal, "Internal server error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteError(rec, tt.err))

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Error)
			assert.Equal(t, tt.retryable, body.Retryable)
		})
	}
}

func TestPathInt64(t *testing.T) {
	ps := httprouter.Params{{Key: "id", Value: "42"}, {Key: "bad", Value: "x"}, {Key: "neg", Value: "-1"}}

	v, err := PathInt64(ps, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	for _, name := range []string{"bad", "neg", "missing"} {
		_, err := PathInt64(ps, name)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), name)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		BookingID int64 `json:"booking_id"`
	}

	t.Run("valid", func(t *testing.T) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"booking_id":7}`))
		require.NoError(t, DecodeJSON(r, &p, false))
		assert.Equal(t, int64(7), p.BookingID)
	})

	t.Run("empty allowed", func(t *testing.T) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		require.NoError(t, DecodeJSON(r, &p, true))
	})

	t.Run("empty required", func(t *testing.T) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		assert.True(t, apperrors.HasCode(DecodeJSON(r, &p, false), apperrors.CodeInvalidInput))
	})

	t.Run("unknown field", func(t *testing.T) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nope":1}`))
		assert.True(t, apperrors.HasCode(DecodeJSON(r, &p, false), apperrors.CodeInvalidInput))
	})

	t.Run("malformed", func(t *testing.T) {
		var p payload
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		assert.True(t, apperrors.HasCode(DecodeJSON(r, &p, false), apperrors.CodeInvalidInput))
	})
}
