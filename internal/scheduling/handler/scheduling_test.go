package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clinicslots/internal/scheduling/events"
	"clinicslots/internal/scheduling/repository/memory"
	"clinicslots/internal/scheduling/service"
	"clinicslots/internal/scheduling/validator"
	"clinicslots/pkg/app"
	"clinicslots/pkg/client"
	"clinicslots/pkg/clock"
	"clinicslots/pkg/config"
	apperrors "clinicslots/pkg/errors"
	"clinicslots/pkg/logger"
	"clinicslots/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doctorID int64 = 3

var testNow = time.Date(2030, 3, 4, 6, 0, 0, 0, time.UTC)

type testServer struct {
	client *client.SchedulingClient
	http   *client.HttpClient
	store  *memory.Store
	events *events.RecordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()

	cfg := &config.Config{
		Port:             "0",
		RateLimitRPS:     1000,
		RateLimitBurst:   1000,
		RequestTimeout:   5 * time.Second,
		IdempotencyTTL:   time.Minute,
		IdempotencyStore: config.IdempotencyMemory,
		MaxRequestSize:   64 * 1024,
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		IdleTimeout:      5 * time.Second,
		ShutdownTimeout:  time.Second,
		Log:              log,
		Client:           client.NewClient(),
	}

	store := memory.NewStore(time.Second)
	pub := &events.RecordingPublisher{}
	svc := service.NewSchedulingService(
		store,
		validator.NewSchedulingValidator(log),
		pub,
		clock.NewFixed(testNow),
		service.DefaultParams(),
		log,
	)

	a := app.NewApplication(cfg)
	a.SetApp(NewHealthHandler(store, log), NewSchedulingHandler(svc, log))

	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	raw := client.NewHttpClient(srv.URL)
	raw.HTTPClient = srv.Client()

	return &testServer{
		client: client.NewSchedulingClient(srv.URL).WithHTTPClient(srv.Client()),
		http:   raw,
		store:  store,
		events: pub,
	}
}

func slot(hh, mm int) (time.Time, time.Time) {
	start := time.Date(2030, 3, 4, hh, mm, 0, 0, time.UTC)
	return start, start.Add(30 * time.Minute)
}

func requireAPIError(t *testing.T, err error, status int, code, message string) *client.APIError {
	t.Helper()
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	assert.Equal(t, status, apiErr.StatusCode)
	assert.Equal(t, code, apiErr.Code)
	if message != "" {
		assert.Equal(t, message, apiErr.Message)
	}
	return apiErr
}

func TestHoldLifecycle(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	start, end := slot(10, 0)

	available, err := ts.client.CheckAvailability(ctx, doctorID, start, end)
	require.NoError(t, err)
	assert.True(t, available)

	reserved, err := ts.client.Reserve(ctx, doctorID, start, end, 0)
	require.NoError(t, err)
	require.NotEmpty(t, reserved.HoldID)
	assert.True(t, reserved.ExpiresAt.Equal(testNow.Add(10*time.Minute)))

	available, err = ts.client.CheckAvailability(ctx, doctorID, start, end)
	require.NoError(t, err)
	assert.False(t, available)

	hold, err := ts.client.GetHold(ctx, doctorID, reserved.HoldID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldStatusHeld, hold.Status)

	confirmed, err := ts.client.Confirm(ctx, doctorID, reserved.HoldID, 99)
	require.NoError(t, err)
	assert.Equal(t, model.HoldStatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.BookingID)
	assert.Equal(t, int64(99), *confirmed.BookingID)

	released, err := ts.client.Release(ctx, doctorID, reserved.HoldID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldStatusReleased, released.Status)

	assert.Equal(t, []model.HoldEventType{
		model.HoldEventReserved,
		model.HoldEventConfirmed,
		model.HoldEventReleased,
	}, ts.events.Types())
}

func TestReserve_Errors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	t.Run("overlap is 409", func(t *testing.T) {
		start, end := slot(11, 0)
		_, err := ts.client.Reserve(ctx, doctorID, start, end, 0)
		require.NoError(t, err)

		_, err = ts.client.Reserve(ctx, doctorID, start, end, 0)
		requireAPIError(t, err, http.StatusConflict, apperrors.CodeConflict, "slot not available")
	})

	t.Run("misaligned is 400", func(t *testing.T) {
		start, _ := slot(12, 15)
		_, err := ts.client.Reserve(ctx, doctorID, start, start.Add(30*time.Minute), 0)
		requireAPIError(t, err, http.StatusBadRequest, apperrors.CodeInvalidInput, "slot not aligned to grid")
	})

	t.Run("too soon is 400", func(t *testing.T) {
		start, end := slot(7, 0)
		_, err := ts.client.Reserve(ctx, doctorID, start, end, 0)
		requireAPIError(t, err, http.StatusBadRequest, apperrors.CodeInvalidInput, "slot too soon")
	})

	t.Run("ttl out of range is 422", func(t *testing.T) {
		start, end := slot(13, 0)
		_, err := ts.client.Reserve(ctx, doctorID, start, end, 2000*time.Minute)
		requireAPIError(t, err, http.StatusUnprocessableEntity, apperrors.CodeValidation, "")
	})

	t.Run("missing slot is 400", func(t *testing.T) {
		resp, err := ts.http.POST(ctx, "/api/v1/doctors/3/reserve", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "slot start and slot end are required", client.GetErrorMessage(resp))
	})

	t.Run("bad doctor id is 400", func(t *testing.T) {
		resp, err := ts.http.POST(ctx, "/api/v1/doctors/abc/reserve", map[string]any{})
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed json is 400", func(t *testing.T) {
		resp, err := ts.http.POSTRaw(ctx, "/api/v1/doctors/3/reserve", []byte(`{"slot_start":`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestReserve_DailyCapacity(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.store.SetCapacity(doctorID, "2030-03-04", 1)

	start, end := slot(14, 0)
	first, err := ts.client.Reserve(ctx, doctorID, start, end, 0)
	require.NoError(t, err)
	_, err = ts.client.Confirm(ctx, doctorID, first.HoldID, 42)
	require.NoError(t, err)

	start, end = slot(14, 30)
	_, err = ts.client.Reserve(ctx, doctorID, start, end, 0)
	requireAPIError(t, err, http.StatusConflict, apperrors.CodeConflict, "daily capacity reached")
}

func TestConfirm_Errors(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	start, end := slot(15, 0)

	reserved, err := ts.client.Reserve(ctx, doctorID, start, end, 0)
	require.NoError(t, err)

	t.Run("unknown hold is 404", func(t *testing.T) {
		_, err := ts.client.Confirm(ctx, doctorID, "does-not-exist", 1)
		requireAPIError(t, err, http.StatusNotFound, apperrors.CodeNotFound, "hold not found")
	})

	t.Run("other doctor is 400", func(t *testing.T) {
		_, err := ts.client.Confirm(ctx, doctorID+1, reserved.HoldID, 1)
		requireAPIError(t, err, http.StatusBadRequest, apperrors.CodeInvalidInput, "doctor mismatch")
	})

	t.Run("missing booking id is 422", func(t *testing.T) {
		_, err := ts.client.Confirm(ctx, doctorID, reserved.HoldID, 0)
		requireAPIError(t, err, http.StatusUnprocessableEntity, apperrors.CodeValidation, "")
	})

	t.Run("second booking is 409", func(t *testing.T) {
		_, err := ts.client.Confirm(ctx, doctorID, reserved.HoldID, 5)
		require.NoError(t, err)

		_, err = ts.client.Confirm(ctx, doctorID, reserved.HoldID, 6)
		requireAPIError(t, err, http.StatusConflict, apperrors.CodeConflict, "hold already confirmed for another booking")
	})

	t.Run("same booking is idempotent", func(t *testing.T) {
		hold, err := ts.client.Confirm(ctx, doctorID, reserved.HoldID, 5)
		require.NoError(t, err)
		assert.Equal(t, model.HoldStatusConfirmed, hold.Status)
	})
}

func TestRelease_UnknownHold(t *testing.T) {
	ts := newTestServer(t)
	_, err := ts.client.Release(context.Background(), doctorID, "nope")
	requireAPIError(t, err, http.StatusNotFound, apperrors.CodeNotFound, "hold not found")
}

func TestIdempotentReserve(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	start, end := slot(16, 0)
	body := model.ReserveRequest{SlotStart: &start, SlotEnd: &end}
	headers := map[string]string{"Idempotency-Key": "reserve-16"}

	first, err := ts.http.POSTWithHeaders(ctx, "/api/v1/doctors/3/reserve", body, headers)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, first.StatusCode)

	second, err := ts.http.POSTWithHeaders(ctx, "/api/v1/doctors/3/reserve", body, headers)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, second.StatusCode)
	assert.Equal(t, string(first.Body), string(second.Body))
	assert.Len(t, ts.store.AllHolds(), 1)
}

func TestContentTypeEnforced(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodPost, ts.http.BaseURL+"/api/v1/doctors/3/reserve", strings.NewReader(`{}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := ts.http.HTTPClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	for _, path := range []string{"/health", "/ready"} {
		resp, err := ts.http.GET(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
