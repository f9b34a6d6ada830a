package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"clinicslots/pkg/model"
)

// SchedulingClient calls the slot scheduling HTTP API
type SchedulingClient struct {
	httpClient *HttpClient
}

func NewSchedulingClient(baseUrl string) *SchedulingClient {
	return &SchedulingClient{
		httpClient: NewHttpClient(baseUrl),
	}
}

// WithHTTPClient swaps the transport, e.g. for an httptest server
func (c *SchedulingClient) WithHTTPClient(hc *http.Client) *SchedulingClient {
	c.httpClient.HTTPClient = hc
	return c
}

func doctorPath(doctorID int64) string {
	return fmt.Sprintf("/api/v1/doctors/%d", doctorID)
}

func holdPath(doctorID int64, holdID string) string {
	return doctorPath(doctorID) + "/reserve/" + url.PathEscape(holdID)
}

func (c *SchedulingClient) CheckAvailability(ctx context.Context, doctorID int64, start, end time.Time) (bool, error) {
	resp, err := c.httpClient.POST(ctx, doctorPath(doctorID)+"/availability", model.AvailabilityRequest{
		SlotStart: &start,
		SlotEnd:   &end,
	})
	if err != nil {
		return false, err
	}

	var out model.AvailabilityResponse
	if err := expect(resp, http.StatusOK, &out); err != nil {
		return false, err
	}
	return out.Available, nil
}

// Reserve places a hold. ttl of zero uses the server default.
func (c *SchedulingClient) Reserve(ctx context.Context, doctorID int64, start, end time.Time, ttl time.Duration) (*model.ReserveResponse, error) {
	req := model.ReserveRequest{SlotStart: &start, SlotEnd: &end}
	if ttl > 0 {
		minutes := int(ttl / time.Minute)
		req.TTLMinutes = &minutes
	}

	resp, err := c.httpClient.POST(ctx, doctorPath(doctorID)+"/reserve", req)
	if err != nil {
		return nil, err
	}

	var out model.ReserveResponse
	if err := expect(resp, http.StatusCreated, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SchedulingClient) Confirm(ctx context.Context, doctorID int64, holdID string, bookingID int64) (*model.SlotHold, error) {
	resp, err := c.httpClient.POST(ctx, holdPath(doctorID, holdID)+"/confirm", model.ConfirmRequest{BookingID: bookingID})
	if err != nil {
		return nil, err
	}

	var out model.SlotHold
	if err := expect(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SchedulingClient) Release(ctx context.Context, doctorID int64, holdID string) (*model.SlotHold, error) {
	resp, err := c.httpClient.POST(ctx, holdPath(doctorID, holdID)+"/release", nil)
	if err != nil {
		return nil, err
	}

	var out model.SlotHold
	if err := expect(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *SchedulingClient) GetHold(ctx context.Context, doctorID int64, holdID string) (*model.SlotHold, error) {
	resp, err := c.httpClient.GET(ctx, fmt.Sprintf("%s/holds/%s", doctorPath(doctorID), url.PathEscape(holdID)))
	if err != nil {
		return nil, err
	}

	var out model.SlotHold
	if err := expect(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
