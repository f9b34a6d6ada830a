package handler

import (
	"net/http"

	"clinicslots/internal/scheduling/service"
	httputil "clinicslots/pkg/http"
	"clinicslots/pkg/logger"
	"clinicslots/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	doctorIDParam = "id"
	holdIDParam   = "holdId"
)

type SchedulingHandler struct {
	service service.SchedulingService
	log     *logger.Logger
}

func NewSchedulingHandler(service service.SchedulingService, log *logger.Logger) *SchedulingHandler {
	return &SchedulingHandler{
		service: service,
		log:     log,
	}
}

func (h *SchedulingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/doctors/:id/availability", h.CheckAvailability)
	router.POST("/api/v1/doctors/:id/reserve", h.Reserve)
	router.POST("/api/v1/doctors/:id/reserve/:holdId/confirm", h.Confirm)
	router.POST("/api/v1/doctors/:id/reserve/:holdId/release", h.Release)
	router.GET("/api/v1/doctors/:id/holds/:holdId", h.GetHold)
}

func (h *SchedulingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID, err := httputil.PathInt64(ps, doctorIDParam)
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	var req model.AvailabilityRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	available, err := h.service.IsAvailable(r.Context(), doctorID, &req)
	if err != nil {
		h.writeError(w, "CheckAvailability", err)
		return
	}

	if err := httputil.WriteSuccess(w, model.AvailabilityResponse{Available: available}); err != nil {
		h.log.Error("failed to write success response", "handler", "CheckAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SchedulingHandler) Reserve(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID, err := httputil.PathInt64(ps, doctorIDParam)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	var req model.ReserveRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	resp, err := h.service.Reserve(r.Context(), doctorID, &req)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	if err := httputil.WriteCreated(w, resp); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "operation", "WriteCreated", "error", err)
	}
}

func (h *SchedulingHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID, holdID, err := holdParams(ps)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	var req model.ConfirmRequest
	if err := httputil.DecodeJSON(r, &req, false); err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	hold, err := h.service.Confirm(r.Context(), doctorID, holdID, req.BookingID)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteSuccess(w, hold); err != nil {
		h.log.Error("failed to write success response", "handler", "Confirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SchedulingHandler) Release(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID, holdID, err := holdParams(ps)
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	hold, err := h.service.Release(r.Context(), doctorID, holdID)
	if err != nil {
		h.writeError(w, "Release", err)
		return
	}

	if err := httputil.WriteSuccess(w, hold); err != nil {
		h.log.Error("failed to write success response", "handler", "Release", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SchedulingHandler) GetHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID, holdID, err := holdParams(ps)
	if err != nil {
		h.writeError(w, "GetHold", err)
		return
	}

	hold, err := h.service.GetHold(r.Context(), doctorID, holdID)
	if err != nil {
		h.writeError(w, "GetHold", err)
		return
	}

	if err := httputil.WriteSuccess(w, hold); err != nil {
		h.log.Error("failed to write success response", "handler", "GetHold", "operation", "WriteSuccess", "error", err)
	}
}

func holdParams(ps httprouter.Params) (int64, string, error) {
	doctorID, err := httputil.PathInt64(ps, doctorIDParam)
	if err != nil {
		return 0, "", err
	}
	holdID, err := httputil.PathString(ps, holdIDParam)
	if err != nil {
		return 0, "", err
	}
	return doctorID, holdID, nil
}

func (h *SchedulingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
