package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotwise/libs/httpx"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/identity"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

type proposeRequest struct {
	AppointmentID string `json:"appointment_id"`
	StartTime     string `json:"start_time"`
	Justification string `json:"justification"`
}

type resolveRequest struct {
	RequestID string `json:"request_id"`
}

// resolveResponse carries the appointment after the decision.
type resolveResponse struct {
	RequestID   string              `json:"request_id"`
	Status      string              `json:"status"`
	Appointment appointmentResponse `json:"appointment"`
}

func (h *BookingHandler) Propose(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	actor, _ := identity.ActorFromContext(r.Context())

	var req proposeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid start_time")
		return
	}

	out, err := h.svc.Propose(r.Context(), actor, booking.ProposeInput{
		AppointmentID: req.AppointmentID,
		Start:         start,
		Justification: req.Justification,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toReschedule(out))
}

func (h *BookingHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, model.RequestAccepted)
}

func (h *BookingHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, model.RequestRejected)
}

func (h *BookingHandler) resolve(w http.ResponseWriter, r *http.Request, decision model.RequestStatus) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	actor, _ := identity.ActorFromContext(r.Context())

	var req resolveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	resolve := h.svc.Reject
	if decision == model.RequestAccepted {
		resolve = h.svc.Accept
	}
	appt, err := resolve(r.Context(), actor, req.RequestID)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, resolveResponse{
		RequestID:   strings.TrimSpace(req.RequestID),
		Status:      string(decision),
		Appointment: toAppointment(appt),
	})
}

func (h *BookingHandler) History(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	actor, _ := identity.ActorFromContext(r.Context())

	reqs, err := h.svc.History(r.Context(), actor, strings.TrimSpace(r.URL.Query().Get("appointment_id")))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	items := make([]rescheduleResponse, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, toReschedule(req))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}
