package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotwise/libs/httpx"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/identity"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

// BookingService is the booking API the handlers drive.
type BookingService interface {
	Slots(ctx context.Context, businessID, serviceID, date string) (booking.SlotsResult, error)
	Book(ctx context.Context, actor model.Actor, in booking.BookInput) (model.Appointment, error)
	Confirm(ctx context.Context, actor model.Actor, appointmentID string) (model.Appointment, error)
	Cancel(ctx context.Context, actor model.Actor, appointmentID, reason string) (model.Appointment, error)
	Complete(ctx context.Context, actor model.Actor, appointmentID string) (model.Appointment, error)
	Get(ctx context.Context, actor model.Actor, appointmentID string) (model.Appointment, error)
	List(ctx context.Context, actor model.Actor, limit int) ([]model.Appointment, error)
	Propose(ctx context.Context, actor model.Actor, in booking.ProposeInput) (model.RescheduleRequest, error)
	Accept(ctx context.Context, actor model.Actor, requestID string) (model.Appointment, error)
	Reject(ctx context.Context, actor model.Actor, requestID string) (model.Appointment, error)
	History(ctx context.Context, actor model.Actor, appointmentID string) ([]model.RescheduleRequest, error)
}

type BookingHandler struct {
	svc    BookingService
	logger *slog.Logger
}

func NewBookingHandler(svc BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

// Register mounts the booking routes. public wraps the unauthenticated
// endpoints (rate limiting); nil leaves them bare.
func (h *BookingHandler) Register(mux *http.ServeMux, authn identity.Authenticator, public httpx.Middleware) {
	wrapPublic := func(next http.Handler) http.Handler {
		if public == nil {
			return next
		}
		return public(next)
	}
	authed := func(fn http.HandlerFunc) http.Handler { return authn.Require(fn) }

	mux.Handle("/api/v1/public/slots", wrapPublic(http.HandlerFunc(h.Slots)))
	mux.Handle("/api/v1/public/book", wrapPublic(authed(h.Book)))
	mux.Handle("/api/v1/appointments", authed(h.List))
	mux.Handle("/api/v1/appointments/get", authed(h.Get))
	mux.Handle("/api/v1/appointments/confirm", authed(h.Confirm))
	mux.Handle("/api/v1/appointments/cancel", authed(h.Cancel))
	mux.Handle("/api/v1/appointments/complete", authed(h.Complete))
	mux.Handle("/api/v1/appointments/reschedule", authed(h.Propose))
	mux.Handle("/api/v1/appointments/reschedule-requests", authed(h.History))
	mux.Handle("/api/v1/reschedule-requests/accept", authed(h.Accept))
	mux.Handle("/api/v1/reschedule-requests/reject", authed(h.Reject))
}

type bookRequest struct {
	BusinessID string `json:"business_id"`
	ServiceID  string `json:"service_id"`
	StartTime  string `json:"start_time"`
}

type appointmentAction struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason,omitempty"`
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	businessID := strings.TrimSpace(q.Get("business_id"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	date := strings.TrimSpace(q.Get("date"))
	if businessID == "" || serviceID == "" || date == "" {
		httpx.WriteError(w, http.StatusBadRequest, "business_id, service_id and date are required")
		return
	}
	availableOnly, _ := strconv.ParseBool(q.Get("available_only"))

	res, err := h.svc.Slots(r.Context(), businessID, serviceID, date)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSlots(res, availableOnly))
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	actor, _ := identity.ActorFromContext(r.Context())

	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid start_time")
		return
	}

	appt, err := h.svc.Book(r.Context(), actor, booking.BookInput{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		Start:      start,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAppointment(appt))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	actor, _ := identity.ActorFromContext(r.Context())

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	appts, err := h.svc.List(r.Context(), actor, limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointment(a))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	actor, _ := identity.ActorFromContext(r.Context())

	appt, err := h.svc.Get(r.Context(), actor, strings.TrimSpace(r.URL.Query().Get("appointment_id")))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointment(appt))
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.appointmentAction(w, r, func(ctx context.Context, actor model.Actor, req appointmentAction) (model.Appointment, error) {
		return h.svc.Confirm(ctx, actor, req.AppointmentID)
	})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.appointmentAction(w, r, func(ctx context.Context, actor model.Actor, req appointmentAction) (model.Appointment, error) {
		return h.svc.Cancel(ctx, actor, req.AppointmentID, req.Reason)
	})
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.appointmentAction(w, r, func(ctx context.Context, actor model.Actor, req appointmentAction) (model.Appointment, error) {
		return h.svc.Complete(ctx, actor, req.AppointmentID)
	})
}

func (h *BookingHandler) appointmentAction(w http.ResponseWriter, r *http.Request,
	do func(ctx context.Context, actor model.Actor, req appointmentAction) (model.Appointment, error)) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	actor, _ := identity.ActorFromContext(r.Context())

	var req appointmentAction
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	appt, err := do(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointment(appt))
}
