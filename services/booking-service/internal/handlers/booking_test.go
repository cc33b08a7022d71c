package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotwise/libs/httpx"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/identity"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/storage/memstore"
)

type caller struct {
	id, role, business string
}

var (
	client   = caller{id: "client-1", role: "client"}
	merchant = caller{id: "merchant-1", role: "merchant", business: "biz-1"}
)

func newServer(t *testing.T) http.Handler {
	t.Helper()
	cal, err := calendar.FromNames(time.UTC, map[string][2]string{"monday": {"09:00", "17:00"}})
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	profiles := memstore.NewProfiles()
	profiles.SetWorkingHours("biz-1", cal)
	profiles.SetService("biz-1", "svc-1", 60)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := booking.NewService(memstore.New(), profiles, booking.WithClock(func() time.Time { return now }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := http.NewServeMux()
	NewBookingHandler(svc, logger).Register(mux, identity.Authenticator{TrustHeaders: true}, nil)
	return mux
}

func do(t *testing.T, h http.Handler, method, target string, who *caller, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, target, rdr)
	if who != nil {
		r.Header.Set(identity.HeaderUserID, who.id)
		r.Header.Set(identity.HeaderRole, who.role)
		r.Header.Set(identity.HeaderBusinessID, who.business)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestSlotsEndpoint(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/public/slots?business_id=biz-1&service_id=svc-1&date=2026-03-02", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[slotsResponse](t, rec)
	if len(res.Slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(res.Slots))
	}
	if res.Slots[0].Time != "09:00" || res.Slots[0].Status != "available" {
		t.Fatalf("unexpected first slot %+v", res.Slots[0])
	}

	rec = do(t, h, http.MethodGet, "/api/v1/public/slots?business_id=biz-1&service_id=svc-1&date=03/02/2026", nil, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad date, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/public/slots?business_id=biz-1&service_id=nope&date=2026-03-02", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown service, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/v1/public/slots", nil, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestBookAndSlotOccupied(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/public/book", nil, bookRequest{BusinessID: "biz-1", ServiceID: "svc-1", StartTime: "2026-03-02T10:00:00Z"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/public/book", &client, bookRequest{BusinessID: "biz-1", ServiceID: "svc-1", StartTime: "2026-03-02T10:00:00Z"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	appt := decode[appointmentResponse](t, rec)
	if appt.Status != "pending" || appt.EndTime != "2026-03-02T11:00:00Z" {
		t.Fatalf("unexpected appointment %+v", appt)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/public/book", &client, bookRequest{BusinessID: "biz-1", ServiceID: "svc-1", StartTime: "2026-03-02T10:00:00Z"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a taken slot, got %d", rec.Code)
	}
	body := decode[httpx.ErrorBody](t, rec)
	if body.Error != "this time is no longer available" || body.Code != "invalid_slot" {
		t.Fatalf("unexpected error body %+v", body)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/public/slots?business_id=biz-1&service_id=svc-1&date=2026-03-02&available_only=true", nil, nil)
	res := decode[slotsResponse](t, rec)
	for _, s := range res.Slots {
		if s.Time == "10:00" {
			t.Fatal("booked slot listed as available")
		}
	}
	if len(res.Slots) != 7 {
		t.Fatalf("expected 7 available slots, got %d", len(res.Slots))
	}
}

func TestBookRejectsBadInput(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/public/book", &client, map[string]string{"business_id": "biz-1", "service_id": "svc-1", "start_time": "tomorrow"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad start_time, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/v1/public/book", &client, map[string]string{"unknown": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown fields, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodPost, "/api/v1/public/book", &merchant, bookRequest{BusinessID: "biz-1", ServiceID: "svc-1", StartTime: "2026-03-02T10:00:00Z"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a merchant booking, got %d", rec.Code)
	}
}

func TestRescheduleNegotiationOverHTTP(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/public/book", &client, bookRequest{BusinessID: "biz-1", ServiceID: "svc-1", StartTime: "2026-03-02T10:00:00Z"})
	appt := decode[appointmentResponse](t, rec)

	rec = do(t, h, http.MethodPost, "/api/v1/appointments/confirm", &merchant, appointmentAction{AppointmentID: appt.AppointmentID})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodPost, "/api/v1/appointments/reschedule", &client, proposeRequest{
		AppointmentID: appt.AppointmentID, StartTime: "2026-03-02T14:00:00Z", Justification: "running late",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("propose: %d %s", rec.Code, rec.Body.String())
	}
	req := decode[rescheduleResponse](t, rec)
	if req.Status != "pending" || req.RequestedByRole != "client" {
		t.Fatalf("unexpected request %+v", req)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/appointments/get?appointment_id="+appt.AppointmentID, &client, nil)
	if got := decode[appointmentResponse](t, rec); got.Status != "rescheduled" {
		t.Fatalf("expected display status rescheduled, got %q", got.Status)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/appointments/reschedule", &merchant, proposeRequest{
		AppointmentID: appt.AppointmentID, StartTime: "2026-03-02T15:00:00Z",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a second proposal, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/reschedule-requests/accept", &client, resolveRequest{RequestID: req.RequestID})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 when the proposer accepts, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/reschedule-requests/accept", &merchant, resolveRequest{RequestID: req.RequestID})
	if rec.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", rec.Code, rec.Body.String())
	}
	res := decode[resolveResponse](t, rec)
	if res.Status != "accepted" || res.Appointment.Status != "confirmed" || res.Appointment.StartTime != "2026-03-02T14:00:00Z" {
		t.Fatalf("unexpected accept response %+v", res)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/reschedule-requests/reject", &merchant, resolveRequest{RequestID: req.RequestID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a resolved request, got %d", rec.Code)
	}
	if body := decode[httpx.ErrorBody](t, rec); body.Code != "already_resolved" {
		t.Fatalf("unexpected code %q", body.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/appointments/reschedule-requests?appointment_id="+appt.AppointmentID, &merchant, nil)
	history := decode[[]rescheduleResponse](t, rec)
	if len(history) != 1 || history[0].Status != "accepted" || history[0].ResolvedBy != "merchant-1" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestCancelAndList(t *testing.T) {
	h := newServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/public/book", &client, bookRequest{BusinessID: "biz-1", ServiceID: "svc-1", StartTime: "2026-03-02T09:00:00Z"})
	appt := decode[appointmentResponse](t, rec)

	rec = do(t, h, http.MethodPost, "/api/v1/appointments/cancel", &client, appointmentAction{AppointmentID: appt.AppointmentID, Reason: "sick"})
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel: %d %s", rec.Code, rec.Body.String())
	}
	if got := decode[appointmentResponse](t, rec); got.Status != "cancelled" || got.CancelReason != "sick" {
		t.Fatalf("unexpected cancel response %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/appointments/confirm", &merchant, appointmentAction{AppointmentID: appt.AppointmentID})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 confirming a cancelled appointment, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/appointments?limit=10", &merchant, nil)
	if list := decode[[]appointmentResponse](t, rec); len(list) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(list))
	}
	rec = do(t, h, http.MethodGet, "/api/v1/appointments?limit=abc", &merchant, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a bad limit, got %d", rec.Code)
	}

	other := caller{id: "client-2", role: "client"}
	rec = do(t, h, http.MethodGet, "/api/v1/appointments/get?appointment_id="+appt.AppointmentID, &other, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a stranger, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/appointments/get?appointment_id=missing", &client, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
