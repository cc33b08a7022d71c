package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/identity"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/storage/memstore"
)

func newProfileServer(t *testing.T) (http.Handler, *memstore.Profiles) {
	t.Helper()
	profiles := memstore.NewProfiles()
	mux := http.NewServeMux()
	NewProfileHandler(profiles, slog.New(slog.NewTextHandler(io.Discard, nil))).
		Register(mux, identity.Authenticator{TrustHeaders: true})
	return mux, profiles
}

func TestWorkingHoursRoundTrip(t *testing.T) {
	h, profiles := newProfileServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/business/working-hours", &merchant, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before setup, got %d", rec.Code)
	}

	body := workingHoursBody{
		Timezone: "Europe/Berlin",
		Days: map[string]dayWindowDTO{
			"monday":  {Open: "09:00", Close: "17:00"},
			"Tuesday": {Open: "10:30", Close: "14:00"},
		},
	}
	rec = do(t, h, http.MethodPut, "/api/v1/business/working-hours", &merchant, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/v1/business/working-hours", &merchant, nil)
	got := decode[workingHoursBody](t, rec)
	if got.Timezone != "Europe/Berlin" || len(got.Days) != 2 {
		t.Fatalf("unexpected working hours %+v", got)
	}
	if got.Days["tuesday"] != (dayWindowDTO{Open: "10:30", Close: "14:00"}) {
		t.Fatalf("unexpected tuesday %+v", got.Days["tuesday"])
	}

	cal, err := profiles.WorkingHours(t.Context(), "biz-1")
	if err != nil {
		t.Fatalf("stored calendar: %v", err)
	}
	if cal.Loc().String() != "Europe/Berlin" {
		t.Fatalf("unexpected location %s", cal.Loc())
	}
}

func TestWorkingHoursValidation(t *testing.T) {
	h, _ := newProfileServer(t)

	cases := []struct {
		name string
		body workingHoursBody
	}{
		{"missing timezone", workingHoursBody{Days: map[string]dayWindowDTO{"monday": {"09:00", "17:00"}}}},
		{"unknown timezone", workingHoursBody{Timezone: "Mars/Olympus", Days: map[string]dayWindowDTO{}}},
		{"close before open", workingHoursBody{Timezone: "UTC", Days: map[string]dayWindowDTO{"monday": {"17:00", "09:00"}}}},
		{"bad weekday", workingHoursBody{Timezone: "UTC", Days: map[string]dayWindowDTO{"funday": {"09:00", "17:00"}}}},
		{"bad time", workingHoursBody{Timezone: "UTC", Days: map[string]dayWindowDTO{"monday": {"9am", "17:00"}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPut, "/api/v1/business/working-hours", &merchant, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestProfileRoutesAreMerchantOnly(t *testing.T) {
	h, _ := newProfileServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/business/services", &client, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a client, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/business/services", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
	rec = do(t, h, http.MethodDelete, "/api/v1/business/working-hours", &merchant, nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestCreateAndListServices(t *testing.T) {
	h, profiles := newProfileServer(t)

	rec := do(t, h, http.MethodPost, "/api/v1/business/services", &merchant, serviceBody{Name: "Haircut", DurationMinutes: 45})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a profile, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodPut, "/api/v1/business/working-hours", &merchant,
		workingHoursBody{Timezone: "UTC", Days: map[string]dayWindowDTO{"monday": {"09:00", "17:00"}}})
	if rec.Code != http.StatusOK {
		t.Fatalf("working hours: %d", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/business/services", &merchant, serviceBody{Name: "Haircut", DurationMinutes: 45})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[serviceResponse](t, rec)
	if created.ServiceID == "" || !created.Active || created.BusinessID != "biz-1" {
		t.Fatalf("unexpected service %+v", created)
	}

	inactive := false
	rec = do(t, h, http.MethodPost, "/api/v1/business/services", &merchant,
		serviceBody{ServiceID: "retired", Name: "Old", DurationMinutes: 30, Active: &inactive})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if _, err := profiles.ServiceDuration(t.Context(), "biz-1", "retired"); err == nil {
		t.Fatal("inactive service should not be bookable")
	}
	d, err := profiles.ServiceDuration(t.Context(), "biz-1", created.ServiceID)
	if err != nil || d != 45 {
		t.Fatalf("duration = %d, %v", d, err)
	}

	rec = do(t, h, http.MethodPost, "/api/v1/business/services", &merchant, serviceBody{Name: "Marathon", DurationMinutes: 1441})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an oversized duration, got %d", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/business/services", &merchant, nil)
	list := decode[struct {
		Items []serviceResponse `json:"items"`
	}](t, rec)
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 services, got %+v", list.Items)
	}
}
