package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotwise/libs/httpx"
	"github.com/md-rashed-zaman/slotwise/libs/runtime"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/calendar"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/identity"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

const maxServiceMinutes = 24 * 60

// ProfileStore is the merchant-editable business profile.
type ProfileStore interface {
	WorkingHours(ctx context.Context, businessID string) (calendar.WorkingHours, error)
	PutWorkingHours(ctx context.Context, businessID string, cal calendar.WorkingHours) error
	PutService(ctx context.Context, svc model.Service) error
	ListServices(ctx context.Context, businessID string) ([]model.Service, error)
}

type ProfileHandler struct {
	store  ProfileStore
	logger *slog.Logger
}

func NewProfileHandler(store ProfileStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{store: store, logger: logger}
}

func (h *ProfileHandler) Register(mux *http.ServeMux, authn identity.Authenticator) {
	mux.Handle("/api/v1/business/working-hours", authn.Require(merchantOnly(h.WorkingHours)))
	mux.Handle("/api/v1/business/services", authn.Require(merchantOnly(h.Services)))
}

func merchantOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := identity.ActorFromContext(r.Context())
		if actor.Role != model.RoleMerchant || actor.BusinessID == "" {
			httpx.WriteCodedError(w, http.StatusForbidden, "forbidden", "merchant access required")
			return
		}
		next(w, r)
	}
}

type workingHoursBody struct {
	Timezone string                  `json:"timezone"`
	Days     map[string]dayWindowDTO `json:"days"`
}

type dayWindowDTO struct {
	Open  string `json:"open"`
	Close string `json:"close"`
}

func toWorkingHours(cal calendar.WorkingHours) workingHoursBody {
	out := workingHoursBody{Timezone: cal.Loc().String(), Days: map[string]dayWindowDTO{}}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if win, ok := cal.Window(wd); ok {
			out.Days[calendar.WeekdayName(wd)] = dayWindowDTO{Open: win.Open.String(), Close: win.Close.String()}
		}
	}
	return out
}

func (h *ProfileHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.ActorFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		cal, err := h.store.WorkingHours(r.Context(), actor.BusinessID)
		if errors.Is(err, booking.ErrNotFound) {
			httpx.WriteCodedError(w, http.StatusNotFound, "not_found", "working hours not configured")
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toWorkingHours(cal))

	case http.MethodPut:
		var req workingHoursBody
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		tz := strings.TrimSpace(req.Timezone)
		if tz == "" {
			httpx.WriteError(w, http.StatusBadRequest, "timezone is required")
			return
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "unknown timezone")
			return
		}
		days := make(map[string][2]string, len(req.Days))
		for name, d := range req.Days {
			days[name] = [2]string{d.Open, d.Close}
		}
		cal, err := calendar.FromNames(loc, days)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := h.store.PutWorkingHours(r.Context(), actor.BusinessID, cal); err != nil {
			h.fail(w, r, err)
			return
		}
		runtime.LoggerFromContext(r.Context(), h.logger).Info("working hours updated",
			"business_id", actor.BusinessID, "timezone", tz, "open_days", len(days))
		httpx.WriteJSON(w, http.StatusOK, toWorkingHours(cal))

	default:
		w.Header().Set("Allow", "GET, PUT")
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type serviceBody struct {
	ServiceID       string `json:"service_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          *bool  `json:"active,omitempty"`
}

type serviceResponse struct {
	ServiceID       string `json:"service_id"`
	BusinessID      string `json:"business_id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Active          bool   `json:"active"`
}

func toService(s model.Service) serviceResponse {
	return serviceResponse{
		ServiceID:       s.ID,
		BusinessID:      s.BusinessID,
		Name:            s.Name,
		DurationMinutes: s.DurationMinutes,
		Active:          s.Active,
	}
}

func (h *ProfileHandler) Services(w http.ResponseWriter, r *http.Request) {
	actor, _ := identity.ActorFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		services, err := h.store.ListServices(r.Context(), actor.BusinessID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		items := make([]serviceResponse, 0, len(services))
		for _, s := range services {
			items = append(items, toService(s))
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})

	case http.MethodPost:
		var req serviceBody
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		svc := model.Service{
			ID:              strings.TrimSpace(req.ServiceID),
			BusinessID:      actor.BusinessID,
			Name:            strings.TrimSpace(req.Name),
			DurationMinutes: req.DurationMinutes,
			Active:          req.Active == nil || *req.Active,
		}
		if svc.Name == "" {
			httpx.WriteError(w, http.StatusBadRequest, "name is required")
			return
		}
		if svc.DurationMinutes <= 0 || svc.DurationMinutes > maxServiceMinutes {
			httpx.WriteError(w, http.StatusBadRequest, "duration_minutes must be between 1 and 1440")
			return
		}
		if svc.ID == "" {
			svc.ID = uuid.NewString()
		}
		err := h.store.PutService(r.Context(), svc)
		if errors.Is(err, booking.ErrNotFound) {
			httpx.WriteCodedError(w, http.StatusConflict, "profile_missing", "set working hours before adding services")
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toService(svc))

	default:
		w.Header().Set("Allow", "GET, POST")
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ProfileHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	runtime.LoggerFromContext(r.Context(), h.logger).Error("profile request failed", "err", err, "path", r.URL.Path)
	httpx.WriteError(w, http.StatusInternalServerError, "internal error")
}
