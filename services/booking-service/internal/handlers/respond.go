package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/slotwise/libs/httpx"
	"github.com/md-rashed-zaman/slotwise/libs/runtime"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotwise/services/booking-service/internal/model"
)

type appointmentResponse struct {
	AppointmentID           string `json:"appointment_id"`
	BusinessID              string `json:"business_id"`
	ServiceID               string `json:"service_id"`
	ClientID                string `json:"client_id"`
	StartTime               string `json:"start_time"`
	EndTime                 string `json:"end_time"`
	DurationMinutes         int    `json:"duration_minutes"`
	Status                  string `json:"status"`
	RescheduleJustification string `json:"reschedule_justification,omitempty"`
	CancelReason            string `json:"cancel_reason,omitempty"`
	CancelledBy             string `json:"cancelled_by,omitempty"`
	CreatedAt               string `json:"created_at"`
	UpdatedAt               string `json:"updated_at"`
}

func toAppointment(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID:           a.ID,
		BusinessID:              a.BusinessID,
		ServiceID:               a.ServiceID,
		ClientID:                a.ClientID,
		StartTime:               formatTime(a.StartTime),
		EndTime:                 formatTime(a.EndTime),
		DurationMinutes:         a.DurationMinutes,
		Status:                  string(a.DisplayStatus()),
		RescheduleJustification: a.RescheduleJustification,
		CancelReason:            a.CancelReason,
		CancelledBy:             a.CancelledBy,
		CreatedAt:               formatTime(a.CreatedAt),
		UpdatedAt:               formatTime(a.UpdatedAt),
	}
}

type rescheduleResponse struct {
	RequestID         string `json:"request_id"`
	AppointmentID     string `json:"appointment_id"`
	RequestedBy       string `json:"requested_by"`
	RequestedByRole   string `json:"requested_by_role"`
	OriginalStartTime string `json:"original_start_time"`
	OriginalEndTime   string `json:"original_end_time"`
	ProposedStartTime string `json:"proposed_start_time"`
	ProposedEndTime   string `json:"proposed_end_time"`
	Justification     string `json:"justification,omitempty"`
	Status            string `json:"status"`
	ResolvedBy        string `json:"resolved_by,omitempty"`
	ResolvedAt        string `json:"resolved_at,omitempty"`
	CreatedAt         string `json:"created_at"`
}

func toReschedule(r model.RescheduleRequest) rescheduleResponse {
	resp := rescheduleResponse{
		RequestID:         r.ID,
		AppointmentID:     r.AppointmentID,
		RequestedBy:       r.RequestedBy,
		RequestedByRole:   string(r.RequestedByRole),
		OriginalStartTime: formatTime(r.OriginalStartTime),
		OriginalEndTime:   formatTime(r.OriginalEndTime),
		ProposedStartTime: formatTime(r.ProposedStartTime),
		ProposedEndTime:   formatTime(r.ProposedEndTime),
		Justification:     r.Justification,
		Status:            string(r.Status),
		ResolvedBy:        r.ResolvedBy,
		CreatedAt:         formatTime(r.CreatedAt),
	}
	if r.ResolvedAt != nil {
		resp.ResolvedAt = formatTime(*r.ResolvedAt)
	}
	return resp
}

type slotItem struct {
	Time      string `json:"time"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
}

type slotsResponse struct {
	BusinessID      string     `json:"business_id"`
	ServiceID       string     `json:"service_id"`
	Date            string     `json:"date"`
	DurationMinutes int        `json:"duration_minutes"`
	Slots           []slotItem `json:"slots"`
}

func toSlots(res booking.SlotsResult, availableOnly bool) slotsResponse {
	slots := res.Slots
	if availableOnly {
		slots = availability.FilterAvailable(slots)
	}
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			Time:      s.Time.String(),
			StartTime: formatTime(s.Start),
			EndTime:   formatTime(s.End),
			Status:    string(s.Status),
		})
	}
	return slotsResponse{
		BusinessID:      res.BusinessID,
		ServiceID:       res.ServiceID,
		Date:            res.Date.Format(time.DateOnly),
		DurationMinutes: res.DurationMinutes,
		Slots:           items,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// writeServiceError maps booking errors onto HTTP statuses. Unexpected
// errors are logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := booking.Outcome(err)
	switch {
	case errors.Is(err, booking.ErrInvalidInput):
		httpx.WriteCodedError(w, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		httpx.WriteCodedError(w, http.StatusNotFound, code, "appointment or request not found")
	case errors.Is(err, booking.ErrForbidden):
		httpx.WriteCodedError(w, http.StatusForbidden, code, booking.ErrForbidden.Error())
	case errors.Is(err, booking.ErrInvalidSlot):
		httpx.WriteCodedError(w, http.StatusConflict, code, booking.ErrInvalidSlot.Error())
	case errors.Is(err, booking.ErrConflict):
		httpx.WriteCodedError(w, http.StatusConflict, code, booking.ErrConflict.Error())
	case errors.Is(err, booking.ErrAlreadyResolved):
		httpx.WriteCodedError(w, http.StatusConflict, code, booking.ErrAlreadyResolved.Error())
	case errors.Is(err, booking.ErrInvalidTransition):
		httpx.WriteCodedError(w, http.StatusConflict, code, err.Error())
	default:
		runtime.LoggerFromContext(r.Context(), logger).Error("request failed", "err", err, "path", r.URL.Path)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}
