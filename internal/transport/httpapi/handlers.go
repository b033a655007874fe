package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
	"clinicbook/backend/internal/service/scheduling"
	"clinicbook/backend/internal/store"
)

type schedulingService interface {
	GetAvailableSlots(ctx context.Context, q scheduling.SlotQuery) ([]domain.Slot, error)
	Book(ctx context.Context, in scheduling.BookInput) (domain.Appointment, error)
	Transition(ctx context.Context, in scheduling.TransitionInput) (domain.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, []domain.StatusChange, error)
	CreateTemplate(ctx context.Context, in scheduling.TemplateInput) (domain.AvailabilityTemplate, error)
	DeactivateTemplate(ctx context.Context, doctorID string, templateID uuid.UUID) error
	CreateUnavailability(ctx context.Context, in scheduling.UnavailabilityInput) (domain.UnavailabilityPeriod, error)
}

type Handlers struct {
	svc schedulingService
	log *slog.Logger
}

func NewHandlers(svc schedulingService, log *slog.Logger) *Handlers {
	return &Handlers{svc: svc, log: log}
}

func (h *Handlers) GetSlots(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	query := r.URL.Query()

	from, err := time.Parse(dateLayout, query.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "from must be a date in YYYY-MM-DD form")
		return
	}
	to, err := time.Parse(dateLayout, query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "to must be a date in YYYY-MM-DD form")
		return
	}
	durationMinutes, err := strconv.Atoi(query.Get("duration_minutes"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "duration_minutes must be an integer")
		return
	}

	slots, err := h.svc.GetAvailableSlots(r.Context(), scheduling.SlotQuery{
		DoctorID: doctorID,
		From:     from,
		To:       to,
		Duration: time.Duration(durationMinutes) * time.Minute,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{Start: s.Start, End: s.End})
	}
	writeJSON(w, http.StatusOK, SlotsResponse{DoctorID: doctorID, Slots: out})
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not parse JSON")
		return
	}

	appt, err := h.svc.Book(r.Context(), scheduling.BookInput{
		DoctorID:       req.DoctorID,
		PatientID:      req.PatientID,
		StartTime:      req.StartTime,
		Duration:       time.Duration(req.DurationMinutes) * time.Minute,
		Reason:         req.Reason,
		Notes:          req.Notes,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Actor:          req.Actor,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, appointmentResponse(appt))
}

func (h *Handlers) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a valid UUID")
		return
	}

	appt, history, err := h.svc.GetAppointment(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AppointmentDetailResponse{
		AppointmentResponse: appointmentResponse(appt),
		History:             historyResponse(history),
	})
}

func (h *Handlers) TransitionAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "id must be a valid UUID")
		return
	}

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not parse JSON")
		return
	}

	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	appt, err := h.svc.Transition(r.Context(), scheduling.TransitionInput{
		AppointmentID: id,
		Target:        target,
		Actor:         req.Actor,
		Reason:        req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, appointmentResponse(appt))
}

func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")

	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not parse JSON")
		return
	}

	tpl, err := h.svc.CreateTemplate(r.Context(), scheduling.TemplateInput{
		DoctorID:    doctorID,
		Weekday:     time.Weekday(req.Weekday),
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		BreakStart:  req.BreakStart,
		BreakEnd:    req.BreakEnd,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, templateResponse(tpl))
}

func (h *Handlers) DeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")
	templateID, err := uuid.Parse(chi.URLParam(r, "templateID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "templateID must be a valid UUID")
		return
	}

	if err := h.svc.DeactivateTemplate(r.Context(), doctorID, templateID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) CreateUnavailability(w http.ResponseWriter, r *http.Request) {
	doctorID := chi.URLParam(r, "doctorID")

	var req CreateUnavailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "could not parse JSON")
		return
	}

	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "start_date must be a date in YYYY-MM-DD form")
		return
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "end_date must be a date in YYYY-MM-DD form")
		return
	}

	period, err := h.svc.CreateUnavailability(r.Context(), scheduling.UnavailabilityInput{
		DoctorID:  doctorID,
		StartDate: startDate,
		EndDate:   endDate,
		Reason:    req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UnavailabilityResponse{
		ID:        period.ID,
		DoctorID:  period.DoctorID,
		StartDate: period.StartDate.Format(dateLayout),
		EndDate:   period.EndDate.Format(dateLayout),
		Reason:    period.Reason,
	})
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *scheduling.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Details: vErr.Error(), Field: vErr.Field})
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, store.ErrIdempotencyConflict):
		writeError(w, http.StatusConflict, "idempotency_conflict", "idempotency key was already used for a different booking")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", "storage is temporarily unavailable, retry shortly")
	default:
		h.log.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", fmt.Sprintf("request %s failed", RequestID(r.Context())))
	}
}
