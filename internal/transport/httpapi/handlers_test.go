package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
	"clinicbook/backend/internal/service/scheduling"
	"clinicbook/backend/internal/store"
)

type fakeSchedulingService struct {
	getSlotsFn             func(ctx context.Context, q scheduling.SlotQuery) ([]domain.Slot, error)
	bookFn                 func(ctx context.Context, in scheduling.BookInput) (domain.Appointment, error)
	transitionFn           func(ctx context.Context, in scheduling.TransitionInput) (domain.Appointment, error)
	getAppointmentFn       func(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, []domain.StatusChange, error)
	createTemplateFn       func(ctx context.Context, in scheduling.TemplateInput) (domain.AvailabilityTemplate, error)
	deactivateTemplateFn   func(ctx context.Context, doctorID string, templateID uuid.UUID) error
	createUnavailabilityFn func(ctx context.Context, in scheduling.UnavailabilityInput) (domain.UnavailabilityPeriod, error)
}

func (f *fakeSchedulingService) GetAvailableSlots(ctx context.Context, q scheduling.SlotQuery) ([]domain.Slot, error) {
	if f.getSlotsFn == nil {
		panic("GetAvailableSlots not configured")
	}
	return f.getSlotsFn(ctx, q)
}

func (f *fakeSchedulingService) Book(ctx context.Context, in scheduling.BookInput) (domain.Appointment, error) {
	if f.bookFn == nil {
		panic("Book not configured")
	}
	return f.bookFn(ctx, in)
}

func (f *fakeSchedulingService) Transition(ctx context.Context, in scheduling.TransitionInput) (domain.Appointment, error) {
	if f.transitionFn == nil {
		panic("Transition not configured")
	}
	return f.transitionFn(ctx, in)
}

func (f *fakeSchedulingService) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, []domain.StatusChange, error) {
	if f.getAppointmentFn == nil {
		panic("GetAppointment not configured")
	}
	return f.getAppointmentFn(ctx, appointmentID)
}

func (f *fakeSchedulingService) CreateTemplate(ctx context.Context, in scheduling.TemplateInput) (domain.AvailabilityTemplate, error) {
	if f.createTemplateFn == nil {
		panic("CreateTemplate not configured")
	}
	return f.createTemplateFn(ctx, in)
}

func (f *fakeSchedulingService) DeactivateTemplate(ctx context.Context, doctorID string, templateID uuid.UUID) error {
	if f.deactivateTemplateFn == nil {
		panic("DeactivateTemplate not configured")
	}
	return f.deactivateTemplateFn(ctx, doctorID, templateID)
}

func (f *fakeSchedulingService) CreateUnavailability(ctx context.Context, in scheduling.UnavailabilityInput) (domain.UnavailabilityPeriod, error) {
	if f.createUnavailabilityFn == nil {
		panic("CreateUnavailability not configured")
	}
	return f.createUnavailabilityFn(ctx, in)
}

func newTestRouter(svc schedulingService) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)

	h := NewHandlers(svc, slog.Default())
	r.Route("/doctors/{doctorID}", func(r chi.Router) {
		r.Get("/slots", h.GetSlots)
		r.Post("/templates", h.CreateTemplate)
		r.Delete("/templates/{templateID}", h.DeactivateTemplate)
		r.Post("/unavailability", h.CreateUnavailability)
	})
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.CreateBooking)
		r.Get("/{id}", h.GetAppointment)
		r.Post("/{id}/status", h.TransitionAppointment)
	})
	return r
}

func TestGetSlots_ParsesQueryAndReturnsSlots(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	var gotQuery scheduling.SlotQuery

	router := newTestRouter(&fakeSchedulingService{
		getSlotsFn: func(ctx context.Context, q scheduling.SlotQuery) ([]domain.Slot, error) {
			gotQuery = q
			return []domain.Slot{{Start: start, End: start.Add(30 * time.Minute)}}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/doctors/d1/slots?from=2026-01-05&to=2026-01-05&duration_minutes=30", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotQuery.DoctorID != "d1" {
		t.Fatalf("doctor_id = %q, want %q", gotQuery.DoctorID, "d1")
	}
	if gotQuery.Duration != 30*time.Minute {
		t.Fatalf("duration = %v, want 30m", gotQuery.Duration)
	}

	var resp SlotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Slots) != 1 || !resp.Slots[0].Start.Equal(start) {
		t.Fatalf("slots = %v, want one slot at %v", resp.Slots, start)
	}
}

func TestGetSlots_BadDateIs400(t *testing.T) {
	router := newTestRouter(&fakeSchedulingService{})

	req := httptest.NewRequest(http.MethodGet, "/doctors/d1/slots?from=garbage&to=2026-01-05&duration_minutes=30", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateBooking_PassesIdempotencyKeyHeader(t *testing.T) {
	var gotKey string
	router := newTestRouter(&fakeSchedulingService{
		bookFn: func(ctx context.Context, in scheduling.BookInput) (domain.Appointment, error) {
			gotKey = in.IdempotencyKey
			return domain.Appointment{ID: uuid.New(), Status: domain.StatusRequested}, nil
		},
	})

	body, _ := json.Marshal(CreateBookingRequest{
		DoctorID:        "d1",
		PatientID:       "p1",
		StartTime:       time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 30,
		Reason:          "checkup",
	})
	req := httptest.NewRequest(http.MethodPost, "/appointments", bytes.NewReader(body))
	req.Header.Set("Idempotency-Key", "k1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if gotKey != "k1" {
		t.Fatalf("idempotency key = %q, want %q", gotKey, "k1")
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &scheduling.ValidationError{Field: "reason"}, http.StatusBadRequest, "validation_error"},
		{"not found", store.ErrNotFound, http.StatusNotFound, "not_found"},
		{"conflict", store.ErrConflict, http.StatusConflict, "conflict"},
		{"idempotency conflict", store.ErrIdempotencyConflict, http.StatusConflict, "idempotency_conflict"},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
		{"unavailable", store.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(&fakeSchedulingService{
				bookFn: func(ctx context.Context, in scheduling.BookInput) (domain.Appointment, error) {
					return domain.Appointment{}, tc.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/appointments", strings.NewReader(`{"doctor_id":"d1"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal response: %v", err)
			}
			if resp.Error != tc.wantCode {
				t.Fatalf("error = %q, want %q", resp.Error, tc.wantCode)
			}
		})
	}
}

func TestGetAppointment_IncludesHistory(t *testing.T) {
	id := uuid.New()
	prev := domain.StatusRequested

	router := newTestRouter(&fakeSchedulingService{
		getAppointmentFn: func(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, []domain.StatusChange, error) {
			return domain.Appointment{ID: id, Status: domain.StatusConfirmed}, []domain.StatusChange{
				{AppointmentID: id, NewStatus: domain.StatusRequested, Actor: "patient:p1"},
				{AppointmentID: id, PreviousStatus: &prev, NewStatus: domain.StatusConfirmed, Actor: "doctor:d1"},
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/appointments/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp AppointmentDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.History) != 2 {
		t.Fatalf("history = %d, want 2", len(resp.History))
	}
	if resp.History[0].PreviousStatus != nil {
		t.Fatalf("first history previous = %v, want null", *resp.History[0].PreviousStatus)
	}
	if resp.History[1].PreviousStatus == nil || *resp.History[1].PreviousStatus != "requested" {
		t.Fatalf("second history previous = %v, want requested", resp.History[1].PreviousStatus)
	}
}

func TestTransitionAppointment_ParsesBody(t *testing.T) {
	id := uuid.New()
	var gotInput scheduling.TransitionInput

	router := newTestRouter(&fakeSchedulingService{
		transitionFn: func(ctx context.Context, in scheduling.TransitionInput) (domain.Appointment, error) {
			gotInput = in
			return domain.Appointment{ID: id, Status: in.Target}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/appointments/"+id.String()+"/status",
		strings.NewReader(`{"status":"cancelled","actor":"patient:p1","reason":"schedule change"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusOK, rec.Body.String())
	}
	if gotInput.Target != domain.StatusCancelled {
		t.Fatalf("target = %s, want cancelled", gotInput.Target)
	}
	if gotInput.Actor != "patient:p1" {
		t.Fatalf("actor = %q, want %q", gotInput.Actor, "patient:p1")
	}
}

func TestTransitionAppointment_UnknownStatusRejected(t *testing.T) {
	id := uuid.New()

	router := newTestRouter(&fakeSchedulingService{
		transitionFn: func(ctx context.Context, in scheduling.TransitionInput) (domain.Appointment, error) {
			t.Fatalf("service must not be called for an unknown status")
			return domain.Appointment{}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/appointments/"+id.String()+"/status",
		strings.NewReader(`{"status":"done","actor":"doctor:d1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "invalid_request" {
		t.Fatalf("error = %q, want %q", body.Error, "invalid_request")
	}
}

func TestCreateTemplate_RoutesDoctorID(t *testing.T) {
	var gotInput scheduling.TemplateInput

	router := newTestRouter(&fakeSchedulingService{
		createTemplateFn: func(ctx context.Context, in scheduling.TemplateInput) (domain.AvailabilityTemplate, error) {
			gotInput = in
			return domain.AvailabilityTemplate{
				ID:          uuid.New(),
				DoctorID:    in.DoctorID,
				Weekday:     in.Weekday,
				StartMinute: in.StartMinute,
				EndMinute:   in.EndMinute,
				Active:      true,
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/doctors/d1/templates",
		strings.NewReader(`{"weekday":1,"start_minute":540,"end_minute":720}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if gotInput.DoctorID != "d1" {
		t.Fatalf("doctor_id = %q, want %q", gotInput.DoctorID, "d1")
	}
	if gotInput.Weekday != time.Monday {
		t.Fatalf("weekday = %v, want Monday", gotInput.Weekday)
	}
}

func TestDeactivateTemplate_NoContent(t *testing.T) {
	templateID := uuid.New()
	called := false

	router := newTestRouter(&fakeSchedulingService{
		deactivateTemplateFn: func(ctx context.Context, doctorID string, id uuid.UUID) error {
			called = true
			if doctorID != "d1" || id != templateID {
				t.Fatalf("got doctor=%q template=%s", doctorID, id)
			}
			return nil
		},
	})

	req := httptest.NewRequest(http.MethodDelete, "/doctors/d1/templates/"+templateID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if !called {
		t.Fatalf("service not called")
	}
}

func TestCreateUnavailability_ParsesDates(t *testing.T) {
	var gotInput scheduling.UnavailabilityInput

	router := newTestRouter(&fakeSchedulingService{
		createUnavailabilityFn: func(ctx context.Context, in scheduling.UnavailabilityInput) (domain.UnavailabilityPeriod, error) {
			gotInput = in
			return domain.UnavailabilityPeriod{
				ID:        uuid.New(),
				DoctorID:  in.DoctorID,
				StartDate: in.StartDate,
				EndDate:   in.EndDate,
				Reason:    in.Reason,
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/doctors/d1/unavailability",
		strings.NewReader(`{"start_date":"2026-02-01","end_date":"2026-02-07","reason":"vacation"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if gotInput.StartDate.Format(dateLayout) != "2026-02-01" {
		t.Fatalf("start_date = %v", gotInput.StartDate)
	}
	if gotInput.EndDate.Format(dateLayout) != "2026-02-07" {
		t.Fatalf("end_date = %v", gotInput.EndDate)
	}
}
