package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
	"clinicbook/backend/internal/store"
)

type BookInput struct {
	DoctorID  string
	PatientID string
	StartTime time.Time
	Duration  time.Duration
	Reason    string
	Notes     string
	// IdempotencyKey makes retried requests converge on one appointment.
	IdempotencyKey string
	// Actor is recorded in the status history; defaults to the patient.
	Actor string
}

// Book places an appointment. The requested interval must fit entirely inside
// one working window derived from the doctor's templates and unavailability;
// an interval outside every window is a validation failure. Whether the
// interval is already occupied is decided only by the commit, which runs
// under the per-doctor serialized transaction so two concurrent requests for
// overlapping time cannot both succeed.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	appt, err := s.validateBooking(ctx, in)
	if err != nil {
		s.countBooking("invalid")
		return domain.Appointment{}, err
	}

	windows, err := s.workingWindowsFor(ctx, appt.DoctorID, appt.StartTime)
	if err != nil {
		return domain.Appointment{}, err
	}
	want := domain.Interval{Start: appt.StartTime, End: appt.EndTime}
	if !domain.CoveredByFree(windows, want) {
		s.countBooking("invalid")
		return domain.Appointment{}, validationError("start_time", "requested time falls outside the doctor's working hours")
	}

	actor := in.Actor
	if actor == "" {
		actor = "patient:" + appt.PatientID
	}

	created, err := s.bookWithRetry(ctx, appt, actor)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConflict):
			s.countBooking("conflict")
		case errors.Is(err, store.ErrIdempotencyConflict):
			s.countBooking("idempotency_conflict")
		default:
			s.countBooking("error")
		}
		return domain.Appointment{}, err
	}
	s.countBooking("created")

	bg := context.WithoutCancel(ctx)
	s.notifier.AppointmentCreated(bg, created)
	if s.cache != nil {
		s.cache.Invalidate(bg, created.DoctorID)
	}

	return created, nil
}

func (s *Service) validateBooking(ctx context.Context, in BookInput) (domain.Appointment, error) {
	if in.DoctorID == "" {
		return domain.Appointment{}, validationError("doctor_id", "doctor_id is required")
	}
	if in.PatientID == "" {
		return domain.Appointment{}, validationError("patient_id", "patient_id is required")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return domain.Appointment{}, validationError("reason", "reason is required")
	}
	if in.Duration < MinAppointmentDuration || in.Duration > MaxAppointmentDuration {
		return domain.Appointment{}, validationError("duration_minutes", fmt.Sprintf("duration must be between %d and %d minutes", int(MinAppointmentDuration.Minutes()), int(MaxAppointmentDuration.Minutes())))
	}

	start := in.StartTime.UTC()
	if start.IsZero() {
		return domain.Appointment{}, validationError("start_time", "start_time is required")
	}
	if start.Before(s.now().UTC().Add(s.leadTime)) {
		return domain.Appointment{}, validationError("start_time", "start_time is too soon")
	}

	ok, err := s.directory.DoctorExists(ctx, in.DoctorID)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("doctor lookup: %w", err)
	}
	if !ok {
		return domain.Appointment{}, fmt.Errorf("doctor %s: %w", in.DoctorID, store.ErrNotFound)
	}
	ok, err = s.directory.PatientExists(ctx, in.PatientID)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("patient lookup: %w", err)
	}
	if !ok {
		return domain.Appointment{}, fmt.Errorf("patient %s: %w", in.PatientID, store.ErrNotFound)
	}

	appt := domain.Appointment{
		DoctorID:  in.DoctorID,
		PatientID: in.PatientID,
		StartTime: start,
		EndTime:   start.Add(in.Duration),
		Status:    domain.StatusRequested,
		Reason:    reason,
		Notes:     in.Notes,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > 256 {
			return domain.Appointment{}, validationError("idempotency_key", "idempotency_key too long")
		}
		appt.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("clinicbook:create_booking:"+in.DoctorID+":"+in.PatientID+":"+key))
	}

	return appt, nil
}

// workingWindowsFor derives the doctor's working time on the appointment's
// day from templates and unavailability. Book re-derives instead of trusting
// a previously listed slot. Occupying appointments are deliberately left out:
// the commit decides occupancy under the per-doctor lock.
func (s *Service) workingWindowsFor(ctx context.Context, doctorID string, start time.Time) ([]domain.Interval, error) {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	templates, err := s.schedule.ListActiveTemplates(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	unavailable, err := s.schedule.ListUnavailability(ctx, doctorID, day, day)
	if err != nil {
		return nil, fmt.Errorf("list unavailability: %w", err)
	}

	return domain.DayFreeIntervals(templates, unavailable, nil, day, time.UTC), nil
}

// bookWithRetry retries once on transient storage failure. Deterministic ids
// make the retry safe: a commit that actually landed is replayed, not doubled.
func (s *Service) bookWithRetry(ctx context.Context, appt domain.Appointment, actor string) (domain.Appointment, error) {
	created, err := s.appts.Book(ctx, appt, actor)
	if err == nil || !retryable(err) {
		return created, err
	}

	s.logger.Warn("booking commit failed, retrying", "error", err, "doctor_id", appt.DoctorID)
	select {
	case <-time.After(s.retryDelay):
	case <-ctx.Done():
		return domain.Appointment{}, ctx.Err()
	}

	created, err = s.appts.Book(ctx, appt, actor)
	if err != nil && retryable(err) {
		return domain.Appointment{}, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}
	return created, err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !errors.Is(err, store.ErrConflict) &&
		!errors.Is(err, store.ErrIdempotencyConflict) &&
		!errors.Is(err, store.ErrNotFound) &&
		!errors.Is(err, domain.ErrInvalidTransition)
}
