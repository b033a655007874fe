package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
)

type TransitionInput struct {
	AppointmentID uuid.UUID
	Target        domain.AppointmentStatus
	Actor         string
	Reason        string
}

// Transition moves an appointment through its lifecycle. The walk and the
// history append happen atomically in the store; this layer validates input,
// publishes the change, and frees cached slots when the booking stops
// occupying its interval.
func (s *Service) Transition(ctx context.Context, in TransitionInput) (domain.Appointment, error) {
	if in.AppointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id", "appointment_id is required")
	}
	if !in.Target.Valid() {
		return domain.Appointment{}, validationError("status", fmt.Sprintf("unknown status %q", in.Target))
	}
	if in.Actor == "" {
		return domain.Appointment{}, validationError("actor", "actor is required")
	}

	current, err := s.appts.Get(ctx, in.AppointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	previous := current.Status

	updated, err := s.appts.Transition(ctx, in.AppointmentID, in.Target, in.Actor, in.Reason, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.countTransition(string(in.Target), "invalid")
		} else {
			s.countTransition(string(in.Target), "error")
		}
		return domain.Appointment{}, err
	}
	s.countTransition(string(in.Target), "ok")

	bg := context.WithoutCancel(ctx)
	s.notifier.AppointmentStatusChanged(bg, updated, previous)
	if s.cache != nil && previous.Occupies() && !updated.Status.Occupies() {
		s.cache.Invalidate(bg, updated.DoctorID)
	}

	return updated, nil
}

// GetAppointment returns one appointment with its ordered status history.
func (s *Service) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, []domain.StatusChange, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, nil, validationError("appointment_id", "appointment_id is required")
	}
	appt, err := s.appts.Get(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, nil, err
	}
	history, err := s.appts.History(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, nil, err
	}
	return appt, history, nil
}
