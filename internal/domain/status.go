package domain

import (
	"errors"
	"fmt"
	"time"
)

type AppointmentStatus string

const (
	StatusRequested AppointmentStatus = "requested"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// allowedTransitions is the full lifecycle graph. Terminal states have no
// outgoing edges.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusRequested: {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

func ParseStatus(s string) (AppointmentStatus, error) {
	switch AppointmentStatus(s) {
	case StatusRequested, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return AppointmentStatus(s), nil
	}
	return "", fmt.Errorf("unknown appointment status %q", s)
}

func (s AppointmentStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s AppointmentStatus) IsTerminal() bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

// Occupies reports whether an appointment in this status blocks its time
// range against new bookings.
func (s AppointmentStatus) Occupies() bool {
	return s == StatusRequested || s == StatusConfirmed
}

func CanTransition(from, to AppointmentStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks the lifecycle graph plus the time-dependent
// rules: no_show requires the scheduled start to have passed, and completed
// requires the appointment to have started.
func ValidateTransition(from, to AppointmentStatus, scheduledStart, now time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown target status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	switch to {
	case StatusNoShow:
		if now.Before(scheduledStart) {
			return fmt.Errorf("%w: cannot mark no_show before the scheduled start", ErrInvalidTransition)
		}
	case StatusCompleted:
		if now.Before(scheduledStart) {
			return fmt.Errorf("%w: cannot complete an appointment before it starts", ErrInvalidTransition)
		}
	}
	return nil
}
