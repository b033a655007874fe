package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
)

// AppointmentRepository is the write and read surface of the booking ledger.
// Book and Transition are the only mutation paths for appointment rows.
type AppointmentRepository interface {
	// Book inserts the appointment after re-checking for overlap inside a
	// per-doctor serialized transaction, and writes the initial history
	// entry. Returns ErrConflict when the interval is occupied, and replays
	// idempotent duplicates.
	Book(ctx context.Context, appt domain.Appointment, actor string) (domain.Appointment, error)

	// Transition moves the appointment through the lifecycle graph and
	// appends one history entry. Returns domain.ErrInvalidTransition for
	// illegal moves and ErrNotFound for unknown appointments.
	Transition(ctx context.Context, appointmentID uuid.UUID, target domain.AppointmentStatus, actor, reason string, now time.Time) (domain.Appointment, error)

	Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)

	// ListOccupying returns appointments whose status blocks booking time
	// (requested or confirmed) overlapping the window for one doctor,
	// ordered by start time.
	ListOccupying(ctx context.Context, doctorID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)

	History(ctx context.Context, appointmentID uuid.UUID) ([]domain.StatusChange, error)
}
