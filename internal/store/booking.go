package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
)

// BookingTx is the in-transaction surface of the ledger. Every method runs
// inside the same advisory-locked transaction so the overlap re-check and the
// insert cannot be separated by a concurrent writer for the same doctor.
type BookingTx interface {
	ListOccupying(ctx context.Context, doctorID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus, now time.Time) error
	AppendHistory(ctx context.Context, change domain.StatusChange) error
}
