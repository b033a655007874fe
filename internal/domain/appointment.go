package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Appointment is the ledger row for a booked slot. DoctorID and PatientID are
// opaque references owned by the profile service. Rows are never deleted;
// status transitions are the only mutation path.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID        uuid.UUID         `bun:"id,pk,type:uuid"`
	DoctorID  string            `bun:"doctor_id,notnull"`
	PatientID string            `bun:"patient_id,notnull"`
	StartTime time.Time         `bun:"start_time,notnull"`
	EndTime   time.Time         `bun:"end_time,notnull"`
	Status    AppointmentStatus `bun:"status,notnull"`
	Reason    string            `bun:"reason,notnull"`
	Notes     string            `bun:"notes"`
	CreatedAt time.Time         `bun:"created_at,notnull"`
	UpdatedAt time.Time         `bun:"updated_at,notnull"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

// StatusChange is one immutable entry in an appointment's transition history.
// PreviousStatus is nil only for the initial entry written at booking time.
type StatusChange struct {
	bun.BaseModel `bun:"table:appointment_status_history"`

	ID             uuid.UUID          `bun:"id,pk,type:uuid"`
	AppointmentID  uuid.UUID          `bun:"appointment_id,notnull,type:uuid"`
	PreviousStatus *AppointmentStatus `bun:"previous_status"`
	NewStatus      AppointmentStatus  `bun:"new_status,notnull"`
	Actor          string             `bun:"actor,notnull"`
	Reason         string             `bun:"reason"`
	ChangedAt      time.Time          `bun:"changed_at,notnull"`
}

func (c *StatusChange) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if c.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		c.ID = id
	}
	if c.ChangedAt.IsZero() {
		c.ChangedAt = time.Now().UTC()
	}
	return nil
}
