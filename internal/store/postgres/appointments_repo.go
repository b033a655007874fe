package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"clinicbook/backend/internal/domain"
	"clinicbook/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type bookingTx struct {
	tx bun.Tx
}

// InDoctorTransaction serializes all writers for one doctor's ledger with an
// advisory transaction lock, so the overlap re-check and the insert see a
// stable view. The exclusion constraint remains the backstop.
func (r *AppointmentRepo) InDoctorTransaction(ctx context.Context, doctorID string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDoctorLedger(ctx, tx, doctorID); err != nil {
			return err
		}
		return fn(ctx, bookingTx{tx: tx})
	})
}

func lockDoctorLedger(ctx context.Context, tx bun.Tx, doctorID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", doctorID).Exec(ctx)
	return err
}

func (r *AppointmentRepo) Book(ctx context.Context, appt domain.Appointment, actor string) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.InDoctorTransaction(ctx, appt.DoctorID, func(ctx context.Context, tx store.BookingTx) error {
		created, err := commitBooking(ctx, tx, appt, actor)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// commitBooking runs the commit-time checks inside the serialized
// transaction: idempotent replay lookup, overlap re-check, insert, initial
// history entry. An identical booking carrying the same id is replayed
// without a second insert or history entry.
func commitBooking(ctx context.Context, tx store.BookingTx, appt domain.Appointment, actor string) (domain.Appointment, error) {
	if appt.ID != uuid.Nil {
		existing, err := tx.GetAppointment(ctx, appt.ID)
		switch {
		case err == nil:
			if sameBooking(existing, appt) {
				return existing, nil
			}
			return domain.Appointment{}, store.ErrIdempotencyConflict
		case !errors.Is(err, store.ErrNotFound):
			return domain.Appointment{}, err
		}
	}

	occupied, err := tx.ListOccupying(ctx, appt.DoctorID, appt.StartTime, appt.EndTime)
	if err != nil {
		return domain.Appointment{}, err
	}
	if len(occupied) > 0 {
		return domain.Appointment{}, store.ErrConflict
	}

	created, err := tx.InsertAppointment(ctx, appt)
	if err != nil {
		return domain.Appointment{}, err
	}

	err = tx.AppendHistory(ctx, domain.StatusChange{
		AppointmentID: created.ID,
		NewStatus:     domain.StatusRequested,
		Actor:         actor,
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	return created, nil
}

// sameBooking compares every client-supplied field. A retry may only replay
// a booking it could have produced itself.
func sameBooking(existing, appt domain.Appointment) bool {
	return existing.DoctorID == appt.DoctorID &&
		existing.PatientID == appt.PatientID &&
		existing.StartTime.Equal(appt.StartTime) &&
		existing.EndTime.Equal(appt.EndTime) &&
		existing.Reason == appt.Reason &&
		existing.Notes == appt.Notes
}

func (r *AppointmentRepo) Transition(ctx context.Context, appointmentID uuid.UUID, target domain.AppointmentStatus, actor, reason string, now time.Time) (domain.Appointment, error) {
	// The doctor id is needed for the ledger lock, so resolve it first and
	// re-read inside the locked transaction.
	current, err := r.Get(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = r.InDoctorTransaction(ctx, current.DoctorID, func(ctx context.Context, tx store.BookingTx) error {
		updated, err := applyTransition(ctx, tx, appointmentID, target, actor, reason, now)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// applyTransition validates and records one lifecycle move inside the
// serialized transaction.
func applyTransition(ctx context.Context, tx store.BookingTx, appointmentID uuid.UUID, target domain.AppointmentStatus, actor, reason string, now time.Time) (domain.Appointment, error) {
	appt, err := tx.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}

	if err := domain.ValidateTransition(appt.Status, target, appt.StartTime, now); err != nil {
		return domain.Appointment{}, err
	}

	if err := tx.UpdateStatus(ctx, appointmentID, target, now); err != nil {
		return domain.Appointment{}, err
	}

	previous := appt.Status
	err = tx.AppendHistory(ctx, domain.StatusChange{
		AppointmentID:  appointmentID,
		PreviousStatus: &previous,
		NewStatus:      target,
		Actor:          actor,
		Reason:         reason,
		ChangedAt:      now.UTC(),
	})
	if err != nil {
		return domain.Appointment{}, err
	}

	appt.Status = target
	appt.UpdatedAt = now.UTC()
	return appt, nil
}

func (r *AppointmentRepo) Get(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) ListOccupying(ctx context.Context, doctorID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.StatusRequested, domain.StatusConfirmed})).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) History(ctx context.Context, appointmentID uuid.UUID) ([]domain.StatusChange, error) {
	var rows []domain.StatusChange
	err := r.db.NewSelect().
		Model(&rows).
		Where("appointment_id = ?", appointmentID).
		OrderExpr("changed_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t bookingTx) ListOccupying(ctx context.Context, doctorID string, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := t.tx.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("status IN (?)", bun.In([]domain.AppointmentStatus{domain.StatusRequested, domain.StatusConfirmed})).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t bookingTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
				return domain.Appointment{}, store.ErrConflict
			}
			if pgErr.Code == "23505" {
				return domain.Appointment{}, store.ErrIdempotencyConflict
			}
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (t bookingTx) GetAppointment(ctx context.Context, appointmentID uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := t.tx.NewSelect().
		Model(&appt).
		Where("id = ?", appointmentID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

// UpdateStatus stamps updated_at with the caller's clock so the row and its
// history entry carry the same timestamp for one transition.
func (t bookingTx) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, status domain.AppointmentStatus, now time.Time) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now.UTC()).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t bookingTx) AppendHistory(ctx context.Context, change domain.StatusChange) error {
	m := change
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	return err
}
