package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"clinicbook/backend/internal/domain"
	"clinicbook/backend/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

// CreateTemplate inserts a new weekly window after checking it against the
// doctor's other active templates on the same weekday. The check runs under
// the doctor's ledger lock so two concurrent template edits cannot slip past
// each other.
func (r *ScheduleRepo) CreateTemplate(ctx context.Context, tpl domain.AvailabilityTemplate) (domain.AvailabilityTemplate, error) {
	m := tpl
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockDoctorLedger(ctx, tx, tpl.DoctorID); err != nil {
			return err
		}

		var existing []domain.AvailabilityTemplate
		err := tx.NewSelect().
			Model(&existing).
			Where("doctor_id = ?", tpl.DoctorID).
			Where("weekday = ?", tpl.Weekday).
			Where("active").
			Scan(ctx)
		if err != nil {
			return err
		}
		for i := range existing {
			if tpl.Overlaps(&existing[i]) {
				return store.ErrConflict
			}
		}

		_, err = tx.NewInsert().Model(&m).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.AvailabilityTemplate{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) DeactivateTemplate(ctx context.Context, doctorID string, templateID uuid.UUID) error {
	res, err := r.db.NewUpdate().
		Model((*domain.AvailabilityTemplate)(nil)).
		Set("active = false").
		Set("updated_at = ?", time.Now().UTC()).
		Where("doctor_id = ?", doctorID).
		Where("id = ?", templateID).
		Where("active").
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

func (r *ScheduleRepo) ListActiveTemplates(ctx context.Context, doctorID string) ([]domain.AvailabilityTemplate, error) {
	var rows []domain.AvailabilityTemplate
	err := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("active").
		OrderExpr("weekday ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) CreateUnavailability(ctx context.Context, period domain.UnavailabilityPeriod) (domain.UnavailabilityPeriod, error) {
	m := period
	_, err := r.db.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		return domain.UnavailabilityPeriod{}, err
	}
	return m, nil
}

func (r *ScheduleRepo) ListUnavailability(ctx context.Context, doctorID string, from, to time.Time) ([]domain.UnavailabilityPeriod, error) {
	var rows []domain.UnavailabilityPeriod
	err := r.db.NewSelect().
		Model(&rows).
		Where("doctor_id = ?", doctorID).
		Where("start_date <= ?", to).
		Where("end_date >= ?", from).
		OrderExpr("start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
