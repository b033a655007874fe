package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const minutesPerDay = 24 * 60

// AvailabilityTemplate is one recurring weekly working window for a doctor.
// Times are minutes from local midnight so a template is independent of any
// particular date. Templates are deactivated rather than deleted so historic
// appointments keep their context.
type AvailabilityTemplate struct {
	bun.BaseModel `bun:"table:availability_templates"`

	ID          uuid.UUID    `bun:"id,pk,type:uuid"`
	DoctorID    string       `bun:"doctor_id,notnull"`
	Weekday     time.Weekday `bun:"weekday,notnull"`
	StartMinute int          `bun:"start_minute,notnull"`
	EndMinute   int          `bun:"end_minute,notnull"`
	BreakStart  *int         `bun:"break_start_minute"`
	BreakEnd    *int         `bun:"break_end_minute"`
	Active      bool         `bun:"active,notnull"`
	CreatedAt   time.Time    `bun:"created_at,notnull"`
	UpdatedAt   time.Time    `bun:"updated_at,notnull"`
}

func (t *AvailabilityTemplate) Validate() error {
	if t.Weekday < time.Sunday || t.Weekday > time.Saturday {
		return fmt.Errorf("weekday %d out of range", t.Weekday)
	}
	if t.StartMinute < 0 || t.EndMinute > minutesPerDay {
		return errors.New("working window outside the day")
	}
	if t.StartMinute >= t.EndMinute {
		return errors.New("start must be before end")
	}
	if (t.BreakStart == nil) != (t.BreakEnd == nil) {
		return errors.New("break start and end must be set together")
	}
	if t.BreakStart != nil {
		if *t.BreakStart >= *t.BreakEnd {
			return errors.New("break start must be before break end")
		}
		if *t.BreakStart < t.StartMinute || *t.BreakEnd > t.EndMinute {
			return errors.New("break must fall within the working window")
		}
	}
	return nil
}

// Overlaps reports whether two templates on the same weekday share working
// time. Active templates for one doctor and weekday must not overlap.
func (t *AvailabilityTemplate) Overlaps(other *AvailabilityTemplate) bool {
	if t.Weekday != other.Weekday {
		return false
	}
	return t.StartMinute < other.EndMinute && t.EndMinute > other.StartMinute
}

func (t *AvailabilityTemplate) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if t.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			t.ID = id
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
		if t.UpdatedAt.IsZero() {
			t.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		t.UpdatedAt = now
	}
	return nil
}

// UnavailabilityPeriod blocks a doctor for whole days, start and end
// inclusive at date granularity. Overlapping periods are fine; any day
// covered by any period is unavailable.
type UnavailabilityPeriod struct {
	bun.BaseModel `bun:"table:unavailability_periods"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	DoctorID  string    `bun:"doctor_id,notnull"`
	StartDate time.Time `bun:"start_date,notnull"`
	EndDate   time.Time `bun:"end_date,notnull"`
	Reason    string    `bun:"reason"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

func (p *UnavailabilityPeriod) Validate() error {
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return errors.New("start and end dates are required")
	}
	if dateOf(p.EndDate).Before(dateOf(p.StartDate)) {
		return errors.New("end date must not be before start date")
	}
	return nil
}

// Covers reports whether the given day falls inside the period.
func (p *UnavailabilityPeriod) Covers(day time.Time) bool {
	d := dateOf(day)
	return !d.Before(dateOf(p.StartDate)) && !d.After(dateOf(p.EndDate))
}

func (p *UnavailabilityPeriod) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if p.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		p.ID = id
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	return nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
