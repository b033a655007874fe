package scheduling

import (
	"context"
	"fmt"
	"time"

	"clinicbook/backend/internal/cache"
	"clinicbook/backend/internal/domain"
	"clinicbook/backend/internal/store"
)

type SlotQuery struct {
	DoctorID string
	// From and To are inclusive dates.
	From time.Time
	To   time.Time
	// Duration is the appointment length each slot must accommodate.
	Duration time.Duration
}

// GetAvailableSlots resolves the doctor's bookable slots over the date range.
// The result is a point-in-time read: a concurrent booking can take a listed
// slot, and Book re-checks before committing.
func (s *Service) GetAvailableSlots(ctx context.Context, q SlotQuery) ([]domain.Slot, error) {
	if q.DoctorID == "" {
		return nil, validationError("doctor_id", "doctor_id is required")
	}
	if q.Duration < MinAppointmentDuration || q.Duration > MaxAppointmentDuration {
		return nil, validationError("duration_minutes", fmt.Sprintf("duration must be between %d and %d minutes", int(MinAppointmentDuration.Minutes()), int(MaxAppointmentDuration.Minutes())))
	}
	if q.From.IsZero() || q.To.IsZero() {
		return nil, validationError("from", "from and to dates are required")
	}

	from := q.From.UTC()
	to := q.To.UTC()
	if to.Before(from) {
		return nil, validationError("to", "to must not be before from")
	}
	if int(to.Sub(from).Hours()/24)+1 > s.rangeDays {
		return nil, validationError("to", fmt.Sprintf("range must not exceed %d days", s.rangeDays))
	}

	ok, err := s.directory.DoctorExists(ctx, q.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("doctor lookup: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("doctor %s: %w", q.DoctorID, store.ErrNotFound)
	}

	key := cache.Key(q.DoctorID, from, to, q.Duration)
	if s.cache != nil {
		if slots, hit := s.cache.Get(ctx, key); hit {
			s.countSlotQuery("hit")
			return slots, nil
		}
	}
	s.countSlotQuery("miss")

	slots, err := s.resolveSlots(ctx, q.DoctorID, from, to, q.Duration)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, slots)
	}
	return slots, nil
}

func (s *Service) resolveSlots(ctx context.Context, doctorID string, from, to time.Time, duration time.Duration) ([]domain.Slot, error) {
	templates, err := s.schedule.ListActiveTemplates(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	unavailable, err := s.schedule.ListUnavailability(ctx, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list unavailability: %w", err)
	}
	booked, err := s.appts.ListOccupying(ctx, doctorID, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	slots := []domain.Slot{}
	for slot := range domain.ResolveSlots(domain.ResolveInput{
		Templates:    templates,
		Unavailable:  unavailable,
		Booked:       booked,
		From:         from,
		To:           to,
		SlotDuration: duration,
		Now:          s.now().UTC(),
	}) {
		slots = append(slots, slot)
	}
	return slots, nil
}
