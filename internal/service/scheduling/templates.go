package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
)

type TemplateInput struct {
	DoctorID    string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	BreakStart  *int
	BreakEnd    *int
}

// CreateTemplate adds a weekly working window for the doctor. The store
// rejects windows overlapping an active template on the same weekday.
func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput) (domain.AvailabilityTemplate, error) {
	if in.DoctorID == "" {
		return domain.AvailabilityTemplate{}, validationError("doctor_id", "doctor_id is required")
	}

	tpl := domain.AvailabilityTemplate{
		DoctorID:    in.DoctorID,
		Weekday:     in.Weekday,
		StartMinute: in.StartMinute,
		EndMinute:   in.EndMinute,
		BreakStart:  in.BreakStart,
		BreakEnd:    in.BreakEnd,
		Active:      true,
	}
	if err := tpl.Validate(); err != nil {
		return domain.AvailabilityTemplate{}, validationError("template", err.Error())
	}

	created, err := s.schedule.CreateTemplate(ctx, tpl)
	if err != nil {
		return domain.AvailabilityTemplate{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(context.WithoutCancel(ctx), in.DoctorID)
	}
	return created, nil
}

// DeactivateTemplate retires a working window. Existing appointments keep
// their time; the window just stops producing slots.
func (s *Service) DeactivateTemplate(ctx context.Context, doctorID string, templateID uuid.UUID) error {
	if doctorID == "" {
		return validationError("doctor_id", "doctor_id is required")
	}
	if templateID == uuid.Nil {
		return validationError("template_id", "template_id is required")
	}

	if err := s.schedule.DeactivateTemplate(ctx, doctorID, templateID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(context.WithoutCancel(ctx), doctorID)
	}
	return nil
}

type UnavailabilityInput struct {
	DoctorID  string
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

// CreateUnavailability blocks whole days for the doctor, both dates inclusive.
func (s *Service) CreateUnavailability(ctx context.Context, in UnavailabilityInput) (domain.UnavailabilityPeriod, error) {
	if in.DoctorID == "" {
		return domain.UnavailabilityPeriod{}, validationError("doctor_id", "doctor_id is required")
	}

	period := domain.UnavailabilityPeriod{
		DoctorID:  in.DoctorID,
		StartDate: in.StartDate.UTC(),
		EndDate:   in.EndDate.UTC(),
		Reason:    strings.TrimSpace(in.Reason),
	}
	if err := period.Validate(); err != nil {
		return domain.UnavailabilityPeriod{}, validationError("unavailability", err.Error())
	}

	created, err := s.schedule.CreateUnavailability(ctx, period)
	if err != nil {
		return domain.UnavailabilityPeriod{}, err
	}

	if s.cache != nil {
		s.cache.Invalidate(context.WithoutCancel(ctx), in.DoctorID)
	}
	return created, nil
}
