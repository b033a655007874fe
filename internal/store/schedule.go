package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
)

// ScheduleRepository holds the recurring weekly templates and the dated
// exception periods per doctor.
type ScheduleRepository interface {
	CreateTemplate(ctx context.Context, tpl domain.AvailabilityTemplate) (domain.AvailabilityTemplate, error)
	// DeactivateTemplate clears the active flag; templates are never deleted.
	DeactivateTemplate(ctx context.Context, doctorID string, templateID uuid.UUID) error
	ListActiveTemplates(ctx context.Context, doctorID string) ([]domain.AvailabilityTemplate, error)

	CreateUnavailability(ctx context.Context, period domain.UnavailabilityPeriod) (domain.UnavailabilityPeriod, error)
	// ListUnavailability returns periods touching the inclusive date range.
	ListUnavailability(ctx context.Context, doctorID string, from, to time.Time) ([]domain.UnavailabilityPeriod, error)
}
