package scheduling

import (
	"log/slog"
	"time"

	"clinicbook/backend/internal/cache"
	"clinicbook/backend/internal/metrics"
	"clinicbook/backend/internal/notify"
	"clinicbook/backend/internal/profile"
	"clinicbook/backend/internal/store"
)

// ValidationError marks a rejected input. Field names the offending request
// field so the transport layer can echo it back.
type ValidationError struct {
	Field string
	msg   string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(field, msg string) error {
	return &ValidationError{Field: field, msg: msg}
}

const (
	// Appointment length bounds, in line with clinical slot conventions.
	MinAppointmentDuration = 15 * time.Minute
	MaxAppointmentDuration = 240 * time.Minute

	defaultMaxRangeDays = 31
	defaultRetryDelay   = 100 * time.Millisecond
)

// Deps wires the service. Cache and Notifier may be nil; the service then runs
// without caching and without event publication. Metrics may be nil in tests.
type Deps struct {
	Appointments store.AppointmentRepository
	Schedule     store.ScheduleRepository
	Directory    profile.Directory
	Cache        cache.SlotCache
	Notifier     notify.Notifier
	Metrics      *metrics.Collector
	Logger       *slog.Logger

	MinLeadTime  time.Duration
	MaxRangeDays int

	// Now is the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

type Service struct {
	appts      store.AppointmentRepository
	schedule   store.ScheduleRepository
	directory  profile.Directory
	cache      cache.SlotCache
	notifier   notify.Notifier
	metrics    *metrics.Collector
	logger     *slog.Logger
	leadTime   time.Duration
	rangeDays  int
	retryDelay time.Duration
	now        func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		appts:      d.Appointments,
		schedule:   d.Schedule,
		directory:  d.Directory,
		cache:      d.Cache,
		notifier:   d.Notifier,
		metrics:    d.Metrics,
		logger:     d.Logger,
		leadTime:   d.MinLeadTime,
		rangeDays:  d.MaxRangeDays,
		retryDelay: defaultRetryDelay,
		now:        d.Now,
	}
	if s.notifier == nil {
		s.notifier = notify.NopNotifier{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.rangeDays <= 0 {
		s.rangeDays = defaultMaxRangeDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Service) countBooking(result string) {
	if s.metrics != nil {
		s.metrics.BookingsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countSlotQuery(cacheOutcome string) {
	if s.metrics != nil {
		s.metrics.SlotQueriesTotal.WithLabelValues(cacheOutcome).Inc()
	}
}

func (s *Service) countTransition(target, result string) {
	if s.metrics != nil {
		s.metrics.TransitionsTotal.WithLabelValues(target, result).Inc()
	}
}
