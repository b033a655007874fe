package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"clinicbook/backend/internal/domain"
)

// Notifier emits appointment lifecycle events for downstream consumers
// (reminders, dashboards). Delivery is best effort: publishing never blocks
// or fails the booking path.
type Notifier interface {
	AppointmentCreated(ctx context.Context, appt domain.Appointment)
	AppointmentStatusChanged(ctx context.Context, appt domain.Appointment, previous domain.AppointmentStatus)
}

type event struct {
	AppointmentID uuid.UUID      `json:"appointment_id"`
	Type          string         `json:"type"`
	Payload       map[string]any `json:"payload"`
}

// RedisNotifier publishes events as JSON on a pub/sub channel.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisNotifier(rdb *redis.Client, channel string, logger *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = "clinicbook.appointments"
	}
	return &RedisNotifier{rdb: rdb, channel: channel, logger: logger}
}

func (n *RedisNotifier) AppointmentCreated(ctx context.Context, appt domain.Appointment) {
	n.publish(ctx, event{
		AppointmentID: appt.ID,
		Type:          "appointment.created",
		Payload: map[string]any{
			"doctor_id":  appt.DoctorID,
			"patient_id": appt.PatientID,
			"start_time": appt.StartTime.Format(time.RFC3339),
			"end_time":   appt.EndTime.Format(time.RFC3339),
			"status":     string(appt.Status),
		},
	})
}

func (n *RedisNotifier) AppointmentStatusChanged(ctx context.Context, appt domain.Appointment, previous domain.AppointmentStatus) {
	n.publish(ctx, event{
		AppointmentID: appt.ID,
		Type:          "appointment.status_changed",
		Payload: map[string]any{
			"doctor_id":       appt.DoctorID,
			"patient_id":      appt.PatientID,
			"previous_status": string(previous),
			"new_status":      string(appt.Status),
		},
	})
}

func (n *RedisNotifier) publish(ctx context.Context, ev event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		n.logger.Warn("encode notification", "error", err, "appointment_id", ev.AppointmentID)
		return
	}
	if err := n.rdb.Publish(ctx, n.channel, raw).Err(); err != nil {
		n.logger.Warn("publish notification", "error", err, "type", ev.Type, "appointment_id", ev.AppointmentID)
	}
}

// NopNotifier drops every event. Used when redis is not configured.
type NopNotifier struct{}

func (NopNotifier) AppointmentCreated(context.Context, domain.Appointment) {}

func (NopNotifier) AppointmentStatusChanged(context.Context, domain.Appointment, domain.AppointmentStatus) {
}
