package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"clinicbook/backend/internal/domain"
)

const dateLayout = "2006-01-02"

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SlotsResponse struct {
	DoctorID string         `json:"doctor_id"`
	Slots    []SlotResponse `json:"slots"`
}

type CreateBookingRequest struct {
	DoctorID        string    `json:"doctor_id"`
	PatientID       string    `json:"patient_id"`
	StartTime       time.Time `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	Reason          string    `json:"reason"`
	Notes           string    `json:"notes,omitempty"`
	Actor           string    `json:"actor,omitempty"`
}

type TransitionRequest struct {
	Status string `json:"status"`
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type HistoryEntryResponse struct {
	PreviousStatus *string   `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Actor          string    `json:"actor"`
	Reason         string    `json:"reason,omitempty"`
	ChangedAt      time.Time `json:"changed_at"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	History []HistoryEntryResponse `json:"history"`
}

type CreateTemplateRequest struct {
	Weekday     int  `json:"weekday"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`
	BreakStart  *int `json:"break_start_minute,omitempty"`
	BreakEnd    *int `json:"break_end_minute,omitempty"`
}

type TemplateResponse struct {
	ID          uuid.UUID `json:"id"`
	DoctorID    string    `json:"doctor_id"`
	Weekday     int       `json:"weekday"`
	StartMinute int       `json:"start_minute"`
	EndMinute   int       `json:"end_minute"`
	BreakStart  *int      `json:"break_start_minute,omitempty"`
	BreakEnd    *int      `json:"break_end_minute,omitempty"`
	Active      bool      `json:"active"`
}

type CreateUnavailabilityRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

type UnavailabilityResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Reason    string    `json:"reason,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Field   string `json:"field,omitempty"`
}

func appointmentResponse(appt domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        appt.ID,
		DoctorID:  appt.DoctorID,
		PatientID: appt.PatientID,
		StartTime: appt.StartTime,
		EndTime:   appt.EndTime,
		Status:    string(appt.Status),
		Reason:    appt.Reason,
		Notes:     appt.Notes,
		CreatedAt: appt.CreatedAt,
		UpdatedAt: appt.UpdatedAt,
	}
}

func historyResponse(history []domain.StatusChange) []HistoryEntryResponse {
	out := make([]HistoryEntryResponse, 0, len(history))
	for _, h := range history {
		var previous *string
		if h.PreviousStatus != nil {
			s := string(*h.PreviousStatus)
			previous = &s
		}
		out = append(out, HistoryEntryResponse{
			PreviousStatus: previous,
			NewStatus:      string(h.NewStatus),
			Actor:          h.Actor,
			Reason:         h.Reason,
			ChangedAt:      h.ChangedAt,
		})
	}
	return out
}

func templateResponse(tpl domain.AvailabilityTemplate) TemplateResponse {
	return TemplateResponse{
		ID:          tpl.ID,
		DoctorID:    tpl.DoctorID,
		Weekday:     int(tpl.Weekday),
		StartMinute: tpl.StartMinute,
		EndMinute:   tpl.EndMinute,
		BreakStart:  tpl.BreakStart,
		BreakEnd:    tpl.BreakEnd,
		Active:      tpl.Active,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
