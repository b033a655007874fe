package domain

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]AppointmentStatus{
		{StatusRequested, StatusConfirmed},
		{StatusRequested, StatusCancelled},
		{StatusRequested, StatusNoShow},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusNoShow},
	}
	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Errorf("CanTransition(%s, %s) = false, want true", pair[0], pair[1])
		}
	}

	denied := [][2]AppointmentStatus{
		{StatusRequested, StatusCompleted},
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusConfirmed},
		{StatusCancelled, StatusConfirmed},
		{StatusCancelled, StatusRequested},
		{StatusNoShow, StatusConfirmed},
		{StatusConfirmed, StatusRequested},
	}
	for _, pair := range denied {
		if CanTransition(pair[0], pair[1]) {
			t.Errorf("CanTransition(%s, %s) = true, want false", pair[0], pair[1])
		}
	}
}

func TestTerminalStatesHaveNoOutgoingTransitions(t *testing.T) {
	all := []AppointmentStatus{StatusRequested, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow}
	for _, from := range all {
		if !from.IsTerminal() {
			continue
		}
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("terminal state %s has outgoing transition to %s", from, to)
			}
		}
	}
}

func TestValidateTransition_NoShowRequiresStartPassed(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	err := ValidateTransition(StatusConfirmed, StatusNoShow, start, start.Add(-time.Minute))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	if err := ValidateTransition(StatusConfirmed, StatusNoShow, start, start.Add(time.Minute)); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
}

func TestValidateTransition_CompleteRequiresStartPassed(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	err := ValidateTransition(StatusConfirmed, StatusCompleted, start, start.Add(-time.Hour))
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestValidateTransition_UnknownTarget(t *testing.T) {
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	err := ValidateTransition(StatusRequested, AppointmentStatus("rescheduled"), start, start)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestParseStatus(t *testing.T) {
	if _, err := ParseStatus("confirmed"); err != nil {
		t.Fatalf("ParseStatus(confirmed) error: %v", err)
	}
	if _, err := ParseStatus("nope"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestOccupies(t *testing.T) {
	if !StatusRequested.Occupies() || !StatusConfirmed.Occupies() {
		t.Fatalf("requested and confirmed must occupy their time range")
	}
	for _, s := range []AppointmentStatus{StatusCompleted, StatusCancelled, StatusNoShow} {
		if s.Occupies() {
			t.Errorf("%s should not occupy", s)
		}
	}
}
