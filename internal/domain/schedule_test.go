package domain

import (
	"testing"
	"time"
)

func TestAvailabilityTemplateValidate(t *testing.T) {
	base := func() AvailabilityTemplate {
		return AvailabilityTemplate{
			DoctorID:    "d1",
			Weekday:     time.Monday,
			StartMinute: 9 * 60,
			EndMinute:   17 * 60,
			Active:      true,
		}
	}

	t.Run("valid without break", func(t *testing.T) {
		tpl := base()
		if err := tpl.Validate(); err != nil {
			t.Fatalf("Validate error: %v", err)
		}
	})

	t.Run("valid with break", func(t *testing.T) {
		tpl := base()
		tpl.BreakStart = intPtr(12 * 60)
		tpl.BreakEnd = intPtr(13 * 60)
		if err := tpl.Validate(); err != nil {
			t.Fatalf("Validate error: %v", err)
		}
	})

	t.Run("start after end rejected", func(t *testing.T) {
		tpl := base()
		tpl.StartMinute = 18 * 60
		if err := tpl.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("break outside window rejected", func(t *testing.T) {
		tpl := base()
		tpl.BreakStart = intPtr(8 * 60)
		tpl.BreakEnd = intPtr(10 * 60)
		if err := tpl.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("half-set break rejected", func(t *testing.T) {
		tpl := base()
		tpl.BreakStart = intPtr(12 * 60)
		if err := tpl.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("break start at window start allowed", func(t *testing.T) {
		tpl := base()
		tpl.BreakStart = intPtr(9 * 60)
		tpl.BreakEnd = intPtr(10 * 60)
		if err := tpl.Validate(); err != nil {
			t.Fatalf("Validate error: %v", err)
		}
	})
}

func TestAvailabilityTemplateOverlaps(t *testing.T) {
	morning := AvailabilityTemplate{Weekday: time.Monday, StartMinute: 9 * 60, EndMinute: 12 * 60}
	afternoon := AvailabilityTemplate{Weekday: time.Monday, StartMinute: 12 * 60, EndMinute: 17 * 60}
	overlapping := AvailabilityTemplate{Weekday: time.Monday, StartMinute: 11 * 60, EndMinute: 13 * 60}
	otherDay := AvailabilityTemplate{Weekday: time.Tuesday, StartMinute: 9 * 60, EndMinute: 12 * 60}

	if morning.Overlaps(&afternoon) {
		t.Fatalf("back-to-back windows must not overlap")
	}
	if !morning.Overlaps(&overlapping) {
		t.Fatalf("expected overlap")
	}
	if morning.Overlaps(&otherDay) {
		t.Fatalf("different weekdays never overlap")
	}
}

func TestUnavailabilityPeriod(t *testing.T) {
	p := UnavailabilityPeriod{
		DoctorID:  "d1",
		StartDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC),
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	if !p.Covers(time.Date(2026, 1, 5, 15, 30, 0, 0, time.UTC)) {
		t.Fatalf("start day should be covered")
	}
	if !p.Covers(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end day is inclusive")
	}
	if p.Covers(time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day after end should not be covered")
	}

	bad := UnavailabilityPeriod{
		DoctorID:  "d1",
		StartDate: p.EndDate,
		EndDate:   p.StartDate,
	}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for reversed dates")
	}

	single := UnavailabilityPeriod{DoctorID: "d1", StartDate: p.StartDate, EndDate: p.StartDate}
	if err := single.Validate(); err != nil {
		t.Fatalf("single-day period must be valid: %v", err)
	}
}
