package domain

import (
	"iter"
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Contains reports whether other fits entirely inside i.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Slot is a candidate bookable interval of fixed duration.
type Slot struct {
	Start time.Time
	End   time.Time
}

// ResolveInput carries everything the resolver needs, pre-fetched. The
// resolver itself never touches storage.
type ResolveInput struct {
	Templates   []AvailabilityTemplate
	Unavailable []UnavailabilityPeriod
	Booked      []Appointment

	// From and To are inclusive dates bounding the range.
	From time.Time
	To   time.Time

	SlotDuration time.Duration
	// Step is the grid granularity; zero means SlotDuration.
	Step time.Duration

	// Now excludes slots that already started on the current day.
	Now time.Time

	Location *time.Location
}

// ResolveSlots walks the date range day by day and emits bookable slots in
// ascending start order. The sequence is a read snapshot: a concurrent
// booking can invalidate it, and the commit path re-checks from source truth.
func ResolveSlots(in ResolveInput) iter.Seq[Slot] {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	step := in.Step
	if step <= 0 {
		step = in.SlotDuration
	}

	return func(yield func(Slot) bool) {
		if in.SlotDuration <= 0 {
			return
		}
		from := dateIn(in.From, loc)
		to := dateIn(in.To, loc)

		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			for _, free := range DayFreeIntervals(in.Templates, in.Unavailable, in.Booked, day, loc) {
				for start := free.Start; !start.Add(in.SlotDuration).After(free.End); start = start.Add(step) {
					if start.Before(in.Now) {
						continue
					}
					if !yield(Slot{Start: start, End: start.Add(in.SlotDuration)}) {
						return
					}
				}
			}
		}
	}
}

// DayFreeIntervals computes the free working time for one day: active
// templates for the weekday, minus breaks, minus occupying appointments.
// A day covered by any unavailability period yields nothing. The result is
// sorted and non-overlapping.
func DayFreeIntervals(templates []AvailabilityTemplate, unavailable []UnavailabilityPeriod, booked []Appointment, day time.Time, loc *time.Location) []Interval {
	day = dateIn(day, loc)

	for i := range unavailable {
		if unavailable[i].Covers(day) {
			return nil
		}
	}

	var free []Interval
	for i := range templates {
		t := &templates[i]
		if !t.Active || t.Weekday != day.Weekday() {
			continue
		}
		free = append(free, t.workingIntervals(day)...)
	}
	if len(free) == 0 {
		return nil
	}
	sort.Slice(free, func(i, j int) bool { return free[i].Start.Before(free[j].Start) })

	var busy []Interval
	for i := range booked {
		a := &booked[i]
		if !a.Status.Occupies() {
			continue
		}
		busy = append(busy, Interval{Start: a.StartTime.In(loc), End: a.EndTime.In(loc)})
	}

	return SubtractIntervals(free, busy)
}

// workingIntervals renders the template onto a concrete day, splitting the
// working window around the break when one is set.
func (t *AvailabilityTemplate) workingIntervals(day time.Time) []Interval {
	at := func(minute int) time.Time { return day.Add(time.Duration(minute) * time.Minute) }

	if t.BreakStart == nil || t.BreakEnd == nil {
		return []Interval{{Start: at(t.StartMinute), End: at(t.EndMinute)}}
	}

	out := make([]Interval, 0, 2)
	if *t.BreakStart > t.StartMinute {
		out = append(out, Interval{Start: at(t.StartMinute), End: at(*t.BreakStart)})
	}
	if *t.BreakEnd < t.EndMinute {
		out = append(out, Interval{Start: at(*t.BreakEnd), End: at(t.EndMinute)})
	}
	return out
}

// SubtractIntervals removes every busy interval from the sorted free list and
// returns the remaining free intervals, still sorted and non-overlapping.
func SubtractIntervals(free, busy []Interval) []Interval {
	for _, b := range busy {
		if len(free) == 0 {
			return free
		}
		next := make([]Interval, 0, len(free)+1)
		for _, f := range free {
			if !f.Overlaps(b) {
				next = append(next, f)
				continue
			}
			if b.Start.After(f.Start) {
				next = append(next, Interval{Start: f.Start, End: b.Start})
			}
			if b.End.Before(f.End) {
				next = append(next, Interval{Start: b.End, End: f.End})
			}
		}
		free = next
	}
	return free
}

// CoveredByFree reports whether the requested interval fits entirely inside
// one free interval. Used by the booking path to re-derive slot validity.
func CoveredByFree(free []Interval, want Interval) bool {
	for _, f := range free {
		if f.Contains(want) {
			return true
		}
	}
	return false
}

func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
