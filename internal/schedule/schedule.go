// Package schedule computes a doctor's bookable half-hour slots. Every
// instant it returns is in UTC; the clinic location only decides where a
// calendar day and its 09:00 to 17:00 window fall.
package schedule

import (
	"sort"
	"time"
)

const (
	SlotLength   = 30 * time.Minute
	DayStartHour = 9
	DayEndHour   = 17
	SlotsPerDay  = (DayEndHour - DayStartHour) * int(time.Hour/SlotLength)

	// HorizonDays is how far ahead slots are generated for a new doctor.
	HorizonDays = 365
)

// DayBounds returns the start and end of the local calendar day containing t.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// DaySlots returns the slot starts for the local day containing day.
func DaySlots(day time.Time, loc *time.Location) []time.Time {
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), DayStartHour, 0, 0, 0, loc)
	end := time.Date(d.Year(), d.Month(), d.Day(), DayEndHour, 0, 0, 0, loc)

	out := make([]time.Time, 0, SlotsPerDay)
	for t := start; t.Before(end); t = t.Add(SlotLength) {
		out = append(out, t.UTC())
	}
	return out
}

// Horizon returns the slot starts of days consecutive local days beginning
// with the day containing from.
func Horizon(from time.Time, days int, loc *time.Location) []time.Time {
	if days <= 0 {
		return nil
	}
	f := from.In(loc)
	first := time.Date(f.Year(), f.Month(), f.Day(), 12, 0, 0, 0, loc)

	out := make([]time.Time, 0, days*SlotsPerDay)
	for i := 0; i < days; i++ {
		out = append(out, DaySlots(first.AddDate(0, 0, i), loc)...)
	}
	return out
}

// Available subtracts taken instants from the day's slots. taken may hold
// anything (appointments, blocks, instants on other days); only exact slot
// starts remove a slot. The result is ascending.
func Available(day time.Time, loc *time.Location, taken []time.Time) []time.Time {
	busy := make(map[int64]struct{}, len(taken))
	for _, t := range taken {
		busy[t.Unix()] = struct{}{}
	}

	all := DaySlots(day, loc)
	out := make([]time.Time, 0, len(all))
	for _, s := range all {
		if _, ok := busy[s.Unix()]; !ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// IsSlotStart reports whether t is exactly one of the slot starts of its
// local day.
func IsSlotStart(t time.Time, loc *time.Location) bool {
	for _, s := range DaySlots(t, loc) {
		if s.Equal(t) {
			return true
		}
	}
	return false
}
