package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestDaySlots(t *testing.T) {
	day := time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC)
	slots := DaySlots(day, time.UTC)

	require.Len(t, slots, 16)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), slots[0])
	assert.Equal(t, time.Date(2024, 6, 1, 16, 30, 0, 0, time.UTC), slots[15])
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, SlotLength, slots[i].Sub(slots[i-1]))
	}
}

func TestDaySlotsInClinicZone(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	day := time.Date(2024, 6, 1, 12, 0, 0, 0, ny)
	slots := DaySlots(day, ny)

	require.Len(t, slots, 16)
	// 09:00 EDT
	assert.Equal(t, time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC), slots[0])
	assert.Equal(t, time.UTC, slots[0].Location())
}

func TestHorizonSixteenPerDay(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	from := time.Date(2024, 3, 1, 20, 0, 0, 0, ny)

	slots := Horizon(from, HorizonDays, ny)
	require.Len(t, slots, HorizonDays*SlotsPerDay)

	perDay := map[string]int{}
	for _, s := range slots {
		local := s.In(ny)
		perDay[local.Format("2006-01-02")]++
		h := local.Hour()
		assert.True(t, h >= DayStartHour && h < DayEndHour, "slot %s outside working hours", local)
	}
	assert.Len(t, perDay, HorizonDays)
	for d, n := range perDay {
		assert.Equal(t, SlotsPerDay, n, "day %s", d)
	}
	assert.Equal(t, "2024-03-01", slots[0].In(ny).Format("2006-01-02"))
}

func TestHorizonEmpty(t *testing.T) {
	assert.Empty(t, Horizon(time.Now(), 0, time.UTC))
}

func TestAvailable(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	taken := []time.Time{
		time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 13, 30, 0, 0, time.UTC),
		time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC),  // other day
		time.Date(2024, 6, 1, 10, 15, 0, 0, time.UTC), // not a slot start
	}

	got := Available(day, time.UTC, taken)
	require.Len(t, got, 14)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC), got[0])
	for _, s := range got {
		assert.False(t, s.Equal(taken[0]))
		assert.False(t, s.Equal(taken[1]))
	}
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Before(got[i]))
	}
}

func TestAvailableComparesInstantsAcrossZones(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	day := time.Date(2024, 6, 1, 12, 0, 0, 0, ny)
	// 09:00 EDT expressed in another zone
	booked := time.Date(2024, 6, 1, 13, 0, 0, 0, time.UTC).In(mustLoc(t, "Europe/Berlin"))

	got := Available(day, ny, []time.Time{booked})
	require.Len(t, got, 15)
	assert.Equal(t, 9, got[0].In(ny).Hour())
	assert.Equal(t, 30, got[0].In(ny).Minute())
}

func TestIsSlotStart(t *testing.T) {
	assert.True(t, IsSlotStart(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), time.UTC))
	assert.True(t, IsSlotStart(time.Date(2024, 6, 1, 16, 30, 0, 0, time.UTC), time.UTC))
	assert.False(t, IsSlotStart(time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC), time.UTC))
	assert.False(t, IsSlotStart(time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC), time.UTC))
	assert.False(t, IsSlotStart(time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC), time.UTC))
}

func TestDayBounds(t *testing.T) {
	ny := mustLoc(t, "America/New_York")
	start, end := DayBounds(time.Date(2024, 6, 1, 23, 0, 0, 0, ny), ny)
	assert.Equal(t, time.Date(2024, 6, 1, 4, 0, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}
