package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evn/grubana/internal/models"
)

// 2026-03-02 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func everyDay(open, close string) models.BusinessHours {
	hours := models.BusinessHours{}
	for _, d := range models.Weekdays {
		hours[d] = models.DayHours{Open: open, Close: close}
	}
	return hours
}

func TestParseClock(t *testing.T) {
	cases := map[string]int{
		"9:00 AM":    9 * 60,
		"09:30 am":   9*60 + 30,
		" 5:00 PM ":  17 * 60,
		"12:00 AM":   0,
		"12:15 AM":   15,
		"12:00 PM":   12 * 60,
		"12:45 pm":   12*60 + 45,
		"11:59 PM":   23*60 + 59,
		"10:00PM":    22 * 60,
		"13:00 PM":   0,
		"0:30 AM":    0,
		"9:60 AM":    0,
		"9 AM":       0,
		"17:00":      0,
		"":           0,
		"noon":       0,
		"9:00 A.M.":  0,
		"9:000 AM":   0,
		"9:00 AM PM": 0,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseClock(in), "ParseClock(%q)", in)
	}
}

func TestParseClockStrict_ReportsFailure(t *testing.T) {
	_, err := ParseClockStrict("25:00 PM")
	require.Error(t, err)

	m, err := ParseClockStrict("1:05 pm")
	require.NoError(t, err)
	assert.Equal(t, 13*60+5, m)
}

func TestIsOpenNow_NormalWindow(t *testing.T) {
	schedule := everyDay("9:00 AM", "5:00 PM")

	assert.True(t, IsOpenNow(schedule, monday(9, 0)))
	assert.True(t, IsOpenNow(schedule, monday(16, 59)))
	assert.False(t, IsOpenNow(schedule, monday(17, 0)))
	assert.False(t, IsOpenNow(schedule, monday(8, 59)))
}

func TestIsOpenNow_OvernightWindow(t *testing.T) {
	schedule := everyDay("10:00 PM", "2:00 AM")

	assert.True(t, IsOpenNow(schedule, monday(23, 30)))
	assert.True(t, IsOpenNow(schedule, monday(1, 0)))
	assert.False(t, IsOpenNow(schedule, monday(3, 0)))
	assert.False(t, IsOpenNow(schedule, monday(9, 0)))
}

func TestIsOpenNow_ClosedDayOverridesHours(t *testing.T) {
	schedule := everyDay("12:00 AM", "11:59 PM")
	schedule["monday"] = models.DayHours{Open: "12:00 AM", Close: "11:59 PM", Closed: true}

	for h := 0; h < 24; h++ {
		assert.False(t, IsOpenNow(schedule, monday(h, 0)))
	}
}

func TestIsOpenNow_MissingDayIsClosed(t *testing.T) {
	schedule := models.BusinessHours{"tuesday": {Open: "9:00 AM", Close: "5:00 PM"}}

	assert.False(t, IsOpenNow(schedule, monday(10, 0)))
	assert.True(t, IsOpenNow(schedule, monday(10, 0).AddDate(0, 0, 1)))
}

func TestIsOpenNow_NilScheduleUsesDefault(t *testing.T) {
	assert.True(t, IsOpenNow(nil, monday(10, 0)))
	assert.False(t, IsOpenNow(nil, monday(18, 0)))

	sunday := monday(10, 0).AddDate(0, 0, -1)
	assert.False(t, IsOpenNow(nil, sunday))
	saturday := monday(10, 0).AddDate(0, 0, 5)
	assert.True(t, IsOpenNow(nil, saturday))
}

func TestIsOpenNow_UsesLocationOfNow(t *testing.T) {
	schedule := everyDay("9:00 AM", "5:00 PM")
	la := time.FixedZone("PST", -8*60*60)

	// 17:30 UTC is 9:30 in a UTC-8 zone.
	instant := monday(17, 30)
	assert.False(t, IsOpenNow(schedule, instant))
	assert.True(t, IsOpenNow(schedule, instant.In(la)))
}

func TestIsOpenNow_MalformedStringsDoNotPanic(t *testing.T) {
	schedule := everyDay("whenever", "5:00 PM")

	// open parses to midnight, so the window is 00:00-17:00
	assert.True(t, IsOpenNow(schedule, monday(1, 0)))
	assert.False(t, IsOpenNow(schedule, monday(18, 0)))
}

func TestIsOpenNow_Idempotent(t *testing.T) {
	schedule := everyDay("10:00 PM", "2:00 AM")
	at := monday(23, 0)

	assert.Equal(t, IsOpenNow(schedule, at), IsOpenNow(schedule, at))
	assert.Equal(t, IsOpenNow(nil, at), IsOpenNow(nil, at))
}

func TestValidateBusinessHours(t *testing.T) {
	require.NoError(t, ValidateBusinessHours(models.DefaultBusinessHours()))
	require.NoError(t, ValidateBusinessHours(everyDay("10:00 PM", "2:00 AM")))

	err := ValidateBusinessHours(models.BusinessHours{"funday": {Open: "9:00 AM", Close: "5:00 PM"}})
	assert.ErrorContains(t, err, "unknown day")

	bad := models.DefaultBusinessHours()
	bad["monday"] = models.DayHours{Open: "9", Close: "5:00 PM"}
	assert.ErrorContains(t, ValidateBusinessHours(bad), "monday open")

	allClosed := models.BusinessHours{}
	for _, d := range models.Weekdays {
		allClosed[d] = models.DayHours{Closed: true}
	}
	require.NoError(t, ValidateBusinessHours(allClosed))

	assert.Error(t, ValidateBusinessHours(models.BusinessHours{}))
}

func TestValidateBusinessHours_RequiresEveryDay(t *testing.T) {
	err := ValidateBusinessHours(models.BusinessHours{"monday": {Open: "9:00 AM", Close: "5:00 PM"}})
	assert.ErrorContains(t, err, "missing sunday")

	partial := models.DefaultBusinessHours()
	delete(partial, "thursday")
	assert.ErrorContains(t, ValidateBusinessHours(partial), "missing thursday")
}
