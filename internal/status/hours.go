package status

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/evn/grubana/internal/models"
)

var clockPattern = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)$`)

// ParseClock converts an "h:mm AM|PM" string into minutes since midnight.
// Anything it cannot read yields 0 so a bad schedule only affects the open badge.
func ParseClock(s string) int {
	m, err := ParseClockStrict(s)
	if err != nil {
		return 0
	}
	return m
}

// ParseClockStrict is ParseClock with the failure reported.
func ParseClockStrict(s string) (int, error) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if match == nil {
		return 0, fmt.Errorf("parse clock %q: expected h:mm AM|PM", s)
	}

	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if hour < 1 || hour > 12 {
		return 0, fmt.Errorf("parse clock %q: hour out of range", s)
	}
	if minute > 59 {
		return 0, fmt.Errorf("parse clock %q: minute out of range", s)
	}

	if hour == 12 {
		hour = 0
	}
	if strings.EqualFold(match[3], "PM") {
		hour += 12
	}
	return hour*60 + minute, nil
}

// MinutesOfDay returns now's wall-clock minutes in now's own location.
func MinutesOfDay(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

// IsOpenNow reports whether now falls within the schedule's hours for now's weekday.
// A nil schedule means the default schedule. Windows whose close is not after open
// are treated as running past midnight.
func IsOpenNow(schedule models.BusinessHours, now time.Time) bool {
	if schedule == nil {
		schedule = models.DefaultBusinessHours()
	}

	day, ok := schedule[models.WeekdayKey(now.Weekday())]
	if !ok || day.Closed {
		return false
	}

	openMinutes := ParseClock(day.Open)
	closeMinutes := ParseClock(day.Close)
	current := MinutesOfDay(now)

	if closeMinutes > openMinutes {
		return openMinutes <= current && current < closeMinutes
	}
	return current >= openMinutes || current < closeMinutes
}

// ValidateBusinessHours checks a schedule before it is stored.
// Evaluation never needs this; it exists so owners get feedback at write time.
func ValidateBusinessHours(hours models.BusinessHours) error {
	if len(hours) == 0 {
		return fmt.Errorf("business hours: schedule is empty")
	}
	for day := range hours {
		if !models.IsWeekdayKey(day) {
			return fmt.Errorf("business hours: unknown day %q", day)
		}
	}
	// every day must be present; a day off is {"closed": true}
	for _, day := range models.Weekdays {
		h, ok := hours[day]
		if !ok {
			return fmt.Errorf("business hours: missing %s", day)
		}
		if h.Closed {
			continue
		}
		if _, err := ParseClockStrict(h.Open); err != nil {
			return fmt.Errorf("business hours: %s open: %w", day, err)
		}
		if _, err := ParseClockStrict(h.Close); err != nil {
			return fmt.Errorf("business hours: %s close: %w", day, err)
		}
	}
	return nil
}
