package models

import (
	"strings"
	"time"
)

// DayHours is one weekday entry of an owner's schedule.
// Open and Close are 12-hour clock strings such as "9:00 AM".
type DayHours struct {
	Open   string `json:"open" firestore:"open"`
	Close  string `json:"close" firestore:"close"`
	Closed bool   `json:"closed" firestore:"closed"`
}

// BusinessHours maps lowercase weekday names ("sunday".."saturday") to their hours.
// A nil BusinessHours means the owner never configured a schedule.
type BusinessHours map[string]DayHours

// Weekdays lists schedule keys in time.Weekday order.
var Weekdays = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayKey returns the schedule key for d.
func WeekdayKey(d time.Weekday) string {
	return Weekdays[d]
}

// IsWeekdayKey reports whether key is one of the seven schedule keys.
func IsWeekdayKey(key string) bool {
	for _, d := range Weekdays {
		if d == key {
			return true
		}
	}
	return false
}

// Normalize lowercases and trims the day keys. Unknown keys are kept so validation can report them.
func (b BusinessHours) Normalize() BusinessHours {
	if b == nil {
		return nil
	}
	out := make(BusinessHours, len(b))
	for k, v := range b {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

const (
	defaultOpen  = "9:00 AM"
	defaultClose = "5:00 PM"
)

// DefaultBusinessHours is the system-wide schedule applied when an owner has none:
// Monday to Saturday 9:00 AM - 5:00 PM, Sunday closed.
func DefaultBusinessHours() BusinessHours {
	hours := make(BusinessHours, len(Weekdays))
	for _, d := range Weekdays {
		hours[d] = DayHours{Open: defaultOpen, Close: defaultClose}
	}
	hours["sunday"] = DayHours{Open: defaultOpen, Close: defaultClose, Closed: true}
	return hours
}
