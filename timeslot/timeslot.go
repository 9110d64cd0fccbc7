// Package timeslot maps absolute instants to the recurring weekly slots and
// calendar days used to key stored occupancy samples.
//
// All projections are done in UTC. The upstream sensor reports instantaneous
// values with no zone information, so the process must pick one fixed zone to
// keep slot keys stable across DST transitions.
package timeslot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultResolution is the time-of-day granularity of a slot key. It matches
// the default polling interval, so consecutive polls land on distinct slots.
const DefaultResolution = 15 * time.Minute

const (
	// TimestampLayout is the format of history entry keys. Lexicographic
	// order of formatted timestamps equals chronological order.
	TimestampLayout = "2006/01/02 15:04"
	// DayLayout is the format of calendar day keys, a prefix of TimestampLayout.
	DayLayout = "2006/01/02"
)

// A SlotKey identifies one recurring weekly time bucket, e.g. "monday 09:15".
// It carries no calendar date and recurs every 7 days.
type SlotKey string

// A DayKey identifies one specific calendar date, e.g. "2026/08/31".
type DayKey string

// ErrInvalidWeekday is returned when a weekday name is not one of the seven
// recognized lowercase names.
var ErrInvalidWeekday = errors.New("invalid weekday name")

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Weekdays returns the seven recognized weekday names, in week order starting
// on Sunday.
func Weekdays() []string {
	return []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
}

// ParseWeekday resolves a lowercase weekday name to its time.Weekday. Returns
// ErrInvalidWeekday for anything else, including mixed-case spellings coming
// from unvalidated request paths.
func ParseWeekday(name string) (time.Weekday, error) {
	if wd, ok := weekdayNames[name]; ok {
		return wd, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeekday, name)
}

// Slot projects an instant onto its recurring weekly slot, truncating the
// time-of-day to the given resolution. Instants exactly 7 days apart always
// yield the same key.
func Slot(t time.Time, resolution time.Duration) SlotKey {
	t = t.UTC().Truncate(resolution)
	name := strings.ToLower(t.Weekday().String())
	return SlotKey(name + " " + t.Format("15:04"))
}

// TimeOfDay returns the "HH:MM" portion of the key, used for chronological
// ordering of slots within one weekday.
func (k SlotKey) TimeOfDay() string {
	if i := strings.LastIndexByte(string(k), ' '); i >= 0 {
		return string(k[i+1:])
	}
	return string(k)
}

// Day projects an instant onto its UTC calendar date.
func Day(t time.Time) DayKey {
	return DayKey(t.UTC().Format(DayLayout))
}

// Timestamp formats an instant as a full history entry key, truncated to the
// given resolution.
func Timestamp(t time.Time, resolution time.Duration) string {
	return t.UTC().Truncate(resolution).Format(TimestampLayout)
}

// LastOccurrence returns the most recent occurrence of the given weekday
// strictly before ref's UTC date, at midnight UTC. When ref itself falls on
// that weekday the result is 7 days earlier, never the same day: the current
// day is still accumulating samples and is served by the "today" query
// instead.
func LastOccurrence(weekday time.Weekday, ref time.Time) time.Time {
	ref = ref.UTC()
	date := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
	daysBack := int(date.Weekday()-weekday+7) % 7
	if daysBack == 0 {
		daysBack = 7
	}
	return date.AddDate(0, 0, -daysBack)
}
