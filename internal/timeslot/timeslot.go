// Package timeslot implements the wall-clock arithmetic behind timetable
// conflict detection. Times are seconds since midnight; bookings recur weekly
// on a day-of-week where 0 is Sunday and 6 is Saturday.
package timeslot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// SecondsPerDay bounds a wall-clock value.
	SecondsPerDay = 24 * 60 * 60
)

var clockPattern = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):([0-5][0-9])(?::([0-5][0-9]))?$`)

var dayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// ParseClock converts "HH:MM" or "HH:MM:SS" into seconds since midnight.
func ParseClock(raw string) (int, error) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM or HH:MM:SS", raw)
	}
	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds := 0
	if match[3] != "" {
		seconds, _ = strconv.Atoi(match[3])
	}
	return hours*3600 + minutes*60 + seconds, nil
}

// FormatClock renders seconds since midnight as "HH:MM:SS".
func FormatClock(sec int) string {
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec%3600/60, sec%60)
}

// ValidDay reports whether day is a valid day-of-week index.
func ValidDay(day int) bool {
	return day >= 0 && day <= 6
}

// DayName returns the English name for a day-of-week index, or empty when out of range.
func DayName(day int) string {
	if !ValidDay(day) {
		return ""
	}
	return dayNames[day]
}

// Overlaps reports whether two weekly bookings collide. Ranges are half-open
// [start, end): bookings that only touch at a boundary instant do not overlap,
// and bookings on different days never overlap.
func Overlaps(dayA, startA, endA, dayB, startB, endB int) bool {
	if dayA != dayB {
		return false
	}
	return startA < endB && startB < endA
}
