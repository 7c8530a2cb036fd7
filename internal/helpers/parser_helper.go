package helpers

import (
	"strconv"
	"time"
)

func StringToInt(s string) (int, error) {
	return strconv.Atoi(s)
}

// IsValidTimeOfDay reports whether s is a well-formed "HH:MM" clock string.
func IsValidTimeOfDay(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	hour, err := strconv.Atoi(s[:2])
	if err != nil || hour < 0 || hour > 23 {
		return false
	}
	minute, err := strconv.Atoi(s[3:])
	if err != nil || minute < 0 || minute > 59 {
		return false
	}
	return true
}

func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
