// Package gpstime holds the GPS week/time-of-week representation used by
// FP_A messages.
//
// The zero value is the "invalid/unknown" time that sensors report before the
// first fix (blank week and time-of-week on the wire). A genuine reading of
// week 0, tow 0 (the epoch itself) is indistinguishable from it and is
// reported as invalid too.
package gpstime

import (
	"fmt"
	"math"
	"time"
)

const (
	// SecondsPerWeek is the length of one GPS week.
	SecondsPerWeek = 604800.0

	// LeapSeconds is the GPS-UTC offset in effect since 2017-01-01.
	LeapSeconds = 18

	// MaxWeek is the largest week GPS can represent; later instants do not
	// fit a time.Duration from Epoch.
	MaxWeek = 15000
)

// Epoch is the start of GPS week 0.
var Epoch = time.Date(1980, time.January, 6, 0, 0, 0, 0, time.UTC)

// Invalid is the canonical unknown time.
var Invalid = Time{}

// Time is an absolute GPS time expressed as week number and seconds of week.
type Time struct {
	Week int
	Tow  float64
}

// FromWeekTow builds a Time, carrying whole weeks out of tow so that Tow is
// always in [0, SecondsPerWeek). Callers must keep the carried week within
// MaxWeek; see InRange.
func FromWeekTow(week int, tow float64) Time {
	if tow >= SecondsPerWeek || tow < 0 {
		carry := math.Floor(tow / SecondsPerWeek)
		week += int(carry)
		tow -= carry * SecondsPerWeek
	}
	return Time{Week: week, Tow: tow}
}

// InRange reports whether week and tow carry to a Time no later than MaxWeek
// without overflowing.
func InRange(week int, tow float64) bool {
	if week < 0 || week > MaxWeek || tow < 0 || math.IsNaN(tow) {
		return false
	}
	return math.Floor(tow/SecondsPerWeek) <= float64(MaxWeek-week)
}

func (t Time) IsZero() bool {
	return t == Invalid
}

// GPS returns the instant on the GPS time scale (no leap seconds applied).
func (t Time) GPS() time.Time {
	sec, frac := math.Modf(t.Tow)
	d := time.Duration(t.Week)*7*24*time.Hour +
		time.Duration(sec)*time.Second +
		time.Duration(math.Round(frac*1e9))*time.Nanosecond
	return Epoch.Add(d)
}

// UTC returns the instant on the UTC scale given the GPS-UTC leap second
// offset.
func (t Time) UTC(leap int) time.Time {
	return t.GPS().Add(-time.Duration(leap) * time.Second)
}

// Before reports whether t is earlier than u.
func (t Time) Before(u Time) bool {
	if t.Week != u.Week {
		return t.Week < u.Week
	}
	return t.Tow < u.Tow
}

func (t Time) String() string {
	if t.IsZero() {
		return "invalid"
	}
	return fmt.Sprintf("%d:%.6f", t.Week, t.Tow)
}
