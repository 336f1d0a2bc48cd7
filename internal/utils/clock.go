package utils

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}

// StartOfDay returns local midnight of the day t falls on in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	day := t.In(loc)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
}

// StartOfMonth returns local midnight of the first day of the month t falls on in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	day := t.In(loc)
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
}
