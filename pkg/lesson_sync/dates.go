package lesson_sync

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/greensquare/lessonsync/internal/utils"
)

var (
	dayMonthYear = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	yearMonth    = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	yearMonthDay = regexp.MustCompile(`^(\d{4})-(\d{2})-\d{2}$`)
	monthName    = regexp.MustCompile(`^(January|February|March|April|May|June|July|August|September|October|November|December) (\d{4})$`)
)

// Layouts of calendar-system date strings accepted as a month.
var looseDateLayouts = []string{
	time.RFC3339,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 02 2006",
	time.RFC1123,
	time.RFC1123Z,
	"Jan 2, 2006",
}

// ParseDailyOverride reads a DD/MM/YYYY date as local midnight in loc.
// An empty value means today.
func ParseDailyOverride(value string, now time.Time, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return utils.StartOfDay(now, loc), nil
	}
	m := dayMonthYear.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return validDate(value, m[3], m[2], m[1], loc)
}

// ResolveMonth returns the first day of the month named by value. Accepted:
// YYYY-MM, YYYY-MM-DD, D/M/YYYY, "Month YYYY" and a few calendar-system date
// strings. An empty value means the current month.
func ResolveMonth(value string, now time.Time, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return utils.StartOfMonth(now, loc), nil
	}

	if m := yearMonth.FindStringSubmatch(value); m != nil {
		return validMonth(value, m[1], m[2], loc)
	}
	if m := yearMonthDay.FindStringSubmatch(value); m != nil {
		return validMonth(value, m[1], m[2], loc)
	}
	if m := dayMonthYear.FindStringSubmatch(value); m != nil {
		day, err := validDate(value, m[3], m[2], m[1], loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
		}
		return utils.StartOfMonth(day, loc), nil
	}
	if m := monthName.FindStringSubmatch(value); m != nil {
		t, err := time.ParseInLocation("January 2006", value, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
		}
		return t, nil
	}
	// "Fri Oct 16 2026 09:00:00 GMT+0900 (Japan Standard Time)"
	loose, _, _ := strings.Cut(value, " (")
	for _, layout := range looseDateLayouts {
		if t, err := time.Parse(layout, loose); err == nil {
			return utils.StartOfMonth(t, loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
}

func validMonth(value, year, month string, loc *time.Location) (time.Time, error) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	if m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, loc), nil
}

// validDate rejects dates time.Date would normalize, such as 31/02/2026.
func validDate(value, year, month, day string, loc *time.Location) (time.Time, error) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return t, nil
}
