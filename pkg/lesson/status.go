package lesson

import "regexp"

var (
	nonLesson       = regexp.MustCompile(`(?i)break|teacher`)
	cafeLocation    = regexp.MustCompile(`(?i)\(\s*Cafe\s*\)`)
	onlineLocation  = regexp.MustCompile(`(?i)\(\s*Online\s*\)`)
	remoteLocation  = regexp.MustCompile(`(?i)\(\s*(Cafe|Online)\s*\)`)
	placeholderMark = regexp.MustCompile(`(?i)placeholder`)
)

// IsLesson reports whether the event is a lesson at all. Breaks and teacher
// meetings live in the same calendars and are dropped from every view.
func IsLesson(title string) bool {
	return !nonLesson.MatchString(title)
}

// IsOnline reports whether the lesson does not happen in the classroom.
func IsOnline(title string) bool {
	return remoteLocation.MatchString(title)
}

// DailyStatusOf classifies an event for the daily view. Color set by an
// operator wins over the location written in the title.
func DailyStatusOf(title string, color Color) DailyStatus {
	if status, ok := ColorStatus(color); ok {
		return status
	}
	return locationStatus(title)
}

func locationStatus(title string) DailyStatus {
	switch {
	case cafeLocation.MatchString(title):
		return StatusCafe
	case onlineLocation.MatchString(title):
		return StatusOnline
	default:
		return StatusRegular
	}
}

// MonthlyStatusOf classifies an event for the monthly view. Title markers are
// checked before the color.
func MonthlyStatusOf(title string, color Color) MonthlyStatus {
	switch {
	case placeholderMark.MatchString(title):
		return MonthlyReserved
	case rescheduledTag.MatchString(title):
		return MonthlyRescheduled
	}
	if status, ok := monthlyColorStatus[color]; ok {
		return status
	}
	return MonthlyScheduled
}
