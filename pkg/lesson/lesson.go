package lesson

import (
	"errors"
	"time"
)

// ErrCalendarNotConfigured is returned by event sources asked for a calendar
// that has no provider identifier configured.
var ErrCalendarNotConfigured = errors.New("calendar not configured")

type CalendarType string

const (
	MainCalendar  CalendarType = "main"
	DemoCalendar  CalendarType = "demo"
	OwnerCalendar CalendarType = "owner"
)

// CalendarTypes lists the lesson calendars in fetch order.
var CalendarTypes = []CalendarType{MainCalendar, DemoCalendar, OwnerCalendar}

// RawEvent is a calendar event as delivered by an event source.
type RawEvent struct {
	ID          string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Color       Color
	Calendar    CalendarType
}

type DailyStatus string

const (
	StatusRegular     DailyStatus = "regular"
	StatusCafe        DailyStatus = "cafe"
	StatusOnline      DailyStatus = "online"
	StatusCancelled   DailyStatus = "cancelled"
	StatusRescheduled DailyStatus = "rescheduled"
)

type MonthlyStatus string

const (
	MonthlyScheduled   MonthlyStatus = "scheduled"
	MonthlyReserved    MonthlyStatus = "reserved"
	MonthlyCancelled   MonthlyStatus = "cancelled"
	MonthlyRescheduled MonthlyStatus = "rescheduled"
	MonthlyDemo        MonthlyStatus = "demo"
)

// LessonRecord is one row of the daily view: one calendar event with all its students.
type LessonRecord struct {
	EventID             string
	EventName           string
	Start               string // HH:mm, local
	End                 string // HH:mm, local
	FolderName          string
	StudentNames        []string
	PdfUploaded         bool
	LessonHistoryLogged bool
	EvaluationReady     bool
	EvaluationDue       bool
	IsOnline            bool
	Status              DailyStatus
	Teacher             string
	CalendarType        CalendarType
}

// MonthlyLessonRow is one (event, student) pair of the monthly view.
type MonthlyLessonRow struct {
	EventID      string
	Title        string
	Date         time.Time
	Start        time.Time
	End          time.Time
	Status       MonthlyStatus
	StudentName  string
	IsKidsLesson bool
	TeacherName  string
}
