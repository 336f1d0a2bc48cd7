package lesson

import (
	"time"
)

const clockLayout = "15:04"

// FolderResolver maps a canonical student name to its storage folder, "" when unknown.
type FolderResolver func(studentName string) string

// DailyEntry is a single student of a single event, before grouping.
type DailyEntry struct {
	EventID         string
	EventName       string
	Start           string
	End             string
	StudentName     string
	FolderName      string
	EvaluationReady bool
	EvaluationDue   bool
	IsOnline        bool
	Status          DailyStatus
	Teacher         string
	CalendarType    CalendarType
}

// FlattenDaily emits one entry per parsed student of the event.
func FlattenDaily(event RawEvent, parsed ParsedTitle, status DailyStatus, folders FolderResolver, loc *time.Location) []DailyEntry {
	entries := make([]DailyEntry, 0, len(parsed.Students))
	for _, student := range parsed.Students {
		folder := ""
		if parsed.DemoDownload {
			folder = student + " " + DemoFolderSuffix
		} else if folders != nil {
			folder = folders(student)
		}
		entries = append(entries, DailyEntry{
			EventID:         event.ID,
			EventName:       event.Title,
			Start:           event.Start.In(loc).Format(clockLayout),
			End:             event.End.In(loc).Format(clockLayout),
			StudentName:     student,
			FolderName:      folder,
			EvaluationReady: parsed.EvaluationReady,
			EvaluationDue:   parsed.EvaluationDue,
			IsOnline:        IsOnline(event.Title),
			Status:          status,
			Teacher:         parsed.Teacher,
			CalendarType:    event.Calendar,
		})
	}
	return entries
}

// GroupDaily merges entries sharing an event id into one record per event, in
// order of first appearance. The first entry fixes times, folder and status;
// evaluation flags are OR-ed and the first non-empty teacher wins.
func GroupDaily(entries []DailyEntry) []LessonRecord {
	index := make(map[string]int, len(entries))
	records := make([]LessonRecord, 0, len(entries))

	for _, entry := range entries {
		i, seen := index[entry.EventID]
		if !seen {
			index[entry.EventID] = len(records)
			records = append(records, LessonRecord{
				EventID:         entry.EventID,
				EventName:       entry.EventName,
				Start:           entry.Start,
				End:             entry.End,
				FolderName:      entry.FolderName,
				StudentNames:    []string{entry.StudentName},
				EvaluationReady: entry.EvaluationReady,
				EvaluationDue:   entry.EvaluationDue,
				IsOnline:        entry.IsOnline,
				Status:          entry.Status,
				Teacher:         entry.Teacher,
				CalendarType:    entry.CalendarType,
			})
			continue
		}

		record := &records[i]
		record.StudentNames = append(record.StudentNames, entry.StudentName)
		record.EvaluationReady = record.EvaluationReady || entry.EvaluationReady
		record.EvaluationDue = record.EvaluationDue || entry.EvaluationDue
		if record.Teacher == "" {
			record.Teacher = entry.Teacher
		}
	}
	return records
}

// FlattenMonthly emits one monthly row per parsed student of the event.
// Events from the owner calendar are attributed to ownerTeacher.
func FlattenMonthly(event RawEvent, parsed ParsedTitle, status MonthlyStatus, ownerTeacher string, loc *time.Location) []MonthlyLessonRow {
	teacher := ""
	if event.Calendar == OwnerCalendar {
		teacher = ownerTeacher
	}
	start := event.Start.In(loc)
	date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	rows := make([]MonthlyLessonRow, 0, len(parsed.Students))
	for _, student := range parsed.Students {
		rows = append(rows, MonthlyLessonRow{
			EventID:      event.ID,
			Title:        event.Title,
			Date:         date,
			Start:        start,
			End:          event.End.In(loc),
			Status:       status,
			StudentName:  student,
			IsKidsLesson: parsed.KidsLesson,
			TeacherName:  teacher,
		})
	}
	return rows
}
