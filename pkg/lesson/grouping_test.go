package lesson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokyo, _ = time.LoadLocation("Asia/Tokyo")

func rawEvent(id, title string, start time.Time, calendar CalendarType) RawEvent {
	return RawEvent{
		ID:       id,
		Title:    title,
		Start:    start,
		End:      start.Add(50 * time.Minute),
		Calendar: calendar,
	}
}

func folders(m map[string]string) FolderResolver {
	return func(name string) string { return m[name] }
}

func TestFlattenDaily(t *testing.T) {
	start := time.Date(2026, time.October, 16, 10, 0, 0, 0, tokyo)

	t.Run("should emit one entry per student with directory folders", func(t *testing.T) {
		event := rawEvent("E1", "Yuki and Tanaka Suzuki (Online)", start, MainCalendar)
		parsed := ParseTitle(event.Title, "#teacherAnna", false)

		entries := FlattenDaily(event, parsed, DailyStatusOf(event.Title, event.Color),
			folders(map[string]string{"Yuki Suzuki": "suzuki-yuki"}), tokyo)

		require.Len(t, entries, 2)
		assert.Equal(t, "Yuki Suzuki", entries[0].StudentName)
		assert.Equal(t, "suzuki-yuki", entries[0].FolderName)
		assert.Equal(t, "Tanaka Suzuki", entries[1].StudentName)
		assert.Equal(t, "", entries[1].FolderName)
		for _, entry := range entries {
			assert.Equal(t, "10:00", entry.Start)
			assert.Equal(t, "10:50", entry.End)
			assert.Equal(t, StatusOnline, entry.Status)
			assert.True(t, entry.IsOnline)
			assert.Equal(t, "Anna", entry.Teacher)
			assert.Equal(t, MainCalendar, entry.CalendarType)
		}
	})

	t.Run("should synthesize demo folder regardless of directory", func(t *testing.T) {
		event := rawEvent("E2", "Ken Sato D/L", start, DemoCalendar)
		parsed := ParseTitle(event.Title, "", false)

		entries := FlattenDaily(event, parsed, StatusRegular, folders(map[string]string{"Ken Sato": "sato-ken"}), tokyo)

		require.Len(t, entries, 1)
		assert.Equal(t, "Ken Sato DEMO", entries[0].FolderName)
	})

	t.Run("should format times in the given location", func(t *testing.T) {
		event := rawEvent("E3", "Ken Sato", time.Date(2026, time.October, 16, 1, 0, 0, 0, time.UTC), MainCalendar)

		entries := FlattenDaily(event, ParseTitle(event.Title, "", false), StatusRegular, nil, tokyo)

		require.Len(t, entries, 1)
		assert.Equal(t, "10:00", entries[0].Start)
	})
}

func TestGroupDaily(t *testing.T) {
	t.Run("should merge entries of one event keeping order of appearance", func(t *testing.T) {
		entries := []DailyEntry{
			{EventID: "E1", StudentName: "Yuki Suzuki", FolderName: "f-yuki", Status: StatusRegular},
			{EventID: "E2", StudentName: "Ken Sato", Status: StatusCafe, Teacher: "Bob"},
			{EventID: "E1", StudentName: "Tanaka Suzuki", FolderName: "f-tanaka", EvaluationDue: true, Teacher: "Anna"},
			{EventID: "E1", StudentName: "Yuki Suzuki", EvaluationReady: true, Teacher: "Carl"},
		}

		records := GroupDaily(entries)

		require.Len(t, records, 2)
		assert.Equal(t, "E1", records[0].EventID)
		assert.Equal(t, []string{"Yuki Suzuki", "Tanaka Suzuki", "Yuki Suzuki"}, records[0].StudentNames)
		assert.Equal(t, "f-yuki", records[0].FolderName)
		assert.True(t, records[0].EvaluationReady)
		assert.True(t, records[0].EvaluationDue)
		assert.Equal(t, "Anna", records[0].Teacher)
		assert.False(t, records[0].PdfUploaded)
		assert.False(t, records[0].LessonHistoryLogged)

		assert.Equal(t, "E2", records[1].EventID)
		assert.Equal(t, []string{"Ken Sato"}, records[1].StudentNames)
		assert.Equal(t, "Bob", records[1].Teacher)
		assert.Equal(t, StatusCafe, records[1].Status)
	})

	t.Run("should return empty slice for no entries", func(t *testing.T) {
		records := GroupDaily(nil)
		assert.Empty(t, records)
	})
}

func TestFlattenMonthly(t *testing.T) {
	start := time.Date(2026, time.November, 3, 18, 30, 0, 0, tokyo)

	t.Run("should emit one row per student sharing event attributes", func(t *testing.T) {
		event := rawEvent("E1", "Ken Sato and Yuki Suzuki", start, MainCalendar)
		event.Color = ColorTomato
		status := MonthlyStatusOf(event.Title, event.Color)

		rows := FlattenMonthly(event, ParseTitle(event.Title, "", false), status, "Sham", tokyo)

		require.Len(t, rows, 2)
		assert.Equal(t, "Ken Sato", rows[0].StudentName)
		assert.Equal(t, "Yuki Suzuki", rows[1].StudentName)
		for _, row := range rows {
			assert.Equal(t, "E1", row.EventID)
			assert.Equal(t, time.Date(2026, time.November, 3, 0, 0, 0, 0, tokyo), row.Date)
			assert.True(t, start.Equal(row.Start))
			assert.True(t, start.Add(50*time.Minute).Equal(row.End))
			assert.Equal(t, MonthlyDemo, row.Status)
			assert.Equal(t, "", row.TeacherName)
			assert.False(t, row.IsKidsLesson)
		}
	})

	t.Run("should attribute owner calendar lessons to the owner", func(t *testing.T) {
		event := rawEvent("E2", "子Hana Sato", start, OwnerCalendar)

		rows := FlattenMonthly(event, ParseTitle(event.Title, "", false), MonthlyScheduled, "Sham", tokyo)

		require.Len(t, rows, 1)
		assert.Equal(t, "Sham", rows[0].TeacherName)
		assert.True(t, rows[0].IsKidsLesson)
		assert.Equal(t, "Hana Sato", rows[0].StudentName)
	})
}
