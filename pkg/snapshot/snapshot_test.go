package snapshot

import (
	"testing"
	"time"

	"github.com/greensquare/lessonsync/pkg/lesson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	t.Run("should ignore header and row order", func(t *testing.T) {
		a := [][]string{{"h1", "h2"}, {"a", "1"}, {"b", "2"}}
		b := [][]string{{"other", "header"}, {"b", "2"}, {"a", "1"}}

		assert.Equal(t, Fingerprint(a), Fingerprint(b))
		assert.Equal(t, "a|1,b|2", Fingerprint(a))
	})

	t.Run("should depend on cell order within a row", func(t *testing.T) {
		a := [][]string{{"h"}, {"a", "1"}}
		b := [][]string{{"h"}, {"1", "a"}}

		assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	})

	t.Run("should trim cells", func(t *testing.T) {
		a := [][]string{{"h"}, {" a ", "1"}}
		b := [][]string{{"h"}, {"a", "1 "}}

		assert.Equal(t, Fingerprint(a), Fingerprint(b))
	})

	t.Run("should be empty for missing or header-only tables", func(t *testing.T) {
		assert.Equal(t, "", Fingerprint(nil))
		assert.Equal(t, "", Fingerprint([][]string{DailyHeader}))
	})
}

func TestEncodeDailyRows(t *testing.T) {
	records := []lesson.LessonRecord{{
		EventID:         "E1",
		EventName:       "Yuki and Tanaka Suzuki (Online)",
		Start:           "10:00",
		End:             "10:50",
		FolderName:      "suzuki",
		StudentNames:    []string{"Yuki Suzuki", "Tanaka Suzuki"},
		PdfUploaded:     true,
		EvaluationReady: true,
		IsOnline:        true,
		Status:          lesson.StatusOnline,
		Teacher:         "Anna",
		CalendarType:    lesson.MainCalendar,
	}, {
		EventID:      "E2",
		StudentNames: []string{"Ken Sato"},
	}}

	rows := EncodeDailyRows(records)

	require.Len(t, rows, 2)
	assert.Equal(t, []string{
		"E1", "Yuki and Tanaka Suzuki (Online)", "10:00", "10:50",
		"suzuki", "Yuki Suzuki, Tanaka Suzuki", "true", "false",
		"true", "false", "true", "online", "Anna", "main",
	}, rows[0])
	assert.Len(t, rows[1], len(DailyHeader))
	assert.Equal(t, "regular", rows[1][11])
}

func TestDecodeFlagStates(t *testing.T) {
	t.Run("should read flags by header name", func(t *testing.T) {
		rows := [][]string{
			{"lessonHistory", " eventID ", "pdfUpload", "folderName"},
			{"TRUE", "E1", "false", "suzuki"},
			{"false", "E2", "True", ""},
		}

		states, err := DecodeFlagStates(rows)

		require.NoError(t, err)
		assert.Equal(t, map[string]FlagState{
			"E1": {LessonHistoryLogged: true, FolderName: "suzuki"},
			"E2": {PdfUploaded: true},
		}, states)
	})

	t.Run("should tolerate a missing folder column and short rows", func(t *testing.T) {
		rows := [][]string{
			{"eventID", "pdfUpload", "lessonHistory"},
			{"E1", "true"},
		}

		states, err := DecodeFlagStates(rows)

		require.NoError(t, err)
		assert.Equal(t, FlagState{PdfUploaded: true}, states["E1"])
	})

	t.Run("should fail when a required column is missing", func(t *testing.T) {
		rows := [][]string{
			{"eventID", "pdfUpload"},
			{"E1", "true"},
		}

		_, err := DecodeFlagStates(rows)

		require.ErrorIs(t, err, ErrMissingColumns)
	})

	t.Run("should return empty state for empty table", func(t *testing.T) {
		states, err := DecodeFlagStates([][]string{{"whatever"}})

		require.NoError(t, err)
		assert.Empty(t, states)
	})
}

func TestEncodeMonthlyRows(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	start := time.Date(2026, time.November, 3, 18, 30, 0, 0, tokyo)
	rows := []lesson.MonthlyLessonRow{{
		EventID:      "E1",
		Title:        "子Hana Sato",
		Date:         time.Date(2026, time.November, 3, 0, 0, 0, 0, tokyo),
		Start:        start,
		End:          start.Add(time.Hour),
		Status:       lesson.MonthlyScheduled,
		StudentName:  "Hana Sato",
		IsKidsLesson: true,
		TeacherName:  "Sham",
	}}

	encoded := EncodeMonthlyRows(rows)

	require.Len(t, encoded, 1)
	assert.Equal(t, []string{
		"E1", "子Hana Sato", "2026-11-03", "2026-11-03T18:30:00+09:00", "2026-11-03T19:30:00+09:00",
		"scheduled", "Hana Sato", "子", "Sham",
	}, encoded[0])
	assert.Len(t, encoded[0], len(MonthlyHeader))
}

func TestReconcile(t *testing.T) {
	t.Run("should keep operator flags of known events", func(t *testing.T) {
		// given
		records := []lesson.LessonRecord{
			{EventID: "E1", FolderName: "fresh", EventName: "renamed title"},
			{EventID: "E2", FolderName: "new-student"},
		}
		previous := map[string]FlagState{
			"E1": {PdfUploaded: true, LessonHistoryLogged: true, FolderName: "operator-folder"},
		}

		// when
		merged := Reconcile(records, previous)

		// then
		require.Len(t, merged, 2)
		assert.True(t, merged[0].PdfUploaded)
		assert.True(t, merged[0].LessonHistoryLogged)
		assert.Equal(t, "operator-folder", merged[0].FolderName)
		assert.Equal(t, "renamed title", merged[0].EventName)
		assert.False(t, merged[1].PdfUploaded)
		assert.False(t, merged[1].LessonHistoryLogged)
		assert.Equal(t, "new-student", merged[1].FolderName)
	})

	t.Run("should overwrite flags even when previous values are false", func(t *testing.T) {
		records := []lesson.LessonRecord{{EventID: "E1", PdfUploaded: true}}

		merged := Reconcile(records, map[string]FlagState{"E1": {}})

		assert.False(t, merged[0].PdfUploaded)
	})

	t.Run("should prefer fresh folder over empty or demo folder", func(t *testing.T) {
		records := []lesson.LessonRecord{
			{EventID: "E1", FolderName: "real-folder"},
			{EventID: "E2", FolderName: "from-directory"},
		}
		previous := map[string]FlagState{
			"E1": {FolderName: "Ken Sato DEMO"},
			"E2": {FolderName: ""},
		}

		merged := Reconcile(records, previous)

		assert.Equal(t, "real-folder", merged[0].FolderName)
		assert.Equal(t, "from-directory", merged[1].FolderName)
	})

	t.Run("should not modify input records", func(t *testing.T) {
		records := []lesson.LessonRecord{{EventID: "E1"}}

		Reconcile(records, map[string]FlagState{"E1": {PdfUploaded: true}})

		assert.False(t, records[0].PdfUploaded)
	})
}

func TestDigest(t *testing.T) {
	a := [][]string{DailyHeader, {"a", "1"}, {"b", "2"}}
	b := [][]string{DailyHeader, {"b", "2"}, {"a", " 1 "}}
	c := [][]string{DailyHeader, {"a", "1"}}

	assert.Equal(t, Digest(a), Digest(b))
	assert.NotEqual(t, Digest(a), Digest(c))
	assert.Len(t, Digest(a), 64)
}
