package snapshot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/greensquare/lessonsync/pkg/lesson"
)

const (
	colEventID       = "eventID"
	colFolderName    = "folderName"
	colPdfUpload     = "pdfUpload"
	colLessonHistory = "lessonHistory"
)

var DailyHeader = []string{
	colEventID, "eventName", "Start", "End",
	colFolderName, "studentNames", colPdfUpload, colLessonHistory,
	"evaluationReady", "evaluationDue", "isOnline", "status", "teacher",
	"calendarType",
}

// FlagState is the operator-maintained part of a daily row.
type FlagState struct {
	PdfUploaded         bool
	LessonHistoryLogged bool
	FolderName          string
}

func EncodeDailyRows(records []lesson.LessonRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		status := r.Status
		if status == "" {
			status = lesson.StatusRegular
		}
		rows = append(rows, []string{
			r.EventID,
			r.EventName,
			r.Start,
			r.End,
			r.FolderName,
			strings.Join(r.StudentNames, ", "),
			strconv.FormatBool(r.PdfUploaded),
			strconv.FormatBool(r.LessonHistoryLogged),
			strconv.FormatBool(r.EvaluationReady),
			strconv.FormatBool(r.EvaluationDue),
			strconv.FormatBool(r.IsOnline),
			string(status),
			r.Teacher,
			string(r.CalendarType),
		})
	}
	return rows
}

// DecodeFlagStates reads the per-event flag state out of a persisted daily
// table (header row first). Columns are located by header name, so operators
// may reorder or add columns. An empty table yields an empty map.
func DecodeFlagStates(rows [][]string) (map[string]FlagState, error) {
	states := make(map[string]FlagState)
	if len(rows) < 2 {
		return states, nil
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.TrimSpace(name)] = i
	}
	idxID, okID := index[colEventID]
	idxPdf, okPdf := index[colPdfUpload]
	idxHistory, okHistory := index[colLessonHistory]
	if !okID || !okPdf || !okHistory {
		return nil, fmt.Errorf("%w: one of %s, %s or %s", ErrMissingColumns, colEventID, colPdfUpload, colLessonHistory)
	}
	idxFolder, okFolder := index[colFolderName]

	for _, row := range rows[1:] {
		state := FlagState{
			PdfUploaded:         isTrue(cell(row, idxPdf)),
			LessonHistoryLogged: isTrue(cell(row, idxHistory)),
		}
		if okFolder {
			state.FolderName = cell(row, idxFolder)
		}
		states[cell(row, idxID)] = state
	}
	return states, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func isTrue(value string) bool {
	return strings.EqualFold(strings.TrimSpace(value), "true")
}
