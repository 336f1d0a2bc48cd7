package snapshot

import (
	"time"

	"github.com/greensquare/lessonsync/pkg/lesson"
)

const dateLayout = "2006-01-02"

var MonthlyHeader = []string{"EventID", "Title", "Date", "Start", "End", "Status", "StudentName", "IsKidsLesson", "TeacherName"}

func EncodeMonthlyRows(rows []lesson.MonthlyLessonRow) [][]string {
	encoded := make([][]string, 0, len(rows))
	for _, r := range rows {
		kids := ""
		if r.IsKidsLesson {
			kids = lesson.KidsMarker
		}
		encoded = append(encoded, []string{
			r.EventID,
			r.Title,
			r.Date.Format(dateLayout),
			r.Start.Format(time.RFC3339),
			r.End.Format(time.RFC3339),
			string(r.Status),
			r.StudentName,
			kids,
			r.TeacherName,
		})
	}
	return encoded
}
