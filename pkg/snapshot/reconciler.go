package snapshot

import (
	"strings"

	"github.com/greensquare/lessonsync/pkg/lesson"
)

// Reconcile carries operator-maintained state from the previous snapshot over
// to freshly computed records. For events already present, pdfUploaded and
// lessonHistoryLogged are always taken from the previous snapshot. A previous
// folder wins only when it is set and is not a synthesized demo folder.
// The input slice is not modified.
func Reconcile(records []lesson.LessonRecord, previous map[string]FlagState) []lesson.LessonRecord {
	merged := make([]lesson.LessonRecord, len(records))
	copy(merged, records)

	for i := range merged {
		old, ok := previous[merged[i].EventID]
		if !ok {
			continue
		}
		merged[i].PdfUploaded = old.PdfUploaded
		merged[i].LessonHistoryLogged = old.LessonHistoryLogged
		if old.FolderName != "" && !strings.HasSuffix(old.FolderName, lesson.DemoFolderSuffix) {
			merged[i].FolderName = old.FolderName
		}
	}
	return merged
}
