package lesson

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	KidsMarker          = "子"
	EvaluationReadyTag  = "#evaluationReady"
	EvaluationDueTag    = "#evaluationDue"
	DemoFolderSuffix    = "DEMO"
	demoDownloadPattern = `(?i)\bD/L\b`
)

var (
	rescheduledTag   = regexp.MustCompile(`(?i)\[RESCHEDULED\]`)
	demoDownload     = regexp.MustCompile(demoDownloadPattern)
	progressFraction = regexp.MustCompile(`(\d+)\s*/\s*(\d+)`)
	nameConjunction  = regexp.MustCompile(`(?i)\s+and\s+`)
	teacherTag       = regexp.MustCompile(`(?i)#teacher(\w+)`)
)

// Progress is an "X/Y" course progress marker found in a title.
type Progress struct {
	Done  int
	Total int
}

// IsPenultimate reports whether this is the session right before the last one.
func (p Progress) IsPenultimate() bool {
	return p.Total-p.Done == 1
}

type ParsedTitle struct {
	Students        []string
	Teacher         string
	EvaluationReady bool
	EvaluationDue   bool
	KidsLesson      bool
	DemoDownload    bool
	Progress        *Progress
}

// ParseTitle extracts students, teacher and evaluation markers from an event.
// It never fails: a title it cannot make sense of yields a single student
// equal to the trimmed name segment, which may be empty.
func ParseTitle(title, description string, penultimateEvaluationDue bool) ParsedTitle {
	parsed := ParsedTitle{
		EvaluationReady: strings.Contains(description, EvaluationReadyTag),
		EvaluationDue:   strings.Contains(description, EvaluationDueTag),
		KidsLesson:      strings.Contains(title, KidsMarker),
		DemoDownload:    demoDownload.MatchString(title),
		Progress:        parseProgress(title),
	}

	if penultimateEvaluationDue && parsed.Progress != nil && parsed.Progress.IsPenultimate() {
		parsed.EvaluationDue = true
	}

	if m := teacherTag.FindStringSubmatch(description); m != nil {
		parsed.Teacher = m[1]
	}

	segment, _, _ := strings.Cut(title, "(")
	parsed.Students = inferSurnames(splitNames(segment))
	if len(parsed.Students) == 0 {
		parsed.Students = []string{strings.TrimSpace(segment)}
	}
	return parsed
}

func parseProgress(title string) *Progress {
	m := progressFraction.FindStringSubmatch(title)
	if m == nil {
		return nil
	}
	done, errDone := strconv.Atoi(m[1])
	total, errTotal := strconv.Atoi(m[2])
	if errDone != nil || errTotal != nil {
		return nil
	}
	return &Progress{Done: done, Total: total}
}

func splitNames(segment string) []string {
	cleaned := rescheduledTag.ReplaceAllString(segment, " ")
	cleaned = demoDownload.ReplaceAllString(cleaned, " ")
	cleaned = progressFraction.ReplaceAllString(cleaned, " ")
	cleaned = strings.ReplaceAll(cleaned, KidsMarker, "")

	var names []string
	for _, candidate := range nameConjunction.Split(cleaned, -1) {
		name := strings.Join(strings.Fields(candidate), " ")
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// inferSurnames gives given-name-only students the family name of a sibling.
// When the first student has no surname it borrows the first full name found
// later; otherwise later single-token students borrow the first student's.
func inferSurnames(names []string) []string {
	if len(names) < 2 {
		return names
	}

	var shared string
	if first := strings.Fields(names[0]); len(first) == 1 {
		for _, name := range names[1:] {
			if parts := strings.Fields(name); len(parts) > 1 {
				shared = parts[len(parts)-1]
				break
			}
		}
	} else {
		shared = first[len(first)-1]
	}
	if shared == "" {
		return names
	}

	resolved := make([]string, 0, len(names))
	for _, name := range names {
		if !strings.Contains(name, " ") {
			name = name + " " + shared
		}
		resolved = append(resolved, name)
	}
	return resolved
}
