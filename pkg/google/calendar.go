package google

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/greensquare/lessonsync/pkg/lesson"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

const allDayLayout = "2006-01-02"

// toRawEvent converts a Calendar API event. All-day events start and end at
// local midnight of their dates in loc.
func toRawEvent(item *gcal.Event, calendarType lesson.CalendarType, loc *time.Location) (lesson.RawEvent, error) {
	if item.Start == nil || item.End == nil {
		return lesson.RawEvent{}, fmt.Errorf("event %s has no start or end", item.Id)
	}
	start, err := parseEventTime(item.Start, loc)
	if err != nil {
		return lesson.RawEvent{}, fmt.Errorf("event %s: invalid start: %w", item.Id, err)
	}
	end, err := parseEventTime(item.End, loc)
	if err != nil {
		return lesson.RawEvent{}, fmt.Errorf("event %s: invalid end: %w", item.Id, err)
	}

	return lesson.RawEvent{
		ID:          item.Id,
		Title:       item.Summary,
		Description: item.Description,
		Start:       start,
		End:         end,
		Color:       lesson.Color(item.ColorId),
		Calendar:    calendarType,
	}, nil
}

func parseEventTime(t *gcal.EventDateTime, loc *time.Location) (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	return time.ParseInLocation(allDayLayout, t.Date, loc)
}

// isNotFound reports whether the API answered that the event does not exist in the calendar.
func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
