package ics

import (
	"time"

	"github.com/greensquare/lessonsync/pkg/lesson"
	log "github.com/sirupsen/logrus"
	"github.com/teambition/rrule-go"
)

const maxOccurrencesPerEvent = 1000

// expand turns parsed events into the occurrences overlapping [from, to).
// Recurring instances get "<UID>_<start in UTC>" as id; overrides carrying a
// RECURRENCE-ID replace the generated instance.
func expand(events []vevent, calendarType lesson.CalendarType, from, to time.Time) []lesson.RawEvent {
	overrides := make(map[string][]vevent)
	var bases []vevent
	for _, ev := range events {
		if ev.RecurrenceId != nil {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
		} else {
			bases = append(bases, ev)
		}
	}

	var out []lesson.RawEvent
	for _, ev := range bases {
		if ev.RRule == "" {
			if !ev.Cancelled && overlaps(ev.Start, ev.End, from, to) {
				out = append(out, toRawEvent(ev, ev.UID, calendarType))
			}
			continue
		}

		set := ruleSet(ev)
		if set == nil {
			continue
		}
		generated := make(map[int64]bool)
		for _, start := range occurrences(ev, set, from, to) {
			generated[start.Unix()] = true
			instance := ev
			instance.Start = start
			instance.End = start.Add(ev.End.Sub(ev.Start))
			if override, ok := findOverride(overrides[ev.UID], start); ok {
				instance = override
			}
			if instance.Cancelled || !overlaps(instance.Start, instance.End, from, to) {
				continue
			}
			out = append(out, toRawEvent(instance, instanceId(ev.UID, start), calendarType))
		}

		// instances moved into the window from outside it
		for _, override := range overrides[ev.UID] {
			original := *override.RecurrenceId
			if generated[original.Unix()] || override.Cancelled || !overlaps(override.Start, override.End, from, to) {
				continue
			}
			if !inSeries(set, original) {
				continue
			}
			out = append(out, toRawEvent(override, instanceId(ev.UID, original), calendarType))
		}
	}
	return out
}

func instanceId(uid string, originalStart time.Time) string {
	return uid + "_" + originalStart.UTC().Format("20060102T150405Z")
}

func ruleSet(ev vevent) *rrule.Set {
	rule, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		log.Warnf("ICS event %s has invalid RRULE %q: %v", ev.UID, ev.RRule, err)
		return nil
	}
	rule.DTStart(ev.Start)

	set := &rrule.Set{}
	set.RRule(rule)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}
	return set
}

// inSeries reports whether start is an occurrence of the series.
func inSeries(set *rrule.Set, start time.Time) bool {
	return len(set.Between(start.Add(-time.Second), start.Add(time.Second), true)) > 0
}

func occurrences(ev vevent, set *rrule.Set, from, to time.Time) []time.Time {
	duration := ev.End.Sub(ev.Start)
	starts := set.Between(from.Add(-duration).In(ev.Start.Location()), to.In(ev.Start.Location()), true)
	if len(starts) > maxOccurrencesPerEvent {
		log.Warnf("ICS event %s expanded to %d occurrences, keeping %d", ev.UID, len(starts), maxOccurrencesPerEvent)
		starts = starts[:maxOccurrencesPerEvent]
	}
	return starts
}

func findOverride(overrides []vevent, start time.Time) (vevent, bool) {
	for _, o := range overrides {
		if o.RecurrenceId.Equal(start) {
			return o, true
		}
	}
	return vevent{}, false
}

func overlaps(start, end, from, to time.Time) bool {
	if end.Equal(start) {
		return !start.Before(from) && start.Before(to)
	}
	return start.Before(to) && end.After(from)
}

func toRawEvent(ev vevent, id string, calendarType lesson.CalendarType) lesson.RawEvent {
	return lesson.RawEvent{
		ID:          id,
		Title:       ev.Summary,
		Description: ev.Description,
		Start:       ev.Start,
		End:         ev.End,
		Color:       ev.Color,
		Calendar:    calendarType,
	}
}
