package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/greensquare/lessonsync/pkg/lesson"
	log "github.com/sirupsen/logrus"
)

const (
	propColor        = ical.ComponentProperty("COLOR")
	propColorId      = ical.ComponentProperty("X-COLOR-ID")
	propRecurrenceId = ical.ComponentProperty("RECURRENCE-ID")
)

// vevent is a VEVENT reduced to what the lesson views need.
type vevent struct {
	UID          string
	Summary      string
	Description  string
	Start        time.Time
	End          time.Time
	AllDay       bool
	Color        lesson.Color
	RRule        string
	ExDates      []time.Time
	RecurrenceId *time.Time
	Cancelled    bool
}

func parseCalendar(body []byte, loc *time.Location) ([]vevent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not parse ICS: %w", err)
	}

	events := make([]vevent, 0)
	for _, component := range cal.Events() {
		ev, err := parseVEvent(component, loc)
		if err != nil {
			log.Warnf("skipping ICS event: %v", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseVEvent(ve *ical.VEvent, loc *time.Location) (vevent, error) {
	var out vevent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil {
		out.Cancelled = strings.EqualFold(p.Value, "CANCELLED")
	}
	out.Color = parseColor(ve)

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("event %s: missing DTSTART", out.UID)
	}
	out.AllDay = isDateValue(dtStart)

	if out.AllDay {
		start, err := time.ParseInLocation("20060102", dtStart.Value, loc)
		if err != nil {
			return out, fmt.Errorf("event %s: invalid DTSTART: %w", out.UID, err)
		}
		out.Start = start
		out.End = start.AddDate(0, 0, 1)
		if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil {
			if end, err := time.ParseInLocation("20060102", dtEnd.Value, loc); err == nil {
				out.End = end
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return out, fmt.Errorf("event %s: invalid DTSTART: %w", out.UID, err)
		}
		out.Start = start
		out.End = start
		if end, err := ve.GetEndAt(); err == nil {
			out.End = end
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, out.Start.Location()); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty(propRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, out.Start.Location()); err == nil {
			out.RecurrenceId = &t
		}
	}
	return out, nil
}

// parseColor prefers the numeric X-COLOR-ID over the RFC 7986 COLOR name.
func parseColor(ve *ical.VEvent) lesson.Color {
	for _, prop := range []ical.ComponentProperty{propColorId, propColor} {
		if p := ve.GetProperty(prop); p != nil {
			if c, ok := lesson.ColorByName(p.Value); ok {
				return c
			}
		}
	}
	return lesson.ColorDefault
}

func isDateValue(p *ical.IANAProperty) bool {
	if values, ok := p.ICalParameters["VALUE"]; ok && len(values) > 0 && strings.EqualFold(values[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parseICSTime parses DATE and DATE-TIME values used by EXDATE and RECURRENCE-ID.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
