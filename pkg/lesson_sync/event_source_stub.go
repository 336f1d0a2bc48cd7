package lesson_sync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/greensquare/lessonsync/pkg/lesson"
)

type ColorWrite struct {
	Calendar lesson.CalendarType
	EventId  string
	Color    lesson.Color
}

type EventSourceStub struct {
	mu        sync.RWMutex
	events    map[lesson.CalendarType][]lesson.RawEvent
	fetchErr  map[lesson.CalendarType]error
	colorErr  map[string]error
	colorLog  []ColorWrite
	fetchLog  []lesson.CalendarType
	unconfigs map[lesson.CalendarType]bool
}

func NewEventSourceStub() *EventSourceStub {
	return &EventSourceStub{
		events:    make(map[lesson.CalendarType][]lesson.RawEvent),
		fetchErr:  make(map[lesson.CalendarType]error),
		colorErr:  make(map[string]error),
		unconfigs: make(map[lesson.CalendarType]bool),
	}
}

// SetEvents replaces all events of a calendar, their Calendar field is set to calendarType.
func (s *EventSourceStub) SetEvents(calendarType lesson.CalendarType, events ...lesson.RawEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]lesson.RawEvent, len(events))
	for i, e := range events {
		e.Calendar = calendarType
		stored[i] = e
	}
	s.events[calendarType] = stored
}

func (s *EventSourceStub) SetFetchError(calendarType lesson.CalendarType, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr[calendarType] = err
}

func (s *EventSourceStub) SetColorError(eventId string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.colorErr[eventId] = err
}

func (s *EventSourceStub) Unconfigure(calendarType lesson.CalendarType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unconfigs[calendarType] = true
}

func (s *EventSourceStub) FetchEvents(ctx context.Context, calendarType lesson.CalendarType, from, to time.Time) ([]lesson.RawEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetchLog = append(s.fetchLog, calendarType)
	if s.unconfigs[calendarType] {
		return nil, fmt.Errorf("%w: %s", lesson.ErrCalendarNotConfigured, calendarType)
	}
	if err := s.fetchErr[calendarType]; err != nil {
		return nil, err
	}
	var found []lesson.RawEvent
	for _, e := range s.events[calendarType] {
		if e.Start.Before(to) && e.End.After(from) {
			found = append(found, e)
		}
	}
	return found, nil
}

func (s *EventSourceStub) SetEventColor(ctx context.Context, calendarType lesson.CalendarType, eventId string, color lesson.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.colorErr[eventId]; err != nil {
		return err
	}
	for _, cal := range lesson.CalendarTypes {
		for i, e := range s.events[cal] {
			if e.ID == eventId {
				s.events[cal][i].Color = color
				s.colorLog = append(s.colorLog, ColorWrite{Calendar: cal, EventId: eventId, Color: color})
				return nil
			}
		}
	}
	return errors.New("event not found in any calendar")
}

func (s *EventSourceStub) ColorWrites() []ColorWrite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.colorLog)
}

func (s *EventSourceStub) Fetches() []lesson.CalendarType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fetchLog)
}
