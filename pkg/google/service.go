package google

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/greensquare/lessonsync/internal/config"
	"github.com/greensquare/lessonsync/pkg/lesson"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

var (
	ErrUnauthenticated = errors.New("google calendar is not authenticated, authentication is required")
	ErrEventNotFound   = errors.New("event not found in any calendar")
)

type CalendarItem struct {
	ID      string
	Summary string
}

// ServiceImpl reads lesson events from Google Calendar and writes event colors back.
type ServiceImpl struct {
	calendarIds map[lesson.CalendarType]string
	location    *time.Location
	newService  func(ctx context.Context) (*gcal.Service, error)
}

func NewService(auth *GoogleAuth, cfg config.Application) *ServiceImpl {
	s := newService(cfg.Calendars, cfg.Location())
	s.newService = func(ctx context.Context) (*gcal.Service, error) {
		return prepareGoogleService(ctx, auth)
	}
	return s
}

func newService(calendars config.Calendars, loc *time.Location) *ServiceImpl {
	return &ServiceImpl{
		calendarIds: map[lesson.CalendarType]string{
			lesson.MainCalendar:  calendars.Main,
			lesson.DemoCalendar:  calendars.Demo,
			lesson.OwnerCalendar: calendars.Owner,
		},
		location: loc,
	}
}

func (s *ServiceImpl) calendarId(calendarType lesson.CalendarType) (string, error) {
	id := s.calendarIds[calendarType]
	if id == "" {
		return "", fmt.Errorf("%w: %s", lesson.ErrCalendarNotConfigured, calendarType)
	}
	return id, nil
}

func (s *ServiceImpl) FetchEvents(ctx context.Context, calendarType lesson.CalendarType, from, to time.Time) ([]lesson.RawEvent, error) {
	calendarId, err := s.calendarId(calendarType)
	if err != nil {
		return nil, err
	}
	service, err := s.newService(ctx)
	if err != nil {
		return nil, err
	}

	var events []lesson.RawEvent
	err = service.Events.List(calendarId).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		Pages(ctx, func(page *gcal.Events) error {
			for _, item := range page.Items {
				event, err := toRawEvent(item, calendarType, s.location)
				if err != nil {
					log.Warnf("skipping event from %s calendar: %v", calendarType, err)
					continue
				}
				events = append(events, event)
			}
			return nil
		})
	if err != nil {
		err := fmt.Errorf("unable to retrieve events from %s calendar: %w", calendarType, err)
		log.Error(err)
		return nil, err
	}
	log.Debugf("fetched %d events from %s calendar", len(events), calendarType)
	return events, nil
}

// SetEventColor recolors the event. The given calendar is tried first, then
// the other configured calendars, since event ids are looked up by id only.
func (s *ServiceImpl) SetEventColor(ctx context.Context, calendarType lesson.CalendarType, eventId string, color lesson.Color) error {
	service, err := s.newService(ctx)
	if err != nil {
		return err
	}

	order := []lesson.CalendarType{calendarType}
	for _, c := range lesson.CalendarTypes {
		if !slices.Contains(order, c) {
			order = append(order, c)
		}
	}

	for _, c := range order {
		calendarId := s.calendarIds[c]
		if calendarId == "" {
			continue
		}
		_, err := service.Events.Patch(calendarId, eventId, &gcal.Event{ColorId: string(color)}).Context(ctx).Do()
		if isNotFound(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("unable to change color of event %s: %w", eventId, err)
		}
		log.Debugf("event %s in %s calendar recolored to %s", eventId, c, color)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrEventNotFound, eventId)
}

func (s *ServiceImpl) ListCalendars(ctx context.Context) ([]CalendarItem, error) {
	service, err := s.newService(ctx)
	if err != nil {
		return nil, err
	}
	calendars, err := service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		err := fmt.Errorf("unable to retrieve calendars from Google Calendar: %v", err)
		log.Error(err)
		return nil, err
	}
	googleCalendars := make([]CalendarItem, 0, len(calendars.Items))
	for _, cal := range calendars.Items {
		googleCalendars = append(googleCalendars, CalendarItem{
			ID:      cal.Id,
			Summary: cal.Summary,
		})
	}
	return googleCalendars, nil
}

func prepareGoogleService(ctx context.Context, auth *GoogleAuth) (*gcal.Service, error) {
	client, err := auth.getClient(ctx)
	if err != nil {
		err := fmt.Errorf("unable to retrieve Google auth client: %v", err)
		log.Error(err)
		return nil, err
	}
	if client == nil {
		log.Debug("google calendar is unauthenticated, authentication is required")
		return nil, ErrUnauthenticated
	}
	service, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		err := fmt.Errorf("unable to retrieve Calendar client: %v", err)
		log.Error(err)
		return nil, err
	}
	return service, nil
}
