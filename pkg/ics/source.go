package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/greensquare/lessonsync/internal/config"
	"github.com/greensquare/lessonsync/pkg/lesson"
	log "github.com/sirupsen/logrus"
)

// ErrColorWriteUnsupported is returned by SetEventColor: ICS feeds are read-only.
var ErrColorWriteUnsupported = errors.New("ics source cannot change event colors")

// Source reads lesson calendars from ICS feeds.
type Source struct {
	urls     map[lesson.CalendarType]string
	client   *http.Client
	location *time.Location
}

func NewSource(cfg config.Application) *Source {
	return &Source{
		urls: map[lesson.CalendarType]string{
			lesson.MainCalendar:  cfg.Source.ICS.Main,
			lesson.DemoCalendar:  cfg.Source.ICS.Demo,
			lesson.OwnerCalendar: cfg.Source.ICS.Owner,
		},
		client:   &http.Client{Timeout: 15 * time.Second},
		location: cfg.Location(),
	}
}

func (s *Source) FetchEvents(ctx context.Context, calendarType lesson.CalendarType, from, to time.Time) ([]lesson.RawEvent, error) {
	feedURL := s.urls[calendarType]
	if feedURL == "" {
		return nil, fmt.Errorf("%w: %s", lesson.ErrCalendarNotConfigured, calendarType)
	}

	body, err := s.fetch(ctx, feedURL)
	if err != nil {
		err := fmt.Errorf("could not fetch %s calendar feed %s: %w", calendarType, redactURL(feedURL), err)
		log.Error(err)
		return nil, err
	}
	parsed, err := parseCalendar(body, s.location)
	if err != nil {
		err := fmt.Errorf("could not read %s calendar feed: %w", calendarType, err)
		log.Error(err)
		return nil, err
	}

	events := expand(parsed, calendarType, from, to)
	log.Debugf("read %d events from %s calendar feed", len(events), calendarType)
	return events, nil
}

func (s *Source) SetEventColor(_ context.Context, _ lesson.CalendarType, eventId string, _ lesson.Color) error {
	return fmt.Errorf("%w: %s", ErrColorWriteUnsupported, eventId)
}

func (s *Source) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// redactURL keeps only scheme and host, feed URLs usually embed a secret token.
func redactURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
