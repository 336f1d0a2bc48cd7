package google

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/greensquare/lessonsync/pkg/lesson"
	log "github.com/sirupsen/logrus"
	gcal "google.golang.org/api/calendar/v3"
)

// DefaultWatchTTL keeps channels just below the seven days Google allows.
const DefaultWatchTTL = 6 * 24 * time.Hour

var ErrInvalidWebhookURL = errors.New("webhook URL must be an absolute https URL")

type WatchResult struct {
	Calendar   lesson.CalendarType
	ChannelId  string
	ResourceId string
	Expiration time.Time
	Err        error
}

func validateWebhookURL(webhookURL string) error {
	u, err := url.Parse(webhookURL)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidWebhookURL, webhookURL)
	}
	return nil
}

// RegisterWatches subscribes webhookURL to change notifications of every
// configured calendar. A failure on one calendar does not stop the others;
// it is reported in that calendar's result.
func (s *ServiceImpl) RegisterWatches(ctx context.Context, webhookURL string, ttl time.Duration) ([]WatchResult, error) {
	if err := validateWebhookURL(webhookURL); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultWatchTTL
	}
	service, err := s.newService(ctx)
	if err != nil {
		return nil, err
	}

	expiration := time.Now().Add(ttl)
	var results []WatchResult
	for _, calendarType := range lesson.CalendarTypes {
		calendarId := s.calendarIds[calendarType]
		if calendarId == "" {
			continue
		}
		result := WatchResult{Calendar: calendarType, ChannelId: uuid.NewString()}
		channel, err := service.Events.Watch(calendarId, &gcal.Channel{
			Id:         result.ChannelId,
			Type:       "web_hook",
			Address:    webhookURL,
			Expiration: expiration.UnixMilli(),
		}).Context(ctx).Do()
		if err != nil {
			result.Err = err
			log.Errorf("failed to register watch for %s calendar: %v", calendarType, err)
		} else {
			result.ResourceId = channel.ResourceId
			result.Expiration = time.UnixMilli(channel.Expiration)
			log.Infof("registered watch for %s calendar, channel %s expires %s", calendarType, result.ChannelId, result.Expiration)
		}
		results = append(results, result)
	}
	return results, nil
}
