package app

import (
	"context"
	"fmt"
	"time"

	"github.com/greensquare/lessonsync/internal/config"
	"github.com/greensquare/lessonsync/internal/event_bus"
	"github.com/greensquare/lessonsync/pkg/google"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler fires periodic sync requests and renews calendar push channels.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(deps *Dependencies, cfg config.Application) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)

	if cfg.Sync.Cron != "" {
		_, err := c.AddFunc(cfg.Sync.Cron, func() {
			ctx := context.Background()
			err := deps.Bus.Publish(event_bus.NewEvent(ctx, event_bus.SyncRequestedType, event_bus.SyncRequested{Trigger: "cron"}))
			if err != nil {
				log.Warnf("scheduled sync failed: %v", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("invalid sync.cron %q: %w", cfg.Sync.Cron, err)
		}
		log.Infof("scheduled sync: %s", cfg.Sync.Cron)
	}

	if cfg.Watch.WebhookURL != "" && cfg.Watch.RenewCron != "" && deps.GoogleService != nil && cfg.Source.Kind != sourceICS {
		_, err := c.AddFunc(cfg.Watch.RenewCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			RegisterWatches(ctx, deps.GoogleService, cfg)
		})
		if err != nil {
			return nil, fmt.Errorf("invalid watch.renewcron %q: %w", cfg.Watch.RenewCron, err)
		}
		log.Infof("scheduled watch renewal: %s", cfg.Watch.RenewCron)
	}

	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RegisterWatches registers push channels for all configured calendars and logs the outcome per calendar.
func RegisterWatches(ctx context.Context, service *google.ServiceImpl, cfg config.Application) ([]google.WatchResult, error) {
	results, err := service.RegisterWatches(ctx, cfg.Watch.WebhookURL, cfg.Watch.TTL)
	if err != nil {
		log.Errorf("could not register calendar watches: %v", err)
		return nil, err
	}
	for _, r := range results {
		if r.Err != nil {
			log.Warnf("watch for %s calendar failed: %v", r.Calendar, r.Err)
			continue
		}
		log.Infof("watch for %s calendar registered, channel %s expires %s", r.Calendar, r.ChannelId, r.Expiration.Format(time.RFC3339))
	}
	return results, nil
}
