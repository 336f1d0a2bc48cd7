package app

import (
	"fmt"

	"github.com/greensquare/lessonsync/internal/config"
	"github.com/greensquare/lessonsync/internal/event_bus"
	"github.com/greensquare/lessonsync/internal/utils"
	"github.com/greensquare/lessonsync/pkg/app_state"
	"github.com/greensquare/lessonsync/pkg/google"
	"github.com/greensquare/lessonsync/pkg/ics"
	"github.com/greensquare/lessonsync/pkg/lesson_sync"
	"github.com/greensquare/lessonsync/pkg/lock"
	"github.com/greensquare/lessonsync/pkg/snapshot"
	"github.com/greensquare/lessonsync/pkg/student"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	sourceGoogle = "google"
	sourceICS    = "ics"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Bus   *event_bus.EventBus
	Clock utils.Clock
	Redis *redis.Client

	GoogleAuth    *google.GoogleAuth
	GoogleService *google.ServiceImpl
	GoogleHandler *google.Handler

	EventSource lesson_sync.EventSource

	SnapshotRepo snapshot.Repository

	StateRepo    app_state.Repository
	StateHandler *app_state.Handler

	StudentRepo    student.Repository
	StudentHandler *student.Handler

	Locker lock.Locker

	SyncMetrics *lesson_sync.Metrics
	SyncService *lesson_sync.ServiceImpl
	SyncHandler *lesson_sync.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) (*Dependencies, error) {
	deps := &Dependencies{}

	deps.Bus = event_bus.NewEventBus()
	deps.Clock = &utils.SystemClock{}

	deps.GoogleAuth = google.NewGoogleAuth(db, cfg)
	deps.GoogleService = google.NewService(deps.GoogleAuth, cfg)
	deps.GoogleHandler = google.NewHandler(deps.GoogleService)

	switch cfg.Source.Kind {
	case "", sourceGoogle:
		deps.EventSource = deps.GoogleService
	case sourceICS:
		deps.EventSource = ics.NewSource(cfg)
	default:
		return nil, fmt.Errorf("unknown source.kind %q, expected %s or %s", cfg.Source.Kind, sourceGoogle, sourceICS)
	}
	log.Infof("reading lesson calendars from %s", deps.sourceName(cfg))

	deps.SnapshotRepo = snapshot.NewRepo(db)

	deps.StateRepo = app_state.NewRepo(db)
	deps.StateHandler = app_state.NewHandler(deps.StateRepo)

	deps.StudentRepo = student.NewRepo(db)
	deps.StudentHandler = student.NewHandler(deps.StudentRepo)

	if cfg.Redis.Enabled {
		client, err := lock.NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
		deps.Locker = lock.NewRedisLocker(client)
	} else {
		deps.Locker = lock.NewLocalLocker()
	}

	settings := lesson_sync.SettingsFrom(cfg)
	deps.SyncMetrics = lesson_sync.NewMetrics()
	deps.SyncService = lesson_sync.NewService(
		deps.EventSource,
		deps.SnapshotRepo,
		deps.StateRepo,
		deps.StudentRepo,
		deps.Locker,
		deps.Bus,
		deps.Clock,
		deps.SyncMetrics,
		settings,
	)
	deps.SyncHandler = lesson_sync.NewHandler(deps.SyncService, deps.SnapshotRepo, deps.Bus, deps.Clock, settings)

	event_bus.SubscribeTyped(deps.Bus, event_bus.SyncRequestedType, deps.SyncService.OnSyncRequested)
	event_bus.SubscribeTyped(deps.Bus, event_bus.DailySnapshotChangedType, deps.SyncMetrics.OnSnapshotChanged)

	return deps, nil
}

func (d *Dependencies) sourceName(cfg config.Application) string {
	if cfg.Source.Kind == sourceICS {
		return "ICS feeds"
	}
	return "Google Calendar"
}
