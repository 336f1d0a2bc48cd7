package lesson_sync

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/greensquare/lessonsync/internal/event_bus"
	"github.com/greensquare/lessonsync/internal/utils"
	"github.com/greensquare/lessonsync/pkg/app_state"
	"github.com/greensquare/lessonsync/pkg/lesson"
	"github.com/greensquare/lessonsync/pkg/lock"
	"github.com/greensquare/lessonsync/pkg/snapshot"
	"github.com/greensquare/lessonsync/pkg/student"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	// SyncDaily rebuilds the daily snapshot for the day containing date.
	SyncDaily(ctx context.Context, date time.Time) (DailyResult, error)
	// SyncMonthly rebuilds table from the events of the month containing month.
	SyncMonthly(ctx context.Context, month time.Time, table string) (MonthResult, error)
	// SyncBothMonths rebuilds the current and the next month. The error is
	// only set when the sync could not start; per-month failures are in the result.
	SyncBothMonths(ctx context.Context) (MonthlyResult, error)
	// SyncAll runs both monthly tables and then the daily snapshot under one lease.
	SyncAll(ctx context.Context) error
}

type ServiceImpl struct {
	source    EventSource
	snapshots snapshot.Repository
	state     app_state.Repository
	students  student.Repository
	locker    lock.Locker
	bus       *event_bus.EventBus
	clock     utils.Clock
	metrics   *Metrics
	settings  Settings

	// pending is set by sync requests that found the lease taken.
	pending atomic.Bool
	// holding is true while this service holds the lease.
	holding  atomic.Bool
	retrying atomic.Bool
}

func NewService(
	source EventSource,
	snapshots snapshot.Repository,
	state app_state.Repository,
	students student.Repository,
	locker lock.Locker,
	bus *event_bus.EventBus,
	clock utils.Clock,
	metrics *Metrics,
	settings Settings,
) *ServiceImpl {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.LockTTL <= 0 {
		settings.LockTTL = 5 * time.Minute
	}
	if settings.RetryInterval <= 0 {
		settings.RetryInterval = 5 * time.Second
	}
	return &ServiceImpl{
		source:    source,
		snapshots: snapshots,
		state:     state,
		students:  students,
		locker:    locker,
		bus:       bus,
		clock:     clock,
		metrics:   metrics,
		settings:  settings,
	}
}

func (s *ServiceImpl) SyncDaily(ctx context.Context, date time.Time) (DailyResult, error) {
	var result DailyResult
	err := s.withLock(ctx, FlowDaily, func(ctx context.Context) error {
		var err error
		result, err = s.syncDaily(ctx, date)
		return err
	})
	return result, err
}

func (s *ServiceImpl) SyncMonthly(ctx context.Context, month time.Time, table string) (MonthResult, error) {
	var result MonthResult
	err := s.withLock(ctx, FlowMonthly, func(ctx context.Context) error {
		result = s.syncMonthly(ctx, month, table)
		return result.Err
	})
	return result, err
}

func (s *ServiceImpl) SyncBothMonths(ctx context.Context) (MonthlyResult, error) {
	var result MonthlyResult
	ran := false
	err := s.withLock(ctx, FlowMonthly, func(ctx context.Context) error {
		ran = true
		result = s.syncBothMonths(ctx)
		return result.Err()
	})
	if !ran {
		return result, err
	}
	return result, nil
}

func (s *ServiceImpl) SyncAll(ctx context.Context) error {
	return s.withLock(ctx, FlowAll, s.syncAll)
}

func (s *ServiceImpl) syncAll(ctx context.Context) error {
	monthly := s.syncBothMonths(ctx)
	_, dailyErr := s.syncDaily(ctx, s.clock.Now())
	return errors.Join(monthly.Err(), dailyErr)
}

// withLock runs fn under the sync lease and afterwards serves sync requests
// queued while the lease was held.
func (s *ServiceImpl) withLock(ctx context.Context, flow string, fn func(ctx context.Context) error) error {
	err := s.runLocked(ctx, flow, fn)
	if !errors.Is(err, ErrSyncInProgress) && s.pending.Load() {
		if err := s.drainPending(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, ErrSyncInProgress) {
			log.Warnf("queued sync failed: %v", err)
		}
	}
	return err
}

func (s *ServiceImpl) runLocked(ctx context.Context, flow string, fn func(ctx context.Context) error) error {
	release, err := s.locker.Acquire(ctx, SyncLockKey, s.settings.LockTTL)
	if errors.Is(err, lock.ErrNotAcquired) {
		log.Warnf("skipping %s sync: %v", flow, ErrSyncInProgress)
		s.metrics.observeRun(flow, outcomeSkipped, 0)
		return ErrSyncInProgress
	}
	if err != nil {
		err := fmt.Errorf("could not acquire sync lock: %w", err)
		log.Error(err)
		return err
	}
	s.holding.Store(true)
	defer func() {
		s.holding.Store(false)
		release()
	}()

	started := time.Now()
	err = fn(ctx)
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeFailed
	}
	s.metrics.observeRun(flow, outcome, time.Since(started).Seconds())
	return err
}

func (s *ServiceImpl) syncDaily(ctx context.Context, date time.Time) (DailyResult, error) {
	loc := s.settings.Location
	day := utils.StartOfDay(date, loc)
	result := DailyResult{Date: day}
	log.Infof("daily sync for %s started", day.Format("2006-01-02"))

	previous, err := s.snapshots.ReadRows(ctx, snapshot.DailyTable)
	if err != nil {
		err := fmt.Errorf("could not read previous daily snapshot: %w", err)
		log.Error(err)
		return result, err
	}
	previousFlags, err := snapshot.DecodeFlagStates(previous)
	if err != nil {
		err := fmt.Errorf("could not read flags of previous daily snapshot: %w", err)
		log.Error(err)
		return result, err
	}

	penultimate, err := s.state.GetFlag(ctx, app_state.PenultimateEvaluationDue)
	if err != nil {
		log.Warnf("could not read %s flag, assuming false: %v", app_state.PenultimateEvaluationDue, err)
		penultimate = false
	}
	folders := s.loadFolders(ctx)

	events, err := s.fetchAll(ctx, day, day.AddDate(0, 0, 1), false)
	if err != nil {
		return result, err
	}

	var entries []lesson.DailyEntry
	for _, event := range events {
		if !lesson.IsLesson(event.Title) {
			continue
		}
		parsed := lesson.ParseTitle(event.Title, event.Description, penultimate)
		status := lesson.DailyStatusOf(event.Title, event.Color)
		if attempted, err := s.markEvaluation(ctx, event, parsed); attempted {
			result.ColorWrites++
			if err != nil {
				result.ColorWriteErrors++
			}
		}
		entries = append(entries, lesson.FlattenDaily(event, parsed, status, folderResolver(folders), loc)...)
	}

	records := snapshot.Reconcile(lesson.GroupDaily(entries), previousFlags)
	if len(records) == 0 {
		log.Infof("no lessons found for %s, keeping the stored daily snapshot", day.Format("2006-01-02"))
		return result, nil
	}

	rows := snapshot.EncodeDailyRows(records)
	if err := s.snapshots.WriteRows(ctx, snapshot.DailyTable, snapshot.DailyHeader, rows); err != nil {
		err := fmt.Errorf("could not write daily snapshot: %w", err)
		log.Error(err)
		return result, err
	}
	result.Lessons = records
	result.Written = true

	state, err := s.state.GetState(ctx)
	if err != nil {
		return result, fmt.Errorf("could not read sync state: %w", err)
	}
	result.Version = state.CacheVersion

	// Compare against the snapshot the current version was bumped for, so a
	// bump that failed after the rows were written is retried on the next run.
	baseline := state.SnapshotDigest
	if baseline == "" && state.CacheVersion > 0 {
		baseline = snapshot.Digest(previous)
	}
	digest := snapshot.Digest(snapshot.WithHeader(snapshot.DailyHeader, rows))
	if baseline == digest {
		log.Infof("daily snapshot unchanged (%d lessons), version stays %d", len(records), state.CacheVersion)
		return result, nil
	}

	now := s.clock.Now()
	next := state.CacheVersion + 1
	if err := s.state.SetVersion(ctx, next, now, digest); err != nil {
		err := fmt.Errorf("could not bump cache version to %d: %w", next, err)
		log.Error(err)
		return result, err
	}
	result.Changed = true
	result.Version = next
	log.Infof("daily snapshot changed (%d lessons), version %d", len(records), next)

	s.publish(ctx, event_bus.DailySnapshotChangedType, event_bus.DailySnapshotChanged{
		Version:     next,
		LastUpdated: now,
		LessonCount: len(records),
	})
	return result, nil
}

// markEvaluation recolors an event whose evaluation markers were detected.
// Events already carrying a status color are left alone; failures are logged
// and never abort the sync.
func (s *ServiceImpl) markEvaluation(ctx context.Context, event lesson.RawEvent, parsed lesson.ParsedTitle) (attempted bool, err error) {
	if _, colored := lesson.ColorStatus(event.Color); colored {
		return false, nil
	}
	var target lesson.Color
	switch {
	case parsed.EvaluationReady:
		target = s.settings.ReadyColor
	case parsed.EvaluationDue:
		target = s.settings.DueColor
	default:
		return false, nil
	}
	if event.Color == target {
		return false, nil
	}

	err = s.source.SetEventColor(ctx, event.Calendar, event.ID, target)
	s.metrics.observeColorWrite(err)
	if err != nil {
		log.Warnf("could not set color %s on event %s: %v", target, event.ID, err)
		return true, err
	}
	log.Debugf("event %s colored %s", event.ID, target)
	return true, nil
}

func (s *ServiceImpl) syncBothMonths(ctx context.Context) MonthlyResult {
	current := utils.StartOfMonth(s.clock.Now(), s.settings.Location)
	return MonthlyResult{
		Current: s.syncMonthly(ctx, current, snapshot.MonthlyTable),
		Next:    s.syncMonthly(ctx, current.AddDate(0, 1, 0), snapshot.NextMonthTable),
	}
}

func (s *ServiceImpl) syncMonthly(ctx context.Context, month time.Time, table string) MonthResult {
	loc := s.settings.Location
	from := utils.StartOfMonth(month, loc)
	result := MonthResult{Month: from.Format("2006-01"), Table: table}

	events, err := s.fetchAll(ctx, from, from.AddDate(0, 1, 0), true)
	if err != nil {
		result.Err = err
		return result
	}

	var rows []lesson.MonthlyLessonRow
	for _, event := range events {
		if !lesson.IsLesson(event.Title) {
			continue
		}
		parsed := lesson.ParseTitle(event.Title, event.Description, false)
		status := lesson.MonthlyStatusOf(event.Title, event.Color)
		rows = append(rows, lesson.FlattenMonthly(event, parsed, status, s.settings.OwnerTeacher, loc)...)
	}
	result.Rows = len(rows)

	if len(rows) == 0 {
		log.Infof("no lessons found for %s, keeping table %s", result.Month, table)
		return result
	}
	if err := s.snapshots.WriteRows(ctx, table, snapshot.MonthlyHeader, snapshot.EncodeMonthlyRows(rows)); err != nil {
		err := fmt.Errorf("could not write %s for %s: %w", table, result.Month, err)
		log.Error(err)
		result.Err = err
		return result
	}
	result.Written = true
	log.Infof("cached %d lesson rows of %s into %s", len(rows), result.Month, table)
	return result
}

// fetchAll reads every lesson calendar in order. With skipUnconfigured a
// calendar without identifier is left out instead of failing the flow.
func (s *ServiceImpl) fetchAll(ctx context.Context, from, to time.Time, skipUnconfigured bool) ([]lesson.RawEvent, error) {
	var events []lesson.RawEvent
	for _, calendarType := range lesson.CalendarTypes {
		fetched, err := s.source.FetchEvents(ctx, calendarType, from, to)
		if err != nil {
			if skipUnconfigured && errors.Is(err, lesson.ErrCalendarNotConfigured) {
				log.Warnf("skipping %s calendar: %v", calendarType, err)
				continue
			}
			err := fmt.Errorf("could not fetch events of %s calendar: %w", calendarType, err)
			log.Error(err)
			return nil, err
		}
		for _, e := range fetched {
			e.Calendar = calendarType
			events = append(events, e)
		}
	}
	return events, nil
}

func (s *ServiceImpl) loadFolders(ctx context.Context) map[string]string {
	if s.students == nil {
		return nil
	}
	folders, err := s.students.Folders(ctx)
	if err != nil {
		log.Warnf("could not load student directory, folders stay empty: %v", err)
		return nil
	}
	return folders
}

func folderResolver(folders map[string]string) lesson.FolderResolver {
	return func(name string) string {
		return folders[name]
	}
}

func (s *ServiceImpl) publish(ctx context.Context, eventType event_bus.EventType, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event_bus.NewEvent(ctx, eventType, data)); err != nil {
		log.Warnf("publishing %s failed: %v", eventType, err)
	}
}

// OnSyncRequested runs a full sync, subscribe it to SyncRequestedType.
// Requests arriving while a sync holds the lease are merged into one
// follow-up sync once the lease is free.
func (s *ServiceImpl) OnSyncRequested(e event_bus.EventT[event_bus.SyncRequested]) error {
	log.Infof("sync requested by %s", e.Data.Trigger)
	s.pending.Store(true)
	err := s.drainPending(e.Context())
	if errors.Is(err, ErrSyncInProgress) {
		log.Infof("sync requested by %s queued behind the running sync", e.Data.Trigger)
		return nil
	}
	return err
}

// drainPending runs full syncs while requests are pending. When the lease is
// taken the request stays pending: a holder in this process serves it on
// release, otherwise a background retry polls for the lease.
func (s *ServiceImpl) drainPending(ctx context.Context) error {
	var err error
	for s.pending.Swap(false) {
		err = s.runLocked(ctx, FlowAll, s.syncAll)
		if errors.Is(err, ErrSyncInProgress) {
			s.pending.Store(true)
			if !s.holding.Load() {
				s.retryPending()
			}
			return err
		}
	}
	return err
}

func (s *ServiceImpl) retryPending() {
	if !s.retrying.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.retrying.Store(false)

		ticker := time.NewTicker(s.settings.RetryInterval)
		defer ticker.Stop()
		giveUp := time.NewTimer(s.settings.LockTTL + s.settings.RetryInterval)
		defer giveUp.Stop()

		for s.pending.Load() {
			select {
			case <-giveUp.C:
				log.Warnf("dropping queued sync, lease still taken after %s", s.settings.LockTTL)
				s.pending.Store(false)
				return
			case <-ticker.C:
			}
			if s.holding.Load() {
				// served by the local holder on release
				return
			}
			err := s.drainPending(context.Background())
			if err != nil && !errors.Is(err, ErrSyncInProgress) {
				log.Warnf("queued sync failed: %v", err)
			}
		}
	}()
}
