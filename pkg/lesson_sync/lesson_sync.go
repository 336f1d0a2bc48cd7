package lesson_sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greensquare/lessonsync/internal/config"
	"github.com/greensquare/lessonsync/pkg/lesson"
	log "github.com/sirupsen/logrus"
)

// SyncLockKey is the lease guarding one full sync.
const SyncLockKey = "sync"

var (
	ErrSyncInProgress = errors.New("another sync is in progress")
	ErrInvalidDate    = errors.New("invalid date, expected DD/MM/YYYY")
	ErrInvalidMonth   = errors.New("invalid month")
)

// EventSource delivers raw events of the lesson calendars and recolors them.
type EventSource interface {
	FetchEvents(ctx context.Context, calendarType lesson.CalendarType, from, to time.Time) ([]lesson.RawEvent, error)
	// SetEventColor looks the event up in calendarType first and falls back to the other calendars.
	SetEventColor(ctx context.Context, calendarType lesson.CalendarType, eventId string, color lesson.Color) error
}

type Settings struct {
	Location      *time.Location
	OwnerTeacher  string
	ReadyColor    lesson.Color
	DueColor      lesson.Color
	LockTTL       time.Duration
	// RetryInterval is how often a queued sync request polls a lease held by another process.
	RetryInterval time.Duration
}

func SettingsFrom(cfg config.Application) Settings {
	return Settings{
		Location:     cfg.Location(),
		OwnerTeacher: cfg.Sync.OwnerTeacherName,
		ReadyColor:   colorOrDefault(cfg.Sync.ReadyColor, lesson.ColorBasil),
		DueColor:     colorOrDefault(cfg.Sync.DueColor, lesson.ColorFlamingo),
		LockTTL:      cfg.Sync.LockTTL,
	}
}

func colorOrDefault(name string, fallback lesson.Color) lesson.Color {
	if name == "" {
		return fallback
	}
	c, ok := lesson.ColorByName(name)
	if !ok {
		log.Warnf("unknown color %q, using %s", name, fallback)
		return fallback
	}
	return c
}

type DailyResult struct {
	Date    time.Time
	Lessons []lesson.LessonRecord
	// Written is false when no lessons were found and the stored snapshot was left alone.
	Written bool
	Changed bool
	// Version is the cache version after the sync.
	Version          int64
	ColorWrites      int
	ColorWriteErrors int
}

type MonthResult struct {
	Month   string // YYYY-MM
	Table   string
	Rows    int
	Written bool
	Err     error
}

// MonthlyResult reports both months; a failure of one month never stops the other.
type MonthlyResult struct {
	Current MonthResult
	Next    MonthResult
}

// Err joins the per-month failures, nil when both months succeeded.
func (r MonthlyResult) Err() error {
	var errs []error
	if r.Current.Err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", r.Current.Month, r.Current.Err))
	}
	if r.Next.Err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", r.Next.Month, r.Next.Err))
	}
	return errors.Join(errs...)
}
