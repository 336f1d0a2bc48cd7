package event_bus

import "time"

const (
	SyncRequestedType        EventType = "sync.requested"
	DailySnapshotChangedType EventType = "snapshot.daily.changed"
)

// SyncRequested is the payload-free "something changed" signal. Trigger names
// where it came from: "webhook", "cron", "manual".
type SyncRequested struct {
	Trigger string
}

// DailySnapshotChanged is published after the daily snapshot fingerprint moved
// and the cache version was bumped.
type DailySnapshotChanged struct {
	Version     int64
	LastUpdated time.Time
	LessonCount int
}
