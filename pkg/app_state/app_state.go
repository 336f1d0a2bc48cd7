package app_state

import (
	"errors"
	"time"
)

// PenultimateEvaluationDue makes lessons one session before the end of a course due for evaluation.
const PenultimateEvaluationDue = "penultimateEvaluationDue"

// KnownFlags lists the flags an operator may set.
var KnownFlags = []string{PenultimateEvaluationDue}

var (
	// ErrStaleVersion is returned when a version write would not advance the counter by exactly one.
	ErrStaleVersion = errors.New("cache version is stale")
	ErrUnknownFlag  = errors.New("unknown flag")
)

type SyncState struct {
	CacheVersion int64
	// LastUpdated is zero until the first version bump.
	LastUpdated time.Time
	// SnapshotDigest identifies the daily snapshot CacheVersion was bumped for,
	// empty until the first bump.
	SnapshotDigest string
}
