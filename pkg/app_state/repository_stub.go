package app_state

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

type RepositoryStub struct {
	mu    sync.RWMutex
	state SyncState
	flags map[string]bool
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{flags: make(map[string]bool)}
}

func (r *RepositoryStub) GetState(ctx context.Context) (SyncState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state, nil
}

func (r *RepositoryStub) SetVersion(ctx context.Context, version int64, lastUpdated time.Time, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if version != r.state.CacheVersion+1 {
		return fmt.Errorf("%w: refusing to set %d", ErrStaleVersion, version)
	}
	r.state = SyncState{CacheVersion: version, LastUpdated: lastUpdated, SnapshotDigest: digest}
	return nil
}

func (r *RepositoryStub) GetFlag(ctx context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags[name], nil
}

func (r *RepositoryStub) SetFlag(ctx context.Context, name string, value bool) error {
	if !slices.Contains(KnownFlags, name) {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[name] = value
	return nil
}

func (r *RepositoryStub) GetFlags(ctx context.Context) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flags := make(map[string]bool, len(KnownFlags))
	for _, name := range KnownFlags {
		flags[name] = r.flags[name]
	}
	return flags, nil
}
