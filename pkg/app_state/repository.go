package app_state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	GetState(ctx context.Context) (SyncState, error)
	// SetVersion stores version, lastUpdated and the digest of the snapshot the
	// version describes. The write succeeds only when version is exactly one
	// above the stored version; otherwise ErrStaleVersion.
	SetVersion(ctx context.Context, version int64, lastUpdated time.Time, digest string) error
	// GetFlag returns false for flags that were never set.
	GetFlag(ctx context.Context, name string) (bool, error)
	SetFlag(ctx context.Context, name string, value bool) error
	GetFlags(ctx context.Context) (map[string]bool, error)
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) GetState(ctx context.Context) (SyncState, error) {
	var state SyncState
	var lastUpdated *time.Time
	err := r.db.QueryRow(ctx, "SELECT cache_version, last_updated, snapshot_digest FROM app_state WHERE id = 1").
		Scan(&state.CacheVersion, &lastUpdated, &state.SnapshotDigest)
	if errors.Is(err, pgx.ErrNoRows) {
		return SyncState{}, nil
	}
	if err != nil {
		err := fmt.Errorf("could not read sync state: %w", err)
		log.Error(err)
		return SyncState{}, err
	}
	if lastUpdated != nil {
		state.LastUpdated = *lastUpdated
	}
	return state, nil
}

func (r *repositoryImpl) SetVersion(ctx context.Context, version int64, lastUpdated time.Time, digest string) error {
	result, err := r.db.Exec(ctx, `UPDATE app_state SET cache_version = $1, last_updated = $2, snapshot_digest = $3
		WHERE id = 1 AND cache_version = $4`, version, lastUpdated, digest, version-1)
	if err != nil {
		err := fmt.Errorf("could not store cache version %d: %w", version, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: refusing to set %d", ErrStaleVersion, version)
	}
	return nil
}

func (r *repositoryImpl) GetFlag(ctx context.Context, name string) (bool, error) {
	var value bool
	err := r.db.QueryRow(ctx, "SELECT value FROM app_flag WHERE name = $1", name).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		err := fmt.Errorf("could not read flag %s: %w", name, err)
		log.Error(err)
		return false, err
	}
	return value, nil
}

func (r *repositoryImpl) SetFlag(ctx context.Context, name string, value bool) error {
	if !slices.Contains(KnownFlags, name) {
		return fmt.Errorf("%w: %s", ErrUnknownFlag, name)
	}
	_, err := r.db.Exec(ctx, `INSERT INTO app_flag (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, name, value)
	if err != nil {
		err := fmt.Errorf("could not store flag %s: %w", name, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *repositoryImpl) GetFlags(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.Query(ctx, "SELECT name, value FROM app_flag")
	if err != nil {
		err := fmt.Errorf("could not read flags: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	flags := make(map[string]bool)
	for _, name := range KnownFlags {
		flags[name] = false
	}
	for rows.Next() {
		var name string
		var value bool
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		flags[name] = value
	}
	return flags, rows.Err()
}
