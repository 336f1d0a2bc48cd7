package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/greensquare/lessonsync/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const migrationsDir = "migrations"

// Open connects a pool with search_path pinned to the configured schema and pings it.
func Open(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password='%s' dbname=%s sslmode=disable options='-c search_path=%s'",
		cfg.Host, cfg.Port, cfg.User, strings.ReplaceAll(cfg.Pass, "'", "\\'"), cfg.Name, cfg.Schema)
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		err := fmt.Errorf("could not reach database %s at %s:%d: %w", cfg.Name, cfg.Host, cfg.Port, err)
		log.Error(err)
		return nil, err
	}
	log.Debugf("connected to database %s at %s:%d (schema %s)", cfg.Name, cfg.Host, cfg.Port, cfg.Schema)
	return pool, nil
}

// Migrate brings the schema up to the latest migration.
func Migrate(cfg config.Database) error {
	dbUrl := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s",
		url.QueryEscape(cfg.User), url.QueryEscape(cfg.Pass), cfg.Host, cfg.Port, cfg.Name, cfg.Schema)

	migrationsPath := cfg.Migrations
	if migrationsPath == "" {
		found, err := findMigrationsPath()
		if err != nil {
			return fmt.Errorf("failed to locate migrations directory: %w", err)
		}
		migrationsPath = found
	}

	m, err := migrate.New("file://"+migrationsPath, dbUrl)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}

	version, dirty, verr := m.Version()
	switch {
	case verr != nil:
		log.Warnf("could not read schema version: %v", verr)
	case errors.Is(err, migrate.ErrNoChange):
		log.Debugf("schema %s already at version %d", cfg.Schema, version)
	default:
		log.Infof("schema %s migrated to version %d (dirty=%t)", cfg.Schema, version, dirty)
	}
	return nil
}

// findMigrationsPath walks up from the working directory until it finds the migrations directory.
func findMigrationsPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, migrationsDir)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%s directory not found above %s", migrationsDir, dir)
		}
		dir = parent
	}
}
