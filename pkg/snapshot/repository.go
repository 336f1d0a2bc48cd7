package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Repository is the tabular snapshot store. Tables are addressed by name and
// hold a header row plus ordered data rows of string cells.
type Repository interface {
	// ReadRows returns the header row followed by the data rows, or nil when the table does not exist.
	ReadRows(ctx context.Context, table string) ([][]string, error)
	// WriteRows replaces the whole content of the table, creating it when needed.
	WriteRows(ctx context.Context, table string, header []string, rows [][]string) error
	// AppendRow adds a data row at the end of an existing table.
	AppendRow(ctx context.Context, table string, row []string) error
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) ReadRows(ctx context.Context, table string) ([][]string, error) {
	var header []string
	err := r.db.QueryRow(ctx, "SELECT header FROM snapshot_table WHERE name = $1", table).Scan(&header)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		err := fmt.Errorf("could not read header of table %s: %w", table, err)
		log.Error(err)
		return nil, err
	}

	rows, err := r.db.Query(ctx, "SELECT cells FROM snapshot_row WHERE table_name = $1 ORDER BY position", table)
	if err != nil {
		err := fmt.Errorf("could not read rows of table %s: %w", table, err)
		log.Error(err)
		return nil, err
	}
	data, err := pgx.CollectRows(rows, pgx.RowTo[[]string])
	if err != nil {
		err := fmt.Errorf("could not scan rows of table %s: %w", table, err)
		log.Error(err)
		return nil, err
	}

	return WithHeader(header, data), nil
}

func (r *repositoryImpl) WriteRows(ctx context.Context, table string, header []string, rows [][]string) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO snapshot_table (name, header, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (name) DO UPDATE SET header = EXCLUDED.header, updated_at = EXCLUDED.updated_at`, table, header)
		if err != nil {
			return fmt.Errorf("upsert table: %w", err)
		}
		if _, err := tx.Exec(ctx, "DELETE FROM snapshot_row WHERE table_name = $1", table); err != nil {
			return fmt.Errorf("clear rows: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for position, row := range rows {
			batch.Queue("INSERT INTO snapshot_row (table_name, position, cells) VALUES ($1, $2, $3)", table, position, row)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
		return nil
	})
	if err != nil {
		err := fmt.Errorf("could not write table %s: %w", table, err)
		log.Error(err)
		return err
	}
	log.Debugf("table %s written with %d rows", table, len(rows))
	return nil
}

func (r *repositoryImpl) AppendRow(ctx context.Context, table string, row []string) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var name string
		err := tx.QueryRow(ctx, "SELECT name FROM snapshot_table WHERE name = $1 FOR UPDATE", table).Scan(&name)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTableNotFound
		}
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO snapshot_row (table_name, position, cells)
			SELECT $1, COALESCE(MAX(position) + 1, 0), $2 FROM snapshot_row WHERE table_name = $1`, table, row)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, "UPDATE snapshot_table SET updated_at = now() WHERE name = $1", table)
		return err
	})
	if errors.Is(err, ErrTableNotFound) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	if err != nil {
		err := fmt.Errorf("could not append row to table %s: %w", table, err)
		log.Error(err)
		return err
	}
	return nil
}
