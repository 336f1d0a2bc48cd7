package student

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

type Repository interface {
	// LookupFolder returns the folder of the student or "" when the name is unknown.
	LookupFolder(ctx context.Context, name string) (string, error)
	// Folders returns every name -> folder mapping with a non-empty folder.
	Folders(ctx context.Context) (map[string]string, error)
	List(ctx context.Context) ([]Student, error)
	Store(ctx context.Context, student Student) error
	Delete(ctx context.Context, name string) error
}

type repositoryImpl struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) LookupFolder(ctx context.Context, name string) (string, error) {
	var folder string
	err := r.db.QueryRow(ctx, "SELECT folder FROM student WHERE name = $1", name).Scan(&folder)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		err := fmt.Errorf("could not look up folder of %s: %w", name, err)
		log.Error(err)
		return "", err
	}
	return folder, nil
}

func (r *repositoryImpl) Folders(ctx context.Context) (map[string]string, error) {
	students, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	folders := make(map[string]string, len(students))
	for _, s := range students {
		if s.Name != "" && s.Folder != "" {
			folders[s.Name] = s.Folder
		}
	}
	return folders, nil
}

func (r *repositoryImpl) List(ctx context.Context) ([]Student, error) {
	rows, err := r.db.Query(ctx, "SELECT name, folder FROM student ORDER BY name")
	if err != nil {
		err := fmt.Errorf("could not list students: %w", err)
		log.Error(err)
		return nil, err
	}
	students, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Student, error) {
		var s Student
		err := row.Scan(&s.Name, &s.Folder)
		return s, err
	})
	if err != nil {
		err := fmt.Errorf("could not scan students: %w", err)
		log.Error(err)
		return nil, err
	}
	return students, nil
}

func (r *repositoryImpl) Store(ctx context.Context, student Student) error {
	_, err := r.db.Exec(ctx, `INSERT INTO student (name, folder) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET folder = EXCLUDED.folder`, student.Name, student.Folder)
	if err != nil {
		err := fmt.Errorf("could not store student %s: %w", student.Name, err)
		log.Error(err)
		return err
	}
	return nil
}

func (r *repositoryImpl) Delete(ctx context.Context, name string) error {
	result, err := r.db.Exec(ctx, "DELETE FROM student WHERE name = $1", name)
	if err != nil {
		err := fmt.Errorf("could not delete student %s: %w", name, err)
		log.Error(err)
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrStudentNotFound
	}
	return nil
}
