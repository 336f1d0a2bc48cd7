package snapshot

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

type RepositoryStub struct {
	mu     sync.RWMutex
	tables map[string][][]string // name -> header + rows
	writes map[string]int

	// WriteErr, when set, is returned by every WriteRows call.
	WriteErr error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		tables: make(map[string][][]string),
		writes: make(map[string]int),
	}
}

func (r *RepositoryStub) ReadRows(ctx context.Context, table string) ([][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.tables[table]
	if !ok {
		return nil, nil
	}
	return cloneRows(stored), nil
}

func (r *RepositoryStub) WriteRows(ctx context.Context, table string, header []string, rows [][]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.WriteErr != nil {
		return r.WriteErr
	}
	r.tables[table] = cloneRows(WithHeader(header, rows))
	r.writes[table]++
	return nil
}

func (r *RepositoryStub) AppendRow(ctx context.Context, table string, row []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	r.tables[table] = append(stored, slices.Clone(row))
	return nil
}

// Writes reports how many times WriteRows replaced the table.
func (r *RepositoryStub) Writes(table string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes[table]
}

func cloneRows(rows [][]string) [][]string {
	cloned := make([][]string, len(rows))
	for i, row := range rows {
		cloned[i] = slices.Clone(row)
	}
	return cloned
}
