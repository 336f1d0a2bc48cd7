package student

import (
	"context"
	"sort"
	"sync"
)

type RepositoryStub struct {
	mu      sync.RWMutex
	folders map[string]string

	// Err, when set, is returned by every read.
	Err error
}

func NewRepositoryStub(folders map[string]string) *RepositoryStub {
	stored := make(map[string]string, len(folders))
	for name, folder := range folders {
		stored[name] = folder
	}
	return &RepositoryStub{folders: stored}
}

func (r *RepositoryStub) LookupFolder(ctx context.Context, name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return "", r.Err
	}
	return r.folders[name], nil
}

func (r *RepositoryStub) Folders(ctx context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	folders := make(map[string]string, len(r.folders))
	for name, folder := range r.folders {
		if folder != "" {
			folders[name] = folder
		}
	}
	return folders, nil
}

func (r *RepositoryStub) List(ctx context.Context) ([]Student, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Err != nil {
		return nil, r.Err
	}
	students := make([]Student, 0, len(r.folders))
	for name, folder := range r.folders {
		students = append(students, Student{Name: name, Folder: folder})
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	return students, nil
}

func (r *RepositoryStub) Store(ctx context.Context, student Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folders[student.Name] = student.Folder
	return nil
}

func (r *RepositoryStub) Delete(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.folders[name]; !ok {
		return ErrStudentNotFound
	}
	delete(r.folders, name)
	return nil
}
