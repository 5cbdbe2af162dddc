// Package memory provides in-memory implementations of the task,
// user and blob collaborators. They back demo mode and the package
// tests; semantics mirror the Postgres store.
package memory

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"

	"taskboard/internal/domain"
)

type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*domain.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*domain.Task)}
}

func (s *TaskStore) Get(ctx context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (s *TaskStore) Put(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task.Clone()
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

func (s *TaskStore) List(ctx context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Clone())
	}
	sortTasks(out)
	return out, nil
}

func (s *TaskStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t.Clone())
		}
	}
	sortTasks(out)
	return out, nil
}

// Creation order, ties broken by id for a stable listing.
func sortTasks(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}

type UserStore struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]*domain.User)}
}

func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (s *UserStore) List(ctx context.Context) ([]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		copied := *u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *UserStore) Put(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

type BlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewBlobStore() *BlobStore {
	return &BlobStore{blobs: make(map[string][]byte)}
}

func (s *BlobStore) Store(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref := uuid.NewString()
	s.mu.Lock()
	s.blobs[ref] = data
	s.mu.Unlock()
	return ref, nil
}

func (s *BlobStore) Fetch(ctx context.Context, ref string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *BlobStore) Remove(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[ref]; !ok {
		return domain.ErrNotFound
	}
	delete(s.blobs, ref)
	return nil
}

// Len reports the number of stored blobs.
func (s *BlobStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
