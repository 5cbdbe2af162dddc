package domain

import (
	"context"
	"io"
)

// TaskRepository is the persistence collaborator for tasks. Get returns
// (nil, nil) when the id does not resolve.
type TaskRepository interface {
	Get(ctx context.Context, id string) (*Task, error)
	Put(ctx context.Context, task *Task) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Task, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Task, error)
}

// UserStore is the external user-management collaborator. Get returns
// (nil, nil) when the id does not resolve.
type UserStore interface {
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Put(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error
}

// BlobStore is the external binary-storage collaborator. Store returns
// an opaque content reference for later Fetch/Remove.
type BlobStore interface {
	Store(ctx context.Context, r io.Reader) (string, error)
	Fetch(ctx context.Context, ref string) (io.ReadCloser, error)
	Remove(ctx context.Context, ref string) error
}
