package memory

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

func TestTaskStoreCopiesOnReadAndWrite(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	task := &domain.Task{ID: "t1", Title: "original", Tags: []string{"a"}, CreatedAt: time.Now()}
	require.NoError(t, store.Put(ctx, task))

	// Mutating the caller's copy must not leak into the store.
	task.Title = "mutated"
	task.Tags[0] = "z"

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)
	assert.Equal(t, []string{"a"}, got.Tags)

	// And mutating a fetched copy must not either.
	got.Title = "mutated again"
	again, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Title)
}

func TestTaskStoreGetAbsent(t *testing.T) {
	store := NewTaskStore()
	got, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTaskStoreListOrderedByCreation(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()
	base := time.Now().UTC()

	require.NoError(t, store.Put(ctx, &domain.Task{ID: "b", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, store.Put(ctx, &domain.Task{ID: "a", CreatedAt: base}))

	tasks, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "b", tasks[1].ID)
}

func TestTaskStoreListByOwner(t *testing.T) {
	store := NewTaskStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, &domain.Task{ID: "t1", OwnerID: "u1"}))
	require.NoError(t, store.Put(ctx, &domain.Task{ID: "t2", OwnerID: "u2"}))

	owned, err := store.ListByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, "t1", owned[0].ID)
}

func TestBlobStoreRoundTrip(t *testing.T) {
	store := NewBlobStore()
	ctx := context.Background()

	ref, err := store.Store(ctx, strings.NewReader("bytes"))
	require.NoError(t, err)

	rc, err := store.Fetch(ctx, ref)
	require.NoError(t, err)
	defer rc.Close()

	require.NoError(t, store.Remove(ctx, ref))
	_, err = store.Fetch(ctx, ref)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Remove(ctx, ref), domain.ErrNotFound)
}
