package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStoreFetchRemove(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	ref, err := store.Store(ctx, strings.NewReader("payload"))
	require.NoError(t, err)
	require.NotEmpty(t, ref)

	rc, err := store.Fetch(ctx, ref)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "payload", string(data))

	require.NoError(t, store.Remove(ctx, ref))

	_, err = store.Fetch(ctx, ref)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRemoveMissing(t *testing.T) {
	store := newStore(t)
	err := store.Remove(context.Background(), "no-such-ref")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreCancelledContextLeavesNoFile(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Store(ctx, strings.NewReader("payload"))
	assert.Error(t, err)
}

func TestRefsAreUnique(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	a, err := store.Store(ctx, strings.NewReader("a"))
	require.NoError(t, err)
	b, err := store.Store(ctx, strings.NewReader("b"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
