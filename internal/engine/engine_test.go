package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/domain"
	"taskboard/internal/store/memory"
)

type fixture struct {
	engine *Engine
	tasks  *memory.TaskStore
	users  *memory.UserStore
	blobs  *memory.BlobStore

	owner    domain.User
	assignee domain.User
	stranger domain.User
	admin    domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tasks: memory.NewTaskStore(),
		users: memory.NewUserStore(),
		blobs: memory.NewBlobStore(),
	}
	f.engine = New(f.tasks, f.users, f.blobs, zerolog.Nop())

	f.owner = f.addUser(t, "owner", domain.RoleUser)
	f.assignee = f.addUser(t, "assignee", domain.RoleUser)
	f.stranger = f.addUser(t, "stranger", domain.RoleUser)
	f.admin = f.addUser(t, "admin", domain.RoleAdmin)
	return f
}

func (f *fixture) addUser(t *testing.T, name string, role domain.Role) domain.User {
	t.Helper()
	user := domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     name + "@example.com",
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.users.Put(context.Background(), &user))
	return user
}

func (f *fixture) createTask(t *testing.T, draft Draft) *domain.Task {
	t.Helper()
	task, err := f.engine.CreateTask(context.Background(), f.owner, draft)
	require.NoError(t, err)
	return task
}

func strPtr(s string) *string                  { return &s }
func statusPtr(s domain.Status) *domain.Status { return &s }

func TestCreateTaskDefaults(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t, Draft{Title: "Ship v1"})

	assert.Equal(t, "Ship v1", task.Title)
	assert.Equal(t, domain.StatusTodo, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)
	assert.Equal(t, f.owner.ID, task.OwnerID)
	assert.NotEmpty(t, task.ID)
	assert.Empty(t, task.Attachments)
}

func TestCreateTaskEmptyTitle(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateTask(context.Background(), f.owner, Draft{Title: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateTaskInvalidEnums(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateTask(context.Background(), f.owner, Draft{Title: "x", Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.CreateTask(context.Background(), f.owner, Draft{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateTaskNormalizesTagsAndAssignees(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t, Draft{
		Title:         "tagged",
		Tags:          []string{"a", "b", "a", " ", "b"},
		AssignedUsers: []string{f.assignee.ID, f.assignee.ID},
	})

	assert.Equal(t, []string{"a", "b"}, task.Tags)
	assert.Equal(t, []string{f.assignee.ID}, task.AssignedUsers)

	// Round-trip through the repository preserves the normalized form.
	got, err := f.engine.GetTask(context.Background(), f.owner, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.Tags)
	assert.Equal(t, []string{f.assignee.ID}, got.AssignedUsers)
}

func TestCreateTaskUnknownAssignee(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.CreateTask(context.Background(), f.owner, Draft{
		Title:         "x",
		AssignedUsers: []string{"no-such-user"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestUpdateTaskPartialSemantics(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "original", Description: "desc", Tags: []string{"keep"}})

	updated, err := f.engine.UpdateTask(context.Background(), f.owner, task.ID, domain.TaskPatch{
		Title: strPtr("renamed"),
	})
	require.NoError(t, err)

	assert.Equal(t, "renamed", updated.Title)
	assert.Equal(t, "desc", updated.Description)
	assert.Equal(t, []string{"keep"}, updated.Tags)
	assert.Equal(t, domain.StatusTodo, updated.Status)
}

func TestUpdateTaskInvalidStatus(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "x"})

	_, err := f.engine.UpdateTask(context.Background(), f.owner, task.ID, domain.TaskPatch{
		Status: statusPtr("blocked"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateTaskUnknownAssignee(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "x"})

	bad := []string{"ghost"}
	_, err := f.engine.UpdateTask(context.Background(), f.owner, task.ID, domain.TaskPatch{
		AssignedUsers: &bad,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestUpdateTaskNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.UpdateTask(context.Background(), f.owner, "missing", domain.TaskPatch{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMutationsByStrangerAreUnauthorized(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "private"})

	_, err := f.engine.UpdateTask(context.Background(), f.stranger, task.ID, domain.TaskPatch{Title: strPtr("hax")})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.engine.ChangeStatus(context.Background(), f.stranger, task.ID, domain.StatusDone)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	err = f.engine.DeleteTask(context.Background(), f.stranger, task.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.engine.GetTask(context.Background(), f.stranger, task.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAssigneeMayViewButNotEdit(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "shared", AssignedUsers: []string{f.assignee.ID}})

	_, err := f.engine.GetTask(context.Background(), f.assignee, task.ID)
	assert.NoError(t, err)

	_, err = f.engine.UpdateTask(context.Background(), f.assignee, task.ID, domain.TaskPatch{Title: strPtr("nope")})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAdminMayEditAnyTask(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "owned by someone else"})

	updated, err := f.engine.ChangeStatus(context.Background(), f.admin, task.ID, domain.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, updated.Status)
}

func TestChangeStatusAllTransitionsLegal(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "mover"})

	// todo -> done directly, then every other hop.
	for _, status := range []domain.Status{
		domain.StatusDone, domain.StatusTodo, domain.StatusInProgress,
		domain.StatusDone, domain.StatusInProgress, domain.StatusTodo,
	} {
		updated, err := f.engine.ChangeStatus(context.Background(), f.owner, task.ID, status)
		require.NoError(t, err)
		assert.Equal(t, status, updated.Status)
		assert.True(t, updated.Status.Valid())
	}
}

func TestListTasksVisibility(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, Draft{Title: "mine"})
	shared := f.createTask(t, Draft{Title: "shared", AssignedUsers: []string{f.assignee.ID}})

	ownerView, err := f.engine.ListTasks(context.Background(), f.owner)
	require.NoError(t, err)
	assert.Len(t, ownerView, 2)

	assigneeView, err := f.engine.ListTasks(context.Background(), f.assignee)
	require.NoError(t, err)
	require.Len(t, assigneeView, 1)
	assert.Equal(t, shared.ID, assigneeView[0].ID)

	strangerView, err := f.engine.ListTasks(context.Background(), f.stranger)
	require.NoError(t, err)
	assert.Empty(t, strangerView)

	adminView, err := f.engine.ListTasks(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Len(t, adminView, 2)
}

func TestDeleteTaskRemovesBlobs(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "with files"})

	att := uploadString(t, f, task.ID, "a.txt", "hello")
	require.Equal(t, 1, f.blobs.Len())

	require.NoError(t, f.engine.DeleteTask(context.Background(), f.owner, task.ID))

	got, err := f.tasks.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, 0, f.blobs.Len())

	_, err = f.blobs.Fetch(context.Background(), att.ContentRef)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteTaskNotFound(t *testing.T) {
	f := newFixture(t)
	err := f.engine.DeleteTask(context.Background(), f.owner, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Concurrent uploads to the same task must all survive: the per-task
// lock serializes the read-modify-write of the attachment list.
func TestConcurrentUploadsDoNotLoseRecords(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "busy"})

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uploadString(t, f, task.ID, fmt.Sprintf("f%d.txt", i), "data")
		}(i)
	}
	wg.Wait()

	got, err := f.engine.GetTask(context.Background(), f.owner, task.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attachments, n)
	assert.Equal(t, n, f.blobs.Len())
}

func TestConcurrentStatusChangesStayValid(t *testing.T) {
	f := newFixture(t)
	task := f.createTask(t, Draft{Title: "raced"})

	statuses := []domain.Status{domain.StatusTodo, domain.StatusInProgress, domain.StatusDone}
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.engine.ChangeStatus(context.Background(), f.owner, task.ID, statuses[i%3])
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := f.engine.GetTask(context.Background(), f.owner, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.Valid())
}
