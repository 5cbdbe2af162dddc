// Package engine validates and applies task mutations. Every operation
// takes an explicit actor and consults the authorization policy before
// touching state; persistence goes through the task repository and
// binary payloads through the blob store.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"taskboard/internal/auth"
	"taskboard/internal/domain"
)

type Engine struct {
	tasks domain.TaskRepository
	users domain.UserStore
	blobs domain.BlobStore
	locks *taskLocks
	log   zerolog.Logger
}

func New(tasks domain.TaskRepository, users domain.UserStore, blobs domain.BlobStore, log zerolog.Logger) *Engine {
	return &Engine{
		tasks: tasks,
		users: users,
		blobs: blobs,
		locks: newTaskLocks(),
		log:   log.With().Str("component", "engine").Logger(),
	}
}

// Draft holds the caller-supplied fields for a new task. Zero-value
// status and priority fall back to todo and medium.
type Draft struct {
	Title         string
	Description   string
	Status        domain.Status
	Priority      domain.Priority
	DueDate       *time.Time
	Tags          []string
	AssignedUsers []string
}

// CreateTask persists a new task owned by the actor. Any authenticated
// user may create tasks.
func (e *Engine) CreateTask(ctx context.Context, actor domain.User, draft Draft) (*domain.Task, error) {
	title := strings.TrimSpace(draft.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	status := draft.Status
	if status == "" {
		status = domain.StatusTodo
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, draft.Status)
	}
	priority := draft.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, draft.Priority)
	}

	assignees, err := e.resolveAssignees(ctx, draft.AssignedUsers)
	if err != nil {
		return nil, err
	}

	task := &domain.Task{
		ID:            uuid.NewString(),
		OwnerID:       actor.ID,
		Title:         title,
		Description:   draft.Description,
		Status:        status,
		Priority:      priority,
		DueDate:       draft.DueDate,
		Tags:          normalizeTags(draft.Tags),
		AssignedUsers: assignees,
		Attachments:   []domain.Attachment{},
		CreatedAt:     time.Now().UTC(),
	}
	if err := e.tasks.Put(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: persisting task: %w", domain.ErrStorageFailure, err)
	}
	e.log.Info().Str("task_id", task.ID).Str("owner", actor.ID).Msg("task created")
	return task, nil
}

// GetTask loads a task the actor is allowed to view.
func (e *Engine) GetTask(ctx context.Context, actor domain.User, taskID string) (*domain.Task, error) {
	task, err := e.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !auth.CanPerform(actor, *task, auth.ActionView) {
		return nil, fmt.Errorf("%w: user %s may not view task %s", domain.ErrUnauthorized, actor.ID, taskID)
	}
	return task, nil
}

// ListTasks returns every task the actor may view, in creation order.
func (e *Engine) ListTasks(ctx context.Context, actor domain.User) ([]*domain.Task, error) {
	all, err := e.tasks.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing tasks: %w", domain.ErrStorageFailure, err)
	}
	visible := make([]*domain.Task, 0, len(all))
	for _, t := range all {
		if auth.CanPerform(actor, *t, auth.ActionView) {
			visible = append(visible, t)
		}
	}
	return visible, nil
}

// UpdateTask applies a partial update. Omitted patch fields retain the
// task's prior value; writes to the same task are serialized.
func (e *Engine) UpdateTask(ctx context.Context, actor domain.User, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	e.locks.lock(taskID)
	defer e.locks.unlock(taskID)

	task, err := e.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !auth.CanPerform(actor, *task, auth.ActionEdit) {
		return nil, fmt.Errorf("%w: user %s may not edit task %s", domain.ErrUnauthorized, actor.ID, taskID)
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		if !patch.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, *patch.Status)
		}
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority %q", domain.ErrInvalidInput, *patch.Priority)
		}
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		due := *patch.DueDate
		task.DueDate = &due
	}
	if patch.Tags != nil {
		task.Tags = normalizeTags(*patch.Tags)
	}
	if patch.AssignedUsers != nil {
		assignees, err := e.resolveAssignees(ctx, *patch.AssignedUsers)
		if err != nil {
			return nil, err
		}
		task.AssignedUsers = assignees
	}

	if err := e.tasks.Put(ctx, task); err != nil {
		return nil, fmt.Errorf("%w: persisting task: %w", domain.ErrStorageFailure, err)
	}
	return task, nil
}

// ChangeStatus moves a task to another workflow state. All transitions
// among the three states are legal; this is the board's move control.
func (e *Engine) ChangeStatus(ctx context.Context, actor domain.User, taskID string, status domain.Status) (*domain.Task, error) {
	return e.UpdateTask(ctx, actor, taskID, domain.TaskPatch{Status: &status})
}

// DeleteTask removes a task and every attachment blob it owns. Blobs
// go first so a repository failure never leaves orphaned bytes behind.
func (e *Engine) DeleteTask(ctx context.Context, actor domain.User, taskID string) error {
	e.locks.lock(taskID)
	defer e.locks.unlock(taskID)

	task, err := e.load(ctx, taskID)
	if err != nil {
		return err
	}
	if !auth.CanPerform(actor, *task, auth.ActionDelete) {
		return fmt.Errorf("%w: user %s may not delete task %s", domain.ErrUnauthorized, actor.ID, taskID)
	}

	for _, att := range task.Attachments {
		if err := e.blobs.Remove(ctx, att.ContentRef); err != nil {
			return fmt.Errorf("%w: removing blob for attachment %s: %w", domain.ErrStorageFailure, att.ID, err)
		}
	}
	if err := e.tasks.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("%w: deleting task: %w", domain.ErrStorageFailure, err)
	}
	e.log.Info().Str("task_id", taskID).Int("attachments", len(task.Attachments)).Msg("task deleted")
	return nil
}

func (e *Engine) load(ctx context.Context, taskID string) (*domain.Task, error) {
	task, err := e.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading task: %w", domain.ErrStorageFailure, err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task %s", domain.ErrNotFound, taskID)
	}
	return task, nil
}

// resolveAssignees checks every id against the user store and drops
// duplicates, keeping first-seen order.
func (e *Engine) resolveAssignees(ctx context.Context, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		user, err := e.users.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: resolving user %s: %w", domain.ErrStorageFailure, id, err)
		}
		if user == nil {
			return nil, fmt.Errorf("%w: assigned user %s does not exist", domain.ErrInvalidReference, id)
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// normalizeTags trims, drops empties and deduplicates while keeping
// insertion order.
func normalizeTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		tag := strings.TrimSpace(v)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
