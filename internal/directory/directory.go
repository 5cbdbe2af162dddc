// Package directory fronts the external user-management collaborator
// and keeps task ownership consistent: deleting a user cascades to the
// user's tasks, their attachments and the backing blobs.
package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"taskboard/internal/domain"
	"taskboard/internal/engine"
)

// cascadeConcurrency bounds how many of a user's tasks are torn down
// in parallel during a cascade delete.
const cascadeConcurrency = 4

type Directory struct {
	users  domain.UserStore
	tasks  domain.TaskRepository
	engine *engine.Engine
	log    zerolog.Logger
}

func New(users domain.UserStore, tasks domain.TaskRepository, eng *engine.Engine, log zerolog.Logger) *Directory {
	return &Directory{
		users:  users,
		tasks:  tasks,
		engine: eng,
		log:    log.With().Str("component", "directory").Logger(),
	}
}

// UserPatch carries partial updates for a user record.
type UserPatch struct {
	Name  *string
	Email *string
	Role  *domain.Role
}

// CreateUser registers a new account with role user. Email addresses
// are unique across the directory.
func (d *Directory) CreateUser(ctx context.Context, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", domain.ErrInvalidInput)
	}
	if err := d.checkEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      domain.RoleUser,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.users.Put(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: persisting user: %w", domain.ErrStorageFailure, err)
	}
	d.log.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// ListUsers is an admin surface; the original board exposes the full
// directory only there.
func (d *Directory) ListUsers(ctx context.Context, actor domain.User) ([]*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: user %s may not list users", domain.ErrUnauthorized, actor.ID)
	}
	users, err := d.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: listing users: %w", domain.ErrStorageFailure, err)
	}
	return users, nil
}

func (d *Directory) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := d.users.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: loading user: %w", domain.ErrStorageFailure, err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return user, nil
}

// UpdateUser applies a partial update. Role changes require an admin;
// name and email may also be changed by the user themself.
func (d *Directory) UpdateUser(ctx context.Context, actor domain.User, id string, patch UserPatch) (*domain.User, error) {
	user, err := d.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	self := actor.ID == id
	if !actor.IsAdmin() && !self {
		return nil, fmt.Errorf("%w: user %s may not update user %s", domain.ErrUnauthorized, actor.ID, id)
	}
	if patch.Role != nil {
		if !actor.IsAdmin() {
			return nil, fmt.Errorf("%w: only admins may change roles", domain.ErrUnauthorized)
		}
		if !patch.Role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, *patch.Role)
		}
		user.Role = *patch.Role
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
		}
		user.Name = name
	}
	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if email == "" {
			return nil, fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
		}
		if err := d.checkEmailFree(ctx, email, id); err != nil {
			return nil, err
		}
		user.Email = email
	}

	if err := d.users.Put(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: persisting user: %w", domain.ErrStorageFailure, err)
	}
	return user, nil
}

// DeleteUser removes an account and everything it owns: each owned
// task's attachment blobs, then the tasks, then the user record.
// Admins may not delete their own account, which keeps the acting
// session's authority intact for the whole cascade.
func (d *Directory) DeleteUser(ctx context.Context, actor domain.User, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: user %s may not delete users", domain.ErrUnauthorized, actor.ID)
	}
	if actor.ID == id {
		return fmt.Errorf("%w: admins may not delete their own account", domain.ErrInvalidInput)
	}
	if _, err := d.GetUser(ctx, id); err != nil {
		return err
	}

	owned, err := d.tasks.ListByOwner(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: listing owned tasks: %w", domain.ErrStorageFailure, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cascadeConcurrency)
	for _, task := range owned {
		task := task
		g.Go(func() error {
			return d.engine.DeleteTask(gctx, actor, task.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := d.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("%w: deleting user: %w", domain.ErrStorageFailure, err)
	}
	d.log.Info().Str("user_id", id).Int("tasks_removed", len(owned)).Msg("user deleted")
	return nil
}

func (d *Directory) checkEmailFree(ctx context.Context, email, excludeID string) error {
	users, err := d.users.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: listing users: %w", domain.ErrStorageFailure, err)
	}
	for _, u := range users {
		if u.ID != excludeID && strings.EqualFold(u.Email, email) {
			return fmt.Errorf("%w: email %s is already registered", domain.ErrInvalidInput, email)
		}
	}
	return nil
}
