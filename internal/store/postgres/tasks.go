package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"taskboard/internal/domain"
)

type TaskRepository struct {
	db *DB
}

// Get retrieves a task with its attachment list, or (nil, nil) when
// the id does not resolve.
func (r *TaskRepository) Get(ctx context.Context, id string) (*domain.Task, error) {
	query := `
		SELECT id, owner_id, title, description, status, priority, due_date, tags, assigned_users, created_at
		FROM tasks
		WHERE id = $1`

	task := &domain.Task{}
	var tags, assignees pq.StringArray
	err := r.db.QueryRow(ctx, query, id).Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&tags,
		&assignees,
		&task.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	task.Tags = tags
	task.AssignedUsers = assignees

	if task.Attachments, err = r.attachments(ctx, id); err != nil {
		return nil, err
	}
	return task, nil
}

// Put upserts the task record and rewrites its attachment rows in one
// transaction, so the stored state always matches a single engine
// mutation.
func (r *TaskRepository) Put(ctx context.Context, task *domain.Task) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO tasks (id, owner_id, title, description, status, priority, due_date, tags, assigned_users, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			due_date = EXCLUDED.due_date,
			tags = EXCLUDED.tags,
			assigned_users = EXCLUDED.assigned_users`

	_, err = tx.Exec(ctx, query,
		task.ID,
		task.OwnerID,
		task.Title,
		task.Description,
		string(task.Status),
		string(task.Priority),
		task.DueDate,
		task.Tags,
		task.AssignedUsers,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error upserting task: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM attachments WHERE task_id = $1`, task.ID); err != nil {
		return fmt.Errorf("error clearing attachments: %w", err)
	}
	for i, att := range task.Attachments {
		_, err := tx.Exec(ctx, `
			INSERT INTO attachments (id, task_id, file_name, size_bytes, content_ref, uploaded_by, uploaded_at, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			att.ID, task.ID, att.FileName, att.Size, att.ContentRef, att.UploadedBy, att.UploadedAt, i,
		)
		if err != nil {
			return fmt.Errorf("error inserting attachment: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM attachments WHERE task_id = $1`, id); err != nil {
		return fmt.Errorf("error deleting attachments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting task: %w", err)
	}
	return tx.Commit(ctx)
}

func (r *TaskRepository) List(ctx context.Context) ([]*domain.Task, error) {
	return r.list(ctx, `
		SELECT id, owner_id, title, description, status, priority, due_date, tags, assigned_users, created_at
		FROM tasks
		ORDER BY created_at, id`)
}

func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	return r.list(ctx, `
		SELECT id, owner_id, title, description, status, priority, due_date, tags, assigned_users, created_at
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at, id`, ownerID)
}

func (r *TaskRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		task := &domain.Task{}
		var tags, assignees pq.StringArray
		err := rows.Scan(
			&task.ID,
			&task.OwnerID,
			&task.Title,
			&task.Description,
			&task.Status,
			&task.Priority,
			&task.DueDate,
			&tags,
			&assignees,
			&task.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		task.Tags = tags
		task.AssignedUsers = assignees
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, task := range tasks {
		if task.Attachments, err = r.attachments(ctx, task.ID); err != nil {
			return nil, err
		}
	}
	return tasks, nil
}

func (r *TaskRepository) attachments(ctx context.Context, taskID string) ([]domain.Attachment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, file_name, size_bytes, content_ref, uploaded_by, uploaded_at
		FROM attachments
		WHERE task_id = $1
		ORDER BY position`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := []domain.Attachment{}
	for rows.Next() {
		var att domain.Attachment
		err := rows.Scan(
			&att.ID,
			&att.FileName,
			&att.Size,
			&att.ContentRef,
			&att.UploadedBy,
			&att.UploadedAt,
		)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, att)
	}
	return attachments, rows.Err()
}
