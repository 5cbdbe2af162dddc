package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/auth"
	"taskboard/internal/domain"
)

// Download bundles the blob stream with the metadata the caller needs
// to present the file.
type Download struct {
	Content  io.ReadCloser
	FileName string
	Size     int64
}

// UploadAttachment stores the payload and appends an attachment record
// to the task. The size limit is enforced before any bytes move. The
// transfer itself runs outside the task lock; only the record append
// and persist are serialized. Upload is all-or-nothing: a failed or
// cancelled transfer leaves no record and no blob.
func (e *Engine) UploadAttachment(ctx context.Context, actor domain.User, taskID, fileName string, size int64, content io.Reader) (*domain.Attachment, error) {
	task, err := e.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !auth.CanPerform(actor, *task, auth.ActionUploadAttachment) {
		return nil, fmt.Errorf("%w: user %s may not upload to task %s", domain.ErrUnauthorized, actor.ID, taskID)
	}
	if size > domain.MaxAttachmentSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrPayloadTooLarge, size, domain.MaxAttachmentSize)
	}

	ref, err := e.blobs.Store(ctx, io.LimitReader(content, size))
	if err != nil {
		return nil, fmt.Errorf("%w: storing payload: %w", domain.ErrStorageFailure, err)
	}
	if err := ctx.Err(); err != nil {
		e.discardBlob(ref)
		return nil, err
	}

	e.locks.lock(taskID)
	defer e.locks.unlock(taskID)

	// Reload under the lock: the task may have changed or vanished
	// during the transfer.
	task, err = e.load(ctx, taskID)
	if err != nil {
		e.discardBlob(ref)
		return nil, err
	}
	if !auth.CanPerform(actor, *task, auth.ActionUploadAttachment) {
		e.discardBlob(ref)
		return nil, fmt.Errorf("%w: user %s may not upload to task %s", domain.ErrUnauthorized, actor.ID, taskID)
	}

	att := domain.Attachment{
		ID:         uuid.NewString(),
		FileName:   fileName,
		Size:       size,
		ContentRef: ref,
		UploadedBy: actor.ID,
		UploadedAt: time.Now().UTC(),
	}
	task.Attachments = append(task.Attachments, att)
	if err := e.tasks.Put(ctx, task); err != nil {
		e.discardBlob(ref)
		return nil, fmt.Errorf("%w: persisting task: %w", domain.ErrStorageFailure, err)
	}
	e.log.Info().Str("task_id", taskID).Str("attachment_id", att.ID).Int64("size", size).Msg("attachment uploaded")
	return &att, nil
}

// DownloadAttachment returns the stored payload and its recorded file
// name.
func (e *Engine) DownloadAttachment(ctx context.Context, actor domain.User, taskID, attachmentID string) (*Download, error) {
	task, err := e.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !auth.CanPerform(actor, *task, auth.ActionDownloadAttachment) {
		return nil, fmt.Errorf("%w: user %s may not download from task %s", domain.ErrUnauthorized, actor.ID, taskID)
	}
	idx := task.AttachmentIndex(attachmentID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: attachment %s on task %s", domain.ErrNotFound, attachmentID, taskID)
	}
	att := task.Attachments[idx]
	content, err := e.blobs.Fetch(ctx, att.ContentRef)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching payload: %w", domain.ErrStorageFailure, err)
	}
	return &Download{Content: content, FileName: att.FileName, Size: att.Size}, nil
}

// DeleteAttachment removes the blob first and only then the record, so
// a blob-store failure leaves the record (and a retry path) intact.
func (e *Engine) DeleteAttachment(ctx context.Context, actor domain.User, taskID, attachmentID string) error {
	e.locks.lock(taskID)
	defer e.locks.unlock(taskID)

	task, err := e.load(ctx, taskID)
	if err != nil {
		return err
	}
	if !auth.CanPerform(actor, *task, auth.ActionDeleteAttachment) {
		return fmt.Errorf("%w: user %s may not delete attachments on task %s", domain.ErrUnauthorized, actor.ID, taskID)
	}
	idx := task.AttachmentIndex(attachmentID)
	if idx < 0 {
		return fmt.Errorf("%w: attachment %s on task %s", domain.ErrNotFound, attachmentID, taskID)
	}

	if err := e.blobs.Remove(ctx, task.Attachments[idx].ContentRef); err != nil {
		return fmt.Errorf("%w: removing payload: %w", domain.ErrStorageFailure, err)
	}
	task.Attachments = append(task.Attachments[:idx], task.Attachments[idx+1:]...)
	if err := e.tasks.Put(ctx, task); err != nil {
		return fmt.Errorf("%w: persisting task: %w", domain.ErrStorageFailure, err)
	}
	return nil
}

// discardBlob is best effort cleanup for a payload whose record was
// never created.
func (e *Engine) discardBlob(ref string) {
	if err := e.blobs.Remove(context.Background(), ref); err != nil {
		e.log.Warn().Err(err).Str("ref", ref).Msg("failed to discard orphaned blob")
	}
}
