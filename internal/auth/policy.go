// Package auth evaluates whether an actor may perform an action on a
// task. Evaluation is pure and re-run on every call; results are never
// cached because roles and ownership change between calls.
package auth

import "taskboard/internal/domain"

type Action string

const (
	ActionView               Action = "view"
	ActionEdit               Action = "edit"
	ActionDelete             Action = "delete"
	ActionUploadAttachment   Action = "upload_attachment"
	ActionDownloadAttachment Action = "download_attachment"
	ActionDeleteAttachment   Action = "delete_attachment"
)

// CanPerform reports whether actor may perform action on task.
//
// Admins may do everything. For everyone else: edit, delete and
// attachment deletion require ownership; attachment upload is open to
// owner and assignees; view and attachment download are open to owner
// and assignees. There is no public visibility tier.
func CanPerform(actor domain.User, task domain.Task, action Action) bool {
	if actor.IsAdmin() {
		return true
	}
	owner := actor.ID == task.OwnerID
	assigned := task.IsAssigned(actor.ID)

	switch action {
	case ActionEdit, ActionDelete, ActionDeleteAttachment:
		return owner
	case ActionUploadAttachment:
		return owner || assigned
	case ActionView, ActionDownloadAttachment:
		return owner || assigned
	}
	return false
}
