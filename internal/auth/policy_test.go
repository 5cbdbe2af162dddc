package auth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"taskboard/internal/domain"
)

func TestCanPerform(t *testing.T) {
	owner := domain.User{ID: "u-owner", Role: domain.RoleUser}
	assignee := domain.User{ID: "u-assignee", Role: domain.RoleUser}
	stranger := domain.User{ID: "u-stranger", Role: domain.RoleUser}
	admin := domain.User{ID: "u-admin", Role: domain.RoleAdmin}

	task := domain.Task{
		ID:            "t1",
		OwnerID:       owner.ID,
		AssignedUsers: []string{assignee.ID},
	}

	allActions := []Action{
		ActionView, ActionEdit, ActionDelete,
		ActionUploadAttachment, ActionDownloadAttachment, ActionDeleteAttachment,
	}

	tests := []struct {
		actor   domain.User
		allowed map[Action]bool
	}{
		{
			actor: owner,
			allowed: map[Action]bool{
				ActionView: true, ActionEdit: true, ActionDelete: true,
				ActionUploadAttachment: true, ActionDownloadAttachment: true, ActionDeleteAttachment: true,
			},
		},
		{
			actor: assignee,
			allowed: map[Action]bool{
				ActionView: true, ActionEdit: false, ActionDelete: false,
				ActionUploadAttachment: true, ActionDownloadAttachment: true, ActionDeleteAttachment: false,
			},
		},
		{
			actor: stranger,
			allowed: map[Action]bool{
				ActionView: false, ActionEdit: false, ActionDelete: false,
				ActionUploadAttachment: false, ActionDownloadAttachment: false, ActionDeleteAttachment: false,
			},
		},
		{
			actor: admin,
			allowed: map[Action]bool{
				ActionView: true, ActionEdit: true, ActionDelete: true,
				ActionUploadAttachment: true, ActionDownloadAttachment: true, ActionDeleteAttachment: true,
			},
		},
	}

	for _, tt := range tests {
		for _, action := range allActions {
			name := fmt.Sprintf("%s/%s", tt.actor.ID, action)
			t.Run(name, func(t *testing.T) {
				assert.Equal(t, tt.allowed[action], CanPerform(tt.actor, task, action))
			})
		}
	}
}

func TestCanPerformUnknownAction(t *testing.T) {
	user := domain.User{ID: "u1", Role: domain.RoleUser}
	task := domain.Task{ID: "t1", OwnerID: "u1"}
	assert.False(t, CanPerform(user, task, Action("bogus")))
}
