package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"taskboard/internal/directory"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
	"taskboard/internal/filter"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body", domain.ErrInvalidInput)
	}
	return nil
}

// taskPayload covers both create and update bodies; absent fields stay
// nil and turn into partial-update semantics.
type taskPayload struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	Status        *domain.Status   `json:"status"`
	Priority      *domain.Priority `json:"priority"`
	DueDate       *time.Time       `json:"dueDate"`
	Tags          *[]string        `json:"tags"`
	AssignedUsers *[]string        `json:"assignedUsers"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.directory.CreateUser(r.Context(), body.Name, body.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, actor domain.User) {
	writeJSON(w, http.StatusOK, actor)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request, actor domain.User) {
	tasks, err := s.engine.ListTasks(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q := r.URL.Query()
	criteria := filter.Criteria{
		Status:   domain.Status(q.Get("status")),
		Priority: domain.Priority(q.Get("priority")),
		Tag:      q.Get("tag"),
		Search:   q.Get("search"),
	}
	writeJSON(w, http.StatusOK, filter.Apply(tasks, criteria))
}

// handleListTags feeds the filter panel's tag drop-down with the
// distinct tags across the actor's visible tasks.
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request, actor domain.User) {
	tasks, err := s.engine.ListTasks(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tags := filter.Tags(tasks)
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var body taskPayload
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	draft := engine.Draft{DueDate: body.DueDate}
	if body.Title != nil {
		draft.Title = *body.Title
	}
	if body.Description != nil {
		draft.Description = *body.Description
	}
	if body.Status != nil {
		draft.Status = *body.Status
	}
	if body.Priority != nil {
		draft.Priority = *body.Priority
	}
	if body.Tags != nil {
		draft.Tags = *body.Tags
	}
	if body.AssignedUsers != nil {
		draft.AssignedUsers = *body.AssignedUsers
	}

	task, err := s.engine.CreateTask(r.Context(), actor, draft)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request, actor domain.User) {
	task, err := s.engine.GetTask(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var body taskPayload
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	patch := domain.TaskPatch{
		Title:         body.Title,
		Description:   body.Description,
		Status:        body.Status,
		Priority:      body.Priority,
		DueDate:       body.DueDate,
		Tags:          body.Tags,
		AssignedUsers: body.AssignedUsers,
	}
	task, err := s.engine.UpdateTask(r.Context(), actor, r.PathValue("id"), patch)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request, actor domain.User) {
	if err := s.engine.DeleteTask(r.Context(), actor, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUploadAttachment(w http.ResponseWriter, r *http.Request, actor domain.User) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: missing file field", domain.ErrInvalidInput))
		return
	}
	defer file.Close()

	att, err := s.engine.UploadAttachment(r.Context(), actor, r.PathValue("id"), header.Filename, header.Size, file)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}

func (s *Server) handleDownloadAttachment(w http.ResponseWriter, r *http.Request, actor domain.User) {
	dl, err := s.engine.DownloadAttachment(r.Context(), actor, r.PathValue("id"), r.PathValue("attachmentId"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer dl.Content.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.FileName))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", dl.Size))
	io.Copy(w, dl.Content)
}

func (s *Server) handleDeleteAttachment(w http.ResponseWriter, r *http.Request, actor domain.User) {
	if err := s.engine.DeleteAttachment(r.Context(), actor, r.PathValue("id"), r.PathValue("attachmentId")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, actor domain.User) {
	users, err := s.directory.ListUsers(r.Context(), actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, actor domain.User) {
	var body struct {
		Name  *string      `json:"name"`
		Email *string      `json:"email"`
		Role  *domain.Role `json:"role"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.directory.UpdateUser(r.Context(), actor, r.PathValue("id"), directory.UserPatch{
		Name:  body.Name,
		Email: body.Email,
		Role:  body.Role,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, actor domain.User) {
	if err := s.directory.DeleteUser(r.Context(), actor, r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
