// Package api is the HTTP boundary over the task core. It resolves the
// acting user, decodes requests, and translates the core's error
// taxonomy into status codes; no domain rules live here.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"taskboard/internal/directory"
	"taskboard/internal/domain"
	"taskboard/internal/engine"
)

// actorHeader names the authenticated user. Token issuance and
// verification belong to the auth gateway in front of this service;
// the boundary trusts the resolved user id it forwards.
const actorHeader = "X-User-ID"

type Server struct {
	engine    *engine.Engine
	directory *directory.Directory
	log       zerolog.Logger
}

func NewServer(eng *engine.Engine, dir *directory.Directory, log zerolog.Logger) *Server {
	return &Server{
		engine:    eng,
		directory: dir,
		log:       log.With().Str("component", "api").Logger(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users", s.handleRegister)
	mux.HandleFunc("GET /api/me", s.withActor(s.handleMe))

	mux.HandleFunc("GET /api/tasks", s.withActor(s.handleListTasks))
	mux.HandleFunc("GET /api/tags", s.withActor(s.handleListTags))
	mux.HandleFunc("POST /api/tasks", s.withActor(s.handleCreateTask))
	mux.HandleFunc("GET /api/tasks/{id}", s.withActor(s.handleGetTask))
	mux.HandleFunc("PUT /api/tasks/{id}", s.withActor(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.withActor(s.handleDeleteTask))

	mux.HandleFunc("POST /api/tasks/{id}/attachments", s.withActor(s.handleUploadAttachment))
	mux.HandleFunc("GET /api/tasks/{id}/attachments/{attachmentId}", s.withActor(s.handleDownloadAttachment))
	mux.HandleFunc("DELETE /api/tasks/{id}/attachments/{attachmentId}", s.withActor(s.handleDeleteAttachment))

	mux.HandleFunc("GET /api/admin/users", s.withActor(s.handleListUsers))
	mux.HandleFunc("PUT /api/admin/users/{id}", s.withActor(s.handleUpdateUser))
	mux.HandleFunc("DELETE /api/admin/users/{id}", s.withActor(s.handleDeleteUser))

	return s.logRequests(mux)
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor domain.User)

// withActor resolves the acting user or rejects the request.
func (s *Server) withActor(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(actorHeader)
		if id == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "missing " + actorHeader + " header"})
			return
		}
		actor, err := s.directory.GetUser(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusUnauthorized, errorBody{Detail: "unknown user"})
				return
			}
			s.writeError(w, err)
			return
		}
		next(w, r, *actor)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}

type errorBody struct {
	Detail string `json:"detail"`
}

// writeError maps the core's error taxonomy onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidReference):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrStorageFailure):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Detail: err.Error()})
}
