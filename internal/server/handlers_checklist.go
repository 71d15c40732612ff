package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ldi/jobsite/internal/auth"
	"github.com/ldi/jobsite/internal/report"
	"github.com/ldi/jobsite/pkg/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      *models.UserProfile `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, expires, u, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expires, User: u})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, actor(r))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	var role *models.Role
	if v := r.URL.Query().Get("role"); v != "" {
		rl := models.Role(v)
		if !rl.Valid() {
			writeError(w, fmt.Errorf("%w: invalid role %q", models.ErrValidation, v))
			return
		}
		role = &rl
	}
	users, err := s.auth.ListUsers(r.Context(), actor(r), role)
	s.respond(w, http.StatusOK, users, err)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req auth.NewUser
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.auth.CreateUser(r.Context(), actor(r), req)
	s.respond(w, http.StatusCreated, u, err)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.site.ListProjects(r.Context(), actor(r))
	s.respond(w, http.StatusOK, projects, err)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p models.Project
	if err := decode(w, r, &p); err != nil {
		writeError(w, err)
		return
	}
	created, err := s.site.CreateProject(r.Context(), actor(r), &p)
	s.respond(w, http.StatusCreated, created, err)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.site.GetProject(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, p, err)
}

func phaseParam(r *http.Request) *models.Phase {
	v := r.URL.Query().Get("phase")
	if v == "" {
		return nil
	}
	p := models.Phase(v)
	return &p
}

func (s *Server) handleChecklist(w http.ResponseWriter, r *http.Request) {
	view, err := s.checklist.Checklist(r.Context(), actor(r), pathID(r), phaseParam(r))
	s.respond(w, http.StatusOK, view, err)
}

func (s *Server) handleChecklistExport(w http.ResponseWriter, r *http.Request) {
	view, err := s.checklist.Checklist(r.Context(), actor(r), pathID(r), phaseParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := report.Workbook(view)
	if err != nil {
		writeError(w, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="checklist-%s.xlsx"`, view.Project.ID))
	if err := f.Write(w); err != nil {
		writeError(w, fmt.Errorf("failed to write workbook: %w", err))
	}
}

func (s *Server) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var sec models.Section
	if err := decode(w, r, &sec); err != nil {
		writeError(w, err)
		return
	}
	sec.ID = ""
	sec.ProjectID = pathID(r)
	created, err := s.checklist.CreateSection(r.Context(), actor(r), &sec)
	s.respond(w, http.StatusCreated, created, err)
}

type sectionPatch struct {
	Title        string        `json:"title"`
	AllowedRoles []models.Role `json:"allowed_roles"`
}

func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	var req sectionPatch
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sec, err := s.checklist.UpdateSection(r.Context(), actor(r), pathID(r), req.Title, req.AllowedRoles)
	s.respond(w, http.StatusOK, sec, err)
}

func (s *Server) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	err := s.checklist.DeleteSection(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}

type sectionReorderRequest struct {
	Phase models.Phase `json:"phase"`
	From  int          `json:"from"`
	To    int          `json:"to"`
}

func (s *Server) handleReorderSections(w http.ResponseWriter, r *http.Request) {
	var req sectionReorderRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sections, err := s.checklist.ReorderSections(r.Context(), actor(r), pathID(r), req.Phase, req.From, req.To)
	if err != nil {
		if sections != nil {
			writeErrorWith(w, err, sections)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if err := decode(w, r, &t); err != nil {
		writeError(w, err)
		return
	}
	t.ID = ""
	t.SectionID = pathID(r)
	created, err := s.checklist.CreateTask(r.Context(), actor(r), &t)
	s.respond(w, http.StatusCreated, created, err)
}

// taskReorderRequest carries either a single drag (from, to) or the full
// desired id sequence.
type taskReorderRequest struct {
	From    *int     `json:"from"`
	To      *int     `json:"to"`
	TaskIDs []string `json:"task_ids"`
}

func (s *Server) handleReorderTasks(w http.ResponseWriter, r *http.Request) {
	var req taskReorderRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	var (
		tasks []*models.Task
		err   error
	)
	switch {
	case req.TaskIDs != nil:
		tasks, err = s.checklist.ApplyTaskOrder(r.Context(), actor(r), pathID(r), req.TaskIDs)
	case req.From != nil && req.To != nil:
		tasks, err = s.checklist.ReorderTasks(r.Context(), actor(r), pathID(r), *req.From, *req.To)
	default:
		err = fmt.Errorf("%w: provide from and to, or task_ids", models.ErrValidation)
	}
	if err != nil {
		if tasks != nil {
			writeErrorWith(w, err, tasks)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var t models.Task
	if err := decode(w, r, &t); err != nil {
		writeError(w, err)
		return
	}
	t.ID = pathID(r)
	updated, err := s.checklist.UpdateTask(r.Context(), actor(r), &t)
	s.respond(w, http.StatusOK, updated, err)
}

type statusRequest struct {
	Status models.TaskStatus `json:"status"`
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.checklist.UpdateTaskStatus(r.Context(), actor(r), pathID(r), req.Status)
	s.respond(w, http.StatusOK, t, err)
}

type assigneeRequest struct {
	AssignedTo *string `json:"assigned_to"`
}

func (s *Server) handleTaskAssignee(w http.ResponseWriter, r *http.Request) {
	var req assigneeRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	t, err := s.checklist.AssignTask(r.Context(), actor(r), pathID(r), req.AssignedTo)
	s.respond(w, http.StatusOK, t, err)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	err := s.checklist.DeleteTask(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}
