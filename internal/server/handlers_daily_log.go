package server

import (
	"net/http"

	"github.com/ldi/jobsite/pkg/models"
)

func (s *Server) handleListChangeOrders(w http.ResponseWriter, r *http.Request) {
	items, err := s.site.ListChangeOrders(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, items, err)
}

func (s *Server) handleCreateChangeOrder(w http.ResponseWriter, r *http.Request) {
	file, header, err := uploadedFile(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	c := &models.ChangeOrder{ProjectID: pathID(r), Name: r.FormValue("name"), Details: r.FormValue("details")}
	created, err := s.site.CreateChangeOrder(r.Context(), actor(r), c, header.Filename, file)
	s.respond(w, http.StatusCreated, created, err)
}

func (s *Server) handleChangeOrderURL(w http.ResponseWriter, r *http.Request) {
	link, expires, err := s.site.ChangeOrderURL(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, signedURL{URL: link, ExpiresAt: expires}, err)
}

func (s *Server) handleDeleteChangeOrder(w http.ResponseWriter, r *http.Request) {
	err := s.site.DeleteChangeOrder(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}

func (s *Server) handleDailyLog(w http.ResponseWriter, r *http.Request) {
	log, err := s.site.DailyLog(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, log, err)
}

func (s *Server) handleCreateDailyReport(w http.ResponseWriter, r *http.Request) {
	var report models.DailyReport
	if err := decode(w, r, &report); err != nil {
		writeError(w, err)
		return
	}
	report.ID = ""
	report.ProjectID = pathID(r)
	created, err := s.site.CreateDailyReport(r.Context(), actor(r), &report)
	s.respond(w, http.StatusCreated, created, err)
}

func (s *Server) handleDeleteDailyReport(w http.ResponseWriter, r *http.Request) {
	err := s.site.DeleteDailyReport(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}

func (s *Server) handleLogHours(w http.ResponseWriter, r *http.Request) {
	var h models.HoursEntry
	if err := decode(w, r, &h); err != nil {
		writeError(w, err)
		return
	}
	h.ID = ""
	h.ProjectID = pathID(r)
	created, err := s.site.LogHours(r.Context(), actor(r), &h)
	s.respond(w, http.StatusCreated, created, err)
}

func (s *Server) handleDeleteHours(w http.ResponseWriter, r *http.Request) {
	err := s.site.DeleteHours(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e models.Expense
	if err := decode(w, r, &e); err != nil {
		writeError(w, err)
		return
	}
	e.ID = ""
	e.ProjectID = pathID(r)
	created, err := s.site.CreateExpense(r.Context(), actor(r), &e)
	s.respond(w, http.StatusCreated, created, err)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	err := s.site.DeleteExpense(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}
