package server

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/ldi/jobsite/pkg/models"
)

type supplyStatusRequest struct {
	Status models.SupplyStatus `json:"status"`
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	items, err := s.site.ListMaterials(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, items, err)
}

func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var m models.Material
	if err := decode(w, r, &m); err != nil {
		writeError(w, err)
		return
	}
	m.ID = ""
	m.ProjectID = pathID(r)
	created, err := s.site.CreateMaterial(r.Context(), actor(r), &m)
	s.respond(w, http.StatusCreated, created, err)
}

// uploadedFile reads the multipart "file" field.
func uploadedFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid upload: %v", models.ErrValidation, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: missing file field: %v", models.ErrValidation, err)
	}
	return file, header, nil
}

func (s *Server) handleImportMaterials(w http.ResponseWriter, r *http.Request) {
	file, header, err := uploadedFile(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	items, err := s.site.ImportMaterials(r.Context(), actor(r), pathID(r), header.Filename, file)
	s.respond(w, http.StatusCreated, items, err)
}

func (s *Server) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	var m models.Material
	if err := decode(w, r, &m); err != nil {
		writeError(w, err)
		return
	}
	m.ID = pathID(r)
	updated, err := s.site.UpdateMaterial(r.Context(), actor(r), &m)
	s.respond(w, http.StatusOK, updated, err)
}

func (s *Server) handleMaterialStatus(w http.ResponseWriter, r *http.Request) {
	var req supplyStatusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := s.site.SetMaterialStatus(r.Context(), actor(r), pathID(r), req.Status)
	s.respond(w, http.StatusOK, m, err)
}

func (s *Server) handleDeleteMaterial(w http.ResponseWriter, r *http.Request) {
	err := s.site.DeleteMaterial(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}

func (s *Server) handleListEquipment(w http.ResponseWriter, r *http.Request) {
	items, err := s.site.ListEquipment(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, items, err)
}

func (s *Server) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	var e models.Equipment
	if err := decode(w, r, &e); err != nil {
		writeError(w, err)
		return
	}
	e.ID = ""
	e.ProjectID = pathID(r)
	created, err := s.site.CreateEquipment(r.Context(), actor(r), &e)
	s.respond(w, http.StatusCreated, created, err)
}

func (s *Server) handleUpdateEquipment(w http.ResponseWriter, r *http.Request) {
	var e models.Equipment
	if err := decode(w, r, &e); err != nil {
		writeError(w, err)
		return
	}
	e.ID = pathID(r)
	updated, err := s.site.UpdateEquipment(r.Context(), actor(r), &e)
	s.respond(w, http.StatusOK, updated, err)
}

func (s *Server) handleEquipmentStatus(w http.ResponseWriter, r *http.Request) {
	var req supplyStatusRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.site.SetEquipmentStatus(r.Context(), actor(r), pathID(r), req.Status)
	s.respond(w, http.StatusOK, e, err)
}

func (s *Server) handleDeleteEquipment(w http.ResponseWriter, r *http.Request) {
	err := s.site.DeleteEquipment(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.site.ListDocuments(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, docs, err)
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	file, header, err := uploadedFile(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	d, err := s.site.UploadDocument(r.Context(), actor(r), pathID(r), header.Filename, r.FormValue("description"), file)
	s.respond(w, http.StatusCreated, d, err)
}

type signedURL struct {
	URL       string    `json:"url"`
	ThumbURL  string    `json:"thumb_url,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleDocumentURL(w http.ResponseWriter, r *http.Request) {
	link, expires, err := s.site.DocumentURL(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, signedURL{URL: link, ExpiresAt: expires}, err)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	err := s.site.DeleteDocument(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request) {
	var taskID *string
	if v := r.URL.Query().Get("task_id"); v != "" {
		taskID = &v
	}
	photos, err := s.site.ListPhotos(r.Context(), actor(r), pathID(r), taskID)
	s.respond(w, http.StatusOK, photos, err)
}

func (s *Server) handleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	file, _, err := uploadedFile(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	var taskID *string
	if v := r.FormValue("task_id"); v != "" {
		taskID = &v
	}
	p, err := s.site.UploadPhoto(r.Context(), actor(r), pathID(r), taskID, r.FormValue("caption"), file)
	s.respond(w, http.StatusCreated, p, err)
}

func (s *Server) handlePhotoURLs(w http.ResponseWriter, r *http.Request) {
	original, thumb, expires, err := s.site.PhotoURLs(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusOK, signedURL{URL: original, ThumbURL: thumb, ExpiresAt: expires}, err)
}

func (s *Server) handleDeletePhoto(w http.ResponseWriter, r *http.Request) {
	err := s.site.DeletePhoto(r.Context(), actor(r), pathID(r))
	s.respond(w, http.StatusNoContent, nil, err)
}
