package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ldi/jobsite/internal/auth"
	"github.com/ldi/jobsite/internal/blob"
	"github.com/ldi/jobsite/internal/checklist"
	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/internal/sitework"
	"github.com/ldi/jobsite/pkg/models"
)

const (
	maxJSONBody   = 1 << 20
	maxUploadBody = 32 << 20
)

type Deps struct {
	Checklist      *checklist.Service
	Sitework       *sitework.Service
	Auth           *auth.Service
	Blobs          *blob.Store
	AllowedOrigins []string
}

type Server struct {
	checklist *checklist.Service
	site      *sitework.Service
	auth      *auth.Service
	blobs     *blob.Store
	handler   http.Handler
	server    *http.Server
}

func NewServer(d Deps) *Server {
	s := &Server{
		checklist: d.Checklist,
		site:      d.Sitework,
		auth:      d.Auth,
		blobs:     d.Blobs,
	}
	s.handler = chain(s.routes(), securityHeaders, cors(d.AllowedOrigins), logRequests)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/files/{path:.+}", s.handleFile).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.auth.Middleware(writeError))

	api.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)
	api.HandleFunc("/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/users", s.handleCreateUser).Methods(http.MethodPost)

	api.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}", s.handleGetProject).Methods(http.MethodGet)

	api.HandleFunc("/projects/{id}/checklist", s.handleChecklist).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/checklist.xlsx", s.handleChecklistExport).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/sections", s.handleCreateSection).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}/sections/reorder", s.handleReorderSections).Methods(http.MethodPost)
	api.HandleFunc("/sections/{id}", s.handleUpdateSection).Methods(http.MethodPatch)
	api.HandleFunc("/sections/{id}", s.handleDeleteSection).Methods(http.MethodDelete)
	api.HandleFunc("/sections/{id}/tasks", s.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/sections/{id}/reorder", s.handleReorderTasks).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", s.handleUpdateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}/status", s.handleTaskStatus).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}/assignee", s.handleTaskAssignee).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{id}", s.handleDeleteTask).Methods(http.MethodDelete)

	api.HandleFunc("/projects/{id}/materials", s.handleListMaterials).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/materials", s.handleCreateMaterial).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}/materials/import", s.handleImportMaterials).Methods(http.MethodPost)
	api.HandleFunc("/materials/{id}", s.handleUpdateMaterial).Methods(http.MethodPut)
	api.HandleFunc("/materials/{id}/status", s.handleMaterialStatus).Methods(http.MethodPatch)
	api.HandleFunc("/materials/{id}", s.handleDeleteMaterial).Methods(http.MethodDelete)

	api.HandleFunc("/projects/{id}/equipment", s.handleListEquipment).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/equipment", s.handleCreateEquipment).Methods(http.MethodPost)
	api.HandleFunc("/equipment/{id}", s.handleUpdateEquipment).Methods(http.MethodPut)
	api.HandleFunc("/equipment/{id}/status", s.handleEquipmentStatus).Methods(http.MethodPatch)
	api.HandleFunc("/equipment/{id}", s.handleDeleteEquipment).Methods(http.MethodDelete)

	api.HandleFunc("/projects/{id}/documents", s.handleListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/documents", s.handleUploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/documents/{id}/url", s.handleDocumentURL).Methods(http.MethodGet)
	api.HandleFunc("/documents/{id}", s.handleDeleteDocument).Methods(http.MethodDelete)

	api.HandleFunc("/projects/{id}/photos", s.handleListPhotos).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/photos", s.handleUploadPhoto).Methods(http.MethodPost)
	api.HandleFunc("/photos/{id}/url", s.handlePhotoURLs).Methods(http.MethodGet)
	api.HandleFunc("/photos/{id}", s.handleDeletePhoto).Methods(http.MethodDelete)

	api.HandleFunc("/projects/{id}/change-orders", s.handleListChangeOrders).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/change-orders", s.handleCreateChangeOrder).Methods(http.MethodPost)
	api.HandleFunc("/change-orders/{id}/url", s.handleChangeOrderURL).Methods(http.MethodGet)
	api.HandleFunc("/change-orders/{id}", s.handleDeleteChangeOrder).Methods(http.MethodDelete)

	api.HandleFunc("/projects/{id}/daily-log", s.handleDailyLog).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/daily-reports", s.handleCreateDailyReport).Methods(http.MethodPost)
	api.HandleFunc("/daily-reports/{id}", s.handleDeleteDailyReport).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{id}/hours", s.handleLogHours).Methods(http.MethodPost)
	api.HandleFunc("/hours/{id}", s.handleDeleteHours).Methods(http.MethodDelete)
	api.HandleFunc("/projects/{id}/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	api.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)

	return r
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logging.Logger.Infof("Event ID: SERVER_STARTING, Description: listening on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func actor(r *http.Request) models.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}

func pathID(r *http.Request) string {
	return mux.Vars(r)["id"]
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err)
	}
	return nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var blocked *checklist.BlockedError
	switch {
	case errors.As(err, &blocked):
		return http.StatusConflict
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden), errors.Is(err, blob.ErrInvalidToken):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error     string               `json:"error"`
	BlockedBy *checklist.BlockerRef `json:"blocked_by,omitempty"`
	Current   any                  `json:"current,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorWith(w, err, nil)
}

// writeErrorWith reports err and, when current is set, the authoritative
// state the client should fall back to.
func writeErrorWith(w http.ResponseWriter, err error, current any) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), Current: current}
	var blocked *checklist.BlockedError
	if errors.As(err, &blocked) {
		body.BlockedBy = &checklist.BlockerRef{ID: blocked.BlockerID, Title: blocked.BlockerTitle}
	}
	if status == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %v", err)
	}
	writeJSON(w, status, body)
}

func (s *Server) respond(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, status, data)
}
