// Package sitework manages the supporting records of a project: the
// project itself, supplies, documents, photos, change orders and the
// foreman's daily log.
package sitework

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ldi/jobsite/internal/blob"
	"github.com/ldi/jobsite/internal/logging"
	"github.com/ldi/jobsite/pkg/models"
)

// Store is the subset of the record store sitework needs.
// Getters return nil, nil for missing records.
type Store interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context, customerID *string) ([]*models.Project, error)
	GetTask(ctx context.Context, id string) (*models.Task, error)
	GetUser(ctx context.Context, id string) (*models.UserProfile, error)

	CreateMaterial(ctx context.Context, m *models.Material) error
	CreateMaterials(ctx context.Context, items []*models.Material) error
	GetMaterial(ctx context.Context, id string) (*models.Material, error)
	ListMaterials(ctx context.Context, projectID string) ([]*models.Material, error)
	UpdateMaterial(ctx context.Context, m *models.Material) error
	UpdateMaterialStatus(ctx context.Context, id string, status models.SupplyStatus) error
	DeleteMaterial(ctx context.Context, id string) error

	CreateEquipment(ctx context.Context, e *models.Equipment) error
	GetEquipment(ctx context.Context, id string) (*models.Equipment, error)
	ListEquipment(ctx context.Context, projectID string) ([]*models.Equipment, error)
	UpdateEquipment(ctx context.Context, e *models.Equipment) error
	UpdateEquipmentStatus(ctx context.Context, id string, status models.SupplyStatus) error
	DeleteEquipment(ctx context.Context, id string) error

	CreateDocument(ctx context.Context, d *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, projectID string) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	CreatePhoto(ctx context.Context, p *models.Photo) error
	GetPhoto(ctx context.Context, id string) (*models.Photo, error)
	ListPhotos(ctx context.Context, projectID string, taskID *string) ([]*models.Photo, error)
	DeletePhoto(ctx context.Context, id string) error

	CreateChangeOrder(ctx context.Context, c *models.ChangeOrder) error
	GetChangeOrder(ctx context.Context, id string) (*models.ChangeOrder, error)
	ListChangeOrders(ctx context.Context, projectID string) ([]*models.ChangeOrder, error)
	DeleteChangeOrder(ctx context.Context, id string) error

	CreateDailyReport(ctx context.Context, r *models.DailyReport) error
	GetDailyReport(ctx context.Context, id string) (*models.DailyReport, error)
	GetDailyReportByDate(ctx context.Context, projectID, date string) (*models.DailyReport, error)
	ListDailyReports(ctx context.Context, projectID string) ([]*models.DailyReport, error)
	DeleteDailyReport(ctx context.Context, id string) error

	CreateHours(ctx context.Context, h *models.HoursEntry) error
	GetHours(ctx context.Context, id string) (*models.HoursEntry, error)
	ListHours(ctx context.Context, projectID string) ([]*models.HoursEntry, error)
	DeleteHours(ctx context.Context, id string) error

	CreateExpense(ctx context.Context, e *models.Expense) error
	GetExpense(ctx context.Context, id string) (*models.Expense, error)
	ListExpenses(ctx context.Context, projectID string) ([]*models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

// Blobs stores uploaded files.
type Blobs interface {
	Put(ctx context.Context, p string, r io.Reader) (int64, error)
	Delete(ctx context.Context, p string) error
	SignedURL(p string, ttl time.Duration) (string, time.Time, error)
}

type Service struct {
	store Store
	blobs Blobs
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store, blobs Blobs, urlTTL time.Duration) *Service {
	if urlTTL <= 0 {
		urlTTL = blob.DefaultURLTTL
	}
	return &Service{store: store, blobs: blobs, ttl: urlTTL, now: time.Now}
}

func forbidden(actor models.Actor, action string) error {
	return fmt.Errorf("%w: role %q may not %s", models.ErrForbidden, actor.Role, action)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
}

// project loads a project the actor may see.
func (s *Service) project(ctx context.Context, actor models.Actor, id string) (*models.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil || !actor.CanViewProject(p) {
		return nil, notFound("project", id)
	}
	return p, nil
}

// crewProject is project restricted to company staff. Supply lists are
// internal and hidden from customers and subcontractors.
func (s *Service) crewProject(ctx context.Context, actor models.Actor, id string) (*models.Project, error) {
	if !actor.Role.IsCrew() {
		return nil, notFound("project", id)
	}
	return s.project(ctx, actor, id)
}

// managedProject additionally requires a manager role.
func (s *Service) managedProject(ctx context.Context, actor models.Actor, id, action string) (*models.Project, error) {
	p, err := s.crewProject(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsManager() {
		return nil, forbidden(actor, action)
	}
	return p, nil
}

// Projects

func (s *Service) CreateProject(ctx context.Context, actor models.Actor, p *models.Project) (*models.Project, error) {
	if actor.Role != models.RoleAdmin {
		return nil, forbidden(actor, "create projects")
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrValidation)
	}
	if p.Status != "" && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: invalid project status %q", models.ErrValidation, p.Status)
	}
	if p.CustomerID != nil {
		u, err := s.store.GetUser(ctx, *p.CustomerID)
		if err != nil {
			return nil, err
		}
		if u == nil || u.Role != models.RoleCustomer {
			return nil, fmt.Errorf("%w: customer %s does not exist", models.ErrValidation, *p.CustomerID)
		}
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, err
	}
	return s.store.GetProject(ctx, p.ID)
}

func (s *Service) GetProject(ctx context.Context, actor models.Actor, id string) (*models.Project, error) {
	return s.project(ctx, actor, id)
}

// ListProjects returns every project for staff and only their own for customers.
func (s *Service) ListProjects(ctx context.Context, actor models.Actor) ([]*models.Project, error) {
	if actor.Role == models.RoleCustomer {
		id := actor.UserID
		return s.store.ListProjects(ctx, &id)
	}
	return s.store.ListProjects(ctx, nil)
}

// Materials

func (s *Service) ListMaterials(ctx context.Context, actor models.Actor, projectID string) ([]*models.Material, error) {
	if _, err := s.crewProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.ListMaterials(ctx, projectID)
}

func (s *Service) CreateMaterial(ctx context.Context, actor models.Actor, m *models.Material) (*models.Material, error) {
	if _, err := s.managedProject(ctx, actor, m.ProjectID, "manage materials"); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateMaterial(ctx, m); err != nil {
		return nil, err
	}
	return s.store.GetMaterial(ctx, m.ID)
}

// ImportMaterials appends every row of an .xls or .xlsx material list to
// the project in one transaction.
func (s *Service) ImportMaterials(ctx context.Context, actor models.Actor, projectID, filename string, r io.Reader) ([]*models.Material, error) {
	if _, err := s.managedProject(ctx, actor, projectID, "manage materials"); err != nil {
		return nil, err
	}
	items, err := ParseMaterials(r, filename, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateMaterials(ctx, items); err != nil {
		return nil, err
	}
	logging.Logger.WithField("project_id", projectID).
		Infof("Event ID: MATERIALS_IMPORTED, Description: imported %d materials from %s", len(items), filepath.Base(filename))
	return items, nil
}

func (s *Service) material(ctx context.Context, actor models.Actor, id, action string) (*models.Material, error) {
	m, err := s.store.GetMaterial(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, notFound("material", id)
	}
	if _, err := s.managedProject(ctx, actor, m.ProjectID, action); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) UpdateMaterial(ctx context.Context, actor models.Actor, edit *models.Material) (*models.Material, error) {
	current, err := s.material(ctx, actor, edit.ID, "manage materials")
	if err != nil {
		return nil, err
	}
	edit.ProjectID = current.ProjectID
	if edit.Status == "" {
		edit.Status = current.Status
	}
	if err := edit.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMaterial(ctx, edit); err != nil {
		return nil, err
	}
	return s.store.GetMaterial(ctx, edit.ID)
}

func (s *Service) SetMaterialStatus(ctx context.Context, actor models.Actor, id string, status models.SupplyStatus) (*models.Material, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", models.ErrValidation, status)
	}
	if _, err := s.material(ctx, actor, id, "manage materials"); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMaterialStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.GetMaterial(ctx, id)
}

func (s *Service) DeleteMaterial(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.material(ctx, actor, id, "manage materials"); err != nil {
		return err
	}
	return s.store.DeleteMaterial(ctx, id)
}

// Equipment

func (s *Service) ListEquipment(ctx context.Context, actor models.Actor, projectID string) ([]*models.Equipment, error) {
	if _, err := s.crewProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.ListEquipment(ctx, projectID)
}

func (s *Service) CreateEquipment(ctx context.Context, actor models.Actor, e *models.Equipment) (*models.Equipment, error) {
	if _, err := s.managedProject(ctx, actor, e.ProjectID, "manage equipment"); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateEquipment(ctx, e); err != nil {
		return nil, err
	}
	return s.store.GetEquipment(ctx, e.ID)
}

func (s *Service) equipment(ctx context.Context, actor models.Actor, id string) (*models.Equipment, error) {
	e, err := s.store.GetEquipment(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, notFound("equipment", id)
	}
	if _, err := s.managedProject(ctx, actor, e.ProjectID, "manage equipment"); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) UpdateEquipment(ctx context.Context, actor models.Actor, edit *models.Equipment) (*models.Equipment, error) {
	current, err := s.equipment(ctx, actor, edit.ID)
	if err != nil {
		return nil, err
	}
	edit.ProjectID = current.ProjectID
	if edit.Status == "" {
		edit.Status = current.Status
	}
	if edit.DurationUnit == "" {
		edit.DurationUnit = current.DurationUnit
	}
	if err := edit.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateEquipment(ctx, edit); err != nil {
		return nil, err
	}
	return s.store.GetEquipment(ctx, edit.ID)
}

func (s *Service) SetEquipmentStatus(ctx context.Context, actor models.Actor, id string, status models.SupplyStatus) (*models.Equipment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", models.ErrValidation, status)
	}
	if _, err := s.equipment(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.store.UpdateEquipmentStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.store.GetEquipment(ctx, id)
}

func (s *Service) DeleteEquipment(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.equipment(ctx, actor, id); err != nil {
		return err
	}
	return s.store.DeleteEquipment(ctx, id)
}

// Documents

func (s *Service) ListDocuments(ctx context.Context, actor models.Actor, projectID string) ([]*models.Document, error) {
	if _, err := s.project(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, projectID)
}

// UploadDocument stores the file and records it. The blob is removed again
// if the record cannot be written.
func (s *Service) UploadDocument(ctx context.Context, actor models.Actor, projectID, filename, description string, r io.Reader) (*models.Document, error) {
	if _, err := s.managedProject(ctx, actor, projectID, "upload documents"); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(filepath.Base(filename))
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("%w: file name is required", models.ErrValidation)
	}
	p := blob.NewPath(projectID, "documents", blob.Ext(name), s.now())
	if _, err := s.blobs.Put(ctx, p, r); err != nil {
		return nil, err
	}

	d := &models.Document{
		ProjectID:   projectID,
		UploadedBy:  actor.UserID,
		FilePath:    p,
		Name:        name,
		Description: description,
	}
	if err := s.store.CreateDocument(ctx, d); err != nil {
		s.discard(ctx, p)
		return nil, err
	}
	return s.store.GetDocument(ctx, d.ID)
}

func (s *Service) document(ctx context.Context, actor models.Actor, id string) (*models.Document, error) {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, notFound("document", id)
	}
	if _, err := s.project(ctx, actor, d.ProjectID); err != nil {
		return nil, err
	}
	return d, nil
}

// DocumentURL returns a time-limited download link.
func (s *Service) DocumentURL(ctx context.Context, actor models.Actor, id string) (string, time.Time, error) {
	d, err := s.document(ctx, actor, id)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.blobs.SignedURL(d.FilePath, s.ttl)
}

// DeleteDocument removes the blob first, then the record.
func (s *Service) DeleteDocument(ctx context.Context, actor models.Actor, id string) error {
	d, err := s.document(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.Role.IsManager() {
		return forbidden(actor, "delete documents")
	}
	if err := s.blobs.Delete(ctx, d.FilePath); err != nil {
		return err
	}
	return s.store.DeleteDocument(ctx, id)
}

// Photos

func (s *Service) ListPhotos(ctx context.Context, actor models.Actor, projectID string, taskID *string) ([]*models.Photo, error) {
	if _, err := s.project(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.ListPhotos(ctx, projectID, taskID)
}

// UploadPhoto stores the original image and a square thumbnail.
// Only png, jpeg and webp images are accepted.
func (s *Service) UploadPhoto(ctx context.Context, actor models.Actor, projectID string, taskID *string, caption string, r io.Reader) (*models.Photo, error) {
	if _, err := s.project(ctx, actor, projectID); err != nil {
		return nil, err
	}
	if !actor.Role.IsCrew() {
		return nil, forbidden(actor, "upload photos")
	}
	if taskID != nil {
		t, err := s.store.GetTask(ctx, *taskID)
		if err != nil {
			return nil, err
		}
		if t == nil || t.ProjectID != projectID {
			return nil, fmt.Errorf("%w: task %s is not part of project %s", models.ErrValidation, *taskID, projectID)
		}
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	ext, err := blob.ImageExt(raw)
	if err != nil {
		return nil, err
	}
	thumb, err := blob.Thumbnail(raw, blob.ThumbSize)
	if err != nil {
		return nil, err
	}

	now := s.now()
	original := blob.NewPath(projectID, "photos", ext, now)
	small := strings.TrimSuffix(original, "."+ext) + "-thumb.png"
	if _, err := s.blobs.Put(ctx, original, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	if _, err := s.blobs.Put(ctx, small, bytes.NewReader(thumb)); err != nil {
		s.discard(ctx, original)
		return nil, err
	}

	p := &models.Photo{
		ProjectID:  projectID,
		TaskID:     taskID,
		UploadedBy: actor.UserID,
		FilePath:   original,
		ThumbPath:  small,
		Caption:    caption,
	}
	if err := s.store.CreatePhoto(ctx, p); err != nil {
		s.discard(ctx, original, small)
		return nil, err
	}
	return s.store.GetPhoto(ctx, p.ID)
}

func (s *Service) photo(ctx context.Context, actor models.Actor, id string) (*models.Photo, error) {
	p, err := s.store.GetPhoto(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("photo", id)
	}
	if _, err := s.project(ctx, actor, p.ProjectID); err != nil {
		return nil, err
	}
	return p, nil
}

// PhotoURLs returns signed links to the original and its thumbnail.
func (s *Service) PhotoURLs(ctx context.Context, actor models.Actor, id string) (original, thumb string, expires time.Time, err error) {
	p, err := s.photo(ctx, actor, id)
	if err != nil {
		return "", "", time.Time{}, err
	}
	if original, expires, err = s.blobs.SignedURL(p.FilePath, s.ttl); err != nil {
		return "", "", time.Time{}, err
	}
	if thumb, _, err = s.blobs.SignedURL(p.ThumbPath, s.ttl); err != nil {
		return "", "", time.Time{}, err
	}
	return original, thumb, expires, nil
}

// DeletePhoto is allowed for managers and for the uploader.
func (s *Service) DeletePhoto(ctx context.Context, actor models.Actor, id string) error {
	p, err := s.photo(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.Role.IsManager() && actor.UserID != p.UploadedBy {
		return forbidden(actor, "delete this photo")
	}
	for _, path := range []string{p.FilePath, p.ThumbPath} {
		if err := s.blobs.Delete(ctx, path); err != nil {
			return err
		}
	}
	return s.store.DeletePhoto(ctx, id)
}

func (s *Service) discard(ctx context.Context, paths ...string) {
	for _, p := range paths {
		if err := s.blobs.Delete(ctx, p); err != nil {
			logging.Logger.WithField("path", p).
				Warnf("Event ID: BLOB_CLEANUP_FAILED, Description: %v", err)
		}
	}
}
