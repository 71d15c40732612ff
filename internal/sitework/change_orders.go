package sitework

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/ldi/jobsite/internal/blob"
	"github.com/ldi/jobsite/pkg/models"
)

// ListChangeOrders is open to everyone who can see the project.
func (s *Service) ListChangeOrders(ctx context.Context, actor models.Actor, projectID string) ([]*models.ChangeOrder, error) {
	if _, err := s.project(ctx, actor, projectID); err != nil {
		return nil, err
	}
	return s.store.ListChangeOrders(ctx, projectID)
}

// CreateChangeOrder stores the signed document and records the change
// order. A change order without its document is rejected.
func (s *Service) CreateChangeOrder(ctx context.Context, actor models.Actor, c *models.ChangeOrder, filename string, r io.Reader) (*models.ChangeOrder, error) {
	if _, err := s.managedProject(ctx, actor, c.ProjectID, "add change orders"); err != nil {
		return nil, err
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(filepath.Base(filename))
	if r == nil || name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("%w: a change order document is required", models.ErrValidation)
	}

	p := blob.NewPath(c.ProjectID, "change_orders", blob.Ext(name), s.now())
	if _, err := s.blobs.Put(ctx, p, r); err != nil {
		return nil, err
	}
	c.FilePath = p
	c.CreatedBy = actor.UserID
	if err := s.store.CreateChangeOrder(ctx, c); err != nil {
		s.discard(ctx, p)
		return nil, err
	}
	return s.store.GetChangeOrder(ctx, c.ID)
}

func (s *Service) changeOrder(ctx context.Context, actor models.Actor, id string) (*models.ChangeOrder, error) {
	c, err := s.store.GetChangeOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("change order", id)
	}
	if _, err := s.project(ctx, actor, c.ProjectID); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) ChangeOrderURL(ctx context.Context, actor models.Actor, id string) (string, time.Time, error) {
	c, err := s.changeOrder(ctx, actor, id)
	if err != nil {
		return "", time.Time{}, err
	}
	return s.blobs.SignedURL(c.FilePath, s.ttl)
}

// DeleteChangeOrder removes the document first, then the record.
func (s *Service) DeleteChangeOrder(ctx context.Context, actor models.Actor, id string) error {
	c, err := s.changeOrder(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.Role.IsManager() {
		return forbidden(actor, "delete change orders")
	}
	if err := s.blobs.Delete(ctx, c.FilePath); err != nil {
		return err
	}
	return s.store.DeleteChangeOrder(ctx, id)
}
