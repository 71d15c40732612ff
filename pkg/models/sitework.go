package models

import (
	"fmt"
	"strings"
	"time"
)

// SupplyStatus tracks procurement of materials and equipment.
type SupplyStatus string

const (
	SupplyToBeOrdered   SupplyStatus = "To be ordered"
	SupplyOrdered       SupplyStatus = "Ordered"
	SupplyToBeDelivered SupplyStatus = "To be delivered"
	SupplyDelivered     SupplyStatus = "Delivered"
)

func (s SupplyStatus) Valid() bool {
	switch s {
	case SupplyToBeOrdered, SupplyOrdered, SupplyToBeDelivered, SupplyDelivered:
		return true
	}
	return false
}

type Material struct {
	ID           string       `json:"id"`
	ProjectID    string       `json:"project_id"`
	MaterialName string       `json:"material_name"`
	Quantity     float64      `json:"quantity"`
	UnitMeasure  string       `json:"unit_measure"`
	UnitCost     float64      `json:"unit_cost"`
	Status       SupplyStatus `json:"status"`
	CreatedAt    time.Time    `json:"created_at"`
}

type Equipment struct {
	ID            string       `json:"id"`
	ProjectID     string       `json:"project_id"`
	EquipmentName string       `json:"equipment_name"`
	Duration      float64      `json:"duration"`
	DurationUnit  string       `json:"duration_unit"`
	UnitCost      float64      `json:"unit_cost"`
	Status        SupplyStatus `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
}

type Document struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	UploadedBy  string    `json:"uploaded_by"`
	FilePath    string    `json:"file_path"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`

	UploaderName string `json:"uploader_name,omitempty"`
}

type Photo struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	TaskID     *string   `json:"task_id"`
	UploadedBy string    `json:"uploaded_by"`
	FilePath   string    `json:"file_path"`
	ThumbPath  string    `json:"thumb_path"`
	Caption    string    `json:"caption"`
	CreatedAt  time.Time `json:"created_at"`
}

func (m *Material) Validate() error {
	if strings.TrimSpace(m.MaterialName) == "" {
		return fmt.Errorf("%w: material_name is required", ErrValidation)
	}
	if m.Quantity < 0 || m.UnitCost < 0 {
		return fmt.Errorf("%w: quantity and unit_cost must not be negative", ErrValidation)
	}
	if m.Status != "" && !m.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, m.Status)
	}
	return nil
}

func (e *Equipment) Validate() error {
	if strings.TrimSpace(e.EquipmentName) == "" {
		return fmt.Errorf("%w: equipment_name is required", ErrValidation)
	}
	if e.Duration < 0 || e.UnitCost < 0 {
		return fmt.Errorf("%w: duration and unit_cost must not be negative", ErrValidation)
	}
	if e.Status != "" && !e.Status.Valid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, e.Status)
	}
	return nil
}
