package db

import (
	"context"
	"errors"
	"testing"

	"github.com/ldi/jobsite/pkg/models"
)

func TestMaterials(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProject(t, db)

	items := []*models.Material{
		{ProjectID: p.ID, MaterialName: "2x4 stud", Quantity: 120, UnitMeasure: "ea", UnitCost: 4.25},
		{ProjectID: p.ID, MaterialName: "OSB sheathing", Quantity: 40, UnitMeasure: "sheet", UnitCost: 18},
	}
	if err := db.CreateMaterials(ctx, items); err != nil {
		t.Fatalf("Failed to create materials: %v", err)
	}
	if items[0].Status != models.SupplyToBeOrdered {
		t.Errorf("Expected default status, got %s", items[0].Status)
	}

	if err := db.UpdateMaterialStatus(ctx, items[1].ID, models.SupplyOrdered); err != nil {
		t.Fatalf("Failed to update material status: %v", err)
	}
	m, err := db.GetMaterial(ctx, items[1].ID)
	if err != nil || m == nil {
		t.Fatalf("Failed to get material: %v", err)
	}
	if m.Status != models.SupplyOrdered {
		t.Errorf("Expected Ordered, got %s", m.Status)
	}

	m.Quantity = 44
	if err := db.UpdateMaterial(ctx, m); err != nil {
		t.Fatalf("Failed to update material: %v", err)
	}

	list, err := db.ListMaterials(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list materials: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 materials, got %d", len(list))
	}

	if err := db.DeleteMaterial(ctx, items[0].ID); err != nil {
		t.Fatalf("Failed to delete material: %v", err)
	}
	if err := db.DeleteMaterial(ctx, items[0].ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestEquipment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProject(t, db)

	e := &models.Equipment{ProjectID: p.ID, EquipmentName: "Mini excavator", Duration: 3, UnitCost: 350}
	if err := db.CreateEquipment(ctx, e); err != nil {
		t.Fatalf("Failed to create equipment: %v", err)
	}
	if e.DurationUnit != "days" {
		t.Errorf("Expected default duration unit days, got %s", e.DurationUnit)
	}
	if err := db.UpdateEquipmentStatus(ctx, e.ID, models.SupplyDelivered); err != nil {
		t.Fatalf("Failed to update equipment status: %v", err)
	}
	list, err := db.ListEquipment(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list equipment: %v", err)
	}
	if len(list) != 1 || list[0].Status != models.SupplyDelivered {
		t.Errorf("Unexpected equipment %+v", list)
	}
	if err := db.UpdateEquipmentStatus(ctx, "missing", models.SupplyDelivered); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDocumentsAndPhotos(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	p := seedProject(t, db)
	s := seedSection(t, db, p.ID, "Framing")
	task := seedTask(t, db, s, "Nail inspection")

	u := &models.UserProfile{Email: "al@example.com", FullName: "Al Brennan", Role: models.RoleEmployee}
	if err := db.CreateUser(ctx, u); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	d := &models.Document{ProjectID: p.ID, UploadedBy: u.ID, FilePath: p.ID + "/documents/1-a.pdf", Name: "permit.pdf"}
	if err := db.CreateDocument(ctx, d); err != nil {
		t.Fatalf("Failed to create document: %v", err)
	}
	docs, err := db.ListDocuments(ctx, p.ID)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 1 || docs[0].UploaderName != "Al Brennan" {
		t.Errorf("Unexpected documents %+v", docs)
	}

	photo := &models.Photo{ProjectID: p.ID, TaskID: &task.ID, UploadedBy: u.ID, FilePath: p.ID + "/photos/x.jpg"}
	if err := db.CreatePhoto(ctx, photo); err != nil {
		t.Fatalf("Failed to create photo: %v", err)
	}
	photos, err := db.ListPhotos(ctx, p.ID, &task.ID)
	if err != nil {
		t.Fatalf("Failed to list photos: %v", err)
	}
	if len(photos) != 1 {
		t.Errorf("Expected 1 photo for task, got %d", len(photos))
	}

	if err := db.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("Failed to delete task: %v", err)
	}
	kept, _ := db.GetPhoto(ctx, photo.ID)
	if kept == nil || kept.TaskID != nil {
		t.Errorf("Expected photo to survive with task detached, got %+v", kept)
	}

	if err := db.DeleteDocument(ctx, d.ID); err != nil {
		t.Fatalf("Failed to delete document: %v", err)
	}
}

func TestUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	admin := &models.UserProfile{Email: "Boss@Example.com", FullName: "Dana Boss", Role: models.RoleAdmin, PasswordHash: "x"}
	crew := &models.UserProfile{Email: "crew@example.com", FullName: "Ari Crew", Role: models.RoleEmployee}
	for _, u := range []*models.UserProfile{admin, crew} {
		if err := db.CreateUser(ctx, u); err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}
	}

	dup := &models.UserProfile{Email: "crew@example.com", FullName: "Dup", Role: models.RoleEmployee}
	if err := db.CreateUser(ctx, dup); err == nil {
		t.Errorf("Expected duplicate email to fail")
	}

	found, err := db.GetUserByEmail(ctx, "boss@example.com")
	if err != nil {
		t.Fatalf("Failed to get user by email: %v", err)
	}
	if found == nil || found.ID != admin.ID || found.PasswordHash != "x" {
		t.Errorf("Unexpected user %+v", found)
	}

	role := models.RoleEmployee
	users, err := db.ListUsers(ctx, &role)
	if err != nil {
		t.Fatalf("Failed to list users: %v", err)
	}
	if len(users) != 1 || users[0].ID != crew.ID {
		t.Errorf("Unexpected users %+v", users)
	}

	if got, _ := db.GetUser(ctx, "missing"); got != nil {
		t.Errorf("Expected nil for missing user")
	}
}
