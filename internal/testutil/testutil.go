// Package testutil builds in-memory fixtures shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
	"github.com/Skotchmaster/radiant_bloom/pkg/db"
	"github.com/Skotchmaster/radiant_bloom/pkg/hash"
)

func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	hash.Cost = bcrypt.MinCost

	gdb, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := models.AutoMigrate(gdb); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

func CreateUser(t testing.TB, gdb *gorm.DB, role string) *models.User {
	t.Helper()
	pw, err := hash.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &models.User{
		FirstName:    "Test",
		LastName:     role,
		Email:        fmt.Sprintf("%s-%s@example.com", role, uuid.NewString()[:8]),
		PasswordHash: pw,
		Role:         role,
		IsActive:     true,
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateCategory(t testing.TB, gdb *gorm.DB, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: slug, Slug: slug, IsActive: true}
	if err := gdb.Create(c).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return c
}

type ProductOpt func(*models.Product)

func WithStock(qty int, track bool) ProductOpt {
	return func(p *models.Product) {
		p.Inventory.Quantity = qty
		p.Inventory.TrackInventory = track
	}
}

func WithStatus(status string) ProductOpt {
	return func(p *models.Product) { p.Status = status }
}

func WithBrand(brand string) ProductOpt {
	return func(p *models.Product) { p.Brand = brand }
}

func CreateProduct(t testing.TB, gdb *gorm.DB, categoryID uuid.UUID, name, price string, opts ...ProductOpt) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:        name,
		Brand:       "Radiant Bloom",
		Description: name + " description",
		Price:       decimal.RequireFromString(price),
		CategoryID:  categoryID,
		Images:      []string{"https://cdn.example.com/" + uuid.NewString() + ".jpg"},
		Features:    []string{},
		Tags:        []string{},
		Inventory:   models.Inventory{Quantity: 10, LowStockThreshold: 5, TrackInventory: true},
		Status:      models.ProductActive,
	}
	for _, o := range opts {
		o(p)
	}
	if err := gdb.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func Stock(t testing.TB, gdb *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var p models.Product
	if err := gdb.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	return p.Inventory.Quantity
}
