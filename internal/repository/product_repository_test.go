package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/devshad-01/alx-project-nexus/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupProductRepositoryTest(t *testing.T, name string) (*GormProductRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}); err != nil {
		t.Fatalf("migrate product failed: %v", err)
	}
	return NewProductRepository(db), db
}

func createStockedProduct(t *testing.T, repo *GormProductRepository, slug string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID:    1,
		Slug:          slug,
		SKU:           "SKU-" + slug,
		Name:          "Test " + slug,
		Price:         models.NewMoneyFromDecimal(decimal.NewFromInt(100)),
		StockQuantity: stock,
		IsActive:      true,
	}
	if err := repo.Create(product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestDecrementStockGuardsAgainstOversell(t *testing.T) {
	repo, db := setupProductRepositoryTest(t, "product_decrement")
	product := createStockedProduct(t, repo, "guarded", 5)

	affected, err := repo.DecrementStock(product.ID, 3)
	if err != nil {
		t.Fatalf("DecrementStock error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	affected, err = repo.DecrementStock(product.ID, 3)
	if err != nil {
		t.Fatalf("DecrementStock error: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected guard to reject oversell, got %d rows", affected)
	}

	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 2 {
		t.Fatalf("expected stock 2, got %d", stored.StockQuantity)
	}

	if _, err := repo.DecrementStock(product.ID, 0); err == nil {
		t.Fatalf("expected error for non-positive quantity")
	}
	if _, err := repo.DecrementStock(0, 1); err == nil {
		t.Fatalf("expected error for zero product id")
	}
}

func TestRestoreStock(t *testing.T) {
	repo, db := setupProductRepositoryTest(t, "product_restore")
	product := createStockedProduct(t, repo, "restored", 2)

	affected, err := repo.RestoreStock(product.ID, 4)
	if err != nil {
		t.Fatalf("RestoreStock error: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}
	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 6 {
		t.Fatalf("expected stock 6, got %d", stored.StockQuantity)
	}

	affected, err = repo.RestoreStock(9999, 1)
	if err != nil {
		t.Fatalf("RestoreStock error: %v", err)
	}
	if affected != 0 {
		t.Fatalf("expected no rows for missing product, got %d", affected)
	}
}
