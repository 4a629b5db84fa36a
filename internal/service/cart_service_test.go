package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T, name string) (*gorm.DB, *CartService) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}, &models.CartItem{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	svc := NewCartService(repository.NewCartRepository(db), repository.NewProductRepository(db))
	return db, svc
}

func TestCartAddItemAccumulatesQuantity(t *testing.T) {
	db, svc := setupCartServiceTest(t, "cart_add")
	product := createOrderTestProduct(t, db, "cart-add", decimal.RequireFromString("9.99"), 5, true)

	item, err := svc.AddItem(1, product.ID, 2)
	if err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if item.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %d", item.Quantity)
	}

	item, err = svc.AddItem(1, product.ID, 3)
	if err != nil {
		t.Fatalf("second AddItem error: %v", err)
	}
	if item.Quantity != 5 {
		t.Fatalf("expected accumulated quantity 5, got %d", item.Quantity)
	}

	var count int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count cart items failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single cart row, got %d", count)
	}
}

func TestCartMutationsIgnoreStock(t *testing.T) {
	db, svc := setupCartServiceTest(t, "cart_stock")
	product := createOrderTestProduct(t, db, "cart-stock", decimal.NewFromInt(5), 3, true)

	// 库存只在下单时校验，购物车可超量
	item, err := svc.AddItem(1, product.ID, 4)
	if err != nil {
		t.Fatalf("AddItem beyond stock error: %v", err)
	}
	if item.Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", item.Quantity)
	}
	if item, err = svc.AddItem(1, product.ID, 2); err != nil || item.Quantity != 6 {
		t.Fatalf("expected accumulated quantity 6, got %d (err: %v)", item.Quantity, err)
	}
	if item, err = svc.UpdateItemQuantity(1, product.ID, 50); err != nil || item.Quantity != 50 {
		t.Fatalf("expected quantity 50, got %d (err: %v)", item.Quantity, err)
	}
	if _, err := svc.AddItem(1, product.ID, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got: %v", err)
	}
}

func TestCartAddItemRejectsUnavailableProduct(t *testing.T) {
	db, svc := setupCartServiceTest(t, "cart_unavailable")
	inactive := createOrderTestProduct(t, db, "cart-inactive", decimal.NewFromInt(5), 3, false)

	if _, err := svc.AddItem(1, inactive.ID, 1); !errors.Is(err, ErrProductNotAvailable) {
		t.Fatalf("expected product not available, got: %v", err)
	}
	if _, err := svc.AddItem(1, 9999, 1); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found, got: %v", err)
	}
}

func TestCartUpdateItemQuantity(t *testing.T) {
	db, svc := setupCartServiceTest(t, "cart_update")
	product := createOrderTestProduct(t, db, "cart-update", decimal.NewFromInt(5), 10, true)

	if _, err := svc.UpdateItemQuantity(1, product.ID, 2); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing cart row, got: %v", err)
	}

	if _, err := svc.AddItem(1, product.ID, 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	item, err := svc.UpdateItemQuantity(1, product.ID, 7)
	if err != nil {
		t.Fatalf("UpdateItemQuantity error: %v", err)
	}
	if item.Quantity != 7 {
		t.Fatalf("expected quantity 7, got %d", item.Quantity)
	}
}

func TestCartUpdateItemZeroQuantityRemovesLine(t *testing.T) {
	db, svc := setupCartServiceTest(t, "cart_update_zero")
	product := createOrderTestProduct(t, db, "cart-update-zero", decimal.NewFromInt(5), 10, true)

	if _, err := svc.AddItem(1, product.ID, 3); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	item, err := svc.UpdateItemQuantity(1, product.ID, 0)
	if err != nil {
		t.Fatalf("UpdateItemQuantity error: %v", err)
	}
	if item != nil {
		t.Fatalf("expected nil item after removal, got %+v", item)
	}

	summary, err := svc.GetCart(1)
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if len(summary.Lines) != 0 {
		t.Fatalf("expected empty cart after zero-quantity update, got %+v", summary.Lines)
	}

	// 对不存在的条目设置 0 也应静默成功
	if _, err := svc.UpdateItemQuantity(1, product.ID, -1); err != nil {
		t.Fatalf("UpdateItemQuantity on missing line error: %v", err)
	}
}

func TestCartPrunesUnavailableProducts(t *testing.T) {
	db, svc := setupCartServiceTest(t, "cart_prune")
	keep := createOrderTestProduct(t, db, "cart-keep", decimal.NewFromInt(5), 10, true)
	gone := createOrderTestProduct(t, db, "cart-gone", decimal.NewFromInt(5), 10, true)

	if _, err := svc.AddItem(3, keep.ID, 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if _, err := svc.AddItem(3, gone.ID, 2); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	if err := db.Model(&models.Product{}).Where("id = ?", gone.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	summary, err := svc.GetCart(3)
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if len(summary.Lines) != 1 || summary.Lines[0].ProductID != keep.ID {
		t.Fatalf("expected only active product in cart, got %+v", summary.Lines)
	}

	var remaining int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 3).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart items failed: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("expected stale line deleted, %d rows remain", remaining)
	}
}

func TestCartSummaryMath(t *testing.T) {
	db, svc := setupCartServiceTest(t, "cart_summary")
	cheap := createOrderTestProduct(t, db, "cart-cheap", decimal.RequireFromString("2.50"), 10, true)
	dear := createOrderTestProduct(t, db, "cart-dear", decimal.RequireFromString("19.99"), 10, true)

	if _, err := svc.AddItem(9, cheap.ID, 4); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if _, err := svc.AddItem(9, dear.ID, 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	summary, err := svc.GetCart(9)
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if len(summary.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(summary.Lines))
	}
	if summary.ItemCount != 5 {
		t.Fatalf("expected item count 5, got %d", summary.ItemCount)
	}
	if !summary.Subtotal.Equal(decimal.RequireFromString("29.99")) {
		t.Fatalf("expected subtotal 29.99, got %s", summary.Subtotal.String())
	}
	for _, line := range summary.Lines {
		if line.Product == nil {
			t.Fatalf("expected product preloaded on line: %+v", line)
		}
		if line.ProductID == cheap.ID && !line.LineTotal.Equal(decimal.RequireFromString("10.00")) {
			t.Fatalf("expected line total 10.00, got %s", line.LineTotal.String())
		}
	}
}

func TestCartRemoveAndClear(t *testing.T) {
	db, svc := setupCartServiceTest(t, "cart_remove")
	first := createOrderTestProduct(t, db, "cart-first", decimal.NewFromInt(5), 10, true)
	second := createOrderTestProduct(t, db, "cart-second", decimal.NewFromInt(5), 10, true)

	if _, err := svc.AddItem(2, first.ID, 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}
	if _, err := svc.AddItem(2, second.ID, 1); err != nil {
		t.Fatalf("AddItem error: %v", err)
	}

	if err := svc.RemoveItem(2, first.ID); err != nil {
		t.Fatalf("RemoveItem error: %v", err)
	}
	summary, err := svc.GetCart(2)
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if len(summary.Lines) != 1 || summary.Lines[0].ProductID != second.ID {
		t.Fatalf("unexpected cart after remove: %+v", summary.Lines)
	}

	if err := svc.ClearCart(2); err != nil {
		t.Fatalf("ClearCart error: %v", err)
	}
	summary, err = svc.GetCart(2)
	if err != nil {
		t.Fatalf("GetCart error: %v", err)
	}
	if len(summary.Lines) != 0 || summary.ItemCount != 0 {
		t.Fatalf("expected empty cart, got %+v", summary)
	}
	if !summary.Subtotal.Equal(decimal.Zero) {
		t.Fatalf("expected zero subtotal, got %s", summary.Subtotal.String())
	}
}
