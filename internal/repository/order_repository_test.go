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

func setupOrderRepositoryTest(t *testing.T, name string) (*GormOrderRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.OrderCounter{}); err != nil {
		t.Fatalf("migrate order tables failed: %v", err)
	}
	return NewOrderRepository(db), db
}

func TestNextOrderSeqIncrementsPerPeriod(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t, "order_seq_counter")

	for want := 1; want <= 3; want++ {
		seq, err := repo.NextOrderSeq("202508")
		if err != nil {
			t.Fatalf("NextOrderSeq error: %v", err)
		}
		if seq != want {
			t.Fatalf("expected seq %d, got %d", want, seq)
		}
	}

	seq, err := repo.NextOrderSeq("202509")
	if err != nil {
		t.Fatalf("NextOrderSeq error: %v", err)
	}
	if seq != 1 {
		t.Fatalf("expected new period to restart at 1, got %d", seq)
	}

	if _, err := repo.NextOrderSeq("  "); err == nil {
		t.Fatalf("expected error for empty period")
	}
}

func TestCreateOrderPersistsItems(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t, "order_create_items")

	order := &models.Order{
		OrderNo:       "ORD2025080001",
		UserID:        1,
		Status:        "pending",
		TotalAmount:   models.NewMoneyFromDecimal(decimal.RequireFromString("20.00")),
		PaymentMethod: "card",
	}
	items := []models.OrderItem{
		{ProductID: 1, ProductName: "First", ProductSKU: "SKU-1", UnitPrice: models.NewMoneyFromDecimal(decimal.RequireFromString("5.00")), Quantity: 2, TotalPrice: models.NewMoneyFromDecimal(decimal.RequireFromString("10.00"))},
		{ProductID: 2, ProductName: "Second", ProductSKU: "SKU-2", UnitPrice: models.NewMoneyFromDecimal(decimal.RequireFromString("10.00")), Quantity: 1, TotalPrice: models.NewMoneyFromDecimal(decimal.RequireFromString("10.00"))},
	}
	if err := repo.Create(order, items); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if order.ID == 0 {
		t.Fatalf("expected order id assigned")
	}

	loaded, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if loaded == nil || len(loaded.Items) != 2 {
		t.Fatalf("expected order with 2 items, got %+v", loaded)
	}
	for _, item := range loaded.Items {
		if item.OrderID != order.ID {
			t.Fatalf("expected item bound to order %d, got %d", order.ID, item.OrderID)
		}
	}

	byNo, err := repo.GetByOrderNoAndUser("ORD2025080001", 1)
	if err != nil {
		t.Fatalf("GetByOrderNoAndUser error: %v", err)
	}
	if byNo == nil || byNo.ID != order.ID {
		t.Fatalf("expected lookup by order no, got %+v", byNo)
	}
	foreign, err := repo.GetByOrderNoAndUser("ORD2025080001", 2)
	if err != nil {
		t.Fatalf("GetByOrderNoAndUser error: %v", err)
	}
	if foreign != nil {
		t.Fatalf("expected nil for foreign user, got %+v", foreign)
	}
}

func TestListByUserFiltersStatus(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t, "order_list_filter")

	fixtures := []models.Order{
		{OrderNo: "ORD2025080001", UserID: 1, Status: "pending", PaymentMethod: "card"},
		{OrderNo: "ORD2025080002", UserID: 1, Status: "delivered", PaymentMethod: "card"},
		{OrderNo: "ORD2025080003", UserID: 2, Status: "pending", PaymentMethod: "card"},
	}
	for i := range fixtures {
		if err := db.Create(&fixtures[i]).Error; err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	orders, total, err := repo.ListByUser(OrderListFilter{Page: 1, PageSize: 20, UserID: 1})
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if total != 2 || len(orders) != 2 {
		t.Fatalf("expected 2 orders for user 1, got %d", total)
	}

	_, total, err = repo.ListByUser(OrderListFilter{Page: 1, PageSize: 20, UserID: 1, Status: "pending"})
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 pending order, got %d", total)
	}
}

func TestListExpiredPending(t *testing.T) {
	repo, db := setupOrderRepositoryTest(t, "order_expired")

	stale := time.Now().Add(-2 * time.Hour)
	fixtures := []models.Order{
		{OrderNo: "ORD2025080001", UserID: 1, Status: "pending", PaymentMethod: "card", CreatedAt: stale},
		{OrderNo: "ORD2025080002", UserID: 1, Status: "pending", PaymentMethod: "card", CreatedAt: time.Now()},
		{OrderNo: "ORD2025080003", UserID: 1, Status: "confirmed", PaymentMethod: "card", CreatedAt: stale},
	}
	for i := range fixtures {
		if err := db.Create(&fixtures[i]).Error; err != nil {
			t.Fatalf("create order failed: %v", err)
		}
	}

	expired, err := repo.ListExpiredPending(time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("ListExpiredPending error: %v", err)
	}
	if len(expired) != 1 || expired[0].OrderNo != "ORD2025080001" {
		t.Fatalf("expected only the stale pending order, got %+v", expired)
	}
}
