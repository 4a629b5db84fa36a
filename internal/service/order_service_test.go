package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devshad-01/alx-project-nexus/internal/constants"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T, name string, expireMinutes int) (*gorm.DB, *OrderService) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderCounter{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewOrderService(
		repository.NewOrderRepository(db),
		repository.NewProductRepository(db),
		repository.NewCartRepository(db),
		nil,
		expireMinutes,
	)
	return db, svc
}

func createOrderTestProduct(t *testing.T, db *gorm.DB, slug string, price decimal.Decimal, stock int, active bool) models.Product {
	t.Helper()
	now := time.Now()
	category := models.Category{Slug: slug + "-category", Name: "Test Category", IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := models.Product{
		CategoryID:    category.ID,
		Slug:          slug,
		SKU:           "SKU-" + slug,
		Name:          "Test " + slug,
		Price:         models.NewMoneyFromDecimal(price),
		StockQuantity: stock,
		IsActive:      active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func testShippingAddress() models.Address {
	return models.Address{
		FullName:   "Jane Buyer",
		Phone:      "+254700000001",
		Line1:      "12 Riverside Drive",
		City:       "Nairobi",
		Region:     "Nairobi County",
		PostalCode: "00100",
		Country:    "KE",
	}
}

func TestCreateOrderSnapshotsPriceAndDecrementsStock(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_create", 0)
	earbuds := createOrderTestProduct(t, db, "earbuds", decimal.RequireFromString("59.99"), 10, true)
	charger := createOrderTestProduct(t, db, "charger", decimal.RequireFromString("29.50"), 5, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: 1,
		Items: []CreateOrderItem{
			{ProductID: earbuds.ID, Quantity: 2},
			{ProductID: charger.ID, Quantity: 1},
		},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	wantNo := constants.OrderNumberPrefix + time.Now().Format("200601") + "0001"
	if order.OrderNo != wantNo {
		t.Fatalf("expected order no %s, got %s", wantNo, order.OrderNo)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("149.48")) {
		t.Fatalf("expected total 149.48, got %s", order.TotalAmount.String())
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order items, got %d", len(order.Items))
	}
	first := order.Items[0]
	if first.ProductName != earbuds.Name || first.ProductSKU != earbuds.SKU {
		t.Fatalf("unexpected snapshot fields: %+v", first)
	}
	if !first.UnitPrice.Equal(decimal.RequireFromString("59.99")) || !first.TotalPrice.Equal(decimal.RequireFromString("119.98")) {
		t.Fatalf("unexpected snapshot prices: unit=%s total=%s", first.UnitPrice.String(), first.TotalPrice.String())
	}

	var stored models.Product
	if err := db.First(&stored, earbuds.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 8 {
		t.Fatalf("expected stock 8 after order, got %d", stored.StockQuantity)
	}
}

func TestCreateOrderPriceSnapshotSurvivesPriceChange(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_snapshot", 0)
	product := createOrderTestProduct(t, db, "snapshot", decimal.RequireFromString("10.00"), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "mpesa",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("price", "25.00").Error; err != nil {
		t.Fatalf("update price failed: %v", err)
	}

	reloaded, err := svc.GetOrder(1, order.ID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if !reloaded.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected snapshot price 10.00, got %s", reloaded.Items[0].UnitPrice.String())
	}
	if !reloaded.TotalAmount.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected total 10.00, got %s", reloaded.TotalAmount.String())
	}
}

func TestCreateOrderInsufficientStockFailsWhole(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_stock", 0)
	inStock := createOrderTestProduct(t, db, "plenty", decimal.NewFromInt(10), 10, true)
	scarce := createOrderTestProduct(t, db, "scarce", decimal.NewFromInt(20), 1, true)

	_, err := svc.CreateOrder(CreateOrderInput{
		UserID: 1,
		Items: []CreateOrderItem{
			{ProductID: inStock.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 3},
		},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("expected invalid order item error, got: %v", err)
	}
	issues := OrderItemIssues(err)
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %+v", issues)
	}
	if issues[0].ProductID != scarce.ID || issues[0].Reason != ErrInsufficientStock.Error() {
		t.Fatalf("unexpected issue: %+v", issues[0])
	}

	var stored models.Product
	if err := db.First(&stored, inStock.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 10 {
		t.Fatalf("expected rollback to keep stock 10, got %d", stored.StockQuantity)
	}
	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if orderCount != 0 {
		t.Fatalf("expected no orders persisted, got %d", orderCount)
	}
}

func TestCreateOrderRejectsInactiveAndMissingProducts(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_inactive", 0)
	inactive := createOrderTestProduct(t, db, "retired", decimal.NewFromInt(10), 10, false)

	_, err := svc.CreateOrder(CreateOrderInput{
		UserID: 1,
		Items: []CreateOrderItem{
			{ProductID: inactive.ID, Quantity: 1},
			{ProductID: 9999, Quantity: 1},
		},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("expected invalid order item error, got: %v", err)
	}
	issues := OrderItemIssues(err)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", issues)
	}
	byProduct := make(map[uint]string, len(issues))
	for _, issue := range issues {
		byProduct[issue.ProductID] = issue.Reason
	}
	if byProduct[inactive.ID] != ErrProductNotAvailable.Error() {
		t.Fatalf("unexpected reason for inactive product: %s", byProduct[inactive.ID])
	}
	if byProduct[9999] != ErrProductNotFound.Error() {
		t.Fatalf("unexpected reason for missing product: %s", byProduct[9999])
	}
}

func TestCreateOrderMergesDuplicateItems(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_merge", 0)
	product := createOrderTestProduct(t, db, "merged", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID: 1,
		Items: []CreateOrderItem{
			{ProductID: product.ID, Quantity: 1},
			{ProductID: product.ID, Quantity: 2},
		},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "paypal",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 3 {
		t.Fatalf("expected single merged item with quantity 3, got %+v", order.Items)
	}
	if !order.TotalAmount.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected total 15, got %s", order.TotalAmount.String())
	}
}

func TestCreateOrderInputValidation(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_validate", 0)
	product := createOrderTestProduct(t, db, "validated", decimal.NewFromInt(5), 10, true)

	// 五要素缺一即拒单，姓名电话为可选
	for _, mutate := range []func(*models.Address){
		func(a *models.Address) { a.Line1 = "" },
		func(a *models.Address) { a.City = "" },
		func(a *models.Address) { a.Region = "" },
		func(a *models.Address) { a.PostalCode = "" },
		func(a *models.Address) { a.Country = "" },
	} {
		badAddress := testShippingAddress()
		mutate(&badAddress)
		_, err := svc.CreateOrder(CreateOrderInput{
			UserID:          1,
			Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
			ShippingAddress: badAddress,
			PaymentMethod:   "card",
		})
		if !errors.Is(err, ErrAddressInvalid) {
			t.Fatalf("expected address invalid for %+v, got: %v", badAddress, err)
		}
	}

	minimal := testShippingAddress()
	minimal.FullName = ""
	minimal.Phone = ""
	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: minimal,
	})
	if err != nil {
		t.Fatalf("expected minimal address without payment method accepted, got: %v", err)
	}
	if order.PaymentMethod != "" {
		t.Fatalf("expected empty payment method stored, got %q", order.PaymentMethod)
	}

	_, err = svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "barter",
	})
	if !errors.Is(err, ErrPaymentMethodInvalid) {
		t.Fatalf("expected payment method invalid, got: %v", err)
	}

	_, err = svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 0}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if !errors.Is(err, ErrInvalidOrderItem) {
		t.Fatalf("expected invalid order item for zero quantity, got: %v", err)
	}
}

func TestCreateOrderFromCart(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_cart", 0)
	product := createOrderTestProduct(t, db, "carted", decimal.RequireFromString("12.50"), 10, true)

	cartItem := models.CartItem{UserID: 7, ProductID: product.ID, Quantity: 2}
	if err := db.Create(&cartItem).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          7,
		FromCart:        true,
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder from cart error: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected order items: %+v", order.Items)
	}
	if !order.TotalAmount.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("expected total 25.00, got %s", order.TotalAmount.String())
	}

	var remaining int64
	if err := db.Model(&models.CartItem{}).Where("user_id = ?", 7).Count(&remaining).Error; err != nil {
		t.Fatalf("count cart items failed: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected cart drained after order, got %d rows", remaining)
	}
}

func TestCreateOrderFromEmptyCart(t *testing.T) {
	_, svc := setupOrderServiceTest(t, "order_cart_empty", 0)
	_, err := svc.CreateOrder(CreateOrderInput{
		UserID:          7,
		FromCart:        true,
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if !errors.Is(err, ErrCartEmpty) {
		t.Fatalf("expected cart empty error, got: %v", err)
	}
}

func TestOrderNumberSequenceWithinPeriod(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_seq", 0)
	product := createOrderTestProduct(t, db, "sequenced", decimal.NewFromInt(5), 10, true)

	period := time.Now().Format("200601")
	for i, want := range []string{"0001", "0002", "0003"} {
		order, err := svc.CreateOrder(CreateOrderInput{
			UserID:          1,
			Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
			ShippingAddress: testShippingAddress(),
			PaymentMethod:   "card",
		})
		if err != nil {
			t.Fatalf("CreateOrder #%d error: %v", i+1, err)
		}
		wantNo := constants.OrderNumberPrefix + period + want
		if order.OrderNo != wantNo {
			t.Fatalf("expected order no %s, got %s", wantNo, order.OrderNo)
		}
	}
}

func TestCancelOrderRestoresStock(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_cancel", 0)
	product := createOrderTestProduct(t, db, "cancellable", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          3,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 4}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	cancelled, err := svc.CancelOrder(3, order.ID)
	if err != nil {
		t.Fatalf("CancelOrder error: %v", err)
	}
	if cancelled.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Fatalf("expected cancelled_at to be set")
	}

	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 10 {
		t.Fatalf("expected stock restored to 10, got %d", stored.StockQuantity)
	}

	again, err := svc.CancelOrder(3, order.ID)
	if err != nil {
		t.Fatalf("repeated cancel should be idempotent, got: %v", err)
	}
	if again.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled status on repeat, got %s", again.Status)
	}
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 10 {
		t.Fatalf("repeated cancel must not restore stock twice, got %d", stored.StockQuantity)
	}
}

func TestCancelOrderRejectedAfterProcessing(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_cancel_late", 0)
	product := createOrderTestProduct(t, db, "shipped-out", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          3,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusProcessing); err != nil {
		t.Fatalf("processing failed: %v", err)
	}

	if _, err := svc.CancelOrder(3, order.ID); !errors.Is(err, ErrOrderCancelNotAllowed) {
		t.Fatalf("expected cancel not allowed, got: %v", err)
	}
}

func TestUpdateOrderStatusTransitions(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_status", 0)
	product := createOrderTestProduct(t, db, "lifecycle", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusShipped); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected invalid transition pending->shipped, got: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(order.ID, "refunded"); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected unknown status rejection, got: %v", err)
	}

	for _, target := range []string{
		constants.OrderStatusConfirmed,
		constants.OrderStatusProcessing,
		constants.OrderStatusShipped,
		constants.OrderStatusDelivered,
	} {
		updated, err := svc.UpdateOrderStatus(order.ID, target)
		if err != nil {
			t.Fatalf("transition to %s failed: %v", target, err)
		}
		if updated.Status != target {
			t.Fatalf("expected status %s, got %s", target, updated.Status)
		}
	}

	final, err := svc.GetOrderAdmin(order.ID)
	if err != nil {
		t.Fatalf("GetOrderAdmin error: %v", err)
	}
	if final.ShippedAt == nil || final.DeliveredAt == nil {
		t.Fatalf("expected shipped_at and delivered_at to be set: %+v", final)
	}

	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCancelled); !errors.Is(err, ErrOrderStatusInvalid) {
		t.Fatalf("expected delivered order to reject cancel, got: %v", err)
	}
}

func TestUpdateOrderStatusSameTargetIdempotent(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_status_same", 0)
	product := createOrderTestProduct(t, db, "idempotent", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	updated, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusPending)
	if err != nil {
		t.Fatalf("same-status update should be a no-op, got: %v", err)
	}
	if updated.Status != constants.OrderStatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
}

func TestAdminCancelRestoresStock(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_admin_cancel", 0)
	product := createOrderTestProduct(t, db, "admin-cancel", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 3}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	updated, err := svc.UpdateOrderStatus(order.ID, constants.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("admin cancel failed: %v", err)
	}
	if updated.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.Status)
	}
	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 10 {
		t.Fatalf("expected stock restored to 10, got %d", stored.StockQuantity)
	}
}

func TestCancelExpiredOrderOnlyPending(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_expire_task", 0)
	product := createOrderTestProduct(t, db, "expiring", decimal.NewFromInt(5), 10, true)

	pending, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if err := svc.CancelExpiredOrder(pending.ID); err != nil {
		t.Fatalf("CancelExpiredOrder error: %v", err)
	}
	reloaded, err := svc.GetOrderAdmin(pending.ID)
	if err != nil {
		t.Fatalf("GetOrderAdmin error: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", reloaded.Status)
	}

	confirmed, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	if _, err := svc.UpdateOrderStatus(confirmed.ID, constants.OrderStatusConfirmed); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if err := svc.CancelExpiredOrder(confirmed.ID); err != nil {
		t.Fatalf("CancelExpiredOrder on confirmed order should be a no-op, got: %v", err)
	}
	reloaded, err = svc.GetOrderAdmin(confirmed.ID)
	if err != nil {
		t.Fatalf("GetOrderAdmin error: %v", err)
	}
	if reloaded.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed untouched, got %s", reloaded.Status)
	}
}

func TestGetOrderLazyCancelsExpiredPending(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_expire_lazy", 30)
	product := createOrderTestProduct(t, db, "lazily-expired", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          4,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 2}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	stale := time.Now().Add(-time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("created_at", stale).Error; err != nil {
		t.Fatalf("backdate order failed: %v", err)
	}

	reloaded, err := svc.GetOrder(4, order.ID)
	if err != nil {
		t.Fatalf("GetOrder error: %v", err)
	}
	if reloaded.Status != constants.OrderStatusCancelled {
		t.Fatalf("expected expired order to cancel on read, got %s", reloaded.Status)
	}
	var stored models.Product
	if err := db.First(&stored, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if stored.StockQuantity != 10 {
		t.Fatalf("expected stock restored to 10, got %d", stored.StockQuantity)
	}
}

func TestSweepExpiredOrders(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_expire_sweep", 30)
	product := createOrderTestProduct(t, db, "swept", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}
	fresh, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	stale := time.Now().Add(-time.Hour)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("created_at", stale).Error; err != nil {
		t.Fatalf("backdate order failed: %v", err)
	}

	cancelled, err := svc.SweepExpiredOrders(50)
	if err != nil {
		t.Fatalf("SweepExpiredOrders error: %v", err)
	}
	if cancelled != 1 {
		t.Fatalf("expected 1 cancelled order, got %d", cancelled)
	}
	reloaded, err := svc.GetOrderAdmin(fresh.ID)
	if err != nil {
		t.Fatalf("GetOrderAdmin error: %v", err)
	}
	if reloaded.Status != constants.OrderStatusPending {
		t.Fatalf("expected fresh order to stay pending, got %s", reloaded.Status)
	}
}

func TestGetOrderScopedToOwner(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_scope", 0)
	product := createOrderTestProduct(t, db, "scoped", decimal.NewFromInt(5), 10, true)

	order, err := svc.CreateOrder(CreateOrderInput{
		UserID:          1,
		Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
		ShippingAddress: testShippingAddress(),
		PaymentMethod:   "card",
	})
	if err != nil {
		t.Fatalf("CreateOrder error: %v", err)
	}

	if _, err := svc.GetOrder(2, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found for foreign user, got: %v", err)
	}
	byNo, err := svc.GetOrderByNo(1, order.OrderNo)
	if err != nil {
		t.Fatalf("GetOrderByNo error: %v", err)
	}
	if byNo.ID != order.ID {
		t.Fatalf("expected order %d, got %d", order.ID, byNo.ID)
	}
	if _, err := svc.GetOrderByNo(2, order.OrderNo); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found for foreign user by order no, got: %v", err)
	}

	// 管理端按订单号查询不受归属限制
	adminView, err := svc.GetOrderAdminByNo(order.OrderNo)
	if err != nil {
		t.Fatalf("GetOrderAdminByNo error: %v", err)
	}
	if adminView.ID != order.ID {
		t.Fatalf("expected order %d, got %d", order.ID, adminView.ID)
	}
	if _, err := svc.GetOrderAdminByNo("ORD0000000000"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found for unknown order no, got: %v", err)
	}
}

func TestFormatOrderNo(t *testing.T) {
	if got := formatOrderNo("202501", 7); got != "ORD2025010007" {
		t.Fatalf("unexpected order no: %s", got)
	}
	if got := formatOrderNo("202512", 12345); got != "ORD20251212345" {
		t.Fatalf("expected sequence wider than 4 digits to expand, got: %s", got)
	}
}

func TestCreateOrderConcurrentStockSingleWinner(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_race_stock", 0)
	product := createOrderTestProduct(t, db, "race-stock", decimal.NewFromInt(20), 1, true)

	// sqlite 写入走单连接，避免并发事务触发 SQLITE_BUSY
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			_, err := svc.CreateOrder(CreateOrderInput{
				UserID:          userID,
				Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
				ShippingAddress: testShippingAddress(),
				PaymentMethod:   "card",
			})
			results <- err
		}(uint(i + 1))
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrInvalidOrderItem):
			losses++
			issues := OrderItemIssues(err)
			if len(issues) != 1 || issues[0].Reason != ErrInsufficientStock.Error() {
				t.Fatalf("unexpected loser issues: %+v", issues)
			}
		default:
			t.Fatalf("unexpected placement error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner, got wins=%d losses=%d", wins, losses)
	}

	var fresh models.Product
	if err := db.First(&fresh, product.ID).Error; err != nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if fresh.StockQuantity != 0 {
		t.Fatalf("expected stock drained to 0, got %d", fresh.StockQuantity)
	}
	var orderCount int64
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders failed: %v", err)
	}
	if orderCount != 1 {
		t.Fatalf("expected single order, got %d", orderCount)
	}
}

func TestCreateOrderConcurrentNumbersUnique(t *testing.T) {
	db, svc := setupOrderServiceTest(t, "order_race_no", 0)
	product := createOrderTestProduct(t, db, "race-no", decimal.NewFromInt(5), 100, true)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	const placements = 8
	orderNos := make(chan string, placements)
	var wg sync.WaitGroup
	for i := 0; i < placements; i++ {
		wg.Add(1)
		go func(userID uint) {
			defer wg.Done()
			order, err := svc.CreateOrder(CreateOrderInput{
				UserID:          userID,
				Items:           []CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
				ShippingAddress: testShippingAddress(),
				PaymentMethod:   "card",
			})
			if err != nil {
				t.Errorf("CreateOrder error: %v", err)
				return
			}
			orderNos <- order.OrderNo
		}(uint(i + 1))
	}
	wg.Wait()
	close(orderNos)

	period := time.Now().Format("200601")
	seen := make(map[string]bool, placements)
	for no := range orderNos {
		if seen[no] {
			t.Fatalf("duplicate order no issued: %s", no)
		}
		seen[no] = true
		if !strings.HasPrefix(no, "ORD"+period) {
			t.Fatalf("unexpected order no format: %s", no)
		}
	}
	if len(seen) != placements {
		t.Fatalf("expected %d distinct order numbers, got %d", placements, len(seen))
	}
}
