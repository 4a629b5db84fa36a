package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/devshad-01/alx-project-nexus/internal/constants"
	"github.com/devshad-01/alx-project-nexus/internal/logger"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/queue"
	"github.com/devshad-01/alx-project-nexus/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService 订单服务
type OrderService struct {
	orderRepo     repository.OrderRepository
	productRepo   repository.ProductRepository
	cartRepo      repository.CartRepository
	queueClient   *queue.Client
	expireMinutes int
}

// NewOrderService 创建订单服务
func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, cartRepo repository.CartRepository, queueClient *queue.Client, expireMinutes int) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		productRepo:   productRepo,
		cartRepo:      cartRepo,
		queueClient:   queueClient,
		expireMinutes: expireMinutes,
	}
}

// CreateOrderItem 下单条目
type CreateOrderItem struct {
	ProductID uint
	Quantity  int
}

// CreateOrderInput 创建订单输入
type CreateOrderInput struct {
	UserID          uint
	Items           []CreateOrderItem
	FromCart        bool
	ShippingAddress models.Address
	BillingAddress  *models.Address
	PaymentMethod   string
	Notes           string
	ClientIP        string
}

// OrderItemIssue 单个下单条目的校验问题
type OrderItemIssue struct {
	ProductID uint   `json:"product_id"`
	Reason    string `json:"reason"`
}

type orderItemsError struct {
	issues []OrderItemIssue
}

func (e orderItemsError) Error() string {
	return ErrInvalidOrderItem.Error()
}

func (e orderItemsError) Is(target error) bool {
	return target == ErrInvalidOrderItem
}

// Issues 返回逐条目的问题明细
func (e orderItemsError) Issues() []OrderItemIssue {
	return e.issues
}

// OrderItemIssues 从错误中提取条目问题明细
func OrderItemIssues(err error) []OrderItemIssue {
	var itemsErr orderItemsError
	if ok := asOrderItemsError(err, &itemsErr); ok {
		return itemsErr.issues
	}
	return nil
}

func asOrderItemsError(err error, target *orderItemsError) bool {
	if e, ok := err.(orderItemsError); ok {
		*target = e
		return true
	}
	return false
}

// CreateOrder 创建订单。
// 库存扣减、价格快照、订单号分配与购物车清理在同一事务内完成；
// 任一条目库存不足则整单失败回滚。
func (s *OrderService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.UserID == 0 {
		return nil, ErrNotFound
	}
	if err := validateAddress(input.ShippingAddress); err != nil {
		return nil, err
	}
	if input.BillingAddress != nil {
		if err := validateAddress(*input.BillingAddress); err != nil {
			return nil, err
		}
	}
	paymentMethod, err := normalizePaymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	items, err := s.resolveOrderItems(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	billing := input.ShippingAddress
	if input.BillingAddress != nil {
		billing = *input.BillingAddress
	}

	var created *models.Order
	txErr := models.DB.Transaction(func(tx *gorm.DB) error {
		txOrderRepo := s.orderRepo.WithTx(tx)
		txProductRepo := s.productRepo.WithTx(tx)
		txCartRepo := s.cartRepo.WithTx(tx)

		productIDs := make([]uint, 0, len(items))
		for _, item := range items {
			productIDs = append(productIDs, item.ProductID)
		}
		products, err := txProductRepo.ListByIDs(productIDs)
		if err != nil {
			return err
		}
		productByID := make(map[uint]*models.Product, len(products))
		for i := range products {
			productByID[products[i].ID] = &products[i]
		}

		var issues []OrderItemIssue
		orderItems := make([]models.OrderItem, 0, len(items))
		total := decimal.Zero
		for _, item := range items {
			product, ok := productByID[item.ProductID]
			if !ok {
				issues = append(issues, OrderItemIssue{ProductID: item.ProductID, Reason: ErrProductNotFound.Error()})
				continue
			}
			if !product.IsActive {
				issues = append(issues, OrderItemIssue{ProductID: item.ProductID, Reason: ErrProductNotAvailable.Error()})
				continue
			}
			affected, err := txProductRepo.DecrementStock(product.ID, item.Quantity)
			if err != nil {
				return err
			}
			if affected == 0 {
				issues = append(issues, OrderItemIssue{ProductID: item.ProductID, Reason: ErrInsufficientStock.Error()})
				continue
			}
			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
			total = total.Add(lineTotal)
			orderItems = append(orderItems, models.OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				ProductSKU:  product.SKU,
				UnitPrice:   product.Price,
				Quantity:    item.Quantity,
				TotalPrice:  models.NewMoneyFromDecimal(lineTotal),
			})
		}
		if len(issues) > 0 {
			return orderItemsError{issues: issues}
		}

		order := &models.Order{
			UserID:          input.UserID,
			Status:          constants.OrderStatusPending,
			TotalAmount:     models.NewMoneyFromDecimal(total),
			ShippingAddress: input.ShippingAddress,
			BillingAddress:  billing,
			PaymentMethod:   paymentMethod,
			Notes:           strings.TrimSpace(input.Notes),
			ClientIP:        strings.TrimSpace(input.ClientIP),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.createWithOrderNo(txOrderRepo, order, orderItems, now); err != nil {
			return err
		}
		order.Items = orderItems

		if input.FromCart {
			if err := txCartRepo.DeleteByUserAndProducts(input.UserID, productIDs); err != nil {
				return err
			}
		}

		created = order
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	if s.expireMinutes > 0 {
		delay := time.Duration(s.expireMinutes) * time.Minute
		if err := s.queueClient.EnqueueOrderTimeoutCancel(queue.OrderTimeoutCancelPayload{OrderID: created.ID}, delay); err != nil {
			logger.Errorw("order_enqueue_timeout_cancel_failed",
				"order_id", created.ID,
				"order_no", created.OrderNo,
				"error", err,
			)
			if rollbackErr := s.cancelAndRestoreStock(created.ID, "queue_unavailable"); rollbackErr != nil {
				logger.Errorw("order_timeout_rollback_cancel_failed",
					"order_id", created.ID,
					"error", rollbackErr,
				)
			}
			return nil, ErrQueueUnavailable
		}
	}

	s.enqueueStatusEmail(created.ID, constants.OrderStatusPending)
	return created, nil
}

// createWithOrderNo 分配订单号并落库，订单号唯一冲突时重取序号重试一次
func (s *OrderService) createWithOrderNo(txOrderRepo *repository.GormOrderRepository, order *models.Order, items []models.OrderItem, now time.Time) error {
	period := now.Format("200601")
	for attempt := 0; attempt < 2; attempt++ {
		seq, err := txOrderRepo.NextOrderSeq(period)
		if err != nil {
			return err
		}
		order.OrderNo = formatOrderNo(period, seq)
		err = txOrderRepo.Create(order, items)
		if err == nil {
			return nil
		}
		if attempt == 0 && isDuplicateKeyError(err) {
			logger.Warnw("order_no_conflict_retry",
				"order_no", order.OrderNo,
			)
			order.ID = 0
			continue
		}
		return err
	}
	return ErrOrderCreateFailed
}

func formatOrderNo(period string, seq int) string {
	return fmt.Sprintf("%s%s%0*d", constants.OrderNumberPrefix, period, constants.OrderNumberSeqDigits, seq)
}

func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique") || strings.Contains(message, "duplicate")
}

// resolveOrderItems 归一化下单条目：购物车下单读取购物车，直接下单合并重复商品
func (s *OrderService) resolveOrderItems(input CreateOrderInput) ([]CreateOrderItem, error) {
	if input.FromCart {
		cartItems, err := s.cartRepo.ListByUser(input.UserID)
		if err != nil {
			return nil, err
		}
		if len(cartItems) == 0 {
			return nil, ErrCartEmpty
		}
		items := make([]CreateOrderItem, 0, len(cartItems))
		for _, cartItem := range cartItems {
			items = append(items, CreateOrderItem{ProductID: cartItem.ProductID, Quantity: cartItem.Quantity})
		}
		return items, nil
	}

	if len(input.Items) == 0 {
		return nil, ErrInvalidOrderItem
	}
	merged := make([]CreateOrderItem, 0, len(input.Items))
	indexByProduct := make(map[uint]int, len(input.Items))
	var issues []OrderItemIssue
	for _, item := range input.Items {
		if item.ProductID == 0 || item.Quantity <= 0 {
			issues = append(issues, OrderItemIssue{ProductID: item.ProductID, Reason: ErrInvalidOrderItem.Error()})
			continue
		}
		if idx, ok := indexByProduct[item.ProductID]; ok {
			merged[idx].Quantity += item.Quantity
			continue
		}
		indexByProduct[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	if len(issues) > 0 {
		return nil, orderItemsError{issues: issues}
	}
	return merged, nil
}

// validateAddress 校验地址五要素，姓名和电话为可选补充
func validateAddress(addr models.Address) error {
	if strings.TrimSpace(addr.Line1) == "" ||
		strings.TrimSpace(addr.City) == "" ||
		strings.TrimSpace(addr.Region) == "" ||
		strings.TrimSpace(addr.PostalCode) == "" ||
		strings.TrimSpace(addr.Country) == "" {
		return ErrAddressInvalid
	}
	return nil
}

// normalizePaymentMethod 支付方式为可选标记，非空时须在白名单内
func normalizePaymentMethod(method string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(method))
	if normalized == "" {
		return "", nil
	}
	switch normalized {
	case constants.PaymentMethodCard, constants.PaymentMethodMpesa, constants.PaymentMethodPaypal, constants.PaymentMethodDelivery:
		return normalized, nil
	default:
		return "", ErrPaymentMethodInvalid
	}
}

// GetOrder 获取用户自己的订单
func (s *OrderService) GetOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.ensureOrderCancelledIfExpired(order)
}

// GetOrderByNo 按订单号获取用户自己的订单
func (s *OrderService) GetOrderByNo(userID uint, orderNo string) (*models.Order, error) {
	order, err := s.orderRepo.GetByOrderNoAndUser(strings.TrimSpace(orderNo), userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.ensureOrderCancelledIfExpired(order)
}

// ListOrders 用户订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	if filter.UserID == 0 {
		return nil, 0, ErrNotFound
	}
	orders, total, err := s.orderRepo.ListByUser(filter)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		refreshed, err := s.ensureOrderCancelledIfExpired(&orders[i])
		if err != nil {
			return nil, 0, err
		}
		orders[i] = *refreshed
	}
	return orders, total, nil
}

// ListOrdersAdmin 管理端订单列表
func (s *OrderService) ListOrdersAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// GetOrderAdmin 管理端获取订单
func (s *OrderService) GetOrderAdmin(orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// GetOrderAdminByNo 管理端按订单号获取订单
func (s *OrderService) GetOrderAdminByNo(orderNo string) (*models.Order, error) {
	orderNo = strings.TrimSpace(orderNo)
	if orderNo == "" {
		return nil, ErrOrderNotFound
	}
	order, err := s.orderRepo.GetByOrderNo(orderNo)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// CancelOrder 用户取消订单，仅 pending/confirmed 可取消，取消后回补库存
func (s *OrderService) CancelOrder(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusCancelled {
		return order, nil
	}
	if !canCancelOrder(order.Status) {
		return nil, ErrOrderCancelNotAllowed
	}
	if err := s.cancelAndRestoreStock(order.ID, "user_cancel"); err != nil {
		return nil, err
	}
	s.enqueueStatusEmail(order.ID, constants.OrderStatusCancelled)
	return s.orderRepo.GetByID(order.ID)
}

// UpdateOrderStatus 管理端推进订单状态
func (s *OrderService) UpdateOrderStatus(orderID uint, target string) (*models.Order, error) {
	target = strings.ToLower(strings.TrimSpace(target))
	if !isKnownOrderStatus(target) {
		return nil, ErrOrderStatusInvalid
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == target {
		return order, nil
	}
	if !isTransitionAllowed(order.Status, target) {
		return nil, ErrOrderStatusInvalid
	}

	if target == constants.OrderStatusCancelled {
		if err := s.cancelAndRestoreStock(order.ID, "admin_cancel"); err != nil {
			return nil, err
		}
	} else {
		now := time.Now()
		updates := map[string]interface{}{"updated_at": now}
		switch target {
		case constants.OrderStatusShipped:
			updates["shipped_at"] = now
		case constants.OrderStatusDelivered:
			updates["delivered_at"] = now
		}
		if err := s.orderRepo.UpdateStatus(order.ID, target, updates); err != nil {
			return nil, ErrOrderUpdateFailed
		}
	}

	s.enqueueStatusEmail(order.ID, target)
	return s.orderRepo.GetByID(order.ID)
}

// CancelExpiredOrder 超时取消单个 pending 订单，由队列任务回调
func (s *OrderService) CancelExpiredOrder(orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return err
	}
	if order == nil || order.Status != constants.OrderStatusPending {
		return nil
	}
	if err := s.cancelAndRestoreStock(order.ID, "timeout"); err != nil {
		return err
	}
	s.enqueueStatusEmail(order.ID, constants.OrderStatusCancelled)
	return nil
}

// SweepExpiredOrders 兜底扫描超时 pending 订单并取消，返回取消数量
func (s *OrderService) SweepExpiredOrders(limit int) (int, error) {
	if s.expireMinutes <= 0 {
		return 0, nil
	}
	before := time.Now().Add(-time.Duration(s.expireMinutes) * time.Minute)
	orders, err := s.orderRepo.ListExpiredPending(before, limit)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for i := range orders {
		if err := s.cancelAndRestoreStock(orders[i].ID, "timeout_sweep"); err != nil {
			logger.Warnw("order_timeout_sweep_cancel_failed",
				"order_id", orders[i].ID,
				"error", err,
			)
			continue
		}
		cancelled++
		s.enqueueStatusEmail(orders[i].ID, constants.OrderStatusCancelled)
	}
	return cancelled, nil
}

// ensureOrderCancelledIfExpired 读取时惰性取消过期 pending 订单
func (s *OrderService) ensureOrderCancelledIfExpired(order *models.Order) (*models.Order, error) {
	if order == nil || s.expireMinutes <= 0 {
		return order, nil
	}
	if order.Status != constants.OrderStatusPending {
		return order, nil
	}
	deadline := order.CreatedAt.Add(time.Duration(s.expireMinutes) * time.Minute)
	if time.Now().Before(deadline) {
		return order, nil
	}
	if err := s.cancelAndRestoreStock(order.ID, "timeout_lazy"); err != nil {
		return nil, err
	}
	refreshed, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	if refreshed == nil {
		return order, nil
	}
	return refreshed, nil
}

// cancelAndRestoreStock 事务内取消订单并按当前条目回补库存。
// 状态更新带前置状态条件，并发下只有一方会真正取消并回补。
func (s *OrderService) cancelAndRestoreStock(orderID uint, reason string) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		txOrderRepo := s.orderRepo.WithTx(tx)
		txProductRepo := s.productRepo.WithTx(tx)

		order, err := txOrderRepo.GetByID(orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status == constants.OrderStatusCancelled {
			return nil
		}
		if !canCancelOrder(order.Status) {
			return ErrOrderCancelNotAllowed
		}

		now := time.Now()
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status IN ?", order.ID, []string{constants.OrderStatusPending, constants.OrderStatusConfirmed}).
			Updates(map[string]interface{}{
				"status":       constants.OrderStatusCancelled,
				"cancelled_at": now,
				"updated_at":   now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		for _, item := range order.Items {
			if _, err := txProductRepo.RestoreStock(item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		logger.Infow("order_cancelled",
			"order_id", order.ID,
			"order_no", order.OrderNo,
			"reason", reason,
		)
		return nil
	})
}

func (s *OrderService) enqueueStatusEmail(orderID uint, status string) {
	if skipped, err := enqueueOrderStatusEmailTaskIfEligible(s.orderRepo, s.queueClient, orderID, status); err != nil && !skipped {
		logger.Warnw("order_enqueue_status_email_failed",
			"order_id", orderID,
			"status", status,
			"error", err,
		)
	}
}
