package service

import (
	"time"

	"github.com/devshad-01/alx-project-nexus/internal/logger"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"

	"github.com/shopspring/decimal"
)

// CartService 购物车服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

// NewCartService 创建购物车服务
func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// CartLine 购物车条目视图
type CartLine struct {
	models.CartItem
	LineTotal models.Money `json:"line_total"`
}

// CartSummary 购物车汇总
type CartSummary struct {
	Lines     []CartLine   `json:"items"`
	ItemCount int          `json:"item_count"`
	Subtotal  models.Money `json:"subtotal"`
}

// GetCart 获取购物车内容与金额汇总
func (s *CartService) GetCart(userID uint) (*CartSummary, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	items, err := s.cartRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	summary := &CartSummary{Lines: make([]CartLine, 0, len(items))}
	subtotal := decimal.Zero
	var stale []uint
	for _, item := range items {
		// 商品已下架或已删除的条目不再展示，顺手清理
		if item.Product == nil || !item.Product.IsActive {
			stale = append(stale, item.ProductID)
			continue
		}
		lineTotal := item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		summary.ItemCount += item.Quantity
		summary.Lines = append(summary.Lines, CartLine{
			CartItem:  item,
			LineTotal: models.NewMoneyFromDecimal(lineTotal),
		})
	}
	summary.Subtotal = models.NewMoneyFromDecimal(subtotal)
	if len(stale) > 0 {
		if err := s.cartRepo.DeleteByUserAndProducts(userID, stale); err != nil {
			logger.Warnw("cart_prune_stale_failed",
				"user_id", userID,
				"product_ids", stale,
				"error", err,
			)
		}
	}
	return summary, nil
}

// AddItem 加入购物车，商品已存在时累加数量。库存只在下单事务内校验
func (s *CartService) AddItem(userID, productID uint, quantity int) (*models.CartItem, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if err := s.resolveOrderableProduct(productID); err != nil {
		return nil, err
	}

	existing, err := s.cartRepo.GetByUserAndProduct(userID, productID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		targetQuantity := existing.Quantity + quantity
		if err := s.cartRepo.UpdateQuantity(existing.ID, targetQuantity); err != nil {
			return nil, err
		}
		existing.Quantity = targetQuantity
		existing.UpdatedAt = time.Now()
		return existing, nil
	}

	item := &models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	if err := s.cartRepo.Create(item); err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateItemQuantity 直接设置购物车条目数量，数量小于等于 0 视为移除
func (s *CartService) UpdateItemQuantity(userID, productID uint, quantity int) (*models.CartItem, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	if quantity <= 0 {
		if err := s.cartRepo.DeleteByUserAndProduct(userID, productID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := s.resolveOrderableProduct(productID); err != nil {
		return nil, err
	}

	existing, err := s.cartRepo.GetByUserAndProduct(userID, productID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if err := s.cartRepo.UpdateQuantity(existing.ID, quantity); err != nil {
		return nil, err
	}
	existing.Quantity = quantity
	existing.UpdatedAt = time.Now()
	return existing, nil
}

// RemoveItem 移除购物车条目
func (s *CartService) RemoveItem(userID, productID uint) error {
	if userID == 0 || productID == 0 {
		return ErrNotFound
	}
	return s.cartRepo.DeleteByUserAndProduct(userID, productID)
}

// ClearCart 清空购物车
func (s *CartService) ClearCart(userID uint) error {
	if userID == 0 {
		return ErrNotFound
	}
	return s.cartRepo.ClearByUser(userID)
}

func (s *CartService) resolveOrderableProduct(productID uint) error {
	if productID == 0 {
		return ErrProductNotFound
	}
	products, err := s.productRepo.ListByIDs([]uint{productID})
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return ErrProductNotFound
	}
	if !products[0].IsActive {
		return ErrProductNotAvailable
	}
	return nil
}
