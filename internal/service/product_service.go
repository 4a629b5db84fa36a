package service

import (
	"strconv"
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/constants"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品服务
type ProductService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	reviewRepo   repository.ReviewRepository
}

// NewProductService 创建商品服务
func NewProductService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository, reviewRepo repository.ReviewRepository) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		reviewRepo:   reviewRepo,
	}
}

// ListProducts 商品列表
func (s *ProductService) ListProducts(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.productRepo.List(filter)
}

// ProductDetail 商品详情（含评价汇总）
type ProductDetail struct {
	models.Product
	ReviewCount   int64   `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

// ListProductsWithRatings 商品列表，逐条附带已通过评价的汇总
func (s *ProductService) ListProductsWithRatings(filter repository.ProductListFilter) ([]ProductDetail, int64, error) {
	products, total, err := s.productRepo.List(filter)
	if err != nil {
		return nil, 0, err
	}

	details := make([]ProductDetail, len(products))
	for i := range products {
		details[i] = ProductDetail{Product: products[i]}
	}
	if s.reviewRepo == nil || len(products) == 0 {
		return details, total, nil
	}

	ids := make([]uint, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	aggregates, err := s.reviewRepo.AggregateByProducts(ids, constants.ReviewStatusApproved)
	if err != nil {
		return nil, 0, err
	}
	for i := range details {
		if agg, ok := aggregates[details[i].ID]; ok {
			details[i].ReviewCount = agg.Count
			details[i].AverageRating = agg.Average
		}
	}
	return details, total, nil
}

// GetProductBySlug 按 slug 获取商品详情
func (s *ProductService) GetProductBySlug(slug string, onlyActive bool) (*ProductDetail, error) {
	product, err := s.productRepo.GetBySlug(strings.TrimSpace(slug), onlyActive)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return s.buildDetail(product)
}

// GetProductByID 按 ID 获取商品
func (s *ProductService) GetProductByID(id string) (*ProductDetail, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return s.buildDetail(product)
}

func (s *ProductService) buildDetail(product *models.Product) (*ProductDetail, error) {
	detail := &ProductDetail{Product: *product}
	if s.reviewRepo != nil {
		aggregate, err := s.reviewRepo.AggregateByProduct(product.ID, constants.ReviewStatusApproved)
		if err != nil {
			return nil, err
		}
		detail.ReviewCount = aggregate.Count
		detail.AverageRating = aggregate.Average
	}
	return detail, nil
}

// ProductInput 商品创建/更新输入
type ProductInput struct {
	CategoryID  *uint
	Name        string
	Slug        string
	SKU         string
	Description string
	Price       *models.Money
	Stock       *int
	Images      []string
	IsActive    *bool
	IsFeatured  *bool
	SortOrder   *int
}

// CreateProduct 创建商品
func (s *ProductService) CreateProduct(input ProductInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if input.CategoryID == nil || *input.CategoryID == 0 {
		return nil, ErrCategoryNotFound
	}
	if input.Price == nil || input.Price.Decimal.LessThan(decimal.Zero) {
		return nil, ErrInvalidPrice
	}
	stock := 0
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, ErrInvalidStockQuantity
		}
		stock = *input.Stock
	}

	if err := s.ensureCategoryExists(*input.CategoryID); err != nil {
		return nil, err
	}

	slug := resolveSlug(input.Slug, name)
	count, err := s.productRepo.CountBySlug(slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	if sku == "" {
		// 未指定时从 slug 派生，保证 sku 唯一索引不落空值
		sku = strings.ToUpper(slug)
	}
	if count, err := s.productRepo.CountBySKU(sku, nil); err != nil {
		return nil, err
	} else if count > 0 {
		return nil, ErrSKUExists
	}

	product := &models.Product{
		CategoryID:    *input.CategoryID,
		Name:          name,
		Slug:          slug,
		SKU:           sku,
		Description:   strings.TrimSpace(input.Description),
		Price:         *input.Price,
		StockQuantity: stock,
		Images:        models.StringArray(input.Images),
		IsActive:      true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.SortOrder != nil {
		product.SortOrder = *input.SortOrder
	}
	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct 更新商品
func (s *ProductService) UpdateProduct(id string, input ProductInput) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
		if err := s.ensureCategoryExists(*input.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = *input.CategoryID
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		product.Name = name
	}
	if slug := strings.TrimSpace(input.Slug); slug != "" {
		normalized := slugify(slug)
		if normalized != product.Slug {
			count, err := s.productRepo.CountBySlug(normalized, &id)
			if err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrSlugExists
			}
			product.Slug = normalized
		}
	}
	if sku := strings.ToUpper(strings.TrimSpace(input.SKU)); sku != "" && sku != product.SKU {
		count, err := s.productRepo.CountBySKU(sku, &id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrSKUExists
		}
		product.SKU = sku
	}
	if input.Description != "" {
		product.Description = strings.TrimSpace(input.Description)
	}
	if input.Price != nil {
		if input.Price.Decimal.LessThan(decimal.Zero) {
			return nil, ErrInvalidPrice
		}
		product.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, ErrInvalidStockQuantity
		}
		product.StockQuantity = *input.Stock
	}
	if input.Images != nil {
		product.Images = models.StringArray(input.Images)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		product.IsFeatured = *input.IsFeatured
	}
	if input.SortOrder != nil {
		product.SortOrder = *input.SortOrder
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct 删除商品（软删除），已被订单引用的商品不可删除
func (s *ProductService) DeleteProduct(id string) error {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	referenced, err := s.productRepo.CountOrderReferences(product.ID)
	if err != nil {
		return err
	}
	if referenced > 0 {
		return ErrProductReferenced
	}
	return s.productRepo.Delete(id)
}

func (s *ProductService) ensureCategoryExists(categoryID uint) error {
	if s.categoryRepo == nil {
		return nil
	}
	category, err := s.categoryRepo.GetByID(formatUint(categoryID))
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	return nil
}

func formatUint(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
