package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 商品创建/更新请求
type ProductRequest struct {
	CategoryID  *uint    `json:"category_id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	SKU         string   `json:"sku"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock_quantity"`
	Images      []string `json:"images"`
	IsActive    *bool    `json:"is_active"`
	IsFeatured  *bool    `json:"is_featured"`
	SortOrder   *int     `json:"sort_order"`
}

func (r ProductRequest) toInput() service.ProductInput {
	input := service.ProductInput{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Slug:        r.Slug,
		SKU:         r.SKU,
		Description: r.Description,
		Stock:       r.Stock,
		Images:      r.Images,
		IsActive:    r.IsActive,
		IsFeatured:  r.IsFeatured,
		SortOrder:   r.SortOrder,
	}
	if r.Price != nil {
		price := models.NewMoneyFromDecimal(decimal.NewFromFloat(*r.Price))
		input.Price = &price
	}
	return input
}

var productWriteErrorRules = []struct {
	target error
	code   int
	key    string
}{
	{service.ErrNameRequired, response.CodeBadRequest, "error.name_required"},
	{service.ErrCategoryNotFound, response.CodeBadRequest, "error.category_not_found"},
	{service.ErrInvalidPrice, response.CodeBadRequest, "error.price_invalid"},
	{service.ErrInvalidStockQuantity, response.CodeBadRequest, "error.stock_invalid"},
	{service.ErrSlugExists, response.CodeConflict, "error.slug_exists"},
	{service.ErrSKUExists, response.CodeConflict, "error.sku_exists"},
	{service.ErrProductNotFound, response.CodeNotFound, "error.product_not_found"},
}

func respondProductWriteError(c *gin.Context, err error) {
	for _, rule := range productWriteErrorRules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, response.CodeInternal, "error.save_failed", err)
}

// GetAdminProducts 管理端商品列表
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	products, total, err := h.ProductService.ListProducts(repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   strings.TrimSpace(c.Query("category_id")),
		Search:       strings.TrimSpace(c.Query("search")),
		OrderBy:      strings.TrimSpace(c.Query("ordering")),
		WithCategory: true,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, products, pagination)
}

// GetAdminProduct 管理端商品详情
func (h *Handler) GetAdminProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	detail, err := h.ProductService.GetProductByID(id)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	response.Success(c, detail)
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	product, err := h.ProductService.CreateProduct(req.toInput())
	if err != nil {
		respondProductWriteError(c, err)
		return
	}

	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	product, err := h.ProductService.UpdateProduct(id, req.toInput())
	if err != nil {
		respondProductWriteError(c, err)
		return
	}

	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.ProductService.DeleteProduct(id); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		if errors.Is(err, service.ErrProductReferenced) {
			respondError(c, response.CodeConflict, "error.product_referenced", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
