package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// ListCategories 获取分类列表
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.CategoryService.ListCategories(true)
	if err != nil {
		respondError(c, response.CodeInternal, "error.category_fetch_failed", err)
		return
	}
	response.Success(c, categories)
}

// GetCategory 按 slug 获取分类详情
func (h *Handler) GetCategory(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	category, err := h.CategoryService.GetCategoryBySlug(slug, true)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			respondError(c, response.CodeNotFound, "error.category_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.category_fetch_failed", err)
		return
	}

	response.Success(c, category)
}

// ListProducts 获取商品列表
func (h *Handler) ListProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ProductListFilter{
		Page:         page,
		PageSize:     pageSize,
		CategoryID:   strings.TrimSpace(c.Query("category_id")),
		CategorySlug: strings.TrimSpace(c.Query("category")),
		Search:       strings.TrimSpace(c.Query("search")),
		MinPrice:     strings.TrimSpace(c.Query("min_price")),
		MaxPrice:     strings.TrimSpace(c.Query("max_price")),
		OrderBy:      strings.TrimSpace(c.Query("ordering")),
		OnlyActive:   true,
		OnlyFeatured: c.Query("featured") == "true",
		OnlyInStock:  c.Query("in_stock") == "true",
		WithCategory: true,
	}

	products, total, err := h.ProductService.ListProductsWithRatings(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, products, pagination)
}

// GetProduct 按 slug 获取商品详情
func (h *Handler) GetProduct(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	detail, err := h.ProductService.GetProductBySlug(slug, true)
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

// ListProductReviews 获取商品评价列表
func (h *Handler) ListProductReviews(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	detail, err := h.ProductService.GetProductBySlug(slug, true)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	reviews, total, err := h.ReviewService.ListProductReviews(detail.ID, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.review_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, reviews, pagination)
}
