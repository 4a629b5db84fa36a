package admin

import (
	"errors"
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// CategoryRequest 分类创建/更新请求
type CategoryRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   *int   `json:"sort_order"`
}

func (r CategoryRequest) toInput() service.CategoryInput {
	return service.CategoryInput{
		Name:        r.Name,
		Slug:        r.Slug,
		Description: r.Description,
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
	}
}

func respondCategoryWriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNameRequired):
		respondError(c, response.CodeBadRequest, "error.name_required", nil)
	case errors.Is(err, service.ErrSlugExists):
		respondError(c, response.CodeConflict, "error.slug_exists", nil)
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, response.CodeNotFound, "error.category_not_found", nil)
	default:
		respondError(c, response.CodeInternal, "error.save_failed", err)
	}
}

// GetAdminCategories 管理端分类列表
func (h *Handler) GetAdminCategories(c *gin.Context) {
	categories, err := h.CategoryService.ListCategories(false)
	if err != nil {
		respondError(c, response.CodeInternal, "error.category_fetch_failed", err)
		return
	}
	response.Success(c, categories)
}

// CreateCategory 创建分类
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	category, err := h.CategoryService.CreateCategory(req.toInput())
	if err != nil {
		respondCategoryWriteError(c, err)
		return
	}

	response.Success(c, category)
}

// UpdateCategory 更新分类
func (h *Handler) UpdateCategory(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	category, err := h.CategoryService.UpdateCategory(id, req.toInput())
	if err != nil {
		respondCategoryWriteError(c, err)
		return
	}

	response.Success(c, category)
}

// DeleteCategory 删除分类
func (h *Handler) DeleteCategory(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.CategoryService.DeleteCategory(id); err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, response.CodeNotFound, "error.category_not_found", nil)
		case errors.Is(err, service.ErrCategoryInUse):
			respondError(c, response.CodeConflict, "error.category_in_use", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
