package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminReviews 管理端评价列表
func (h *Handler) GetAdminReviews(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	filter := repository.ReviewListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
	}
	if raw := strings.TrimSpace(c.Query("product_id")); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 64); err == nil {
			filter.ProductID = uint(parsed)
		}
	}
	if raw := strings.TrimSpace(c.Query("rating")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filter.Rating = parsed
		}
	}

	reviews, total, err := h.ReviewService.ListReviewsAdmin(filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.review_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, reviews, pagination)
}

// ModerateReviewRequest 评价审核请求
type ModerateReviewRequest struct {
	Status string `json:"status" binding:"required"`
}

// ModerateReview 审核评价
func (h *Handler) ModerateReview(c *gin.Context) {
	reviewID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || reviewID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req ModerateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	review, err := h.ReviewService.ModerateReview(uint(reviewID), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrReviewNotFound):
			respondError(c, response.CodeNotFound, "error.review_not_found", nil)
		case errors.Is(err, service.ErrReviewStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.review_status_invalid", nil)
		default:
			respondError(c, response.CodeInternal, "error.save_failed", err)
		}
		return
	}

	response.Success(c, review)
}

// AdminDeleteReview 管理端删除评价
func (h *Handler) AdminDeleteReview(c *gin.Context) {
	reviewID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || reviewID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.ReviewService.DeleteReviewAdmin(uint(reviewID)); err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			respondError(c, response.CodeNotFound, "error.review_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}
