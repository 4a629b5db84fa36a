package public

import (
	"errors"
	"strconv"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// ReviewRequest 评价请求
type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

// CreateProductReview 发表商品评价
func (h *Handler) CreateProductReview(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	review, err := h.ReviewService.CreateReview(uid, uint(productID), service.ReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		respondWithMappedError(c, err, reviewWriteErrorRules, response.CodeInternal, "error.review_save_failed")
		return
	}

	response.Success(c, review)
}

// UpdateReview 修改自己的评价
func (h *Handler) UpdateReview(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	reviewID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || reviewID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	review, err := h.ReviewService.UpdateReview(uid, uint(reviewID), service.ReviewInput{
		Rating:  req.Rating,
		Title:   req.Title,
		Comment: req.Comment,
	})
	if err != nil {
		respondWithMappedError(c, err, reviewWriteErrorRules, response.CodeInternal, "error.review_save_failed")
		return
	}

	response.Success(c, review)
}

// DeleteReview 删除自己的评价
func (h *Handler) DeleteReview(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	reviewID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || reviewID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.ReviewService.DeleteReview(uid, uint(reviewID)); err != nil {
		switch {
		case errors.Is(err, service.ErrReviewNotFound):
			respondError(c, response.CodeNotFound, "error.review_not_found", nil)
		case errors.Is(err, service.ErrReviewNotOwned):
			respondError(c, response.CodeForbidden, "error.review_not_owned", nil)
		default:
			respondError(c, response.CodeInternal, "error.review_save_failed", err)
		}
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// MarkReviewHelpful 评价有用投票
func (h *Handler) MarkReviewHelpful(c *gin.Context) {
	if _, ok := getUserID(c); !ok {
		return
	}

	reviewID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || reviewID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	review, err := h.ReviewService.MarkReviewHelpful(uint(reviewID))
	if err != nil {
		if errors.Is(err, service.ErrReviewNotFound) {
			respondError(c, response.CodeNotFound, "error.review_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.review_save_failed", err)
		return
	}

	response.Success(c, review)
}
