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

// GetAdminUsers 管理端用户列表
func (h *Handler) GetAdminUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	createdFrom, err := parseTimeNullable(c.Query("created_from"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	createdTo, err := parseTimeNullable(c.Query("created_to"))
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	users, total, err := h.UserAdminService.ListUsers(repository.UserListFilter{
		Page:        page,
		PageSize:    pageSize,
		Keyword:     strings.TrimSpace(c.Query("search")),
		Status:      strings.TrimSpace(c.Query("status")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.user_fetch_failed", err)
		return
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, users, pagination)
}

// GetAdminUser 管理端用户详情
func (h *Handler) GetAdminUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	user, err := h.UserAdminService.GetUser(uint(userID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.user_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.user_fetch_failed", err)
		return
	}

	response.Success(c, user)
}

// BatchUpdateUserStatusRequest 批量更新用户状态请求
type BatchUpdateUserStatusRequest struct {
	UserIDs []uint `json:"user_ids" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// BatchUpdateUserStatus 批量更新用户状态
func (h *Handler) BatchUpdateUserStatus(c *gin.Context) {
	var req BatchUpdateUserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if len(req.UserIDs) == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.UserAdminService.SetUsersStatus(req.UserIDs, req.Status); err != nil {
		if errors.Is(err, service.ErrUserStatusInvalid) {
			respondError(c, response.CodeBadRequest, "error.user_status_invalid", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", err)
		return
	}

	response.Success(c, gin.H{"updated": len(req.UserIDs)})
}
