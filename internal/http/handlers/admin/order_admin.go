package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"
	"github.com/devshad-01/alx-project-nexus/internal/logger"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
	"github.com/devshad-01/alx-project-nexus/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminOrderListItem 管理端订单列表返回
type AdminOrderListItem struct {
	models.Order
	UserEmail string `json:"user_email,omitempty"`
}

// AdminListOrders 管理端订单列表
func (h *Handler) AdminListOrders(c *gin.Context) {
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

	var userID uint
	if raw := strings.TrimSpace(c.Query("user_id")); raw != "" {
		if parsed, parseErr := strconv.ParseUint(raw, 10, 64); parseErr == nil {
			userID = uint(parsed)
		}
	}

	orders, total, err := h.OrderService.ListOrdersAdmin(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		UserID:      userID,
		Status:      strings.TrimSpace(c.Query("status")),
		OrderNo:     strings.TrimSpace(c.Query("order_no")),
		CreatedFrom: createdFrom,
		CreatedTo:   createdTo,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	items := make([]AdminOrderListItem, 0, len(orders))
	emails := h.lookupUserEmails(orders)
	for _, order := range orders {
		items = append(items, AdminOrderListItem{
			Order:     order,
			UserEmail: emails[order.UserID],
		})
	}

	pagination := response.BuildPagination(page, pageSize, total)
	response.SuccessWithPage(c, items, pagination)
}

func (h *Handler) lookupUserEmails(orders []models.Order) map[uint]string {
	idSet := make(map[uint]struct{}, len(orders))
	ids := make([]uint, 0, len(orders))
	for _, order := range orders {
		if order.UserID == 0 {
			continue
		}
		if _, seen := idSet[order.UserID]; seen {
			continue
		}
		idSet[order.UserID] = struct{}{}
		ids = append(ids, order.UserID)
	}
	emails := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return emails
	}
	users, err := h.UserRepo.ListByIDs(ids)
	if err != nil {
		logger.Warnw("admin_order_user_lookup_failed", "error", err)
		return emails
	}
	for _, user := range users {
		emails[user.ID] = user.Email
	}
	return emails
}

// AdminGetOrder 管理端订单详情
func (h *Handler) AdminGetOrder(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	order, err := h.OrderService.GetOrderAdmin(uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	item := AdminOrderListItem{Order: *order}
	if emails := h.lookupUserEmails([]models.Order{*order}); len(emails) > 0 {
		item.UserEmail = emails[order.UserID]
	}

	response.Success(c, item)
}

// AdminGetOrderByNo 管理端按订单号查询订单
func (h *Handler) AdminGetOrderByNo(c *gin.Context) {
	orderNo := strings.TrimSpace(c.Param("order_no"))
	if orderNo == "" {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	order, err := h.OrderService.GetOrderAdminByNo(orderNo)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	item := AdminOrderListItem{Order: *order}
	if emails := h.lookupUserEmails([]models.Order{*order}); len(emails) > 0 {
		item.UserEmail = emails[order.UserID]
	}

	response.Success(c, item)
}

// AdminUpdateOrderStatusRequest 管理端订单状态更新请求
type AdminUpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// AdminUpdateOrderStatus 管理端更新订单状态
func (h *Handler) AdminUpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req AdminUpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.OrderService.UpdateOrderStatus(uint(orderID), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
		case errors.Is(err, service.ErrOrderStatusInvalid):
			respondError(c, response.CodeBadRequest, "error.order_status_invalid", nil)
		case errors.Is(err, service.ErrOrderCancelNotAllowed):
			respondError(c, response.CodeBadRequest, "error.order_cancel_not_allowed", nil)
		default:
			respondError(c, response.CodeInternal, "error.order_update_failed", err)
		}
		return
	}

	response.Success(c, order)
}
