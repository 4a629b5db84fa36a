package public

import (
	"strconv"

	"github.com/devshad-01/alx-project-nexus/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CartItemRequest 购物车项请求
type CartItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CartQuantityRequest 购物车数量调整请求，数量小于等于 0 表示移除该条目
type CartQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	summary, err := h.CartService.GetCart(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}

	response.Success(c, summary)
}

// AddCartItem 添加购物车项
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	item, err := h.CartService.AddItem(uid, req.ProductID, req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, cartMutationErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}

	response.Success(c, item)
}

// UpdateCartItem 调整购物车项数量
func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	var req CartQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	item, err := h.CartService.UpdateItemQuantity(uid, uint(productID), req.Quantity)
	if err != nil {
		respondWithMappedError(c, err, cartMutationErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	if item == nil {
		response.Success(c, gin.H{"deleted": true})
		return
	}

	response.Success(c, item)
}

// DeleteCartItem 删除购物车项
func (h *Handler) DeleteCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	productID, err := strconv.ParseUint(c.Param("product_id"), 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	if err := h.CartService.RemoveItem(uid, uint(productID)); err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}

	response.Success(c, gin.H{"deleted": true})
}

// ClearCart 清空购物车
func (h *Handler) ClearCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}

	if err := h.CartService.ClearCart(uid); err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}

	response.Success(c, gin.H{"cleared": true})
}
