package service

import "errors"

// 服务层业务错误，错误文案使用消息键，由 HTTP 层映射为响应
var (
	// 通用
	ErrNotFound     = errors.New("error.not_found")
	ErrNameRequired = errors.New("error.name_required")

	// 认证与账户
	ErrInvalidCredentials = errors.New("error.invalid_credentials")
	ErrInvalidEmail       = errors.New("error.invalid_email")
	ErrInvalidPassword    = errors.New("error.invalid_password")
	ErrWeakPassword       = errors.New("error.weak_password")
	ErrEmailExists        = errors.New("error.email_exists")
	ErrUserDisabled       = errors.New("error.user_disabled")
	ErrProfileEmpty       = errors.New("error.profile_empty")
	ErrUserStatusInvalid  = errors.New("error.user_status_invalid")

	// 商品与分类
	ErrProductNotFound      = errors.New("error.product_not_found")
	ErrProductNotAvailable  = errors.New("error.product_not_available")
	ErrInsufficientStock    = errors.New("error.insufficient_stock")
	ErrSlugExists           = errors.New("error.slug_exists")
	ErrSKUExists            = errors.New("error.sku_exists")
	ErrProductReferenced    = errors.New("error.product_referenced")
	ErrCategoryNotFound     = errors.New("error.category_not_found")
	ErrCategoryInUse        = errors.New("error.category_in_use")
	ErrInvalidPrice         = errors.New("error.invalid_price")
	ErrInvalidStockQuantity = errors.New("error.invalid_stock_quantity")

	// 购物车
	ErrCartEmpty       = errors.New("error.cart_empty")
	ErrInvalidQuantity = errors.New("error.invalid_quantity")

	// 订单
	ErrInvalidOrderItem      = errors.New("error.invalid_order_item")
	ErrAddressInvalid        = errors.New("error.address_invalid")
	ErrOrderNotFound         = errors.New("error.order_not_found")
	ErrOrderStatusInvalid    = errors.New("error.order_status_invalid")
	ErrOrderCancelNotAllowed = errors.New("error.order_cancel_not_allowed")
	ErrOrderCreateFailed     = errors.New("error.order_create_failed")
	ErrPaymentMethodInvalid  = errors.New("error.payment_method_invalid")
	ErrOrderUpdateFailed     = errors.New("error.order_update_failed")
	ErrQueueUnavailable      = errors.New("error.queue_unavailable")

	// 评价
	ErrReviewExists        = errors.New("error.review_exists")
	ErrReviewNotFound      = errors.New("error.review_not_found")
	ErrRatingInvalid       = errors.New("error.rating_invalid")
	ErrReviewStatusInvalid = errors.New("error.review_status_invalid")
	ErrReviewNotOwned      = errors.New("error.review_not_owned")

	// 邮件
	ErrEmailServiceDisabled      = errors.New("error.email_service_disabled")
	ErrEmailServiceNotConfigured = errors.New("error.email_service_not_configured")
	ErrEmailRecipientRejected    = errors.New("error.email_recipient_rejected")
)
