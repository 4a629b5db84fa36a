package constants

// 订单状态常量
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// 订单号常量
const (
	OrderNumberPrefix    = "ORD"
	OrderNumberSeqDigits = 4
)

// 支付方式常量（下单时记录，不做实际扣款）
const (
	PaymentMethodCard     = "card"
	PaymentMethodMpesa    = "mpesa"
	PaymentMethodPaypal   = "paypal"
	PaymentMethodDelivery = "cash_on_delivery"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 评价审核状态常量
const (
	ReviewStatusPending  = "pending"
	ReviewStatusApproved = "approved"
	ReviewStatusRejected = "rejected"
)

// 评分范围常量
const (
	RatingMin = 1
	RatingMax = 5
)

// 队列常量
const (
	QueueDefault           = "default"
	TaskOrderStatusEmail   = "order:status_email"
	TaskOrderTimeoutCancel = "order:timeout_cancel"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "nexus"
)
