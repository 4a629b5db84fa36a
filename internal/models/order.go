package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Address 订单地址快照（JSON 存储）
type Address struct {
	FullName   string `json:"full_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Value 实现 driver.Valuer 接口
func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan 实现 sql.Scanner 接口
func (a *Address) Scan(value interface{}) error {
	if value == nil {
		*a = Address{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Order 订单表
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`                                       // 主键
	OrderNo         string         `gorm:"uniqueIndex;not null" json:"order_no"`                       // 订单编号（ORD + 年月 + 序号）
	UserID          uint           `gorm:"index;not null" json:"user_id"`                              // 用户ID
	Status          string         `gorm:"index;not null" json:"status"`                               // 订单状态
	TotalAmount     Money          `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"` // 订单总额
	ShippingAddress Address        `gorm:"type:json" json:"shipping_address"`                          // 收货地址快照
	BillingAddress  Address        `gorm:"type:json" json:"billing_address"`                           // 账单地址快照
	PaymentMethod   string         `gorm:"type:varchar(40)" json:"payment_method"`                     // 支付方式（仅记录）
	Notes           string         `gorm:"type:text" json:"notes,omitempty"`                           // 订单备注
	ClientIP        string         `gorm:"type:varchar(64)" json:"client_ip,omitempty"`                // 下单客户端IP
	ShippedAt       *time.Time     `gorm:"index" json:"shipped_at"`                                    // 发货时间
	DeliveredAt     *time.Time     `gorm:"index" json:"delivered_at"`                                  // 送达时间
	CancelledAt     *time.Time     `gorm:"index" json:"cancelled_at"`                                  // 取消时间
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`                                    // 创建时间
	UpdatedAt       time.Time      `gorm:"index" json:"updated_at"`                                    // 更新时间
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`                                             // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// OrderCounter 订单号月度计数器
type OrderCounter struct {
	ID        uint      `gorm:"primarykey" json:"id"`               // 主键
	Period    string    `gorm:"uniqueIndex;not null" json:"period"` // 年月（YYYYMM）
	LastSeq   int       `gorm:"not null;default:0" json:"last_seq"` // 当月已用序号
	UpdatedAt time.Time `json:"updated_at"`                         // 更新时间
}

// TableName 指定表名
func (OrderCounter) TableName() string {
	return "order_counters"
}
