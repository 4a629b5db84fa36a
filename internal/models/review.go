package models

import (
	"time"

	"gorm.io/gorm"
)

// Review 商品评价表
type Review struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                           // 主键
	ProductID    uint           `gorm:"not null;uniqueIndex:idx_review_product_user" json:"product_id"` // 商品ID
	UserID       uint           `gorm:"not null;uniqueIndex:idx_review_product_user" json:"user_id"`    // 用户ID
	Rating       int            `gorm:"not null" json:"rating"`                                         // 评分（1-5）
	Title        string         `gorm:"default:''" json:"title"`                                        // 评价标题
	Comment      string         `gorm:"type:text" json:"comment"`                                       // 评价内容
	Status       string         `gorm:"index;not null;default:'approved'" json:"status"`                // 审核状态
	IsVerified   bool           `gorm:"default:false" json:"is_verified"`                               // 是否已验证购买
	HelpfulCount int            `gorm:"not null;default:0" json:"helpful_count"`                        // 有用投票数
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                        // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                                     // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                                 // 软删除时间

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`       // 关联用户
	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (Review) TableName() string {
	return "reviews"
}
