package repository

import (
	"time"

	"github.com/devshad-01/alx-project-nexus/internal/constants"
	"github.com/devshad-01/alx-project-nexus/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardRepository 管理端统计数据访问接口
type DashboardRepository interface {
	CountOrdersByStatus() (map[string]int64, error)
	SumDeliveredRevenue(since *time.Time) (decimal.Decimal, error)
	CountUsers() (int64, error)
	CountProducts(onlyActive bool) (int64, error)
	ListLowStockProducts(threshold, limit int) ([]models.Product, error)
}

// GormDashboardRepository 统计数据访问实现
type GormDashboardRepository struct {
	db *gorm.DB
}

// NewDashboardRepository 创建统计数据访问实例
func NewDashboardRepository(db *gorm.DB) *GormDashboardRepository {
	return &GormDashboardRepository{db: db}
}

type statusCountRow struct {
	Status string
	Count  int64
}

// CountOrdersByStatus 按状态统计订单数量
func (r *GormDashboardRepository) CountOrdersByStatus() (map[string]int64, error) {
	var rows []statusCountRow
	err := r.db.Model(&models.Order{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// SumDeliveredRevenue 统计已送达订单的营收总额，since 非空时仅统计该时间之后的订单
func (r *GormDashboardRepository) SumDeliveredRevenue(since *time.Time) (decimal.Decimal, error) {
	query := r.db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Where("status = ?", constants.OrderStatusDelivered)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	var total decimal.Decimal
	if err := query.Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// CountUsers 统计注册用户数
func (r *GormDashboardRepository) CountUsers() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// CountProducts 统计商品数
func (r *GormDashboardRepository) CountProducts(onlyActive bool) (int64, error) {
	query := r.db.Model(&models.Product{})
	if onlyActive {
		query = query.Where("is_active = ?", true)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

// ListLowStockProducts 列出库存低于阈值的在售商品
func (r *GormDashboardRepository) ListLowStockProducts(threshold, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 10
	}
	var products []models.Product
	err := r.db.Model(&models.Product{}).
		Where("is_active = ? AND stock_quantity <= ?", true, threshold).
		Order("stock_quantity ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}
