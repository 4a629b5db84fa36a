package service

import (
	"time"

	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
)

// DashboardService 管理端概览统计服务
type DashboardService struct {
	dashboardRepo repository.DashboardRepository
}

// NewDashboardService 创建概览统计服务
func NewDashboardService(dashboardRepo repository.DashboardRepository) *DashboardService {
	return &DashboardService{dashboardRepo: dashboardRepo}
}

// DashboardOverview 概览统计结果
type DashboardOverview struct {
	OrderCounts   map[string]int64 `json:"order_counts"`
	TotalRevenue  models.Money     `json:"total_revenue"`
	Revenue30Days models.Money     `json:"revenue_30_days"`
	UserCount     int64            `json:"user_count"`
	ProductCount  int64            `json:"product_count"`
	LowStockItems []models.Product `json:"low_stock_items"`
	GeneratedAt   time.Time        `json:"generated_at"`
}

// Overview 汇总订单、营收、用户与库存概览
func (s *DashboardService) Overview(lowStockThreshold int) (*DashboardOverview, error) {
	counts, err := s.dashboardRepo.CountOrdersByStatus()
	if err != nil {
		return nil, err
	}
	totalRevenue, err := s.dashboardRepo.SumDeliveredRevenue(nil)
	if err != nil {
		return nil, err
	}
	since := time.Now().AddDate(0, 0, -30)
	recentRevenue, err := s.dashboardRepo.SumDeliveredRevenue(&since)
	if err != nil {
		return nil, err
	}
	userCount, err := s.dashboardRepo.CountUsers()
	if err != nil {
		return nil, err
	}
	productCount, err := s.dashboardRepo.CountProducts(false)
	if err != nil {
		return nil, err
	}
	if lowStockThreshold <= 0 {
		lowStockThreshold = 5
	}
	lowStock, err := s.dashboardRepo.ListLowStockProducts(lowStockThreshold, 10)
	if err != nil {
		return nil, err
	}

	return &DashboardOverview{
		OrderCounts:   counts,
		TotalRevenue:  models.NewMoneyFromDecimal(totalRevenue),
		Revenue30Days: models.NewMoneyFromDecimal(recentRevenue),
		UserCount:     userCount,
		ProductCount:  productCount,
		LowStockItems: lowStock,
		GeneratedAt:   time.Now(),
	}, nil
}
