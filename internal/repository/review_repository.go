package repository

import (
	"errors"

	"github.com/devshad-01/alx-project-nexus/internal/models"

	"gorm.io/gorm"
)

// ReviewAggregate 商品评分汇总
type ReviewAggregate struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// ReviewRepository 评价数据访问接口
type ReviewRepository interface {
	List(filter ReviewListFilter) ([]models.Review, int64, error)
	GetByID(id uint) (*models.Review, error)
	GetByProductAndUser(productID, userID uint) (*models.Review, error)
	Create(review *models.Review) error
	Update(review *models.Review) error
	Delete(id uint) error
	IncrementHelpful(id uint, status string) (int64, error)
	AggregateByProduct(productID uint, status string) (ReviewAggregate, error)
	AggregateByProducts(productIDs []uint, status string) (map[uint]ReviewAggregate, error)
}

// GormReviewRepository GORM 实现
type GormReviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository 创建评价仓库
func NewReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

// List 评价列表
func (r *GormReviewRepository) List(filter ReviewListFilter) ([]models.Review, int64, error) {
	query := r.db.Model(&models.Review{})

	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Rating != 0 {
		query = query.Where("rating = ?", filter.Rating)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var reviews []models.Review
	if err := query.Preload("User").Order("id DESC").Find(&reviews).Error; err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// GetByID 根据 ID 获取评价
func (r *GormReviewRepository) GetByID(id uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.Preload("User").First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

// GetByProductAndUser 获取用户对商品的评价
func (r *GormReviewRepository) GetByProductAndUser(productID, userID uint) (*models.Review, error) {
	var review models.Review
	if err := r.db.Where("product_id = ? AND user_id = ?", productID, userID).First(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &review, nil
}

// Create 创建评价
func (r *GormReviewRepository) Create(review *models.Review) error {
	return r.db.Create(review).Error
}

// Update 更新评价
func (r *GormReviewRepository) Update(review *models.Review) error {
	return r.db.Save(review).Error
}

// Delete 删除评价
func (r *GormReviewRepository) Delete(id uint) error {
	if id == 0 {
		return nil
	}
	return r.db.Delete(&models.Review{}, id).Error
}

// IncrementHelpful 有用投票自增，返回受影响行数
func (r *GormReviewRepository) IncrementHelpful(id uint, status string) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid review id")
	}
	query := r.db.Model(&models.Review{}).Where("id = ?", id)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	result := query.Update("helpful_count", gorm.Expr("helpful_count + 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AggregateByProduct 统计商品评分
func (r *GormReviewRepository) AggregateByProduct(productID uint, status string) (ReviewAggregate, error) {
	var row struct {
		Count   int64
		Average float64
	}
	query := r.db.Model(&models.Review{}).
		Select("COUNT(*) as count, COALESCE(AVG(rating), 0) as average").
		Where("product_id = ?", productID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Take(&row).Error; err != nil {
		return ReviewAggregate{}, err
	}
	return ReviewAggregate{Count: row.Count, Average: row.Average}, nil
}

// AggregateByProducts 批量统计多个商品的评分
func (r *GormReviewRepository) AggregateByProducts(productIDs []uint, status string) (map[uint]ReviewAggregate, error) {
	result := make(map[uint]ReviewAggregate, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ProductID uint
		Count     int64
		Average   float64
	}
	query := r.db.Model(&models.Review{}).
		Select("product_id, COUNT(*) as count, COALESCE(AVG(rating), 0) as average").
		Where("product_id IN ?", productIDs).
		Group("product_id")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ProductID] = ReviewAggregate{Count: row.Count, Average: row.Average}
	}
	return result, nil
}
