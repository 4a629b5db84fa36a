package service

import (
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/constants"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
)

// ReviewService 商品评价服务
type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

// NewReviewService 创建评价服务
func NewReviewService(reviewRepo repository.ReviewRepository, orderRepo repository.OrderRepository, productRepo repository.ProductRepository) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

// ListProductReviews 商品公开评价列表，仅展示已通过的评价
func (s *ReviewService) ListProductReviews(productID uint, page, pageSize int) ([]models.Review, int64, error) {
	if productID == 0 {
		return nil, 0, ErrProductNotFound
	}
	return s.reviewRepo.List(repository.ReviewListFilter{
		Page:      page,
		PageSize:  pageSize,
		ProductID: productID,
		Status:    constants.ReviewStatusApproved,
	})
}

// ListReviewsAdmin 管理端评价列表
func (s *ReviewService) ListReviewsAdmin(filter repository.ReviewListFilter) ([]models.Review, int64, error) {
	return s.reviewRepo.List(filter)
}

// ReviewInput 评价输入
type ReviewInput struct {
	Rating  int
	Title   string
	Comment string
}

// CreateReview 创建评价，同一商品一人一条。
// 不要求购买，收货记录只决定 is_verified 标记。
func (s *ReviewService) CreateReview(userID, productID uint, input ReviewInput) (*models.Review, error) {
	if userID == 0 {
		return nil, ErrNotFound
	}
	if input.Rating < constants.RatingMin || input.Rating > constants.RatingMax {
		return nil, ErrRatingInvalid
	}

	products, err := s.productRepo.ListByIDs([]uint{productID})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}

	delivered, err := s.orderRepo.CountDeliveredByUserAndProduct(userID, productID)
	if err != nil {
		return nil, err
	}

	existing, err := s.reviewRepo.GetByProductAndUser(productID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrReviewExists
	}

	review := &models.Review{
		ProductID:  productID,
		UserID:     userID,
		Rating:     input.Rating,
		Title:      strings.TrimSpace(input.Title),
		Comment:    strings.TrimSpace(input.Comment),
		Status:     constants.ReviewStatusApproved,
		IsVerified: delivered > 0,
	}
	if err := s.reviewRepo.Create(review); err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrReviewExists
		}
		return nil, err
	}
	return review, nil
}

// UpdateReview 用户更新自己的评价
func (s *ReviewService) UpdateReview(userID, reviewID uint, input ReviewInput) (*models.Review, error) {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	if review.UserID != userID {
		return nil, ErrReviewNotOwned
	}
	if input.Rating != 0 {
		if input.Rating < constants.RatingMin || input.Rating > constants.RatingMax {
			return nil, ErrRatingInvalid
		}
		review.Rating = input.Rating
	}
	if input.Title != "" {
		review.Title = strings.TrimSpace(input.Title)
	}
	if input.Comment != "" {
		review.Comment = strings.TrimSpace(input.Comment)
	}
	if err := s.reviewRepo.Update(review); err != nil {
		return nil, err
	}
	return review, nil
}

// DeleteReview 用户删除自己的评价
func (s *ReviewService) DeleteReview(userID, reviewID uint) error {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return err
	}
	if review == nil {
		return ErrReviewNotFound
	}
	if review.UserID != userID {
		return ErrReviewNotOwned
	}
	return s.reviewRepo.Delete(reviewID)
}

// MarkReviewHelpful 有用投票，仅对已通过的评价生效
func (s *ReviewService) MarkReviewHelpful(reviewID uint) (*models.Review, error) {
	if reviewID == 0 {
		return nil, ErrReviewNotFound
	}
	affected, err := s.reviewRepo.IncrementHelpful(reviewID, constants.ReviewStatusApproved)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrReviewNotFound
	}
	return s.reviewRepo.GetByID(reviewID)
}

// ModerateReview 管理端审核评价状态
func (s *ReviewService) ModerateReview(reviewID uint, status string) (*models.Review, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case constants.ReviewStatusPending, constants.ReviewStatusApproved, constants.ReviewStatusRejected:
	default:
		return nil, ErrReviewStatusInvalid
	}
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, ErrReviewNotFound
	}
	review.Status = status
	if err := s.reviewRepo.Update(review); err != nil {
		return nil, err
	}
	return review, nil
}

// DeleteReviewAdmin 管理端删除评价
func (s *ReviewService) DeleteReviewAdmin(reviewID uint) error {
	review, err := s.reviewRepo.GetByID(reviewID)
	if err != nil {
		return err
	}
	if review == nil {
		return ErrReviewNotFound
	}
	return s.reviewRepo.Delete(reviewID)
}

// ProductRating 商品评分汇总
func (s *ReviewService) ProductRating(productID uint) (repository.ReviewAggregate, error) {
	return s.reviewRepo.AggregateByProduct(productID, constants.ReviewStatusApproved)
}
