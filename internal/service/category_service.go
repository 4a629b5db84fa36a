package service

import (
	"strings"
	"unicode"

	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
)

// CategoryService 分类服务
type CategoryService struct {
	categoryRepo repository.CategoryRepository
}

// NewCategoryService 创建分类服务
func NewCategoryService(categoryRepo repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

// ListCategories 分类列表
func (s *CategoryService) ListCategories(onlyActive bool) ([]models.Category, error) {
	return s.categoryRepo.List(repository.CategoryListFilter{OnlyActive: onlyActive})
}

// GetCategoryBySlug 按 slug 获取分类
func (s *CategoryService) GetCategoryBySlug(slug string, onlyActive bool) (*models.Category, error) {
	category, err := s.categoryRepo.GetBySlug(strings.TrimSpace(slug), onlyActive)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// GetCategoryByID 按 ID 获取分类
func (s *CategoryService) GetCategoryByID(id string) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	return category, nil
}

// CategoryInput 分类创建/更新输入
type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	IsActive    *bool
	SortOrder   *int
}

// CreateCategory 创建分类，slug 为空时由名称生成
func (s *CategoryService) CreateCategory(input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	slug := resolveSlug(input.Slug, name)
	count, err := s.categoryRepo.CountBySlug(slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		category.SortOrder = *input.SortOrder
	}
	if err := s.categoryRepo.Create(category); err != nil {
		return nil, err
	}
	return category, nil
}

// UpdateCategory 更新分类
func (s *CategoryService) UpdateCategory(id string, input CategoryInput) (*models.Category, error) {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	if name := strings.TrimSpace(input.Name); name != "" {
		category.Name = name
	}
	if slug := strings.TrimSpace(input.Slug); slug != "" {
		normalized := slugify(slug)
		if normalized != category.Slug {
			count, err := s.categoryRepo.CountBySlug(normalized, &id)
			if err != nil {
				return nil, err
			}
			if count > 0 {
				return nil, ErrSlugExists
			}
			category.Slug = normalized
		}
	}
	if input.Description != "" {
		category.Description = strings.TrimSpace(input.Description)
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if input.SortOrder != nil {
		category.SortOrder = *input.SortOrder
	}

	if err := s.categoryRepo.Update(category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory 删除分类，仍有商品引用时拒绝
func (s *CategoryService) DeleteCategory(id string) error {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	count, err := s.categoryRepo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}
	return s.categoryRepo.Delete(id)
}

func resolveSlug(slug, fallback string) string {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		trimmed = fallback
	}
	return slugify(trimmed)
}

// slugify 将名称转为 URL 友好的 slug
func slugify(value string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
