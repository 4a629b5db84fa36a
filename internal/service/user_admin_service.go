package service

import (
	"context"
	"strings"

	"github.com/devshad-01/alx-project-nexus/internal/cache"
	"github.com/devshad-01/alx-project-nexus/internal/constants"
	"github.com/devshad-01/alx-project-nexus/internal/models"
	"github.com/devshad-01/alx-project-nexus/internal/repository"
)

// UserAdminService 管理端用户服务
type UserAdminService struct {
	userRepo repository.UserRepository
}

// NewUserAdminService 创建管理端用户服务
func NewUserAdminService(userRepo repository.UserRepository) *UserAdminService {
	return &UserAdminService{userRepo: userRepo}
}

// ListUsers 用户列表
func (s *UserAdminService) ListUsers(filter repository.UserListFilter) ([]models.User, int64, error) {
	return s.userRepo.List(filter)
}

// GetUser 获取用户
func (s *UserAdminService) GetUser(id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}
	return user, nil
}

// SetUsersStatus 批量启用/禁用用户，禁用同时吊销已签发的 token
func (s *UserAdminService) SetUsersStatus(userIDs []uint, status string) error {
	status = strings.ToLower(strings.TrimSpace(status))
	if status != constants.UserStatusActive && status != constants.UserStatusDisabled {
		return ErrUserStatusInvalid
	}
	if len(userIDs) == 0 {
		return nil
	}
	if err := s.userRepo.BatchUpdateStatus(userIDs, status); err != nil {
		return err
	}

	users, err := s.userRepo.ListByIDs(userIDs)
	if err != nil {
		return err
	}
	for i := range users {
		_ = cache.SetUserAuthState(context.Background(), cache.BuildUserAuthState(&users[i]))
	}
	return nil
}
