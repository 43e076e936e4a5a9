package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

// UserService exposes the admin-facing user management surface.
type UserService interface {
	ListUsers(page, limit int) ([]model.User, int64, error)
	GetUserByID(id uint) (*model.User, error)
	UpdateUserRole(id uint, role model.UserRole) (*model.User, error)
	DeleteUser(id uint) error
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) ListUsers(page, limit int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.userRepo.FindAllPaginated(page, limit)
}

func (s *userService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateUserRole(id uint, role model.UserRole) (*model.User, error) {
	logger.Info("Updating user role", map[string]interface{}{
		"user_id": id,
		"role":    role,
	})

	if role != model.RoleUser && role != model.RoleAdmin {
		return nil, errors.New("invalid role")
	}

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) DeleteUser(id uint) error {
	logger.Info("Deleting user", map[string]interface{}{
		"user_id": id,
	})

	if _, err := s.userRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.userRepo.Delete(id)
}
