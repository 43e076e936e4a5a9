package repository

import (
	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

type UserRepository interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	FindByPhone(phone string) (*model.User, error)
	FindAllPaginated(page, limit int) ([]model.User, int64, error)
	Update(user *model.User) error
	Delete(id uint) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"email": user.Email,
	})

	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	logger.Debug("Finding user by ID in database", map[string]interface{}{
		"user_id": id,
	})

	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		logger.Error("Failed to find user by ID in database", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	logger.Debug("Finding user by email in database", map[string]interface{}{
		"email": email,
	})

	var user model.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		logger.Error("Failed to find user by email in database", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByPhone(phone string) (*model.User, error) {
	logger.Debug("Finding user by phone in database", map[string]interface{}{
		"phone": phone,
	})

	var user model.User
	if err := r.db.Where("phone = ?", phone).First(&user).Error; err != nil {
		logger.Error("Failed to find user by phone in database", err, map[string]interface{}{
			"phone": phone,
		})
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindAllPaginated(page, limit int) ([]model.User, int64, error) {
	logger.Debug("Finding users with pagination in database", map[string]interface{}{
		"page":  page,
		"limit": limit,
	})

	var total int64
	if err := r.db.Model(&model.User{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count users in database", err)
		return nil, 0, err
	}

	var users []model.User
	offset := (page - 1) * limit
	if err := r.db.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&users).Error; err != nil {
		logger.Error("Failed to find users in database", err, map[string]interface{}{
			"page":  page,
			"limit": limit,
		})
		return nil, 0, err
	}

	logger.Debug("Users found with pagination in database", map[string]interface{}{
		"count": len(users),
		"total": total,
	})
	return users, total, nil
}

func (r *userRepository) Update(user *model.User) error {
	logger.Debug("Updating user in database", map[string]interface{}{
		"user_id": user.ID,
	})

	if err := r.db.Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

func (r *userRepository) Delete(id uint) error {
	logger.Debug("Deleting user from database", map[string]interface{}{
		"user_id": id,
	})

	if err := r.db.Delete(&model.User{}, id).Error; err != nil {
		logger.Error("Failed to delete user from database", err, map[string]interface{}{
			"user_id": id,
		})
		return err
	}
	return nil
}
