package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrCategoryInUse    = errors.New("category is referenced by products")
)

type CategoryService interface {
	CreateCategory(name, description string) (*model.Category, error)
	GetCategories() ([]model.Category, error)
	GetCategoryByID(id uint) (*model.Category, error)
	UpdateCategory(id uint, name, description string) (*model.Category, error)
	DeleteCategory(id uint) error
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
}

func NewCategoryService(categoryRepo repository.CategoryRepository) CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) CreateCategory(name, description string) (*model.Category, error) {
	logger.Info("Creating category", map[string]interface{}{
		"name": name,
	})

	existing, err := s.categoryRepo.FindByName(name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCategoryExists
	}

	category := &model.Category{
		Name:        name,
		Description: description,
	}
	if err := s.categoryRepo.Create(category); err != nil {
		if apperrors.IsDuplicateKey(err) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) GetCategories() ([]model.Category, error) {
	return s.categoryRepo.FindAll()
}

func (s *categoryService) GetCategoryByID(id uint) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

func (s *categoryService) UpdateCategory(id uint, name, description string) (*model.Category, error) {
	logger.Info("Updating category", map[string]interface{}{
		"category_id": id,
	})

	category, err := s.categoryRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if name != "" && name != category.Name {
		existing, err := s.categoryRepo.FindByName(name)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, ErrCategoryExists
		}
		category.Name = name
	}
	if description != "" {
		category.Description = description
	}

	if err := s.categoryRepo.Update(category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *categoryService) DeleteCategory(id uint) error {
	logger.Info("Deleting category", map[string]interface{}{
		"category_id": id,
	})

	if _, err := s.categoryRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCategoryNotFound
		}
		return err
	}

	count, err := s.categoryRepo.CountProducts(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	if err := s.categoryRepo.Delete(id); err != nil {
		if apperrors.IsForeignKeyViolation(err) {
			return ErrCategoryInUse
		}
		return err
	}
	return nil
}
