package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidStock    = errors.New("stock must not be negative")
)

type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
	CategoryID  *uint
	ImageURLs   []string
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	Stock       *int
	CategoryID  *uint
}

type ProductService interface {
	CreateProduct(input CreateProductInput) (*model.Product, error)
	BulkCreateProducts(products []model.Product) error
	GetProducts(filter repository.ProductFilter) ([]model.Product, int64, error)
	GetProductByID(id uint) (*model.Product, error)
	UpdateProduct(id uint, input UpdateProductInput) (*model.Product, error)
	DeleteProduct(id uint) error
	SetProductImages(id uint, urls []string) (*model.Product, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *productService) CreateProduct(input CreateProductInput) (*model.Product, error) {
	logger.Info("Creating product", map[string]interface{}{
		"name":  input.Name,
		"price": input.Price,
		"stock": input.Stock,
	})

	if input.Price < 0 {
		return nil, ErrInvalidPrice
	}
	if input.Stock < 0 {
		return nil, ErrInvalidStock
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(*input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
	}

	product := &model.Product{
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		CategoryID:  input.CategoryID,
	}
	for i, url := range input.ImageURLs {
		product.Images = append(product.Images, model.ProductImage{
			URL:      url,
			Position: i,
		})
	}

	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	return s.productRepo.FindByID(product.ID)
}

func (s *productService) BulkCreateProducts(products []model.Product) error {
	logger.Info("Bulk creating products", map[string]interface{}{
		"count": len(products),
	})
	return s.productRepo.BulkCreate(products, 100)
}

func (s *productService) GetProducts(filter repository.ProductFilter) ([]model.Product, int64, error) {
	return s.productRepo.FindAll(filter)
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) UpdateProduct(id uint, input UpdateProductInput) (*model.Product, error) {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": id,
	})

	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, ErrInvalidPrice
		}
		product.Price = *input.Price
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, ErrInvalidStock
		}
		product.Stock = *input.Stock
	}
	if input.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(*input.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCategoryNotFound
			}
			return nil, err
		}
		product.CategoryID = input.CategoryID
	}

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	return s.productRepo.FindByID(product.ID)
}

func (s *productService) DeleteProduct(id uint) error {
	logger.Info("Deleting product", map[string]interface{}{
		"product_id": id,
	})

	if _, err := s.productRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return s.productRepo.Delete(id)
}

func (s *productService) SetProductImages(id uint, urls []string) (*model.Product, error) {
	logger.Info("Setting product images", map[string]interface{}{
		"product_id": id,
		"count":      len(urls),
	})

	if _, err := s.productRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	images := make([]model.ProductImage, 0, len(urls))
	for _, url := range urls {
		images = append(images, model.ProductImage{URL: url})
	}
	if err := s.productRepo.ReplaceImages(id, images); err != nil {
		return nil, err
	}
	return s.productRepo.FindByID(id)
}
