package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

type ProductSort string

const (
	ProductSortPrice     ProductSort = "price"
	ProductSortCreatedAt ProductSort = "created_at"
	ProductSortName      ProductSort = "name"
)

type ProductFilter struct {
	CategoryID    *uint
	Search        string
	SortBy        ProductSort
	SortAscending bool
	Limit         int
	Offset        int
}

type ProductRepository interface {
	Create(product *model.Product) error
	BulkCreate(products []model.Product, batchSize int) error
	FindAll(filter ProductFilter) ([]model.Product, int64, error)
	FindByID(id uint) (*model.Product, error)
	FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Product, error)
	Update(product *model.Product) error
	Delete(id uint) error
	ReplaceImages(productID uint, images []model.ProductImage) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":        product.Name,
		"category_id": product.CategoryID,
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (r *productRepository) BulkCreate(products []model.Product, batchSize int) error {
	logger.Debug("Bulk creating products in database", map[string]interface{}{
		"count":      len(products),
		"batch_size": batchSize,
	})

	if err := r.db.CreateInBatches(products, batchSize).Error; err != nil {
		logger.Error("Failed to bulk create products in database", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}
	return nil
}

func (r *productRepository) baseQuery() *gorm.DB {
	return r.db.Model(&model.Product{}).
		Preload("Category").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		})
}

func (r *productRepository) applyFilter(query *gorm.DB, filter ProductFilter) *gorm.DB {
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	return query
}

func (r *productRepository) FindAll(filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products in database", map[string]interface{}{
		"category_id": filter.CategoryID,
		"search":      filter.Search,
		"limit":       filter.Limit,
		"offset":      filter.Offset,
	})

	var total int64
	countQuery := r.applyFilter(r.db.Model(&model.Product{}), filter)
	if err := countQuery.Count(&total).Error; err != nil {
		logger.Error("Failed to count products in database", err)
		return nil, 0, err
	}

	sortBy := filter.SortBy
	switch sortBy {
	case ProductSortPrice, ProductSortCreatedAt, ProductSortName:
	default:
		sortBy = ProductSortCreatedAt
	}
	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}

	query := r.applyFilter(r.baseQuery(), filter).
		Order(fmt.Sprintf("%s %s", sortBy, direction))
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Find(&products).Error; err != nil {
		logger.Error("Failed to find products in database", err)
		return nil, 0, err
	}

	logger.Debug("Products found in database", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	var product model.Product
	if err := r.baseQuery().First(&product, id).Error; err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads a product with a row lock inside the given
// transaction. Callers must pass an open transaction.
func (r *productRepository) FindByIDForUpdate(tx *gorm.DB, id uint) (*model.Product, error) {
	var product model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, id).Error
	if err != nil {
		logger.Error("Failed to lock product row in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) Delete(id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	if err := r.db.Delete(&model.Product{}, id).Error; err != nil {
		logger.Error("Failed to delete product from database", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}
	return nil
}

func (r *productRepository) ReplaceImages(productID uint, images []model.ProductImage) error {
	logger.Debug("Replacing product images in database", map[string]interface{}{
		"product_id": productID,
		"count":      len(images),
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).
			Delete(&model.ProductImage{}).Error; err != nil {
			return err
		}
		if len(images) == 0 {
			return nil
		}
		for i := range images {
			images[i].ProductID = productID
			images[i].Position = i
		}
		return tx.Create(&images).Error
	})
}
