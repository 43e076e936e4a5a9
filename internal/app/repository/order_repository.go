package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

type OrderSort string

const (
	OrderSortCreatedAt OrderSort = "created_at"
	OrderSortTotal     OrderSort = "total"
	OrderSortStatus    OrderSort = "status"
)

type OrderFilter struct {
	Status        *model.OrderStatus
	SortBy        OrderSort
	SortAscending bool
	Page          int
	Limit         int
}

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByUserID(userID uint) ([]model.Order, error)
	FindAllPaginated(filter OrderFilter) ([]model.Order, int64, error)
	UpdateStatus(id uint, status model.OrderStatus) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Preload("Product")
	}).Preload("User")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id": order.UserID,
		"total":   order.Total,
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id": order.UserID,
			"total":   order.Total,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id": order.ID,
		"total":    order.Total,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByUserID(userID uint) ([]model.Order, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var orders []model.Order
	if err := r.preloadOrder().Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) FindAllPaginated(filter OrderFilter) ([]model.Order, int64, error) {
	logger.Debug("Finding orders with pagination in database", map[string]interface{}{
		"page":   filter.Page,
		"limit":  filter.Limit,
		"status": filter.Status,
	})

	countQuery := r.db.Model(&model.Order{})
	if filter.Status != nil {
		countQuery = countQuery.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		logger.Error("Failed to count orders in database", err)
		return nil, 0, err
	}

	sortBy := filter.SortBy
	switch sortBy {
	case OrderSortCreatedAt, OrderSortTotal, OrderSortStatus:
	default:
		sortBy = OrderSortCreatedAt
	}
	direction := "DESC"
	if filter.SortAscending {
		direction = "ASC"
	}

	query := r.preloadOrder().
		Order(fmt.Sprintf("%s %s", sortBy, direction))
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset((filter.Page - 1) * filter.Limit)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders in database", err)
		return nil, 0, err
	}

	logger.Debug("Orders found with pagination in database", map[string]interface{}{
		"count": len(orders),
		"total": total,
	})
	return orders, total, nil
}

func (r *orderRepository) UpdateStatus(id uint, status model.OrderStatus) error {
	logger.Debug("Updating order status in database", map[string]interface{}{
		"order_id": id,
		"status":   status,
	})

	result := r.db.Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		logger.Error("Failed to update order status in database", result.Error, map[string]interface{}{
			"order_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
