package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidOrderStatus = errors.New("invalid order status")
)

// OrderEventPublisher receives order lifecycle events. The websocket hub
// implements it; a nil publisher disables events.
type OrderEventPublisher interface {
	PublishOrderCreated(order *model.Order)
	PublishOrderStatusChanged(order *model.Order)
}

type CreateOrderInput struct {
	ShippingAddress string
	Phone           string
	PaymentMethod   string
	ShippingMethod  string
}

type OrderService interface {
	CreateOrderFromCart(actor model.Actor, input CreateOrderInput) (*model.Order, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrderForActor(actor model.Actor, orderID uint) (*model.Order, error)
	GetOrderByID(orderID uint) (*model.Order, error)
	ListOrders(filter repository.OrderFilter) ([]model.Order, int64, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error)
}

type orderService struct {
	orderRepo   repository.OrderRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	publisher   OrderEventPublisher
	db          *gorm.DB
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	db *gorm.DB,
	publisher OrderEventPublisher,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		publisher:   publisher,
		db:          db,
	}
}

// CreateOrderFromCart converts the actor's cart into an order in a single
// transaction: stock is checked and decremented under row locks, prices
// are snapshotted into order items, and the cart is cleared. Any failure
// leaves products, carts and orders untouched.
func (s *orderService) CreateOrderFromCart(actor model.Actor, input CreateOrderInput) (*model.Order, error) {
	logger.Info("Creating order from cart", map[string]interface{}{
		"actor_kind": actor.Kind,
	})

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during order creation, rolling back", fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	// The cart is read under a row lock inside the same transaction that
	// clears it. A concurrent checkout of the same cart waits on the lock
	// and then finds the cart already emptied.
	cart, err := s.cartRepo.FindByActorForUpdate(tx, actor)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCart
		}
		logger.Error("Failed to fetch cart for order", err, map[string]interface{}{
			"actor_kind": actor.Kind,
		})
		return nil, err
	}
	if len(cart.Items) == 0 {
		tx.Rollback()
		logger.Warn("Cannot create order: cart is empty", map[string]interface{}{
			"actor_kind": actor.Kind,
		})
		return nil, ErrEmptyCart
	}

	var (
		total      float64
		orderItems []model.OrderItem
		itemIDs    []uint
	)

	for _, cartItem := range cart.Items {
		product, err := s.productRepo.FindByIDForUpdate(tx, cartItem.ProductID)
		if err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logger.Warn("Product not found during order creation", map[string]interface{}{
					"product_id": cartItem.ProductID,
				})
				return nil, ErrProductNotFound
			}
			return nil, err
		}

		if product.Stock < cartItem.Quantity {
			tx.Rollback()
			logger.Warn("Order creation failed: insufficient stock", map[string]interface{}{
				"product_id": product.ID,
				"requested":  cartItem.Quantity,
				"available":  product.Stock,
			})
			return nil, ErrInsufficientStock
		}

		orderItems = append(orderItems, model.OrderItem{
			ProductID: cartItem.ProductID,
			Quantity:  cartItem.Quantity,
			Price:     product.Price,
		})
		itemIDs = append(itemIDs, cartItem.ID)
		total += product.Price * float64(cartItem.Quantity)

		if err := tx.Model(&model.Product{}).
			Where("id = ?", product.ID).
			Update("stock", gorm.Expr("stock - ?", cartItem.Quantity)).Error; err != nil {
			tx.Rollback()
			logger.Error("Failed to decrement product stock", err, map[string]interface{}{
				"product_id": product.ID,
			})
			return nil, err
		}
	}

	order := &model.Order{
		Total:           total,
		Status:          model.OrderStatusProcessing,
		ShippingAddress: input.ShippingAddress,
		Phone:           input.Phone,
		PaymentMethod:   input.PaymentMethod,
		ShippingMethod:  input.ShippingMethod,
		OrderItems:      orderItems,
	}
	if actor.IsUser() {
		order.UserID = &actor.UserID
	} else {
		guestID := actor.GuestID
		order.GuestID = &guestID
	}

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to create order", err, map[string]interface{}{
			"total": total,
		})
		return nil, err
	}

	// Only the snapshotted items are removed. An item added to the cart
	// while this transaction runs stays in it, with no order behind it.
	if err := s.cartRepo.DeleteItems(tx, itemIDs); err != nil {
		tx.Rollback()
		logger.Error("Failed to clear cart after order creation", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return nil, err
	}

	// Guest sessions are single-checkout: drop the cart row itself so the
	// unique guest index can be reused by a later cookie.
	if !actor.IsUser() {
		if err := tx.Delete(&model.Cart{}, cart.ID).Error; err != nil {
			tx.Rollback()
			logger.Error("Failed to delete guest cart after order creation", err, map[string]interface{}{
				"cart_id": cart.ID,
			})
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order transaction", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return nil, err
	}

	logger.Info("Order created", map[string]interface{}{
		"order_id":   order.ID,
		"total":      total,
		"item_count": len(orderItems),
	})

	created, err := s.orderRepo.FindByID(order.ID)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.PublishOrderCreated(created)
	}
	return created, nil
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	logger.Debug("Fetching user orders", map[string]interface{}{
		"user_id": userID,
	})
	return s.orderRepo.FindByUserID(userID)
}

// GetOrderForActor returns the order only if the actor owns it. Missing
// and foreign orders are indistinguishable to the caller.
func (s *orderService) GetOrderForActor(actor model.Actor, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if actor.IsUser() {
		if order.UserID == nil || *order.UserID != actor.UserID {
			return nil, ErrOrderNotFound
		}
	} else {
		if order.GuestID == nil || *order.GuestID != actor.GuestID {
			return nil, ErrOrderNotFound
		}
	}
	return order, nil
}

func (s *orderService) GetOrderByID(orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(filter repository.OrderFilter) ([]model.Order, int64, error) {
	logger.Debug("Listing orders", map[string]interface{}{
		"page":  filter.Page,
		"limit": filter.Limit,
	})
	return s.orderRepo.FindAllPaginated(filter)
}

func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})

	if !model.ValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}

	if err := s.orderRepo.UpdateStatus(orderID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.PublishOrderStatusChanged(order)
	}
	return order, nil
}
