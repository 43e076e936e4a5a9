package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/internal/app/service"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type CreateOrderRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required"`
	Phone           string `json:"phone" binding:"required"`
	PaymentMethod   string `json:"payment_method" binding:"required"`
	ShippingMethod  string `json:"shipping_method"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder converts the actor's cart into an order
// POST /api/v1/orders
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := middleware.GetActor(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "identity not resolved")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create order request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	order, err := ctrl.orderService.CreateOrderFromCart(actor, service.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
		ShippingMethod:  req.ShippingMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			apperrors.BadRequest(c, apperrors.CartEmpty, "cart is empty")
		case errors.Is(err, service.ErrInsufficientStock):
			apperrors.BadRequest(c, apperrors.CartInsufficientStock, "insufficient stock")
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "product not found")
		default:
			apperrors.InternalError(c, err)
		}
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"order_id": order.ID,
		"total":    order.Total,
	})
	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// MyOrders returns the authenticated user's order history
// GET /api/v1/orders/my
func (ctrl *OrderController) MyOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "authentication required")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder returns a single order. Owners see their own orders; admins
// see any order.
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid order id")
		return
	}

	var (
		order    *model.Order
		fetchErr error
	)
	if role, ok := middleware.GetUserRole(c); ok && role == model.RoleAdmin {
		order, fetchErr = ctrl.orderService.GetOrderByID(uint(id))
	} else {
		actor, ok := middleware.GetActor(c)
		if !ok {
			apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "identity not resolved")
			return
		}
		order, fetchErr = ctrl.orderService.GetOrderForActor(actor, uint(id))
	}

	if fetchErr != nil {
		if errors.Is(fetchErr, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "order not found")
			return
		}
		apperrors.InternalError(c, fetchErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// ListOrders returns all orders with pagination (admin)
// GET /api/v1/admin/orders
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	filter := repository.OrderFilter{
		SortBy:        repository.OrderSort(c.DefaultQuery("sort_by", "created_at")),
		SortAscending: c.DefaultQuery("order", "desc") == "asc",
	}

	if status := c.Query("status"); status != "" {
		orderStatus := model.OrderStatus(status)
		if !model.ValidOrderStatus(orderStatus) {
			apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "invalid order status")
			return
		}
		filter.Status = &orderStatus
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	filter.Page = page
	filter.Limit = limit

	orders, total, err := ctrl.orderService.ListOrders(filter)
	if err != nil {
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// UpdateOrderStatus transitions an order's status (admin)
// PUT /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid order id")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(uint(id), model.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "order not found")
		case errors.Is(err, service.ErrInvalidOrderStatus):
			apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "invalid order status")
		default:
			apperrors.InternalError(c, err)
		}
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})
	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}
