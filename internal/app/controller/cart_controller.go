package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/service"
	apperrors "github.com/jwkim/storefront-backend/internal/errors"
	"github.com/jwkim/storefront-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	// Zero removes the item, so no gt=0 constraint here.
	Quantity *int `json:"quantity" binding:"required"`
}

func cartResponse(cart *model.Cart) gin.H {
	return gin.H{
		"cart_items": cart.Items,
		"count":      len(cart.Items),
		"total":      cart.Total(),
	}
}

// GetCart returns the actor's cart
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := middleware.GetActor(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "identity not resolved")
		return
	}

	cart, err := ctrl.cartService.GetCart(actor)
	if err != nil {
		log.Error("Failed to fetch cart", err)
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(cart))
}

// AddToCart adds an item to the actor's cart
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := middleware.GetActor(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "identity not resolved")
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	cart, err := ctrl.cartService.AddItem(actor, req.ProductID, req.Quantity)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})
	c.JSON(http.StatusOK, cartResponse(cart))
}

// UpdateCartItem sets an item quantity; zero removes the item
// PUT /api/v1/cart/items/:id
func (ctrl *CartController) UpdateCartItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actor, ok := middleware.GetActor(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "identity not resolved")
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid cart item id")
		return
	}

	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid cart item update request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "invalid request data")
		return
	}

	cart, err := ctrl.cartService.UpdateItem(actor, uint(itemID), *req.Quantity)
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(cart))
}

// RemoveCartItem removes an item from the actor's cart
// DELETE /api/v1/cart/items/:id
func (ctrl *CartController) RemoveCartItem(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "identity not resolved")
		return
	}

	itemID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "invalid cart item id")
		return
	}

	cart, err := ctrl.cartService.RemoveItem(actor, uint(itemID))
	if err != nil {
		ctrl.respondCartError(c, err)
		return
	}

	c.JSON(http.StatusOK, cartResponse(cart))
}

// ClearCart removes every item from the actor's cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apperrors.Unauthorized(c, apperrors.AuthUnauthorized, "identity not resolved")
		return
	}

	if err := ctrl.cartService.ClearCart(actor); err != nil {
		apperrors.InternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "cart cleared",
	})
}

func (ctrl *CartController) respondCartError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "product not found")
	case errors.Is(err, service.ErrCartItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "cart item not found")
	case errors.Is(err, service.ErrInsufficientStock):
		apperrors.BadRequest(c, apperrors.CartInsufficientStock, "insufficient stock")
	case errors.Is(err, service.ErrInvalidQuantity):
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "quantity must be positive")
	default:
		apperrors.InternalError(c, err)
	}
}
