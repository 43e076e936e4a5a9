package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/internal/app/repository"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

type CartService interface {
	GetCart(actor model.Actor) (*model.Cart, error)
	AddItem(actor model.Actor, productID uint, quantity int) (*model.Cart, error)
	UpdateItem(actor model.Actor, itemID uint, quantity int) (*model.Cart, error)
	RemoveItem(actor model.Actor, itemID uint) (*model.Cart, error)
	ClearCart(actor model.Actor) error
	MergeGuestCart(guestID string, userID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// GetCart returns the actor's cart. Reading never creates one: actors
// without a cart get an empty snapshot.
func (s *cartService) GetCart(actor model.Actor) (*model.Cart, error) {
	logger.Debug("Fetching cart", map[string]interface{}{
		"actor_kind": actor.Kind,
	})

	cart, err := s.cartRepo.FindByActor(actor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &model.Cart{Items: []model.CartItem{}}, nil
		}
		logger.Error("Failed to fetch cart", err, map[string]interface{}{
			"actor_kind": actor.Kind,
		})
		return nil, err
	}
	return cart, nil
}

// ensureCart returns the actor's cart, creating it on first use.
func (s *cartService) ensureCart(actor model.Actor) (*model.Cart, error) {
	cart, err := s.cartRepo.FindByActor(actor)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return s.cartRepo.CreateForActor(actor)
}

func (s *cartService) AddItem(actor model.Actor, productID uint, quantity int) (*model.Cart, error) {
	logger.Info("Adding item to cart", map[string]interface{}{
		"actor_kind": actor.Kind,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Add to cart failed: product not found", map[string]interface{}{
				"product_id": productID,
			})
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	cart, err := s.ensureCart(actor)
	if err != nil {
		return nil, err
	}

	existing, err := s.cartRepo.FindItemByProduct(cart.ID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if product.Stock < requested {
		logger.Warn("Add to cart failed: insufficient stock", map[string]interface{}{
			"product_id": productID,
			"requested":  requested,
			"available":  product.Stock,
		})
		return nil, ErrInsufficientStock
	}

	if existing != nil {
		existing.Quantity = requested
		if err := s.cartRepo.UpdateItem(existing); err != nil {
			return nil, err
		}
	} else {
		item := &model.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  quantity,
		}
		if err := s.cartRepo.CreateItem(item); err != nil {
			return nil, err
		}
	}

	return s.cartRepo.FindByActor(actor)
}

// UpdateItem sets an item's quantity. A quantity of zero or less removes
// the item instead of failing.
func (s *cartService) UpdateItem(actor model.Actor, itemID uint, quantity int) (*model.Cart, error) {
	logger.Info("Updating cart item", map[string]interface{}{
		"actor_kind":   actor.Kind,
		"cart_item_id": itemID,
		"quantity":     quantity,
	})

	cart, err := s.cartRepo.FindByActor(actor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	item, err := s.cartRepo.FindItemByID(cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	if quantity <= 0 {
		if err := s.cartRepo.DeleteItem(item.ID); err != nil {
			return nil, err
		}
		return s.cartRepo.FindByActor(actor)
	}

	if item.Product.Stock < quantity {
		logger.Warn("Cart item update failed: insufficient stock", map[string]interface{}{
			"product_id": item.ProductID,
			"requested":  quantity,
			"available":  item.Product.Stock,
		})
		return nil, ErrInsufficientStock
	}

	item.Quantity = quantity
	if err := s.cartRepo.UpdateItem(item); err != nil {
		return nil, err
	}

	return s.cartRepo.FindByActor(actor)
}

func (s *cartService) RemoveItem(actor model.Actor, itemID uint) (*model.Cart, error) {
	logger.Info("Removing cart item", map[string]interface{}{
		"actor_kind":   actor.Kind,
		"cart_item_id": itemID,
	})

	cart, err := s.cartRepo.FindByActor(actor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	item, err := s.cartRepo.FindItemByID(cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	if err := s.cartRepo.DeleteItem(item.ID); err != nil {
		return nil, err
	}

	return s.cartRepo.FindByActor(actor)
}

func (s *cartService) ClearCart(actor model.Actor) error {
	logger.Info("Clearing cart", map[string]interface{}{
		"actor_kind": actor.Kind,
	})

	cart, err := s.cartRepo.FindByActor(actor)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	return s.cartRepo.DeleteItemsByCartID(cart.ID)
}

// MergeGuestCart folds a guest cart into the user's cart at login.
// Quantities for the same product are summed and clamped to available
// stock. The guest cart is removed afterwards.
func (s *cartService) MergeGuestCart(guestID string, userID uint) error {
	if guestID == "" {
		return nil
	}

	logger.Info("Merging guest cart into user cart", map[string]interface{}{
		"user_id": userID,
	})

	guestCart, err := s.cartRepo.FindByActor(model.GuestActor(guestID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if len(guestCart.Items) == 0 {
		return s.cartRepo.DeleteCart(guestCart.ID)
	}

	userActor := model.UserActor(userID)
	userCart, err := s.ensureCart(userActor)
	if err != nil {
		return err
	}

	for _, guestItem := range guestCart.Items {
		quantity := guestItem.Quantity
		if guestItem.Product.Stock < quantity {
			quantity = guestItem.Product.Stock
		}

		existing, err := s.cartRepo.FindItemByProduct(userCart.ID, guestItem.ProductID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if existing != nil {
			merged := existing.Quantity + quantity
			if guestItem.Product.Stock < merged {
				merged = guestItem.Product.Stock
			}
			if merged != existing.Quantity {
				existing.Quantity = merged
				if err := s.cartRepo.UpdateItem(existing); err != nil {
					return err
				}
			}
			continue
		}

		if quantity <= 0 {
			continue
		}
		item := &model.CartItem{
			CartID:    userCart.ID,
			ProductID: guestItem.ProductID,
			Quantity:  quantity,
		}
		if err := s.cartRepo.CreateItem(item); err != nil {
			return err
		}
	}

	logger.Info("Guest cart merged", map[string]interface{}{
		"user_id":    userID,
		"item_count": len(guestCart.Items),
	})
	return s.cartRepo.DeleteCart(guestCart.ID)
}
