package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jwkim/storefront-backend/internal/app/model"
	"github.com/jwkim/storefront-backend/pkg/logger"
)

type CartRepository interface {
	FindByActor(actor model.Actor) (*model.Cart, error)
	FindByActorForUpdate(tx *gorm.DB, actor model.Actor) (*model.Cart, error)
	CreateForActor(actor model.Actor) (*model.Cart, error)
	FindItemByID(cartID, itemID uint) (*model.CartItem, error)
	FindItemByProduct(cartID, productID uint) (*model.CartItem, error)
	CreateItem(item *model.CartItem) error
	UpdateItem(item *model.CartItem) error
	DeleteItem(id uint) error
	DeleteItems(tx *gorm.DB, itemIDs []uint) error
	DeleteItemsByCartID(cartID uint) error
	DeleteCart(id uint) error
	DeleteExpiredGuestCarts(before time.Time) (int64, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func actorScope(actor model.Actor) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor.IsUser() {
			return db.Where("user_id = ?", actor.UserID)
		}
		return db.Where("guest_id = ?", actor.GuestID)
	}
}

func (r *cartRepository) FindByActor(actor model.Actor) (*model.Cart, error) {
	logger.Debug("Finding cart by actor in database", map[string]interface{}{
		"actor_kind": actor.Kind,
	})

	var cart model.Cart
	err := r.db.Scopes(actorScope(actor)).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Items.Product").
		Preload("Items.Product.Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&cart).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find cart by actor in database", err, map[string]interface{}{
				"actor_kind": actor.Kind,
			})
		}
		return nil, err
	}
	return &cart, nil
}

// FindByActorForUpdate loads the actor's cart with a row lock inside the
// given transaction. Callers must pass an open transaction; concurrent
// checkouts of the same cart block here until the first one commits.
func (r *cartRepository) FindByActorForUpdate(tx *gorm.DB, actor model.Actor) (*model.Cart, error) {
	var cart model.Cart
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(actorScope(actor)).
		First(&cart).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to lock cart row in database", err, map[string]interface{}{
				"actor_kind": actor.Kind,
			})
		}
		return nil, err
	}

	if err := tx.Where("cart_id = ?", cart.ID).
		Order("created_at ASC").
		Preload("Product").
		Find(&cart.Items).Error; err != nil {
		logger.Error("Failed to load items for locked cart in database", err, map[string]interface{}{
			"cart_id": cart.ID,
		})
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) CreateForActor(actor model.Actor) (*model.Cart, error) {
	cart := &model.Cart{}
	if actor.IsUser() {
		cart.UserID = &actor.UserID
	} else {
		guestID := actor.GuestID
		cart.GuestID = &guestID
	}

	logger.Debug("Creating cart for actor in database", map[string]interface{}{
		"actor_kind": actor.Kind,
	})

	if err := r.db.Create(cart).Error; err != nil {
		logger.Error("Failed to create cart for actor in database", err, map[string]interface{}{
			"actor_kind": actor.Kind,
		})
		return nil, err
	}
	return cart, nil
}

// FindItemByID scopes the item lookup to the given cart so one actor can
// never address another actor's items.
func (r *cartRepository) FindItemByID(cartID, itemID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Where("cart_id = ?", cartID).
		Preload("Product").
		First(&item, itemID).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find cart item by ID in database", err, map[string]interface{}{
				"cart_id":      cartID,
				"cart_item_id": itemID,
			})
		}
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) FindItemByProduct(cartID, productID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Where("cart_id = ? AND product_id = ?", cartID, productID).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *cartRepository) CreateItem(item *model.CartItem) error {
	logger.Debug("Creating cart item in database", map[string]interface{}{
		"cart_id":    item.CartID,
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})

	if err := r.db.Create(item).Error; err != nil {
		logger.Error("Failed to create cart item in database", err, map[string]interface{}{
			"cart_id":    item.CartID,
			"product_id": item.ProductID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) UpdateItem(item *model.CartItem) error {
	logger.Debug("Updating cart item in database", map[string]interface{}{
		"cart_item_id": item.ID,
		"quantity":     item.Quantity,
	})

	if err := r.db.Save(item).Error; err != nil {
		logger.Error("Failed to update cart item in database", err, map[string]interface{}{
			"cart_item_id": item.ID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteItem(id uint) error {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_item_id": id,
	})

	if err := r.db.Delete(&model.CartItem{}, id).Error; err != nil {
		logger.Error("Failed to delete cart item from database", err, map[string]interface{}{
			"cart_item_id": id,
		})
		return err
	}
	return nil
}

// DeleteItems removes exactly the given cart items inside the given
// transaction, leaving any items added to the cart afterwards untouched.
func (r *cartRepository) DeleteItems(tx *gorm.DB, itemIDs []uint) error {
	if len(itemIDs) == 0 {
		return nil
	}

	if err := tx.Where("id IN ?", itemIDs).
		Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items from database", err, map[string]interface{}{
			"cart_item_ids": itemIDs,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteItemsByCartID(cartID uint) error {
	logger.Debug("Deleting cart items by cart ID from database", map[string]interface{}{
		"cart_id": cartID,
	})

	if err := r.db.Where("cart_id = ?", cartID).
		Delete(&model.CartItem{}).Error; err != nil {
		logger.Error("Failed to delete cart items by cart ID from database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return err
	}
	return nil
}

func (r *cartRepository) DeleteCart(id uint) error {
	logger.Debug("Deleting cart from database", map[string]interface{}{
		"cart_id": id,
	})

	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", id).
			Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Cart{}, id).Error
	})
}

// DeleteExpiredGuestCarts removes guest carts untouched since the given
// cutoff, together with their items. User carts are never swept.
func (r *cartRepository) DeleteExpiredGuestCarts(before time.Time) (int64, error) {
	var removed int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var cartIDs []uint
		if err := tx.Model(&model.Cart{}).
			Where("guest_id IS NOT NULL AND updated_at < ?", before).
			Pluck("id", &cartIDs).Error; err != nil {
			return err
		}
		if len(cartIDs) == 0 {
			return nil
		}
		if err := tx.Where("cart_id IN ?", cartIDs).
			Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id IN ?", cartIDs).Delete(&model.Cart{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete expired guest carts from database", err)
		return 0, err
	}
	return removed, nil
}
