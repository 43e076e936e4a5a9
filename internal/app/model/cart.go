package model

import (
	"time"
)

// Cart is the pre-purchase collection of items for a single actor.
// Exactly one of UserID/GuestID is set; both carry their own unique index
// so an actor can never own two live carts. Carts are hard-deleted (no
// soft delete) so a returning guest token can get a fresh cart row
// without tripping the unique index.
type Cart struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	GuestID   *string   `gorm:"uniqueIndex;type:varchar(64)" json:"guest_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Cart) TableName() string {
	return "carts"
}

// Total sums quantity times current product price over the loaded items.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.Items {
		total += float64(item.Quantity) * item.Product.Price
	}
	return total
}

// CartItem holds one product inside a cart. At most one row exists per
// (cart, product) pair; adding the same product again increments Quantity.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CartID    uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Cart    Cart    `gorm:"foreignKey:CartID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}
