package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
)

// ValidOrderStatus reports whether s is one of the enumerated statuses.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusProcessing, OrderStatusDelivered, OrderStatusCompleted:
		return true
	}
	return false
}

// Order is an immutable snapshot of a cart at checkout time. The owning
// actor (user or guest) is captured once at creation; item prices are
// copied, never referenced, so later catalog changes leave history intact.
type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	UserID          *uint          `gorm:"index" json:"user_id,omitempty"`
	GuestID         *string        `gorm:"index;type:varchar(64)" json:"guest_id,omitempty"`
	Total           float64        `gorm:"not null" json:"total"`
	Status          OrderStatus    `gorm:"type:varchar(20);default:'processing'" json:"status"`
	ShippingAddress string         `gorm:"type:text;not null" json:"shipping_address"`
	Phone           string         `gorm:"not null" json:"phone"`
	PaymentMethod   string         `gorm:"type:varchar(50)" json:"payment_method"`
	ShippingMethod  string         `gorm:"type:varchar(50)" json:"shipping_method"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	User       *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a frozen line of an order: quantity and the unit price in
// effect when the order was created.
type OrderItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	OrderID   uint           `gorm:"not null;index" json:"order_id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	Quantity  int            `gorm:"not null" json:"quantity"`
	Price     float64        `gorm:"not null" json:"price"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
