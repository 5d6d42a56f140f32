package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

type RoastLevel string

const (
	RoastLight  RoastLevel = "light"
	RoastMedium RoastLevel = "medium"
	RoastDark   RoastLevel = "dark"
)

type GrindType string

const (
	GrindWholeBean GrindType = "whole_bean"
	GrindCoarse    GrindType = "coarse"
	GrindMedium    GrindType = "medium"
	GrindFine      GrindType = "fine"
)

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCanceled   OrderStatus = "canceled"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodRazorpay PaymentMethod = "razorpay"
	PaymentMethodCOD      PaymentMethod = "cod"
)

// FlavorNotes keeps the ordered tasting notes of a product in one JSON
// column instead of a join table.
type FlavorNotes []string

func (n FlavorNotes) Value() (driver.Value, error) {
	if n == nil {
		return "[]", nil
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (n *FlavorNotes) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = nil
		return nil
	case []byte:
		return json.Unmarshal(v, n)
	case string:
		return json.Unmarshal([]byte(v), n)
	default:
		return fmt.Errorf("flavor notes: unsupported column type %T", src)
	}
}

type Product struct {
	ID          uint        `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name        string      `gorm:"not null;index"            json:"name"`
	Description string      `json:"description"`
	RoastLevel  RoastLevel  `gorm:"type:varchar(16);not null" json:"roast_level"`
	FlavorNotes FlavorNotes `gorm:"type:text"                 json:"flavor_notes"`
	Origin      string      `json:"origin"`
	ImageURL    string      `json:"image_url"`
	Active      bool        `gorm:"default:true"              json:"active"`
	Variants    []Variant   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants,omitempty"`
}

// Variant is one purchasable (size, grind) combination of a product.
// Uniqueness of (product_id, size, grind_type) is by convention only.
type Variant struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"  json:"id"`
	ProductID  uint      `gorm:"index;not null"            json:"product_id"`
	Size       string    `gorm:"not null"                  json:"size"`
	GrindType  GrindType `gorm:"type:varchar(16);not null" json:"grind_type"`
	Price      float64   `gorm:"not null"                  json:"price"`
	StockCount int       `gorm:"not null;default:0;check:stock_count>=0" json:"stock_count"`
}

// CartItem snapshots the product display fields at add-time, so a later
// price or name edit does not rewrite what the user already put in the cart.
type CartItem struct {
	ID          uint      `gorm:"primaryKey"                json:"id"`
	UserID      uint      `gorm:"index;not null"            json:"user_id"`
	ProductID   uint      `gorm:"not null"                  json:"product_id"`
	ProductName string    `gorm:"not null"                  json:"product_name"`
	ImageURL    string    `json:"image_url"`
	Price       float64   `gorm:"not null"                  json:"price"`
	GrindType   GrindType `gorm:"type:varchar(16);not null" json:"grind_type"`
	BagSize     string    `gorm:"not null"                  json:"bag_size"`
	Quantity    int       `gorm:"not null;default:1"        json:"quantity"`
}

type Order struct {
	ID             uint          `gorm:"primaryKey"     json:"id"`
	UserID         uint          `gorm:"index;not null" json:"user_id"`
	Status         OrderStatus   `gorm:"type:varchar(16);default:'new'"     json:"status"`
	PaymentStatus  PaymentStatus `gorm:"type:varchar(16);default:'pending'" json:"payment_status"`
	PaymentMethod  PaymentMethod `gorm:"type:varchar(16);not null"          json:"payment_method"`
	TotalAmount    float64       `gorm:"not null" json:"total_amount"`
	ShippingName   string        `gorm:"not null" json:"shipping_name"`
	ShippingEmail  string        `gorm:"not null" json:"shipping_email"`
	ShippingPhone  string        `gorm:"not null" json:"shipping_phone"`
	ShippingLine   string        `gorm:"not null" json:"shipping_address"`
	ShippingCity   string        `gorm:"not null" json:"shipping_city"`
	ShippingState  string        `gorm:"not null" json:"shipping_state"`
	ShippingPin    string        `gorm:"not null" json:"shipping_pincode"`
	GatewayOrderID string        `json:"gateway_order_id,omitempty"`
	PaymentID      string        `json:"payment_id,omitempty"`
	// StockAppliedAt marks that the inventory decrement already ran for
	// this order; it is set exactly once, together with the decrement.
	StockAppliedAt *int64 `json:"stock_applied_at,omitempty"`
	CreatedAt      int64  `json:"created_at"`
}

// OrderItem pins the variant id at order-creation time. VariantID is
// nullable only for rows created before the capture existed.
type OrderItem struct {
	ID          uint      `gorm:"primaryKey"     json:"id"`
	OrderID     uint      `gorm:"index;not null" json:"order_id"`
	UserID      uint      `gorm:"index;not null" json:"user_id"`
	VariantID   *uint     `json:"variant_id,omitempty"`
	ProductName string    `gorm:"not null"                  json:"product_name"`
	GrindType   GrindType `gorm:"type:varchar(16);not null" json:"grind_type"`
	BagSize     string    `gorm:"not null"                  json:"bag_size"`
	Quantity    int       `gorm:"not null"                  json:"quantity"`
	UnitPrice   float64   `gorm:"not null"                  json:"unit_price"`
}

type UserAddress struct {
	ID        uint   `gorm:"primaryKey"     json:"id"`
	UserID    uint   `gorm:"index;not null" json:"user_id"`
	Label     string `json:"label"`
	FullName  string `gorm:"not null"      json:"full_name"`
	Phone     string `gorm:"not null"      json:"phone"`
	Address   string `gorm:"not null"      json:"address"`
	City      string `gorm:"not null"      json:"city"`
	State     string `gorm:"not null"      json:"state"`
	Pincode   string `gorm:"not null"      json:"pincode"`
	IsDefault bool   `gorm:"default:false" json:"is_default"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	Email        string `gorm:"index"                    json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null;default:'customer'" json:"role"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	Role      string `gorm:"not null"        json:"role"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

type PasswordReset struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Used      bool   `gorm:"default:false"   json:"used"`
}
