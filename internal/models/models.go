package models

import (
	"strings"
	"time"
)

type User struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PhoneNumber string    `gorm:"uniqueIndex;not null"     json:"phone_number"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Role        string    `gorm:"not null;default:user"    json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.PhoneNumber
	}
	return name
}

type OTPCode struct {
	ID          uint      `gorm:"primaryKey"     json:"id"`
	PhoneNumber string    `gorm:"index;not null" json:"phone_number"`
	CodeHash    string    `gorm:"not null"       json:"-"`
	ExpiresAt   time.Time `gorm:"not null"       json:"expires_at"`
	Used        bool      `gorm:"default:false"  json:"used"`
	CreatedAt   time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uint   `gorm:"primaryKey"      json:"id"`
	Token     string `gorm:"unique;not null" json:"token"`
	UserID    uint   `gorm:"index;not null"  json:"user_id"`
	ExpiresAt int64  `gorm:"not null"        json:"expires_at"`
	Revoked   bool   `gorm:"default:false"   json:"revoked"`
}

type Address struct {
	ID         uint   `gorm:"primaryKey"     json:"id"`
	UserID     uint   `gorm:"index;not null" json:"user_id"`
	Receiver   string `gorm:"not null"       json:"receiver"`
	Phone      string `gorm:"not null"       json:"phone"`
	Province   string `gorm:"not null"       json:"province"`
	City       string `gorm:"not null"       json:"city"`
	PostalCode string `json:"postal_code"`
	Line       string `gorm:"not null"       json:"line"`
}

type Product struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"        json:"id"`
	Name            string `gorm:"not null"                        json:"name"`
	Slug            string `gorm:"uniqueIndex;not null"            json:"slug"`
	SKU             string `gorm:"column:sku;uniqueIndex;not null" json:"sku"`
	Description     string `json:"description"`
	UnitPrice       int64  `gorm:"not null"                        json:"unit_price"`
	Quantity        int64  `gorm:"not null;default:0"              json:"quantity"`
	ReorderLevel    int64  `gorm:"not null;default:5"              json:"reorder_level"`
	IsActive        bool   `gorm:"not null;default:true"           json:"is_active"`
	DiscountPercent int64  `gorm:"not null;default:0"              json:"discount_percent"`
	DiscountPerUnit int64  `gorm:"not null;default:0"              json:"discount_per_unit"`
}

func (p *Product) HasDiscount() bool {
	return p.DiscountPercent > 0 || p.DiscountPerUnit > 0
}

func (p *Product) LowStock() bool {
	return p.Quantity <= p.ReorderLevel
}

type Cart struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PriceSnapshot is the unit price seen when the line was first added. It is
// informational only, checkout always recomputes from the live product.
type CartItem struct {
	ID            uint      `gorm:"primaryKey"                            json:"id"`
	CartID        uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID     uint      `gorm:"not null;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity      int64     `gorm:"not null;check:quantity>0"             json:"quantity"`
	PriceSnapshot int64     `gorm:"not null"                              json:"price_snapshot"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Order is immutable after creation except for the status fields and their
// timestamps. Shipping and customer columns are snapshots, not references.
type Order struct {
	ID            uint   `gorm:"primaryKey"           json:"id"`
	OrderNumber   string `gorm:"uniqueIndex;not null" json:"order_number"`
	UserID        uint   `gorm:"index;not null"       json:"user_id"`
	Status        string `gorm:"not null"             json:"status"`
	PaymentStatus string `gorm:"not null"             json:"payment_status"`

	Subtotal       int64 `gorm:"not null"           json:"subtotal"`
	DiscountAmount int64 `gorm:"not null;default:0" json:"discount_amount"`
	ShippingCost   int64 `gorm:"not null;default:0" json:"shipping_cost"`
	TotalAmount    int64 `gorm:"not null"           json:"total_amount"`

	ShippingReceiver   string `gorm:"not null" json:"shipping_receiver"`
	ShippingPhone      string `gorm:"not null" json:"shipping_phone"`
	ShippingProvince   string `gorm:"not null" json:"shipping_province"`
	ShippingCity       string `gorm:"not null" json:"shipping_city"`
	ShippingPostalCode string `json:"shipping_postal_code"`
	ShippingLine       string `gorm:"not null" json:"shipping_line"`

	CustomerName  string `gorm:"not null" json:"customer_name"`
	CustomerPhone string `gorm:"not null" json:"customer_phone"`
	CustomerNote  string `json:"customer_note"`
	AdminNote     string `json:"admin_note"`

	PaymentAuthority string `json:"payment_authority"`
	PaymentRefID     string `gorm:"column:payment_ref_id" json:"payment_ref_id"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ConfirmedAt *time.Time `json:"confirmed_at"`
	ShippedAt   *time.Time `json:"shipped_at"`
	DeliveredAt *time.Time `json:"delivered_at"`
	PaidAt      *time.Time `json:"paid_at"`
}

// OrderItem snapshots the product name, SKU, price and discount fields at
// assembly time so later catalog edits never change historical orders.
type OrderItem struct {
	ID        uint `gorm:"primaryKey"                             json:"id"`
	OrderID   uint `gorm:"not null;uniqueIndex:idx_order_product" json:"order_id"`
	ProductID uint `gorm:"not null;uniqueIndex:idx_order_product" json:"product_id"`

	ProductName string `gorm:"not null"                    json:"product_name"`
	ProductSKU  string `gorm:"column:product_sku;not null" json:"product_sku"`
	UnitPrice   int64  `gorm:"not null"                    json:"unit_price"`

	Quantity        int64 `gorm:"not null;check:quantity>0" json:"quantity"`
	DiscountPercent int64 `gorm:"not null;default:0"        json:"discount_percent"`
	DiscountPerUnit int64 `gorm:"not null;default:0"        json:"discount_per_unit"`

	Subtotal       int64 `gorm:"not null"           json:"subtotal"`
	DiscountAmount int64 `gorm:"not null;default:0" json:"discount_amount"`
	LineTotal      int64 `gorm:"not null"           json:"line_total"`

	CreatedAt time.Time `json:"created_at"`
}

// OrderStatusHistory rows are append-only, one per status transition.
type OrderStatusHistory struct {
	ID             uint      `gorm:"primaryKey"     json:"id"`
	OrderID        uint      `gorm:"index;not null" json:"order_id"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `gorm:"not null"       json:"new_status"`
	ChangedBy      uint      `json:"changed_by"`
	Note           string    `json:"note"`
	CreatedAt      time.Time `json:"created_at"`
}

// StockMovement is an append-only ledger of every quantity change. Quantity is
// signed: negative for sales, positive for restocks and purchases.
type StockMovement struct {
	ID             uint      `gorm:"primaryKey"     json:"id"`
	ProductID      uint      `gorm:"index;not null" json:"product_id"`
	MovementType   string    `gorm:"not null"       json:"movement_type"`
	Quantity       int64     `gorm:"not null"       json:"quantity"`
	BeforeQuantity int64     `gorm:"not null"       json:"before_quantity"`
	AfterQuantity  int64     `gorm:"not null"       json:"after_quantity"`
	Note           string    `json:"note"`
	CreatedBy      uint      `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
}
