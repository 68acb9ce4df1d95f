package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderPending    = "pending"
	OrderConfirmed  = "confirmed"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
	OrderRefunded   = "refunded"
)

var OrderStatuses = []string{
	OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
	OrderDelivered, OrderCancelled, OrderRefunded,
}

// NonCancellable lists the statuses from which an order can no longer be cancelled.
var NonCancellable = []string{OrderShipped, OrderDelivered, OrderCancelled}

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

var PaymentStatuses = []string{PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded}

func ValidOrderStatus(s string) bool   { return slices.Contains(OrderStatuses, s) }
func ValidPaymentStatus(s string) bool { return slices.Contains(PaymentStatuses, s) }

type Address struct {
	FirstName string `gorm:"size:50"  json:"firstName"`
	LastName  string `gorm:"size:50"  json:"lastName"`
	Street    string `gorm:"size:200" json:"street"`
	City      string `gorm:"size:100" json:"city"`
	State     string `gorm:"size:100" json:"state"`
	ZipCode   string `gorm:"size:20"  json:"zipCode"`
	Country   string `gorm:"size:100" json:"country"`
	Phone     string `gorm:"size:30"  json:"phone,omitempty"`
}

func (a Address) IsZero() bool { return a == Address{} }

type Pricing struct {
	Subtotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Tax      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	Shipping decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping"`
	Discount decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"discount"`
	Total    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
}

// OrderItem is a snapshot of the product taken when the order was placed.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"        json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"    json:"orderId"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"    json:"productId"`
	Name      string          `gorm:"size:100;not null"           json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity  int             `gorm:"not null"                    json:"quantity"`
	Image     string          `                                   json:"image,omitempty"`
	Brand     string          `gorm:"size:50"                     json:"brand"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

type Order struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey"                json:"id"`
	OrderNumber     string      `gorm:"size:32;uniqueIndex;not null"        json:"orderNumber"`
	UserID          uuid.UUID   `gorm:"type:uuid;not null;index"            json:"userId"`
	User            *User       `gorm:"foreignKey:UserID"                   json:"user,omitempty"`
	Items           []OrderItem `gorm:"foreignKey:OrderID"                  json:"items"`
	ShippingAddress Address     `gorm:"embedded;embeddedPrefix:shipping_"   json:"shippingAddress"`
	BillingAddress  Address     `gorm:"embedded;embeddedPrefix:billing_"    json:"billingAddress"`
	PaymentMethod   string      `gorm:"size:50;not null"                    json:"paymentMethod"`
	Pricing         Pricing     `gorm:"embedded;embeddedPrefix:pricing_"    json:"pricing"`
	Status          string      `gorm:"size:16;not null;index"              json:"status"`
	PaymentStatus   string      `gorm:"size:16;not null;index"              json:"paymentStatus"`
	TrackingNumber  string      `gorm:"size:100"                            json:"trackingNumber,omitempty"`
	Notes           string      `gorm:"size:500"                            json:"notes,omitempty"`
	DeliveredAt     *time.Time  `                                           json:"deliveredAt,omitempty"`
	CancelledAt     *time.Time  `                                           json:"cancelledAt,omitempty"`
	CreatedAt       time.Time   `gorm:"index"                               json:"createdAt"`
	UpdatedAt       time.Time   `                                           json:"updatedAt"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OrderPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentPending
	}
	return nil
}

func (o *Order) Cancellable() bool {
	return !slices.Contains(NonCancellable, o.Status)
}
