package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/radiant_bloom/internal/models"
)

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items"`
	ShippingAddress *models.Address    `json:"shippingAddress"`
	BillingAddress  *models.Address    `json:"billingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	Notes           string             `json:"notes"`
}

type UpdateOrderStatusRequest struct {
	Status         string  `json:"status"`
	TrackingNumber string  `json:"trackingNumber"`
	Notes          *string `json:"notes"`
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus"`
}

type DeclineOrderRequest struct {
	Reason string `json:"reason"`
}

type OrderListFilter struct {
	Status        string
	PaymentStatus string
	From          *time.Time
	To            *time.Time
	Search        string
}

type OrderStats struct {
	TotalOrders       int64            `json:"totalOrders"`
	TotalRevenue      decimal.Decimal  `json:"totalRevenue"`
	AverageOrderValue decimal.Decimal  `json:"averageOrderValue"`
	OrdersByStatus    map[string]int64 `json:"ordersByStatus"`
	RecentOrders      []models.Order   `json:"recentOrders"`
}

// OrderDecision is returned by accept and decline together with the
// notification that was pushed to the customer.
type OrderDecision struct {
	Order        *models.Order      `json:"order"`
	Notification NotificationResult `json:"notification"`
}

type NotificationResult struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	UserEmail string `json:"userEmail,omitempty"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Title   string `json:"title"`
	Comment string `json:"comment"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title"`
	Comment *string `json:"comment"`
}

type ReviewApprovalRequest struct {
	IsApproved bool `json:"isApproved"`
}

type CanReviewResult struct {
	CanReview bool       `json:"canReview"`
	OrderID   *uuid.UUID `json:"orderId,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

type RatingSummary struct {
	AverageRating float64       `json:"averageRating"`
	TotalReviews  int64         `json:"totalReviews"`
	Distribution  map[int]int64 `json:"distribution"`
}

type HelpfulResult struct {
	HelpfulCount int  `json:"helpfulCount"`
	Voted        bool `json:"voted"`
}

type ProductRequest struct {
	Name              *string          `json:"name"`
	Brand             *string          `json:"brand"`
	Description       *string          `json:"description"`
	Price             *decimal.Decimal `json:"price"`
	OriginalPrice     *decimal.Decimal `json:"originalPrice"`
	CategoryID        *uuid.UUID       `json:"category"`
	Images            []string         `json:"images"`
	Features          []string         `json:"features"`
	Tags              []string         `json:"tags"`
	SKU               *string          `json:"sku"`
	Quantity          *int             `json:"quantity"`
	LowStockThreshold *int             `json:"lowStockThreshold"`
	TrackInventory    *bool            `json:"trackInventory"`
	Status            *string          `json:"status"`
	IsBestseller      *bool            `json:"isBestseller"`
	IsNew             *bool            `json:"isNew"`
	IsFeatured        *bool            `json:"isFeatured"`
}

type ProductQuery struct {
	Search       string
	Category     string
	MinPrice     *float64
	MaxPrice     *float64
	Brand        string
	IsBestseller *bool
	IsNew        *bool
	IsFeatured   *bool
	Status       string
	SortBy       string
	SortOrder    string
}

type CategoryRequest struct {
	Name        *string    `json:"name"`
	Slug        *string    `json:"slug"`
	Description *string    `json:"description"`
	Image       *string    `json:"image"`
	ParentID    *uuid.UUID `json:"parentCategory"`
	IsActive    *bool      `json:"isActive"`
	SortOrder   *int       `json:"sortOrder"`
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type AdminUpdateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// AuthResult is what register, login and password change hand back.
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

type Dashboard struct {
	Orders           OrderStats `json:"orders"`
	TotalCustomers   int64      `json:"totalCustomers"`
	TotalProducts    int64      `json:"totalProducts"`
	LowStockProducts int64      `json:"lowStockProducts"`
}
