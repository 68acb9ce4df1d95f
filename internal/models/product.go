package models

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ProductActive   = "active"
	ProductInactive = "inactive"
	ProductDraft    = "draft"
)

var ProductStatuses = []string{ProductActive, ProductInactive, ProductDraft}

func ValidProductStatus(s string) bool { return slices.Contains(ProductStatuses, s) }

type Inventory struct {
	Quantity          int  `gorm:"not null;default:0"  json:"quantity"`
	LowStockThreshold int  `gorm:"not null;default:5"  json:"lowStockThreshold"`
	TrackInventory    bool `gorm:"not null"            json:"trackInventory"`
}

type Product struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"                    json:"id"`
	Name          string          `gorm:"size:100;not null;index"                 json:"name"`
	Brand         string          `gorm:"size:50;not null;index"                  json:"brand"`
	Description   string          `gorm:"size:2000;not null"                      json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null"             json:"price"`
	OriginalPrice decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"   json:"originalPrice"`
	CategoryID    uuid.UUID       `gorm:"type:uuid;not null;index"                json:"categoryId"`
	Category      *Category       `gorm:"foreignKey:CategoryID"                   json:"category,omitempty"`
	Images        []string        `gorm:"type:text;serializer:json"               json:"images"`
	Features      []string        `gorm:"type:text;serializer:json"               json:"features"`
	Tags          []string        `gorm:"type:text;serializer:json"               json:"tags"`
	SKU           *string         `gorm:"size:64;uniqueIndex"                     json:"sku,omitempty"`
	Inventory     Inventory       `gorm:"embedded;embeddedPrefix:inventory_"      json:"inventory"`
	Status        string          `gorm:"size:10;not null;default:active;index"   json:"status"`
	IsBestseller  bool            `gorm:"not null"                                json:"isBestseller"`
	IsNew         bool            `gorm:"not null"                                json:"isNew"`
	IsFeatured    bool            `gorm:"not null"                                json:"isFeatured"`
	Rating        float64         `gorm:"not null;default:0"                      json:"rating"`
	ReviewCount   int             `gorm:"not null;default:0"                      json:"reviewCount"`
	CreatedAt     time.Time       `gorm:"index"                                   json:"createdAt"`
	UpdatedAt     time.Time       `                                               json:"updatedAt"`

	DiscountPercentage int  `gorm:"-" json:"discountPercentage"`
	InStock            bool `gorm:"-" json:"inStock"`
	LowStock           bool `gorm:"-" json:"lowStock"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProductActive
	}
	return nil
}

func (p *Product) AfterFind(*gorm.DB) error {
	p.Derive()
	return nil
}

// Derive fills the computed, non-persisted fields.
func (p *Product) Derive() {
	p.DiscountPercentage = 0
	if p.OriginalPrice.GreaterThan(p.Price) && p.OriginalPrice.IsPositive() {
		off := p.OriginalPrice.Sub(p.Price).Div(p.OriginalPrice).Mul(decimal.NewFromInt(100))
		p.DiscountPercentage = int(off.Round(0).IntPart())
	}

	inv := p.Inventory
	p.InStock = !inv.TrackInventory || inv.Quantity > 0
	p.LowStock = inv.TrackInventory && inv.Quantity > 0 && inv.Quantity <= inv.LowStockThreshold
}

// Purchasable reports whether qty units may be ordered right now.
func (p *Product) Purchasable(qty int) bool {
	return !p.Inventory.TrackInventory || p.Inventory.Quantity >= qty
}

func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
