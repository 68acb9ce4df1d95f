package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Review struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"                                   json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_user_product" json:"userId"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_reviews_user_product;index" json:"productId"`
	OrderID      uuid.UUID `gorm:"type:uuid;not null"                                     json:"orderId"`
	User         *User     `gorm:"foreignKey:UserID"                                      json:"user,omitempty"`
	Rating       int       `gorm:"not null"                                               json:"rating"`
	Title        string    `gorm:"size:200"                                               json:"title,omitempty"`
	Comment      string    `gorm:"size:1000;not null"                                     json:"comment"`
	IsVerified   bool      `gorm:"not null"                                               json:"isVerified"`
	IsApproved   bool      `gorm:"not null;index"                                         json:"isApproved"`
	HelpfulCount int       `gorm:"not null;default:0"                                     json:"helpfulCount"`
	CreatedAt    time.Time `gorm:"index"                                                  json:"createdAt"`
	UpdatedAt    time.Time `                                                              json:"updatedAt"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ReviewVote records one account marking a review as helpful.
type ReviewVote struct {
	ReviewID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}
