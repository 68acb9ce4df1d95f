package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"            json:"id"`
	FirstName         string     `gorm:"size:50;not null"                json:"firstName"`
	LastName          string     `gorm:"size:50;not null"                json:"lastName"`
	Email             string     `gorm:"size:255;uniqueIndex;not null"   json:"email"`
	PasswordHash      string     `gorm:"not null"                        json:"-"`
	Phone             string     `gorm:"size:30"                         json:"phone,omitempty"`
	Role              string     `gorm:"size:10;not null;default:user"   json:"role"`
	IsActive          bool       `gorm:"not null"                        json:"isActive"`
	EmailVerified     bool       `gorm:"not null"                        json:"emailVerified"`
	LastLoginAt       *time.Time `                                       json:"lastLogin,omitempty"`
	PasswordChangedAt *time.Time `                                       json:"-"`
	CreatedAt         time.Time  `                                       json:"createdAt"`
	UpdatedAt         time.Time  `                                       json:"updatedAt"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at iat. Second precision, like the iat claim.
func (u *User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.Unix() > iat.Unix()
}

type Category struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"          json:"id"`
	Name        string     `gorm:"size:50;not null"              json:"name"`
	Slug        string     `gorm:"size:60;uniqueIndex;not null"  json:"slug"`
	Description string     `gorm:"size:500"                      json:"description,omitempty"`
	Image       string     `                                     json:"image,omitempty"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index"               json:"parentId,omitempty"`
	IsActive    bool       `gorm:"not null"                      json:"isActive"`
	SortOrder   int        `gorm:"not null;default:0"            json:"sortOrder"`
	CreatedAt   time.Time  `                                     json:"createdAt"`
	UpdatedAt   time.Time  `                                     json:"updatedAt"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// OrderSequence holds the last order number handed out for a UTC day.
type OrderSequence struct {
	Day   string `gorm:"size:6;primaryKey"`
	Value int64  `gorm:"not null"`
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Category{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Review{},
		&ReviewVote{},
		&OrderSequence{},
	)
}
