package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	AdminRole Role = "ADMIN"
	UserRole  Role = "USER"
)

type User struct {
	ID               string     `json:"id" gorm:"primaryKey;type:uuid"`
	Email            string     `json:"email" gorm:"uniqueIndex" binding:"required,email"`
	Password         string     `json:"-"`
	UserName         string     `json:"username"`
	Role             Role       `json:"role" gorm:"type:varchar(20);default:'USER'"`
	Bio              string     `json:"bio"`
	ProfilePicture   string     `json:"profilePicture"`
	StripeCustomerId string     `json:"stripeCustomerId,omitempty"`
	Enable           bool       `json:"enable" gorm:"default:true"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	DeletedAt        *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

type UserCreate struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	UserName string `json:"username"`
}

type UserLogin struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
