package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

type User struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	Email            string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash     string         `gorm:"not null" json:"-"`
	Name             string         `json:"name"`
	Phone            string         `gorm:"index" json:"phone"`
	Address          string         `json:"address"`
	Role             UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"`
	RefreshTokenHash string         `json:"-"` // SHA-256 of the current refresh token; empty after logout
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Orders []Order `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}
