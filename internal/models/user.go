package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Capabilities are the permissions a role carries.
type Capabilities struct {
	ManageUsers bool
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

func (r Role) Capabilities() Capabilities {
	switch r {
	case RoleAdmin:
		return Capabilities{ManageUsers: true}
	case RoleUser:
		return Capabilities{}
	default:
		return Capabilities{}
	}
}

type User struct {
	ID           string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username     string  `gorm:"type:varchar(20);uniqueIndex;not null" json:"username"`
	PasswordHash string  `gorm:"column:hashed_password;type:varchar(256);not null" json:"-"`
	Email        *string `gorm:"type:varchar(50);uniqueIndex" json:"email"`
	Role         Role    `gorm:"type:varchar(5);not null" json:"role"`
	IsActive     bool    `gorm:"not null" json:"is_active"`
	// FirstUser is true only on the bootstrap admin and NULL elsewhere;
	// the unique index makes a second bootstrap insert fail.
	FirstUser *bool     `gorm:"uniqueIndex" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role.Capabilities().ManageUsers
}
