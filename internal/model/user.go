package model

import (
	"github.com/google/uuid"
)

// User stores system users. Users are deactivated, never deleted.
type User struct {
	Base
	Username           string    `gorm:"uniqueIndex;not null"`
	FullName           string    `gorm:"not null;default:''"`
	Email              *string   `gorm:"uniqueIndex"`
	PasswordHash       string    `gorm:"not null"`
	RoleID             uuid.UUID `gorm:"type:uuid;not null;index"`
	IsActive           bool      `gorm:"not null;default:true"`
	LanguagePreference string    `gorm:"type:varchar(5);not null;default:'hu'"`
	MustChangePassword bool      `gorm:"not null;default:false"`

	Role *Role `gorm:"foreignKey:RoleID"`
}

func (User) TableName() string { return "users" }

// DisplayName prefers the full name over the login name.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
