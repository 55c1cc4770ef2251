package model

// Role groups users under a permission map. Level orders roles from least to
// most privileged; equal levels are peers.
type Role struct {
	Base
	Name        string          `gorm:"uniqueIndex;not null"`
	DisplayName string          `gorm:"not null;default:''"`
	Level       int             `gorm:"not null;default:1"`
	Permissions map[string]bool `gorm:"type:text;serializer:json"`
}

func (Role) TableName() string { return "roles" }

// Has reports whether the role grants key.
func (r *Role) Has(key string) bool {
	if r == nil || r.Permissions == nil {
		return false
	}
	return r.Permissions[key]
}
