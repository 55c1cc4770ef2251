package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification types.
const (
	NotifyWorksheetAssigned = "worksheet_assigned"
	NotifyWorksheetStatus   = "worksheet_status"
	NotifyPMAssigned        = "pm_assigned"
	NotifyPMDue             = "pm_due"
	NotifyPMCompleted       = "pm_completed"
	NotifyLowStock          = "low_stock"
)

type Notification struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Type       string     `gorm:"type:varchar(30);not null"`
	Title      string     `gorm:"not null"`
	Message    string
	EntityType string     `gorm:"type:varchar(30)"`
	EntityID   *uuid.UUID `gorm:"type:uuid"`
	IsRead     bool       `gorm:"not null;default:false;index"`
	CreatedAt  time.Time  `gorm:"not null;index"`
}

func (Notification) TableName() string { return "notifications" }
