package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditLog is the append-only trail of mutations performed through services.
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index"`
	ActionType string         `gorm:"type:varchar(50);not null;index"`
	EntityType string         `gorm:"type:varchar(50);not null;index:idx_audit_entity"`
	EntityID   string         `gorm:"type:varchar(64);index:idx_audit_entity"`
	Changes    map[string]any `gorm:"type:text;serializer:json"`
	Timestamp  time.Time      `gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }
