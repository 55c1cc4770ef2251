package model

import (
	"time"

	"github.com/google/uuid"
)

// Machine states.
const (
	MachineActive      = "Active"
	MachineStopped     = "Stopped"
	MachineMaintenance = "Maintenance"
	MachineScrapped    = "Scrapped"
)

// Asset history action types.
const (
	AssetActionCreated       = "created"
	AssetActionUpdated       = "updated"
	AssetActionStatusChanged = "status_changed"
	AssetActionHoursUpdated  = "hours_updated"
	AssetActionScrapped      = "scrapped"
)

type ProductionLine struct {
	Base
	Name        string  `gorm:"uniqueIndex;not null"`
	Code        *string `gorm:"uniqueIndex"`
	Description string
	Status      string `gorm:"type:varchar(20);not null;default:'Active'"`

	Machines []Machine `gorm:"foreignKey:ProductionLineID"`
}

func (ProductionLine) TableName() string { return "production_lines" }

// Machine is a maintained asset on a production line. Version guards
// concurrent edits.
type Machine struct {
	Base
	ProductionLineID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name             string    `gorm:"not null;index"`
	SerialNumber     *string   `gorm:"uniqueIndex"`
	AssetTag         *string   `gorm:"uniqueIndex"`
	Model            string
	Manufacturer     string
	InstallDate      *time.Time
	Status           string  `gorm:"type:varchar(20);not null;default:'Active';index"`
	OperatingHours   float64 `gorm:"not null;default:0"`
	LastServiceDate  *time.Time
	NextServiceDate  *time.Time `gorm:"index"`
	CriticalityLevel string     `gorm:"type:varchar(20);not null;default:'normal'"`
	Version          int        `gorm:"not null;default:1"`

	ProductionLine *ProductionLine `gorm:"foreignKey:ProductionLineID"`
}

func (Machine) TableName() string { return "machines" }

type AssetHistory struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MachineID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ActionType  string     `gorm:"type:varchar(30);not null"`
	Description string
	UserID      *uuid.UUID `gorm:"type:uuid"`
	Timestamp   time.Time  `gorm:"not null"`
}

func (AssetHistory) TableName() string { return "asset_history" }
