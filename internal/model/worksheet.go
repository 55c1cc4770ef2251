package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Worksheet states. Transitions only move forward.
const (
	WorksheetOpen    = "Open"
	WorksheetWaiting = "Waiting for Parts"
	WorksheetClosed  = "Closed"
)

// Worksheet is a repair work order for a machine.
type Worksheet struct {
	Base
	MachineID          uuid.UUID `gorm:"type:uuid;not null;index"`
	AssignedToUserID   uuid.UUID `gorm:"type:uuid;not null;index"`
	Title              string    `gorm:"not null"`
	Description        string
	Status             string `gorm:"type:varchar(30);not null;default:'Open';index"`
	BreakdownTime      *time.Time
	RepairFinishedTime *time.Time
	TotalDowntimeHours float64 `gorm:"not null;default:0"`
	FaultCause         string
	Notes              string
	ClosedAt           *time.Time
	Version            int `gorm:"not null;default:1"`

	Machine      *Machine        `gorm:"foreignKey:MachineID"`
	AssignedUser *User           `gorm:"foreignKey:AssignedToUserID"`
	Parts        []WorksheetPart `gorm:"foreignKey:WorksheetID"`
}

func (Worksheet) TableName() string { return "worksheets" }

type WorksheetPart struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WorksheetID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	PartID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	QuantityUsed   int             `gorm:"not null;check:quantity_used > 0"`
	UnitCostAtTime decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Notes          string
	AddedAt        time.Time `gorm:"not null"`

	Part *Part `gorm:"foreignKey:PartID"`
}

func (WorksheetPart) TableName() string { return "worksheet_parts" }
