package model

import (
	"time"

	"github.com/google/uuid"
)

// PM task types.
const (
	PMRecurring = "recurring"
	PMOneTime   = "one_time"
)

// PM task states.
const (
	PMPending    = "pending"
	PMDueToday   = "due_today"
	PMOverdue    = "overdue"
	PMInProgress = "in_progress"
	PMCompleted  = "completed"
	PMCancelled  = "cancelled"
)

// PM execution outcomes.
const (
	PMExecCompleted = "completed"
	PMExecSkipped   = "skipped"
	PMExecPending   = "pending"
)

// Priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// PMTask is a preventive maintenance task bound to a machine or a location.
type PMTask struct {
	Base
	MachineID                *uuid.UUID `gorm:"type:uuid;index"`
	Location                 string
	TaskName                 string `gorm:"not null"`
	TaskDescription          string
	TaskType                 string `gorm:"type:varchar(20);not null;default:'recurring'"`
	FrequencyDays            int    `gorm:"not null;default:0"`
	LastExecutedDate         *time.Time
	NextDueDate              *time.Time `gorm:"index"`
	DueDate                  *time.Time
	IsActive                 bool       `gorm:"not null;default:true;index"`
	AssignedToUserID         *uuid.UUID `gorm:"type:uuid;index"`
	Priority                 string     `gorm:"type:varchar(10);not null;default:'normal'"`
	Status                   string     `gorm:"type:varchar(20);not null;default:'pending';index"`
	EstimatedDurationMinutes int        `gorm:"not null;default:0"`
	CreatedByUserID          *uuid.UUID `gorm:"type:uuid"`
	Version                  int        `gorm:"not null;default:1"`

	Machine *Machine `gorm:"foreignKey:MachineID"`
}

func (PMTask) TableName() string { return "pm_tasks" }

type PMHistory struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PMTaskID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	ExecutedDate      time.Time  `gorm:"not null"`
	AssignedToUserID  *uuid.UUID `gorm:"type:uuid"`
	CompletedByUserID *uuid.UUID `gorm:"type:uuid"`
	CompletionStatus  string     `gorm:"type:varchar(20);not null"`
	Notes             string
	DurationMinutes   int        `gorm:"not null;default:0"`
	WorksheetID       *uuid.UUID `gorm:"type:uuid"`
}

func (PMHistory) TableName() string { return "pm_history" }
