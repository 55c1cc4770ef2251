package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateWorksheetRequest struct {
	MachineID        string     `json:"machine_id"          validate:"required,uuid"`
	AssignedToUserID string     `json:"assigned_to_user_id" validate:"required,uuid"`
	Title            string     `json:"title"               validate:"omitempty,max=200"`
	Description      string     `json:"description"`
	BreakdownTime    *time.Time `json:"breakdown_time"`
	FaultCause       string     `json:"fault_cause"`
	Notes            string     `json:"notes"`
}

type UpdateWorksheetRequest struct {
	Title         *string    `json:"title"       validate:"omitempty,min=1,max=200"`
	Description   *string    `json:"description"`
	FaultCause    *string    `json:"fault_cause"`
	Notes         *string    `json:"notes"`
	BreakdownTime *time.Time `json:"breakdown_time"`
}

type WorksheetStatusRequest struct {
	Status             string     `json:"status" validate:"required"`
	RepairFinishedTime *time.Time `json:"repair_finished_time"`
}

type AddWorksheetPartRequest struct {
	PartID   string `json:"part_id"  validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
	Notes    string `json:"notes"`
}

type WorksheetFilter struct {
	MachineID  string `form:"machine_id"`
	Status     string `form:"status"`
	AssignedTo string `form:"assigned_to"`
	Pagination
}

type WorksheetResponse struct {
	ID                 string                  `json:"id"`
	MachineID          string                  `json:"machine_id"`
	MachineName        string                  `json:"machine_name,omitempty"`
	AssignedToUserID   string                  `json:"assigned_to_user_id"`
	AssignedToName     string                  `json:"assigned_to_name,omitempty"`
	Title              string                  `json:"title"`
	Description        string                  `json:"description"`
	Status             string                  `json:"status"`
	BreakdownTime      *time.Time              `json:"breakdown_time"`
	RepairFinishedTime *time.Time              `json:"repair_finished_time"`
	TotalDowntimeHours float64                 `json:"total_downtime_hours"`
	FaultCause         string                  `json:"fault_cause"`
	Notes              string                  `json:"notes"`
	ClosedAt           *time.Time              `json:"closed_at"`
	CreatedAt          time.Time               `json:"created_at"`
	Parts              []WorksheetPartResponse `json:"parts,omitempty"`
}

type WorksheetPartResponse struct {
	ID             string          `json:"id"`
	PartID         string          `json:"part_id"`
	PartSKU        string          `json:"part_sku,omitempty"`
	PartName       string          `json:"part_name,omitempty"`
	QuantityUsed   int             `json:"quantity_used"`
	UnitCostAtTime decimal.Decimal `json:"unit_cost_at_time"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Notes          string          `json:"notes"`
	AddedAt        time.Time       `json:"added_at"`
}
