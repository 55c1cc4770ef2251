package dto

import "time"

// ─── Production lines ────────────────────────────────────────────────────────

type CreateProductionLineRequest struct {
	Name        string  `json:"name"        validate:"required,min=1,max=100"`
	Code        *string `json:"code"        validate:"omitempty,max=30"`
	Description string  `json:"description"`
}

type UpdateProductionLineRequest struct {
	Name        *string `json:"name"        validate:"omitempty,min=1,max=100"`
	Code        *string `json:"code"        validate:"omitempty,max=30"`
	Description *string `json:"description"`
	Status      *string `json:"status"      validate:"omitempty,oneof=Active Inactive"`
}

type ProductionLineResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Code         *string `json:"code"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	MachineCount int64   `json:"machine_count"`
}

// ─── Machines ────────────────────────────────────────────────────────────────

type CreateMachineRequest struct {
	ProductionLineID string     `json:"production_line_id" validate:"required,uuid"`
	Name             string     `json:"name"               validate:"required,min=1,max=100"`
	SerialNumber     *string    `json:"serial_number"      validate:"omitempty,max=100"`
	AssetTag         *string    `json:"asset_tag"          validate:"omitempty,max=100"`
	Model            string     `json:"model"`
	Manufacturer     string     `json:"manufacturer"`
	InstallDate      *time.Time `json:"install_date"`
	OperatingHours   float64    `json:"operating_hours"    validate:"min=0"`
	NextServiceDate  *time.Time `json:"next_service_date"`
	CriticalityLevel string     `json:"criticality_level"  validate:"omitempty,oneof=low normal high critical"`
}

type UpdateMachineRequest struct {
	Version          int        `json:"version"            validate:"required,min=1"`
	ProductionLineID *string    `json:"production_line_id" validate:"omitempty,uuid"`
	Name             *string    `json:"name"               validate:"omitempty,min=1,max=100"`
	SerialNumber     *string    `json:"serial_number"`
	AssetTag         *string    `json:"asset_tag"`
	Model            *string    `json:"model"`
	Manufacturer     *string    `json:"manufacturer"`
	InstallDate      *time.Time `json:"install_date"`
	LastServiceDate  *time.Time `json:"last_service_date"`
	NextServiceDate  *time.Time `json:"next_service_date"`
	CriticalityLevel *string    `json:"criticality_level"  validate:"omitempty,oneof=low normal high critical"`
}

type MachineStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason"`
}

type OperatingHoursRequest struct {
	Hours float64 `json:"hours" validate:"min=0"`
}

type ScrapMachineRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type MachineFilter struct {
	ProductionLineID string `form:"production_line_id"`
	Status           string `form:"status"`
	Search           string `form:"search"`
	Pagination
}

type MachineResponse struct {
	ID                 string     `json:"id"`
	ProductionLineID   string     `json:"production_line_id"`
	ProductionLineName string     `json:"production_line_name,omitempty"`
	Name               string     `json:"name"`
	SerialNumber       *string    `json:"serial_number"`
	AssetTag           *string    `json:"asset_tag"`
	Model              string     `json:"model"`
	Manufacturer       string     `json:"manufacturer"`
	InstallDate        *time.Time `json:"install_date"`
	Status             string     `json:"status"`
	OperatingHours     float64    `json:"operating_hours"`
	LastServiceDate    *time.Time `json:"last_service_date"`
	NextServiceDate    *time.Time `json:"next_service_date"`
	CriticalityLevel   string     `json:"criticality_level"`
	Version            int        `json:"version"`
}

type AssetHistoryResponse struct {
	ID          string    `json:"id"`
	ActionType  string    `json:"action_type"`
	Description string    `json:"description"`
	UserID      *string   `json:"user_id"`
	Timestamp   time.Time `json:"timestamp"`
}
