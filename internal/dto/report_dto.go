package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type DashboardResponse struct {
	MachinesByStatus   map[string]int64 `json:"machines_by_status"`
	OpenWorksheets     int64            `json:"open_worksheets"`
	WaitingWorksheets  int64            `json:"waiting_worksheets"`
	PMDueToday         int64            `json:"pm_due_today"`
	PMOverdue          int64            `json:"pm_overdue"`
	LowStockParts      int64            `json:"low_stock_parts"`
	ActiveReservations int64            `json:"active_reservations"`
	GeneratedAt        time.Time        `json:"generated_at"`
}

type CostReportFilter struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to"   time_format:"2006-01-02"`
}

type MachineCostLine struct {
	MachineID     string          `json:"machine_id"`
	MachineName   string          `json:"machine_name"`
	Worksheets    int64           `json:"worksheets"`
	PartsCost     decimal.Decimal `json:"parts_cost"`
	DowntimeHours float64         `json:"downtime_hours"`
}

type MaintenanceCostReport struct {
	From       time.Time         `json:"from"`
	To         time.Time         `json:"to"`
	Machines   []MachineCostLine `json:"machines"`
	TotalCost  decimal.Decimal   `json:"total_cost"`
	TotalHours float64           `json:"total_downtime_hours"`
}

type ValuationLine struct {
	PartID         string          `json:"part_id"`
	SKU            string          `json:"sku"`
	Name           string          `json:"name"`
	QuantityOnHand int             `json:"quantity_on_hand"`
	Value          decimal.Decimal `json:"value"`
}

type InventoryValuation struct {
	Parts      []ValuationLine `json:"parts"`
	TotalValue decimal.Decimal `json:"total_value"`
}
