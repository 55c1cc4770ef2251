package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Suppliers ───────────────────────────────────────────────────────────────

type CreateSupplierRequest struct {
	Name          string `json:"name"  validate:"required,min=1,max=150"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

type SupplierResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

// ─── Parts ───────────────────────────────────────────────────────────────────

type CreatePartRequest struct {
	SKU             string          `json:"sku"              validate:"required"`
	Name            string          `json:"name"             validate:"required,min=1,max=150"`
	Category        string          `json:"category"`
	Description     string          `json:"description"`
	Unit            string          `json:"unit"             validate:"omitempty,max=20"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	SafetyStock     int             `json:"safety_stock"     validate:"min=0"`
	ReorderQuantity int             `json:"reorder_quantity" validate:"min=0"`
	SupplierID      *string         `json:"supplier_id"      validate:"omitempty,uuid"`
	BinLocation     string          `json:"bin_location"`
	InitialQuantity int             `json:"initial_quantity" validate:"min=0"`
}

type UpdatePartRequest struct {
	SKU             *string          `json:"sku"`
	Name            *string          `json:"name"             validate:"omitempty,min=1,max=150"`
	Category        *string          `json:"category"`
	Description     *string          `json:"description"`
	Unit            *string          `json:"unit"             validate:"omitempty,max=20"`
	BuyPrice        *decimal.Decimal `json:"buy_price"`
	SellPrice       *decimal.Decimal `json:"sell_price"`
	SafetyStock     *int             `json:"safety_stock"     validate:"omitempty,min=0"`
	ReorderQuantity *int             `json:"reorder_quantity" validate:"omitempty,min=0"`
	SupplierID      *string          `json:"supplier_id"      validate:"omitempty,uuid"`
	BinLocation     *string          `json:"bin_location"`
	IsActive        *bool            `json:"is_active"`
}

type PartFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	LowStock bool   `form:"low_stock"`
	Pagination
}

type PartResponse struct {
	ID               string          `json:"id"`
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	Category         string          `json:"category"`
	Description      string          `json:"description"`
	Unit             string          `json:"unit"`
	BuyPrice         decimal.Decimal `json:"buy_price"`
	SellPrice        decimal.Decimal `json:"sell_price"`
	SafetyStock      int             `json:"safety_stock"`
	ReorderQuantity  int             `json:"reorder_quantity"`
	SupplierID       *string         `json:"supplier_id"`
	IsActive         bool            `json:"is_active"`
	QuantityOnHand   int             `json:"quantity_on_hand"`
	QuantityReserved int             `json:"quantity_reserved"`
	BinLocation      string          `json:"bin_location"`
	LowStock         bool            `json:"low_stock"`
}

type InventoryLevelResponse struct {
	PartID           string    `json:"part_id"`
	QuantityOnHand   int       `json:"quantity_on_hand"`
	QuantityReserved int       `json:"quantity_reserved"`
	Available        int       `json:"available"`
	SafetyStock      int       `json:"safety_stock"`
	LowStock         bool      `json:"low_stock"`
	BinLocation      string    `json:"bin_location"`
	LastUpdated      time.Time `json:"last_updated"`
}

// InventoryDiscrepancy is a part whose on-hand quantity disagrees with the
// sum of its stock ledger.
type InventoryDiscrepancy struct {
	PartID         string `json:"part_id"`
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	QuantityOnHand int    `json:"quantity_on_hand"`
	LedgerTotal    int    `json:"ledger_total"`
	Difference     int    `json:"difference"`
}

// ─── Stock movements ─────────────────────────────────────────────────────────

type ReceiveStockRequest struct {
	Quantity      int              `json:"quantity"       validate:"required,gt=0"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	SupplierID    *string          `json:"supplier_id"    validate:"omitempty,uuid"`
	InvoiceNumber string           `json:"invoice_number"`
	Notes         string           `json:"notes"`
}

type AdjustStockRequest struct {
	Quantity int    `json:"quantity" validate:"required"`
	Notes    string `json:"notes"`
}

type TransactionFilter struct {
	PartID string `form:"part_id"`
	Type   string `form:"type"`
	Pagination
}

type StockTransactionResponse struct {
	ID              string    `json:"id"`
	PartID          string    `json:"part_id"`
	PartSKU         string    `json:"part_sku,omitempty"`
	TransactionType string    `json:"transaction_type"`
	Quantity        int       `json:"quantity"`
	ReferenceType   string    `json:"reference_type"`
	ReferenceID     *string   `json:"reference_id"`
	UserID          *string   `json:"user_id"`
	Notes           string    `json:"notes"`
	Timestamp       time.Time `json:"timestamp"`
}

type StockBatchResponse struct {
	ID                string          `json:"id"`
	Quantity          int             `json:"quantity"`
	QuantityRemaining int             `json:"quantity_remaining"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	ReceivedDate      time.Time       `json:"received_date"`
	InvoiceNumber     string          `json:"invoice_number"`
}

// ─── Reservations ────────────────────────────────────────────────────────────

type ReserveStockRequest struct {
	PartID      string  `json:"part_id"      validate:"required,uuid"`
	Quantity    int     `json:"quantity"     validate:"required,gt=0"`
	WorksheetID *string `json:"worksheet_id" validate:"omitempty,uuid"`
	TTLHours    int     `json:"ttl_hours"    validate:"min=0"`
	Notes       string  `json:"notes"`
}

type ReservationFilter struct {
	PartID      string `form:"part_id"`
	WorksheetID string `form:"worksheet_id"`
	ActiveOnly  bool   `form:"active_only"`
}

type ReservationResponse struct {
	ID               string    `json:"id"`
	PartID           string    `json:"part_id"`
	WorksheetID      *string   `json:"worksheet_id"`
	QuantityReserved int       `json:"quantity_reserved"`
	ReservedAt       time.Time `json:"reserved_at"`
	ExpiresAt        time.Time `json:"expires_at"`
	UserID           *string   `json:"user_id"`
	Notes            string    `json:"notes"`
	Expired          bool      `json:"expired"`
}

type CleanupResponse struct {
	Removed int `json:"removed"`
}
