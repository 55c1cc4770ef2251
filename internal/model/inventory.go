package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stock transaction types.
const (
	TxReceived   = "received"
	TxIssued     = "issued"
	TxAdjustment = "adjustment"
)

type Supplier struct {
	Base
	Name          string `gorm:"uniqueIndex;not null"`
	ContactPerson string
	Email         string
	Phone         string
	Address       string
}

func (Supplier) TableName() string { return "suppliers" }

// Part is a spare part identified by a unique SKU.
type Part struct {
	Base
	SKU             string          `gorm:"column:sku;uniqueIndex;not null"`
	Name            string          `gorm:"not null;index"`
	Category        string          `gorm:"index"`
	Description     string
	Unit            string          `gorm:"type:varchar(20);not null;default:'db'"`
	BuyPrice        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	SellPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	SafetyStock     int             `gorm:"not null;default:0"`
	ReorderQuantity int             `gorm:"not null;default:0"`
	SupplierID      *uuid.UUID      `gorm:"type:uuid;index"`
	IsActive        bool            `gorm:"not null;default:true"`

	Supplier       *Supplier       `gorm:"foreignKey:SupplierID"`
	InventoryLevel *InventoryLevel `gorm:"foreignKey:PartID"`
}

func (Part) TableName() string { return "parts" }

// InventoryLevel holds the on-hand and reserved counters of one part.
// Both counters are constrained non-negative at the database level.
type InventoryLevel struct {
	Base
	PartID           uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	QuantityOnHand   int       `gorm:"not null;default:0;check:quantity_on_hand >= 0"`
	QuantityReserved int       `gorm:"not null;default:0;check:quantity_reserved >= 0"`
	BinLocation      string
	LastUpdated      time.Time
}

func (InventoryLevel) TableName() string { return "inventory_levels" }

// Available is on-hand minus reserved, floored at zero.
func (l *InventoryLevel) Available() int {
	if a := l.QuantityOnHand - l.QuantityReserved; a > 0 {
		return a
	}
	return 0
}

// StockTransaction is the append-only stock ledger. Quantity is signed.
type StockTransaction struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PartID          uuid.UUID  `gorm:"type:uuid;not null;index"`
	TransactionType string     `gorm:"type:varchar(20);not null;index"`
	Quantity        int        `gorm:"not null;check:quantity <> 0"`
	ReferenceType   string     `gorm:"type:varchar(30)"`
	ReferenceID     *uuid.UUID `gorm:"type:uuid"`
	UserID          *uuid.UUID `gorm:"type:uuid"`
	Notes           string
	Timestamp       time.Time `gorm:"not null;index"`

	Part *Part `gorm:"foreignKey:PartID"`
}

func (StockTransaction) TableName() string { return "stock_transactions" }

// StockBatch is one FIFO receipt lot.
type StockBatch struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PartID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	Quantity           int             `gorm:"not null"`
	QuantityRemaining  int             `gorm:"not null;check:quantity_remaining >= 0"`
	UnitPrice          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ReceivedDate       time.Time       `gorm:"not null;index"`
	SupplierID         *uuid.UUID      `gorm:"type:uuid"`
	InvoiceNumber      string
	Notes              string
	StockTransactionID *uuid.UUID `gorm:"type:uuid"`
}

func (StockBatch) TableName() string { return "stock_batches" }

// StockReservation is a temporary hold on stock until release or expiry.
type StockReservation struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PartID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	WorksheetID      *uuid.UUID `gorm:"type:uuid;index"`
	QuantityReserved int        `gorm:"not null;check:quantity_reserved > 0"`
	ReservedAt       time.Time  `gorm:"not null"`
	ExpiresAt        time.Time  `gorm:"not null;index"`
	UserID           *uuid.UUID `gorm:"type:uuid"`
	Notes            string
}

func (StockReservation) TableName() string { return "stock_reservations" }
