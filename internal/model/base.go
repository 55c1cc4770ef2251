package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the uuid primary key and timestamps shared by every table.
// The key is generated client-side so the same models work on PostgreSQL
// and on the SQLite databases used in tests.
type Base struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func newID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error         { newID(&a.ID); return nil }
func (h *AssetHistory) BeforeCreate(_ *gorm.DB) error     { newID(&h.ID); return nil }
func (t *StockTransaction) BeforeCreate(_ *gorm.DB) error { newID(&t.ID); return nil }
func (b *StockBatch) BeforeCreate(_ *gorm.DB) error       { newID(&b.ID); return nil }
func (r *StockReservation) BeforeCreate(_ *gorm.DB) error { newID(&r.ID); return nil }
func (p *WorksheetPart) BeforeCreate(_ *gorm.DB) error    { newID(&p.ID); return nil }
func (h *PMHistory) BeforeCreate(_ *gorm.DB) error        { newID(&h.ID); return nil }
func (n *Notification) BeforeCreate(_ *gorm.DB) error     { newID(&n.ID); return nil }
