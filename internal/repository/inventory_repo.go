package repository

import (
	"context"

	"zedcmms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PartFilter struct {
	Search   string
	Category string
	LowStock bool
	Offset   int
	Limit    int
}

type TransactionFilter struct {
	PartID *uuid.UUID
	Type   string
	Offset int
	Limit  int
}

// LedgerBalance pairs a part's stored on-hand quantity with the signed sum
// of its ledger rows.
type LedgerBalance struct {
	PartID         uuid.UUID
	SKU            string
	Name           string
	QuantityOnHand int
	LedgerTotal    int
}

// InventoryRepository covers suppliers, parts, stock levels, the stock
// ledger and FIFO batches.
type InventoryRepository interface {
	CreateSupplier(ctx context.Context, s *model.Supplier) error
	FindSupplierByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	SupplierNameTaken(ctx context.Context, name string) (bool, error)
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)

	CreatePartTx(tx *gorm.DB, p *model.Part) error
	FindPartByID(ctx context.Context, id uuid.UUID) (*model.Part, error)
	FindPartByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Part, error)
	FindPartBySKU(ctx context.Context, sku string) (*model.Part, error)
	SKUTaken(ctx context.Context, sku string, exclude uuid.UUID) (bool, error)
	ListParts(ctx context.Context, filter PartFilter) ([]model.Part, int64, error)
	ListAllParts(ctx context.Context) ([]model.Part, error)
	UpdatePartTx(tx *gorm.DB, p *model.Part) error
	DeletePartTx(tx *gorm.DB, id uuid.UUID) error
	CountLowStock(ctx context.Context) (int64, error)

	CreateLevelTx(tx *gorm.DB, l *model.InventoryLevel) error
	FindLevel(ctx context.Context, partID uuid.UUID) (*model.InventoryLevel, error)
	// LockLevelTx reads the level row with SELECT ... FOR UPDATE.
	LockLevelTx(tx *gorm.DB, partID uuid.UUID) (*model.InventoryLevel, error)
	SaveLevelTx(tx *gorm.DB, l *model.InventoryLevel) error

	CreateTransactionTx(tx *gorm.DB, t *model.StockTransaction) error
	CountTransactions(ctx context.Context, partID uuid.UUID) (int64, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]model.StockTransaction, int64, error)
	// LedgerBalances returns one row per part, or only partID when set.
	LedgerBalances(ctx context.Context, partID *uuid.UUID) ([]LedgerBalance, error)
	LedgerTotalTx(tx *gorm.DB, partID uuid.UUID) (int, error)

	CreateBatchTx(tx *gorm.DB, b *model.StockBatch) error
	// ListOpenBatchesTx returns batches with stock left, oldest first.
	ListOpenBatchesTx(tx *gorm.DB, partID uuid.UUID) ([]model.StockBatch, error)
	ListBatches(ctx context.Context, partID uuid.UUID, includeEmpty bool) ([]model.StockBatch, error)
	SaveBatchTx(tx *gorm.DB, b *model.StockBatch) error

	DB() *gorm.DB
}

type inventoryRepo struct{ db *gorm.DB }

func NewInventoryRepository(db *gorm.DB) InventoryRepository { return &inventoryRepo{db: db} }

func (r *inventoryRepo) DB() *gorm.DB { return r.db }

// ─── Suppliers ───────────────────────────────────────────────────────────────

func (r *inventoryRepo) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *inventoryRepo) FindSupplierByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error) {
	var s model.Supplier
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	return &s, err
}

func (r *inventoryRepo) SupplierNameTaken(ctx context.Context, name string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Supplier{}).Where("LOWER(name) = LOWER(?)", name).Count(&n).Error
	return n > 0, err
}

func (r *inventoryRepo) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	var out []model.Supplier
	err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// ─── Parts ───────────────────────────────────────────────────────────────────

func (r *inventoryRepo) CreatePartTx(tx *gorm.DB, p *model.Part) error {
	return tx.Omit(clause.Associations).Create(p).Error
}

func (r *inventoryRepo) FindPartByID(ctx context.Context, id uuid.UUID) (*model.Part, error) {
	return r.FindPartByIDTx(r.db.WithContext(ctx), id)
}

func (r *inventoryRepo) FindPartByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Part, error) {
	var p model.Part
	err := tx.Preload("InventoryLevel").First(&p, "id = ?", id).Error
	return &p, err
}

func (r *inventoryRepo) FindPartBySKU(ctx context.Context, sku string) (*model.Part, error) {
	var p model.Part
	err := r.db.WithContext(ctx).Preload("InventoryLevel").Where("sku = ?", sku).First(&p).Error
	return &p, err
}

func (r *inventoryRepo) SKUTaken(ctx context.Context, sku string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Part{}).
		Where("sku = ? AND id <> ?", sku, exclude).Count(&n).Error
	return n > 0, err
}

func (r *inventoryRepo) ListParts(ctx context.Context, f PartFilter) ([]model.Part, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Part{})
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("LOWER(parts.name) LIKE LOWER(?) OR LOWER(parts.sku) LIKE LOWER(?)", like, like)
	}
	if f.Category != "" {
		q = q.Where("parts.category = ?", f.Category)
	}
	if f.LowStock {
		q = q.Joins("JOIN inventory_levels ON inventory_levels.part_id = parts.id").
			Where("inventory_levels.quantity_on_hand <= parts.safety_stock")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var parts []model.Part
	err := q.Preload("InventoryLevel").Order("parts.name ASC").Offset(f.Offset).Limit(f.Limit).Find(&parts).Error
	return parts, total, err
}

func (r *inventoryRepo) ListAllParts(ctx context.Context) ([]model.Part, error) {
	var parts []model.Part
	err := r.db.WithContext(ctx).Preload("InventoryLevel").Order("sku ASC").Find(&parts).Error
	return parts, err
}

func (r *inventoryRepo) UpdatePartTx(tx *gorm.DB, p *model.Part) error {
	return tx.Omit(clause.Associations).Save(p).Error
}

func (r *inventoryRepo) DeletePartTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("part_id = ?", id).Delete(&model.StockBatch{}).Error; err != nil {
		return err
	}
	if err := tx.Where("part_id = ?", id).Delete(&model.InventoryLevel{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Part{}, "id = ?", id).Error
}

func (r *inventoryRepo) CountLowStock(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Part{}).
		Joins("JOIN inventory_levels ON inventory_levels.part_id = parts.id").
		Where("parts.is_active = ? AND inventory_levels.quantity_on_hand <= parts.safety_stock", true).
		Count(&n).Error
	return n, err
}

// ─── Levels ──────────────────────────────────────────────────────────────────

func (r *inventoryRepo) CreateLevelTx(tx *gorm.DB, l *model.InventoryLevel) error {
	return tx.Create(l).Error
}

func (r *inventoryRepo) FindLevel(ctx context.Context, partID uuid.UUID) (*model.InventoryLevel, error) {
	var l model.InventoryLevel
	err := r.db.WithContext(ctx).Where("part_id = ?", partID).First(&l).Error
	return &l, err
}

func (r *inventoryRepo) LockLevelTx(tx *gorm.DB, partID uuid.UUID) (*model.InventoryLevel, error) {
	var l model.InventoryLevel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("part_id = ?", partID).First(&l).Error
	return &l, err
}

func (r *inventoryRepo) SaveLevelTx(tx *gorm.DB, l *model.InventoryLevel) error {
	return tx.Model(l).Updates(map[string]any{
		"quantity_on_hand":  l.QuantityOnHand,
		"quantity_reserved": l.QuantityReserved,
		"bin_location":      l.BinLocation,
		"last_updated":      l.LastUpdated,
	}).Error
}

// ─── Ledger ──────────────────────────────────────────────────────────────────

func (r *inventoryRepo) CreateTransactionTx(tx *gorm.DB, t *model.StockTransaction) error {
	return tx.Omit("Part").Create(t).Error
}

func (r *inventoryRepo) CountTransactions(ctx context.Context, partID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.StockTransaction{}).Where("part_id = ?", partID).Count(&n).Error
	return n, err
}

func (r *inventoryRepo) ListTransactions(ctx context.Context, f TransactionFilter) ([]model.StockTransaction, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockTransaction{})
	if f.PartID != nil {
		q = q.Where("part_id = ?", *f.PartID)
	}
	if f.Type != "" {
		q = q.Where("transaction_type = ?", f.Type)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var txs []model.StockTransaction
	err := q.Preload("Part").Order("timestamp DESC").Offset(f.Offset).Limit(f.Limit).Find(&txs).Error
	return txs, total, err
}

func (r *inventoryRepo) LedgerBalances(ctx context.Context, partID *uuid.UUID) ([]LedgerBalance, error) {
	q := r.db.WithContext(ctx).Table("parts").
		Select("parts.id AS part_id, parts.sku, parts.name, inventory_levels.quantity_on_hand, " +
			"COALESCE(SUM(stock_transactions.quantity), 0) AS ledger_total").
		Joins("JOIN inventory_levels ON inventory_levels.part_id = parts.id").
		Joins("LEFT JOIN stock_transactions ON stock_transactions.part_id = parts.id").
		Group("parts.id, parts.sku, parts.name, inventory_levels.quantity_on_hand")
	if partID != nil {
		q = q.Where("parts.id = ?", *partID)
	}
	var rows []LedgerBalance
	err := q.Order("parts.sku").Scan(&rows).Error
	return rows, err
}

func (r *inventoryRepo) LedgerTotalTx(tx *gorm.DB, partID uuid.UUID) (int, error) {
	var total int
	err := tx.Model(&model.StockTransaction{}).Where("part_id = ?", partID).
		Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error
	return total, err
}

// ─── FIFO batches ────────────────────────────────────────────────────────────

func (r *inventoryRepo) CreateBatchTx(tx *gorm.DB, b *model.StockBatch) error {
	return tx.Create(b).Error
}

func (r *inventoryRepo) ListOpenBatchesTx(tx *gorm.DB, partID uuid.UUID) ([]model.StockBatch, error) {
	var batches []model.StockBatch
	err := tx.Where("part_id = ? AND quantity_remaining > 0", partID).
		Order("received_date ASC, id ASC").Find(&batches).Error
	return batches, err
}

func (r *inventoryRepo) ListBatches(ctx context.Context, partID uuid.UUID, includeEmpty bool) ([]model.StockBatch, error) {
	q := r.db.WithContext(ctx).Where("part_id = ?", partID)
	if !includeEmpty {
		q = q.Where("quantity_remaining > 0")
	}
	var batches []model.StockBatch
	err := q.Order("received_date ASC, id ASC").Find(&batches).Error
	return batches, err
}

func (r *inventoryRepo) SaveBatchTx(tx *gorm.DB, b *model.StockBatch) error {
	return tx.Model(b).Update("quantity_remaining", b.QuantityRemaining).Error
}
