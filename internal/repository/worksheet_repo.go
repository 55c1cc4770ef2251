package repository

import (
	"context"
	"time"

	"zedcmms/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WorksheetFilter struct {
	MachineID  *uuid.UUID
	AssignedTo *uuid.UUID
	Status     string
	Statuses   []string
	Offset     int
	Limit      int
}

// MachineCostRow aggregates closed-worksheet cost per machine.
type MachineCostRow struct {
	MachineID     uuid.UUID
	MachineName   string
	Worksheets    int64
	DowntimeHours float64
}

type WorksheetPartCostRow struct {
	MachineID      uuid.UUID
	QuantityUsed   int
	UnitCostAtTime decimal.Decimal
}

type WorksheetRepository interface {
	CreateTx(tx *gorm.DB, w *model.Worksheet) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Worksheet, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Worksheet, error)
	List(ctx context.Context, filter WorksheetFilter) ([]model.Worksheet, int64, error)
	UpdateTx(tx *gorm.DB, w *model.Worksheet) error
	CreatePartTx(tx *gorm.DB, p *model.WorksheetPart) error
	ListParts(ctx context.Context, worksheetID uuid.UUID) ([]model.WorksheetPart, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	// CostsByMachine returns downtime and worksheet counts for worksheets
	// created in [from, to).
	CostsByMachine(ctx context.Context, from, to time.Time) ([]MachineCostRow, error)
	PartsUsedBetween(ctx context.Context, from, to time.Time) ([]WorksheetPartCostRow, error)
	DB() *gorm.DB
}

type worksheetRepo struct{ db *gorm.DB }

func NewWorksheetRepository(db *gorm.DB) WorksheetRepository { return &worksheetRepo{db: db} }

func (r *worksheetRepo) DB() *gorm.DB { return r.db }

func (r *worksheetRepo) CreateTx(tx *gorm.DB, w *model.Worksheet) error {
	return tx.Omit(clause.Associations).Create(w).Error
}

func (r *worksheetRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Worksheet, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *worksheetRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Worksheet, error) {
	var w model.Worksheet
	err := tx.Preload("Machine").Preload("AssignedUser").Preload("Parts", func(db *gorm.DB) *gorm.DB {
		return db.Order("added_at ASC")
	}).Preload("Parts.Part").First(&w, "id = ?", id).Error
	return &w, err
}

func (r *worksheetRepo) List(ctx context.Context, f WorksheetFilter) ([]model.Worksheet, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Worksheet{})
	if f.MachineID != nil {
		q = q.Where("machine_id = ?", *f.MachineID)
	}
	if f.AssignedTo != nil {
		q = q.Where("assigned_to_user_id = ?", *f.AssignedTo)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Preload("Machine").Preload("AssignedUser").Order("created_at DESC").Offset(f.Offset)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []model.Worksheet
	err := q.Find(&out).Error
	return out, total, err
}

func (r *worksheetRepo) UpdateTx(tx *gorm.DB, w *model.Worksheet) error {
	return tx.Omit(clause.Associations).Save(w).Error
}

func (r *worksheetRepo) CreatePartTx(tx *gorm.DB, p *model.WorksheetPart) error {
	return tx.Omit("Part").Create(p).Error
}

func (r *worksheetRepo) ListParts(ctx context.Context, worksheetID uuid.UUID) ([]model.WorksheetPart, error) {
	var out []model.WorksheetPart
	err := r.db.WithContext(ctx).Preload("Part").Where("worksheet_id = ?", worksheetID).
		Order("added_at ASC").Find(&out).Error
	return out, err
}

func (r *worksheetRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Worksheet{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *worksheetRepo) CostsByMachine(ctx context.Context, from, to time.Time) ([]MachineCostRow, error) {
	var rows []MachineCostRow
	err := r.db.WithContext(ctx).Model(&model.Worksheet{}).
		Select("worksheets.machine_id, machines.name AS machine_name, COUNT(*) AS worksheets, COALESCE(SUM(worksheets.total_downtime_hours), 0) AS downtime_hours").
		Joins("JOIN machines ON machines.id = worksheets.machine_id").
		Where("worksheets.created_at >= ? AND worksheets.created_at < ?", from, to).
		Group("worksheets.machine_id, machines.name").
		Order("machines.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *worksheetRepo) PartsUsedBetween(ctx context.Context, from, to time.Time) ([]WorksheetPartCostRow, error) {
	var rows []WorksheetPartCostRow
	err := r.db.WithContext(ctx).Model(&model.WorksheetPart{}).
		Select("worksheets.machine_id, worksheet_parts.quantity_used, worksheet_parts.unit_cost_at_time").
		Joins("JOIN worksheets ON worksheets.id = worksheet_parts.worksheet_id").
		Where("worksheets.created_at >= ? AND worksheets.created_at < ?", from, to).
		Scan(&rows).Error
	return rows, err
}
