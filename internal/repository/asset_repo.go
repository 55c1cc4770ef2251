package repository

import (
	"context"
	"time"

	"zedcmms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MachineFilter struct {
	ProductionLineID *uuid.UUID
	Status           string
	Search           string
	Offset           int
	Limit            int
}

// ProductionLineWithCount is a line plus the number of machines on it.
type ProductionLineWithCount struct {
	model.ProductionLine
	MachineCount int64
}

type AssetRepository interface {
	CreateLine(ctx context.Context, l *model.ProductionLine) error
	FindLineByID(ctx context.Context, id uuid.UUID) (*model.ProductionLine, error)
	LineNameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error)
	LineCodeTaken(ctx context.Context, code string, exclude uuid.UUID) (bool, error)
	ListLines(ctx context.Context) ([]ProductionLineWithCount, error)
	UpdateLine(ctx context.Context, l *model.ProductionLine) error
	DeleteLine(ctx context.Context, id uuid.UUID) error
	CountMachinesInLine(ctx context.Context, lineID uuid.UUID) (int64, error)

	CreateMachineTx(tx *gorm.DB, m *model.Machine) error
	FindMachineByID(ctx context.Context, id uuid.UUID) (*model.Machine, error)
	FindMachineByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Machine, error)
	SerialTaken(ctx context.Context, serial string, exclude uuid.UUID) (bool, error)
	AssetTagTaken(ctx context.Context, tag string, exclude uuid.UUID) (bool, error)
	ListMachines(ctx context.Context, filter MachineFilter) ([]model.Machine, int64, error)
	// SaveMachineVersionedTx writes m only if the stored version still equals
	// expected, bumping it. It reports whether a row was updated.
	SaveMachineVersionedTx(tx *gorm.DB, m *model.Machine, expected int) (bool, error)
	ListUpcomingService(ctx context.Context, until time.Time) ([]model.Machine, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	CountOpenWorksheets(ctx context.Context, machineID uuid.UUID) (int64, error)

	CreateHistoryTx(tx *gorm.DB, h *model.AssetHistory) error
	ListHistory(ctx context.Context, machineID uuid.UUID) ([]model.AssetHistory, error)

	DB() *gorm.DB
}

type assetRepo struct{ db *gorm.DB }

func NewAssetRepository(db *gorm.DB) AssetRepository { return &assetRepo{db: db} }

func (r *assetRepo) DB() *gorm.DB { return r.db }

func (r *assetRepo) CreateLine(ctx context.Context, l *model.ProductionLine) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *assetRepo) FindLineByID(ctx context.Context, id uuid.UUID) (*model.ProductionLine, error) {
	var l model.ProductionLine
	err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error
	return &l, err
}

func (r *assetRepo) LineNameTaken(ctx context.Context, name string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProductionLine{}).
		Where("name = ? AND id <> ?", name, exclude).Count(&n).Error
	return n > 0, err
}

func (r *assetRepo) LineCodeTaken(ctx context.Context, code string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.ProductionLine{}).
		Where("code = ? AND id <> ?", code, exclude).Count(&n).Error
	return n > 0, err
}

func (r *assetRepo) ListLines(ctx context.Context) ([]ProductionLineWithCount, error) {
	var lines []model.ProductionLine
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&lines).Error; err != nil {
		return nil, err
	}
	type row struct {
		ProductionLineID uuid.UUID
		N                int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&model.Machine{}).
		Select("production_line_id, COUNT(*) AS n").
		Group("production_line_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, c := range rows {
		counts[c.ProductionLineID] = c.N
	}
	out := make([]ProductionLineWithCount, len(lines))
	for i, l := range lines {
		out[i] = ProductionLineWithCount{ProductionLine: l, MachineCount: counts[l.ID]}
	}
	return out, nil
}

func (r *assetRepo) UpdateLine(ctx context.Context, l *model.ProductionLine) error {
	return r.db.WithContext(ctx).Omit("Machines").Save(l).Error
}

func (r *assetRepo) DeleteLine(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ProductionLine{}, "id = ?", id).Error
}

func (r *assetRepo) CountMachinesInLine(ctx context.Context, lineID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Machine{}).Where("production_line_id = ?", lineID).Count(&n).Error
	return n, err
}

func (r *assetRepo) CreateMachineTx(tx *gorm.DB, m *model.Machine) error {
	return tx.Omit("ProductionLine").Create(m).Error
}

func (r *assetRepo) FindMachineByID(ctx context.Context, id uuid.UUID) (*model.Machine, error) {
	return r.FindMachineByIDTx(r.db.WithContext(ctx), id)
}

func (r *assetRepo) FindMachineByIDTx(tx *gorm.DB, id uuid.UUID) (*model.Machine, error) {
	var m model.Machine
	err := tx.Preload("ProductionLine").First(&m, "id = ?", id).Error
	return &m, err
}

func (r *assetRepo) SerialTaken(ctx context.Context, serial string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Machine{}).
		Where("serial_number = ? AND id <> ?", serial, exclude).Count(&n).Error
	return n > 0, err
}

func (r *assetRepo) AssetTagTaken(ctx context.Context, tag string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Machine{}).
		Where("asset_tag = ? AND id <> ?", tag, exclude).Count(&n).Error
	return n > 0, err
}

func (r *assetRepo) ListMachines(ctx context.Context, f MachineFilter) ([]model.Machine, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Machine{})
	if f.ProductionLineID != nil {
		q = q.Where("production_line_id = ?", *f.ProductionLineID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(serial_number) LIKE LOWER(?) OR LOWER(asset_tag) LIKE LOWER(?)", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var machines []model.Machine
	err := q.Preload("ProductionLine").Order("name ASC").Offset(f.Offset).Limit(f.Limit).Find(&machines).Error
	return machines, total, err
}

func (r *assetRepo) SaveMachineVersionedTx(tx *gorm.DB, m *model.Machine, expected int) (bool, error) {
	m.Version = expected + 1
	res := tx.Model(m).
		Where("version = ?", expected).
		Select("*").Omit("id", "created_at", "ProductionLine").
		Updates(m)
	if res.Error != nil {
		m.Version = expected
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		m.Version = expected
		return false, nil
	}
	return true, nil
}

func (r *assetRepo) ListUpcomingService(ctx context.Context, until time.Time) ([]model.Machine, error) {
	var machines []model.Machine
	err := r.db.WithContext(ctx).Preload("ProductionLine").
		Where("next_service_date IS NOT NULL AND next_service_date <= ? AND status <> ?", until, model.MachineScrapped).
		Order("next_service_date ASC").Find(&machines).Error
	return machines, err
}

func (r *assetRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&model.Machine{}).
		Select("status, COUNT(*) AS n").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := map[string]int64{
		model.MachineActive: 0, model.MachineStopped: 0,
		model.MachineMaintenance: 0, model.MachineScrapped: 0,
	}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (r *assetRepo) CountOpenWorksheets(ctx context.Context, machineID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Worksheet{}).
		Where("machine_id = ? AND status <> ?", machineID, model.WorksheetClosed).Count(&n).Error
	return n, err
}

func (r *assetRepo) CreateHistoryTx(tx *gorm.DB, h *model.AssetHistory) error {
	return tx.Create(h).Error
}

func (r *assetRepo) ListHistory(ctx context.Context, machineID uuid.UUID) ([]model.AssetHistory, error) {
	var hist []model.AssetHistory
	err := r.db.WithContext(ctx).Where("machine_id = ?", machineID).Order("timestamp DESC").Find(&hist).Error
	return hist, err
}
