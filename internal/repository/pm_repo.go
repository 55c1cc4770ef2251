package repository

import (
	"context"
	"time"

	"zedcmms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PMTaskFilter struct {
	MachineID  *uuid.UUID
	AssignedTo *uuid.UUID
	Status     string
	ActiveOnly *bool
	Offset     int
	Limit      int
}

type PMRepository interface {
	CreateTx(tx *gorm.DB, t *model.PMTask) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PMTask, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.PMTask, error)
	List(ctx context.Context, filter PMTaskFilter) ([]model.PMTask, int64, error)
	UpdateTx(tx *gorm.DB, t *model.PMTask) error
	// ListDue returns active tasks due at or before ref (all active tasks when
	// includeFuture), ordered by due date.
	ListDue(ctx context.Context, ref time.Time, assignee *uuid.UUID, includeFuture bool) ([]model.PMTask, error)
	// ListForStatusSweep returns active pending or due_today tasks with a due date.
	ListForStatusSweep(ctx context.Context) ([]model.PMTask, error)
	CountByStatus(ctx context.Context, status string) (int64, error)

	CreateHistoryTx(tx *gorm.DB, h *model.PMHistory) error
	ListHistory(ctx context.Context, taskID uuid.UUID) ([]model.PMHistory, error)
	DB() *gorm.DB
}

type pmRepo struct{ db *gorm.DB }

func NewPMRepository(db *gorm.DB) PMRepository { return &pmRepo{db: db} }

func (r *pmRepo) DB() *gorm.DB { return r.db }

func (r *pmRepo) CreateTx(tx *gorm.DB, t *model.PMTask) error {
	return tx.Omit(clause.Associations).Create(t).Error
}

func (r *pmRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PMTask, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *pmRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.PMTask, error) {
	var t model.PMTask
	err := tx.Preload("Machine").First(&t, "id = ?", id).Error
	return &t, err
}

func (r *pmRepo) List(ctx context.Context, f PMTaskFilter) ([]model.PMTask, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.PMTask{})
	if f.MachineID != nil {
		q = q.Where("machine_id = ?", *f.MachineID)
	}
	if f.AssignedTo != nil {
		q = q.Where("assigned_to_user_id = ?", *f.AssignedTo)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ActiveOnly != nil {
		q = q.Where("is_active = ?", *f.ActiveOnly)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Preload("Machine").Order("next_due_date ASC").Offset(f.Offset)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []model.PMTask
	err := q.Find(&out).Error
	return out, total, err
}

func (r *pmRepo) UpdateTx(tx *gorm.DB, t *model.PMTask) error {
	return tx.Omit(clause.Associations).Save(t).Error
}

func (r *pmRepo) ListDue(ctx context.Context, ref time.Time, assignee *uuid.UUID, includeFuture bool) ([]model.PMTask, error) {
	q := r.db.WithContext(ctx).Preload("Machine").Where("is_active = ?", true)
	if !includeFuture {
		q = q.Where("next_due_date IS NOT NULL AND next_due_date <= ?", ref)
	}
	if assignee != nil {
		q = q.Where("(assigned_to_user_id IS NULL OR assigned_to_user_id = ?)", *assignee)
	}
	var out []model.PMTask
	err := q.Order("next_due_date ASC").Find(&out).Error
	return out, err
}

func (r *pmRepo) ListForStatusSweep(ctx context.Context) ([]model.PMTask, error) {
	var out []model.PMTask
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND status IN ? AND next_due_date IS NOT NULL", true, []string{model.PMPending, model.PMDueToday}).
		Find(&out).Error
	return out, err
}

func (r *pmRepo) CountByStatus(ctx context.Context, status string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.PMTask{}).
		Where("is_active = ? AND status = ?", true, status).Count(&n).Error
	return n, err
}

func (r *pmRepo) CreateHistoryTx(tx *gorm.DB, h *model.PMHistory) error {
	return tx.Create(h).Error
}

func (r *pmRepo) ListHistory(ctx context.Context, taskID uuid.UUID) ([]model.PMHistory, error) {
	var out []model.PMHistory
	err := r.db.WithContext(ctx).Where("pm_task_id = ?", taskID).Order("executed_date DESC").Find(&out).Error
	return out, err
}
