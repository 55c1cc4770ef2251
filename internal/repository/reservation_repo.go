package repository

import (
	"context"
	"time"

	"zedcmms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationFilter struct {
	PartID      *uuid.UUID
	WorksheetID *uuid.UUID
	// ActiveAt, when set, keeps only reservations expiring after it.
	ActiveAt *time.Time
}

type ReservationRepository interface {
	CreateTx(tx *gorm.DB, r *model.StockReservation) error
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.StockReservation, error)
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	// SumActiveTx totals the quantity of reservations on partID that have
	// not expired at now.
	SumActiveTx(tx *gorm.DB, partID uuid.UUID, now time.Time) (int, error)
	ListExpiredTx(tx *gorm.DB, now time.Time) ([]model.StockReservation, error)
	List(ctx context.Context, filter ReservationFilter) ([]model.StockReservation, error)
	CountActive(ctx context.Context, now time.Time) (int64, error)
	DB() *gorm.DB
}

type reservationRepo struct{ db *gorm.DB }

func NewReservationRepository(db *gorm.DB) ReservationRepository { return &reservationRepo{db: db} }

func (r *reservationRepo) DB() *gorm.DB { return r.db }

func (r *reservationRepo) CreateTx(tx *gorm.DB, res *model.StockReservation) error {
	return tx.Create(res).Error
}

func (r *reservationRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.StockReservation, error) {
	var res model.StockReservation
	err := tx.First(&res, "id = ?", id).Error
	return &res, err
}

func (r *reservationRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.StockReservation{}, "id = ?", id).Error
}

func (r *reservationRepo) SumActiveTx(tx *gorm.DB, partID uuid.UUID, now time.Time) (int, error) {
	var sum int
	err := tx.Model(&model.StockReservation{}).
		Where("part_id = ? AND expires_at > ?", partID, now).
		Select("COALESCE(SUM(quantity_reserved), 0)").Scan(&sum).Error
	return sum, err
}

func (r *reservationRepo) ListExpiredTx(tx *gorm.DB, now time.Time) ([]model.StockReservation, error) {
	var out []model.StockReservation
	err := tx.Where("expires_at <= ?", now).Order("part_id, expires_at").Find(&out).Error
	return out, err
}

func (r *reservationRepo) List(ctx context.Context, f ReservationFilter) ([]model.StockReservation, error) {
	q := r.db.WithContext(ctx).Model(&model.StockReservation{})
	if f.PartID != nil {
		q = q.Where("part_id = ?", *f.PartID)
	}
	if f.WorksheetID != nil {
		q = q.Where("worksheet_id = ?", *f.WorksheetID)
	}
	if f.ActiveAt != nil {
		q = q.Where("expires_at > ?", *f.ActiveAt)
	}
	var out []model.StockReservation
	err := q.Order("reserved_at DESC").Find(&out).Error
	return out, err
}

func (r *reservationRepo) CountActive(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.StockReservation{}).Where("expires_at > ?", now).Count(&n).Error
	return n, err
}
