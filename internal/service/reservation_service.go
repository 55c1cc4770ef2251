package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReserveRequest asks for qty units of a part to be held back.
type ReserveRequest struct {
	PartID      uuid.UUID
	Quantity    int
	WorksheetID *uuid.UUID
	UserID      uuid.UUID
	TTL         time.Duration
	Notes       string
}

type ReservationService interface {
	ReserveStock(ctx context.Context, req ReserveRequest) (*dto.ReservationResponse, error)
	ReleaseReservation(ctx context.Context, actor, id uuid.UUID) error
	// ConsumeReservation releases the reservation and issues its quantity,
	// booking it onto the linked worksheet when there is one.
	ConsumeReservation(ctx context.Context, actor, id uuid.UUID) (*dto.StockTransactionResponse, error)
	ListReservations(ctx context.Context, filter dto.ReservationFilter) ([]dto.ReservationResponse, error)
	GetAvailableQuantity(ctx context.Context, partID uuid.UUID) (int, error)
	CleanupExpiredReservations(ctx context.Context) (int, error)
}

type reservationService struct {
	repo       repository.ReservationRepository
	inventory  repository.InventoryRepository
	worksheets repository.WorksheetRepository
	stock      InventoryService
	audit      AuditService
	defaultTTL time.Duration
	now        func() time.Time
}

func NewReservationService(
	repo repository.ReservationRepository,
	inventory repository.InventoryRepository,
	worksheets repository.WorksheetRepository,
	stock InventoryService,
	audit AuditService,
	cfg *config.Config,
) ReservationService {
	ttl := 24 * time.Hour
	if cfg != nil && cfg.ReservationTTLHours > 0 {
		ttl = time.Duration(cfg.ReservationTTLHours) * time.Hour
	}
	return &reservationService{
		repo:       repo,
		inventory:  inventory,
		worksheets: worksheets,
		stock:      stock,
		audit:      audit,
		defaultTTL: ttl,
		now:        utcNow,
	}
}

func (s *reservationService) ReserveStock(ctx context.Context, req ReserveRequest) (*dto.ReservationResponse, error) {
	if req.Quantity <= 0 {
		return nil, inventoryValidation("quantity", "reservation quantity must be positive")
	}
	if _, err := s.inventory.FindPartByID(ctx, req.PartID); err != nil {
		return nil, partNotFound(err, req.PartID)
	}
	if req.WorksheetID != nil {
		if _, err := s.worksheets.FindByID(ctx, *req.WorksheetID); err != nil {
			return nil, notFound(err, "Worksheet", *req.WorksheetID)
		}
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	var res *model.StockReservation
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		level, err := s.inventory.LockLevelTx(tx, req.PartID)
		if err != nil {
			return notFound(err, "InventoryLevel", req.PartID)
		}
		now := s.now()
		reserved, err := s.repo.SumActiveTx(tx, req.PartID, now)
		if err != nil {
			return err
		}
		available := level.QuantityOnHand - reserved
		if available < 0 {
			available = 0
		}
		if req.Quantity > available {
			return apperror.BusinessLogic("STOCK_AVAILABILITY",
				fmt.Sprintf("insufficient available stock: requested %d, available %d", req.Quantity, available)).
				With("requested", req.Quantity).
				With("available", available).
				With("on_hand", level.QuantityOnHand).
				Wrap(ErrInventoryService)
		}

		res = &model.StockReservation{
			PartID:           req.PartID,
			WorksheetID:      req.WorksheetID,
			QuantityReserved: req.Quantity,
			ReservedAt:       now,
			ExpiresAt:        now.Add(ttl),
			UserID:           optionalID(req.UserID),
			Notes:            req.Notes,
		}
		if err := s.repo.CreateTx(tx, res); err != nil {
			return err
		}
		level.QuantityReserved += req.Quantity
		level.LastUpdated = now
		return s.inventory.SaveLevelTx(tx, level)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, AuditEntry{UserID: req.UserID, Action: AuditCreate, EntityType: "stock_reservation", EntityID: res.ID.String(),
		Changes: map[string]any{"part_id": req.PartID.String(), "quantity": req.Quantity, "expires_at": res.ExpiresAt}})
	log.Info().Str("part_id", req.PartID.String()).Int("quantity", req.Quantity).Msg("stock reserved")
	resp := s.toResponse(res)
	return &resp, nil
}

// releaseTx removes the reservation and gives its quantity back.
func (s *reservationService) releaseTx(tx *gorm.DB, id uuid.UUID) (*model.StockReservation, error) {
	res, err := s.repo.FindByIDTx(tx, id)
	if err != nil {
		return nil, notFound(err, "StockReservation", id)
	}
	level, err := s.inventory.LockLevelTx(tx, res.PartID)
	if err != nil {
		return nil, notFound(err, "InventoryLevel", res.PartID)
	}
	level.QuantityReserved = max(0, level.QuantityReserved-res.QuantityReserved)
	level.LastUpdated = s.now()
	if err := s.inventory.SaveLevelTx(tx, level); err != nil {
		return nil, err
	}
	return res, s.repo.DeleteTx(tx, id)
}

func (s *reservationService) ReleaseReservation(ctx context.Context, actor, id uuid.UUID) error {
	var res *model.StockReservation
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		res, err = s.releaseTx(tx, id)
		return err
	})
	if err != nil {
		return err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditDelete, EntityType: "stock_reservation", EntityID: id.String(),
		Changes: map[string]any{"part_id": res.PartID.String(), "quantity": res.QuantityReserved}})
	return nil
}

func (s *reservationService) ConsumeReservation(ctx context.Context, actor, id uuid.UUID) (*dto.StockTransactionResponse, error) {
	var st *model.StockTransaction
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		res, err := s.releaseTx(tx, id)
		if err != nil {
			return err
		}
		if res.WorksheetID == nil {
			st, err = s.stock.AdjustStockTx(tx, StockMovement{
				PartID:        res.PartID,
				Quantity:      -res.QuantityReserved,
				ReferenceType: "reservation",
				ReferenceID:   &res.ID,
				UserID:        actor,
				Notes:         res.Notes,
			})
			return err
		}

		ws, err := s.worksheets.FindByIDTx(tx, *res.WorksheetID)
		if err != nil {
			return notFound(err, "Worksheet", *res.WorksheetID)
		}
		if ws.Status == model.WorksheetClosed {
			return worksheetClosed(ws.ID)
		}
		cost, err := s.stock.GetFIFOCostTx(tx, res.PartID, res.QuantityReserved)
		if err != nil {
			return err
		}
		st, err = s.stock.AdjustStockTx(tx, StockMovement{
			PartID:        res.PartID,
			Quantity:      -res.QuantityReserved,
			ReferenceType: "worksheet",
			ReferenceID:   &ws.ID,
			UserID:        actor,
			Notes:         "reservation consumed",
		})
		if err != nil {
			return err
		}
		return s.worksheets.CreatePartTx(tx, &model.WorksheetPart{
			WorksheetID:    ws.ID,
			PartID:         res.PartID,
			QuantityUsed:   res.QuantityReserved,
			UnitCostAtTime: cost,
			Notes:          res.Notes,
			AddedAt:        s.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditStockMovement, EntityType: "stock_reservation", EntityID: id.String(),
		Changes: map[string]any{"consumed": -st.Quantity, "part_id": st.PartID.String()}})
	resp := toTransactionResponse(st)
	return &resp, nil
}

func (s *reservationService) ListReservations(ctx context.Context, f dto.ReservationFilter) ([]dto.ReservationResponse, error) {
	partID, err := parseOptionalID("part_id", &f.PartID)
	if err != nil {
		return nil, err
	}
	wsID, err := parseOptionalID("worksheet_id", &f.WorksheetID)
	if err != nil {
		return nil, err
	}
	filter := repository.ReservationFilter{PartID: partID, WorksheetID: wsID}
	if f.ActiveOnly {
		now := s.now()
		filter.ActiveAt = &now
	}
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ReservationResponse, len(rows))
	for i := range rows {
		out[i] = s.toResponse(&rows[i])
	}
	return out, nil
}

func (s *reservationService) GetAvailableQuantity(ctx context.Context, partID uuid.UUID) (int, error) {
	level, err := s.inventory.FindLevel(ctx, partID)
	if err != nil {
		return 0, partNotFound(err, partID)
	}
	reserved, err := s.repo.SumActiveTx(s.repo.DB().WithContext(ctx), partID, s.now())
	if err != nil {
		return 0, err
	}
	return max(0, level.QuantityOnHand-reserved), nil
}

func (s *reservationService) CleanupExpiredReservations(ctx context.Context) (int, error) {
	removed := 0
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		expired, err := s.repo.ListExpiredTx(tx, s.now())
		if err != nil {
			return err
		}
		byPart := make(map[uuid.UUID]int)
		order := make([]uuid.UUID, 0)
		for _, r := range expired {
			if _, seen := byPart[r.PartID]; !seen {
				order = append(order, r.PartID)
			}
			byPart[r.PartID] += r.QuantityReserved
		}
		for _, partID := range order {
			level, err := s.inventory.LockLevelTx(tx, partID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			level.QuantityReserved = max(0, level.QuantityReserved-byPart[partID])
			level.LastUpdated = s.now()
			if err := s.inventory.SaveLevelTx(tx, level); err != nil {
				return err
			}
		}
		for _, r := range expired {
			if err := s.repo.DeleteTx(tx, r.ID); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("expired stock reservations released")
		s.audit.Log(ctx, AuditEntry{Action: AuditDelete, EntityType: "stock_reservation", EntityID: "expired",
			Changes: map[string]any{"removed": removed}})
	}
	return removed, nil
}

func (s *reservationService) toResponse(r *model.StockReservation) dto.ReservationResponse {
	return dto.ReservationResponse{
		ID:               r.ID.String(),
		PartID:           r.PartID.String(),
		WorksheetID:      idString(r.WorksheetID),
		QuantityReserved: r.QuantityReserved,
		ReservedAt:       r.ReservedAt,
		ExpiresAt:        r.ExpiresAt,
		UserID:           idString(r.UserID),
		Notes:            r.Notes,
		Expired:          !r.ExpiresAt.After(s.now()),
	}
}
