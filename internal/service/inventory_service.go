package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// StockMovement is a signed change to a part's on-hand quantity.
type StockMovement struct {
	PartID        uuid.UUID
	Quantity      int
	UnitPrice     *decimal.Decimal
	SupplierID    *uuid.UUID
	InvoiceNumber string
	ReferenceType string
	ReferenceID   *uuid.UUID
	UserID        uuid.UUID
	Notes         string
}

type InventoryService interface {
	CreateSupplier(ctx context.Context, actor uuid.UUID, req dto.CreateSupplierRequest) (*dto.SupplierResponse, error)
	ListSuppliers(ctx context.Context) ([]dto.SupplierResponse, error)

	CreatePart(ctx context.Context, actor uuid.UUID, req dto.CreatePartRequest) (*dto.PartResponse, error)
	GetPart(ctx context.Context, id uuid.UUID) (*dto.PartResponse, error)
	GetPartBySKU(ctx context.Context, sku string) (*dto.PartResponse, error)
	ListParts(ctx context.Context, filter dto.PartFilter) (*dto.ListResponse[dto.PartResponse], error)
	UpdatePart(ctx context.Context, actor, id uuid.UUID, req dto.UpdatePartRequest) (*dto.PartResponse, error)
	DeletePart(ctx context.Context, actor, id uuid.UUID) error
	ListLowStock(ctx context.Context) ([]dto.PartResponse, error)

	GetInventoryLevel(ctx context.Context, partID uuid.UUID) (*dto.InventoryLevelResponse, error)
	ReceiveStock(ctx context.Context, actor, partID uuid.UUID, req dto.ReceiveStockRequest) (*dto.StockTransactionResponse, error)
	AdjustStock(ctx context.Context, actor, partID uuid.UUID, req dto.AdjustStockRequest) (*dto.StockTransactionResponse, error)
	// AdjustStockTx applies mv inside tx. Negative quantities consume FIFO
	// batches and fail with INSUFFICIENT_STOCK when on_hand is short.
	AdjustStockTx(tx *gorm.DB, mv StockMovement) (*model.StockTransaction, error)
	GetFIFOCost(ctx context.Context, partID uuid.UUID, quantity int) (decimal.Decimal, error)
	GetFIFOCostTx(tx *gorm.DB, partID uuid.UUID, quantity int) (decimal.Decimal, error)
	ListStockBatches(ctx context.Context, partID uuid.UUID, includeEmpty bool) ([]dto.StockBatchResponse, error)
	ListStockTransactions(ctx context.Context, filter dto.TransactionFilter) (*dto.ListResponse[dto.StockTransactionResponse], error)

	// ValidateInventoryLevels lists parts whose on_hand differs from the sum
	// of their ledger. An empty partID checks every part.
	ValidateInventoryLevels(ctx context.Context, partID string) ([]dto.InventoryDiscrepancy, error)
	// FixInventoryLevel resets on_hand to the ledger sum.
	FixInventoryLevel(ctx context.Context, actor, partID uuid.UUID) (*dto.InventoryLevelResponse, error)
}

type inventoryService struct {
	repo  repository.InventoryRepository
	audit AuditService
	now   func() time.Time
}

func NewInventoryService(repo repository.InventoryRepository, audit AuditService) InventoryService {
	return &inventoryService{repo: repo, audit: audit, now: utcNow}
}

func inventoryValidation(field, msg string) error {
	return apperror.Validation(field, msg).Wrap(ErrInventoryService)
}

func partNotFound(err error, id any) error {
	if e, ok := notFound(err, "Part", id).(*apperror.Error); ok {
		return e.Wrap(ErrInventoryService)
	}
	return err
}

func validateSKU(sku string) error {
	if !skuPattern.MatchString(sku) {
		return inventoryValidation("sku", "sku must be 1-64 characters of letters, digits, '.', '_' or '-'")
	}
	return nil
}

func duplicateSKU(sku string) error {
	return apperror.BusinessLogic("DUPLICATE_SKU", "a part with sku "+sku+" already exists").
		With("sku", sku).Wrap(ErrInventoryService)
}

// ─── Suppliers ───────────────────────────────────────────────────────────────

func (s *inventoryService) CreateSupplier(ctx context.Context, actor uuid.UUID, req dto.CreateSupplierRequest) (*dto.SupplierResponse, error) {
	name := strings.TrimSpace(req.Name)
	taken, err := s.repo.SupplierNameTaken(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, inventoryValidation("name", "supplier name already exists")
	}
	sup := &model.Supplier{
		Name:          name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
	}
	if err := s.repo.CreateSupplier(ctx, sup); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditCreate, EntityType: "supplier", EntityID: sup.ID.String(),
		Changes: map[string]any{"name": name}})
	resp := toSupplierResponse(sup)
	return &resp, nil
}

func (s *inventoryService) ListSuppliers(ctx context.Context) ([]dto.SupplierResponse, error) {
	sups, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SupplierResponse, len(sups))
	for i := range sups {
		out[i] = toSupplierResponse(&sups[i])
	}
	return out, nil
}

// ─── Parts ───────────────────────────────────────────────────────────────────

func (s *inventoryService) supplierRef(ctx context.Context, raw *string) (*uuid.UUID, error) {
	id, err := parseOptionalID("supplier_id", raw)
	if err != nil || id == nil {
		return id, err
	}
	if _, err := s.repo.FindSupplierByID(ctx, *id); err != nil {
		return nil, notFound(err, "Supplier", *id)
	}
	return id, nil
}

func (s *inventoryService) CreatePart(ctx context.Context, actor uuid.UUID, req dto.CreatePartRequest) (*dto.PartResponse, error) {
	sku := strings.TrimSpace(req.SKU)
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if req.BuyPrice.IsNegative() || req.SellPrice.IsNegative() {
		return nil, inventoryValidation("buy_price", "prices cannot be negative")
	}
	taken, err := s.repo.SKUTaken(ctx, sku, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, duplicateSKU(sku)
	}
	supplierID, err := s.supplierRef(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	unit := req.Unit
	if unit == "" {
		unit = "db"
	}

	part := &model.Part{
		SKU:             sku,
		Name:            strings.TrimSpace(req.Name),
		Category:        req.Category,
		Description:     req.Description,
		Unit:            unit,
		BuyPrice:        req.BuyPrice,
		SellPrice:       req.SellPrice,
		SafetyStock:     req.SafetyStock,
		ReorderQuantity: req.ReorderQuantity,
		SupplierID:      supplierID,
		IsActive:        true,
	}
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreatePartTx(tx, part); err != nil {
			return err
		}
		level := &model.InventoryLevel{PartID: part.ID, BinLocation: req.BinLocation, LastUpdated: s.now()}
		if err := s.repo.CreateLevelTx(tx, level); err != nil {
			return err
		}
		part.InventoryLevel = level
		if req.InitialQuantity > 0 {
			price := req.BuyPrice
			_, err := s.AdjustStockTx(tx, StockMovement{
				PartID:        part.ID,
				Quantity:      req.InitialQuantity,
				UnitPrice:     &price,
				SupplierID:    supplierID,
				ReferenceType: "initial",
				UserID:        actor,
				Notes:         "initial stock",
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if part.InventoryLevel != nil && req.InitialQuantity > 0 {
		part.InventoryLevel.QuantityOnHand = req.InitialQuantity
	}

	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditCreate, EntityType: "part", EntityID: part.ID.String(),
		Changes: map[string]any{"sku": sku, "name": part.Name, "initial_quantity": req.InitialQuantity}})
	log.Info().Str("sku", sku).Int("initial_quantity", req.InitialQuantity).Msg("part created")
	resp := toPartResponse(part)
	return &resp, nil
}

func (s *inventoryService) GetPart(ctx context.Context, id uuid.UUID) (*dto.PartResponse, error) {
	p, err := s.repo.FindPartByID(ctx, id)
	if err != nil {
		return nil, partNotFound(err, id)
	}
	resp := toPartResponse(p)
	return &resp, nil
}

func (s *inventoryService) GetPartBySKU(ctx context.Context, sku string) (*dto.PartResponse, error) {
	p, err := s.repo.FindPartBySKU(ctx, strings.TrimSpace(sku))
	if err != nil {
		return nil, partNotFound(err, sku)
	}
	resp := toPartResponse(p)
	return &resp, nil
}

func (s *inventoryService) ListParts(ctx context.Context, f dto.PartFilter) (*dto.ListResponse[dto.PartResponse], error) {
	f.Normalize()
	parts, total, err := s.repo.ListParts(ctx, repository.PartFilter{
		Search:   strings.TrimSpace(f.Search),
		Category: f.Category,
		LowStock: f.LowStock,
		Offset:   f.Offset(),
		Limit:    f.Limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.PartResponse, len(parts))
	for i := range parts {
		items[i] = toPartResponse(&parts[i])
	}
	return dto.NewList(items, total, f.Pagination), nil
}

func (s *inventoryService) ListLowStock(ctx context.Context) ([]dto.PartResponse, error) {
	parts, _, err := s.repo.ListParts(ctx, repository.PartFilter{LowStock: true, Limit: -1})
	if err != nil {
		return nil, err
	}
	out := make([]dto.PartResponse, 0, len(parts))
	for i := range parts {
		if parts[i].IsActive {
			out = append(out, toPartResponse(&parts[i]))
		}
	}
	return out, nil
}

func (s *inventoryService) UpdatePart(ctx context.Context, actor, id uuid.UUID, req dto.UpdatePartRequest) (*dto.PartResponse, error) {
	p, err := s.repo.FindPartByID(ctx, id)
	if err != nil {
		return nil, partNotFound(err, id)
	}
	changes := map[string]any{}

	if req.SKU != nil {
		sku := strings.TrimSpace(*req.SKU)
		if sku != p.SKU {
			if err := validateSKU(sku); err != nil {
				return nil, err
			}
			taken, err := s.repo.SKUTaken(ctx, sku, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, duplicateSKU(sku)
			}
			changes["sku"] = map[string]any{"old": p.SKU, "new": sku}
			p.SKU = sku
		}
	}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
		changes["name"] = p.Name
	}
	if req.Category != nil {
		p.Category = *req.Category
		changes["category"] = p.Category
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.Unit != nil {
		p.Unit = *req.Unit
		changes["unit"] = p.Unit
	}
	if req.BuyPrice != nil {
		if req.BuyPrice.IsNegative() {
			return nil, inventoryValidation("buy_price", "buy price cannot be negative")
		}
		changes["buy_price"] = map[string]any{"old": p.BuyPrice.String(), "new": req.BuyPrice.String()}
		p.BuyPrice = *req.BuyPrice
	}
	if req.SellPrice != nil {
		if req.SellPrice.IsNegative() {
			return nil, inventoryValidation("sell_price", "sell price cannot be negative")
		}
		changes["sell_price"] = map[string]any{"old": p.SellPrice.String(), "new": req.SellPrice.String()}
		p.SellPrice = *req.SellPrice
	}
	if req.SafetyStock != nil {
		p.SafetyStock = *req.SafetyStock
		changes["safety_stock"] = p.SafetyStock
	}
	if req.ReorderQuantity != nil {
		p.ReorderQuantity = *req.ReorderQuantity
		changes["reorder_quantity"] = p.ReorderQuantity
	}
	if req.SupplierID != nil {
		supplierID, err := s.supplierRef(ctx, req.SupplierID)
		if err != nil {
			return nil, err
		}
		p.SupplierID = supplierID
		changes["supplier_id"] = idString(supplierID)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
		changes["is_active"] = p.IsActive
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.UpdatePartTx(tx, p); err != nil {
			return err
		}
		if req.BinLocation != nil && p.InventoryLevel != nil {
			p.InventoryLevel.BinLocation = *req.BinLocation
			p.InventoryLevel.LastUpdated = s.now()
			changes["bin_location"] = *req.BinLocation
			return s.repo.SaveLevelTx(tx, p.InventoryLevel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "part", EntityID: id.String(), Changes: changes})
	resp := toPartResponse(p)
	return &resp, nil
}

func (s *inventoryService) DeletePart(ctx context.Context, actor, id uuid.UUID) error {
	p, err := s.repo.FindPartByID(ctx, id)
	if err != nil {
		return partNotFound(err, id)
	}
	n, err := s.repo.CountTransactions(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperror.BusinessLogic("PART_HAS_TRANSACTIONS",
			fmt.Sprintf("part %s has %d stock transaction(s) and cannot be deleted", p.SKU, n)).
			With("transactions", n).Wrap(ErrInventoryService)
	}
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.DeletePartTx(tx, id)
	}); err != nil {
		return err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditDelete, EntityType: "part", EntityID: id.String(),
		Changes: map[string]any{"sku": p.SKU}})
	return nil
}

// ─── Stock ───────────────────────────────────────────────────────────────────

func (s *inventoryService) GetInventoryLevel(ctx context.Context, partID uuid.UUID) (*dto.InventoryLevelResponse, error) {
	p, err := s.repo.FindPartByID(ctx, partID)
	if err != nil {
		return nil, partNotFound(err, partID)
	}
	if p.InventoryLevel == nil {
		return nil, apperror.NotFound("InventoryLevel", partID).Wrap(ErrInventoryService)
	}
	l := p.InventoryLevel
	return &dto.InventoryLevelResponse{
		PartID:           partID.String(),
		QuantityOnHand:   l.QuantityOnHand,
		QuantityReserved: l.QuantityReserved,
		Available:        l.Available(),
		SafetyStock:      p.SafetyStock,
		LowStock:         l.QuantityOnHand <= p.SafetyStock,
		BinLocation:      l.BinLocation,
		LastUpdated:      l.LastUpdated,
	}, nil
}

func (s *inventoryService) ReceiveStock(ctx context.Context, actor, partID uuid.UUID, req dto.ReceiveStockRequest) (*dto.StockTransactionResponse, error) {
	if req.Quantity <= 0 {
		return nil, inventoryValidation("quantity", "quantity must be positive")
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, inventoryValidation("unit_price", "unit price cannot be negative")
	}
	supplierID, err := s.supplierRef(ctx, req.SupplierID)
	if err != nil {
		return nil, err
	}
	return s.move(ctx, StockMovement{
		PartID:        partID,
		Quantity:      req.Quantity,
		UnitPrice:     req.UnitPrice,
		SupplierID:    supplierID,
		InvoiceNumber: req.InvoiceNumber,
		ReferenceType: "receipt",
		UserID:        actor,
		Notes:         req.Notes,
	})
}

func (s *inventoryService) AdjustStock(ctx context.Context, actor, partID uuid.UUID, req dto.AdjustStockRequest) (*dto.StockTransactionResponse, error) {
	if req.Quantity == 0 {
		return nil, inventoryValidation("quantity", "quantity cannot be zero")
	}
	return s.move(ctx, StockMovement{
		PartID:        partID,
		Quantity:      req.Quantity,
		ReferenceType: "manual",
		UserID:        actor,
		Notes:         req.Notes,
	})
}

func (s *inventoryService) move(ctx context.Context, mv StockMovement) (*dto.StockTransactionResponse, error) {
	var st *model.StockTransaction
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		st, err = s.AdjustStockTx(tx, mv)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: mv.UserID, Action: AuditStockMovement, EntityType: "part", EntityID: mv.PartID.String(),
		Changes: map[string]any{"transaction_type": st.TransactionType, "quantity": st.Quantity, "reference_type": st.ReferenceType}})
	resp := toTransactionResponse(st)
	return &resp, nil
}

func (s *inventoryService) AdjustStockTx(tx *gorm.DB, mv StockMovement) (*model.StockTransaction, error) {
	if mv.Quantity == 0 {
		return nil, inventoryValidation("quantity", "quantity cannot be zero")
	}
	part, err := s.repo.FindPartByIDTx(tx, mv.PartID)
	if err != nil {
		return nil, partNotFound(err, mv.PartID)
	}
	level, err := s.repo.LockLevelTx(tx, mv.PartID)
	if err != nil {
		return nil, notFound(err, "InventoryLevel", mv.PartID)
	}
	now := s.now()

	st := &model.StockTransaction{
		PartID:        mv.PartID,
		Quantity:      mv.Quantity,
		ReferenceType: mv.ReferenceType,
		ReferenceID:   mv.ReferenceID,
		UserID:        optionalID(mv.UserID),
		Notes:         mv.Notes,
		Timestamp:     now,
	}

	if mv.Quantity > 0 {
		st.TransactionType = model.TxReceived
		if mv.ReferenceType == "manual" {
			st.TransactionType = model.TxAdjustment
		}
		if err := s.repo.CreateTransactionTx(tx, st); err != nil {
			return nil, err
		}
		price := part.BuyPrice
		if mv.UnitPrice != nil {
			price = *mv.UnitPrice
		}
		supplierID := mv.SupplierID
		if supplierID == nil {
			supplierID = part.SupplierID
		}
		batch := &model.StockBatch{
			PartID:             mv.PartID,
			Quantity:           mv.Quantity,
			QuantityRemaining:  mv.Quantity,
			UnitPrice:          price,
			ReceivedDate:       now,
			SupplierID:         supplierID,
			InvoiceNumber:      mv.InvoiceNumber,
			Notes:              mv.Notes,
			StockTransactionID: &st.ID,
		}
		if err := s.repo.CreateBatchTx(tx, batch); err != nil {
			return nil, err
		}
		level.QuantityOnHand += mv.Quantity
	} else {
		need := -mv.Quantity
		if level.QuantityOnHand < need {
			return nil, apperror.BusinessLogic("INSUFFICIENT_STOCK",
				fmt.Sprintf("insufficient stock for %s: requested %d, on hand %d", part.SKU, need, level.QuantityOnHand)).
				With("requested", need).With("on_hand", level.QuantityOnHand).Wrap(ErrInventoryService)
		}
		st.TransactionType = model.TxAdjustment
		if mv.ReferenceType == "worksheet" {
			st.TransactionType = model.TxIssued
		}
		if err := s.consumeBatches(tx, mv.PartID, need); err != nil {
			return nil, err
		}
		if err := s.repo.CreateTransactionTx(tx, st); err != nil {
			return nil, err
		}
		level.QuantityOnHand -= need
	}

	level.LastUpdated = now
	if err := s.repo.SaveLevelTx(tx, level); err != nil {
		return nil, err
	}
	st.Part = part
	if level.QuantityOnHand <= part.SafetyStock {
		log.Warn().Str("sku", part.SKU).Int("on_hand", level.QuantityOnHand).Int("safety_stock", part.SafetyStock).
			Msg("part at or below safety stock")
	}
	return st, nil
}

// consumeBatches takes qty from the oldest batches. Stock that predates batch
// tracking has no batch to consume and is taken silently.
func (s *inventoryService) consumeBatches(tx *gorm.DB, partID uuid.UUID, qty int) error {
	batches, err := s.repo.ListOpenBatchesTx(tx, partID)
	if err != nil {
		return err
	}
	for i := range batches {
		if qty == 0 {
			break
		}
		b := &batches[i]
		take := min(qty, b.QuantityRemaining)
		b.QuantityRemaining -= take
		qty -= take
		if err := s.repo.SaveBatchTx(tx, b); err != nil {
			return err
		}
	}
	return nil
}

func (s *inventoryService) GetFIFOCost(ctx context.Context, partID uuid.UUID, quantity int) (decimal.Decimal, error) {
	return s.GetFIFOCostTx(s.repo.DB().WithContext(ctx), partID, quantity)
}

// GetFIFOCostTx returns the weighted unit cost of the oldest quantity units
// in stock. Units not covered by batches are priced at the part's buy price.
func (s *inventoryService) GetFIFOCostTx(tx *gorm.DB, partID uuid.UUID, quantity int) (decimal.Decimal, error) {
	if quantity <= 0 {
		return decimal.Zero, nil
	}
	part, err := s.repo.FindPartByIDTx(tx, partID)
	if err != nil {
		return decimal.Zero, partNotFound(err, partID)
	}
	batches, err := s.repo.ListOpenBatchesTx(tx, partID)
	if err != nil {
		return decimal.Zero, err
	}
	if len(batches) == 0 {
		return part.BuyPrice, nil
	}
	total := decimal.Zero
	remaining := quantity
	for _, b := range batches {
		if remaining == 0 {
			break
		}
		take := min(remaining, b.QuantityRemaining)
		total = total.Add(b.UnitPrice.Mul(decimal.NewFromInt(int64(take))))
		remaining -= take
	}
	if remaining > 0 {
		total = total.Add(part.BuyPrice.Mul(decimal.NewFromInt(int64(remaining))))
	}
	return total.Div(decimal.NewFromInt(int64(quantity))).Round(2), nil
}

func (s *inventoryService) ListStockBatches(ctx context.Context, partID uuid.UUID, includeEmpty bool) ([]dto.StockBatchResponse, error) {
	if _, err := s.repo.FindPartByID(ctx, partID); err != nil {
		return nil, partNotFound(err, partID)
	}
	batches, err := s.repo.ListBatches(ctx, partID, includeEmpty)
	if err != nil {
		return nil, err
	}
	out := make([]dto.StockBatchResponse, len(batches))
	for i, b := range batches {
		out[i] = dto.StockBatchResponse{
			ID:                b.ID.String(),
			Quantity:          b.Quantity,
			QuantityRemaining: b.QuantityRemaining,
			UnitPrice:         b.UnitPrice,
			ReceivedDate:      b.ReceivedDate,
			InvoiceNumber:     b.InvoiceNumber,
		}
	}
	return out, nil
}

func (s *inventoryService) ListStockTransactions(ctx context.Context, f dto.TransactionFilter) (*dto.ListResponse[dto.StockTransactionResponse], error) {
	f.Normalize()
	partID, err := parseOptionalID("part_id", &f.PartID)
	if err != nil {
		return nil, err
	}
	txs, total, err := s.repo.ListTransactions(ctx, repository.TransactionFilter{
		PartID: partID,
		Type:   f.Type,
		Offset: f.Offset(),
		Limit:  f.Limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.StockTransactionResponse, len(txs))
	for i := range txs {
		items[i] = toTransactionResponse(&txs[i])
	}
	return dto.NewList(items, total, f.Pagination), nil
}

func (s *inventoryService) ValidateInventoryLevels(ctx context.Context, partID string) ([]dto.InventoryDiscrepancy, error) {
	id, err := parseOptionalID("part_id", &partID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.LedgerBalances(ctx, id)
	if err != nil {
		return nil, err
	}
	if id != nil && len(rows) == 0 {
		return nil, partNotFound(gorm.ErrRecordNotFound, *id)
	}
	out := make([]dto.InventoryDiscrepancy, 0)
	for _, r := range rows {
		if r.QuantityOnHand == r.LedgerTotal {
			continue
		}
		out = append(out, dto.InventoryDiscrepancy{
			PartID:         r.PartID.String(),
			SKU:            r.SKU,
			Name:           r.Name,
			QuantityOnHand: r.QuantityOnHand,
			LedgerTotal:    r.LedgerTotal,
			Difference:     r.QuantityOnHand - r.LedgerTotal,
		})
	}
	if len(out) > 0 {
		log.Warn().Int("parts", len(out)).Msg("inventory levels out of step with ledger")
	}
	return out, nil
}

func (s *inventoryService) FixInventoryLevel(ctx context.Context, actor, partID uuid.UUID) (*dto.InventoryLevelResponse, error) {
	var before, after int
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		part, err := s.repo.FindPartByIDTx(tx, partID)
		if err != nil {
			return partNotFound(err, partID)
		}
		level, err := s.repo.LockLevelTx(tx, partID)
		if err != nil {
			return notFound(err, "InventoryLevel", partID)
		}
		total, err := s.repo.LedgerTotalTx(tx, partID)
		if err != nil {
			return err
		}
		if total < level.QuantityReserved {
			return apperror.BusinessLogic("LEDGER_BELOW_RESERVED",
				fmt.Sprintf("ledger total %d for %s is below %d reserved", total, part.SKU, level.QuantityReserved)).
				With("ledger_total", total).With("reserved", level.QuantityReserved).Wrap(ErrInventoryService)
		}
		before, after = level.QuantityOnHand, total
		if before == after {
			return nil
		}
		level.QuantityOnHand = total
		level.LastUpdated = s.now()
		return s.repo.SaveLevelTx(tx, level)
	})
	if err != nil {
		return nil, err
	}
	if before != after {
		s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "inventory_level", EntityID: partID.String(),
			Changes: map[string]any{"quantity_on_hand": map[string]any{"old": before, "new": after}}})
		log.Warn().Str("part_id", partID.String()).Int("old", before).Int("new", after).Msg("inventory level reset to ledger")
	}
	return s.GetInventoryLevel(ctx, partID)
}

func toSupplierResponse(s *model.Supplier) dto.SupplierResponse {
	return dto.SupplierResponse{
		ID:            s.ID.String(),
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Email:         s.Email,
		Phone:         s.Phone,
		Address:       s.Address,
	}
}

func toPartResponse(p *model.Part) dto.PartResponse {
	resp := dto.PartResponse{
		ID:              p.ID.String(),
		SKU:             p.SKU,
		Name:            p.Name,
		Category:        p.Category,
		Description:     p.Description,
		Unit:            p.Unit,
		BuyPrice:        p.BuyPrice,
		SellPrice:       p.SellPrice,
		SafetyStock:     p.SafetyStock,
		ReorderQuantity: p.ReorderQuantity,
		SupplierID:      idString(p.SupplierID),
		IsActive:        p.IsActive,
	}
	if l := p.InventoryLevel; l != nil {
		resp.QuantityOnHand = l.QuantityOnHand
		resp.QuantityReserved = l.QuantityReserved
		resp.BinLocation = l.BinLocation
		resp.LowStock = l.QuantityOnHand <= p.SafetyStock
	}
	return resp
}

func toTransactionResponse(t *model.StockTransaction) dto.StockTransactionResponse {
	resp := dto.StockTransactionResponse{
		ID:              t.ID.String(),
		PartID:          t.PartID.String(),
		TransactionType: t.TransactionType,
		Quantity:        t.Quantity,
		ReferenceType:   t.ReferenceType,
		ReferenceID:     idString(t.ReferenceID),
		UserID:          idString(t.UserID),
		Notes:           t.Notes,
		Timestamp:       t.Timestamp,
	}
	if t.Part != nil {
		resp.PartSKU = t.Part.SKU
	}
	return resp
}
