package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/dto"
	"zedcmms/internal/infra"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportArchiver stores generated report files.
type ReportArchiver interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// GeneratedFile is a rendered report and where it was archived.
type GeneratedFile struct {
	Name        string
	ContentType string
	Data        []byte
	Location    string
}

type WorksheetService interface {
	CreateWorksheet(ctx context.Context, actor uuid.UUID, req dto.CreateWorksheetRequest) (*dto.WorksheetResponse, error)
	// CreateWorksheetTx opens a worksheet inside tx without notifying anyone.
	CreateWorksheetTx(tx *gorm.DB, ws *model.Worksheet) error
	GetWorksheet(ctx context.Context, id uuid.UUID) (*dto.WorksheetResponse, error)
	ListWorksheets(ctx context.Context, filter dto.WorksheetFilter) (*dto.ListResponse[dto.WorksheetResponse], error)
	ListActiveWorksheets(ctx context.Context, filter dto.WorksheetFilter) (*dto.ListResponse[dto.WorksheetResponse], error)
	UpdateStatus(ctx context.Context, actor, id uuid.UUID, req dto.WorksheetStatusRequest) (*dto.WorksheetResponse, error)
	UpdateDetails(ctx context.Context, actor, id uuid.UUID, req dto.UpdateWorksheetRequest) (*dto.WorksheetResponse, error)
	AddPart(ctx context.Context, actor, id uuid.UUID, req dto.AddWorksheetPartRequest) (*dto.WorksheetPartResponse, error)
	ListParts(ctx context.Context, id uuid.UUID) ([]dto.WorksheetPartResponse, error)
	GenerateWorksheetPDF(ctx context.Context, id uuid.UUID) (*GeneratedFile, error)
}

type worksheetService struct {
	repo    repository.WorksheetRepository
	assets  repository.AssetRepository
	users   repository.UserRepository
	stock   InventoryService
	notify  NotificationService
	audit   AuditService
	archive ReportArchiver
	now     func() time.Time
}

func NewWorksheetService(
	repo repository.WorksheetRepository,
	assets repository.AssetRepository,
	users repository.UserRepository,
	stock InventoryService,
	notify NotificationService,
	audit AuditService,
	archive ReportArchiver,
) WorksheetService {
	return &worksheetService{
		repo:    repo,
		assets:  assets,
		users:   users,
		stock:   stock,
		notify:  notify,
		audit:   audit,
		archive: archive,
		now:     utcNow,
	}
}

func worksheetClosed(id uuid.UUID) error {
	return apperror.BusinessLogic("WORKSHEET_CLOSED", "worksheet is closed and cannot be modified").
		With("worksheet_id", id.String()).Wrap(ErrWorksheetService)
}

func defaultWorksheetTitle(id uuid.UUID, u *model.User) string {
	return fmt.Sprintf("Worksheet #%s - %s", strings.ToUpper(id.String()[:8]), u.DisplayName())
}

func (s *worksheetService) CreateWorksheet(ctx context.Context, actor uuid.UUID, req dto.CreateWorksheetRequest) (*dto.WorksheetResponse, error) {
	machineID, err := parseID("machine_id", req.MachineID)
	if err != nil {
		return nil, err
	}
	assigneeID, err := parseID("assigned_to_user_id", req.AssignedToUserID)
	if err != nil {
		return nil, err
	}
	machine, err := s.assets.FindMachineByID(ctx, machineID)
	if err != nil {
		return nil, notFound(err, "Machine", machineID)
	}
	assignee, err := s.users.FindByID(ctx, assigneeID)
	if err != nil {
		return nil, notFound(err, "User", assigneeID)
	}

	ws := &model.Worksheet{
		MachineID:        machineID,
		AssignedToUserID: assigneeID,
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		Status:           model.WorksheetOpen,
		BreakdownTime:    req.BreakdownTime,
		FaultCause:       req.FaultCause,
		Notes:            req.Notes,
		Version:          1,
	}
	ws.ID = uuid.New()
	if ws.Title == "" {
		ws.Title = defaultWorksheetTitle(ws.ID, assignee)
	}
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.CreateWorksheetTx(tx, ws)
	}); err != nil {
		return nil, err
	}
	ws.Machine = machine
	ws.AssignedUser = assignee

	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditCreate, EntityType: "worksheet", EntityID: ws.ID.String(),
		Changes: map[string]any{"machine_id": machineID.String(), "assigned_to": assigneeID.String(), "title": ws.Title}})
	s.notify.Notify(ctx, NotifyRequest{
		UserID:     assigneeID,
		Type:       model.NotifyWorksheetAssigned,
		Title:      "New worksheet assigned",
		Message:    fmt.Sprintf("%s (%s)", ws.Title, machine.Name),
		EntityType: "worksheet",
		EntityID:   &ws.ID,
	})
	log.Info().Str("worksheet_id", ws.ID.String()).Str("machine", machine.Name).Msg("worksheet created")
	resp := toWorksheetResponse(ws)
	return &resp, nil
}

func (s *worksheetService) CreateWorksheetTx(tx *gorm.DB, ws *model.Worksheet) error {
	if ws.Status == "" {
		ws.Status = model.WorksheetOpen
	}
	if ws.Version == 0 {
		ws.Version = 1
	}
	return s.repo.CreateTx(tx, ws)
}

func (s *worksheetService) GetWorksheet(ctx context.Context, id uuid.UUID) (*dto.WorksheetResponse, error) {
	ws, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Worksheet", id)
	}
	resp := toWorksheetResponse(ws)
	return &resp, nil
}

func (s *worksheetService) list(ctx context.Context, f dto.WorksheetFilter, statuses []string) (*dto.ListResponse[dto.WorksheetResponse], error) {
	f.Normalize()
	machineID, err := parseOptionalID("machine_id", &f.MachineID)
	if err != nil {
		return nil, err
	}
	assignee, err := parseOptionalID("assigned_to", &f.AssignedTo)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !worksheetFlow.known(f.Status) {
		return nil, apperror.Validation("status", "unknown worksheet status: "+f.Status)
	}
	rows, total, err := s.repo.List(ctx, repository.WorksheetFilter{
		MachineID:  machineID,
		AssignedTo: assignee,
		Status:     f.Status,
		Statuses:   statuses,
		Offset:     f.Offset(),
		Limit:      f.Limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.WorksheetResponse, len(rows))
	for i := range rows {
		items[i] = toWorksheetResponse(&rows[i])
	}
	return dto.NewList(items, total, f.Pagination), nil
}

func (s *worksheetService) ListWorksheets(ctx context.Context, f dto.WorksheetFilter) (*dto.ListResponse[dto.WorksheetResponse], error) {
	return s.list(ctx, f, nil)
}

func (s *worksheetService) ListActiveWorksheets(ctx context.Context, f dto.WorksheetFilter) (*dto.ListResponse[dto.WorksheetResponse], error) {
	f.Status = ""
	return s.list(ctx, f, []string{model.WorksheetOpen, model.WorksheetWaiting})
}

func (s *worksheetService) UpdateStatus(ctx context.Context, actor, id uuid.UUID, req dto.WorksheetStatusRequest) (*dto.WorksheetResponse, error) {
	var ws *model.Worksheet
	var old string
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		ws, err = s.repo.FindByIDTx(tx, id)
		if err != nil {
			return notFound(err, "Worksheet", id)
		}
		if err := worksheetFlow.validate(ws.Status, req.Status); err != nil {
			if ae, ok := err.(*apperror.Error); ok {
				return ae.Wrap(ErrWorksheetService)
			}
			return err
		}
		old = ws.Status
		if old == req.Status {
			return nil
		}

		if req.Status == model.WorksheetClosed {
			if strings.TrimSpace(ws.FaultCause) == "" {
				return apperror.Validation("fault_cause", "fault cause is required to close a worksheet").Wrap(ErrWorksheetService)
			}
			if ws.BreakdownTime == nil {
				return apperror.Validation("breakdown_time", "breakdown time is required to close a worksheet").Wrap(ErrWorksheetService)
			}
			now := s.now()
			finished := now
			if req.RepairFinishedTime != nil {
				finished = req.RepairFinishedTime.UTC()
			}
			if finished.Before(*ws.BreakdownTime) {
				return apperror.Validation("repair_finished_time", "repair finished time cannot precede breakdown time").Wrap(ErrWorksheetService)
			}
			ws.RepairFinishedTime = &finished
			ws.TotalDowntimeHours = roundHours(finished.Sub(*ws.BreakdownTime))
			ws.ClosedAt = &now
		}
		ws.Status = req.Status
		ws.Version++
		return s.repo.UpdateTx(tx, ws)
	})
	if err != nil {
		return nil, err
	}
	if old == req.Status {
		resp := toWorksheetResponse(ws)
		return &resp, nil
	}

	changes := map[string]any{"status": map[string]any{"old": old, "new": req.Status}}
	if req.Status == model.WorksheetClosed {
		changes["total_downtime_hours"] = ws.TotalDowntimeHours
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditStatusChange, EntityType: "worksheet", EntityID: id.String(), Changes: changes})
	s.notify.Notify(ctx, NotifyRequest{
		UserID:     ws.AssignedToUserID,
		Type:       model.NotifyWorksheetStatus,
		Title:      "Worksheet status changed",
		Message:    fmt.Sprintf("%s: %s -> %s", ws.Title, old, req.Status),
		EntityType: "worksheet",
		EntityID:   &ws.ID,
	})
	resp := toWorksheetResponse(ws)
	return &resp, nil
}

func roundHours(d time.Duration) float64 {
	return decimal.NewFromFloat(d.Hours()).Round(2).InexactFloat64()
}

func (s *worksheetService) UpdateDetails(ctx context.Context, actor, id uuid.UUID, req dto.UpdateWorksheetRequest) (*dto.WorksheetResponse, error) {
	changes := map[string]any{}
	var ws *model.Worksheet
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		ws, err = s.repo.FindByIDTx(tx, id)
		if err != nil {
			return notFound(err, "Worksheet", id)
		}
		if ws.Status == model.WorksheetClosed {
			return worksheetClosed(id)
		}
		if req.Title != nil {
			ws.Title = strings.TrimSpace(*req.Title)
			changes["title"] = ws.Title
		}
		if req.Description != nil {
			ws.Description = *req.Description
			changes["description"] = ws.Description
		}
		if req.FaultCause != nil {
			ws.FaultCause = *req.FaultCause
			changes["fault_cause"] = ws.FaultCause
		}
		if req.Notes != nil {
			ws.Notes = *req.Notes
			changes["notes"] = ws.Notes
		}
		if req.BreakdownTime != nil {
			t := req.BreakdownTime.UTC()
			ws.BreakdownTime = &t
			changes["breakdown_time"] = t
		}
		ws.Version++
		return s.repo.UpdateTx(tx, ws)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "worksheet", EntityID: id.String(), Changes: changes})
	resp := toWorksheetResponse(ws)
	return &resp, nil
}

func (s *worksheetService) AddPart(ctx context.Context, actor, id uuid.UUID, req dto.AddWorksheetPartRequest) (*dto.WorksheetPartResponse, error) {
	if req.Quantity <= 0 {
		return nil, apperror.Validation("quantity", "quantity must be positive").Wrap(ErrWorksheetService)
	}
	partID, err := parseID("part_id", req.PartID)
	if err != nil {
		return nil, err
	}

	var wp *model.WorksheetPart
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ws, err := s.repo.FindByIDTx(tx, id)
		if err != nil {
			return notFound(err, "Worksheet", id)
		}
		if ws.Status == model.WorksheetClosed {
			return worksheetClosed(id)
		}
		cost, err := s.stock.GetFIFOCostTx(tx, partID, req.Quantity)
		if err != nil {
			return err
		}
		st, err := s.stock.AdjustStockTx(tx, StockMovement{
			PartID:        partID,
			Quantity:      -req.Quantity,
			ReferenceType: "worksheet",
			ReferenceID:   &ws.ID,
			UserID:        actor,
			Notes:         req.Notes,
		})
		if err != nil {
			return err
		}
		wp = &model.WorksheetPart{
			WorksheetID:    ws.ID,
			PartID:         partID,
			QuantityUsed:   req.Quantity,
			UnitCostAtTime: cost,
			Notes:          req.Notes,
			AddedAt:        s.now(),
			Part:           st.Part,
		}
		return s.repo.CreatePartTx(tx, wp)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "worksheet", EntityID: id.String(),
		Changes: map[string]any{"part_added": partID.String(), "quantity": req.Quantity, "unit_cost": wp.UnitCostAtTime.String()}})
	resp := toWorksheetPartResponse(wp)
	return &resp, nil
}

func (s *worksheetService) ListParts(ctx context.Context, id uuid.UUID) ([]dto.WorksheetPartResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "Worksheet", id)
	}
	parts, err := s.repo.ListParts(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.WorksheetPartResponse, len(parts))
	for i := range parts {
		out[i] = toWorksheetPartResponse(&parts[i])
	}
	return out, nil
}

func (s *worksheetService) GenerateWorksheetPDF(ctx context.Context, id uuid.UUID) (*GeneratedFile, error) {
	ws, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Worksheet", id)
	}
	report := infra.WorksheetReport{Worksheet: ws, GeneratedAt: s.now()}
	if ws.Machine != nil {
		report.MachineName = ws.Machine.Name
	}
	if ws.AssignedUser != nil {
		report.AssigneeName = ws.AssignedUser.DisplayName()
	}
	for _, p := range ws.Parts {
		line := infra.WorksheetReportLine{Quantity: p.QuantityUsed, UnitCost: p.UnitCostAtTime}
		if p.Part != nil {
			line.SKU, line.Name = p.Part.SKU, p.Part.Name
		}
		report.Parts = append(report.Parts, line)
	}
	data, err := infra.GenerateWorksheetPDF(report)
	if err != nil {
		return nil, fmt.Errorf("worksheet pdf: %w", err)
	}

	f := &GeneratedFile{
		Name:        fmt.Sprintf("worksheet_%s_%s.pdf", ws.ID.String()[:8], s.now().Format("20060102_150405")),
		ContentType: "application/pdf",
		Data:        data,
	}
	if s.archive != nil {
		loc, err := s.archive.Save(ctx, "worksheets/"+f.Name, f.ContentType, data)
		if err != nil {
			log.Warn().Err(err).Str("worksheet_id", id.String()).Msg("worksheet pdf: archive failed")
		}
		f.Location = loc
	}
	return f, nil
}

func toWorksheetResponse(w *model.Worksheet) dto.WorksheetResponse {
	resp := dto.WorksheetResponse{
		ID:                 w.ID.String(),
		MachineID:          w.MachineID.String(),
		AssignedToUserID:   w.AssignedToUserID.String(),
		Title:              w.Title,
		Description:        w.Description,
		Status:             w.Status,
		BreakdownTime:      w.BreakdownTime,
		RepairFinishedTime: w.RepairFinishedTime,
		TotalDowntimeHours: w.TotalDowntimeHours,
		FaultCause:         w.FaultCause,
		Notes:              w.Notes,
		ClosedAt:           w.ClosedAt,
		CreatedAt:          w.CreatedAt,
	}
	if w.Machine != nil {
		resp.MachineName = w.Machine.Name
	}
	if w.AssignedUser != nil {
		resp.AssignedToName = w.AssignedUser.DisplayName()
	}
	for i := range w.Parts {
		resp.Parts = append(resp.Parts, toWorksheetPartResponse(&w.Parts[i]))
	}
	return resp
}

func toWorksheetPartResponse(p *model.WorksheetPart) dto.WorksheetPartResponse {
	resp := dto.WorksheetPartResponse{
		ID:             p.ID.String(),
		PartID:         p.PartID.String(),
		QuantityUsed:   p.QuantityUsed,
		UnitCostAtTime: p.UnitCostAtTime,
		TotalCost:      p.UnitCostAtTime.Mul(decimal.NewFromInt(int64(p.QuantityUsed))),
		Notes:          p.Notes,
		AddedAt:        p.AddedAt,
	}
	if p.Part != nil {
		resp.PartSKU = p.Part.SKU
		resp.PartName = p.Part.Name
	}
	return resp
}
