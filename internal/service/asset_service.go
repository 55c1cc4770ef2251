package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type AssetService interface {
	CreateProductionLine(ctx context.Context, actor uuid.UUID, req dto.CreateProductionLineRequest) (*dto.ProductionLineResponse, error)
	ListProductionLines(ctx context.Context) ([]dto.ProductionLineResponse, error)
	UpdateProductionLine(ctx context.Context, actor, id uuid.UUID, req dto.UpdateProductionLineRequest) (*dto.ProductionLineResponse, error)
	DeleteProductionLine(ctx context.Context, actor, id uuid.UUID) error

	CreateMachine(ctx context.Context, actor uuid.UUID, req dto.CreateMachineRequest) (*dto.MachineResponse, error)
	GetMachine(ctx context.Context, id uuid.UUID) (*dto.MachineResponse, error)
	ListMachines(ctx context.Context, filter dto.MachineFilter) (*dto.ListResponse[dto.MachineResponse], error)
	UpdateMachine(ctx context.Context, actor, id uuid.UUID, req dto.UpdateMachineRequest) (*dto.MachineResponse, error)
	ChangeStatus(ctx context.Context, actor, id uuid.UUID, req dto.MachineStatusRequest) (*dto.MachineResponse, error)
	UpdateOperatingHours(ctx context.Context, actor, id uuid.UUID, hours float64) (*dto.MachineResponse, error)
	ScrapMachine(ctx context.Context, actor, id uuid.UUID, reason string) (*dto.MachineResponse, error)
	GetMachineHistory(ctx context.Context, id uuid.UUID) ([]dto.AssetHistoryResponse, error)
	ListUpcomingService(ctx context.Context, days int) ([]dto.MachineResponse, error)
}

type assetService struct {
	repo  repository.AssetRepository
	audit AuditService
	now   func() time.Time
}

func NewAssetService(repo repository.AssetRepository, audit AuditService) AssetService {
	return &assetService{repo: repo, audit: audit, now: utcNow}
}

func assetValidation(field, msg string) error {
	return apperror.Validation(field, msg).Wrap(ErrAssetService)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// ─── Production lines ────────────────────────────────────────────────────────

func (s *assetService) CreateProductionLine(ctx context.Context, actor uuid.UUID, req dto.CreateProductionLineRequest) (*dto.ProductionLineResponse, error) {
	name := strings.TrimSpace(req.Name)
	if taken, err := s.repo.LineNameTaken(ctx, name, uuid.Nil); err != nil {
		return nil, err
	} else if taken {
		return nil, assetValidation("name", "production line name already exists")
	}
	code := trimmedOrNil(req.Code)
	if code != nil {
		if taken, err := s.repo.LineCodeTaken(ctx, *code, uuid.Nil); err != nil {
			return nil, err
		} else if taken {
			return nil, assetValidation("code", "production line code already exists")
		}
	}
	line := &model.ProductionLine{Name: name, Code: code, Description: req.Description, Status: "Active"}
	if err := s.repo.CreateLine(ctx, line); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditCreate, EntityType: "production_line", EntityID: line.ID.String(),
		Changes: map[string]any{"name": name}})
	resp := toLineResponse(line, 0)
	return &resp, nil
}

func (s *assetService) ListProductionLines(ctx context.Context) ([]dto.ProductionLineResponse, error) {
	lines, err := s.repo.ListLines(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ProductionLineResponse, len(lines))
	for i := range lines {
		out[i] = toLineResponse(&lines[i].ProductionLine, lines[i].MachineCount)
	}
	return out, nil
}

func (s *assetService) UpdateProductionLine(ctx context.Context, actor, id uuid.UUID, req dto.UpdateProductionLineRequest) (*dto.ProductionLineResponse, error) {
	line, err := s.repo.FindLineByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ProductionLine", id)
	}
	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != line.Name {
			if taken, err := s.repo.LineNameTaken(ctx, name, id); err != nil {
				return nil, err
			} else if taken {
				return nil, assetValidation("name", "production line name already exists")
			}
			line.Name = name
			changes["name"] = name
		}
	}
	if req.Code != nil {
		code := trimmedOrNil(req.Code)
		if code != nil {
			if taken, err := s.repo.LineCodeTaken(ctx, *code, id); err != nil {
				return nil, err
			} else if taken {
				return nil, assetValidation("code", "production line code already exists")
			}
		}
		line.Code = code
		changes["code"] = deref(code)
	}
	if req.Description != nil {
		line.Description = *req.Description
		changes["description"] = *req.Description
	}
	if req.Status != nil {
		line.Status = *req.Status
		changes["status"] = *req.Status
	}
	if err := s.repo.UpdateLine(ctx, line); err != nil {
		return nil, err
	}
	count, err := s.repo.CountMachinesInLine(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "production_line", EntityID: id.String(), Changes: changes})
	resp := toLineResponse(line, count)
	return &resp, nil
}

func (s *assetService) DeleteProductionLine(ctx context.Context, actor, id uuid.UUID) error {
	if _, err := s.repo.FindLineByID(ctx, id); err != nil {
		return notFound(err, "ProductionLine", id)
	}
	count, err := s.repo.CountMachinesInLine(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperror.BusinessLogic("PRODUCTION_LINE_HAS_MACHINES",
			fmt.Sprintf("production line still has %d machine(s)", count)).
			With("machine_count", count).Wrap(ErrAssetService)
	}
	if err := s.repo.DeleteLine(ctx, id); err != nil {
		return err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditDelete, EntityType: "production_line", EntityID: id.String()})
	return nil
}

// ─── Machines ────────────────────────────────────────────────────────────────

func (s *assetService) checkIdentifiers(ctx context.Context, serial, tag *string, exclude uuid.UUID) error {
	if serial != nil {
		taken, err := s.repo.SerialTaken(ctx, *serial, exclude)
		if err != nil {
			return err
		}
		if taken {
			return assetValidation("serial_number", "serial number already exists")
		}
	}
	if tag != nil {
		taken, err := s.repo.AssetTagTaken(ctx, *tag, exclude)
		if err != nil {
			return err
		}
		if taken {
			return assetValidation("asset_tag", "asset tag already exists")
		}
	}
	return nil
}

func (s *assetService) CreateMachine(ctx context.Context, actor uuid.UUID, req dto.CreateMachineRequest) (*dto.MachineResponse, error) {
	lineID, err := parseID("production_line_id", req.ProductionLineID)
	if err != nil {
		return nil, err
	}
	line, err := s.repo.FindLineByID(ctx, lineID)
	if err != nil {
		return nil, notFound(err, "ProductionLine", lineID)
	}
	serial, tag := trimmedOrNil(req.SerialNumber), trimmedOrNil(req.AssetTag)
	if err := s.checkIdentifiers(ctx, serial, tag, uuid.Nil); err != nil {
		return nil, err
	}
	criticality := req.CriticalityLevel
	if criticality == "" {
		criticality = "normal"
	}

	m := &model.Machine{
		ProductionLineID: lineID,
		Name:             strings.TrimSpace(req.Name),
		SerialNumber:     serial,
		AssetTag:         tag,
		Model:            req.Model,
		Manufacturer:     req.Manufacturer,
		InstallDate:      req.InstallDate,
		Status:           model.MachineActive,
		OperatingHours:   req.OperatingHours,
		NextServiceDate:  req.NextServiceDate,
		CriticalityLevel: criticality,
		Version:          1,
	}
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateMachineTx(tx, m); err != nil {
			return err
		}
		return s.history(tx, m.ID, actor, model.AssetActionCreated, "machine created: "+m.Name)
	})
	if err != nil {
		return nil, err
	}
	m.ProductionLine = line

	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditCreate, EntityType: "machine", EntityID: m.ID.String(),
		Changes: map[string]any{"name": m.Name, "production_line_id": lineID.String()}})
	log.Info().Str("machine_id", m.ID.String()).Str("name", m.Name).Msg("machine created")
	resp := toMachineResponse(m)
	return &resp, nil
}

func (s *assetService) GetMachine(ctx context.Context, id uuid.UUID) (*dto.MachineResponse, error) {
	m, err := s.repo.FindMachineByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Machine", id)
	}
	resp := toMachineResponse(m)
	return &resp, nil
}

func (s *assetService) ListMachines(ctx context.Context, f dto.MachineFilter) (*dto.ListResponse[dto.MachineResponse], error) {
	f.Normalize()
	lineID, err := parseOptionalID("production_line_id", &f.ProductionLineID)
	if err != nil {
		return nil, err
	}
	machines, total, err := s.repo.ListMachines(ctx, repository.MachineFilter{
		ProductionLineID: lineID,
		Status:           f.Status,
		Search:           strings.TrimSpace(f.Search),
		Offset:           f.Offset(),
		Limit:            f.Limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.MachineResponse, len(machines))
	for i := range machines {
		items[i] = toMachineResponse(&machines[i])
	}
	return dto.NewList(items, total, f.Pagination), nil
}

func (s *assetService) UpdateMachine(ctx context.Context, actor, id uuid.UUID, req dto.UpdateMachineRequest) (*dto.MachineResponse, error) {
	m, err := s.repo.FindMachineByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Machine", id)
	}
	if m.Version != req.Version {
		return nil, concurrentModification(m.Version, req.Version)
	}
	changes := map[string]any{}

	if req.ProductionLineID != nil {
		lineID, err := parseID("production_line_id", *req.ProductionLineID)
		if err != nil {
			return nil, err
		}
		if lineID != m.ProductionLineID {
			line, err := s.repo.FindLineByID(ctx, lineID)
			if err != nil {
				return nil, notFound(err, "ProductionLine", lineID)
			}
			m.ProductionLineID = lineID
			m.ProductionLine = line
			changes["production_line_id"] = lineID.String()
		}
	}
	var serial, tag *string
	if req.SerialNumber != nil {
		serial = trimmedOrNil(req.SerialNumber)
	}
	if req.AssetTag != nil {
		tag = trimmedOrNil(req.AssetTag)
	}
	if err := s.checkIdentifiers(ctx, serial, tag, id); err != nil {
		return nil, err
	}
	if req.SerialNumber != nil {
		m.SerialNumber = serial
		changes["serial_number"] = deref(serial)
	}
	if req.AssetTag != nil {
		m.AssetTag = tag
		changes["asset_tag"] = deref(tag)
	}
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
		changes["name"] = m.Name
	}
	if req.Model != nil {
		m.Model = *req.Model
		changes["model"] = m.Model
	}
	if req.Manufacturer != nil {
		m.Manufacturer = *req.Manufacturer
		changes["manufacturer"] = m.Manufacturer
	}
	if req.InstallDate != nil {
		m.InstallDate = req.InstallDate
		changes["install_date"] = req.InstallDate
	}
	if req.LastServiceDate != nil {
		m.LastServiceDate = req.LastServiceDate
		changes["last_service_date"] = req.LastServiceDate
	}
	if req.NextServiceDate != nil {
		m.NextServiceDate = req.NextServiceDate
		changes["next_service_date"] = req.NextServiceDate
	}
	if req.CriticalityLevel != nil {
		m.CriticalityLevel = *req.CriticalityLevel
		changes["criticality_level"] = m.CriticalityLevel
	}

	if err := s.saveVersioned(ctx, m, actor, model.AssetActionUpdated, "machine updated"); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "machine", EntityID: id.String(), Changes: changes})
	resp := toMachineResponse(m)
	return &resp, nil
}

func (s *assetService) ChangeStatus(ctx context.Context, actor, id uuid.UUID, req dto.MachineStatusRequest) (*dto.MachineResponse, error) {
	m, err := s.repo.FindMachineByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Machine", id)
	}
	if req.Status == model.MachineScrapped {
		return s.ScrapMachine(ctx, actor, id, req.Reason)
	}
	if err := machineFlow.validate(m.Status, req.Status); err != nil {
		return nil, err
	}
	if m.Status == req.Status {
		resp := toMachineResponse(m)
		return &resp, nil
	}
	old := m.Status
	m.Status = req.Status
	desc := fmt.Sprintf("status %s -> %s", old, req.Status)
	if req.Reason != "" {
		desc += ": " + req.Reason
	}
	if err := s.saveVersioned(ctx, m, actor, model.AssetActionStatusChanged, desc); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditStatusChange, EntityType: "machine", EntityID: id.String(),
		Changes: map[string]any{"status": map[string]any{"old": old, "new": req.Status}, "reason": req.Reason}})
	resp := toMachineResponse(m)
	return &resp, nil
}

func (s *assetService) UpdateOperatingHours(ctx context.Context, actor, id uuid.UUID, hours float64) (*dto.MachineResponse, error) {
	m, err := s.repo.FindMachineByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Machine", id)
	}
	if hours < m.OperatingHours {
		return nil, apperror.Validation("hours", "operating hours cannot decrease").
			With("current", m.OperatingHours).Wrap(ErrAssetService)
	}
	old := m.OperatingHours
	m.OperatingHours = hours
	desc := fmt.Sprintf("operating hours %.1f -> %.1f", old, hours)
	if err := s.saveVersioned(ctx, m, actor, model.AssetActionHoursUpdated, desc); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "machine", EntityID: id.String(),
		Changes: map[string]any{"operating_hours": map[string]any{"old": old, "new": hours}}})
	resp := toMachineResponse(m)
	return &resp, nil
}

func (s *assetService) ScrapMachine(ctx context.Context, actor, id uuid.UUID, reason string) (*dto.MachineResponse, error) {
	m, err := s.repo.FindMachineByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Machine", id)
	}
	if err := machineFlow.validate(m.Status, model.MachineScrapped); err != nil {
		return nil, err
	}
	if m.Status == model.MachineScrapped {
		resp := toMachineResponse(m)
		return &resp, nil
	}
	open, err := s.repo.CountOpenWorksheets(ctx, id)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, apperror.BusinessLogic("MACHINE_HAS_ACTIVE_WORKSHEETS",
			fmt.Sprintf("machine has %d active worksheet(s)", open)).
			With("active_worksheets", open).Wrap(ErrAssetService)
	}
	old := m.Status
	m.Status = model.MachineScrapped
	if err := s.saveVersioned(ctx, m, actor, model.AssetActionScrapped, "machine scrapped: "+reason); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditStatusChange, EntityType: "machine", EntityID: id.String(),
		Changes: map[string]any{"status": map[string]any{"old": old, "new": model.MachineScrapped}, "reason": reason}})
	log.Info().Str("machine_id", id.String()).Str("reason", reason).Msg("machine scrapped")
	resp := toMachineResponse(m)
	return &resp, nil
}

func (s *assetService) GetMachineHistory(ctx context.Context, id uuid.UUID) ([]dto.AssetHistoryResponse, error) {
	if _, err := s.repo.FindMachineByID(ctx, id); err != nil {
		return nil, notFound(err, "Machine", id)
	}
	rows, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AssetHistoryResponse, len(rows))
	for i, h := range rows {
		out[i] = dto.AssetHistoryResponse{
			ID:          h.ID.String(),
			ActionType:  h.ActionType,
			Description: h.Description,
			UserID:      idString(h.UserID),
			Timestamp:   h.Timestamp,
		}
	}
	return out, nil
}

func (s *assetService) ListUpcomingService(ctx context.Context, days int) ([]dto.MachineResponse, error) {
	if days <= 0 {
		days = 30
	}
	machines, err := s.repo.ListUpcomingService(ctx, s.now().AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	out := make([]dto.MachineResponse, len(machines))
	for i := range machines {
		out[i] = toMachineResponse(&machines[i])
	}
	return out, nil
}

// saveVersioned persists m guarded by its current version and writes the
// history row in the same transaction.
func (s *assetService) saveVersioned(ctx context.Context, m *model.Machine, actor uuid.UUID, action, desc string) error {
	expected := m.Version
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ok, err := s.repo.SaveMachineVersionedTx(tx, m, expected)
		if err != nil {
			return err
		}
		if !ok {
			return concurrentModification(expected+1, expected)
		}
		return s.history(tx, m.ID, actor, action, desc)
	})
}

func (s *assetService) history(tx *gorm.DB, machineID, actor uuid.UUID, action, desc string) error {
	return s.repo.CreateHistoryTx(tx, &model.AssetHistory{
		MachineID:   machineID,
		ActionType:  action,
		Description: desc,
		UserID:      optionalID(actor),
		Timestamp:   s.now(),
	})
}

func concurrentModification(current, given int) error {
	return apperror.BusinessLogic("CONCURRENT_MODIFICATION", "the record was modified by someone else, reload and retry").
		With("current_version", current).With("given_version", given).Wrap(ErrAssetService)
}

func toLineResponse(l *model.ProductionLine, machines int64) dto.ProductionLineResponse {
	return dto.ProductionLineResponse{
		ID:           l.ID.String(),
		Name:         l.Name,
		Code:         l.Code,
		Description:  l.Description,
		Status:       l.Status,
		MachineCount: machines,
	}
}

func toMachineResponse(m *model.Machine) dto.MachineResponse {
	resp := dto.MachineResponse{
		ID:               m.ID.String(),
		ProductionLineID: m.ProductionLineID.String(),
		Name:             m.Name,
		SerialNumber:     m.SerialNumber,
		AssetTag:         m.AssetTag,
		Model:            m.Model,
		Manufacturer:     m.Manufacturer,
		InstallDate:      m.InstallDate,
		Status:           m.Status,
		OperatingHours:   m.OperatingHours,
		LastServiceDate:  m.LastServiceDate,
		NextServiceDate:  m.NextServiceDate,
		CriticalityLevel: m.CriticalityLevel,
		Version:          m.Version,
	}
	if m.ProductionLine != nil {
		resp.ProductionLineName = m.ProductionLine.Name
	}
	return resp
}
