package service

import (
	"context"
	"fmt"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/dto"
	"zedcmms/internal/infra"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const dashboardCacheKey = "dashboard"

type ReportService interface {
	// Dashboard returns headline counts, cached for 30 seconds.
	Dashboard(ctx context.Context) (*dto.DashboardResponse, error)
	MaintenanceCosts(ctx context.Context, filter dto.CostReportFilter) (*dto.MaintenanceCostReport, error)
	InventoryValuation(ctx context.Context) (*dto.InventoryValuation, error)
	InventoryExcel(ctx context.Context) (*GeneratedFile, error)
	PMScheduleExcel(ctx context.Context) (*GeneratedFile, error)
}

type reportService struct {
	assets       repository.AssetRepository
	worksheets   repository.WorksheetRepository
	pm           repository.PMRepository
	inventory    repository.InventoryRepository
	reservations repository.ReservationRepository
	archive      ReportArchiver
	cache        *gocache.Cache
	now          func() time.Time
}

func NewReportService(
	assets repository.AssetRepository,
	worksheets repository.WorksheetRepository,
	pm repository.PMRepository,
	inventory repository.InventoryRepository,
	reservations repository.ReservationRepository,
	archive ReportArchiver,
) ReportService {
	return &reportService{
		assets:       assets,
		worksheets:   worksheets,
		pm:           pm,
		inventory:    inventory,
		reservations: reservations,
		archive:      archive,
		cache:        gocache.New(30*time.Second, time.Minute),
		now:          utcNow,
	}
}

func (s *reportService) Dashboard(ctx context.Context) (*dto.DashboardResponse, error) {
	if v, ok := s.cache.Get(dashboardCacheKey); ok {
		return v.(*dto.DashboardResponse), nil
	}
	now := s.now()
	resp := &dto.DashboardResponse{GeneratedAt: now}
	var err error

	if resp.MachinesByStatus, err = s.assets.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if resp.OpenWorksheets, err = s.worksheets.CountByStatus(ctx, model.WorksheetOpen); err != nil {
		return nil, err
	}
	if resp.WaitingWorksheets, err = s.worksheets.CountByStatus(ctx, model.WorksheetWaiting); err != nil {
		return nil, err
	}
	if resp.PMDueToday, err = s.pm.CountByStatus(ctx, model.PMDueToday); err != nil {
		return nil, err
	}
	if resp.PMOverdue, err = s.pm.CountByStatus(ctx, model.PMOverdue); err != nil {
		return nil, err
	}
	if resp.LowStockParts, err = s.inventory.CountLowStock(ctx); err != nil {
		return nil, err
	}
	if resp.ActiveReservations, err = s.reservations.CountActive(ctx, now); err != nil {
		return nil, err
	}
	s.cache.SetDefault(dashboardCacheKey, resp)
	return resp, nil
}

func (s *reportService) MaintenanceCosts(ctx context.Context, f dto.CostReportFilter) (*dto.MaintenanceCostReport, error) {
	to := s.now()
	if f.To != nil {
		to = f.To.UTC()
	}
	from := to.AddDate(0, 0, -30)
	if f.From != nil {
		from = f.From.UTC()
	}
	if !from.Before(to) {
		return nil, apperror.Validation("from", "from must be before to")
	}

	machines, err := s.worksheets.CostsByMachine(ctx, from, to)
	if err != nil {
		return nil, err
	}
	parts, err := s.worksheets.PartsUsedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}
	costs := make(map[uuid.UUID]decimal.Decimal)
	for _, p := range parts {
		costs[p.MachineID] = costs[p.MachineID].Add(p.UnitCostAtTime.Mul(decimal.NewFromInt(int64(p.QuantityUsed))))
	}

	report := &dto.MaintenanceCostReport{From: from, To: to, TotalCost: decimal.Zero}
	for _, m := range machines {
		cost := costs[m.MachineID]
		report.Machines = append(report.Machines, dto.MachineCostLine{
			MachineID:     m.MachineID.String(),
			MachineName:   m.MachineName,
			Worksheets:    m.Worksheets,
			PartsCost:     cost,
			DowntimeHours: m.DowntimeHours,
		})
		report.TotalCost = report.TotalCost.Add(cost)
		report.TotalHours += m.DowntimeHours
	}
	return report, nil
}

func (s *reportService) InventoryValuation(ctx context.Context) (*dto.InventoryValuation, error) {
	parts, err := s.inventory.ListAllParts(ctx)
	if err != nil {
		return nil, err
	}
	out := &dto.InventoryValuation{TotalValue: decimal.Zero}
	for i := range parts {
		line, err := s.valuePart(ctx, &parts[i])
		if err != nil {
			return nil, err
		}
		out.Parts = append(out.Parts, line)
		out.TotalValue = out.TotalValue.Add(line.Value)
	}
	return out, nil
}

// valuePart prices remaining batch stock at batch cost and any on-hand
// quantity not covered by batches at the part's buy price.
func (s *reportService) valuePart(ctx context.Context, p *model.Part) (dto.ValuationLine, error) {
	line := dto.ValuationLine{PartID: p.ID.String(), SKU: p.SKU, Name: p.Name, Value: decimal.Zero}
	if p.InventoryLevel != nil {
		line.QuantityOnHand = p.InventoryLevel.QuantityOnHand
	}
	batches, err := s.inventory.ListBatches(ctx, p.ID, false)
	if err != nil {
		return line, err
	}
	covered := 0
	for _, b := range batches {
		line.Value = line.Value.Add(b.UnitPrice.Mul(decimal.NewFromInt(int64(b.QuantityRemaining))))
		covered += b.QuantityRemaining
	}
	if rest := line.QuantityOnHand - covered; rest > 0 {
		line.Value = line.Value.Add(p.BuyPrice.Mul(decimal.NewFromInt(int64(rest))))
	}
	return line, nil
}

func (s *reportService) InventoryExcel(ctx context.Context) (*GeneratedFile, error) {
	parts, err := s.inventory.ListAllParts(ctx)
	if err != nil {
		return nil, err
	}
	sheet := infra.Sheet{
		Name:    "Inventory",
		Headers: []string{"SKU", "Name", "Category", "Unit", "On hand", "Reserved", "Safety stock", "Buy price", "Value", "Bin"},
		Widths:  []float64{16, 32, 18, 8, 10, 10, 12, 12, 14, 12},
	}
	for i := range parts {
		p := &parts[i]
		line, err := s.valuePart(ctx, p)
		if err != nil {
			return nil, err
		}
		reserved, bin := 0, ""
		if p.InventoryLevel != nil {
			reserved, bin = p.InventoryLevel.QuantityReserved, p.InventoryLevel.BinLocation
		}
		sheet.Rows = append(sheet.Rows, []any{
			p.SKU, p.Name, p.Category, p.Unit, line.QuantityOnHand, reserved, p.SafetyStock,
			p.BuyPrice.InexactFloat64(), line.Value.InexactFloat64(), bin,
		})
	}
	return s.workbook(ctx, "inventory", sheet)
}

func (s *reportService) PMScheduleExcel(ctx context.Context) (*GeneratedFile, error) {
	tasks, err := s.pm.ListDue(ctx, s.now(), nil, true)
	if err != nil {
		return nil, err
	}
	sheet := infra.Sheet{
		Name:    "PM schedule",
		Headers: []string{"Task", "Machine / location", "Type", "Frequency (days)", "Next due", "Status", "Priority"},
		Widths:  []float64{36, 28, 12, 16, 14, 12, 10},
	}
	for _, t := range tasks {
		where := t.Location
		if t.Machine != nil {
			where = t.Machine.Name
		}
		due := ""
		if t.NextDueDate != nil {
			due = t.NextDueDate.Format("2006-01-02")
		}
		sheet.Rows = append(sheet.Rows, []any{t.TaskName, where, t.TaskType, t.FrequencyDays, due, t.Status, t.Priority})
	}
	return s.workbook(ctx, "pm_schedule", sheet)
}

func (s *reportService) workbook(ctx context.Context, prefix string, sheet infra.Sheet) (*GeneratedFile, error) {
	data, err := infra.BuildWorkbook(sheet)
	if err != nil {
		return nil, fmt.Errorf("%s export: %w", prefix, err)
	}
	f := &GeneratedFile{
		Name:        fmt.Sprintf("%s_%s.xlsx", prefix, s.now().Format("20060102_150405")),
		ContentType: infra.XLSXContentType,
		Data:        data,
	}
	if s.archive != nil {
		loc, err := s.archive.Save(ctx, "exports/"+f.Name, f.ContentType, data)
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("export: archive failed")
		}
		f.Location = loc
	}
	return f, nil
}
