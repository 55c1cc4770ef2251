package infra

import (
	"bytes"
	"fmt"
	"time"

	"zedcmms/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// WorksheetReport is the data printed on a worksheet PDF.
type WorksheetReport struct {
	Worksheet    *model.Worksheet
	MachineName  string
	AssigneeName string
	Parts        []WorksheetReportLine
	GeneratedAt  time.Time
}

type WorksheetReportLine struct {
	SKU      string
	Name     string
	Quantity int
	UnitCost decimal.Decimal
}

func (l WorksheetReportLine) Total() decimal.Decimal {
	return l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04")
}

// GenerateWorksheetPDF renders an A4 worksheet report and returns the bytes.
func GenerateWorksheetPDF(r WorksheetReport) ([]byte, error) {
	ws := r.Worksheet
	if ws == nil {
		return nil, fmt.Errorf("pdf: nil worksheet")
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr("Worksheet "+ws.ID.String()[:8]), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentW, 6, tr(ws.Title), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	info := [][2]string{
		{"Machine", r.MachineName},
		{"Assigned to", r.AssigneeName},
		{"Status", ws.Status},
		{"Breakdown", fmtTime(ws.BreakdownTime)},
		{"Repair finished", fmtTime(ws.RepairFinishedTime)},
		{"Downtime (h)", fmt.Sprintf("%.2f", ws.TotalDowntimeHours)},
		{"Fault cause", ws.FaultCause},
	}
	for _, row := range info {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, row[0]+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW-40, 6, tr(row[1]), "", 1, "L", false, 0, "")
	}
	if ws.Description != "" {
		pdf.Ln(2)
		pdf.MultiCell(contentW, 5, tr(ws.Description), "", "L", false)
	}

	pdf.Ln(4)
	cols := []float64{contentW * 0.18, contentW * 0.37, contentW * 0.12, contentW * 0.16, contentW * 0.17}
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range []string{"SKU", "Part", "Qty", "Unit cost", "Total"} {
		pdf.CellFormat(cols[i], 6, h, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	total := decimal.Zero
	for _, p := range r.Parts {
		line := p.Total()
		total = total.Add(line)
		pdf.CellFormat(cols[0], 6, tr(p.SKU), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 6, tr(p.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2], 6, fmt.Sprintf("%d", p.Quantity), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[3], 6, p.UnitCost.StringFixed(2), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[4], 6, line.StringFixed(2), "", 1, "L", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(cols[0]+cols[1]+cols[2]+cols[3], 7, "Total parts cost:", "T", 0, "L", false, 0, "")
	pdf.CellFormat(cols[4], 7, total.StringFixed(2), "T", 1, "L", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(contentW, 4, "Generated "+r.GeneratedAt.UTC().Format(time.RFC3339), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: write: %w", err)
	}
	return buf.Bytes(), nil
}
