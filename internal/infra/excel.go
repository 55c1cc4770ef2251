package infra

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of generated workbooks.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet is a single worksheet of tabular data.
type Sheet struct {
	Name    string
	Headers []string
	Widths  []float64
	Rows    [][]any
}

// BuildWorkbook renders sheets into an xlsx file with a bold header row.
func BuildWorkbook(sheets ...Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel: no sheets")
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("excel: style: %w", err)
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, err
		}

		for c, h := range sh.Headers {
			col, _ := excelize.ColumnNumberToName(c + 1)
			cell := fmt.Sprintf("%s1", col)
			_ = f.SetCellValue(sh.Name, cell, h)
			_ = f.SetCellStyle(sh.Name, cell, cell, headerStyle)
			if c < len(sh.Widths) {
				_ = f.SetColWidth(sh.Name, col, col, sh.Widths[c])
			}
		}
		for r, row := range sh.Rows {
			for c, v := range row {
				col, _ := excelize.ColumnNumberToName(c + 1)
				if err := f.SetCellValue(sh.Name, fmt.Sprintf("%s%d", col, r+2), v); err != nil {
					return nil, fmt.Errorf("excel: %s row %d: %w", sh.Name, r+2, err)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("excel: write: %w", err)
	}
	return buf.Bytes(), nil
}
