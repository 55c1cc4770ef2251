package infra

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"zedcmms/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestGenerateWorksheetPDF(t *testing.T) {
	bt := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	ws := &model.Worksheet{Title: "Bearing failure", Status: model.WorksheetClosed, BreakdownTime: &bt, FaultCause: "wear"}
	ws.ID = uuid.New()

	out, err := GenerateWorksheetPDF(WorksheetReport{
		Worksheet:    ws,
		MachineName:  "Press 1",
		AssigneeName: "Kovács Béla",
		Parts:        []WorksheetReportLine{{SKU: "BRG-6204", Name: "Bearing", Quantity: 2, UnitCost: decimal.NewFromInt(1500)}},
		GeneratedAt:  bt,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestBuildWorkbook(t *testing.T) {
	data, err := BuildWorkbook(Sheet{
		Name:    "Inventory",
		Headers: []string{"SKU", "Qty"},
		Rows:    [][]any{{"A-1", 3}, {"B-2", 0}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	v, err := f.GetCellValue("Inventory", "A3")
	require.NoError(t, err)
	assert.Equal(t, "B-2", v)
}

func TestReportStore_LocalFallback(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalReportStore(dir)

	loc, err := s.Save(context.Background(), "worksheets/ws.pdf", "application/pdf", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "worksheets", "ws.pdf"), loc)
	got, err := os.ReadFile(loc)
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}
