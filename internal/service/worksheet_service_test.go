package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWorksheet_DefaultTitleAndNotification(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("kovacs", config.RoleMaintenanceTech, strPtr("kovacs@example.com"))
	machine := env.seedMachine("CNC 7")

	ws := env.openWorksheet(machine, tech)

	assert.Equal(t, model.WorksheetOpen, ws.Status)
	assert.True(t, strings.HasPrefix(ws.Title, "Worksheet #"+strings.ToUpper(ws.ID[:8])))
	assert.True(t, strings.HasSuffix(ws.Title, "User kovacs"))
	assert.Equal(t, "CNC 7", ws.MachineName)

	unread, err := env.notifications.UnreadCount(env.ctx, tech.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	jobs := env.queue.sent()
	require.Len(t, jobs, 1)
	assert.Equal(t, "kovacs@example.com", jobs[0].To)
	assert.Contains(t, jobs[0].Subject, "New worksheet assigned")
}

func TestCreateWorksheet_UnknownReferences(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	machine := env.seedMachine("M1")

	_, err := env.worksheets.CreateWorksheet(env.ctx, tech.ID, dto.CreateWorksheetRequest{
		MachineID: uuid.NewString(), AssignedToUserID: tech.ID.String(),
	})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = env.worksheets.CreateWorksheet(env.ctx, tech.ID, dto.CreateWorksheetRequest{
		MachineID: machine.ID.String(), AssignedToUserID: uuid.NewString(),
	})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = env.worksheets.CreateWorksheet(env.ctx, tech.ID, dto.CreateWorksheetRequest{
		MachineID: "not-a-uuid", AssignedToUserID: tech.ID.String(),
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestUpdateStatus_ClosingRequiresFaultCause(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	ws := env.openWorksheet(env.seedMachine("M1"), tech)
	id := uuid.MustParse(ws.ID)

	_, err := env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: model.WorksheetClosed})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.True(t, errors.Is(err, ErrWorksheetService))

	got, err := env.worksheets.GetWorksheet(env.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.WorksheetOpen, got.Status)
}

func TestUpdateStatus_CloseComputesDowntime(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	ws := env.openWorksheet(env.seedMachine("M1"), tech)
	id := uuid.MustParse(ws.ID)

	_, err := env.worksheets.UpdateDetails(env.ctx, tech.ID, id, dto.UpdateWorksheetRequest{FaultCause: strPtr("worn bearing")})
	require.NoError(t, err)

	_, err = env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: model.WorksheetWaiting})
	require.NoError(t, err)

	env.advance(90 * time.Minute)
	closed, err := env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: model.WorksheetClosed})
	require.NoError(t, err)
	assert.Equal(t, model.WorksheetClosed, closed.Status)
	assert.InDelta(t, 4.5, closed.TotalDowntimeHours, 0.001)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(env.now))
}

func TestUpdateStatus_ClosedCannotReopen(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	ws := env.openWorksheet(env.seedMachine("M1"), tech)
	id := uuid.MustParse(ws.ID)

	_, err := env.worksheets.UpdateDetails(env.ctx, tech.ID, id, dto.UpdateWorksheetRequest{FaultCause: strPtr("short circuit")})
	require.NoError(t, err)
	_, err = env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: model.WorksheetClosed})
	require.NoError(t, err)

	for _, target := range []string{model.WorksheetOpen, model.WorksheetWaiting} {
		_, err = env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: target})
		require.Error(t, err, target)
		assert.True(t, apperror.Is(err, apperror.KindStateTransition))
		assert.True(t, errors.Is(err, ErrWorksheetService))
	}

	_, err = env.worksheets.UpdateDetails(env.ctx, tech.ID, id, dto.UpdateWorksheetRequest{Notes: strPtr("late note")})
	assert.True(t, apperror.Is(err, apperror.KindBusinessLogic))
}

func TestUpdateStatus_RepairTimeBeforeBreakdown(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	ws := env.openWorksheet(env.seedMachine("M1"), tech)
	id := uuid.MustParse(ws.ID)
	_, err := env.worksheets.UpdateDetails(env.ctx, tech.ID, id, dto.UpdateWorksheetRequest{FaultCause: strPtr("x")})
	require.NoError(t, err)

	early := env.now.Add(-5 * time.Hour)
	_, err = env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: model.WorksheetClosed, RepairFinishedTime: &early})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestAddPart_IssuesStockAtFIFOCost(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	ws := env.openWorksheet(env.seedMachine("M1"), tech)
	id := uuid.MustParse(ws.ID)
	partID := env.seedPart("V-BELT", 5, 15)

	wp, err := env.worksheets.AddPart(env.ctx, tech.ID, id, dto.AddWorksheetPartRequest{PartID: partID.String(), Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "15.00", wp.UnitCostAtTime.StringFixed(2))
	assert.Equal(t, "30.00", wp.TotalCost.StringFixed(2))
	assert.Equal(t, "V-BELT", wp.PartSKU)
	assert.Equal(t, 3, env.level(partID).QuantityOnHand)

	txs, err := env.inventory.ListStockTransactions(env.ctx, dto.TransactionFilter{PartID: partID.String(), Type: model.TxIssued})
	require.NoError(t, err)
	require.Equal(t, int64(1), txs.Total)
	assert.Equal(t, ws.ID, *txs.Items[0].ReferenceID)

	_, err = env.worksheets.AddPart(env.ctx, tech.ID, id, dto.AddWorksheetPartRequest{PartID: partID.String(), Quantity: 9})
	assert.True(t, errors.Is(err, ErrInventoryService))

	parts, err := env.worksheets.ListParts(env.ctx, id)
	require.NoError(t, err)
	assert.Len(t, parts, 1)
}

func TestAddPart_ClosedWorksheetRejected(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	ws := env.openWorksheet(env.seedMachine("M1"), tech)
	id := uuid.MustParse(ws.ID)
	partID := env.seedPart("P-1", 5, 1)

	_, err := env.worksheets.UpdateDetails(env.ctx, tech.ID, id, dto.UpdateWorksheetRequest{FaultCause: strPtr("x")})
	require.NoError(t, err)
	_, err = env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: model.WorksheetClosed})
	require.NoError(t, err)

	_, err = env.worksheets.AddPart(env.ctx, tech.ID, id, dto.AddWorksheetPartRequest{PartID: partID.String(), Quantity: 1})
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "WORKSHEET_CLOSED", ae.Details["rule"])
	assert.Equal(t, 5, env.level(partID).QuantityOnHand)
}

func TestListActiveWorksheets(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	machine := env.seedMachine("M1")
	env.openWorksheet(machine, tech)
	closing := env.openWorksheet(machine, tech)
	id := uuid.MustParse(closing.ID)
	_, err := env.worksheets.UpdateDetails(env.ctx, tech.ID, id, dto.UpdateWorksheetRequest{FaultCause: strPtr("x")})
	require.NoError(t, err)
	_, err = env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: model.WorksheetClosed})
	require.NoError(t, err)

	active, err := env.worksheets.ListActiveWorksheets(env.ctx, dto.WorksheetFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), active.Total)

	all, err := env.worksheets.ListWorksheets(env.ctx, dto.WorksheetFilter{MachineID: machine.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	_, err = env.worksheets.ListWorksheets(env.ctx, dto.WorksheetFilter{Status: "Bogus"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestGenerateWorksheetPDF_Archives(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	ws := env.openWorksheet(env.seedMachine("M1"), tech)

	f, err := env.worksheets.GenerateWorksheetPDF(env.ctx, uuid.MustParse(ws.ID))
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.True(t, strings.HasPrefix(string(f.Data), "%PDF"))
	assert.Equal(t, "mem://worksheets/"+f.Name, f.Location)
}
