package service

import (
	"errors"
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

func TestCreateMachine_UniqueIdentifiers(t *testing.T) {
	env := newTestEnv(t)
	line, err := env.assets.CreateProductionLine(env.ctx, uuid.Nil, dto.CreateProductionLineRequest{Name: "Assembly"})
	require.NoError(t, err)

	_, err = env.assets.CreateMachine(env.ctx, uuid.Nil, dto.CreateMachineRequest{
		ProductionLineID: line.ID, Name: "Robot 1", SerialNumber: strPtr("SN-1"),
	})
	require.NoError(t, err)

	_, err = env.assets.CreateMachine(env.ctx, uuid.Nil, dto.CreateMachineRequest{
		ProductionLineID: line.ID, Name: "Robot 2", SerialNumber: strPtr(" SN-1 "),
	})
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.True(t, errors.Is(err, ErrAssetService))

	_, err = env.assets.CreateMachine(env.ctx, uuid.Nil, dto.CreateMachineRequest{
		ProductionLineID: uuid.NewString(), Name: "Orphan",
	})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestUpdateMachine_VersionConflict(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedMachine("Mixer")

	updated, err := env.assets.UpdateMachine(env.ctx, uuid.Nil, m.ID, dto.UpdateMachineRequest{Version: 1, Model: strPtr("MX-200")})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "MX-200", updated.Model)

	_, err = env.assets.UpdateMachine(env.ctx, uuid.Nil, m.ID, dto.UpdateMachineRequest{Version: 1, Model: strPtr("stale")})
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "CONCURRENT_MODIFICATION", ae.Details["rule"])

	got, err := env.assets.GetMachine(env.ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "MX-200", got.Model)
}

func TestChangeStatus_FollowsMachineWorkflow(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedMachine("Oven")

	resp, err := env.assets.ChangeStatus(env.ctx, uuid.Nil, m.ID, dto.MachineStatusRequest{Status: model.MachineMaintenance, Reason: "belt"})
	require.NoError(t, err)
	assert.Equal(t, model.MachineMaintenance, resp.Status)

	resp, err = env.assets.ChangeStatus(env.ctx, uuid.Nil, m.ID, dto.MachineStatusRequest{Status: model.MachineStopped})
	require.NoError(t, err)
	assert.Equal(t, model.MachineStopped, resp.Status)

	_, err = env.assets.ChangeStatus(env.ctx, uuid.Nil, m.ID, dto.MachineStatusRequest{Status: "Broken"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	history, err := env.assets.GetMachineHistory(env.ctx, m.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestScrapMachine(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("t1", config.RoleMaintenanceTech, nil)
	m := env.seedMachine("Old press")
	ws := env.openWorksheet(m, tech)

	_, err := env.assets.ScrapMachine(env.ctx, uuid.Nil, m.ID, "end of life")
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "MACHINE_HAS_ACTIVE_WORKSHEETS", ae.Details["rule"])

	id := uuid.MustParse(ws.ID)
	_, err = env.worksheets.UpdateDetails(env.ctx, tech.ID, id, dto.UpdateWorksheetRequest{FaultCause: strPtr("x")})
	require.NoError(t, err)
	_, err = env.worksheets.UpdateStatus(env.ctx, tech.ID, id, dto.WorksheetStatusRequest{Status: model.WorksheetClosed})
	require.NoError(t, err)

	resp, err := env.assets.ChangeStatus(env.ctx, uuid.Nil, m.ID, dto.MachineStatusRequest{Status: model.MachineScrapped, Reason: "end of life"})
	require.NoError(t, err)
	assert.Equal(t, model.MachineScrapped, resp.Status)

	_, err = env.assets.ChangeStatus(env.ctx, uuid.Nil, m.ID, dto.MachineStatusRequest{Status: model.MachineActive})
	assert.True(t, apperror.Is(err, apperror.KindStateTransition))
}

func TestUpdateOperatingHours_NeverDecreases(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedMachine("Pump")

	resp, err := env.assets.UpdateOperatingHours(env.ctx, uuid.Nil, m.ID, 120.5)
	require.NoError(t, err)
	assert.InDelta(t, 120.5, resp.OperatingHours, 0.001)

	_, err = env.assets.UpdateOperatingHours(env.ctx, uuid.Nil, m.ID, 100)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestDeleteProductionLine_WithMachines(t *testing.T) {
	env := newTestEnv(t)
	m := env.seedMachine("Saw")

	err := env.assets.DeleteProductionLine(env.ctx, uuid.Nil, m.ProductionLineID)
	assert.True(t, apperror.Is(err, apperror.KindBusinessLogic))

	empty, err := env.assets.CreateProductionLine(env.ctx, uuid.Nil, dto.CreateProductionLineRequest{Name: "Spare"})
	require.NoError(t, err)
	require.NoError(t, env.assets.DeleteProductionLine(env.ctx, uuid.Nil, uuid.MustParse(empty.ID)))
}

func TestListUpcomingService(t *testing.T) {
	env := newTestEnv(t)
	soon := env.seedMachine("Soon")
	later := env.seedMachine("Later")

	in5 := env.now.Add(5 * 24 * time.Hour)
	in60 := env.now.Add(60 * 24 * time.Hour)
	_, err := env.assets.UpdateMachine(env.ctx, uuid.Nil, soon.ID, dto.UpdateMachineRequest{Version: 1, NextServiceDate: &in5})
	require.NoError(t, err)
	_, err = env.assets.UpdateMachine(env.ctx, uuid.Nil, later.ID, dto.UpdateMachineRequest{Version: 1, NextServiceDate: &in60})
	require.NoError(t, err)

	upcoming, err := env.assets.ListUpcomingService(env.ctx, 0)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Soon", upcoming[0].Name)

	all, err := env.assets.ListUpcomingService(env.ctx, 90)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
