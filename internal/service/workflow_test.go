package service

import (
	"testing"

	"zedcmms/internal/apperror"
	"zedcmms/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestWorksheetFlow(t *testing.T) {
	cases := []struct {
		from, to string
		kind     apperror.Kind
		ok       bool
	}{
		{model.WorksheetOpen, model.WorksheetWaiting, 0, true},
		{model.WorksheetOpen, model.WorksheetClosed, 0, true},
		{model.WorksheetWaiting, model.WorksheetClosed, 0, true},
		{model.WorksheetClosed, model.WorksheetClosed, 0, true},
		{model.WorksheetClosed, model.WorksheetOpen, apperror.KindStateTransition, false},
		{model.WorksheetWaiting, model.WorksheetOpen, apperror.KindStateTransition, false},
		{model.WorksheetOpen, "Reopened", apperror.KindValidation, false},
	}
	for _, tc := range cases {
		err := worksheetFlow.validate(tc.from, tc.to)
		if tc.ok {
			assert.NoError(t, err, "%s -> %s", tc.from, tc.to)
			continue
		}
		assert.Equal(t, tc.kind, apperror.KindOf(err), "%s -> %s", tc.from, tc.to)
	}
}

func TestMachineFlow_ScrappedIsTerminal(t *testing.T) {
	assert.NoError(t, machineFlow.validate(model.MachineStopped, model.MachineScrapped))
	err := machineFlow.validate(model.MachineScrapped, model.MachineActive)
	assert.True(t, apperror.Is(err, apperror.KindStateTransition))
}

func TestPMFlow_TerminalStates(t *testing.T) {
	assert.NoError(t, pmFlow.validate(model.PMOverdue, model.PMCompleted))
	assert.Error(t, pmFlow.validate(model.PMDueToday, model.PMCancelled))
	assert.Error(t, pmFlow.validate(model.PMCompleted, model.PMPending))
	assert.Error(t, pmFlow.validate(model.PMCancelled, model.PMInProgress))

	assert.True(t, pmFlow.terminal(model.PMCancelled))
	assert.True(t, pmFlow.terminal(model.PMCompleted))
	assert.False(t, pmFlow.terminal(model.PMOverdue))
	assert.False(t, pmFlow.terminal("unknown"))
}
