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

// ── Helpers ──────────────────────────────────────────────────────────────────

func (e *testEnv) recurringTask(machine *model.Machine, freq int, assignee *model.User) uuid.UUID {
	e.t.Helper()
	req := dto.CreatePMTaskRequest{
		TaskName:      "Lubricate",
		TaskType:      model.PMRecurring,
		FrequencyDays: freq,
	}
	if machine != nil {
		req.MachineID = strPtr(machine.ID.String())
	} else {
		req.Location = "Hall B"
	}
	if assignee != nil {
		req.AssignedToUserID = strPtr(assignee.ID.String())
	}
	resp, err := e.pm.CreatePMTask(e.ctx, uuid.Nil, req)
	require.NoError(e.t, err)
	return uuid.MustParse(resp.ID)
}

func (e *testEnv) task(id uuid.UUID) *dto.PMTaskResponse {
	e.t.Helper()
	resp, err := e.pm.GetPMTask(e.ctx, id)
	require.NoError(e.t, err)
	return resp
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestCreatePMTask_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		req  dto.CreatePMTaskRequest
	}{
		{"no name", dto.CreatePMTaskRequest{TaskType: model.PMOneTime, Location: "x"}},
		{"bad type", dto.CreatePMTaskRequest{TaskName: "a", TaskType: "weekly", Location: "x"}},
		{"recurring without frequency", dto.CreatePMTaskRequest{TaskName: "a", TaskType: model.PMRecurring, Location: "x"}},
		{"no machine or location", dto.CreatePMTaskRequest{TaskName: "a", TaskType: model.PMOneTime}},
		{"bad priority", dto.CreatePMTaskRequest{TaskName: "a", TaskType: model.PMOneTime, Location: "x", Priority: "asap"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.pm.CreatePMTask(env.ctx, uuid.Nil, tc.req)
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.KindValidation))
			assert.True(t, errors.Is(err, ErrPMService))
		})
	}
}

func TestCreatePMTask_FirstDueDate(t *testing.T) {
	env := newTestEnv(t)
	id := env.recurringTask(nil, 14, nil)

	task := env.task(id)
	require.NotNil(t, task.NextDueDate)
	assert.True(t, task.NextDueDate.Equal(env.now.AddDate(0, 0, 14)))
	assert.Equal(t, model.PMPending, task.Status)
	assert.Equal(t, model.PriorityNormal, task.Priority)
}

func TestRecordExecution_NextDueFromExecution(t *testing.T) {
	env := newTestEnv(t)
	id := env.recurringTask(nil, 30, nil)

	executed := env.now.AddDate(0, 0, 3)
	h, err := env.pm.RecordExecution(env.ctx, ExecutionRequest{
		TaskID:           id,
		CompletionStatus: model.PMExecCompleted,
		ExecutedAt:       &executed,
		DurationMinutes:  45,
	})
	require.NoError(t, err)
	assert.True(t, h.ExecutedDate.Equal(executed))

	task := env.task(id)
	require.NotNil(t, task.NextDueDate)
	assert.True(t, task.NextDueDate.Equal(executed.AddDate(0, 0, 30)))
	require.NotNil(t, task.LastExecutedDate)
	assert.True(t, task.LastExecutedDate.Equal(executed))
	assert.True(t, task.IsActive)

	history, err := env.pm.GetPMHistory(env.ctx, id)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRecordExecution_PendingLeavesScheduleAlone(t *testing.T) {
	env := newTestEnv(t)
	id := env.recurringTask(nil, 7, nil)
	before := env.task(id).NextDueDate

	_, err := env.pm.RecordExecution(env.ctx, ExecutionRequest{TaskID: id, CompletionStatus: model.PMExecPending})
	require.NoError(t, err)
	assert.True(t, env.task(id).NextDueDate.Equal(*before))

	_, err = env.pm.RecordExecution(env.ctx, ExecutionRequest{TaskID: id, CompletionStatus: "done"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestRecordExecution_OneTimeTaskDeactivates(t *testing.T) {
	env := newTestEnv(t)
	resp, err := env.pm.CreatePMTask(env.ctx, uuid.Nil, dto.CreatePMTaskRequest{
		TaskName: "Replace filter", TaskType: model.PMOneTime, Location: "Compressor room",
	})
	require.NoError(t, err)
	id := uuid.MustParse(resp.ID)

	_, err = env.pm.RecordExecution(env.ctx, ExecutionRequest{TaskID: id, CompletionStatus: model.PMExecCompleted})
	require.NoError(t, err)

	task := env.task(id)
	assert.False(t, task.IsActive)
	assert.Equal(t, model.PMCompleted, task.Status)

	_, err = env.pm.CompletePMTask(env.ctx, uuid.Nil, id, dto.CompletePMTaskRequest{})
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "PM_TASK_INACTIVE", ae.Details["rule"])
}

func TestRecordExecution_RejectsCancelledTask(t *testing.T) {
	env := newTestEnv(t)
	id := env.recurringTask(nil, 7, nil)
	_, err := env.pm.UpdatePMTask(env.ctx, uuid.Nil, id, dto.UpdatePMTaskRequest{Status: strPtr(model.PMCancelled)})
	require.NoError(t, err)
	before := env.task(id).NextDueDate

	for _, status := range []string{model.PMExecCompleted, model.PMExecSkipped} {
		_, err = env.pm.RecordExecution(env.ctx, ExecutionRequest{TaskID: id, CompletionStatus: status})
		require.Error(t, err, status)
		assert.True(t, apperror.Is(err, apperror.KindStateTransition), status)
	}

	task := env.task(id)
	assert.Equal(t, model.PMCancelled, task.Status)
	assert.True(t, task.NextDueDate.Equal(*before))
	history, err := env.pm.GetPMHistory(env.ctx, id)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecordExecution_RejectsInactiveTask(t *testing.T) {
	env := newTestEnv(t)
	id := env.recurringTask(nil, 7, nil)
	require.NoError(t, env.pm.DeactivatePMTask(env.ctx, uuid.Nil, id))
	before := env.task(id).NextDueDate

	_, err := env.pm.RecordExecution(env.ctx, ExecutionRequest{TaskID: id, CompletionStatus: model.PMExecCompleted})
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperror.KindBusinessLogic, ae.Kind)
	assert.Equal(t, "PM_TASK_INACTIVE", ae.Details["rule"])
	assert.True(t, env.task(id).NextDueDate.Equal(*before))
}

func TestCompletePMTask_CreatesWorksheetForAssignee(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("tech", config.RoleMaintenanceTech, nil)
	super := env.seedUser("boss", config.RoleMaintenanceSupervisor, nil)
	machine := env.seedMachine("Lathe")
	id := env.recurringTask(machine, 10, tech)

	h, err := env.pm.CompletePMTask(env.ctx, super.ID, id, dto.CompletePMTaskRequest{
		Notes: "greased", DurationMinutes: 20, CreateWorksheet: true,
	})
	require.NoError(t, err)
	require.NotNil(t, h.WorksheetID)
	assert.Equal(t, model.PMExecCompleted, h.CompletionStatus)

	ws, err := env.worksheets.GetWorksheet(env.ctx, uuid.MustParse(*h.WorksheetID))
	require.NoError(t, err)
	assert.Equal(t, tech.ID.String(), ws.AssignedToUserID)
	assert.Equal(t, "PM: Lubricate", ws.Title)
	assert.Equal(t, model.WorksheetOpen, ws.Status)

	task := env.task(id)
	assert.True(t, task.NextDueDate.Equal(env.now.AddDate(0, 0, 10)))
	assert.Equal(t, model.PMPending, task.Status)
}

func TestUpdatePMTaskStatuses(t *testing.T) {
	env := newTestEnv(t)
	future := env.recurringTask(nil, 30, nil)
	today := env.recurringTask(nil, 1, nil)
	late := env.recurringTask(nil, 2, nil)
	veryLate := env.recurringTask(nil, 3, nil)
	inactive := env.recurringTask(nil, 1, nil)
	require.NoError(t, env.pm.DeactivatePMTask(env.ctx, uuid.Nil, inactive))

	// Tasks were created at the start; move the clock so that "today" is due,
	// "late" is one day over and "veryLate" is pushed over the urgency limit.
	env.advance(24 * time.Hour)
	_, err := env.pm.UpdatePMTask(env.ctx, uuid.Nil, veryLate, dto.UpdatePMTaskRequest{
		NextDueDate: timePtr(env.now.AddDate(0, 0, -(urgentAfterDays + 1))),
	})
	require.NoError(t, err)
	_, err = env.pm.UpdatePMTask(env.ctx, uuid.Nil, late, dto.UpdatePMTaskRequest{
		NextDueDate: timePtr(env.now.AddDate(0, 0, -1)),
	})
	require.NoError(t, err)

	stats, err := env.pm.UpdatePMTaskStatuses(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Updated)
	assert.Equal(t, 2, stats.Overdue)
	assert.Equal(t, 1, stats.DueToday)
	assert.Zero(t, stats.Errors)

	assert.Equal(t, model.PMPending, env.task(future).Status)
	assert.Equal(t, model.PMDueToday, env.task(today).Status)
	assert.Equal(t, model.PMOverdue, env.task(late).Status)
	assert.Equal(t, model.PriorityNormal, env.task(late).Priority)
	assert.Equal(t, model.PMOverdue, env.task(veryLate).Status)
	assert.Equal(t, model.PriorityUrgent, env.task(veryLate).Priority)
	assert.Equal(t, model.PMPending, env.task(inactive).Status)

	again, err := env.pm.UpdatePMTaskStatuses(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Updated)
}

func TestListDueTasks(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("tech", config.RoleMaintenanceTech, nil)
	env.recurringTask(nil, 1, tech)
	env.recurringTask(nil, 20, nil)

	due, err := env.pm.ListDueTasks(env.ctx, dto.DueTasksFilter{})
	require.NoError(t, err)
	assert.Empty(t, due)

	ref := env.now.AddDate(0, 0, 2)
	due, err = env.pm.ListDueTasks(env.ctx, dto.DueTasksFilter{Reference: &ref})
	require.NoError(t, err)
	assert.Len(t, due, 1)

	// unassigned tasks are open to everyone
	mine, err := env.pm.ListDueTasks(env.ctx, dto.DueTasksFilter{UserID: tech.ID.String(), IncludeFuture: true})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	other := env.seedUser("other", config.RoleMaintenanceTech, nil)
	theirs, err := env.pm.ListDueTasks(env.ctx, dto.DueTasksFilter{UserID: other.ID.String(), IncludeFuture: true})
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Nil(t, theirs[0].AssignedToUserID)

	all, err := env.pm.ListDueTasks(env.ctx, dto.DueTasksFilter{IncludeFuture: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdatePMTask_StatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	id := env.recurringTask(nil, 5, nil)

	_, err := env.pm.UpdatePMTask(env.ctx, uuid.Nil, id, dto.UpdatePMTaskRequest{Status: strPtr(model.PMCancelled)})
	require.NoError(t, err)

	_, err = env.pm.UpdatePMTask(env.ctx, uuid.Nil, id, dto.UpdatePMTaskRequest{Status: strPtr(model.PMPending)})
	assert.True(t, apperror.Is(err, apperror.KindStateTransition))
}

func timePtr(t time.Time) *time.Time { return &t }
