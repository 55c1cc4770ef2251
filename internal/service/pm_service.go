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

// Tasks overdue by more than this many days are escalated to urgent.
const urgentAfterDays = 7

// ExecutionRequest records one PM execution.
type ExecutionRequest struct {
	TaskID           uuid.UUID
	CompletionStatus string
	ExecutedAt       *time.Time
	UserID           uuid.UUID
	Notes            string
	DurationMinutes  int
}

type PMService interface {
	CreatePMTask(ctx context.Context, actor uuid.UUID, req dto.CreatePMTaskRequest) (*dto.PMTaskResponse, error)
	GetPMTask(ctx context.Context, id uuid.UUID) (*dto.PMTaskResponse, error)
	ListPMTasks(ctx context.Context, filter dto.PMTaskFilter) (*dto.ListResponse[dto.PMTaskResponse], error)
	UpdatePMTask(ctx context.Context, actor, id uuid.UUID, req dto.UpdatePMTaskRequest) (*dto.PMTaskResponse, error)
	DeactivatePMTask(ctx context.Context, actor, id uuid.UUID) error
	ListDueTasks(ctx context.Context, filter dto.DueTasksFilter) ([]dto.PMTaskResponse, error)
	RecordExecution(ctx context.Context, req ExecutionRequest) (*dto.PMHistoryResponse, error)
	CompletePMTask(ctx context.Context, actor, id uuid.UUID, req dto.CompletePMTaskRequest) (*dto.PMHistoryResponse, error)
	UpdatePMTaskStatuses(ctx context.Context) (*dto.PMStatusStats, error)
	GetPMHistory(ctx context.Context, id uuid.UUID) ([]dto.PMHistoryResponse, error)
}

type pmService struct {
	repo       repository.PMRepository
	assets     repository.AssetRepository
	users      repository.UserRepository
	worksheets WorksheetService
	notify     NotificationService
	audit      AuditService
	now        func() time.Time
}

func NewPMService(
	repo repository.PMRepository,
	assets repository.AssetRepository,
	users repository.UserRepository,
	worksheets WorksheetService,
	notify NotificationService,
	audit AuditService,
) PMService {
	return &pmService{
		repo:       repo,
		assets:     assets,
		users:      users,
		worksheets: worksheets,
		notify:     notify,
		audit:      audit,
		now:        utcNow,
	}
}

func pmValidation(field, msg string) error {
	return apperror.Validation(field, msg).Wrap(ErrPMService)
}

func validPriority(p string) bool {
	switch p {
	case model.PriorityLow, model.PriorityNormal, model.PriorityHigh, model.PriorityUrgent:
		return true
	}
	return false
}

func (s *pmService) checkAssignee(ctx context.Context, raw *string) (*uuid.UUID, error) {
	id, err := parseOptionalID("assigned_to_user_id", raw)
	if err != nil || id == nil {
		return id, err
	}
	if _, err := s.users.FindByID(ctx, *id); err != nil {
		return nil, notFound(err, "User", *id)
	}
	return id, nil
}

func (s *pmService) CreatePMTask(ctx context.Context, actor uuid.UUID, req dto.CreatePMTaskRequest) (*dto.PMTaskResponse, error) {
	name := strings.TrimSpace(req.TaskName)
	if name == "" {
		return nil, pmValidation("task_name", "task name is required")
	}
	if req.TaskType != model.PMRecurring && req.TaskType != model.PMOneTime {
		return nil, pmValidation("task_type", "task type must be recurring or one_time")
	}
	if req.TaskType == model.PMRecurring && req.FrequencyDays <= 0 {
		return nil, pmValidation("frequency_days", "recurring tasks need a positive frequency")
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	if !validPriority(priority) {
		return nil, pmValidation("priority", "unknown priority: "+priority)
	}
	machineID, err := parseOptionalID("machine_id", req.MachineID)
	if err != nil {
		return nil, err
	}
	location := strings.TrimSpace(req.Location)
	if machineID == nil && location == "" {
		return nil, pmValidation("machine_id", "either a machine or a location is required")
	}
	var machine *model.Machine
	if machineID != nil {
		if machine, err = s.assets.FindMachineByID(ctx, *machineID); err != nil {
			return nil, notFound(err, "Machine", *machineID)
		}
	}
	assignee, err := s.checkAssignee(ctx, req.AssignedToUserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var next time.Time
	switch {
	case req.DueDate != nil:
		next = req.DueDate.UTC()
	case req.TaskType == model.PMOneTime:
		next = now
	default:
		next = now.AddDate(0, 0, req.FrequencyDays)
	}

	task := &model.PMTask{
		MachineID:                machineID,
		Location:                 location,
		TaskName:                 name,
		TaskDescription:          req.TaskDescription,
		TaskType:                 req.TaskType,
		FrequencyDays:            req.FrequencyDays,
		NextDueDate:              &next,
		DueDate:                  req.DueDate,
		IsActive:                 true,
		AssignedToUserID:         assignee,
		Priority:                 priority,
		Status:                   model.PMPending,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		CreatedByUserID:          optionalID(actor),
		Version:                  1,
	}
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.CreateTx(tx, task)
	}); err != nil {
		return nil, err
	}
	task.Machine = machine

	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditCreate, EntityType: "pm_task", EntityID: task.ID.String(),
		Changes: map[string]any{"task_name": name, "task_type": req.TaskType, "next_due_date": next}})
	s.notifyAssigned(ctx, task)
	log.Info().Str("pm_task_id", task.ID.String()).Time("next_due", next).Msg("pm task created")
	resp := toPMTaskResponse(task)
	return &resp, nil
}

func (s *pmService) notifyAssigned(ctx context.Context, t *model.PMTask) {
	if t.AssignedToUserID == nil {
		return
	}
	due := "-"
	if t.NextDueDate != nil {
		due = t.NextDueDate.Format("2006-01-02")
	}
	s.notify.Notify(ctx, NotifyRequest{
		UserID:     *t.AssignedToUserID,
		Type:       model.NotifyPMAssigned,
		Title:      "PM task assigned",
		Message:    fmt.Sprintf("%s (due %s)", t.TaskName, due),
		EntityType: "pm_task",
		EntityID:   &t.ID,
	})
}

func (s *pmService) GetPMTask(ctx context.Context, id uuid.UUID) (*dto.PMTaskResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "PMTask", id)
	}
	resp := toPMTaskResponse(t)
	return &resp, nil
}

func (s *pmService) ListPMTasks(ctx context.Context, f dto.PMTaskFilter) (*dto.ListResponse[dto.PMTaskResponse], error) {
	f.Normalize()
	machineID, err := parseOptionalID("machine_id", &f.MachineID)
	if err != nil {
		return nil, err
	}
	assignee, err := parseOptionalID("assigned_to", &f.AssignedTo)
	if err != nil {
		return nil, err
	}
	tasks, total, err := s.repo.List(ctx, repository.PMTaskFilter{
		MachineID:  machineID,
		AssignedTo: assignee,
		Status:     f.Status,
		ActiveOnly: f.ActiveOnly,
		Offset:     f.Offset(),
		Limit:      f.Limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.PMTaskResponse, len(tasks))
	for i := range tasks {
		items[i] = toPMTaskResponse(&tasks[i])
	}
	return dto.NewList(items, total, f.Pagination), nil
}

func (s *pmService) UpdatePMTask(ctx context.Context, actor, id uuid.UUID, req dto.UpdatePMTaskRequest) (*dto.PMTaskResponse, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "PMTask", id)
	}
	changes := map[string]any{}
	reassigned := false

	if req.TaskName != nil {
		name := strings.TrimSpace(*req.TaskName)
		if name == "" {
			return nil, pmValidation("task_name", "task name is required")
		}
		t.TaskName = name
		changes["task_name"] = name
	}
	if req.TaskDescription != nil {
		t.TaskDescription = *req.TaskDescription
	}
	if req.Location != nil {
		t.Location = strings.TrimSpace(*req.Location)
		changes["location"] = t.Location
	}
	if req.FrequencyDays != nil {
		if t.TaskType == model.PMRecurring && *req.FrequencyDays <= 0 {
			return nil, pmValidation("frequency_days", "recurring tasks need a positive frequency")
		}
		t.FrequencyDays = *req.FrequencyDays
		changes["frequency_days"] = t.FrequencyDays
	}
	if req.NextDueDate != nil {
		next := req.NextDueDate.UTC()
		t.NextDueDate = &next
		changes["next_due_date"] = next
	}
	if req.Priority != nil {
		if !validPriority(*req.Priority) {
			return nil, pmValidation("priority", "unknown priority: "+*req.Priority)
		}
		t.Priority = *req.Priority
		changes["priority"] = t.Priority
	}
	if req.EstimatedDurationMinutes != nil {
		t.EstimatedDurationMinutes = *req.EstimatedDurationMinutes
	}
	if req.AssignedToUserID != nil {
		assignee, err := s.checkAssignee(ctx, req.AssignedToUserID)
		if err != nil {
			return nil, err
		}
		if !sameID(assignee, t.AssignedToUserID) {
			t.AssignedToUserID = assignee
			changes["assigned_to_user_id"] = idString(assignee)
			reassigned = assignee != nil
		}
	}
	if req.Status != nil && *req.Status != t.Status {
		if err := pmFlow.validate(t.Status, *req.Status); err != nil {
			return nil, err
		}
		changes["status"] = map[string]any{"old": t.Status, "new": *req.Status}
		t.Status = *req.Status
	}
	if t.MachineID == nil && t.Location == "" {
		return nil, pmValidation("location", "either a machine or a location is required")
	}

	t.Version++
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.UpdateTx(tx, t)
	}); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "pm_task", EntityID: id.String(), Changes: changes})
	if reassigned {
		s.notifyAssigned(ctx, t)
	}
	resp := toPMTaskResponse(t)
	return &resp, nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *pmService) DeactivatePMTask(ctx context.Context, actor, id uuid.UUID) error {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "PMTask", id)
	}
	if !t.IsActive {
		return nil
	}
	t.IsActive = false
	t.Version++
	if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		return s.repo.UpdateTx(tx, t)
	}); err != nil {
		return err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditDelete, EntityType: "pm_task", EntityID: id.String(),
		Changes: map[string]any{"is_active": false}})
	return nil
}

func (s *pmService) ListDueTasks(ctx context.Context, f dto.DueTasksFilter) ([]dto.PMTaskResponse, error) {
	ref := s.now()
	if f.Reference != nil {
		ref = f.Reference.UTC()
	}
	userID, err := parseOptionalID("user_id", &f.UserID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.repo.ListDue(ctx, ref, userID, f.IncludeFuture)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PMTaskResponse, len(tasks))
	for i := range tasks {
		out[i] = toPMTaskResponse(&tasks[i])
	}
	return out, nil
}

func (s *pmService) RecordExecution(ctx context.Context, req ExecutionRequest) (*dto.PMHistoryResponse, error) {
	var h *model.PMHistory
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindByIDTx(tx, req.TaskID)
		if err != nil {
			return notFound(err, "PMTask", req.TaskID)
		}
		h, err = s.recordExecutionTx(tx, t, req, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: req.UserID, Action: AuditCreate, EntityType: "pm_history", EntityID: h.ID.String(),
		Changes: map[string]any{"pm_task_id": req.TaskID.String(), "completion_status": h.CompletionStatus}})
	resp := toPMHistoryResponse(h)
	return &resp, nil
}

// recordExecutionTx writes the history row and advances the schedule of t.
func (s *pmService) recordExecutionTx(tx *gorm.DB, t *model.PMTask, req ExecutionRequest, worksheetID *uuid.UUID) (*model.PMHistory, error) {
	switch req.CompletionStatus {
	case model.PMExecCompleted, model.PMExecSkipped, model.PMExecPending:
	default:
		return nil, pmValidation("completion_status", "completion status must be completed, skipped or pending")
	}
	if req.DurationMinutes < 0 {
		return nil, pmValidation("duration_minutes", "duration cannot be negative")
	}
	if !t.IsActive {
		return nil, apperror.BusinessLogic("PM_TASK_INACTIVE", "pm task is inactive").Wrap(ErrPMService)
	}
	if req.CompletionStatus != model.PMExecPending && pmFlow.terminal(t.Status) {
		target := model.PMCompleted
		if req.CompletionStatus == model.PMExecSkipped {
			target = model.PMPending
		}
		return nil, apperror.StateTransition("pm_task", t.Status, target).Wrap(ErrPMService)
	}
	executed := s.now()
	if req.ExecutedAt != nil {
		executed = req.ExecutedAt.UTC()
	}

	h := &model.PMHistory{
		PMTaskID:          t.ID,
		ExecutedDate:      executed,
		AssignedToUserID:  t.AssignedToUserID,
		CompletedByUserID: optionalID(req.UserID),
		CompletionStatus:  req.CompletionStatus,
		Notes:             req.Notes,
		DurationMinutes:   req.DurationMinutes,
		WorksheetID:       worksheetID,
	}
	if err := s.repo.CreateHistoryTx(tx, h); err != nil {
		return nil, err
	}
	if req.CompletionStatus == model.PMExecPending {
		return h, nil
	}

	t.LastExecutedDate = &executed
	if t.TaskType == model.PMOneTime {
		t.IsActive = false
		if req.CompletionStatus == model.PMExecCompleted {
			t.Status = model.PMCompleted
		}
	} else {
		next := executed.AddDate(0, 0, t.FrequencyDays)
		t.NextDueDate = &next
		t.Status = model.PMPending
	}
	t.Version++
	return h, s.repo.UpdateTx(tx, t)
}

func (s *pmService) CompletePMTask(ctx context.Context, actor, id uuid.UUID, req dto.CompletePMTaskRequest) (*dto.PMHistoryResponse, error) {
	var (
		h    *model.PMHistory
		task *model.PMTask
	)
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		t, err := s.repo.FindByIDTx(tx, id)
		if err != nil {
			return notFound(err, "PMTask", id)
		}
		if !t.IsActive {
			return apperror.BusinessLogic("PM_TASK_INACTIVE", "pm task is inactive").Wrap(ErrPMService)
		}
		if err := pmFlow.validate(t.Status, model.PMCompleted); err != nil {
			return err
		}
		task = t

		var worksheetID *uuid.UUID
		if req.CreateWorksheet && t.MachineID != nil {
			assignee := actor
			if t.AssignedToUserID != nil {
				assignee = *t.AssignedToUserID
			}
			ws := &model.Worksheet{
				MachineID:        *t.MachineID,
				AssignedToUserID: assignee,
				Title:            "PM: " + t.TaskName,
				Description:      t.TaskDescription,
				Notes:            req.Notes,
			}
			if err := s.worksheets.CreateWorksheetTx(tx, ws); err != nil {
				return err
			}
			worksheetID = &ws.ID
		}
		h, err = s.recordExecutionTx(tx, t, ExecutionRequest{
			TaskID:           id,
			CompletionStatus: model.PMExecCompleted,
			UserID:           actor,
			Notes:            req.Notes,
			DurationMinutes:  req.DurationMinutes,
		}, worksheetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditStatusChange, EntityType: "pm_task", EntityID: id.String(),
		Changes: map[string]any{"completed": true, "worksheet_id": idString(h.WorksheetID)}})
	if task.CreatedByUserID != nil && *task.CreatedByUserID != actor {
		s.notify.Notify(ctx, NotifyRequest{
			UserID:     *task.CreatedByUserID,
			Type:       model.NotifyPMCompleted,
			Title:      "PM task completed",
			Message:    task.TaskName,
			EntityType: "pm_task",
			EntityID:   &task.ID,
		})
	}
	resp := toPMHistoryResponse(h)
	return &resp, nil
}

// daysBetween counts UTC calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

func (s *pmService) UpdatePMTaskStatuses(ctx context.Context) (*dto.PMStatusStats, error) {
	tasks, err := s.repo.ListForStatusSweep(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	stats := &dto.PMStatusStats{}

	for i := range tasks {
		t := &tasks[i]
		overdueDays := daysBetween(*t.NextDueDate, now)
		target := t.Status
		priority := t.Priority
		switch {
		case overdueDays > 0:
			target = model.PMOverdue
			if overdueDays > urgentAfterDays {
				priority = model.PriorityUrgent
			}
		case overdueDays == 0:
			target = model.PMDueToday
		}
		if target == t.Status && priority == t.Priority {
			continue
		}
		if err := pmFlow.validate(t.Status, target); err != nil {
			stats.Errors++
			log.Warn().Err(err).Str("pm_task_id", t.ID.String()).Msg("pm status sweep: transition rejected")
			continue
		}
		old := t.Status
		t.Status, t.Priority = target, priority
		t.Version++
		if err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
			return s.repo.UpdateTx(tx, t)
		}); err != nil {
			stats.Errors++
			log.Error().Err(err).Str("pm_task_id", t.ID.String()).Msg("pm status sweep: update failed")
			continue
		}
		stats.Updated++
		switch target {
		case model.PMOverdue:
			stats.Overdue++
		case model.PMDueToday:
			stats.DueToday++
		}
		s.audit.Log(ctx, AuditEntry{Action: AuditStatusChange, EntityType: "pm_task", EntityID: t.ID.String(),
			Changes: map[string]any{"status": map[string]any{"old": old, "new": target}, "priority": priority}})
	}
	log.Info().Int("updated", stats.Updated).Int("overdue", stats.Overdue).Int("due_today", stats.DueToday).
		Int("errors", stats.Errors).Msg("pm status sweep finished")
	return stats, nil
}

func (s *pmService) GetPMHistory(ctx context.Context, id uuid.UUID) ([]dto.PMHistoryResponse, error) {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFound(err, "PMTask", id)
	}
	rows, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PMHistoryResponse, len(rows))
	for i := range rows {
		out[i] = toPMHistoryResponse(&rows[i])
	}
	return out, nil
}

func toPMTaskResponse(t *model.PMTask) dto.PMTaskResponse {
	resp := dto.PMTaskResponse{
		ID:                       t.ID.String(),
		MachineID:                idString(t.MachineID),
		Location:                 t.Location,
		TaskName:                 t.TaskName,
		TaskDescription:          t.TaskDescription,
		TaskType:                 t.TaskType,
		FrequencyDays:            t.FrequencyDays,
		LastExecutedDate:         t.LastExecutedDate,
		NextDueDate:              t.NextDueDate,
		IsActive:                 t.IsActive,
		AssignedToUserID:         idString(t.AssignedToUserID),
		Priority:                 t.Priority,
		Status:                   t.Status,
		EstimatedDurationMinutes: t.EstimatedDurationMinutes,
		Version:                  t.Version,
	}
	if t.Machine != nil {
		resp.MachineName = t.Machine.Name
	}
	return resp
}

func toPMHistoryResponse(h *model.PMHistory) dto.PMHistoryResponse {
	return dto.PMHistoryResponse{
		ID:                h.ID.String(),
		PMTaskID:          h.PMTaskID.String(),
		ExecutedDate:      h.ExecutedDate,
		CompletedByUserID: idString(h.CompletedByUserID),
		CompletionStatus:  h.CompletionStatus,
		Notes:             h.Notes,
		DurationMinutes:   h.DurationMinutes,
		WorksheetID:       idString(h.WorksheetID),
	}
}
