package dto

import "time"

type CreatePMTaskRequest struct {
	MachineID                *string    `json:"machine_id"          validate:"omitempty,uuid"`
	Location                 string     `json:"location"            validate:"omitempty,max=200"`
	TaskName                 string     `json:"task_name"           validate:"required,min=1,max=200"`
	TaskDescription          string     `json:"task_description"`
	TaskType                 string     `json:"task_type"           validate:"required,oneof=recurring one_time"`
	FrequencyDays            int        `json:"frequency_days"      validate:"min=0"`
	DueDate                  *time.Time `json:"due_date"`
	AssignedToUserID         *string    `json:"assigned_to_user_id" validate:"omitempty,uuid"`
	Priority                 string     `json:"priority"            validate:"omitempty,oneof=low normal high urgent"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes" validate:"min=0"`
}

type UpdatePMTaskRequest struct {
	TaskName                 *string    `json:"task_name"           validate:"omitempty,min=1,max=200"`
	TaskDescription          *string    `json:"task_description"`
	Location                 *string    `json:"location"`
	FrequencyDays            *int       `json:"frequency_days"      validate:"omitempty,min=1"`
	NextDueDate              *time.Time `json:"next_due_date"`
	AssignedToUserID         *string    `json:"assigned_to_user_id" validate:"omitempty,uuid"`
	Priority                 *string    `json:"priority"            validate:"omitempty,oneof=low normal high urgent"`
	Status                   *string    `json:"status"`
	EstimatedDurationMinutes *int       `json:"estimated_duration_minutes" validate:"omitempty,min=0"`
}

type RecordExecutionRequest struct {
	CompletionStatus string     `json:"completion_status" validate:"required"`
	ExecutedAt       *time.Time `json:"executed_at"`
	Notes            string     `json:"notes"`
	DurationMinutes  int        `json:"duration_minutes"  validate:"min=0"`
}

type CompletePMTaskRequest struct {
	Notes           string `json:"notes"`
	DurationMinutes int    `json:"duration_minutes" validate:"min=0"`
	CreateWorksheet bool   `json:"create_worksheet"`
}

type PMTaskFilter struct {
	MachineID  string `form:"machine_id"`
	Status     string `form:"status"`
	AssignedTo string `form:"assigned_to"`
	ActiveOnly *bool  `form:"active_only"`
	Pagination
}

type DueTasksFilter struct {
	Reference     *time.Time `form:"reference" time_format:"2006-01-02T15:04:05Z07:00"`
	UserID        string     `form:"user_id"`
	IncludeFuture bool       `form:"include_future"`
}

type PMTaskResponse struct {
	ID                       string     `json:"id"`
	MachineID                *string    `json:"machine_id"`
	MachineName              string     `json:"machine_name,omitempty"`
	Location                 string     `json:"location"`
	TaskName                 string     `json:"task_name"`
	TaskDescription          string     `json:"task_description"`
	TaskType                 string     `json:"task_type"`
	FrequencyDays            int        `json:"frequency_days"`
	LastExecutedDate         *time.Time `json:"last_executed_date"`
	NextDueDate              *time.Time `json:"next_due_date"`
	IsActive                 bool       `json:"is_active"`
	AssignedToUserID         *string    `json:"assigned_to_user_id"`
	Priority                 string     `json:"priority"`
	Status                   string     `json:"status"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes"`
	Version                  int        `json:"version"`
}

type PMHistoryResponse struct {
	ID                string    `json:"id"`
	PMTaskID          string    `json:"pm_task_id"`
	ExecutedDate      time.Time `json:"executed_date"`
	CompletedByUserID *string   `json:"completed_by_user_id"`
	CompletionStatus  string    `json:"completion_status"`
	Notes             string    `json:"notes"`
	DurationMinutes   int       `json:"duration_minutes"`
	WorksheetID       *string   `json:"worksheet_id"`
}

// PMStatusStats summarizes one run of the status sweep.
type PMStatusStats struct {
	Updated  int `json:"updated"`
	Overdue  int `json:"overdue"`
	DueToday int `json:"due_today"`
	Errors   int `json:"errors"`
}
