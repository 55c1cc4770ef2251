package dto

import "time"

type AuditFilter struct {
	UserID     string     `form:"user_id"`
	EntityType string     `form:"entity_type"`
	EntityID   string     `form:"entity_id"`
	ActionType string     `form:"action_type"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to"   time_format:"2006-01-02"`
	Pagination
}

type AuditLogResponse struct {
	ID         string         `json:"id"`
	UserID     *string        `json:"user_id"`
	ActionType string         `json:"action_type"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Changes    map[string]any `json:"changes"`
	Timestamp  time.Time      `json:"timestamp"`
}
