package dto

import "time"

type NotificationResponse struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	EntityType string    `json:"entity_type"`
	EntityID   *string   `json:"entity_id"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

type NotificationFilter struct {
	UnreadOnly bool `form:"unread_only"`
	Pagination
}

type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
