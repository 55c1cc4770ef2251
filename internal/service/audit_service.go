package service

import (
	"context"
	"time"

	"zedcmms/internal/dto"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Audit action types.
const (
	AuditCreate        = "create"
	AuditUpdate        = "update"
	AuditDelete        = "delete"
	AuditStatusChange  = "status_change"
	AuditStockMovement = "stock_movement"
	AuditLogin         = "login"
)

// AuditEntry describes one mutation to record.
type AuditEntry struct {
	UserID     uuid.UUID
	Action     string
	EntityType string
	EntityID   string
	Changes    map[string]any
}

type AuditService interface {
	// Log records entry. Failures are logged and never returned.
	Log(ctx context.Context, entry AuditEntry)
	List(ctx context.Context, filter dto.AuditFilter) (*dto.ListResponse[dto.AuditLogResponse], error)
	Purge(ctx context.Context, retentionDays int) (int64, error)
}

type auditService struct {
	repo repository.AuditRepository
	now  func() time.Time
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo, now: utcNow}
}

func (s *auditService) Log(ctx context.Context, e AuditEntry) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &model.AuditLog{
		UserID:     optionalID(e.UserID),
		ActionType: e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Changes:    e.Changes,
		Timestamp:  s.now(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("action", e.Action).
			Str("entity_type", e.EntityType).
			Str("entity_id", e.EntityID).
			Msg("audit: failed to write entry")
	}
}

func (s *auditService) List(ctx context.Context, f dto.AuditFilter) (*dto.ListResponse[dto.AuditLogResponse], error) {
	f.Normalize()
	userID, err := parseOptionalID("user_id", &f.UserID)
	if err != nil {
		return nil, err
	}
	logs, total, err := s.repo.List(ctx, repository.AuditFilter{
		UserID:     userID,
		EntityType: f.EntityType,
		EntityID:   f.EntityID,
		ActionType: f.ActionType,
		From:       f.From,
		To:         f.To,
		Offset:     f.Offset(),
		Limit:      f.Limit,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.AuditLogResponse, len(logs))
	for i, l := range logs {
		items[i] = dto.AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     idString(l.UserID),
			ActionType: l.ActionType,
			EntityType: l.EntityType,
			EntityID:   l.EntityID,
			Changes:    l.Changes,
			Timestamp:  l.Timestamp,
		}
	}
	return dto.NewList(items, total, f.Pagination), nil
}

func (s *auditService) Purge(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	n, err := s.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("audit: purged old entries")
	return n, nil
}
