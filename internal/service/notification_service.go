package service

import (
	"context"
	"fmt"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EmailJob is the payload queued for the e-mail worker.
type EmailJob struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailQueue accepts e-mail jobs for asynchronous delivery.
type EmailQueue interface {
	EnqueueEmail(ctx context.Context, job EmailJob) error
}

// NotifyRequest is a notification about to be created.
type NotifyRequest struct {
	UserID     uuid.UUID
	Type       string
	Title      string
	Message    string
	EntityType string
	EntityID   *uuid.UUID
}

type NotificationService interface {
	// Notify stores a notification and queues an e-mail copy. Failures are
	// logged and never returned.
	Notify(ctx context.Context, req NotifyRequest)
	ListForUser(ctx context.Context, userID uuid.UUID, filter dto.NotificationFilter) (*dto.ListResponse[dto.NotificationResponse], error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	// CheckPMNotifications notifies about tasks due within 24h or overdue,
	// at most once per task and user per day. Returns the number sent.
	CheckPMNotifications(ctx context.Context) (int, error)
}

type notificationService struct {
	repo  repository.NotificationRepository
	users repository.UserRepository
	pm    repository.PMRepository
	queue EmailQueue
	now   func() time.Time
}

func NewNotificationService(
	repo repository.NotificationRepository,
	users repository.UserRepository,
	pm repository.PMRepository,
	queue EmailQueue,
) NotificationService {
	return &notificationService{repo: repo, users: users, pm: pm, queue: queue, now: utcNow}
}

func (s *notificationService) Notify(ctx context.Context, req NotifyRequest) {
	if s == nil || req.UserID == uuid.Nil {
		return
	}
	n := &model.Notification{
		UserID:     req.UserID,
		Type:       req.Type,
		Title:      req.Title,
		Message:    req.Message,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		log.Warn().Err(err).Str("user_id", req.UserID.String()).Str("type", req.Type).Msg("notification: create failed")
		return
	}
	s.enqueueEmail(ctx, req)
}

func (s *notificationService) enqueueEmail(ctx context.Context, req NotifyRequest) {
	if s.queue == nil || s.users == nil {
		return
	}
	u, err := s.users.FindByID(ctx, req.UserID)
	if err != nil || u.Email == nil || *u.Email == "" || !u.IsActive {
		return
	}
	job := EmailJob{To: *u.Email, Subject: "[CMMS] " + req.Title, Body: req.Message}
	if err := s.queue.EnqueueEmail(ctx, job); err != nil {
		log.Warn().Err(err).Str("user_id", req.UserID.String()).Msg("notification: email enqueue failed")
	}
}

func toNotificationResponse(n model.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:         n.ID.String(),
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		EntityType: n.EntityType,
		EntityID:   idString(n.EntityID),
		IsRead:     n.IsRead,
		CreatedAt:  n.CreatedAt,
	}
}

func (s *notificationService) ListForUser(ctx context.Context, userID uuid.UUID, f dto.NotificationFilter) (*dto.ListResponse[dto.NotificationResponse], error) {
	f.Normalize()
	rows, total, err := s.repo.ListForUser(ctx, userID, f.UnreadOnly, f.Offset(), f.Limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.NotificationResponse, len(rows))
	for i, n := range rows {
		items[i] = toNotificationResponse(n)
	}
	return dto.NewList(items, total, f.Pagination), nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("Notification", id)
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *notificationService) CheckPMNotifications(ctx context.Context) (int, error) {
	now := s.now()
	tasks, err := s.pm.ListDue(ctx, now.Add(24*time.Hour), nil, false)
	if err != nil {
		return 0, err
	}

	var managers []model.User
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	sent := 0
	for _, t := range tasks {
		if t.Status == model.PMInProgress || t.Status == model.PMCompleted || t.Status == model.PMCancelled {
			continue
		}
		recipients := []uuid.UUID{}
		if t.AssignedToUserID != nil {
			recipients = append(recipients, *t.AssignedToUserID)
		} else {
			if managers == nil {
				if managers, err = s.users.ListActiveByRoles(ctx, config.RoleManager); err != nil {
					return sent, err
				}
			}
			for _, m := range managers {
				recipients = append(recipients, m.ID)
			}
		}

		title := "PM task due: " + t.TaskName
		if t.NextDueDate != nil && t.NextDueDate.Before(now) {
			title = "PM task overdue: " + t.TaskName
		}
		taskID := t.ID
		for _, uid := range recipients {
			already, err := s.repo.ExistsSince(ctx, uid, model.NotifyPMDue, taskID, dayStart)
			if err != nil {
				log.Warn().Err(err).Str("task_id", taskID.String()).Msg("notification: dedupe lookup failed")
				continue
			}
			if already {
				continue
			}
			s.Notify(ctx, NotifyRequest{
				UserID:     uid,
				Type:       model.NotifyPMDue,
				Title:      title,
				Message:    fmt.Sprintf("%s is due %s.", t.TaskName, t.NextDueDate.UTC().Format("2006-01-02 15:04")),
				EntityType: "pm_task",
				EntityID:   &taskID,
			})
			sent++
		}
	}
	log.Info().Int("tasks", len(tasks)).Int("sent", sent).Msg("notification: pm check finished")
	return sent, nil
}
