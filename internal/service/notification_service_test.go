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

func TestNotify_SkipsEmailWithoutAddress(t *testing.T) {
	env := newTestEnv(t)
	noMail := env.seedUser("nomail", config.RoleMaintenanceTech, nil)

	env.notifications.Notify(env.ctx, NotifyRequest{UserID: noMail.ID, Type: model.NotifyLowStock, Title: "x"})

	n, err := env.notifications.UnreadCount(env.ctx, noMail.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, env.queue.sent())
}

func TestNotify_QueueFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser("mailer", config.RoleMaintenanceTech, strPtr("m@example.com"))
	env.queue.err = errors.New("redis down")

	assert.NotPanics(t, func() {
		env.notifications.Notify(env.ctx, NotifyRequest{UserID: u.ID, Type: model.NotifyLowStock, Title: "x"})
	})
	n, err := env.notifications.UnreadCount(env.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser("reader", config.RoleMaintenanceTech, nil)
	other := env.seedUser("other", config.RoleMaintenanceTech, nil)
	for i := 0; i < 3; i++ {
		env.notifications.Notify(env.ctx, NotifyRequest{UserID: u.ID, Type: model.NotifyLowStock, Title: "x"})
	}

	list, err := env.notifications.ListForUser(env.ctx, u.ID, dto.NotificationFilter{})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	first := uuid.MustParse(list.Items[0].ID)

	err = env.notifications.MarkRead(env.ctx, other.ID, first)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	require.NoError(t, env.notifications.MarkRead(env.ctx, u.ID, first))
	n, err := env.notifications.UnreadCount(env.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	marked, err := env.notifications.MarkAllRead(env.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	unread, err := env.notifications.ListForUser(env.ctx, u.ID, dto.NotificationFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
}

func TestCheckPMNotifications_OncePerDay(t *testing.T) {
	env := newTestEnv(t)
	tech := env.seedUser("tech", config.RoleMaintenanceTech, strPtr("tech@example.com"))
	manager := env.seedUser("boss", config.RoleManager, strPtr("boss@example.com"))
	env.recurringTask(nil, 1, tech)
	env.recurringTask(nil, 1, nil)
	env.recurringTask(nil, 30, tech)

	// creation notified the assignee of the two assigned tasks
	before := len(env.queue.sent())

	sent, err := env.notifications.CheckPMNotifications(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	again, err := env.notifications.CheckPMNotifications(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, again)

	env.advance(24 * time.Hour)
	nextDay, err := env.notifications.CheckPMNotifications(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nextDay)

	emails := env.queue.sent()[before:]
	require.Len(t, emails, 4)
	recipients := map[string]int{}
	for _, e := range emails {
		recipients[e.To]++
	}
	assert.Equal(t, 2, recipients["tech@example.com"])
	assert.Equal(t, 2, recipients[*manager.Email])
}
