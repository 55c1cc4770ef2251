package service

import (
	"context"
	"testing"
	"time"

	"zedcmms/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLog_ListAndPurge(t *testing.T) {
	env := newTestEnv(t)
	actor := uuid.New()

	env.audit.Log(env.ctx, AuditEntry{UserID: actor, Action: AuditCreate, EntityType: "machine", EntityID: "m-1",
		Changes: map[string]any{"name": "Press"}})
	env.advance(400 * 24 * time.Hour)
	env.audit.Log(env.ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "machine", EntityID: "m-1"})

	logs, err := env.audit.List(env.ctx, dto.AuditFilter{EntityType: "machine", EntityID: "m-1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), logs.Total)

	mine, err := env.audit.List(env.ctx, dto.AuditFilter{UserID: actor.String(), ActionType: AuditCreate})
	require.NoError(t, err)
	require.Equal(t, int64(1), mine.Total)
	assert.Equal(t, "Press", mine.Items[0].Changes["name"])

	n, err := env.audit.Purge(env.ctx, 365)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := env.audit.List(env.ctx, dto.AuditFilter{EntityID: "m-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), left.Total)
}

func TestAuditLog_NilServiceIsNoop(t *testing.T) {
	var s *auditService
	assert.NotPanics(t, func() { s.Log(context.Background(), AuditEntry{Action: AuditCreate}) })
}
