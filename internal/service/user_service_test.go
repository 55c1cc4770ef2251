package service

import (
	"errors"
	"testing"

	"zedcmms/internal/apperror"
	"zedcmms/internal/config"
	"zedcmms/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCreateUser_DefaultPasswordForcesChange(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.userSvc.CreateUser(env.ctx, uuid.Nil, dto.CreateUserRequest{
		Username: "nagy", RoleName: config.RoleMaintenanceTech,
	})
	require.NoError(t, err)
	assert.True(t, resp.MustChangePassword)
	assert.Equal(t, "hu", resp.LanguagePreference)
	assert.Equal(t, config.RoleMaintenanceTech, resp.Role)

	u, err := env.users.FindByID(env.ctx, uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(env.cfg.DefaultPassword)))

	own := env.seedUser("szabo", config.RoleManager, nil)
	assert.False(t, own.MustChangePassword)
}

func TestCreateUser_Duplicates(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("toth", config.RoleMaintenanceTech, strPtr("toth@example.com"))

	_, err := env.userSvc.CreateUser(env.ctx, uuid.Nil, dto.CreateUserRequest{Username: "toth", RoleName: config.RoleManager})
	assert.True(t, apperror.Is(err, apperror.KindValidation))
	assert.True(t, errors.Is(err, ErrUserService))

	_, err = env.userSvc.CreateUser(env.ctx, uuid.Nil, dto.CreateUserRequest{
		Username: "toth2", Email: strPtr("toth@example.com"), RoleName: config.RoleManager,
	})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = env.userSvc.CreateUser(env.ctx, uuid.Nil, dto.CreateUserRequest{Username: "toth3", RoleName: "janitor"})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDeactivateUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser("admin", config.RoleManager, nil)
	tech := env.seedUser("tech", config.RoleMaintenanceTech, nil)

	err := env.userSvc.DeactivateUser(env.ctx, admin.ID, admin.ID)
	var ae *apperror.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "SELF_DEACTIVATION", ae.Details["rule"])

	require.NoError(t, env.userSvc.DeactivateUser(env.ctx, admin.ID, tech.ID))
	active, err := env.userSvc.ListUsers(env.ctx, dto.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := env.userSvc.ListUsers(env.ctx, dto.UserFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, env.userSvc.ReactivateUser(env.ctx, admin.ID, tech.ID))
	got, err := env.userSvc.GetUser(env.ctx, tech.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestUpdateUser_ChangesRole(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser("kiss", config.RoleMaintenanceTech, nil)

	resp, err := env.userSvc.UpdateUser(env.ctx, uuid.Nil, u.ID, dto.UpdateUserRequest{
		RoleName: strPtr(config.RoleMaintenanceSupervisor), FullName: strPtr("Kiss Anna"),
	})
	require.NoError(t, err)
	assert.Equal(t, config.RoleMaintenanceSupervisor, resp.Role)
	assert.Equal(t, "Kiss Anna", resp.FullName)

	filtered, err := env.userSvc.ListUsers(env.ctx, dto.UserFilter{Role: config.RoleMaintenanceSupervisor})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestResetPassword(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser("horvath", config.RoleMaintenanceTech, nil)

	require.NoError(t, env.userSvc.ResetPassword(env.ctx, uuid.Nil, u.ID))
	got, err := env.users.FindByID(env.ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.MustChangePassword)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte(env.cfg.DefaultPassword)))
}
