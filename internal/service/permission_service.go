package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type PermissionService interface {
	// EnsureRoles creates missing built-in roles and keeps the developer
	// role holding every key.
	EnsureRoles(ctx context.Context) error
	// RolePermissions returns the granted keys of a role, cached per role.
	RolePermissions(ctx context.Context, roleName string) (map[string]bool, error)
	HasPermission(ctx context.Context, roleName, key string) (bool, error)
	ListRoles(ctx context.Context) ([]dto.RoleResponse, error)
	GetMatrix(ctx context.Context) (*dto.PermissionMatrixResponse, error)
	UpdateMatrix(ctx context.Context, actor uuid.UUID, req dto.UpdatePermissionMatrixRequest) (*dto.PermissionMatrixResponse, error)
	ResetToDefaults(ctx context.Context, actor uuid.UUID) error
	Summary(ctx context.Context) ([]dto.PermissionSummary, error)
}

type permissionService struct {
	roles    repository.RoleRepository
	defaults []config.RoleDefinition
	audit    AuditService
	cache    *cache.Cache
}

func NewPermissionService(roles repository.RoleRepository, defaults []config.RoleDefinition, audit AuditService) PermissionService {
	if len(defaults) == 0 {
		defaults = config.DefaultRoles()
	}
	return &permissionService{
		roles:    roles,
		defaults: defaults,
		audit:    audit,
		cache:    cache.New(60*time.Second, 2*time.Minute),
	}
}

func permSet(keys []string) map[string]bool {
	m := make(map[string]bool, len(keys))
	for _, k := range keys {
		m[k] = true
	}
	return m
}

func allPermissions() map[string]bool { return permSet(config.AllPermissionKeys()) }

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, v := range m {
		if v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func knownPermission(key string) bool {
	for _, k := range config.AllPermissionKeys() {
		if k == key {
			return true
		}
	}
	return false
}

func (s *permissionService) EnsureRoles(ctx context.Context) error {
	for _, def := range s.defaults {
		role, err := s.roles.FindByName(ctx, def.Name)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			perms := permSet(def.Permissions)
			if def.Name == config.RoleDeveloper {
				perms = allPermissions()
			}
			if err := s.roles.Create(ctx, &model.Role{
				Name: def.Name, DisplayName: def.DisplayName, Level: def.Level, Permissions: perms,
			}); err != nil {
				return err
			}
			log.Info().Str("role", def.Name).Msg("permissions: created role")
		case err != nil:
			return err
		case def.Name == config.RoleDeveloper && len(sortedKeys(role.Permissions)) != len(config.AllPermissionKeys()):
			if err := runTx(ctx, s.roles.DB(), func(tx *gorm.DB) error {
				return s.roles.UpdatePermissionsTx(tx, role.ID, allPermissions())
			}); err != nil {
				return err
			}
		}
	}
	s.cache.Flush()
	return nil
}

func (s *permissionService) RolePermissions(ctx context.Context, roleName string) (map[string]bool, error) {
	if roleName == config.RoleDeveloper {
		return allPermissions(), nil
	}
	if v, ok := s.cache.Get(roleName); ok {
		return v.(map[string]bool), nil
	}
	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		return nil, notFound(err, "Role", roleName)
	}
	perms := make(map[string]bool, len(role.Permissions))
	for k, v := range role.Permissions {
		if v {
			perms[k] = true
		}
	}
	s.cache.Set(roleName, perms, cache.DefaultExpiration)
	return perms, nil
}

func (s *permissionService) HasPermission(ctx context.Context, roleName, key string) (bool, error) {
	perms, err := s.RolePermissions(ctx, roleName)
	if err != nil {
		return false, err
	}
	return perms[key], nil
}

func toRoleResponse(r model.Role) dto.RoleResponse {
	return dto.RoleResponse{
		ID:          r.ID.String(),
		Name:        r.Name,
		DisplayName: r.DisplayName,
		Level:       r.Level,
		Permissions: sortedKeys(r.Permissions),
	}
}

func (s *permissionService) ListRoles(ctx context.Context) ([]dto.RoleResponse, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.RoleResponse, len(roles))
	for i, r := range roles {
		out[i] = toRoleResponse(r)
	}
	return out, nil
}

func (s *permissionService) GetMatrix(ctx context.Context) (*dto.PermissionMatrixResponse, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	matrix := make(map[string]int)
	for _, key := range config.AllPermissionKeys() {
		lowest := 0
		for _, r := range roles {
			granted := r.Has(key) || r.Name == config.RoleDeveloper
			if granted && (lowest == 0 || r.Level < lowest) {
				lowest = r.Level
			}
		}
		matrix[key] = lowest
	}
	resp := &dto.PermissionMatrixResponse{
		Matrix:      matrix,
		ManageLevel: matrix[config.PermissionKey("permissions", "manage")],
		Roles:       make([]dto.RoleResponse, len(roles)),
	}
	for i, r := range roles {
		resp.Roles[i] = toRoleResponse(r)
	}
	return resp, nil
}

// UpdateMatrix grants each key to the named role and every role at or above
// its level, and revokes it below. The developer role is never modified.
func (s *permissionService) UpdateMatrix(ctx context.Context, actor uuid.UUID, req dto.UpdatePermissionMatrixRequest) (*dto.PermissionMatrixResponse, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]model.Role, len(roles))
	for _, r := range roles {
		byName[r.Name] = r
	}

	threshold := make(map[string]int, len(req.Assignments))
	for key, roleName := range req.Assignments {
		if !knownPermission(key) {
			return nil, apperror.Validation("assignments", "unknown permission key: "+key)
		}
		r, ok := byName[roleName]
		if !ok {
			return nil, apperror.NotFound("Role", roleName)
		}
		threshold[key] = r.Level
	}

	err = runTx(ctx, s.roles.DB(), func(tx *gorm.DB) error {
		for _, r := range roles {
			if r.Name == config.RoleDeveloper {
				continue
			}
			perms := make(map[string]bool, len(r.Permissions))
			for k, v := range r.Permissions {
				perms[k] = v
			}
			for key, lvl := range threshold {
				if r.Level >= lvl {
					perms[key] = true
				} else {
					delete(perms, key)
				}
			}
			if err := s.roles.UpdatePermissionsTx(tx, r.ID, perms); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Flush()

	changes := make(map[string]any, len(req.Assignments))
	for k, v := range req.Assignments {
		changes[k] = v
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "permission_matrix", Changes: changes})
	log.Info().Int("keys", len(threshold)).Msg("permissions: matrix updated")
	return s.GetMatrix(ctx)
}

func (s *permissionService) ResetToDefaults(ctx context.Context, actor uuid.UUID) error {
	err := runTx(ctx, s.roles.DB(), func(tx *gorm.DB) error {
		for _, def := range s.defaults {
			var role model.Role
			err := tx.Where("name = ?", def.Name).First(&role).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			perms := permSet(def.Permissions)
			if def.Name == config.RoleDeveloper {
				perms = allPermissions()
			}
			if err := s.roles.UpdatePermissionsTx(tx, role.ID, perms); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.cache.Flush()
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "permission_matrix",
		Changes: map[string]any{"reset": true}})
	return nil
}

func (s *permissionService) Summary(ctx context.Context) ([]dto.PermissionSummary, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, err
	}
	total := len(config.AllPermissionKeys())
	out := make([]dto.PermissionSummary, len(roles))
	for i, r := range roles {
		granted := len(sortedKeys(r.Permissions))
		if r.Name == config.RoleDeveloper {
			granted = total
		}
		out[i] = dto.PermissionSummary{
			Role: r.Name, DisplayName: r.DisplayName, Level: r.Level, Granted: granted, Total: total,
		}
	}
	return out, nil
}
