package repository

import (
	"context"

	"zedcmms/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleRepository interface {
	Create(ctx context.Context, r *model.Role) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	UpdatePermissionsTx(tx *gorm.DB, id uuid.UUID, perms map[string]bool) error
	DB() *gorm.DB
}

type roleRepo struct{ db *gorm.DB }

func NewRoleRepository(db *gorm.DB) RoleRepository { return &roleRepo{db: db} }

func (r *roleRepo) Create(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *roleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).First(&role, "id = ?", id).Error
	return &role, err
}

func (r *roleRepo) FindByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	return &role, err
}

func (r *roleRepo) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).Order("level ASC, name ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepo) UpdatePermissionsTx(tx *gorm.DB, id uuid.UUID, perms map[string]bool) error {
	role := model.Role{Permissions: perms}
	return tx.Model(&model.Role{}).Where("id = ?", id).Select("permissions").Updates(&role).Error
}

func (r *roleRepo) DB() *gorm.DB { return r.db }

// ─── Users ───────────────────────────────────────────────────────────────────

type UserFilter struct {
	RoleName        string
	IncludeInactive bool
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// FindByLogin matches the username or, case-insensitively, the e-mail.
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	ExistsUsername(ctx context.Context, username string, exclude uuid.UUID) (bool, error)
	ExistsEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, error)
	ListActiveByRoles(ctx context.Context, roleNames ...string) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

type userRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepo{db: db} }

func (r *userRepo) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Preload("Role").First(&u, "id = ?", id).Error
	return &u, err
}

func (r *userRepo) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).Preload("Role").
		Where("username = ? OR LOWER(email) = LOWER(?)", login, login).
		First(&u).Error
	return &u, err
}

func (r *userRepo) ExistsUsername(ctx context.Context, username string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("username = ? AND id <> ?", username, exclude).Count(&n).Error
	return n > 0, err
}

func (r *userRepo) ExistsEmail(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.User{}).
		Where("LOWER(email) = LOWER(?) AND id <> ?", email, exclude).Count(&n).Error
	return n > 0, err
}

func (r *userRepo) List(ctx context.Context, filter UserFilter) ([]model.User, error) {
	q := r.db.WithContext(ctx).Preload("Role").Model(&model.User{})
	if !filter.IncludeInactive {
		q = q.Where("users.is_active = ?", true)
	}
	if filter.RoleName != "" {
		q = q.Joins("JOIN roles ON roles.id = users.role_id").Where("roles.name = ?", filter.RoleName)
	}
	var users []model.User
	err := q.Order("users.username ASC").Find(&users).Error
	return users, err
}

func (r *userRepo) ListActiveByRoles(ctx context.Context, roleNames ...string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.name IN ? AND users.is_active = ?", roleNames, true).
		Find(&users).Error
	return users, err
}

func (r *userRepo) Update(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Omit("Role").Save(u).Error
}

func (r *userRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("is_active", active).Error
}
