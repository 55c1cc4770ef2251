package service

import (
	"context"
	"strings"

	"zedcmms/internal/apperror"
	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	CreateUser(ctx context.Context, actor uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error)
	GetUser(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error)
	ListUsers(ctx context.Context, filter dto.UserFilter) ([]dto.UserResponse, error)
	UpdateUser(ctx context.Context, actor, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error)
	DeactivateUser(ctx context.Context, actor, id uuid.UUID) error
	ReactivateUser(ctx context.Context, actor, id uuid.UUID) error
	ResetPassword(ctx context.Context, actor, id uuid.UUID) error
}

type userService struct {
	users repository.UserRepository
	roles repository.RoleRepository
	cfg   *config.Config
	audit AuditService
}

func NewUserService(users repository.UserRepository, roles repository.RoleRepository, cfg *config.Config, audit AuditService) UserService {
	return &userService{users: users, roles: roles, cfg: cfg, audit: audit}
}

func userValidation(field, msg string) error {
	return apperror.Validation(field, msg).Wrap(ErrUserService)
}

func normalizeEmail(e *string) *string {
	if e == nil {
		return nil
	}
	v := strings.TrimSpace(*e)
	if v == "" {
		return nil
	}
	return &v
}

func (s *userService) CreateUser(ctx context.Context, actor uuid.UUID, req dto.CreateUserRequest) (*dto.UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	if taken, err := s.users.ExistsUsername(ctx, username, uuid.Nil); err != nil {
		return nil, err
	} else if taken {
		return nil, userValidation("username", "username already exists")
	}
	email := normalizeEmail(req.Email)
	if email != nil {
		if taken, err := s.users.ExistsEmail(ctx, *email, uuid.Nil); err != nil {
			return nil, err
		} else if taken {
			return nil, userValidation("email", "email already exists")
		}
	}
	role, err := s.roles.FindByName(ctx, req.RoleName)
	if err != nil {
		return nil, notFound(err, "Role", req.RoleName)
	}

	password := req.Password
	mustChange := false
	if password == "" || password == s.cfg.DefaultPassword {
		password = s.cfg.DefaultPassword
		mustChange = true
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}
	lang := req.LanguagePreference
	if lang == "" {
		lang = "hu"
	}

	user := &model.User{
		Username:           username,
		FullName:           req.FullName,
		Email:              email,
		PasswordHash:       string(hash),
		RoleID:             role.ID,
		IsActive:           true,
		LanguagePreference: lang,
		MustChangePassword: mustChange,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	user.Role = role

	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditCreate, EntityType: "user", EntityID: user.ID.String(),
		Changes: map[string]any{"username": username, "role": role.Name}})
	log.Info().Str("username", username).Str("role", role.Name).Msg("user created")
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User", id)
	}
	resp := toUserResponse(u)
	return &resp, nil
}

func (s *userService) ListUsers(ctx context.Context, f dto.UserFilter) ([]dto.UserResponse, error) {
	users, err := s.users.List(ctx, repository.UserFilter{RoleName: f.Role, IncludeInactive: f.IncludeInactive})
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return out, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor, id uuid.UUID, req dto.UpdateUserRequest) (*dto.UserResponse, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "User", id)
	}
	changes := map[string]any{}

	if req.FullName != nil && *req.FullName != u.FullName {
		changes["full_name"] = *req.FullName
		u.FullName = *req.FullName
	}
	if req.Email != nil {
		email := normalizeEmail(req.Email)
		if email != nil {
			taken, err := s.users.ExistsEmail(ctx, *email, u.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, userValidation("email", "email already exists")
			}
		}
		u.Email = email
		changes["email"] = deref(email)
	}
	if req.RoleName != nil && (u.Role == nil || u.Role.Name != *req.RoleName) {
		role, err := s.roles.FindByName(ctx, *req.RoleName)
		if err != nil {
			return nil, notFound(err, "Role", *req.RoleName)
		}
		u.RoleID = role.ID
		u.Role = role
		changes["role"] = role.Name
	}
	if req.LanguagePreference != nil {
		u.LanguagePreference = *req.LanguagePreference
		changes["language_preference"] = *req.LanguagePreference
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "user", EntityID: id.String(), Changes: changes})
	resp := toUserResponse(u)
	return &resp, nil
}

func (s *userService) setActive(ctx context.Context, actor, id uuid.UUID, active bool) error {
	if _, err := s.users.FindByID(ctx, id); err != nil {
		return notFound(err, "User", id)
	}
	if !active && actor == id {
		return apperror.BusinessLogic("SELF_DEACTIVATION", "users cannot deactivate themselves").Wrap(ErrUserService)
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "user", EntityID: id.String(),
		Changes: map[string]any{"is_active": active}})
	return nil
}

func (s *userService) DeactivateUser(ctx context.Context, actor, id uuid.UUID) error {
	return s.setActive(ctx, actor, id, false)
}

func (s *userService) ReactivateUser(ctx context.Context, actor, id uuid.UUID) error {
	return s.setActive(ctx, actor, id, true)
}

func (s *userService) ResetPassword(ctx context.Context, actor, id uuid.UUID) error {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "User", id)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.DefaultPassword), bcryptCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.MustChangePassword = true
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.audit.Log(ctx, AuditEntry{UserID: actor, Action: AuditUpdate, EntityType: "user", EntityID: id.String(),
		Changes: map[string]any{"password": "reset"}})
	return nil
}
