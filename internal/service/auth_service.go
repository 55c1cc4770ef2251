package service

import (
	"context"
	"errors"
	"time"

	"zedcmms/internal/apperror"
	"zedcmms/internal/config"
	"zedcmms/internal/dto"
	"zedcmms/internal/model"
	"zedcmms/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Token types carried in the "typ" claim.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// ErrInvalidCredentials is returned for unknown users, inactive users and
// wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInvalidToken is returned when a refresh token cannot be used.
var ErrInvalidToken = errors.New("invalid or expired token")

var bcryptCost = 12

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req dto.ChangePasswordRequest) error
}

type authService struct {
	repo  repository.UserRepository
	cfg   *config.Config
	audit AuditService
	now   func() time.Time
}

func NewAuthService(repo repository.UserRepository, cfg *config.Config, audit AuditService) AuthService {
	return &authService{repo: repo, cfg: cfg, audit: audit, now: utcNow}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repo.FindByLogin(ctx, req.Username)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		s.audit.Log(ctx, AuditEntry{UserID: user.ID, Action: AuditLogin, EntityType: "user", EntityID: user.ID.String()})
	}
	return resp, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.LoginResponse, error) {
	token, err := jwt.Parse(refreshToken, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["typ"] != TokenRefresh {
		return nil, ErrInvalidToken
	}
	userIDStr, _ := claims["user_id"].(string)
	uid, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil || !user.IsActive {
		return nil, ErrInvalidToken
	}
	return s.issueTokens(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "User", userID)
	}
	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uuid.UUID, req dto.ChangePasswordRequest) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return notFound(err, "User", userID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return apperror.Validation("old_password", "current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	user.MustChangePassword = false
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.Log(ctx, AuditEntry{UserID: userID, Action: AuditUpdate, EntityType: "user", EntityID: userID.String(),
			Changes: map[string]any{"password": "changed"}})
	}
	return nil
}

func (s *authService) issueTokens(user *model.User) (*dto.LoginResponse, error) {
	access, err := s.generateToken(user, TokenAccess, time.Duration(s.cfg.JWTExpirationHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	refresh, err := s.generateToken(user, TokenRefresh, time.Duration(s.cfg.JWTRefreshHours)*time.Hour)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.JWTExpirationHours * 3600,
		User:         toUserResponse(user),
	}, nil
}

func (s *authService) generateToken(user *model.User, typ string, ttl time.Duration) (string, error) {
	roleName := ""
	if user.Role != nil {
		roleName = user.Role.Name
	}
	now := s.now()
	claims := jwt.MapClaims{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"role":     roleName,
		"typ":      typ,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func toUserResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:                 u.ID.String(),
		Username:           u.Username,
		FullName:           u.FullName,
		Email:              u.Email,
		IsActive:           u.IsActive,
		LanguagePreference: u.LanguagePreference,
		MustChangePassword: u.MustChangePassword,
	}
	if u.Role != nil {
		resp.Role = u.Role.Name
		resp.RoleDisplayName = u.Role.DisplayName
	}
	return resp
}
