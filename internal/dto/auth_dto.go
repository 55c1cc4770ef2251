package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=1"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

type CreateUserRequest struct {
	Username           string  `json:"username"  validate:"required,min=3,max=50"`
	FullName           string  `json:"full_name" validate:"omitempty,max=100"`
	Email              *string `json:"email"     validate:"omitempty,email"`
	Password           string  `json:"password"  validate:"omitempty,min=8"`
	RoleName           string  `json:"role"      validate:"required"`
	LanguagePreference string  `json:"language_preference" validate:"omitempty,oneof=hu en"`
}

type UpdateUserRequest struct {
	FullName           *string `json:"full_name" validate:"omitempty,max=100"`
	Email              *string `json:"email"     validate:"omitempty,email"`
	RoleName           *string `json:"role"`
	LanguagePreference *string `json:"language_preference" validate:"omitempty,oneof=hu en"`
}

type UserFilter struct {
	Role            string `form:"role"`
	IncludeInactive bool   `form:"include_inactive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UserResponse struct {
	ID                 string  `json:"id"`
	Username           string  `json:"username"`
	FullName           string  `json:"full_name"`
	Email              *string `json:"email"`
	Role               string  `json:"role"`
	RoleDisplayName    string  `json:"role_display_name"`
	IsActive           bool    `json:"is_active"`
	LanguagePreference string  `json:"language_preference"`
	MustChangePassword bool    `json:"must_change_password"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // seconds
	User         UserResponse `json:"user"`
}

type RoleResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`
}
