package dto

import "github.com/noah-isme/dlool-api/internal/models"

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string  `json:"username" validate:"required,max=64,nospace"`
	Name     string  `json:"name" validate:"required,max=128"`
	Password string  `json:"password" validate:"required,password_policy,password_bytes"`
	School   string  `json:"school" validate:"required"`
	Class    string  `json:"class" validate:"required"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`

	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// RegistrationMode tells whether registration created the account or queued a request.
type RegistrationMode string

const (
	RegistrationModeCreated RegistrationMode = "created"
	RegistrationModePending RegistrationMode = "pending"
)

// RegisterResult is the outcome of a registration.
type RegisterResult struct {
	Mode      RegistrationMode `json:"mode"`
	UserID    string           `json:"userId,omitempty"`
	RequestID string           `json:"id,omitempty"`

	// MembershipErr is set when the account was created but adding it to the
	// class failed. The account exists; membership must be repaired separately.
	MembershipErr error `json:"-"`
}

// UpdateMeRequest is a partial update of the current user.
type UpdateMeRequest struct {
	Username *string `json:"username,omitempty" validate:"omitempty,max=64,nospace"`
	Name     *string `json:"name,omitempty" validate:"omitempty,max=128"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,password_policy,password_bytes"`
}

// MeView is the current user with resolved school and classes.
type MeView struct {
	ID       string          `json:"id"`
	Username string          `json:"username"`
	Name     string          `json:"name"`
	Email    *string         `json:"email"`
	School   *models.School  `json:"school"`
	Classes  []*models.Class `json:"classes"`
}

// UserDetailsView is the public view of another user.
type UserDetailsView struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	School  string   `json:"school"`
	Classes []string `json:"classes"`
}
