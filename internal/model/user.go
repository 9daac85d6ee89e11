package model

import (
	"regexp"
	"time"

	"github.com/jwalitptl/identity-api/pkg/security"
)

// Identity provider constants
const (
	ProviderLocal = "local"
)

// Contact channel constants
const (
	ContactEmail = "email"
	ContactPhone = "phone"
)

// User represents an identity record with its credential. The password
// hash, salt and raw verification codes never leave the process: they are
// excluded from every JSON projection.
type User struct {
	Base
	Email        string              `json:"email" db:"email"`
	Phone        string              `json:"phone,omitempty" db:"phone"`
	Name         string              `json:"name" db:"name"`
	Password     string              `json:"password,omitempty" db:"-"`
	PasswordHash string              `json:"-" db:"password_hash"`
	Salt         string              `json:"-" db:"salt"`
	Algorithm    security.Algorithm  `json:"-" db:"algorithm"`
	Provider     string              `json:"provider" db:"provider"`
	Roles        []string            `json:"roles" db:"-"`
	Validations  []ValidationAttempt `json:"validations,omitempty" db:"-"`
}

// ValidationAttempt tracks one contact channel's verification state.
type ValidationAttempt struct {
	Type        string     `json:"type" db:"type"`
	Validated   bool       `json:"validated" db:"validated"`
	Code        string     `json:"-" db:"code"`
	ResendCount int        `json:"resend_count" db:"resend_count"`
	TryCount    int        `json:"try_count" db:"try_count"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastTryAt   *time.Time `json:"last_try_at,omitempty" db:"last_try_at"`
}

// HasPassword reports whether a password is set. Federated accounts may
// carry no password at all.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// IsLocal reports whether the account authenticates with a locally stored
// password. Policy enforcement and phone-format checks only apply to local
// accounts.
func (u *User) IsLocal() bool {
	return u.Provider == ProviderLocal
}

// Validation returns the attempt for the given contact type, or nil.
func (u *User) Validation(contactType string) *ValidationAttempt {
	for i := range u.Validations {
		if u.Validations[i].Type == contactType {
			return &u.Validations[i]
		}
	}
	return nil
}

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{6,14}$`)

// ValidPhone reports whether phone is acceptable for the given provider.
// Only local accounts must carry E.164-shaped numbers; federated providers
// supply whatever their directory holds. Updates are exempt so records
// predating the format rule stay writable, and an empty phone is always
// acceptable here: whether the field is required at all is configuration.
func ValidPhone(phone, provider string, isUpdate bool) bool {
	if provider != ProviderLocal {
		return true
	}
	if isUpdate || phone == "" {
		return true
	}
	return phonePattern.MatchString(phone)
}

// UserFilter represents user search parameters
type UserFilter struct {
	BaseFilter
	Provider string `json:"provider" form:"provider"`
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Phone    string   `json:"phone"`
	Name     string   `json:"name" binding:"required"`
	Password string   `json:"password"`
	Provider string   `json:"provider" binding:"omitempty,oneof=local google github saml"`
	Roles    []string `json:"roles"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	Password  string `json:"password" binding:"required"`
	Algorithm string `json:"algorithm" binding:"omitempty,oneof=bcrypt pbkdf2"`
}

// VerifyContactRequest carries a verification code for a contact channel
type VerifyContactRequest struct {
	Type string `json:"type" binding:"required,oneof=email phone"`
	Code string `json:"code" binding:"required"`
}
