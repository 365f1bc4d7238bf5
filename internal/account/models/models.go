// Package models defines operator and approver accounts.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "conexus/pkg/domain-errors"
)

// Role gates which lifecycle commands an account may issue.
type Role string

const (
	RoleOperator Role = "operator"
	RoleApprover Role = "approver"
)

func (r Role) IsValid() bool {
	return r == RoleOperator || r == RoleApprover
}

// Account is a dashboard login. Passwords are stored only as bcrypt hashes.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	if r.Role == "" {
		r.Role = RoleOperator
	}
}

// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if len(r.Password) > 72 {
		return dErrors.New(dErrors.CodeValidation, "password must be 72 characters or less")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "email is not valid")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Password) < 8 {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if !r.Role.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "role must be %s or %s", RoleOperator, RoleApprover)
	}
	return nil
}

// LoginRequest exchanges credentials for an access token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = strings.TrimSpace(strings.ToLower(r.Email))
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}
