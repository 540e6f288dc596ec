package auth

import (
	"clinic-scheduling/internal/apierrors"

	"github.com/google/uuid"
)

// Role is the capability a user holds, stored in the user record.
type Role string

const (
	AdminRole   Role = "ADMIN"
	PatientRole Role = "PATIENT"
	DoctorRole  Role = "DOCTOR"
)

// IsValid reports whether the role is a known one.
func (r Role) IsValid() bool {
	return r == AdminRole || r == PatientRole || r == DoctorRole
}

// Credentials are the email and password used to log in.
type Credentials struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// Validate validates if the credentials given are valid.
func (c Credentials) Validate() error {
	if c.Email == "" {
		return apierrors.NewValidationError("email", "required")
	}
	if c.Password == "" {
		return apierrors.NewValidationError("password", "required")
	}
	return nil
}

const refreshGrantType = "refresh_token"

// Tokens is the pair of signed JWTs handed to an authenticated user.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type,omitempty"`
}

// Validate validates if the tokens given are valid.
func (c Tokens) Validate() error {
	if c.AccessToken == "" {
		return apierrors.NewValidationError("access_token", "required")
	}
	if c.RefreshToken == "" {
		return apierrors.NewValidationError("refresh_token", "required")
	}
	if c.GrantType == "" {
		return apierrors.NewValidationError("grant_type", "required")
	}
	if c.GrantType != refreshGrantType {
		return apierrors.NewValidationError("grant_type", "invalid")
	}
	return nil
}

// User is the authenticated identity. Its role is resolved from tb_user on every token validation.
type User struct {
	ID       int64     `json:"-" dbfield:"id"`
	UUID     uuid.UUID `json:"uuid" dbfield:"uuid"`
	Email    string    `json:"email" dbfield:"email"`
	Password string    `json:"password,omitempty" dbfield:"password"`
	Role     Role      `json:"role" dbfield:"role"`
}
