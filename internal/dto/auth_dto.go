// FILE: internal/dto/auth_dto.go
package dto

import (
	"linguabridge-gateway/pkg/identity"
	"linguabridge-gateway/pkg/store"
)

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type AuthResponse struct {
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	ExpiresIn    int             `json:"expires_in,omitempty"`
	SessionID    string          `json:"session_id,omitempty"`
	User         identity.User   `json:"user"`
	Snapshot     *store.Snapshot `json:"snapshot,omitempty"`
	// Set when the account still needs email confirmation before sign-in.
	ConfirmationRequired bool `json:"confirmation_required,omitempty"`
}
