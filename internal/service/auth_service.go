// FILE: internal/service/auth_service.go
package service

import (
	"context"
	"fmt"

	"linguabridge-gateway/internal/dto"
	"linguabridge-gateway/internal/pkg/logger"
	"linguabridge-gateway/pkg/apperr"
	"linguabridge-gateway/pkg/identity"
)

// TokenVerifier turns a provider access token into claims.
type TokenVerifier interface {
	Verify(raw string) (*identity.Claims, error)
}

type IAuthService interface {
	SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error)
	SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error)
	CurrentUser(ctx context.Context, accessToken string) (*identity.User, error)
	SignOut(ctx context.Context, claims *identity.Claims, accessToken string) error
}

type authService struct {
	provider identity.Provider
	verifier TokenVerifier
	sessions ISessionService
	logger   logger.ILogger
}

func NewAuthService(provider identity.Provider, verifier TokenVerifier, sessions ISessionService, log logger.ILogger) IAuthService {
	if log == nil {
		log = logger.NewNop()
	}
	return &authService{
		provider: provider,
		verifier: verifier,
		sessions: sessions,
		logger:   log,
	}
}

func (s *authService) SignIn(ctx context.Context, req *dto.SignInRequest) (*dto.AuthResponse, error) {
	session, err := s.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("AuthService", "Sign-in rejected", map[string]interface{}{"email": req.Email, "error": err.Error()})
		return nil, err
	}
	return s.establish(ctx, session)
}

// SignUp establishes a session straight away when the provider issued a
// token. Otherwise the account awaits email confirmation.
func (s *authService) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.AuthResponse, error) {
	session, err := s.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		s.logger.Warn("AuthService", "Sign-up rejected", map[string]interface{}{"email": req.Email, "error": err.Error()})
		return nil, err
	}
	if session.AccessToken == "" {
		s.logger.Info("AuthService", "Sign-up pending email confirmation", map[string]interface{}{"email": req.Email})
		return &dto.AuthResponse{User: session.User, ConfirmationRequired: true}, nil
	}
	return s.establish(ctx, session)
}

func (s *authService) establish(ctx context.Context, session *identity.Session) (*dto.AuthResponse, error) {
	claims, err := s.verifier.Verify(session.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("provider issued an unverifiable token: %w", err)
	}

	sess := s.sessions.Establish(ctx, claims, session.AccessToken)
	snap := sess.Snapshot()

	user := session.User
	if user.ID == "" {
		user = identity.User{ID: claims.UserID, Email: claims.Email}
	}

	return &dto.AuthResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
		SessionID:    sess.ID,
		User:         user,
		Snapshot:     &snap,
	}, nil
}

func (s *authService) CurrentUser(ctx context.Context, accessToken string) (*identity.User, error) {
	if accessToken == "" {
		return nil, apperr.ErrAuthRequired
	}
	return s.provider.GetSession(ctx, accessToken)
}

// SignOut drops local state even when the provider call fails, so a user is
// never stuck signed in to the gateway.
func (s *authService) SignOut(ctx context.Context, claims *identity.Claims, accessToken string) error {
	providerErr := s.provider.SignOut(ctx, accessToken)
	if providerErr != nil {
		s.logger.Warn("AuthService", "Provider sign-out failed", map[string]interface{}{
			"user_id": claims.UserID,
			"error":   providerErr.Error(),
		})
	}

	s.sessions.End(claims.SessionID)
	return providerErr
}
