// Package identity talks to the external identity provider and verifies the
// access tokens it issues.
package identity

import "context"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is what a successful sign-in or sign-up yields. AccessToken is empty
// when the provider created the account but wants the email confirmed first.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

type Provider interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	GetSession(ctx context.Context, accessToken string) (*User, error)
	SignOut(ctx context.Context, accessToken string) error
}
