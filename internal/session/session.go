// Package session supplies the current owner identity and the login
// lifecycle. Collections are always scoped through the owner this package
// resolves, so a nil owner must stop every operation before it reaches
// the backend.
package session

import (
	"context"
	"errors"
)

// Owner is the authenticated identity all collections are namespaced
// under.
type Owner struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

var (
	// ErrNotAuthenticated reports an operation attempted with no current
	// owner.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrInvalidCredentials covers unknown emails and wrong passwords
	// alike, so a caller cannot probe which of the two failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken reports a registration against an existing account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrMissingFields reports a login or registration with blank
	// required fields.
	ErrMissingFields = errors.New("email and password are required")
)

// Provider is the identity boundary. Implementations fire the
// OnOwnerChanged handlers on every sign-in and sign-out transition, and
// deliver the current state to a handler at registration time so a late
// subscriber sees the resolved session immediately.
type Provider interface {
	CurrentOwner() *Owner
	Login(ctx context.Context, email, password string) (*Owner, error)
	Register(ctx context.Context, email, password, displayName string) (*Owner, error)
	LoginWithIDToken(ctx context.Context, rawToken string) (*Owner, error)
	Logout()
	OnOwnerChanged(handler func(*Owner)) (unsubscribe func())
}
