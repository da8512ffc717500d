package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"

	"github.com/lifehubapp/lifehub/internal/models"
)

// Service implements Provider over a UserStore with bcrypt-hashed
// passwords and Google ID-token federated sign-in.
type Service struct {
	users          UserStore
	googleAudience string

	// validateIDToken is swapped out by tests; defaults to
	// idtoken.Validate against Google's public keys.
	validateIDToken func(ctx context.Context, rawToken, audience string) (*idtoken.Payload, error)

	mu       sync.Mutex
	current  *Owner
	watchers map[int]func(*Owner)
	nextID   int
}

func NewService(users UserStore, googleAudience string) *Service {
	return &Service{
		users:           users,
		googleAudience:  googleAudience,
		validateIDToken: idtoken.Validate,
		watchers:        make(map[int]func(*Owner)),
	}
}

func (s *Service) CurrentOwner() *Owner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Owner, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		UID:          uuid.New().String(),
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hash),
		Provider:     "password",
		CreatedAt:    time.Now(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.setCurrent(user), nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*Owner, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.setCurrent(user), nil
}

// LoginWithIDToken validates a Google ID token and signs in the matching
// account, creating it on first sign-in.
func (s *Service) LoginWithIDToken(ctx context.Context, rawToken string) (*Owner, error) {
	if rawToken == "" {
		return nil, fmt.Errorf("missing ID token")
	}

	payload, err := s.validateIDToken(ctx, rawToken, s.googleAudience)
	if err != nil {
		return nil, fmt.Errorf("failed to validate ID token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, fmt.Errorf("ID token has no email claim")
	}
	name, _ := payload.Claims["name"].(string)

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		user = &models.User{
			UID:         payload.Subject,
			Email:       email,
			DisplayName: name,
			Provider:    "google",
			CreatedAt:   time.Now(),
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		log.Printf("Created account for federated sign-in: %s", user.UID)
	} else if err != nil {
		return nil, err
	}

	return s.setCurrent(user), nil
}

func (s *Service) Logout() {
	s.mu.Lock()
	s.current = nil
	watchers := s.watchersLocked()
	s.mu.Unlock()

	for _, w := range watchers {
		w(nil)
	}
}

// OnOwnerChanged registers a handler and immediately delivers the
// current, already-resolved session state to it.
func (s *Service) OnOwnerChanged(handler func(*Owner)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = handler
	current := s.current
	s.mu.Unlock()

	handler(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Service) setCurrent(user *models.User) *Owner {
	owner := &Owner{UID: user.UID, Email: user.Email, DisplayName: user.DisplayName}

	s.mu.Lock()
	s.current = owner
	watchers := s.watchersLocked()
	s.mu.Unlock()

	for _, w := range watchers {
		w(owner)
	}
	return owner
}

// watchersLocked snapshots the handler list. Callers hold mu.
func (s *Service) watchersLocked() []func(*Owner) {
	out := make([]func(*Owner), 0, len(s.watchers))
	for _, w := range s.watchers {
		out = append(out, w)
	}
	return out
}
