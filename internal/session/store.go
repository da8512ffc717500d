package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/lifehubapp/lifehub/internal/models"
)

// ErrUserNotFound reports a lookup for an account that does not exist.
var ErrUserNotFound = errors.New("user not found")

// UserStore persists account records. Accounts live in a top-level
// collection, outside the per-owner document tree.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUID(ctx context.Context, uid string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

const accountsCollection = "accounts"

// FirestoreUserStore keeps accounts in Firestore, one document per uid.
type FirestoreUserStore struct {
	client *firestore.Client
}

func NewFirestoreUserStore(client *firestore.Client) *FirestoreUserStore {
	return &FirestoreUserStore{client: client}
}

func (us *FirestoreUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	iter := us.client.Collection(accountsCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %v", err)
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}
	return &user, nil
}

func (us *FirestoreUserStore) FindByUID(ctx context.Context, uid string) (*models.User, error) {
	doc, err := us.client.Collection(accountsCollection).Doc(uid).Get(ctx)
	if err != nil {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := doc.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal account: %v", err)
	}
	return &user, nil
}

func (us *FirestoreUserStore) Create(ctx context.Context, user *models.User) error {
	_, err := us.client.Collection(accountsCollection).Doc(user.UID).Set(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create account: %v", err)
	}
	return nil
}

// MemoryUserStore is the in-process UserStore used by tests and local
// development.
type MemoryUserStore struct {
	mu      sync.Mutex
	byUID   map[string]models.User
	byEmail map[string]string
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byUID:   make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (us *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	us.mu.Lock()
	defer us.mu.Unlock()

	uid, ok := us.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := us.byUID[uid]
	return &user, nil
}

func (us *MemoryUserStore) FindByUID(ctx context.Context, uid string) (*models.User, error) {
	us.mu.Lock()
	defer us.mu.Unlock()

	user, ok := us.byUID[uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &user, nil
}

func (us *MemoryUserStore) Create(ctx context.Context, user *models.User) error {
	us.mu.Lock()
	defer us.mu.Unlock()

	if _, ok := us.byEmail[user.Email]; ok {
		return ErrEmailTaken
	}
	us.byUID[user.UID] = *user
	us.byEmail[user.Email] = user.UID
	return nil
}
