package models

import "time"

// User is an account record stored in the accounts collection.
// PasswordHash is empty for accounts created through federated sign-in.
type User struct {
	UID          string    `firestore:"uid" json:"uid"`
	Email        string    `firestore:"email" json:"email"`
	DisplayName  string    `firestore:"displayName" json:"displayName"`
	PasswordHash string    `firestore:"passwordHash" json:"-"`
	Provider     string    `firestore:"provider" json:"provider"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}
