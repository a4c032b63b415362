package models

import "time"

// User is an identity-provider account. Verifier is derived client side
// from the password and Salt, so the server never sees the password.
type User struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
