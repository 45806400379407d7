package user

import "time"

// User represents a registered user account.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	Name         string    `json:"name" bson:"name"`
	Photo        string    `json:"photo,omitempty" bson:"photo,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// CreateUserInput holds the fields required to create a new user.
type CreateUserInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Photo    string `json:"photo"`
}
