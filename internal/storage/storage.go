package storage

import (
	"context"                 // Request lifetime
	"errors"                  // Sentinel errors
	"kodbank/internal/domain" // Importing domain models
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures user persistence needed by handlers.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	FindByUsername(ctx context.Context, username string) (domain.User, error)
	// ExistsByUsernameOrEmail reports whether either value is already taken.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

// TokenStore tracks tokens issued at login.
type TokenStore interface {
	SaveToken(ctx context.Context, token domain.UserToken) error
	DeleteToken(ctx context.Context, token string) error
}

// Migrator creates or updates the schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}
