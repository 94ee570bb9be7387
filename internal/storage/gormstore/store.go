package gormstore

import (
	"context"                  // Request lifetime
	"errors"                   // Error inspection
	"fmt"                      // Error wrapping
	"kodbank/internal/db"      // Schema migration
	"kodbank/internal/domain"  // Importing domain models
	"kodbank/internal/storage" // Persistence interfaces

	"github.com/go-sql-driver/mysql" // MySQL error codes
	"gorm.io/gorm"                   // GORM ORM library
)

var (
	_ storage.UserStore  = (*Store)(nil)
	_ storage.TokenStore = (*Store)(nil)
	_ storage.Migrator   = (*Store)(nil)
)

// Store provides MySQL-backed persistence through GORM.
type Store struct {
	db *gorm.DB
}

// New wraps an open GORM connection.
func New(conn *gorm.DB) *Store {
	return &Store{db: conn}
}

// Migrate applies the schema.
func (s *Store) Migrate(ctx context.Context) error {
	return db.Migrate(s.db.WithContext(ctx))
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	return wrap(s.db.WithContext(ctx).Create(user).Error)
}

// FindByUsername fetches a user by username.
func (s *Store) FindByUsername(ctx context.Context, username string) (domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return domain.User{}, wrap(err)
	}
	return user, nil
}

// ExistsByUsernameOrEmail reports whether the username or email is taken.
func (s *Store) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	if err != nil {
		return false, wrap(err)
	}
	return count > 0, nil
}

// SaveToken records a token issued at login.
func (s *Store) SaveToken(ctx context.Context, token domain.UserToken) error {
	return wrap(s.db.WithContext(ctx).Create(&token).Error)
}

// DeleteToken removes every row holding the token.
func (s *Store) DeleteToken(ctx context.Context, token string) error {
	return wrap(s.db.WithContext(ctx).Where("token = ?", token).Delete(&domain.UserToken{}).Error)
}

// wrap turns driver and ORM errors into storage sentinels.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrAlreadyExists
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 { // duplicate entry
		return storage.ErrAlreadyExists
	}
	return fmt.Errorf("storage: %w", err)
}
