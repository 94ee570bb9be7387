package domain

import "time"

// UserToken records a token issued at login so it can be revoked at logout
type UserToken struct {
	TID    string    `gorm:"primaryKey;size:50"` // Primary key (uuid)
	Token  string    `gorm:"type:text;not null"` // Signed JWT
	UID    string    `gorm:"size:50;index"`      // Foreign key to User
	Expiry time.Time `gorm:"not null"`           // Expiry of the token
}
