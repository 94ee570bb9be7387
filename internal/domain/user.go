package domain

// RoleCustomer is the role every self-registered user receives
const RoleCustomer = "Customer"

// User Model
type User struct {
	UID      string      `gorm:"primaryKey;size:50" json:"uid"`                                         // Primary key supplied by the client
	Username string      `gorm:"size:100;uniqueIndex;not null" json:"username"`                          // Unique username
	Email    string      `gorm:"size:100;uniqueIndex;not null" json:"email"`                             // Unique email address
	Password string      `gorm:"size:255;not null" json:"-"`                                             // Hashed password
	Balance  float64     `gorm:"type:decimal(15,2);not null;default:100000" json:"balance"`              // Account balance
	Phone    string      `gorm:"size:20" json:"phone"`                                                   // Phone number
	Role     string      `gorm:"size:20;default:Customer" json:"role"`                                   // Role: Customer by default
	Tokens   []UserToken `gorm:"foreignKey:UID;references:UID;constraint:OnDelete:CASCADE" json:"-"` // Issued sessions
}

// TableName keeps the table name used by earlier deployments
func (User) TableName() string {
	return "kod_users"
}
