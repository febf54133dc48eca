package models

import "time"

// Role values for application users.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:250;uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"size:250;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         string    `json:"role" gorm:"size:20;default:user"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// PrimaryKey returns the storage-assigned identity.
func (u User) PrimaryKey() uint {
	return u.ID
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
