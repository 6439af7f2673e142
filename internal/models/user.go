package models

import "time"

type UserRole string

const (
	RoleCashier UserRole = "cashier"
	RoleManager UserRole = "manager"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether r is one of the roles the API knows about.
func (r UserRole) Valid() bool {
	switch r {
	case RoleCashier, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// Elevated roles may close or view shifts owned by other cashiers.
func (r UserRole) Elevated() bool {
	return r == RoleManager || r == RoleAdmin
}

type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id" firestore:"id"`
	Name         string    `gorm:"size:100;not null" json:"name" firestore:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email" firestore:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-" firestore:"password_hash"`
	Role         UserRole  `gorm:"size:20;not null;index" json:"role" firestore:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active" firestore:"active"`
	CreatedAt    time.Time `json:"created_at" firestore:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" firestore:"updated_at"`
}

// Identity is the acting caller as resolved from a credential.
type Identity struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Role   UserRole `json:"role"`
}

func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Name: u.Name, Role: u.Role}
}
