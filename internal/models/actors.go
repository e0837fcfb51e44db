package models

import "time"

// Admin is the administrator account referenced by ledger entries for
// attribution. Account management itself belongs to the identity service.
type Admin struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	IsSuper   bool      `gorm:"not null;default:false" json:"is_super"`
	CreatedAt time.Time `json:"created_at"`
}

// User is the storefront account optionally referenced as the subject of an
// administrative action.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
