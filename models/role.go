package models

import "time"

// Role names an account's permission set. Admin routes require RoleAdministrator.
type Role struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Name        string `gorm:"size:32;uniqueIndex;not null"`
	Description string `gorm:"size:255"`
}

const (
	RoleAdministrator = "administrator"
	RoleEditor        = "editor"
)

// DefaultRoles are seeded on every start.
var DefaultRoles = []Role{
	{Name: RoleAdministrator, Description: "full access"},
	{Name: RoleEditor, Description: "writes news, cannot moderate UMKM"},
}
