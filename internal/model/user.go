package model

import "time"

// Roles ordered by privilege. Faculty can manage content, admin everything.
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	Role         string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
