package model

import "time"

const (
	RegistrationStatusNew       = "new"
	RegistrationStatusContacted = "contacted"
	RegistrationStatusEnrolled  = "enrolled"
	RegistrationStatusRejected  = "rejected"
)

// Registration is a submitted student-interest form. Created by public
// submission, mutated only by administrative status transitions, never deleted.
type Registration struct {
	ID        int64
	Name      string
	Email     string
	Facebook  *string
	Phone     string
	Major     string
	Status    string
	IPAddress string
	UserAgent *string
	CreatedAt time.Time
	UpdatedAt time.Time
}
