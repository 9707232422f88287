package models

import "time"

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSpecialist Role = "specialist"
)

type Specialist struct {
	ID        string    `json:"id"`
	FullName  string    `json:"fullName" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Password  string    `json:"password,omitempty" validate:"required"`
	Role      Role      `json:"role" validate:"required,oneof=admin specialist"`
	Category  string    `json:"category,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	Active bool `json:"active"`
	// DeactivatedAt is set once per deactivation and cleared on reactivation.
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}
