package models

import "time"

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleForeman       Role = "foreman"
	RoleEmployee      Role = "employee"
	RoleCustomer      Role = "customer"
	RoleSubcontractor Role = "subcontractor"
)

var Roles = []Role{RoleAdmin, RoleForeman, RoleEmployee, RoleCustomer, RoleSubcontractor}

func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// IsManager reports whether the role may manage checklists and site records.
func (r Role) IsManager() bool {
	return r == RoleAdmin || r == RoleForeman
}

// IsCrew reports whether the role works on site and may progress tasks.
func (r Role) IsCrew() bool {
	return r.IsManager() || r == RoleEmployee
}

type UserProfile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor is the authorization context passed into every operation.
type Actor struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// CanViewProject reports whether the actor may read the project.
// Customers only see projects they own.
func (a Actor) CanViewProject(p *Project) bool {
	if p == nil || !a.Role.Valid() {
		return false
	}
	if a.Role == RoleCustomer {
		return p.CustomerID != nil && *p.CustomerID == a.UserID
	}
	return true
}
