package models

import (
	"fmt"
	"strings"
	"time"
)

type Phase string

const (
	PhasePreCon      Phase = "pre_con"
	PhaseKickoff     Phase = "kickoff"
	PhasePostProject Phase = "post_project"
)

var Phases = []Phase{PhasePreCon, PhaseKickoff, PhasePostProject}

func (p Phase) Valid() bool {
	for _, v := range Phases {
		if p == v {
			return true
		}
	}
	return false
}

// DefaultSectionRoles is used when a section is created without allowed roles.
var DefaultSectionRoles = []Role{RoleAdmin, RoleForeman, RoleEmployee}

type Section struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Phase        Phase     `json:"phase"`
	Title        string    `json:"title"`
	SortOrder    int       `json:"sort_order"`
	AllowedRoles []Role    `json:"allowed_roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Allows reports whether members of role may see the section.
// Managers see every section.
func (s *Section) Allows(role Role) bool {
	if role.IsManager() {
		return true
	}
	for _, r := range s.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *Section) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("%w: section title is required", ErrValidation)
	}
	if s.ProjectID == "" {
		return fmt.Errorf("%w: project_id is required", ErrValidation)
	}
	if !s.Phase.Valid() {
		return fmt.Errorf("%w: invalid phase %q", ErrValidation, s.Phase)
	}
	if s.SortOrder < 0 {
		return fmt.Errorf("%w: sort_order must be positive, got %d", ErrValidation, s.SortOrder)
	}
	for _, r := range s.AllowedRoles {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown role %q", ErrValidation, r)
		}
	}
	return nil
}
