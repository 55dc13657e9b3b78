package entities

import (
	"fmt"
	"time"
)

// Skill is a bot skill authored within an organization.
// A restricted skill requires an explicit grant to run or edit.
type Skill struct {
	ID             string // Skill ID
	OrganizationID string // Owning organization
	Name           string // Unique within the organization (e.g., "deploy")
	Restricted     bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate checks if the skill is valid
func (s *Skill) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill ID is required")
	}
	if s.OrganizationID == "" {
		return fmt.Errorf("organization ID is required")
	}
	if s.Name == "" {
		return fmt.Errorf("skill name is required")
	}
	return nil
}

// SameOrganization reports whether the member belongs to the skill's organization
func (s *Skill) SameOrganization(m *Member) bool {
	if s == nil || m == nil {
		return false
	}
	return s.OrganizationID != "" && s.OrganizationID == m.OrganizationID
}
